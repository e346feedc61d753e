// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package executor runs batches of slow external-service calls under a
// concurrency ceiling. This file implements the durable result cache the
// executor consults before issuing any call: an in-memory map mirrored to a
// single JSON file, keyed by the content fingerprint of the job input plus a
// digest of the exact prompt used. Identical inputs under identical prompts
// are therefore never re-submitted, across runs and across assets.
//
// Flushing is deliberately periodic rather than per-entry: entries accumulate
// in memory and the mirror is rewritten every flushEvery new entries plus
// once after the batch settles. A crash loses at most the unflushed tail,
// which is an accepted trade for drastically less I/O. One mutex guards both
// the map and the durable write, giving the single-writer discipline that
// keeps two concurrent flushes from interleaving partial file contents.
package executor

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// ResultCache is a durable (content fingerprint, prompt) -> result map.
type ResultCache struct {
	path       string
	flushEvery int

	mu      sync.Mutex
	entries map[string]string
	dirty   int
}

// CacheKey builds the canonical cache key for a job. The prompt is digested
// so arbitrarily long prompt text stays a fixed-width key component.
func CacheKey(contentFingerprint string, prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return contentFingerprint + ":" + hex.EncodeToString(sum[:8])
}

// NewResultCache opens (or initializes) the cache file at path. An
// unreadable or undecodable file is reported as a CacheCorruptionError in the
// logs and treated as an empty cache; it is never fatal.
func NewResultCache(path string, flushEvery int) *ResultCache {
	if flushEvery <= 0 {
		flushEvery = 50
	}
	c := &ResultCache{path: path, flushEvery: flushEvery, entries: make(map[string]string)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c
	}
	if err != nil {
		slog.Warn("result cache unreadable, starting empty", "error", &CacheCorruptionError{Path: path, Err: err})
		return c
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		slog.Warn("result cache corrupt, starting empty", "error", &CacheCorruptionError{Path: path, Err: err})
		c.entries = make(map[string]string)
	}
	return c
}

// Get returns the cached result for key.
func (c *ResultCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put records a new result. The entry is durable only after the next flush.
func (c *ResultCache) Put(key string, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[key]; ok && old == value {
		return
	}
	c.entries[key] = value
	c.dirty++
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// FlushIfDue rewrites the durable mirror if enough new entries accumulated
// since the last flush.
func (c *ResultCache) FlushIfDue() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty < c.flushEvery {
		return nil
	}
	return c.flushLocked()
}

// FlushNow unconditionally rewrites the durable mirror if anything changed.
func (c *ResultCache) FlushNow() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty == 0 {
		return nil
	}
	return c.flushLocked()
}

// flushLocked writes the whole map to a temp file and renames it over the
// mirror. Callers must hold c.mu, which is what serializes writers.
func (c *ResultCache) flushLocked() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result cache: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write result cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to publish result cache: %w", err)
	}
	c.dirty = 0
	return nil
}
