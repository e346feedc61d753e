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

// Package asset manages physical media assets and their derived caches. This
// file adds the slice cache: rendered clip files cut from a pool asset, keyed
// by fingerprint, time range, and a free-form parameter tag so the same range
// rendered with different transcode parameters caches separately.
package asset

import (
	"fmt"
	"os"
	"path/filepath"
)

// SliceCache stores rendered clips cut from pool assets.
type SliceCache struct {
	dir string
}

// NewSliceCache creates the cache directory if needed.
func NewSliceCache(dir string) (*SliceCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create slice cache directory: %w", err)
	}
	return &SliceCache{dir: dir}, nil
}

// SlicePath returns the cache path for a clip. Start and end are encoded in
// centiseconds so the filename stays readable and collision-free for the
// precision the cutter works at.
func (c *SliceCache) SlicePath(fingerprint string, start float64, end float64, params string) string {
	if params == "" {
		params = "default"
	}
	name := fmt.Sprintf("%s_%d_%d_%s.mp4", fingerprint, int(start*100), int(end*100), params)
	return filepath.Join(c.dir, name)
}

// HasSlice reports whether the clip is already rendered.
func (c *SliceCache) HasSlice(fingerprint string, start float64, end float64, params string) bool {
	_, err := os.Stat(c.SlicePath(fingerprint, start, end, params))
	return err == nil
}

// SaveSlice moves a freshly rendered temp clip into the cache and returns its
// final path. The rename publishes atomically on the same filesystem;
// a cross-device copy falls back to copy-then-rename.
func (c *SliceCache) SaveSlice(tempPath string, fingerprint string, start float64, end float64, params string) (string, error) {
	target := c.SlicePath(fingerprint, start, end, params)
	if err := os.Rename(tempPath, target); err == nil {
		return target, nil
	}
	if err := copyFile(tempPath, target); err != nil {
		return "", err
	}
	_ = os.Remove(tempPath)
	return target, nil
}
