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
// file implements the Store: a content-addressed pool of physical video files
// plus a per-fingerprint cache directory holding every derived stage
// artifact.
//
// Logic Flow:
//  1. Ingest streams the source file through the fingerprint digest and, if
//     no pool file with that fingerprint exists yet, copies the file into the
//     pool as "{fingerprint}{ext}". Ingesting the same bytes twice is a
//     no-op, whatever the filenames were.
//  2. Each derived artifact lives at a fixed path under the asset's cache
//     directory. Presence of the file is the sole truth of "stage complete";
//     there is no separate completion flag.
//  3. WriteStage publishes atomically: the payload is written to a temporary
//     file in the same directory and renamed into place, so a crash can never
//     leave a truncated artifact that would be mistaken for a complete one.
//  4. ReadStage decodes into the stage's declared schema and validates it; a
//     malformed artifact surfaces as a model.ParseError so callers can treat
//     it as a cache miss and recompute.
//
// Everything under the cache directory is derived and disposable: deleting it
// forces full recomputation and nothing else breaks.
package asset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/h2non/filetype"

	"github.com/videoscribe/videoscribe/internal/core/model"
)

// metadataFilename is the per-asset side record holding informational data
// such as the original upload filename. It is not a stage artifact.
const metadataFilename = "metadata.json"

// videoExtensions are the pool file extensions the store recognizes when
// listing assets.
var videoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm"}

// Asset identifies one ingested physical video.
type Asset struct {
	Fingerprint      string `json:"fingerprint"`
	PoolPath         string `json:"pool_path"`
	OriginalFilename string `json:"original_filename"`
}

// metadata is the schema of the per-asset metadata.json side record.
type metadata struct {
	OriginalFilename string `json:"original_filename"`
}

// Store owns the pool directory and the fingerprint-addressed cache tree.
type Store struct {
	poolDir  string
	cacheDir string
}

// NewStore creates a Store rooted at the given pool and cache directories,
// creating both if needed.
func NewStore(poolDir string, cacheDir string) (*Store, error) {
	for _, dir := range []string{poolDir, cacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
		}
	}
	return &Store{poolDir: poolDir, cacheDir: cacheDir}, nil
}

// Ingest guarantees the file at path is present in the pool exactly once and
// returns its Asset record. The fingerprint is computed by streaming; if a
// pool file for it already exists the copy is skipped. The original filename
// is recorded in the asset's metadata side record for display purposes only.
func (s *Store) Ingest(path string, originalFilename string) (*Asset, error) {
	fp, err := Fingerprint(path)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		ext = s.sniffExtension(path)
	}
	poolPath := filepath.Join(s.poolDir, fp+ext)

	if _, err := os.Stat(poolPath); err == nil {
		slog.Info("asset already in pool", "fingerprint", fp, "path", poolPath)
	} else {
		if err := copyFile(path, poolPath); err != nil {
			return nil, err
		}
		slog.Info("asset copied to pool", "fingerprint", fp, "path", poolPath)
	}

	if err := os.MkdirAll(s.AssetCacheDir(fp), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory for %s: %w", fp, err)
	}
	if originalFilename != "" {
		if err := s.writeMetadata(fp, originalFilename); err != nil {
			// Informational only; the asset itself is fine.
			slog.Warn("failed to record original filename", "fingerprint", fp, "error", err)
		}
	}

	return &Asset{Fingerprint: fp, PoolPath: poolPath, OriginalFilename: originalFilename}, nil
}

// PoolPath finds the pool file for a fingerprint by probing the known video
// extensions. Returns "" when the asset is not in the pool.
func (s *Store) PoolPath(fingerprint string) string {
	for _, ext := range videoExtensions {
		p := filepath.Join(s.poolDir, fingerprint+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// GetAsset looks up a single pool asset by fingerprint.
func (s *Store) GetAsset(fingerprint string) (*Asset, error) {
	p := s.PoolPath(fingerprint)
	if p == "" {
		return nil, NewReadError(filepath.Join(s.poolDir, fingerprint), os.ErrNotExist)
	}
	a := &Asset{
		Fingerprint:      fingerprint,
		PoolPath:         p,
		OriginalFilename: filepath.Base(p),
	}
	if meta, err := s.readMetadata(fingerprint); err == nil && meta.OriginalFilename != "" {
		a.OriginalFilename = meta.OriginalFilename
	}
	return a, nil
}

// AssetCacheDir returns the cache directory for a fingerprint.
func (s *Store) AssetCacheDir(fingerprint string) string {
	return filepath.Join(s.cacheDir, fingerprint)
}

// StagePath returns the artifact path for a stage of an asset.
func (s *Store) StagePath(fingerprint string, stage model.Stage) string {
	return filepath.Join(s.AssetCacheDir(fingerprint), stage.Filename())
}

// HasStage reports stage completion purely by file existence.
func (s *Store) HasStage(fingerprint string, stage model.Stage) bool {
	_, err := os.Stat(s.StagePath(fingerprint, stage))
	return err == nil
}

// WriteStage atomically publishes a stage payload. The payload is marshaled
// to a temp file in the cache directory and renamed over the final path only
// after a complete write, so readers never observe a partial artifact.
func (s *Store) WriteStage(fingerprint string, stage model.Stage, payload any) error {
	dir := s.AssetCacheDir(fingerprint)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory for %s: %w", fingerprint, err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s stage: %w", stage, err)
	}

	tmp, err := os.CreateTemp(dir, "."+string(stage)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp artifact: %w", err)
	}
	if err := os.Rename(tmpName, s.StagePath(fingerprint, stage)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to publish %s stage: %w", stage, err)
	}
	return nil
}

// ReadStage decodes a stage artifact into out, which must be a pointer to the
// stage's declared schema. Schema mismatches and undecodable JSON surface as
// a model.ParseError so the caller can fall back to recomputation.
func (s *Store) ReadStage(fingerprint string, stage model.Stage, out model.Validator) error {
	data, err := os.ReadFile(s.StagePath(fingerprint, stage))
	if err != nil {
		return NewReadError(s.StagePath(fingerprint, stage), err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return model.NewParseError(fmt.Sprintf("%s stage artifact undecodable", stage), err)
	}
	if err := out.Validate(); err != nil {
		return err
	}
	return nil
}

// RemoveStage deletes a stage artifact, forcing recomputation on the next
// run. Removing an absent artifact is not an error.
func (s *Store) RemoveStage(fingerprint string, stage model.Stage) error {
	err := os.Remove(s.StagePath(fingerprint, stage))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ListAssets enumerates the pool, resolving display names from each asset's
// metadata side record where present. Output is sorted by fingerprint for
// stable listings.
func (s *Store) ListAssets() ([]*Asset, error) {
	entries, err := os.ReadDir(s.poolDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool directory: %w", err)
	}
	out := make([]*Asset, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !isVideoExtension(ext) {
			continue
		}
		fp := strings.TrimSuffix(e.Name(), ext)
		a := &Asset{
			Fingerprint:      fp,
			PoolPath:         filepath.Join(s.poolDir, e.Name()),
			OriginalFilename: e.Name(),
		}
		if meta, err := s.readMetadata(fp); err == nil && meta.OriginalFilename != "" {
			a.OriginalFilename = meta.OriginalFilename
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fingerprint < out[j].Fingerprint })
	return out, nil
}

func (s *Store) writeMetadata(fingerprint string, originalFilename string) error {
	meta, _ := s.readMetadata(fingerprint)
	if meta == nil {
		meta = &metadata{}
	}
	meta.OriginalFilename = originalFilename
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.AssetCacheDir(fingerprint), metadataFilename)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Store) readMetadata(fingerprint string) (*metadata, error) {
	data, err := os.ReadFile(filepath.Join(s.AssetCacheDir(fingerprint), metadataFilename))
	if err != nil {
		return nil, err
	}
	meta := &metadata{}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// sniffExtension infers a pool extension from the file's leading bytes when
// the source name carries none.
func (s *Store) sniffExtension(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ".bin"
	}
	defer f.Close()
	head := make([]byte, 261)
	n, _ := io.ReadFull(f, head)
	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		return ".bin"
	}
	return "." + kind.Extension
}

func isVideoExtension(ext string) bool {
	for _, v := range videoExtensions {
		if ext == v {
			return true
		}
	}
	return false
}

func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return NewReadError(src, err)
	}
	defer in.Close()

	tmp := dst + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create pool file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return NewReadError(src, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to flush pool file: %w", err)
	}
	return os.Rename(tmp, dst)
}
