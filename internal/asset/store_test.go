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

// Package asset_test verifies the content-addressed store: idempotent
// ingestion, stage artifact atomicity, and schema-checked reads.
package asset_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videoscribe/videoscribe/internal/asset"
	"github.com/videoscribe/videoscribe/internal/core/model"
)

func newTestStore(t *testing.T) *asset.Store {
	t.Helper()
	root := t.TempDir()
	s, err := asset.NewStore(filepath.Join(root, "pool"), filepath.Join(root, "cache"))
	require.NoError(t, err)
	return s
}

func writeTempVideo(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestIngestIdempotent ingests the same byte content under two different
// filenames and verifies both resolve to the same fingerprint and a single
// pool file.
func TestIngestIdempotent(t *testing.T) {
	s := newTestStore(t)

	first := writeTempVideo(t, "lecture.mp4", "identical bytes")
	second := writeTempVideo(t, "renamed-copy.mp4", "identical bytes")

	a1, err := s.Ingest(first, "lecture.mp4")
	require.NoError(t, err)
	a2, err := s.Ingest(second, "renamed-copy.mp4")
	require.NoError(t, err)

	assert.Equal(t, a1.Fingerprint, a2.Fingerprint)
	assert.Equal(t, a1.PoolPath, a2.PoolPath)

	entries, err := os.ReadDir(filepath.Dir(a1.PoolPath))
	require.NoError(t, err)
	count := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), a1.Fingerprint) {
			count++
		}
	}
	assert.Equal(t, 1, count, "pool must hold exactly one copy of the content")
}

// TestIngestMissingSource verifies the ReadError taxonomy: an unreadable
// source is reported as a *asset.ReadError, not a generic failure.
func TestIngestMissingSource(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Ingest(filepath.Join(t.TempDir(), "does-not-exist.mp4"), "")
	require.Error(t, err)
	var readErr *asset.ReadError
	assert.True(t, errors.As(err, &readErr))
}

// TestStageRoundTrip writes a transcript artifact and reads it back through
// the schema-checked decoder.
func TestStageRoundTrip(t *testing.T) {
	s := newTestStore(t)
	fp := "abc123"

	assert.False(t, s.HasStage(fp, model.StageTranscript))

	payload := &model.Transcript{Segments: []*model.SpeechSegment{
		{Text: "hello", Start: 0, End: 1.5},
		{Text: "world", Start: 2, End: 3},
	}}
	require.NoError(t, s.WriteStage(fp, model.StageTranscript, payload))
	assert.True(t, s.HasStage(fp, model.StageTranscript))

	got := &model.Transcript{}
	require.NoError(t, s.ReadStage(fp, model.StageTranscript, got))
	require.Len(t, got.Segments, 2)
	assert.Equal(t, "hello", got.Segments[0].Text)
}

// TestStageWriteLeavesNoPartialFiles checks the atomic publish contract:
// after a successful write the cache directory contains the artifact and no
// temp files.
func TestStageWriteLeavesNoPartialFiles(t *testing.T) {
	s := newTestStore(t)
	fp := "def456"

	require.NoError(t, s.WriteStage(fp, model.StageFusedRaw, &model.FusedTimeline{}))

	entries, err := os.ReadDir(s.AssetCacheDir(fp))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "found leftover temp file %s", e.Name())
	}
}

// TestReadStageRejectsMalformedArtifact plants a corrupt artifact and
// verifies the decode surfaces a model.ParseError rather than a zero-value
// payload.
func TestReadStageRejectsMalformedArtifact(t *testing.T) {
	s := newTestStore(t)
	fp := "feed99"

	require.NoError(t, os.MkdirAll(s.AssetCacheDir(fp), 0o755))
	require.NoError(t, os.WriteFile(s.StagePath(fp, model.StageTranscript), []byte("{not json"), 0o644))

	got := &model.Transcript{}
	err := s.ReadStage(fp, model.StageTranscript, got)
	require.Error(t, err)
	var parseErr *model.ParseError
	assert.True(t, errors.As(err, &parseErr))
}

// TestReadStageRejectsInvalidSchema plants a decodable artifact whose values
// violate the transcript invariants (end before start).
func TestReadStageRejectsInvalidSchema(t *testing.T) {
	s := newTestStore(t)
	fp := "feedaa"

	bad := []byte(`{"segments":[{"text":"x","start":5,"end":1}]}`)
	require.NoError(t, os.MkdirAll(s.AssetCacheDir(fp), 0o755))
	require.NoError(t, os.WriteFile(s.StagePath(fp, model.StageTranscript), bad, 0o644))

	got := &model.Transcript{}
	err := s.ReadStage(fp, model.StageTranscript, got)
	require.Error(t, err)
	var parseErr *model.ParseError
	assert.True(t, errors.As(err, &parseErr))
}

// TestListAssets verifies pool enumeration resolves original filenames from
// the metadata side record.
func TestListAssets(t *testing.T) {
	s := newTestStore(t)

	src := writeTempVideo(t, "howto.mp4", "howto bytes")
	a, err := s.Ingest(src, "How To Solder.mp4")
	require.NoError(t, err)

	assets, err := s.ListAssets()
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, a.Fingerprint, assets[0].Fingerprint)
	assert.Equal(t, "How To Solder.mp4", assets[0].OriginalFilename)
}

// TestSliceCache exercises the clip cache naming and save path.
func TestSliceCache(t *testing.T) {
	c, err := asset.NewSliceCache(filepath.Join(t.TempDir(), "slices"))
	require.NoError(t, err)

	fp := "cafe01"
	assert.False(t, c.HasSlice(fp, 1.25, 8.5, ""))

	tmp := writeTempVideo(t, "clip.mp4", "clip bytes")
	path, err := c.SaveSlice(tmp, fp, 1.25, 8.5, "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "cafe01_125_850_default.mp4"))
	assert.True(t, c.HasSlice(fp, 1.25, 8.5, ""))
}
