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

// Package testutil provides shared fixtures for tests that need an asset
// store: a throwaway pool and cache under the test's temp directory, and a
// one-call ingest of synthetic file content.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/videoscribe/videoscribe/internal/asset"
)

// NewStore returns a store rooted in the test's temp directory. Cleanup is
// automatic through t.TempDir.
func NewStore(t *testing.T) *asset.Store {
	t.Helper()
	base := t.TempDir()
	store, err := asset.NewStore(filepath.Join(base, "pool"), filepath.Join(base, "cache"))
	require.NoError(t, err)
	return store
}

// IngestFile writes body to a temp file named name and ingests it, returning
// the pooled asset. Distinct bodies produce distinct fingerprints.
func IngestFile(t *testing.T, store *asset.Store, name string, body []byte) *asset.Asset {
	t.Helper()
	src := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(src, body, 0o644))
	a, err := store.Ingest(src, name)
	require.NoError(t, err)
	return a
}
