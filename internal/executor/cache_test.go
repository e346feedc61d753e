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

package executor_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videoscribe/videoscribe/internal/executor"
)

func TestCacheKeyVariesByContentAndPrompt(t *testing.T) {
	base := executor.CacheKey("fp-a", "prompt-1")
	assert.NotEqual(t, base, executor.CacheKey("fp-b", "prompt-1"))
	assert.NotEqual(t, base, executor.CacheKey("fp-a", "prompt-2"))
	assert.Equal(t, base, executor.CacheKey("fp-a", "prompt-1"))
}

func TestCacheFlushCadence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache := executor.NewResultCache(path, 3)

	for i := 0; i < 2; i++ {
		cache.Put(fmt.Sprintf("k%d", i), "v")
		require.NoError(t, cache.FlushIfDue())
	}
	// Two dirty entries, threshold is three: nothing on disk yet.
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	cache.Put("k2", "v")
	require.NoError(t, cache.FlushIfDue())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestCacheSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache := executor.NewResultCache(path, 50)
	cache.Put("key", "value")
	require.NoError(t, cache.FlushNow())

	reloaded := executor.NewResultCache(path, 50)
	v, ok := reloaded.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, reloaded.Len())
}

func TestCacheTreatsCorruptFileAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	cache := executor.NewResultCache(path, 50)
	assert.Equal(t, 0, cache.Len())

	// The corrupt file is replaced wholesale on the next flush.
	cache.Put("key", "value")
	require.NoError(t, cache.FlushNow())
	reloaded := executor.NewResultCache(path, 50)
	v, ok := reloaded.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestCachePutIdenticalValueStaysClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache := executor.NewResultCache(path, 1)

	cache.Put("key", "value")
	require.NoError(t, cache.FlushIfDue())
	info, err := os.Stat(path)
	require.NoError(t, err)
	before := info.ModTime()

	// Re-putting the same value must not mark the cache dirty again.
	cache.Put("key", "value")
	require.NoError(t, cache.FlushIfDue())
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before, info.ModTime())
}
