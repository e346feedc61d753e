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
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videoscribe/videoscribe/internal/executor"
)

func fastPolicy() executor.RetryPolicy {
	return executor.RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		CallTimeout:    time.Second,
	}
}

func constJob(key, prompt, value string, delay time.Duration) *executor.Job {
	return &executor.Job{
		ContentKey: key,
		Prompt:     prompt,
		Call: func(ctx context.Context) (string, error) {
			select {
			case <-time.After(delay):
				return value, nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		},
	}
}

func TestRunPreservesInputOrder(t *testing.T) {
	// The slowest job goes first so completion order inverts submission
	// order. Results must still come back aligned with the input.
	exec := executor.New("test", 3, fastPolicy(), nil)
	jobs := []*executor.Job{
		constJob("fp", "p0", "first", 50*time.Millisecond),
		constJob("fp", "p1", "second", 10*time.Millisecond),
		constJob("fp", "p2", "third", 30*time.Millisecond),
	}

	results := exec.Run(context.Background(), jobs)

	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Value)
	assert.Equal(t, "second", results[1].Value)
	assert.Equal(t, "third", results[2].Value)
}

func TestRunIsolatesJobFailures(t *testing.T) {
	exec := executor.New("test", 2, fastPolicy(), nil)
	boom := errors.New("provider unavailable")
	jobs := []*executor.Job{
		constJob("fp", "p0", "ok-0", 0),
		{
			ContentKey: "fp",
			Prompt:     "p1",
			Call: func(ctx context.Context) (string, error) {
				return "", boom
			},
		},
		constJob("fp", "p2", "ok-2", 0),
	}

	results := exec.Run(context.Background(), jobs)

	require.Len(t, results, 3)
	assert.Equal(t, "ok-0", results[0].Value)
	assert.Equal(t, "ok-2", results[2].Value)
	assert.Empty(t, results[1].Value)

	var callErr *executor.ExternalCallError
	require.ErrorAs(t, results[1].Err, &callErr)
	assert.Equal(t, 3, callErr.Attempts)
	assert.ErrorIs(t, results[1].Err, boom)
}

func TestRunRetriesTransientFailures(t *testing.T) {
	exec := executor.New("test", 1, fastPolicy(), nil)
	var calls atomic.Int32
	jobs := []*executor.Job{{
		ContentKey: "fp",
		Prompt:     "flaky",
		Call: func(ctx context.Context) (string, error) {
			if calls.Add(1) < 3 {
				return "", errors.New("429")
			}
			return "recovered", nil
		},
	}}

	results := exec.Run(context.Background(), jobs)

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "recovered", results[0].Value)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRunCacheHitSkipsCall(t *testing.T) {
	cache := executor.NewResultCache(filepath.Join(t.TempDir(), "cache.json"), 50)
	cache.Put(executor.CacheKey("fp", "describe"), "cached description")

	var calls atomic.Int32
	exec := executor.New("test", 1, fastPolicy(), cache)
	jobs := []*executor.Job{{
		ContentKey: "fp",
		Prompt:     "describe",
		Call: func(ctx context.Context) (string, error) {
			calls.Add(1)
			return "fresh", nil
		},
	}}

	results := exec.Run(context.Background(), jobs)

	require.Len(t, results, 1)
	assert.Equal(t, "cached description", results[0].Value)
	assert.True(t, results[0].FromCache)
	assert.Equal(t, int32(0), calls.Load())
}

func TestRunPersistsFreshResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache := executor.NewResultCache(path, 50)

	exec := executor.New("test", 2, fastPolicy(), cache)
	jobs := []*executor.Job{
		constJob("fp", "p0", "v0", 0),
		constJob("fp", "p1", "v1", 0),
	}
	results := exec.Run(context.Background(), jobs)
	require.Len(t, results, 2)

	// A second executor on the same file must see the checkpoint written
	// by the final flush.
	reloaded := executor.NewResultCache(path, 50)
	v, ok := reloaded.Get(executor.CacheKey("fp", "p0"))
	assert.True(t, ok)
	assert.Equal(t, "v0", v)
	v, ok = reloaded.Get(executor.CacheKey("fp", "p1"))
	assert.True(t, ok)
	assert.Equal(t, "v1", v)
}

func TestRunStopsRetryingOnCancel(t *testing.T) {
	policy := executor.RetryPolicy{
		MaxAttempts:    10,
		InitialBackoff: time.Hour,
		CallTimeout:    time.Second,
	}
	exec := executor.New("test", 1, policy, nil)
	ctx, cancel := context.WithCancel(context.Background())
	jobs := []*executor.Job{{
		ContentKey: "fp",
		Prompt:     "p",
		Call: func(ctx context.Context) (string, error) {
			cancel()
			return "", errors.New("always fails")
		},
	}}

	done := make(chan []*executor.Result, 1)
	go func() { done <- exec.Run(ctx, jobs) }()

	select {
	case results := <-done:
		require.Len(t, results, 1)
		assert.ErrorIs(t, results[0].Err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled run did not return before the backoff elapsed")
	}
}
