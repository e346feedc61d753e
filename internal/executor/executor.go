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
// concurrency ceiling. Both the vision-description stage and the
// text-summarization stage drive their provider calls through this one
// implementation instead of carrying their own ad hoc retry loops.
//
// Logic Flow:
//  1. Run receives an ordered slice of jobs. Each job carries the content
//     fingerprint of its input, the exact prompt, and the call closure.
//  2. A fixed pool of workers pulls indexed jobs from a channel, so at most
//     `concurrency` calls are in flight at once.
//  3. Every job first consults the durable result cache; a hit bypasses the
//     external service entirely.
//  4. On a miss the call runs under a per-call timeout and is retried up to
//     the policy bound with linearly increasing backoff. Exhausted retries
//     degrade that one job to an empty result carrying the error; sibling
//     jobs are never affected.
//  5. Fresh results are written into the cache; every flushEvery completions
//     the cache mirror is checkpointed to disk, and once all jobs settle a
//     final flush runs.
//  6. Workers write each result into a slice slot matching the job's input
//     index, so the returned sequence aligns index-for-index with the input
//     regardless of completion order.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Job is one independent external call.
type Job struct {
	// ContentKey is the fingerprint of the job's input content. Together
	// with the prompt it forms the cache key.
	ContentKey string
	// Prompt is the exact prompt text the call will use.
	Prompt string
	// Call issues the external request. It must honor ctx cancellation.
	Call func(ctx context.Context) (string, error)
}

// Result is the outcome of one job. A failed job has Value == "" and a
// non-nil Err; downstream stages log and skip such entries.
type Result struct {
	Value     string
	Err       error
	FromCache bool
}

// RetryPolicy bounds the per-job retry behavior. The call timeout applies to
// each attempt independently of the retry count.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	CallTimeout    time.Duration
}

// DefaultRetryPolicy mirrors the provider limits the pipeline is tuned for.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: 2 * time.Second, CallTimeout: 60 * time.Second}
}

// Executor drives job batches for one external service.
type Executor struct {
	name        string
	concurrency int
	retry       RetryPolicy
	cache       *ResultCache

	tracer       trace.Tracer
	callCounter  metric.Int64Counter
	hitCounter   metric.Int64Counter
	retryCounter metric.Int64Counter
	failCounter  metric.Int64Counter
}

// New creates an Executor. The name identifies the service in logs and
// telemetry ("vision", "summarize"). A nil cache disables result caching.
func New(name string, concurrency int, retry RetryPolicy, cache *ResultCache) *Executor {
	if concurrency <= 0 {
		concurrency = 1
	}
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	if retry.CallTimeout <= 0 {
		retry.CallTimeout = DefaultRetryPolicy().CallTimeout
	}
	meter := otel.Meter("github.com/videoscribe/videoscribe/executor")
	e := &Executor{
		name:        name,
		concurrency: concurrency,
		retry:       retry,
		cache:       cache,
		tracer:      otel.Tracer(name),
	}
	e.callCounter, _ = meter.Int64Counter(fmt.Sprintf("%s.executor.calls", name))
	e.hitCounter, _ = meter.Int64Counter(fmt.Sprintf("%s.executor.cache_hits", name))
	e.retryCounter, _ = meter.Int64Counter(fmt.Sprintf("%s.executor.retries", name))
	e.failCounter, _ = meter.Int64Counter(fmt.Sprintf("%s.executor.failures", name))
	return e
}

// indexedJob pairs a job with its position in the input slice so workers can
// place results without coordination.
type indexedJob struct {
	index int
	job   *Job
}

// Run executes all jobs and returns their results in input order. Execution
// order is unordered and concurrent; only the returned slice is ordered. The
// batch itself never fails: per-job errors are carried in the results.
func (e *Executor) Run(ctx context.Context, jobs []*Job) []*Result {
	runCtx, span := e.tracer.Start(ctx, fmt.Sprintf("%s_executor_run", e.name))
	defer span.End()

	results := make([]*Result, len(jobs))
	work := make(chan indexedJob, len(jobs))

	var wg sync.WaitGroup
	for w := 0; w < e.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ij := range work {
				results[ij.index] = e.runOne(runCtx, ij.job)
				if e.cache != nil {
					if err := e.cache.FlushIfDue(); err != nil {
						slog.Warn("result cache checkpoint failed", "executor", e.name, "error", err)
					}
				}
			}
		}()
	}

	for i, j := range jobs {
		work <- indexedJob{index: i, job: j}
	}
	close(work)
	wg.Wait()

	if e.cache != nil {
		if err := e.cache.FlushNow(); err != nil {
			slog.Warn("result cache final flush failed", "executor", e.name, "error", err)
		}
	}
	return results
}

// runOne resolves a single job: cache first, then the bounded retry loop.
func (e *Executor) runOne(ctx context.Context, job *Job) *Result {
	key := CacheKey(job.ContentKey, job.Prompt)
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			e.hitCounter.Add(ctx, 1)
			return &Result{Value: v, FromCache: true}
		}
	}

	var lastErr error
	for attempt := 1; attempt <= e.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			e.retryCounter.Add(ctx, 1)
			// Linear backoff: attempt 2 waits one unit, attempt 3 two.
			backoff := time.Duration(attempt-1) * e.retry.InitialBackoff
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				e.failCounter.Add(ctx, 1)
				return &Result{Err: &ExternalCallError{Attempts: attempt - 1, Err: ctx.Err()}}
			}
		}

		e.callCounter.Add(ctx, 1)
		callCtx, cancel := context.WithTimeout(ctx, e.retry.CallTimeout)
		value, err := job.Call(callCtx)
		cancel()
		if err == nil {
			if e.cache != nil {
				e.cache.Put(key, value)
			}
			return &Result{Value: value}
		}
		lastErr = err
		slog.Warn("external call failed", "executor", e.name, "attempt", attempt, "error", err)
	}

	e.failCounter.Add(ctx, 1)
	return &Result{Err: &ExternalCallError{Attempts: e.retry.MaxAttempts, Err: lastErr}}
}
