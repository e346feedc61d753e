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

// Package workflow assembles the stage commands into the per-asset
// processing chain: transcribe, describe, fuse, clean. Each stage persists
// its artifact before the next starts and checks the stage cache on entry,
// so a re-run of a partially processed asset only redoes incomplete stages.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/videoscribe/videoscribe/internal/ai"
	"github.com/videoscribe/videoscribe/internal/asset"
	"github.com/videoscribe/videoscribe/internal/core/commands"
	"github.com/videoscribe/videoscribe/internal/core/cor"
	"github.com/videoscribe/videoscribe/internal/core/model"
	"github.com/videoscribe/videoscribe/internal/executor"
	"github.com/videoscribe/videoscribe/internal/keyframe"
	"github.com/videoscribe/videoscribe/internal/media"
)

// Collaborators are the external services and tools the pipeline stages
// depend on. Tests swap in fakes; production wiring builds them from the
// genai service clients in cmd/server.
type Collaborators struct {
	Store       *asset.Store
	Tool        *media.Tool
	Selector    *keyframe.Selector
	Transcriber ai.Transcriber
	Describer   ai.VisionDescriber
	Summarizer  ai.Summarizer
}

// Pipeline runs the full stage chain for one asset at a time. Distinct
// assets may run on separate Pipeline instances in parallel; their cache
// directories are disjoint by fingerprint.
type Pipeline struct {
	chain cor.Chain
}

// NewScribePipeline builds the standard four-stage chain from the
// application configuration.
func NewScribePipeline(cfg *ai.Config, deps Collaborators) *Pipeline {
	retry := executor.RetryPolicy{
		MaxAttempts:    cfg.Executor.MaxAttempts,
		InitialBackoff: time.Duration(cfg.Executor.BackoffSeconds * float64(time.Second)),
		CallTimeout:    time.Duration(cfg.Executor.CallTimeoutSeconds * float64(time.Second)),
	}
	if retry.MaxAttempts <= 0 || retry.InitialBackoff <= 0 || retry.CallTimeout <= 0 {
		retry = executor.DefaultRetryPolicy()
	}
	concurrency := cfg.Executor.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	chain := cor.NewBaseChain("scribe_pipeline").
		AddCommand(commands.NewTranscribeCommand(
			"transcribe", deps.Store, deps.Tool, deps.Transcriber)).
		AddCommand(commands.NewDescribeScenesCommand(
			"describe_scenes", deps.Store, deps.Tool, deps.Selector, deps.Describer,
			cfg.PromptTemplates.ScenePrompt, concurrency, retry,
			cfg.Executor.FlushEvery, cfg.Selector.FineStride)).
		AddCommand(commands.NewFuseCommand(
			"fuse_timeline", deps.Store, cfg.Fusion.GapThresholdSeconds)).
		AddCommand(commands.NewCleanCommand(
			"clean_dataset", deps.Store, deps.Summarizer,
			summaryPrompt(cfg), cfg.Cleaner.DefaultCategory,
			cfg.Cleaner.MinSummarizeRunes, concurrency, retry, cfg.Executor.FlushEvery))
	return &Pipeline{chain: chain}
}

// summaryPrompt extends the configured prompt with a few-shot example of the
// kind of visual context the summarizer is asked to condense.
func summaryPrompt(cfg *ai.Config) string {
	example := model.ExampleFusedRecord()
	return cfg.PromptTemplates.SummaryPrompt +
		"\n\nExample input:\n" + example.VisualContext
}

// Run processes one ingested asset through every stage. It returns the
// accumulated stage errors, if any; stages that degrade gracefully (empty
// transcript, zero keyframes) are not errors.
func (p *Pipeline) Run(ctx context.Context, a *asset.Asset) error {
	workflowCtx := cor.NewBaseContext()
	defer workflowCtx.Close()
	workflowCtx.SetContext(ctx)
	workflowCtx.Add(commands.GetAssetParameterName(), a)

	p.chain.Execute(workflowCtx)

	if workflowCtx.HasErrors() {
		var err error
		for name, stageErr := range workflowCtx.GetErrors() {
			if err == nil {
				err = fmt.Errorf("%s: %w", name, stageErr)
			} else {
				err = fmt.Errorf("%w; %s: %v", err, name, stageErr)
			}
		}
		return fmt.Errorf("pipeline run for %s: %w", a.Fingerprint, err)
	}
	return nil
}
