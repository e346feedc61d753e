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

package commands

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/videoscribe/videoscribe/internal/ai"
	"github.com/videoscribe/videoscribe/internal/asset"
	"github.com/videoscribe/videoscribe/internal/core/cor"
	"github.com/videoscribe/videoscribe/internal/core/model"
	"github.com/videoscribe/videoscribe/internal/executor"
)

// DefaultMinSummarizeRunes is the visual-context length below which the
// cleaner keeps the text as-is instead of paying for a summarization call.
const DefaultMinSummarizeRunes = 50

// CleanCommand produces the cleaned_dataset stage artifact: every fused
// record's visual context is condensed to a one-line summary through the
// bounded executor, and the result is flattened into the field layout the
// external vector index ingests. Short visual contexts pass through without
// a service call; a failed summarization falls back to the raw text.
type CleanCommand struct {
	cor.BaseCommand
	store       *asset.Store
	summarizer  ai.Summarizer
	prompt      string
	category    string
	minRunes    int
	concurrency int
	retry       executor.RetryPolicy
	flushEvery  int
}

func NewCleanCommand(
	name string,
	store *asset.Store,
	summarizer ai.Summarizer,
	prompt string,
	category string,
	minRunes int,
	concurrency int,
	retry executor.RetryPolicy,
	flushEvery int) *CleanCommand {
	if minRunes <= 0 {
		minRunes = DefaultMinSummarizeRunes
	}
	if category == "" {
		category = "general"
	}
	cmd := &CleanCommand{
		BaseCommand: *cor.NewBaseCommand(name),
		store:       store,
		summarizer:  summarizer,
		prompt:      prompt,
		category:    category,
		minRunes:    minRunes,
		concurrency: concurrency,
		retry:       retry,
		flushEvery:  flushEvery,
	}
	cmd.InputParamName = GetAssetParameterName()
	return cmd
}

func (c *CleanCommand) Execute(context cor.Context) {
	a := context.Get(c.GetInputParam()).(*asset.Asset)

	if c.store.HasStage(a.Fingerprint, model.StageCleanedDataset) {
		dataset := &model.CleanedDataset{}
		if err := c.store.ReadStage(a.Fingerprint, model.StageCleanedDataset, dataset); err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), err)
			return
		}
		slog.Info("cleaned stage cached, skipping summarization", "fingerprint", a.Fingerprint)
		c.GetSuccessCounter().Add(context.GetContext(), 1)
		context.Add(cor.CtxOut, dataset)
		return
	}

	timeline := &model.FusedTimeline{}
	if err := c.store.ReadStage(a.Fingerprint, model.StageFusedRaw, timeline); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	summaries := c.summarize(context.GetContext(), a, timeline.Records)

	records := make([]*model.CleanedRecord, 0, len(timeline.Records))
	for i, fused := range timeline.Records {
		summary := summaries[i]
		records = append(records, &model.CleanedRecord{
			ID:            strconv.Itoa(fused.ID),
			Start:         fused.TimeRange[0],
			End:           fused.TimeRange[1],
			Type:          fused.Type,
			Content:       fused.Content,
			Category:      c.category,
			VisualSummary: summary,
			RAGText:       model.BuildRAGText(summary, fused.Content),
		})
	}

	dataset := &model.CleanedDataset{Category: c.category, Records: records}
	if err := c.store.WriteStage(a.Fingerprint, model.StageCleanedDataset, dataset); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cor.CtxOut, dataset)
}

// summarize returns one visual summary per fused record, aligned by index.
// Records below the minimum length pass through with no job at all.
func (c *CleanCommand) summarize(ctx context.Context, a *asset.Asset, records []*model.FusedRecord) []string {
	summaries := make([]string, len(records))
	var jobs []*executor.Job
	var jobIndex []int
	for i, r := range records {
		text := r.VisualContext
		if len([]rune(text)) < c.minRunes {
			summaries[i] = text
			continue
		}
		jobs = append(jobs, &executor.Job{
			ContentKey: asset.FingerprintBytes([]byte(text)),
			Prompt:     c.prompt,
			Call: func(callCtx context.Context) (string, error) {
				return c.summarizer.Summarize(callCtx, text, c.prompt)
			},
		})
		jobIndex = append(jobIndex, i)
	}
	if len(jobs) == 0 {
		return summaries
	}

	cache := executor.NewResultCache(
		filepath.Join(c.store.AssetCacheDir(a.Fingerprint), apiCacheFilename), c.flushEvery)
	exec := executor.New(c.GetName(), c.concurrency, c.retry, cache)
	results := exec.Run(ctx, jobs)
	for j, res := range results {
		i := jobIndex[j]
		if res.Err != nil || res.Value == "" {
			if res.Err != nil {
				slog.Warn("summarization failed, keeping raw visual context",
					"fingerprint", a.Fingerprint, "record", records[i].ID, "error", res.Err)
			}
			summaries[i] = records[i].VisualContext
			continue
		}
		summaries[i] = res.Value
	}
	return summaries
}
