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

	"github.com/videoscribe/videoscribe/internal/ai"
	"github.com/videoscribe/videoscribe/internal/asset"
	"github.com/videoscribe/videoscribe/internal/core/cor"
	"github.com/videoscribe/videoscribe/internal/core/model"
	"github.com/videoscribe/videoscribe/internal/executor"
	"github.com/videoscribe/videoscribe/internal/keyframe"
	"github.com/videoscribe/videoscribe/internal/media"
)

// apiCacheFilename is the per-asset durable mirror of completed external
// call results, shared by the describe and clean stages.
const apiCacheFilename = "api_cache.json"

// DescribeScenesCommand produces the visual_segments stage artifact. Keyframe
// selection runs locally; each selected frame is then described by the
// vision model through the bounded executor, one job per frame, so a crash
// mid-batch loses at most the unflushed tail of descriptions.
type DescribeScenesCommand struct {
	cor.BaseCommand
	store          *asset.Store
	tool           *media.Tool
	selector       *keyframe.Selector
	describer      ai.VisionDescriber
	prompt         string
	concurrency    int
	retry          executor.RetryPolicy
	flushEvery     int
	sampleInterval float64
}

func NewDescribeScenesCommand(
	name string,
	store *asset.Store,
	tool *media.Tool,
	selector *keyframe.Selector,
	describer ai.VisionDescriber,
	prompt string,
	concurrency int,
	retry executor.RetryPolicy,
	flushEvery int,
	sampleInterval float64) *DescribeScenesCommand {
	if sampleInterval <= 0 {
		sampleInterval = 2.0
	}
	cmd := &DescribeScenesCommand{
		BaseCommand:    *cor.NewBaseCommand(name),
		store:          store,
		tool:           tool,
		selector:       selector,
		describer:      describer,
		prompt:         prompt,
		concurrency:    concurrency,
		retry:          retry,
		flushEvery:     flushEvery,
		sampleInterval: sampleInterval,
	}
	cmd.InputParamName = GetAssetParameterName()
	return cmd
}

func (c *DescribeScenesCommand) Execute(context cor.Context) {
	a := context.Get(c.GetInputParam()).(*asset.Asset)

	if c.store.HasStage(a.Fingerprint, model.StageVisualSegments) {
		analysis := &model.VisualAnalysis{}
		if err := c.store.ReadStage(a.Fingerprint, model.StageVisualSegments, analysis); err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), err)
			return
		}
		slog.Info("visual stage cached, skipping description", "fingerprint", a.Fingerprint)
		c.GetSuccessCounter().Add(context.GetContext(), 1)
		context.Add(cor.CtxOut, analysis)
		return
	}

	keyframes := c.selectKeyframes(context, a)
	segments := c.describeKeyframes(context.GetContext(), a, keyframes)

	analysis := &model.VisualAnalysis{SampleInterval: c.sampleInterval, Segments: segments}
	if err := c.store.WriteStage(a.Fingerprint, model.StageVisualSegments, analysis); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cor.CtxOut, analysis)
}

// selectKeyframes runs the four-pass selector. An unreadable video degrades
// to zero keyframes rather than failing the asset.
func (c *DescribeScenesCommand) selectKeyframes(context cor.Context, a *asset.Asset) []model.Keyframe {
	source, err := media.OpenVideo(context.GetContext(), c.tool, a.PoolPath)
	if err != nil {
		slog.Error("video unreadable, continuing without visual segments",
			"fingerprint", a.Fingerprint, "error", err)
		c.GetErrorCounter().Add(context.GetContext(), 1)
		return nil
	}
	outDir := filepath.Join(c.store.AssetCacheDir(a.Fingerprint), "keyframes")
	keyframes, err := c.selector.Select(context.GetContext(), source, outDir)
	if err != nil {
		slog.Error("keyframe selection failed, continuing without visual segments",
			"fingerprint", a.Fingerprint, "error", err)
		c.GetErrorCounter().Add(context.GetContext(), 1)
		return nil
	}
	return keyframes
}

// describeKeyframes fans the vision calls out through the executor and turns
// the ordered results back into visual segments. Failed descriptions are
// logged and skipped.
func (c *DescribeScenesCommand) describeKeyframes(ctx context.Context, a *asset.Asset, keyframes []model.Keyframe) []*model.VisualSegment {
	if len(keyframes) == 0 {
		return nil
	}

	cache := executor.NewResultCache(
		filepath.Join(c.store.AssetCacheDir(a.Fingerprint), apiCacheFilename), c.flushEvery)
	exec := executor.New(c.GetName(), c.concurrency, c.retry, cache)

	jobs := make([]*executor.Job, 0, len(keyframes))
	for _, kf := range keyframes {
		imagePath := kf.Path
		contentKey, err := asset.Fingerprint(imagePath)
		if err != nil {
			slog.Warn("keyframe unreadable, skipping", "path", imagePath, "error", err)
			contentKey = a.Fingerprint + ":" + filepath.Base(imagePath)
		}
		jobs = append(jobs, &executor.Job{
			ContentKey: contentKey,
			Prompt:     c.prompt,
			Call: func(callCtx context.Context) (string, error) {
				return c.describer.Describe(callCtx, imagePath, c.prompt)
			},
		})
	}

	results := exec.Run(ctx, jobs)
	segments := make([]*model.VisualSegment, 0, len(results))
	for i, res := range results {
		if res.Err != nil {
			slog.Warn("keyframe description failed, skipping",
				"fingerprint", a.Fingerprint, "time", keyframes[i].Time, "error", res.Err)
			continue
		}
		if res.Value == "" {
			continue
		}
		segments = append(segments, &model.VisualSegment{
			Description: res.Value,
			Start:       keyframes[i].Time,
			End:         keyframes[i].Time + c.sampleInterval,
		})
	}
	return segments
}
