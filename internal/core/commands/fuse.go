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
	"log/slog"

	"github.com/videoscribe/videoscribe/internal/asset"
	"github.com/videoscribe/videoscribe/internal/core/cor"
	"github.com/videoscribe/videoscribe/internal/core/model"
)

// FuseCommand produces the fused_raw stage artifact by merging the persisted
// transcript and visual stages into one gap-aware timeline. It is purely
// local computation; both upstream artifacts must already exist.
type FuseCommand struct {
	cor.BaseCommand
	store        *asset.Store
	gapThreshold float64
}

func NewFuseCommand(name string, store *asset.Store, gapThreshold float64) *FuseCommand {
	cmd := &FuseCommand{
		BaseCommand:  *cor.NewBaseCommand(name),
		store:        store,
		gapThreshold: gapThreshold,
	}
	cmd.InputParamName = GetAssetParameterName()
	return cmd
}

func (c *FuseCommand) Execute(context cor.Context) {
	a := context.Get(c.GetInputParam()).(*asset.Asset)

	if c.store.HasStage(a.Fingerprint, model.StageFusedRaw) {
		timeline := &model.FusedTimeline{}
		if err := c.store.ReadStage(a.Fingerprint, model.StageFusedRaw, timeline); err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), err)
			return
		}
		slog.Info("fusion stage cached, skipping merge", "fingerprint", a.Fingerprint)
		c.GetSuccessCounter().Add(context.GetContext(), 1)
		context.Add(cor.CtxOut, timeline)
		return
	}

	transcript := &model.Transcript{}
	if err := c.store.ReadStage(a.Fingerprint, model.StageTranscript, transcript); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	analysis := &model.VisualAnalysis{}
	if err := c.store.ReadStage(a.Fingerprint, model.StageVisualSegments, analysis); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	timeline := &model.FusedTimeline{Records: model.Fuse(transcript.Segments, analysis.Segments, c.gapThreshold)}
	if err := c.store.WriteStage(a.Fingerprint, model.StageFusedRaw, timeline); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cor.CtxOut, timeline)
}
