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
	"path/filepath"

	"github.com/videoscribe/videoscribe/internal/ai"
	"github.com/videoscribe/videoscribe/internal/asset"
	"github.com/videoscribe/videoscribe/internal/core/cor"
	"github.com/videoscribe/videoscribe/internal/core/model"
	"github.com/videoscribe/videoscribe/internal/media"
)

// TranscribeCommand produces the transcript stage artifact: audio is pulled
// from the pool video with ffmpeg and sent to the ASR collaborator.
//
// A total ASR failure is not fatal for the asset. The command logs the error
// and persists an empty transcript, so the fusion stage still runs and the
// dataset degrades to visual-only records instead of disappearing.
type TranscribeCommand struct {
	cor.BaseCommand
	store       *asset.Store
	tool        *media.Tool
	transcriber ai.Transcriber
}

func NewTranscribeCommand(name string, store *asset.Store, tool *media.Tool, transcriber ai.Transcriber) *TranscribeCommand {
	cmd := &TranscribeCommand{
		BaseCommand: *cor.NewBaseCommand(name),
		store:       store,
		tool:        tool,
		transcriber: transcriber,
	}
	cmd.InputParamName = GetAssetParameterName()
	return cmd
}

func (c *TranscribeCommand) Execute(context cor.Context) {
	a := context.Get(c.GetInputParam()).(*asset.Asset)

	if c.store.HasStage(a.Fingerprint, model.StageTranscript) {
		transcript := &model.Transcript{}
		if err := c.store.ReadStage(a.Fingerprint, model.StageTranscript, transcript); err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), err)
			return
		}
		slog.Info("transcript stage cached, skipping transcription", "fingerprint", a.Fingerprint)
		c.GetSuccessCounter().Add(context.GetContext(), 1)
		context.Add(cor.CtxOut, transcript)
		return
	}

	transcript := &model.Transcript{}
	audioPath := filepath.Join(c.store.AssetCacheDir(a.Fingerprint), "audio.wav")
	if err := c.tool.ExtractAudio(context.GetContext(), a.PoolPath, audioPath); err != nil {
		slog.Error("audio extraction failed, continuing with empty transcript",
			"fingerprint", a.Fingerprint, "error", err)
		c.GetErrorCounter().Add(context.GetContext(), 1)
	} else {
		context.AddTempFile(audioPath)
		segments, err := c.transcriber.Transcribe(context.GetContext(), audioPath)
		if err != nil {
			slog.Error("transcription failed, continuing with empty transcript",
				"fingerprint", a.Fingerprint, "error", err)
			c.GetErrorCounter().Add(context.GetContext(), 1)
		} else {
			transcript.Segments = segments
		}
	}

	if err := c.store.WriteStage(a.Fingerprint, model.StageTranscript, transcript); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cor.CtxOut, transcript)
}
