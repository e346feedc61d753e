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

package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/videoscribe/videoscribe/internal/ai"
	"github.com/videoscribe/videoscribe/internal/asset"
	"github.com/videoscribe/videoscribe/internal/core/model"
	"github.com/videoscribe/videoscribe/internal/core/services"
	"github.com/videoscribe/videoscribe/internal/core/workflow"
	"github.com/videoscribe/videoscribe/internal/keyframe"
	"github.com/videoscribe/videoscribe/internal/media"
)

// Model names expected in the [models] configuration tables.
const (
	modelTranscribe = "transcribe"
	modelDescribe   = "describe"
	modelSummarize  = "summarize"
)

type StateManager struct {
	config        *ai.Config
	clients       *ai.ServiceClients
	store         *asset.Store
	pipeline      *workflow.Pipeline
	searchService *services.SearchService
	mediaService  *services.MediaService
}

var state = &StateManager{}

func SetupOS() (err error) {
	err = os.Setenv(ai.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(ai.EnvConfigRuntime, "local")
	return err
}

func GetConfig() *ai.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment: %v\n", err)
		}
		config := ai.NewConfig()
		if err := ai.LoadConfig(config); err != nil {
			log.Fatalf("failed to load configuration: %v\n", err)
		}
		state.config = config
	}
	return state.config
}

// InitState builds the shared dependency graph: asset store, media tool,
// generative clients, the scribe pipeline, and the read-side services.
func InitState(ctx context.Context) {
	config := GetConfig()

	store, err := asset.NewStore(config.Storage.PoolDir, config.Storage.CacheDir)
	if err != nil {
		panic(err)
	}
	state.store = store

	slices, err := asset.NewSliceCache(config.Storage.SliceDir)
	if err != nil {
		panic(err)
	}

	tool := media.NewTool(config.Storage.FFmpegPath, config.Storage.FFprobePath)

	clients, err := ai.NewServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.clients = clients

	transcribeModel, err := clients.Model(modelTranscribe)
	if err != nil {
		panic(err)
	}
	describeModel, err := clients.Model(modelDescribe)
	if err != nil {
		panic(err)
	}
	summarizeModel, err := clients.Model(modelSummarize)
	if err != nil {
		panic(err)
	}

	state.pipeline = workflow.NewScribePipeline(config, workflow.Collaborators{
		Store:    store,
		Tool:     tool,
		Selector: keyframe.NewSelector(selectorConfig(config)),
		Transcriber: ai.NewGenAITranscriber(
			transcribeModel, transcribePrompt(config), config.Transcriber.Fillers),
		Describer:  ai.NewGenAIVisionDescriber(describeModel),
		Summarizer: ai.NewGenAISummarizer(summarizeModel),
	})

	state.searchService = &services.SearchService{Store: store}
	state.mediaService = &services.MediaService{Store: store, Tool: tool, Slices: slices}
}

// selectorConfig starts from the built-in selection thresholds and applies
// the timing knobs the configuration exposes.
func selectorConfig(config *ai.Config) keyframe.Config {
	cfg := keyframe.DefaultConfig()
	if config.Selector.SceneStride > 0 {
		cfg.SceneStride = config.Selector.SceneStride
	}
	if config.Selector.SceneCorrelation > 0 {
		cfg.SceneCorrelation = config.Selector.SceneCorrelation
	}
	if config.Selector.LongScene > 0 {
		cfg.LongScene = config.Selector.LongScene
	}
	if config.Selector.FineStride > 0 {
		cfg.FineStride = config.Selector.FineStride
	}
	if config.Selector.MaxGap > 0 {
		cfg.MaxGap = config.Selector.MaxGap
	}
	if config.Selector.Epsilon > 0 {
		cfg.Epsilon = config.Selector.Epsilon
	}
	if config.Selector.DedupMSE > 0 {
		cfg.DedupMSE = config.Selector.DedupMSE
	}
	if config.Selector.MaxKeyframes > 0 {
		cfg.MaxKeyframes = config.Selector.MaxKeyframes
	}
	return cfg
}

// transcribePrompt appends a few-shot example of the expected segment JSON
// to the configured prompt so the model returns parsable output.
func transcribePrompt(config *ai.Config) string {
	example, err := json.MarshalIndent(model.ExampleTranscript().Segments, "", "  ")
	if err != nil {
		return config.PromptTemplates.TranscribePrompt
	}
	return config.PromptTemplates.TranscribePrompt + "\n\nExample output:\n" + string(example)
}
