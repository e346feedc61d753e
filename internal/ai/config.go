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

// Package ai holds the application configuration and the generative AI
// client layer: quota-aware model wrappers plus the transcription, vision
// and summarization services the pipeline stages call.
//
// Configuration is hierarchical TOML: a base `.env.toml` is loaded first and
// an environment-specific `.env.<runtime>.toml` overwrites it. The config
// directory and runtime name come from environment variables, so the same
// binary runs unchanged across local, test and prod setups.
package ai

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	ConfigFileBaseName  = ".env"
	ConfigFileExtension = ".toml"
	ConfigSeparator     = "."
	// EnvConfigFilePrefix names the directory holding the config files.
	EnvConfigFilePrefix = "VIDEOSCRIBE_CONFIG_PREFIX"
	// EnvConfigRuntime selects the override file (e.g. "local", "test").
	EnvConfigRuntime = "VIDEOSCRIBE_RUNTIME"
)

// GenAIModel configures one named generative model.
type GenAIModel struct {
	Model              string  `toml:"model"`
	SystemInstructions string  `toml:"system_instructions"`
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"`
	// RateLimit is the request-per-second ceiling enforced client side.
	RateLimit int `toml:"rate_limit"`
}

// PromptTemplates holds the text templates sent with each model call.
type PromptTemplates struct {
	TranscribePrompt string `toml:"transcribe"`
	ScenePrompt      string `toml:"scene"`
	SummaryPrompt    string `toml:"summary"`
}

// Storage configures the on-disk layout and the media tool paths.
type Storage struct {
	PoolDir     string `toml:"pool_dir"`
	CacheDir    string `toml:"cache_dir"`
	SliceDir    string `toml:"slice_dir"`
	FFmpegPath  string `toml:"ffmpeg_path"`
	FFprobePath string `toml:"ffprobe_path"`
}

// Executor tunes the bounded external-call executor.
type Executor struct {
	Concurrency        int     `toml:"concurrency"`
	MaxAttempts        int     `toml:"max_attempts"`
	BackoffSeconds     float64 `toml:"backoff_seconds"`
	CallTimeoutSeconds float64 `toml:"call_timeout_seconds"`
	FlushEvery         int     `toml:"flush_every"`
}

// Selector tunes the keyframe selection passes.
type Selector struct {
	SceneStride      float64 `toml:"scene_stride"`
	SceneCorrelation float64 `toml:"scene_correlation"`
	LongScene        float64 `toml:"long_scene"`
	FineStride       float64 `toml:"fine_stride"`
	MaxGap           float64 `toml:"max_gap"`
	Epsilon          float64 `toml:"epsilon"`
	DedupMSE         float64 `toml:"dedup_mse"`
	MaxKeyframes     int     `toml:"max_keyframes"`
}

// Category tags a cleaned dataset with the kind of footage it came from.
type Category struct {
	Name       string `toml:"name"`
	Definition string `toml:"definition"`
}

// Config is the root application configuration.
type Config struct {
	Application struct {
		Name           string `toml:"name"`
		ThreadPoolSize int    `toml:"thread_pool_size"`
	} `toml:"application"`
	GenAI struct {
		APIKey   string `toml:"api_key"`
		Project  string `toml:"project"`
		Location string `toml:"location"`
		// Backend selects "gemini" (API key) or "vertex" (project).
		Backend string `toml:"backend"`
	} `toml:"genai"`
	Storage         Storage               `toml:"storage"`
	PromptTemplates PromptTemplates       `toml:"prompt_templates"`
	Models          map[string]GenAIModel `toml:"models"`
	Executor        Executor              `toml:"executor"`
	Selector        Selector              `toml:"selector"`
	Fusion          struct {
		GapThresholdSeconds float64 `toml:"gap_threshold_seconds"`
	} `toml:"fusion"`
	Cleaner struct {
		MinSummarizeRunes int    `toml:"min_summarize_runes"`
		DefaultCategory   string `toml:"default_category"`
	} `toml:"cleaner"`
	Transcriber struct {
		// Fillers are tokens dropped from transcribed text.
		Fillers []string `toml:"fillers"`
	} `toml:"transcriber"`
	Categories map[string]Category `toml:"categories"`
}

// NewConfig returns a Config with its maps initialized so the TOML decoder
// can populate them.
func NewConfig() *Config {
	return &Config{
		Models:     make(map[string]GenAIModel),
		Categories: make(map[string]Category),
	}
}

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return err == nil
}

// LoadConfig populates baseConfig from the base TOML file and then the
// runtime-specific override file, if either exists.
func LoadConfig(baseConfig interface{}) error {
	prefix := os.Getenv(EnvConfigFilePrefix)
	if len(prefix) > 0 && !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix = prefix + string(os.PathSeparator)
	}

	runtime := os.Getenv(EnvConfigRuntime)
	if runtime == "" {
		runtime = "test"
	}

	baseFile := prefix + ConfigFileBaseName + ConfigFileExtension
	envFile := prefix + ConfigFileBaseName + ConfigSeparator + runtime + ConfigFileExtension

	if fileExists(baseFile) {
		if _, err := toml.DecodeFile(baseFile, baseConfig); err != nil {
			return fmt.Errorf("decode base configuration %s: %w", baseFile, err)
		}
	}
	if fileExists(envFile) {
		if _, err := toml.DecodeFile(envFile, baseConfig); err != nil {
			return fmt.Errorf("decode environment configuration %s: %w", envFile, err)
		}
	}
	return nil
}
