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

package ai_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videoscribe/videoscribe/internal/ai"
)

const baseToml = `
[application]
name = "videoscribe"
thread_pool_size = 5

[executor]
concurrency = 5
max_attempts = 3

[transcriber]
fillers = ["um", "uh"]

[models.transcribe]
model = "gemini-2.0-flash"
temperature = 0.2
rate_limit = 2
`

const testToml = `
[executor]
concurrency = 2
`

func writeConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte(baseToml), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.test.toml"), []byte(testToml), 0o644))
	return dir
}

func TestLoadConfigLayersRuntimeOverBase(t *testing.T) {
	dir := writeConfigDir(t)
	t.Setenv(ai.EnvConfigFilePrefix, dir)
	t.Setenv(ai.EnvConfigRuntime, "test")

	config := ai.NewConfig()
	require.NoError(t, ai.LoadConfig(config))

	// Override wins where set, base survives everywhere else.
	assert.Equal(t, 2, config.Executor.Concurrency)
	assert.Equal(t, 3, config.Executor.MaxAttempts)
	assert.Equal(t, "videoscribe", config.Application.Name)
	assert.Equal(t, []string{"um", "uh"}, config.Transcriber.Fillers)

	m, ok := config.Models["transcribe"]
	require.True(t, ok)
	assert.Equal(t, "gemini-2.0-flash", m.Model)
	assert.Equal(t, 2, m.RateLimit)
}

func TestLoadConfigDefaultsToTestRuntime(t *testing.T) {
	dir := writeConfigDir(t)
	t.Setenv(ai.EnvConfigFilePrefix, dir)
	t.Setenv(ai.EnvConfigRuntime, "")

	config := ai.NewConfig()
	require.NoError(t, ai.LoadConfig(config))
	assert.Equal(t, 2, config.Executor.Concurrency)
}

func TestLoadConfigMissingFilesIsNotAnError(t *testing.T) {
	t.Setenv(ai.EnvConfigFilePrefix, t.TempDir())
	t.Setenv(ai.EnvConfigRuntime, "test")

	config := ai.NewConfig()
	require.NoError(t, ai.LoadConfig(config))
	assert.Zero(t, config.Executor.Concurrency)
}
