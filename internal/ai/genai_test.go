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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videoscribe/videoscribe/internal/ai"
	"github.com/videoscribe/videoscribe/internal/core/model"
)

func TestNormalizeSegmentsStripsFillers(t *testing.T) {
	segments := []*model.SpeechSegment{
		{Text: "um so, uh, the demo starts here", Start: 0, End: 2},
		{Text: "Um.", Start: 2, End: 3},
		{Text: "valid text", Start: 5, End: 5},
		{Text: "kept", Start: 6, End: 7},
	}

	got := ai.NormalizeSegments(segments, ai.DefaultFillers)

	require.Len(t, got, 2)
	assert.Equal(t, "so, the demo starts here", got[0].Text)
	assert.Equal(t, "kept", got[1].Text)
}

func TestNormalizeSegmentsSubstringFillers(t *testing.T) {
	segments := []*model.SpeechSegment{
		{Text: "嗯这里开始演示", Start: 0, End: 2},
	}

	got := ai.NormalizeSegments(segments, []string{"嗯", "那个"})

	require.Len(t, got, 1)
	assert.Equal(t, "这里开始演示", got[0].Text)
}

func TestNormalizeSegmentsKeepsFillerSubstringsInsideWords(t *testing.T) {
	segments := []*model.SpeechSegment{
		{Text: "the sum of the drum track", Start: 0, End: 2},
	}

	got := ai.NormalizeSegments(segments, ai.DefaultFillers)

	require.Len(t, got, 1)
	assert.Equal(t, "the sum of the drum track", got[0].Text)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `[{"a":1}]`, ai.StripCodeFence("```json\n[{\"a\":1}]\n```"))
	assert.Equal(t, "plain", ai.StripCodeFence("plain"))
}
