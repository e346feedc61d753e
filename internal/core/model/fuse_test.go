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

package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videoscribe/videoscribe/internal/core/model"
)

func TestFuseGapFill(t *testing.T) {
	speech := []*model.SpeechSegment{
		{Text: "intro", Start: 0, End: 5},
		{Text: "resume", Start: 10, End: 12},
	}
	visual := []*model.VisualSegment{
		{Description: "presenter walks to whiteboard", Start: 7, End: 9},
	}

	records := model.Fuse(speech, visual, 3.0)

	require.Len(t, records, 3)

	assert.Equal(t, 1, records[0].ID)
	assert.Equal(t, model.RecordTypeSpeech, records[0].Type)
	assert.Equal(t, "intro", records[0].Content)
	assert.Empty(t, records[0].VisualContext)

	assert.Equal(t, 2, records[1].ID)
	assert.Equal(t, model.RecordTypeSilentAction, records[1].Type)
	assert.Equal(t, [2]float64{5, 10}, records[1].TimeRange)
	assert.Equal(t, "presenter walks to whiteboard", records[1].VisualContext)
	assert.Empty(t, records[1].Content)

	assert.Equal(t, 3, records[2].ID)
	assert.Equal(t, model.RecordTypeSpeech, records[2].Type)
	assert.Equal(t, "resume", records[2].Content)
}

func TestFuseSilentGapWithoutVisualsEmitsNothing(t *testing.T) {
	speech := []*model.SpeechSegment{
		{Text: "intro", Start: 0, End: 5},
		{Text: "resume", Start: 20, End: 22},
	}

	records := model.Fuse(speech, nil, 3.0)

	require.Len(t, records, 2)
	assert.Equal(t, model.RecordTypeSpeech, records[0].Type)
	assert.Equal(t, model.RecordTypeSpeech, records[1].Type)
	assert.Equal(t, 2, records[1].ID)
}

func TestFuseAttachesVisualsInclusive(t *testing.T) {
	speech := []*model.SpeechSegment{
		{Text: "demo", Start: 10, End: 20},
	}
	visual := []*model.VisualSegment{
		{Description: "at start", Start: 10, End: 11},
		{Description: "mid", Start: 15, End: 16},
		{Description: "at end", Start: 20, End: 21},
		{Description: "after", Start: 20.5, End: 21},
	}

	records := model.Fuse(speech, visual, 3.0)

	require.Len(t, records, 1)
	assert.Equal(t, "at start mid at end", records[0].VisualContext)
}

func TestFuseBoundaryVisualAttachesToBothRecords(t *testing.T) {
	// Adjacent speech windows are both inclusive, so a visual starting
	// exactly on the shared boundary lands in both. This duplication is
	// the intended best-effort behavior.
	speech := []*model.SpeechSegment{
		{Text: "first", Start: 0, End: 10},
		{Text: "second", Start: 10, End: 20},
	}
	visual := []*model.VisualSegment{
		{Description: "boundary shot", Start: 10, End: 11},
	}

	records := model.Fuse(speech, visual, 3.0)

	require.Len(t, records, 2)
	assert.Equal(t, "boundary shot", records[0].VisualContext)
	assert.Equal(t, "boundary shot", records[1].VisualContext)
}

func TestFuseDropsOrphanVisuals(t *testing.T) {
	speech := []*model.SpeechSegment{
		{Text: "only", Start: 2, End: 5},
	}
	visual := []*model.VisualSegment{
		{Description: "before any gap check", Start: 0.5, End: 1},
		{Description: "after final speech", Start: 30, End: 31},
	}

	records := model.Fuse(speech, visual, 3.0)

	require.Len(t, records, 1)
	assert.Empty(t, records[0].VisualContext)
}

func TestFuseSortsUnorderedInput(t *testing.T) {
	speech := []*model.SpeechSegment{
		{Text: "second", Start: 10, End: 12},
		{Text: "first", Start: 0, End: 5},
	}

	records := model.Fuse(speech, nil, 100)

	require.Len(t, records, 2)
	assert.Equal(t, "first", records[0].Content)
	assert.Equal(t, "second", records[1].Content)
	for i, r := range records {
		assert.Equal(t, i+1, r.ID)
	}
}
