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

// Package model defines the core data structures for the pipeline. This file
// enumerates the cached stage artifacts. Each pipeline stage persists exactly
// one JSON document under the asset's cache directory, and the presence of
// that file is the sole truth of "stage complete"; no separate completion
// flags exist. Every stage payload is an explicit, validated schema rather
// than an open document; a mismatch on read is a ParseError, never a silent
// default.
package model

import "fmt"

// Validator is implemented by every stage payload schema so artifact readers
// can validate on decode instead of silently defaulting fields.
type Validator interface {
	Validate() error
}

// Stage identifies one cached pipeline artifact.
type Stage string

const (
	// StageTranscript holds the ordered speech segments from ASR.
	StageTranscript Stage = "transcript"
	// StageVisualSegments holds the described keyframes from the vision stage.
	StageVisualSegments Stage = "visual_segments"
	// StageFusedRaw holds the merged, gap-aware timeline.
	StageFusedRaw Stage = "fused_raw"
	// StageCleanedDataset holds the final summarized records for the index.
	StageCleanedDataset Stage = "cleaned_dataset"
)

// Stages lists every artifact in pipeline order.
var Stages = []Stage{StageTranscript, StageVisualSegments, StageFusedRaw, StageCleanedDataset}

// Filename returns the artifact's file name inside the asset cache directory.
func (s Stage) Filename() string { return string(s) + ".json" }

// Valid reports whether s names a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageTranscript, StageVisualSegments, StageFusedRaw, StageCleanedDataset:
		return true
	}
	return false
}

// Transcript is the payload of the transcript stage.
type Transcript struct {
	Segments []*SpeechSegment `json:"segments"`
}

// Validate checks every segment and their ordering.
func (t *Transcript) Validate() error {
	last := -1.0
	for i, s := range t.Segments {
		if err := s.Validate(); err != nil {
			return err
		}
		if s.Start < last {
			return NewParseError(fmt.Sprintf("transcript segment %d out of order", i), nil)
		}
		last = s.Start
	}
	return nil
}

// VisualAnalysis is the payload of the visual_segments stage.
type VisualAnalysis struct {
	SampleInterval float64          `json:"sample_interval"`
	Segments       []*VisualSegment `json:"segments"`
}

// Validate checks every segment. The sample interval must be positive since
// visual segment windows are derived from it.
func (v *VisualAnalysis) Validate() error {
	if v.SampleInterval <= 0 {
		return NewParseError("visual analysis sample interval not positive", nil)
	}
	for _, s := range v.Segments {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// FusedTimeline is the payload of the fused_raw stage.
type FusedTimeline struct {
	Records []*FusedRecord `json:"records"`
}

// Validate checks every record plus the total ordering and id sequence
// invariants the fusion stage guarantees.
func (f *FusedTimeline) Validate() error {
	for i, r := range f.Records {
		if err := r.Validate(); err != nil {
			return err
		}
		if r.ID != i+1 {
			return NewParseError(fmt.Sprintf("fused record at index %d has id %d, want %d", i, r.ID, i+1), nil)
		}
		if i > 0 && r.TimeRange[0] < f.Records[i-1].TimeRange[0] {
			return NewParseError(fmt.Sprintf("fused record %d out of order", r.ID), nil)
		}
	}
	return nil
}

// CleanedDataset is the payload of the cleaned_dataset stage.
type CleanedDataset struct {
	Category string           `json:"category"`
	Records  []*CleanedRecord `json:"records"`
}

// Validate checks every record.
func (c *CleanedDataset) Validate() error {
	for _, r := range c.Records {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}
