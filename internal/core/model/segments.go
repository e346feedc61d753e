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
// contains the two independently time-stamped input streams that the fusion
// stage consumes: speech segments produced by the ASR collaborator and visual
// segments produced by the vision-description stage, plus the keyframe records
// emitted by the selector.
package model

import "fmt"

// SpeechSegment is one transcribed utterance with its time range in seconds.
// Segments are produced ordered by Start, and a valid segment always has
// Start < End.
type SpeechSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Validate checks the structural invariants of a speech segment.
func (s *SpeechSegment) Validate() error {
	if s.End <= s.Start {
		return NewParseError(fmt.Sprintf("speech segment end %.3f not after start %.3f", s.End, s.Start), nil)
	}
	return nil
}

// VisualSegment is one AI-generated description of a single keyframe. The End
// timestamp is synthetic: it is always Start plus the fixed sampling interval,
// not a measured duration, and exists only so the segment carries a window the
// fusion stage can match against speech time ranges.
type VisualSegment struct {
	Description string  `json:"description"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
}

// Validate checks the structural invariants of a visual segment.
func (v *VisualSegment) Validate() error {
	if v.End < v.Start {
		return NewParseError(fmt.Sprintf("visual segment end %.3f before start %.3f", v.End, v.Start), nil)
	}
	return nil
}

// Keyframe is one still frame the selector judged worth describing: the
// timestamp it was taken at and the path of the saved JPEG.
type Keyframe struct {
	Time float64 `json:"time"`
	Path string  `json:"path"`
}
