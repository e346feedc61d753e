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
// contains the records that come out of the fusion and cleaning stages. A
// FusedRecord is one entry on the merged speech/visual timeline; a
// CleanedRecord is its final, summarized form as consumed verbatim by the
// external vector index. The field names and types on CleanedRecord are a
// published contract and must not change.
package model

import (
	"fmt"
	"strings"
)

// RecordType distinguishes the two kinds of fused timeline entries.
type RecordType string

const (
	// RecordTypeSpeech marks a record backed by a transcribed utterance.
	RecordTypeSpeech RecordType = "speech"
	// RecordTypeSilentAction marks a synthetic record inserted to cover a
	// visually-described gap between two utterances.
	RecordTypeSilentAction RecordType = "silent_action"
)

// FusedRecord is one entry on the merged timeline. Records are totally
// ordered by TimeRange[0] and non-overlapping by construction; the ID is a
// monotonically increasing sequence number assigned at fusion time, unique
// within one dataset, and later used by collaborators to look up temporal
// neighbors.
type FusedRecord struct {
	ID            int        `json:"id"`
	TimeRange     [2]float64 `json:"time_range"`
	Type          RecordType `json:"type"`
	Content       string     `json:"content"`
	VisualContext string     `json:"visual_context"`
}

// Validate checks the structural invariants of a fused record.
func (f *FusedRecord) Validate() error {
	if f.ID <= 0 {
		return NewParseError(fmt.Sprintf("fused record id %d not positive", f.ID), nil)
	}
	if f.Type != RecordTypeSpeech && f.Type != RecordTypeSilentAction {
		return NewParseError(fmt.Sprintf("fused record %d has unknown type %q", f.ID, f.Type), nil)
	}
	if f.TimeRange[1] < f.TimeRange[0] {
		return NewParseError(fmt.Sprintf("fused record %d time range inverted", f.ID), nil)
	}
	return nil
}

// CleanedRecord is the final per-record shape of the cleaned dataset. The ID
// is the fused record's sequence number rendered as a string, and RAGText is
// the retrieval text assembled from the visual summary and the spoken
// content.
type CleanedRecord struct {
	ID            string     `json:"id"`
	Start         float64    `json:"start"`
	End           float64    `json:"end"`
	Type          RecordType `json:"type"`
	Content       string     `json:"content"`
	Category      string     `json:"category"`
	VisualSummary string     `json:"visual_summary"`
	RAGText       string     `json:"rag_text"`
}

// Validate checks the structural invariants of a cleaned record.
func (c *CleanedRecord) Validate() error {
	if c.ID == "" {
		return NewParseError("cleaned record missing id", nil)
	}
	if c.Type != RecordTypeSpeech && c.Type != RecordTypeSilentAction {
		return NewParseError(fmt.Sprintf("cleaned record %s has unknown type %q", c.ID, c.Type), nil)
	}
	return nil
}

// BuildRAGText assembles the retrieval text for a cleaned record from its
// visual summary and spoken content, skipping whichever part is empty.
func BuildRAGText(visualSummary string, content string) string {
	out := ""
	if visualSummary != "" {
		out += fmt.Sprintf("[visual] %s ", visualSummary)
	}
	if content != "" {
		out += fmt.Sprintf("[speech] %s", content)
	}
	return strings.TrimSpace(out)
}
