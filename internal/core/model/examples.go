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

// Package model defines the data structures for the pipeline. This file
// provides factory functions for hardcoded example instances of the models.
//
// The examples are used for "few-shot" prompting of the generative models: by
// embedding a concrete example of the desired JSON output inside the prompt,
// we guide the model to return data that is consistent, correctly formatted,
// and parsable without heuristics.
package model

// ExampleTranscript returns a small transcript used as a few-shot example in
// the ASR prompt, showing the model the exact segment shape and that segments
// must be ordered by start time.
func ExampleTranscript() *Transcript {
	return &Transcript{
		Segments: []*SpeechSegment{
			{Text: "Welcome back, today we are going to rebuild the carburetor.", Start: 0.0, End: 3.4},
			{Text: "First remove the four retaining screws on the top cover.", Start: 6.1, End: 9.8},
		},
	}
}

// ExampleFusedRecord returns one fused timeline entry used in the summarize
// prompt so the model sees what a visual context string looks like before it
// condenses one.
func ExampleFusedRecord() *FusedRecord {
	return &FusedRecord{
		ID:        1,
		TimeRange: [2]float64{6.1, 9.8},
		Type:      RecordTypeSpeech,
		Content:   "First remove the four retaining screws on the top cover.",
		VisualContext: "A pair of hands holds a screwdriver over a metal carburetor " +
			"body on a cluttered workbench. A parts tray sits to the left with " +
			"several screws already in it.",
	}
}
