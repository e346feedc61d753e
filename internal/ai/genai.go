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

package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/videoscribe/videoscribe/internal/core/model"
)

// Transcriber converts an audio file into time-stamped speech segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]*model.SpeechSegment, error)
}

// VisionDescriber produces a text description of one still image.
type VisionDescriber interface {
	Describe(ctx context.Context, imagePath string, prompt string) (string, error)
}

// Summarizer condenses long text down to one short summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string, prompt string) (string, error)
}

// DefaultFillers are the hesitation tokens stripped from transcripts before
// they enter the fusion stage.
var DefaultFillers = []string{"um", "uh", "er", "ah", "hmm", "mm-hmm", "uh-huh"}

// GenAITranscriber transcribes audio through a multimodal model call that
// returns JSON speech segments.
type GenAITranscriber struct {
	Model   *QuotaAwareModel
	Prompt  string
	Fillers []string
}

func NewGenAITranscriber(model *QuotaAwareModel, prompt string, fillers []string) *GenAITranscriber {
	if len(fillers) == 0 {
		fillers = DefaultFillers
	}
	return &GenAITranscriber{Model: model, Prompt: prompt, Fillers: fillers}
}

func (t *GenAITranscriber) Transcribe(ctx context.Context, audioPath string) ([]*model.SpeechSegment, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("read audio %s: %w", audioPath, err)
	}
	content := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: "audio/wav", Data: data}},
			{Text: t.Prompt},
		},
	}}
	text, err := t.Model.GenerateText(ctx, content)
	if err != nil {
		return nil, err
	}

	var segments []*model.SpeechSegment
	if err := json.Unmarshal([]byte(text), &segments); err != nil {
		return nil, model.NewParseError("transcription response is not a JSON segment list", err)
	}
	return NormalizeSegments(segments, t.Fillers), nil
}

// NormalizeSegments strips filler tokens from each segment's text and drops
// segments that end up empty or carry a non-positive time span.
func NormalizeSegments(segments []*model.SpeechSegment, fillers []string) []*model.SpeechSegment {
	out := make([]*model.SpeechSegment, 0, len(segments))
	for _, seg := range segments {
		if seg == nil {
			continue
		}
		text := stripFillers(seg.Text, fillers)
		if text == "" || seg.End <= seg.Start {
			continue
		}
		out = append(out, &model.SpeechSegment{Text: text, Start: seg.Start, End: seg.End})
	}
	return out
}

// stripFillers removes filler tokens. Space-delimited fillers are matched as
// whole words; fillers without ASCII letters (e.g. CJK hesitations) are
// removed as substrings since those scripts carry no word boundaries.
func stripFillers(text string, fillers []string) string {
	var wordFillers map[string]struct{}
	for _, f := range fillers {
		if isASCIIWord(f) {
			if wordFillers == nil {
				wordFillers = make(map[string]struct{})
			}
			wordFillers[strings.ToLower(f)] = struct{}{}
		} else {
			text = strings.ReplaceAll(text, f, "")
		}
	}
	if wordFillers == nil {
		return strings.TrimSpace(text)
	}

	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		bare := strings.ToLower(strings.Trim(w, ",.!?;:"))
		if _, ok := wordFillers[bare]; ok {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func isASCIIWord(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x80 {
			return false
		}
	}
	return true
}

// GenAIVisionDescriber describes keyframe images.
type GenAIVisionDescriber struct {
	Model *QuotaAwareModel
}

func NewGenAIVisionDescriber(model *QuotaAwareModel) *GenAIVisionDescriber {
	return &GenAIVisionDescriber{Model: model}
}

func (d *GenAIVisionDescriber) Describe(ctx context.Context, imagePath string, prompt string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read keyframe %s: %w", imagePath, err)
	}
	content := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: data}},
			{Text: prompt},
		},
	}}
	return d.Model.GenerateText(ctx, content)
}

// GenAISummarizer condenses visual context text.
type GenAISummarizer struct {
	Model *QuotaAwareModel
}

func NewGenAISummarizer(model *QuotaAwareModel) *GenAISummarizer {
	return &GenAISummarizer{Model: model}
}

func (s *GenAISummarizer) Summarize(ctx context.Context, text string, prompt string) (string, error) {
	content := genai.Text(prompt + "\n\n" + text)
	return s.Model.GenerateText(ctx, content)
}
