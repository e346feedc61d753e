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
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// DefaultSafetySettings disables content blocking across all harm
// categories. The pipeline processes trusted footage; blocked responses
// would otherwise surface as hard-to-diagnose empty transcripts.
var DefaultSafetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
}

const quotaMaxRetries = 3

// QuotaAwareModel decorates a generative model handle with client-side rate
// limiting and a bounded retry loop. Both the limiter wait and the retry
// backoff honor context cancellation, so a cancelled pipeline run never
// blocks on quota.
type QuotaAwareModel struct {
	GenerateConfig *genai.GenerateContentConfig
	ModelName      string
	Handle         *genai.Models
	limiter        *rate.Limiter
}

// NewQuotaAwareModel wraps a model handle with a limiter admitting
// requestsPerSecond sustained requests.
func NewQuotaAwareModel(generateConfig *genai.GenerateContentConfig, name string, handle *genai.Models, requestsPerSecond int) *QuotaAwareModel {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &QuotaAwareModel{
		GenerateConfig: generateConfig,
		ModelName:      name,
		Handle:         handle,
		limiter:        rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// GenerateContent issues the request under the rate limiter, retrying
// transient failures up to quotaMaxRetries with increasing delay.
func (q *QuotaAwareModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= quotaMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if err := q.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := q.Handle.GenerateContent(ctx, q.ModelName, content, q.GenerateConfig)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("generation failed after %d attempts: %w", quotaMaxRetries+1, lastErr)
}

// GenerateText runs GenerateContent and concatenates the candidate text
// parts, stripping any markdown code fence the model wraps JSON output in.
func (q *QuotaAwareModel) GenerateText(ctx context.Context, content []*genai.Content) (string, error) {
	resp, err := q.GenerateContent(ctx, content)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return StripCodeFence(sb.String()), nil
}

// StripCodeFence removes a surrounding markdown fence from model output.
func StripCodeFence(in string) string {
	out := strings.TrimSpace(in)
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}
