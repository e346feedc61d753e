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

	"google.golang.org/genai"
)

// ServiceClients bundles the generative AI client and the configured,
// quota-aware model wrappers. One instance is created at startup and shared
// by every pipeline stage.
type ServiceClients struct {
	GenAIClient *genai.Client
	Models      map[string]*QuotaAwareModel
}

// NewServiceClients connects to the generative AI backend and builds all
// models named in the configuration.
func NewServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	clientConfig := &genai.ClientConfig{}
	if config.GenAI.Backend == "vertex" {
		clientConfig.Project = config.GenAI.Project
		clientConfig.Location = config.GenAI.Location
		clientConfig.Backend = genai.BackendVertexAI
	} else {
		clientConfig.APIKey = config.GenAI.APIKey
		clientConfig.Backend = genai.BackendGeminiAPI
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	clients := &ServiceClients{
		GenAIClient: client,
		Models:      make(map[string]*QuotaAwareModel),
	}
	for name, m := range config.Models {
		generateConfig := &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(m.Temperature),
			TopP:            genai.Ptr(m.TopP),
			MaxOutputTokens: m.MaxTokens,
			SafetySettings:  DefaultSafetySettings,
		}
		if m.TopK > 0 {
			generateConfig.TopK = genai.Ptr(m.TopK)
		}
		if m.SystemInstructions != "" {
			generateConfig.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: m.SystemInstructions}},
			}
		}
		if m.OutputFormat != "" {
			generateConfig.ResponseMIMEType = m.OutputFormat
		}
		clients.Models[name] = NewQuotaAwareModel(generateConfig, m.Model, client.Models, m.RateLimit)
	}
	return clients, nil
}

// Model returns the named wrapper or an error listing what is configured.
func (c *ServiceClients) Model(name string) (*QuotaAwareModel, error) {
	m, ok := c.Models[name]
	if !ok {
		return nil, fmt.Errorf("model %q is not configured (%d models loaded)", name, len(c.Models))
	}
	return m, nil
}
