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

// Package services contains the read-side business logic over finished
// pipeline output. SearchService answers keyword queries against the cleaned
// datasets of every ingested asset; MediaService serves asset metadata and
// rendered clips.
package services

import (
	"context"
	"log/slog"
	"sort"

	"github.com/videoscribe/videoscribe/internal/asset"
	"github.com/videoscribe/videoscribe/internal/core/model"
)

// RecordMatch is one search hit: a cleaned record plus the asset it belongs
// to and its relevance score.
type RecordMatch struct {
	Fingerprint string               `json:"fingerprint"`
	Score       float64              `json:"score"`
	Record      *model.CleanedRecord `json:"record"`
}

// SearchService ranks cleaned transcript records against a text query. The
// index is the rag_text field itself; assets whose pipeline run has not yet
// produced a cleaned dataset are silently skipped.
type SearchService struct {
	Store *asset.Store
}

// FindRecords scans every asset's cleaned dataset and returns the
// maxResults highest-scoring records for the query, best first.
func (s *SearchService) FindRecords(ctx context.Context, query string, maxResults int) ([]*RecordMatch, error) {
	out := make([]*RecordMatch, 0)
	terms := Tokenize(query)
	if len(terms) == 0 {
		return out, nil
	}

	assets, err := s.Store.ListAssets()
	if err != nil {
		return nil, err
	}
	for _, a := range assets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.Store.HasStage(a.Fingerprint, model.StageCleanedDataset) {
			continue
		}
		dataset := &model.CleanedDataset{}
		if err := s.Store.ReadStage(a.Fingerprint, model.StageCleanedDataset, dataset); err != nil {
			slog.Warn("skipping unreadable dataset", "fingerprint", a.Fingerprint, "error", err)
			continue
		}
		for _, r := range dataset.Records {
			score := Score(terms, r.RAGText)
			if score <= 0 {
				continue
			}
			out = append(out, &RecordMatch{Fingerprint: a.Fingerprint, Score: score, Record: r})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}
