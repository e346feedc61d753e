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

package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/videoscribe/videoscribe/internal/asset"
	"github.com/videoscribe/videoscribe/internal/core/model"
	"github.com/videoscribe/videoscribe/internal/media"
)

// MediaService serves read access to ingested assets: metadata, finished
// datasets, and rendered clips cut on demand from the pool file.
type MediaService struct {
	Store  *asset.Store
	Tool   *media.Tool
	Slices *asset.SliceCache
}

// Get returns the pool asset for a fingerprint.
func (m *MediaService) Get(fingerprint string) (*asset.Asset, error) {
	return m.Store.GetAsset(fingerprint)
}

// List returns every asset currently in the pool.
func (m *MediaService) List() ([]*asset.Asset, error) {
	return m.Store.ListAssets()
}

// Dataset returns the cleaned dataset for an asset, or an error when the
// pipeline has not produced one yet.
func (m *MediaService) Dataset(fingerprint string) (*model.CleanedDataset, error) {
	dataset := &model.CleanedDataset{}
	if err := m.Store.ReadStage(fingerprint, model.StageCleanedDataset, dataset); err != nil {
		return nil, err
	}
	return dataset, nil
}

// Clip returns the path of a rendered clip covering [start, end] of the
// asset, cutting and caching it on the first request. Repeat requests for the
// same range are served straight from the slice cache.
func (m *MediaService) Clip(ctx context.Context, fingerprint string, start float64, end float64) (string, error) {
	if end <= start {
		return "", fmt.Errorf("invalid clip range [%f, %f]", start, end)
	}
	if m.Slices.HasSlice(fingerprint, start, end, "") {
		return m.Slices.SlicePath(fingerprint, start, end, ""), nil
	}

	a, err := m.Store.GetAsset(fingerprint)
	if err != nil {
		return "", err
	}
	tempPath := filepath.Join(os.TempDir(), uuid.New().String()+filepath.Ext(a.PoolPath))
	if err := m.Tool.Cut(ctx, a.PoolPath, tempPath, start, end); err != nil {
		return "", err
	}
	return m.Slices.SaveSlice(tempPath, fingerprint, start, end, "")
}
