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

// Package commands implements the pipeline stage commands that run on the
// cor workflow framework. Each command transforms one asset: it checks the
// asset's stage cache first and recomputes only on a miss, so a re-invoked
// pipeline run redoes nothing that already persisted.
package commands

// assetParamName is the context key the ingested asset travels under. Stage
// commands read it directly instead of relying on chain piping, since every
// stage keys its work off the same asset.
const assetParamName = "__MEDIA_ASSET__"

// GetAssetParameterName returns the context key for the asset under process.
func GetAssetParameterName() string {
	return assetParamName
}
