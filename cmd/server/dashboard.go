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

package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/videoscribe/videoscribe/internal/core/model"
)

// Dashboard configures the statistics endpoint: pool size and per-stage
// completion counts across all ingested assets.
func Dashboard(r *gin.RouterGroup) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			assets, err := state.store.ListAssets()
			if err != nil {
				c.Status(http.StatusInternalServerError)
				return
			}
			stages := make(map[model.Stage]int, len(model.Stages))
			for _, a := range assets {
				for _, stage := range model.Stages {
					if state.store.HasStage(a.Fingerprint, stage) {
						stages[stage]++
					}
				}
			}
			c.JSON(http.StatusOK, gin.H{
				"assets": len(assets),
				"stages": stages,
			})
		})
	}
}
