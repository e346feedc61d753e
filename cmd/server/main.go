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
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/videoscribe/videoscribe/internal/telemetry"
)

func main() {
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := GetConfig()

	shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	InitState(ctx)
	slog.Info("Initialized State")

	r := gin.Default()
	r.Use(otelgin.Middleware(config.Application.Name))
	r.Use(cors.Default())

	apiV1 := r.Group("/api/v1")
	{
		AssetRouter(apiV1, ctx)
		SearchRouter(apiV1)
		Dashboard(apiV1)
	}

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen: ", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Error("Telemetry Shutdown Failed:", "error", err)
	}

	log.Println("Server exiting")
}

// AssetRouter sets up the routes for ingesting assets and retrieving their
// pipeline output. Uploads return as soon as the file is fingerprinted into
// the pool; the pipeline runs in the background under the server context so
// an interrupted request does not abandon a half-processed asset.
func AssetRouter(r *gin.RouterGroup, serverCtx context.Context) {
	assets := r.Group("/assets")
	{
		assets.POST("", func(c *gin.Context) {
			form, err := c.MultipartForm()
			if err != nil {
				c.String(http.StatusBadRequest, "get form err: %s", err.Error())
				return
			}
			files := form.File["files"]
			if len(files) == 0 {
				c.String(http.StatusBadRequest, "no files in upload")
				return
			}

			fingerprints := make([]string, 0, len(files))
			for _, file := range files {
				localPath := filepath.Join(os.TempDir(), uuid.New().String()+filepath.Ext(file.Filename))
				if err := c.SaveUploadedFile(file, localPath); err != nil {
					c.String(http.StatusBadRequest, "upload file err: %s", err.Error())
					return
				}
				a, err := state.store.Ingest(localPath, file.Filename)
				if err := os.Remove(localPath); err != nil {
					log.Printf("failed to remove upload temp file: %v\n", err)
				}
				if err != nil {
					c.String(http.StatusInternalServerError, "ingest err: %s", err.Error())
					return
				}
				fingerprints = append(fingerprints, a.Fingerprint)

				go func() {
					if err := state.pipeline.Run(serverCtx, a); err != nil {
						slog.Error("pipeline run failed",
							"fingerprint", a.Fingerprint, "error", err)
					}
				}()
			}
			c.JSON(http.StatusAccepted, gin.H{"fingerprints": fingerprints})
		})

		assets.GET("", func(c *gin.Context) {
			out, err := state.mediaService.List()
			if err != nil {
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		assets.GET("/:fingerprint", func(c *gin.Context) {
			out, err := state.mediaService.Get(c.Param("fingerprint"))
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		assets.GET("/:fingerprint/dataset", func(c *gin.Context) {
			out, err := state.mediaService.Dataset(c.Param("fingerprint"))
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		assets.GET("/:fingerprint/clip", func(c *gin.Context) {
			start, err := strconv.ParseFloat(c.Query("start"), 64)
			if err != nil {
				c.Status(http.StatusBadRequest)
				return
			}
			end, err := strconv.ParseFloat(c.Query("end"), 64)
			if err != nil {
				c.Status(http.StatusBadRequest)
				return
			}
			path, err := state.mediaService.Clip(c, c.Param("fingerprint"), start, end)
			if err != nil {
				log.Printf("Error rendering clip: %v\n", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.File(path)
		})
	}
}

// SearchRouter sets up the keyword search route over cleaned datasets.
func SearchRouter(r *gin.RouterGroup) {
	r.GET("/search", func(c *gin.Context) {
		query := c.Query("s")
		count, err := strconv.Atoi(c.DefaultQuery("count", "5"))
		if err != nil {
			count = 5
		}
		if len(query) == 0 {
			c.Status(http.StatusBadRequest)
			return
		}
		results, err := state.searchService.FindRecords(c, query, count)
		if err != nil {
			log.Printf("Error finding records: %v\n", err)
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, results)
	})
}
