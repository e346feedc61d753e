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

package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/videoscribe/videoscribe/internal/ai"
)

// Telemetry output files, written next to the process working directory.
const (
	traceOutFile  = "traces.jsonl"
	metricOutFile = "metrics.jsonl"
)

// SetupOpenTelemetry initializes tracing and metrics for the whole process.
// Spans and metric batches are serialized as JSON lines to local files so a
// run can be inspected without any collector infrastructure. The returned
// shutdown function must be called on exit to flush buffered telemetry.
func SetupOpenTelemetry(ctx context.Context, config *ai.Config) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error

	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.Application.Name),
		),
	)
	if errors.Is(err, resource.ErrPartialResource) || errors.Is(err, resource.ErrSchemaURLConflict) {
		slog.Warn("partial resource detection", "error", err)
	} else if err != nil {
		slog.Error("resource.New failed", "error", err)
		return nil, err
	}

	// W3C Trace Context plus B3, so inbound requests from either style of
	// client keep their trace identity.
	otel.SetTextMapPropagator(autoprop.NewTextMapPropagator())

	traceFile, err := os.Create(traceOutFile)
	if err != nil {
		return nil, err
	}
	shutdownFuncs = append(shutdownFuncs, func(context.Context) error { return traceFile.Close() })

	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(traceFile))
	if err != nil {
		slog.Error("unable to set up trace exporter", "error", err)
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	shutdownFuncs = append([]func(context.Context) error{tp.Shutdown}, shutdownFuncs...)
	otel.SetTracerProvider(tp)

	metricFile, err := os.Create(metricOutFile)
	if err != nil {
		return shutdown, err
	}
	shutdownFuncs = append(shutdownFuncs, func(context.Context) error { return metricFile.Close() })

	mExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(metricFile))
	if err != nil {
		slog.Error("unable to set up metric exporter", "error", err)
		return shutdown, err
	}
	mProvider := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(mExporter)),
		metric.WithResource(res),
	)
	shutdownFuncs = append([]func(context.Context) error{mProvider.Shutdown}, shutdownFuncs...)
	otel.SetMeterProvider(mProvider)

	return shutdown, nil
}
