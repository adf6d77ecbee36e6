/*
Copyright 2024 PipLine Treasury Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package traces configures the OpenTelemetry tracer provider.
package traces

import (
	"context"
	"errors"
	"time"

	"github.com/pipline/treasury/config"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

// NewResource describes this process to the collector.
func NewResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(resource.Default(), resource.NewSchemaless(semconv.ServiceName(serviceName)))
}

// NewProvider builds a batching tracer provider around exporter.
func NewProvider(exporter sdktrace.SpanExporter, res *resource.Resource) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
}

// SetupOTelSDK installs a global tracer provider exporting over OTLP/HTTP.
// When telemetry is disabled it installs nothing and returns a no-op shutdown.
// The exporter reads its endpoint and headers from the OTEL_EXPORTER_OTLP_*
// variables set by config.SetExporterEnvs.
func SetupOTelSDK(ctx context.Context, conf config.TelemetryConfig) (ShutdownFunc, error) {
	if !conf.Enabled {
		return noop, nil
	}
	if err := config.SetExporterEnvs(); err != nil {
		return noop, err
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return noop, err
	}
	res, err := NewResource(conf.ServiceName)
	if err != nil {
		return noop, errors.Join(err, exporter.Shutdown(ctx))
	}

	provider := NewProvider(exporter, res)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	logrus.WithField("service", conf.ServiceName).Info("tracing enabled")
	return provider.Shutdown, nil
}
