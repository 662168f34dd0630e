package telemetry

import (
	"context"
	"fmt"
	"math"

	"github.com/Gunvolt24/cnshell/config"
	"github.com/Gunvolt24/cnshell/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

const (
	defaultEndpoint    = "localhost:4318"
	defaultServiceName = "cnshell"
)

// Shutdown — выгружает буфер экспортёра и останавливает провайдер.
type Shutdown func(context.Context) error

// SetupTracing — глобальный TracerProvider с OTLP/HTTP-экспортом и W3C-пропагацией.
// Ошибки SDK (например, недоступный коллектор) пишутся в log как WARN от source.
func SetupTracing(ctx context.Context, cfg config.Tracing, appVersion string, log logger.Logger, source string) (Shutdown, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter %s: %w", endpoint, err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
		sdktrace.WithResource(serviceResource(cfg.ServiceName, appVersion)),
	)

	if log != nil {
		otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
			log.Warnf(source, "otel: %v", err)
		}))
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// sampler — доля корневых спанов; дочерние следуют решению родителя.
func sampler(ratio float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case math.IsNaN(ratio) || ratio <= 0:
		root = sdktrace.NeverSample()
	case ratio >= 1:
		root = sdktrace.AlwaysSample()
	default:
		root = sdktrace.TraceIDRatioBased(ratio)
	}
	return sdktrace.ParentBased(root)
}

func serviceResource(name, version string) *resource.Resource {
	if name == "" {
		name = defaultServiceName
	}
	if version == "" {
		return resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(name))
	}
	return resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName(name),
		semconv.ServiceVersion(version),
	)
}
