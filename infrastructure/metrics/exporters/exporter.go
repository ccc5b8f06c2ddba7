package exporters

import (
	"fmt"

	"github.com/devscore/integrity/infrastructure/config"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/otlptranslator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricSdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Prometheus returns a meter whose instruments are collected by registerer,
// or by the default registry when registerer is nil. Series carry the
// service identity and the run mode as deployment environment.
func Prometheus(service config.JaegerConfig, runMode string, registerer prom.Registerer) (metric.Meter, error) {
	name := service.ServiceName
	if name == "" {
		name = defaultAppName
	}

	opts := []prometheus.Option{
		prometheus.WithoutTargetInfo(),
		prometheus.WithTranslationStrategy(otlptranslator.NoTranslation),
	}
	if registerer != nil {
		opts = append(opts, prometheus.WithRegisterer(registerer))
	}

	exporter, err := prometheus.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(name),
		semconv.ServiceVersion(service.ServiceVersion),
		attribute.String("deployment.environment", runMode),
	)

	provider := metricSdk.NewMeterProvider(
		metricSdk.WithReader(exporter),
		metricSdk.WithResource(res),
	)
	return provider.Meter(name, metric.WithInstrumentationVersion(service.ServiceVersion)), nil
}
