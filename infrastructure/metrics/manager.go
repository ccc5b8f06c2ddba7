package metrics

import (
	"context"
	"sync"

	"github.com/devscore/integrity/infrastructure/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Manager registers instruments once by name and records against them.
// Labels are passed as alternating key/value pairs.
type Manager interface {
	NewCounter(name, desc string)
	NewUpDownCounter(name, desc string)
	NewHistogram(name, desc string, buckets ...float64)
	NewGauge(name, desc string)

	IncrementCounter(ctx context.Context, name string, labels ...string)
	AddCounter(ctx context.Context, name string, value float64, labels ...string)
	DeltaUpDownCounter(ctx context.Context, name string, value float64, labels ...string)
	RecordHistogram(ctx context.Context, name string, value float64, labels ...string)
	SetGauge(name string, value float64, labels ...string)
}

type metricsManager struct {
	meter  metric.Meter
	logger *logger.Logger

	mu         sync.RWMutex
	counters   map[string]metric.Float64Counter
	upDowns    map[string]metric.Float64UpDownCounter
	histograms map[string]metric.Float64Histogram
	gauges     map[string]metric.Float64Gauge
}

func NewMetricsManager(meter metric.Meter, logger *logger.Logger) Manager {
	return &metricsManager{
		meter:      meter,
		logger:     logger,
		counters:   make(map[string]metric.Float64Counter),
		upDowns:    make(map[string]metric.Float64UpDownCounter),
		histograms: make(map[string]metric.Float64Histogram),
		gauges:     make(map[string]metric.Float64Gauge),
	}
}

func (m *metricsManager) NewCounter(name, desc string) {
	c, err := m.meter.Float64Counter(name, metric.WithDescription(desc))
	if err != nil {
		m.logger.Error("failed to register counter", zap.String("metric", name), zap.Error(err))
		return
	}
	m.mu.Lock()
	m.counters[name] = c
	m.mu.Unlock()
}

func (m *metricsManager) NewUpDownCounter(name, desc string) {
	c, err := m.meter.Float64UpDownCounter(name, metric.WithDescription(desc))
	if err != nil {
		m.logger.Error("failed to register up-down counter", zap.String("metric", name), zap.Error(err))
		return
	}
	m.mu.Lock()
	m.upDowns[name] = c
	m.mu.Unlock()
}

func (m *metricsManager) NewHistogram(name, desc string, buckets ...float64) {
	opts := []metric.Float64HistogramOption{metric.WithDescription(desc)}
	if len(buckets) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(buckets...))
	}
	h, err := m.meter.Float64Histogram(name, opts...)
	if err != nil {
		m.logger.Error("failed to register histogram", zap.String("metric", name), zap.Error(err))
		return
	}
	m.mu.Lock()
	m.histograms[name] = h
	m.mu.Unlock()
}

func (m *metricsManager) NewGauge(name, desc string) {
	g, err := m.meter.Float64Gauge(name, metric.WithDescription(desc))
	if err != nil {
		m.logger.Error("failed to register gauge", zap.String("metric", name), zap.Error(err))
		return
	}
	m.mu.Lock()
	m.gauges[name] = g
	m.mu.Unlock()
}

func (m *metricsManager) IncrementCounter(ctx context.Context, name string, labels ...string) {
	m.AddCounter(ctx, name, 1, labels...)
}

func (m *metricsManager) AddCounter(ctx context.Context, name string, value float64, labels ...string) {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()
	if !ok {
		m.missing(name)
		return
	}
	c.Add(ctx, value, metric.WithAttributes(m.attributes(name, labels)...))
}

func (m *metricsManager) DeltaUpDownCounter(ctx context.Context, name string, value float64, labels ...string) {
	m.mu.RLock()
	c, ok := m.upDowns[name]
	m.mu.RUnlock()
	if !ok {
		m.missing(name)
		return
	}
	c.Add(ctx, value, metric.WithAttributes(m.attributes(name, labels)...))
}

func (m *metricsManager) RecordHistogram(ctx context.Context, name string, value float64, labels ...string) {
	m.mu.RLock()
	h, ok := m.histograms[name]
	m.mu.RUnlock()
	if !ok {
		m.missing(name)
		return
	}
	h.Record(ctx, value, metric.WithAttributes(m.attributes(name, labels)...))
}

func (m *metricsManager) SetGauge(name string, value float64, labels ...string) {
	m.mu.RLock()
	g, ok := m.gauges[name]
	m.mu.RUnlock()
	if !ok {
		m.missing(name)
		return
	}
	g.Record(context.Background(), value, metric.WithAttributes(m.attributes(name, labels)...))
}

func (m *metricsManager) missing(name string) {
	m.logger.Warn("metric is not registered", zap.String("metric", name))
}

func (m *metricsManager) attributes(name string, labels []string) []attribute.KeyValue {
	if len(labels)%2 != 0 {
		m.logger.Warn("metric labels must be key/value pairs", zap.String("metric", name), zap.Strings("labels", labels))
		labels = labels[:len(labels)-1]
	}
	attrs := make([]attribute.KeyValue, 0, len(labels)/2)
	for i := 0; i < len(labels); i += 2 {
		attrs = append(attrs, attribute.String(labels[i], labels[i+1]))
	}
	return attrs
}
