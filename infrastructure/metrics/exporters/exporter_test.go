package exporters

import (
	"context"
	"strings"
	"testing"

	"github.com/devscore/integrity/infrastructure/config"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_CollectsIntoRegistry(t *testing.T) {
	registry := prom.NewRegistry()

	meter, err := Prometheus(config.JaegerConfig{ServiceVersion: "1.2.3"}, "test", registry)
	require.NoError(t, err)

	counter, err := meter.Int64Counter("proctor_logs_accepted")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	families, err := registry.Gather()
	require.NoError(t, err)

	var found bool
	for _, family := range families {
		if strings.HasPrefix(family.GetName(), "proctor_logs_accepted") {
			found = true
			require.NotEmpty(t, family.GetMetric())
			assert.Equal(t, 3.0, family.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found, "counter not exported")
}
