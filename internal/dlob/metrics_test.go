package dlob

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	require.NotNil(t, m)

	m.OrdersApplied.WithLabelValues("create").Inc()
	m.CrossesFound.Add(3)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	var found bool
	for _, f := range families {
		if f.GetName() == "dlob_crosses_found_total" {
			found = true
			require.Len(t, f.Metric, 1)
			assert.Equal(t, 3.0, f.Metric[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found, "expected dlob_crosses_found_total to be registered")
}
