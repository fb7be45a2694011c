package hookmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/vmdbg/hookengine/internal/hookmetrics"
)

func TestNewRegistersAllCollectorsOnPrivateRegistry(t *testing.T) {
	m := hookmetrics.New(hookmetrics.DefaultConfig())
	require.NotNil(t, m.Registry())

	m.BreakpointHits.WithLabelValues("v1").Inc()
	m.EventsSeen.WithLabelValues("line").Inc()
	m.SkipDepth.Set(3)
	m.BreakpointCount.Set(2)
	m.AsyncServiceRuns.Inc()
	m.AsyncInstallErrs.Inc()
	m.StepCompletions.WithLabelValues("step_complete").Inc()

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)

	require.Equal(t, float64(1), testutil.ToFloat64(m.BreakpointHits.WithLabelValues("v1")))
	require.Equal(t, float64(3), testutil.ToFloat64(m.SkipDepth))
}

func TestDefaultConfigUsedWhenNamespaceEmpty(t *testing.T) {
	m := hookmetrics.New(hookmetrics.Config{})
	m.BreakpointCount.Set(1)
	require.Equal(t, float64(1), testutil.ToFloat64(m.BreakpointCount))
}
