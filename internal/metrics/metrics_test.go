package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMustRegister_RegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { MustRegister(reg) })
}

func TestObserveRequest_IncrementsCounterAndHistogram(t *testing.T) {
	InferenceRequestsTotal.Reset()
	InferenceLatencySeconds.Reset()

	ObserveRequest("infer", "ok", 0.05)

	require.Equal(t, float64(1), testutil.ToFloat64(InferenceRequestsTotal.WithLabelValues("infer", "ok")))
}

func TestObserveDetections_IncrementsPerClassName(t *testing.T) {
	DetectionsTotal.Reset()

	ObserveDetections([]string{"no_hardhat", "no_hardhat", "no_vest"})

	require.Equal(t, float64(2), testutil.ToFloat64(DetectionsTotal.WithLabelValues("no_hardhat")))
	require.Equal(t, float64(1), testutil.ToFloat64(DetectionsTotal.WithLabelValues("no_vest")))
}
