package obs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitTracerNoneExporterIsNoop(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracingConfig{Exporter: " None "})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitTracerRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracer(context.Background(), TracingConfig{Exporter: "zipkin"})
	require.EqualError(t, err, "unsupported tracing exporter: zipkin")
}

func TestTracingConfigDefaults(t *testing.T) {
	cfg := TracingConfig{}
	require.Equal(t, "otlp", cfg.exporter())
	require.Equal(t, defaultServiceName, cfg.serviceName())

	for _, ratio := range []float64{0, -1, 2} {
		desc := TracingConfig{SamplingRatio: ratio}.sampler().Description()
		require.Contains(t, desc, "root:AlwaysOnSampler", "ratio %v", ratio)
	}
	require.Contains(t, TracingConfig{SamplingRatio: 0.25}.sampler().Description(), "TraceIDRatioBased{0.25}")
}
