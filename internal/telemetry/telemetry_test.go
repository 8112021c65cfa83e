package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/tripflow/config"
)

// keepGlobals restores the global providers after the test.
func keepGlobals(t *testing.T) {
	t.Helper()
	tp, mp := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	})
}

func enabledConfig(rate float64) config.TelemetryConfig {
	return config.TelemetryConfig{
		Enabled:      true,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "tripflow-test",
		SampleRate:   rate,
	}
}

// shutdownQuickly bounds Shutdown since no collector listens on the endpoint.
func shutdownQuickly(t *testing.T, p *Providers) {
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})
}

func TestInit_Disabled(t *testing.T) {
	keepGlobals(t)
	before := otel.GetTracerProvider()

	p, err := Init(config.TelemetryConfig{}, "1.0.0", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.Same(t, before, otel.GetTracerProvider(), "disabled init leaves globals alone")

	_, span := Tracer("tripflow/test").Start(context.Background(), "turn")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	_, err = Init(config.TelemetryConfig{}, "", nil)
	assert.NoError(t, err)
}

func TestInit_InstallsSDKProviders(t *testing.T) {
	keepGlobals(t)

	p, err := Init(enabledConfig(1), "1.2.3", zaptest.NewLogger(t))
	require.NoError(t, err)
	shutdownQuickly(t, p)

	require.True(t, p.Enabled())
	require.NotNil(t, p.mp)
	_, tpIsSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	_, mpIsSDK := otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	assert.True(t, tpIsSDK)
	assert.True(t, mpIsSDK)

	_, span := Tracer("tripflow/test").Start(context.Background(), "turn")
	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.SpanContext().IsSampled())
	span.End()
}

func TestInit_ZeroSampleRateDropsRootSpans(t *testing.T) {
	keepGlobals(t)

	p, err := Init(enabledConfig(0), "", nil)
	require.NoError(t, err)
	shutdownQuickly(t, p)

	_, span := Tracer("tripflow/test").Start(context.Background(), "turn")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()
}

func TestSampleRatio(t *testing.T) {
	assert.Equal(t, 0.0, SampleRatio(-0.5))
	assert.Equal(t, 0.25, SampleRatio(0.25))
	assert.Equal(t, 1.0, SampleRatio(7))
}

func TestProviders_Shutdown(t *testing.T) {
	var nilProviders *Providers
	assert.NoError(t, nilProviders.Shutdown(context.Background()))
	assert.False(t, nilProviders.Enabled())

	assert.NoError(t, (&Providers{}).Shutdown(context.Background()))
}

func TestBuildVersion(t *testing.T) {
	// test binaries report "(devel)"
	assert.Equal(t, "dev", buildVersion())
}
