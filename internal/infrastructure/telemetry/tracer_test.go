package telemetry_test

import (
	"context"
	"testing"

	"github.com/schoolledger/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{ServiceName: "school-ledger"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("ledger"))
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestEnableSpanProfiles_NoopWhenDisabled(t *testing.T) {
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, tp.EnableSpanProfiles())
	assert.False(t, tp.IsSpanProfilesEnabled())
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("requires an OTLP collector on localhost:4317")
	}
	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           true,
		CollectorEndpoint: "localhost:4317",
		SamplingRatio:     0.5,
		ServiceName:       "school-ledger-test",
		Insecure:          true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, tp.IsEnabled())

	require.NoError(t, tp.EnableSpanProfiles())
	assert.True(t, tp.IsSpanProfilesEnabled())

	_, span := tp.Tracer("test").Start(ctx, "fee.assign")
	span.End()
	_ = tp.Shutdown(ctx)
}
