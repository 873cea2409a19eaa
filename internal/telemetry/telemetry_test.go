package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bysykkel/bysykkel/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "bysykkel",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        false,
	})
	require.NoError(t, err)
	require.NotNil(t, provider)

	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestInit_Enabled(t *testing.T) {
	ctx := context.Background()

	// gRPC exporters connect lazily, so no collector is needed to build them.
	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:  "bysykkel",
		Environment:  "test",
		OTLPEndpoint: "127.0.0.1:1",
		Enabled:      true,
	})
	require.NoError(t, err)

	assert.NotNil(t, provider.TracerProvider)
	assert.NotNil(t, provider.MeterProvider)
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}
