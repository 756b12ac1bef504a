package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupInstallsRecordingProvider(t *testing.T) {
	shutdown, err := Setup(context.Background(), Options{ServiceName: "storefront", Version: "test", Env: "test"})
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	_, span := otel.Tracer("test").Start(context.Background(), "probe")
	defer span.End()
	assert.True(t, span.SpanContext().IsValid())
}

func TestSetupRejectsUnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), Options{ServiceName: "storefront", Exporter: "carrier-pigeon"})
	assert.Error(t, err)
}
