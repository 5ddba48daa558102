package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitAndStartSpan(t *testing.T) {
	shutdown, err := Init("storefront-test", false)
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	ctx, span := StartSpan(context.Background(), "checkout", attribute.Int("items", 2))
	defer span.End()

	assert.True(t, span.SpanContext().IsValid())
	assert.NotNil(t, ctx)
}
