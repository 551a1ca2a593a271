package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessorsReturnZeroValuesWhenUnset(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, IdentityID(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, ClientIP(ctx))
	assert.Empty(t, UserAgent(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestAccessorsRoundTripInjectedValues(t *testing.T) {
	fixed := time.Date(2026, 6, 14, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()
	ctx = WithIdentityID(ctx, "donor-1")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithClientMetadata(ctx, "10.0.0.1", "test-agent")
	ctx = WithTime(ctx, fixed)

	assert.Equal(t, "donor-1", IdentityID(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "10.0.0.1", ClientIP(ctx))
	assert.Equal(t, "test-agent", UserAgent(ctx))
	assert.Equal(t, fixed, Now(ctx))
}
