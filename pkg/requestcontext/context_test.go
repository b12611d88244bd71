package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"apeguard/pkg/domain"
)

func TestCaller(t *testing.T) {
	ctx := context.Background()
	assert.True(t, Caller(ctx).IsZero())

	caller := domain.NewAddress()
	assert.Equal(t, caller, Caller(WithCaller(ctx, caller)))
}

func TestRequestMetadata(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))

	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(ctx, fixed)))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}
