package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"apeguard/pkg/platform/circuit"
)

type flakyStore struct {
	err   error
	calls int
}

func (s *flakyStore) Append(context.Context, Event) error {
	s.calls++
	return s.err
}

func TestGuarded_DropsWhileOpen(t *testing.T) {
	down := &flakyStore{err: errors.New("broker down")}
	dropped := 0
	g := Guarded{
		Store:   down,
		Breaker: circuit.New("kafka", circuit.WithFailureThreshold(2)),
		OnDrop:  func(Event) { dropped++ },
	}

	assert.Error(t, g.Append(context.Background(), Event{}))
	assert.Error(t, g.Append(context.Background(), Event{}))
	assert.ErrorIs(t, g.Append(context.Background(), Event{}), ErrDropped)
	assert.Equal(t, 2, down.calls)
	assert.Equal(t, 1, dropped)
}
