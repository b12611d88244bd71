package audit

import (
	"context"
	"errors"

	"apeguard/pkg/platform/circuit"
)

// ErrDropped is returned for events skipped while the circuit is open.
var ErrDropped = errors.New("audit store unavailable, event dropped")

// Guarded wraps a secondary store with a circuit breaker so an outage does
// not stall every mutation on its timeout. OnDrop, when set, is called for
// each skipped event.
type Guarded struct {
	Store   Store
	Breaker *circuit.Breaker
	OnDrop  func(event Event)
}

func (g Guarded) Append(ctx context.Context, event Event) error {
	if !g.Breaker.Allow() {
		if g.OnDrop != nil {
			g.OnDrop(event)
		}
		return ErrDropped
	}
	if err := g.Store.Append(ctx, event); err != nil {
		g.Breaker.RecordFailure()
		return err
	}
	g.Breaker.RecordSuccess()
	return nil
}
