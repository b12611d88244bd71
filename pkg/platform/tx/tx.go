// Package tx provides an in-memory transactional boundary: mutations record
// their inverse in a Journal, and Run replays the inverses in reverse order
// when the unit of work fails.
package tx

import (
	"context"

	dErrors "apeguard/pkg/domain-errors"
)

// Journal collects undo steps for one unit of work. It is not safe for
// concurrent use; the caller holds whatever locks guard the mutated state.
type Journal struct {
	undo []func()
}

// Record registers the inverse of a mutation that has just been applied.
// A nil journal records nothing, which lets callers mutate outside a unit.
func (j *Journal) Record(undo func()) {
	if j == nil {
		return
	}
	j.undo = append(j.undo, undo)
}

// Len reports how many undo steps are pending.
func (j *Journal) Len() int {
	if j == nil {
		return 0
	}
	return len(j.undo)
}

func (j *Journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// Run executes fn as one unit. If fn returns an error or panics, every step
// recorded in the journal is undone before Run returns (or re-panics).
func Run(ctx context.Context, fn func(j *Journal) error) (err error) {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	j := &Journal{}
	committed := false
	defer func() {
		if !committed {
			j.rollback()
		}
	}()

	if err := fn(j); err != nil {
		return err
	}
	committed = true
	j.undo = nil
	return nil
}
