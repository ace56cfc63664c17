package memory

import (
	"context"
	"fmt"
)

type journalKey struct{}

type journal struct {
	undo []func()
}

// WithTransaction serializes transactions and reverts every mutation made
// through ctx when fn fails. Readers outside the transaction may observe
// uncommitted writes.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	j := &journal{}

	err := fn(context.WithValue(ctx, journalKey{}, j))
	if err == nil {
		// a commit under a finished context fails, as it does on a database
		err = context.Cause(ctx)
	}

	if err != nil {
		s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		s.mu.Unlock()

		return fmt.Errorf("rolled back due to err: %w", err)
	}

	return nil
}

// onRollback registers undo to run with the store lock held.
func onRollback(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}
