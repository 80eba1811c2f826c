package ledger

import (
	"context"
	"time"

	"github.com/imacat/mia-accounting-django-sub000/internal/apperr"
	"github.com/imacat/mia-accounting-django-sub000/internal/model"
	"github.com/imacat/mia-accounting-django-sub000/internal/store"
)

// renumber rewrites the order of the transactions on date to 1..N keeping
// their relative order.
func renumber(ctx context.Context, q *store.Queries, date time.Time) error {
	txns, err := q.TransactionsOn(ctx, date)
	if err != nil {
		return err
	}
	for i, t := range txns {
		if t.Ord == i+1 {
			continue
		}
		if err := q.SetTransactionOrd(ctx, t.ID, i+1); err != nil {
			return err
		}
	}
	return assertDense(ctx, q, date)
}

// assertDense re-reads date and fails unless its orders are exactly 1..N.
func assertDense(ctx context.Context, q *store.Queries, date time.Time) error {
	txns, err := q.TransactionsOn(ctx, date)
	if err != nil {
		return err
	}
	ords := make([]int, len(txns))
	for i, t := range txns {
		ords[i] = t.Ord
	}
	if !model.IsDense(ords) {
		return apperr.Invariant("transaction order on %s is %v after renumbering", date.Format(model.DateFormat), ords)
	}
	return nil
}
