// Package ledger is the write path of the bookkeeping engine: it validates
// submitted transactions, reconciles their records and keeps the
// same-day transaction order dense.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/imacat/mia-accounting-django-sub000/internal/apperr"
	"github.com/imacat/mia-accounting-django-sub000/internal/config"
	"github.com/imacat/mia-accounting-django-sub000/internal/metrics"
	"github.com/imacat/mia-accounting-django-sub000/internal/model"
	"github.com/imacat/mia-accounting-django-sub000/internal/store"
	"github.com/imacat/mia-accounting-django-sub000/internal/txnref"
)

// Line is one proposed debit or credit entry.
type Line struct {
	// ID is the existing record the line edits; 0 for a new record.
	ID    int64      `json:"id,omitempty"`
	Side  model.Side `json:"side"`
	Order int        `json:"order"`
	// Key is the line's position in the submitted form. Zero means its
	// position in the request.
	Key         int    `json:"key,omitempty"`
	AccountCode string `json:"accountCode"`
	Summary     string `json:"summary,omitempty"`
	Amount      string `json:"amount"`
}

// SubmitRequest creates a transaction, or edits one when TransactionID
// is set.
type SubmitRequest struct {
	TransactionID int64                 `json:"transactionId,omitempty"`
	Type          model.TransactionType `json:"transactionType"`
	Date          string                `json:"date"`
	Notes         string                `json:"notes,omitempty"`
	Lines         []Line                `json:"lines"`
}

// Service provides the ledger's write operations.
type Service struct {
	store   *store.Store
	cfg     config.AccountingConfig
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewService creates a ledger Service. m may be nil.
func NewService(s *store.Store, cfg config.AccountingConfig, m *metrics.Metrics, log *zap.Logger) *Service {
	return &Service{store: s, cfg: cfg, metrics: m, log: log.Named("ledger")}
}

// Get returns a transaction with its records.
func (s *Service) Get(ctx context.Context, id int64) (model.Transaction, error) {
	return s.store.Transaction(ctx, id)
}

// Lookup returns the transaction named by a reference like
// "2023-01-05-002".
func (s *Service) Lookup(ctx context.Context, ref string) (model.Transaction, error) {
	date, ord, err := txnref.Parse(ref)
	if err != nil {
		return model.Transaction{}, apperr.ErrInvalidInput.WithError(err)
	}
	txns, err := s.store.TransactionsOn(ctx, date)
	if err != nil {
		return model.Transaction{}, err
	}
	for _, t := range txns {
		if t.Ord == ord {
			return s.store.Transaction(ctx, t.ID)
		}
	}
	return model.Transaction{}, apperr.NotFound("transaction %s", ref)
}

// TypeOf derives the entry form of a stored transaction.
func (s *Service) TypeOf(t model.Transaction) model.TransactionType {
	return t.Type(s.cfg.CashAccount)
}

// RequestOf turns a stored transaction into the request that edits it
// unchanged. Income and expense requests leave out the cash record, which
// Submit regenerates.
func (s *Service) RequestOf(t model.Transaction) SubmitRequest {
	typ := s.TypeOf(t)
	req := SubmitRequest{TransactionID: t.ID, Type: typ, Date: t.Date.Format(model.DateFormat), Notes: t.Notes}
	for _, r := range t.Records() {
		if (typ == model.TypeIncome && !r.IsCredit) || (typ == model.TypeExpense && r.IsCredit) {
			continue
		}
		req.Lines = append(req.Lines, Line{
			ID:          r.ID,
			Side:        r.Side(),
			Order:       r.Ord,
			AccountCode: r.AccountCode,
			Summary:     r.Summary,
			Amount:      r.Amount.StringFixed(2),
		})
	}
	return req
}

// Submit validates and saves a transaction, returning its ID. Validation
// problems are returned together as a *ValidationFailure and nothing is
// written.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (int64, error) {
	req.Lines = SortLines(req.Lines)

	var id int64
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		var cash model.Account
		if req.Type == model.TypeIncome || req.Type == model.TypeExpense {
			var err error
			if cash, err = q.AccountByCode(ctx, s.cfg.CashAccount); err != nil {
				return fmt.Errorf("resolving cash account: %w", err)
			}
		}

		p, fail, err := validate(ctx, q, req, cash)
		if err != nil {
			return err
		}
		if fail != nil {
			return fail
		}

		id, err = s.write(ctx, q, req, p)
		return err
	})

	label := string(req.Type)
	if !req.Type.Valid() {
		label = "unknown"
	}
	var fail *ValidationFailure
	switch {
	case err == nil:
		s.metrics.Submitted(label, "ok")
		s.log.Info("transaction saved", zap.Int64("id", id), zap.String("type", string(req.Type)), zap.String("date", req.Date))
		return id, nil
	case errors.As(err, &fail):
		s.metrics.Submitted(label, "invalid")
		s.log.Debug("transaction rejected", zap.Int("field_errors", len(fail.FieldErrors)), zap.Int("form_errors", len(fail.FormErrors)))
		return 0, fail
	default:
		s.metrics.Submitted(label, "error")
		s.log.Error("saving transaction", zap.Error(err))
		return 0, err
	}
}

func (s *Service) write(ctx context.Context, q *store.Queries, req SubmitRequest, p *plan) (int64, error) {
	txn := model.Transaction{Date: p.date, Notes: req.Notes}

	if p.existing == nil {
		last, err := q.MaxOrdOn(ctx, p.date, 0)
		if err != nil {
			return 0, err
		}
		txn.Ord = last + 1
		if txn.ID, err = q.InsertTransaction(ctx, txn); err != nil {
			return 0, err
		}
	} else {
		txn.ID = p.existing.ID
		oldDate := p.existing.Date
		txn.Ord = p.existing.Ord
		if !oldDate.Equal(p.date) {
			last, err := q.MaxOrdOn(ctx, p.date, txn.ID)
			if err != nil {
				return 0, err
			}
			txn.Ord = last + 1
		}
		if txn.Ord != p.existing.Ord || !oldDate.Equal(p.date) || txn.Notes != p.existing.Notes {
			if err := q.UpdateTransaction(ctx, txn); err != nil {
				return 0, err
			}
		}
		if !oldDate.Equal(p.date) {
			if err := renumber(ctx, q, oldDate); err != nil {
				return 0, err
			}
		}
	}

	if err := reconcile(ctx, q, txn.ID, p); err != nil {
		return 0, err
	}

	// Close any gap already on the target date; the saved transaction
	// stays last.
	if err := renumber(ctx, q, p.date); err != nil {
		return 0, err
	}
	saved, err := q.Transaction(ctx, txn.ID)
	if err != nil {
		return 0, err
	}
	if !saved.IsBalanced() {
		return 0, apperr.Invariant("transaction #%d saved unbalanced: debit %s, credit %s",
			txn.ID, saved.DebitTotal().StringFixed(2), saved.CreditTotal().StringFixed(2))
	}
	return txn.ID, nil
}

// recordWriter is the part of the store reconcile writes through.
type recordWriter interface {
	InsertRecord(ctx context.Context, r model.Record) (int64, error)
	UpdateRecord(ctx context.Context, r model.Record) error
	DeleteRecord(ctx context.Context, id int64) error
}

// reconcile brings the stored records of a transaction in line with the
// plan: records no longer present are deleted, changed records are
// updated in place and new records are inserted. Unchanged records are
// not written.
func reconcile(ctx context.Context, q recordWriter, txnID int64, p *plan) error {
	current := make(map[int64]model.Record)
	if p.existing != nil {
		for _, r := range p.existing.Records() {
			current[r.ID] = r
		}
	}

	desired := append(append([]model.Record{}, p.debits...), p.credits...)
	keep := make(map[int64]bool, len(desired))
	for _, r := range desired {
		if r.ID != 0 {
			keep[r.ID] = true
		}
	}
	for id := range current {
		if !keep[id] {
			if err := q.DeleteRecord(ctx, id); err != nil {
				return err
			}
		}
	}

	for _, r := range desired {
		r.TransactionID = txnID
		if r.ID == 0 {
			if _, err := q.InsertRecord(ctx, r); err != nil {
				return err
			}
			continue
		}
		if old, ok := current[r.ID]; ok && sameRecord(old, r) {
			continue
		}
		if err := q.UpdateRecord(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func sameRecord(a, b model.Record) bool {
	return a.IsCredit == b.IsCredit &&
		a.Ord == b.Ord &&
		a.AccountID == b.AccountID &&
		a.Summary == b.Summary &&
		a.Amount.Equal(b.Amount)
}

// Delete removes a transaction and its records and closes the gap it
// leaves in its date's order.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		txn, err := q.Transaction(ctx, id)
		if err != nil {
			return err
		}
		if err := q.DeleteRecordsOf(ctx, id); err != nil {
			return err
		}
		if err := q.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		return renumber(ctx, q, txn.Date)
	})
	if err != nil {
		return err
	}
	s.metrics.Deleted()
	s.log.Info("transaction deleted", zap.Int64("id", id))
	return nil
}

// Reorder sets the order of the transactions on date to the order of ids.
// ids must name exactly the transactions on that date.
func (s *Service) Reorder(ctx context.Context, date time.Time, ids []int64) error {
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		txns, err := q.TransactionsOn(ctx, date)
		if err != nil {
			return err
		}
		onDate := make(map[int64]bool, len(txns))
		for _, t := range txns {
			onDate[t.ID] = true
		}
		if len(ids) != len(txns) {
			return apperr.ErrInvalidInput.WithMessage("%d transactions on %s, got %d",
				len(txns), date.Format(model.DateFormat), len(ids))
		}
		seen := make(map[int64]bool, len(ids))
		for _, id := range ids {
			if !onDate[id] || seen[id] {
				return apperr.ErrInvalidInput.WithMessage("transaction #%d is not a distinct transaction on %s",
					id, date.Format(model.DateFormat))
			}
			seen[id] = true
		}

		for i, id := range ids {
			if err := q.SetTransactionOrd(ctx, id, i+1); err != nil {
				return err
			}
		}
		return assertDense(ctx, q, date)
	})
	if err != nil {
		return err
	}
	s.metrics.Reordered()
	s.log.Info("transactions reordered", zap.String("date", date.Format(model.DateFormat)), zap.Int("count", len(ids)))
	return nil
}
