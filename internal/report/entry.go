package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/imacat/mia-accounting-django-sub000/internal/model"
	"github.com/imacat/mia-accounting-django-sub000/internal/store"
	"github.com/imacat/mia-accounting-django-sub000/internal/txnref"
)

// EntryKind tells real records apart from the rows a report synthesizes.
type EntryKind string

const (
	EntryRecord         EntryKind = "record"
	EntryBroughtForward EntryKind = "brought-forward"
	EntryTotal          EntryKind = "total"
)

// Entry is one row of a record-level report. Debit and Credit hold the
// amount in the column it is shown in; at most one is non-zero for a
// record row.
type Entry struct {
	Kind          EntryKind
	RecordID      int64
	TransactionID int64
	Ref           string
	Date          time.Time
	Account       model.Account
	Summary       string
	Notes         string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Balance       decimal.Decimal

	IsBalanced          bool
	HasOrderHole        bool
	IsPayable           bool
	IsExistingEquipment bool

	recordSummary string
}

// Amount returns whichever column is filled.
func (e Entry) Amount() decimal.Decimal {
	if e.Debit.IsZero() {
		return e.Credit
	}
	return e.Debit
}

func entryOf(r store.RecordRow) Entry {
	e := Entry{
		Kind:          EntryRecord,
		RecordID:      r.ID,
		TransactionID: r.TransactionID,
		Ref:           txnref.FormatRecord(txnref.Format(r.Date, r.TransactionOrd), r.Side(), r.Ord),
		Date:          r.Date,
		Account:       model.Account{ID: r.AccountID, Code: r.AccountCode, Title: r.AccountTitle},
		Summary:       r.DisplaySummary(),
		Notes:         r.Notes,
		recordSummary: r.Summary,
	}
	if r.IsCredit {
		e.Credit = r.Amount
	} else {
		e.Debit = r.Amount
	}
	return e
}

// signedBalance is debit minus credit, negated for credit-normal accounts.
func signedBalance(debit, credit decimal.Decimal, creditNormal bool) decimal.Decimal {
	if creditNormal {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}

// walk fills in the running balance of entries starting from seed and
// returns the closing balance.
func walk(entries []Entry, seed decimal.Decimal, creditNormal bool) decimal.Decimal {
	balance := seed
	for i := range entries {
		balance = balance.Add(signedBalance(entries[i].Debit, entries[i].Credit, creditNormal))
		entries[i].Balance = balance
	}
	return balance
}

// broughtForward builds the leading row carrying balance into a period.
// A positive balance sits in the account's normal column.
func broughtForward(date time.Time, acct model.Account, balance decimal.Decimal, creditNormal bool) Entry {
	e := Entry{
		Kind:       EntryBroughtForward,
		Date:       date,
		Account:    acct,
		Summary:    "Brought forward",
		Balance:    balance,
		IsBalanced: true,
	}
	amount := balance.Abs()
	if balance.IsNegative() != creditNormal {
		e.Credit = amount
	} else {
		e.Debit = amount
	}
	return e
}

// totalOf sums the record rows of entries into a total row whose balance
// is the closing balance.
func totalOf(entries []Entry, closing decimal.Decimal) Entry {
	t := Entry{Kind: EntryTotal, Summary: "Total", Balance: closing, Debit: decimal.Zero, Credit: decimal.Zero, IsBalanced: true}
	for _, e := range entries {
		if e.Kind != EntryRecord {
			continue
		}
		t.Debit = t.Debit.Add(e.Debit)
		t.Credit = t.Credit.Add(e.Credit)
	}
	return t
}

// Diagnostics are the consistency flags of the whole ledger, computed once
// per render over every transaction regardless of the report's period.
type Diagnostics struct {
	Unbalanced map[int64]bool
	HoleDates  map[string]bool
}

func loadDiagnostics(ctx context.Context, q *store.Queries) (*Diagnostics, error) {
	d := &Diagnostics{Unbalanced: map[int64]bool{}, HoleDates: map[string]bool{}}

	g, ctx := errgroup.WithContext(ctx)
	var (
		totals []store.TransactionTotal
		orders []store.DateOrd
	)
	g.Go(func() error {
		var err error
		totals, err = q.TransactionTotals(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = q.DateOrders(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, t := range totals {
		if !t.Debit.Equal(t.Credit) {
			d.Unbalanced[t.ID] = true
		}
	}
	byDate := make(map[string][]int)
	for _, o := range orders {
		key := o.Date.Format(model.DateFormat)
		byDate[key] = append(byDate[key], o.Ord)
	}
	for date, ords := range byDate {
		if !model.IsDense(ords) {
			d.HoleDates[date] = true
		}
	}
	return d, nil
}

func (d *Diagnostics) annotate(entries []Entry) {
	for i := range entries {
		e := &entries[i]
		if e.Kind != EntryRecord {
			continue
		}
		e.IsBalanced = !d.Unbalanced[e.TransactionID]
		e.HasOrderHole = d.HoleDates[e.Date.Format(model.DateFormat)]
	}
}
