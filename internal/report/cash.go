package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imacat/mia-accounting-django-sub000/internal/apperr"
	"github.com/imacat/mia-accounting-django-sub000/internal/model"
	"github.com/imacat/mia-accounting-django-sub000/internal/period"
	"github.com/imacat/mia-accounting-django-sub000/internal/store"
)

// CashReport is the register of a cash account. Each entry is a record on
// the other side of a transaction that moved cash, seen from the cash
// account: Debit is money received and Credit is money paid out.
type CashReport struct {
	Account        model.Account
	BroughtForward *Entry
	Entries        []Entry
	Total          Entry
}

// MonthRow is one month of a summary report, or its grand total when
// Month is zero.
type MonthRow struct {
	Month      time.Time
	Debit      decimal.Decimal
	Credit     decimal.Decimal
	Balance    decimal.Decimal
	Cumulative decimal.Decimal
}

// MonthlyReport summarizes a register month by month.
type MonthlyReport struct {
	Account        model.Account
	BroughtForward decimal.Decimal
	Months         []MonthRow
	Total          MonthRow
}

// cashAccount resolves the account of a cash report. AllCash stands for
// every cash-like account at once.
func (e *Engine) cashAccount(ctx context.Context, code string) (model.Account, []string, error) {
	if code == AllCash {
		return model.Account{Code: AllCash, Title: "All cash accounts"}, model.CashLikePrefixes, nil
	}
	if !model.IsCashLike(code) {
		return model.Account{}, nil, apperr.ErrInvalidInput.WithMessage("account %s is not a cash account", code)
	}
	acct, err := e.store.AccountByCode(ctx, code)
	if err != nil {
		return model.Account{}, nil, err
	}
	return acct, []string{code}, nil
}

// cashBalanceBefore is the cash balance brought into the period, summed
// from the other sides of the cash transactions so it agrees with the
// register rows.
func (e *Engine) cashBalanceBefore(ctx context.Context, p *period.Period, prefixes []string) (decimal.Decimal, error) {
	if !startsAfterEpoch(p) {
		return decimal.Zero, nil
	}
	debit, credit, err := e.store.Sum(ctx, store.RecordFilter{Before: p.Start, CashPrefixes: prefixes})
	if err != nil {
		return decimal.Zero, err
	}
	return credit.Sub(debit), nil
}

// Cash computes the cash register of the account with code over p.
func (e *Engine) Cash(ctx context.Context, p *period.Period, code string) (*CashReport, error) {
	acct, prefixes, err := e.cashAccount(ctx, code)
	if err != nil {
		return nil, err
	}

	entries, err := e.records(ctx, store.RecordFilter{From: p.Start, To: p.End, CashPrefixes: prefixes})
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Debit, entries[i].Credit = entries[i].Credit, entries[i].Debit
	}

	seed, err := e.cashBalanceBefore(ctx, p, prefixes)
	if err != nil {
		return nil, err
	}

	r := &CashReport{Account: acct, Entries: entries}
	if startsAfterEpoch(p) {
		bf := broughtForward(p.Start, acct, seed, false)
		r.BroughtForward = &bf
	}
	closing := walk(r.Entries, seed, false)
	r.Total = totalOf(r.Entries, closing)
	return r, nil
}

// CashSummary totals the cash register of the account with code month by
// month.
func (e *Engine) CashSummary(ctx context.Context, p *period.Period, code string) (*MonthlyReport, error) {
	acct, prefixes, err := e.cashAccount(ctx, code)
	if err != nil {
		return nil, err
	}
	months, err := e.store.MonthlyTotals(ctx, store.RecordFilter{From: p.Start, To: p.End, CashPrefixes: prefixes})
	if err != nil {
		return nil, err
	}
	for i := range months {
		months[i].Debit, months[i].Credit = months[i].Credit, months[i].Debit
	}
	seed, err := e.cashBalanceBefore(ctx, p, prefixes)
	if err != nil {
		return nil, err
	}

	r := &MonthlyReport{Account: acct, BroughtForward: seed}
	r.Months, r.Total = rollupMonths(months, seed, false)
	return r, nil
}

// rollupMonths turns monthly totals into rows with each month's balance
// and the cumulative balance from seed, plus a grand total row.
func rollupMonths(months []store.MonthTotal, seed decimal.Decimal, creditNormal bool) ([]MonthRow, MonthRow) {
	rows := make([]MonthRow, 0, len(months))
	total := MonthRow{Debit: decimal.Zero, Credit: decimal.Zero, Balance: decimal.Zero, Cumulative: seed}
	cumulative := seed
	for _, m := range months {
		balance := signedBalance(m.Debit, m.Credit, creditNormal)
		cumulative = cumulative.Add(balance)
		rows = append(rows, MonthRow{
			Month:      m.Month,
			Debit:      m.Debit,
			Credit:     m.Credit,
			Balance:    balance,
			Cumulative: cumulative,
		})
		total.Debit = total.Debit.Add(m.Debit)
		total.Credit = total.Credit.Add(m.Credit)
		total.Balance = total.Balance.Add(balance)
	}
	total.Cumulative = cumulative
	return rows, total
}
