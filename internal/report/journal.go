package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/imacat/mia-accounting-django-sub000/internal/model"
	"github.com/imacat/mia-accounting-django-sub000/internal/period"
	"github.com/imacat/mia-accounting-django-sub000/internal/store"
)

// JournalReport lists every record of a period in posting order, preceded
// by the balances of the balance-sheet accounts brought into it.
type JournalReport struct {
	BroughtForward []Entry
	Entries        []Entry
	Total          Entry
	Warnings       []string
}

// accountBalance is an account with its balance, debit minus credit.
type accountBalance struct {
	Account model.Account
	Balance decimal.Decimal
}

// isFolded reports whether an account's balance closes into the
// accumulated balance account: income statement accounts and the net
// change account.
func (e *Engine) isFolded(code string) bool {
	return model.IsNominal(code) || code == e.acct.NetChangeAccount
}

// foldBalances turns account totals into balance-sheet balances. Folded
// accounts are summed into the accumulated balance account. Zero balances
// are dropped and the rest ordered by code.
func (e *Engine) foldBalances(totals []store.AccountTotal, chart map[string]model.Account) ([]accountBalance, []string) {
	byCode := make(map[string]*accountBalance)
	folded := decimal.Zero
	for _, t := range totals {
		if e.isFolded(t.Account.Code) {
			folded = folded.Add(t.Balance())
			continue
		}
		byCode[t.Account.Code] = &accountBalance{Account: t.Account, Balance: t.Balance()}
	}

	var warnings []string
	if !folded.IsZero() {
		code := e.acct.AccumulatedBalanceAccount
		if b, ok := byCode[code]; ok {
			b.Balance = b.Balance.Add(folded)
		} else {
			acct, warn := designated(chart, code, "Accumulated balance")
			if warn != "" {
				warnings = append(warnings, warn)
			}
			byCode[code] = &accountBalance{Account: acct, Balance: folded}
		}
	}

	out := make([]accountBalance, 0, len(byCode))
	for _, b := range byCode {
		if !b.Balance.IsZero() {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account.Code < out[j].Account.Code })
	return out, warnings
}

// Journal computes the journal of p.
func (e *Engine) Journal(ctx context.Context, p *period.Period) (*JournalReport, error) {
	r := &JournalReport{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		r.Entries, err = e.records(gctx, store.RecordFilter{From: p.Start, To: p.End})
		return err
	})
	var (
		opening []store.AccountTotal
		chart   map[string]model.Account
	)
	if startsAfterEpoch(p) {
		g.Go(func() error {
			var err error
			opening, err = e.store.SumByAccount(gctx, store.RecordFilter{Before: p.Start})
			return err
		})
		g.Go(func() error {
			var err error
			chart, err = e.chart(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	balances, warnings := e.foldBalances(opening, chart)
	r.Warnings = warnings
	debit, credit := decimal.Zero, decimal.Zero
	for _, b := range balances {
		bf := broughtForward(p.Start, b.Account, b.Balance, false)
		debit = debit.Add(bf.Debit)
		credit = credit.Add(bf.Credit)
		r.BroughtForward = append(r.BroughtForward, bf)
	}
	if !debit.Equal(credit) {
		r.Warnings = append(r.Warnings, fmt.Sprintf("brought-forward debits %s do not equal credits %s",
			debit.StringFixed(2), credit.StringFixed(2)))
	}

	r.Total = totalOf(r.Entries, decimal.Zero)
	return r, nil
}
