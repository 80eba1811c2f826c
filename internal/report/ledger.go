package report

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/imacat/mia-accounting-django-sub000/internal/model"
	"github.com/imacat/mia-accounting-django-sub000/internal/period"
	"github.com/imacat/mia-accounting-django-sub000/internal/store"
)

// LedgerReport is the register of one account and its sub-accounts.
type LedgerReport struct {
	Account        model.Account
	BroughtForward *Entry
	Entries        []Entry
	Total          Entry
}

// ledgerSeed is the balance of a balance-sheet account before the period.
// Income statement accounts start every period from zero.
func (e *Engine) ledgerSeed(ctx context.Context, p *period.Period, acct model.Account) (decimal.Decimal, bool, error) {
	if !model.IsReal(acct.Code) || !startsAfterEpoch(p) {
		return decimal.Zero, false, nil
	}
	debit, credit, err := e.store.Sum(ctx, store.RecordFilter{Before: p.Start, AccountPrefix: acct.Code})
	if err != nil {
		return decimal.Zero, false, err
	}
	return signedBalance(debit, credit, model.IsCreditNormal(acct.Code)), true, nil
}

// Ledger computes the register of the account with code over p.
func (e *Engine) Ledger(ctx context.Context, p *period.Period, code string) (*LedgerReport, error) {
	acct, err := e.store.AccountByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	creditNormal := model.IsCreditNormal(code)

	entries, err := e.records(ctx, store.RecordFilter{From: p.Start, To: p.End, AccountPrefix: code})
	if err != nil {
		return nil, err
	}
	if err := e.markOpenItems(ctx, entries); err != nil {
		return nil, err
	}

	seed, hasBF, err := e.ledgerSeed(ctx, p, acct)
	if err != nil {
		return nil, err
	}

	r := &LedgerReport{Account: acct, Entries: entries}
	if hasBF {
		bf := broughtForward(p.Start, acct, seed, creditNormal)
		r.BroughtForward = &bf
	}
	closing := walk(r.Entries, seed, creditNormal)
	r.Total = totalOf(r.Entries, closing)
	return r, nil
}

// LedgerSummary totals the register of the account with code month by
// month.
func (e *Engine) LedgerSummary(ctx context.Context, p *period.Period, code string) (*MonthlyReport, error) {
	acct, err := e.store.AccountByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	months, err := e.store.MonthlyTotals(ctx, store.RecordFilter{From: p.Start, To: p.End, AccountPrefix: code})
	if err != nil {
		return nil, err
	}
	seed, _, err := e.ledgerSeed(ctx, p, acct)
	if err != nil {
		return nil, err
	}

	r := &MonthlyReport{Account: acct, BroughtForward: seed}
	r.Months, r.Total = rollupMonths(months, seed, model.IsCreditNormal(code))
	return r, nil
}

// markOpenItems flags the records that open an item still outstanding. A
// credit on a payable account is open while its account and summary still
// carry a credit balance; a debit on an equipment account is existing
// equipment while they still carry a debit balance.
func (e *Engine) markOpenItems(ctx context.Context, entries []Entry) error {
	payable := codeSet(e.acct.PayableAccounts)
	equipment := codeSet(e.acct.EquipmentAccounts)

	var relevant []string
	seen := map[string]bool{}
	for _, en := range entries {
		c := en.Account.Code
		if (payable[c] || equipment[c]) && !seen[c] {
			seen[c] = true
			relevant = append(relevant, c)
		}
	}
	if len(relevant) == 0 {
		return nil
	}

	open, err := e.store.OpenBalances(ctx, relevant)
	if err != nil {
		return err
	}
	for i := range entries {
		en := &entries[i]
		key := store.OpenKey{AccountID: en.Account.ID, Summary: en.recordSummary}
		balance, ok := open[key]
		if !ok {
			continue
		}
		switch {
		case payable[en.Account.Code] && !en.Credit.IsZero() && balance.IsPositive():
			en.IsPayable = true
		case equipment[en.Account.Code] && !en.Debit.IsZero() && balance.IsNegative():
			en.IsExistingEquipment = true
		}
	}
	return nil
}

func codeSet(codes []string) map[string]bool {
	out := make(map[string]bool, len(codes))
	for _, c := range codes {
		out[c] = true
	}
	return out
}
