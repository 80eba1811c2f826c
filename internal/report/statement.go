package report

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/imacat/mia-accounting-django-sub000/internal/apperr"
	"github.com/imacat/mia-accounting-django-sub000/internal/model"
	"github.com/imacat/mia-accounting-django-sub000/internal/period"
	"github.com/imacat/mia-accounting-django-sub000/internal/store"
)

// BalanceRow is one account of the trial balance, shown in a single
// column by the sign of its balance.
type BalanceRow struct {
	Account model.Account
	Debit   decimal.Decimal
	Credit  decimal.Decimal
}

// TrialBalance lists every account balance at the end of a period.
type TrialBalance struct {
	Rows     []BalanceRow
	Total    BalanceRow
	Warnings []string
}

// AccountLine is one account of a financial statement.
type AccountLine struct {
	Account model.Account
	Amount  decimal.Decimal
	// IsParentAndInUse marks an account with sub-accounts that also carries
	// records of its own. Amount covers only its own records.
	IsParentAndInUse bool
}

// Group is a two-digit account group of a statement section.
type Group struct {
	Code     string
	Title    string
	Accounts []AccountLine
	Total    decimal.Decimal
}

// Subtotal is a running total carried across sections.
type Subtotal struct {
	Title  string
	Amount decimal.Decimal
}

// Section is a one-digit section of a financial statement.
type Section struct {
	Code   string
	Title  string
	Groups []Group
	Total  decimal.Decimal
	// Cumulative is set on the sections closing a subtotal.
	Cumulative *Subtotal
}

// IncomeStatement is the result of operations over a period.
type IncomeStatement struct {
	Sections []Section
	Net      decimal.Decimal
}

// BalanceSheet is the financial position at the end of a period.
type BalanceSheet struct {
	Assets               Section
	Liabilities          Section
	Equity               Section
	LiabilitiesAndEquity decimal.Decimal
	Warnings             []string
}

// Balanced reports whether assets equal liabilities plus equity.
func (b *BalanceSheet) Balanced() bool {
	return b.Assets.Total.Equal(b.LiabilitiesAndEquity)
}

// incomeSections are the income statement sections in order, with the
// subtotal closing each.
var incomeSections = []struct {
	code     string
	subtotal string
}{
	{"4", ""},
	{"5", "Gross income"},
	{"6", "Operating income"},
	{"7", "Income before tax"},
	{"8", "Income after tax"},
	{"9", "Net income"},
}

// totals returns the account totals up to the end of p and those within p.
func (e *Engine) totals(ctx context.Context, p *period.Period) (asOfEnd, during []store.AccountTotal, chart map[string]model.Account, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		asOfEnd, err = e.store.SumByAccount(gctx, store.RecordFilter{To: p.End})
		return err
	})
	g.Go(func() error {
		var err error
		during, err = e.store.SumByAccount(gctx, store.RecordFilter{From: p.Start, To: p.End})
		return err
	})
	g.Go(func() error {
		var err error
		chart, err = e.chart(gctx)
		return err
	})
	err = g.Wait()
	return asOfEnd, during, chart, err
}

// TrialBalance computes the trial balance of p: balance-sheet accounts as
// of the end of p and income statement accounts for the activity within
// p. Activity of earlier periods sits in the accumulated balance account.
func (e *Engine) TrialBalance(ctx context.Context, p *period.Period) (*TrialBalance, error) {
	asOfEnd, during, chart, err := e.totals(ctx, p)
	if err != nil {
		return nil, err
	}

	// Folded accounts carry only their activity before p into the
	// accumulated balance: the reversed activity within p cancels the rest.
	combined := append([]store.AccountTotal{}, asOfEnd...)
	for _, t := range during {
		if e.isFolded(t.Account.Code) {
			combined = append(combined, store.AccountTotal{Account: t.Account, Debit: t.Credit, Credit: t.Debit})
		}
	}
	balances, warnings := e.foldBalances(combined, chart)

	tb := &TrialBalance{Warnings: warnings, Total: BalanceRow{Debit: decimal.Zero, Credit: decimal.Zero}}
	for _, b := range balances {
		tb.Rows = append(tb.Rows, balanceRow(b.Account, b.Balance))
	}
	for _, t := range during {
		if e.isFolded(t.Account.Code) && !t.Balance().IsZero() {
			tb.Rows = append(tb.Rows, balanceRow(t.Account, t.Balance()))
		}
	}
	sort.SliceStable(tb.Rows, func(i, j int) bool { return tb.Rows[i].Account.Code < tb.Rows[j].Account.Code })

	for _, r := range tb.Rows {
		tb.Total.Debit = tb.Total.Debit.Add(r.Debit)
		tb.Total.Credit = tb.Total.Credit.Add(r.Credit)
	}
	if !tb.Total.Debit.Equal(tb.Total.Credit) {
		e.log.Error("trial balance does not balance")
		return nil, apperr.Invariant("trial balance debit total %s does not equal credit total %s",
			tb.Total.Debit.StringFixed(2), tb.Total.Credit.StringFixed(2))
	}
	return tb, nil
}

func balanceRow(acct model.Account, balance decimal.Decimal) BalanceRow {
	r := BalanceRow{Account: acct, Debit: decimal.Zero, Credit: decimal.Zero}
	if balance.IsNegative() {
		r.Credit = balance.Neg()
	} else {
		r.Debit = balance
	}
	return r
}

// IncomeStatement computes the income statement of p.
func (e *Engine) IncomeStatement(ctx context.Context, p *period.Period) (*IncomeStatement, error) {
	_, during, chart, err := e.totals(ctx, p)
	if err != nil {
		return nil, err
	}

	var lines []AccountLine
	for _, t := range during {
		if !model.IsNominal(t.Account.Code) {
			continue
		}
		amount := t.Credit.Sub(t.Debit)
		if amount.IsZero() {
			continue
		}
		lines = append(lines, AccountLine{Account: t.Account, Amount: amount})
	}

	codes := make([]string, len(incomeSections))
	for i, s := range incomeSections {
		codes[i] = s.code
	}
	is := &IncomeStatement{Sections: rollupSections(lines, codes, chart)}

	cumulative := decimal.Zero
	for i := range is.Sections {
		cumulative = cumulative.Add(is.Sections[i].Total)
		if title := incomeSections[i].subtotal; title != "" {
			is.Sections[i].Cumulative = &Subtotal{Title: title, Amount: cumulative}
		}
	}
	is.Net = cumulative
	return is, nil
}

// BalanceSheet computes the balance sheet at the end of p. Income of
// earlier periods is shown on the accumulated balance account and income
// of p on the net change account.
func (e *Engine) BalanceSheet(ctx context.Context, p *period.Period) (*BalanceSheet, error) {
	asOfEnd, during, chart, err := e.totals(ctx, p)
	if err != nil {
		return nil, err
	}

	amounts := make(map[string]*AccountLine)
	var order []string
	add := func(acct model.Account, amount decimal.Decimal) {
		l, ok := amounts[acct.Code]
		if !ok {
			l = &AccountLine{Account: acct, Amount: decimal.Zero}
			amounts[acct.Code] = l
			order = append(order, acct.Code)
		}
		l.Amount = l.Amount.Add(amount)
	}

	prior, current := decimal.Zero, decimal.Zero
	for _, t := range asOfEnd {
		code := t.Account.Code
		switch {
		case model.IsNominal(code):
			prior = prior.Add(t.Credit.Sub(t.Debit))
		case model.Section(code) == "1":
			add(t.Account, t.Debit.Sub(t.Credit))
		default:
			add(t.Account, t.Credit.Sub(t.Debit))
		}
	}
	for _, t := range during {
		if model.IsNominal(t.Account.Code) {
			current = current.Add(t.Credit.Sub(t.Debit))
		}
	}
	prior = prior.Sub(current)

	bs := &BalanceSheet{}
	for _, inj := range []struct {
		code, title string
		amount      decimal.Decimal
	}{
		{e.acct.AccumulatedBalanceAccount, "Accumulated balance", prior},
		{e.acct.NetChangeAccount, "Net income or loss for current period", current},
	} {
		if inj.amount.IsZero() {
			continue
		}
		acct, warn := designated(chart, inj.code, inj.title)
		if warn != "" {
			bs.Warnings = append(bs.Warnings, warn)
		}
		add(acct, inj.amount)
	}

	lines := make([]AccountLine, 0, len(order))
	for _, code := range order {
		if l := amounts[code]; !l.Amount.IsZero() {
			lines = append(lines, *l)
		}
	}
	sections := rollupSections(lines, []string{"1", "2", "3"}, chart)
	bs.Assets, bs.Liabilities, bs.Equity = sections[0], sections[1], sections[2]
	bs.LiabilitiesAndEquity = bs.Liabilities.Total.Add(bs.Equity.Total)
	return bs, nil
}

// rollupSections groups account lines into the given one-digit sections
// and their two-digit groups, summing each level. Every listed section is
// returned, empty or not, in the given order.
func rollupSections(lines []AccountLine, sectionCodes []string, chart map[string]model.Account) []Section {
	parents := make(map[string]bool, len(chart))
	for code := range chart {
		parents[model.ParentCode(code)] = true
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].Account.Code < lines[j].Account.Code })

	sections := make([]Section, len(sectionCodes))
	index := make(map[string]int, len(sectionCodes))
	for i, code := range sectionCodes {
		sections[i] = Section{Code: code, Title: chart[code].Title, Total: decimal.Zero}
		index[code] = i
	}

	for _, l := range lines {
		i, ok := index[model.Section(l.Account.Code)]
		if !ok {
			continue
		}
		l.IsParentAndInUse = parents[l.Account.Code]
		s := &sections[i]
		groupCode := model.Group(l.Account.Code)
		if n := len(s.Groups); n == 0 || s.Groups[n-1].Code != groupCode {
			s.Groups = append(s.Groups, Group{Code: groupCode, Title: chart[groupCode].Title, Total: decimal.Zero})
		}
		g := &s.Groups[len(s.Groups)-1]
		g.Accounts = append(g.Accounts, l)
		g.Total = g.Total.Add(l.Amount)
		s.Total = s.Total.Add(l.Amount)
	}
	return sections
}
