// Package report computes the bookkeeping reports: the cash and ledger
// registers with their monthly summaries, the journal, the trial balance,
// the income statement, the balance sheet and record search. Every report
// is a read-only computation over the store made fresh on each call.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/imacat/mia-accounting-django-sub000/internal/apperr"
	"github.com/imacat/mia-accounting-django-sub000/internal/config"
	"github.com/imacat/mia-accounting-django-sub000/internal/metrics"
	"github.com/imacat/mia-accounting-django-sub000/internal/model"
	"github.com/imacat/mia-accounting-django-sub000/internal/period"
	"github.com/imacat/mia-accounting-django-sub000/internal/store"
)

// Report kinds.
const (
	KindCash            = "cash"
	KindCashSummary     = "cash-summary"
	KindLedger          = "ledger"
	KindLedgerSummary   = "ledger-summary"
	KindJournal         = "journal"
	KindTrialBalance    = "trial-balance"
	KindIncomeStatement = "income-statement"
	KindBalanceSheet    = "balance-sheet"
	KindSearch          = "search"
)

// Kinds lists every report kind.
var Kinds = []string{
	KindCash, KindCashSummary, KindLedger, KindLedgerSummary, KindJournal,
	KindTrialBalance, KindIncomeStatement, KindBalanceSheet, KindSearch,
}

// AllCash is the pseudo account code of the combined cash report.
const AllCash = "0"

// Request selects a report.
type Request struct {
	Kind        string `validate:"required,oneof=cash cash-summary ledger ledger-summary journal trial-balance income-statement balance-sheet search"`
	PeriodSpec  string `validate:"max=21"`
	AccountCode string `validate:"omitempty,numeric,max=5"`
	Query       string `validate:"required_if=Kind search,max=128"`
	Page        int    `validate:"gte=0"`
	PageSize    int    `validate:"gte=0,lte=100"`
}

// Page is the pagination metadata of a paginated report.
type Page struct {
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// Result is a computed report. Report holds one of *CashReport,
// *LedgerReport, *MonthlyReport, *JournalReport, *TrialBalance,
// *IncomeStatement, *BalanceSheet or *SearchResult.
type Result struct {
	Kind   string
	Period *period.Period
	Report any
	Page   *Page
}

// Engine computes reports from the store.
type Engine struct {
	store    *store.Store
	acct     config.AccountingConfig
	pageSize int
	metrics  *metrics.Metrics
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewEngine creates an Engine. m may be nil.
func NewEngine(s *store.Store, cfg *config.Config, m *metrics.Metrics, log *zap.Logger) *Engine {
	return &Engine{
		store:    s,
		acct:     cfg.Accounting,
		pageSize: cfg.Reports.PageSize,
		metrics:  m,
		log:      log.Named("report"),
		validate: validator.New(),
		now:      time.Now,
	}
}

// Run validates req, resolves its period and computes the report.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	if err := e.validate.Struct(req); err != nil {
		return nil, apperr.ErrInvalidInput.WithMessage("invalid report request").WithError(err)
	}
	start := time.Now()
	defer e.metrics.ObserveRender(req.Kind, start)

	res := &Result{Kind: req.Kind}
	if req.Kind == KindSearch {
		sr, page, err := e.Search(ctx, req.Query, req.Page, req.PageSize)
		if err != nil {
			return nil, err
		}
		res.Report, res.Page = sr, page
		return res, nil
	}

	p, err := e.Period(ctx, req.PeriodSpec)
	if err != nil {
		return nil, err
	}
	res.Period = p

	code := req.AccountCode
	if code == "" {
		code = e.acct.CashAccount
	}

	switch req.Kind {
	case KindCash:
		r, err := e.Cash(ctx, p, code)
		if err != nil {
			return nil, err
		}
		r.Entries, res.Page = paginate(r.Entries, req.Page, e.size(req.PageSize))
		res.Report = r
	case KindCashSummary:
		res.Report, err = e.CashSummary(ctx, p, code)
	case KindLedger:
		r, err := e.Ledger(ctx, p, code)
		if err != nil {
			return nil, err
		}
		r.Entries, res.Page = paginate(r.Entries, req.Page, e.size(req.PageSize))
		res.Report = r
	case KindLedgerSummary:
		res.Report, err = e.LedgerSummary(ctx, p, code)
	case KindJournal:
		r, err := e.Journal(ctx, p)
		if err != nil {
			return nil, err
		}
		r.Entries, res.Page = paginate(r.Entries, req.Page, e.size(req.PageSize))
		res.Report = r
	case KindTrialBalance:
		res.Report, err = e.TrialBalance(ctx, p)
	case KindIncomeStatement:
		res.Report, err = e.IncomeStatement(ctx, p)
	case KindBalanceSheet:
		res.Report, err = e.BalanceSheet(ctx, p)
	}
	if err != nil {
		return nil, err
	}
	e.log.Debug("report rendered", zap.String("kind", req.Kind), zap.String("period", p.Spec), zap.Duration("took", time.Since(start)))
	return res, nil
}

// Period resolves spec against today and the span of stored data.
func (e *Engine) Period(ctx context.Context, spec string) (*period.Period, error) {
	first, last, err := e.store.DataRange(ctx)
	if err != nil {
		return nil, err
	}
	return period.Parse(spec, e.now(), period.DataRange{Start: first, End: last})
}

func (e *Engine) size(requested int) int {
	if requested > 0 {
		return requested
	}
	return e.pageSize
}

// paginate returns one page of items. Pages below 1 mean the first page;
// sizes outside 1..100 fall back to 10 and 100.
func paginate[T any](items []T, page, size int) ([]T, *Page) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	if size > 100 {
		size = 100
	}
	p := &Page{Page: page, PageSize: size, TotalItems: len(items)}
	p.TotalPages = (len(items) + size - 1) / size
	if p.TotalPages == 0 {
		p.TotalPages = 1
	}
	from := (page - 1) * size
	if from >= len(items) {
		return nil, p
	}
	to := from + size
	if to > len(items) {
		to = len(items)
	}
	return items[from:to], p
}

// records lists the filtered records as entries, annotated with the
// ledger-wide diagnostics fetched alongside them.
func (e *Engine) records(ctx context.Context, f store.RecordFilter) ([]Entry, error) {
	var (
		rows []store.RecordRow
		diag *Diagnostics
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = e.store.ListRecords(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		diag, err = loadDiagnostics(gctx, e.store.Queries)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = entryOf(r)
	}
	diag.annotate(entries)
	return entries, nil
}

// chart loads every account keyed by code.
func (e *Engine) chart(ctx context.Context) (map[string]model.Account, error) {
	all, err := e.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Account, len(all))
	for _, a := range all {
		out[a.Code] = a
	}
	return out, nil
}

// designated returns the configured account with code, or a stand-in and
// a warning when the chart lacks it.
func designated(chart map[string]model.Account, code, title string) (model.Account, string) {
	if a, ok := chart[code]; ok {
		return a, ""
	}
	return model.Account{Code: code, Title: title},
		fmt.Sprintf("designated account %s (%s) is missing from the chart of accounts", code, title)
}

// startsAfterEpoch reports whether anything can precede the period.
func startsAfterEpoch(p *period.Period) bool {
	return p.Start.After(period.Epoch)
}
