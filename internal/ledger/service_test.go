package ledger

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/imacat/mia-accounting-django-sub000/internal/accounts"
	"github.com/imacat/mia-accounting-django-sub000/internal/apperr"
	"github.com/imacat/mia-accounting-django-sub000/internal/config"
	"github.com/imacat/mia-accounting-django-sub000/internal/metrics"
	"github.com/imacat/mia-accounting-django-sub000/internal/model"
	"github.com/imacat/mia-accounting-django-sub000/internal/store"
)

type fixture struct {
	svc     *Service
	store   *store.Store
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := zaptest.NewLogger(t)
	s, err := store.Open(ctx, config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "mia.db")}, log)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = accounts.NewRegistry(s).Import(ctx, accounts.DefaultChart())
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	return &fixture{
		svc:     NewService(s, config.Default().Accounting, m, log),
		store:   s,
		metrics: m,
	}
}

func day(s string) time.Time {
	d, err := time.Parse(model.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return d
}

func debit(order int, code, amount string) Line {
	return Line{Side: model.SideDebit, Order: order, AccountCode: code, Amount: amount}
}

func credit(order int, code, amount string) Line {
	return Line{Side: model.SideCredit, Order: order, AccountCode: code, Amount: amount}
}

// linesOf turns a stored transaction back into submitted lines.
func linesOf(txn model.Transaction) []Line {
	var lines []Line
	for _, r := range txn.Records() {
		lines = append(lines, Line{
			ID: r.ID, Side: r.Side(), Order: r.Ord,
			AccountCode: r.AccountCode, Summary: r.Summary, Amount: r.Amount.String(),
		})
	}
	return lines
}

func (f *fixture) expense(t *testing.T, date string, amount string) int64 {
	t.Helper()
	id, err := f.svc.Submit(context.Background(), SubmitRequest{
		Type: model.TypeExpense, Date: date, Lines: []Line{debit(1, "6272", amount)},
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) ords(t *testing.T, date string) map[int64]int {
	t.Helper()
	txns, err := f.store.TransactionsOn(context.Background(), day(date))
	require.NoError(t, err)
	out := make(map[int64]int, len(txns))
	for _, txn := range txns {
		out[txn.ID] = txn.Ord
	}
	return out
}

func TestSubmitExpenseGeneratesCashCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.Submit(ctx, SubmitRequest{
		Type:  model.TypeExpense,
		Date:  "2023-01-05",
		Lines: []Line{debit(1, "6272", "80")},
	})
	require.NoError(t, err)

	txn, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, day("2023-01-05"), txn.Date)
	assert.Equal(t, 1, txn.Ord)

	require.Len(t, txn.Debits, 1)
	assert.Equal(t, "6272", txn.Debits[0].AccountCode)
	assert.Equal(t, 1, txn.Debits[0].Ord)
	assert.Equal(t, "80", txn.Debits[0].Amount.String())

	require.Len(t, txn.Credits, 1)
	assert.Equal(t, "1111", txn.Credits[0].AccountCode)
	assert.Equal(t, 1, txn.Credits[0].Ord)
	assert.Equal(t, "80", txn.Credits[0].Amount.String())
	assert.Empty(t, txn.Credits[0].Summary)

	assert.Equal(t, model.TypeExpense, f.svc.TypeOf(txn))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Submissions.WithLabelValues("expense", "ok")))
}

func TestSubmitIncomeSumsLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.Submit(ctx, SubmitRequest{
		Type: model.TypeIncome,
		Date: "2023-01-05",
		Lines: []Line{
			{Side: model.SideCredit, Order: 1, AccountCode: "4111", Summary: "Widgets", Amount: "120.25"},
			credit(2, "7111", "3"),
		},
	})
	require.NoError(t, err)

	txn, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, txn.Debits, 1)
	assert.Equal(t, "1111", txn.Debits[0].AccountCode)
	assert.Equal(t, "123.25", txn.Debits[0].Amount.String())
	require.Len(t, txn.Credits, 2)
	assert.Equal(t, "Widgets", txn.Credits[0].Summary)
	assert.Equal(t, 2, txn.Credits[1].Ord)
	assert.Equal(t, model.TypeIncome, f.svc.TypeOf(txn))
}

func TestSubmitImbalancedTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, SubmitRequest{
		Type:  model.TypeTransfer,
		Date:  "2023-01-05",
		Lines: []Line{debit(1, "6272", "400"), credit(1, "1113", "380")},
	})
	var fail *ValidationFailure
	require.ErrorAs(t, err, &fail)
	assert.Empty(t, fail.FieldErrors)
	require.Len(t, fail.FormErrors, 1)
	assert.Equal(t, CodeImbalanced, fail.FormErrors[0].Code)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	assert.Empty(t, f.ords(t, "2023-01-05"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Submissions.WithLabelValues("transfer", "invalid")))
}

func TestSubmitCollectsEveryViolation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), SubmitRequest{
		Type: model.TypeTransfer,
		Date: "2023-02-30",
		Lines: []Line{
			debit(1, "9999", "10"),
			debit(2, "627", "10"),
			debit(3, "4111", "10"),
			debit(4, "6272", "abc"),
			credit(1, "1111", "0.5"),
			credit(2, "1111", "1.005"),
			{Side: model.SideCredit, Order: 3, AccountCode: "1111", Amount: "5", Summary: strings.Repeat("x", MaxSummaryLen+1)},
		},
	})
	var fail *ValidationFailure
	require.ErrorAs(t, err, &fail)
	assert.Empty(t, fail.FormErrors, "imbalance is not checked while amounts are invalid")

	got := make(map[string]FieldError)
	for _, e := range fail.FieldErrors {
		got[e.Code] = e
	}
	assert.Len(t, fail.FieldErrors, 8)
	assert.Equal(t, "date", got[CodeInvalidDate].Field)
	assert.Equal(t, FieldError{Side: model.SideDebit, Line: 1, Field: "account", Code: CodeAccountNotFound}, withoutMessage(got[CodeAccountNotFound]))
	assert.Equal(t, 2, got[CodeAccountIsParent].Line)
	assert.Equal(t, 3, got[CodeAccountSideMismatch].Line)
	assert.Equal(t, 4, got[CodeAmountInvalid].Line)
	assert.Equal(t, model.SideCredit, got[CodeAmountTooSmall].Side)
	assert.Equal(t, 2, got[CodeAmountPrecision].Line)
	assert.Equal(t, "summary", got[CodeSummaryTooLong].Field)
}

func withoutMessage(e FieldError) FieldError {
	e.Message = ""
	return e
}

func TestSubmitSideRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   SubmitRequest
		codes []string
	}{
		{
			name:  "income takes no debit lines",
			req:   SubmitRequest{Type: model.TypeIncome, Date: "2023-01-05", Lines: []Line{debit(1, "6272", "5"), credit(1, "4111", "5")}},
			codes: []string{CodeSideNotAllowed},
		},
		{
			name:  "income needs a credit line",
			req:   SubmitRequest{Type: model.TypeIncome, Date: "2023-01-05"},
			codes: []string{CodeMissingCredit},
		},
		{
			name:  "transfer needs both sides",
			req:   SubmitRequest{Type: model.TypeTransfer, Date: "2023-01-05"},
			codes: []string{CodeMissingDebit, CodeMissingCredit},
		},
		{
			name:  "unknown type",
			req:   SubmitRequest{Type: "gift", Date: "2023-01-05", Lines: []Line{debit(1, "6272", "5")}},
			codes: []string{CodeInvalidType},
		},
		{
			name:  "unknown transaction",
			req:   SubmitRequest{TransactionID: 404, Type: model.TypeExpense, Date: "2023-01-05", Lines: []Line{debit(1, "6272", "5")}},
			codes: []string{CodeTransactionNotFound},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Submit(ctx, tt.req)
			var fail *ValidationFailure
			require.ErrorAs(t, err, &fail)
			for _, code := range tt.codes {
				assert.True(t, fail.Has(code), "missing %s in %v", code, fail)
			}
		})
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Submissions.WithLabelValues("unknown", "invalid")))
}

func TestSubmitRecordOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.expense(t, "2023-01-05", "10")
	b := f.expense(t, "2023-01-05", "20")
	txnA, err := f.svc.Get(ctx, a)
	require.NoError(t, err)
	foreign := txnA.Debits[0].ID

	stolen := debit(1, "6272", "20")
	stolen.ID = foreign
	_, err = f.svc.Submit(ctx, SubmitRequest{TransactionID: b, Type: model.TypeExpense, Date: "2023-01-05", Lines: []Line{stolen}})
	var fail *ValidationFailure
	require.ErrorAs(t, err, &fail)
	assert.True(t, fail.Has(CodeRecordNotBelong))
	assert.False(t, fail.Has(CodeRecordNotFound))

	_, err = f.svc.Submit(ctx, SubmitRequest{Type: model.TypeExpense, Date: "2023-01-05", Lines: []Line{stolen}})
	require.ErrorAs(t, err, &fail)
	assert.True(t, fail.Has(CodeRecordNotBelong))

	ghost := debit(1, "6272", "20")
	ghost.ID = 99999
	_, err = f.svc.Submit(ctx, SubmitRequest{TransactionID: b, Type: model.TypeExpense, Date: "2023-01-05", Lines: []Line{ghost}})
	require.ErrorAs(t, err, &fail)
	assert.True(t, fail.Has(CodeRecordNotFound))
	assert.False(t, fail.Has(CodeRecordNotBelong))

	txnA2, err := f.svc.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, txnA, txnA2)
}

func TestSubmitEditReconcilesRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.Submit(ctx, SubmitRequest{
		Type: model.TypeExpense,
		Date: "2023-01-05",
		Lines: []Line{
			{Side: model.SideDebit, Order: 1, AccountCode: "6272", Summary: "Lunch", Amount: "80"},
			debit(2, "6281", "20"),
		},
	})
	require.NoError(t, err)
	before, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, before.Debits, 2)
	require.Len(t, before.Credits, 1)
	assert.Equal(t, "100", before.Credits[0].Amount.String())

	kept := Line{ID: before.Debits[0].ID, Side: model.SideDebit, Order: 1, AccountCode: "6272", Summary: "Lunch", Amount: "90"}
	added := debit(2, "6251", "15")
	_, err = f.svc.Submit(ctx, SubmitRequest{TransactionID: id, Type: model.TypeExpense, Date: "2023-01-05", Notes: "edited", Lines: []Line{added, kept}})
	require.NoError(t, err)

	after, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "edited", after.Notes)
	require.Len(t, after.Debits, 2)
	assert.Equal(t, before.Debits[0].ID, after.Debits[0].ID)
	assert.Equal(t, "90", after.Debits[0].Amount.String())
	assert.Equal(t, "6251", after.Debits[1].AccountCode)
	require.Len(t, after.Credits, 1)
	assert.Equal(t, before.Credits[0].ID, after.Credits[0].ID, "cash record keeps its identity")
	assert.Equal(t, "105", after.Credits[0].Amount.String())

	_, err = f.store.Record(ctx, before.Debits[1].ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestSubmitDateChangeMovesToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.expense(t, "2023-01-05", "1")
	b := f.expense(t, "2023-01-05", "2")
	c := f.expense(t, "2023-01-05", "3")
	d := f.expense(t, "2023-01-06", "4")

	txnB, err := f.svc.Get(ctx, b)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, SubmitRequest{
		TransactionID: b, Type: model.TypeExpense, Date: "2023-01-06",
		Lines: []Line{{ID: txnB.Debits[0].ID, Side: model.SideDebit, Order: 1, AccountCode: "6272", Amount: "2"}},
	})
	require.NoError(t, err)

	assert.Equal(t, map[int64]int{a: 1, c: 2}, f.ords(t, "2023-01-05"))
	assert.Equal(t, map[int64]int{d: 1, b: 2}, f.ords(t, "2023-01-06"))
}

func TestSubmitClosesExistingGap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.expense(t, "2023-01-05", "1")
	b := f.expense(t, "2023-01-05", "2")
	require.NoError(t, f.store.SetTransactionOrd(ctx, b, 3))
	require.Equal(t, map[int64]int{a: 1, b: 3}, f.ords(t, "2023-01-05"))

	c := f.expense(t, "2023-01-05", "3")
	assert.Equal(t, map[int64]int{a: 1, b: 2, c: 3}, f.ords(t, "2023-01-05"))

	require.NoError(t, f.store.SetTransactionOrd(ctx, c, 7))
	txnA, err := f.svc.Get(ctx, a)
	require.NoError(t, err)
	req := f.svc.RequestOf(txnA)
	req.Notes = "receipt attached"
	_, err = f.svc.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{a: 1, b: 2, c: 3}, f.ords(t, "2023-01-05"))
}

type countingWriter struct {
	*store.Queries
	inserts, updates, deletes int
}

func (w *countingWriter) InsertRecord(ctx context.Context, r model.Record) (int64, error) {
	w.inserts++
	return w.Queries.InsertRecord(ctx, r)
}

func (w *countingWriter) UpdateRecord(ctx context.Context, r model.Record) error {
	w.updates++
	return w.Queries.UpdateRecord(ctx, r)
}

func (w *countingWriter) DeleteRecord(ctx context.Context, id int64) error {
	w.deletes++
	return w.Queries.DeleteRecord(ctx, id)
}

func TestReconcileSkipsUnchangedRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.expense(t, "2023-01-05", "80")
	txn, err := f.svc.Get(ctx, id)
	require.NoError(t, err)

	run := func(p *plan) *countingWriter {
		t.Helper()
		w := &countingWriter{}
		require.NoError(t, f.store.InTx(ctx, func(q *store.Queries) error {
			w.Queries = q
			return reconcile(ctx, w, id, p)
		}))
		return w
	}

	w := run(&plan{date: txn.Date, existing: &txn, debits: txn.Debits, credits: txn.Credits})
	assert.Zero(t, w.inserts)
	assert.Zero(t, w.updates)
	assert.Zero(t, w.deletes)

	changed := append([]model.Record{}, txn.Debits...)
	changed[0].Summary = "Lunch"
	w = run(&plan{date: txn.Date, existing: &txn, debits: changed, credits: txn.Credits})
	assert.Equal(t, 1, w.updates)
	assert.Zero(t, w.inserts)
	assert.Zero(t, w.deletes)

	after, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Lunch", after.Debits[0].Summary)
	assert.Equal(t, txn.Credits, after.Credits)
}

func TestDeleteClosesGap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.expense(t, "2023-01-05", "1")
	b := f.expense(t, "2023-01-05", "2")
	c := f.expense(t, "2023-01-05", "3")
	require.Equal(t, map[int64]int{a: 1, b: 2, c: 3}, f.ords(t, "2023-01-05"))

	require.NoError(t, f.svc.Delete(ctx, b))
	assert.Equal(t, map[int64]int{a: 1, c: 2}, f.ords(t, "2023-01-05"))

	recs, err := f.store.RecordsOfTransaction(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, recs)

	err = f.svc.Delete(ctx, b)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Deletions))
}

func TestReorder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.expense(t, "2023-01-05", "1")
	b := f.expense(t, "2023-01-05", "2")
	c := f.expense(t, "2023-01-05", "3")
	other := f.expense(t, "2023-01-06", "4")

	require.NoError(t, f.svc.Reorder(ctx, day("2023-01-05"), []int64{c, a, b}))
	assert.Equal(t, map[int64]int{c: 1, a: 2, b: 3}, f.ords(t, "2023-01-05"))

	for _, ids := range [][]int64{{a, b}, {a, a, b}, {a, b, other}} {
		err := f.svc.Reorder(ctx, day("2023-01-05"), ids)
		assert.True(t, errors.Is(err, apperr.ErrInvalidInput), "%v", ids)
	}
	assert.Equal(t, map[int64]int{c: 1, a: 2, b: 3}, f.ords(t, "2023-01-05"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Reorders))
}

func TestLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.expense(t, "2023-01-05", "1")
	b := f.expense(t, "2023-01-05", "2")

	txn, err := f.svc.Lookup(ctx, "2023-01-05-002")
	require.NoError(t, err)
	assert.Equal(t, b, txn.ID)

	_, err = f.svc.Lookup(ctx, "2023-01-05-009")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.svc.Lookup(ctx, "yesterday")
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestRequestOfResubmitsUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.expense(t, "2023-01-05", "80.5")
	before, err := f.svc.Get(ctx, id)
	require.NoError(t, err)

	req := f.svc.RequestOf(before)
	assert.Equal(t, model.TypeExpense, req.Type)
	assert.Equal(t, "2023-01-05", req.Date)
	require.Len(t, req.Lines, 1)
	assert.Equal(t, "80.50", req.Lines[0].Amount)

	again, err := f.svc.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	after, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

// TestInvariantsHoldUnderRandomEdits runs a fixed pseudo-random mix of
// creates, edits, date moves, deletes and reorders, checking after every
// step that each date's order is dense and every transaction balances.
func TestInvariantsHoldUnderRandomEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	dates := []string{"2023-03-01", "2023-03-02", "2023-03-03"}
	var live []int64

	for step := 0; step < 60; step++ {
		switch op := rng.Intn(5); {
		case op <= 1 || len(live) == 0:
			n := rng.Intn(3) + 1
			var lines []Line
			total := 0
			for i := 1; i <= n; i++ {
				amt := rng.Intn(500) + 1
				total += amt
				lines = append(lines, debit(i, "6272", strconv.Itoa(amt)))
			}
			lines = append(lines, credit(1, "1113", strconv.Itoa(total)))
			id, err := f.svc.Submit(ctx, SubmitRequest{Type: model.TypeTransfer, Date: dates[rng.Intn(len(dates))], Lines: lines})
			require.NoError(t, err)
			live = append(live, id)
		case op == 2:
			i := rng.Intn(len(live))
			require.NoError(t, f.svc.Delete(ctx, live[i]))
			live = append(live[:i], live[i+1:]...)
		case op == 3:
			txn, err := f.svc.Get(ctx, live[rng.Intn(len(live))])
			require.NoError(t, err)
			_, err = f.svc.Submit(ctx, SubmitRequest{
				TransactionID: txn.ID, Type: model.TypeTransfer,
				Date: dates[rng.Intn(len(dates))], Lines: linesOf(txn),
			})
			require.NoError(t, err)
		default:
			date := day(dates[rng.Intn(len(dates))])
			txns, err := f.store.TransactionsOn(ctx, date)
			require.NoError(t, err)
			ids := make([]int64, len(txns))
			for i, txn := range txns {
				ids[i] = txn.ID
			}
			rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
			require.NoError(t, f.svc.Reorder(ctx, date, ids))
		}

		for _, d := range dates {
			ords := f.ords(t, d)
			list := make([]int, 0, len(ords))
			for _, o := range ords {
				list = append(list, o)
			}
			assert.True(t, model.IsDense(list), "step %d: %s has order %v", step, d, list)
		}
		totals, err := f.store.TransactionTotals(ctx)
		require.NoError(t, err)
		assert.Len(t, totals, len(live))
		for _, tt := range totals {
			assert.True(t, tt.Debit.Equal(tt.Credit), "step %d: transaction #%d unbalanced", step, tt.ID)
		}
	}
}
