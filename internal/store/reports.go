package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imacat/mia-accounting-django-sub000/internal/model"
)

// RecordFilter narrows the records a report reads. Zero values mean no
// restriction.
type RecordFilter struct {
	From time.Time // inclusive
	To   time.Time // inclusive
	// Before restricts to dates strictly earlier than it.
	Before time.Time
	// AccountPrefix keeps records whose account code starts with it.
	AccountPrefix string
	// CashPrefixes keeps the records of transactions that touch an account
	// under one of the prefixes, minus the records on those accounts.
	CashPrefixes []string
	// ExcludeCodes drops records on these exact account codes.
	ExcludeCodes []string
}

func (f RecordFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !f.From.IsZero() {
		conds = append(conds, "t.date >= ?")
		args = append(args, formatDate(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "t.date <= ?")
		args = append(args, formatDate(f.To))
	}
	if !f.Before.IsZero() {
		conds = append(conds, "t.date < ?")
		args = append(args, formatDate(f.Before))
	}
	if f.AccountPrefix != "" {
		conds = append(conds, "a.code LIKE ?")
		args = append(args, f.AccountPrefix+"%")
	}
	if len(f.CashPrefixes) > 0 {
		inner, innerArgs := likeAny("a2.code", f.CashPrefixes)
		conds = append(conds, "t.id IN (SELECT r2.transaction_id FROM records r2"+
			" JOIN accounts a2 ON a2.id = r2.account_id WHERE "+inner+")")
		args = append(args, innerArgs...)
		outer, outerArgs := likeAny("a.code", f.CashPrefixes)
		conds = append(conds, "NOT "+outer)
		args = append(args, outerArgs...)
	}
	if len(f.ExcludeCodes) > 0 {
		conds = append(conds, "a.code NOT IN ("+placeholders(len(f.ExcludeCodes))+")")
		for _, c := range f.ExcludeCodes {
			args = append(args, c)
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func likeAny(col string, prefixes []string) (string, []any) {
	parts := make([]string, len(prefixes))
	args := make([]any, len(prefixes))
	for i, p := range prefixes {
		parts[i] = col + " LIKE ?"
		args[i] = p + "%"
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

const recordJoins = " FROM records r JOIN transactions t ON t.id = r.transaction_id JOIN accounts a ON a.id = r.account_id"

const (
	sumDebit  = "COALESCE(SUM(CASE WHEN r.is_credit THEN 0 ELSE r.amount_cents END), 0)"
	sumCredit = "COALESCE(SUM(CASE WHEN r.is_credit THEN r.amount_cents ELSE 0 END), 0)"
)

// RecordRow is a record with its transaction header.
type RecordRow struct {
	model.Record
	Date           time.Time
	TransactionOrd int
	Notes          string
}

// ListRecords returns the filtered records ordered by date, transaction
// order, side (debits first) and record order.
func (q *Queries) ListRecords(ctx context.Context, f RecordFilter) ([]RecordRow, error) {
	where, args := f.where()
	return q.listRows(ctx,
		"SELECT "+recordColumns+", t.date, t.ord, t.notes"+recordJoins+where+
			" ORDER BY t.date, t.ord, t.id, r.is_credit, r.ord, r.id", args...)
}

func (q *Queries) listRows(ctx context.Context, query string, args ...any) ([]RecordRow, error) {
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []RecordRow
	for rows.Next() {
		var (
			row  RecordRow
			date string
		)
		rec, err := scanRecord(rows, &date, &row.TransactionOrd, &row.Notes)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		row.Record = rec
		if row.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// AccountTotal is the debit and credit activity of one account.
type AccountTotal struct {
	Account model.Account
	Debit   decimal.Decimal
	Credit  decimal.Decimal
}

// Balance is debit minus credit.
func (t AccountTotal) Balance() decimal.Decimal {
	return t.Debit.Sub(t.Credit)
}

// SumByAccount totals the filtered records per account, ordered by code.
func (q *Queries) SumByAccount(ctx context.Context, f RecordFilter) ([]AccountTotal, error) {
	where, args := f.where()
	rows, err := q.query(ctx,
		"SELECT a.id, a.code, a.title, COALESCE(a.parent_id, 0), "+sumDebit+", "+sumCredit+recordJoins+where+
			" GROUP BY a.id, a.code, a.title, a.parent_id ORDER BY a.code", args...)
	if err != nil {
		return nil, fmt.Errorf("sum by account: %w", err)
	}
	defer rows.Close()

	var out []AccountTotal
	for rows.Next() {
		var (
			t             AccountTotal
			debit, credit int64
		)
		if err := rows.Scan(&t.Account.ID, &t.Account.Code, &t.Account.Title, &t.Account.ParentID, &debit, &credit); err != nil {
			return nil, fmt.Errorf("scan account total: %w", err)
		}
		t.Debit, t.Credit = fromCents(debit), fromCents(credit)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Sum totals the filtered records.
func (q *Queries) Sum(ctx context.Context, f RecordFilter) (debit, credit decimal.Decimal, err error) {
	where, args := f.where()
	var d, c int64
	if err := q.queryRow(ctx, "SELECT "+sumDebit+", "+sumCredit+recordJoins+where, args...).Scan(&d, &c); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("sum records: %w", err)
	}
	return fromCents(d), fromCents(c), nil
}

// MonthTotal is the activity of one calendar month.
type MonthTotal struct {
	Month  time.Time
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// MonthlyTotals totals the filtered records per calendar month.
func (q *Queries) MonthlyTotals(ctx context.Context, f RecordFilter) ([]MonthTotal, error) {
	where, args := f.where()
	month := q.d.TruncateToMonth("t.date")
	rows, err := q.query(ctx,
		"SELECT "+month+", "+sumDebit+", "+sumCredit+recordJoins+where+
			" GROUP BY "+month+" ORDER BY "+month, args...)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	var out []MonthTotal
	for rows.Next() {
		var (
			m             MonthTotal
			month         string
			debit, credit int64
		)
		if err := rows.Scan(&month, &debit, &credit); err != nil {
			return nil, fmt.Errorf("scan month total: %w", err)
		}
		if m.Month, err = parseDate(month); err != nil {
			return nil, err
		}
		m.Debit, m.Credit = fromCents(debit), fromCents(credit)
		out = append(out, m)
	}
	return out, rows.Err()
}

// TransactionTotal is the debit and credit sum of one transaction.
type TransactionTotal struct {
	ID     int64
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// TransactionTotals sums every transaction's sides.
func (q *Queries) TransactionTotals(ctx context.Context) ([]TransactionTotal, error) {
	rows, err := q.query(ctx,
		"SELECT r.transaction_id, "+sumDebit+", "+sumCredit+" FROM records r GROUP BY r.transaction_id")
	if err != nil {
		return nil, fmt.Errorf("transaction totals: %w", err)
	}
	defer rows.Close()

	var out []TransactionTotal
	for rows.Next() {
		var (
			t             TransactionTotal
			debit, credit int64
		)
		if err := rows.Scan(&t.ID, &debit, &credit); err != nil {
			return nil, fmt.Errorf("scan transaction total: %w", err)
		}
		t.Debit, t.Credit = fromCents(debit), fromCents(credit)
		out = append(out, t)
	}
	return out, rows.Err()
}

// DateOrd is the position of one transaction within its date.
type DateOrd struct {
	Date time.Time
	Ord  int
}

// DateOrders lists the ord of every transaction grouped by date.
func (q *Queries) DateOrders(ctx context.Context) ([]DateOrd, error) {
	rows, err := q.query(ctx, "SELECT date, ord FROM transactions ORDER BY date, ord")
	if err != nil {
		return nil, fmt.Errorf("date orders: %w", err)
	}
	defer rows.Close()

	var out []DateOrd
	for rows.Next() {
		var (
			d    DateOrd
			date string
		)
		if err := rows.Scan(&date, &d.Ord); err != nil {
			return nil, fmt.Errorf("scan date order: %w", err)
		}
		if d.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// OpenKey identifies an open item: an account and the summary its
// records share.
type OpenKey struct {
	AccountID int64
	Summary   string
}

// OpenBalances returns credit minus debit per (account, summary) for the
// accounts with the given codes.
func (q *Queries) OpenBalances(ctx context.Context, codes []string) (map[OpenKey]decimal.Decimal, error) {
	out := make(map[OpenKey]decimal.Decimal)
	if len(codes) == 0 {
		return out, nil
	}
	args := make([]any, len(codes))
	for i, c := range codes {
		args[i] = c
	}
	rows, err := q.query(ctx,
		"SELECT r.account_id, r.summary, "+sumCredit+" - "+sumDebit+
			" FROM records r JOIN accounts a ON a.id = r.account_id"+
			" WHERE a.code IN ("+placeholders(len(codes))+") GROUP BY r.account_id, r.summary", args...)
	if err != nil {
		return nil, fmt.Errorf("open balances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			k     OpenKey
			cents int64
		)
		if err := rows.Scan(&k.AccountID, &k.Summary, &cents); err != nil {
			return nil, fmt.Errorf("scan open balance: %w", err)
		}
		out[k] = fromCents(cents)
	}
	return out, rows.Err()
}

// SearchParams selects a page of search results.
type SearchParams struct {
	Query  string
	Limit  int
	Offset int
}

// SearchRecords matches q against account titles in every locale, account
// codes, summaries, notes, date prefixes and exact amounts. It returns one
// page in storage order plus the total match count.
func (q *Queries) SearchRecords(ctx context.Context, p SearchParams) ([]RecordRow, int, error) {
	term := strings.TrimSpace(p.Query)
	if term == "" {
		return nil, 0, nil
	}
	like := "%" + strings.ToLower(term) + "%"
	conds := []string{
		"LOWER(a.title) LIKE ?",
		"a.id IN (SELECT l.account_id FROM account_l10n l WHERE LOWER(l.title) LIKE ?)",
		"a.code LIKE ?",
		"LOWER(r.summary) LIKE ?",
		"LOWER(t.notes) LIKE ?",
		"t.date LIKE ?",
	}
	args := []any{like, like, term + "%", like, like, term + "%"}
	if amount, err := decimal.NewFromString(term); err == nil && amount.IsPositive() {
		conds = append(conds, "r.amount_cents = ?")
		args = append(args, toCents(amount))
	}
	where := " WHERE (" + strings.Join(conds, " OR ") + ")"

	var total int
	if err := q.queryRow(ctx, "SELECT COUNT(*)"+recordJoins+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count search results: %w", err)
	}

	pageArgs := append(append([]any{}, args...), p.Limit, p.Offset)
	rows, err := q.listRows(ctx,
		"SELECT "+recordColumns+", t.date, t.ord, t.notes"+recordJoins+where+
			" ORDER BY r.id LIMIT ? OFFSET ?", pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
