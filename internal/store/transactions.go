package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/imacat/mia-accounting-django-sub000/internal/apperr"
	"github.com/imacat/mia-accounting-django-sub000/internal/model"
)

const recordColumns = `r.id, r.transaction_id, r.is_credit, r.ord, r.account_id, a.code, a.title, r.summary, r.amount_cents`

func scanRecord(row interface{ Scan(...any) error }, extra ...any) (model.Record, error) {
	var (
		r     model.Record
		cents int64
	)
	dest := append([]any{&r.ID, &r.TransactionID, &r.IsCredit, &r.Ord, &r.AccountID,
		&r.AccountCode, &r.AccountTitle, &r.Summary, &cents}, extra...)
	if err := row.Scan(dest...); err != nil {
		return model.Record{}, err
	}
	r.Amount = fromCents(cents)
	return r, nil
}

// Transaction returns a transaction with its records, debits first.
func (q *Queries) Transaction(ctx context.Context, id int64) (model.Transaction, error) {
	var (
		t    model.Transaction
		date string
	)
	err := q.queryRow(ctx, "SELECT id, date, ord, notes FROM transactions WHERE id = ?", id).
		Scan(&t.ID, &date, &t.Ord, &t.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, apperr.NotFound("transaction #%d", id)
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("get transaction #%d: %w", id, err)
	}
	if t.Date, err = parseDate(date); err != nil {
		return model.Transaction{}, err
	}

	records, err := q.RecordsOfTransaction(ctx, id)
	if err != nil {
		return model.Transaction{}, err
	}
	for _, r := range records {
		if r.IsCredit {
			t.Credits = append(t.Credits, r)
		} else {
			t.Debits = append(t.Debits, r)
		}
	}
	return t, nil
}

// TransactionsOn returns the headers of the transactions on a date in
// their current order.
func (q *Queries) TransactionsOn(ctx context.Context, date time.Time) ([]model.Transaction, error) {
	rows, err := q.query(ctx,
		"SELECT id, ord, notes FROM transactions WHERE date = ? ORDER BY ord, id", formatDate(date))
	if err != nil {
		return nil, fmt.Errorf("list transactions on %s: %w", formatDate(date), err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		t := model.Transaction{Date: date}
		if err := rows.Scan(&t.ID, &t.Ord, &t.Notes); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// MaxOrdOn returns the highest ord on a date ignoring one transaction,
// or 0 when there is none.
func (q *Queries) MaxOrdOn(ctx context.Context, date time.Time, excludeID int64) (int, error) {
	var n int
	err := q.queryRow(ctx,
		"SELECT COALESCE(MAX(ord), 0) FROM transactions WHERE date = ? AND id <> ?",
		formatDate(date), excludeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("max ord on %s: %w", formatDate(date), err)
	}
	return n, nil
}

// InsertTransaction creates a transaction header and returns its ID.
func (q *Queries) InsertTransaction(ctx context.Context, t model.Transaction) (int64, error) {
	var id int64
	err := q.queryRow(ctx,
		"INSERT INTO transactions (date, ord, notes) VALUES (?, ?, ?) RETURNING id",
		formatDate(t.Date), t.Ord, t.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

// UpdateTransaction rewrites a transaction header.
func (q *Queries) UpdateTransaction(ctx context.Context, t model.Transaction) error {
	_, err := q.exec(ctx,
		"UPDATE transactions SET date = ?, ord = ?, notes = ? WHERE id = ?",
		formatDate(t.Date), t.Ord, t.Notes, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction #%d: %w", t.ID, err)
	}
	return nil
}

// SetTransactionOrd moves a transaction within its date.
func (q *Queries) SetTransactionOrd(ctx context.Context, id int64, ord int) error {
	if _, err := q.exec(ctx, "UPDATE transactions SET ord = ? WHERE id = ?", ord, id); err != nil {
		return fmt.Errorf("set ord of transaction #%d: %w", id, err)
	}
	return nil
}

// DeleteTransaction removes a transaction header.
func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	if _, err := q.exec(ctx, "DELETE FROM transactions WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete transaction #%d: %w", id, err)
	}
	return nil
}

// Record returns one record.
func (q *Queries) Record(ctx context.Context, id int64) (model.Record, error) {
	r, err := scanRecord(q.queryRow(ctx,
		"SELECT "+recordColumns+" FROM records r JOIN accounts a ON a.id = r.account_id WHERE r.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, apperr.NotFound("record #%d", id)
	}
	if err != nil {
		return model.Record{}, fmt.Errorf("get record #%d: %w", id, err)
	}
	return r, nil
}

// RecordsOfTransaction returns a transaction's records, debits first,
// each side in ord order.
func (q *Queries) RecordsOfTransaction(ctx context.Context, txnID int64) ([]model.Record, error) {
	rows, err := q.query(ctx,
		"SELECT "+recordColumns+" FROM records r JOIN accounts a ON a.id = r.account_id"+
			" WHERE r.transaction_id = ? ORDER BY r.is_credit, r.ord, r.id", txnID)
	if err != nil {
		return nil, fmt.Errorf("list records of transaction #%d: %w", txnID, err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// InsertRecord creates a record and returns its ID.
func (q *Queries) InsertRecord(ctx context.Context, r model.Record) (int64, error) {
	var id int64
	err := q.queryRow(ctx,
		`INSERT INTO records (transaction_id, is_credit, ord, account_id, summary, amount_cents)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		r.TransactionID, r.IsCredit, r.Ord, r.AccountID, r.Summary, toCents(r.Amount)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	return id, nil
}

// UpdateRecord rewrites a record in place.
func (q *Queries) UpdateRecord(ctx context.Context, r model.Record) error {
	_, err := q.exec(ctx,
		`UPDATE records SET is_credit = ?, ord = ?, account_id = ?, summary = ?, amount_cents = ?
		 WHERE id = ?`,
		r.IsCredit, r.Ord, r.AccountID, r.Summary, toCents(r.Amount), r.ID)
	if err != nil {
		return fmt.Errorf("update record #%d: %w", r.ID, err)
	}
	return nil
}

// DeleteRecord removes one record.
func (q *Queries) DeleteRecord(ctx context.Context, id int64) error {
	if _, err := q.exec(ctx, "DELETE FROM records WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete record #%d: %w", id, err)
	}
	return nil
}

// DeleteRecordsOf removes every record of a transaction.
func (q *Queries) DeleteRecordsOf(ctx context.Context, txnID int64) error {
	if _, err := q.exec(ctx, "DELETE FROM records WHERE transaction_id = ?", txnID); err != nil {
		return fmt.Errorf("delete records of transaction #%d: %w", txnID, err)
	}
	return nil
}

// DataRange returns the earliest and latest transaction dates, both zero
// when there are no transactions.
func (q *Queries) DataRange(ctx context.Context) (time.Time, time.Time, error) {
	var first, last sql.NullString
	if err := q.queryRow(ctx, "SELECT MIN(date), MAX(date) FROM transactions").Scan(&first, &last); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("data range: %w", err)
	}
	if !first.Valid || !last.Valid {
		return time.Time{}, time.Time{}, nil
	}
	start, err := parseDate(first.String)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate(last.String)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
