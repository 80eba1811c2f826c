package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/imacat/mia-accounting-django-sub000/internal/apperr"
	"github.com/imacat/mia-accounting-django-sub000/internal/model"
)

const accountColumns = "id, code, title, COALESCE(parent_id, 0)"

func scanAccount(row interface{ Scan(...any) error }) (model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Code, &a.Title, &a.ParentID)
	return a, err
}

// AccountByCode returns the account with the given code.
func (q *Queries) AccountByCode(ctx context.Context, code string) (model.Account, error) {
	a, err := scanAccount(q.queryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE code = ?", code))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, apperr.NotFound("account %q", code)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("get account %q: %w", code, err)
	}
	return a, nil
}

// AccountByID returns the account with the given ID.
func (q *Queries) AccountByID(ctx context.Context, id int64) (model.Account, error) {
	a, err := scanAccount(q.queryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, apperr.NotFound("account #%d", id)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("get account #%d: %w", id, err)
	}
	return a, nil
}

// ListAccounts returns every account ordered by code.
func (q *Queries) ListAccounts(ctx context.Context) ([]model.Account, error) {
	return q.listAccounts(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY code")
}

// ChildAccounts returns the direct children of code.
func (q *Queries) ChildAccounts(ctx context.Context, code string) ([]model.Account, error) {
	return q.listAccounts(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE code LIKE ? AND LENGTH(code) = ? ORDER BY code",
		code+"%", len(code)+1)
}

func (q *Queries) listAccounts(ctx context.Context, query string, args ...any) ([]model.Account, error) {
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// InsertAccount creates an account and returns its ID.
func (q *Queries) InsertAccount(ctx context.Context, a model.Account) (int64, error) {
	var id int64
	err := q.queryRow(ctx,
		"INSERT INTO accounts (code, title, parent_id) VALUES (?, ?, ?) RETURNING id",
		a.Code, a.Title, nullID(a.ParentID)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert account %q: %w", a.Code, err)
	}
	return id, nil
}

// UpdateAccount rewrites an account's code, title and parent.
func (q *Queries) UpdateAccount(ctx context.Context, a model.Account) error {
	_, err := q.exec(ctx,
		"UPDATE accounts SET code = ?, title = ?, parent_id = ? WHERE id = ?",
		a.Code, a.Title, nullID(a.ParentID), a.ID)
	if err != nil {
		return fmt.Errorf("update account %q: %w", a.Code, err)
	}
	return nil
}

// DeleteAccount removes an account.
func (q *Queries) DeleteAccount(ctx context.Context, id int64) error {
	if _, err := q.exec(ctx, "DELETE FROM accounts WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete account #%d: %w", id, err)
	}
	return nil
}

// CountDescendants counts the accounts whose code extends code.
func (q *Queries) CountDescendants(ctx context.Context, code string) (int, error) {
	var n int
	err := q.queryRow(ctx, "SELECT COUNT(*) FROM accounts WHERE code LIKE ?", code+"_%").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count descendants of %q: %w", code, err)
	}
	return n, nil
}

// CountRecordsOfAccount counts records attached directly to an account.
func (q *Queries) CountRecordsOfAccount(ctx context.Context, accountID int64) (int, error) {
	var n int
	err := q.queryRow(ctx, "SELECT COUNT(*) FROM records WHERE account_id = ?", accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records of account #%d: %w", accountID, err)
	}
	return n, nil
}

// CountRecordsUnder counts records on the account with code or any of
// its descendants.
func (q *Queries) CountRecordsUnder(ctx context.Context, code string) (int, error) {
	var n int
	err := q.queryRow(ctx,
		"SELECT COUNT(*) FROM records r JOIN accounts a ON a.id = r.account_id WHERE a.code LIKE ?",
		code+"%").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records under %q: %w", code, err)
	}
	return n, nil
}

// SetAccountTitle stores a localized title.
func (q *Queries) SetAccountTitle(ctx context.Context, accountID int64, locale, title string) error {
	_, err := q.exec(ctx,
		`INSERT INTO account_l10n (account_id, locale, title) VALUES (?, ?, ?)
		 ON CONFLICT (account_id, locale) DO UPDATE SET title = excluded.title`,
		accountID, locale, title)
	if err != nil {
		return fmt.Errorf("set %s title of account #%d: %w", locale, accountID, err)
	}
	return nil
}

// AccountTitles returns the localized titles of an account keyed by locale.
func (q *Queries) AccountTitles(ctx context.Context, accountID int64) (map[string]string, error) {
	rows, err := q.query(ctx, "SELECT locale, title FROM account_l10n WHERE account_id = ? ORDER BY locale", accountID)
	if err != nil {
		return nil, fmt.Errorf("list titles of account #%d: %w", accountID, err)
	}
	defer rows.Close()

	titles := make(map[string]string)
	for rows.Next() {
		var locale, title string
		if err := rows.Scan(&locale, &title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles[locale] = title
	}
	return titles, rows.Err()
}
