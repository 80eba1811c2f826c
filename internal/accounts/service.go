// Package accounts is the account registry: it resolves codes to accounts
// and answers the structural questions the ledger and reports ask about the
// chart of accounts.
package accounts

import (
	"context"
	"fmt"
	"sort"

	"github.com/imacat/mia-accounting-django-sub000/internal/apperr"
	"github.com/imacat/mia-accounting-django-sub000/internal/model"
)

// Querier is the part of the store the registry reads and writes. Both
// *store.Store and the *store.Queries handed out inside a transaction
// satisfy it.
type Querier interface {
	AccountByCode(ctx context.Context, code string) (model.Account, error)
	AccountByID(ctx context.Context, id int64) (model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	ChildAccounts(ctx context.Context, code string) ([]model.Account, error)
	InsertAccount(ctx context.Context, a model.Account) (int64, error)
	UpdateAccount(ctx context.Context, a model.Account) error
	DeleteAccount(ctx context.Context, id int64) error
	CountDescendants(ctx context.Context, code string) (int, error)
	CountRecordsOfAccount(ctx context.Context, accountID int64) (int, error)
	CountRecordsUnder(ctx context.Context, code string) (int, error)
	SetAccountTitle(ctx context.Context, accountID int64, locale, title string) error
	AccountTitles(ctx context.Context, accountID int64) (map[string]string, error)
}

// Registry provides lookup and maintenance over the chart of accounts.
type Registry struct {
	q Querier
}

// NewRegistry creates a Registry over q.
func NewRegistry(q Querier) *Registry {
	return &Registry{q: q}
}

// ParentCode returns the code of an account's parent, or "" for a
// top-level code.
func ParentCode(code string) string {
	return model.ParentCode(code)
}

// Resolve returns the account with the given code.
func (r *Registry) Resolve(ctx context.Context, code string) (model.Account, error) {
	return r.q.AccountByCode(ctx, code)
}

// List returns all accounts ordered by code.
func (r *Registry) List(ctx context.Context) ([]model.Account, error) {
	return r.q.ListAccounts(ctx)
}

// Children returns the direct children of the account with code.
func (r *Registry) Children(ctx context.Context, code string) ([]model.Account, error) {
	return r.q.ChildAccounts(ctx, code)
}

// IsInUse reports whether any record references the account or one of its
// descendants.
func (r *Registry) IsInUse(ctx context.Context, a model.Account) (bool, error) {
	n, err := r.q.CountRecordsUnder(ctx, a.Code)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IsParentAndInUse reports whether the account has children and also
// carries records of its own. Reports aggregate such accounts instead of
// showing them as leaves.
func (r *Registry) IsParentAndInUse(ctx context.Context, a model.Account) (bool, error) {
	hasChildren, direct, err := r.shape(ctx, a)
	if err != nil {
		return false, err
	}
	return hasChildren && direct, nil
}

// IsPureParent reports whether the account has children and no records
// of its own. Pure parents cannot be posted to.
func (r *Registry) IsPureParent(ctx context.Context, a model.Account) (bool, error) {
	hasChildren, direct, err := r.shape(ctx, a)
	if err != nil {
		return false, err
	}
	return hasChildren && !direct, nil
}

func (r *Registry) shape(ctx context.Context, a model.Account) (hasChildren, direct bool, err error) {
	children, err := r.q.CountDescendants(ctx, a.Code)
	if err != nil {
		return false, false, err
	}
	records, err := r.q.CountRecordsOfAccount(ctx, a.ID)
	if err != nil {
		return false, false, err
	}
	return children > 0, records > 0, nil
}

// Save creates or updates an account. The parent is always derived from
// the code, whatever ParentID the caller supplied. Changing the code of an
// account in use is refused.
func (r *Registry) Save(ctx context.Context, a model.Account) (model.Account, error) {
	if !model.ValidCode(a.Code) {
		return model.Account{}, apperr.ErrInvalidInput.WithMessage("account code %q must be 1 to %d digits", a.Code, model.MaxCodeLen)
	}
	if a.Title == "" {
		return model.Account{}, apperr.ErrInvalidInput.WithMessage("account %s has no title", a.Code)
	}

	a.ParentID = 0
	if pc := ParentCode(a.Code); pc != "" {
		parent, err := r.q.AccountByCode(ctx, pc)
		if err != nil {
			return model.Account{}, fmt.Errorf("resolving parent of %s: %w", a.Code, err)
		}
		a.ParentID = parent.ID
	}

	if a.ID == 0 {
		id, err := r.q.InsertAccount(ctx, a)
		if err != nil {
			return model.Account{}, err
		}
		a.ID = id
		return a, nil
	}

	old, err := r.q.AccountByID(ctx, a.ID)
	if err != nil {
		return model.Account{}, err
	}
	if old.Code != a.Code {
		inUse, err := r.IsInUse(ctx, old)
		if err != nil {
			return model.Account{}, err
		}
		children, err := r.q.CountDescendants(ctx, old.Code)
		if err != nil {
			return model.Account{}, err
		}
		if inUse || children > 0 {
			return model.Account{}, apperr.Protected("account %s is referenced and cannot be renumbered", old.Code)
		}
	}
	if err := r.q.UpdateAccount(ctx, a); err != nil {
		return model.Account{}, err
	}
	return a, nil
}

// Delete removes the account with code. It is refused while records or
// child accounts reference it.
func (r *Registry) Delete(ctx context.Context, code string) error {
	a, err := r.q.AccountByCode(ctx, code)
	if err != nil {
		return err
	}
	records, err := r.q.CountRecordsOfAccount(ctx, a.ID)
	if err != nil {
		return err
	}
	if records > 0 {
		return apperr.Protected("account %s has %d records", code, records)
	}
	children, err := r.q.CountDescendants(ctx, code)
	if err != nil {
		return err
	}
	if children > 0 {
		return apperr.Protected("account %s has %d sub-accounts", code, children)
	}
	return r.q.DeleteAccount(ctx, a.ID)
}

// SetTitle stores a localized title for the account with code.
func (r *Registry) SetTitle(ctx context.Context, code, locale, title string) error {
	a, err := r.q.AccountByCode(ctx, code)
	if err != nil {
		return err
	}
	return r.q.SetAccountTitle(ctx, a.ID, locale, title)
}

// Titles returns the localized titles of the account with code.
func (r *Registry) Titles(ctx context.Context, code string) (map[string]string, error) {
	a, err := r.q.AccountByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return r.q.AccountTitles(ctx, a.ID)
}

// Import saves a chart of accounts, parents before children. Accounts that
// already exist keep their identity and take the imported title. It
// returns the number of accounts created.
func (r *Registry) Import(ctx context.Context, chart []model.Account) (int, error) {
	sorted := make([]model.Account, len(chart))
	copy(sorted, chart)
	sort.SliceStable(sorted, func(i, j int) bool {
		if len(sorted[i].Code) != len(sorted[j].Code) {
			return len(sorted[i].Code) < len(sorted[j].Code)
		}
		return sorted[i].Code < sorted[j].Code
	})

	created := 0
	for _, a := range sorted {
		existing, err := r.q.AccountByCode(ctx, a.Code)
		switch {
		case err == nil:
			a.ID = existing.ID
		case apperr.Code(err) == apperr.ErrNotFound.Code:
			a.ID = 0
			created++
		default:
			return created, err
		}
		if _, err := r.Save(ctx, a); err != nil {
			return created, fmt.Errorf("importing account %s: %w", a.Code, err)
		}
	}
	return created, nil
}
