package ledger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/imacat/mia-accounting-django-sub000/internal/accounts"
	"github.com/imacat/mia-accounting-django-sub000/internal/apperr"
	"github.com/imacat/mia-accounting-django-sub000/internal/model"
	"github.com/imacat/mia-accounting-django-sub000/internal/store"
)

// Violation codes.
const (
	CodeInvalidType         = "invalid_type"
	CodeInvalidDate         = "invalid_date"
	CodeMissingDebit        = "missing_debit"
	CodeMissingCredit       = "missing_credit"
	CodeSideNotAllowed      = "side_not_allowed"
	CodeAccountNotFound     = "account_not_found"
	CodeAccountIsParent     = "account_is_parent"
	CodeAccountSideMismatch = "account_side_mismatch"
	CodeAmountInvalid       = "amount_invalid"
	CodeAmountTooSmall      = "amount_too_small"
	CodeAmountPrecision     = "amount_precision"
	CodeSummaryTooLong      = "summary_too_long"
	CodeRecordNotFound      = "record_not_found"
	CodeRecordNotBelong     = "record_not_belong"
	CodeRecordDuplicate     = "record_duplicate"
	CodeImbalanced          = "imbalanced"
	CodeTransactionNotFound = "transaction_not_found"
)

// MaxSummaryLen is the longest summary a record may carry, in characters.
const MaxSummaryLen = 128

var (
	debitPattern  = regexp.MustCompile(`^([1235689]|7[5678])`)
	creditPattern = regexp.MustCompile(`^([123489]|7[1234])`)
)

// AllowedOn reports whether an account with code may be posted on side.
// Balance accounts go on either side; expenses and non-operating losses
// are debit-only, revenue and non-operating income credit-only.
func AllowedOn(side model.Side, code string) bool {
	if side == model.SideCredit {
		return creditPattern.MatchString(code)
	}
	return debitPattern.MatchString(code)
}

// FieldError is a violation attached to one field of one line, or to a
// header field when Side is empty.
type FieldError struct {
	Side    model.Side `json:"side,omitempty"`
	Line    int        `json:"line,omitempty"`
	Field   string     `json:"field"`
	Code    string     `json:"code"`
	Message string     `json:"message"`
}

// FormError is a violation of the transaction as a whole.
type FormError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationFailure carries every violation found in one submission.
type ValidationFailure struct {
	FieldErrors []FieldError `json:"fieldErrors"`
	FormErrors  []FormError  `json:"formErrors"`
}

func (f *ValidationFailure) Error() string {
	msgs := make([]string, 0, len(f.FieldErrors)+len(f.FormErrors))
	for _, e := range f.FormErrors {
		msgs = append(msgs, e.Message)
	}
	for _, e := range f.FieldErrors {
		if e.Side != "" {
			msgs = append(msgs, fmt.Sprintf("%s line %d %s: %s", e.Side, e.Line, e.Field, e.Message))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field, e.Message))
		}
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Is lets errors.Is match a failure against apperr.ErrInvalidInput.
func (f *ValidationFailure) Is(target error) bool {
	return errors.Is(apperr.ErrInvalidInput, target)
}

// Has reports whether the failure includes a violation with code.
func (f *ValidationFailure) Has(code string) bool {
	for _, e := range f.FieldErrors {
		if e.Code == code {
			return true
		}
	}
	for _, e := range f.FormErrors {
		if e.Code == code {
			return true
		}
	}
	return false
}

func (f *ValidationFailure) empty() bool {
	return len(f.FieldErrors) == 0 && len(f.FormErrors) == 0
}

func (f *ValidationFailure) field(side model.Side, line int, field, code, format string, args ...any) {
	f.FieldErrors = append(f.FieldErrors, FieldError{
		Side: side, Line: line, Field: field, Code: code, Message: fmt.Sprintf(format, args...),
	})
}

func (f *ValidationFailure) form(code, format string, args ...any) {
	f.FormErrors = append(f.FormErrors, FormError{Code: code, Message: fmt.Sprintf(format, args...)})
}

// plan is a validated submission ready to be written.
type plan struct {
	date     time.Time
	existing *model.Transaction
	debits   []model.Record
	credits  []model.Record
}

// validate checks a submission against the store and collects every
// violation. Lines must already be sorted by SortLines. The returned error
// is non-nil only for store failures.
func validate(ctx context.Context, q *store.Queries, req SubmitRequest, cash model.Account) (*plan, *ValidationFailure, error) {
	fail := &ValidationFailure{}
	p := &plan{}
	reg := accounts.NewRegistry(q)

	if !req.Type.Valid() {
		fail.form(CodeInvalidType, "unknown transaction type %q", req.Type)
	}

	date, err := time.Parse(model.DateFormat, strings.TrimSpace(req.Date))
	if err != nil {
		fail.field("", 0, "date", CodeInvalidDate, "%q is not a date", req.Date)
	}
	p.date = date

	if req.TransactionID != 0 {
		txn, err := q.Transaction(ctx, req.TransactionID)
		switch {
		case err == nil:
			p.existing = &txn
		case errors.Is(err, apperr.ErrNotFound):
			fail.form(CodeTransactionNotFound, "transaction #%d does not exist", req.TransactionID)
		default:
			return nil, nil, err
		}
	}

	entered := enteredSides(req.Type)
	var (
		counts        = map[model.Side]int{}
		totals        = map[model.Side]decimal.Decimal{model.SideDebit: decimal.Zero, model.SideCredit: decimal.Zero}
		amountsParsed = true
		seenIDs       = map[int64]bool{}
	)
	for _, l := range req.Lines {
		if !l.Side.Valid() {
			fail.form(CodeSideNotAllowed, "line %d has no side", l.Key)
			continue
		}
		counts[l.Side]++
		n := counts[l.Side]
		if req.Type.Valid() && !entered[l.Side] {
			fail.field(l.Side, n, "side", CodeSideNotAllowed, "%s transactions take no %s lines", req.Type, l.Side)
		}

		rec := model.Record{ID: l.ID, IsCredit: l.Side == model.SideCredit, Ord: n, Summary: strings.TrimSpace(l.Summary)}

		if err := checkAccount(ctx, reg, l, &rec); err != nil {
			var v *lineViolation
			if !errors.As(err, &v) {
				return nil, nil, err
			}
			fail.field(l.Side, n, "account", v.code, "%s", v.msg)
		}

		amount, code, msg := parseAmount(l.Amount)
		if code != "" {
			amountsParsed = false
			fail.field(l.Side, n, "amount", code, "%s", msg)
		} else {
			rec.Amount = amount
			totals[l.Side] = totals[l.Side].Add(amount)
		}

		if utf8.RuneCountInString(rec.Summary) > MaxSummaryLen {
			fail.field(l.Side, n, "summary", CodeSummaryTooLong, "summary is longer than %d characters", MaxSummaryLen)
		}

		if l.ID != 0 {
			if seenIDs[l.ID] {
				fail.field(l.Side, n, "id", CodeRecordDuplicate, "record #%d appears more than once", l.ID)
			}
			seenIDs[l.ID] = true
			if err := checkRecordOwner(ctx, q, l.ID, req.TransactionID); err != nil {
				var v *lineViolation
				if !errors.As(err, &v) {
					return nil, nil, err
				}
				fail.field(l.Side, n, "id", v.code, "%s", v.msg)
			}
		}

		if rec.IsCredit {
			p.credits = append(p.credits, rec)
		} else {
			p.debits = append(p.debits, rec)
		}
	}

	if entered[model.SideDebit] && counts[model.SideDebit] == 0 {
		fail.form(CodeMissingDebit, "at least one debit line is required")
	}
	if entered[model.SideCredit] && counts[model.SideCredit] == 0 {
		fail.form(CodeMissingCredit, "at least one credit line is required")
	}

	if req.Type == model.TypeTransfer && amountsParsed &&
		!totals[model.SideDebit].Equal(totals[model.SideCredit]) {
		fail.form(CodeImbalanced, "debit total %s does not equal credit total %s",
			totals[model.SideDebit].StringFixed(2), totals[model.SideCredit].StringFixed(2))
	}

	if !fail.empty() {
		return nil, fail, nil
	}

	switch req.Type {
	case model.TypeIncome:
		p.debits = []model.Record{p.cashRecord(cash, model.SideDebit, totals[model.SideCredit])}
	case model.TypeExpense:
		p.credits = []model.Record{p.cashRecord(cash, model.SideCredit, totals[model.SideDebit])}
	}
	return p, nil, nil
}

// enteredSides returns the sides the user fills in for a transaction type.
// The other side of an income or expense is the generated cash record.
func enteredSides(t model.TransactionType) map[model.Side]bool {
	switch t {
	case model.TypeIncome:
		return map[model.Side]bool{model.SideCredit: true}
	case model.TypeExpense:
		return map[model.Side]bool{model.SideDebit: true}
	}
	return map[model.Side]bool{model.SideDebit: true, model.SideCredit: true}
}

// cashRecord builds the generated cash record, taking over the identity
// of an existing cash record on that side when there is one.
func (p *plan) cashRecord(cash model.Account, side model.Side, amount decimal.Decimal) model.Record {
	rec := model.Record{
		IsCredit:     side == model.SideCredit,
		Ord:          1,
		AccountID:    cash.ID,
		AccountCode:  cash.Code,
		AccountTitle: cash.Title,
		Amount:       amount,
	}
	if p.existing == nil {
		return rec
	}
	old := p.existing.Debits
	if rec.IsCredit {
		old = p.existing.Credits
	}
	for _, r := range old {
		if r.AccountID == cash.ID {
			rec.ID = r.ID
			break
		}
	}
	return rec
}

type lineViolation struct {
	code string
	msg  string
}

func (v *lineViolation) Error() string { return v.msg }

func checkAccount(ctx context.Context, reg *accounts.Registry, l Line, rec *model.Record) error {
	code := strings.TrimSpace(l.AccountCode)
	if code == "" {
		return &lineViolation{CodeAccountNotFound, "an account is required"}
	}
	acct, err := reg.Resolve(ctx, code)
	if errors.Is(err, apperr.ErrNotFound) {
		return &lineViolation{CodeAccountNotFound, fmt.Sprintf("account %s does not exist", code)}
	}
	if err != nil {
		return err
	}
	rec.AccountID, rec.AccountCode, rec.AccountTitle = acct.ID, acct.Code, acct.Title

	pure, err := reg.IsPureParent(ctx, acct)
	if err != nil {
		return err
	}
	if pure {
		return &lineViolation{CodeAccountIsParent, fmt.Sprintf("account %s has sub-accounts; choose one of them", code)}
	}
	if !AllowedOn(l.Side, code) {
		return &lineViolation{CodeAccountSideMismatch, fmt.Sprintf("account %s cannot be a %s", code, l.Side)}
	}
	return nil
}

func checkRecordOwner(ctx context.Context, q *store.Queries, recordID, txnID int64) error {
	r, err := q.Record(ctx, recordID)
	if errors.Is(err, apperr.ErrNotFound) {
		return &lineViolation{CodeRecordNotFound, fmt.Sprintf("record #%d does not exist", recordID)}
	}
	if err != nil {
		return err
	}
	if txnID == 0 || r.TransactionID != txnID {
		return &lineViolation{CodeRecordNotBelong, fmt.Sprintf("record #%d does not belong to this transaction", recordID)}
	}
	return nil
}

var one = decimal.NewFromInt(1)

// parseAmount returns the amount or a violation code and message.
func parseAmount(s string) (decimal.Decimal, string, string) {
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, CodeAmountInvalid, fmt.Sprintf("%q is not a number", s)
	}
	if d.LessThan(one) {
		return decimal.Zero, CodeAmountTooSmall, fmt.Sprintf("amount %s is less than 1", d)
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Zero, CodeAmountPrecision, fmt.Sprintf("amount %s has more than 2 decimal places", d)
	}
	return d, "", ""
}
