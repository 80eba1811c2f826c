package accounts

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/imacat/mia-accounting-django-sub000/internal/model"
)

const (
	numFields = 3
	colCode   = 0
	colTitle  = 1
	colParent = 2
)

// ReadAccounts reads a chart of accounts CSV with a code,title,parent_code
// header. The parent column is informational: parents are derived from the
// code when the chart is saved.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes a chart of accounts CSV.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"code", "title", "parent_code"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	row[colCode] = acct.Code
	row[colTitle] = acct.Title
	row[colParent] = model.ParentCode(acct.Code)
	return row
}

// UnmarshalAccount converts a CSV row to an Account.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	if !model.ValidCode(record[colCode]) {
		return model.Account{}, fmt.Errorf("invalid account code %q", record[colCode])
	}
	if record[colTitle] == "" {
		return model.Account{}, fmt.Errorf("account %s has no title", record[colCode])
	}
	if p := record[colParent]; p != "" && p != model.ParentCode(record[colCode]) {
		return model.Account{}, fmt.Errorf("account %s cannot have parent %s", record[colCode], p)
	}

	return model.Account{
		Code:  record[colCode],
		Title: record[colTitle],
	}, nil
}
