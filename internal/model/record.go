package model

import "github.com/shopspring/decimal"

// Side is the debit or credit side of a record.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Valid reports whether s is debit or credit.
func (s Side) Valid() bool {
	return s == SideDebit || s == SideCredit
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideCredit {
		return SideDebit
	}
	return SideCredit
}

// SideOf converts a credit flag to a Side.
func SideOf(isCredit bool) Side {
	if isCredit {
		return SideCredit
	}
	return SideDebit
}

// Record is one debit or credit leg of a transaction. Ord is the position
// within its side, 1-based.
type Record struct {
	ID            int64
	TransactionID int64
	IsCredit      bool
	Ord           int
	AccountID     int64
	AccountCode   string
	AccountTitle  string
	Summary       string
	Amount        decimal.Decimal
}

// Side returns the record's side.
func (r Record) Side() Side {
	return SideOf(r.IsCredit)
}

// DisplaySummary falls back to the account title when there is no summary.
func (r Record) DisplaySummary() string {
	if r.Summary != "" {
		return r.Summary
	}
	return r.AccountTitle
}

// Signed returns the amount as debit-positive, credit-negative.
func (r Record) Signed() decimal.Decimal {
	if r.IsCredit {
		return r.Amount.Neg()
	}
	return r.Amount
}
