package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the storage and wire format of calendar dates.
const DateFormat = "2006-01-02"

// TransactionType is the entry form a transaction was made with.
type TransactionType string

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer:
		return true
	}
	return false
}

// Transaction is a dated group of debit and credit records. Ord is the
// position among the transactions of the same date, 1-based.
type Transaction struct {
	ID      int64
	Date    time.Time
	Ord     int
	Notes   string
	Debits  []Record
	Credits []Record
}

// Records returns the debit records followed by the credit records.
func (t Transaction) Records() []Record {
	out := make([]Record, 0, len(t.Debits)+len(t.Credits))
	out = append(out, t.Debits...)
	return append(out, t.Credits...)
}

// DebitTotal sums the debit amounts.
func (t Transaction) DebitTotal() decimal.Decimal {
	return sumAmounts(t.Debits)
}

// CreditTotal sums the credit amounts.
func (t Transaction) CreditTotal() decimal.Decimal {
	return sumAmounts(t.Credits)
}

// IsBalanced reports whether debits equal credits.
func (t Transaction) IsBalanced() bool {
	return t.DebitTotal().Equal(t.CreditTotal())
}

// Type derives the entry form from the records: a single summary-less cash
// debit is an income, a single summary-less cash credit is an expense,
// anything else is a transfer.
func (t Transaction) Type(cashCode string) TransactionType {
	if len(t.Debits) == 1 && t.Debits[0].AccountCode == cashCode && t.Debits[0].Summary == "" {
		return TypeIncome
	}
	if len(t.Credits) == 1 && t.Credits[0].AccountCode == cashCode && t.Credits[0].Summary == "" {
		return TypeExpense
	}
	return TypeTransfer
}

func sumAmounts(records []Record) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}

// IsDense reports whether ords, in any order, is exactly 1..len(ords): the
// shape the orders of one date's transactions must always have.
func IsDense(ords []int) bool {
	seen := make([]bool, len(ords)+1)
	for _, o := range ords {
		if o < 1 || o > len(ords) || seen[o] {
			return false
		}
		seen[o] = true
	}
	return true
}
