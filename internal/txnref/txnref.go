// Package txnref formats and parses human references to transactions and
// their records. A transaction is named by its date and its position on
// that date: "2023-01-05-002". A record appends its side and position on
// that side: "2023-01-05-002d1".
package txnref

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/imacat/mia-accounting-django-sub000/internal/model"
)

// Format returns a transaction reference like "2023-01-05-002".
func Format(date time.Time, ord int) string {
	return fmt.Sprintf("%s-%03d", date.Format(model.DateFormat), ord)
}

// FormatRecord returns a record reference like "2023-01-05-002c1".
func FormatRecord(txnRef string, side model.Side, ord int) string {
	return txnRef + string(side[0]) + strconv.Itoa(ord)
}

// Parse parses "2023-01-05-002" (or a record reference) into a date and
// the transaction's position on it.
func Parse(ref string) (date time.Time, ord int, err error) {
	base := TransactionOf(ref)
	if len(base) < len(model.DateFormat)+2 || base[len(model.DateFormat)] != '-' {
		return time.Time{}, 0, fmt.Errorf("invalid transaction reference format: %q", ref)
	}

	date, err = time.Parse(model.DateFormat, base[:len(model.DateFormat)])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid date in transaction reference %q: %w", ref, err)
	}

	ord, err = strconv.Atoi(base[len(model.DateFormat)+1:])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid sequence in transaction reference %q: %w", ref, err)
	}
	if ord < 1 {
		return time.Time{}, 0, fmt.Errorf("invalid sequence in transaction reference %q", ref)
	}
	return date, ord, nil
}

// TransactionOf strips the record suffix from a record reference.
// "2023-01-05-002c1" -> "2023-01-05-002"
func TransactionOf(ref string) string {
	i := strings.LastIndexAny(ref, "dc")
	if i < 0 {
		return ref
	}
	if _, err := strconv.Atoi(ref[i+1:]); err != nil {
		return ref
	}
	return ref[:i]
}
