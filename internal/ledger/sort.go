package ledger

import (
	"sort"

	"github.com/imacat/mia-accounting-django-sub000/internal/model"
)

// SortLines orders the lines of each side by their submitted Order, ties
// broken by the original Key, and then re-keys each side 1..N. Debit lines
// come first in the result. Lines without a valid side keep their
// relative order at the end.
func SortLines(lines []Line) []Line {
	var debits, credits, other []Line
	for i, l := range lines {
		if l.Key == 0 {
			l.Key = i + 1
		}
		switch l.Side {
		case model.SideDebit:
			debits = append(debits, l)
		case model.SideCredit:
			credits = append(credits, l)
		default:
			other = append(other, l)
		}
	}

	out := make([]Line, 0, len(lines))
	for _, side := range [][]Line{debits, credits} {
		sort.SliceStable(side, func(i, j int) bool {
			if side[i].Order != side[j].Order {
				return side[i].Order < side[j].Order
			}
			return side[i].Key < side[j].Key
		})
		for i := range side {
			side[i].Key = i + 1
			side[i].Order = i + 1
		}
		out = append(out, side...)
	}
	return append(out, other...)
}
