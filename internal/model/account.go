package model

import "strings"

// MaxCodeLen is the deepest level of the chart of accounts.
const MaxCodeLen = 5

// Account is a node in the chart of accounts. Its code encodes its
// ancestry: the parent is the account whose code is this code with the
// last digit removed.
type Account struct {
	ID       int64
	Code     string
	Title    string
	ParentID int64 // 0 = top-level
}

// ValidCode reports whether code is 1 to 5 ASCII digits.
func ValidCode(code string) bool {
	if len(code) == 0 || len(code) > MaxCodeLen {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// ParentCode returns the parent's code, or "" for a top-level code.
// "1111" -> "111"
func ParentCode(code string) string {
	if len(code) <= 1 {
		return ""
	}
	return code[:len(code)-1]
}

// Section returns the 1-digit section prefix of a code.
func Section(code string) string {
	if code == "" {
		return ""
	}
	return code[:1]
}

// Group returns the 2-digit group prefix of a code.
func Group(code string) string {
	if len(code) < 2 {
		return code
	}
	return code[:2]
}

// IsReal reports whether code belongs to a balance-sheet section
// (1 assets, 2 liabilities, 3 equity).
func IsReal(code string) bool {
	return strings.HasPrefix(code, "1") || strings.HasPrefix(code, "2") || strings.HasPrefix(code, "3")
}

// IsNominal reports whether code belongs to an income-statement section.
func IsNominal(code string) bool {
	return code != "" && !IsReal(code)
}

// IsCreditNormal reports whether a credit increases the account's balance:
// liabilities, equity, revenue and other income (71-74).
func IsCreditNormal(code string) bool {
	switch Section(code) {
	case "2", "3", "4":
		return true
	case "7":
		g := Group(code)
		return g >= "71" && g <= "74"
	}
	return false
}

// CashLikePrefixes are the groups treated as cash by the cash report.
var CashLikePrefixes = []string{"11", "12", "21", "22"}

// IsCashLike reports whether code falls under one of CashLikePrefixes.
func IsCashLike(code string) bool {
	for _, p := range CashLikePrefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}
