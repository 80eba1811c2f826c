package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParentCode(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"1111", "111"},
		{"11", "1"},
		{"1", ""},
		{"", ""},
		{"62721", "6272"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParentCode(tt.code), "ParentCode(%q)", tt.code)
	}
}

func TestValidCode(t *testing.T) {
	assert.True(t, ValidCode("1"))
	assert.True(t, ValidCode("62721"))
	assert.False(t, ValidCode(""))
	assert.False(t, ValidCode("627210"))
	assert.False(t, ValidCode("1a"))
}

func TestCodeRanges(t *testing.T) {
	assert.True(t, IsReal("1111"))
	assert.True(t, IsReal("3351"))
	assert.False(t, IsReal("4111"))
	assert.True(t, IsNominal("6272"))

	assert.True(t, IsCreditNormal("2141"))
	assert.True(t, IsCreditNormal("4111"))
	assert.True(t, IsCreditNormal("7111"))
	assert.False(t, IsCreditNormal("7511"))
	assert.False(t, IsCreditNormal("1111"))
	assert.False(t, IsCreditNormal("6272"))

	assert.True(t, IsCashLike("1111"))
	assert.True(t, IsCashLike("2211"))
	assert.False(t, IsCashLike("1411"))
}

func TestTransactionType(t *testing.T) {
	amt := decimal.NewFromInt(80)
	expense := Transaction{
		Debits:  []Record{{AccountCode: "6272", Amount: amt}},
		Credits: []Record{{IsCredit: true, AccountCode: "1111", Amount: amt}},
	}
	assert.Equal(t, TypeExpense, expense.Type("1111"))
	assert.True(t, expense.IsBalanced())

	income := Transaction{
		Debits:  []Record{{AccountCode: "1111", Amount: amt}},
		Credits: []Record{{IsCredit: true, AccountCode: "4111", Amount: amt}},
	}
	assert.Equal(t, TypeIncome, income.Type("1111"))

	withSummary := Transaction{
		Debits:  []Record{{AccountCode: "1111", Summary: "deposit", Amount: amt}},
		Credits: []Record{{IsCredit: true, AccountCode: "1113", Amount: amt}},
	}
	assert.Equal(t, TypeTransfer, withSummary.Type("1111"))
}

func TestRecordDisplaySummary(t *testing.T) {
	r := Record{AccountTitle: "Cash"}
	assert.Equal(t, "Cash", r.DisplaySummary())
	r.Summary = "Lunch"
	assert.Equal(t, "Lunch", r.DisplaySummary())
	assert.Equal(t, SideDebit, r.Side())
	assert.Equal(t, SideCredit, r.Side().Opposite())
}

func TestIsDense(t *testing.T) {
	tests := []struct {
		ords []int
		want bool
	}{
		{nil, true},
		{[]int{1}, true},
		{[]int{2, 1, 3}, true},
		{[]int{1, 3}, false},
		{[]int{1, 1}, false},
		{[]int{0, 1}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsDense(tt.ords), "%v", tt.ords)
	}
}
