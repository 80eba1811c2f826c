package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imacat/mia-accounting-django-sub000/internal/model"
)

func TestSortLines(t *testing.T) {
	in := []Line{
		{Key: 2, Side: model.SideDebit, Order: 4, AccountCode: "1112"},
		{Key: 3, Side: model.SideDebit, Order: 4, AccountCode: "1113"},
		{Key: 16, Side: model.SideDebit, Order: 2, AccountCode: "1116"},
		{Key: 7, Side: model.SideCredit, Order: 3, AccountCode: "4111"},
	}

	got := SortLines(in)
	require.Len(t, got, 4)

	var keys []int
	var codes []string
	for _, l := range got {
		keys = append(keys, l.Key)
		codes = append(codes, l.AccountCode)
	}
	assert.Equal(t, []int{1, 2, 3, 1}, keys)
	assert.Equal(t, []string{"1116", "1112", "1113", "4111"}, codes)
	assert.Equal(t, model.SideCredit, got[3].Side)
}

func TestSortLinesDefaultsKeyToPosition(t *testing.T) {
	in := []Line{
		{Side: model.SideCredit, Order: 1, AccountCode: "b"},
		{Side: model.SideDebit, Order: 1, AccountCode: "c"},
		{Side: model.SideCredit, Order: 1, AccountCode: "a"},
		{Side: "sideways", AccountCode: "x"},
	}

	got := SortLines(in)
	var codes []string
	for _, l := range got {
		codes = append(codes, l.AccountCode)
	}
	assert.Equal(t, []string{"c", "b", "a", "x"}, codes)
	assert.Equal(t, 4, got[3].Key)
}

func TestAllowedOn(t *testing.T) {
	tests := []struct {
		side model.Side
		code string
		want bool
	}{
		{model.SideDebit, "1111", true},
		{model.SideDebit, "2141", true},
		{model.SideDebit, "3351", true},
		{model.SideDebit, "4111", false},
		{model.SideDebit, "5111", true},
		{model.SideDebit, "6272", true},
		{model.SideDebit, "7111", false},
		{model.SideDebit, "7481", false},
		{model.SideDebit, "7511", true},
		{model.SideDebit, "8111", true},
		{model.SideDebit, "9111", true},
		{model.SideCredit, "1111", true},
		{model.SideCredit, "4111", true},
		{model.SideCredit, "5111", false},
		{model.SideCredit, "6272", false},
		{model.SideCredit, "7111", true},
		{model.SideCredit, "7881", false},
		{model.SideCredit, "8111", true},
		{model.SideCredit, "9111", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AllowedOn(tt.side, tt.code), "%s %s", tt.side, tt.code)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		code string
	}{
		{"80", ""},
		{" 1 ", ""},
		{"12.34", ""},
		{"12.50", ""},
		{"abc", CodeAmountInvalid},
		{"", CodeAmountInvalid},
		{"0.99", CodeAmountTooSmall},
		{"-5", CodeAmountTooSmall},
		{"1.005", CodeAmountPrecision},
	}
	for _, tt := range tests {
		_, code, _ := parseAmount(tt.in)
		assert.Equal(t, tt.code, code, tt.in)
	}
}
