package accounts

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imacat/mia-accounting-django-sub000/internal/model"
)

func TestRoundTrip(t *testing.T) {
	accounts := []model.Account{
		{Code: "1", Title: "Assets"},
		{Code: "1111", Title: "Cash, on hand"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, accounts))
	assert.Contains(t, buf.String(), "1111,\"Cash, on hand\",111\n")

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	assert.Equal(t, accounts, got)
}

func TestReadAccountsErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"bad code", "code,title,parent_code\n11x,Cash,11\n"},
		{"no title", "code,title,parent_code\n111,,11\n"},
		{"wrong parent", "code,title,parent_code\n1111,Cash,12\n"},
		{"missing column", "code,title,parent_code\n1111,Cash\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadAccounts(strings.NewReader(tt.csv))
			assert.Error(t, err)
		})
	}
}

func TestReadAccountsEmpty(t *testing.T) {
	got, err := ReadAccounts(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDefaultChart(t *testing.T) {
	chart := DefaultChart()
	require.NotEmpty(t, chart)

	codes := make(map[string]bool, len(chart))
	for _, a := range chart {
		assert.True(t, model.ValidCode(a.Code), a.Code)
		assert.False(t, codes[a.Code], "duplicate %s", a.Code)
		codes[a.Code] = true
	}
	for code := range codes {
		if p := model.ParentCode(code); p != "" {
			assert.True(t, codes[p], "parent of %s", code)
		}
	}
	for _, c := range []string{"1111", "3351", "3353", "2141", "1411"} {
		assert.True(t, codes[c], c)
	}
}
