package commands_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imacat/mia-accounting-django-sub000/internal/accounts"
	"github.com/imacat/mia-accounting-django-sub000/internal/commands"
	"github.com/imacat/mia-accounting-django-sub000/internal/ledger"
	"github.com/imacat/mia-accounting-django-sub000/internal/model"
	"github.com/imacat/mia-accounting-django-sub000/internal/report"
)

func runMia(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// initLedger creates a ledger in a temp dir and returns its config path.
func initLedger(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	out, err := runMia(t, "init", dir)
	require.NoError(t, err, out)
	return filepath.Join(dir, "mia.yaml")
}

func writeRequest(t *testing.T, req ledger.SubmitRequest) string {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "request.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func submit(t *testing.T, cfg string, req ledger.SubmitRequest) string {
	t.Helper()
	out, err := runMia(t, "--config", cfg, "txn", "submit", "-f", writeRequest(t, req))
	require.NoError(t, err, out)
	return out
}

func expense(date, code, amount string) ledger.SubmitRequest {
	return ledger.SubmitRequest{
		Type:  model.TypeExpense,
		Date:  date,
		Lines: []ledger.Line{{Side: model.SideDebit, Order: 1, AccountCode: code, Amount: amount}},
	}
}

func TestVersion(t *testing.T) {
	out, err := runMia(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev (commit: none")
}

func TestInit_CreatesConfigAndDatabase(t *testing.T) {
	dir := t.TempDir()
	out, err := runMia(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized mia ledger")
	assert.Contains(t, out, "accounts)")

	data, err := os.ReadFile(filepath.Join(dir, "mia.yaml"))
	require.NoError(t, err)
	contents := string(data)
	assert.Contains(t, contents, "driver: sqlite")
	assert.Contains(t, contents, "cash_account:")
	assert.Contains(t, contents, filepath.Join(dir, "mia.db"))

	_, err = os.Stat(filepath.Join(dir, "mia.db"))
	require.NoError(t, err, "database should exist")
}

func TestInit_RefusesExistingLedger(t *testing.T) {
	dir := t.TempDir()
	_, err := runMia(t, "init", dir)
	require.NoError(t, err)

	_, err = runMia(t, "init", dir)
	require.Error(t, err, "second init should fail")
}

func TestInit_PostgresNeedsDSN(t *testing.T) {
	_, err := runMia(t, "init", t.TempDir(), "--driver", "postgres")
	require.Error(t, err)
}

func TestInit_Empty(t *testing.T) {
	dir := t.TempDir()
	_, err := runMia(t, "init", dir, "--empty")
	require.NoError(t, err)

	out, err := runMia(t, "--config", filepath.Join(dir, "mia.yaml"), "accounts", "list")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(out), "\n")+1, "only the header: %q", out)
}

func TestAccounts_ListAndExport(t *testing.T) {
	cfg := initLedger(t)

	out, err := runMia(t, "--config", cfg, "accounts", "list", "--under", "111")
	require.NoError(t, err)
	assert.Contains(t, out, "1111")
	assert.Contains(t, out, "parent")
	assert.NotContains(t, out, "4111")

	out, err = runMia(t, "--config", cfg, "accounts", "export")
	require.NoError(t, err)
	chart, err := accounts.ReadAccounts(strings.NewReader(out))
	require.NoError(t, err)
	assert.Len(t, chart, len(accounts.DefaultChart()))
}

func TestAccounts_AddTitleAndDelete(t *testing.T) {
	cfg := initLedger(t)

	_, err := runMia(t, "--config", cfg, "accounts", "add", "1119", "Petty cash")
	require.NoError(t, err)
	_, err = runMia(t, "--config", cfg, "accounts", "title", "1119", "zh-hant", "零用金")
	require.NoError(t, err)

	out, err := runMia(t, "--config", cfg, "accounts", "title", "1119")
	require.NoError(t, err)
	assert.Contains(t, out, "零用金")

	out, err = runMia(t, "--config", cfg, "search", "零用金")
	require.NoError(t, err)
	assert.NotContains(t, out, "1119 ", "no records yet")

	_, err = runMia(t, "--config", cfg, "accounts", "delete", "1119")
	require.NoError(t, err)
	_, err = runMia(t, "--config", cfg, "accounts", "delete", "11")
	require.Error(t, err, "accounts with sub-accounts are protected")
}

func TestAccounts_Import(t *testing.T) {
	dir := t.TempDir()
	_, err := runMia(t, "init", dir, "--empty")
	require.NoError(t, err)
	cfg := filepath.Join(dir, "mia.yaml")

	csvPath := filepath.Join(dir, "chart.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("code,title,parent_code\n1,Assets,\n11,Current assets,1\n"), 0o644))

	out, err := runMia(t, "--config", cfg, "accounts", "import", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 accounts (2 new)")
}

func TestTxn_SubmitShowReorderDelete(t *testing.T) {
	cfg := initLedger(t)

	out := submit(t, cfg, expense("2023-01-05", "6272", "80"))
	assert.Contains(t, out, "Saved transaction 2023-01-05-001")
	out = submit(t, cfg, expense("2023-01-05", "6272", "20"))
	assert.Contains(t, out, "Saved transaction 2023-01-05-002")

	out, err := runMia(t, "--config", cfg, "txn", "show", "--json", "2023-01-05-001")
	require.NoError(t, err)
	var req ledger.SubmitRequest
	require.NoError(t, json.Unmarshal([]byte(out), &req))
	assert.Equal(t, model.TypeExpense, req.Type)
	require.Len(t, req.Lines, 1)
	assert.Equal(t, "80.00", req.Lines[0].Amount)

	req.Lines[0].Amount = "85"
	out = submit(t, cfg, req)
	assert.Contains(t, out, "Saved transaction 2023-01-05-001")

	out, err = runMia(t, "--config", cfg, "txn", "show", "2023-01-05-001")
	require.NoError(t, err)
	assert.Contains(t, out, "85.00")
	assert.Contains(t, out, "2023-01-05-001c1")

	_, err = runMia(t, "--config", cfg, "txn", "reorder", "2023-01-05", "2023-01-05-002", "2023-01-05-001")
	require.NoError(t, err)
	out, err = runMia(t, "--config", cfg, "txn", "show", "2023-01-05-002")
	require.NoError(t, err)
	assert.Contains(t, out, "85.00", "the edited transaction moved second")

	_, err = runMia(t, "--config", cfg, "txn", "reorder", "2023-01-05", "2023-01-05-001")
	require.Error(t, err, "every transaction of the date must be listed")

	out, err = runMia(t, "--config", cfg, "txn", "delete", "2023-01-05-001")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted transaction 2023-01-05-001")
	out, err = runMia(t, "--config", cfg, "txn", "show", "2023-01-05-001")
	require.NoError(t, err, "the remaining transaction closed the gap")
	assert.Contains(t, out, "85.00")
}

func TestTxn_SubmitRejected(t *testing.T) {
	cfg := initLedger(t)

	out, err := runMia(t, "--config", cfg, "txn", "submit", "-f", writeRequest(t, expense("2023-01-05", "4111", "0")))
	require.Error(t, err)
	assert.Contains(t, out, "amount_too_small")
	assert.Contains(t, out, "account_side_mismatch")

	out, err = runMia(t, "--config", cfg, "txn", "submit", "--json", "-f", writeRequest(t, expense("2023-01-05", "6272", "1.234")))
	require.Error(t, err)
	var fail ledger.ValidationFailure
	require.NoError(t, json.Unmarshal([]byte(out[:strings.LastIndex(out, "}")+1]), &fail))
	assert.True(t, fail.Has(ledger.CodeAmountPrecision))
}

func TestReport_EveryKind(t *testing.T) {
	cfg := initLedger(t)
	submit(t, cfg, expense("2023-01-05", "6272", "80"))
	submit(t, cfg, ledger.SubmitRequest{
		Type:  model.TypeIncome,
		Date:  "2023-02-01",
		Lines: []ledger.Line{{Side: model.SideCredit, Order: 1, AccountCode: "4111", Summary: "Consulting", Amount: "300"}},
	})

	for _, kind := range report.Kinds {
		if kind == report.KindSearch {
			continue
		}
		t.Run(kind, func(t *testing.T) {
			out, err := runMia(t, "--config", cfg, "report", kind, "-p", "2023-02")
			require.NoError(t, err, out)
			assert.NotEmpty(t, out)
		})
	}

	out, err := runMia(t, "--config", cfg, "report", "trial-balance", "-p", "2023", "--json")
	require.NoError(t, err)
	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "trial-balance", res["Kind"])

	out, err = runMia(t, "--config", cfg, "search", "consulting")
	require.NoError(t, err)
	assert.Contains(t, out, "2023-02-01-001c1")

	_, err = runMia(t, "--config", cfg, "report", "cash", "-a", "4111")
	require.Error(t, err)
}

func TestStats(t *testing.T) {
	cfg := initLedger(t)
	out, err := runMia(t, "--config", cfg, "--stats", "report", "journal", "-p", "2023")
	require.NoError(t, err)
	assert.Contains(t, out, "mia_report_render_seconds{kind=journal} count=1")
}
