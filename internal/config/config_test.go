package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "postgres"
	cfg.Database.DSN = "postgres://mia@localhost/mia?sslmode=disable"
	cfg.Accounting.PayableAccounts = []string{"2141"}

	path := filepath.Join(t.TempDir(), "mia.yaml")
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Database, got.Database)
	assert.Equal(t, cfg.Accounting.CashAccount, got.Accounting.CashAccount)
	assert.Equal(t, []string{"2141"}, got.Accounting.PayableAccounts)
	assert.Equal(t, cfg.Reports.PageSize, got.Reports.PageSize)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "1111", cfg.Accounting.CashAccount)
	assert.Equal(t, "3351", cfg.Accounting.AccumulatedBalanceAccount)
	assert.Equal(t, "3353", cfg.Accounting.NetChangeAccount)
	assert.Equal(t, 10, cfg.Reports.PageSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mia.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: sqlite\n  dsn: books.db\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "books.db", cfg.Database.DSN)
	assert.Equal(t, "1111", cfg.Accounting.CashAccount)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MIA_DATABASE_DSN", "override.db")
	t.Setenv("MIA_PAGE_SIZE", "25")

	path := filepath.Join(t.TempDir(), "mia.yaml")
	require.NoError(t, Save(path, Default()))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "override.db", cfg.Database.DSN)
	assert.Equal(t, 25, cfg.Reports.PageSize)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "mysql"
	cfg.Accounting.CashAccount = "11a1"
	cfg.Reports.PageSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid database driver")
	assert.Contains(t, err.Error(), "invalid cash_account")
	assert.Contains(t, err.Error(), "invalid page size")
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mia.yaml")
	require.NoError(t, Save(path, Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "driver: sqlite")
	assert.Contains(t, contents, `cash_account: "1111"`)
	assert.Contains(t, contents, "page_size: 10")
}
