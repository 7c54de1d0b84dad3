package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsinha/requisition/pkg/domain/entities"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultCurrency, cfg.Currency())
	assert.True(t, cfg.PricePerPack().IsZero())
	assert.True(t, cfg.UpdateStockDate)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
currency_code: eur
default_price_per_pack: "2.75"
average_periods: 3
log_level: debug
log_format: json
database_path: requisitions.db
skip_authorization: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, entities.CurrencyUnit("EUR"), cfg.Currency())
	assert.True(t, cfg.PricePerPack().Equal(decimal.RequireFromString("2.75")))
	assert.Equal(t, 3, cfg.AveragePeriods)
	assert.Equal(t, "requisitions.db", cfg.DatabasePath)
	assert.True(t, cfg.SkipAuthorization)
	assert.True(t, cfg.UpdateStockDate)
	assert.Equal(t, "debug", cfg.Logging().Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad currency", "currency_code: dollars\n"},
		{"negative price", "default_price_per_pack: \"-1\"\n"},
		{"non numeric price", "default_price_per_pack: abc\n"},
		{"negative periods", "average_periods: -2\n"},
		{"bad level", "log_level: loud\n"},
		{"bad format", "log_format: xml\n"},
		{"unknown key", "colour: blue\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
