package config

import (
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/infrastructure/logging"
	"gopkg.in/yaml.v2"
)

// Config holds the runtime settings of the requisition tools
type Config struct {
	CurrencyCode        string `yaml:"currency_code"`
	DefaultPricePerPack string `yaml:"default_price_per_pack"`
	// AveragePeriods overrides the template's number of periods to average when positive
	AveragePeriods    int    `yaml:"average_periods"`
	LogLevel          string `yaml:"log_level"`
	LogFormat         string `yaml:"log_format"`
	DatabasePath      string `yaml:"database_path"`
	SkipAuthorization bool   `yaml:"skip_authorization"`
	UpdateStockDate   bool   `yaml:"update_stock_date"`
}

// Default returns the settings used when no file is given
func Default() Config {
	return Config{
		CurrencyCode:        string(entities.DefaultCurrency),
		DefaultPricePerPack: "0",
		LogLevel:            "info",
		LogFormat:           string(logging.FormatConsole),
		UpdateStockDate:     true,
	}
}

// Load reads a YAML file over the defaults and validates the result
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.CurrencyCode, validation.Required, validation.By(func(value interface{}) error {
			_, err := entities.ParseCurrencyUnit(value.(string))
			return err
		})),
		validation.Field(&c.DefaultPricePerPack, validation.By(func(value interface{}) error {
			s := value.(string)
			if s == "" {
				return nil
			}
			price, err := decimal.NewFromString(s)
			if err != nil {
				return fmt.Errorf("must be a decimal number")
			}
			if price.IsNegative() {
				return fmt.Errorf("must not be negative")
			}
			return nil
		})),
		validation.Field(&c.AveragePeriods, validation.Min(0)),
		validation.Field(&c.LogLevel, validation.By(func(value interface{}) error {
			_, err := logging.ParseLevel(value.(string))
			return err
		})),
		validation.Field(&c.LogFormat, validation.In(
			string(logging.FormatJSON), string(logging.FormatConsole), "",
		)),
	)
}

// Currency returns the configured currency unit
func (c Config) Currency() entities.CurrencyUnit {
	currency, err := entities.ParseCurrencyUnit(c.CurrencyCode)
	if err != nil {
		return entities.DefaultCurrency
	}
	return currency
}

// PricePerPack returns the configured default price per pack
func (c Config) PricePerPack() decimal.Decimal {
	price, err := decimal.NewFromString(c.DefaultPricePerPack)
	if err != nil {
		return decimal.Zero
	}
	return price
}

// Logging returns the logger settings
func (c Config) Logging() logging.Config {
	return logging.Config{Level: c.LogLevel, Format: logging.Format(c.LogFormat)}
}
