package entities

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyUnit is an ISO 4217 currency code
type CurrencyUnit string

// DefaultCurrency is used when no currency has been configured
const DefaultCurrency CurrencyUnit = "USD"

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// ParseCurrencyUnit validates and normalizes a currency code
func ParseCurrencyUnit(code string) (CurrencyUnit, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if !currencyCodePattern.MatchString(normalized) {
		return "", newValidationError("currency", "invalid currency code %q", code)
	}
	return CurrencyUnit(normalized), nil
}

// Money is a fixed-point monetary amount bound to a single currency.
// Amounts are never held in binary floating point.
type Money struct {
	Amount   decimal.Decimal
	Currency CurrencyUnit
}

// NewMoney creates a monetary amount in the given currency
func NewMoney(amount decimal.Decimal, currency CurrencyUnit) Money {
	return Money{Amount: amount, Currency: currency}
}

// ZeroMoney returns a zero amount in the given currency
func ZeroMoney(currency CurrencyUnit) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// Add sums two amounts of the same currency
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, newValidationError("currency", "cannot add %s to %s", other.Currency, m.Currency)
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Mul multiplies the amount by a whole number of units
func (m Money) Mul(units int64) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(units)), Currency: m.Currency}
}

// IsZero reports whether the amount is zero
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// Equal compares amount and currency
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// String formats the amount with two decimal places, e.g. "USD 12.50"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Currency, m.Amount.StringFixed(2))
}

type moneyJSON struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency CurrencyUnit    `json:"currency"`
}

// MarshalJSON encodes the amount as a decimal string with its currency
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.Amount, Currency: m.Currency})
}

// UnmarshalJSON accepts either {"amount": ..., "currency": ...} or a bare
// number, in which case the default currency is assumed.
func (m *Money) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var raw moneyJSON
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("failed to decode money: %w", err)
		}
		m.Amount = raw.Amount
		m.Currency = raw.Currency
		if m.Currency == "" {
			m.Currency = DefaultCurrency
		}
		return nil
	}

	var amount decimal.Decimal
	if err := amount.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("failed to decode money amount: %w", err)
	}
	m.Amount = amount
	m.Currency = DefaultCurrency
	return nil
}
