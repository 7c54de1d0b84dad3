package entities

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyArithmetic(t *testing.T) {
	price := NewMoney(decimal.RequireFromString("0.10"), DefaultCurrency)

	sum := ZeroMoney(DefaultCurrency)
	for i := 0; i < 3; i++ {
		var err error
		sum, err = sum.Add(price)
		require.NoError(t, err)
	}
	assert.True(t, sum.Equal(NewMoney(decimal.RequireFromString("0.30"), DefaultCurrency)))
	assert.Equal(t, "USD 1.50", price.Mul(15).String())

	_, err := price.Add(ZeroMoney("EUR"))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestMoneyJSON(t *testing.T) {
	m := NewMoney(decimal.RequireFromString("12.5"), "EUR")

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"12.5","currency":"EUR"}`, string(data))

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equal(decoded))

	require.NoError(t, json.Unmarshal([]byte(`7.25`), &decoded))
	assert.Equal(t, "USD 7.25", decoded.String())

	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &decoded))
}

func TestParseCurrencyUnit(t *testing.T) {
	unit, err := ParseCurrencyUnit(" eur ")
	require.NoError(t, err)
	assert.Equal(t, CurrencyUnit("EUR"), unit)

	_, err = ParseCurrencyUnit("EURO")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestRequisitionStatusNames(t *testing.T) {
	for _, status := range AllStatuses() {
		parsed, err := ParseRequisitionStatus(status.String())
		require.NoError(t, err)
		assert.Equal(t, status, parsed)
	}

	parsed, err := ParseRequisitionStatus("in_approval")
	require.NoError(t, err)
	assert.Equal(t, StatusInApproval, parsed)

	_, err = ParseRequisitionStatus("DRAFT")
	assert.True(t, errors.Is(err, ErrValidation))
}
