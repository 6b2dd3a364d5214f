package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	total, err := Sum(Rupees(2330), Rupees(1500))
	require.NoError(t, err)
	assert.Equal(t, Rupees(3830), total)

	zero, err := Sum()
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	usd, err := New(10, " usd")
	require.NoError(t, err)
	_, err = Sum(Rupees(1), usd)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = Sum(Rupees(1), Money{Amount: 1})
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestNew_InvalidCurrency(t *testing.T) {
	_, err := New(1, "rupee")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestString_IndianGrouping(t *testing.T) {
	cases := map[int64]string{
		0:        "₹0",
		999:      "₹999",
		1000:     "₹1,000",
		14000:    "₹14,000",
		123456:   "₹1,23,456",
		1234567:  "₹12,34,567",
		-250000:  "-₹2,50,000",
		10000000: "₹1,00,00,000",
	}
	for amount, want := range cases {
		assert.Equal(t, want, Rupees(amount).String())
	}
	assert.Equal(t, "42 USD", Money{Amount: 42, Currency: "USD"}.String())
	assert.Equal(t, Rupees(699), Rupees(233).Times(3))
}
