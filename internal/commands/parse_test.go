package commands

import (
	"testing"
	"time"

	"crypto-portfolio-bot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransactionLine(t *testing.T) {
	tx, err := ParseTransactionLine("  btc 30000 0.1 25-12-2023 ")
	require.NoError(t, err)
	assert.Equal(t, "BTC", tx.Symbol)
	assert.Equal(t, 30000.0, tx.UnitPrice)
	assert.Equal(t, 0.1, tx.Quantity)
	assert.Equal(t, time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC), tx.Date)

	tests := []struct {
		name string
		line string
		want error
	}{
		{"too few fields", "BTC 30000 0.1", ErrInvalidFormat},
		{"too many fields", "BTC 30000 0.1 25-12-2023 extra", ErrInvalidFormat},
		{"price not a number", "BTC abc 0.1 25-12-2023", ErrInvalidNumber},
		{"price infinite", "BTC Inf 0.1 25-12-2023", ErrInvalidNumber},
		{"quantity NaN", "BTC 30000 NaN 25-12-2023", ErrInvalidNumber},
		{"zero price", "BTC 0 0.1 25-12-2023", ErrNotPositive},
		{"negative quantity", "BTC 30000 -0.1 25-12-2023", ErrNotPositive},
		{"iso date", "BTC 30000 0.1 2023-12-25", ErrInvalidDate},
		{"impossible date", "BTC 30000 0.1 31-02-2023", ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTransactionLine(tt.line)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseAlert(t *testing.T) {
	tests := []struct {
		text      string
		symbol    string
		direction types.Direction
	}{
		{"BTC 40000 SOPRA", "BTC", types.Above},
		{"btc 40000 above", "BTC", types.Above},
		{"eth 1500 sotto", "ETH", types.Below},
		{"ETH 1500 BELOW", "ETH", types.Below},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			a, err := ParseAlert(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.direction, a.Direction)
			assert.Equal(t, tt.symbol, a.Symbol)
		})
	}

	_, err := ParseAlert("BTC 40000 UP")
	assert.ErrorIs(t, err, ErrUnknownToken)
	_, err = ParseAlert("BTC -5 ABOVE")
	assert.ErrorIs(t, err, ErrNotPositive)
	_, err = ParseAlert("BTC 40000")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestParseReport(t *testing.T) {
	sub, err := ParseReport("every_12_hours 18:30")
	require.NoError(t, err)
	assert.Equal(t, types.Every12Hours, sub.Frequency)
	assert.Equal(t, 18, sub.Hour)
	assert.Equal(t, 30, sub.Minute)

	_, err = ParseReport("weekly 09:00")
	assert.ErrorIs(t, err, ErrUnknownToken)
	_, err = ParseReport("daily 25:00")
	assert.ErrorIs(t, err, ErrInvalidTimeOfDay)
	_, err = ParseReport("daily")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestIsBulkSentinel(t *testing.T) {
	assert.True(t, IsBulkSentinel("FINE"))
	assert.True(t, IsBulkSentinel(" done "))
	assert.False(t, IsBulkSentinel("FINISH"))
}
