package helpers

import (
	"encoding/json"
	"testing"

	"go-restaurant-pos/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentsRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "0.01", "12.50", "25", "1999.99"} {
		d := decimal.RequireFromString(s)
		assert.True(t, FromCents(ToCents(d)).Equal(d), s)
	}
	assert.Equal(t, int64(1251), ToCents(decimal.RequireFromString("12.505")))
}

func TestParsePrice(t *testing.T) {
	d, err := ParsePrice("12,5")
	require.NoError(t, err)
	assert.Equal(t, "12.50", FormatMoney(d))

	_, err = ParsePrice("abc")
	assert.True(t, models.IsValidation(err))

	_, err = ParsePrice("-1")
	assert.True(t, models.IsValidation(err))

	_, err = ParsePrice("  ")
	assert.True(t, models.IsValidation(err))
}

func TestPriceFromJSON(t *testing.T) {
	d, err := PriceFromJSON(json.RawMessage(`9.9`))
	require.NoError(t, err)
	assert.Equal(t, "9.90", FormatMoney(d))

	d, err = PriceFromJSON(json.RawMessage(`"7.25"`))
	require.NoError(t, err)
	assert.Equal(t, "7.25", FormatMoney(d))

	_, err = PriceFromJSON(json.RawMessage(`"seven"`))
	assert.True(t, models.IsValidation(err))
}
