package helpers

import (
	"encoding/json"
	"strings"

	"go-restaurant-pos/models"

	"github.com/shopspring/decimal"
)

// ToCents converts an amount to integer cents, rounding half away from zero.
func ToCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ParsePrice accepts "12.50", "12,50" or "12" and rejects anything negative.
func ParsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(strings.Replace(raw, ",", ".", 1))
	if raw == "" {
		return decimal.Zero, models.NewValidationError("price", "price is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, models.NewValidationError("price", "price %q is not a number", raw)
	}
	if d.IsNegative() {
		return decimal.Zero, models.NewValidationError("price", "price must not be negative")
	}
	return d.Round(2), nil
}

// PriceFromJSON parses a price sent either as a JSON number or a JSON string.
func PriceFromJSON(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		var unquoted string
		if err := json.Unmarshal(raw, &unquoted); err != nil {
			return decimal.Zero, models.NewValidationError("price", "price is malformed")
		}
		s = unquoted
	}
	return ParsePrice(s)
}

func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
