package swap

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rwagpt/agent/internal/domain"
)

// ToMinorUnits converts a human decimal amount into integer token units.
// "100" with 6 decimals is "100000000". Amounts with more fractional digits
// than the token supports, or negative amounts, are rejected.
func ToMinorUnits(amountHuman string, decimals int32) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amountHuman))
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", amountHuman, err)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("invalid amount %q: negative", amountHuman)
	}

	minor := d.Shift(decimals)
	if !minor.IsInteger() {
		return "", fmt.Errorf("invalid amount %q: more than %d decimal places", amountHuman, decimals)
	}
	return minor.BigInt().String(), nil
}

// HexQuantity normalizes an integer quantity to 0x-prefixed lowercase hex.
// Values already in hex pass through; the empty string is zero.
func HexQuantity(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "0x0", nil
	}
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		return "0x" + strings.ToLower(v[2:]), nil
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return "", fmt.Errorf("invalid quantity %q: %w", v, err)
	}
	if d.IsNegative() || !d.IsInteger() {
		return "", fmt.Errorf("invalid quantity %q", v)
	}
	return "0x" + d.BigInt().Text(16), nil
}

// QuantityFromJSON decodes a quantity that aggregators send either as a JSON
// number or as a decimal or hex string. Absent values are zero.
func QuantityFromJSON(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "0x0", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", fmt.Errorf("%w: quantity %s", domain.ErrMalformedResponse, string(raw))
		}
		s = n.String()
	}

	hex, err := HexQuantity(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return hex, nil
}
