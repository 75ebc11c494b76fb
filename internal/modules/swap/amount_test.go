package swap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwagpt/agent/internal/domain"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount   string
		decimals int32
		want     string
	}{
		{"100", 6, "100000000"},
		{"0.1", 6, "100000"},
		{"2.5", 18, "2500000000000000000"},
		{"123456789.123456", 6, "123456789123456"},
		{" 7 ", 0, "7"},
		{"0", 6, "0"},
	}
	for _, tt := range tests {
		got, err := ToMinorUnits(tt.amount, tt.decimals)
		require.NoError(t, err, tt.amount)
		assert.Equal(t, tt.want, got, tt.amount)
	}
}

func TestToMinorUnits_Rejects(t *testing.T) {
	for _, amount := range []string{"", "abc", "-1", "0.0000001"} {
		_, err := ToMinorUnits(amount, 6)
		assert.Error(t, err, amount)
	}
}

func TestHexQuantity(t *testing.T) {
	tests := map[string]string{
		"":                    "0x0",
		"0":                   "0x0",
		"21000":               "0x5208",
		"0x5208":              "0x5208",
		"0XABCDEF":            "0xabcdef",
		"1000000000000000000": "0xde0b6b3a7640000",
	}
	for in, want := range tests {
		got, err := HexQuantity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := HexQuantity("1.5")
	assert.Error(t, err)
	_, err = HexQuantity("gas")
	assert.Error(t, err)
}

func TestTokensForChain(t *testing.T) {
	amoy := TokensForChain(ChainPolygonAmoy)
	assert.Equal(t, "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582", amoy.Src.Address)
	assert.Equal(t, int32(6), amoy.Src.Decimals)

	assert.Equal(t, ChainPolygon, TokensForChain(137).ChainID)
	assert.Equal(t, ChainEthereum, TokensForChain(1).ChainID)
	assert.Equal(t, amoy, TokensForChain(56), "unknown chains use the default pair")
}

func TestQuantityFromJSON(t *testing.T) {
	tests := map[string]string{
		``:         "0x0",
		`null`:     "0x0",
		`21000`:    "0x5208",
		`"21000"`:  "0x5208",
		`"0x5208"`: "0x5208",
		`"0"`:      "0x0",
	}
	for in, want := range tests {
		got, err := QuantityFromJSON(json.RawMessage(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := QuantityFromJSON(json.RawMessage(`{"x":1}`))
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
	_, err = QuantityFromJSON(json.RawMessage(`"1.5"`))
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}
