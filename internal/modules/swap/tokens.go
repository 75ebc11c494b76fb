package swap

// Token is an ERC-20 token on a specific chain
type Token struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals int32  `json:"decimals"`
}

// ChainTokens is the swap pair used for investments on one chain
type ChainTokens struct {
	ChainID int    `json:"chain_id"`
	Name    string `json:"name"`
	Src     Token  `json:"src"`
	Dst     Token  `json:"dst"`
}

// Supported chain ids
const (
	ChainEthereum    = 1
	ChainPolygon     = 137
	ChainPolygonAmoy = 80002
)

// DefaultChainID is used for unknown chains
const DefaultChainID = ChainPolygonAmoy

var chainTokens = map[int]ChainTokens{
	ChainPolygonAmoy: {
		ChainID: ChainPolygonAmoy,
		Name:    "Polygon Amoy",
		Src:     Token{Symbol: "USDC", Address: "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582", Decimals: 6},
		Dst:     Token{Symbol: "WPOL", Address: "0x360ad4f9a9A8EFe9A8DCB5f461c4Cc1047E1Dcf9", Decimals: 18},
	},
	ChainPolygon: {
		ChainID: ChainPolygon,
		Name:    "Polygon",
		Src:     Token{Symbol: "USDC", Address: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", Decimals: 6},
		Dst:     Token{Symbol: "WETH", Address: "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", Decimals: 18},
	},
	ChainEthereum: {
		ChainID: ChainEthereum,
		Name:    "Ethereum",
		Src:     Token{Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
		Dst:     Token{Symbol: "WETH", Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18},
	},
}

// TokensForChain returns the swap pair for chainID, or the default chain's pair
func TokensForChain(chainID int) ChainTokens {
	if t, ok := chainTokens[chainID]; ok {
		return t
	}
	return chainTokens[DefaultChainID]
}
