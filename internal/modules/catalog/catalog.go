package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rwagpt/agent/pkg/embedded"
)

// Catalog is an immutable, ordered set of investment options.
// Order is significant: recommendation ties are broken by it.
type Catalog struct {
	options []InvestmentOption
	byAsset map[string]int
}

type catalogFile struct {
	Options []InvestmentOption `yaml:"options"`
}

// Parse decodes a YAML catalog and validates it
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(file.Options)
}

// New builds a catalog from options, rejecting duplicates, invalid enums and
// empty keywords. Keywords are stored trimmed and lowercased.
func New(options []InvestmentOption) (*Catalog, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	c := &Catalog{
		options: make([]InvestmentOption, 0, len(options)),
		byAsset: make(map[string]int, len(options)),
	}
	keys := make(map[string]struct{}, len(options))
	for _, opt := range options {
		opt = opt.normalized()
		if err := opt.validate(); err != nil {
			return nil, err
		}
		if _, dup := keys[opt.Key]; dup {
			return nil, fmt.Errorf("duplicate catalog key %s", opt.Key)
		}
		if _, dup := c.byAsset[opt.AssetID]; dup {
			return nil, fmt.Errorf("duplicate asset_id %s", opt.AssetID)
		}
		keys[opt.Key] = struct{}{}
		c.byAsset[opt.AssetID] = len(c.options)
		c.options = append(c.options, opt)
	}
	return c, nil
}

// Default returns the catalog compiled into the binary
func Default() (*Catalog, error) {
	return Parse(embedded.Catalog)
}

// Load reads the catalog from path, or the embedded default when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Options returns a copy of all options in catalog order
func (c *Catalog) Options() []InvestmentOption {
	out := make([]InvestmentOption, len(c.options))
	for i, opt := range c.options {
		out[i] = opt.clone()
	}
	return out
}

// Len returns the number of options
func (c *Catalog) Len() int {
	return len(c.options)
}

// ByAssetID looks an option up by asset code (e.g. "TCB-001")
func (c *Catalog) ByAssetID(assetID string) (InvestmentOption, bool) {
	i, ok := c.byAsset[assetID]
	if !ok {
		return InvestmentOption{}, false
	}
	return c.options[i].clone(), true
}

// Curated returns the first n options, the short list shown when no live data exists
func (c *Catalog) Curated(n int) []InvestmentOption {
	if n > len(c.options) {
		n = len(c.options)
	}
	out := make([]InvestmentOption, n)
	for i := 0; i < n; i++ {
		out[i] = c.options[i].clone()
	}
	return out
}
