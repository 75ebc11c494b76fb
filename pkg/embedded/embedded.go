// Package embedded provides static data files compiled into the binary.
package embedded

import (
	_ "embed"
)

// Catalog is the default investment catalog (YAML).
// It is used when no CATALOG_PATH override is configured.
//
//go:embed catalog.yaml
var Catalog []byte
