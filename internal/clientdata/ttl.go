package clientdata

import "time"

// TTL constants per source.
// These are added to time.Now() when storing to calculate expires_at.
const (
	TTLRealT    = 30 * time.Minute // listings change slowly
	TTLSubgraph = 2 * time.Minute  // indexed investments follow new blocks
	TTLSearch   = 10 * time.Minute // same question, same grounded answer
)
