// Package clientdata provides persistent caching for external API client responses.
// All data is stored as JSON blobs with expiration timestamps for cache-first behavior.
package clientdata

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Cache sources. Each external client writes under its own source name.
const (
	SourceRealT    = "realt"
	SourceSubgraph = "subgraph"
	SourceSearch   = "search"
)

// AllSources lists every source that may appear in client_data.
var AllSources = []string{
	SourceRealT,
	SourceSubgraph,
	SourceSearch,
}

var validSources = func() map[string]bool {
	m := make(map[string]bool, len(AllSources))
	for _, s := range AllSources {
		m[s] = true
	}
	return m
}()

// Repository provides cache operations for client data.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "client_data").Logger(),
	}
}

func validateSource(source string) error {
	if !validSources[source] {
		return fmt.Errorf("invalid cache source: %s", source)
	}
	return nil
}

// Store saves data with expiration = now + ttl.
func (r *Repository) Store(source, key string, data interface{}, ttl time.Duration) error {
	if err := validateSource(source); err != nil {
		return err
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	expiresAt := time.Now().Add(ttl).Unix()

	_, err = r.db.Exec(
		"INSERT OR REPLACE INTO client_data (source, cache_key, data, expires_at) VALUES (?, ?, ?, ?)",
		source, key, string(jsonData), expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store %s data: %w", source, err)
	}
	return nil
}

// GetIfFresh returns data only if it has not expired.
// Returns nil, nil if the key doesn't exist or data is expired.
// Use Get() to retrieve stale data as a fallback when API calls fail.
func (r *Repository) GetIfFresh(source, key string) (json.RawMessage, error) {
	if err := validateSource(source); err != nil {
		return nil, err
	}

	var data string
	err := r.db.QueryRow(
		"SELECT data FROM client_data WHERE source = ? AND cache_key = ? AND expires_at > ?",
		source, key, time.Now().Unix(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s data: %w", source, err)
	}
	return json.RawMessage(data), nil
}

// Get returns data regardless of expiration status.
// Stale data is better than no data when the upstream is down.
func (r *Repository) Get(source, key string) (json.RawMessage, error) {
	if err := validateSource(source); err != nil {
		return nil, err
	}

	var data string
	err := r.db.QueryRow(
		"SELECT data FROM client_data WHERE source = ? AND cache_key = ?",
		source, key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s data: %w", source, err)
	}
	return json.RawMessage(data), nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(source, key string) error {
	if err := validateSource(source); err != nil {
		return err
	}

	if _, err := r.db.Exec("DELETE FROM client_data WHERE source = ? AND cache_key = ?", source, key); err != nil {
		return fmt.Errorf("failed to delete %s data: %w", source, err)
	}
	return nil
}

// DeleteExpired removes all rows of a source where expires_at < now.
func (r *Repository) DeleteExpired(source string) (int64, error) {
	if err := validateSource(source); err != nil {
		return 0, err
	}

	result, err := r.db.Exec(
		"DELETE FROM client_data WHERE source = ? AND expires_at < ?",
		source, time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired %s data: %w", source, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", source, err)
	}
	return deleted, nil
}

// DeleteAllExpired removes expired entries of every source.
// Returns a map of source to number of rows deleted.
func (r *Repository) DeleteAllExpired() (map[string]int64, error) {
	results := make(map[string]int64)

	for _, source := range AllSources {
		deleted, err := r.DeleteExpired(source)
		if err != nil {
			return results, err
		}
		results[source] = deleted
	}
	return results, nil
}

// Fetch is the cache-first read used by the clients: a fresh hit is decoded
// into out; otherwise load is called and its result cached; if load fails
// a stale entry is used instead. The returned bool reports a stale read.
// A failed cache write is logged and does not fail the read.
// A nil repository disables caching.
func Fetch[T any](r *Repository, source, key string, ttl time.Duration, load func() (T, error)) (T, bool, error) {
	var zero T
	if r != nil {
		if raw, err := r.GetIfFresh(source, key); err == nil && raw != nil {
			var cached T
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, false, nil
			}
		}
	}

	value, loadErr := load()
	if loadErr == nil {
		if r != nil {
			if err := r.Store(source, key, value, ttl); err != nil {
				r.log.Warn().Err(err).Str("source", source).Str("key", key).Msg("Failed to cache client data")
			}
		}
		return value, false, nil
	}

	if r != nil {
		if raw, err := r.Get(source, key); err == nil && raw != nil {
			var stale T
			if err := json.Unmarshal(raw, &stale); err == nil {
				return stale, true, nil
			}
		}
	}
	return zero, false, loadErr
}
