package subgraph

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwagpt/agent/internal/clientdata"
	"github.com/rwagpt/agent/internal/domain"
)

const investmentsJSON = `{"data":{"investments":[
  {"id":"0xaa-1","investor":"0xabc","amount":"100000000","timestamp":"1725192000"},
  {"id":"0xbb-0","investor":"0xdef","amount":"5000000","timestamp":"1725191000"}
]}}`

func newCacheRepo(t *testing.T) *clientdata.Repository {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE client_data (source TEXT NOT NULL, cache_key TEXT NOT NULL, data TEXT NOT NULL, expires_at INTEGER NOT NULL, PRIMARY KEY (source, cache_key))`)
	require.NoError(t, err)
	return clientdata.NewRepository(db, zerolog.Nop())
}

func TestRecentInvestments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer gw-key", r.Header.Get("Authorization"))

		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "investments(first: $first, orderBy: timestamp, orderDirection: desc)")
		assert.Equal(t, float64(5), req.Variables["first"])

		w.Write([]byte(investmentsJSON))
	}))
	defer server.Close()

	client := NewClient(server.URL, "gw-key", nil, zerolog.Nop())
	got, err := client.RecentInvestments(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0xabc", got[0].Investor)
	assert.Equal(t, "100000000", got[0].Amount)
}

func TestRecentInvestments_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":{"investments":[]}}`))
	}))
	defer server.Close()

	got, err := NewClient(server.URL, "", nil, zerolog.Nop()).RecentInvestments(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRecentInvestments_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"http error", http.StatusBadGateway, `bad gateway`, domain.ErrExternalUnavailable},
		{"graphql errors", http.StatusOK, `{"errors":[{"message":"indexing_error"}]}`, domain.ErrExternalUnavailable},
		{"no data", http.StatusOK, `{}`, domain.ErrMalformedResponse},
		{"not json", http.StatusOK, `<html>`, domain.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, "", nil, zerolog.Nop()).RecentInvestments(context.Background(), 5)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRecentInvestments_NotConfigured(t *testing.T) {
	client := NewClient("", "", nil, zerolog.Nop())
	assert.False(t, client.Configured())
	_, err := client.RecentInvestments(context.Background(), 5)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestRecentInvestments_CachesAndServesStale(t *testing.T) {
	var calls atomic.Int32
	var failing atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(investmentsJSON))
	}))
	defer server.Close()

	repo := newCacheRepo(t)
	client := NewClient(server.URL, "", repo, zerolog.Nop())
	ctx := context.Background()

	_, err := client.RecentInvestments(ctx, 5)
	require.NoError(t, err)
	_, err = client.RecentInvestments(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second call served from cache")

	// expire the entry, then fail upstream
	require.NoError(t, repo.Store(clientdata.SourceSubgraph, "investments:5", []Investment{{ID: "stale"}}, -time.Hour))
	failing.Store(true)

	got, err := client.RecentInvestments(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "stale", got[0].ID)
}
