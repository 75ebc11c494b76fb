package search

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwagpt/agent/internal/clientdata"
	"github.com/rwagpt/agent/internal/domain"
)

type fakeGenerator struct {
	text   string
	err    error
	calls  int
	model  string
	prompt string
	block  bool
}

func (f *fakeGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	f.calls++
	f.model, f.prompt = model, prompt
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

func newTestClient(t *testing.T, gen generator, repo *clientdata.Repository) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), "", "", repo, zerolog.Nop())
	require.NoError(t, err)
	c.gen = gen
	return c
}

func newCacheRepo(t *testing.T) *clientdata.Repository {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE client_data (source TEXT NOT NULL, cache_key TEXT NOT NULL, data TEXT NOT NULL, expires_at INTEGER NOT NULL, PRIMARY KEY (source, cache_key))`)
	require.NoError(t, err)
	return clientdata.NewRepository(db, zerolog.Nop())
}

func TestAnswer_NotConfigured(t *testing.T) {
	c, err := NewClient(context.Background(), "", "", nil, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, c.Configured())
	assert.Equal(t, DefaultModel, c.model)

	_, err = c.Answer(context.Background(), "what is rwa")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestAnswer(t *testing.T) {
	gen := &fakeGenerator{text: "  **RWA** means real-world asset.\n"}
	c := newTestClient(t, gen, nil)

	got, err := c.Answer(context.Background(), " what is RWA ")
	require.NoError(t, err)
	assert.Equal(t, "**RWA** means real-world asset.", got)
	assert.Equal(t, "what is RWA", gen.prompt)
	assert.Equal(t, DefaultModel, gen.model)
}

func TestAnswer_Failures(t *testing.T) {
	_, err := newTestClient(t, &fakeGenerator{err: errors.New("quota exceeded")}, nil).Answer(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrExternalUnavailable)
	assert.True(t, domain.IsExternalFailure(err))

	_, err = newTestClient(t, &fakeGenerator{text: "   "}, nil).Answer(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)

	_, err = newTestClient(t, &fakeGenerator{text: "x"}, nil).Answer(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestAnswer_Timeout(t *testing.T) {
	c := newTestClient(t, &fakeGenerator{block: true}, nil)
	c.timeout = 20 * time.Millisecond

	_, err := c.Answer(context.Background(), "slow question")
	assert.ErrorIs(t, err, domain.ErrExternalUnavailable)
}

func TestAnswer_CachedCaseInsensitive(t *testing.T) {
	gen := &fakeGenerator{text: "answer"}
	c := newTestClient(t, gen, newCacheRepo(t))

	_, err := c.Answer(context.Background(), "Best RWA yields")
	require.NoError(t, err)
	got, err := c.Answer(context.Background(), "best rwa yields")
	require.NoError(t, err)

	assert.Equal(t, "answer", got)
	assert.Equal(t, 1, gen.calls)
}
