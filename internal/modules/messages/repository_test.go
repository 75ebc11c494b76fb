package messages

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwagpt/agent/internal/domain"
	testingpkg "github.com/rwagpt/agent/internal/testing"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(testingpkg.NewTestDB(t, "messages").Conn(), zerolog.Nop())
}

func TestRepository_FetchRecentNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, domain.RoleUser, "first", base))
	require.NoError(t, repo.Insert(ctx, domain.RoleAgent, "second", base.Add(500*time.Millisecond)))
	require.NoError(t, repo.Insert(ctx, domain.RoleUser, "third", base.Add(2*time.Second)))

	msgs, err := repo.FetchRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "third", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
	assert.True(t, msgs[1].Timestamp.Equal(base.Add(500*time.Millisecond)))
	assert.NotEmpty(t, msgs[0].ID)
}

func TestRepository_FetchByRole(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, domain.RoleUser, "q1", base))
	require.NoError(t, repo.Insert(ctx, domain.RoleAgent, "a1", base.Add(time.Second)))
	require.NoError(t, repo.Insert(ctx, domain.RoleUser, "q2", base.Add(2*time.Second)))

	msgs, err := repo.FetchByRole(ctx, domain.RoleUser, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "q2", msgs[0].Content)
	assert.Equal(t, "q1", msgs[1].Content)
}

func TestRepository_EmptyIsNotNil(t *testing.T) {
	msgs, err := newTestRepository(t).FetchRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}
