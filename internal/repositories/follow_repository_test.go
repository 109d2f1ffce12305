package repositories_test

import (
	"context"
	"testing"

	"github.com/anonto42/nano-midea/relay/internal/apperrors"
	"github.com/anonto42/nano-midea/relay/internal/models"
	"github.com/anonto42/nano-midea/relay/internal/repositories"
	"github.com/anonto42/nano-midea/relay/internal/testutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func followerIDs(page *models.FollowPage) []models.UserID {
	ids := make([]models.UserID, 0, len(page.Entries))
	for _, e := range page.Entries {
		ids = append(ids, e.UserID)
	}
	return ids
}

func TestCreateFollowIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewPostgresFollowRepository(testutil.NewTestDB(t))

	created, err := repo.CreateFollow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateFollow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, created)

	count, err := repo.GetFollowersCount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// the reverse direction is a distinct edge
	created, err = repo.CreateFollow(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestDeleteFollow(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewPostgresFollowRepository(testutil.NewTestDB(t))

	_, err := repo.CreateFollow(ctx, "alice", "bob")
	require.NoError(t, err)

	deleted, err := repo.DeleteFollow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteFollow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, deleted)

	following, err := repo.IsFollowing(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, following)
}

func TestGetFollowersPagesMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewPostgresFollowRepository(testutil.NewTestDB(t))

	for _, follower := range []models.UserID{"u1", "u2", "u3", "u4", "u5"} {
		_, err := repo.CreateFollow(ctx, follower, "star")
		require.NoError(t, err)
	}
	_, err := repo.CreateFollow(ctx, "u1", "someone-else")
	require.NoError(t, err)

	page, err := repo.GetFollowers(ctx, "star", 2, "")
	require.NoError(t, err)
	assert.Equal(t, []models.UserID{"u5", "u4"}, followerIDs(page))
	assert.True(t, page.HasMore)
	require.NotEmpty(t, page.NextCursor)

	page, err = repo.GetFollowers(ctx, "star", 2, page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, []models.UserID{"u3", "u2"}, followerIDs(page))
	assert.True(t, page.HasMore)

	page, err = repo.GetFollowers(ctx, "star", 2, page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, []models.UserID{"u1"}, followerIDs(page))
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
}

func TestGetFollowing(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewPostgresFollowRepository(testutil.NewTestDB(t))

	for _, target := range []models.UserID{"a", "b", "c"} {
		_, err := repo.CreateFollow(ctx, "fan", target)
		require.NoError(t, err)
	}

	page, err := repo.GetFollowing(ctx, "fan", 10, "")
	require.NoError(t, err)
	assert.Equal(t, []models.UserID{"c", "b", "a"}, followerIDs(page))
	assert.False(t, page.HasMore)

	count, err := repo.GetFollowingCount(ctx, "fan")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestGetFollowersRejectsMalformedCursor(t *testing.T) {
	repo := repositories.NewPostgresFollowRepository(testutil.NewTestDB(t))

	for _, cursor := range []string{"%%%", "bm9zZXBhcmF0b3I", "YWJjOjEy"} {
		_, err := repo.GetFollowers(context.Background(), "star", 10, cursor)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidCursor), "cursor %q: %v", cursor, err)
	}
}

func TestDeleteAllForUser(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewPostgresFollowRepository(testutil.NewTestDB(t))

	pairs := [][2]models.UserID{{"a", "x"}, {"x", "b"}, {"x", "a"}, {"c", "d"}}
	for _, p := range pairs {
		_, err := repo.CreateFollow(ctx, p[0], p[1])
		require.NoError(t, err)
	}

	removed, err := repo.DeleteAllForUser(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	followers, err := repo.GetFollowersCount(ctx, "x")
	require.NoError(t, err)
	following, err := repo.GetFollowingCount(ctx, "x")
	require.NoError(t, err)
	assert.Zero(t, followers+following)

	untouched, err := repo.IsFollowing(ctx, "c", "d")
	require.NoError(t, err)
	assert.True(t, untouched)
}

func TestFollowRepositoryReportsStoreUnavailable(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repositories.NewPostgresFollowRepository(db)
	testutil.CloseDB(t, db)

	_, err := repo.GetFollowers(context.Background(), "star", 10, "")
	assert.True(t, errors.Is(err, apperrors.ErrStoreUnavailable), "got %v", err)

	_, err = repo.CreateFollow(context.Background(), "a", "b")
	assert.True(t, errors.Is(err, apperrors.ErrStoreUnavailable), "got %v", err)
}
