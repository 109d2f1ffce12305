package repositories_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/relay/internal/models"
	"github.com/anonto42/nano-midea/relay/internal/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// newTopicRepository needs a reachable MongoDB in MONGO_TEST_URI; each test gets its own database.
func newTopicRepository(t *testing.T) *repositories.MongoTopicRepository {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("relay_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	repo := repositories.NewMongoTopicRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))
	return repo
}

func members(t *testing.T, repo repositories.TopicRepository, topic string) []models.UserID {
	t.Helper()
	var out []models.UserID
	require.NoError(t, repo.Members(context.Background(), topic, func(id models.UserID) error {
		out = append(out, id)
		return nil
	}))
	return out
}

func TestTopicMembership(t *testing.T) {
	repo := newTopicRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Join(ctx, "launches", "alice"))
	require.NoError(t, repo.Join(ctx, "launches", "alice"))
	require.NoError(t, repo.Join(ctx, "launches", "bob"))
	require.NoError(t, repo.Join(ctx, "outages", "alice"))

	assert.ElementsMatch(t, []models.UserID{"alice", "bob"}, members(t, repo, "launches"))

	require.NoError(t, repo.Leave(ctx, "launches", "bob"))
	require.NoError(t, repo.Leave(ctx, "launches", "bob"))
	assert.Equal(t, []models.UserID{"alice"}, members(t, repo, "launches"))

	removed, err := repo.RemoveUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.Empty(t, members(t, repo, "launches"))
	assert.Empty(t, members(t, repo, "outages"))
}
