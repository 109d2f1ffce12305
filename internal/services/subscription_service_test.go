package services_test

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/relay/internal/apperrors"
	"github.com/anonto42/nano-midea/relay/internal/models"
	"github.com/anonto42/nano-midea/relay/internal/push"
	"github.com/anonto42/nano-midea/relay/internal/repositories"
	"github.com/anonto42/nano-midea/relay/internal/services"
	"github.com/anonto42/nano-midea/relay/internal/testutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSubscriptionService(t *testing.T) *services.SubscriptionService {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return services.NewSubscriptionService(repositories.NewPostgresSubscriptionRepository(testutil.NewTestDB(t)), logger)
}

func registration(endpoint, p256dh string) models.RegisterSubscriptionRequest {
	return models.RegisterSubscriptionRequest{
		Endpoint: endpoint,
		Keys:     models.SubscriptionKeys{P256dh: p256dh, Auth: "auth-secret"},
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	svc := newSubscriptionService(t)
	ctx := context.Background()

	cases := map[string]models.RegisterSubscriptionRequest{
		"missing endpoint": registration("", "key"),
		"relative url":     registration("/push/123", "key"),
		"missing p256dh":   registration("https://push.example/1", ""),
		"missing auth": {
			Endpoint: "https://push.example/1",
			Keys:     models.SubscriptionKeys{P256dh: "key"},
		},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(ctx, "alice", req)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidOperation), "got %v", err)
		})
	}

	_, err := svc.Register(ctx, "", registration("https://push.example/1", "key"))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidOperation))
}

func TestRegisterUpsertsByEndpoint(t *testing.T) {
	svc := newSubscriptionService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, "alice", registration("https://push.example/1", "old"))
	require.NoError(t, err)

	req := registration("https://push.example/1", "new")
	req.UserAgent = "Firefox"
	second, err := svc.Register(ctx, "alice", req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "new", second.Keys.P256dh)
	require.NotNil(t, second.UserAgent)
	assert.Equal(t, "Firefox", *second.UserAgent)

	subs, err := svc.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "new", subs[0].Keys.P256dh)
}

func TestRegisterMovesEndpointBetweenUsers(t *testing.T) {
	svc := newSubscriptionService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", registration("https://push.example/shared", "k1"))
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob", registration("https://push.example/shared", "k2"))
	require.NoError(t, err)

	subs, err := svc.ListForUser(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, subs)

	subs, err = svc.ListForUser(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "k2", subs[0].Keys.P256dh)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	svc := newSubscriptionService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", registration("https://push.example/1", "k"))
	require.NoError(t, err)

	require.NoError(t, svc.Unregister(ctx, "https://push.example/1"))
	require.NoError(t, svc.Unregister(ctx, "https://push.example/1"))

	subs, err := svc.ListForUser(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, subs)

	assert.True(t, errors.Is(svc.Unregister(ctx, ""), apperrors.ErrInvalidOperation))
}

func TestRemoveDeadSparesReRegisteredEndpoint(t *testing.T) {
	svc := newSubscriptionService(t)
	ctx := context.Background()

	stale, err := svc.Register(ctx, "alice", registration("https://push.example/1", "k1"))
	require.NoError(t, err)

	// the device re-registers while a delivery to the old keys is failing
	time.Sleep(2 * time.Millisecond)
	_, err = svc.Register(ctx, "alice", registration("https://push.example/1", "k2"))
	require.NoError(t, err)

	removed, err := svc.RemoveDead(ctx, *stale)
	require.NoError(t, err)
	assert.False(t, removed)

	current, err := svc.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, current, 1)

	removed, err = svc.RemoveDead(ctx, current[0])
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestRemoveAllFor(t *testing.T) {
	svc := newSubscriptionService(t)
	ctx := context.Background()

	for _, endpoint := range []string{"https://push.example/1", "https://push.example/2"} {
		_, err := svc.Register(ctx, "alice", registration(endpoint, "k"))
		require.NoError(t, err)
	}
	_, err := svc.Register(ctx, "bob", registration("https://push.example/3", "k"))
	require.NoError(t, err)

	removed, err := svc.RemoveAllFor(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	subs, err := svc.ListForUser(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestRegisterRejectsUnusableKeys(t *testing.T) {
	svc := newSubscriptionService(t)
	svc.RequireKeys(push.ValidateKeys)
	ctx := context.Background()

	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	p256dh := base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes())
	auth := base64.RawURLEncoding.EncodeToString(make([]byte, 16))

	cases := map[string]models.SubscriptionKeys{
		"p256dh not a point": {P256dh: base64.RawURLEncoding.EncodeToString([]byte("not-a-point")), Auth: auth},
		"placeholder p256dh": {P256dh: "p256dh-alice", Auth: auth},
		"short auth":         {P256dh: p256dh, Auth: base64.RawURLEncoding.EncodeToString(make([]byte, 8))},
	}
	for name, keys := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(ctx, "alice", models.RegisterSubscriptionRequest{Endpoint: "https://push.example/1", Keys: keys})
			assert.True(t, errors.Is(err, apperrors.ErrInvalidOperation), "got %v", err)
		})
	}

	list, err := svc.ListForUser(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)

	sub, err := svc.Register(ctx, "alice", models.RegisterSubscriptionRequest{
		Endpoint: "https://push.example/1",
		Keys:     models.SubscriptionKeys{P256dh: p256dh, Auth: auth},
	})
	require.NoError(t, err)
	assert.Equal(t, p256dh, sub.Keys.P256dh)
}
