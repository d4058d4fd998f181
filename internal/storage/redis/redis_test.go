package redis

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/itchan-dev/community/internal/config"
	"github.com/itchan-dev/community/internal/domain"
	internal_errors "github.com/itchan-dev/community/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var store *ResetTokenStore

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("failed to start container: %s", err)
	}
	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		log.Fatalf("failed to obtain container endpoint: %s", err)
	}
	store, err = New(ctx, &config.Redis{Addr: endpoint})
	if err != nil {
		log.Fatalf("failed to connect to redis container: %s", err)
	}

	exitCode := m.Run()

	if err := store.Close(); err != nil {
		log.Printf("failed to close redis client: %s", err)
	}
	if err := container.Terminate(ctx); err != nil {
		log.Printf("failed to terminate container: %s", err)
	}
	os.Exit(exitCode)
}

func TestResetTokenStore(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, store.SavePasswordResetToken(ctx, domain.PasswordResetToken{
		Token: "token-1", UserId: 7, Expires: time.Now().Add(time.Hour),
	}))

	got, err := store.PasswordResetToken(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserId)
	assert.Equal(t, "token-1", got.Token)

	ttl, err := store.client.TTL(ctx, resetKey(domain.HashToken("token-1"))).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	t.Run("new token replaces the previous one", func(t *testing.T) {
		require.NoError(t, store.SavePasswordResetToken(ctx, domain.PasswordResetToken{
			Token: "token-2", UserId: 7, Expires: time.Now().Add(time.Hour),
		}))
		_, err := store.PasswordResetToken(ctx, "token-1")
		assert.True(t, internal_errors.IsNotFound(err))
	})

	t.Run("delete consumes the token", func(t *testing.T) {
		require.NoError(t, store.DeletePasswordResetToken(ctx, "token-2"))
		_, err := store.PasswordResetToken(ctx, "token-2")
		assert.True(t, internal_errors.IsNotFound(err))
		assert.True(t, internal_errors.IsNotFound(store.DeletePasswordResetToken(ctx, "token-2")))
	})

	t.Run("expired tokens are rejected", func(t *testing.T) {
		err := store.SavePasswordResetToken(ctx, domain.PasswordResetToken{
			Token: "old", UserId: 8, Expires: time.Now().Add(-time.Second),
		})
		assert.Error(t, err)
	})
}
