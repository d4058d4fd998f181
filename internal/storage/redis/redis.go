// Package redis keeps password reset tokens in Redis so they expire on their own.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/itchan-dev/community/internal/config"
	"github.com/itchan-dev/community/internal/domain"
	internal_errors "github.com/itchan-dev/community/internal/errors"
	"github.com/itchan-dev/community/internal/logger"
	"github.com/redis/go-redis/v9"
)

type ResetTokenStore struct {
	client *redis.Client
}

// New connects and pings the server.
func New(ctx context.Context, cfg *config.Redis) (*ResetTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	logger.Log.Info("successfully connected to redis", "addr", cfg.Addr)
	return &ResetTokenStore{client: client}, nil
}

func NewWithClient(client *redis.Client) *ResetTokenStore {
	return &ResetTokenStore{client: client}
}

func (s *ResetTokenStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *ResetTokenStore) Close() error {
	return s.client.Close()
}

// SavePasswordResetToken stores the token until it expires. A previous
// token of the same user is dropped.
func (s *ResetTokenStore) SavePasswordResetToken(ctx context.Context, token domain.PasswordResetToken) error {
	ttl := time.Until(token.Expires)
	if ttl <= 0 {
		return fmt.Errorf("token expiration time is in the past")
	}

	hash := domain.HashToken(token.Token)
	userKey := userResetKey(token.UserId)

	previous, err := s.client.Get(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get previous reset token: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous != "" {
			pipe.Del(ctx, resetKey(previous))
		}
		pipe.HSet(ctx, resetKey(hash), map[string]any{
			"user_id":    token.UserId,
			"expires_at": token.Expires.Unix(),
		})
		pipe.Expire(ctx, resetKey(hash), ttl)
		pipe.Set(ctx, userKey, hash, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

func (s *ResetTokenStore) PasswordResetToken(ctx context.Context, token domain.Token) (domain.PasswordResetToken, error) {
	data, err := s.client.HGetAll(ctx, resetKey(domain.HashToken(token))).Result()
	if err != nil {
		return domain.PasswordResetToken{}, fmt.Errorf("failed to get reset token: %w", err)
	}
	if len(data) == 0 {
		return domain.PasswordResetToken{}, internal_errors.NotFound("Reset token not found")
	}

	userId, err := strconv.ParseInt(data["user_id"], 10, 64)
	if err != nil {
		return domain.PasswordResetToken{}, fmt.Errorf("failed to parse user id: %w", err)
	}
	expiresUnix, err := strconv.ParseInt(data["expires_at"], 10, 64)
	if err != nil {
		return domain.PasswordResetToken{}, fmt.Errorf("failed to parse expiry: %w", err)
	}
	expires := time.Unix(expiresUnix, 0)
	if time.Now().After(expires) {
		return domain.PasswordResetToken{}, internal_errors.NotFound("Reset token not found")
	}

	return domain.PasswordResetToken{Token: token, UserId: userId, Expires: expires}, nil
}

func (s *ResetTokenStore) DeletePasswordResetToken(ctx context.Context, token domain.Token) error {
	n, err := s.client.Del(ctx, resetKey(domain.HashToken(token))).Result()
	if err != nil {
		return fmt.Errorf("failed to delete reset token: %w", err)
	}
	if n == 0 {
		return internal_errors.NotFound("Reset token not found")
	}
	return nil
}

func resetKey(hash string) string {
	return "password_reset:" + hash
}

func userResetKey(userId domain.UserId) string {
	return fmt.Sprintf("password_reset:user:%d", userId)
}
