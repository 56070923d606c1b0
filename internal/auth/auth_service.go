package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const tokenTTL = 12 * time.Hour

// Service issues opaque admin session tokens against a single configured
// credential pair. Tokens live in redis so a restart invalidates nothing and
// logout works across instances.
type Service struct {
	client   *redis.Client
	username string
	password string
}

func NewService(client *redis.Client, username, password string) *Service {
	return &Service{client: client, username: username, password: password}
}

// Login compares both fields in constant time regardless of which one is
// wrong, then stores a fresh token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password))
	if userOK&passOK != 1 {
		return "", ErrInvalidCredentials
	}

	token := uuid.NewString()
	if err := s.client.Set(ctx, tokenKey(token), username, tokenTTL).Err(); err != nil {
		return "", fmt.Errorf("store admin token: %w", err)
	}
	return token, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, tokenKey(token)).Err(); err != nil {
		return fmt.Errorf("delete admin token: %w", err)
	}
	return nil
}

// Validate reports whether the token is a live admin session.
func (s *Service) Validate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	err := s.client.Get(ctx, tokenKey(token)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup admin token: %w", err)
	}
	return true, nil
}

func tokenKey(token string) string {
	return fmt.Sprintf("admin_token:%s", token)
}
