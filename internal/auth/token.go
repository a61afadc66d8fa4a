// Package auth keeps the bearer token the agent presents to the remote API.
// Tokens are issued by the remote API; the agent only stores and inspects them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/heartmarshall/wardsync/internal/domain"
)

// SettingKey is the settings row that holds the bearer token.
const SettingKey = "auth_token"

type settingRepo interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

// TokenInfo describes the claims of the stored token. The signature is not
// verified; the agent cannot know the remote API's key.
type TokenInfo struct {
	Present   bool       `json:"present"`
	Subject   string     `json:"subject,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Expired   bool       `json:"expired"`
}

// TokenStore persists the bearer token in the settings collection.
type TokenStore struct {
	repo settingRepo
	log  *slog.Logger
	now  func() time.Time
}

// NewTokenStore creates a TokenStore.
func NewTokenStore(logger *slog.Logger, repo settingRepo) *TokenStore {
	return &TokenStore{
		repo: repo,
		log:  logger.With("service", "auth"),
		now:  time.Now,
	}
}

// Token returns the stored token, or "" when none is set.
func (s *TokenStore) Token(ctx context.Context) (string, error) {
	token, err := s.repo.GetSetting(ctx, SettingKey)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return token, nil
}

// SetToken stores token after checking it is a well-formed JWT.
func (s *TokenStore) SetToken(ctx context.Context, token string) (TokenInfo, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return TokenInfo{}, domain.NewValidationError("token", "required")
	}

	info, err := s.inspect(token)
	if err != nil {
		return TokenInfo{}, domain.NewValidationError("token", "not a valid JWT")
	}

	if err := s.repo.PutSetting(ctx, SettingKey, token); err != nil {
		return TokenInfo{}, fmt.Errorf("store token: %w", err)
	}

	s.log.InfoContext(ctx, "auth token stored",
		slog.String("subject", info.Subject),
		slog.Bool("expired", info.Expired),
	)
	return info, nil
}

// Clear removes the stored token.
func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.repo.DeleteSetting(ctx, SettingKey); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	s.log.InfoContext(ctx, "auth token cleared")
	return nil
}

// Info describes the stored token. A stored value that no longer parses is
// reported as present with no claims.
func (s *TokenStore) Info(ctx context.Context) (TokenInfo, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return TokenInfo{}, err
	}
	if token == "" {
		return TokenInfo{}, nil
	}

	info, err := s.inspect(token)
	if err != nil {
		return TokenInfo{Present: true}, nil
	}
	return info, nil
}

func (s *TokenStore) inspect(token string) (TokenInfo, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return TokenInfo{}, fmt.Errorf("parse token: %w", err)
	}

	info := TokenInfo{Present: true, Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		info.ExpiresAt = &exp
		info.Expired = !s.now().Before(exp)
	}
	return info, nil
}
