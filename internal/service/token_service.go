package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"coursehub/internal/config"
	"coursehub/internal/models"
	"coursehub/internal/repository"
	"coursehub/internal/security"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService issues and verifies access and refresh tokens and owns the
// session entry that a refresh token is only valid alongside.
type TokenService struct {
	sessions SessionStore
	cfg      config.SecurityConfig
	log      zerolog.Logger
}

func NewTokenService(sessions SessionStore, cfg config.SecurityConfig, log zerolog.Logger) *TokenService {
	return &TokenService{
		sessions: sessions,
		cfg:      cfg,
		log:      log,
	}
}

func (s *TokenService) AccessTTL() time.Duration  { return s.cfg.JWTAccessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.cfg.JWTRefreshTTL }

func (s *TokenService) IssueAccessToken(userID string) (string, error) {
	return security.GenerateToken(s.cfg.JWTAccessSecret, userID, s.cfg.JWTAccessTTL)
}

func (s *TokenService) IssueRefreshToken(userID string) (string, error) {
	return security.GenerateToken(s.cfg.JWTRefreshSecret, userID, s.cfg.JWTRefreshTTL)
}

func (s *TokenService) Verify(token string, secret string) (*security.Claims, error) {
	claims, err := security.ParseToken(token, secret)
	if err != nil {
		return nil, ErrInvalidToken.Wrap(err)
	}
	return claims, nil
}

// Authenticate resolves an access token to the cached session snapshot.
func (s *TokenService) Authenticate(ctx context.Context, accessToken string) (models.User, error) {
	claims, err := s.Verify(accessToken, s.cfg.JWTAccessSecret)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.sessions.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return models.User{}, ErrUnauthorized
		}
		return models.User{}, internalErr("load session", err)
	}
	return user, nil
}

// Refresh re-issues both tokens for a live session. The old refresh token
// stays valid until it expires.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (TokenPair, models.User, error) {
	claims, err := s.Verify(refreshToken, s.cfg.JWTRefreshSecret)
	if err != nil {
		return TokenPair{}, models.User{}, err
	}

	user, err := s.sessions.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return TokenPair{}, models.User{}, ErrUnauthorized
		}
		return TokenPair{}, models.User{}, internalErr("load session", err)
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return TokenPair{}, models.User{}, err
	}
	if err := s.sessions.Set(ctx, user, s.cfg.JWTRefreshTTL); err != nil {
		return TokenPair{}, models.User{}, internalErr("store session", err)
	}
	return pair, user, nil
}

func (s *TokenService) StartSession(ctx context.Context, user models.User) (TokenPair, error) {
	pair, err := s.issuePair(user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.sessions.Set(ctx, user, s.cfg.JWTRefreshTTL); err != nil {
		return TokenPair{}, internalErr("store session", err)
	}
	s.log.Debug().Str("user_id", user.ID).Msg("session started")
	return pair, nil
}

func (s *TokenService) EndSession(ctx context.Context, userID string) error {
	if err := s.sessions.Delete(ctx, userID); err != nil {
		return internalErr("delete session", err)
	}
	return nil
}

// SyncSession pushes a changed user into a live session, if any.
func (s *TokenService) SyncSession(ctx context.Context, user models.User) {
	if err := s.sessions.Replace(ctx, user); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("session refresh failed")
	}
}

func (s *TokenService) issuePair(userID string) (TokenPair, error) {
	access, err := s.IssueAccessToken(userID)
	if err != nil {
		return TokenPair{}, internalErr("issue access token", err)
	}
	refresh, err := s.IssueRefreshToken(userID)
	if err != nil {
		return TokenPair{}, internalErr("issue refresh token", fmt.Errorf("user %s: %w", userID, err))
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
