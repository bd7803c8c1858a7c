package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"coursehub/internal/apperr"
	"coursehub/internal/config"
	"coursehub/internal/ids"
	"coursehub/internal/mail"
	"coursehub/internal/models"
	"coursehub/internal/repository"
	"coursehub/internal/security"
)

const (
	activationCodeDigits = 4
	// A pending registration is dropped after this many wrong codes.
	maxActivationAttempts = 5
)

type AuthService struct {
	users   UserStore
	pending PendingStore
	tokens  *TokenService
	mailer  mail.Dispatcher
	cfg     config.SecurityConfig
	log     zerolog.Logger
}

func NewAuthService(
	users UserStore,
	pending PendingStore,
	tokens *TokenService,
	mailer mail.Dispatcher,
	cfg config.SecurityConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:   users,
		pending: pending,
		tokens:  tokens,
		mailer:  mailer,
		cfg:     cfg,
		log:     log,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type ActivationToken struct {
	Token string
	Code  string
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// Register parks the registration until the emailed code is confirmed and
// returns the activation token the client must present with it.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (string, error) {
	input.Email = normalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return "", apperr.Validation("name, email and password are required")
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return "", ErrEmailInUse
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return "", internalErr("lookup user", err)
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return "", internalErr("hash password", err)
	}

	pending := models.PendingRegistration{
		ID:           ids.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: passwordHash,
	}

	activation, err := s.CreateActivationToken(pending)
	if err != nil {
		return "", err
	}
	pending.CodeHash = security.HashCode(activation.Code)

	if err := s.pending.Save(ctx, pending, s.cfg.ActivationTTL); err != nil {
		return "", internalErr("store pending registration", err)
	}

	err = s.mailer.Dispatch(ctx, mail.Message{
		To:       pending.Email,
		Subject:  "Activate your account",
		Template: mail.TemplateActivation,
		Data: map[string]any{
			"name":           pending.Name,
			"activationCode": activation.Code,
			"expiresIn":      s.cfg.ActivationTTL.String(),
		},
	})
	if err != nil {
		if delErr := s.pending.Delete(ctx, pending.ID); delErr != nil {
			s.log.Warn().Err(delErr).Str("pending_id", pending.ID).Msg("discard pending registration failed")
		}
		return "", apperr.Dependency("there was a problem sending the activation email", err)
	}

	s.log.Info().Str("pending_id", pending.ID).Msg("registration pending activation")
	return activation.Token, nil
}

// CreateActivationToken signs a token naming the pending registration and
// draws the code that will be emailed. The code never enters the token.
func (s *AuthService) CreateActivationToken(pending models.PendingRegistration) (ActivationToken, error) {
	code, err := security.NumericCode(activationCodeDigits)
	if err != nil {
		return ActivationToken{}, internalErr("generate activation code", err)
	}
	token, err := security.GenerateActivationToken(s.cfg.JWTActivationSecret, pending.ID, s.cfg.ActivationTTL)
	if err != nil {
		return ActivationToken{}, internalErr("sign activation token", err)
	}
	return ActivationToken{Token: token, Code: code}, nil
}

// Activate creates the user only when code matches the one issued for
// token. Wrong codes are counted and the pending registration is dropped
// once maxActivationAttempts is reached.
func (s *AuthService) Activate(ctx context.Context, token, code string) (models.User, error) {
	claims, err := security.ParseActivationToken(token, s.cfg.JWTActivationSecret)
	if err != nil {
		return models.User{}, ErrTokenExpired.Wrap(err)
	}

	pending, err := s.pending.Get(ctx, claims.PendingID)
	if err != nil {
		if errors.Is(err, repository.ErrPendingNotFound) {
			return models.User{}, ErrTokenExpired
		}
		return models.User{}, internalErr("load pending registration", err)
	}

	if pending.CodeHash == "" || !security.CodesEqual(pending.CodeHash, security.HashCode(code)) {
		return models.User{}, s.failActivation(ctx, pending.ID)
	}

	user, err := s.users.Create(ctx, models.User{
		ID:           ids.New(),
		Name:         pending.Name,
		Email:        pending.Email,
		PasswordHash: pending.PasswordHash,
		Role:         models.UserRoleUser,
		IsVerified:   true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.User{}, ErrEmailInUse
		}
		return models.User{}, internalErr("create user", err)
	}

	if err := s.pending.Delete(ctx, pending.ID); err != nil {
		s.log.Warn().Err(err).Str("pending_id", pending.ID).Msg("delete pending registration failed")
	}

	s.log.Info().Str("user_id", user.ID).Msg("account activated")
	return user, nil
}

func (s *AuthService) failActivation(ctx context.Context, pendingID string) error {
	attempts, err := s.pending.RecordFailedAttempt(ctx, pendingID, s.cfg.ActivationTTL)
	if err != nil {
		return internalErr("record activation attempt", err)
	}
	if attempts < maxActivationAttempts {
		return ErrInvalidCode
	}

	if err := s.pending.Delete(ctx, pendingID); err != nil {
		return internalErr("discard pending registration", err)
	}
	s.log.Warn().Str("pending_id", pendingID).Int64("attempts", attempts).Msg("activation locked after repeated wrong codes")
	return ErrTokenExpired
}

func (s *AuthService) Login(ctx context.Context, email, password string) (models.User, TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, TokenPair{}, ErrInvalidCredentials
		}
		return models.User{}, TokenPair{}, internalErr("lookup user", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return models.User{}, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.StartSession(ctx, user)
	if err != nil {
		return models.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.tokens.EndSession(ctx, userID)
}

type SocialAuthInput struct {
	Name   string
	Email  string
	Avatar string
}

// SocialAuth signs in a user vouched for by an external provider, creating
// a verified, password-less account on first sight.
func (s *AuthService) SocialAuth(ctx context.Context, input SocialAuthInput) (models.User, TokenPair, error) {
	input.Email = normalizeEmail(input.Email)
	if input.Email == "" || strings.TrimSpace(input.Name) == "" {
		return models.User{}, TokenPair{}, apperr.Validation("name and email are required")
	}

	user, err := s.users.FindByEmail(ctx, input.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		user, err = s.users.Create(ctx, models.User{
			ID:         ids.New(),
			Name:       strings.TrimSpace(input.Name),
			Email:      input.Email,
			Avatar:     models.Avatar{URL: input.Avatar},
			Role:       models.UserRoleUser,
			IsVerified: true,
		})
		if errors.Is(err, repository.ErrEmailTaken) {
			user, err = s.users.FindByEmail(ctx, input.Email)
		}
	}
	if err != nil {
		return models.User{}, TokenPair{}, internalErr("social sign-in", err)
	}

	pair, err := s.tokens.StartSession(ctx, user)
	if err != nil {
		return models.User{}, TokenPair{}, err
	}
	return user, pair, nil
}
