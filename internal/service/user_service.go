package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"coursehub/internal/apperr"
	"coursehub/internal/mail"
	"coursehub/internal/models"
	"coursehub/internal/repository"
	"coursehub/internal/security"
)

const (
	resetCodeDigits   = 6
	minPasswordLength = 6
)

type UserService struct {
	users        UserStore
	tokens       *TokenService
	media        *MediaService
	mailer       mail.Dispatcher
	avatarBucket string
	resetTTL     time.Duration
	log          zerolog.Logger
	now          func() time.Time
}

func NewUserService(
	users UserStore,
	tokens *TokenService,
	media *MediaService,
	mailer mail.Dispatcher,
	avatarBucket string,
	resetTTL time.Duration,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		users:        users,
		tokens:       tokens,
		media:        media,
		mailer:       mailer,
		avatarBucket: avatarBucket,
		resetTTL:     resetTTL,
		log:          log,
		now:          time.Now,
	}
}

func userErr(err error, op string) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrUserNotFound
	}
	return internalErr(op, err)
}

func (s *UserService) UpdateInfo(ctx context.Context, userID, name string) (models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.User{}, apperr.Validation("name is required")
	}

	user, err := s.users.UpdateName(ctx, userID, name)
	if err != nil {
		return models.User{}, userErr(err, "update name")
	}
	s.tokens.SyncSession(ctx, user)
	return user, nil
}

func (s *UserService) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) (models.User, error) {
	if len(newPassword) < minPasswordLength {
		return models.User{}, apperr.Validation("password must be at least 6 characters")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, userErr(err, "load user")
	}
	if user.PasswordHash == "" {
		return models.User{}, ErrNoPassword
	}

	ok, err := security.VerifyPassword(oldPassword, user.PasswordHash)
	if err != nil || !ok {
		return models.User{}, ErrWrongPassword
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return models.User{}, internalErr("hash password", err)
	}

	user, err = s.users.UpdatePassword(ctx, userID, hash)
	if err != nil {
		return models.User{}, userErr(err, "update password")
	}
	s.tokens.SyncSession(ctx, user)
	return user, nil
}

// UpdateAvatar stores the new image before switching the record over and
// removes the previous object afterwards.
func (s *UserService) UpdateAvatar(ctx context.Context, current models.User, data []byte, declared string) (models.User, error) {
	img, err := s.media.Upload(ctx, UploadInput{
		Bucket:   s.avatarBucket,
		Folder:   "avatars",
		Data:     data,
		Declared: declared,
	})
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.UpdateAvatar(ctx, current.ID, models.Avatar{PublicID: img.PublicID, URL: img.URL})
	if err != nil {
		s.media.Remove(ctx, s.avatarBucket, img.PublicID)
		return models.User{}, userErr(err, "update avatar")
	}

	s.media.Remove(ctx, s.avatarBucket, current.Avatar.PublicID)
	s.tokens.SyncSession(ctx, user)
	return user, nil
}

func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return userErr(err, "lookup user")
	}

	code, err := security.NumericCode(resetCodeDigits)
	if err != nil {
		return internalErr("generate reset code", err)
	}
	if err := s.users.SetResetCode(ctx, user.ID, security.HashCode(code), s.now().Add(s.resetTTL)); err != nil {
		return userErr(err, "store reset code")
	}

	err = s.mailer.Dispatch(ctx, mail.Message{
		To:       user.Email,
		Subject:  "Reset your password",
		Template: mail.TemplateResetPassword,
		Data: map[string]any{
			"name":      user.Name,
			"code":      code,
			"expiresIn": s.resetTTL.String(),
		},
	})
	if err != nil {
		return apperr.Dependency("there was a problem sending the reset email", err)
	}
	return nil
}

func (s *UserService) checkResetCode(ctx context.Context, email, code string) (models.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrInvalidResetCode
		}
		return models.User{}, internalErr("lookup user", err)
	}

	if user.PasswordResetCode == "" || user.PasswordResetExpiresAt == nil ||
		s.now().After(*user.PasswordResetExpiresAt) ||
		!security.CodesEqual(user.PasswordResetCode, security.HashCode(code)) {
		return models.User{}, ErrInvalidResetCode
	}
	return user, nil
}

func (s *UserService) VerifyResetCode(ctx context.Context, email, code string) error {
	user, err := s.checkResetCode(ctx, email, code)
	if err != nil {
		return err
	}
	if err := s.users.MarkResetVerified(ctx, user.ID); err != nil {
		return userErr(err, "verify reset code")
	}
	return nil
}

// ResetPassword requires a verified, unexpired code and ends any live
// session of the user.
func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperr.Validation("password must be at least 6 characters")
	}

	user, err := s.checkResetCode(ctx, email, code)
	if err != nil {
		return err
	}
	if !user.PasswordResetVerified {
		return ErrResetNotVerified
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return internalErr("hash password", err)
	}
	if _, err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return userErr(err, "reset password")
	}

	if err := s.tokens.EndSession(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("end session after reset failed")
	}
	s.log.Info().Str("user_id", user.ID).Msg("password reset")
	return nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, internalErr("list users", err)
	}
	return users, nil
}

func (s *UserService) UpdateRole(ctx context.Context, userID string, role models.UserRole) (models.User, error) {
	if !role.Valid() {
		return models.User{}, ErrInvalidRole
	}

	user, err := s.users.UpdateRole(ctx, userID, role)
	if err != nil {
		return models.User{}, userErr(err, "update role")
	}
	s.tokens.SyncSession(ctx, user)
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return userErr(err, "load user")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return userErr(err, "delete user")
	}

	if err := s.tokens.EndSession(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("end session after delete failed")
	}
	s.media.Remove(ctx, s.avatarBucket, user.Avatar.PublicID)
	return nil
}
