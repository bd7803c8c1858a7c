package service

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursehub/internal/apperr"
	"coursehub/internal/mail"
	"coursehub/internal/models"
	"coursehub/internal/security"
)

var pngPixel, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

type userFixture struct {
	svc      *UserService
	users    *fakeUsers
	sessions *fakeSessions
	mailer   *fakeMailer
	objects  *fakeObjects
	now      time.Time
}

func newUserFixture(users ...models.User) *userFixture {
	f := &userFixture{
		users:    newFakeUsers(users...),
		sessions: newFakeSessions(),
		mailer:   &fakeMailer{},
		objects:  newFakeObjects(),
		now:      time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	tokens := NewTokenService(f.sessions, testSecurity, nopLog)
	f.svc = NewUserService(f.users, tokens, NewMediaService(f.objects, nopLog), f.mailer, "avatars", testSecurity.ResetCodeTTL, nopLog)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func userWithPassword(t *testing.T, password string) models.User {
	t.Helper()
	hash, err := security.HashPassword(password)
	require.NoError(t, err)
	return models.User{ID: "u1", Name: "Ada", Email: "ada@example.com", PasswordHash: hash}
}

func TestUpdateInfoRefreshesSession(t *testing.T) {
	f := newUserFixture(models.User{ID: "u1", Name: "Ada"})
	ctx := context.Background()
	require.NoError(t, f.sessions.Set(ctx, models.User{ID: "u1", Name: "Ada"}, time.Hour))

	user, err := f.svc.UpdateInfo(ctx, "u1", "  Ada Lovelace ")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", user.Name)

	session, _ := f.sessions.Get(ctx, "u1")
	assert.Equal(t, "Ada Lovelace", session.Name)

	_, err = f.svc.UpdateInfo(ctx, "u1", " ")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = f.svc.UpdateInfo(ctx, "missing", "x")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdatePassword(t *testing.T) {
	f := newUserFixture(userWithPassword(t, "old-secret"))
	ctx := context.Background()

	_, err := f.svc.UpdatePassword(ctx, "u1", "wrong", "new-secret")
	assert.ErrorIs(t, err, ErrWrongPassword)

	_, err = f.svc.UpdatePassword(ctx, "u1", "old-secret", "new")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.svc.UpdatePassword(ctx, "u1", "old-secret", "new-secret")
	require.NoError(t, err)
	stored, _ := f.users.GetByID(ctx, "u1")
	ok, err := security.VerifyPassword("new-secret", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdatePasswordSocialAccount(t *testing.T) {
	f := newUserFixture(models.User{ID: "u1", Email: "ada@example.com"})
	_, err := f.svc.UpdatePassword(context.Background(), "u1", "", "new-secret")
	assert.ErrorIs(t, err, ErrNoPassword)
}

func TestUpdateAvatarReplacesObject(t *testing.T) {
	f := newUserFixture(models.User{ID: "u1"})
	ctx := context.Background()

	first, err := f.svc.UpdateAvatar(ctx, models.User{ID: "u1"}, pngPixel, "image/png")
	require.NoError(t, err)
	assert.NotEmpty(t, first.Avatar.PublicID)
	assert.Contains(t, first.Avatar.URL, "http://media.test/avatars/avatars/")

	second, err := f.svc.UpdateAvatar(ctx, first, pngPixel, "")
	require.NoError(t, err)
	assert.NotEqual(t, first.Avatar.PublicID, second.Avatar.PublicID)
	assert.Equal(t, []string{first.Avatar.PublicID}, f.objects.removed)
	assert.Len(t, f.objects.objects, 1)

	_, err = f.svc.UpdateAvatar(ctx, second, pngPixel, "image/jpeg")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func (f *userFixture) sentResetCode(t *testing.T) string {
	t.Helper()
	sent := f.mailer.messages()
	require.NotEmpty(t, sent)
	last := sent[len(sent)-1]
	require.Equal(t, mail.TemplateResetPassword, last.Template)
	code, _ := last.Data["code"].(string)
	require.Len(t, code, resetCodeDigits)
	return code
}

func TestPasswordResetFlow(t *testing.T) {
	f := newUserFixture(userWithPassword(t, "old-secret"))
	ctx := context.Background()
	require.NoError(t, f.sessions.Set(ctx, models.User{ID: "u1"}, time.Hour))

	require.NoError(t, f.svc.ForgotPassword(ctx, "ADA@example.com"))
	code := f.sentResetCode(t)

	stored, _ := f.users.GetByID(ctx, "u1")
	assert.NotEqual(t, code, stored.PasswordResetCode)

	assert.ErrorIs(t, f.svc.ResetPassword(ctx, "ada@example.com", code, "new-secret"), ErrResetNotVerified)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	assert.ErrorIs(t, f.svc.VerifyResetCode(ctx, "ada@example.com", wrong), ErrInvalidResetCode)
	require.NoError(t, f.svc.VerifyResetCode(ctx, "ada@example.com", code))
	require.NoError(t, f.svc.ResetPassword(ctx, "ada@example.com", code, "new-secret"))

	stored, _ = f.users.GetByID(ctx, "u1")
	ok, err := security.VerifyPassword("new-secret", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, stored.PasswordResetCode)

	_, err = f.sessions.Get(ctx, "u1")
	assert.Error(t, err)

	// the code is single use
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, "ada@example.com", code, "other-secret"), ErrInvalidResetCode)
}

func TestResetCodeExpires(t *testing.T) {
	f := newUserFixture(userWithPassword(t, "old-secret"))
	ctx := context.Background()

	require.NoError(t, f.svc.ForgotPassword(ctx, "ada@example.com"))
	code := f.sentResetCode(t)

	f.now = f.now.Add(testSecurity.ResetCodeTTL + time.Second)
	assert.ErrorIs(t, f.svc.VerifyResetCode(ctx, "ada@example.com", code), ErrInvalidResetCode)
}

func TestForgotPasswordErrors(t *testing.T) {
	f := newUserFixture(userWithPassword(t, "old-secret"))
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.ForgotPassword(ctx, "nobody@example.com"), ErrUserNotFound)

	f.mailer.err = errors.New("broker down")
	err := f.svc.ForgotPassword(ctx, "ada@example.com")
	assert.Equal(t, apperr.KindDependency, apperr.KindOf(err))
}

func TestAdminUserManagement(t *testing.T) {
	f := newUserFixture(models.User{ID: "u1", Role: models.UserRoleUser}, models.User{ID: "u2"})
	ctx := context.Background()
	require.NoError(t, f.sessions.Set(ctx, models.User{ID: "u1"}, time.Hour))

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = f.svc.UpdateRole(ctx, "u1", "owner")
	assert.ErrorIs(t, err, ErrInvalidRole)

	updated, err := f.svc.UpdateRole(ctx, "u1", models.UserRoleAdmin)
	require.NoError(t, err)
	assert.True(t, updated.IsAdmin())
	session, _ := f.sessions.Get(ctx, "u1")
	assert.True(t, session.IsAdmin())

	require.NoError(t, f.svc.DeleteUser(ctx, "u1"))
	_, err = f.sessions.Get(ctx, "u1")
	assert.Error(t, err)
	assert.ErrorIs(t, f.svc.DeleteUser(ctx, "u1"), ErrUserNotFound)
}
