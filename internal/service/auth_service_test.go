package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursehub/internal/apperr"
	"coursehub/internal/mail"
	"coursehub/internal/models"
	"coursehub/internal/security"
)

type authFixture struct {
	svc      *AuthService
	users    *fakeUsers
	pending  *fakePending
	sessions *fakeSessions
	mailer   *fakeMailer
}

func newAuthFixture(users ...models.User) authFixture {
	f := authFixture{
		users:    newFakeUsers(users...),
		pending:  newFakePending(),
		sessions: newFakeSessions(),
		mailer:   &fakeMailer{},
	}
	tokens := NewTokenService(f.sessions, testSecurity, nopLog)
	f.svc = NewAuthService(f.users, f.pending, tokens, f.mailer, testSecurity, nopLog)
	return f
}

func (f authFixture) register(t *testing.T) (string, string) {
	t.Helper()
	token, err := f.svc.Register(context.Background(), RegisterInput{
		Name:     "Ada",
		Email:    " Ada@Example.com ",
		Password: "correct horse",
	})
	require.NoError(t, err)

	sent := f.mailer.messages()
	require.Len(t, sent, 1)
	code, _ := sent[0].Data["activationCode"].(string)
	require.Len(t, code, activationCodeDigits)
	return token, code
}

func TestRegisterEmailsCodeAndDefersUser(t *testing.T) {
	f := newAuthFixture()
	token, code := f.register(t)

	assert.NotEmpty(t, token)
	assert.NotContains(t, token, code)

	msg := f.mailer.messages()[0]
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, mail.TemplateActivation, msg.Template)

	require.Len(t, f.pending.byID, 1)
	for _, p := range f.pending.byID {
		assert.NotEqual(t, "correct horse", p.PasswordHash)
		ok, err := security.VerifyPassword("correct horse", p.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	users, _ := f.users.List(context.Background())
	assert.Empty(t, users)
}

func TestActivateWithMatchingCode(t *testing.T) {
	f := newAuthFixture()
	token, code := f.register(t)

	user, err := f.svc.Activate(context.Background(), token, code)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.True(t, user.IsVerified)
	assert.Equal(t, models.UserRoleUser, user.Role)
	assert.Empty(t, f.pending.byID)

	// Persisted is terminal: the same token cannot activate twice.
	_, err = f.svc.Activate(context.Background(), token, code)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestActivateRejectsWrongCode(t *testing.T) {
	f := newAuthFixture()
	token, code := f.register(t)

	wrong := "1111"
	if code == wrong {
		wrong = "2222"
	}

	for name, supplied := range map[string]string{
		"mismatch":  wrong,
		"empty":     "",
		"too short": code[:2],
		"too long":  code + "0",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Activate(context.Background(), token, supplied)
			assert.ErrorIs(t, err, ErrInvalidCode)
			e, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, e.Status)
		})
	}

	users, _ := f.users.List(context.Background())
	assert.Empty(t, users)
	assert.Len(t, f.pending.byID, 1)
}

func TestActivateStoresOnlyCodeHash(t *testing.T) {
	f := newAuthFixture()
	_, code := f.register(t)

	require.Len(t, f.pending.byID, 1)
	for _, p := range f.pending.byID {
		assert.NotEqual(t, code, p.CodeHash)
		assert.NotContains(t, p.CodeHash, code)
		assert.Equal(t, security.HashCode(code), p.CodeHash)
	}
}

func TestActivateLocksAfterRepeatedWrongCodes(t *testing.T) {
	f := newAuthFixture()
	token, code := f.register(t)

	wrong := "1111"
	if code == wrong {
		wrong = "2222"
	}
	ctx := context.Background()
	for i := 1; i < maxActivationAttempts; i++ {
		_, err := f.svc.Activate(ctx, token, wrong)
		require.ErrorIs(t, err, ErrInvalidCode)
	}

	_, err := f.svc.Activate(ctx, token, wrong)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Empty(t, f.pending.byID)

	// The right code no longer helps once the registration is gone.
	_, err = f.svc.Activate(ctx, token, code)
	assert.ErrorIs(t, err, ErrTokenExpired)
	users, _ := f.users.List(context.Background())
	assert.Empty(t, users)
}

func TestActivateRejectsExpiredToken(t *testing.T) {
	f := newAuthFixture()
	_, code := f.register(t)

	var pendingID string
	for id := range f.pending.byID {
		pendingID = id
	}
	expired, err := security.GenerateActivationToken(testSecurity.JWTActivationSecret, pendingID, -time.Second)
	require.NoError(t, err)

	_, err = f.svc.Activate(context.Background(), expired, code)
	assert.ErrorIs(t, err, ErrTokenExpired)

	forged, err := security.GenerateActivationToken("other-secret", pendingID, time.Minute)
	require.NoError(t, err)
	_, err = f.svc.Activate(context.Background(), forged, code)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRegisterRejectsTakenEmail(t *testing.T) {
	f := newAuthFixture(models.User{ID: "u1", Email: "ada@example.com"})

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "pw123456"})
	assert.ErrorIs(t, err, ErrEmailInUse)
	assert.Empty(t, f.mailer.messages())
}

func TestRegisterDispatchFailure(t *testing.T) {
	f := newAuthFixture()
	f.mailer.err = errors.New("broker down")

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "pw123456"})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindDependency, e.Kind)
	assert.Equal(t, http.StatusInternalServerError, e.Status)
	assert.Empty(t, f.pending.byID)
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture()
	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "ada@example.com"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestLogin(t *testing.T) {
	hash, err := security.HashPassword("correct horse")
	require.NoError(t, err)
	f := newAuthFixture(models.User{ID: "u1", Email: "ada@example.com", PasswordHash: hash})
	ctx := context.Background()

	_, _, err = f.svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.svc.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, pair, err := f.svc.Login(ctx, "ADA@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Contains(t, f.sessions.byID, "u1")

	require.NoError(t, f.svc.Logout(ctx, "u1"))
	assert.NotContains(t, f.sessions.byID, "u1")
}

func TestLoginRejectsSocialAccountPassword(t *testing.T) {
	f := newAuthFixture(models.User{ID: "u1", Email: "ada@example.com"})
	_, _, err := f.svc.Login(context.Background(), "ada@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSocialAuthCreatesOnce(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	input := SocialAuthInput{Name: "Ada", Email: "ada@example.com", Avatar: "https://img.example.com/a.png"}

	first, _, err := f.svc.SocialAuth(ctx, input)
	require.NoError(t, err)
	assert.True(t, first.IsVerified)
	assert.Equal(t, "https://img.example.com/a.png", first.Avatar.URL)

	second, pair, err := f.svc.SocialAuth(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.NotEmpty(t, pair.RefreshToken)

	users, _ := f.users.List(ctx)
	assert.Len(t, users, 1)
}
