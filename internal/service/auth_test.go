package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidaplan/vidaplan/internal/model"
	"github.com/vidaplan/vidaplan/internal/repository"
)

type fakeUserRepo struct {
	byID    map[string]*model.User
	byEmail map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]*model.User),
	}
}

func (f *fakeUserRepo) Create(user *model.User) error {
	if _, ok := f.byEmail[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	copied := *user
	f.byID[user.ID] = &copied
	f.byEmail[user.Email] = &copied
	return nil
}

func (f *fakeUserRepo) ByID(id string) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) ByEmail(email string) (*model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) Update(user *model.User) error {
	if _, ok := f.byID[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	copied := *user
	f.byID[user.ID] = &copied
	f.byEmail[user.Email] = &copied
	return nil
}

func (f *fakeUserRepo) Delete(id string) error {
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	delete(f.byEmail, u.Email)
	delete(f.byID, id)
	return nil
}

type fakeTokenRepo struct {
	tokens map[string]*model.Token
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*model.Token)}
}

func (f *fakeTokenRepo) Create(token *model.Token) error {
	copied := *token
	f.tokens[token.Token] = &copied
	return nil
}

func (f *fakeTokenRepo) ConsumeToken(token string) (*model.Token, error) {
	t, ok := f.tokens[token]
	if !ok || !t.IsValid() {
		return nil, repository.ErrTokenNotFound
	}
	now := time.Now()
	t.UsedAt = &now
	copied := *t
	return &copied, nil
}

func (f *fakeTokenRepo) DeleteByUserAndType(userID, tokenType string) error {
	for k, t := range f.tokens {
		if t.UserID == userID && t.Type == tokenType && !t.IsUsed() {
			delete(f.tokens, k)
		}
	}
	return nil
}

func newTestAuthService(users *fakeUserRepo, tokens *fakeTokenRepo) *AuthService {
	email := NewEmailService("", "test@vidaplan.test", "http://localhost:8090", "Vidaplan", true)
	return NewAuthService(users, tokens, email, "test-secret", false, time.Hour, 15*time.Minute)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestAuthService(users, newFakeTokenRepo())

	user, err := svc.Register("Dana@Example.com", "s3curePassw0rd", " Dana ")
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", user.Email)
	assert.Equal(t, "Dana", user.Name)
	require.NotNil(t, user.PasswordHash)
	assert.NotEqual(t, "s3curePassw0rd", *user.PasswordHash)
	assert.NotNil(t, user.EmailVerifiedAt)

	got, err := svc.Login("dana@example.com", "s3curePassw0rd")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Login("dana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login("nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo(), newFakeTokenRepo())

	_, err := svc.Register("dup@example.com", "s3curePassw0rd", "")
	require.NoError(t, err)

	_, err = svc.Register("dup@example.com", "s3curePassw0rd", "")
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestAuthService_Register_InvalidInput(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo(), newFakeTokenRepo())

	_, err := svc.Register("not-an-email", "s3curePassw0rd", "")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Register("short@example.com", "short", "")
	assert.Error(t, err)
}

func TestAuthService_Login_PasswordlessAccount(t *testing.T) {
	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	svc := newTestAuthService(users, tokens)

	require.NoError(t, svc.SendMagicLink("link-only@example.com"))

	_, err := svc.Login("link-only@example.com", "anything")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_JWTRoundTrip(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo(), newFakeTokenRepo())

	user := &model.User{ID: "user-1", Email: "jwt@example.com"}
	token, err := svc.GenerateJWT(user)
	require.NoError(t, err)

	claims, err := svc.VerifyJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims["user_id"])
	assert.Equal(t, "jwt@example.com", claims["email"])

	// A token signed with another secret is rejected.
	other := NewAuthService(newFakeUserRepo(), newFakeTokenRepo(), nil, "other-secret", false, time.Hour, time.Minute)
	_, err = other.VerifyJWT(token)
	assert.Error(t, err)
}

func TestAuthService_MagicLinkFlow(t *testing.T) {
	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	svc := newTestAuthService(users, tokens)

	err := svc.SendMagicLink("fresh@example.com")
	require.NoError(t, err)

	// The account is auto-created passwordless and unverified.
	created, err := users.ByEmail("fresh@example.com")
	require.NoError(t, err)
	assert.False(t, created.HasPassword())
	assert.Nil(t, created.EmailVerifiedAt)

	require.Len(t, tokens.tokens, 1)
	var raw string
	for k := range tokens.tokens {
		raw = k
	}

	user, err := svc.VerifyMagicLink(raw)
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	// First magic-link login verifies the email.
	assert.NotNil(t, user.EmailVerifiedAt)

	// The link is single-use.
	_, err = svc.VerifyMagicLink(raw)
	assert.Error(t, err)
}

func TestAuthService_SendMagicLink_ReplacesPending(t *testing.T) {
	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	svc := newTestAuthService(users, tokens)

	require.NoError(t, svc.SendMagicLink("again@example.com"))
	require.NoError(t, svc.SendMagicLink("again@example.com"))

	// Only the latest link remains valid.
	assert.Len(t, tokens.tokens, 1)
}

func TestAuthService_AuthenticateOAuth(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestAuthService(users, newFakeTokenRepo())

	user, err := svc.AuthenticateOAuth("OAuth@Example.com", "Sam", "google")
	require.NoError(t, err)
	assert.Equal(t, "oauth@example.com", user.Email)
	assert.Equal(t, "Sam", user.Name)
	assert.NotNil(t, user.EmailVerifiedAt)
	assert.False(t, user.HasPassword())

	// Second sign-in returns the same account.
	again, err := svc.AuthenticateOAuth("oauth@example.com", "Sam", "github")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	_, err = svc.AuthenticateOAuth("bogus", "Sam", "google")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}
