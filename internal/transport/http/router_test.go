package http

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/go-credential-api/internal/application/account"
	"github.com/go-credential-api/internal/application/credential"
	"github.com/go-credential-api/internal/application/recovery"
	"github.com/go-credential-api/internal/config"
	"github.com/go-credential-api/internal/domain"
	jwtinfra "github.com/go-credential-api/internal/infrastructure/jwt"
	"github.com/go-credential-api/internal/infrastructure/sns"
	"github.com/go-credential-api/internal/infrastructure/stats"
	"github.com/go-credential-api/internal/infrastructure/vccs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// memStore is a map-backed user store with the same version check as the
// DynamoDB repository.
type memStore struct {
	users map[string]*domain.User
}

func (s *memStore) Get(_ context.Context, userID string) (*domain.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	cp.Passwords = append(domain.Credentials(nil), u.Passwords...)
	return &cp, nil
}

func (s *memStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for id, u := range s.users {
		if u.Email == email {
			return s.Get(ctx, id)
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memStore) Create(_ context.Context, u *domain.User) error {
	if _, ok := s.users[u.UserID]; ok {
		return domain.ErrConflict
	}
	cp := *u
	s.users[u.UserID] = &cp
	return nil
}

func (s *memStore) Save(_ context.Context, u *domain.User) error {
	cur, ok := s.users[u.UserID]
	if !ok || cur.Version != u.Version {
		return domain.ErrConflict
	}
	u.Version++
	cp := *u
	s.users[u.UserID] = &cp
	return nil
}

func (s *memStore) Ping(context.Context) error { return nil }

type memCodes struct {
	items map[string]domain.UserVerification
}

func (c *memCodes) Put(_ context.Context, v *domain.UserVerification) error {
	c.items[v.UserID+"/"+v.Type] = *v
	return nil
}

func (c *memCodes) Get(_ context.Context, userID, verType string) (*domain.UserVerification, error) {
	v, ok := c.items[userID+"/"+verType]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}

func (c *memCodes) IncrementAttempts(_ context.Context, userID, verType string) (int, error) {
	v, ok := c.items[userID+"/"+verType]
	if !ok {
		return 0, domain.ErrNotFound
	}
	v.Attempts++
	c.items[userID+"/"+verType] = v
	return v.Attempts, nil
}

func (c *memCodes) Delete(_ context.Context, userID, verType string) error {
	delete(c.items, userID+"/"+verType)
	return nil
}

// outbox keeps the last mail body per recipient.
type outbox map[string]string

func (o outbox) SendEmail(to, _, body string) error {
	o[to] = body
	return nil
}

type testServer struct {
	handler http.Handler
	jwt     *jwtinfra.Provider
	store   *memStore
	outbox  outbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	provider := jwtinfra.NewProviderFromKeys(key, &key.PublicKey, time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := &memStore{users: map[string]*domain.User{}}
	mgr := credential.NewManager(credential.ManagerDeps{Verifier: vccs.NewMemory(bcrypt.MinCost), Logger: logger})
	svc := account.NewService(account.ServiceDeps{
		UserRepo:    store,
		Credentials: mgr,
		Relay:       sns.NoopRelay{},
		Stats:       stats.Noop{},
		JWTProvider: provider,
		Logger:      logger,
	})

	mail := outbox{}
	rec := recovery.NewService(recovery.ServiceDeps{
		UserRepo: store,
		Codes:    &memCodes{items: map[string]domain.UserVerification{}},
		Accounts: svc,
		Mailer:   mail,
		Stats:    stats.Noop{},
		Logger:   logger,
		HashCost: bcrypt.MinCost,
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := NewRouter(ctx, &config.Config{AllowedOrigins: []string{"*"}}, &Deps{Accounts: svc, Recovery: rec, Health: store, JWTProvider: provider})
	return &testServer{handler: h, jwt: provider, store: store, outbox: mail}
}

func (s *testServer) do(t *testing.T, method, path, bearer, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func TestRouter_PasswordLifecycle(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/v1/users", "", `{"email":"alice@example.com","password":"first password"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(t, http.MethodPost, "/v1/sessions/login", "", `{"email":"alice@example.com","password":"first password"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var userID string
	for id := range s.store.users {
		userID = id
	}
	bearer, _, err := s.jwt.Sign(userID, domain.RoleUser)
	require.NoError(t, err)

	rr = s.do(t, http.MethodPost, "/v1/credentials/password/change", bearer, `{"old_password":"first password","new_password":"second password"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(t, http.MethodPost, "/v1/sessions/login", "", `{"email":"alice@example.com","password":"first password"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = s.do(t, http.MethodPost, "/v1/sessions/login", "", `{"email":"alice@example.com","password":"second password"}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodGet, "/v1/credentials", bearer, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"revoked_reason":"changed"`)
}

func TestRouter_CredentialsRequireAuth(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/v1/credentials", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_AdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	bearer, _, err := s.jwt.Sign("u1", domain.RoleUser)
	require.NoError(t, err)

	rr := s.do(t, http.MethodPost, "/v1/users/u1/password/revoke", bearer, `{"reason":"compromised"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	admin, _, err := s.jwt.Sign("admin1", domain.RoleAdmin)
	require.NoError(t, err)
	rr = s.do(t, http.MethodPost, "/v1/users/u1/password/revoke", admin, `{"reason":"compromised"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_HealthPing(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/v1/health-check/ping", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_PasswordRecovery(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodPost, "/v1/users", "", `{"email":"alice@example.com","password":"first password"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(t, http.MethodPost, "/v1/password-recovery/request", "", `{"email":"alice@example.com"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	code := regexp.MustCompile(`[0-9]{6}`).FindString(s.outbox["alice@example.com"])
	require.NotEmpty(t, code)

	rr = s.do(t, http.MethodPost, "/v1/password-recovery/confirm", "",
		`{"email":"alice@example.com","code":"`+code+`","new_password":"recovered password"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(t, http.MethodPost, "/v1/sessions/login", "", `{"email":"alice@example.com","password":"first password"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = s.do(t, http.MethodPost, "/v1/sessions/login", "", `{"email":"alice@example.com","password":"recovered password"}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	for _, u := range s.store.users {
		active := u.Passwords.Active()
		require.Len(t, active, 1)
		assert.Equal(t, recovery.Application, active[0].Application)
	}

	rr = s.do(t, http.MethodPost, "/v1/password-recovery/confirm", "",
		`{"email":"alice@example.com","code":"`+code+`","new_password":"another password"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "code is single use")
}

func TestRouter_PasswordRecovery_UnknownEmailLooksTheSame(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/v1/password-recovery/request", "", `{"email":"ghost@example.com"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, s.outbox)
}

func TestRouter_PasswordRecovery_RateLimited(t *testing.T) {
	s := newTestServer(t)
	var last int
	for i := 0; i < 20; i++ {
		last = s.do(t, http.MethodPost, "/v1/password-recovery/request", "", `{"email":"ghost@example.com"}`).Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestRouter_PasswordRecovery_NotMountedWithoutService(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := NewRouter(ctx, &config.Config{AllowedOrigins: []string{"*"}}, &Deps{Health: &memStore{}})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/password-recovery/request", bytes.NewBufferString(`{}`)))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
