package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"backoffice/boilerplate/internal/config"
	"backoffice/boilerplate/internal/domain/product"
	"backoffice/boilerplate/internal/domain/profile"
	"backoffice/boilerplate/internal/infrastructure/memory"
	"backoffice/boilerplate/internal/infrastructure/token"
	authusecase "backoffice/boilerplate/internal/usecase/auth"
	resourceusecase "backoffice/boilerplate/internal/usecase/resource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

type outbox struct {
	mu   sync.Mutex
	sent []string
}

func (o *outbox) Send(_ context.Context, _, _, html string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, html)
	return nil
}

func (o *outbox) lastCode(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent)
	code := codePattern.FindString(o.sent[len(o.sent)-1])
	require.NotEmpty(t, code)
	return code
}

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

type testServer struct {
	t      *testing.T
	srv    *Server
	mailer *outbox
	tokens *token.JWTManager
}

func newTestServer(t *testing.T, authPerMinute int) *testServer {
	t.Helper()

	tokens := token.NewJWTManager("test-secret", time.Hour, 2*time.Hour, "backoffice-test")
	mailer := &outbox{}
	authService := authusecase.NewService(authusecase.Repositories{
		Users:    memory.NewUserRepository(),
		Sessions: memory.NewSessionRepository(),
		Codes:    memory.NewVerificationRepository(),
	}, tokens, mailer, authusecase.Config{BcryptCost: bcrypt.MinCost}, nil)

	srv := NewServer(config.Config{
		HTTPPort:          "0",
		BasePath:          "/api/v1",
		AllowedOrigins:    []string{"*"},
		AuthRatePerMinute: authPerMinute,
	}, authService, nil)
	MountResource(srv, resourceusecase.NewGateway(product.Definition, memory.NewCollection[product.Product](product.Definition), resourceusecase.Options{}))
	MountResource(srv, resourceusecase.NewGateway(profile.Definition, memory.NewCollection[profile.Profile](profile.Definition), resourceusecase.Options{}))
	t.Cleanup(func() { srv.authLimiter.stop() })

	return &testServer{t: t, srv: srv, mailer: mailer, tokens: tokens}
}

func (ts *testServer) do(method, path, bearer string, body any) (int, envelope) {
	ts.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func (ts *testServer) register(name, email, password string) {
	ts.t.Helper()
	status, env := ts.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":                  name,
		"email":                 email,
		"password":              password,
		"password_confirmation": password,
	})
	require.Equal(ts.t, http.StatusOK, status, env.Message)
}

func (ts *testServer) login(email, password string) authusecase.LoginResult {
	ts.t.Helper()
	status, env := ts.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(ts.t, http.StatusOK, status, env.Message)
	var result authusecase.LoginResult
	require.NoError(ts.t, json.Unmarshal(env.Data, &result))
	return result
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t, 1000)

	status, env := ts.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":                  "Alice",
		"email":                 "Alice@X.com",
		"password":              "pw12345!",
		"password_confirmation": "pw12345!",
	})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	user := decodeData[map[string]any](t, env)
	assert.Equal(t, "alice@x.com", user["email"])
	assert.Equal(t, "User", user["role"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "passwordHash")

	status, env = ts.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":                  "Alice",
		"email":                 "alice@x.com",
		"password":              "pw12345!",
		"password_confirmation": "pw12345!",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.False(t, env.Success)
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t, 1000)

	status, env := ts.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":                 "not-an-email",
		"password":              "short",
		"password_confirmation": "other",
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
	assert.Contains(t, env.Errors, "name")
	assert.Contains(t, env.Errors, "email")
	assert.Contains(t, env.Errors, "password")
	assert.Contains(t, env.Errors, "password_confirmation")

	status, _ = ts.do(http.MethodPost, "/api/v1/auth/register", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLoginAndMe(t *testing.T) {
	ts := newTestServer(t, 1000)
	ts.register("Alice", "alice@x.com", "pw12345!")

	status, env := ts.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "alice@x.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid email or password", env.Message)

	result := ts.login("alice@x.com", "pw12345!")
	assert.Equal(t, "alice@x.com", result.User.Email)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)

	claims, err := ts.tokens.Verify(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", claims.Email)
	_, err = ts.tokens.Verify(result.RefreshToken)
	require.NoError(t, err)

	status, env = ts.do(http.MethodGet, "/api/v1/auth/me", result.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	me := decodeData[map[string]any](t, env)
	assert.Equal(t, "Alice", me["name"])

	status, env = ts.do(http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "No token found in the header.", env.Message)

	status, _ = ts.do(http.MethodGet, "/api/v1/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSecondLoginInvalidatesFirstAccessToken(t *testing.T) {
	ts := newTestServer(t, 1000)
	ts.register("Alice", "alice@x.com", "pw12345!")

	first := ts.login("alice@x.com", "pw12345!")
	second := ts.login("alice@x.com", "pw12345!")

	status, _ := ts.do(http.MethodGet, "/api/v1/auth/me", first.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = ts.do(http.MethodGet, "/api/v1/auth/me", second.AccessToken, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRefreshToken(t *testing.T) {
	ts := newTestServer(t, 1000)
	ts.register("Alice", "alice@x.com", "pw12345!")
	session := ts.login("alice@x.com", "pw12345!")

	status, env := ts.do(http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{"token": session.RefreshToken})
	require.Equal(t, http.StatusOK, status, env.Message)
	fresh := decodeData[map[string]string](t, env)["accessToken"]
	require.NotEmpty(t, fresh)

	status, _ = ts.do(http.MethodGet, "/api/v1/auth/me", session.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = ts.do(http.MethodGet, "/api/v1/auth/me", fresh, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = ts.do(http.MethodPost, "/api/v1/auth/refresh-token", session.RefreshToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = ts.do(http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{"token": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = ts.do(http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Errors, "token")
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t, 1000)
	ts.register("Alice", "alice@x.com", "pw12345!")
	session := ts.login("alice@x.com", "pw12345!")

	status, env := ts.do(http.MethodPost, "/api/v1/auth/logout", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Logged out successfully", env.Message)

	status, _ = ts.do(http.MethodPost, "/api/v1/auth/logout", session.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = ts.do(http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{"token": session.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestPasswordReset(t *testing.T) {
	ts := newTestServer(t, 1000)
	ts.register("Alice", "alice@x.com", "pw12345!")

	status, _ := ts.do(http.MethodPost, "/api/v1/auth/reset-email", "", map[string]string{"email": "nobody@x.com"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = ts.do(http.MethodPost, "/api/v1/auth/reset-email", "", map[string]string{"email": "alice@x.com"})
	require.Equal(t, http.StatusOK, status)
	code := ts.mailer.lastCode(t)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	status, env := ts.do(http.MethodPost, "/api/v1/auth/reset-password", "", map[string]string{
		"code": wrong, "email": "alice@x.com", "password": "newpass123", "password_confirmation": "newpass123",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid or expired verification code", env.Message)

	status, _ = ts.do(http.MethodPost, "/api/v1/auth/reset-password", "", map[string]string{
		"code": code, "email": "alice@x.com", "password": "pw12345!", "password_confirmation": "pw12345!",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(http.MethodPost, "/api/v1/auth/reset-password", "", map[string]string{
		"code": code, "email": "alice@x.com", "password": "newpass123", "password_confirmation": "newpass123",
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = ts.do(http.MethodPost, "/api/v1/auth/reset-password", "", map[string]string{
		"code": code, "email": "alice@x.com", "password": "another123", "password_confirmation": "another123",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	ts.login("alice@x.com", "newpass123")
}

func TestChangePassword(t *testing.T) {
	ts := newTestServer(t, 1000)
	ts.register("Alice", "alice@x.com", "pw12345!")
	session := ts.login("alice@x.com", "pw12345!")

	status, _ := ts.do(http.MethodPost, "/api/v1/auth/change-password", session.AccessToken, map[string]string{
		"current_password": "wrong", "password": "newpass123", "password_confirmation": "newpass123",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(http.MethodPost, "/api/v1/auth/change-password", session.AccessToken, map[string]string{
		"current_password": "pw12345!", "password": "newpass123", "password_confirmation": "newpass123",
	})
	require.Equal(t, http.StatusOK, status)

	ts.login("alice@x.com", "newpass123")
}

func TestResourceLifecycle(t *testing.T) {
	ts := newTestServer(t, 1000)
	ts.register("Alice", "alice@x.com", "pw12345!")
	bearer := ts.login("alice@x.com", "pw12345!").AccessToken

	status, _ := ts.do(http.MethodGet, "/api/v1/products/list", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := ts.do(http.MethodPost, "/api/v1/products/add", bearer, map[string]any{
		"name": "Keyboard", "sku": "KB-1", "price": 49.5, "quantity": 3, "owner": "ignored",
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	created := decodeData[product.Product](t, env)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "KB-1", created.SKU)

	status, _ = ts.do(http.MethodPost, "/api/v1/products/add", bearer, map[string]any{"name": "Other", "sku": "KB-1"})
	assert.Equal(t, http.StatusConflict, status)

	status, env = ts.do(http.MethodPost, "/api/v1/products/add", bearer, map[string]any{"price": -1})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Errors, "name")

	status, _ = ts.do(http.MethodPost, "/api/v1/products/add", bearer, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = ts.do(http.MethodGet, "/api/v1/products/single/sku/KB-1", bearer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created.ID, decodeData[product.Product](t, env).ID)

	status, env = ts.do(http.MethodGet, "/api/v1/products/single/sku/missing", bearer, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Entry does not exist in the record.", env.Message)

	status, _ = ts.do(http.MethodGet, "/api/v1/products/single/owner/alice", bearer, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = ts.do(http.MethodPost, "/api/v1/products/edit/sku/KB-1", bearer, map[string]any{"sku": "KB-2", "quantity": 7})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "Updated successfully", env.Message)
	edited := decodeData[product.Product](t, env)
	assert.Equal(t, "KB-2", edited.SKU)
	assert.Equal(t, int64(7), edited.Quantity)
	assert.Equal(t, "Keyboard", edited.Name)

	status, _ = ts.do(http.MethodGet, "/api/v1/products/single/sku/KB-1", bearer, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = ts.do(http.MethodDelete, "/api/v1/products/delete/id/"+created.ID, bearer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Deleted successfully", env.Message)
	assert.JSONEq(t, `{}`, string(env.Data))

	status, _ = ts.do(http.MethodDelete, "/api/v1/products/delete/id/"+created.ID, bearer, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestResourceListPagination(t *testing.T) {
	ts := newTestServer(t, 1000)
	ts.register("Alice", "alice@x.com", "pw12345!")
	bearer := ts.login("alice@x.com", "pw12345!").AccessToken

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		status, env := ts.do(http.MethodPost, "/api/v1/profiles/add", bearer, map[string]string{"name": email, "email": email})
		require.Equal(t, http.StatusOK, status, env.Message)
	}

	status, env := ts.do(http.MethodGet, "/api/v1/profiles/list", bearer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeData[[]profile.Profile](t, env), 3)

	status, env = ts.do(http.MethodGet, "/api/v1/profiles/list?page=2&size=2", bearer, nil)
	require.Equal(t, http.StatusOK, status)
	page := decodeData[resourceusecase.Page[profile.Profile]](t, env)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 3, page.Start)
	assert.Equal(t, 3, page.End)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "c@x.com", page.Data[0].Email)

	status, env = ts.do(http.MethodGet, "/api/v1/profiles/list?page=9223372036854775807&size=2", bearer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decodeData[resourceusecase.Page[profile.Profile]](t, env).Data)

	status, env = ts.do(http.MethodGet, "/api/v1/profiles/list?page=0&size=2", bearer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeData[[]profile.Profile](t, env), 3)
}

func TestAuthRoutesAreRateLimitedPerIP(t *testing.T) {
	ts := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		status, _ := ts.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "a@x.com", "password": "x"})
		assert.Equal(t, http.StatusUnauthorized, status)
	}
	status, _ := ts.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "a@x.com", "password": "x"})
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, 1000)

	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="GET /health",status="200"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, 1000)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://admin.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
