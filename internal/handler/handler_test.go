package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/storefront/internal/catalog"
	"github.com/suteetoe/storefront/internal/store"
	"github.com/suteetoe/storefront/pkg/jwtutil"
)

type testServer struct {
	e      *echo.Echo
	h      *Handler
	jwt    *jwtutil.JWTUtil
	stores *store.Stores
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cat, err := catalog.LoadDefault()
	require.NoError(t, err)

	stores, err := store.NewFileStores(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close(context.Background()) })

	jwtUtil := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "test-key", ExpirationHours: 1})

	h := New(Options{Catalog: cat, Stores: stores, JWT: jwtUtil, CacheTTL: time.Minute})
	e := echo.New()
	e.Validator = NewValidator()
	e.Use(CORS())
	h.Mount(e)

	return &testServer{e: e, h: h, jwt: jwtUtil, stores: stores}
}

type reqOpt func(*http.Request)

func withBearer(token string) reqOpt {
	return func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+token) }
}

func withHeader(key, value string) reqOpt {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func (s *testServer) do(t *testing.T, method, target, body string, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// register creates an account and returns its token
func (s *testServer) register(t *testing.T, name, email string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register",
		`{"name":"`+name+`","email":"`+email+`","password":"secret123"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp authResponse
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","products":16}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodOptions, "/api/products", "",
		withHeader(echo.HeaderOrigin, "https://shop.example.com"),
		withHeader(echo.HeaderAccessControlRequestMethod, http.MethodGet))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodGet)
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), "X-Guest-Token")

	rec = s.do(t, http.MethodGet, "/api/products", "",
		withHeader(echo.HeaderOrigin, "https://shop.example.com"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
