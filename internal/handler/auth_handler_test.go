package handler

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/storefront/internal/model"
)

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/register",
		`{"name":"Ada","email":" Ada@Example.com ","password":"secret123"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg authResponse
	decode(t, rec, &reg)
	assert.Equal(t, "ada@example.com", reg.User.Email)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(t, http.MethodPost, "/api/auth/login",
		`{"email":"ADA@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login authResponse
	decode(t, rec, &login)
	assert.Equal(t, reg.User.ID, login.User.ID)

	claims, err := s.jwt.ValidateToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "Ada", "ada@example.com")

	rec := s.do(t, http.MethodPost, "/api/auth/register",
		`{"name":"Other","email":"ADA@example.com","password":"secret123"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"Email already registered"}`, rec.Body.String())
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"short password", `{"name":"Ada","email":"ada@example.com","password":"123"}`},
		{"bad email", `{"name":"Ada","email":"not-an-email","password":"secret123"}`},
		{"missing name", `{"email":"ada@example.com","password":"secret123"}`},
		{"malformed json", `{"name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "Ada", "ada@example.com")

	rec := s.do(t, http.MethodPost, "/api/auth/login",
		`{"email":"ada@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/auth/login",
		`{"email":"nobody@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Ada", "ada@example.com")

	rec := s.do(t, http.MethodGet, "/api/auth/me", "", withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		User struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"user"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "Ada", body.User.Name)

	rec = s.do(t, http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/auth/me", "", withBearer("garbage"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid or expired token"}`, rec.Body.String())
}

func TestRegisterConcurrentSameEmail(t *testing.T) {
	s := newTestServer(t)

	const clients = 8
	codes := make([]int, clients)
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := s.do(t, http.MethodPost, "/api/auth/register",
				`{"name":"Ana","email":"ana@example.com","password":"secret123"}`)
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	created := 0
	for _, code := range codes {
		if code == http.StatusCreated {
			created++
			continue
		}
		assert.Equal(t, http.StatusConflict, code)
	}
	assert.Equal(t, 1, created)

	users, err := s.stores.Users.List(context.Background(), func(u model.User) bool {
		return u.Email == "ana@example.com"
	})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestLoginTrimsEmail(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "Ada", "ada@example.com")

	rec := s.do(t, http.MethodPost, "/api/auth/login",
		`{"email":"  ADA@example.com\t","password":"secret123"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/auth/register",
		`{"name":"   ","email":"bea@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
