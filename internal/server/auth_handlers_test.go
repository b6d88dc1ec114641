package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-dev/storefront/internal/config"
	"github.com/storefront-dev/storefront/internal/models"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{ListenAddr: ":0"},
		Database: config.DatabaseConfig{
			URL: filepath.Join(t.TempDir(), "test.sqlite"),
		},
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
	}

	srv, err := New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func registerUser(t *testing.T, srv *Server, username, email, password string) {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/auth/users/", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func loginUser(t *testing.T, srv *Server, username, password string) (access, refresh string) {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/auth/jwt/create/", map[string]string{
		"username": username,
		"password": password,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	return body["access"].(string), body["refresh"].(string)
}

func TestCreateUser(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/auth/users/", map[string]string{
		"username":   "alice",
		"email":      "alice@example.com",
		"password":   "correct-horse",
		"first_name": "Alice",
		"last_name":  "Smith",
	}, nil)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "alice@example.com", body["email"])
	assert.Equal(t, "Alice", body["first_name"])
	assert.NotEmpty(t, body["id"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "password_hash")
}

func TestCreateUserValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name    string
		payload map[string]string
		field   string
	}{
		{
			name:    "missing username",
			payload: map[string]string{"email": "a@example.com", "password": "long-enough"},
			field:   "username",
		},
		{
			name:    "invalid email",
			payload: map[string]string{"username": "alice", "email": "nope", "password": "long-enough"},
			field:   "email",
		},
		{
			name:    "short password",
			payload: map[string]string{"username": "alice", "email": "a@example.com", "password": "short"},
			field:   "password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, srv, http.MethodPost, "/auth/users/", tt.payload, nil)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var body map[string][]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body[tt.field])
		})
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "alice", "alice@example.com", "correct-horse")

	w := doJSON(t, srv, http.MethodPost, "/auth/users/", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "correct-horse",
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"A user with that username already exists."}, body["username"])

	w = doJSON(t, srv, http.MethodPost, "/auth/users/", map[string]string{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "correct-horse",
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["email"])
}

func TestCreateTokenPair(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "alice", "alice@example.com", "correct-horse")

	access, refresh := loginUser(t, srv, "alice", "correct-horse")
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	// The refresh token JTI is recorded for revocation
	var count int64
	require.NoError(t, srv.db.Model(&models.RefreshToken{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateTokenPairRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "alice", "alice@example.com", "correct-horse")

	w := doJSON(t, srv, http.MethodPost, "/auth/jwt/create/", map[string]string{
		"username": "alice",
		"password": "wrong",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "No active account found with the given credentials", decodeBody(t, w)["detail"])

	w = doJSON(t, srv, http.MethodPost, "/auth/jwt/create/", map[string]string{
		"username": "nobody",
		"password": "whatever",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshToken(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "alice", "alice@example.com", "correct-horse")
	_, refresh := loginUser(t, srv, "alice", "correct-horse")

	w := doJSON(t, srv, http.MethodPost, "/auth/jwt/refresh/", map[string]string{
		"refresh": refresh,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decodeBody(t, w)["access"])
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "alice", "alice@example.com", "correct-horse")
	access, _ := loginUser(t, srv, "alice", "correct-horse")

	w := doJSON(t, srv, http.MethodPost, "/auth/jwt/refresh/", map[string]string{
		"refresh": access,
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token is invalid or expired", decodeBody(t, w)["detail"])
}

func TestRefreshRejectsRevokedToken(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "alice", "alice@example.com", "correct-horse")
	_, refresh := loginUser(t, srv, "alice", "correct-horse")

	// Deleting the record revokes the token even though the JWT is still valid
	require.NoError(t, srv.db.Where("1 = 1").Delete(&models.RefreshToken{}).Error)

	w := doJSON(t, srv, http.MethodPost, "/auth/jwt/refresh/", map[string]string{
		"refresh": refresh,
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyToken(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "alice", "alice@example.com", "correct-horse")
	access, refresh := loginUser(t, srv, "alice", "correct-horse")

	for _, token := range []string{access, refresh} {
		w := doJSON(t, srv, http.MethodPost, "/auth/jwt/verify/", map[string]string{"token": token}, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(t, srv, http.MethodPost, "/auth/jwt/verify/", map[string]string{"token": "garbage"}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token is invalid or expired", decodeBody(t, w)["detail"])
}

func TestCurrentUser(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "alice", "alice@example.com", "correct-horse")
	access, _ := loginUser(t, srv, "alice", "correct-horse")

	w := doJSON(t, srv, http.MethodGet, "/auth/users/me/", nil, map[string]string{
		"Authorization": fmt.Sprintf("JWT %s", access),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "alice@example.com", body["email"])
}

func TestCurrentUserRequiresAuth(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "alice", "alice@example.com", "correct-horse")
	access, _ := loginUser(t, srv, "alice", "correct-horse")

	w := doJSON(t, srv, http.MethodGet, "/auth/users/me/", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authentication credentials were not provided.", decodeBody(t, w)["detail"])

	// Wrong scheme is rejected even with a valid token
	w = doJSON(t, srv, http.MethodGet, "/auth/users/me/", nil, map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", access),
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/auth/users/me/", nil, map[string]string{
		"Authorization": "JWT not-a-token",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token is invalid or expired", decodeBody(t, w)["detail"])
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}
