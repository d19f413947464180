package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/campuscore/backend/internal/repository"
	"github.com/campuscore/backend/internal/repository/postgres"
	"github.com/campuscore/backend/internal/service/auth"
	"github.com/campuscore/backend/internal/testutil"
)

func newTestAuthService(t *testing.T, storage repository.Storage) *auth.Service {
	t.Helper()

	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		SecretKey:       "test-secret-key-of-enough-length!",
		Issuer:          "campuscore",
		Audience:        "campuscore-clients",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	require.NoError(t, err, "issuer should be created without errors")

	s, err := auth.NewService(auth.Config{}, issuer, storage, nil)
	require.NoError(t, err, "auth service should be created without errors")

	return s
}

func Test_AuthHandler(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	passwordHash, err := auth.BcryptHasher{}.Hash("StrongEnoughPassword")
	require.NoError(t, err)

	// Run http server with auth handlers backed by the production service
	withServer := func(t *testing.T, fn func(url string, storage repository.Storage)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			s := newTestAuthService(t, storage)

			h := NewAuth(s)
			srv := httptest.NewServer(h.Handler())
			defer srv.Close()

			fn(srv.URL, storage)
		})
	}

	seedAccount := func(t *testing.T, storage repository.Storage) {
		t.Helper()
		_, err := storage.Account().Create(t.Context(), "nk", passwordHash)
		require.NoError(t, err)
	}

	login := func(t *testing.T, url string) tokenPairResponse {
		t.Helper()

		data := `{"username": "nk", "password": "StrongEnoughPassword"}`
		resp, err := http.Post(url+"/login", "application/json", strings.NewReader(data))
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))

		var pair tokenPairResponse
		require.NoError(t, json.Unmarshal(body, &pair))
		return pair
	}

	t.Run("login ok", func(t *testing.T) {
		withServer(t, func(url string, storage repository.Storage) {
			seedAccount(t, storage)

			pair := login(t, url)

			require.NotEmpty(t, pair.AccessToken)
			require.NotEmpty(t, pair.RefreshToken)
			require.WithinDuration(t, time.Now().Add(15*time.Minute), pair.AccessTokenExpires, time.Second)
			require.WithinDuration(t, time.Now().Add(24*time.Hour), pair.RefreshTokenExpires, time.Second)
		})
	})

	t.Run("login wrong password", func(t *testing.T) {
		withServer(t, func(url string, storage repository.Storage) {
			seedAccount(t, storage)

			data := `{"username": "nk", "password": "WrongPassword"}`
			resp, err := http.Post(url+"/login", "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", string(body))
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Invalid credentials"
				}`, string(body))
		})
	})

	t.Run("login unknown user same response as wrong password", func(t *testing.T) {
		withServer(t, func(url string, storage repository.Storage) {
			data := `{"username": "ghost", "password": "whatever"}`
			resp, err := http.Post(url+"/login", "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Invalid credentials"
				}`, string(body))
		})
	})

	t.Run("login deactivated account", func(t *testing.T) {
		withServer(t, func(url string, storage repository.Storage) {
			account, err := storage.Account().Create(t.Context(), "nk", passwordHash)
			require.NoError(t, err)
			require.NoError(t, storage.Account().SetActive(t.Context(), account.ID, false))

			data := `{"username": "nk", "password": "StrongEnoughPassword"}`
			resp, err := http.Post(url+"/login", "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Account is deactivated"
				}`, string(body))
		})
	})

	t.Run("login empty fields fail validation", func(t *testing.T) {
		withServer(t, func(url string, storage repository.Storage) {
			data := `{"username": "", "password": ""}`
			resp, err := http.Post(url+"/login", "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", string(body))
			require.Contains(t, string(body), "validation_failed")
		})
	})

	t.Run("refresh rotates tokens", func(t *testing.T) {
		withServer(t, func(url string, storage repository.Storage) {
			seedAccount(t, storage)
			first := login(t, url)

			data := `{"refreshToken": "` + first.RefreshToken + `"}`
			resp, err := http.Post(url+"/refresh", "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))

			var second tokenPairResponse
			require.NoError(t, json.Unmarshal(body, &second))
			require.NotEqual(t, first.RefreshToken, second.RefreshToken, "refresh token should be changed after refresh")
			require.NotEqual(t, first.AccessToken, second.AccessToken, "access token should be changed after refresh")
		})
	})

	t.Run("refresh twice fails", func(t *testing.T) {
		withServer(t, func(url string, storage repository.Storage) {
			seedAccount(t, storage)
			first := login(t, url)

			data := `{"refreshToken": "` + first.RefreshToken + `"}`
			resp, err := http.Post(url+"/refresh", "application/json", strings.NewReader(data))
			require.NoError(t, err)
			_ = resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)

			resp, err = http.Post(url+"/refresh", "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", string(body))
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Invalid or expired refresh token"
				}`, string(body))
		})
	})

	t.Run("refresh unknown token", func(t *testing.T) {
		withServer(t, func(url string, storage repository.Storage) {
			data := `{"refreshToken": "no-such-token"}`
			resp, err := http.Post(url+"/refresh", "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Invalid or expired refresh token"
				}`, string(body))
		})
	})

	t.Run("logout ok and idempotent", func(t *testing.T) {
		withServer(t, func(url string, storage repository.Storage) {
			seedAccount(t, storage)
			pair := login(t, url)

			data := `{"refreshToken": "` + pair.RefreshToken + `"}`

			for range 2 {
				resp, err := http.Post(url+"/logout", "application/json", strings.NewReader(data))
				require.NoError(t, err)
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				_ = resp.Body.Close()

				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))
				require.JSONEq(t, `
					{
						"message": "Logged out successfully"
					}`, string(body))
			}

			// Token must be spent now
			saved, err := storage.Refresh().GetByToken(t.Context(), pair.RefreshToken)
			require.NoError(t, err)
			require.True(t, saved.IsRevoked)
		})
	})
}
