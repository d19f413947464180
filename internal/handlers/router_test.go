package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/campuscore/backend/internal/logger"
	"github.com/campuscore/backend/internal/repository"
	"github.com/campuscore/backend/internal/repository/postgres"
	"github.com/campuscore/backend/internal/service/auth"
	"github.com/campuscore/backend/internal/service/userrole"
	"github.com/campuscore/backend/internal/testutil"
)

// Role ids as seeded by the initial migration
const (
	roleIDAdmin   = int64(1)
	roleIDStudent = int64(7)
)

func Test_Router(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	passwordHash, err := auth.BcryptHasher{}.Hash("StrongEnoughPassword")
	require.NoError(t, err)

	withServer := func(t *testing.T, fn func(url string, as *auth.Service, storage repository.Storage)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			as := newTestAuthService(t, storage)

			us, err := userrole.NewService(storage, nil)
			require.NoError(t, err)

			srv := httptest.NewServer(NewRouter(as, us, logger.NewNoOp()))
			defer srv.Close()

			fn(srv.URL, as, storage)
		})
	}

	// Create an account with the given roles and return a valid access token
	loginAs := func(t *testing.T, as *auth.Service, storage repository.Storage, username string, roleIDs ...int64) string {
		t.Helper()

		account, err := storage.Account().Create(t.Context(), username, passwordHash)
		require.NoError(t, err)
		for _, roleID := range roleIDs {
			_, err := storage.RoleAssignment().Assign(t.Context(), account.ID, roleID)
			require.NoError(t, err)
		}

		pair, err := as.Login(t.Context(), username, "StrongEnoughPassword")
		require.NoError(t, err)
		return pair.Access.Value
	}

	send := func(t *testing.T, method, url, token, data string) (int, string) {
		t.Helper()

		var reqBody io.Reader
		if data != "" {
			reqBody = strings.NewReader(data)
		}
		req, err := http.NewRequest(method, url, reqBody)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		_ = resp.Body.Close()

		return resp.StatusCode, string(body)
	}

	t.Run("sessions", func(t *testing.T) {
		t.Run("requires token", func(t *testing.T) {
			withServer(t, func(url string, as *auth.Service, storage repository.Storage) {
				code, body := send(t, "GET", url+"/api/auth/sessions", "", "")

				require.Equalf(t, http.StatusUnauthorized, code, "not expected code. Body: %s", body)
			})
		})

		t.Run("lists own sessions without token values", func(t *testing.T) {
			withServer(t, func(url string, as *auth.Service, storage repository.Storage) {
				token := loginAs(t, as, storage, "nk", roleIDStudent)

				code, body := send(t, "GET", url+"/api/auth/sessions", token, "")

				require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
				require.Contains(t, body, `"createdAt"`)
				require.Contains(t, body, `"expiresAt"`)
				require.NotContains(t, body, `"token"`, "opaque token values must never be echoed back")
			})
		})
	})

	t.Run("user roles", func(t *testing.T) {
		t.Run("requires token", func(t *testing.T) {
			withServer(t, func(url string, as *auth.Service, storage repository.Storage) {
				code, body := send(t, "POST", url+"/api/user-roles/assign", "", `{"userId": 1, "roleId": 7}`)

				require.Equalf(t, http.StatusUnauthorized, code, "not expected code. Body: %s", body)
			})
		})

		t.Run("requires admin role", func(t *testing.T) {
			withServer(t, func(url string, as *auth.Service, storage repository.Storage) {
				token := loginAs(t, as, storage, "student", roleIDStudent)

				code, body := send(t, "POST", url+"/api/user-roles/assign", token, `{"userId": 1, "roleId": 7}`)

				require.Equalf(t, http.StatusForbidden, code, "not expected code. Body: %s", body)
			})
		})

		t.Run("assign ok", func(t *testing.T) {
			withServer(t, func(url string, as *auth.Service, storage repository.Storage) {
				token := loginAs(t, as, storage, "admin", roleIDAdmin)
				target, err := storage.Account().Create(t.Context(), "target", passwordHash)
				require.NoError(t, err)

				code, body := send(t, "POST", url+"/api/user-roles/assign", token,
					`{"userId": `+formatID(target.ID)+`, "roleId": 7}`)

				require.Equalf(t, http.StatusCreated, code, "not expected code. Body: %s", body)
				require.Contains(t, body, `"isActive":true`)

				has, err := storage.RoleAssignment().HasRole(t.Context(), target.ID, roleIDStudent)
				require.NoError(t, err)
				require.True(t, has)
			})
		})

		t.Run("remove ok", func(t *testing.T) {
			withServer(t, func(url string, as *auth.Service, storage repository.Storage) {
				token := loginAs(t, as, storage, "admin", roleIDAdmin)
				target, err := storage.Account().Create(t.Context(), "target", passwordHash)
				require.NoError(t, err)
				_, err = storage.RoleAssignment().Assign(t.Context(), target.ID, roleIDStudent)
				require.NoError(t, err)

				code, body := send(t, "DELETE", url+"/api/user-roles/remove", token,
					`{"userId": `+formatID(target.ID)+`, "roleId": 7}`)

				require.Equalf(t, http.StatusNoContent, code, "not expected code. Body: %s", body)

				has, err := storage.RoleAssignment().HasRole(t.Context(), target.ID, roleIDStudent)
				require.NoError(t, err)
				require.False(t, has)
			})
		})

		t.Run("remove not assigned role", func(t *testing.T) {
			withServer(t, func(url string, as *auth.Service, storage repository.Storage) {
				token := loginAs(t, as, storage, "admin", roleIDAdmin)
				target, err := storage.Account().Create(t.Context(), "target", passwordHash)
				require.NoError(t, err)

				code, body := send(t, "DELETE", url+"/api/user-roles/remove", token,
					`{"userId": `+formatID(target.ID)+`, "roleId": 7}`)

				require.Equalf(t, http.StatusNotFound, code, "not expected code. Body: %s", body)
				require.JSONEq(t, `
					{
						"error": "service_error",
						"message": "Role is not assigned to the user"
					}`, body)
			})
		})

		t.Run("has role answers false without error", func(t *testing.T) {
			withServer(t, func(url string, as *auth.Service, storage repository.Storage) {
				token := loginAs(t, as, storage, "admin", roleIDAdmin)
				target, err := storage.Account().Create(t.Context(), "target", passwordHash)
				require.NoError(t, err)

				code, body := send(t, "POST", url+"/api/user-roles/has-role", token,
					`{"userId": `+formatID(target.ID)+`, "roleId": 7}`)

				require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
				require.JSONEq(t, `{"hasRole": false}`, body)
			})
		})

		t.Run("has role by name via query", func(t *testing.T) {
			withServer(t, func(url string, as *auth.Service, storage repository.Storage) {
				token := loginAs(t, as, storage, "admin", roleIDAdmin)
				target, err := storage.Account().Create(t.Context(), "target", passwordHash)
				require.NoError(t, err)
				_, err = storage.RoleAssignment().Assign(t.Context(), target.ID, roleIDStudent)
				require.NoError(t, err)

				code, body := send(t, "GET",
					url+"/api/user-roles/has-role?userId="+formatID(target.ID)+"&role=Student", token, "")

				require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
				require.JSONEq(t, `{"hasRole": true}`, body)
			})
		})

		t.Run("role names by user", func(t *testing.T) {
			withServer(t, func(url string, as *auth.Service, storage repository.Storage) {
				token := loginAs(t, as, storage, "admin", roleIDAdmin)
				target, err := storage.Account().Create(t.Context(), "target", passwordHash)
				require.NoError(t, err)
				_, err = storage.RoleAssignment().Assign(t.Context(), target.ID, roleIDStudent)
				require.NoError(t, err)

				code, body := send(t, "GET", url+"/api/user-roles/role-names/"+formatID(target.ID), token, "")

				require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
				require.JSONEq(t, `["Student"]`, body)
			})
		})

		t.Run("list by user and by role", func(t *testing.T) {
			withServer(t, func(url string, as *auth.Service, storage repository.Storage) {
				token := loginAs(t, as, storage, "admin", roleIDAdmin)
				target, err := storage.Account().Create(t.Context(), "target", passwordHash)
				require.NoError(t, err)
				_, err = storage.RoleAssignment().Assign(t.Context(), target.ID, roleIDStudent)
				require.NoError(t, err)

				code, body := send(t, "GET", url+"/api/user-roles/by-user/"+formatID(target.ID), token, "")
				require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
				require.Contains(t, body, `"roleName":"Student"`)
				require.Contains(t, body, `"username":"target"`)

				code, body = send(t, "GET", url+"/api/user-roles/by-role/7", token, "")
				require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
				require.Contains(t, body, `"username":"target"`)
			})
		})

		t.Run("bad path parameter", func(t *testing.T) {
			withServer(t, func(url string, as *auth.Service, storage repository.Storage) {
				token := loginAs(t, as, storage, "admin", roleIDAdmin)

				code, body := send(t, "GET", url+"/api/user-roles/by-user/not-a-number", token, "")

				require.Equalf(t, http.StatusBadRequest, code, "not expected code. Body: %s", body)
			})
		})
	})
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
