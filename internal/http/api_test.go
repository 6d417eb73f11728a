package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/auth"
	"taskboard/internal/domain"
	"taskboard/internal/repository/memory"
	"taskboard/internal/service"
)

const testSecret = "test-secret"

type testServer struct {
	router *gin.Engine
	users  service.UserService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStorage()
	users := service.NewUserService(store.UserStore(), testSecret, 24*time.Hour)
	tasks := service.NewTaskService(store.TaskStore())

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	router := gin.New()
	NewHandler(users, tasks, testSecret, logger).RegisterRoutes(router)
	return &testServer{router: router, users: users}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (s *testServer) registerAndLogin(t *testing.T, name, email, password string) string {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": name, "email": email, "password": password})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, _ := decode(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	w := srv.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "UP", decode(t, w)["status"])
}

func TestRegisterValidationAndConflict(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": "A", "email": "bad", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": "Alice", "email": "alice@example.com", "password": "password1"})
	assert.Equal(t, http.StatusCreated, w.Code)
	user, _ := decode(t, w)["user"].(map[string]any)
	require.NotNil(t, user)
	assert.Equal(t, "USER", user["role"])
	assert.NotContains(t, user, "password_hash")

	w = srv.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": "Alice", "email": "alice@example.com", "password": "password1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists", decode(t, w)["message"])
}

func TestLoginFailures(t *testing.T) {
	srv := newTestServer(t)
	srv.registerAndLogin(t, "Alice", "alice@example.com", "password1")

	wrong := srv.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com", "password": "nope"})
	unknown := srv.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "nobody@example.com", "password": "password1"})

	assert.Equal(t, http.StatusBadRequest, wrong.Code)
	assert.Equal(t, http.StatusBadRequest, unknown.Code)
	// unknown email and wrong password are indistinguishable
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestTaskEndpointsRequireToken(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"garbage token", "garbage"},
		{"expired token", expiredToken(t)},
		{"foreign signature", foreignToken(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(t, http.MethodGet, "/api/tasks", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func expiredToken(t *testing.T) string {
	t.Helper()
	token, err := auth.Sign(&domain.User{ID: "x", Role: domain.RoleUser}, testSecret, -time.Minute)
	require.NoError(t, err)
	return token
}

func foreignToken(t *testing.T) string {
	t.Helper()
	token, err := auth.Sign(&domain.User{ID: "x", Role: domain.RoleUser}, "other-secret", time.Hour)
	require.NoError(t, err)
	return token
}

func TestTaskLifecycle(t *testing.T) {
	srv := newTestServer(t)
	tokenA := srv.registerAndLogin(t, "Alice", "alice@example.com", "password1")
	tokenB := srv.registerAndLogin(t, "Bob", "bob@example.com", "password2")

	// create: status defaults to PENDING, owner is the caller
	w := srv.do(t, http.MethodPost, "/api/tasks", tokenA, gin.H{"title": "write report"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	taskID, _ := created["id"].(string)
	require.NotEmpty(t, taskID)
	assert.Equal(t, "PENDING", created["status"])

	// list as A returns exactly the one task
	w = srv.do(t, http.MethodGet, "/api/tasks", tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	tasks, _ := body["tasks"].([]any)
	require.Len(t, tasks, 1)
	pagination, _ := body["pagination"].(map[string]any)
	assert.Equal(t, float64(1), pagination["total"])

	// B can see nothing of A's
	w = srv.do(t, http.MethodGet, "/api/tasks", tokenB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tasks, _ = decode(t, w)["tasks"].([]any)
	assert.Empty(t, tasks)

	// update status as the owner
	w = srv.do(t, http.MethodPut, "/api/tasks/"+taskID, tokenA, gin.H{"status": "COMPLETED"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "COMPLETED", decode(t, w)["status"])

	// non-owner may neither read, update nor delete
	w = srv.do(t, http.MethodGet, "/api/tasks/"+taskID, tokenB, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = srv.do(t, http.MethodPut, "/api/tasks/"+taskID, tokenB, gin.H{"title": "hijack"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = srv.do(t, http.MethodDelete, "/api/tasks/"+taskID, tokenB, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// delete as the owner, then the id is gone
	w = srv.do(t, http.MethodDelete, "/api/tasks/"+taskID, tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodGet, "/api/tasks/"+taskID, tokenA, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = srv.do(t, http.MethodDelete, "/api/tasks/"+taskID, tokenA, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminSeesAllTasks(t *testing.T) {
	srv := newTestServer(t)
	tokenA := srv.registerAndLogin(t, "Alice", "alice@example.com", "password1")
	tokenB := srv.registerAndLogin(t, "Bob", "bob@example.com", "password2")

	for i := 0; i < 2; i++ {
		w := srv.do(t, http.MethodPost, "/api/tasks", tokenA, gin.H{"title": fmt.Sprintf("alice %d", i)})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := srv.do(t, http.MethodPost, "/api/tasks", tokenB, gin.H{"title": "bob"})
	require.Equal(t, http.StatusCreated, w.Code)

	adminToken := srv.adminToken(t)
	w = srv.do(t, http.MethodGet, "/api/tasks", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pagination, _ := decode(t, w)["pagination"].(map[string]any)
	assert.Equal(t, float64(3), pagination["total"])
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	require.NoError(t, s.users.EnsureAdmin(context.Background(), "Administrator", "admin@example.com", "adminpass"))

	w := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "admin@example.com", "password": "adminpass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, _ := decode(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestListUsersIsAdminOnly(t *testing.T) {
	srv := newTestServer(t)
	userToken := srv.registerAndLogin(t, "Alice", "alice@example.com", "password1")

	w := srv.do(t, http.MethodGet, "/api/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(t, http.MethodGet, "/api/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	adminToken := srv.adminToken(t)
	w = srv.do(t, http.MethodGet, "/api/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	users, _ := decode(t, w)["users"].([]any)
	assert.Len(t, users, 2)
}

func TestPaginationOverTasks(t *testing.T) {
	srv := newTestServer(t)
	token := srv.registerAndLogin(t, "Alice", "alice@example.com", "password1")

	for i := 0; i < 25; i++ {
		w := srv.do(t, http.MethodPost, "/api/tasks", token, gin.H{"title": fmt.Sprintf("task %02d", i)})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := srv.do(t, http.MethodGet, "/api/tasks?page=1&limit=10", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	tasks, _ := body["tasks"].([]any)
	assert.Len(t, tasks, 10)
	pagination, _ := body["pagination"].(map[string]any)
	assert.Equal(t, float64(25), pagination["total"])
	assert.Equal(t, float64(3), pagination["pages"])

	w = srv.do(t, http.MethodGet, "/api/tasks?page=3&limit=10", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tasks, _ = decode(t, w)["tasks"].([]any)
	assert.Len(t, tasks, 5)

	// non-numeric values fall back to the defaults
	w = srv.do(t, http.MethodGet, "/api/tasks?page=abc&limit=xyz", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tasks, _ = decode(t, w)["tasks"].([]any)
	assert.Len(t, tasks, 10)
}
