package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"studygroup/middleware"
	"studygroup/models"
	"studygroup/services"
	"studygroup/store"
)

var testSecret = []byte("api-test-secret")

type testServer struct {
	router    *gin.Engine
	groups    *services.GroupService
	wsManager *services.WebSocketManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	wsManager := services.NewWebSocketManager(10)
	groupService := services.NewGroupService(store.New(), nil, nil, wsManager)

	r := gin.New()
	r.Use(middleware.JWTAuth(testSecret, "studygroup"))
	RegisterRoutes(r, Dependencies{
		GroupService: groupService,
		WSManager:    wsManager,
		BufferSize:   8,
	})
	t.Cleanup(wsManager.Stop)

	return &testServer{router: r, groups: groupService, wsManager: wsManager}
}

func tokenFor(t *testing.T, caller models.Principal) string {
	t.Helper()
	token, err := middleware.GenerateToken(testSecret, "studygroup", caller, time.Hour)
	require.NoError(t, err)
	return token
}

// do 以 caller 身份发送请求，caller 为空时不带令牌
func (s *testServer) do(t *testing.T, method, target string, caller models.Principal, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload *bytes.Reader
	switch b := body.(type) {
	case nil:
		payload = bytes.NewReader(nil)
	case string:
		payload = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		payload = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, payload)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, caller))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createGroup(t *testing.T, caller models.Principal, name string) models.GroupID {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/groups", caller, models.GroupRequest{Name: name, Description: "weekly study"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID models.GroupID `json:"id"`
	}
	decode(t, rec, &resp)
	return resp.ID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
