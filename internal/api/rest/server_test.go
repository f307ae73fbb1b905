package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/KevinKickass/railboard/internal/api/websocket"
	"github.com/KevinKickass/railboard/internal/board"
	"github.com/KevinKickass/railboard/internal/config"
	"github.com/KevinKickass/railboard/internal/identity"
	"github.com/KevinKickass/railboard/internal/interfaces"
	"github.com/KevinKickass/railboard/internal/metrics"
	"github.com/KevinKickass/railboard/internal/session"
	"github.com/KevinKickass/railboard/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type nullWriter struct {
	mu   sync.Mutex
	rows int
}

func (w *nullWriter) EnqueueRow(board.Row) {
	w.mu.Lock()
	w.rows++
	w.mu.Unlock()
}

func (w *nullWriter) EnqueueOrder([]string)      {}
func (w *nullWriter) Unsynced() map[string]error { return map[string]error{} }

type fakeLifecycle struct {
	cfg  *config.Config
	sess *session.Session
}

func (f *fakeLifecycle) Config() *config.Config        { return f.cfg }
func (f *fakeLifecycle) Session() *session.Session     { return f.sess }
func (f *fakeLifecycle) Shutdown(context.Context) error { return nil }
func (f *fakeLifecycle) GetCurrentStatus() interfaces.SystemStatus {
	return interfaces.SystemStatus{State: "running", Zone: f.sess.Zone(), Circuits: len(f.sess.Snapshot().Rows)}
}

func newTestServer(t *testing.T) (*Server, *nullWriter) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := board.NewStore([]board.Row{
		{Circuit: board.Circuit{ID: "c1", Name: "Line 1", Status: board.StatusOK}},
		{Circuit: board.Circuit{ID: "c2", Name: "Line 2", Status: board.StatusOK}},
		{
			Circuit: board.Circuit{ID: "c13", Name: "Block 13", Status: board.StatusFaulty},
			SubRows: []board.Circuit{{ID: "c13-a", Name: "Up line", Status: board.StatusOK}},
		},
	})
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	reg := prometheus.NewRegistry()
	hub := websocket.NewHub(zap.NewNop())
	go hub.Run()
	t.Cleanup(hub.Stop)

	w := &nullWriter{}
	sess := session.New(store, w, logger,
		session.WithZone("Zone A"),
		session.WithBroadcaster(hub),
		session.WithMetrics(metrics.NewBoard(reg, "Zone A")))

	cfg := &config.Config{Server: config.ServerConfig{HTTPPort: 8080, AllowedOrigins: []string{"*"}}}
	lm := &fakeLifecycle{cfg: cfg, sess: sess}
	return NewServer(cfg, lm, logger, hub, identity.NewResolver("", "X-Editor"), reg), w
}

func do(t *testing.T, s *Server, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp types.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code
}

func enableEditMode(t *testing.T, s *Server) {
	t.Helper()
	rec := do(t, s, http.MethodPut, "/api/v1/board/edit-mode", map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetBoard(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/board", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view session.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Len(t, view.Rows, 3)
	assert.Equal(t, "Zone A", view.Zone)
	assert.Equal(t, 1, view.Counters.Faulty)
	assert.True(t, view.Rows[2].Highlight)
	assert.Equal(t, board.DurationPlaceholder, view.Rows[0].Duration)
	require.Len(t, view.Rows[2].SubRows, 1)
}

func TestUpdateFieldRequiresEditMode(t *testing.T) {
	s, w := newTestServer(t)

	rec := do(t, s, http.MethodPatch, "/api/v1/circuits/c1/fields/remarks", map[string]string{"value": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, types.CodeForbidden, errorCode(t, rec))
	assert.Zero(t, w.rows)
}

func TestUpdateField(t *testing.T) {
	s, w := newTestServer(t)
	enableEditMode(t, s)

	rec := do(t, s, http.MethodPatch, "/api/v1/circuits/c1/fields/failureDateTime",
		map[string]string{"value": "2024-03-01T06:45"}, "X-Editor", "alice")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Circuit board.Circuit    `json:"circuit"`
		Entry   board.AuditEntry `json:"audit_entry"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2024-03-01T06:45", resp.Circuit.FailureDateTime)
	assert.Equal(t, "alice", resp.Entry.Editor)
	assert.Equal(t, "", resp.Entry.PreviousValue)
	assert.Equal(t, 1, w.rows)

	rec = do(t, s, http.MethodGet, "/api/v1/circuits/c1/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestUpdateFieldErrors(t *testing.T) {
	s, w := newTestServer(t)
	enableEditMode(t, s)

	tests := []struct {
		name string
		path string
		body any
		code int
		err  string
	}{
		{"bad timestamp", "/api/v1/circuits/c1/fields/failureDateTime", map[string]string{"value": "soon"}, http.StatusBadRequest, types.CodeBadRequest},
		{"unknown field", "/api/v1/circuits/c1/fields/name", map[string]string{"value": "x"}, http.StatusBadRequest, types.CodeBadRequest},
		{"unknown circuit", "/api/v1/circuits/nope/fields/remarks", map[string]string{"value": "x"}, http.StatusNotFound, types.CodeNotFound},
		{"missing value", "/api/v1/circuits/c1/fields/remarks", map[string]string{}, http.StatusBadRequest, types.CodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPatch, tt.path, tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.err, errorCode(t, rec))
		})
	}
	assert.Zero(t, w.rows)
}

func TestUpdateStatus(t *testing.T) {
	s, _ := newTestServer(t)
	enableEditMode(t, s)

	rec := do(t, s, http.MethodPut, "/api/v1/circuits/c13-a/status", map[string]string{"status": "broken"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPut, "/api/v1/circuits/c13-a/status", map[string]string{"status": "NIL"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/circuits/c13-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail session.CircuitDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, board.StatusNil, detail.Status)
	assert.Equal(t, "c13", detail.OwnerID)
	assert.Len(t, detail.Cells, 4)
}

func TestReorder(t *testing.T) {
	s, _ := newTestServer(t)
	enableEditMode(t, s)

	rec := do(t, s, http.MethodPost, "/api/v1/board/reorder", map[string]int{"source": 7, "destination": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/board/reorder", map[string]int{"source": 0, "destination": 99})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Changed bool     `json:"changed"`
		Order   []string `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Changed)
	assert.Equal(t, []string{"c2", "c13", "c1"}, resp.Order)
}

func TestResync(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/v1/board/resync", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"queued":0`)
}

func TestBearerTokenRejectedWhenDisabled(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/v1/board", nil, "Authorization", "Bearer abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "railboard_circuits")
}

func TestSystemStatus(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/v1/system/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"zone":"Zone A"`)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodOptions, "/api/v1/board", nil,
		"Origin", "http://example.test",
		"Access-Control-Request-Method", http.MethodPatch)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAllowList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware([]string{"http://board.test"}))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	tests := []struct {
		name   string
		origin string
		code   int
		allow  string
	}{
		{"listed origin", "http://board.test", http.StatusOK, "http://board.test"},
		{"unlisted origin", "http://elsewhere.test", http.StatusForbidden, ""},
		{"same origin request", "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.allow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
