package debugserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prasetyo/artifex/pkg/action"
	"github.com/prasetyo/artifex/pkg/coordinator"
	"github.com/prasetyo/artifex/pkg/pipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *coordinator.Coordinator) {
	t.Helper()
	coord := coordinator.New(coordinator.Options{})
	srv, err := NewServer(ServerOptions{StreamInterval: 20 * time.Millisecond}, coord, zerolog.Nop())
	require.NoError(t, err)
	return srv, coord
}

func runOneOperation(t *testing.T, coord *coordinator.Coordinator) {
	t.Helper()
	desc, err := action.NewDescriptor("artifact-dbg", "op1", action.KindFile, "/dbg.txt")
	require.NoError(t, err)
	require.NoError(t, coord.Execute(context.Background(), desc, func(ctx context.Context) error {
		return nil
	}))
}

func TestNewServerRequiresCoordinator(t *testing.T) {
	_, err := NewServer(ServerOptions{}, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewServerDefaults(t *testing.T) {
	srv, _ := newTestServer(t)
	assert.Equal(t, "127.0.0.1", srv.options.Host)
	assert.Equal(t, 7630, srv.options.Port)
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleStats(t *testing.T) {
	srv, coord := newTestServer(t)
	runOneOperation(t, coord)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var stats coordinator.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, uint64(1), stats.TotalOperations)
}

func TestHandleDebug(t *testing.T) {
	srv, coord := newTestServer(t)
	runOneOperation(t, coord)

	req := httptest.NewRequest(http.MethodGet, "/debug", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var info coordinator.DebugInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Empty(t, info.ActiveOperationIDs)
	assert.Equal(t, uint64(1), info.Stats.TotalOperations)
}

func TestHandleResetRequiresPost(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/stats/reset", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleReset(t *testing.T) {
	srv, coord := newTestServer(t)
	runOneOperation(t, coord)

	req := httptest.NewRequest(http.MethodPost, "/stats/reset", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(0), coord.GetStats().TotalOperations)
}

func TestHandleMetrics(t *testing.T) {
	srv, coord := newTestServer(t)
	runOneOperation(t, coord)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "coordinator_admissions_total")
}

func TestRejectsRequestsWhileShuttingDown(t *testing.T) {
	srv, _ := newTestServer(t)

	handler := srv.Handler()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleActionsWithoutDispatcher(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/actions", strings.NewReader("[]"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleActions(t *testing.T) {
	srv, coord := newTestServer(t)

	p, err := pipeline.New(coord, pipeline.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	p.Register(action.KindFile, func(ctx context.Context, desc action.Descriptor) error {
		return nil
	})
	srv.AttachDispatcher(p)

	body := `[{"artifact_id":"a1","action_id":"write","kind":"file","path":"/src/main.go"}]`
	req := httptest.NewRequest(http.MethodPost, "/actions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var results []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "a1:write", results[0]["operation_id"])
	assert.Equal(t, "ok", results[0]["status"])
}

func TestStatsStream(t *testing.T) {
	srv, coord := newTestServer(t)
	runOneOperation(t, coord)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/stats"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var frame struct {
		Event string            `json:"event"`
		Stats coordinator.Stats `json:"stats"`
	}
	require.NoError(t, conn.ReadJSON(&frame))

	assert.Equal(t, "stats", frame.Event)
	assert.Equal(t, uint64(1), frame.Stats.TotalOperations)

	// A second frame arrives on the ticker.
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "stats", frame.Event)
}
