package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wetbench/labsim/internal/logging"
	"github.com/wetbench/labsim/internal/observability"
	"github.com/wetbench/labsim/pkg/adapters/memory"
	"github.com/wetbench/labsim/pkg/domain"
)

func okSimulator() Simulator {
	return SimulatorFunc(func(ctx context.Context, contents []byte, fileName string) (domain.RunLog, *domain.BundleContents, error) {
		return domain.RunLog{
			{Level: 0, Payload: map[string]any{"text": "Picking up tip {location}", "location": "A1 of rack on 1"}},
		}, nil, nil
	})
}

func newTestHandler(sim Simulator) (http.Handler, *memory.Store) {
	store := memory.NewStore()
	return NewHandler(sim, store, observability.NewMetrics(), logging.NewNop()), store
}

func postRun(t *testing.T, handler http.Handler, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/runs", bytes.NewReader(raw))
	handler.ServeHTTP(rr, req)
	return rr
}

func TestGetHealth(t *testing.T) {
	handler, _ := newTestHandler(okSimulator())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestCreateRun(t *testing.T) {
	handler, store := newTestHandler(okSimulator())

	rr := postRun(t, handler, map[string]string{
		"fileName": "proto.py",
		"content":  `metadata = {"apiLevel": "2"}`,
	})

	require.Equal(t, http.StatusCreated, rr.Code)

	var resp createRunResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "proto.py", resp.FileName)
	assert.Equal(t, "Picking up tip A1 of rack on 1", resp.Text)
	assert.Empty(t, resp.Error)

	// Record is persisted
	rec, err := store.Load(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Len(t, rec.RunLog, 1)
}

func TestCreateRunRejectsMissingFields(t *testing.T) {
	handler, _ := newTestHandler(okSimulator())

	rr := postRun(t, handler, map[string]string{"content": "x"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateRunMapsParseErrors(t *testing.T) {
	sim := SimulatorFunc(func(ctx context.Context, contents []byte, fileName string) (domain.RunLog, *domain.BundleContents, error) {
		return nil, nil, &domain.ParseError{FileName: fileName, Reason: "protocol is empty"}
	})
	handler, _ := newTestHandler(sim)

	rr := postRun(t, handler, map[string]string{"fileName": "empty.py", "content": " "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateRunMapsConfigurationErrors(t *testing.T) {
	sim := SimulatorFunc(func(ctx context.Context, contents []byte, fileName string) (domain.RunLog, *domain.BundleContents, error) {
		return nil, nil, &domain.ConfigurationError{Reason: "protocol requires backcompat"}
	})
	handler, _ := newTestHandler(sim)

	rr := postRun(t, handler, map[string]string{"fileName": "old.py", "content": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestCreateRunKeepsPartialLogOnExecutionError(t *testing.T) {
	sim := SimulatorFunc(func(ctx context.Context, contents []byte, fileName string) (domain.RunLog, *domain.BundleContents, error) {
		partial := domain.RunLog{
			{Level: 0, Payload: map[string]any{"text": "Homing"}},
		}
		return partial, nil, &domain.ExecutionError{Command: domain.CommandAspirate, Err: context.DeadlineExceeded}
	})
	handler, store := newTestHandler(sim)

	rr := postRun(t, handler, map[string]string{"fileName": "proto.py", "content": "x"})
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp createRunResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)

	rec, err := store.Load(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Len(t, rec.RunLog, 1)
}

func TestRunLifecycle(t *testing.T) {
	handler, _ := newTestHandler(okSimulator())

	rr := postRun(t, handler, map[string]string{"fileName": "proto.py", "content": "x"})
	require.Equal(t, http.StatusCreated, rr.Code)
	var created createRunResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	// List
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/runs", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var listed map[string][]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	assert.Contains(t, listed["runs"], created.ID)

	// Get
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/runs/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	// Rendered text
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/runs/"+created.ID+"/text", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Picking up tip A1 of rack on 1\n", rr.Body.String())

	// Delete
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("DELETE", "/runs/"+created.ID, nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/runs/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetUnknownRun(t *testing.T) {
	handler, _ := newTestHandler(okSimulator())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/runs/absent", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	handler, _ := newTestHandler(okSimulator())
	postRun(t, handler, map[string]string{"fileName": "proto.py", "content": "x"})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `labsim_runs_total{status="ok"}`)
}
