package jobs

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func queueHealth(t *testing.T, inspector QueueInspector) (int, QueueStatus) {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(inspector, discardLogger()).MountRoutes)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	var status QueueStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	return rec.Code, status
}

func TestJobsHealthWithoutQueue(t *testing.T) {
	code, status := queueHealth(t, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, QueueStatus{Queue: QueueDefault}, status)
}

func TestJobsHealthReportsQueueInfo(t *testing.T) {
	code, status := queueHealth(t, stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 2, Active: 1, Archived: 3}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, QueueStatus{Queue: QueueDefault, Pending: 2, Active: 1, Failed: 3, Available: true}, status)
}

func TestJobsHealthInspectorError(t *testing.T) {
	code, status := queueHealth(t, stubInspector{err: errors.New("redis down")})
	require.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, status.Available)
}

func TestNewStoreRebuildTaskPayload(t *testing.T) {
	task, err := NewStoreRebuildTask(StoreRebuildPayload{SourcePath: "in.csv", ServeDir: "/srv"})
	require.NoError(t, err)
	assert.Equal(t, TaskStoreRebuild, task.Type())

	payload, err := decodeRebuildPayload(task)
	require.NoError(t, err)
	assert.Equal(t, StoreRebuildPayload{SourcePath: "in.csv", ServeDir: "/srv"}, payload)

	payload, err = decodeRebuildPayload(asynq.NewTask(TaskStoreRebuild, nil))
	require.NoError(t, err)
	assert.Equal(t, StoreRebuildPayload{}, payload)
}
