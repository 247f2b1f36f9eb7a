package jobs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStoreRebuild rebuilds the store from the source file and moves it into place.
	TaskStoreRebuild = "store:rebuild"

	// rebuildUniqueTTL keeps a second rebuild from being queued while one is pending.
	rebuildUniqueTTL = 6 * time.Hour
)

// StoreRebuildPayload describes one rebuild. Empty fields fall back to the worker's
// configured defaults.
type StoreRebuildPayload struct {
	SourcePath string `json:"source_path,omitempty"`
	StorePath  string `json:"store_path,omitempty"`
	ServeDir   string `json:"serve_dir,omitempty"`
}

// NewStoreRebuildTask constructs an Asynq task.
func NewStoreRebuildTask(payload StoreRebuildPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStoreRebuild, data), nil
}

// RebuildOptions are the enqueue options every rebuild uses.
func RebuildOptions() []asynq.Option {
	return []asynq.Option{
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Unique(rebuildUniqueTTL),
		asynq.Timeout(2 * time.Hour),
	}
}

func decodeRebuildPayload(t *asynq.Task) (StoreRebuildPayload, error) {
	var payload StoreRebuildPayload
	if len(t.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, errors.Join(err, asynq.SkipRetry)
	}
	return payload, nil
}
