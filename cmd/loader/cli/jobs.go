package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/quadro/internal/platform/cache"
	"github.com/odyssey-erp/quadro/jobs"
)

// JobsCLI wraps manual management helpers for rebuild jobs.
type JobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	opts, err := cache.AsynqOptions(redisAddr)
	if err != nil {
		return nil, err
	}
	client, err := jobs.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &JobsCLI{client: client, inspector: asynq.NewInspector(opts)}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a store rebuild.
func (c *JobsCLI) Trigger(ctx context.Context, payload jobs.StoreRebuildPayload) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	return c.client.EnqueueStoreRebuild(ctx, payload)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

var enqueueFlags jobs.StoreRebuildPayload

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Queue a background store rebuild",
	Long: `Queues a store:rebuild task for the worker. Empty flags fall back to the
worker's own SOURCE_PATH, STORE_PATH and SERVE_DIR. A rebuild that is already
pending is reported rather than queued twice.`,
	Args: cobra.NoArgs,
	RunE: runEnqueue,
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show rebuild queue statistics",
	Args:  cobra.NoArgs,
	RunE:  runQueue,
}

func init() {
	f := enqueueCmd.Flags()
	f.StringVarP(&enqueueFlags.SourcePath, "file_name", "f", "", "Source file as seen by the worker")
	f.StringVarP(&enqueueFlags.StorePath, "database", "d", "", "Store path as seen by the worker")
	f.StringVar(&enqueueFlags.ServeDir, "serve-dir", "", "Serving directory as seen by the worker")
	rootCmd.AddCommand(enqueueCmd, queueCmd)
}

func openJobsCLI() (*JobsCLI, error) {
	if !state.cfg.RedisEnabled() {
		return nil, errors.New("REDIS_ADDR must be set to use the job queue")
	}
	return NewJobsCLI(state.cfg.RedisAddr)
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	jc, err := openJobsCLI()
	if err != nil {
		return err
	}
	defer jc.Close()

	info, err := jc.Trigger(cmd.Context(), enqueueFlags)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		fmt.Fprintln(cmd.OutOrStdout(), "a rebuild is already queued")
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue rebuild: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "queued %s as %s on %s\n", info.Type, info.ID, info.Queue)
	return nil
}

func runQueue(cmd *cobra.Command, args []string) error {
	jc, err := openJobsCLI()
	if err != nil {
		return err
	}
	defer jc.Close()

	stats, err := jc.InspectQueue(cmd.Context())
	if err != nil {
		return fmt.Errorf("inspect queue: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	return nil
}
