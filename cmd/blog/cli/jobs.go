package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hibiken/asynq"

	"github.com/aqanja/blog-api/jobs"
)

// Enqueuer is the subset of asynq.Client used by JobsCLI.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Inspector is the subset of asynq.Inspector used by JobsCLI.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	Close() error
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    Enqueuer
	inspector Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis options.
func NewJobsCLI(redisOpts asynq.RedisClientOpt) *JobsCLI {
	return &JobsCLI{client: asynq.NewClient(redisOpts), inspector: asynq.NewInspector(redisOpts)}
}

// NewJobsCLIWith builds the helpers around existing clients.
func NewJobsCLIWith(client Enqueuer, inspector Inspector) *JobsCLI {
	return &JobsCLI{client: client, inspector: inspector}
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

// Trigger enqueues a supported job by name with default payload.
func (c *JobsCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	var task *asynq.Task
	var err error
	switch name {
	case jobs.TaskPendingDigest:
		task, err = jobs.NewPendingDigestTask(jobs.PendingDigestPayload{})
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
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
	}
	return stats, nil
}

// JobsOptions defines the arguments of the jobs command.
type JobsOptions struct {
	Action string
	Job    string
	Stdout io.Writer
	Stderr io.Writer
}

// JobsCommand runs "trigger" or "stats" and returns the process exit code.
func (c *JobsCLI) JobsCommand(ctx context.Context, opts JobsOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	switch opts.Action {
	case "trigger":
		info, err := c.Trigger(ctx, opts.Job)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs trigger: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(opts.Stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return 0
	case "stats":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: %v\n", err)
			return 1
		}
		if err := json.NewEncoder(opts.Stdout).Encode(stats); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: encode json: %v\n", err)
			return 1
		}
		return 0
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "jobs: unknown action %q (expected trigger or stats)\n", opts.Action)
		return 2
	}
}
