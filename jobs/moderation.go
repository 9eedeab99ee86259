package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/aqanja/blog-api/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// PendingCounter reports the size of the moderation queue.
type PendingCounter interface {
	CountPending(ctx context.Context) (int, error)
}

// ModerationJobs handles moderation notifications and the scheduled digest.
type ModerationJobs struct {
	Comments PendingCounter
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewModerationJobs wires dependencies for the moderation handlers.
func NewModerationJobs(counter PendingCounter, logger *slog.Logger, metrics *jobmetrics.Metrics) *ModerationJobs {
	return &ModerationJobs{
		Comments: counter,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handlers returns the task registrations for NewWorker.
func (j *ModerationJobs) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskCommentPending, Handler: j.HandleCommentPending},
		{Type: TaskPendingDigest, Handler: j.HandlePendingDigest},
	}
}

// HandleCommentPending logs a comment entering the moderation queue and
// refreshes the backlog gauge.
func (j *ModerationJobs) HandleCommentPending(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("comment pending: handler not configured")
	}
	var payload CommentPendingPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.CommentID <= 0 {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskCommentPending)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger(TaskCommentPending).With(
		slog.String("event_id", payload.EventID.String()),
		slog.Int64("comment_id", payload.CommentID),
		slog.String("post_slug", payload.PostSlug),
		slog.Int64("author_id", payload.AuthorID),
	)

	pending, err := j.countPending(ctx)
	if err != nil {
		resultErr = err
		logger.Error("count pending comments", slog.Any("error", err))
		return resultErr
	}
	logger.Info("comment awaiting moderation",
		slog.Int("queue_size", pending),
		slog.Duration("age", j.now().Sub(payload.CreatedAt)),
	)
	return resultErr
}

// HandlePendingDigest reports the moderation backlog and warns once it
// reaches the configured threshold.
func (j *ModerationJobs) HandlePendingDigest(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("pending digest: handler not configured")
	}
	var payload PendingDigestPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Threshold <= 0 {
		payload.Threshold = 1
	}

	start := j.now()
	tracker := j.metrics().Track(TaskPendingDigest)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger(TaskPendingDigest).With(slog.Int("threshold", payload.Threshold))

	pending, err := j.countPending(ctx)
	if err != nil {
		resultErr = err
		logger.Error("count pending comments", slog.Any("error", err))
		return resultErr
	}
	if pending >= payload.Threshold {
		logger.Warn("moderation backlog", slog.Int("pending", pending))
	} else {
		logger.Info("moderation backlog clear", slog.Int("pending", pending))
	}
	logger.Debug("completed pending digest", slog.Duration("duration", j.now().Sub(start)))
	return resultErr
}

func (j *ModerationJobs) countPending(ctx context.Context) (int, error) {
	if j.Comments == nil {
		return 0, errors.New("moderation jobs: comment service not configured")
	}
	pending, err := j.Comments.CountPending(ctx)
	if err != nil {
		return 0, err
	}
	j.metrics().SetPending(pending)
	return pending, nil
}

func (j *ModerationJobs) logger(task string) *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", task))
	}
	return slog.Default().With(slog.String("job", task))
}

func (j *ModerationJobs) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ModerationJobs) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
