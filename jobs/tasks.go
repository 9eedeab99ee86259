package jobs

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCommentPending announces a comment that entered the moderation queue.
	TaskCommentPending = "comments:pending_notify"
	// TaskPendingDigest summarises the moderation backlog on a schedule.
	TaskPendingDigest = "comments:pending_digest"
)

// CommentPendingPayload identifies a comment awaiting moderation.
type CommentPendingPayload struct {
	EventID   uuid.UUID `json:"event_id"`
	CommentID int64     `json:"comment_id"`
	PostSlug  string    `json:"post_slug"`
	AuthorID  int64     `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingDigestPayload configures the digest run.
type PendingDigestPayload struct {
	// Threshold is the backlog size at which the digest logs a warning.
	Threshold int `json:"threshold"`
}

// NewCommentPendingTask constructs an Asynq task. The task ID is derived from
// the comment so repeated enqueues collapse into one.
func NewCommentPendingTask(payload CommentPendingPayload) (*asynq.Task, error) {
	if payload.EventID == uuid.Nil {
		payload.EventID = uuid.New()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommentPending, data,
		asynq.TaskID(commentTaskID(payload.CommentID)),
		asynq.MaxRetry(5),
		asynq.Queue(QueueDefault),
	), nil
}

// NewPendingDigestTask constructs the scheduled digest task.
func NewPendingDigestTask(payload PendingDigestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPendingDigest, data, asynq.Queue(QueueDefault)), nil
}

func commentTaskID(id int64) string {
	return TaskCommentPending + ":" + strconv.FormatInt(id, 10)
}
