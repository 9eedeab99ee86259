package comments

import (
	"time"

	"github.com/aqanja/blog-api/internal/shared"
)

// State is the moderation state of a comment.
type State string

const (
	// StatePending hides a comment from public listings.
	StatePending State = "pending"
	// StateApproved makes a comment publicly visible.
	StateApproved State = "approved"
)

// StateOf maps the persisted moderation flag to a State.
func StateOf(isApproved bool) State {
	if isApproved {
		return StateApproved
	}
	return StatePending
}

// Comment is a persisted comment on a post.
type Comment struct {
	ID         int64     `json:"id"`
	PostSlug   string    `json:"post_slug"`
	AuthorID   int64     `json:"author_id"`
	Content    string    `json:"content"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
}

// State reports the moderation state.
func (c Comment) State() State {
	return StateOf(c.IsApproved)
}

// PublicComment is the shape exposed on a post page.
type PublicComment struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username"`
}

// PendingComment is the shape exposed in the moderation queue.
type PendingComment struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	PostSlug  string    `json:"post_slug"`
	Username  string    `json:"username"`
}

// CreateInput carries a new comment submission.
type CreateInput struct {
	PostSlug string `json:"post_slug" validate:"notblank,max=200"`
	Content  string `json:"content" validate:"notblank,max=5000"`
}

// Policy controls moderation behaviour.
type Policy struct {
	// AutoApprove publishes new comments immediately. With it off every new
	// comment waits in the pending queue for an admin.
	AutoApprove bool
}

// DefaultPolicy publishes comments on creation.
func DefaultPolicy() Policy {
	return Policy{AutoApprove: true}
}

var (
	// ErrCommentNotFound indicates the referenced comment does not exist.
	ErrCommentNotFound = shared.NewError(shared.KindNotFound, "Comment not found")
	// ErrNotAuthorized indicates the caller neither wrote the comment nor is an admin.
	ErrNotAuthorized = shared.NewError(shared.KindForbidden, "Not authorized")
	// ErrAdminRequired indicates a moderation action by a non-admin.
	ErrAdminRequired = shared.NewError(shared.KindForbidden, "Access denied. Admin privileges required.")
	// ErrUnknownAuthor indicates the principal has no matching user row.
	ErrUnknownAuthor = shared.NewValidationError(shared.FieldError{Field: "author", Message: "Author does not exist"})
	// ErrInvalidID indicates a malformed comment identifier.
	ErrInvalidID = shared.NewValidationError(shared.FieldError{Field: "id", Message: "Invalid comment id"})
)
