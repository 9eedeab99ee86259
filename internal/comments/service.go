package comments

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/aqanja/blog-api/internal/shared"
)

// Notifier is told about comments that entered the moderation queue.
type Notifier interface {
	CommentPending(ctx context.Context, c Comment) error
}

// Recorder receives moderation events for metrics.
type Recorder interface {
	CommentCreated(state State)
	CommentDeleted(byAdmin bool)
	CommentApproved()
}

// ServiceConfig collects optional collaborators of the Service.
type ServiceConfig struct {
	Policy   Policy
	Cache    *Cache
	Notifier Notifier
	Recorder Recorder
	Logger   *slog.Logger
}

// Service enforces comment visibility, ownership and moderation rules.
type Service struct {
	repo     Repository
	policy   Policy
	cache    *Cache
	notifier Notifier
	recorder Recorder
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService constructs a Service around an injected store.
func NewService(repo Repository, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		policy:   cfg.Policy,
		cache:    cfg.Cache,
		notifier: cfg.Notifier,
		recorder: cfg.Recorder,
		logger:   logger,
		validate: newValidator(),
	}
}

// Policy returns the active moderation policy.
func (s *Service) Policy() Policy {
	return s.policy
}

// ListPublic returns approved comments for a post, newest first.
func (s *Service) ListPublic(ctx context.Context, slug string) ([]PublicComment, error) {
	load := func(ctx context.Context) ([]PublicComment, error) {
		return s.repo.ListApproved(ctx, slug)
	}
	var (
		rows []PublicComment
		err  error
	)
	if s.cache != nil {
		rows, err = s.cache.PublicComments(ctx, slug, load)
	} else {
		rows, err = load(ctx)
	}
	if err != nil {
		return nil, s.storageErr("list public", err, slog.String("post_slug", slug))
	}
	if rows == nil {
		rows = []PublicComment{}
	}
	return rows, nil
}

// ListPending returns the moderation queue across all posts, newest first.
// Callers must have passed the admin guard.
func (s *Service) ListPending(ctx context.Context) ([]PendingComment, error) {
	rows, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, s.storageErr("list pending", err)
	}
	if rows == nil {
		rows = []PendingComment{}
	}
	return rows, nil
}

// CountPending returns the size of the moderation queue.
func (s *Service) CountPending(ctx context.Context) (int, error) {
	total, err := s.repo.CountPending(ctx)
	if err != nil {
		return 0, s.storageErr("count pending", err)
	}
	return total, nil
}

// Create stores a comment authored by principal. Its initial state follows
// the moderation policy.
func (s *Service) Create(ctx context.Context, principal shared.Principal, in CreateInput) (Comment, error) {
	if principal.ID <= 0 {
		return Comment{}, shared.ErrUnauthenticated
	}
	in = normalize(in)
	if err := validateInput(s.validate, in); err != nil {
		return Comment{}, err
	}
	created, err := s.repo.Insert(ctx, Comment{
		PostSlug:   in.PostSlug,
		AuthorID:   principal.ID,
		Content:    in.Content,
		IsApproved: s.policy.AutoApprove,
	})
	if err != nil {
		return Comment{}, s.storageErr("insert", err, slog.Int64("user_id", principal.ID), slog.String("post_slug", in.PostSlug))
	}

	if created.IsApproved {
		s.invalidate(ctx, created.PostSlug)
	} else if s.notifier != nil {
		if err := s.notifier.CommentPending(ctx, created); err != nil {
			s.logger.Warn("notify pending comment", slog.Int64("comment_id", created.ID), slog.Any("error", err))
		}
	}
	if s.recorder != nil {
		s.recorder.CommentCreated(created.State())
	}
	return created, nil
}

// Delete removes a comment when principal wrote it or is an admin.
// A second delete of the same id reports ErrCommentNotFound.
func (s *Service) Delete(ctx context.Context, principal shared.Principal, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return s.storageErr("get", err, slog.Int64("comment_id", id))
	}
	if !principal.CanModify(existing.AuthorID) {
		return ErrNotAuthorized
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return s.storageErr("delete", err, slog.Int64("comment_id", id))
	}
	if !deleted {
		return ErrCommentNotFound
	}

	s.invalidate(ctx, existing.PostSlug)
	if s.recorder != nil {
		s.recorder.CommentDeleted(principal.IsAdmin && principal.ID != existing.AuthorID)
	}
	s.logger.Info("comment deleted", slog.Int64("comment_id", id), slog.Int64("actor_id", principal.ID))
	return nil
}

// Approve moves a comment to the approved state. Approving an approved
// comment succeeds without change.
func (s *Service) Approve(ctx context.Context, principal shared.Principal, id int64) error {
	if !principal.IsAdmin {
		return ErrAdminRequired
	}
	if id <= 0 {
		return ErrInvalidID
	}
	approved, err := s.repo.Approve(ctx, id)
	if err != nil {
		return s.storageErr("approve", err, slog.Int64("comment_id", id))
	}
	s.invalidate(ctx, approved.PostSlug)
	if s.recorder != nil {
		s.recorder.CommentApproved()
	}
	s.logger.Info("comment approved", slog.Int64("comment_id", id), slog.Int64("actor_id", principal.ID))
	return nil
}

func (s *Service) invalidate(ctx context.Context, slug string) {
	if err := s.cache.Invalidate(ctx, slug); err != nil {
		s.logger.Warn("invalidate comment cache", slog.String("post_slug", slug), slog.Any("error", err))
	}
}

// storageErr passes classified errors through and wraps everything else as
// a StorageError after logging it in full.
func (s *Service) storageErr(op string, err error, attrs ...any) error {
	if shared.KindOf(err) != shared.KindInternal {
		return err
	}
	args := append([]any{slog.String("op", op), slog.Any("error", err)}, attrs...)
	s.logger.Error("comment store failure", args...)
	return shared.Storage("comments."+op, err)
}
