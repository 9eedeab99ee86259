package comments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence operations for comments. Every method is a
// single store statement.
type Repository interface {
	ListApproved(ctx context.Context, slug string) ([]PublicComment, error)
	ListPending(ctx context.Context) ([]PendingComment, error)
	CountPending(ctx context.Context) (int, error)
	Insert(ctx context.Context, c Comment) (Comment, error)
	Get(ctx context.Context, id int64) (Comment, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Approve(ctx context.Context, id int64) (Comment, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const (
	pgForeignKeyViolation = "23503"

	commentColumns = `id, post_slug, user_id, content, is_approved, created_at`
)

// ListApproved returns visible comments for a post, newest first.
func (r *PGRepository) ListApproved(ctx context.Context, slug string) ([]PublicComment, error) {
	rows, err := r.pool.Query(ctx, `SELECT c.id, c.content, c.created_at, u.username
FROM comments c
JOIN users u ON u.id = c.user_id
WHERE c.post_slug = $1 AND c.is_approved = true
ORDER BY c.created_at DESC, c.id ASC`, slug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]PublicComment, 0)
	for rows.Next() {
		var c PublicComment
		if err := rows.Scan(&c.ID, &c.Content, &c.CreatedAt, &c.Username); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListPending returns the moderation queue across all posts, newest first.
func (r *PGRepository) ListPending(ctx context.Context) ([]PendingComment, error) {
	rows, err := r.pool.Query(ctx, `SELECT c.id, c.content, c.created_at, c.post_slug, u.username
FROM comments c
JOIN users u ON u.id = c.user_id
WHERE c.is_approved = false
ORDER BY c.created_at DESC, c.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]PendingComment, 0)
	for rows.Next() {
		var c PendingComment
		if err := rows.Scan(&c.ID, &c.Content, &c.CreatedAt, &c.PostSlug, &c.Username); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountPending returns the size of the moderation queue.
func (r *PGRepository) CountPending(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE is_approved = false`).Scan(&total)
	return total, err
}

// Insert stores a new comment; id and created_at are assigned by the database.
func (r *PGRepository) Insert(ctx context.Context, c Comment) (Comment, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO comments (post_slug, user_id, content, is_approved)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`, c.PostSlug, c.AuthorID, c.Content, c.IsApproved).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return Comment{}, ErrUnknownAuthor
		}
		return Comment{}, err
	}
	return c, nil
}

// Get fetches a comment by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (Comment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)
	return scanComment(row)
}

// Delete removes a comment. It reports false when no row matched.
func (r *PGRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Approve marks a comment approved and returns the updated row.
func (r *PGRepository) Approve(ctx context.Context, id int64) (Comment, error) {
	row := r.pool.QueryRow(ctx, `UPDATE comments SET is_approved = true WHERE id = $1
RETURNING `+commentColumns, id)
	return scanComment(row)
}

func scanComment(row pgx.Row) (Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.PostSlug, &c.AuthorID, &c.Content, &c.IsApproved, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Comment{}, ErrCommentNotFound
		}
		return Comment{}, err
	}
	return c, nil
}

var _ Repository = (*PGRepository)(nil)
