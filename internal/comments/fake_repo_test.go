package comments

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepo struct {
	mu       sync.Mutex
	users    map[int64]string
	comments map[int64]Comment
	nextID   int64
	clock    func() time.Time

	// Error injection
	listErr   error
	insertErr error
	getErr    error

	// afterGet runs once Get has released the lock.
	afterGet func(Comment)

	listCalls int
}

func newMemoryRepo() *memoryRepo {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	return &memoryRepo{
		users: map[int64]string{
			1: "alice",
			2: "bob",
			9: "admin",
		},
		comments: make(map[int64]Comment),
		nextID:   1,
		clock: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Minute)
		},
	}
}

func (m *memoryRepo) ListApproved(ctx context.Context, slug string) ([]PublicComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []PublicComment
	for _, c := range m.sorted() {
		if c.PostSlug == slug && c.IsApproved {
			out = append(out, PublicComment{ID: c.ID, Content: c.Content, CreatedAt: c.CreatedAt, Username: m.users[c.AuthorID]})
		}
	}
	return out, nil
}

func (m *memoryRepo) ListPending(ctx context.Context) ([]PendingComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []PendingComment
	for _, c := range m.sorted() {
		if !c.IsApproved {
			out = append(out, PendingComment{ID: c.ID, Content: c.Content, CreatedAt: c.CreatedAt, PostSlug: c.PostSlug, Username: m.users[c.AuthorID]})
		}
	}
	return out, nil
}

func (m *memoryRepo) CountPending(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, c := range m.comments {
		if !c.IsApproved {
			total++
		}
	}
	return total, nil
}

func (m *memoryRepo) Insert(ctx context.Context, c Comment) (Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return Comment{}, m.insertErr
	}
	if _, ok := m.users[c.AuthorID]; !ok {
		return Comment{}, ErrUnknownAuthor
	}
	c.ID = m.nextID
	c.CreatedAt = m.clock()
	m.nextID++
	m.comments[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Comment, error) {
	m.mu.Lock()
	if m.getErr != nil {
		m.mu.Unlock()
		return Comment{}, m.getErr
	}
	c, ok := m.comments[id]
	hook := m.afterGet
	m.mu.Unlock()
	if !ok {
		return Comment{}, ErrCommentNotFound
	}
	if hook != nil {
		hook(c)
	}
	return c, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return false, nil
	}
	delete(m.comments, id)
	return true, nil
}

func (m *memoryRepo) Approve(ctx context.Context, id int64) (Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return Comment{}, ErrCommentNotFound
	}
	c.IsApproved = true
	m.comments[id] = c
	return c, nil
}

func (m *memoryRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.comments)
}

// sorted orders by created_at desc, id asc. Callers hold the lock.
func (m *memoryRepo) sorted() []Comment {
	out := make([]Comment, 0, len(m.comments))
	for _, c := range m.comments {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type recordingNotifier struct {
	mu      sync.Mutex
	pending []Comment
	err     error
}

func (n *recordingNotifier) CommentPending(ctx context.Context, c Comment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = append(n.pending, c)
	return n.err
}

type countingRecorder struct {
	created  map[State]int
	deleted  int
	byAdmin  int
	approved int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{created: make(map[State]int)}
}

func (r *countingRecorder) CommentCreated(state State) { r.created[state]++ }

func (r *countingRecorder) CommentDeleted(byAdmin bool) {
	r.deleted++
	if byAdmin {
		r.byAdmin++
	}
}

func (r *countingRecorder) CommentApproved() { r.approved++ }

var _ Repository = (*memoryRepo)(nil)
