package comments

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqanja/blog-api/internal/shared"
)

var (
	alice = shared.Principal{ID: 1, Username: "alice"}
	bob   = shared.Principal{ID: 2, Username: "bob"}
	admin = shared.Principal{ID: 9, Username: "admin", IsAdmin: true}
)

func newTestService(t *testing.T, policy Policy) (*Service, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	return NewService(repo, ServiceConfig{Policy: policy}), repo
}

func TestCreateAutoApproved(t *testing.T) {
	svc, _ := newTestService(t, DefaultPolicy())
	ctx := context.Background()

	created, err := svc.Create(ctx, alice, CreateInput{PostSlug: "hello-world", Content: "nice post"})
	require.NoError(t, err)

	assert.NotZero(t, created.ID)
	assert.Equal(t, "nice post", created.Content)
	assert.Equal(t, int64(1), created.AuthorID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, StateApproved, created.State())

	public, err := svc.ListPublic(ctx, "hello-world")
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "alice", public[0].Username)
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		input  CreateInput
		fields []string
	}{
		{name: "empty content", input: CreateInput{PostSlug: "p", Content: ""}, fields: []string{"content"}},
		{name: "blank content", input: CreateInput{PostSlug: "p", Content: "   "}, fields: []string{"content"}},
		{name: "empty slug", input: CreateInput{PostSlug: "", Content: "hi"}, fields: []string{"post_slug"}},
		{name: "both empty", input: CreateInput{}, fields: []string{"post_slug", "content"}},
		{name: "content too long", input: CreateInput{PostSlug: "p", Content: strings.Repeat("a", 5001)}, fields: []string{"content"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo := newTestService(t, DefaultPolicy())

			_, err := svc.Create(context.Background(), alice, tc.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, shared.ErrValidation)
			assert.Equal(t, shared.KindValidation, shared.KindOf(err))

			var validationErr *shared.ValidationError
			require.True(t, errors.As(err, &validationErr))
			var fields []string
			for _, f := range validationErr.Fields {
				fields = append(fields, f.Field)
			}
			assert.ElementsMatch(t, tc.fields, fields)
			assert.Zero(t, repo.count(), "invalid input must not persist")
		})
	}
}

func TestCreateValidationMessages(t *testing.T) {
	svc, _ := newTestService(t, DefaultPolicy())

	_, err := svc.Create(context.Background(), alice, CreateInput{})
	var validationErr *shared.ValidationError
	require.True(t, errors.As(err, &validationErr))

	messages := map[string]string{}
	for _, f := range validationErr.Fields {
		messages[f.Field] = f.Message
	}
	assert.Equal(t, "Post slug is required", messages["post_slug"])
	assert.Equal(t, "Content is required", messages["content"])
}

func TestCreateNormalizesContent(t *testing.T) {
	svc, _ := newTestService(t, DefaultPolicy())

	// "e" followed by a combining acute accent composes to U+00E9.
	created, err := svc.Create(context.Background(), alice, CreateInput{PostSlug: "  cafe  ", Content: "cafe\u0301"})
	require.NoError(t, err)
	assert.Equal(t, "cafe", created.PostSlug)
	assert.Equal(t, "caf\u00e9", created.Content)
}

func TestCreateRequiresPrincipal(t *testing.T) {
	svc, _ := newTestService(t, DefaultPolicy())

	_, err := svc.Create(context.Background(), shared.Principal{}, CreateInput{PostSlug: "p", Content: "c"})
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestCreateUnknownAuthorIsValidation(t *testing.T) {
	svc, _ := newTestService(t, DefaultPolicy())

	_, err := svc.Create(context.Background(), shared.Principal{ID: 404}, CreateInput{PostSlug: "p", Content: "c"})
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestCreateStorageFailure(t *testing.T) {
	svc, repo := newTestService(t, DefaultPolicy())
	repo.insertErr = errors.New("connection refused")

	_, err := svc.Create(context.Background(), alice, CreateInput{PostSlug: "p", Content: "c"})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrStorage)
	assert.Equal(t, "Server error", shared.UserSafeMessage(err))
}

func TestPendingCommentsHiddenFromPublic(t *testing.T) {
	notifier := &recordingNotifier{}
	recorder := newCountingRecorder()
	repo := newMemoryRepo()
	svc := NewService(repo, ServiceConfig{Policy: Policy{AutoApprove: false}, Notifier: notifier, Recorder: recorder})
	ctx := context.Background()

	created, err := svc.Create(ctx, alice, CreateInput{PostSlug: "hello-world", Content: "awaiting"})
	require.NoError(t, err)
	assert.Equal(t, StatePending, created.State())
	require.Len(t, notifier.pending, 1)
	assert.Equal(t, created.ID, notifier.pending[0].ID)
	assert.Equal(t, 1, recorder.created[StatePending])

	public, err := svc.ListPublic(ctx, "hello-world")
	require.NoError(t, err)
	assert.Empty(t, public)
	assert.NotNil(t, public)

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "hello-world", pending[0].PostSlug)
	assert.Equal(t, "alice", pending[0].Username)

	total, err := svc.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestNotifierFailureDoesNotFailCreate(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("queue down")}
	svc := NewService(newMemoryRepo(), ServiceConfig{Policy: Policy{AutoApprove: false}, Notifier: notifier})

	_, err := svc.Create(context.Background(), alice, CreateInput{PostSlug: "p", Content: "c"})
	assert.NoError(t, err)
}

func TestDeleteOwnership(t *testing.T) {
	svc, repo := newTestService(t, DefaultPolicy())
	ctx := context.Background()

	created, err := svc.Create(ctx, alice, CreateInput{PostSlug: "hello-world", Content: "nice post"})
	require.NoError(t, err)

	err = svc.Delete(ctx, bob, created.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Equal(t, shared.KindForbidden, shared.KindOf(err))
	assert.Equal(t, 1, repo.count(), "row must remain after forbidden delete")

	require.NoError(t, svc.Delete(ctx, alice, created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, alice, created.ID), shared.ErrNotFound)

	public, err := svc.ListPublic(ctx, "hello-world")
	require.NoError(t, err)
	assert.Empty(t, public)
}

func TestDeleteByAdmin(t *testing.T) {
	recorder := newCountingRecorder()
	svc := NewService(newMemoryRepo(), ServiceConfig{Policy: DefaultPolicy(), Recorder: recorder})
	ctx := context.Background()

	created, err := svc.Create(ctx, alice, CreateInput{PostSlug: "p", Content: "c"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, admin, created.ID))
	assert.Equal(t, 1, recorder.byAdmin)
	assert.ErrorIs(t, svc.Delete(ctx, admin, created.ID), ErrCommentNotFound)
}

func TestDeleteMissing(t *testing.T) {
	svc, _ := newTestService(t, DefaultPolicy())

	err := svc.Delete(context.Background(), admin, 42)
	assert.ErrorIs(t, err, ErrCommentNotFound)
	assert.Equal(t, "Comment not found", shared.UserSafeMessage(err))
}

func TestDeleteStorageFailure(t *testing.T) {
	svc, repo := newTestService(t, DefaultPolicy())
	repo.getErr = errors.New("timeout")

	err := svc.Delete(context.Background(), admin, 1)
	assert.Equal(t, shared.KindStorage, shared.KindOf(err))
}

func TestApprove(t *testing.T) {
	svc, repo := newTestService(t, Policy{AutoApprove: false})
	ctx := context.Background()

	created, err := svc.Create(ctx, alice, CreateInput{PostSlug: "hello-world", Content: "please"})
	require.NoError(t, err)

	t.Run("non-admin forbidden", func(t *testing.T) {
		err := svc.Approve(ctx, alice, created.ID)
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("missing id", func(t *testing.T) {
		assert.ErrorIs(t, svc.Approve(ctx, admin, 999), ErrCommentNotFound)
	})

	t.Run("approve publishes", func(t *testing.T) {
		require.NoError(t, svc.Approve(ctx, admin, created.ID))
		public, err := svc.ListPublic(ctx, "hello-world")
		require.NoError(t, err)
		require.Len(t, public, 1)
		assert.Equal(t, created.ID, public[0].ID)
	})

	t.Run("approve is idempotent", func(t *testing.T) {
		require.NoError(t, svc.Approve(ctx, admin, created.ID))
		stored, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsApproved)
		assert.Equal(t, created.Content, stored.Content)
	})
}

func TestListOrderingNewestFirst(t *testing.T) {
	svc, _ := newTestService(t, DefaultPolicy())
	ctx := context.Background()

	for _, content := range []string{"first", "second", "third"} {
		_, err := svc.Create(ctx, alice, CreateInput{PostSlug: "p", Content: content})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, bob, CreateInput{PostSlug: "other", Content: "elsewhere"})
	require.NoError(t, err)

	public, err := svc.ListPublic(ctx, "p")
	require.NoError(t, err)
	require.Len(t, public, 3)
	assert.Equal(t, "third", public[0].Content)
	assert.Equal(t, "second", public[1].Content)
	assert.Equal(t, "first", public[2].Content)
}

func TestListPublicStorageFailure(t *testing.T) {
	svc, repo := newTestService(t, DefaultPolicy())
	repo.listErr = errors.New("pool closed")

	_, err := svc.ListPublic(context.Background(), "p")
	assert.ErrorIs(t, err, shared.ErrStorage)
}
