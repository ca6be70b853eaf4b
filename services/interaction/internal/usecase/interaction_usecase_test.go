package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/content"
	"blockconnect/pkg/contract"
	"blockconnect/pkg/localstore"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/models"
	"blockconnect/pkg/queue"
	"blockconnect/services/interaction/internal/entity"
	"blockconnect/services/interaction/internal/repo/persistent"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "0x1111111111111111111111111111111111111111"
	bob   = "0x2222222222222222222222222222222222222222"
)

type recordingSender struct {
	mu    sync.Mutex
	tasks []queue.NotificationTask
}

func (s *recordingSender) Send(_ context.Context, task queue.NotificationTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return nil
}

type fakeCommentRepo struct {
	comments []*entity.Comment
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *entity.Comment) error {
	comment.ID = uuid.New().String()
	r.comments = append(r.comments, comment)
	return nil
}

func (r *fakeCommentRepo) ListByPost(_ context.Context, postID string, limit, offset int) ([]*entity.Comment, int64, error) {
	var out []*entity.Comment
	for _, c := range r.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

type fixture struct {
	uc       InteractionUseCase
	sender   *recordingSender
	comments *fakeCommentRepo
	blobs    *content.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	registry := contract.NewMemoryRegistry()
	require.NoError(t, registry.Register(ctx, alice, "alice"))
	require.NoError(t, registry.Register(ctx, bob, "bob"))
	require.NoError(t, registry.CreatePost(ctx, alice, "p-1", "sha256-body"))

	f := &fixture{
		sender:   &recordingSender{},
		comments: &fakeCommentRepo{},
		blobs:    content.NewMemoryStore(),
	}
	f.uc = NewInteractionUseCase(
		persistent.NewPostRepository(registry, f.blobs),
		f.comments,
		localstore.NewSet(rdb, localstore.LikedKey),
		f.sender,
		logger.New(),
	)
	return f
}

func TestLike_TogglesAndNotifiesAuthor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	state, err := f.uc.Like(ctx, bob, "bob", "p-1")
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Equal(t, 1, state.Likes)

	liked, _ := f.uc.IsLiked(ctx, "bob", "p-1")
	assert.True(t, liked)
	posts, _ := f.uc.LikedPosts(ctx, "bob")
	assert.Equal(t, []string{"p-1"}, posts)

	require.Len(t, f.sender.tasks, 1)
	assert.Equal(t, models.NotificationLike, f.sender.tasks[0].Type)
	assert.Equal(t, []string{"alice"}, f.sender.tasks[0].Recipients)
	assert.Equal(t, "p-1", f.sender.tasks[0].Data["post_id"])

	state, err = f.uc.Like(ctx, bob, "bob", "p-1")
	require.NoError(t, err)
	assert.False(t, state.Liked)
	assert.Equal(t, 0, state.Likes)

	liked, _ = f.uc.IsLiked(ctx, "bob", "p-1")
	assert.False(t, liked)
	assert.Len(t, f.sender.tasks, 1, "unlike does not notify")
}

func TestLike_SelfLikeDoesNotNotify(t *testing.T) {
	f := newFixture(t)

	state, err := f.uc.Like(context.Background(), alice, "alice", "p-1")
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Empty(t, f.sender.tasks)
}

func TestLike_MissingPost(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.Like(context.Background(), bob, "bob", "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLikes_ResolvesUsernames(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.uc.Like(ctx, alice, "alice", "p-1")
	f.uc.Like(ctx, bob, "bob", "p-1")

	names, err := f.uc.Likes(ctx, "p-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, names)
}

func TestAddComment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	comment, err := f.uc.AddComment(ctx, "bob", "p-1", "  nice  ")
	require.NoError(t, err)
	assert.Equal(t, "nice", comment.Content)
	assert.NotEmpty(t, comment.ID)

	var body entity.CommentBody
	require.NoError(t, content.GetJSON(ctx, f.blobs, comment.CID, &body))
	assert.Equal(t, "nice", body.Content)
	assert.Equal(t, "bob", body.Author)

	require.Len(t, f.sender.tasks, 1)
	assert.Equal(t, models.NotificationComment, f.sender.tasks[0].Type)
	assert.Equal(t, comment.ID, f.sender.tasks[0].Data["comment_id"])

	_, err = f.uc.AddComment(ctx, "alice", "p-1", "thanks")
	require.NoError(t, err)
	assert.Len(t, f.sender.tasks, 1, "author commenting on own post is not notified")

	comments, total, err := f.uc.Comments(ctx, "p-1", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, comments, 1)
	assert.Equal(t, "thanks", comments[0].Content)
}

func TestAddComment_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.uc.AddComment(ctx, "bob", "p-1", " ")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.uc.AddComment(ctx, "bob", "p-1", strings.Repeat("x", MaxCommentLength+1))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.uc.AddComment(ctx, "bob", "nope", "hi")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
