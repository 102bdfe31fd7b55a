package service

import (
	"context"
	"math"
	"strings"
	"testing"

	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/policy"
	"Lee_Social/internal/repository/mysql"
	"Lee_Social/internal/repository/redis"
	"Lee_Social/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	users    *UserService
	follows  *FollowService
	posts    *PostService
	comments *CommentService
	likes    *PostLikeService
	notes    *NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	rdb, _ := testutil.SetupRedis(t)

	userRepo := mysql.NewUserRepository(db)
	postRepo := mysql.NewPostRepository(db)
	commentRepo := mysql.NewCommentRepository(db)
	auth := policy.New()

	notes := NewNotificationService(mysql.NewNotificationRepository(db), userRepo, postRepo, commentRepo, auth)
	return &testEnv{
		db:       db,
		users:    NewUserService(userRepo, redis.NewSessionRepository(rdb), pkg.NewTokenManager("a", "r")),
		follows:  NewFollowService(mysql.NewFollowRepository(db), userRepo, notes),
		posts:    NewPostService(postRepo, auth),
		comments: NewCommentService(commentRepo, postRepo, auth, notes),
		likes:    NewPostLikeService(mysql.NewPostLikeRepository(db), postRepo, redis.NewLikeCacheRepository(rdb), redis.NewDistLock(rdb), notes),
		notes:    notes,
	}
}

func (e *testEnv) user(t *testing.T, name string) *model.User {
	t.Helper()
	u := &model.User{Username: name, Email: name + "@example.com", Password: "x"}
	require.NoError(t, mysql.NewUserRepository(e.db).CreateWithProfile(context.Background(), u, &model.Profile{}))
	return u
}

func (e *testEnv) countNotes(t *testing.T, recipient, actor uint64, verb string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.Notification{}).
		Where("recipient_id = ? AND actor_id = ? AND verb = ?", recipient, actor, verb).
		Count(&n).Error)
	return n
}

func TestFollow_Idempotent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")

	changed, err := e.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = e.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	var edges int64
	e.db.Model(&model.Follow{}).Where("follower_id = ? AND followee_id = ?", alice.ID, bob.ID).Count(&edges)
	assert.Equal(t, int64(1), edges)
	assert.Equal(t, int64(1), e.countNotes(t, bob.ID, alice.ID, model.VerbFollowed))

	// 不对称
	ok, err := e.follows.IsFollowing(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFollow_Errors(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")

	_, err := e.follows.Follow(ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrSelfReference)

	_, err = e.follows.Follow(ctx, alice.ID, alice.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.follows.Unfollow(ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrSelfReference)

	var edges int64
	e.db.Model(&model.Follow{}).Count(&edges)
	assert.Zero(t, edges)
}

func TestUnfollow_MissingEdgeIsNoop(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")

	changed, err := e.follows.Unfollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = e.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	changed, err = e.follows.Unfollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	list, err := e.follows.ListFollowers(ctx, bob.ID, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, list.Users)
}

func TestFollowLists(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice, bob, carol := e.user(t, "alice"), e.user(t, "bob"), e.user(t, "carol")
	_, _ = e.follows.Follow(ctx, alice.ID, bob.ID)
	_, _ = e.follows.Follow(ctx, carol.ID, bob.ID)

	list, err := e.follows.ListFollowers(ctx, bob.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, list.Users, 2)
	assert.Equal(t, "carol", list.Users[0].Username)
	assert.Zero(t, list.Next)

	list, err = e.follows.ListFollowings(ctx, alice.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, list.Users, 1)
	assert.Equal(t, "bob", list.Users[0].Username)
}

func TestLike_SelfLike(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	bob := e.user(t, "bob")
	post, err := e.posts.CreatePost(ctx, bob.ID, "Hello", "world")
	require.NoError(t, err)

	err = e.likes.Like(ctx, post.ID, bob.ID)
	assert.ErrorIs(t, err, ErrSelfLike)

	var n int64
	e.db.Model(&model.PostLike{}).Count(&n)
	assert.Zero(t, n)
}

func TestLike_DuplicateUnlikeLike(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")
	post, err := e.posts.CreatePost(ctx, bob.ID, "Hello", "world")
	require.NoError(t, err)

	require.NoError(t, e.likes.Like(ctx, post.ID, alice.ID))
	assert.Equal(t, int64(1), e.countNotes(t, bob.ID, alice.ID, model.VerbLiked))

	err = e.likes.Like(ctx, post.ID, alice.ID)
	assert.ErrorIs(t, err, ErrDuplicateAction)
	assert.Equal(t, int64(1), e.countNotes(t, bob.ID, alice.ID, model.VerbLiked))

	liked, err := e.likes.IsLiked(ctx, post.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	cnt, err := e.likes.LikeCount(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cnt)

	require.NoError(t, e.likes.Unlike(ctx, post.ID, alice.ID))
	err = e.likes.Unlike(ctx, post.ID, alice.ID)
	assert.ErrorIs(t, err, ErrNotLiked)
	assert.ErrorIs(t, err, ErrNotFound)

	liked, _ = e.likes.IsLiked(ctx, post.ID, alice.ID)
	assert.False(t, liked)
	cnt, _ = e.likes.LikeCount(ctx, post.ID)
	assert.Equal(t, int64(0), cnt)

	require.NoError(t, e.likes.Like(ctx, post.ID, alice.ID))
	cnt, _ = e.likes.LikeCount(ctx, post.ID)
	assert.Equal(t, int64(1), cnt)
}

func TestLike_MissingPost(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice")
	err := e.likes.Like(context.Background(), 999, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComment_MissingPost(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice")

	_, err := e.comments.CreateComment(context.Background(), 999, alice.ID, "hi")
	assert.ErrorIs(t, err, ErrNotFound)

	var n int64
	e.db.Model(&model.Comment{}).Count(&n)
	assert.Zero(t, n)
}

func TestComment_Notify(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")
	post, _ := e.posts.CreatePost(ctx, bob.ID, "Hello", "world")

	c, err := e.comments.CreateComment(ctx, post.ID, alice.ID, "nice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.countNotes(t, bob.ID, alice.ID, model.VerbCommented))

	// 评论自己的帖子不通知
	_, err = e.comments.CreateComment(ctx, post.ID, bob.ID, "thanks")
	require.NoError(t, err)
	assert.Equal(t, int64(0), e.countNotes(t, bob.ID, bob.ID, model.VerbCommented))

	page, err := e.notes.Page(ctx, bob.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, model.TargetComment, page.Items[0].TargetKind)
	assert.Equal(t, c.ID, page.Items[0].TargetID)
	assert.Equal(t, "Comment by alice on Hello", page.Items[0].TargetObjectRepresentation)
}

func TestComment_Ownership(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")
	post, _ := e.posts.CreatePost(ctx, bob.ID, "Hello", "world")
	c, err := e.comments.CreateComment(ctx, post.ID, alice.ID, "nice")
	require.NoError(t, err)

	_, err = e.comments.UpdateComment(ctx, bob.ID, post.ID, c.ID, "edited")
	assert.ErrorIs(t, err, ErrPermission)

	updated, err := e.comments.UpdateComment(ctx, alice.ID, post.ID, c.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)

	assert.ErrorIs(t, e.comments.DeleteComment(ctx, bob.ID, post.ID, c.ID), ErrPermission)
	require.NoError(t, e.comments.DeleteComment(ctx, alice.ID, post.ID, c.ID))

	page, err := e.comments.ListComments(ctx, post.ID, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestPost_Ownership(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")
	post, err := e.posts.CreatePost(ctx, bob.ID, "Hello", "world")
	require.NoError(t, err)

	title := "Hijacked"
	_, err = e.posts.UpdatePost(ctx, alice.ID, post.ID, PostUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrPermission)
	assert.ErrorIs(t, e.posts.DeletePost(ctx, alice.ID, post.ID), ErrPermission)

	title = "Hello again"
	updated, err := e.posts.UpdatePost(ctx, bob.ID, post.ID, PostUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Hello again", updated.Title)
	assert.Equal(t, "world", updated.Content)

	require.NoError(t, e.posts.DeletePost(ctx, bob.ID, post.ID))
	_, err = e.posts.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.posts.CreatePost(ctx, bob.ID, "  ", "x")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestListPosts_PageSize(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	bob := e.user(t, "bob")
	for i := 0; i < 12; i++ {
		_, err := e.posts.CreatePost(ctx, bob.ID, "post", "body")
		require.NoError(t, err)
	}

	page, err := e.posts.ListPosts(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, int64(12), page.Total)

	page, err = e.posts.ListPosts(ctx, "", 2, 1000)
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.PageSize)
	assert.Empty(t, page.Items)
}

func TestNormalizePage_Clamp(t *testing.T) {
	page, size := normalizePage(math.MaxInt, 1000)
	assert.Equal(t, MaxPage, page)
	assert.Equal(t, MaxPageSize, size)
	assert.GreaterOrEqual(t, (page-1)*size, 0)

	page, size = normalizePage(-3, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPageSize, size)
}

func TestNotify_SurvivesCanceledRequest(t *testing.T) {
	e := newTestEnv(t)
	alice, bob := e.user(t, "alice"), e.user(t, "bob")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.notes.fanOut(ctx, bob.ID, alice.ID, model.VerbFollowed, model.UserTarget(alice.ID))

	n, err := e.notes.UnreadCount(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMarkAllRead_Scoped(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")

	for i := 0; i < 3; i++ {
		_, err := e.notes.Notify(ctx, bob.ID, alice.ID, model.VerbFollowed, model.UserTarget(alice.ID))
		require.NoError(t, err)
	}
	_, err := e.notes.Notify(ctx, alice.ID, bob.ID, model.VerbFollowed, model.UserTarget(bob.ID))
	require.NoError(t, err)

	n, err := e.notes.MarkAllRead(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	n, err = e.notes.MarkAllRead(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	unread, err := e.notes.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestNotify_Validation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.notes.Notify(ctx, 1, 2, "", model.UserTarget(2))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = e.notes.Notify(ctx, 1, 2, model.VerbLiked, model.Target{Kind: "group", ID: 1})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = e.notes.Notify(ctx, 1, 2, strings.Repeat("评", 256), model.CommentTarget(1))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// 最长的 verb 可以写入，outbox 只记 kind
	long := strings.Repeat("评", 255)
	n, err := e.notes.Notify(ctx, 1, 2, long, model.CommentTarget(1))
	require.NoError(t, err)
	assert.Equal(t, long, n.Verb)
	var ob model.NotificationOutbox
	require.NoError(t, e.db.Where("notification_id = ?", n.ID).First(&ob).Error)
	assert.Equal(t, string(model.TargetComment), ob.EventType)
	assert.Contains(t, string(ob.Payload), long)

	// 自己通知自己在这一层是允许的
	n, err = e.notes.Notify(ctx, 1, 1, model.VerbLiked, model.PostTarget(5))
	require.NoError(t, err)
	assert.Equal(t, n.RecipientID, n.ActorID)
}

func TestListFor_NewestFirstAndRestartable(t *testing.T) {
	e := newTestEnv(t)
	e.notes.batch = 2
	ctx := context.Background()
	for i := uint64(1); i <= 5; i++ {
		_, err := e.notes.Notify(ctx, 1, 2, model.VerbLiked, model.PostTarget(i))
		require.NoError(t, err)
	}
	_, err := e.notes.Notify(ctx, 9, 2, model.VerbLiked, model.PostTarget(1))
	require.NoError(t, err)

	collect := func() []uint64 {
		var got []uint64
		for n, err := range e.notes.ListFor(ctx, 1) {
			require.NoError(t, err)
			assert.Equal(t, uint64(1), n.RecipientID)
			got = append(got, n.TargetID)
		}
		return got
	}
	assert.Equal(t, []uint64{5, 4, 3, 2, 1}, collect())
	assert.Equal(t, []uint64{5, 4, 3, 2, 1}, collect())

	// 提前退出
	var first []uint64
	for n := range e.notes.ListFor(ctx, 1) {
		first = append(first, n.TargetID)
		if len(first) == 3 {
			break
		}
	}
	assert.Equal(t, []uint64{5, 4, 3}, first)
}

func TestNotificationGet_OnlyRecipient(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")

	n, err := e.notes.Notify(ctx, bob.ID, alice.ID, model.VerbFollowed, model.UserTarget(alice.ID))
	require.NoError(t, err)

	v, err := e.notes.Get(ctx, bob.ID, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", v.TargetObjectRepresentation)

	_, err = e.notes.Get(ctx, alice.ID, n.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	label, err := e.notes.ResolveTarget(ctx, model.UserTarget(bob.ID))
	require.NoError(t, err)
	assert.Equal(t, "bob", label)
	_, err = e.notes.ResolveTarget(ctx, model.PostTarget(999))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScenario_AliceBob(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")

	_, err := e.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	post, err := e.posts.CreatePost(ctx, bob.ID, "Hello", "first post")
	require.NoError(t, err)
	require.NoError(t, e.likes.Like(ctx, post.ID, alice.ID))

	assert.Equal(t, int64(1), e.countNotes(t, bob.ID, alice.ID, model.VerbLiked))

	feed, err := e.posts.Feed(ctx, alice.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "Hello", feed.Items[0].Title)

	// bob 没有关注任何人
	feed, err = e.posts.Feed(ctx, bob.ID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, feed.Items)
}

func TestAccounts(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	u, pair, err := e.users.Register(ctx, "alice", "alice@example.com", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, _, err = e.users.Register(ctx, "alice", "other@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = e.users.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrAuthentication)
	_, err = e.users.Login(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, ErrAuthentication)
	_, err = e.users.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	bio := "hi there"
	view, err := e.users.UpdateProfile(ctx, u.ID, ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "hi there", view.Bio)
	assert.Equal(t, "alice", view.Username)

	refreshed, err := e.users.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	_, err = e.users.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrAuthentication)

	assert.ErrorIs(t, e.users.ChangePassword(ctx, u.ID, "wrong", "new"), ErrInvalidArgument)
	require.NoError(t, e.users.ChangePassword(ctx, u.ID, "secret", "new-secret"))
	_, err = e.users.Login(ctx, "alice", "new-secret")
	require.NoError(t, err)
}

func TestFanOutFailureDoesNotFailAction(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")

	// 通知表不可用时关注仍然成功
	require.NoError(t, e.db.Migrator().DropTable(&model.Notification{}))
	changed, err := e.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	ok, err := e.follows.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}
