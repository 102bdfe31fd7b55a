package service

import (
	"context"
	"errors"
	"testing"

	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type memWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error { return nil }

type memDialer struct {
	sent []*gomail.Message
}

func (d *memDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return nil
}

func TestOutboxRelayer_Kafka(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")
	_, err := e.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	w := &memWriter{}
	relayer := NewOutboxRelayer(mysql.NewOutboxRepository(e.db), 0, KafkaSender(pkg.NewKafkaProducerWithWriter(w, "t")))

	assert.Equal(t, 1, relayer.DrainOnce(ctx))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, pkg.MakeKeyFromID(bob.ID), string(w.msgs[0].Key))
	assert.Contains(t, string(w.msgs[0].Value), `"verb":"started following you"`)

	// 已投递的不会重复发
	assert.Equal(t, 0, relayer.DrainOnce(ctx))
	assert.Len(t, w.msgs, 1)
}

func TestOutboxRelayer_RetryThenGiveUp(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_, err := e.notes.Notify(ctx, 1, 2, model.VerbLiked, model.PostTarget(3))
	require.NoError(t, err)

	w := &memWriter{err: errors.New("broker down")}
	relayer := NewOutboxRelayer(mysql.NewOutboxRepository(e.db), 0, KafkaSender(pkg.NewKafkaProducerWithWriter(w, "t")))
	for i := 0; i < relayer.maxRetry; i++ {
		assert.Equal(t, 0, relayer.DrainOnce(ctx))
	}

	var ob model.NotificationOutbox
	require.NoError(t, e.db.First(&ob).Error)
	assert.Equal(t, int8(model.OutboxFailed), ob.Status)
	assert.Equal(t, relayer.maxRetry, ob.Retry)

	// 超过重试上限后不再取出
	w.err = nil
	assert.Equal(t, 0, relayer.DrainOnce(ctx))
	assert.Empty(t, w.msgs)
}

func TestOutboxRelayer_MailAndLog(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")
	post, err := e.posts.CreatePost(ctx, bob.ID, "Hello", "world")
	require.NoError(t, err)
	require.NoError(t, e.likes.Like(ctx, post.ID, alice.ID))

	d := &memDialer{}
	mailer := pkg.NewMailerWithSender(pkg.SMTPConfig{Host: "smtp", From: "noreply@example.com"}, d)
	relayer := NewOutboxRelayer(mysql.NewOutboxRepository(e.db), 0,
		MultiSender(Channel{"log", LogSender}, Channel{"mail", MailSender(mailer, mysql.NewUserRepository(e.db))}))

	assert.Equal(t, 1, relayer.DrainOnce(ctx))
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"bob@example.com"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"alice liked your post"}, d.sent[0].GetHeader("Subject"))
}

type failingDialer struct {
	fails int
	sent  []*gomail.Message
}

func (d *failingDialer) DialAndSend(m ...*gomail.Message) error {
	if d.fails > 0 {
		d.fails--
		return errors.New("smtp unavailable")
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestOutboxRelayer_RetrySkipsDeliveredChannel(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")
	_, err := e.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	w := &memWriter{}
	d := &failingDialer{fails: 1}
	mailer := pkg.NewMailerWithSender(pkg.SMTPConfig{Host: "smtp", From: "noreply@example.com"}, d)
	relayer := NewOutboxRelayer(mysql.NewOutboxRepository(e.db), 0, MultiSender(
		Channel{"kafka", KafkaSender(pkg.NewKafkaProducerWithWriter(w, "t"))},
		Channel{"mail", MailSender(mailer, mysql.NewUserRepository(e.db))},
	))

	// 邮件失败，kafka 已经发出
	assert.Equal(t, 0, relayer.DrainOnce(ctx))
	assert.Len(t, w.msgs, 1)
	var ob model.NotificationOutbox
	require.NoError(t, e.db.First(&ob).Error)
	assert.Equal(t, "kafka", ob.Delivered)

	// 重试只补发邮件
	assert.Equal(t, 1, relayer.DrainOnce(ctx))
	assert.Len(t, w.msgs, 1)
	assert.Len(t, d.sent, 1)
}

func TestCountReconciler(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")
	_, err := e.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	post, _ := e.posts.CreatePost(ctx, bob.ID, "Hello", "world")
	require.NoError(t, e.likes.Like(ctx, post.ID, alice.ID))

	r := NewCountReconciler(mysql.NewCountReconcilerRepo(e.db), 0)
	assert.Equal(t, 0, r.ReconcileOnce(ctx))

	require.NoError(t, e.db.Model(&model.User{}).Where("id = ?", bob.ID).Update("follower_count", 42).Error)
	require.NoError(t, e.db.Model(&model.Post{}).Where("id = ?", post.ID).Update("like_count", 9).Error)
	assert.Equal(t, 2, r.ReconcileOnce(ctx))

	var u model.User
	require.NoError(t, e.db.First(&u, bob.ID).Error)
	assert.Equal(t, int64(1), u.FollowerCount)
	var p model.Post
	require.NoError(t, e.db.First(&p, post.ID).Error)
	assert.Equal(t, int64(1), p.LikeCount)
}
