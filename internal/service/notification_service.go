package service

import (
	"context"
	"fmt"
	"iter"
	"unicode/utf8"

	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/policy"
	"Lee_Social/internal/repository/mysql"

	"github.com/sirupsen/logrus"
)

const notificationBatch = 50

type NotificationService struct {
	repo     *mysql.NotificationRepository
	users    *mysql.UserRepository
	posts    *mysql.PostRepository
	comments *mysql.CommentRepository
	auth     *policy.Authorizer
	batch    int
}

// NotificationView 列表/详情返回的通知，带目标对象的文字描述
type NotificationView struct {
	model.Notification
	TargetObjectRepresentation string `json:"target_object_representation"`
}

func NewNotificationService(repo *mysql.NotificationRepository, users *mysql.UserRepository, posts *mysql.PostRepository, comments *mysql.CommentRepository, auth *policy.Authorizer) *NotificationService {
	return &NotificationService{
		repo:     repo,
		users:    users,
		posts:    posts,
		comments: comments,
		auth:     auth,
		batch:    notificationBatch,
	}
}

// Notify 写一条通知（同一事务写 outbox 事件）
func (s *NotificationService) Notify(ctx context.Context, recipientID, actorID uint64, verb string, target model.Target) (*model.Notification, error) {
	if recipientID == 0 || actorID == 0 {
		return nil, invalid("recipient and actor are required")
	}
	if verb == "" || utf8.RuneCountInString(verb) > 255 {
		return nil, invalid("verb must be 1-255 characters")
	}
	if !target.Kind.Valid() || target.ID == 0 {
		return nil, invalid("unknown notification target")
	}
	n := &model.Notification{
		RecipientID: recipientID,
		ActorID:     actorID,
		Verb:        verb,
		TargetKind:  target.Kind,
		TargetID:    target.ID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// fanOut 主操作提交后调用，失败只记日志。客户端断开不影响通知写入
func (s *NotificationService) fanOut(ctx context.Context, recipientID, actorID uint64, verb string, target model.Target) {
	if _, err := s.Notify(context.WithoutCancel(ctx), recipientID, actorID, verb, target); err != nil {
		pkg.Logger.WithFields(logrus.Fields{
			"recipient":   recipientID,
			"actor":       actorID,
			"verb":        verb,
			"target_type": target.Kind,
			"object_id":   target.ID,
			"error":       err.Error(),
		}).Error("notification fan-out failed")
	}
}

// ListFor 按时间倒序惰性遍历接收者的通知，分批查库；每次 range 都重新查询
func (s *NotificationService) ListFor(ctx context.Context, recipientID uint64) iter.Seq2[model.Notification, error] {
	return func(yield func(model.Notification, error) bool) {
		var before uint64
		for {
			batch, err := s.repo.ListBefore(ctx, recipientID, before, s.batch)
			if err != nil {
				yield(model.Notification{}, err)
				return
			}
			for _, n := range batch {
				if !yield(n, nil) {
					return
				}
			}
			if len(batch) < s.batch {
				return
			}
			before = batch[len(batch)-1].ID
		}
	}
}

func (s *NotificationService) Page(ctx context.Context, recipientID uint64, page, size int) (*Page[NotificationView], error) {
	page, size = normalizePage(page, size)
	list, total, err := s.repo.Page(ctx, recipientID, (page-1)*size, size)
	if err != nil {
		return nil, err
	}
	views, err := s.describe(ctx, list)
	if err != nil {
		return nil, err
	}
	return newPage(views, total, page, size), nil
}

// Get 只能查看发给自己的通知，别人的按不存在处理
func (s *NotificationService) Get(ctx context.Context, recipientID, id uint64) (*NotificationView, error) {
	n, err := s.repo.FindForRecipient(ctx, id, recipientID)
	if err != nil {
		return nil, notFound(err, "notification")
	}
	if err := s.auth.Authorize(recipientID, policy.ActionRead, n); err != nil {
		return nil, fmt.Errorf("%w: notification", ErrNotFound)
	}
	views, err := s.describe(ctx, []model.Notification{*n})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uint64) (int64, error) {
	return s.repo.MarkAllRead(ctx, recipientID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipientID uint64) (int64, error) {
	return s.repo.UnreadCount(ctx, recipientID)
}

// ResolveTarget 返回目标对象的文字描述；对象已不存在时返回 ErrNotFound
func (s *NotificationService) ResolveTarget(ctx context.Context, t model.Target) (string, error) {
	switch t.Kind {
	case model.TargetUser:
		u, err := s.users.FindByID(ctx, t.ID)
		if err != nil {
			return "", notFound(err, "user")
		}
		return u.Username, nil
	case model.TargetPost:
		p, err := s.posts.FindByID(ctx, t.ID)
		if err != nil {
			return "", notFound(err, "post")
		}
		return p.Title, nil
	case model.TargetComment:
		views, err := s.describe(ctx, []model.Notification{{TargetKind: t.Kind, TargetID: t.ID}})
		if err != nil {
			return "", err
		}
		if views[0].TargetObjectRepresentation == "" {
			return "", fmt.Errorf("%w: comment", ErrNotFound)
		}
		return views[0].TargetObjectRepresentation, nil
	}
	return "", invalid("unknown notification target")
}

// describe 按类型批量查目标对象，避免逐条回源
func (s *NotificationService) describe(ctx context.Context, list []model.Notification) ([]NotificationView, error) {
	var userIDs, postIDs, commentIDs []uint64
	for _, n := range list {
		switch n.TargetKind {
		case model.TargetUser:
			userIDs = append(userIDs, n.TargetID)
		case model.TargetPost:
			postIDs = append(postIDs, n.TargetID)
		case model.TargetComment:
			commentIDs = append(commentIDs, n.TargetID)
		}
	}

	comments, err := s.comments.FindByIDs(ctx, commentIDs)
	if err != nil {
		return nil, err
	}
	// 评论的描述需要作者名和帖子标题
	for _, c := range comments {
		userIDs = append(userIDs, c.AuthorID)
		postIDs = append(postIDs, c.PostID)
	}
	users, err := s.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.FindByIDs(ctx, postIDs)
	if err != nil {
		return nil, err
	}

	views := make([]NotificationView, 0, len(list))
	for _, n := range list {
		v := NotificationView{Notification: n}
		switch n.TargetKind {
		case model.TargetUser:
			v.TargetObjectRepresentation = users[n.TargetID].Username
		case model.TargetPost:
			v.TargetObjectRepresentation = posts[n.TargetID].Title
		case model.TargetComment:
			if c, ok := comments[n.TargetID]; ok {
				v.TargetObjectRepresentation = commentLabel(users[c.AuthorID].Username, posts[c.PostID].Title)
			}
		}
		views = append(views, v)
	}
	return views, nil
}

func commentLabel(author, title string) string {
	if r := []rune(title); len(r) > 30 {
		title = string(r[:30])
	}
	return fmt.Sprintf("Comment by %s on %s", author, title)
}
