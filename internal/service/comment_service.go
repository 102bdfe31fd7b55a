package service

import (
	"context"
	"strings"

	"Lee_Social/internal/model"
	"Lee_Social/internal/policy"
	"Lee_Social/internal/repository/mysql"
)

type CommentService struct {
	repo     *mysql.CommentRepository
	posts    *mysql.PostRepository
	auth     *policy.Authorizer
	notifier *NotificationService
}

func NewCommentService(repo *mysql.CommentRepository, posts *mysql.PostRepository, auth *policy.Authorizer, notifier *NotificationService) *CommentService {
	return &CommentService{
		repo:     repo,
		posts:    posts,
		auth:     auth,
		notifier: notifier,
	}
}

// CreateComment 帖子不存在时不写评论；评论自己的帖子不通知
func (s *CommentService) CreateComment(ctx context.Context, postID, authorID uint64, content string) (*model.Comment, error) {
	if authorID == 0 {
		return nil, ErrAuthentication
	}
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, notFound(err, "post")
	}
	if strings.TrimSpace(content) == "" {
		return nil, invalid("content required")
	}
	c := &model.Comment{
		PostID:   post.ID,
		AuthorID: authorID,
		Content:  content,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	if post.AuthorID != authorID {
		s.notifier.fanOut(ctx, post.AuthorID, authorID, model.VerbCommented, model.CommentTarget(c.ID))
	}
	return c, nil
}

// ListComments 按时间正序
func (s *CommentService) ListComments(ctx context.Context, postID uint64, page, size int) (*Page[model.Comment], error) {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return nil, notFound(err, "post")
	}
	page, size = normalizePage(page, size)
	list, total, err := s.repo.ListByPost(ctx, postID, (page-1)*size, size)
	if err != nil {
		return nil, err
	}
	return newPage(list, total, page, size), nil
}

func (s *CommentService) GetComment(ctx context.Context, postID, id uint64) (*model.Comment, error) {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return nil, notFound(err, "post")
	}
	c, err := s.repo.FindByID(ctx, postID, id)
	if err != nil {
		return nil, notFound(err, "comment")
	}
	return c, nil
}

func (s *CommentService) UpdateComment(ctx context.Context, actorID, postID, id uint64, content string) (*model.Comment, error) {
	c, err := s.GetComment(ctx, postID, id)
	if err != nil {
		return nil, err
	}
	if err := s.auth.Authorize(actorID, policy.ActionUpdate, c); err != nil {
		return nil, ErrPermission
	}
	if strings.TrimSpace(content) == "" {
		return nil, invalid("content required")
	}
	if err := s.repo.UpdateContent(ctx, c.ID, content); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, postID, id)
}

func (s *CommentService) DeleteComment(ctx context.Context, actorID, postID, id uint64) error {
	c, err := s.GetComment(ctx, postID, id)
	if err != nil {
		return err
	}
	if err := s.auth.Authorize(actorID, policy.ActionDelete, c); err != nil {
		return ErrPermission
	}
	return s.repo.Delete(ctx, c)
}
