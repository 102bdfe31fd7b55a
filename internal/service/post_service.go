package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"Lee_Social/internal/model"
	"Lee_Social/internal/policy"
	"Lee_Social/internal/repository/mysql"
)

type PostService struct {
	repo *mysql.PostRepository
	auth *policy.Authorizer
}

// PostUpdate nil 字段不修改
type PostUpdate struct {
	Title   *string
	Content *string
}

func NewPostService(repo *mysql.PostRepository, auth *policy.Authorizer) *PostService {
	return &PostService{repo: repo, auth: auth}
}

func (s *PostService) CreatePost(ctx context.Context, authorID uint64, title, content string) (*model.Post, error) {
	if authorID == 0 {
		return nil, ErrAuthentication
	}
	if err := validatePost(title, content); err != nil {
		return nil, err
	}
	post := &model.Post{
		AuthorID: authorID,
		Title:    strings.TrimSpace(title),
		Content:  content,
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint64) (*model.Post, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "post")
	}
	return post, nil
}

// ListPosts 公开列表，search 按标题/内容过滤
func (s *PostService) ListPosts(ctx context.Context, search string, page, size int) (*Page[model.Post], error) {
	page, size = normalizePage(page, size)
	list, total, err := s.repo.List(ctx, search, (page-1)*size, size)
	if err != nil {
		return nil, err
	}
	return newPage(list, total, page, size), nil
}

// Feed 关注的人发布的帖子，按时间倒序
func (s *PostService) Feed(ctx context.Context, userID uint64, page, size int) (*Page[model.Post], error) {
	page, size = normalizePage(page, size)
	list, total, err := s.repo.Feed(ctx, userID, (page-1)*size, size)
	if err != nil {
		return nil, err
	}
	return newPage(list, total, page, size), nil
}

func (s *PostService) UpdatePost(ctx context.Context, actorID, id uint64, in PostUpdate) (*model.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.auth.Authorize(actorID, policy.ActionUpdate, post); err != nil {
		return nil, ErrPermission
	}

	title, content := post.Title, post.Content
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		content = *in.Content
	}
	if err := validatePost(title, content); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if title != post.Title {
		fields["title"] = title
	}
	if content != post.Content {
		fields["content"] = content
	}
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.GetPost(ctx, id)
}

func (s *PostService) DeletePost(ctx context.Context, actorID, id uint64) error {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if err := s.auth.Authorize(actorID, policy.ActionDelete, post); err != nil {
		return ErrPermission
	}
	return s.repo.Delete(ctx, id)
}

func validatePost(title, content string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return invalid("title required")
	}
	if utf8.RuneCountInString(title) > 200 {
		return invalid("title must be at most 200 characters")
	}
	if strings.TrimSpace(content) == "" {
		return invalid("content required")
	}
	return nil
}
