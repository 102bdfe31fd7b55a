package mysql

import (
	"context"
	"strings"

	"Lee_Social/internal/model"

	"gorm.io/gorm"
)

type PostRepository struct {
	DB *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{DB: db}
}

func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	return r.DB.WithContext(ctx).Create(post).Error
}

// FindByID 已删除的帖子视为不存在
func (r *PostRepository) FindByID(ctx context.Context, id uint64) (*model.Post, error) {
	var post model.Post
	err := r.DB.WithContext(ctx).First(&post, "id = ? AND status = ?", id, model.PostNormal).Error
	return &post, err
}

func (r *PostRepository) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Post, error) {
	out := make(map[uint64]model.Post, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []model.Post
	if err := r.DB.WithContext(ctx).Where("id IN ? AND status = ?", ids, model.PostNormal).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func (r *PostRepository) Update(ctx context.Context, id uint64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Model(&model.Post{}).
		Where("id = ? AND status = ?", id, model.PostNormal).
		Updates(fields).Error
}

// Delete 软删除
func (r *PostRepository) Delete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.Post{}).
		Where("id = ?", id).
		Update("status", model.PostDeleted).Error
}

// List 分页查询，search 非空时按标题/内容模糊匹配
func (r *PostRepository) List(ctx context.Context, search string, offset, limit int) ([]model.Post, int64, error) {
	q := r.DB.WithContext(ctx).Model(&model.Post{}).Where("status = ?", model.PostNormal)
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + search + "%"
		q = q.Where("title LIKE ? OR content LIKE ?", like, like)
	}
	return r.page(q, offset, limit)
}

// Feed 关注的人发布的帖子
func (r *PostRepository) Feed(ctx context.Context, userID uint64, offset, limit int) ([]model.Post, int64, error) {
	followees := r.DB.Model(&model.Follow{}).
		Select("followee_id").
		Where("follower_id = ? AND status = ?", userID, model.FollowActive)
	q := r.DB.WithContext(ctx).Model(&model.Post{}).
		Where("status = ? AND author_id IN (?)", model.PostNormal, followees)
	return r.page(q, offset, limit)
}

func (r *PostRepository) page(q *gorm.DB, offset, limit int) ([]model.Post, int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []model.Post
	err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}
