package mysql

import (
	"context"

	"Lee_Social/internal/model"

	"gorm.io/gorm"
)

type CommentRepository struct {
	DB *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{DB: db}
}

// Create 写评论并累加帖子评论数
func (r *CommentRepository) Create(ctx context.Context, c *model.Comment) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return tx.Model(&model.Post{}).
			Where("id = ?", c.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
}

func (r *CommentRepository) FindByID(ctx context.Context, postID, id uint64) (*model.Comment, error) {
	var c model.Comment
	err := r.DB.WithContext(ctx).Where("id = ? AND post_id = ?", id, postID).First(&c).Error
	return &c, err
}

func (r *CommentRepository) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Comment, error) {
	out := make(map[uint64]model.Comment, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []model.Comment
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, c := range list {
		out[c.ID] = c
	}
	return out, nil
}

// ListByPost 按时间正序
func (r *CommentRepository) ListByPost(ctx context.Context, postID uint64, offset, limit int) ([]model.Comment, int64, error) {
	q := r.DB.WithContext(ctx).Model(&model.Comment{}).Where("post_id = ?", postID)
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []model.Comment
	err := q.Order("created_at ASC, id ASC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}

func (r *CommentRepository) UpdateContent(ctx context.Context, id uint64, content string) error {
	return r.DB.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id).Update("content", content).Error
}

func (r *CommentRepository) Delete(ctx context.Context, c *model.Comment) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Comment{}, c.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&model.Post{}).
			Where("id = ?", c.PostID).
			UpdateColumn("comment_count", gorm.Expr("CASE WHEN comment_count > 0 THEN comment_count - 1 ELSE 0 END")).Error
	})
}
