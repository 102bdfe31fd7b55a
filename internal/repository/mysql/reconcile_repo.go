package mysql

import (
	"context"

	"Lee_Social/internal/model"

	"gorm.io/gorm"
)

// CountReconcilerRepo 计数对账：以关系表/点赞表/评论表为准修正冗余计数
type CountReconcilerRepo struct {
	DB *gorm.DB
}

func NewCountReconcilerRepo(db *gorm.DB) *CountReconcilerRepo {
	return &CountReconcilerRepo{DB: db}
}

type UserCounts struct {
	ID             uint64
	FollowingCount int64
	FollowerCount  int64
}

type PostCounts struct {
	ID           uint64
	LikeCount    int64
	CommentCount int64
}

// UserBatch 按 id 递增分批读取，返回下一批的起点
func (r *CountReconcilerRepo) UserBatch(ctx context.Context, lastID uint64, batchSize int) ([]UserCounts, uint64, error) {
	var list []UserCounts
	if err := r.DB.WithContext(ctx).Model(&model.User{}).
		Select("id", "following_count", "follower_count").
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, lastID, err
	}
	if len(list) == 0 {
		return nil, lastID, nil
	}
	return list, list[len(list)-1].ID, nil
}

func (r *CountReconcilerRepo) PostBatch(ctx context.Context, lastID uint64, batchSize int) ([]PostCounts, uint64, error) {
	var list []PostCounts
	if err := r.DB.WithContext(ctx).Model(&model.Post{}).
		Select("id", "like_count", "comment_count").
		Where("id > ? AND status = ?", lastID, model.PostNormal).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, lastID, err
	}
	if len(list) == 0 {
		return nil, lastID, nil
	}
	return list, list[len(list)-1].ID, nil
}

// RealFollowing 用户真实关注的人数
func (r *CountReconcilerRepo) RealFollowing(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ? AND status = ?", userID, model.FollowActive).
		Count(&n).Error
	return n, err
}

// RealFollowers 用户真实粉丝数
func (r *CountReconcilerRepo) RealFollowers(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("followee_id = ? AND status = ?", userID, model.FollowActive).
		Count(&n).Error
	return n, err
}

func (r *CountReconcilerRepo) RealLikes(ctx context.Context, postID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.PostLike{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}

func (r *CountReconcilerRepo) RealComments(ctx context.Context, postID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Comment{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}

func (r *CountReconcilerRepo) FixUserCounts(ctx context.Context, userID uint64, following, followers int64) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).
		UpdateColumns(map[string]any{"following_count": following, "follower_count": followers}).Error
}

func (r *CountReconcilerRepo) FixPostCounts(ctx context.Context, postID uint64, likes, comments int64) error {
	return r.DB.WithContext(ctx).Model(&model.Post{}).Where("id = ?", postID).
		UpdateColumns(map[string]any{"like_count": likes, "comment_count": comments}).Error
}
