package service

import (
	"context"
	"time"

	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"
	"Lee_Social/internal/repository/redis"

	"github.com/google/uuid"
)

type PostLikeService struct {
	repo      *mysql.PostLikeRepository
	posts     *mysql.PostRepository
	likeCache *redis.LikeCacheRepository
	lock      *redis.DistLock
	notifier  *NotificationService
}

func NewPostLikeService(repo *mysql.PostLikeRepository, posts *mysql.PostRepository, likeCache *redis.LikeCacheRepository, lock *redis.DistLock, notifier *NotificationService) *PostLikeService {
	return &PostLikeService{
		repo:      repo,
		posts:     posts,
		likeCache: likeCache,
		lock:      lock,
		notifier:  notifier,
	}
}

// Like 写库成功后更新缓存并通知帖子作者。唯一索引保证并发下只有一次成功
func (s *PostLikeService) Like(ctx context.Context, postID, userID uint64) error {
	post, err := s.postFor(ctx, postID, userID)
	if err != nil {
		return err
	}
	if post.AuthorID == userID {
		return ErrSelfLike
	}

	created, err := s.repo.Like(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !created {
		// 幂等命中时，尽量惰性回填集合（不创建新集合）
		s.likeCache.WarmIsLiked(ctx, userID, postID, true)
		return ErrDuplicateAction
	}

	s.syncCount(ctx, postID, func() error { return s.likeCache.AddLike(ctx, userID, postID) })
	s.notifier.fanOut(ctx, post.AuthorID, userID, model.VerbLiked, model.PostTarget(postID))
	return nil
}

// Unlike 没有点过赞返回 ErrNotLiked，不发通知
func (s *PostLikeService) Unlike(ctx context.Context, postID, userID uint64) error {
	if _, err := s.postFor(ctx, postID, userID); err != nil {
		return err
	}
	removed, err := s.repo.Unlike(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !removed {
		s.likeCache.WarmIsLiked(ctx, userID, postID, false)
		return ErrNotLiked
	}
	s.syncCount(ctx, postID, func() error { return s.likeCache.RemoveLike(ctx, userID, postID) })
	return nil
}

// syncCount 拿到锁就在锁内更新缓存；拿不到锁或更新失败就删计数Key，交给读侧回填
func (s *PostLikeService) syncCount(ctx context.Context, postID uint64, update func() error) {
	token := uuid.NewString()
	got, err := s.lock.Acquire(ctx, postID, token)
	if err != nil || !got {
		_ = s.likeCache.DeleteCount(ctx, postID)
		return
	}
	defer s.release(ctx, postID, token)

	if err := update(); err != nil {
		pkg.LogError(err, "like cache update failed")
		_ = s.likeCache.DeleteCount(ctx, postID)
	}
}

func (s *PostLikeService) IsLiked(ctx context.Context, postID, userID uint64) (bool, error) {
	if _, err := s.postFor(ctx, postID, userID); err != nil {
		return false, err
	}
	// 先查缓存集合（命中才用）
	if b, ok, err := s.likeCache.IsLikedCached(ctx, userID, postID); err == nil && ok {
		return b, nil
	}
	// 回源 DB，并重建集合
	b, err := s.repo.IsLiked(ctx, userID, postID)
	if err != nil {
		return false, err
	}
	if ids, err := s.repo.LikerIDs(ctx, postID); err == nil {
		_ = s.likeCache.SeedLikers(ctx, postID, ids)
	}
	return b, nil
}

// LikeCount 缓存未命中时加锁回源，避免并发打到 DB
func (s *PostLikeService) LikeCount(ctx context.Context, postID uint64) (int64, error) {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return 0, notFound(err, "post")
	}
	if v, ok, err := s.likeCache.GetLikeCountCached(ctx, postID); err == nil && ok {
		return v, nil
	}

	token := uuid.NewString()
	got, _ := s.lock.Acquire(ctx, postID, token)
	if got {
		defer s.release(ctx, postID, token)

		// 第二次检查
		if v, ok, err := s.likeCache.GetLikeCountCached(ctx, postID); err == nil && ok {
			return v, nil
		}
		v, err := s.repo.GetLikeCount(ctx, postID)
		if err != nil {
			return 0, notFound(err, "post")
		}
		_ = s.likeCache.SetLikeCount(ctx, postID, v)
		return v, nil
	}

	// 没拿到锁，短暂退避后再读一次缓存
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}
	if v, ok, err := s.likeCache.GetLikeCountCached(ctx, postID); err == nil && ok {
		return v, nil
	}
	v, err := s.repo.GetLikeCount(ctx, postID)
	return v, notFound(err, "post")
}

func (s *PostLikeService) release(ctx context.Context, postID uint64, token string) {
	if err := s.lock.Release(ctx, postID, token); err != nil {
		pkg.LogError(err, "release like lock failed")
	}
}

func (s *PostLikeService) postFor(ctx context.Context, postID, userID uint64) (*model.Post, error) {
	if userID == 0 {
		return nil, ErrAuthentication
	}
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, notFound(err, "post")
	}
	return post, nil
}
