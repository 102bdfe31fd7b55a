package service

import (
	"context"
	"fmt"

	"Lee_Social/internal/model"
	"Lee_Social/internal/repository/mysql"
)

type FollowService struct {
	repo     *mysql.FollowRepository
	users    *mysql.UserRepository
	notifier *NotificationService
}

// FollowList 关注/粉丝列表的一页，Next 为 0 表示没有更多
type FollowList struct {
	Users []model.User `json:"users"`
	Next  uint64       `json:"next_cursor"`
}

func NewFollowService(repo *mysql.FollowRepository, users *mysql.UserRepository, notifier *NotificationService) *FollowService {
	return &FollowService{
		repo:     repo,
		users:    users,
		notifier: notifier,
	}
}

// Follow 幂等关注，状态真正变化时才通知被关注者
func (s *FollowService) Follow(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	if followerID == 0 || followeeID == 0 {
		return false, invalid("invalid user id")
	}
	if followerID == followeeID {
		return false, ErrSelfReference
	}
	if err := s.mustExist(ctx, followeeID); err != nil {
		return false, err
	}
	changed, err := s.repo.Follow(ctx, followerID, followeeID)
	if err != nil || !changed {
		return changed, err
	}
	s.notifier.fanOut(ctx, followeeID, followerID, model.VerbFollowed, model.UserTarget(followerID))
	return true, nil
}

// Unfollow 没有关注关系时不报错
func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	if followerID == 0 || followeeID == 0 {
		return false, invalid("invalid user id")
	}
	if followerID == followeeID {
		return false, fmt.Errorf("%w: cannot unfollow yourself", ErrSelfReference)
	}
	if err := s.mustExist(ctx, followeeID); err != nil {
		return false, err
	}
	return s.repo.Unfollow(ctx, followerID, followeeID)
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	if followerID == 0 || followeeID == 0 {
		return false, invalid("invalid user id")
	}
	return s.repo.IsFollowing(ctx, followerID, followeeID)
}

func (s *FollowService) ListFollowings(ctx context.Context, userID, cursor uint64, limit int) (*FollowList, error) {
	if err := s.mustExist(ctx, userID); err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListFollowings(ctx, userID, cursor, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.FolloweeID)
	}
	return s.toList(ctx, ids, next)
}

func (s *FollowService) ListFollowers(ctx context.Context, userID, cursor uint64, limit int) (*FollowList, error) {
	if err := s.mustExist(ctx, userID); err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListFollowers(ctx, userID, cursor, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.FollowerID)
	}
	return s.toList(ctx, ids, next)
}

// toList 按关系顺序组装用户
func (s *FollowService) toList(ctx context.Context, ids []uint64, next uint64) (*FollowList, error) {
	byID, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := &FollowList{Users: make([]model.User, 0, len(ids)), Next: next}
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out.Users = append(out.Users, u)
		}
	}
	return out, nil
}

func (s *FollowService) mustExist(ctx context.Context, userID uint64) error {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user", ErrNotFound)
	}
	return nil
}
