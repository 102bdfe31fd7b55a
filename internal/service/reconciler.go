package service

import (
	"context"
	"time"

	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"

	"github.com/sirupsen/logrus"
)

// CountReconciler 计数对账：以关系表/点赞表/评论表为准修正冗余计数
type CountReconciler struct {
	repo      *mysql.CountReconcilerRepo
	batchSize int
	interval  time.Duration
}

func NewCountReconciler(repo *mysql.CountReconcilerRepo, interval time.Duration) *CountReconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CountReconciler{
		repo:      repo,
		batchSize: 500,
		interval:  interval,
	}
}

// Run 对账定时任务启动器
func (r *CountReconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.ReconcileOnce(ctx)
		}
	}
}

// ReconcileOnce 全量扫一遍，返回修正的行数
func (r *CountReconciler) ReconcileOnce(ctx context.Context) int {
	fixed := r.reconcileUsers(ctx) + r.reconcilePosts(ctx)
	if fixed > 0 {
		pkg.Logger.WithFields(logrus.Fields{"source": "reconciler", "fixed": fixed}).Info("counts reconciled")
	}
	return fixed
}

func (r *CountReconciler) reconcileUsers(ctx context.Context) int {
	var last uint64
	fixed := 0
	for {
		users, next, err := r.repo.UserBatch(ctx, last, r.batchSize)
		if err != nil {
			pkg.LogError(err, "reconcile user batch failed")
			return fixed
		}
		for _, u := range users {
			following, err := r.repo.RealFollowing(ctx, u.ID)
			if err != nil {
				continue
			}
			followers, err := r.repo.RealFollowers(ctx, u.ID)
			if err != nil {
				continue
			}
			if following == u.FollowingCount && followers == u.FollowerCount {
				continue
			}
			if err := r.repo.FixUserCounts(ctx, u.ID, following, followers); err != nil {
				pkg.LogErrorWithUser(u.ID, err, "fix user counts failed")
				continue
			}
			fixed++
		}
		if len(users) < r.batchSize {
			return fixed
		}
		last = next
	}
}

func (r *CountReconciler) reconcilePosts(ctx context.Context) int {
	var last uint64
	fixed := 0
	for {
		posts, next, err := r.repo.PostBatch(ctx, last, r.batchSize)
		if err != nil {
			pkg.LogError(err, "reconcile post batch failed")
			return fixed
		}
		for _, p := range posts {
			likes, err := r.repo.RealLikes(ctx, p.ID)
			if err != nil {
				continue
			}
			comments, err := r.repo.RealComments(ctx, p.ID)
			if err != nil {
				continue
			}
			if likes == p.LikeCount && comments == p.CommentCount {
				continue
			}
			if err := r.repo.FixPostCounts(ctx, p.ID, likes, comments); err != nil {
				pkg.LogError(err, "fix post counts failed")
				continue
			}
			fixed++
		}
		if len(posts) < r.batchSize {
			return fixed
		}
		last = next
	}
}
