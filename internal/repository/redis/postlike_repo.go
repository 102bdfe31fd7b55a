package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	LikeSetTTL       = 24 * time.Hour
	LikeCntTTL       = 24 * time.Hour
	LockTTL          = 300 * time.Millisecond
	LikeSetKeyPrefix = "like:set:post"  // 存放某个帖子已点赞的用户ID集合
	LikeCntKeyPrefix = "like:cnt:post"  // 缓存某个帖子的点赞计数
	LockKeyPrefix    = "lock:like:post" // 分布式锁
)

type LikeCacheRepository struct {
	Client     *redis.Client
	likeSetTTL time.Duration
	likeCntTTL time.Duration
}

type DistLock struct {
	Client *redis.Client
}

func NewLikeCacheRepository(c *redis.Client) *LikeCacheRepository {
	return &LikeCacheRepository{
		Client:     c,
		likeSetTTL: LikeSetTTL,
		likeCntTTL: LikeCntTTL,
	}
}

func NewDistLock(c *redis.Client) *DistLock {
	return &DistLock{Client: c}
}

func (r *LikeCacheRepository) likeSetKey(postID uint64) string {
	return fmt.Sprintf("%s:%d", LikeSetKeyPrefix, postID)
}

func (r *LikeCacheRepository) likeCntKey(postID uint64) string {
	return fmt.Sprintf("%s:%d", LikeCntKeyPrefix, postID)
}

// AddLike 写路径：成功写库后再调用。计数 key 不存在时不创建，交给读侧回填
func (r *LikeCacheRepository) AddLike(ctx context.Context, userID, postID uint64) error {
	r.WarmIsLiked(ctx, userID, postID, true)

	ck := r.likeCntKey(postID)
	if err := r.Client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, ck).Result()
		if err != nil || n == 0 {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Incr(ctx, ck)
			p.Expire(ctx, ck, r.likeCntTTL)
			return nil
		})
		return err
	}, ck); err != nil {
		return err
	}
	return nil
}

func (r *LikeCacheRepository) RemoveLike(ctx context.Context, userID, postID uint64) error {
	r.WarmIsLiked(ctx, userID, postID, false)

	ck := r.likeCntKey(postID)
	// 计数防负数
	return r.Client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, ck).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if val <= 0 {
			// 若不存在或<=0，直接返回，交给读侧回填
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Decr(ctx, ck)
			return nil
		})
		return err
	}, ck)
}

// IsLikedCached 返回 (是否点赞, 缓存是否命中, err)
func (r *LikeCacheRepository) IsLikedCached(ctx context.Context, userID, postID uint64) (bool, bool, error) {
	k := r.likeSetKey(postID)
	exists, err := r.Client.Exists(ctx, k).Result()
	if err != nil {
		return false, false, err
	}
	if exists == 0 {
		return false, false, nil
	}
	b, err := r.Client.SIsMember(ctx, k, userID).Result()
	return b, true, err
}

// SeedLikers 用库里的点赞用户重建集合；空集合写一个占位成员避免反复回源
func (r *LikeCacheRepository) SeedLikers(ctx context.Context, postID uint64, userIDs []uint64) error {
	k := r.likeSetKey(postID)
	members := make([]any, 0, len(userIDs)+1)
	members = append(members, 0)
	for _, id := range userIDs {
		members = append(members, id)
	}
	_, err := r.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		p.SAdd(ctx, k, members...)
		p.Expire(ctx, k, r.likeSetTTL)
		return nil
	})
	return err
}

// GetLikeCountCached 从缓存读取帖子的点赞数量
func (r *LikeCacheRepository) GetLikeCountCached(ctx context.Context, postID uint64) (int64, bool, error) {
	val, err := r.Client.Get(ctx, r.likeCntKey(postID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	return val, err == nil, err
}

// SetLikeCount 回填帖子点赞数
func (r *LikeCacheRepository) SetLikeCount(ctx context.Context, postID uint64, cnt int64) error {
	return r.Client.Set(ctx, r.likeCntKey(postID), cnt, r.likeCntTTL).Err()
}

// WarmIsLiked 惰性回填：只在集合已存在时写，避免无界扩张
func (r *LikeCacheRepository) WarmIsLiked(ctx context.Context, userID, postID uint64, liked bool) {
	k := r.likeSetKey(postID)
	if ok, _ := r.Client.Exists(ctx, k).Result(); ok > 0 {
		if liked {
			_ = r.Client.SAdd(ctx, k, userID).Err()
		} else {
			_ = r.Client.SRem(ctx, k, userID).Err()
		}
		_ = r.Client.Expire(ctx, k, r.likeSetTTL).Err()
	}
}

// DeleteCount 删除计数缓存
func (r *LikeCacheRepository) DeleteCount(ctx context.Context, postID uint64) error {
	if err := r.Client.Del(ctx, r.likeCntKey(postID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// Acquire 请求加分布式锁
func (l *DistLock) Acquire(ctx context.Context, postID uint64, token string) (bool, error) {
	key := fmt.Sprintf("%s:%d", LockKeyPrefix, postID)
	return l.Client.SetNX(ctx, key, token, LockTTL).Result()
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// Release 用lua保证只释放自己的锁
func (l *DistLock) Release(ctx context.Context, postID uint64, token string) error {
	key := fmt.Sprintf("%s:%d", LockKeyPrefix, postID)
	return releaseScript.Run(ctx, l.Client, []string{key}, token).Err()
}
