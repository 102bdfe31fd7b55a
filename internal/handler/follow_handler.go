package handler

import (
	"context"
	"net/http"
	"strconv"

	"Lee_Social/internal/service"

	"github.com/gin-gonic/gin"
)

type FollowHandler struct {
	svc *service.FollowService
}

func NewFollowHandler(svc *service.FollowService) *FollowHandler {
	return &FollowHandler{svc: svc}
}

// Follow 关注 :id
func (h *FollowHandler) Follow(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	changed, err := h.svc.Follow(c.Request.Context(), userIDFromCtx(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "followed", "changed": changed})
}

// Unfollow 取消关注 :id，本来没关注也返回成功
func (h *FollowHandler) Unfollow(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	changed, err := h.svc.Unfollow(c.Request.Context(), userIDFromCtx(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "unfollowed", "changed": changed})
}

// ListFollowings 获取关注的人列表
func (h *FollowHandler) ListFollowings(c *gin.Context) {
	h.list(c, h.svc.ListFollowings)
}

// ListFollowers 获取粉丝列表
func (h *FollowHandler) ListFollowers(c *gin.Context) {
	h.list(c, h.svc.ListFollowers)
}

type listFunc func(ctx context.Context, userID, cursor uint64, limit int) (*service.FollowList, error)

func (h *FollowHandler) list(c *gin.Context, fn listFunc) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cursor, _ := strconv.ParseUint(c.Query("cursor"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	out, err := fn(c.Request.Context(), id, cursor, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Relation 当前用户是否关注了 :id
func (h *FollowHandler) Relation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	following, err := h.svc.IsFollowing(c.Request.Context(), userIDFromCtx(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}
