package handler

import (
	"net/http"

	"Lee_Social/internal/service"

	"github.com/gin-gonic/gin"
)

type PostLikeHandler struct {
	svc *service.PostLikeService
}

func NewPostLikeHandler(svc *service.PostLikeService) *PostLikeHandler {
	return &PostLikeHandler{svc: svc}
}

// Like 点赞，重复点赞/给自己点赞返回 400
func (h *PostLikeHandler) Like(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Like(c.Request.Context(), postID, userIDFromCtx(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"msg": "post liked"})
}

// Unlike 取消点赞，没点过赞返回 400
func (h *PostLikeHandler) Unlike(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Unlike(c.Request.Context(), postID, userIDFromCtx(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "post unliked"})
}

// IsLiked 当前用户是否点过赞
func (h *PostLikeHandler) IsLiked(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	liked, err := h.svc.IsLiked(c.Request.Context(), postID, userIDFromCtx(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

// GetLikeCount 点赞数（走缓存）
func (h *PostLikeHandler) GetLikeCount(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	cnt, err := h.svc.LikeCount(c.Request.Context(), postID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": cnt})
}
