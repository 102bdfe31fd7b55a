package handler

import (
	"net/http"

	"Lee_Social/internal/service"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	svc *service.CommentService
}

type CommentReq struct {
	Content string `json:"content" binding:"required"`
}

func NewCommentHandler(svc *service.CommentService) *CommentHandler {
	return &CommentHandler{svc: svc}
}

func (h *CommentHandler) ListComments(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, size := pageQuery(c)
	out, err := h.svc.ListComments(c.Request.Context(), postID, page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// CreateComment 帖子不存在返回 404
func (h *CommentHandler) CreateComment(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	comment, err := h.svc.CreateComment(c.Request.Context(), postID, userIDFromCtx(c), req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) GetComment(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	id, ok := pathID(c, "cid")
	if !ok {
		return
	}
	comment, err := h.svc.GetComment(c.Request.Context(), postID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) UpdateComment(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	id, ok := pathID(c, "cid")
	if !ok {
		return
	}
	var req CommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	comment, err := h.svc.UpdateComment(c.Request.Context(), userIDFromCtx(c), postID, id, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) DeleteComment(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	id, ok := pathID(c, "cid")
	if !ok {
		return
	}
	if err := h.svc.DeleteComment(c.Request.Context(), userIDFromCtx(c), postID, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
