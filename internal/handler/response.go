package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"Lee_Social/internal/middleware"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidation 校验错误里用 json 字段名
func RegisterValidation() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	}
}

// writeError 按错误类型映射 HTTP 状态码
func writeError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, service.ErrAuthentication):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotLiked):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrSelfReference),
		errors.Is(err, service.ErrSelfLike),
		errors.Is(err, service.ErrDuplicateAction),
		errors.Is(err, service.ErrInvalidArgument):
		status = http.StatusBadRequest
	default:
		pkg.LogErrorWithUser(userIDFromCtx(c), err, c.Request.Method+" "+c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"msg": err.Error()})
}

// writeBindError 参数校验失败时返回具体字段
func writeBindError(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
}

func userIDFromCtx(c *gin.Context) uint64 {
	if v, ok := c.Get(middleware.ContextUserIDKey); ok {
		if id, ok2 := v.(uint64); ok2 {
			return id
		}
	}
	return 0
}

// pathID 解析路径上的 id，非法时直接写 404
func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"msg": "not found"})
		return 0, false
	}
	return id, true
}

func pageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("page_size"))
	return page, size
}
