package router

import (
	"time"

	"Lee_Social/internal/handler"
	"Lee_Social/internal/middleware"
	"Lee_Social/internal/pkg"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	User         *handler.UserHandler
	Follow       *handler.FollowHandler
	Post         *handler.PostHandler
	Comment      *handler.CommentHandler
	PostLike     *handler.PostLikeHandler
	Notification *handler.NotificationHandler
}

type Options struct {
	Tokens      *pkg.TokenManager
	Sessions    middleware.TokenStore
	CORSOrigins []string
}

func InitRouter(h Handlers, opt Options) *gin.Engine {
	handler.RegisterValidation()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(opt.CORSOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = opt.CORSOrigins
	}
	r.Use(cors.New(corsCfg))

	auth := middleware.AuthMiddleware(opt.Tokens, opt.Sessions)
	api := r.Group("/api")

	// 用户相关接口
	userGroup := api.Group("/user")
	{
		userGroup.POST("/register", h.User.Register)
		userGroup.POST("/login", h.User.Login)
		userGroup.POST("/logout", auth, h.User.Logout)
		userGroup.GET("/profile", auth, h.User.Profile)
		userGroup.PATCH("/profile", auth, h.User.UpdateProfile)
	}

	// token相关接口
	api.POST("/token/refresh", h.User.TokenRefresh)

	// 登录态接口
	authGroup := api.Group("/auth", auth)
	{
		authGroup.POST("/change-password", h.User.ChangePassword)
	}

	// 用户关注相关接口
	users := api.Group("/users/:id", auth)
	{
		users.POST("/follow", h.Follow.Follow)
		users.POST("/unfollow", h.Follow.Unfollow)
		users.GET("/followers", h.Follow.ListFollowers)
		users.GET("/followings", h.Follow.ListFollowings)
		users.GET("/relation", h.Follow.Relation)
	}

	// 帖子相关接口：读公开，写需要登录
	posts := api.Group("/posts")
	{
		posts.GET("", h.Post.ListPosts)
		posts.GET("/:id", h.Post.GetPost)
		posts.GET("/:id/comments", h.Comment.ListComments)
		posts.GET("/:id/comments/:cid", h.Comment.GetComment)
		posts.GET("/:id/likes/count", h.PostLike.GetLikeCount)
	}
	authPosts := api.Group("/posts", auth)
	{
		authPosts.GET("/feed", h.Post.Feed)
		authPosts.POST("", h.Post.CreatePost)
		authPosts.PUT("/:id", h.Post.UpdatePost)
		authPosts.PATCH("/:id", h.Post.UpdatePost)
		authPosts.DELETE("/:id", h.Post.DeletePost)

		authPosts.POST("/:id/like", h.PostLike.Like)
		authPosts.POST("/:id/unlike", h.PostLike.Unlike)
		authPosts.GET("/:id/liked", h.PostLike.IsLiked)

		authPosts.POST("/:id/comments", h.Comment.CreateComment)
		authPosts.PUT("/:id/comments/:cid", h.Comment.UpdateComment)
		authPosts.PATCH("/:id/comments/:cid", h.Comment.UpdateComment)
		authPosts.DELETE("/:id/comments/:cid", h.Comment.DeleteComment)
	}

	notifications := api.Group("/notifications", auth)
	{
		notifications.GET("", h.Notification.List)
		notifications.GET("/unread_count", h.Notification.UnreadCount)
		notifications.POST("/mark_all_read", h.Notification.MarkAllRead)
		notifications.GET("/:id", h.Notification.Get)
	}

	return r
}
