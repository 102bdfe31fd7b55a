package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"Lee_Social/internal/config"
	"Lee_Social/internal/handler"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/policy"
	"Lee_Social/internal/repository/mysql"
	"Lee_Social/internal/repository/redis"
	"Lee_Social/internal/router"
	"Lee_Social/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	pkg.SetLogLevel(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	db, err := mysql.InitDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		pkg.Logger.WithError(err).Fatal("connect database")
	}
	// 自动建表（开发阶段 OK）
	if err := mysql.Migrate(db); err != nil {
		pkg.Logger.WithError(err).Fatal("migrate")
	}

	// 连接redis
	rdb, err := redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		pkg.Logger.WithError(err).Fatal("connect redis")
	}
	defer rdb.Close()

	tokens := pkg.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
	sessions := redis.NewSessionRepository(rdb)
	auth := policy.New()

	userRepo := mysql.NewUserRepository(db)
	postRepo := mysql.NewPostRepository(db)
	commentRepo := mysql.NewCommentRepository(db)

	notifications := service.NewNotificationService(mysql.NewNotificationRepository(db), userRepo, postRepo, commentRepo, auth)
	users := service.NewUserService(userRepo, sessions, tokens)
	follows := service.NewFollowService(mysql.NewFollowRepository(db), userRepo, notifications)
	posts := service.NewPostService(postRepo, auth)
	comments := service.NewCommentService(commentRepo, postRepo, auth, notifications)
	likes := service.NewPostLikeService(mysql.NewPostLikeRepository(db), postRepo,
		redis.NewLikeCacheRepository(rdb), redis.NewDistLock(rdb), notifications)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// outbox 投递：默认打日志，配置了 kafka/smtp 时一起投递
	senders := []service.Channel{{Name: "log", Send: service.LogSender}}
	if len(cfg.KafkaBrokers) > 0 {
		producer := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		defer producer.Close()
		senders = append(senders, service.Channel{Name: "kafka", Send: service.KafkaSender(producer)})
	}
	smtp := pkg.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}
	if smtp.Enabled() {
		senders = append(senders, service.Channel{Name: "mail", Send: service.MailSender(pkg.NewMailer(smtp), userRepo)})
	}
	go service.NewOutboxRelayer(mysql.NewOutboxRepository(db), cfg.OutboxInterval, service.MultiSender(senders...)).Run(ctx)
	go service.NewCountReconciler(mysql.NewCountReconcilerRepo(db), cfg.ReconcileInterval).Run(ctx)

	r := router.InitRouter(router.Handlers{
		User:         handler.NewUserHandler(users),
		Follow:       handler.NewFollowHandler(follows),
		Post:         handler.NewPostHandler(posts),
		Comment:      handler.NewCommentHandler(comments),
		PostLike:     handler.NewPostLikeHandler(likes),
		Notification: handler.NewNotificationHandler(notifications),
	}, router.Options{
		Tokens:      tokens,
		Sessions:    sessions,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		pkg.Logger.WithFields(logrus.Fields{"port": cfg.AppPort, "db": cfg.DBDriver}).Info("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			pkg.Logger.WithError(err).Fatal("listen")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		pkg.LogError(err, "server shutdown")
	}
	pkg.LogInfo("server stopped")
}
