package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/user/moovie-social/internal/config"
	"github.com/user/moovie-social/internal/handler"
	"github.com/user/moovie-social/internal/logger"
	"github.com/user/moovie-social/internal/repository"
	"github.com/user/moovie-social/internal/router"
	"github.com/user/moovie-social/internal/service"
)

func main() {
	// 加载环境变量
	envErr := godotenv.Load()

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.Env == "production")
	log := logger.Get()
	if envErr != nil {
		log.Info("未找到 .env 文件，使用系统环境变量")
	}

	// 初始化数据库
	db, err := repository.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	repos := repository.NewRepositories(db)

	// 目录搜索缓存：配置了 Redis 则多实例共享，否则进程内 LRU
	var searchCache service.CatalogCache
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		client, err := service.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		cancel()
		if err != nil {
			log.WithError(err).Warn("Redis 不可用，降级为进程内缓存")
		} else {
			defer client.Close()
			searchCache = service.NewRedisCatalogCache(client, time.Hour)
		}
	}
	if cfg.TMDBAPIKey == "" && cfg.TMDBToken == "" {
		log.Warn("未配置 TMDB_API_KEY / TMDB_TOKEN，搜索与补全将失败")
	}
	catalog := service.NewTMDBService(service.TMDBOptionsFromConfig(cfg), searchCache)

	// 初始化 Gin
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handler.NewHandler(repos, cfg, catalog)
	r := router.New(h)

	// 启动定时清理任务
	cleanupSvc := service.NewCleanupService(repos)
	if err := cleanupSvc.Start(cfg.CleanupCron); err != nil {
		log.Fatalf("清理任务配置无效 (%s): %v", cfg.CleanupCron, err)
	}
	defer cleanupSvc.Stop()

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Infof("服务器启动于 http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("服务器强制关闭: %v", err)
	}

	log.Info("服务器已退出")
}
