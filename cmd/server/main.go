package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/cache"
	"github.com/farihafhf/provabook-3-sub000/internal/config"
	"github.com/farihafhf/provabook-3-sub000/internal/handler"
	"github.com/farihafhf/provabook-3-sub000/internal/middleware"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
	"github.com/farihafhf/provabook-3-sub000/internal/service"
	"github.com/farihafhf/provabook-3-sub000/internal/storage"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	zapLogger.Info("Starting provabook service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := repository.Open(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := repository.Migrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	deps := service.Dependencies{Logger: zapLogger}

	// Redis：refresh token 与任务锁，不可用时退回进程内存储
	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	rdb, err := cache.NewClient(startCtx, cfg.Redis)
	if err != nil {
		zapLogger.Warn("Redis unavailable, using in-memory token store", zap.Error(err))
		mem := cache.NewMemoryStore()
		deps.Tokens = mem
		deps.Locker = mem
	} else {
		defer rdb.Close()
		deps.Tokens = cache.NewTokenStore(rdb)
		deps.Locker = cache.NewJobLock(rdb)
	}

	// 对象存储
	if cfg.MinIO.Endpoint != "" {
		blob, err := storage.NewMinIOStore(cfg.MinIO)
		if err == nil {
			err = blob.EnsureBucket(startCtx)
		}
		if err != nil {
			zapLogger.Warn("MinIO unavailable, using in-memory blob store", zap.Error(err))
			deps.Blob = storage.NewMemoryStore()
		} else {
			deps.Blob = blob
		}
	} else {
		zapLogger.Warn("MinIO endpoint not configured, using in-memory blob store")
		deps.Blob = storage.NewMemoryStore()
	}
	cancel()

	services := service.NewServices(repository.NewRepositories(db), deps, cfg)
	handlers := handler.NewHandlers(services, cfg)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	// 文件下载和导出不压缩
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{
		`/documents/[^/]+/download$`,
		`/download-po$`,
		`/export-(excel|tna)$`,
	})))
	router.Use(middleware.KeyCase())

	handler.RegisterRoutes(router, handlers, cfg.JWT.Secret)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}
