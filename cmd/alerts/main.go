package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/cache"
	"github.com/farihafhf/provabook-3-sub000/internal/config"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
	"github.com/farihafhf/provabook-3-sub000/internal/service"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	job := flag.String("job", "all", "job to run: etd, eta, reminders or all")
	daemon := flag.Bool("daemon", false, "keep running and execute once per day at scheduler.run_at")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	db, err := repository.Open(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 锁只用于跨进程去重，redis 不可用时由数据库去重兜底
	var locker service.Locker
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	rdb, err := cache.NewClient(pingCtx, cfg.Redis)
	cancel()
	if err != nil {
		zapLogger.Warn("Redis unavailable, running without job lock", zap.Error(err))
	} else {
		defer rdb.Close()
		locker = cache.NewJobLock(rdb)
	}

	alerts := service.NewAlertService(repository.NewRepositories(db), locker, cfg.Scheduler, zapLogger)

	if !*daemon {
		if err := runJobs(ctx, alerts, *job); err != nil {
			zapLogger.Error("Alert run failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	loc := cfg.Scheduler.Location()
	for {
		next, err := service.NextRunAt(time.Now(), cfg.Scheduler.RunAt, loc)
		if err != nil {
			zapLogger.Fatal("Invalid scheduler config", zap.Error(err))
		}
		zapLogger.Info("Next alert run scheduled", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			zapLogger.Info("Alert runner exited")
			return
		case <-timer.C:
		}

		if err := runJobs(ctx, alerts, *job); err != nil {
			zapLogger.Error("Alert run failed", zap.Error(err))
		}
	}
}

func runJobs(ctx context.Context, alerts *service.AlertService, job string) error {
	if job == "all" {
		_, err := alerts.RunAll(ctx)
		return err
	}
	_, err := alerts.Run(ctx, job)
	return err
}
