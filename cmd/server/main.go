package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jengzang/places-backend-go/internal/api"
	"github.com/jengzang/places-backend-go/internal/config"
	"github.com/jengzang/places-backend-go/internal/database"
	"github.com/jengzang/places-backend-go/internal/events"
	"github.com/jengzang/places-backend-go/internal/handler"
	"github.com/jengzang/places-backend-go/internal/photos"
	"github.com/jengzang/places-backend-go/internal/repository"
	"github.com/jengzang/places-backend-go/internal/service"
	"github.com/jengzang/places-backend-go/internal/tracking"
)

func main() {
	// 加载配置
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// 初始化数据库
	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := database.NewMigrationManager(db, logger).RunMigrations(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// 事件总线
	bus := events.NewBus(logger)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 仓储与追踪管线
	placeRepo := repository.NewPlaceRepository(db, bus, logger)

	sampler := tracking.NewSampler(tracking.SamplerConfig{
		DistanceFilter:  cfg.DistanceFilter,
		AllowBackground: cfg.AllowBackground,
		Buffer:          64,
	}, bus, logger)

	detector := tracking.NewDetector(cfg.MonitoringDistance)

	tracker := tracking.NewTracker(placeRepo, tracking.TrackerConfig{
		NearbyRadius:       cfg.NearbyRadius,
		CheckpointInterval: cfg.CheckpointInterval,
	}, logger)

	merger := tracking.NewMerger(placeRepo, tracking.MergerConfig{
		Radius:       cfg.NearbyRadius,
		Interval:     cfg.MergeInterval,
		InitialDelay: cfg.MergeInitialDelay,
	}, logger)

	coordinator := tracking.NewCoordinator(sampler, detector, tracker, logger)

	go coordinator.Run(ctx)
	go tracker.RunCheckpoints(ctx)
	go merger.Run(ctx)

	// 服务层
	placeService := service.NewPlaceService(placeRepo)
	statsService := service.NewStatsService(placeRepo, bus, logger)
	trackingService := service.NewTrackingService(sampler, tracker, coordinator)

	if err := statsService.Watch(ctx); err != nil {
		logger.Warn("stats watcher unavailable", zap.Error(err))
	}

	importer := photos.NewImporter(placeRepo, nil, logger)

	// 初始化路由
	router := api.SetupRouter(cfg, logger, api.Handlers{
		Places:   handler.NewPlaceHandler(placeService),
		Location: handler.NewLocationHandler(trackingService),
		Stats:    handler.NewStatsHandler(statsService),
		Import:   handler.NewImportHandler(importer, cfg.PhotoDir),
		Auth:     handler.NewAuthHandler(cfg.JWTSecret),
	})

	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 优雅关机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}

	// Final flush of any open session before the process exits
	coordinator.Shutdown()
	cancel()
}
