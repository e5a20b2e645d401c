package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Darkqurk/hankki1/internal/api"
	"github.com/Darkqurk/hankki1/internal/core/cache"
	"github.com/Darkqurk/hankki1/internal/core/feed"
	"github.com/Darkqurk/hankki1/internal/core/pantry"
	"github.com/Darkqurk/hankki1/internal/core/recipe"
	"github.com/Darkqurk/hankki1/internal/core/recommend"
	"github.com/Darkqurk/hankki1/internal/infrastructure/config"
	"github.com/Darkqurk/hankki1/internal/infrastructure/database"
	"github.com/Darkqurk/hankki1/internal/infrastructure/store"
	"github.com/Darkqurk/hankki1/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（包含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("feed_enabled", cfg.Feed.Enabled),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()

	// 初始化資料存取
	repo, cleanup, err := openStore(startCtx, cfg)
	if err != nil {
		common.LogFatal("Failed to initialize store", zap.Error(err))
	}
	defer cleanup()

	// 初始化快取
	cacheStore, err := cache.New(startCtx, cfg)
	if err != nil {
		common.LogFatal("Failed to initialize cache", zap.Error(err))
	}
	defer cacheStore.Close()

	// 外部食譜來源，停用時不補充
	var seeder recommend.Seeder
	if cfg.Feed.Enabled {
		seeder = feed.NewSeeder(feed.NewClient(&cfg.Feed), repo, &cfg.Feed)
	}

	recommendSvc := recommend.NewService(repo, cacheStore, seeder, recommend.Options{
		DefaultTop:     cfg.Recommend.DefaultTop,
		CacheTTL:       cfg.Cache.TTL,
		InvalidateTops: cfg.Recommend.InvalidateTops,
	})

	router := api.SetupRouter(cfg, api.Dependencies{
		Store:        repo,
		Recommend:    recommendSvc,
		Pantry:       pantry.NewService(repo),
		Recipe:       recipe.NewService(repo, recommendSvc),
		CacheBackend: cacheStore.Backend(),
	})

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}

// openStore 依 database.driver 建立資料存取層
func openStore(ctx context.Context, cfg *config.Config) (store.Repository, func(), error) {
	if cfg.Database.Driver != "postgres" {
		common.LogWarn("Using in-memory store, data is lost on restart")
		return store.NewMemory(), func() {}, nil
	}

	db, err := database.Connect(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := database.Close(db); err != nil {
			common.LogError("Failed to close database", zap.Error(err))
		}
	}
	return store.NewGorm(db), cleanup, nil
}
