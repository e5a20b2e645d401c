package api

import (
	"time"

	"github.com/Darkqurk/hankki1/internal/api/handlers/health"
	pantryHandler "github.com/Darkqurk/hankki1/internal/api/handlers/pantry"
	recipeHandler "github.com/Darkqurk/hankki1/internal/api/handlers/recipe"
	recommendHandler "github.com/Darkqurk/hankki1/internal/api/handlers/recommend"
	"github.com/Darkqurk/hankki1/internal/api/middleware"
	"github.com/Darkqurk/hankki1/internal/core/pantry"
	"github.com/Darkqurk/hankki1/internal/core/recipe"
	"github.com/Darkqurk/hankki1/internal/core/recommend"
	"github.com/Darkqurk/hankki1/internal/infrastructure/config"
	"github.com/Darkqurk/hankki1/internal/infrastructure/store"
	"github.com/Darkqurk/hankki1/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies 路由需要的服務
type Dependencies struct {
	Store        store.Repository
	Recommend    *recommend.Service
	Pantry       *pantry.Service
	Recipe       *recipe.Service
	CacheBackend string
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New()) // 自動生成請求 ID
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(corsConfig(cfg.Server.AllowOrigins)))

	// 請求體大小限制與超時
	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg, deps.Store, deps.CacheBackend)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API 路由組
	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	api.Use(middleware.CurrentUser(deps.Store))
	{
		rh := recommendHandler.NewHandler(deps.Recommend)
		dedup := middleware.NewDeduplicator(cfg.DedupWindow).Handler()

		api.GET("/recommendations", rh.HandleRecommendations)
		api.GET("/recommendations/history", rh.HandleHistory)
		api.GET("/recommendations/conversion", rh.HandleConversion)

		// 靜態路徑與 :id 並存
		fh := recipeHandler.NewHandler(deps.Recipe)
		recipeGroup := api.Group("/recipes")
		{
			recipeGroup.GET("/search", fh.HandleSearch)
			recipeGroup.GET("/mine", fh.HandleListMine)
			recipeGroup.POST("/mine", dedup, fh.HandleCreate)
			recipeGroup.DELETE("/mine/:id", fh.HandleDelete)
			recipeGroup.GET("/:id", fh.HandleDetail)
			recipeGroup.GET("/:id/score", rh.HandleScore)
		}

		api.POST("/actions", dedup, rh.HandleAction)

		savedGroup := api.Group("/saved")
		{
			savedGroup.GET("", rh.HandleSavedList)
			savedGroup.POST("", dedup, rh.HandleSave)
			savedGroup.DELETE("/:recipe_id", rh.HandleUnsave)
		}

		api.GET("/profile", rh.HandleGetProfile)
		api.PUT("/profile", rh.HandleUpdateProfile)

		ph := pantryHandler.NewHandler(deps.Pantry)
		pantryGroup := api.Group("/pantry")
		{
			pantryGroup.GET("", ph.HandleList)
			pantryGroup.POST("", ph.HandleAdd)
			pantryGroup.PATCH("/:id", ph.HandleUpdate)
			pantryGroup.DELETE("/:id", ph.HandleDelete)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.String("cache_backend", deps.CacheBackend),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router
}

// corsConfig 未指定來源或為 * 時允許所有來源，此時不可帶憑證
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID", "X-User-ID", "X-DEMO-USER"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID", "X-Cache"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
