package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jengzang/places-backend-go/internal/config"
	"github.com/jengzang/places-backend-go/internal/handler"
	"github.com/jengzang/places-backend-go/internal/middleware"
)

// Handlers bundles the handler set wired by cmd/server
type Handlers struct {
	Places   *handler.PlaceHandler
	Location *handler.LocationHandler
	Stats    *handler.StatsHandler
	Import   *handler.ImportHandler
	Auth     *handler.AuthHandler
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, logger *zap.Logger, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Places Backend API is running",
		})
	})

	// API 路由组
	api := r.Group("/api/v1")
	{
		api.POST("/auth/token", h.Auth.PostToken)

		// 地点相关接口
		places := api.Group("/places")
		{
			places.GET("", h.Places.GetPlaces)
			places.GET("/:id", h.Places.GetPlaceByID)
			places.POST("", middleware.Auth(cfg.JWTSecret), h.Places.CreatePlace)
			places.PUT("/:id/name", middleware.Auth(cfg.JWTSecret), h.Places.RenamePlace)
			places.DELETE("/:id", middleware.Auth(cfg.JWTSecret), h.Places.DeletePlace)
		}

		// 定位追踪接口
		location := api.Group("/location")
		{
			// Device fix ingest takes the heaviest traffic
			location.POST("/fixes", middleware.RateLimit(120, time.Minute), h.Location.PostFix)
			location.POST("/authorization", h.Location.PostAuthorization)
			location.POST("/lifecycle", h.Location.PostLifecycle)
			location.POST("/start", h.Location.PostStart)
			location.POST("/stop", h.Location.PostStop)
			location.GET("/status", h.Location.GetStatus)
		}

		// 旅行统计接口
		stats := api.Group("/stats")
		{
			stats.GET("/summary", h.Stats.GetSummary)
		}

		// 照片导入接口
		photos := api.Group("/photos")
		{
			photos.POST("/import", middleware.Auth(cfg.JWTSecret), h.Import.PostImport)
		}
	}

	return r
}
