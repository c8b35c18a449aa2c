package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/sleepgraph/config"
	"github.com/d60-Lab/sleepgraph/internal/api/handler"
	"github.com/d60-Lab/sleepgraph/internal/api/middleware"
)

// NewRouter 组装 gin 引擎：gzip + otel + 限流 + swagger + 业务路由
func NewRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(otelgin.Middleware("sleepgraph"))
	if cfg.RateLimit.RPS > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			users.POST("", h.CreateUser)
			users.GET("", h.ListUsers)
			users.GET("/:user_id", h.GetUser)
			users.DELETE("/:user_id", h.DeleteUser)

			users.POST("/:user_id/sleep_records", h.ClockToggle)
			users.GET("/:user_id/sleep_records", h.SleepHistory)
			users.GET("/:user_id/sleep_records/friends", h.FriendsFeed)

			users.POST("/:user_id/follows", h.Follow)
			users.GET("/:user_id/follows", h.ListFollowing)
			users.DELETE("/:user_id/follows/:target_user_id", h.Unfollow)
			users.GET("/:user_id/followers", h.ListFollowers)
		}
	}
	return r
}
