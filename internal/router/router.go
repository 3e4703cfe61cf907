package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/moovie-social/internal/handler"
	"github.com/user/moovie-social/internal/middleware"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查与指标
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ==================== 认证 ====================
	auth := r.Group("/auth")
	auth.Use(middleware.RequireJSON())
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	// ==================== API（需要登录）====================
	api := r.Group("/api")
	api.Use(middleware.RequireAuth(h.Config.AppSecret), middleware.RequireJSON())

	handler.NewMediaHandler(h.Movies).Register(api.Group("/movies"))
	handler.NewMediaHandler(h.Series).Register(api.Group("/series"))

	api.GET("/allmedia", h.AllMedia)
	api.GET("/media/commented", h.CommentedMedia)

	status := api.Group("/status")
	{
		status.POST("", h.UpsertStatus)
		status.GET("", h.GetStatus)
		status.GET("/all", h.ListStatuses)
		status.PUT("/:id", h.UpdateStatus)
		status.DELETE("/:id", h.DeleteStatus)
	}

	comments := api.Group("/comments")
	{
		comments.POST("", h.CreateComment)
		comments.GET("", h.ListComments)
		comments.PUT("/:id", h.UpdateComment)
		comments.DELETE("/:id", h.DeleteComment)
	}

	users := api.Group("/users")
	{
		users.GET("/search/:query", h.SearchUsers)
		users.GET("/feed", h.Feed)
		users.POST("/follow/:userId", h.Follow)
		users.POST("/unfollow/:userId", h.Unfollow)
		users.GET("/:userId", h.Profile)
	}
}

// New 创建带全局中间件的引擎
func New(h *handler.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Security())
	r.Use(middleware.CORS(h.Config.CORSOrigins))
	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	RegisterRoutes(r, h)
	return r
}
