package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edustack/school-api/internal/handler"
	"github.com/edustack/school-api/internal/middleware"
	"github.com/edustack/school-api/internal/models"
	"github.com/edustack/school-api/internal/service"
	"github.com/edustack/school-api/pkg/config"
	"github.com/edustack/school-api/pkg/logger"
	corsmiddleware "github.com/edustack/school-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edustack/school-api/pkg/middleware/requestid"
)

// Handlers bundles the HTTP handlers mounted by New.
type Handlers struct {
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Course *handler.CourseHandler
	News   *handler.NewsHandler
	File   *handler.FileHandler
}

// New assembles the gin engine with all middleware and routes.
func New(cfg *config.Config, logr *zap.Logger, authSvc *service.AuthService, metricsSvc *service.MetricsService, h Handlers, ready gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if ready == nil {
		ready = func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
		}
	}
	r.GET("/ready", ready)
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	api := r.Group(cfg.APIPrefix)

	api.POST("/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.POST("/auth/logout", h.Auth.Logout)

	authed.GET("/user", h.User.Me)
	authed.PUT("/user", h.User.UpdateMe)
	authed.GET("/user/:id", h.User.Get)

	students := authed.Group("/user/students")
	students.Use(middleware.RequireRoles(models.RoleTeacher))
	students.GET("", h.User.ListStudents)
	if cfg.Exports.Enabled {
		students.GET("/export", h.User.ExportStudents)
	}

	authed.GET("/courses", h.Course.List)
	authed.POST("/courses", h.Course.Create)
	authed.GET("/courses/:id", h.Course.Get)
	authed.PUT("/courses/:id", h.Course.Update)
	authed.DELETE("/courses/:id", h.Course.Delete)

	authed.GET("/news", h.News.List)
	authed.POST("/news", h.News.Create)

	authed.GET("/files", h.File.List)
	authed.POST("/files", h.File.Create)
	authed.GET("/files/:id", h.File.Get)
	authed.PUT("/files/:id", h.File.Update)
	authed.DELETE("/files/:id", h.File.Delete)

	return r
}
