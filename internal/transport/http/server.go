package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appsvc "tasktracker/internal/app"
	"tasktracker/internal/bootstrap"
	"tasktracker/internal/repository"
	"tasktracker/internal/transport/http/handler"
	"tasktracker/internal/transport/http/middleware"
)

// NewRouter registers the public routes first and then installs the auth
// gate; every route added after the gate requires a live bearer token.
func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.Metrics())
	router.MaxMultipartMemory = app.Config.Upload.MaxAvatarBytes

	userRepo := repository.NewUserRepository(app.DB)
	projectRepo := repository.NewProjectRepository(app.DB)
	taskRepo := repository.NewTaskRepository(app.DB)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Hasher,
		app.Tokens,
		app.Revocations,
		app.Avatars,
		app.Publisher,
		app.Logger,
	)
	projectService := appsvc.NewProjectService(projectRepo)
	taskService := appsvc.NewTaskService(taskRepo, projectRepo)

	healthHandler := handler.NewHealthHandler(app)
	accountHandler := handler.NewAccountHandler(authService)
	projectHandler := handler.NewProjectHandler(projectService)
	taskHandler := handler.NewTaskHandler(taskService)

	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := middleware.NewIPRateLimiter(app.Config.RateLimit.AuthPerMinute, app.Config.RateLimit.AuthBurst)
	router.POST("/login", middleware.RateLimit(limiter), accountHandler.Login)
	router.POST("/register", middleware.RateLimit(limiter), accountHandler.Register)

	protected := router.Group("/")
	protected.Use(middleware.AuthGate(authService))

	protected.GET("/get-credentials", accountHandler.GetCredentials)
	protected.PUT("/change-credentials", accountHandler.ChangeCredentials)
	protected.DELETE("/delete-account", accountHandler.DeleteAccount)

	protected.POST("/project", projectHandler.Create)
	protected.GET("/projects", projectHandler.List)
	protected.GET("/project/:id", projectHandler.Get)
	protected.PUT("/project/:id", projectHandler.Update)
	protected.DELETE("/project/:id", projectHandler.Delete)

	protected.POST("/task", taskHandler.Create)
	protected.GET("/tasks", taskHandler.List)
	protected.GET("/task/:id", taskHandler.Get)
	protected.PUT("/task/:id", taskHandler.Update)
	protected.DELETE("/task/:id", taskHandler.Delete)

	return router
}
