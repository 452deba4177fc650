package http

import (
	"time"

	"github.com/geocoder89/perfeval/internal/app"
	"github.com/geocoder89/perfeval/internal/domain/user"
	"github.com/geocoder89/perfeval/internal/http/handlers"
	"github.com/geocoder89/perfeval/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(a *app.App) *gin.Engine {
	if !a.Config.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(a.Config.ServiceName))
	r.Use(middlewares.RequestLogger(a.Log))
	if a.Prom != nil {
		r.Use(a.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(a.Config.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(a.Config.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	health := handlers.NewHealthHandler(a.Ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	if a.Prom != nil {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	authn := middlewares.NewAuthMiddleware(a.Tokens, a.Revoker, a.Users)
	adminOnly := middlewares.RequireRole(user.RoleAdmin)
	staff := middlewares.RequireRole(user.RoleAdmin, user.RoleEvaluator)

	// wire up handlers
	authHandler := handlers.NewAuthHandler(a.Auth, a.Users, a.Tokens, a.Revoker, a.Prom)
	usersHandler := handlers.NewUsersHandler(a.Auth, a.Users)
	criteriaHandler := handlers.NewCriteriaHandler(a.Criteria)
	evaluationsHandler := handlers.NewEvaluationsHandler(a.Evaluations, a.Users, a.Engine, a.Rating)
	reportsHandler := handlers.NewReportsHandler(a.Engine, a.Users, a.Criteria, a.Evaluations, a.Exporter, a.Prom)
	dashboardHandler := handlers.NewDashboardHandler(a.Users, a.Engine, a.Evaluations, a.Engine)

	loginLimiter := middlewares.NewRateLimiter(a.Config.LoginRateLimit, time.Minute)
	r.POST("/auth/login", loginLimiter.Middleware(middlewares.KeyByIP), authHandler.Login)

	api := r.Group("/")
	api.Use(authn.RequireAuth())
	{
		api.POST("/auth/logout", authHandler.Logout)
		api.GET("/me", authHandler.Me)
		api.POST("/me/password", authHandler.ChangePassword)
		api.GET("/dashboard", dashboardHandler.Get)

		api.GET("/users", adminOnly, usersHandler.List)
		api.POST("/users", adminOnly, usersHandler.Create)
		api.GET("/users/:id", adminOnly, usersHandler.Get)
		api.PUT("/users/:id", adminOnly, usersHandler.Update)
		api.DELETE("/users/:id", adminOnly, usersHandler.Delete)
		api.POST("/users/:id/password", adminOnly, usersHandler.ResetPassword)

		api.GET("/criteria", criteriaHandler.List)
		api.POST("/criteria", adminOnly, criteriaHandler.Create)
		api.PUT("/criteria/:id", adminOnly, criteriaHandler.Update)
		api.DELETE("/criteria/:id", adminOnly, criteriaHandler.Delete)

		api.GET("/evaluations", evaluationsHandler.List)
		api.POST("/evaluations", staff, evaluationsHandler.Create)
		api.GET("/evaluations/:id", evaluationsHandler.Get)
		api.PUT("/evaluations/:id", staff, evaluationsHandler.Update)
		api.DELETE("/evaluations/:id", adminOnly, evaluationsHandler.Delete)

		api.GET("/reports/summaries", staff, reportsHandler.Summaries)
		api.GET("/reports/summaries/:id", reportsHandler.EmployeeSummary)
		api.GET("/exports/detail", adminOnly, reportsHandler.ExportDetail)
		api.GET("/exports/summary", staff, reportsHandler.ExportSummary)
	}

	return r
}
