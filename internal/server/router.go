package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/labtrace/labtrace-backend/internal/handlers"
	"github.com/labtrace/labtrace-backend/internal/middleware"
	"github.com/labtrace/labtrace-backend/internal/types"
	"github.com/labtrace/labtrace-backend/internal/utils"
)

type RouterConfig struct {
	AuthMiddleware      *middleware.AuthMiddleware
	HealthcheckHandler  *handlers.HealthcheckHandler
	AuthHandler         *handlers.AuthHandler
	OrganizationHandler *handlers.OrganizationHandler
	ProjectHandler      *handlers.ProjectHandler
	TrialHandler        *handlers.TrialHandler
	SampleHandler       *handlers.SampleHandler
	BatchHandler        *handlers.BatchHandler
	AnalysisHandler     *handlers.AnalysisHandler
	AccessHandler       *handlers.AccessHandler
	SupplyChainHandler  *handlers.SupplyChainHandler
	StatsHandler        *handlers.StatsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("labtrace-backend"))

	allowedOrigins := strings.Split(utils.GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000", nil), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", cfg.HealthcheckHandler.Healthcheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	// Protected
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)

	protected.POST("/organizations", cfg.OrganizationHandler.Create)
	protected.GET("/organizations", cfg.OrganizationHandler.List)
	protected.PATCH("/organizations/:id", cfg.OrganizationHandler.Update)
	protected.DELETE("/organizations/:id", cfg.OrganizationHandler.Delete)

	protected.POST("/projects", cfg.ProjectHandler.Create)
	protected.GET("/projects", cfg.ProjectHandler.List)
	protected.GET("/projects/:id", cfg.ProjectHandler.Get)
	protected.PATCH("/projects/:id", cfg.ProjectHandler.Update)
	protected.DELETE("/projects/:id", cfg.ProjectHandler.Delete)

	protected.POST("/projects/:id/trials", cfg.TrialHandler.Create)
	protected.GET("/projects/:id/trials", cfg.TrialHandler.List)
	protected.GET("/projects/:id/trials/:trialId", cfg.TrialHandler.Get)
	protected.PATCH("/projects/:id/trials/:trialId", cfg.TrialHandler.Update)
	protected.DELETE("/projects/:id/trials/:trialId", cfg.TrialHandler.Delete)
	protected.GET("/projects/:id/template", cfg.TrialHandler.GetTemplate)
	protected.PUT("/projects/:id/template", cfg.TrialHandler.PutTemplate)
	protected.GET("/projects/:id/samples", cfg.SampleHandler.ListByProject)

	protected.POST("/samples", cfg.SampleHandler.Create)
	protected.GET("/samples/:id", cfg.SampleHandler.Get)
	protected.PATCH("/samples/:id", cfg.SampleHandler.Update)
	protected.DELETE("/samples/:id", cfg.SampleHandler.Delete)
	protected.GET("/samples/:id/derived", cfg.SampleHandler.ListDerived)
	protected.POST("/derived-samples", cfg.SampleHandler.CreateDerived)
	protected.GET("/derived-samples/:id/lineage", cfg.SampleHandler.GetLineage)

	protected.POST("/batches", cfg.BatchHandler.Create)
	protected.GET("/batches", cfg.BatchHandler.List)
	protected.GET("/batches/:id", cfg.BatchHandler.Get)
	protected.POST("/batches/:id/samples", cfg.BatchHandler.AddSamples)
	protected.GET("/batches/:id/samples", cfg.BatchHandler.ListSamples)
	protected.POST("/batches/:id/transition", cfg.BatchHandler.Transition)
	protected.POST("/batches/:id/complete", cfg.BatchHandler.Complete)
	protected.GET("/batches/:id/analyses", cfg.AnalysisHandler.ListByBatch)

	protected.POST("/analyses", cfg.AnalysisHandler.Create)
	protected.GET("/analyses/:id", cfg.AnalysisHandler.Get)
	protected.POST("/analyses/:id/status", cfg.AnalysisHandler.UpdateStatus)
	protected.POST("/analyses/:id/report", cfg.AnalysisHandler.AttachReport)
	protected.GET("/analyses/:id/report", cfg.AnalysisHandler.DownloadReport)
	protected.DELETE("/analyses/:id/report", cfg.AnalysisHandler.DetachReport)
	protected.GET("/analysis-types", cfg.AnalysisHandler.ListTypes)

	protected.POST("/access-grants", cfg.AccessHandler.Grant)
	protected.PATCH("/access-grants", cfg.AccessHandler.Update)
	protected.DELETE("/access-grants", cfg.AccessHandler.Revoke)
	protected.GET("/access-grants/:objectType/:objectId", cfg.AccessHandler.List)
	protected.GET("/access-grants/:objectType/:objectId/resolve", cfg.AccessHandler.Resolve)

	protected.POST("/supply-chain", cfg.SupplyChainHandler.Create)
	protected.GET("/supply-chain", cfg.SupplyChainHandler.List)
	protected.GET("/supply-chain/:id", cfg.SupplyChainHandler.Get)
	protected.POST("/supply-chain/:id/accept", cfg.SupplyChainHandler.Accept)
	protected.POST("/supply-chain/:id/reject", cfg.SupplyChainHandler.Reject)
	protected.POST("/supply-chain/:id/advance", cfg.SupplyChainHandler.Advance)
	protected.POST("/supply-chain/:id/complete", cfg.SupplyChainHandler.Complete)

	admin := protected.Group("/admin")
	admin.Use(cfg.AuthMiddleware.RequireRole(types.RoleAdmin))
	admin.GET("/stats", cfg.StatsHandler.WorkspaceStats)

	return router
}
