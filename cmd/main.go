package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/labtrace/labtrace-backend/internal/clients/gcp"
	redisclient "github.com/labtrace/labtrace-backend/internal/clients/redis"
	"github.com/labtrace/labtrace-backend/internal/db"
	"github.com/labtrace/labtrace-backend/internal/handlers"
	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/middleware"
	"github.com/labtrace/labtrace-backend/internal/observability"
	"github.com/labtrace/labtrace-backend/internal/repos"
	"github.com/labtrace/labtrace-backend/internal/server"
	"github.com/labtrace/labtrace-backend/internal/services"
	"github.com/labtrace/labtrace-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	port := utils.GetEnv("PORT", "8080", log)
	catalogPath := utils.GetEnv("ANALYSIS_TYPE_CATALOG", "config/analysis_types.yaml", log)

	// Tracing
	shutdownOTel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "labtrace-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(ctx); err != nil {
			log.Warn("OTel shutdown failed", "error", err)
		}
	}()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Redis grant cache (optional)
	grantCache, err := redisclient.NewGrantCache(log)
	if err != nil {
		log.Warn("Redis init failed, grant reads go straight to store", "error", err)
		grantCache = nil
	}

	// Report bucket (optional)
	var bucketService gcp.BucketService
	if os.Getenv("REPORT_GCS_BUCKET_NAME") != "" {
		bucketService, err = gcp.NewBucketService(log)
		if err != nil {
			log.Warn("Bucket init failed, report attachments disabled", "error", err)
		}
	}

	// Repos
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	workspaceRepo := repos.NewWorkspaceRepo(thePG, log)
	orgRepo := repos.NewOrganizationRepo(thePG, log)
	projectRepo := repos.NewProjectRepo(thePG, log)
	trialRepo := repos.NewTrialRepo(thePG, log)
	sampleRepo := repos.NewSampleRepo(thePG, log)
	derivedRepo := repos.NewDerivedSampleRepo(thePG, log)
	batchRepo := repos.NewBatchRepo(thePG, log)
	analysisRepo := repos.NewAnalysisRepo(thePG, log)
	analysisTypeRepo := repos.NewAnalysisTypeRepo(thePG, log)
	accessGrantRepo := repos.NewAccessGrantRepo(thePG, log)
	supplyChainRepo := repos.NewSupplyChainRequestRepo(thePG, log)

	// Services
	authService := services.NewAuthService(
		thePG, log, userRepo, userTokenRepo, workspaceRepo,
		jwtSecretKey,
		time.Duration(accessTokenTTL)*time.Second,
		time.Duration(refreshTokenTTL)*time.Second,
	)
	orgService := services.NewOrganizationService(thePG, log, orgRepo)
	accessService := services.NewAccessService(thePG, log, accessGrantRepo, grantCache)
	projectService := services.NewProjectService(thePG, log, projectRepo, orgRepo, accessService)
	trialService := services.NewTrialService(thePG, log, trialRepo, projectRepo)
	sampleService := services.NewSampleService(thePG, log, sampleRepo, derivedRepo, projectRepo)
	batchService := services.NewBatchService(thePG, log, batchRepo, sampleRepo, analysisRepo)
	analysisService := services.NewAnalysisService(thePG, log, analysisRepo, analysisTypeRepo, batchRepo, sampleRepo, bucketService)
	supplyChainService := services.NewSupplyChainService(thePG, log, supplyChainRepo, orgRepo, sampleRepo, projectRepo)
	statsService := services.NewStatsService(thePG, log, orgRepo, projectRepo, trialRepo, sampleRepo, batchRepo, analysisRepo, supplyChainRepo)

	// Analysis type catalog
	if err := analysisService.SeedTypes(context.Background(), catalogPath); err != nil {
		log.Warn("Analysis type catalog seed failed", "error", err, "path", catalogPath)
	}

	// Handlers
	routerCfg := server.RouterConfig{
		AuthMiddleware:      middleware.NewAuthMiddleware(log, authService),
		HealthcheckHandler:  handlers.NewHealthcheckHandler(thePG),
		AuthHandler:         handlers.NewAuthHandler(log, authService),
		OrganizationHandler: handlers.NewOrganizationHandler(log, orgService),
		ProjectHandler:      handlers.NewProjectHandler(log, projectService),
		TrialHandler:        handlers.NewTrialHandler(log, trialService),
		SampleHandler:       handlers.NewSampleHandler(log, sampleService),
		BatchHandler:        handlers.NewBatchHandler(log, batchService),
		AnalysisHandler:     handlers.NewAnalysisHandler(log, analysisService),
		AccessHandler:       handlers.NewAccessHandler(log, accessService),
		SupplyChainHandler:  handlers.NewSupplyChainHandler(log, supplyChainService),
		StatsHandler:        handlers.NewStatsHandler(log, statsService),
	}

	router := server.NewRouter(routerCfg)
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
