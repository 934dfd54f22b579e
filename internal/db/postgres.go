package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/types"
	"github.com/labtrace/labtrace-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	log.Info("Loading environment variables...")
	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "labtrace", log)
	maxOpenConns := utils.GetEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 25, log)
	maxIdleConns := utils.GetEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 5, log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		log.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	// Bounded pool: acquisition beyond the context deadline surfaces to
	// callers as resource_exhausted, never a silent hang.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.Workspace{},
		&types.Organization{},
		&types.User{},
		&types.UserToken{},
		&types.Project{},
		&types.Trial{},
		&types.TrialParameterTemplate{},
		&types.Sample{},
		&types.DerivedSample{},
		&types.Batch{},
		&types.BatchSample{},
		&types.AnalysisType{},
		&types.Analysis{},
		&types.AccessGrant{},
		&types.SupplyChainRequest{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring authority index for analysis table...")
	if err := s.db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_analysis_authoritative
		ON "analysis" ("sample_id", "type_id")
		WHERE "is_authoritative" = true
	`).Error; err != nil {
		return fmt.Errorf("failed to create idx_analysis_authoritative: %w", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
