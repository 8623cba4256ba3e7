package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/brightpath-hq/brightpath-backend/internal/logger"
	"github.com/brightpath-hq/brightpath-backend/internal/types"
	"github.com/brightpath-hq/brightpath-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "brightpath", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Agency{},
		&types.UserAgency{},
		&types.TrainingTrack{},
		&types.TrainingModule{},
		&types.TrackModule{},
		&types.ModuleContent{},
		&types.ModuleProgress{},
		&types.TimeLog{},
		&types.QuizAttempt{},
		&types.Certificate{},
		&types.Task{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	// Certificate identity must be unique at the store level so two
	// concurrent completions of the same track cannot both insert; the
	// issuer relies on the second insert being rejected. user_id is
	// nullable (passwordless recipients key on email), hence the two
	// partial indexes instead of a plain composite unique.
	if err := s.db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_certificate_identity_user
		ON certificate (certificate_type, reference_id, user_id)
		WHERE user_id IS NOT NULL
	`).Error; err != nil {
		return fmt.Errorf("failed to create certificate user identity index: %w", err)
	}
	if err := s.db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_certificate_identity_email
		ON certificate (certificate_type, reference_id, email)
		WHERE user_id IS NULL AND email <> ''
	`).Error; err != nil {
		return fmt.Errorf("failed to create certificate email identity index: %w", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
