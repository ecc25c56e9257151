// Package repository provides methods to work with DB
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/UnendingLoop/ExifFrame/internal/repository/renderpg"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

type RenderRepo interface {
	Create(ctx context.Context, r *model.RenderJob) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.RenderJob, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.RenderJob, error)
	SaveResult(ctx context.Context, id string, status model.Status, resKey string) error
	UpdateStatus(ctx context.Context, id string, newStat model.Status, errMsg model.StringSlice) error
	FetchOrphans(ctx context.Context, limit int) ([]string, error)
	GetDefaults(ctx context.Context, profile string) (*model.MetadataRecord, error)
	SaveDefaults(ctx context.Context, profile string, rec model.MetadataRecord) error
}

func NewPostgresRenderRepo(dbconn *dbpg.DB) RenderRepo {
	return renderpg.PostgresRepo{DB: dbconn}
}

// ConnectWithRetries opens the pool, retrying retryCount times with idleTime between tries.
func ConnectWithRetries(dsn string, retryCount int, idleTime time.Duration) (*dbpg.DB, error) {
	dbOptions := dbpg.Options{
		MaxOpenConns:    5,
		MaxIdleConns:    5,
		ConnMaxLifetime: 10 * time.Minute,
	}
	var dbConn *dbpg.DB
	var err error

	for i := 0; i < retryCount; i++ {
		dbConn, err = dbpg.New(dsn, nil, &dbOptions)
		if err == nil {
			return dbConn, nil
		}
		zlog.Logger.Warn().Err(err).Int("try", i+1).Dur("wait", idleTime).Msg("Failed to connect to PGDB")
		time.Sleep(idleTime)
	}

	return nil, fmt.Errorf("failed to connect to DB after %d tries: %w", retryCount, err)
}

// MigrateWithRetries applies every pending migration from migrationsPath.
func MigrateWithRetries(db *sql.DB, migrationsPath string, retries int, idle time.Duration) error {
	var err error
	for i := 0; i < retries; i++ {
		zlog.Logger.Info().Int("try", i+1).Msg("Running migrations")
		if err = runMigrate(db, migrationsPath); err == nil {
			return nil
		}
		zlog.Logger.Warn().Err(err).Dur("wait", idle).Msg("Migration try was unsuccessful")
		time.Sleep(idle)
	}
	return fmt.Errorf("out of migration retries: %w", err)
}

func runMigrate(db *sql.DB, migrationsPath string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		return err
	}

	sourceURL := "file://" + absPath
	zlog.Logger.Info().Str("source", sourceURL).Msg("Running migrations")

	m, err := migrate.NewWithDatabaseInstance(
		sourceURL,
		"postgres",
		driver,
	)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	zlog.Logger.Info().Msg("Database migrations applied successfully")
	return nil
}
