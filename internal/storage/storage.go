// Package storage connects the object storage used for sources, results and logos
package storage

import (
	"context"
	"time"

	"github.com/UnendingLoop/ExifFrame/internal/config"
	"github.com/UnendingLoop/ExifFrame/internal/storage/miniostorage"
	"github.com/wb-go/wbf/zlog"
)

// NewRenderStorage retries the MinIO connection every delay until it
// succeeds or ctx ends.
func NewRenderStorage(ctx context.Context, cfg *config.Config, delay time.Duration) (*miniostorage.MinioRenderStorage, error) {
	for {
		zlog.Logger.Info().Str("addr", cfg.MinioAddr).Msg("Connecting to object storage...")
		client, err := miniostorage.NewMinioClient(ctx, cfg)
		if err == nil {
			zlog.Logger.Info().Msg("Successfully connected to object storage")
			return client, nil
		}
		zlog.Logger.Warn().Err(err).Dur("retry_in", delay).Msg("Failed to init connection to object storage")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}
