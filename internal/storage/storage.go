// Package storage connects the app to the object storage holding job sources and results
package storage

import (
	"context"
	"time"

	"github.com/UnendingLoop/DocMint/internal/storage/miniostorage"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
)

// NewFileStorage blocks until MinIO is reachable and the bucket exists, or ctx is done.
func NewFileStorage(ctx context.Context, cfg *config.Config, delay time.Duration) (*miniostorage.MinioFileStorage, error) {
	for {
		zlog.Logger.Info().Msg("Connecting to file storage...")
		client, err := miniostorage.NewMinioClient(ctx, miniostorage.ConfigFromEnv(cfg))
		if err == nil {
			zlog.Logger.Info().Msg("Successfully connected to file storage!")
			return client, nil
		}
		zlog.Logger.Warn().Err(err).Msgf("Failed to init connection to file storage. Next retry in %v...", delay)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}
