package main

import (
	"context"

	"github.com/YuminosukeSato/modelsearch/config"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/storage"
	"github.com/YuminosukeSato/modelsearch/storage/minio"
)

// PreprocessorKey holds the fitted imputer and scaler next to the model.
const PreprocessorKey = "models/preprocessor.gob.zst"

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.BlobStore, error) {
	switch cfg.Backend {
	case config.BackendLocal:
		return storage.NewLocalStore(cfg.Root), nil
	case config.BackendMinIO:
		m := cfg.MinIO
		return minio.Open(ctx, minio.Config{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			Prefix:    m.Prefix,
			UseSSL:    m.UseSSL,
			Region:    m.Region,
		})
	default:
		return nil, errors.NewValidationError("storage.backend", "must be local or minio", cfg.Backend)
	}
}
