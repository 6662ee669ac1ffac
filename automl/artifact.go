package automl

import (
	"context"

	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/storage"
)

// ArtifactKey is where SaveArtifact writes. Each run overwrites it.
const ArtifactKey = "models/model.gob.zst"

// SaveArtifact stores a as zstd-compressed gob under ArtifactKey.
func SaveArtifact(ctx context.Context, store storage.BlobStore, a *ModelArtifact) error {
	if a == nil || a.Model == nil {
		return errors.NewValueError("SaveArtifact", "artifact has no model")
	}
	return storage.PutGob(ctx, store, ArtifactKey, a)
}

// LoadArtifact reads the artifact written by SaveArtifact.
func LoadArtifact(ctx context.Context, store storage.BlobStore) (*ModelArtifact, error) {
	var a ModelArtifact
	if err := storage.GetGob(ctx, store, ArtifactKey, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
