package model

import (
	"encoding/gob"
	"io"

	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

// SaveModelToWriter gob-encodes model to w. Concrete types stored behind
// interfaces must be registered with gob.Register first.
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader gob-decodes into model, which must be a pointer.
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
