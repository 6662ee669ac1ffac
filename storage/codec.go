package storage

import (
	"bytes"
	"context"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/YuminosukeSato/modelsearch/core/model"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

var (
	encoderOnce sync.Once
	encoder     *zstd.Encoder
	decoderOnce sync.Once
	decoder     *zstd.Decoder
)

func zstdEncoder() *zstd.Encoder {
	encoderOnce.Do(func() {
		encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	return encoder
}

func zstdDecoder() *zstd.Decoder {
	decoderOnce.Do(func() {
		decoder, _ = zstd.NewReader(nil)
	})
	return decoder
}

// Compress returns the zstd frame for data.
func Compress(data []byte) []byte {
	return zstdEncoder().EncodeAll(data, make([]byte, 0, len(data)/2))
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	out, err := zstdDecoder().DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Wrap(err, "zstd decode")
	}
	return out, nil
}

// PutGob gob-encodes v, compresses it and stores it under key.
func PutGob(ctx context.Context, store BlobStore, key string, v any) error {
	var buf bytes.Buffer
	if err := model.SaveModelToWriter(v, &buf); err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return store.Put(ctx, key, Compress(buf.Bytes()))
}

// GetGob loads a blob written by PutGob into v.
func GetGob(ctx context.Context, store BlobStore, key string, v any) error {
	raw, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	data, err := Decompress(raw)
	if err != nil {
		return errors.Wrapf(err, "decompress %s", key)
	}
	if err := model.LoadModelFromReader(v, bytes.NewReader(data)); err != nil {
		return errors.Wrapf(err, "decode %s", key)
	}
	return nil
}
