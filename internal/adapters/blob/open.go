package blob

import (
	"context"
	"io"

	perr "ngmeta/internal/platform/errors"
)

// Backend names accepted by Open
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendS3     = "s3"
	BackendGCS    = "gcs"
	BackendSQLite = "sqlite"
)

// Config selects and configures one backend
type Config struct {
	Type        string
	BaseAddress string
	Container   string

	Dir        string // file
	SQLitePath string // sqlite
	S3         S3Config
	GCS        GCSConfig
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the configured backend; the closer releases clients and handles
func Open(ctx context.Context, cfg Config) (Storage, io.Closer, error) {
	addr, err := NewAddr(cfg.BaseAddress, cfg.Container)
	if err != nil {
		return nil, nil, err
	}
	switch cfg.Type {
	case BackendMemory:
		m := NewMemory(addr.BaseAddress())
		return m, nopCloser{}, nil
	case BackendFile, "":
		if cfg.Dir == "" {
			return nil, nil, perr.InvalidArgf("file storage needs a directory")
		}
		f, err := NewFile(addr, cfg.Dir)
		return f, nopCloser{}, err
	case BackendS3:
		if cfg.S3.Endpoint == "" || cfg.S3.Bucket == "" {
			return nil, nil, perr.InvalidArgf("s3 storage needs an endpoint and a bucket")
		}
		s, err := NewS3(addr, cfg.S3)
		return s, nopCloser{}, err
	case BackendGCS:
		if cfg.GCS.Bucket == "" {
			return nil, nil, perr.InvalidArgf("gcs storage needs a bucket")
		}
		g, err := NewGCS(ctx, addr, cfg.GCS)
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	case BackendSQLite:
		if cfg.SQLitePath == "" {
			return nil, nil, perr.InvalidArgf("sqlite storage needs a path")
		}
		s, err := NewSQLite(ctx, addr, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, perr.InvalidArgf("unknown storage type %q", cfg.Type)
	}
}
