package blob

import (
	"context"
	"errors"
	"io"
	"path"

	perr "ngmeta/internal/platform/errors"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSConfig selects a bucket; Endpoint is for emulators and disables auth
type GCSConfig struct {
	Bucket          string
	Prefix          string
	Endpoint        string
	CredentialsFile string
}

// GCS stores documents as objects named prefix/key
type GCS struct {
	Addr
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS creates the client with application default credentials unless configured otherwise
func NewGCS(ctx context.Context, addr Addr, cfg GCSConfig) (*GCS, error) {
	var opts []option.ClientOption
	switch {
	case cfg.Endpoint != "":
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeStorage, "create gcs client")
	}
	return &GCS{Addr: addr, client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (g *GCS) object(uri string) (*storage.ObjectHandle, string, error) {
	key, err := g.Key(uri)
	if err != nil {
		return nil, "", err
	}
	name := path.Join(g.prefix, key)
	return g.client.Bucket(g.bucket).Object(name), name, nil
}

// Load reads the object
func (g *GCS) Load(ctx context.Context, uri string) ([]byte, bool, error) {
	obj, name, err := g.object(uri)
	if err != nil {
		return nil, false, err
	}
	r, err := obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, perr.Wrapf(err, perr.ErrorCodeStorage, "gcs reader %s", name)
	}
	defer func() { _ = r.Close() }()

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, false, perr.Wrapf(err, perr.ErrorCodeStorage, "gcs read %s", name)
	}
	return b, true, nil
}

// Save writes the object; GCS makes it visible only when the writer closes
func (g *GCS) Save(ctx context.Context, contentType, uri string, content []byte) error {
	obj, name, err := g.object(uri)
	if err != nil {
		return err
	}
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return perr.Wrapf(err, perr.ErrorCodeStorage, "gcs write %s", name)
	}
	if err := w.Close(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "gcs close %s", name)
	}
	return nil
}

// Close releases the client
func (g *GCS) Close() error { return g.client.Close() }
