package blob

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path"

	perr "ngmeta/internal/platform/errors"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config selects a bucket on any S3 compatible endpoint
// Empty keys fall back to the AWS_* environment credentials
type S3Config struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	Region    string
	UseSSL    bool
	AccessKey string
	SecretKey string
}

// S3 stores documents as objects named prefix/key
type S3 struct {
	Addr
	client *minio.Client
	bucket string
	prefix string
}

// NewS3 builds a client; no request is made until the first Load or Save
func NewS3(addr Addr, cfg S3Config) (*S3, error) {
	creds := credentials.NewEnvAWS()
	if cfg.AccessKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Region: cfg.Region,
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "create s3 client for %s", cfg.Endpoint)
	}
	return &S3{Addr: addr, client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *S3) object(uri string) (string, error) {
	key, err := s.Key(uri)
	if err != nil {
		return "", err
	}
	return path.Join(s.prefix, key), nil
}

func isS3NotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

// Load downloads the object
func (s *S3) Load(ctx context.Context, uri string) ([]byte, bool, error) {
	name, err := s.object(uri)
	if err != nil {
		return nil, false, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		if isS3NotFound(err) {
			return nil, false, nil
		}
		return nil, false, perr.Wrapf(err, perr.ErrorCodeStorage, "s3 get %s", name)
	}
	defer func() { _ = obj.Close() }()

	b, err := io.ReadAll(obj)
	if err != nil {
		if isS3NotFound(err) {
			return nil, false, nil
		}
		return nil, false, perr.Wrapf(err, perr.ErrorCodeStorage, "s3 read %s", name)
	}
	return b, true, nil
}

// Save uploads content; S3 replaces objects whole so readers never see partial content
func (s *S3) Save(ctx context.Context, contentType, uri string, content []byte) error {
	name, err := s.object(uri)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "s3 put %s", name)
	}
	return nil
}
