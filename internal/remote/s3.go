package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
)

// S3Options configures the object storage backend.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3 stores each document as documents/<username>.json in a bucket.
type S3 struct {
	cl     *minio.Client
	bucket string
	logger *slog.Logger
}

// OpenS3 connects and creates the bucket when it does not exist.
func OpenS3(ctx context.Context, opts S3Options, logger *slog.Logger) (*S3, error) {
	cl, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	exists, err := cl.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := cl.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opts.Bucket, err)
		}
		logger.Info("created document bucket", "bucket", opts.Bucket)
	}

	return &S3{cl: cl, bucket: opts.Bucket, logger: logger}, nil
}

func objectKey(username string) string {
	return "documents/" + url.PathEscape(username) + ".json"
}

// FetchDocument implements Store.
func (s *S3) FetchDocument(ctx context.Context, username string) (*domain.Document, error) {
	obj, err := s.cl.GetObject(ctx, s.bucket, objectKey(username), minio.GetObjectOptions{})
	if err != nil {
		return nil, domainerrors.RemoteRead(err, "fetch document for %s", username)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, notFound(username)
		}
		return nil, domainerrors.RemoteRead(err, "fetch document for %s", username)
	}
	return decodeDocument(data, username)
}

// WriteDocument implements Store.
func (s *S3) WriteDocument(ctx context.Context, doc *domain.Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	_, err = s.cl.PutObject(ctx, s.bucket, objectKey(doc.Username), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return domainerrors.RemoteWrite(err, "write document for %s", doc.Username)
	}
	return nil
}

// Close is a no-op; the minio client holds no persistent connections.
func (s *S3) Close() error { return nil }
