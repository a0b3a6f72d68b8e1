package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage implements Storage using a MinIO (or any S3-compatible) backend.
// To point at Supabase Storage or AWS S3, change STORAGE_ENDPOINT and
// credentials — no code changes are needed.
type MinioStorage struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// NewMinioStorage creates a MinIO client and returns a ready-to-use
// MinioStorage. The bucket is expected to exist already (it is provisioned
// alongside the database); a missing bucket surfaces as ErrBucketNotFound on
// the first upload.
func NewMinioStorage(endpoint, accessKey, secretKey, bucket, publicBase string, useSSL bool) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinioStorage{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// Upload streams reader to the bucket under key. size must be the exact byte
// count (pass -1 only if the size is genuinely unknown — MinIO will buffer it).
func (s *MinioStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "max-age=3600",
	})
	if err != nil {
		if isBucketMissing(err) {
			return fmt.Errorf("put object %q: %w", key, ErrBucketNotFound)
		}
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// Delete removes the object at key from the bucket.
func (s *MinioStorage) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// PublicURL returns the browser-accessible URL for the given key:
// "{publicBase}/storage/v1/object/public/{bucket}/{key}".
func (s *MinioStorage) PublicURL(key string) string {
	return s.publicBase + "/storage/v1/object/public/" + s.bucket + "/" + key
}

// isBucketMissing reports whether err is the S3 "bucket does not exist" error.
func isBucketMissing(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchBucket" || resp.StatusCode == http.StatusNotFound
}
