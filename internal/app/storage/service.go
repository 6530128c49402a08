/*
Package storage provides the avatar object storage service.

Avatar bytes never flow through the package engine: clients either
upload directly through a presigned URL or post the file to the avatar
HTTP endpoint, which streams it to the bucket.
*/
package storage

import (
	"context"
	"io"
	"time"
)

// PresignedURLDuration is the validity window of presigned upload and
// download URLs.
const PresignedURLDuration = 10 * time.Minute

// ServiceConfig holds the credentials of the S3-compatible bucket.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Service is the avatar storage interface consumed by the HTTP handlers.
type Service interface {
	// PresignUpload generates a presigned URL for uploading an avatar object.
	PresignUpload(ctx context.Context, key, mimeType string, fileSize int64, duration time.Duration) (string, error)

	// PresignDownload generates a presigned URL for fetching an avatar object.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// Upload streams an object into the bucket on behalf of a client.
	Upload(ctx context.Context, key, mimeType string, body io.Reader) error

	// Delete removes an object, used when an avatar is replaced.
	Delete(ctx context.Context, key string) error
}

// NewService builds the S3-backed Service from the given configuration.
func NewService(cfg ServiceConfig) (Service, error) {
	return newS3Service(cfg)
}
