package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3Config holds the bucket layout for the video pipeline.
type S3Config struct {
	Region        string
	UploadsBucket string
	OutputsBucket string
}

// S3 provides object-store operations: presigned upload credentials and
// server-side streamed uploads.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// LoadAWSConfig builds the shared AWS config. Static credentials take
// precedence when set; otherwise the default chain applies. The returned
// config is shared by the S3, DynamoDB and MediaConvert clients so every
// component sees the same region and credentials.
func LoadAWSConfig(ctx context.Context, region, accessKey, secretKey string, logger *zap.Logger) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	} else if logger != nil {
		logger.Warn("AWS using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// NewS3 creates the object-store client.
func NewS3(awsCfg aws.Config, cfg S3Config, logger *zap.Logger) *S3 {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := s3.NewFromConfig(awsCfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024 // 5MB parts for streaming
	})
	return &S3{client: client, uploader: uploader, cfg: cfg, logger: logger}
}

// SanitizeFilename restricts a user-supplied filename to letters, digits,
// '.', '_' and '-'; every other rune becomes '_'. Keys built from the result
// are safe for object paths and playback URLs.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// UploadKey returns the object key for a raw upload: <videoId>/<filename>.
// The dispatcher relies on this layout to recover the video ID from
// object-written notifications.
func UploadKey(videoID, filename string) string {
	return videoID + "/" + SanitizeFilename(filename)
}

// PresignUpload returns a time-limited PUT URL scoped to one key and content
// type in the uploads bucket.
func (s *S3) PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(s.client)
	req, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.UploadsBucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expires
	})
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}
	return req.URL, nil
}

// Upload streams a reader into the uploads bucket (direct upload path for
// clients that cannot use presigned URLs).
func (s *S3) Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) error {
	var contentLengthPtr *int64
	if contentLength > 0 {
		contentLengthPtr = &contentLength
	}
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.UploadsBucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: contentLengthPtr,
	})
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	s.logger.Info("uploaded object", zap.String("bucket", s.cfg.UploadsBucket), zap.String("key", key))
	return nil
}

// SourceLocation returns the s3:// URL the transcode engine reads from.
func SourceLocation(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
