package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MirrorConfig describes the Cloudflare R2 bucket used to re-host images
type MirrorConfig struct {
	Endpoint  string
	AccountID string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
}

// ObjectPutter is the subset of the S3 client the mirror needs
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Mirror uploads scraped hero images to R2 so the messaging service can load
// them by URL from a host that never blocks hotlinking.
type Mirror struct {
	client    ObjectPutter
	bucket    string
	publicURL string
}

// NewMirror builds an R2-backed mirror
func NewMirror(ctx context.Context, cfg MirrorConfig) (*Mirror, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("loading R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return NewMirrorWithClient(client, cfg.Bucket, cfg.PublicURL), nil
}

// NewMirrorWithClient wires a mirror around an existing client
func NewMirrorWithClient(client ObjectPutter, bucket, publicURL string) *Mirror {
	return &Mirror{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Upload stores the image under a content-addressed key and returns its public URL
func (m *Mirror) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	sum := sha256.Sum256(data)
	ext := strings.TrimPrefix(FileName(contentType), "news_image")
	key := fmt.Sprintf("hero/%s/%s%s", time.Now().UTC().Format("2006/01/02"), hex.EncodeToString(sum[:])[:24], ext)

	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(m.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=604800"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s to R2: %w", key, err)
	}
	return m.publicURL + "/" + key, nil
}
