package media

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const maxImageBytes = 10 << 20

var extensionsByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/avif": ".avif",
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Config holds the CloudFlare R2 bucket settings
type R2Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
}

// R2Store copies remote images into an R2 bucket so articles do not
// hotlink sources or expiring generator URLs
type R2Store struct {
	s3        objectPutter
	client    *resty.Client
	bucket    string
	publicURL string
	now       func() time.Time
}

func NewR2Store(ctx context.Context, cfg R2Config) (*R2Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return newR2Store(client, cfg.Bucket, cfg.PublicURL), nil
}

func newR2Store(putter objectPutter, bucket, publicURL string) *R2Store {
	return &R2Store{
		s3: putter,
		client: resty.New().
			SetTimeout(30*time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(time.Second),
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		now:       time.Now,
	}
}

// Mirror downloads src and stores it under articles/YYYY/MM/, returning the public URL
func (s *R2Store) Mirror(ctx context.Context, src string) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(src)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", src, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), src)
	}

	body := resp.Body()
	if len(body) == 0 {
		return "", fmt.Errorf("empty image at %s", src)
	}
	if len(body) > maxImageBytes {
		return "", fmt.Errorf("image at %s exceeds %d bytes", src, maxImageBytes)
	}

	contentType := strings.TrimSpace(strings.Split(resp.Header().Get("Content-Type"), ";")[0])
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", src, contentType)
	}

	ext := imageExtension(src, contentType)
	if contentType == "" {
		contentType = "image/jpeg"
	}

	key := s.objectKey(ext)
	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return s.publicURL + "/" + key, nil
}

func (s *R2Store) objectKey(ext string) string {
	now := s.now().UTC()
	return fmt.Sprintf("articles/%04d/%02d/%s%s", now.Year(), int(now.Month()), uuid.NewString(), ext)
}

// imageExtension prefers a known extension in the URL path over the content type
func imageExtension(src, contentType string) string {
	if u, err := url.Parse(src); err == nil {
		switch ext := strings.ToLower(path.Ext(u.Path)); ext {
		case ".jpg", ".jpeg", ".png", ".webp", ".gif", ".avif":
			return ext
		}
	}
	if ext, ok := extensionsByType[contentType]; ok {
		return ext
	}
	return ".jpg"
}
