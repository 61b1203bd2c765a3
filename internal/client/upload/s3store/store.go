// Package s3store uploads images to an S3-compatible bucket (MinIO, R2, AWS)
// through short-lived presigned PUT URLs.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/dogstack/internal/netx"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

const (
	contentType  = "image/jpeg"
	cacheControl = "3600"

	defaultPresignExpiry = 15 * time.Minute
)

// Options configures a Store.
type Options struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
	PresignExpiry time.Duration
	HTTPClient    *http.Client
}

// Store is an ObjectStore for S3-compatible buckets.
type Store struct {
	opts Options
}

func New(opts Options) (*Store, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, errors.New("s3store: endpoint and bucket are required")
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if opts.PresignExpiry <= 0 {
		opts.PresignExpiry = defaultPresignExpiry
	}
	opts.Endpoint = strings.TrimRight(opts.Endpoint, "/")
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	return &Store{opts: opts}, nil
}

func (s *Store) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.opts.AccessKey,
			s.opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.opts.Endpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignPut returns a URL that accepts one PUT of key.
func (s *Store) PresignPut(ctx context.Context, key string) (string, error) {
	pc, err := s.getPresignClient(ctx)
	if err != nil {
		return "", fmt.Errorf("s3 config: %w", err)
	}

	bucket := s.opts.Bucket
	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket:       &bucket,
		Key:          &key,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	}, s3.WithPresignExpires(s.opts.PresignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, nil
}

// Put uploads data under key. The presigned URL carries the authorisation,
// so accessToken only proves that a session exists.
func (s *Store) Put(ctx context.Context, key string, data []byte, accessToken string) error {
	if accessToken == "" {
		return errors.New("s3store: missing access token")
	}
	u, err := s.PresignPut(ctx, key)
	if err != nil {
		return err
	}

	h := http.Header{}
	h.Set("Content-Type", contentType)
	h.Set("Cache-Control", cacheControl)
	return netx.Put(ctx, s.opts.HTTPClient, u, data, h)
}

// PublicURL is the unauthenticated link of key, under PublicBaseURL when set
// and path-style under the endpoint otherwise.
func (s *Store) PublicURL(key string) string {
	base := s.opts.PublicBaseURL
	if base == "" {
		base = s.opts.Endpoint + "/" + s.opts.Bucket
	}
	return base + "/" + url.PathEscape(key)
}
