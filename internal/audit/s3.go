package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config addresses an S3-compatible bucket. AccountID selects the
// Cloudflare R2 endpoint unless Endpoint is set explicitly.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	AccountID string `mapstructure:"account-id"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access-key"`
	SecretKey string `mapstructure:"secret-key"`
	Region    string `mapstructure:"region"`
}

// Enabled reports whether a bucket is configured.
func (c S3Config) Enabled() bool {
	return strings.TrimSpace(c.Bucket) != ""
}

func (c S3Config) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	if c.AccountID != "" {
		return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
	}
	return ""
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive stores the uploaded document under resumes/<id>/<filename>.
type S3Archive struct {
	client objectPutter
	bucket string
}

func NewS3Archive(ctx context.Context, cfg S3Config) (*S3Archive, error) {
	if !cfg.Enabled() {
		return nil, errors.New("s3 bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "auto"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating aws config: %w", err)
	}

	endpoint := cfg.endpoint()
	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archive{client: client, bucket: cfg.Bucket}, nil
}

func (a *S3Archive) Name() string { return "s3" }

// Write uploads rec.Document. Records without a document are skipped.
func (a *S3Archive) Write(ctx context.Context, rec Record) error {
	if len(rec.Document) == 0 {
		return nil
	}

	contentType := rec.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(ObjectKey(rec)),
		Body:        bytes.NewReader(rec.Document),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"analysis-id": rec.ID.String(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey returns the archive key of rec. The filename is reduced to its
// base name and characters outside [A-Za-z0-9._-] are replaced.
func ObjectKey(rec Record) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(rec.Filename), "\\", "/"))
	name = strings.Trim(unsafeKeyChars.ReplaceAllString(name, "_"), "._")
	if name == "" {
		name = "resume"
	}
	return path.Join("resumes", rec.ID.String(), name)
}
