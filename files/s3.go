package files

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jonwraymond/dataconn/config"
)

// DefaultS3Region is used when no region is configured.
const DefaultS3Region = "us-east-1"

type s3FS struct {
	client *s3.Client
	bucket string
}

// newS3FS accepts both fsspec-style keys (key, secret, token) and the AWS
// names (access_key_id, secret_access_key, session_token).
func newS3FS(ctx context.Context, cfg config.Section) (*s3FS, error) {
	region := cfg.StringOr("region", DefaultS3Region)
	endpoint := cfg.String("endpoint")
	pathStyle, err := cfg.Bool("force_path_style", endpoint != "")
	if err != nil {
		return nil, err
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	id := cfg.StringOr("key", cfg.String("access_key_id"))
	secret := cfg.StringOr("secret", cfg.String("secret_access_key"))
	if id != "" && secret != "" {
		token := cfg.StringOr("token", cfg.String("session_token"))
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(id, secret, token),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("files: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			// S3-compatible stores rarely support flexible checksums.
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
		o.UsePathStyle = pathStyle
	})
	return &s3FS{client: client, bucket: cfg.StringOr("default_bucket", cfg.String("bucket"))}, nil
}

func (f *s3FS) Protocol() string { return ProtocolS3 }

func (f *s3FS) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, key, err := SplitPath(path, f.bucket)
	if err != nil {
		return nil, classify(err)
	}
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classify(fmt.Errorf("files: get s3://%s/%s: %w", bucket, key, err))
	}
	return out.Body, nil
}

func (f *s3FS) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	bucket, key, err := SplitPath(path, f.bucket)
	if err != nil {
		return nil, err
	}
	return &bufferedWriter{upload: func(data []byte) error {
		_, err := f.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
		})
		if err != nil {
			return classify(fmt.Errorf("files: put s3://%s/%s: %w", bucket, key, err))
		}
		return nil
	}}, nil
}

// Ping checks the default bucket; without one there is nothing to check.
func (f *s3FS) Ping(ctx context.Context) error {
	if f.bucket == "" {
		return nil
	}
	_, err := f.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(f.bucket)})
	if err != nil {
		return classify(fmt.Errorf("files: head bucket %s: %w", f.bucket, err))
	}
	return nil
}

func (f *s3FS) Close() error { return nil }
