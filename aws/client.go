// Package aws defines functions used to interact with the AWS API
package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
)

type S3Client struct {
	C      *s3.Client
	Bucket *string
}

type options struct {
	accessKey string
	secretKey string
	region    string
	bucket    string
	endpoint  string
}

// NewS3 connects to AWS S3 using the aws.* config keys
func NewS3(ctx context.Context) (*S3Client, error) {
	return newClient(ctx, options{
		accessKey: viper.GetString("aws.access_key"),
		secretKey: viper.GetString("aws.secret_access_key"),
		region:    viper.GetString("aws.region"),
		bucket:    viper.GetString("aws.bucket"),
	})
}

// NewR2 connects to a Cloudflare R2 bucket using the cloudflare.* config keys.
// R2 speaks the S3 API so the same client is used with a different endpoint.
func NewR2(ctx context.Context) (*S3Client, error) {
	return newClient(ctx, options{
		accessKey: viper.GetString("cloudflare.access_key_id"),
		secretKey: viper.GetString("cloudflare.secret_access_key"),
		region:    "auto",
		bucket:    viper.GetString("cloudflare.bucket"),
		endpoint:  fmt.Sprintf("https://%s.r2.cloudflarestorage.com", viper.GetString("cloudflare.account_id")),
	})
}

func newClient(ctx context.Context, o options) (*S3Client, error) {
	loadOpts := []func(*config.LoadOptions) error{}

	// Without static keys the default chain (env, shared config, IAM role) is used
	if o.accessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.accessKey, o.secretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config, %w", err)
	}

	bucket := aws.String(o.bucket)

	client := s3.NewFromConfig(cfg, func(opts *s3.Options) {
		opts.Region = o.region
		if o.endpoint != "" {
			opts.BaseEndpoint = aws.String(o.endpoint)
		}
	})

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", o.bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &S3Client{
		C:      client,
		Bucket: bucket,
	}, nil
}
