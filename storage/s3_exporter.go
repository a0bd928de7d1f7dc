package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the slice of the S3 client the exporter needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Exporter uploads report files to a bucket.
type S3Exporter struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Exporter builds an S3 client from the default AWS credential chain.
func NewS3Exporter(ctx context.Context, region, bucket string) (*S3Exporter, error) {
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}
	return NewS3ExporterWithClient(s3.NewFromConfig(awsCfg), bucket, "reports"), nil
}

// NewS3ExporterWithClient wraps an existing client.
func NewS3ExporterWithClient(client PutObjectAPI, bucket, prefix string) *S3Exporter {
	return &S3Exporter{client: client, bucket: bucket, prefix: prefix}
}

// UploadFile puts the file at localPath under prefix/name and returns the key.
func (e *S3Exporter) UploadFile(ctx context.Context, localPath, name string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("s3: read %q: %w", localPath, err)
	}

	key := path.Join(e.prefix, name)
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("s3: put %s/%s: %w", e.bucket, key, err)
	}
	return key, nil
}
