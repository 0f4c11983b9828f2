package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNoCredentials is returned when no AWS credentials are in the environment.
var ErrNoCredentials = errors.New("recorder: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are not set")

// PutObjectAPI is the subset of *s3.Client used by S3Uploader.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores frame timelines in an S3 bucket.
//
// Example usage:
//
//	client, err := recorder.NewS3Client("eu-west-1", "")
//	if err != nil {
//	    return err
//	}
//	up := recorder.NewS3Uploader(client, "perf-traces", "framehook/")
//	key, err := up.Upload(ctx, rec.Timeline())
type S3Uploader struct {
	client PutObjectAPI
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Uploader creates an uploader writing objects under prefix in bucket.
func NewS3Uploader(client PutObjectAPI, bucket, prefix string) *S3Uploader {
	return &S3Uploader{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
	}
}

// Upload stores tl as JSON and returns the object key.
func (u *S3Uploader) Upload(ctx context.Context, tl Timeline) (string, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(tl); err != nil {
		return "", fmt.Errorf("recorder: encode timeline: %w", err)
	}

	ts := u.now().UTC()
	key := u.prefix + strconv.FormatInt(ts.UnixNano(), 10) + ".json"

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"frames":         strconv.Itoa(len(tl.Samples)),
			"dropped-frames": strconv.Itoa(tl.DroppedFrames),
			"upload-time":    ts.Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("recorder: s3 upload failed: %w", err)
	}
	return key, nil
}

// NewS3Client builds an S3 client for region using credentials from the
// standard AWS_* environment variables. A non-empty endpoint selects a
// custom S3-compatible service with path-style addressing.
func NewS3Client(region, endpoint string) (*s3.Client, error) {
	if os.Getenv("AWS_ACCESS_KEY_ID") == "" || os.Getenv("AWS_SECRET_ACCESS_KEY") == "" {
		return nil, ErrNoCredentials
	}
	creds := aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "EnvironmentVariables",
		}, nil
	})
	cfg := aws.Config{
		Region:      region,
		Credentials: aws.NewCredentialsCache(creds),
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
