//go:generate mockgen -source=$GOFILE -destination=../mocks/mock_fetcher.go -package=mocks Fetcher
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	sparkerrors "github.com/nyambati/sparkrun/internal/errors"
	"github.com/sirupsen/logrus"
)

// Fetcher copies a script object to a local path.
type Fetcher interface {
	Fetch(ctx context.Context, bucket, key, dest string) error
}

// ObjectGetter is the part of the S3 client the fetcher needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ Fetcher = (*S3Fetcher)(nil)

type S3Fetcher struct {
	client ObjectGetter
	logger *logrus.Entry
}

// NewS3Fetcher builds a fetcher from the default AWS credential chain.
func NewS3Fetcher(ctx context.Context, logger *logrus.Entry, optFns ...func(*s3.Options)) (*S3Fetcher, error) {
	awsConfig, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return NewFetcher(s3.NewFromConfig(awsConfig, optFns...), logger), nil
}

func NewFetcher(client ObjectGetter, logger *logrus.Entry) *S3Fetcher {
	return &S3Fetcher{
		client: client,
		logger: logger.WithField("component", "fetcher"),
	}
}

// Fetch downloads s3://bucket/key to dest. The object is written to a
// temporary file next to dest and renamed over it, so dest is either the
// previous script or the complete new one.
func (f *S3Fetcher) Fetch(ctx context.Context, bucket, key, dest string) error {
	logger := f.logger.WithFields(logrus.Fields{"bucket": bucket, "key": key, "dest": dest})
	logger.Info("downloading script")
	start := time.Now()

	output, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return sparkerrors.NewScriptDownloadError(bucket, key, describe(err))
	}
	defer output.Body.Close()

	written, err := writeAtomic(dest, output.Body)
	if err != nil {
		return sparkerrors.NewScriptDownloadError(bucket, key, err.Error())
	}

	logger.WithFields(logrus.Fields{
		"bytes":    written,
		"duration": time.Since(start),
	}).Info("script downloaded successfully")
	return nil
}

func writeAtomic(dest string, body io.Reader) (int64, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create script directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(dest)+".*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return written, fmt.Errorf("failed to write script: %w", err)
	}

	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return written, fmt.Errorf("failed to set script mode: %w", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return written, fmt.Errorf("failed to move script into place: %w", err)
	}
	return written, nil
}

// describe flattens S3 API errors into "Code: message".
func describe(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return err.Error()
}
