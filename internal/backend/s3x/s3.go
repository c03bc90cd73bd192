// Package s3x implements the backend capability on top of an S3-compatible
// object store (AWS S3, MinIO).
package s3x

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/gpgcloud/gpgcloud/internal/backend"
	"github.com/gpgcloud/gpgcloud/internal/common"
)

// Options configure access to one bucket.
type Options struct {
	Region          string
	Bucket          string
	Prefix          string
	AccessKey       string
	SecretAccessKey string
	// BaseEndpoint overrides the AWS endpoint, e.g. for MinIO.
	BaseEndpoint string
}

// Backend holds S3 clients for a single bucket namespace.
type Backend struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// New dials nothing; it only builds clients. Credentials fall back to the
// default AWS chain when AccessKey is empty.
func New(ctx context.Context, opts Options) (*Backend, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return NewFromClient(client, opts.Bucket, opts.Prefix), nil
}

// NewFromClient wraps an existing client, mainly for tests.
func NewFromClient(client *s3.Client, bucket, prefix string) *Backend {
	return &Backend{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}
}

func (b *Backend) fullKey(path string) string {
	if b.prefix == "" {
		return path
	}
	return strings.TrimSuffix(b.prefix, "/") + "/" + path
}

func (b *Backend) relKey(full string) string {
	if b.prefix == "" {
		return full
	}
	return strings.TrimPrefix(full, strings.TrimSuffix(b.prefix, "/")+"/")
}

// Put uploads the object. S3 PutObject replaces atomically, no temp-path
// dance is needed.
func (b *Backend) Put(ctx context.Context, path string, data []byte) error {
	if err := backend.ValidatePath(path); err != nil {
		return err
	}

	_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.fullKey(path)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return mapPutError(err)
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, path string) ([]byte, error) {
	if err := backend.ValidatePath(path); err != nil {
		return nil, err
	}

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.fullKey(path)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) || isHTTPStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("object %q: %w", path, common.ErrNotFound)
		}
		return nil, backend.Transport("get", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, backend.Transport("get", err)
	}
	return data, nil
}

func (b *Backend) Exists(ctx context.Context, path string) (bool, error) {
	if err := backend.ValidatePath(path); err != nil {
		return false, err
	}

	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.fullKey(path)),
	})
	if err != nil {
		if isHTTPStatus(err, http.StatusNotFound) {
			return false, nil
		}
		return false, backend.Transport("head", err)
	}
	return true, nil
}

// Delete is naturally idempotent: S3 returns success for absent keys.
func (b *Backend) Delete(ctx context.Context, path string) error {
	if err := backend.ValidatePath(path); err != nil {
		return err
	}

	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.fullKey(path)),
	})
	if err != nil {
		return backend.Transport("delete", err)
	}
	return nil
}

func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.fullKey(prefix)),
	})

	var paths []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, backend.Transport("list", err)
		}
		for _, obj := range page.Contents {
			paths = append(paths, b.relKey(aws.ToString(obj.Key)))
		}
	}
	return paths, nil
}

func mapPutError(err error) error {
	// Storage-quota rejections surface as 403 QuotaExceeded on
	// S3-compatible stores and as 507 on some gateways.
	if isHTTPStatus(err, http.StatusInsufficientStorage) ||
		strings.Contains(err.Error(), "QuotaExceeded") {
		return fmt.Errorf("%w: %v", common.ErrQuotaExceeded, err)
	}
	return backend.Transport("put", err)
}

func isHTTPStatus(err error, status int) bool {
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == status
}
