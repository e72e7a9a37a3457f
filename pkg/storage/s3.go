// Package storage uploads exported tiles to S3-compatible object storage.
//
// Any endpoint speaking the S3 API works (AWS, MinIO, R2). Objects are
// keyed "{prefix}/{run id}/{file name}" so repeated exports of the same
// sheet never overwrite each other.
package storage

import (
	"context"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/charmbracelet/log"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/export"
)

// Config selects the bucket and the credentials.
type Config struct {
	// Endpoint is the S3 API URL. Empty uses AWS.
	Endpoint string `toml:"endpoint"`
	Region   string `toml:"region"`
	Bucket   string `toml:"bucket"`
	Prefix   string `toml:"prefix"`

	// AccessKey and SecretKey are static credentials. When empty the
	// default AWS credential chain is used.
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`

	// CreateBucket creates the bucket on first upload if it is missing.
	CreateBucket bool `toml:"create_bucket"`
}

// Validate checks that a bucket is named.
func (c Config) Validate() error {
	if c.Bucket == "" {
		return sserrors.New(sserrors.ErrCodeInvalidConfig, "storage bucket is required")
	}
	if c.Endpoint != "" {
		if err := sserrors.ValidateURL(c.Endpoint); err != nil {
			return sserrors.Wrap(sserrors.ErrCodeInvalidConfig, err, "storage endpoint")
		}
	}
	return nil
}

// api is the subset of the S3 client the uploader calls.
type api interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader puts exported files into one bucket.
type Uploader struct {
	client api
	cfg    Config
	logger *log.Logger
}

// New builds an S3 client from cfg. Custom endpoints use path-style
// addressing, which MinIO and most self-hosted servers require.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Uploader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, sserrors.Wrap(sserrors.ErrCodeInvalidConfig, err, "load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newUploader(client, cfg, logger), nil
}

func newUploader(client api, cfg Config, logger *log.Logger) *Uploader {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Uploader{client: client, cfg: cfg, logger: logger}
}

// Bucket returns the target bucket.
func (u *Uploader) Bucket() string { return u.cfg.Bucket }

// EnsureBucket checks the bucket and creates it when CreateBucket is set.
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(u.cfg.Bucket)})
	if err == nil {
		return nil
	}
	if !u.cfg.CreateBucket {
		return sserrors.Network(err, "bucket %s", u.cfg.Bucket)
	}
	if _, err := u.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(u.cfg.Bucket)}); err != nil {
		return sserrors.Network(err, "create bucket %s", u.cfg.Bucket)
	}
	u.logger.Info("created bucket", "bucket", u.cfg.Bucket)
	return nil
}

// Key returns the object key of a file exported in run.
func (u *Uploader) Key(runID, file string) string {
	return path.Join(u.cfg.Prefix, runID, filepath.Base(file))
}

// Failure is one file that could not be uploaded.
type Failure struct {
	Path string
	Err  error
}

// Report lists the outcome of an upload.
type Report struct {
	Uploaded []string
	Failed   []Failure
}

// Upload puts every successfully exported file of results into the bucket.
// A failed object is recorded and the rest continue; cancellation stops
// the upload and returns the context error with the partial report.
func (u *Uploader) Upload(ctx context.Context, results []export.Result) (Report, error) {
	var rep Report
	if err := u.EnsureBucket(ctx); err != nil {
		return rep, err
	}
	for _, r := range results {
		if r.Status != export.Success {
			continue
		}
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		key := u.Key(r.RunID, r.Path)
		if err := u.put(ctx, r.Path, key); err != nil {
			u.logger.Warn("upload failed", "file", r.Path, "err", err)
			rep.Failed = append(rep.Failed, Failure{Path: r.Path, Err: err})
			continue
		}
		u.logger.Debug("uploaded", "bucket", u.cfg.Bucket, "key", key)
		rep.Uploaded = append(rep.Uploaded, key)
	}
	return rep, nil
}

func (u *Uploader) put(ctx context.Context, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return sserrors.ExportIO(err, "open %s", file)
	}
	defer f.Close()

	in := &s3.PutObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := mime.TypeByExtension(filepath.Ext(file)); ct != "" {
		in.ContentType = aws.String(ct)
	}
	if _, err := u.client.PutObject(ctx, in); err != nil {
		return sserrors.Network(err, "put %s", key)
	}
	return nil
}
