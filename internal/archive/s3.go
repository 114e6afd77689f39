package archive

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// S3Options configures an S3 archive source.
type S3Options struct {
	Bucket string
	Prefix string
	Region string

	// Static credentials; when empty the default AWS credential chain
	// (environment, shared config) is used.
	AccessKey string
	SecretKey string
	Token     string
}

// S3Source lists and downloads granules from an S3 bucket prefix.
type S3Source struct {
	svc    s3iface.S3API
	bucket string
	prefix string
	accept func(key string) bool
}

// NewS3Source creates an S3 archive source. accept filters listed keys;
// a nil accept keeps every object under the prefix.
func NewS3Source(opts S3Options, accept func(key string) bool) (*S3Source, error) {
	cfg := &aws.Config{
		Region: aws.String(opts.Region),
	}
	if opts.AccessKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(opts.AccessKey, opts.SecretKey, opts.Token)
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "archive: create aws session")
	}

	return &S3Source{
		svc:    s3.New(sess),
		bucket: opts.Bucket,
		prefix: opts.Prefix,
		accept: accept,
	}, nil
}

// List returns the object keys under the configured prefix that pass the
// accept filter. Pseudo-directory markers (keys ending in "/") are skipped.
func (s *S3Source) List(ctx context.Context) ([]string, error) {
	var keys []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	}

	err := s.svc.ListObjectsV2PagesWithContext(ctx, input,
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, obj := range page.Contents {
				key := aws.StringValue(obj.Key)
				if strings.HasSuffix(key, "/") {
					continue
				}
				if s.accept != nil && !s.accept(key) {
					continue
				}
				keys = append(keys, key)
			}
			return true
		})
	if err != nil {
		return nil, eris.Wrapf(err, "archive: list s3://%s/%s", s.bucket, s.prefix)
	}

	zap.L().Debug("archive: listed s3 objects",
		zap.String("bucket", s.bucket),
		zap.String("prefix", s.prefix),
		zap.Int("count", len(keys)),
	)
	return keys, nil
}

// Fetch downloads one object to the local path.
func (s *S3Source) Fetch(ctx context.Context, key, localPath string) error {
	out, err := s.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return eris.Wrapf(err, "archive: get s3://%s/%s", s.bucket, key)
	}
	defer out.Body.Close() //nolint:errcheck

	f, err := os.Create(localPath)
	if err != nil {
		return eris.Wrapf(err, "archive: create %s", localPath)
	}
	defer f.Close() //nolint:errcheck

	n, err := io.Copy(f, out.Body)
	if err != nil {
		return eris.Wrapf(err, "archive: write %s", localPath)
	}

	zap.L().Debug("archive: downloaded granule",
		zap.String("key", key),
		zap.Int64("bytes", n),
	)
	return nil
}
