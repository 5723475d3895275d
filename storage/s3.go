package storage

import (
	"bytes"
	"context"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"
)

// S3Store keeps objects under a bucket prefix. Credentials come from the default AWS chain.
type S3Store struct {
	bucket     string
	prefix     string
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
}

// NewS3Store creates a store for bucket/prefix in region.
func NewS3Store(bucket, prefix, region string) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, errors.Wrap(err, "aws session")
	}

	return &S3Store{
		bucket:     bucket,
		prefix:     prefix,
		uploader:   s3manager.NewUploader(sess),
		downloader: s3manager.NewDownloader(sess),
	}, nil
}

func (s *S3Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Put uploads data to the bucket.
func (s *S3Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return errors.Wrapf(err, "upload %s", s.Location(name))
	}
	return nil
}

// Get downloads an object from the bucket.
func (s *S3Store) Get(ctx context.Context, name string) ([]byte, error) {
	buf := aws.NewWriteAtBuffer(nil)
	_, err := s.downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, errors.Wrapf(ErrNotFound, "%s", s.Location(name))
		}
		return nil, errors.Wrapf(err, "download %s", s.Location(name))
	}
	return buf.Bytes(), nil
}

// Location returns the s3:// URI of name.
func (s *S3Store) Location(name string) string {
	return "s3://" + s.bucket + "/" + s.key(name)
}
