package dataset

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/kanon/pkg/errors"
)

// S3Config holds configuration for S3-backed datasets
type S3Config struct {
	Region          string        `mapstructure:"region"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	SessionToken    string        `mapstructure:"session_token"`
	Endpoint        string        `mapstructure:"endpoint"`
	ForcePathStyle  bool          `mapstructure:"force_path_style"`
	DisableSSL      bool          `mapstructure:"disable_ssl"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	PartSize        int64         `mapstructure:"part_size"`
}

// S3Store reads and writes whole dataset objects.
type S3Store struct {
	config     *S3Config
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
	logger     *logrus.Logger
	mu         sync.Mutex
}

// S3Location is a parsed s3://bucket/key address.
type S3Location struct {
	Bucket string
	Key    string
}

// IsS3URI reports whether location uses the s3 scheme.
func IsS3URI(location string) bool {
	return strings.HasPrefix(location, "s3://")
}

// ParseS3URI splits an s3://bucket/key address.
func ParseS3URI(location string) (S3Location, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme != "s3" {
		return S3Location{}, errors.NewConfigurationError(errors.CodeInvalidInput, fmt.Sprintf("invalid S3 location %q", location))
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return S3Location{}, errors.NewConfigurationError(errors.CodeInvalidInput,
			fmt.Sprintf("S3 location %q must name a bucket and a key", location))
	}
	return S3Location{Bucket: u.Host, Key: key}, nil
}

// NewS3Store creates a new S3 store. The session is created lazily.
func NewS3Store(config *S3Config, logger *logrus.Logger) (*S3Store, error) {
	if config == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "S3 config cannot be nil")
	}
	if config.Region == "" {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "S3 region is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &S3Store{config: config, logger: logger}, nil
}

func (s *S3Store) connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.downloader != nil {
		return nil
	}

	awsConfig := &aws.Config{
		Region: aws.String(s.config.Region),
	}
	if s.config.MaxRetries > 0 {
		awsConfig.MaxRetries = aws.Int(s.config.MaxRetries)
	}
	if s.config.AccessKeyID != "" && s.config.SecretAccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			s.config.AccessKeyID,
			s.config.SecretAccessKey,
			s.config.SessionToken,
		)
	}
	// S3-compatible services
	if s.config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(s.config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(s.config.ForcePathStyle)
	}
	if s.config.DisableSSL {
		awsConfig.DisableSSL = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed, "failed to create AWS session")
	}

	s.uploader = s3manager.NewUploader(sess)
	s.downloader = s3manager.NewDownloader(sess)
	if s.config.PartSize > 0 {
		s.uploader.PartSize = s.config.PartSize
	}
	return nil
}

func (s *S3Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout > 0 {
		return context.WithTimeout(ctx, s.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// Get downloads an object.
func (s *S3Store) Get(ctx context.Context, loc S3Location) ([]byte, error) {
	if err := s.connect(); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	buf := aws.NewWriteAtBuffer([]byte{})
	n, err := s.downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		if strings.Contains(err.Error(), s3.ErrCodeNoSuchKey) {
			return nil, errors.WrapError(errors.ErrInputNotFound, errors.ErrorTypeConfiguration, errors.CodeInputNotFound,
				fmt.Sprintf("s3://%s/%s not found", loc.Bucket, loc.Key))
		}
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "failed to download from S3")
	}

	s.logger.WithFields(logrus.Fields{
		"bucket":   loc.Bucket,
		"key":      loc.Key,
		"bytes":    n,
		"duration": time.Since(start),
	}).Debug("Downloaded dataset object")
	return buf.Bytes(), nil
}

// Put uploads an object.
func (s *S3Store) Put(ctx context.Context, loc S3Location, data []byte) error {
	if err := s.connect(); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(loc.Bucket),
		Key:         aws.String(loc.Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "failed to upload to S3")
	}

	s.logger.WithFields(logrus.Fields{
		"bucket": loc.Bucket,
		"key":    loc.Key,
		"bytes":  len(data),
	}).Info("Uploaded dataset object")
	return nil
}
