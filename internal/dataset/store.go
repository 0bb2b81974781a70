package dataset

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/kanon/pkg/errors"
)

// Store loads and saves datasets from local paths or s3:// locations.
type Store struct {
	csv    CSVOptions
	s3     *S3Store
	logger *logrus.Logger
}

// NewStore creates a store. s3 may be nil, in which case s3:// locations are rejected.
func NewStore(csv CSVOptions, s3 *S3Store, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{csv: csv, s3: s3, logger: logger}
}

// Load reads a dataset.
func (s *Store) Load(ctx context.Context, location string) (*Dataset, error) {
	data, err := s.read(ctx, location)
	if err != nil {
		return nil, err
	}

	ds, err := ReadCSV(ctx, bytes.NewReader(data), s.csv)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"location": location,
		"rows":     ds.Rows(),
		"columns":  len(ds.ColumnNames()),
	}).Info("Loaded dataset")
	return ds, nil
}

// Save writes a dataset.
func (s *Store) Save(ctx context.Context, location string, ds *Dataset) error {
	var buf bytes.Buffer
	if err := WriteCSV(ctx, &buf, ds, s.csv); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "failed to encode dataset")
	}

	if IsS3URI(location) {
		loc, err := ParseS3URI(location)
		if err != nil {
			return err
		}
		if s.s3 == nil {
			return errors.NewConfigurationError(errors.CodeInvalidInput, "S3 is not configured")
		}
		return s.s3.Put(ctx, loc, buf.Bytes())
	}

	if dir := filepath.Dir(location); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "failed to create output directory")
		}
	}
	if err := os.WriteFile(location, buf.Bytes(), 0644); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, fmt.Sprintf("failed to write %s", location))
	}

	s.logger.WithFields(logrus.Fields{
		"location": location,
		"rows":     ds.Rows(),
	}).Info("Saved dataset")
	return nil
}

func (s *Store) read(ctx context.Context, location string) ([]byte, error) {
	if location == "" {
		return nil, errors.NewConfigurationError(errors.CodeInputNotFound, "input location is empty")
	}

	if IsS3URI(location) {
		loc, err := ParseS3URI(location)
		if err != nil {
			return nil, err
		}
		if s.s3 == nil {
			return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "S3 is not configured")
		}
		return s.s3.Get(ctx, loc)
	}

	data, err := os.ReadFile(location)
	if os.IsNotExist(err) {
		return nil, errors.WrapError(errors.ErrInputNotFound, errors.ErrorTypeConfiguration, errors.CodeInputNotFound,
			fmt.Sprintf("file %s not found", location))
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeReadFailed, fmt.Sprintf("failed to read %s", location))
	}
	return data, nil
}
