package pipeline

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/inferloop/kanon/internal/privacy"
	"github.com/inferloop/kanon/internal/transforms"
	"github.com/inferloop/kanon/pkg/constants"
	"github.com/inferloop/kanon/pkg/errors"
)

// ColumnConfig names the input columns each generalization reads. An empty
// name disables the corresponding transform.
type ColumnConfig struct {
	ShopName   string `json:"shop_name" mapstructure:"shop_name"`
	Datetime   string `json:"datetime" mapstructure:"datetime"`
	Longitude  string `json:"longitude" mapstructure:"longitude"`
	Latitude   string `json:"latitude" mapstructure:"latitude"`
	CardNumber string `json:"card_number" mapstructure:"card_number"`
}

// Config drives one anonymization run.
type Config struct {
	Columns            ColumnConfig            `json:"columns" mapstructure:"columns"`
	QuasiIdentifiers   []string                `json:"quasi_identifiers" mapstructure:"quasi_identifiers"`
	MaskColumns        []string                `json:"mask_columns" mapstructure:"mask_columns"`
	QuantileColumns    []string                `json:"quantile_columns" mapstructure:"quantile_columns"`
	QuantileBuckets    int                     `json:"quantile_buckets" mapstructure:"quantile_buckets"`
	DistanceThresholds []float64               `json:"distance_thresholds" mapstructure:"distance_thresholds"`
	SuppressPercent    float64                 `json:"suppress_percent" mapstructure:"suppress_percent"`
	BadGroups          privacy.BadGroupOptions `json:"bad_groups" mapstructure:"bad_groups"`
	KeepUniqueness     bool                    `json:"keep_uniqueness" mapstructure:"keep_uniqueness"`
	Workers            int                     `json:"workers" mapstructure:"workers"`
}

// DefaultConfig returns the configuration for the purchase dataset layout.
func DefaultConfig() *Config {
	return &Config{
		Columns: ColumnConfig{
			ShopName:   constants.ColumnShopName,
			Datetime:   constants.ColumnDatetime,
			Longitude:  constants.ColumnLongitude,
			Latitude:   constants.ColumnLatitude,
			CardNumber: constants.ColumnCardNumber,
		},
		MaskColumns:        []string{constants.ColumnCategory, constants.ColumnBrand},
		QuantileColumns:    []string{constants.ColumnQuantity, constants.ColumnPrice},
		QuantileBuckets:    constants.DefaultQuantileBuckets,
		DistanceThresholds: append([]float64(nil), constants.DefaultDistanceThresholdsKm...),
		SuppressPercent:    constants.DefaultSuppressPercent,
		BadGroups: privacy.BadGroupOptions{
			Threshold: constants.DefaultBadGroupThreshold,
			Limit:     constants.DefaultBadGroupLimit,
		},
		Workers: constants.DefaultWorkers,
	}
}

// Validate checks the configuration before any data is touched.
func (c *Config) Validate() error {
	if c == nil {
		return errors.WrapError(errors.ErrInvalidConfiguration, errors.ErrorTypeConfiguration, errors.CodeInvalidInput, "pipeline configuration is nil")
	}
	if len(c.QuasiIdentifiers) == 0 {
		return errors.NewPreconditionError(errors.CodeEmptyQuasiIdent, errors.ErrEmptyQuasiIdentifiers).
			WithDetails("select at least one quasi-identifier column")
	}
	if err := privacy.ValidatePercent(c.SuppressPercent); err != nil {
		return err
	}
	if c.QuantileBuckets < 1 && len(c.QuantileColumns) > 0 {
		return errors.WrapError(errors.ErrInvalidCategory, errors.ErrorTypeConfiguration, errors.CodeInvalidCategoryNum,
			fmt.Sprintf("got %d", c.QuantileBuckets))
	}
	if c.Columns.Longitude != "" || c.Columns.Latitude != "" {
		if c.Columns.Longitude == "" || c.Columns.Latitude == "" {
			return errors.NewConfigurationError(errors.CodeInvalidInput, "longitude and latitude columns must be configured together")
		}
		if err := transforms.DistanceBands(c.DistanceThresholds).Validate(); err != nil {
			return err
		}
	}
	if c.BadGroups.Threshold < 0 || c.BadGroups.Limit < 0 {
		return errors.NewValidationError(errors.CodeOutOfRange, "bad group threshold and limit must not be negative")
	}
	if c.Workers < 1 {
		return errors.NewConfigurationError(errors.CodeOutOfRange, fmt.Sprintf("workers must be at least 1, got %d", c.Workers))
	}

	touched := append([]string{
		c.Columns.ShopName, c.Columns.Datetime, c.Columns.Longitude, c.Columns.Latitude, c.Columns.CardNumber,
	}, c.MaskColumns...)
	touched = append(touched, c.QuantileColumns...)
	touched = lo.Compact(touched)
	if dup := lo.FindDuplicates(touched); len(dup) > 0 {
		return errors.NewConfigurationError(errors.CodeInvalidInput,
			fmt.Sprintf("columns %v are assigned to more than one transform", dup))
	}
	return nil
}
