package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/inferloop/kanon/internal/dataset"
	"github.com/inferloop/kanon/internal/lookup"
	"github.com/inferloop/kanon/internal/observability/metrics"
	"github.com/inferloop/kanon/internal/pipeline"
	"github.com/inferloop/kanon/pkg/constants"
	"github.com/inferloop/kanon/pkg/errors"
)

// Lookup sources
const (
	LookupSourceFile  = "file"
	LookupSourceRedis = "redis"
)

type CLIConfig struct {
	Pipeline pipeline.Config          `mapstructure:"pipeline"`
	CSV      dataset.CSVOptions       `mapstructure:"csv"`
	Lookup   LookupConfig             `mapstructure:"lookup"`
	S3       dataset.S3Config         `mapstructure:"s3"`
	Metrics  metrics.PrometheusConfig `mapstructure:"metrics"`
	Logging  LoggingConfig            `mapstructure:"logging"`
}

type LookupConfig struct {
	Source       string             `mapstructure:"source"`
	SettingsPath string             `mapstructure:"settings_path"`
	BINListPath  string             `mapstructure:"bin_list_path"`
	BINDelimiter string             `mapstructure:"bin_delimiter"`
	Redis        lookup.RedisConfig `mapstructure:"redis"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// S3Enabled reports whether remote dataset locations can be used.
func (c *CLIConfig) S3Enabled() bool {
	return c.S3.Region != ""
}

// SetDefaults registers every default on v so that environment variables
// (KANON_PIPELINE_SUPPRESS_PERCENT and the like) are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	p := pipeline.DefaultConfig()

	v.SetDefault("pipeline.columns.shop_name", p.Columns.ShopName)
	v.SetDefault("pipeline.columns.datetime", p.Columns.Datetime)
	v.SetDefault("pipeline.columns.longitude", p.Columns.Longitude)
	v.SetDefault("pipeline.columns.latitude", p.Columns.Latitude)
	v.SetDefault("pipeline.columns.card_number", p.Columns.CardNumber)
	v.SetDefault("pipeline.quasi_identifiers", []string{})
	v.SetDefault("pipeline.mask_columns", p.MaskColumns)
	v.SetDefault("pipeline.quantile_columns", p.QuantileColumns)
	v.SetDefault("pipeline.quantile_buckets", p.QuantileBuckets)
	v.SetDefault("pipeline.distance_thresholds", p.DistanceThresholds)
	v.SetDefault("pipeline.suppress_percent", p.SuppressPercent)
	v.SetDefault("pipeline.bad_groups.threshold", p.BadGroups.Threshold)
	v.SetDefault("pipeline.bad_groups.limit", p.BadGroups.Limit)
	v.SetDefault("pipeline.keep_uniqueness", p.KeepUniqueness)
	v.SetDefault("pipeline.workers", p.Workers)

	v.SetDefault("csv.delimiter", constants.DefaultCSVDelimiter)
	v.SetDefault("csv.null_value", "")

	v.SetDefault("lookup.source", LookupSourceFile)
	v.SetDefault("lookup.settings_path", "settings.json")
	v.SetDefault("lookup.bin_list_path", "")
	v.SetDefault("lookup.bin_delimiter", constants.DefaultBINDelimiter)
	v.SetDefault("lookup.redis.addr", "")
	v.SetDefault("lookup.redis.db", 0)
	v.SetDefault("lookup.redis.dial_timeout", 5*time.Second)
	v.SetDefault("lookup.redis.read_timeout", 3*time.Second)
	v.SetDefault("lookup.redis.key_prefix", constants.AppName)

	v.SetDefault("s3.region", "")
	v.SetDefault("s3.timeout", 5*time.Minute)
	v.SetDefault("s3.max_retries", 3)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", constants.AppName)
	v.SetDefault("metrics.subsystem", "pipeline")
	v.SetDefault("metrics.textfile_path", "")

	v.SetDefault("logging.level", constants.DefaultLogLevel)
	v.SetDefault("logging.format", constants.DefaultLogFormat)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("logging.compress", true)
}

// LoadConfig reads cfgFile, or $HOME/.kanon.yaml when cfgFile is empty, on top
// of the defaults and the KANON_ environment.
func LoadConfig(v *viper.Viper, cfgFile string) (*CLIConfig, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(constants.DefaultConfigName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeInvalidFormat,
				"error reading config file")
		}
	}

	config := &CLIConfig{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeInvalidFormat,
			"error unmarshaling config")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks settings that are not covered by the pipeline itself.
func (c *CLIConfig) Validate() error {
	switch c.Lookup.Source {
	case LookupSourceFile, LookupSourceRedis:
	default:
		return errors.NewConfigurationError(errors.CodeInvalidInput,
			fmt.Sprintf("unknown lookup source %q, expected %s or %s", c.Lookup.Source, LookupSourceFile, LookupSourceRedis))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return errors.NewConfigurationError(errors.CodeInvalidInput,
			fmt.Sprintf("unknown log format %q, expected text or json", c.Logging.Format))
	}
	return nil
}
