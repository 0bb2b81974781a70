package lookup

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/kanon/pkg/errors"
)

// RedisConfig holds configuration for the Redis table provider
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	ClusterAddrs []string      `mapstructure:"cluster_addrs"`
}

// RedisProvider reads both tables from Redis hashes:
// <prefix>:shop_categories (chain → category) and <prefix>:bin_brands (BIN → brand).
type RedisProvider struct {
	config *RedisConfig
	logger *logrus.Logger
}

// NewRedisProvider creates a provider. The connection is opened on Load.
func NewRedisProvider(config *RedisConfig, logger *logrus.Logger) (*RedisProvider, error) {
	if config == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "Redis config cannot be nil")
	}
	if config.Addr == "" && len(config.ClusterAddrs) == 0 {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "Redis address or cluster addresses are required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisProvider{config: config, logger: logger}, nil
}

// Load implements Provider.
func (r *RedisProvider) Load(ctx context.Context) (*Tables, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:       r.addrs(),
		Password:    r.config.Password,
		DB:          r.config.DB,
		DialTimeout: r.config.DialTimeout,
		ReadTimeout: r.config.ReadTimeout,
	})
	defer client.Close()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeConnectionFailed, "failed to connect to Redis")
	}

	shops, err := client.HGetAll(ctx, r.shopKey()).Result()
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeReadFailed, "failed to read shop categories")
	}
	bins, err := client.HGetAll(ctx, r.binKey()).Result()
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeReadFailed, "failed to read BIN brands")
	}

	tables := NewTables(shops, bins)
	if err := tables.Validate(); err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"addr":       r.config.Addr,
		"shops":      len(tables.ShopCategories),
		"bin_brands": len(tables.BINBrands),
	}).Info("Loaded lookup tables from Redis")
	return tables, nil
}

func (r *RedisProvider) addrs() []string {
	if len(r.config.ClusterAddrs) > 0 {
		return r.config.ClusterAddrs
	}
	return []string{r.config.Addr}
}

func (r *RedisProvider) shopKey() string {
	return r.key("shop_categories")
}

func (r *RedisProvider) binKey() string {
	return r.key("bin_brands")
}

func (r *RedisProvider) key(name string) string {
	if r.config.KeyPrefix == "" {
		return name
	}
	return r.config.KeyPrefix + ":" + name
}
