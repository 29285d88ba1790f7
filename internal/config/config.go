// Package config defines the configuration structures for platemap. No I/O
// happens here, only plain data types and validation.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/turtacn/platemap/internal/domain/plate"
	"github.com/turtacn/platemap/internal/domain/platemap"
	"github.com/turtacn/platemap/internal/infrastructure/database/postgres"
	"github.com/turtacn/platemap/internal/infrastructure/database/redis"
	"github.com/turtacn/platemap/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/internal/infrastructure/storage/minio"
	"github.com/turtacn/platemap/internal/intelligence/protocol_analyzer"
	"github.com/turtacn/platemap/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// AnalyzerConfig controls static analysis of protocol scripts.
type AnalyzerConfig struct {
	Symbols      protocol_analyzer.Symbols `mapstructure:"symbols"`
	StrictSyntax bool                      `mapstructure:"strict_syntax"`
	// Geometry is the live-run destination plate.
	Geometry plate.Geometry `mapstructure:"geometry"`
}

// EnumerationConfig controls product enumeration and library plating.
type EnumerationConfig struct {
	// Geometry is the library plate products are assigned to.
	Geometry    plate.Geometry `mapstructure:"geometry"`
	Workers     int            `mapstructure:"workers" validate:"gte=1,lte=1024"`
	ItemTimeout time.Duration  `mapstructure:"item_timeout" validate:"gte=0"`
	StrictIDs   bool           `mapstructure:"strict_ids"`
	Base        string         `mapstructure:"base" validate:"required"`
}

// OutputConfig controls where files go and how results are printed.
type OutputConfig struct {
	Dir    string `mapstructure:"dir" validate:"required"`
	Format string `mapstructure:"format" validate:"oneof=text json yaml table"`
	Color  bool   `mapstructure:"color"`
}

// RedisConfig enables the reaction cache.
type RedisConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	redis.RedisConfig `mapstructure:",squash"`
	TTL               time.Duration `mapstructure:"ttl" validate:"gte=0"`
	KeyPrefix         string        `mapstructure:"key_prefix"`
}

// KafkaConfig enables run completion events.
type KafkaConfig struct {
	Enabled              bool `mapstructure:"enabled"`
	kafka.ProducerConfig `mapstructure:",squash"`
	Topic                string `mapstructure:"topic"`
	EnsureTopics         bool   `mapstructure:"ensure_topics"`
	ReplicationFactor    int    `mapstructure:"replication_factor" validate:"gte=0"`
}

// MinIOConfig enables artifact archiving.
type MinIOConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	minio.MinIOConfig `mapstructure:",squash"`
}

// PostgresConfig enables run history.
type PostgresConfig struct {
	Enabled                 bool `mapstructure:"enabled"`
	postgres.PostgresConfig `mapstructure:",squash"`
	AutoMigrate             bool `mapstructure:"auto_migrate"`
}

// MonitoringConfig controls metric export. Metrics are always collected;
// they leave the process only through a textfile or a Pushgateway.
type MonitoringConfig struct {
	Namespace      string `mapstructure:"namespace" validate:"required"`
	TextfilePath   string `mapstructure:"textfile_path"`
	PushgatewayURL string `mapstructure:"pushgateway_url" validate:"omitempty,url"`
	Job            string `mapstructure:"job"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Log         logging.LogConfig  `mapstructure:"log"`
	Analyzer    AnalyzerConfig     `mapstructure:"analyzer"`
	Enumeration EnumerationConfig  `mapstructure:"enumeration"`
	Keys        platemap.KeyFormat `mapstructure:"keys"`
	Output      OutputConfig       `mapstructure:"output"`
	Redis       RedisConfig        `mapstructure:"redis"`
	Kafka       KafkaConfig        `mapstructure:"kafka"`
	MinIO       MinIOConfig        `mapstructure:"minio"`
	Postgres    PostgresConfig     `mapstructure:"postgres"`
	Monitoring  MonitoringConfig   `mapstructure:"monitoring"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

var validate = newValidator()

// newValidator reports fields by their configuration key.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks struct tags first, then the rules that span fields. The
// first problem found is returned with ErrCodeConfigInvalid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, describeValidation(err))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalid("log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if err := c.AnalyzerOptions().Validate(); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "analyzer")
	}
	if err := c.Enumeration.Geometry.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "enumeration.geometry")
	}
	if err := c.Keys.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "keys")
	}

	if c.Redis.Enabled {
		switch c.Redis.Mode {
		case "", "standalone":
			if c.Redis.Addr == "" {
				return invalid("redis.addr is required when redis is enabled")
			}
		case "sentinel":
			if c.Redis.MasterName == "" || len(c.Redis.SentinelAddrs) == 0 {
				return invalid("redis.master_name and redis.sentinel_addrs are required in sentinel mode")
			}
		case "cluster":
			if len(c.Redis.ClusterAddrs) == 0 {
				return invalid("redis.cluster_addrs is required in cluster mode")
			}
		default:
			return invalid("redis.mode %q is invalid; expected standalone|sentinel|cluster", c.Redis.Mode)
		}
	}
	if c.Kafka.Enabled {
		if err := kafka.ValidateProducerConfig(c.Kafka.ProducerConfig); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigInvalid, "kafka")
		}
	}
	if c.MinIO.Enabled && c.MinIO.Endpoint == "" {
		return invalid("minio.endpoint is required when minio is enabled")
	}
	if c.Postgres.Enabled {
		if c.Postgres.Host == "" || c.Postgres.Database == "" {
			return invalid("postgres.host and postgres.database are required when postgres is enabled")
		}
		if c.Postgres.Port < 1 || c.Postgres.Port > 65535 {
			return invalid("postgres.port %d is out of range [1, 65535]", c.Postgres.Port)
		}
	}
	return nil
}

// AnalyzerOptions converts the analyzer section.
func (c *Config) AnalyzerOptions() protocol_analyzer.Options {
	return protocol_analyzer.Options{
		Symbols:      c.Analyzer.Symbols,
		StrictSyntax: c.Analyzer.StrictSyntax,
		Geometry:     c.Analyzer.Geometry,
	}
}

func invalid(format string, args ...interface{}) error {
	return errors.New(errors.ErrCodeConfigInvalid, "config: "+fmt.Sprintf(format, args...))
}

// describeValidation turns the first validator failure into a dotted key.
func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "config: validation failed"
	}
	fe := verrs[0]
	key := strings.TrimPrefix(fe.Namespace(), "Config.")
	if fe.Param() != "" {
		return fmt.Sprintf("config: %s fails %s=%s", key, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("config: %s fails %s", key, fe.Tag())
}

//Personal.AI order the ending
