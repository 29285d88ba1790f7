package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/turtacn/platemap/internal/domain/plate"
	"github.com/turtacn/platemap/internal/domain/platemap"
	"github.com/turtacn/platemap/internal/intelligence/protocol_analyzer"
	"github.com/turtacn/platemap/internal/infrastructure/messaging/kafka"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"

	DefaultOutputDir    = "."
	DefaultOutputFormat = "text"
	DefaultBase         = "library"

	DefaultWorkers     = 8
	DefaultItemTimeout = 30 * time.Second

	DefaultRedisAddr = "localhost:6379"
	DefaultCacheTTL  = 7 * 24 * time.Hour

	DefaultKafkaBroker = "localhost:9092"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "platemap-runs"

	DefaultPostgresHost = "localhost"
	DefaultPostgresPort = 5432
	DefaultPostgresDB   = "platemap"

	DefaultNamespace = "platemap"
	DefaultJob       = "platemap"
)

// Default returns a fully populated configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Analyzer.StrictSyntax = true
	cfg.Output.Color = true
	cfg.Postgres.AutoMigrate = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-value field in cfg with its default.
// Explicitly set values always win. Booleans cannot be told apart from
// "unset" here; their defaults come from Default and setDefaults.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stderr"}
	}

	// ── Analyzer ──────────────────────────────────────────────────────────────
	sym, def := &cfg.Analyzer.Symbols, protocol_analyzer.DefaultSymbols()
	fill(&sym.SourcePlate, def.SourcePlate)
	fill(&sym.DestPlate, def.DestPlate)
	fill(&sym.RunFunction, def.RunFunction)
	fill(&sym.DefineLiquid, def.DefineLiquid)
	fill(&sym.LoadLiquid, def.LoadLiquid)
	fill(&sym.Transfer, def.Transfer)
	if cfg.Analyzer.Geometry == (plate.Geometry{}) {
		cfg.Analyzer.Geometry = plate.Geometry96
	}

	// ── Enumeration ───────────────────────────────────────────────────────────
	if cfg.Enumeration.Geometry == (plate.Geometry{}) {
		cfg.Enumeration.Geometry = plate.Geometry1536
	}
	if cfg.Enumeration.Workers == 0 {
		cfg.Enumeration.Workers = DefaultWorkers
	}
	if cfg.Enumeration.ItemTimeout == 0 {
		cfg.Enumeration.ItemTimeout = DefaultItemTimeout
	}
	fill(&cfg.Enumeration.Base, DefaultBase)

	// ── Keys ──────────────────────────────────────────────────────────────────
	keys := platemap.DefaultKeyFormat()
	fill(&cfg.Keys.SulfonylPrefix, keys.SulfonylPrefix)
	fill(&cfg.Keys.AminePrefix, keys.AminePrefix)
	if cfg.Keys.Width == 0 {
		cfg.Keys.Width = keys.Width
	}

	// ── Output ────────────────────────────────────────────────────────────────
	fill(&cfg.Output.Dir, DefaultOutputDir)
	fill(&cfg.Output.Format, DefaultOutputFormat)

	// ── Redis ─────────────────────────────────────────────────────────────────
	fill(&cfg.Redis.Mode, "standalone")
	fill(&cfg.Redis.Addr, DefaultRedisAddr)
	fill(&cfg.Redis.KeyPrefix, "platemap:rxn:")
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = DefaultCacheTTL
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	fill(&cfg.Kafka.Acks, "all")
	fill(&cfg.Kafka.Topic, kafka.TopicRunCompleted)
	if cfg.Kafka.ReplicationFactor == 0 {
		cfg.Kafka.ReplicationFactor = 1
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	fill(&cfg.MinIO.Endpoint, DefaultMinIOEndpoint)
	fill(&cfg.MinIO.Bucket, DefaultMinIOBucket)
	fill(&cfg.MinIO.Prefix, "runs")

	// ── Postgres ──────────────────────────────────────────────────────────────
	fill(&cfg.Postgres.Host, DefaultPostgresHost)
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = DefaultPostgresPort
	}
	fill(&cfg.Postgres.Database, DefaultPostgresDB)
	fill(&cfg.Postgres.SSLMode, "disable")

	// ── Monitoring ────────────────────────────────────────────────────────────
	fill(&cfg.Monitoring.Namespace, DefaultNamespace)
	fill(&cfg.Monitoring.Job, DefaultJob)
}

func fill(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

// setDefaults registers every key with viper so that PLATEMAP_* variables
// override settings that appear in no config file.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output_paths", d.Log.OutputPaths)
	v.SetDefault("log.enable_caller", d.Log.EnableCaller)
	v.SetDefault("log.enable_stacktrace", d.Log.EnableStacktrace)

	v.SetDefault("analyzer.symbols.source_plate", d.Analyzer.Symbols.SourcePlate)
	v.SetDefault("analyzer.symbols.dest_plate", d.Analyzer.Symbols.DestPlate)
	v.SetDefault("analyzer.symbols.run_function", d.Analyzer.Symbols.RunFunction)
	v.SetDefault("analyzer.symbols.define_liquid", d.Analyzer.Symbols.DefineLiquid)
	v.SetDefault("analyzer.symbols.load_liquid", d.Analyzer.Symbols.LoadLiquid)
	v.SetDefault("analyzer.symbols.transfer", d.Analyzer.Symbols.Transfer)
	v.SetDefault("analyzer.strict_syntax", d.Analyzer.StrictSyntax)
	v.SetDefault("analyzer.geometry.rows", d.Analyzer.Geometry.Rows)
	v.SetDefault("analyzer.geometry.cols", d.Analyzer.Geometry.Cols)

	v.SetDefault("enumeration.geometry.rows", d.Enumeration.Geometry.Rows)
	v.SetDefault("enumeration.geometry.cols", d.Enumeration.Geometry.Cols)
	v.SetDefault("enumeration.workers", d.Enumeration.Workers)
	v.SetDefault("enumeration.item_timeout", d.Enumeration.ItemTimeout)
	v.SetDefault("enumeration.strict_ids", d.Enumeration.StrictIDs)
	v.SetDefault("enumeration.base", d.Enumeration.Base)

	v.SetDefault("keys.sulfonyl_prefix", d.Keys.SulfonylPrefix)
	v.SetDefault("keys.amine_prefix", d.Keys.AminePrefix)
	v.SetDefault("keys.width", d.Keys.Width)

	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.color", d.Output.Color)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.mode", d.Redis.Mode)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", d.Redis.TTL)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.acks", d.Kafka.Acks)
	v.SetDefault("kafka.topic", d.Kafka.Topic)
	v.SetDefault("kafka.ensure_topics", false)
	v.SetDefault("kafka.replication_factor", d.Kafka.ReplicationFactor)

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.endpoint", d.MinIO.Endpoint)
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", d.MinIO.Bucket)
	v.SetDefault("minio.prefix", d.MinIO.Prefix)
	v.SetDefault("minio.retention_days", 0)

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", d.Postgres.Host)
	v.SetDefault("postgres.port", d.Postgres.Port)
	v.SetDefault("postgres.database", d.Postgres.Database)
	v.SetDefault("postgres.username", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.ssl_mode", d.Postgres.SSLMode)
	v.SetDefault("postgres.auto_migrate", d.Postgres.AutoMigrate)

	v.SetDefault("monitoring.namespace", d.Monitoring.Namespace)
	v.SetDefault("monitoring.textfile_path", "")
	v.SetDefault("monitoring.pushgateway_url", "")
	v.SetDefault("monitoring.job", d.Monitoring.Job)
}

//Personal.AI order the ending
