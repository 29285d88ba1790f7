package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/platemap/internal/domain/plate"
	"github.com/turtacn/platemap/pkg/errors"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, plate.Geometry96, cfg.Analyzer.Geometry)
	assert.Equal(t, plate.Geometry1536, cfg.Enumeration.Geometry)
	assert.True(t, cfg.Analyzer.StrictSyntax)
	assert.Equal(t, DefaultWorkers, cfg.Enumeration.Workers)
	assert.Equal(t, DefaultBase, cfg.Enumeration.Base)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.MinIO.Enabled)
	assert.False(t, cfg.Postgres.Enabled)
	assert.Equal(t, "platemap", cfg.Monitoring.Namespace)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Enumeration.Workers = 3
	cfg.Enumeration.ItemTimeout = time.Second
	cfg.Output.Format = "json"
	cfg.Keys.SulfonylPrefix = "SUL"
	cfg.Analyzer.Geometry = plate.Geometry384

	ApplyDefaults(cfg)

	assert.Equal(t, 3, cfg.Enumeration.Workers)
	assert.Equal(t, time.Second, cfg.Enumeration.ItemTimeout)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "SUL", cfg.Keys.SulfonylPrefix)
	assert.Equal(t, plate.Geometry384, cfg.Analyzer.Geometry)
	assert.NotEmpty(t, cfg.Keys.AminePrefix)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"workers too low", func(c *Config) { c.Enumeration.Workers = -1 }, "enumeration.workers"},
		{"unknown output format", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"empty symbol", func(c *Config) { c.Analyzer.Symbols.Transfer = "" }, "transfer"},
		{"zero library geometry", func(c *Config) { c.Enumeration.Geometry = plate.Geometry{Rows: 0, Cols: 4} }, "enumeration.geometry"},
		{"key width", func(c *Config) { c.Keys.Width = 12 }, "keys.width"},
		{"pushgateway url", func(c *Config) { c.Monitoring.PushgatewayURL = "not a url" }, "monitoring.pushgateway_url"},
		{"redis mode", func(c *Config) { c.Redis.Enabled = true; c.Redis.Mode = "ring" }, "redis.mode"},
		{"redis sentinel", func(c *Config) { c.Redis.Enabled = true; c.Redis.Mode = "sentinel" }, "sentinel"},
		{"redis cluster", func(c *Config) { c.Redis.Enabled = true; c.Redis.Mode = "cluster" }, "cluster_addrs"},
		{"kafka brokers", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }, "kafka"},
		{"minio endpoint", func(c *Config) { c.MinIO.Enabled = true; c.MinIO.Endpoint = "" }, "minio.endpoint"},
		{"postgres port", func(c *Config) { c.Postgres.Enabled = true; c.Postgres.Port = 70000 }, "postgres.port"},
		{"postgres database", func(c *Config) { c.Postgres.Enabled = true; c.Postgres.Database = "" }, "postgres.database"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeConfigInvalid))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidate_DisabledBackendsAreNotChecked(t *testing.T) {
	cfg := Default()
	cfg.Redis.Mode = "ring"
	cfg.MinIO.Endpoint = ""
	cfg.Postgres.Port = 0
	assert.NoError(t, cfg.Validate())
}

func TestAnalyzerOptions(t *testing.T) {
	cfg := Default()
	cfg.Analyzer.StrictSyntax = false
	cfg.Analyzer.Symbols.Transfer = "move"

	opts := cfg.AnalyzerOptions()
	assert.False(t, opts.StrictSyntax)
	assert.Equal(t, "move", opts.Symbols.Transfer)
	assert.Equal(t, plate.Geometry96, opts.Geometry)
}

//Personal.AI order the ending
