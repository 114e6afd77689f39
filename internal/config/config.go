package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Grid      GridConfig      `yaml:"grid" mapstructure:"grid"`
	Archive   ArchiveConfig   `yaml:"archive" mapstructure:"archive"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Basemap   BasemapConfig   `yaml:"basemap" mapstructure:"basemap"`
	Analyze   AnalyzeConfig   `yaml:"analyze" mapstructure:"analyze"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// GridConfig holds the two aggregation tunables.
type GridConfig struct {
	CellSize float64 `yaml:"cell_size" mapstructure:"cell_size"`
	TopN     int     `yaml:"top_n" mapstructure:"top_n"`
}

// ArchiveConfig configures granule acquisition from the data archive.
type ArchiveConfig struct {
	Source    string   `yaml:"source" mapstructure:"source"` // "s3" or "ftp"
	Bucket    string   `yaml:"bucket" mapstructure:"bucket"`
	Prefix    string   `yaml:"prefix" mapstructure:"prefix"`
	Region    string   `yaml:"region" mapstructure:"region"`
	AccessKey string   `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string   `yaml:"secret_key" mapstructure:"secret_key"`
	Token     string   `yaml:"token" mapstructure:"token"`
	FTPURLs   []string `yaml:"ftp_urls" mapstructure:"ftp_urls"`
	DataDir   string   `yaml:"data_dir" mapstructure:"data_dir"`
}

// AnthropicConfig holds Anthropic API settings for explanation generation.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// CacheConfig configures the explanation cache.
type CacheConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the presentation server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// BasemapConfig configures the countries basemap conversion.
type BasemapConfig struct {
	URL        string   `yaml:"url" mapstructure:"url"`
	Properties []string `yaml:"properties" mapstructure:"properties"`
}

// AnalyzeConfig configures the analysis command.
type AnalyzeConfig struct {
	Output      string `yaml:"output" mapstructure:"output"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the configuration for the given command mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Grid.CellSize <= 0 {
		problems = append(problems, "grid.cell_size must be > 0")
	}
	if c.Grid.TopN <= 0 {
		problems = append(problems, "grid.top_n must be > 0")
	}

	switch mode {
	case "analyze":
		if c.Analyze.Concurrency < 1 || c.Analyze.Concurrency > 32 {
			problems = append(problems, "analyze.concurrency must be between 1 and 32")
		}
	case "fetch":
		switch c.Archive.Source {
		case "s3":
			if c.Archive.Bucket == "" {
				problems = append(problems, "archive.bucket is required for s3 source")
			}
		case "ftp":
			if len(c.Archive.FTPURLs) == 0 {
				problems = append(problems, "archive.ftp_urls is required for ftp source")
			}
		default:
			problems = append(problems, "archive.source must be s3 or ftp")
		}
		if c.Archive.DataDir == "" {
			problems = append(problems, "archive.data_dir is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Cache.Path == "" {
			problems = append(problems, "cache.path is required")
		}
	case "basemap":
		// No extra requirements; a local input path may replace the URL.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CO2SCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("grid.cell_size", 1.0)
	v.SetDefault("grid.top_n", 10)
	v.SetDefault("archive.source", "s3")
	v.SetDefault("archive.bucket", "gesdisc-cumulus-prod-protected")
	v.SetDefault("archive.prefix", "OCO3_DATA/OCO3_L2_Lite_FP.11r")
	v.SetDefault("archive.region", "us-west-2")
	v.SetDefault("archive.data_dir", "data/granules")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("cache.path", "data/reasoning.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("basemap.url", "https://naciscdn.org/naturalearth/10m/cultural/ne_10m_admin_0_countries.zip")
	v.SetDefault("basemap.properties", []string{"NAME_EN", "ISO_A3"})
	v.SetDefault("analyze.output", "data/anomalies.geojson")
	v.SetDefault("analyze.concurrency", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
