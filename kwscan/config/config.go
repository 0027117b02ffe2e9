package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	internal "github.com/ZanzyTHEbar/kwscan/kwscan"
	"github.com/ZanzyTHEbar/kwscan/kwscan/common"
	"github.com/ZanzyTHEbar/kwscan/kwscan/search"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Scan   ScanConfig   `mapstructure:"scan"`
	Corpus CorpusConfig `mapstructure:"corpus"`
	Log    LogConfig    `mapstructure:"log"`
}

// ScanConfig stores coordinator settings.
type ScanConfig struct {
	Workers            int           `mapstructure:"workers"`
	Strategy           string        `mapstructure:"strategy"`
	Partition          string        `mapstructure:"partition"`
	CaseSensitive      bool          `mapstructure:"caseSensitive"`
	GracePeriod        time.Duration `mapstructure:"gracePeriod"`
	AllowEmptyKeywords bool          `mapstructure:"allowEmptyKeywords"`
	AllowEmptyFiles    bool          `mapstructure:"allowEmptyFiles"`
}

// CorpusConfig stores where keywords and files come from.
type CorpusConfig struct {
	KeywordsFile string   `mapstructure:"keywordsFile"`
	IgnoreFile   string   `mapstructure:"ignoreFile"`
	Extensions   []string `mapstructure:"extensions"`
}

// LogConfig stores logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
// An empty configPath searches the default locations; a missing file there
// is not an error.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(internal.DefaultSystemConfig)
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("scan.workers", runtime.NumCPU())
	v.SetDefault("scan.strategy", search.StrategyShared)
	v.SetDefault("scan.partition", search.PolicyContiguous)
	v.SetDefault("scan.caseSensitive", true)
	v.SetDefault("scan.gracePeriod", search.DefaultGracePeriod)
	v.SetDefault("scan.allowEmptyKeywords", false)
	v.SetDefault("scan.allowEmptyFiles", false)
	v.SetDefault("corpus.keywordsFile", "")
	v.SetDefault("corpus.ignoreFile", internal.DefaultIgnoreFileName)
	v.SetDefault("corpus.extensions", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// scan.workers is read from KWSCAN_SCAN_WORKERS
	v.SetEnvPrefix(internal.DefaultEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if cfg.Corpus.KeywordsFile != "" && !filepath.IsAbs(cfg.Corpus.KeywordsFile) && v.ConfigFileUsed() != "" {
		cfg.Corpus.KeywordsFile = filepath.Join(filepath.Dir(v.ConfigFileUsed()), cfg.Corpus.KeywordsFile)
	}

	return &cfg, nil
}

// Validate checks the values a run depends on.
func (c *Config) Validate() error {
	if c.Scan.Workers < 1 {
		return &search.ConfigurationError{Field: "scan.workers", Reason: fmt.Sprintf("must be >= 1, got %d", c.Scan.Workers)}
	}
	if c.Scan.GracePeriod < 0 {
		return &search.ConfigurationError{Field: "scan.gracePeriod", Reason: "must not be negative"}
	}
	if _, err := search.NewStrategy(c.Scan.Strategy, search.StrategyOptions{}); err != nil {
		return err
	}
	if _, err := search.PartitionerByName(c.Scan.Partition); err != nil {
		return err
	}
	return nil
}

// CoordinatorOptions maps the scan settings onto coordinator options.
func (c *Config) CoordinatorOptions(logger *zerolog.Logger, metrics *common.RunMetrics) (search.Options, error) {
	partitioner, err := search.PartitionerByName(c.Scan.Partition)
	if err != nil {
		return search.Options{}, err
	}

	return search.Options{
		Workers:            c.Scan.Workers,
		Partitioner:        partitioner,
		GracePeriod:        c.Scan.GracePeriod,
		AllowEmptyKeywords: c.Scan.AllowEmptyKeywords,
		AllowEmptyFiles:    c.Scan.AllowEmptyFiles,
		Logger:             logger,
		Metrics:            metrics,
	}, nil
}

// Logger builds the application logger from the log settings.
func (c *Config) Logger() zerolog.Logger {
	return internal.NewLogger(c.Log.Level, c.Log.Format, nil)
}
