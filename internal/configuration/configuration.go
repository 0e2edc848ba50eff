package configuration

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"riskcalc/internal/risk"

	"github.com/spf13/viper"
)

// AppConfig represents the complete application configuration.
type AppConfig struct {
	// Logger: logger component configuration
	Logger LoggerConfig `mapstructure:"logger"`
	// Server: HTTP server configuration
	Server ServerConfig `mapstructure:"server"`
	// Engine: scoring tables, recommendation rules and modifier settings
	Engine EngineConfig `mapstructure:"engine"`
	// Cache: result cache configuration
	Cache CacheConfig `mapstructure:"cache"`
	// History: calculation history configuration
	History HistoryConfig `mapstructure:"history"`
	// Archive: assessment archive configuration
	Archive ArchiveConfig `mapstructure:"archive"`
}

// LoggerConfig defines logging settings.
type LoggerConfig struct {
	// Level: log level: debug, info, warn, warning, error.
	// Value is case-insensitive but checked in lowercase.
	Level string `mapstructure:"level"`
	// File: optional log file. Logs go to stdout when empty.
	File string `mapstructure:"file"`
	// MaxSize: maximal log file size in megabytes
	MaxSize int `mapstructure:"max_size"`
	// MaxBackups: number of rotated log files to keep
	MaxBackups int `mapstructure:"max_backups"`
	// Compress: gzip rotated log files
	Compress bool `mapstructure:"compress"`
}

// ServerConfig contains HTTP server parameters.
type ServerConfig struct {
	// Address: address and port where the server will listen (e.g., ":8080").
	Address string `mapstructure:"address"`
}

// EngineConfig defines the data driving the risk models.
type EngineConfig struct {
	// Coefficients: optional YAML file replacing the built-in coefficient tables.
	Coefficients string `mapstructure:"coefficients"`
	// Rules: optional YAML file replacing the built-in recommendation rules.
	Rules string `mapstructure:"rules"`
	// Modifiers: optional YAML file replacing the built-in modifier settings.
	Modifiers string `mapstructure:"modifiers"`
	// ModifiedModels: models passed through the biomarker and environmental stages.
	ModifiedModels []string `mapstructure:"modified_models"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	// Size: maximal number of cached results
	Size int `mapstructure:"size"`
}

// HistoryConfig defines the calculation ledger.
type HistoryConfig struct {
	// Length: number of most recent results kept
	Length int `mapstructure:"length"`
	// AutoSave: persist every appended result to Path and reload it on start
	AutoSave bool   `mapstructure:"auto_save"`
	Path     string `mapstructure:"path"`
}

// ArchiveConfig defines the assessment archive
type ArchiveConfig struct {
	// Archive file path (optional)
	File string `mapstructure:"file"`
	// Maximal archive file size (default 100M)
	MaxSize int `mapstructure:"max_size"`
	// Number of archive files (default 20)
	MaxBackups int `mapstructure:"max_backups"`
}

// Validate checks the correctness of the entire application configuration.
// Calls validation for each nested structure and returns the first detected error.
// Returns nil if the configuration is valid.
func (c *AppConfig) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return err
	}

	if err := c.Server.Validate(); err != nil {
		return err
	}

	if err := c.Engine.Validate(); err != nil {
		return err
	}

	if err := c.Cache.Validate(); err != nil {
		return err
	}

	if err := c.History.Validate(); err != nil {
		return err
	}

	return c.Archive.Validate()
}

// Validate checks the correctness of the logger configuration.
// Verifies that the log level is set and is one of the supported values.
// Supported values: debug, info, warn, warning, error (case-insensitive).
func (l *LoggerConfig) Validate() error {
	if l.Level == "" {
		return errors.New("logger.level: must be specified")
	}

	valid := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !valid[strings.ToLower(l.Level)] {
		return fmt.Errorf("logger.level: unsupported level '%s'", l.Level)
	}

	if l.File != "" && (l.MaxSize <= 0 || l.MaxBackups < 0) {
		return errors.New("logger.max_size: must be positive when logger.file is set")
	}

	return nil
}

// Validate checks the correctness of the server configuration.
// Verifies that the server address is set.
func (n *ServerConfig) Validate() error {
	if n.Address == "" {
		return errors.New("server.address: must be specified")
	}

	return nil
}

// Validate checks that every modified model is supported.
func (e *EngineConfig) Validate() error {
	for _, name := range e.ModifiedModels {
		if _, err := risk.ParseModel(name); err != nil {
			return fmt.Errorf("engine.modified_models: %w '%s'", err, name)
		}
	}

	return nil
}

// Models returns ModifiedModels parsed. Call after Validate.
func (e *EngineConfig) Models() []risk.ModelID {
	models := make([]risk.ModelID, 0, len(e.ModifiedModels))
	for _, name := range e.ModifiedModels {
		if model, err := risk.ParseModel(name); err == nil {
			models = append(models, model)
		}
	}
	return models
}

func (c *CacheConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.TTL <= 0 {
		return errors.New("cache.ttl: must be positive")
	}
	if c.Size <= 0 {
		return errors.New("cache.size: must be positive")
	}

	return nil
}

// Validate checks the ledger length and that a path is given for auto save.
func (h *HistoryConfig) Validate() error {
	if h.Length <= 0 {
		return errors.New("history.length: must be positive")
	}
	if h.AutoSave && h.Path == "" {
		return errors.New("history.path: must be specified when auto_save is enabled")
	}

	return nil
}

// Validate archive parameters
func (a *ArchiveConfig) Validate() error {
	if a.MaxBackups == 0 {
		a.MaxBackups = 20
	}

	if a.MaxSize == 0 {
		a.MaxSize = 100
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("engine.modified_models", []string{string(risk.ModelGail)})
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.size", 1024)
	v.SetDefault("history.length", 50)
	v.SetDefault("archive.max_size", 100)
	v.SetDefault("archive.max_backups", 20)
}

// LoadConfig loads configuration from the specified file using Viper.
// Supports YAML format. Also includes environment variable loading (AutomaticEnv),
// which can override values from the file, e.g. CACHE_TTL=30m.
//
// Returns a pointer to AppConfig or an error if:
// - the file is not found or inaccessible
// - the configuration has invalid format
// - one of the sections fails validation
func LoadConfig(configPath string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}
