// Package config loads the engine configuration from config.yaml, TAO_* environment
// variables and built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/tao-dosing-engine/internal/domain"
	"github.com/tao-dosing-engine/internal/ttr"
)

// EnvPrefix prefixes every environment override, e.g. TAO_STORAGE_DRIVER.
const EnvPrefix = "TAO"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	paths  []string
	config *domain.Config
}

// NewManager creates a new configuration manager. Extra paths are searched for
// config.yaml before the standard locations.
func NewManager(paths ...string) (*Manager, error) {
	m := &Manager{paths: paths}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range m.paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/tao-engine/")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Engine defaults
	v.SetDefault("engine.default_guideline", string(domain.GuidelineFCSA))
	v.SetDefault("engine.default_target.min", domain.StandardTarget.Min)
	v.SetDefault("engine.default_target.max", domain.StandardTarget.Max)
	v.SetDefault("engine.ttr_lookback_months", 6)
	v.SetDefault("engine.rolling_window_months", 3)

	// Storage defaults
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.data_dir", DefaultDataDir())
	v.SetDefault("storage.postgres_url", "")
	v.SetDefault("storage.auto_migrate", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Report defaults
	v.SetDefault("report.max_concurrency", 4)
}

// DefaultDataDir is where the SQLite history lives unless configured otherwise.
func DefaultDataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".tao-engine")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetEngineConfig returns the clinic-level engine defaults
func (m *Manager) GetEngineConfig() *domain.EngineConfig {
	return &m.config.Engine
}

// GetStorageConfig returns storage configuration
func (m *Manager) GetStorageConfig() *domain.StorageConfig {
	return &m.config.Storage
}

// ConfigFile returns the file the configuration was read from, if any.
func (m *Manager) ConfigFile() string {
	return m.v.ConfigFileUsed()
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if _, err := domain.ParseGuideline(config.Engine.DefaultGuideline); err != nil {
		return fmt.Errorf("invalid default guideline: %s", config.Engine.DefaultGuideline)
	}
	if err := config.Engine.DefaultTarget.Validate(); err != nil {
		return fmt.Errorf("invalid default target: %w", err)
	}
	if config.Engine.TTRLookbackMonths < 1 || config.Engine.TTRLookbackMonths > 24 {
		return fmt.Errorf("ttr_lookback_months must be between 1 and 24: %d", config.Engine.TTRLookbackMonths)
	}
	if config.Engine.RollingWindowMonths < ttr.MinWindowMonths || config.Engine.RollingWindowMonths > ttr.MaxWindowMonths {
		return fmt.Errorf("rolling_window_months must be between %d and %d: %d",
			ttr.MinWindowMonths, ttr.MaxWindowMonths, config.Engine.RollingWindowMonths)
	}

	switch config.Storage.Driver {
	case "sqlite":
		if config.Storage.DataDir == "" {
			return fmt.Errorf("storage data_dir is required for sqlite")
		}
	case "postgres":
		if config.Storage.PostgresURL == "" {
			return fmt.Errorf("storage postgres_url is required for postgres")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s", config.Storage.Driver)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}
	if f := strings.ToLower(config.Logging.Format); f != "json" && f != "text" {
		return fmt.Errorf("invalid log format: %s", config.Logging.Format)
	}

	if config.Report.MaxConcurrency < 1 {
		return fmt.Errorf("report max_concurrency must be positive: %d", config.Report.MaxConcurrency)
	}
	return nil
}

// DefaultGuideline returns the configured guideline family.
func (m *Manager) DefaultGuideline() domain.Guideline {
	g, err := domain.ParseGuideline(m.config.Engine.DefaultGuideline)
	if err != nil {
		return domain.GuidelineFCSA
	}
	return g
}

// HistoryDBPath returns the path to the SQLite observation history.
func (m *Manager) HistoryDBPath() string {
	return filepath.Join(m.config.Storage.DataDir, "history.db")
}

// ExportDir returns the directory for JSON exports.
func (m *Manager) ExportDir() string {
	return filepath.Join(m.config.Storage.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (m *Manager) EnsureDataDir() error {
	if err := os.MkdirAll(m.config.Storage.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(m.ExportDir(), 0755)
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}
