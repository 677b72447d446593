package domain

// Config represents the main application configuration
type Config struct {
	Environment string        `mapstructure:"environment"`
	Engine      EngineConfig  `mapstructure:"engine"`
	Storage     StorageConfig `mapstructure:"storage"`
	Logging     LoggingConfig `mapstructure:"logging"`
	Report      ReportConfig  `mapstructure:"report"`
}

// EngineConfig holds the clinic-level defaults applied to every evaluation.
type EngineConfig struct {
	DefaultGuideline    string      `mapstructure:"default_guideline"`
	DefaultTarget       TargetRange `mapstructure:"default_target"`
	TTRLookbackMonths   int         `mapstructure:"ttr_lookback_months"`
	RollingWindowMonths int         `mapstructure:"rolling_window_months"`
}

// StorageConfig selects and configures the observation history backend.
type StorageConfig struct {
	Driver      string `mapstructure:"driver"` // "sqlite", "postgres"
	DataDir     string `mapstructure:"data_dir"`
	PostgresURL string `mapstructure:"postgres_url"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ReportConfig tunes cohort reporting.
type ReportConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
}
