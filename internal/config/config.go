package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"gosip/domain/sip"
	"gosip/internal/bdshift"
	"gosip/internal/errors"
	"gosip/internal/qsip"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig `validate:"required"`
	Server   ServerConfig   `validate:"required"`
	Analysis AnalysisConfig `validate:"required"`
	LogLevel string
}

// DatabaseConfig holds result store connection settings
type DatabaseConfig struct {
	Driver string `validate:"required"`
	URL    string `validate:"required"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string `validate:"required"`
}

// AnalysisConfig holds the defaults applied to BD_shift and qSIP runs
type AnalysisConfig struct {
	Isotope          sip.Isotope
	BootReplicates   int
	Alpha            float64
	SampleControl    int
	SampleTreatment  int
	Workers          int
	Seed             int64
	DensityColumn    string
	FractionColumn   string
	ReplicateColumn  string
	BDShiftNPerm     int
	BDShiftNullAlpha float64

	// upper bounds on caller supplied resampling sizes
	MaxBootReplicates int
	MaxNPerm          int
	MaxSampleSize     int
}

// BDShiftOptions returns the configured BD_shift options
func (a AnalysisConfig) BDShiftOptions() bdshift.Options {
	return bdshift.Options{
		Columns: bdshift.Columns{Density: a.DensityColumn, Fraction: a.FractionColumn},
		NPerm:   a.BDShiftNPerm,
		Alpha:   a.BDShiftNullAlpha,
		Seed:    a.Seed,
	}
}

// QSIPColumns returns the configured qSIP metadata columns
func (a AnalysisConfig) QSIPColumns() qsip.Columns {
	return qsip.Columns{Density: a.DensityColumn, Replicate: a.ReplicateColumn}
}

// BootstrapOptions returns the configured bootstrap settings
func (a AnalysisConfig) BootstrapOptions() qsip.BootstrapOptions {
	return qsip.BootstrapOptions{
		SampleSize: qsip.SampleSize{Control: a.SampleControl, Treatment: a.SampleTreatment},
		Replicates: a.BootReplicates,
		Alpha:      a.Alpha,
		Workers:    a.Workers,
		Seed:       a.Seed,
	}
}

// CheckBDShift rejects a permutation count above MaxNPerm
func (a AnalysisConfig) CheckBDShift(opts bdshift.Options) error {
	if opts.NPerm > a.MaxNPerm {
		return errors.InvalidInput(fmt.Sprintf("nperm %d exceeds the limit of %d", opts.NPerm, a.MaxNPerm))
	}
	return nil
}

// CheckBootstrap rejects replicate counts and draw sizes above the configured limits
func (a AnalysisConfig) CheckBootstrap(opts qsip.BootstrapOptions) error {
	if opts.Replicates > a.MaxBootReplicates {
		return errors.InvalidInput(fmt.Sprintf("replicates %d exceeds the limit of %d", opts.Replicates, a.MaxBootReplicates))
	}
	if opts.SampleSize.Control > a.MaxSampleSize || opts.SampleSize.Treatment > a.MaxSampleSize {
		return errors.InvalidInput(fmt.Sprintf("sample size control=%d treatment=%d exceeds the limit of %d",
			opts.SampleSize.Control, opts.SampleSize.Treatment, a.MaxSampleSize))
	}
	return nil
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: *loadDatabaseConfig(),
		Server:   *loadServerConfig(),
		Analysis: *loadAnalysisConfig(),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Driver: getEnvOrDefault("DATABASE_DRIVER", "sqlite"),
		URL:    getEnvOrDefault("DATABASE_URL", "file:gosip.db"),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port: getEnvOrDefault("PORT", "8080"),
	}
}

func loadAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		Isotope:          sip.Isotope(getEnvOrDefault("SIP_ISOTOPE", string(sip.Carbon13))),
		BootReplicates:   getEnvIntOrDefault("SIP_BOOT_N", 1000),
		Alpha:            getEnvFloatOrDefault("SIP_ALPHA", 0.1),
		SampleControl:    getEnvIntOrDefault("SIP_SAMPLE_CONTROL", 3),
		SampleTreatment:  getEnvIntOrDefault("SIP_SAMPLE_TREATMENT", 3),
		Workers:          getEnvIntOrDefault("SIP_WORKERS", runtime.GOMAXPROCS(0)),
		Seed:             getEnvInt64OrDefault("SIP_SEED", 42),
		DensityColumn:    getEnvOrDefault("SIP_DENSITY_COLUMN", "Buoyant_density"),
		FractionColumn:   getEnvOrDefault("SIP_FRACTION_COLUMN", "Fraction"),
		ReplicateColumn:  getEnvOrDefault("SIP_REPLICATE_COLUMN", "Replicate"),
		BDShiftNPerm:     getEnvIntOrDefault("SIP_BDSHIFT_NPERM", 0),
		BDShiftNullAlpha: getEnvFloatOrDefault("SIP_BDSHIFT_ALPHA", 0.05),

		MaxBootReplicates: getEnvIntOrDefault("SIP_MAX_BOOT_N", 100000),
		MaxNPerm:          getEnvIntOrDefault("SIP_MAX_NPERM", 100000),
		MaxSampleSize:     getEnvIntOrDefault("SIP_MAX_SAMPLE_SIZE", 1000),
	}
}

func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case "postgres", "sqlite":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("DATABASE_DRIVER must be postgres or sqlite, got %q", config.Database.Driver))
	}
	if config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}

	a := config.Analysis
	switch a.Isotope {
	case sip.Carbon13, sip.Oxygen18:
	default:
		return errors.ConfigInvalid(fmt.Sprintf("SIP_ISOTOPE must be 13C or 18O, got %q", a.Isotope))
	}
	if a.BootReplicates < 0 {
		return errors.ConfigInvalid("SIP_BOOT_N must not be negative")
	}
	if a.Alpha <= 0 || a.Alpha >= 1 {
		return errors.ConfigInvalid("SIP_ALPHA must be in (0, 1)")
	}
	if a.BDShiftNullAlpha <= 0 || a.BDShiftNullAlpha >= 1 {
		return errors.ConfigInvalid("SIP_BDSHIFT_ALPHA must be in (0, 1)")
	}
	if a.SampleControl < 1 || a.SampleTreatment < 1 {
		return errors.ConfigInvalid("SIP_SAMPLE_CONTROL and SIP_SAMPLE_TREATMENT must be positive")
	}
	if a.Workers < 1 {
		return errors.ConfigInvalid("SIP_WORKERS must be positive")
	}
	if a.BDShiftNPerm < 0 {
		return errors.ConfigInvalid("SIP_BDSHIFT_NPERM must not be negative")
	}
	if a.MaxBootReplicates < 1 || a.MaxNPerm < 1 || a.MaxSampleSize < 1 {
		return errors.ConfigInvalid("SIP_MAX_BOOT_N, SIP_MAX_NPERM and SIP_MAX_SAMPLE_SIZE must be positive")
	}
	if err := a.CheckBDShift(a.BDShiftOptions()); err != nil {
		return errors.ConfigInvalid("SIP_BDSHIFT_NPERM exceeds SIP_MAX_NPERM")
	}
	if err := a.CheckBootstrap(a.BootstrapOptions()); err != nil {
		return errors.ConfigInvalid("SIP_BOOT_N or the sample sizes exceed their SIP_MAX_* limits")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
