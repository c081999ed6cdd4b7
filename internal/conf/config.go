// Package conf loads miridb settings from defaults, config.yaml and MIRIDB_* environment variables.
package conf

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/miri-pixeldb/internal/errors"
	"github.com/tphakala/miri-pixeldb/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// EnvPrefix is the prefix of all environment variables read by miridb.
const EnvPrefix = "MIRIDB"

// Database types
const (
	DatabaseSQLite   = "sqlite"
	DatabaseMySQL    = "mysql"
	DatabasePostgres = "postgres"
)

// Settings is the root of the configuration tree.
type Settings struct {
	Debug       bool                 `mapstructure:"debug" yaml:"debug"`
	Logging     logger.LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Database    DatabaseSettings     `mapstructure:"database" yaml:"database"`
	Geometry    GeometrySettings     `mapstructure:"geometry" yaml:"geometry"`
	Ingest      IngestSettings       `mapstructure:"ingest" yaml:"ingest"`
	Calibration CalibrationSettings  `mapstructure:"calibration" yaml:"calibration"`
	Metrics     MetricsSettings      `mapstructure:"metrics" yaml:"metrics"`
	Telemetry   TelemetrySettings    `mapstructure:"telemetry" yaml:"telemetry"`
}

// DatabaseSettings selects and configures the relational store.
type DatabaseSettings struct {
	Type               string           `mapstructure:"type" yaml:"type"` // sqlite, mysql or postgres
	SQLite             SQLiteSettings   `mapstructure:"sqlite" yaml:"sqlite"`
	MySQL              MySQLSettings    `mapstructure:"mysql" yaml:"mysql"`
	Postgres           PostgresSettings `mapstructure:"postgres" yaml:"postgres"`
	BatchSize          int              `mapstructure:"batch_size" yaml:"batch_size"` // rows per INSERT statement
	SlowQueryThreshold time.Duration    `mapstructure:"slow_query_threshold" yaml:"slow_query_threshold"`
}

type SQLiteSettings struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type MySQLSettings struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
}

type PostgresSettings struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// GeometrySettings describes the detector frame and its named windows.
type GeometrySettings struct {
	Rows                    int                `mapstructure:"rows" yaml:"rows"`
	Cols                    int                `mapstructure:"cols" yaml:"cols"`
	ReferenceRows           int                `mapstructure:"reference_rows" yaml:"reference_rows"`
	DataColumnsPerReference int                `mapstructure:"data_columns_per_reference" yaml:"data_columns_per_reference"`
	Detectors               []DetectorSettings `mapstructure:"detectors" yaml:"detectors"`
	Subarrays               []SubarraySettings `mapstructure:"subarrays" yaml:"subarrays"`
}

type DetectorSettings struct {
	Name  string `mapstructure:"name" yaml:"name"`
	SCAID int    `mapstructure:"sca_id" yaml:"sca_id"`
}

type SubarraySettings struct {
	Name    string `mapstructure:"name" yaml:"name"`
	OriginX int    `mapstructure:"origin_x" yaml:"origin_x"`
	OriginY int    `mapstructure:"origin_y" yaml:"origin_y"`
	Width   int    `mapstructure:"width" yaml:"width"`
	Height  int    `mapstructure:"height" yaml:"height"`
}

// IngestSettings controls the ingestion pipeline.
type IngestSettings struct {
	AllowedProvenance []string `mapstructure:"allowed_provenance" yaml:"allowed_provenance"`
	DefaultProvenance string   `mapstructure:"default_provenance" yaml:"default_provenance"`
	CleanupOnFailure  bool     `mapstructure:"cleanup_on_failure" yaml:"cleanup_on_failure"`
	FlattenWorkers    int      `mapstructure:"flatten_workers" yaml:"flatten_workers"`
}

// CalibrationSettings configures the external calibration command.
type CalibrationSettings struct {
	Command   string             `mapstructure:"command" yaml:"command"`
	Args      []string           `mapstructure:"args" yaml:"args"` // {input} and {output_dir} are substituted
	OutputDir string             `mapstructure:"output_dir" yaml:"output_dir"`
	Timeout   time.Duration      `mapstructure:"timeout" yaml:"timeout"`
	SkipDark  bool               `mapstructure:"skip_dark" yaml:"skip_dark"`
	Overrides ReferenceOverrides `mapstructure:"overrides" yaml:"overrides"`
}

// ReferenceOverrides names replacement reference files for calibration steps.
type ReferenceOverrides struct {
	Linearity  string `mapstructure:"linearity" yaml:"linearity"`
	Saturation string `mapstructure:"saturation" yaml:"saturation"`
	RSCD       string `mapstructure:"rscd" yaml:"rscd"`
	Mask       string `mapstructure:"mask" yaml:"mask"`
	Dark       string `mapstructure:"dark" yaml:"dark"`
}

type MetricsSettings struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile"` // node_exporter textfile path, empty disables
}

type TelemetrySettings struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the configuration file and environment variables.
// configFile overrides the search path when non-empty.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, environment bindings and reads the config file if one exists.
func initViper(configFile string) error {
	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		for _, path := range GetDefaultConfigPaths() {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Defaults and environment are enough to run
			return nil
		}
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "read-config").
			Build()
	}

	return nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "miri-pixeldb"))
	}
	return append(paths, "/etc/miri-pixeldb")
}

// ConfigFileUsed returns the path of the loaded config file, empty when running on defaults.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// GetSettings returns the settings from the last successful Load
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// DefaultConfigYAML returns the annotated default configuration template.
func DefaultConfigYAML() ([]byte, error) {
	return configFiles.ReadFile("config.yaml")
}
