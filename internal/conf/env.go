// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all explicitly validated environment variable bindings.
// Other keys are still reachable through AutomaticEnv with the MIRIDB_ prefix.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "MIRIDB_DEBUG", validateEnvBool},

		{"database.type", "MIRIDB_DATABASE_TYPE", validateEnvDatabaseType},
		{"database.sqlite.path", "MIRIDB_DATABASE_SQLITE_PATH", validateEnvPath},
		{"database.mysql.host", "MIRIDB_DATABASE_MYSQL_HOST", nil},
		{"database.mysql.port", "MIRIDB_DATABASE_MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "MIRIDB_DATABASE_MYSQL_USERNAME", nil},
		{"database.mysql.password", "MIRIDB_DATABASE_MYSQL_PASSWORD", nil},
		{"database.postgres.host", "MIRIDB_DATABASE_POSTGRES_HOST", nil},
		{"database.postgres.port", "MIRIDB_DATABASE_POSTGRES_PORT", validateEnvPort},
		{"database.postgres.username", "MIRIDB_DATABASE_POSTGRES_USERNAME", nil},
		{"database.postgres.password", "MIRIDB_DATABASE_POSTGRES_PASSWORD", nil},
		{"database.batch_size", "MIRIDB_DATABASE_BATCH_SIZE", validateEnvPositiveInt},

		{"calibration.command", "MIRIDB_CALIBRATION_COMMAND", nil},
		{"calibration.output_dir", "MIRIDB_CALIBRATION_OUTPUT_DIR", validateEnvPath},
		{"calibration.timeout", "MIRIDB_CALIBRATION_TIMEOUT", validateEnvDuration},

		{"metrics.textfile", "MIRIDB_METRICS_TEXTFILE", validateEnvPath},
		{"telemetry.enabled", "MIRIDB_TELEMETRY_ENABLED", validateEnvBool},
		{"telemetry.dsn", "MIRIDB_TELEMETRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	if !slices.Contains([]string{DatabaseSQLite, DatabaseMySQL, DatabasePostgres}, value) {
		return fmt.Errorf("must be one of %s, %s, %s", DatabaseSQLite, DatabaseMySQL, DatabasePostgres)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fmt.Errorf("must be a positive duration such as 90m")
	}
	return nil
}

// validateEnvPath rejects paths that escape upwards after cleaning
func validateEnvPath(value string) error {
	cleaned := filepath.Clean(value)
	if slices.Contains(strings.Split(cleaned, string(os.PathSeparator)), "..") {
		return fmt.Errorf("path traversal detected in cleaned path: %s", cleaned)
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	return bindEnvVars()
}
