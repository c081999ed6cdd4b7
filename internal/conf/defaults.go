// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "UTC")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/miridb.log")
	viper.SetDefault("logging.file_output.level", "debug")

	viper.SetDefault("database.type", DatabaseSQLite)
	viper.SetDefault("database.sqlite.path", "miri.db")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", 3306)
	viper.SetDefault("database.mysql.database", "miri")
	viper.SetDefault("database.postgres.host", "localhost")
	viper.SetDefault("database.postgres.port", 5432)
	viper.SetDefault("database.postgres.database", "miri")
	viper.SetDefault("database.postgres.sslmode", "disable")
	viper.SetDefault("database.batch_size", 1000)
	viper.SetDefault("database.slow_query_threshold", 2*time.Second)

	// MIRI focal plane: 1024 imaging rows, 256 reference rows,
	// one reference column per four data columns.
	viper.SetDefault("geometry.rows", 1280)
	viper.SetDefault("geometry.cols", 1032)
	viper.SetDefault("geometry.reference_rows", 256)
	viper.SetDefault("geometry.data_columns_per_reference", 4)
	viper.SetDefault("geometry.detectors", []map[string]any{
		{"name": "MIRIMAGE", "sca_id": 493},
		{"name": "MIRIFULONG", "sca_id": 494},
		{"name": "MIRIFUSHORT", "sca_id": 495},
	})
	viper.SetDefault("geometry.subarrays", []map[string]any{})

	viper.SetDefault("ingest.allowed_provenance", []string{"JPL", "OTIS", "FLIGHT"})
	viper.SetDefault("ingest.default_provenance", "FLIGHT")
	viper.SetDefault("ingest.cleanup_on_failure", true)
	viper.SetDefault("ingest.flatten_workers", 3)

	viper.SetDefault("calibration.command", "strun")
	viper.SetDefault("calibration.args", []string{
		"calwebb_detector1", "{input}",
		"--save_calibrated_ramp=True",
		"--save_results=True",
		"--output_dir={output_dir}",
	})
	viper.SetDefault("calibration.output_dir", "")
	viper.SetDefault("calibration.timeout", 2*time.Hour)
	viper.SetDefault("calibration.skip_dark", false)

	viper.SetDefault("metrics.textfile", "")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.dsn", "")
	viper.SetDefault("telemetry.environment", "production")
}
