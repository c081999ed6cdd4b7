// conf/validate.go

package conf

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, validate := range []func(*Settings) error{
		validateDatabaseSettings,
		validateGeometrySettings,
		validateIngestSettings,
		validateCalibrationSettings,
		validateTelemetrySettings,
	} {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDatabaseSettings(s *Settings) error {
	db := &s.Database
	var errs []string

	switch db.Type {
	case DatabaseSQLite:
		if db.SQLite.Path == "" {
			errs = append(errs, "database.sqlite.path must be set")
		}
	case DatabaseMySQL:
		if db.MySQL.Host == "" || db.MySQL.Database == "" {
			errs = append(errs, "database.mysql host and database must be set")
		}
	case DatabasePostgres:
		if db.Postgres.Host == "" || db.Postgres.Database == "" {
			errs = append(errs, "database.postgres host and database must be set")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.type %q is not one of sqlite, mysql, postgres", db.Type))
	}

	if db.BatchSize < 1 {
		errs = append(errs, "database.batch_size must be positive")
	}

	return joinErrs("database", errs)
}

func validateGeometrySettings(s *Settings) error {
	g := &s.Geometry
	var errs []string

	if g.Rows < 1 || g.Cols < 1 || g.ReferenceRows < 0 || g.ReferenceRows >= g.Rows {
		errs = append(errs, fmt.Sprintf("invalid frame %dx%d with %d reference rows", g.Rows, g.Cols, g.ReferenceRows))
	}
	if g.DataColumnsPerReference < 1 {
		errs = append(errs, "geometry.data_columns_per_reference must be positive")
	}
	if len(g.Detectors) == 0 {
		errs = append(errs, "at least one detector must be configured")
	}

	seen := make(map[int]bool, len(g.Detectors))
	for _, d := range g.Detectors {
		if d.Name == "" || d.SCAID <= 0 {
			errs = append(errs, fmt.Sprintf("detector %q has invalid sca_id %d", d.Name, d.SCAID))
		}
		if seen[d.SCAID] {
			errs = append(errs, fmt.Sprintf("duplicate detector sca_id %d", d.SCAID))
		}
		seen[d.SCAID] = true
	}

	for _, sa := range g.Subarrays {
		if sa.Name == "" || sa.OriginX < 1 || sa.OriginY < 1 || sa.Width < 1 || sa.Height < 1 {
			errs = append(errs, fmt.Sprintf("subarray %q has an invalid window", sa.Name))
		}
	}

	return joinErrs("geometry", errs)
}

func validateIngestSettings(s *Settings) error {
	in := &s.Ingest
	var errs []string

	if len(in.AllowedProvenance) == 0 {
		errs = append(errs, "ingest.allowed_provenance must not be empty")
	}
	if in.DefaultProvenance != "" && !slices.Contains(in.AllowedProvenance, in.DefaultProvenance) {
		errs = append(errs, fmt.Sprintf("ingest.default_provenance %q is not in allowed_provenance", in.DefaultProvenance))
	}
	if in.FlattenWorkers < 1 {
		errs = append(errs, "ingest.flatten_workers must be positive")
	}

	return joinErrs("ingest", errs)
}

func validateCalibrationSettings(s *Settings) error {
	c := &s.Calibration
	var errs []string

	if c.Command == "" {
		errs = append(errs, "calibration.command must be set")
	}
	if c.Timeout <= 0 {
		errs = append(errs, "calibration.timeout must be positive")
	}
	if !slices.ContainsFunc(c.Args, func(a string) bool { return strings.Contains(a, "{input}") }) {
		errs = append(errs, "calibration.args must contain the {input} placeholder")
	}

	return joinErrs("calibration", errs)
}

func validateTelemetrySettings(s *Settings) error {
	if s.Telemetry.Enabled && s.Telemetry.DSN == "" {
		return fmt.Errorf("telemetry: dsn must be set when telemetry is enabled")
	}
	return nil
}

func joinErrs(section string, errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %s", section, strings.Join(errs, "; "))
}
