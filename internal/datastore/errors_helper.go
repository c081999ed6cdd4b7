package datastore

import (
	"strings"

	"gorm.io/gorm"

	"github.com/tphakala/miri-pixeldb/internal/errors"
)

const component = "datastore"

// Sentinel errors for store lookups.
var (
	// ErrExposureNotFound indicates no exposure has the requested file name.
	ErrExposureNotFound = errors.NewStd("exposure not found")

	// ErrCorrectedExposureNotFound indicates no corrected exposure has the requested file name.
	ErrCorrectedExposureNotFound = errors.NewStd("corrected exposure not found")

	// ErrUnsupportedDatabase indicates an unknown database type in the settings.
	ErrUnsupportedDatabase = errors.NewStd("unsupported database type")
)

// dbError creates a properly categorized database error with context
func dbError(err error, operation, priority string, context ...any) error {
	if isDatabaseCorruption(err) {
		priority = errors.PriorityCritical
	}

	builder := errors.New(err).
		Component(component).
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	if priority != "" {
		builder = builder.Priority(priority)
	}

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// writeError classifies a failed insert. Unique constraint violations become
// duplicate entity errors; everything else is a database error.
func writeError(err error, operation, entity, key string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || isConstraintViolation(err) {
		return errors.Newf("%s %q already exists: %w", entity, key, errors.ErrDuplicateEntity).
			Component(component).
			Category(errors.CategoryConflict).
			Context("operation", operation).
			Context("entity", entity).
			Build()
	}
	return dbError(err, operation, errors.PriorityHigh, "entity", entity, "key", key)
}

// notFoundError wraps a lookup sentinel with the not-found category.
func notFoundError(sentinel error, identifier string) error {
	return errors.Newf("%w: %s", sentinel, identifier).
		Component(component).
		Category(errors.CategoryNotFound).
		Context("identifier", identifier).
		Build()
}

func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "unique constraint") ||
		strings.Contains(errStr, "duplicate entry") ||
		strings.Contains(errStr, "duplicate key value")
}

func isDatabaseCorruption(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "malformed") ||
		strings.Contains(errStr, "corrupt") ||
		strings.Contains(errStr, "file is not a database")
}
