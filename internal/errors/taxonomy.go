package errors

import "fmt"

// Sentinel errors for the ingestion failure kinds. Call sites wrap these with
// %w so callers can test with errors.Is regardless of the enhanced wrapper.
var (
	ErrConfiguration     = NewStd("configuration error")
	ErrDuplicateEntity   = NewStd("duplicate entity")
	ErrMissingMetadata   = NewStd("missing metadata")
	ErrOrderingViolation = NewStd("ordering violation")
	ErrCascadeFailure    = NewStd("cascade failure")
)

// Kind returns a short label for the sentinel err wraps, used for metrics and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case Is(err, ErrConfiguration):
		return "configuration"
	case Is(err, ErrDuplicateEntity):
		return "duplicate"
	case Is(err, ErrMissingMetadata):
		return "missing_metadata"
	case Is(err, ErrOrderingViolation):
		return "ordering"
	case Is(err, ErrCascadeFailure):
		return "cascade"
	case IsNotFound(err):
		return "not_found"
	}
	return "other"
}

// Configuration builds an invalid-geometry or invalid-value error.
func Configuration(component, format string, args ...any) *EnhancedError {
	return kindError(ErrConfiguration, CategoryConfiguration, component, format, args...)
}

// Duplicate builds an error for an entity that already exists.
func Duplicate(component, format string, args ...any) *EnhancedError {
	return kindError(ErrDuplicateEntity, CategoryConflict, component, format, args...)
}

// MissingMetadata builds an error for an absent header keyword.
func MissingMetadata(component, key, file string) *EnhancedError {
	return Newf("header keyword %s not found: %w", key, ErrMissingMetadata).
		Component(component).
		Category(CategoryMissingMetadata).
		Context("keyword", key).
		Context("file", file).
		Build()
}

// OrderingViolation builds an error for a generated-key re-read mismatch.
func OrderingViolation(component, format string, args ...any) *EnhancedError {
	return kindError(ErrOrderingViolation, CategoryOrdering, component, format, args...)
}

// CascadeFailure builds an error for dependents left behind by a delete.
func CascadeFailure(component, format string, args ...any) *EnhancedError {
	return kindError(ErrCascadeFailure, CategoryIntegrity, component, format, args...)
}

// NotFound builds a not-found error.
func NotFound(component, format string, args ...any) *EnhancedError {
	return Newf(format, args...).
		Component(component).
		Category(CategoryNotFound).
		Build()
}

func kindError(sentinel error, cat ErrorCategory, component, format string, args ...any) *EnhancedError {
	msg := fmt.Sprintf(format, args...)
	return Newf("%s: %w", msg, sentinel).
		Component(component).
		Category(cat).
		Build()
}
