// Package telemetry forwards enhanced errors to Sentry.
//
// Reporting is opt-in. Every event passes through a privacy filter that drops
// host identity and scrubs home directories and database credentials from
// messages before it leaves the process.
package telemetry

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/miri-pixeldb/internal/conf"
	"github.com/tphakala/miri-pixeldb/internal/errors"
	"github.com/tphakala/miri-pixeldb/internal/logger"
)

const (
	component          = "telemetry"
	defaultEnvironment = "production"
	flushTimeout       = 2 * time.Second
)

// Init configures the Sentry client from settings and installs the Sentry
// reporter for enhanced errors. The returned function detaches the reporter
// and flushes buffered events; it is never nil when err is nil.
func Init(settings *conf.TelemetrySettings, release string, log logger.Logger) (func(), error) {
	return initSentry(settings, release, nil, log)
}

func initSentry(settings *conf.TelemetrySettings, release string, transport sentry.Transport, log logger.Logger) (func(), error) {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	log = log.Module(component)

	if settings == nil || !settings.Enabled {
		log.Debug("telemetry disabled")
		return func() {}, nil
	}
	if settings.DSN == "" && transport == nil {
		return nil, errors.Configuration(component, "telemetry is enabled but no dsn is configured")
	}

	environment := settings.Environment
	if environment == "" {
		environment = defaultEnvironment
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		Transport:        transport,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      environment,
		ServerName:       "",
		Release:          "miridb@" + release,
		BeforeSend:       applyPrivacyFilters,
	})
	if err != nil {
		return nil, errors.New(err).
			Component(component).
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	log.Info("telemetry enabled",
		logger.String("environment", environment),
		logger.String("release", release))

	return func() {
		errors.SetTelemetryReporter(nil)
		if !sentry.Flush(flushTimeout) {
			log.Warn("telemetry flush timed out", logger.Duration("timeout", flushTimeout))
		}
	}, nil
}

// applyPrivacyFilters is the BeforeSend hook.
func applyPrivacyFilters(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	for _, key := range []string{"device", "os", "runtime"} {
		delete(event.Contexts, key)
	}
	delete(event.Tags, "server_name")
	delete(event.Tags, "hostname")

	event.Message = errors.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = errors.ScrubMessage(event.Exception[i].Value)
	}
	return event
}
