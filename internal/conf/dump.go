package conf

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const redacted = "[REDACTED]"

// Dump renders the effective settings as YAML with secrets redacted.
func Dump(settings *Settings) ([]byte, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}

	c := *settings
	if c.Database.MySQL.Password != "" {
		c.Database.MySQL.Password = redacted
	}
	if c.Database.Postgres.Password != "" {
		c.Database.Postgres.Password = redacted
	}
	if c.Telemetry.DSN != "" {
		c.Telemetry.DSN = redacted
	}

	data, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return data, nil
}
