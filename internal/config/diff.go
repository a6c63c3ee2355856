package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; broker and
// database URLs require a process restart and are not diffed here.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	CORSChanged    bool
	NewCORSOrigins []string

	DialogChanged bool
	NewDialog     DialogConfig
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !slices.Equal(old.CORS.AllowedOrigins, new.CORS.AllowedOrigins) {
		d.CORSChanged = true
		d.NewCORSOrigins = new.CORS.AllowedOrigins
	}

	if old.Dialog != new.Dialog {
		d.DialogChanged = true
		d.NewDialog = new.Dialog
	}

	return d
}
