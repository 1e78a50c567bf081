package config

import "fmt"

// ValidationIssue describes one problem found while validating a Config.
type ValidationIssue struct {
	Field   string
	Message string
	Level   string // "error" or "warning"
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

// Validate checks a Config for internally-inconsistent settings. Only
// "error"-level issues should block Load; "warning" issues are informational.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.EventReporting.MinimumCount < 0 {
		issues = append(issues, ValidationIssue{
			Field: "event_reporting.minimum_count", Level: "error",
			Message: "must be non-negative",
		})
	}
	if cfg.EventReporting.FlushInterval.Dur() < 0 {
		issues = append(issues, ValidationIssue{
			Field: "event_reporting.flush_interval", Level: "error",
			Message: "must be non-negative",
		})
	}
	switch cfg.EventReporting.TimestampGranularity {
	case "", GranularityMicros, GranularityMillis, GranularitySeconds,
		GranularityMinutes, GranularityHours, GranularityHalfDay, GranularityDays:
	default:
		issues = append(issues, ValidationIssue{
			Field: "event_reporting.timestamp_granularity", Level: "warning",
			Message: fmt.Sprintf("unrecognized granularity %q, defaulting to SECONDS", cfg.EventReporting.TimestampGranularity),
		})
	}
	if cfg.KeyCaching.TTL.Dur() < 0 {
		issues = append(issues, ValidationIssue{
			Field: "key_caching.ttl_seconds", Level: "error",
			Message: "must be non-negative",
		})
	}

	return issues
}
