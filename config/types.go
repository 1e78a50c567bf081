// Package config provides configuration management for the ubiq-go client.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config documents can write human-readable
// values ("2s", "30m") instead of raw nanosecond integers.
type Duration time.Duration

// Dur returns the underlying time.Duration.
func (d Duration) Dur() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML accepts either a duration string ("2s") or a plain integer
// number of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	// Integers first: yaml decodes any scalar into a string, so trying the
	// string form first would send "1800" to time.ParseDuration.
	var secs int64
	if err := value.Decode(&secs); err == nil {
		*d = Duration(secs) * Duration(time.Second)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string or integer seconds")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs int64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration must be a string or integer seconds")
	}
	*d = Duration(secs) * Duration(time.Second)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config represents the set of recognized library options.
type Config struct {
	Version        string         `yaml:"version" json:"version"`
	Logging        LoggingConfig  `yaml:"logging" json:"logging"`
	EventReporting EventReporting `yaml:"event_reporting" json:"event_reporting"`
	KeyCaching     KeyCaching     `yaml:"key_caching" json:"key_caching"`

	// DatasetCaching is a pointer so LoadFromFile can distinguish "absent
	// from the document" (defaults to true) from an explicit "false".
	DatasetCaching *bool `yaml:"dataset_caching" json:"dataset_caching"`

	// Environment selects which <env>.yaml overlay Load applies on top of
	// default.yaml.
	Environment string `yaml:"environment,omitempty" json:"environment,omitempty"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Verbose bool   `yaml:"verbose" json:"verbose"`
	Level   string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format  string `yaml:"format" json:"format"` // json, text
	Output  string `yaml:"output" json:"output"` // stdout, stderr, file path
}

// Granularity is the timestamp resolution used when formatting usage events.
type Granularity string

const (
	GranularityMicros  Granularity = "MICROS"
	GranularityMillis  Granularity = "MILLIS"
	GranularitySeconds Granularity = "SECONDS"
	GranularityMinutes Granularity = "MINUTES"
	GranularityHours   Granularity = "HOURS"
	GranularityHalfDay Granularity = "HALF_DAYS"
	GranularityDays    Granularity = "DAYS"
)

// EventReporting controls the usage-event aggregator.
type EventReporting struct {
	MinimumCount         int         `yaml:"minimum_count" json:"minimum_count"`
	FlushInterval        Duration    `yaml:"flush_interval" json:"flush_interval"`
	TrapExceptions       bool        `yaml:"trap_exceptions" json:"trap_exceptions"`
	TimestampGranularity Granularity `yaml:"timestamp_granularity" json:"timestamp_granularity"`
	DestroyReportAsync   bool        `yaml:"destroy_report_async" json:"destroy_report_async"`
}

// KeyCaching controls key-manager cache behavior.
// Unstructured and Structured are pointers for the same reason as
// Config.DatasetCaching: both default to true when absent from a config
// document.
type KeyCaching struct {
	Unstructured *bool    `yaml:"unstructured" json:"unstructured"`
	Structured   *bool    `yaml:"structured" json:"structured"`
	Encrypt      bool     `yaml:"encrypt" json:"encrypt"`
	TTL          Duration `yaml:"ttl_seconds" json:"ttl_seconds"`
}

// boolOr returns *b if non-nil, otherwise def.
func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// DatasetCachingEnabled returns the effective dataset-caching setting.
func (c *Config) DatasetCachingEnabled() bool { return boolOr(c.DatasetCaching, true) }

// UnstructuredCachingEnabled returns the effective unstructured key-caching setting.
func (c *Config) UnstructuredCachingEnabled() bool { return boolOr(c.KeyCaching.Unstructured, true) }

// StructuredCachingEnabled returns the effective structured key-caching setting.
func (c *Config) StructuredCachingEnabled() bool { return boolOr(c.KeyCaching.Structured, true) }
