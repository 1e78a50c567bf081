// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package events aggregates per-call usage into counted buckets and flushes
// them to the KMS tracking endpoint on a count or interval trigger.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUserMetadata is returned by AddUserMetadata when the supplied string is
// too long or is not a non-null, non-empty JSON object.
var ErrUserMetadata = errors.New("events: invalid user metadata")

const maxUserMetadataLen = 1024

// Identity is the key an Event is grouped and counted by.
type Identity struct {
	APIKey       string
	Dataset      string
	DatasetGroup string
	Action       string // "encrypt" or "decrypt"
	DatasetType  string // "structured" or "unstructured"
	KeyNumber    int
}

func (id Identity) key() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%d", id.APIKey, id.Dataset, id.DatasetGroup, id.Action, id.DatasetType, id.KeyNumber)
}

// Counter is the aggregated state kept for one Identity.
type Counter struct {
	Identity  Identity
	Count     int
	FirstTS   time.Time
	LastTS    time.Time
}

// Granularity is the timestamp resolution applied when an aggregator formats
// a counter's timestamps for the wire.
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

// FormatTimestamp renders t at the resolution g names: sub-second
// granularities format as ISO-8601 at that precision, calendar granularities
// truncate to the named boundary.
func FormatTimestamp(t time.Time, g Granularity) string {
	t = t.UTC()
	switch g {
	case GranularityMicros:
		return t.Format("2006-01-02T15:04:05.000000Z")
	case GranularityMillis:
		return t.Format("2006-01-02T15:04:05.000Z")
	case GranularityMinutes:
		return t.Truncate(time.Minute).Format(time.RFC3339)
	case GranularityHours:
		return t.Truncate(time.Hour).Format(time.RFC3339)
	case GranularityHalfDay:
		return t.Truncate(12 * time.Hour).Format(time.RFC3339)
	case GranularityDays:
		return t.Truncate(24 * time.Hour).Format(time.RFC3339)
	case GranularitySeconds:
		fallthrough
	default:
		return t.Truncate(time.Second).Format(time.RFC3339)
	}
}

// ValidateUserMetadata enforces the length and JSON-object shape required of
// user-supplied metadata attached to every subsequent event.
func ValidateUserMetadata(raw string) error {
	if len(raw) > maxUserMetadataLen {
		return fmt.Errorf("%w: exceeds %d characters", ErrUserMetadata, maxUserMetadataLen)
	}
	var v map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return fmt.Errorf("%w: %v", ErrUserMetadata, err)
	}
	if v == nil || len(v) == 0 {
		return fmt.Errorf("%w: must be a non-empty object", ErrUserMetadata)
	}
	return nil
}
