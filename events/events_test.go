package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateUserMetadata_AcceptsObject(t *testing.T) {
	assert.NoError(t, ValidateUserMetadata(`{"team":"payments"}`))
}

func TestValidateUserMetadata_RejectsNonObject(t *testing.T) {
	assert.ErrorIs(t, ValidateUserMetadata(`[1,2,3]`), ErrUserMetadata)
	assert.ErrorIs(t, ValidateUserMetadata(`null`), ErrUserMetadata)
	assert.ErrorIs(t, ValidateUserMetadata(`{}`), ErrUserMetadata)
	assert.ErrorIs(t, ValidateUserMetadata(`not json`), ErrUserMetadata)
}

func TestValidateUserMetadata_RejectsOverlong(t *testing.T) {
	huge := `{"k":"` + string(make([]byte, 2000)) + `"}`
	assert.ErrorIs(t, ValidateUserMetadata(huge), ErrUserMetadata)
}

func TestFormatTimestamp_Granularities(t *testing.T) {
	ts := time.Date(2026, 3, 5, 13, 45, 30, 0, time.UTC)

	assert.Equal(t, "2026-03-05T13:45:30Z", FormatTimestamp(ts, GranularitySeconds))
	assert.Equal(t, "2026-03-05T13:45:00Z", FormatTimestamp(ts, GranularityMinutes))
	assert.Equal(t, "2026-03-05T13:00:00Z", FormatTimestamp(ts, GranularityHours))
}

func TestIdentity_KeyIsStableAndDistinguishing(t *testing.T) {
	a := Identity{APIKey: "p", Dataset: "ssn", Action: "encrypt", DatasetType: "structured", KeyNumber: 1}
	b := Identity{APIKey: "p", Dataset: "ssn", Action: "encrypt", DatasetType: "structured", KeyNumber: 2}
	assert.NotEqual(t, a.key(), b.key())
	assert.Equal(t, a.key(), a.key())
}
