package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstituteEnvVars_UsesEnvironmentValue(t *testing.T) {
	t.Setenv("UBIQ_TEST_VAR", "from-env")
	assert.Equal(t, "from-env", SubstituteEnvVars("${UBIQ_TEST_VAR}"))
}

func TestSubstituteEnvVars_FallsBackToDefault(t *testing.T) {
	assert.Equal(t, "fallback", SubstituteEnvVars("${UBIQ_TEST_UNSET:fallback}"))
}

func TestSubstituteEnvVars_EmptyWithNoDefault(t *testing.T) {
	assert.Equal(t, "", SubstituteEnvVars("${UBIQ_TEST_UNSET}"))
}

func TestSubstituteEnvVars_LeavesPlainTextAlone(t *testing.T) {
	assert.Equal(t, "no placeholders here", SubstituteEnvVars("no placeholders here"))
}

func TestSubstituteEnvVarsInConfig_NilIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { SubstituteEnvVarsInConfig(nil) })
}

func TestSubstituteEnvVarsInConfig_SubstitutesLoggingAndEnvironment(t *testing.T) {
	t.Setenv("UBIQ_TEST_LEVEL", "debug")
	cfg := Default()
	cfg.Logging.Level = "${UBIQ_TEST_LEVEL}"
	cfg.Environment = "${UBIQ_TEST_UNSET:staging}"

	SubstituteEnvVarsInConfig(cfg)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "staging", cfg.Environment)
}

func TestGetEnvironment_DefaultsToProduction(t *testing.T) {
	t.Setenv("UBIQ_ENV", "")
	t.Setenv("ENVIRONMENT", "")
	assert.Equal(t, "production", GetEnvironment())
}

func TestGetEnvironment_PrefersUbiqEnv(t *testing.T) {
	t.Setenv("UBIQ_ENV", "Staging")
	t.Setenv("ENVIRONMENT", "development")
	assert.Equal(t, "staging", GetEnvironment())
}

func TestGetEnvironment_FallsBackToEnvironment(t *testing.T) {
	t.Setenv("UBIQ_ENV", "")
	t.Setenv("ENVIRONMENT", "Development")
	assert.Equal(t, "development", GetEnvironment())
}

func TestIsProduction(t *testing.T) {
	t.Setenv("UBIQ_ENV", "production")
	assert.True(t, IsProduction())
	assert.False(t, IsDevelopment())
}

func TestIsDevelopment_RecognizesLocal(t *testing.T) {
	t.Setenv("UBIQ_ENV", "local")
	assert.True(t, IsDevelopment())
	assert.False(t, IsProduction())
}
