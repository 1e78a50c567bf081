package credentials

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsHostWhenMissing(t *testing.T) {
	creds, err := New("papi", "sapi", "srsa", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultHost, creds.Host.String())
}

func TestNew_PrependsSchemeForBareHost(t *testing.T) {
	creds, err := New("papi", "sapi", "srsa", "kms.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://kms.example.com", creds.Host.String())
}

func TestNew_PreservesExplicitScheme(t *testing.T) {
	creds, err := New("papi", "sapi", "srsa", "http://kms.example.com")
	require.NoError(t, err)
	assert.Equal(t, "http://kms.example.com", creds.Host.String())
}

func TestNew_RejectsMissingFields(t *testing.T) {
	_, err := New("", "sapi", "srsa", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestFromEnv(t *testing.T) {
	t.Setenv(envAccessKeyID, "papi-value")
	t.Setenv(envSigningKey, "sapi-value")
	t.Setenv(envCryptoAccess, "srsa-value")
	t.Setenv(envServer, "")

	creds, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "papi-value", creds.Papi)
	assert.Equal(t, DefaultHost, creds.Host.String())
}

func TestLoadDotEnv_MissingFileIsNoop(t *testing.T) {
	err := LoadDotEnv(os.TempDir() + "/does-not-exist.env")
	assert.NoError(t, err)
}
