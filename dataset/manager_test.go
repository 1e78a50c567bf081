package dataset

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubiqsecurity/ubiq-go/cache"
	"github.com/ubiqsecurity/ubiq-go/credentials"
	"github.com/ubiqsecurity/ubiq-go/httpclient"
)

func testCreds(t *testing.T, host string) credentials.Credentials {
	t.Helper()
	creds, err := credentials.New("papi", "sapi", "srsa", host)
	require.NoError(t, err)
	return creds
}

func TestResolve_EmptyNameIsUnstructured(t *testing.T) {
	m := NewManager(cache.New(), httpclient.New("p", "s"), func() bool { return true })
	ds, err := m.Resolve(credentials.Credentials{}, "")
	require.NoError(t, err)
	assert.Equal(t, Unstructured, ds.Kind)
}

func TestResolve_FetchesAndCachesStructured(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"group_name": "default",
			"input_character_set": "0123456789",
			"output_character_set": "0123456789",
			"passthrough": "-",
			"tweak": "AAAAAAAAAAAAAAAA",
			"min_input_length": 9,
			"max_input_length": 9,
			"msb_encoding_bits": 3,
			"passthrough_rules": [{"type":"passthrough","priority":1}]
		}`))
	}))
	defer srv.Close()

	c := cache.New()
	m := NewManager(c, httpclient.New("p", "s"), func() bool { return true })
	creds := testCreds(t, srv.URL)

	ds, err := m.Resolve(creds, "SSN")
	require.NoError(t, err)
	assert.True(t, ds.IsStructured())
	assert.Equal(t, 9, ds.Config.MinInputLength)

	_, err = m.Resolve(creds, "SSN")
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "second resolve should be served from cache")
}

func TestResolve_InvalidDatasetNameIsUnstructured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":401,"message":"Invalid Dataset name"}`))
	}))
	defer srv.Close()

	m := NewManager(cache.New(), httpclient.New("p", "s"), func() bool { return true })
	creds := testCreds(t, srv.URL)

	ds, err := m.Resolve(creds, "NOT_A_DATASET")
	require.NoError(t, err)
	assert.Equal(t, Unstructured, ds.Kind)
}

func TestResolve_OtherErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status":500,"message":"boom"}`))
	}))
	defer srv.Close()

	m := NewManager(cache.New(), httpclient.New("p", "s"), func() bool { return true })
	creds := testCreds(t, srv.URL)

	_, err := m.Resolve(creds, "SSN")
	assert.ErrorIs(t, err, ErrDatasetInvalid)
}
