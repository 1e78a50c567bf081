package httpclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_SignsRequest(t *testing.T) {
	var gotSignature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("Signature")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New("test-papi", "test-sapi")
	res, err := c.Get(srv.URL + "/api/v0/ffs?ffs_name=SSN")
	require.NoError(t, err)

	assert.True(t, res.Success())
	assert.Contains(t, gotSignature, `keyId="test-papi"`)
	assert.Contains(t, gotSignature, `algorithm="hmac-sha512"`)
	assert.Contains(t, gotSignature, "(request-target)")
}

func TestPost_SignsBodyDigest(t *testing.T) {
	var gotDigest string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDigest = r.Header.Get("Digest")
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"uses":1}`, string(body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New("p", "s")
	res, err := c.Post(srv.URL+"/api/v0/encryption/key", []byte(`{"uses":1}`), "application/json")
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.True(t, strings.HasPrefix(gotDigest, "SHA-512="))
}

func TestPostAsync_ReturnsWithoutWaiting(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(done)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New("p", "s")
	c.PostAsync(srv.URL+"/api/v3/tracking/events", []byte(`{"usage":[]}`), "application/json")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server never received async request")
	}
}

func TestPatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New("p", "s")
	res, err := c.Patch(srv.URL+"/api/v0/decryption/key/fp/sess", []byte(`{"uses":1}`), "application/json")
	require.NoError(t, err)
	assert.True(t, res.Success())
}
