package keymanager

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubiqsecurity/ubiq-go/credentials"
	"github.com/ubiqsecurity/ubiq-go/dataset"
	"github.com/ubiqsecurity/ubiq-go/cache"
	"github.com/ubiqsecurity/ubiq-go/httpclient"
)

// testRSAFixture generates an unencrypted-PEM RSA keypair and wraps a data
// key under it, mimicking what the KMS would return (encrypted_private_key
// here is plain PEM rather than passphrase-encrypted, since Go's stdlib
// test helpers don't need the legacy cipher path to exercise the unwrap).
func testRSAFixture(t *testing.T, dataKey []byte) (privPEM string, wrappedB64 string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der := x509.MarshalPKCS1PrivateKey(priv)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: der}
	privPEM = string(pem.EncodeToMemory(block))

	wrapped, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, &priv.PublicKey, dataKey, nil)
	require.NoError(t, err)
	wrappedB64 = base64.StdEncoding.EncodeToString(wrapped)
	return
}

func alwaysTrue() bool  { return true }
func alwaysFalse() bool { return false }

func policy(ttl time.Duration, cacheOn, encryptAtRest bool) Policy {
	return Policy{
		TTL:               func() time.Duration { return ttl },
		CacheUnstructured: func() bool { return cacheOn },
		CacheStructured:   func() bool { return cacheOn },
		EncryptAtRest:     func() bool { return encryptAtRest },
	}
}

func TestGetEncryptionKey_UnstructuredUnwrapsEagerly(t *testing.T) {
	dataKey := []byte("0123456789abcdef0123456789abcdef")
	privPEM, wrappedB64 := testRSAFixture(t, dataKey[:32])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{
			"encrypted_data_key": "%s",
			"encrypted_private_key": %q,
			"wrapped_data_key": "%s",
			"encryption_session": "sess-1",
			"key_fingerprint": "fp-1",
			"security_model": {"algorithm": "AES-256-GCM", "enable_data_fragmentation": false}
		}`, wrappedB64, privPEM, wrappedB64)
	}))
	defer srv.Close()

	creds, err := credentials.New("papi", "sapi", "srsa", srv.URL)
	require.NoError(t, err)

	m := NewManager(cache.New(), httpclient.New("papi", "sapi"), policy(time.Hour, true, false))
	ds := dataset.Dataset{Name: "default", Kind: dataset.Unstructured}

	entry, err := m.GetEncryptionKey(creds, ds, false)
	require.NoError(t, err)
	assert.Equal(t, dataKey[:32], entry.RawKey)
	assert.Equal(t, "fp-1", entry.Fingerprint)

	// Second call should hit the "-keys-default" alias, not the server again.
	entry2, err := m.GetEncryptionKey(creds, ds, false)
	require.NoError(t, err)
	assert.Equal(t, entry.RawKey, entry2.RawKey)
}

func TestGetEncryptionKey_EncryptAtRestUnwrapsLazily(t *testing.T) {
	dataKey := make([]byte, 32)
	for i := range dataKey {
		dataKey[i] = byte(i)
	}
	privPEM, wrappedB64 := testRSAFixture(t, dataKey)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{
			"encrypted_data_key": "%s",
			"encrypted_private_key": %q,
			"wrapped_data_key": "%s",
			"encryption_session": "sess-1",
			"key_fingerprint": "fp-1",
			"security_model": {"algorithm": "AES-256-GCM"}
		}`, wrappedB64, privPEM, wrappedB64)
	}))
	defer srv.Close()

	creds, err := credentials.New("papi", "sapi", "srsa", srv.URL)
	require.NoError(t, err)

	m := NewManager(cache.New(), httpclient.New("papi", "sapi"), policy(time.Hour, true, true))
	ds := dataset.Dataset{Name: "default", Kind: dataset.Unstructured}

	entry, err := m.GetEncryptionKey(creds, ds, false)
	require.NoError(t, err)
	assert.Equal(t, dataKey, entry.RawKey)
}

func TestGetEncryptionKey_NoCacheSkipsDefaultAlias(t *testing.T) {
	dataKey := make([]byte, 32)
	privPEM, wrappedB64 := testRSAFixture(t, dataKey)

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{
			"encrypted_data_key": "%s",
			"encrypted_private_key": %q,
			"wrapped_data_key": "%s",
			"key_fingerprint": "fp-%d",
			"security_model": {"algorithm": "AES-256-GCM"}
		}`, wrappedB64, privPEM, wrappedB64, hits)
	}))
	defer srv.Close()

	creds, err := credentials.New("papi", "sapi", "srsa", srv.URL)
	require.NoError(t, err)

	m := NewManager(cache.New(), httpclient.New("papi", "sapi"), policy(time.Hour, true, false))
	ds := dataset.Dataset{Name: "default", Kind: dataset.Unstructured}

	_, err = m.GetEncryptionKey(creds, ds, true)
	require.NoError(t, err)
	_, err = m.GetEncryptionKey(creds, ds, true)
	require.NoError(t, err)

	assert.Equal(t, 2, hits, "no_cache should bypass the default alias every time")
}
