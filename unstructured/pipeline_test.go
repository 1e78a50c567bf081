package unstructured

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubiqsecurity/ubiq-go/algorithm"
	"github.com/ubiqsecurity/ubiq-go/credentials"
	"github.com/ubiqsecurity/ubiq-go/dataset"
	"github.com/ubiqsecurity/ubiq-go/header"
	"github.com/ubiqsecurity/ubiq-go/keymanager"
)

type fakeKeySource struct {
	key keymanager.KeyEntry
}

func (f *fakeKeySource) GetEncryptionKey(credentials.Credentials, dataset.Dataset, bool) (keymanager.KeyEntry, error) {
	return f.key, nil
}

func (f *fakeKeySource) GetDecryptionKey(credentials.Credentials, dataset.Dataset, []byte, int) (keymanager.KeyEntry, error) {
	return f.key, nil
}

func testCreds(t *testing.T) credentials.Credentials {
	t.Helper()
	creds, err := credentials.New("papi", "sapi", "srsa", "")
	require.NoError(t, err)
	return creds
}

func TestPipeline_EncryptDecrypt_RoundTrip(t *testing.T) {
	key := key32()
	ks := &fakeKeySource{key: keymanager.KeyEntry{
		RawKey:     key,
		EncDataKey: []byte("wrapped"),
		Algorithm:  algorithm.AES256GCM,
	}}
	p := NewPipeline(ks)
	creds := testCreds(t)

	ciphertext, err := p.Encrypt(creds, []byte("top secret"))
	require.NoError(t, err)

	plaintext, err := p.Decrypt(creds, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "top secret", string(plaintext))
}

func TestPipeline_Encrypt_DefaultsToAES256GCM(t *testing.T) {
	key := key32()
	ks := &fakeKeySource{key: keymanager.KeyEntry{RawKey: key}}
	p := NewPipeline(ks)
	creds := testCreds(t)

	ciphertext, err := p.Encrypt(creds, []byte("data"))
	require.NoError(t, err)

	hdr, _, err := header.Decode(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, byte(algorithm.AES256GCM.ID), hdr.AlgoID)
}
