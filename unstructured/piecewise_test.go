package unstructured

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubiqsecurity/ubiq-go/algorithm"
	"github.com/ubiqsecurity/ubiq-go/keymanager"
)

func TestEncryptor_BeginUpdateEnd_RoundTrip(t *testing.T) {
	key := key32()
	ks := &fakeKeySource{key: keymanager.KeyEntry{RawKey: key, Algorithm: algorithm.AES256GCM}}
	p := NewPipeline(ks)
	creds := testCreds(t)

	enc := p.NewEncryptor(creds)
	require.NoError(t, enc.Begin())
	require.NoError(t, enc.Update([]byte("piecewise")))
	ciphertext, err := enc.End()
	require.NoError(t, err)

	dec := p.NewDecryptor(creds)
	require.NoError(t, dec.Begin())
	require.NoError(t, dec.Update(ciphertext))
	plaintext, err := dec.End()
	require.NoError(t, err)
	assert.Equal(t, "piecewise", string(plaintext))
}

func TestEncryptor_DoubleBeginIsStateError(t *testing.T) {
	ks := &fakeKeySource{key: keymanager.KeyEntry{RawKey: key32(), Algorithm: algorithm.AES256GCM}}
	p := NewPipeline(ks)
	enc := p.NewEncryptor(testCreds(t))

	require.NoError(t, enc.Begin())
	assert.ErrorIs(t, enc.Begin(), ErrState)
}

func TestEncryptor_UpdateBeforeBeginIsStateError(t *testing.T) {
	ks := &fakeKeySource{key: keymanager.KeyEntry{RawKey: key32(), Algorithm: algorithm.AES256GCM}}
	p := NewPipeline(ks)
	enc := p.NewEncryptor(testCreds(t))

	assert.ErrorIs(t, enc.Update([]byte("x")), ErrState)
}

func TestEncryptor_SecondUpdateIsUnsupported(t *testing.T) {
	ks := &fakeKeySource{key: keymanager.KeyEntry{RawKey: key32(), Algorithm: algorithm.AES256GCM}}
	p := NewPipeline(ks)
	enc := p.NewEncryptor(testCreds(t))

	require.NoError(t, enc.Begin())
	require.NoError(t, enc.Update([]byte("first")))
	assert.ErrorIs(t, enc.Update([]byte("second")), ErrPiecewiseUnsupported)
}

func TestEncryptor_EndBeforeUpdateIsStateError(t *testing.T) {
	ks := &fakeKeySource{key: keymanager.KeyEntry{RawKey: key32(), Algorithm: algorithm.AES256GCM}}
	p := NewPipeline(ks)
	enc := p.NewEncryptor(testCreds(t))

	require.NoError(t, enc.Begin())
	_, err := enc.End()
	assert.ErrorIs(t, err, ErrState)
}
