package ff1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const digits = "0123456789"

func key32() []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c, err := New(key32(), "AAAAAAAAAAAAAAAA", digits)
	require.NoError(t, err)

	ct, err := c.Encrypt("123456789")
	require.NoError(t, err)
	assert.Len(t, ct, 9)
	assert.NotEqual(t, "123456789", ct)

	pt, err := c.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "123456789", pt)
}

func TestEncrypt_IsDeterministic(t *testing.T) {
	c, err := New(key32(), "AAAAAAAAAAAAAAAA", digits)
	require.NoError(t, err)

	a, err := c.Encrypt("123456789")
	require.NoError(t, err)
	b, err := c.Encrypt("123456789")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncrypt_RejectsOutOfAlphabetCharacter(t *testing.T) {
	c, err := New(key32(), "AAAAAAAAAAAAAAAA", digits)
	require.NoError(t, err)

	_, err = c.Encrypt("12A456789")
	assert.ErrorIs(t, err, ErrInputInvalid)
}

func TestEncrypt_AES128Key(t *testing.T) {
	key := make([]byte, 16)
	c, err := New(key, "", digits)
	require.NoError(t, err)

	ct, err := c.Encrypt("987654321")
	require.NoError(t, err)

	pt, err := c.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "987654321", pt)
}

func TestEncrypt_AlphabeticRadix(t *testing.T) {
	c, err := New(key32(), "", "abcdefghijklmnopqrstuvwxyz")
	require.NoError(t, err)

	ct, err := c.Encrypt("helloworld")
	require.NoError(t, err)
	assert.Len(t, ct, 10)

	pt, err := c.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "helloworld", pt)
}

func TestNew_RejectsBadKeyLength(t *testing.T) {
	_, err := New(make([]byte, 24), "", digits)
	assert.ErrorIs(t, err, ErrInputInvalid)
}

func TestMinLen(t *testing.T) {
	c, err := New(key32(), "", digits)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, c.MinLen(), 2)

	_, err = c.Encrypt("1")
	assert.ErrorIs(t, err, ErrInputInvalid)
}
