package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	iv := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	keyEnc := []byte("wrapped-key-bytes")

	buf, err := Encode(0, iv, keyEnc, FlagAAD)
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), buf[0])

	h, n, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, byte(0), h.AlgoID)
	assert.Equal(t, iv, h.IV)
	assert.Equal(t, keyEnc, h.KeyEnc)
	assert.True(t, h.HasAAD())
	assert.Equal(t, buf, h.Bytes)
}

func TestDecode_RejectsBadVersion(t *testing.T) {
	buf, err := Encode(0, []byte{1, 2, 3}, []byte("k"), 0)
	require.NoError(t, err)
	buf[0] = 0xFF

	_, _, err = Decode(buf)
	assert.ErrorIs(t, err, ErrBadHeader)
}

func TestDecode_RejectsTruncatedBuffer(t *testing.T) {
	buf, err := Encode(1, []byte{1, 2, 3, 4}, []byte("0123456789"), FlagAAD)
	require.NoError(t, err)

	_, _, err = Decode(buf[:len(buf)-2])
	assert.ErrorIs(t, err, ErrBadHeader)
}

func TestDecode_RejectsShortBuffer(t *testing.T) {
	_, _, err := Decode([]byte{0, 0, 0})
	assert.ErrorIs(t, err, ErrBadHeader)
}

func TestEncode_RejectsOversizedIV(t *testing.T) {
	_, err := Encode(0, make([]byte, 256), nil, 0)
	assert.Error(t, err)
}
