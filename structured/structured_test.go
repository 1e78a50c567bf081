package structured

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubiqsecurity/ubiq-go/dataset"
)

func ssnConfig() *dataset.Config {
	cfg := &dataset.Config{
		InputCharacterSet:  "0123456789",
		OutputCharacterSet: "0123456789",
		Passthrough:        "-",
		TweakB64:           "AAAAAAAAAAAAAAAA",
		MinInputLength:     9,
		MaxInputLength:     9,
		MSBEncodingBits:    3,
		PassthroughRules: []dataset.PassthroughRule{
			{Type: dataset.RulePassthrough, Priority: 1},
		},
	}
	cfg.SortRules()
	return cfg
}

func TestDeconstructReconstruct_Passthrough(t *testing.T) {
	cfg := ssnConfig()
	d := Deconstruct("123-45-6789", cfg)

	assert.Equal(t, "123456789", d.Core)

	back := Reconstruct(d.Core, d, cfg)
	assert.Equal(t, "123-45-6789", back)
}

func TestDeconstruct_PrefixSuffix(t *testing.T) {
	cfg := &dataset.Config{
		InputCharacterSet:  "0123456789",
		OutputCharacterSet: "0123456789",
		MinInputLength:     4,
		MaxInputLength:     4,
		PassthroughRules: []dataset.PassthroughRule{
			{Type: dataset.RulePrefix, Value: 2, Priority: 1},
			{Type: dataset.RuleSuffix, Value: 2, Priority: 2},
		},
	}
	cfg.SortRules()

	d := Deconstruct("AB123456CD", cfg)
	assert.Equal(t, "AB", d.Prefix)
	assert.Equal(t, "CD", d.Suffix)
	assert.Equal(t, "123456", d.Core)

	back := Reconstruct(d.Core, d, cfg)
	assert.Equal(t, "AB123456CD", back)
}

func TestValidateCore_RejectsOutOfAlphabet(t *testing.T) {
	err := ValidateCore("12A", "0123456789", 1, 5)
	assert.ErrorIs(t, err, ErrInputInvalid)
}

func TestValidateCore_RejectsBadLength(t *testing.T) {
	err := ValidateCore("12", "0123456789", 5, 9)
	assert.ErrorIs(t, err, ErrInputInvalid)
}

func TestTranslate_SameAlphabet(t *testing.T) {
	s, err := Translate("12345", "0123456789", "0123456789")
	require.NoError(t, err)
	assert.Equal(t, "12345", s)
}

func TestTranslate_DifferentAlphabetSameCardinality(t *testing.T) {
	src := "0123456789"
	dst := "abcdefghij"
	s, err := Translate("129", src, dst)
	require.NoError(t, err)
	assert.Equal(t, "bcj", s)

	back, err := Translate(s, dst, src)
	require.NoError(t, err)
	assert.Equal(t, "129", back)
}

func TestEncodeDecodeKeyNumber_RoundTrip(t *testing.T) {
	// A hex-sized alphabet leaves headroom in the leading character's high
	// bits for the key number without overflowing the alphabet.
	alphabet := "0123456789abcdef"
	encoded, err := EncodeKeyNumber("0876543", alphabet, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, byte('c'), encoded[0])

	restored, n, err := DecodeKeyNumber(encoded, alphabet, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "0876543", restored)
}
