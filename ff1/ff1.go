// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package ff1 implements NIST SP 800-38G's FF1 format-preserving cipher
// over an arbitrary-radix alphabet, using AES-CBC-MAC as the round
// function's pseudorandom generator.
package ff1

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/ubiqsecurity/ubiq-go/internal/bigint"
)

// ErrOverflow is raised when a round's rendered value requires more
// characters than the allotted width — an internal invariant violation
// that should not occur for inputs matching the configured alphabet.
var ErrOverflow = errors.New("ff1: rendered value overflows target width")

// ErrInputInvalid covers bad construction parameters or out-of-alphabet
// input characters.
var ErrInputInvalid = errors.New("ff1: invalid input")

const numRounds = 10

// Cipher is an FF1 instance bound to one key, tweak and alphabet.
type Cipher struct {
	key      []byte
	tweak    []byte
	alphabet []rune
	radix    int
	minLen   int
}

// New constructs a Cipher. tweakB64 is base64-encoded per dataset config;
// alphabet's length becomes the cipher's radix (2..65536 in principle, 2..95
// for the character sets datasets actually use).
func New(key []byte, tweakB64 string, alphabet string) (*Cipher, error) {
	if len(key) != 16 && len(key) != 32 {
		return nil, fmt.Errorf("%w: key must be 16 or 32 bytes, got %d", ErrInputInvalid, len(key))
	}

	tweak, err := base64.StdEncoding.DecodeString(tweakB64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tweak: %v", ErrInputInvalid, err)
	}

	runes := []rune(alphabet)
	radix := len(runes)
	if radix < 2 {
		return nil, fmt.Errorf("%w: radix must be >= 2", ErrInputInvalid)
	}

	minLen := int(math.Ceil(6.0 / math.Log10(float64(radix))))
	if minLen < 2 {
		minLen = 2
	}
	if minLen > 65536 {
		return nil, fmt.Errorf("%w: radix too small, minlen exceeds 65536", ErrInputInvalid)
	}

	return &Cipher{key: key, tweak: tweak, alphabet: runes, radix: radix, minLen: minLen}, nil
}

// MinLen is the minimum input length this Cipher accepts (NIST's
// radix^minlen >= 10^6 domain-size requirement).
func (c *Cipher) MinLen() int { return c.minLen }

// Encrypt runs the FF1 forward transform over s, a string whose characters
// all belong to the cipher's alphabet.
func (c *Cipher) Encrypt(s string) (string, error) {
	x, err := c.runeSlice(s)
	if err != nil {
		return "", err
	}
	if len(x) < c.minLen {
		return "", fmt.Errorf("%w: input shorter than minimum length %d", ErrInputInvalid, c.minLen)
	}

	n := len(x)
	u := n / 2
	v := n - u
	A := x[:u]
	B := x[u:]

	b, d, p := c.roundSizes(v)
	P := c.fixedBlock(p, u, n)

	for i := 0; i < numRounds; i++ {
		numB, err := bigint.FromString(string(B), c.alphabet)
		if err != nil {
			return "", err
		}
		S := c.roundFunction(P, byte(i), b, d, numB)

		y := bigint.FromBytes(S)
		m := u
		if i%2 != 0 {
			m = v
		}

		numA, err := bigint.FromString(string(A), c.alphabet)
		if err != nil {
			return "", err
		}

		modulus := bigint.Pow(c.radix, m)
		sum := new(big.Int).Add(numA, y)
		numC := bigint.Mod(sum, modulus)

		cStr, err := bigint.ToString(numC, c.alphabet, m)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrOverflow, err)
		}

		A = B
		B = []rune(cStr)
	}

	return string(A) + string(B), nil
}

// Decrypt runs the FF1 inverse transform.
func (c *Cipher) Decrypt(s string) (string, error) {
	x, err := c.runeSlice(s)
	if err != nil {
		return "", err
	}
	if len(x) < c.minLen {
		return "", fmt.Errorf("%w: input shorter than minimum length %d", ErrInputInvalid, c.minLen)
	}

	n := len(x)
	u := n / 2
	v := n - u
	A := x[:u]
	B := x[u:]

	b, d, p := c.roundSizes(v)
	P := c.fixedBlock(p, u, n)

	for i := numRounds - 1; i >= 0; i-- {
		numA, err := bigint.FromString(string(A), c.alphabet)
		if err != nil {
			return "", err
		}
		S := c.roundFunction(P, byte(i), b, d, numA)

		y := bigint.FromBytes(S)
		m := u
		if i%2 != 0 {
			m = v
		}

		numB, err := bigint.FromString(string(B), c.alphabet)
		if err != nil {
			return "", err
		}

		modulus := bigint.Pow(c.radix, m)
		diff := new(big.Int).Sub(numB, y)
		numC := bigint.Mod(diff, modulus)

		cStr, err := bigint.ToString(numC, c.alphabet, m)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrOverflow, err)
		}

		B = A
		A = []rune(cStr)
	}

	return string(A) + string(B), nil
}

func (c *Cipher) runeSlice(s string) ([]rune, error) {
	index := make(map[rune]bool, len(c.alphabet))
	for _, r := range c.alphabet {
		index[r] = true
	}
	runes := []rune(s)
	for _, r := range runes {
		if !index[r] {
			return nil, fmt.Errorf("%w: character %q not in alphabet", ErrInputInvalid, r)
		}
	}
	return runes, nil
}

// roundSizes computes b, d, and the fixed P block length (always 16).
func (c *Cipher) roundSizes(v int) (b, d, p int) {
	bitsPerChar := math.Log2(float64(c.radix))
	b = int(math.Ceil(math.Ceil(float64(v)*bitsPerChar) / 8.0))
	d = 4*ceilDiv(b, 4) + 4
	return b, d, 16
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// fixedBlock assembles FF1's 16-byte P block.
func (c *Cipher) fixedBlock(p, u, n int) []byte {
	P := make([]byte, p)
	P[0] = 1
	P[1] = 2
	P[2] = 1
	P[3] = byte(c.radix >> 16)
	P[4] = byte(c.radix >> 8)
	P[5] = byte(c.radix)
	P[6] = 10
	P[7] = byte(u % 256)
	binary.BigEndian.PutUint32(P[8:12], uint32(n))
	binary.BigEndian.PutUint32(P[12:16], uint32(len(c.tweak)))
	return P
}

// roundFunction builds Q from the tweak, round index and the numeric value
// of the half not being replaced this round, runs the AES-CBC-MAC over
// P||Q, expands it to d bytes, and returns the first d bytes (S in the
// NIST notation).
func (c *Cipher) roundFunction(P []byte, round byte, b, d int, half *big.Int) []byte {
	t := len(c.tweak)
	q := 16 * ceilDiv(t+b+1, 16)
	pad := q - t - b - 1

	Q := make([]byte, q)
	copy(Q, c.tweak)
	// Q[t:t+pad] already zero.
	Q[t+pad] = round
	copy(Q[q-b:], bigint.ToBytes(half, b))

	PQ := append(append([]byte(nil), P...), Q...)

	R := cbcMAC(c.key, PQ)

	maxJ := ceilDiv(d, 16)
	S := append([]byte(nil), R...)
	for j := 1; j < maxJ; j++ {
		block := make([]byte, 16)
		copy(block, R)
		xorCounter(block, j)
		S = append(S, ecbEncryptBlock(c.key, block)...)
	}
	return S[:d]
}

func xorCounter(block []byte, j int) {
	var cb [16]byte
	binary.BigEndian.PutUint32(cb[12:], uint32(j))
	for i := range block {
		block[i] ^= cb[i]
	}
}

func cbcMAC(key, data []byte) []byte {
	block, err := aes.NewCipher(key)
	if err != nil {
		panic(err) // key length validated at construction
	}
	iv := make([]byte, aes.BlockSize)
	mode := cipher.NewCBCEncrypter(block, iv)
	out := make([]byte, len(data))
	mode.CryptBlocks(out, data)
	return out[len(out)-aes.BlockSize:]
}

func ecbEncryptBlock(key, block []byte) []byte {
	c, err := aes.NewCipher(key)
	if err != nil {
		panic(err)
	}
	out := make([]byte, aes.BlockSize)
	c.Encrypt(out, block)
	return out
}
