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

// Package bigint adapts math/big for the base-radix string conversions FF1
// needs: treating a string over an arbitrary alphabet as a positional number,
// and rendering a big integer back to a fixed-width string over that
// alphabet.
package bigint

import (
	"fmt"
	"math/big"
)

// FromString interprets s as a base-len(alphabet) number, most significant
// character first, and returns its value. Every rune of s must appear in
// alphabet.
func FromString(s string, alphabet []rune) (*big.Int, error) {
	index := runeIndex(alphabet)
	radix := big.NewInt(int64(len(alphabet)))

	n := new(big.Int)
	for _, r := range s {
		d, ok := index[r]
		if !ok {
			return nil, fmt.Errorf("bigint: character %q not in alphabet", r)
		}
		n.Mul(n, radix)
		n.Add(n, big.NewInt(int64(d)))
	}
	return n, nil
}

// ToString renders n as a base-len(alphabet) number of exactly width
// characters, left-padding with alphabet[0]. It fails if n requires more
// than width digits to represent.
func ToString(n *big.Int, alphabet []rune, width int) (string, error) {
	if n.Sign() < 0 {
		return "", fmt.Errorf("bigint: cannot render negative value")
	}

	radix := big.NewInt(int64(len(alphabet)))
	digits := make([]rune, width)
	rem := new(big.Int).Set(n)
	mod := new(big.Int)

	for i := width - 1; i >= 0; i-- {
		rem.DivMod(rem, radix, mod)
		digits[i] = alphabet[mod.Int64()]
	}
	if rem.Sign() != 0 {
		return "", fmt.Errorf("bigint: value does not fit in %d digits", width)
	}
	return string(digits), nil
}

// Mod returns a mod n, always in [0, n) — Euclidean modulus, which is what
// FF1's "(a - b) mod n, adding n if negative" step reduces to. math/big's
// Int.Mod already implements Euclidean modulus, so no manual sign correction
// is needed here.
func Mod(a, n *big.Int) *big.Int {
	r := new(big.Int)
	r.Mod(a, n)
	return r
}

// Pow returns radix^exp as a *big.Int.
func Pow(radix, exp int) *big.Int {
	return new(big.Int).Exp(big.NewInt(int64(radix)), big.NewInt(int64(exp)), nil)
}

// FromBytes interprets b as an unsigned big-endian integer.
func FromBytes(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// ToBytes renders n as big-endian bytes, left-padded with zeros to length
// bytes. FF1's round function strips a leading zero sign byte from the
// standard library's minimal big-endian encoding implicitly, since Bytes()
// never emits one: big.Int.Bytes returns the minimal unsigned encoding, so
// there is no sign byte to strip here.
func ToBytes(n *big.Int, length int) []byte {
	raw := n.Bytes()
	if len(raw) >= length {
		return raw[len(raw)-length:]
	}
	out := make([]byte, length)
	copy(out[length-len(raw):], raw)
	return out
}

func runeIndex(alphabet []rune) map[rune]int {
	idx := make(map[rune]int, len(alphabet))
	for i, r := range alphabet {
		idx[r] = i
	}
	return idx
}
