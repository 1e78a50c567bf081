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

// Package structured implements the format-preserving encryption pipeline:
// deconstructing a string into its encryptable core plus passthrough
// formatting, running FF1 over the core, and embedding the key version in
// the ciphertext's leading character.
package structured

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ubiqsecurity/ubiq-go/dataset"
	"github.com/ubiqsecurity/ubiq-go/internal/bigint"
)

// ErrInputInvalid covers characters outside a dataset's alphabet or input
// lengths outside [min, max].
var ErrInputInvalid = errors.New("structured: invalid input")

// Deconstructed is the result of splitting a plaintext or ciphertext string
// into its encryptable core and the formatting removed around it.
type Deconstructed struct {
	Core   string
	Mask   string // core as it stood when the passthrough step ran, before its passthrough characters were stripped
	Prefix string
	Suffix string
}

// Deconstruct applies ds's passthrough rules, in ascending priority order,
// peeling prefix/suffix slices and stripping passthrough characters from s.
func Deconstruct(s string, ds *dataset.Config) Deconstructed {
	d := Deconstructed{Core: s}
	sawPassthroughRule := false

	for _, rule := range ds.PassthroughRules {
		switch rule.Type {
		case dataset.RulePrefix:
			k := rule.Value
			if k > len(d.Core) {
				k = len(d.Core)
			}
			d.Prefix += d.Core[:k]
			d.Core = d.Core[k:]
		case dataset.RuleSuffix:
			k := rule.Value
			if k > len(d.Core) {
				k = len(d.Core)
			}
			d.Suffix = d.Core[len(d.Core)-k:] + d.Suffix
			d.Core = d.Core[:len(d.Core)-k]
		case dataset.RulePassthrough:
			d.Mask = d.Core
			d.Core = stripPassthrough(d.Core, ds.Passthrough)
			sawPassthroughRule = true
		}
	}

	// Legacy default: an implicit trailing passthrough step when the
	// dataset names passthrough characters but no rule fired explicitly.
	if !sawPassthroughRule && ds.Passthrough != "" {
		d.Mask = d.Core
		d.Core = stripPassthrough(d.Core, ds.Passthrough)
	}

	return d
}

// Reconstruct reverses Deconstruct: it restores passthrough characters into
// core at their original mask positions, then re-attaches prefix/suffix.
// Rules are walked in the reverse of the priority order Deconstruct used.
func Reconstruct(core string, d Deconstructed, ds *dataset.Config) string {
	result := core
	if d.Mask != "" {
		result = restorePassthrough(core, d.Mask, ds.Passthrough)
	}
	return d.Prefix + result + d.Suffix
}

func stripPassthrough(s, passthrough string) string {
	if passthrough == "" {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if !strings.ContainsRune(passthrough, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// restorePassthrough walks mask left to right, emitting mask's own
// character wherever it belongs to passthrough, and otherwise consuming
// the next character of core.
func restorePassthrough(core, mask, passthrough string) string {
	coreRunes := []rune(core)
	var b strings.Builder
	i := 0
	for _, r := range mask {
		if strings.ContainsRune(passthrough, r) {
			b.WriteRune(r)
			continue
		}
		if i < len(coreRunes) {
			b.WriteRune(coreRunes[i])
			i++
		}
	}
	return b.String()
}

// ValidateCore checks that core's characters all belong to alphabet and its
// length falls within [minLen, maxLen].
func ValidateCore(core string, alphabet string, minLen, maxLen int) error {
	n := len([]rune(core))
	if n < minLen || n > maxLen {
		return fmt.Errorf("%w: length %d outside [%d, %d]", ErrInputInvalid, n, minLen, maxLen)
	}
	for _, r := range core {
		if !strings.ContainsRune(alphabet, r) {
			return fmt.Errorf("%w: character %q not in input alphabet", ErrInputInvalid, r)
		}
	}
	return nil
}

// Translate re-renders s (a string over srcAlphabet) as a string over
// dstAlphabet of the same length, by converting through its positional
// integer value. srcAlphabet and dstAlphabet must have equal cardinality.
func Translate(s, srcAlphabet, dstAlphabet string) (string, error) {
	src := []rune(srcAlphabet)
	dst := []rune(dstAlphabet)
	if len(src) != len(dst) {
		return "", fmt.Errorf("%w: alphabet cardinality mismatch (%d vs %d)", ErrInputInvalid, len(src), len(dst))
	}

	n, err := bigint.FromString(s, src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInputInvalid, err)
	}
	return bigint.ToString(n, dst, len([]rune(s)))
}

// EncodeKeyNumber embeds keyNumber into s's first character by adding
// keyNumber<<msbBits to that character's index in alphabet; the sum must
// still be a valid index.
func EncodeKeyNumber(s string, alphabet string, msbBits int, keyNumber int) (string, error) {
	runes := []rune(s)
	if len(runes) == 0 {
		return s, nil
	}
	idx := runeIndexOf(alphabet, runes[0])
	if idx < 0 {
		return "", fmt.Errorf("%w: leading character not in output alphabet", ErrInputInvalid)
	}

	shifted := idx + (keyNumber << uint(msbBits))
	abc := []rune(alphabet)
	if shifted >= len(abc) {
		return "", fmt.Errorf("%w: key number %d does not fit in %d reserved bits", ErrInputInvalid, keyNumber, msbBits)
	}
	runes[0] = abc[shifted]
	return string(runes), nil
}

// DecodeKeyNumber extracts the key number embedded in s's first character
// and returns it alongside the alphabet-valid string (first character
// restored to its un-shifted value, suitable for FF1 decrypt).
func DecodeKeyNumber(s string, alphabet string, msbBits int) (string, int, error) {
	runes := []rune(s)
	if len(runes) == 0 {
		return s, 0, nil
	}
	idx := runeIndexOf(alphabet, runes[0])
	if idx < 0 {
		return "", 0, fmt.Errorf("%w: leading character not in output alphabet", ErrInputInvalid)
	}

	keyNumber := idx >> uint(msbBits)
	abc := []rune(alphabet)
	restoredIdx := idx - (keyNumber << uint(msbBits))
	runes[0] = abc[restoredIdx]
	return string(runes), keyNumber, nil
}

func runeIndexOf(alphabet string, r rune) int {
	for i, a := range []rune(alphabet) {
		if a == r {
			return i
		}
	}
	return -1
}
