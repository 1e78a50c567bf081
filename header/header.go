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

// Package header encodes and decodes the self-describing prefix carried by
// every unstructured ciphertext: version, flags, algorithm, and the wrapped
// data key needed to recover the key used to seal the message.
package header

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrBadHeader is returned by Decode for any malformed header: wrong
// version, truncated buffer, or inconsistent field widths.
var ErrBadHeader = errors.New("header: malformed ciphertext header")

// Version is the only header layout this package understands.
const Version byte = 0

// FlagAAD marks the header bytes (prefix through key_enc) as the AEAD
// associated data for the ciphertext that follows.
const FlagAAD byte = 1 << 0

// fixedPrefixLen is version + flags + algo_id + iv_len + key_enc_len(u16).
const fixedPrefixLen = 6

// Header is the parsed form of an unstructured ciphertext prefix.
type Header struct {
	Version byte
	Flags   byte
	AlgoID  byte
	IV      []byte
	KeyEnc  []byte

	// Bytes is the raw encoded header (prefix through KeyEnc), the slice
	// used as AEAD associated data when FlagAAD is set.
	Bytes []byte
}

// HasAAD reports whether the header carries the AAD flag.
func (h Header) HasAAD() bool { return h.Flags&FlagAAD != 0 }

// Encode packs algoID, iv and keyEnc into a header buffer per the version-0
// layout: version | flags | algo_id | iv_len | key_enc_len(u16) | iv | key_enc.
func Encode(algoID byte, iv, keyEnc []byte, flags byte) ([]byte, error) {
	if len(iv) > 0xFF {
		return nil, fmt.Errorf("header: iv too long (%d bytes)", len(iv))
	}
	if len(keyEnc) > 0xFFFF {
		return nil, fmt.Errorf("header: key_enc too long (%d bytes)", len(keyEnc))
	}

	buf := make([]byte, fixedPrefixLen+len(iv)+len(keyEnc))
	buf[0] = Version
	buf[1] = flags
	buf[2] = algoID
	buf[3] = byte(len(iv))
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(keyEnc)))
	copy(buf[fixedPrefixLen:], iv)
	copy(buf[fixedPrefixLen+len(iv):], keyEnc)
	return buf, nil
}

// Decode parses a header from the front of b and returns the parsed Header
// along with the number of bytes consumed from b.
func Decode(b []byte) (Header, int, error) {
	if len(b) < fixedPrefixLen {
		return Header{}, 0, fmt.Errorf("%w: buffer shorter than fixed prefix", ErrBadHeader)
	}
	if b[0] != Version {
		return Header{}, 0, fmt.Errorf("%w: unsupported version %d", ErrBadHeader, b[0])
	}

	flags := b[1]
	algoID := b[2]
	ivLen := int(b[3])
	keyEncLen := int(binary.BigEndian.Uint16(b[4:6]))

	total := fixedPrefixLen + ivLen + keyEncLen
	if len(b) < total {
		return Header{}, 0, fmt.Errorf("%w: buffer shorter than declared field widths", ErrBadHeader)
	}

	iv := append([]byte(nil), b[fixedPrefixLen:fixedPrefixLen+ivLen]...)
	keyEnc := append([]byte(nil), b[fixedPrefixLen+ivLen:total]...)

	return Header{
		Version: Version,
		Flags:   flags,
		AlgoID:  algoID,
		IV:      iv,
		KeyEnc:  keyEnc,
		Bytes:   append([]byte(nil), b[:total]...),
	}, total, nil
}
