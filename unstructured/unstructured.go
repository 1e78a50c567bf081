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

// Package unstructured implements the AEAD seal/open pipeline: a
// self-describing header (see the header package) followed by AES-GCM
// ciphertext and tag.
package unstructured

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/ubiqsecurity/ubiq-go/algorithm"
	"github.com/ubiqsecurity/ubiq-go/header"
)

// ErrAuth is returned by Open when the ciphertext fails authentication.
var ErrAuth = errors.New("unstructured: authentication failed")

// Seal encrypts plaintext under key (raw AES key bytes for algo) and returns
// header ∥ ciphertext ∥ tag. keyEnc is the wrapped form of key, carried in
// the header so a reader can recover the fingerprint/version needed to fetch
// the matching decryption key.
func Seal(algo algorithm.Algorithm, key, keyEnc, plaintext []byte) ([]byte, error) {
	if len(key) != algo.KeyLen {
		return nil, fmt.Errorf("unstructured: key length %d does not match %s", len(key), algo.Name)
	}

	iv := make([]byte, algo.IVLen)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("unstructured: generating iv: %w", err)
	}

	var flags byte
	if algo.IsAEAD() {
		flags |= header.FlagAAD
	}

	hdr, err := header.Encode(byte(algo.ID), iv, keyEnc, flags)
	if err != nil {
		return nil, err
	}

	aead, err := newAEAD(algo, key)
	if err != nil {
		return nil, err
	}

	var aad []byte
	if flags&header.FlagAAD != 0 {
		aad = hdr
	}
	sealed := aead.Seal(nil, iv, plaintext, aad)

	out := make([]byte, 0, len(hdr)+len(sealed))
	out = append(out, hdr...)
	out = append(out, sealed...)
	return out, nil
}

// Open decodes the header from the front of ciphertext and authenticates and
// decrypts the remainder under key.
func Open(key, ciphertext []byte) ([]byte, error) {
	hdr, n, err := header.Decode(ciphertext)
	if err != nil {
		return nil, err
	}

	algo, err := algorithm.ByID(int(hdr.AlgoID))
	if err != nil {
		return nil, err
	}
	if len(key) != algo.KeyLen {
		return nil, fmt.Errorf("unstructured: key length %d does not match %s", len(key), algo.Name)
	}

	aead, err := newAEAD(algo, key)
	if err != nil {
		return nil, err
	}

	var aad []byte
	if hdr.HasAAD() {
		aad = hdr.Bytes
	}

	plaintext, err := aead.Open(nil, hdr.IV, ciphertext[n:], aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return plaintext, nil
}

func newAEAD(algo algorithm.Algorithm, key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("unstructured: %w", err)
	}
	aead, err := cipher.NewGCMWithTagSize(block, algo.TagLen)
	if err != nil {
		return nil, fmt.Errorf("unstructured: %w", err)
	}
	return aead, nil
}
