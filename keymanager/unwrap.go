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

package keymanager

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// ErrUnwrap covers PEM-passphrase decryption and RSA-OAEP unwrap failures:
// a bad srsa passphrase or a corrupted wrapped-key blob.
var ErrUnwrap = errors.New("keymanager: failed to unwrap data key")

// unwrap decrypts encPrivateKeyPEM with srsa to recover the RSA private
// key, then RSA-OAEP-decrypts wrapped to recover the plaintext data key.
func unwrap(encPrivateKeyPEM string, srsa string, wrapped []byte) ([]byte, error) {
	block, _ := pem.Decode([]byte(encPrivateKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("%w: not a PEM block", ErrUnwrap)
	}

	der := block.Bytes
	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck // legacy PEM encryption used by the KMS wire format
		var err error
		der, err = x509.DecryptPEMBlock(block, []byte(srsa)) //nolint:staticcheck
		if err != nil {
			return nil, fmt.Errorf("%w: decrypting private key: %v", ErrUnwrap, err)
		}
	}

	priv, err := parsePrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing private key: %v", ErrUnwrap, err)
	}

	plaintext, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, priv, wrapped, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: RSA-OAEP decrypt: %v", ErrUnwrap, err)
	}
	return plaintext, nil
}

func parsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return rsaKey, nil
}
