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

package unstructured

import (
	"time"

	"github.com/ubiqsecurity/ubiq-go/algorithm"
	"github.com/ubiqsecurity/ubiq-go/credentials"
	"github.com/ubiqsecurity/ubiq-go/dataset"
	"github.com/ubiqsecurity/ubiq-go/header"
	"github.com/ubiqsecurity/ubiq-go/internal/telemetry"
	"github.com/ubiqsecurity/ubiq-go/keymanager"
)

// KeySource is the subset of keymanager.Manager the pipeline needs, so tests
// can supply a fake.
type KeySource interface {
	GetEncryptionKey(creds credentials.Credentials, ds dataset.Dataset, noCache bool) (keymanager.KeyEntry, error)
	GetDecryptionKey(creds credentials.Credentials, ds dataset.Dataset, encDataKey []byte, keyNumber int) (keymanager.KeyEntry, error)
}

// Pipeline runs the unstructured encrypt/decrypt operations against a
// KeySource, unconditionally using the unnamed (empty-name) unstructured
// dataset (there is no format-preserving structure for unstructured data).
type Pipeline struct {
	keys KeySource
}

// NewPipeline returns a Pipeline backed by keys.
func NewPipeline(keys KeySource) *Pipeline {
	return &Pipeline{keys: keys}
}

var unstructuredDataset = dataset.Dataset{Name: "", Kind: dataset.Unstructured}

// Encrypt fetches (or reuses the cached default) encryption key and seals
// plaintext under it.
func (p *Pipeline) Encrypt(creds credentials.Credentials, plaintext []byte) (sealed []byte, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		telemetry.CryptoOperations.WithLabelValues("encrypt", "unstructured", outcome).Inc()
		telemetry.CryptoOperationDuration.WithLabelValues("encrypt", "unstructured").Observe(time.Since(start).Seconds())
	}()

	entry, err := p.keys.GetEncryptionKey(creds, unstructuredDataset, false)
	if err != nil {
		return nil, err
	}
	algo := entry.Algorithm
	if algo.Name == "" {
		algo = algorithm.AES256GCM
	}
	sealed, err = Seal(algo, entry.RawKey, entry.EncDataKey, plaintext)
	return sealed, err
}

// Decrypt decodes the header embedded in ciphertext, fetches the matching
// decryption key by its wrapped data key, and opens the AEAD payload.
func (p *Pipeline) Decrypt(creds credentials.Credentials, ciphertext []byte) (plaintext []byte, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		telemetry.CryptoOperations.WithLabelValues("decrypt", "unstructured", outcome).Inc()
		telemetry.CryptoOperationDuration.WithLabelValues("decrypt", "unstructured").Observe(time.Since(start).Seconds())
	}()

	hdr, _, err := header.Decode(ciphertext)
	if err != nil {
		return nil, err
	}

	entry, err := p.keys.GetDecryptionKey(creds, unstructuredDataset, hdr.KeyEnc, 0)
	if err != nil {
		return nil, err
	}

	plaintext, err = Open(entry.RawKey, ciphertext)
	return plaintext, err
}
