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

package structured

import (
	"fmt"
	"sync"
	"time"

	"github.com/ubiqsecurity/ubiq-go/cache"
	"github.com/ubiqsecurity/ubiq-go/credentials"
	"github.com/ubiqsecurity/ubiq-go/dataset"
	"github.com/ubiqsecurity/ubiq-go/ff1"
	"github.com/ubiqsecurity/ubiq-go/internal/telemetry"
	"github.com/ubiqsecurity/ubiq-go/keymanager"
)

// KeySource is the subset of keymanager.Manager the pipeline needs, so
// tests can supply a fake.
type KeySource interface {
	GetEncryptionKey(creds credentials.Credentials, ds dataset.Dataset, noCache bool) (keymanager.KeyEntry, error)
	GetDecryptionKey(creds credentials.Credentials, ds dataset.Dataset, encDataKey []byte, keyNumber int) (keymanager.KeyEntry, error)
	GetAllEncryptionKeys(creds credentials.Credentials, datasetNames []string) (map[string][]keymanager.KeyEntry, error)
}

// Pipeline runs the structured encrypt/decrypt operations for one or more
// datasets, memoizing FF1 ciphers per (dataset, key number) when at-rest
// key encryption is disabled (a cached FF1 object embeds the plaintext key,
// so it is unsafe to retain when keys must stay wrapped at rest).
type Pipeline struct {
	keys         KeySource
	cache        *cache.Cache
	cacheCiphers func() bool
	mu           sync.Mutex
}

// NewPipeline returns a Pipeline. cacheCiphers should report the effective
// "cache FF1 objects" policy, which tracks key_caching.encrypt == false.
func NewPipeline(keys KeySource, c *cache.Cache, cacheCiphers func() bool) *Pipeline {
	return &Pipeline{keys: keys, cache: c, cacheCiphers: cacheCiphers}
}

func ff1CacheKey(datasetName string, keyNumber int) string {
	return fmt.Sprintf("%s-ff1-%d", datasetName, keyNumber)
}

func (p *Pipeline) buildCipher(ds dataset.Dataset, keyNumber int, rawKey []byte) (*ff1.Cipher, error) {
	if p.cacheCiphers == nil || p.cacheCiphers() {
		p.mu.Lock()
		if v, ok := p.cache.Get(cache.FF1Objects, ff1CacheKey(ds.Name, keyNumber)); ok {
			p.mu.Unlock()
			return v.(*ff1.Cipher), nil
		}
		p.mu.Unlock()
	}

	c, err := ff1.New(rawKey, ds.Config.TweakB64, ds.Config.InputCharacterSet)
	if err != nil {
		return nil, err
	}

	if p.cacheCiphers == nil || p.cacheCiphers() {
		p.cache.Set(cache.FF1Objects, ff1CacheKey(ds.Name, keyNumber), c, 0)
	}
	return c, nil
}

// Encrypt runs the encrypt-structured path: deconstruct, validate, FF1
// encrypt, translate to the output alphabet, embed the key number, and
// reconstruct the original formatting. It returns the key number used, so
// callers can attach it to a usage event.
func (p *Pipeline) Encrypt(creds credentials.Credentials, plaintext string, ds dataset.Dataset) (result string, keyNumber int, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		telemetry.CryptoOperations.WithLabelValues("encrypt", "structured", outcome).Inc()
		telemetry.CryptoOperationDuration.WithLabelValues("encrypt", "structured").Observe(time.Since(start).Seconds())
	}()

	cfg := ds.Config
	d := Deconstruct(plaintext, cfg)

	if err := ValidateCore(d.Core, cfg.InputCharacterSet, cfg.MinInputLength, cfg.MaxInputLength); err != nil {
		return "", 0, err
	}

	entry, err := p.keys.GetEncryptionKey(creds, ds, false)
	if err != nil {
		return "", 0, err
	}

	cipher, err := p.buildCipher(ds, entry.KeyNumber, entry.RawKey)
	if err != nil {
		return "", 0, err
	}

	ciphertext, err := cipher.Encrypt(d.Core)
	if err != nil {
		return "", 0, err
	}

	translated, err := Translate(ciphertext, cfg.InputCharacterSet, cfg.OutputCharacterSet)
	if err != nil {
		return "", 0, err
	}

	embedded, err := EncodeKeyNumber(translated, cfg.OutputCharacterSet, cfg.MSBEncodingBits, entry.KeyNumber)
	if err != nil {
		return "", 0, err
	}

	return Reconstruct(embedded, d, cfg), entry.KeyNumber, nil
}

// Decrypt runs the decrypt-structured path: deconstruct, decode the key
// number, translate back to the input alphabet, FF1 decrypt, reconstruct.
// It returns the key number embedded in ciphertext, so callers can attach
// it to a usage event.
func (p *Pipeline) Decrypt(creds credentials.Credentials, ciphertext string, ds dataset.Dataset) (result string, keyNumber int, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		telemetry.CryptoOperations.WithLabelValues("decrypt", "structured", outcome).Inc()
		telemetry.CryptoOperationDuration.WithLabelValues("decrypt", "structured").Observe(time.Since(start).Seconds())
	}()

	cfg := ds.Config
	d := Deconstruct(ciphertext, cfg)

	restored, keyNumber, err := DecodeKeyNumber(d.Core, cfg.OutputCharacterSet, cfg.MSBEncodingBits)
	if err != nil {
		return "", 0, err
	}

	translated, err := Translate(restored, cfg.OutputCharacterSet, cfg.InputCharacterSet)
	if err != nil {
		return "", 0, err
	}

	entry, err := p.keys.GetDecryptionKey(creds, ds, nil, keyNumber)
	if err != nil {
		return "", 0, err
	}

	cipher, err := p.buildCipher(ds, keyNumber, entry.RawKey)
	if err != nil {
		return "", 0, err
	}

	plainCore, err := cipher.Decrypt(translated)
	if err != nil {
		return "", 0, err
	}

	return Reconstruct(plainCore, d, cfg), keyNumber, nil
}

// EncryptForSearch returns one ciphertext per currently-active key version
// of ds, so a caller can search for any prior encryption of plaintext
// without knowing which key version produced it.
func (p *Pipeline) EncryptForSearch(creds credentials.Credentials, plaintext string, ds dataset.Dataset) (results []string, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		telemetry.CryptoOperations.WithLabelValues("encrypt_for_search", "structured", outcome).Inc()
		telemetry.CryptoOperationDuration.WithLabelValues("encrypt_for_search", "structured").Observe(time.Since(start).Seconds())
	}()

	cfg := ds.Config
	d := Deconstruct(plaintext, cfg)
	if err := ValidateCore(d.Core, cfg.InputCharacterSet, cfg.MinInputLength, cfg.MaxInputLength); err != nil {
		return nil, err
	}

	allKeys, err := p.keys.GetAllEncryptionKeys(creds, []string{ds.Name})
	if err != nil {
		return nil, err
	}

	entries := allKeys[ds.Name]
	results = make([]string, 0, len(entries))
	for _, entry := range entries {
		cipher, err := p.buildCipher(ds, entry.KeyNumber, entry.RawKey)
		if err != nil {
			return nil, err
		}
		ciphertext, err := cipher.Encrypt(d.Core)
		if err != nil {
			return nil, err
		}
		translated, err := Translate(ciphertext, cfg.InputCharacterSet, cfg.OutputCharacterSet)
		if err != nil {
			return nil, err
		}
		embedded, err := EncodeKeyNumber(translated, cfg.OutputCharacterSet, cfg.MSBEncodingBits, entry.KeyNumber)
		if err != nil {
			return nil, err
		}
		results = append(results, Reconstruct(embedded, d, cfg))
	}
	return results, nil
}
