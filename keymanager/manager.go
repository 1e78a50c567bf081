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
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ubiqsecurity/ubiq-go/algorithm"
	"github.com/ubiqsecurity/ubiq-go/cache"
	"github.com/ubiqsecurity/ubiq-go/credentials"
	"github.com/ubiqsecurity/ubiq-go/dataset"
	"github.com/ubiqsecurity/ubiq-go/httpclient"
	"github.com/ubiqsecurity/ubiq-go/internal/logger"
	"github.com/ubiqsecurity/ubiq-go/internal/telemetry"
)

// ErrKms wraps a non-2xx response from the KMS key endpoints.
var ErrKms = errors.New("keymanager: kms request failed")

// kmsError builds the structured error returned for a non-2xx KMS response:
// a logger.UbiqError carrying the endpoint and status as details, with
// ErrKms as its Cause so callers can still errors.Is(err, ErrKms). It also
// logs the failure at error level, since a KMS rejection is always worth
// surfacing regardless of whether the caller checks the return value.
func kmsError(endpoint string, status int) error {
	err := logger.NewUbiqError(logger.ErrCodeKmsError, "kms request rejected", ErrKms).
		WithDetails("endpoint", endpoint).
		WithDetails("status", status)
	logger.ErrorMsg("keymanager: kms request failed",
		logger.String("endpoint", endpoint), logger.Int("status", status))
	return err
}

// Policy supplies the caching knobs a Manager reads on every call, so
// callers can change config at runtime (e.g. in tests) without rebuilding
// the manager.
type Policy struct {
	TTL               func() time.Duration
	CacheUnstructured func() bool
	CacheStructured   func() bool
	EncryptAtRest     func() bool
}

// Manager fetches, unwraps, and caches symmetric data keys.
type Manager struct {
	cache  *cache.Cache
	client *httpclient.SignedClient
	policy Policy
	sf     singleflight.Group
}

// NewManager returns a Manager backed by c and client, governed by policy.
func NewManager(c *cache.Cache, client *httpclient.SignedClient, policy Policy) *Manager {
	return &Manager{cache: c, client: client, policy: policy}
}

func (m *Manager) cachingEnabled(structured bool) bool {
	if structured {
		return m.policy.CacheStructured == nil || m.policy.CacheStructured()
	}
	return m.policy.CacheUnstructured == nil || m.policy.CacheUnstructured()
}

func (m *Manager) ttl() time.Duration {
	if m.policy.TTL == nil {
		return 30 * time.Minute
	}
	return m.policy.TTL()
}

func (m *Manager) encryptAtRest() bool {
	return m.policy.EncryptAtRest != nil && m.policy.EncryptAtRest()
}

func defaultAliasKey(datasetName string) string {
	return datasetName + "-keys-default"
}

func fingerprintKey(datasetName, fingerprint string) string {
	return datasetName + "-keys-" + fingerprint
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return fmt.Sprintf("%x", sum)
}

// resolve returns the plaintext-keyed KeyEntry for a cached entry, unwrapping
// lazily when the at-rest policy requires it.
func (m *Manager) resolve(creds credentials.Credentials, e KeyEntry) (KeyEntry, error) {
	if !m.encryptAtRest() || len(e.RawKey) == 0 {
		return e, nil
	}
	// RawKey still wrapped: unwrap on every read per key_caching.encrypt=true.
	plain, err := unwrap(e.EncPrivateKey, creds.Srsa, e.RawKey)
	if err != nil {
		return KeyEntry{}, err
	}
	out := e
	out.RawKey = plain
	return out, nil
}

// GetEncryptionKey returns the key to use for a new encryption of dataset.
// When noCache is false and caching is enabled, the "<name>-keys-default"
// alias is probed first to amortize fetches across repeated encryptions of
// the same dataset.
func (m *Manager) GetEncryptionKey(creds credentials.Credentials, ds dataset.Dataset, noCache bool) (KeyEntry, error) {
	structured := ds.IsStructured()
	caching := m.cachingEnabled(structured)

	if !noCache && caching {
		if v, ok := m.cache.Get(cache.Keys, defaultAliasKey(ds.Name)); ok {
			telemetry.KeyCacheHits.WithLabelValues("hit").Inc()
			return m.resolve(creds, v.(KeyEntry))
		}
		telemetry.KeyCacheHits.WithLabelValues("miss").Inc()
	}

	v, err, _ := m.sf.Do("enc:"+ds.Name, func() (interface{}, error) {
		if structured {
			return m.fetchStructuredKey(creds, ds.Name, -1)
		}
		return m.fetchUnstructuredEncryptionKey(creds)
	})
	if err != nil {
		return KeyEntry{}, err
	}
	entry := v.(KeyEntry)

	if caching {
		m.cacheEntry(ds.Name, entry)
		if !noCache {
			m.cache.Copy(cache.Keys, fingerprintKey(ds.Name, entry.cacheFingerprint()), defaultAliasKey(ds.Name), m.ttl())
		}
	}
	return m.resolve(creds, entry)
}

// GetDecryptionKey returns the key identified by encDataKey (unstructured)
// or keyNumber (structured), fetching from the KMS on a cache miss.
func (m *Manager) GetDecryptionKey(creds credentials.Credentials, ds dataset.Dataset, encDataKey []byte, keyNumber int) (KeyEntry, error) {
	structured := ds.IsStructured()
	caching := m.cachingEnabled(structured)

	var lookupKey string
	if structured {
		lookupKey = fingerprintKey(ds.Name, md5Hex(strconv.Itoa(keyNumber)))
	} else {
		lookupKey = fingerprintKey(ds.Name, md5Hex(base64.StdEncoding.EncodeToString(encDataKey)))
	}

	if caching {
		if v, ok := m.cache.Get(cache.Keys, lookupKey); ok {
			telemetry.KeyCacheHits.WithLabelValues("hit").Inc()
			return m.resolve(creds, v.(KeyEntry))
		}
		telemetry.KeyCacheHits.WithLabelValues("miss").Inc()
	}

	v, err, _ := m.sf.Do("dec:"+lookupKey, func() (interface{}, error) {
		if structured {
			return m.fetchStructuredKey(creds, ds.Name, keyNumber)
		}
		return m.fetchUnstructuredDecryptionKey(creds, encDataKey)
	})
	if err != nil {
		return KeyEntry{}, err
	}
	entry := v.(KeyEntry)

	if caching {
		m.cacheEntry(ds.Name, entry)
	}
	return m.resolve(creds, entry)
}

// GetAllEncryptionKeys fetches and caches every active key version for each
// named dataset, returning one KeyEntry per (dataset, key number) pair —
// used by encryptForSearch and PrimeKeyCache.
func (m *Manager) GetAllEncryptionKeys(creds credentials.Credentials, datasetNames []string) (map[string][]KeyEntry, error) {
	u := *creds.Host
	u.Path = "/api/v0/fpe/def_keys"
	q := url.Values{"papi": {creds.Papi}, "ffs_name": {strings.Join(datasetNames, ",")}}
	u.RawQuery = q.Encode()

	res, err := m.client.Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("keymanager: def_keys: %w", err)
	}
	if !res.Success() {
		return nil, kmsError("def_keys", res.Status)
	}

	var wire map[string]struct {
		FFS                string            `json:"ffs"`
		EncryptedPrivKey   string            `json:"encrypted_private_key"`
		Keys               map[string]string `json:"keys"`
	}
	if err := json.Unmarshal(res.Content, &wire); err != nil {
		return nil, fmt.Errorf("keymanager: def_keys: %w", err)
	}

	out := make(map[string][]KeyEntry, len(wire))
	for name, def := range wire {
		numbers := make([]int, 0, len(def.Keys))
		for numStr := range def.Keys {
			n, err := strconv.Atoi(numStr)
			if err != nil {
				continue
			}
			numbers = append(numbers, n)
		}
		sort.Ints(numbers)

		for _, n := range numbers {
			wrappedB64 := def.Keys[strconv.Itoa(n)]
			wrapped, err := base64.StdEncoding.DecodeString(wrappedB64)
			if err != nil {
				return nil, fmt.Errorf("keymanager: def_keys: bad wrapped key for %s/%d: %w", name, n, err)
			}
			entry := KeyEntry{
				KeyNumber:     n,
				EncDataKey:    wrapped,
				EncPrivateKey: def.EncryptedPrivKey,
				RawKey:        wrapped,
				Algorithm:     algorithm.FF1,
			}
			if !m.encryptAtRest() {
				plain, err := unwrap(entry.EncPrivateKey, creds.Srsa, wrapped)
				if err != nil {
					return nil, fmt.Errorf("keymanager: def_keys: %s/%d: %w", name, n, err)
				}
				entry.RawKey = plain
			}
			m.cacheEntry(name, entry)
			resolved, err := m.resolve(creds, entry)
			if err != nil {
				return nil, fmt.Errorf("keymanager: def_keys: %s/%d: %w", name, n, err)
			}
			out[name] = append(out[name], resolved)
		}
	}
	return out, nil
}

func (e KeyEntry) cacheFingerprint() string {
	if e.Fingerprint != "" {
		return md5Hex(e.Fingerprint)
	}
	if e.Algorithm.ID == algorithm.FF1.ID {
		return md5Hex(strconv.Itoa(e.KeyNumber))
	}
	return md5Hex(base64.StdEncoding.EncodeToString(e.EncDataKey))
}

// cacheEntry stores entry as given: the fetch paths have already unwrapped
// RawKey unless key_caching.encrypt keeps it wrapped at rest.
func (m *Manager) cacheEntry(datasetName string, entry KeyEntry) {
	stored := entry
	m.cache.Set(cache.Keys, fingerprintKey(datasetName, entry.cacheFingerprint()), stored, m.ttl())
}
