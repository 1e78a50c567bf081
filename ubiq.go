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

// Package ubiq is the top-level client facade: it resolves a dataset by
// name, branches between the structured (FF1) and unstructured (AEAD)
// pipelines, and records a usage event on every successful operation.
package ubiq

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/ubiqsecurity/ubiq-go/cache"
	"github.com/ubiqsecurity/ubiq-go/config"
	"github.com/ubiqsecurity/ubiq-go/credentials"
	"github.com/ubiqsecurity/ubiq-go/dataset"
	"github.com/ubiqsecurity/ubiq-go/events"
	"github.com/ubiqsecurity/ubiq-go/httpclient"
	"github.com/ubiqsecurity/ubiq-go/internal/logger"
	"github.com/ubiqsecurity/ubiq-go/keymanager"
	"github.com/ubiqsecurity/ubiq-go/structured"
	"github.com/ubiqsecurity/ubiq-go/unstructured"
)

// Version is this library's release tag, reported to the KMS as
// product_version on every usage event.
const Version = "1.0.0"

// Client wires together the cache, dataset/key managers, and crypto
// pipelines behind one credential. Callers construct one Client per set of
// credentials; tests may instantiate several independent Clients without
// any shared state between them.
type Client struct {
	creds credentials.Credentials
	cfg   *config.Config

	datasets *dataset.Manager
	keys     *keymanager.Manager
	usage    *events.Aggregator

	structured   *structured.Pipeline
	unstructured *unstructured.Pipeline
}

// New builds a Client for creds. A nil cfg uses the library's recognized
// option defaults.
func New(creds credentials.Credentials, cfg *config.Config) *Client {
	if cfg == nil {
		cfg = config.Default()
	}

	c := cache.New()
	httpClient := httpclient.New(creds.Papi, creds.Sapi)

	datasets := dataset.NewManager(c, httpClient, cfg.DatasetCachingEnabled)
	keys := keymanager.NewManager(c, httpClient, keymanager.Policy{
		TTL:               func() time.Duration { return cfg.KeyCaching.TTL.Dur() },
		CacheUnstructured: cfg.UnstructuredCachingEnabled,
		CacheStructured:   cfg.StructuredCachingEnabled,
		EncryptAtRest:     func() bool { return cfg.KeyCaching.Encrypt },
	})
	usage := events.NewAggregator(c, httpClient, events.Policy{
		MinimumCount:         func() int { return cfg.EventReporting.MinimumCount },
		FlushInterval:        func() time.Duration { return cfg.EventReporting.FlushInterval.Dur() },
		TrapExceptions:       func() bool { return cfg.EventReporting.TrapExceptions },
		TimestampGranularity: func() events.Granularity { return events.Granularity(cfg.EventReporting.TimestampGranularity) },
		ProductName:          func() string { return "ubiq-go" },
		ProductVersion:       func() string { return Version },
		APIVersion:           func() string { return "v3" },
		UserAgent:            func() string { return "ubiq-go/" + Version },
	})

	// An FF1 cipher embeds the raw data key, so caching the cipher object
	// is exactly as unsafe as caching the unwrapped key: the two caches
	// share the key_caching.encrypt switch.
	cacheCiphers := func() bool { return !cfg.KeyCaching.Encrypt }

	return &Client{
		creds:        creds,
		cfg:          cfg,
		datasets:     datasets,
		keys:         keys,
		usage:        usage,
		structured:   structured.NewPipeline(keys, c, cacheCiphers),
		unstructured: unstructured.NewPipeline(keys),
	}
}

// Encrypt encrypts plaintext. With no datasetName, it runs the unstructured
// AEAD path and returns a base64-encoded ciphertext. With a datasetName, it
// runs the structured (format-preserving) path for that dataset and returns
// a string in the dataset's output alphabet.
func (cl *Client) Encrypt(plaintext string, datasetName ...string) (string, error) {
	ds, err := cl.resolve(datasetName...)
	if err != nil {
		return "", err
	}

	if ds.IsStructured() {
		result, keyNumber, err := cl.structured.Encrypt(cl.creds, plaintext, ds)
		if err != nil {
			return "", err
		}
		cl.recordUsage(ds, "encrypt", keyNumber)
		return result, nil
	}

	sealed, err := cl.unstructured.Encrypt(cl.creds, []byte(plaintext))
	if err != nil {
		return "", err
	}
	cl.recordUsage(ds, "encrypt", 0)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt is Encrypt's inverse: it takes whatever Encrypt returned, plus the
// same datasetName (if any), and recovers the original plaintext.
func (cl *Client) Decrypt(ciphertext string, datasetName ...string) (string, error) {
	ds, err := cl.resolve(datasetName...)
	if err != nil {
		return "", err
	}

	if ds.IsStructured() {
		result, keyNumber, err := cl.structured.Decrypt(cl.creds, ciphertext, ds)
		if err != nil {
			return "", err
		}
		cl.recordUsage(ds, "decrypt", keyNumber)
		return result, nil
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("ubiq: invalid ciphertext encoding: %w", err)
	}
	plaintext, err := cl.unstructured.Decrypt(cl.creds, raw)
	if err != nil {
		return "", err
	}
	cl.recordUsage(ds, "decrypt", 0)
	return string(plaintext), nil
}

// EncryptForSearch returns one structured ciphertext per currently active
// key version of datasetName, so a caller can search stored ciphertext for
// any prior encryption of plaintext without knowing which key version
// produced it.
func (cl *Client) EncryptForSearch(plaintext string, datasetName string) ([]string, error) {
	ds, err := cl.datasets.Resolve(cl.creds, datasetName)
	if err != nil {
		return nil, err
	}
	if !ds.IsStructured() {
		return nil, fmt.Errorf("ubiq: EncryptForSearch requires a structured dataset, got %q", datasetName)
	}

	results, err := cl.structured.EncryptForSearch(cl.creds, plaintext, ds)
	if err != nil {
		return nil, err
	}
	cl.recordUsage(ds, "encrypt", 0)
	return results, nil
}

// PrimeKeyCache fetches every active key version of each named structured
// dataset and caches it by key number, so a later Decrypt of ciphertext
// under one of those key numbers finds its key in the cache. It does not set
// a dataset's default encryption key or cache dataset definitions: the first
// Encrypt, and the first resolution of each dataset name, still query the KMS.
func (cl *Client) PrimeKeyCache(datasetNames ...string) error {
	if len(datasetNames) == 0 {
		return nil
	}
	_, err := cl.keys.GetAllEncryptionKeys(cl.creds, datasetNames)
	return err
}

// AddUserMetadata attaches raw (a JSON object, at most 1024 characters) to
// every usage event flushed from this point on.
func (cl *Client) AddUserMetadata(raw string) error {
	return cl.usage.AddUserMetadata(raw)
}

// Close flushes any queued usage events before the Client is discarded.
// Per config.EventReporting.DestroyReportAsync, the flush either blocks for
// the KMS response or is dispatched fire-and-forget.
func (cl *Client) Close() error {
	return cl.usage.Process(cl.creds, cl.cfg.EventReporting.DestroyReportAsync)
}

func (cl *Client) resolve(datasetName ...string) (dataset.Dataset, error) {
	name := ""
	if len(datasetName) > 0 {
		name = datasetName[0]
	}
	return cl.datasets.Resolve(cl.creds, name)
}

func (cl *Client) recordUsage(ds dataset.Dataset, action string, keyNumber int) {
	datasetType := "unstructured"
	if ds.IsStructured() {
		datasetType = "structured"
	}
	id := events.Identity{
		APIKey:       cl.creds.Papi,
		Dataset:      ds.Name,
		DatasetGroup: ds.GroupName,
		Action:       action,
		DatasetType:  datasetType,
		KeyNumber:    keyNumber,
	}
	if err := cl.usage.AddOrIncrement(id, cl.creds); err != nil {
		logger.Debug("ubiq: usage event flush failed", logger.Error(err))
	}
}
