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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ubiqsecurity/ubiq-go/algorithm"
	"github.com/ubiqsecurity/ubiq-go/credentials"
	"github.com/ubiqsecurity/ubiq-go/internal/telemetry"
)

type unstructuredKeyResponse struct {
	EncryptedDataKey   string `json:"encrypted_data_key"`
	EncryptedPrivKey   string `json:"encrypted_private_key"`
	WrappedDataKey     string `json:"wrapped_data_key"`
	EncryptionSession  string `json:"encryption_session"`
	KeyFingerprint     string `json:"key_fingerprint"`
	SecurityModel      struct {
		Algorithm               string `json:"algorithm"`
		EnableDataFragmentation bool   `json:"enable_data_fragmentation"`
	} `json:"security_model"`
}

func (m *Manager) fetchUnstructuredEncryptionKey(creds credentials.Credentials) (KeyEntry, error) {
	u := *creds.Host
	u.Path = "/api/v0/encryption/key"
	res, err := m.client.Post(u.String(), []byte(`{"uses":1}`), "application/json")
	if err != nil {
		telemetry.KMSRequests.WithLabelValues("encryption/key", "error").Inc()
		return KeyEntry{}, fmt.Errorf("keymanager: encryption/key: %w", err)
	}
	telemetry.KMSRequests.WithLabelValues("encryption/key", strconv.Itoa(res.Status)).Inc()
	if !res.Success() {
		return KeyEntry{}, kmsError("encryption/key", res.Status)
	}

	var wire unstructuredKeyResponse
	if err := json.Unmarshal(res.Content, &wire); err != nil {
		return KeyEntry{}, fmt.Errorf("keymanager: encryption/key: %w", err)
	}
	return m.buildUnstructuredEntry(creds, wire)
}

func (m *Manager) fetchUnstructuredDecryptionKey(creds credentials.Credentials, encDataKey []byte) (KeyEntry, error) {
	u := *creds.Host
	u.Path = "/api/v0/decryption/key"
	body, err := json.Marshal(map[string]string{
		"encrypted_data_key": base64.StdEncoding.EncodeToString(encDataKey),
	})
	if err != nil {
		return KeyEntry{}, fmt.Errorf("keymanager: %w", err)
	}

	res, err := m.client.Post(u.String(), body, "application/json")
	if err != nil {
		telemetry.KMSRequests.WithLabelValues("decryption/key", "error").Inc()
		return KeyEntry{}, fmt.Errorf("keymanager: decryption/key: %w", err)
	}
	telemetry.KMSRequests.WithLabelValues("decryption/key", strconv.Itoa(res.Status)).Inc()
	if !res.Success() {
		return KeyEntry{}, kmsError("decryption/key", res.Status)
	}

	var wire unstructuredKeyResponse
	if err := json.Unmarshal(res.Content, &wire); err != nil {
		return KeyEntry{}, fmt.Errorf("keymanager: decryption/key: %w", err)
	}
	if wire.EncryptedDataKey == "" {
		wire.EncryptedDataKey = base64.StdEncoding.EncodeToString(encDataKey)
	}
	return m.buildUnstructuredEntry(creds, wire)
}

func (m *Manager) buildUnstructuredEntry(creds credentials.Credentials, wire unstructuredKeyResponse) (KeyEntry, error) {
	wrapped, err := base64.StdEncoding.DecodeString(wire.WrappedDataKey)
	if err != nil {
		return KeyEntry{}, fmt.Errorf("keymanager: bad wrapped_data_key: %w", err)
	}
	encDataKey, err := base64.StdEncoding.DecodeString(wire.EncryptedDataKey)
	if err != nil {
		encDataKey = wrapped
	}

	algo := algorithm.AES256GCM
	if a, err := algorithm.ByName(wire.SecurityModel.Algorithm); err == nil {
		algo = a
	}

	entry := KeyEntry{
		EncDataKey:    encDataKey,
		EncPrivateKey: wire.EncryptedPrivKey,
		RawKey:        wrapped,
		Algorithm:     algo,
		Session:       wire.EncryptionSession,
		Fingerprint:   wire.KeyFingerprint,
		Fragmented:    wire.SecurityModel.EnableDataFragmentation,
	}

	if !m.encryptAtRest() {
		plain, err := unwrap(entry.EncPrivateKey, creds.Srsa, wrapped)
		if err != nil {
			return KeyEntry{}, err
		}
		entry.RawKey = plain
	}
	return entry, nil
}

type structuredKeyResponse struct {
	KeyNumber        int    `json:"key_number"`
	EncryptedPrivKey string `json:"encrypted_private_key"`
	WrappedDataKey   string `json:"wrapped_data_key"`
}

func (m *Manager) fetchStructuredKey(creds credentials.Credentials, datasetName string, keyNumber int) (KeyEntry, error) {
	u := *creds.Host
	u.Path = "/api/v0/fpe/key"
	q := url.Values{"papi": {creds.Papi}, "ffs_name": {datasetName}}
	if keyNumber >= 0 {
		q.Set("key_number", strconv.Itoa(keyNumber))
	}
	u.RawQuery = q.Encode()

	res, err := m.client.Get(u.String())
	if err != nil {
		telemetry.KMSRequests.WithLabelValues("fpe/key", "error").Inc()
		return KeyEntry{}, fmt.Errorf("keymanager: fpe/key: %w", err)
	}
	telemetry.KMSRequests.WithLabelValues("fpe/key", strconv.Itoa(res.Status)).Inc()
	if !res.Success() {
		return KeyEntry{}, kmsError("fpe/key", res.Status)
	}

	var wire structuredKeyResponse
	if err := json.Unmarshal(res.Content, &wire); err != nil {
		return KeyEntry{}, fmt.Errorf("keymanager: fpe/key: %w", err)
	}

	wrapped, err := base64.StdEncoding.DecodeString(wire.WrappedDataKey)
	if err != nil {
		return KeyEntry{}, fmt.Errorf("keymanager: bad wrapped_data_key: %w", err)
	}

	entry := KeyEntry{
		KeyNumber:     wire.KeyNumber,
		EncPrivateKey: wire.EncryptedPrivKey,
		RawKey:        wrapped,
		Algorithm:     algorithm.FF1,
	}

	if !m.encryptAtRest() {
		plain, err := unwrap(entry.EncPrivateKey, creds.Srsa, wrapped)
		if err != nil {
			return KeyEntry{}, err
		}
		entry.RawKey = plain
	}
	return entry, nil
}
