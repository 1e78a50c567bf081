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

// Package keymanager fetches, unwraps and caches the symmetric data keys
// used by both the unstructured and structured pipelines.
package keymanager

import (
	"github.com/ubiqsecurity/ubiq-go/algorithm"
)

// KeyEntry is a cached or freshly-fetched data key and its wrapping
// material. RawKey is always plaintext from the caller's point of view —
// whether it was unwrapped eagerly (at cache time) or lazily (on every
// Get) is an internal cache policy, not visible on the struct.
type KeyEntry struct {
	KeyNumber     int
	EncDataKey    []byte // base64-decoded wrapped data key, as returned by the KMS
	EncPrivateKey string // PEM, encrypted with the caller's srsa passphrase
	RawKey        []byte // plaintext data key
	Algorithm     algorithm.Algorithm
	Session       string
	Fingerprint   string
	Fragmented    bool
}
