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

// Package algorithm is the registry of cryptographic algorithms supported by
// the library: names, numeric IDs, and key/IV/tag lengths.
package algorithm

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnknownAlgorithm is returned when an ID or name has no registered Algorithm.
var ErrUnknownAlgorithm = errors.New("algorithm: unknown algorithm")

// Algorithm describes one supported cipher: its wire ID, canonical name, and
// the key/IV/tag lengths a KeyManager or unstructured pipeline needs.
type Algorithm struct {
	ID      int
	Name    string
	KeyLen  int // bytes
	IVLen   int // bytes
	TagLen  int // bytes
}

// The three supported algorithms.
var (
	AES256GCM = Algorithm{ID: 0, Name: "AES-256-GCM", KeyLen: 32, IVLen: 12, TagLen: 16}
	AES128GCM = Algorithm{ID: 1, Name: "AES-128-GCM", KeyLen: 16, IVLen: 12, TagLen: 16}
	FF1       = Algorithm{ID: 2, Name: "FF1", KeyLen: 0, IVLen: 0, TagLen: 0}
)

var (
	mu       sync.RWMutex
	byID     = map[int]Algorithm{}
	byName   = map[string]Algorithm{}
)

func init() {
	for _, a := range []Algorithm{AES256GCM, AES128GCM, FF1} {
		mustRegister(a)
	}
}

func mustRegister(a Algorithm) {
	if err := Register(a); err != nil {
		panic(err)
	}
}

// Register adds or replaces an algorithm in the registry. Exported so
// callers embedding this library can register additional algorithms without
// forking the package — the registry is a lookup table, not a closed enum.
func Register(a Algorithm) error {
	mu.Lock()
	defer mu.Unlock()

	if a.Name == "" {
		return fmt.Errorf("algorithm: name must not be empty")
	}
	byID[a.ID] = a
	byName[strings.ToLower(a.Name)] = a
	return nil
}

// ByID looks up an algorithm by its numeric wire ID.
func ByID(id int) (Algorithm, error) {
	mu.RLock()
	defer mu.RUnlock()

	a, ok := byID[id]
	if !ok {
		return Algorithm{}, fmt.Errorf("%w: id=%d", ErrUnknownAlgorithm, id)
	}
	return a, nil
}

// ByName looks up an algorithm by name, case-insensitively.
func ByName(name string) (Algorithm, error) {
	mu.RLock()
	defer mu.RUnlock()

	a, ok := byName[strings.ToLower(name)]
	if !ok {
		return Algorithm{}, fmt.Errorf("%w: name=%q", ErrUnknownAlgorithm, name)
	}
	return a, nil
}

// IsAEAD reports whether the algorithm is an authenticated-encryption mode
// (as opposed to FF1, which has no IV/tag).
func (a Algorithm) IsAEAD() bool {
	return a.TagLen > 0
}
