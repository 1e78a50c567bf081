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

package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/ubiqsecurity/ubiq-go/cache"
	"github.com/ubiqsecurity/ubiq-go/credentials"
	"github.com/ubiqsecurity/ubiq-go/httpclient"
)

// ErrDatasetInvalid covers a dataset config missing or unknown to the KMS
// for a requested operation.
var ErrDatasetInvalid = errors.New("dataset: invalid or unknown dataset")

// invalidDatasetMessage is the server's sentinel body for "this name isn't
// a structured dataset" — such a response is treated as Unstructured
// rather than an error.
const invalidDatasetMessage = "Invalid Dataset name"

// Manager resolves dataset names to Dataset configs, caching definitions
// fetched from the KMS and collapsing concurrent duplicate fetches for the
// same name via singleflight.
type Manager struct {
	cache   *cache.Cache
	client  *httpclient.SignedClient
	sf      singleflight.Group
	caching func() bool
}

// NewManager returns a Manager backed by c and client. caching reports
// whether dataset-config caching is currently enabled (callers typically
// pass (*config.Config).DatasetCachingEnabled).
func NewManager(c *cache.Cache, client *httpclient.SignedClient, caching func() bool) *Manager {
	return &Manager{cache: c, client: client, caching: caching}
}

// Resolve returns the Dataset for name. An empty name implicitly resolves
// to Unstructured with no KMS round-trip.
func (m *Manager) Resolve(creds credentials.Credentials, name string) (Dataset, error) {
	if name == "" {
		return Dataset{Name: "", Kind: Unstructured}, nil
	}

	if m.caching == nil || m.caching() {
		if v, ok := m.cache.Get(cache.DatasetConfigs, name); ok {
			return v.(Dataset), nil
		}
	}

	v, err, _ := m.sf.Do("dataset:"+name, func() (interface{}, error) {
		return m.fetch(creds, name)
	})
	if err != nil {
		return Dataset{}, err
	}
	ds := v.(Dataset)

	if m.caching == nil || m.caching() {
		m.cache.Set(cache.DatasetConfigs, name, ds, 0)
	}
	return ds, nil
}

func (m *Manager) fetch(creds credentials.Credentials, name string) (Dataset, error) {
	u := *creds.Host
	u.Path = "/api/v0/ffs"
	q := url.Values{"papi": {creds.Papi}, "ffs_name": {name}}
	u.RawQuery = q.Encode()

	res, err := m.client.Get(u.String())
	if err != nil {
		return Dataset{}, fmt.Errorf("dataset: fetching %q: %w", name, err)
	}

	if !res.Success() {
		var body struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(res.Content, &body); jsonErr == nil && strings.Contains(body.Message, invalidDatasetMessage) {
			return Dataset{Name: name, Kind: Unstructured}, nil
		}
		return Dataset{}, fmt.Errorf("%w: dataset %q: kms status %d", ErrDatasetInvalid, name, res.Status)
	}

	var wire struct {
		GroupName          string `json:"group_name"`
		InputCharacterSet  string `json:"input_character_set"`
		OutputCharacterSet string `json:"output_character_set"`
		Passthrough        string `json:"passthrough"`
		TweakB64           string `json:"tweak"`
		MinInputLength     int    `json:"min_input_length"`
		MaxInputLength     int    `json:"max_input_length"`
		MSBEncodingBits    int    `json:"msb_encoding_bits"`
		PassthroughRules   []struct {
			Type     string `json:"type"`
			Value    int    `json:"value"`
			Priority int    `json:"priority"`
		} `json:"passthrough_rules"`
	}
	if err := json.Unmarshal(res.Content, &wire); err != nil {
		return Dataset{}, fmt.Errorf("%w: dataset %q: %v", ErrDatasetInvalid, name, err)
	}

	cfg := &Config{
		InputCharacterSet:  wire.InputCharacterSet,
		OutputCharacterSet: wire.OutputCharacterSet,
		Passthrough:        wire.Passthrough,
		TweakB64:           wire.TweakB64,
		MinInputLength:     wire.MinInputLength,
		MaxInputLength:     wire.MaxInputLength,
		MSBEncodingBits:    wire.MSBEncodingBits,
	}
	for _, r := range wire.PassthroughRules {
		cfg.PassthroughRules = append(cfg.PassthroughRules, PassthroughRule{
			Type:     RuleType(r.Type),
			Value:    r.Value,
			Priority: r.Priority,
		})
	}
	cfg.SortRules()

	return Dataset{
		Name:      name,
		GroupName: wire.GroupName,
		Kind:      Structured,
		Config:    cfg,
	}, nil
}
