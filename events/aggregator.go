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

package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ubiqsecurity/ubiq-go/cache"
	"github.com/ubiqsecurity/ubiq-go/credentials"
	"github.com/ubiqsecurity/ubiq-go/httpclient"
	"github.com/ubiqsecurity/ubiq-go/internal/logger"
	"github.com/ubiqsecurity/ubiq-go/internal/telemetry"
)

const trackingPath = "/api/v3/tracking/events"

// Policy supplies the config knobs an Aggregator reads on every call.
type Policy struct {
	MinimumCount         func() int
	FlushInterval        func() time.Duration
	TrapExceptions       func() bool
	TimestampGranularity func() Granularity
	ProductName          func() string
	ProductVersion       func() string
	APIVersion           func() string
	UserAgent            func() string
}

// Aggregator counts usage events into a cache bucket and flushes them to the
// KMS tracking endpoint once a count or interval trigger fires. The
// `processing` flag is an advisory re-entrancy guard, not a lock: it only
// keeps a hot-path add and a teardown flush from posting overlapping
// reports, matching the single-threaded cooperative model this library is
// designed for.
type Aggregator struct {
	cache  *cache.Cache
	client *httpclient.SignedClient
	policy Policy

	mu             sync.Mutex
	lastReportedTS time.Time
	processing     int32
	userMetadata   string
}

// NewAggregator returns an Aggregator backed by c and client.
func NewAggregator(c *cache.Cache, client *httpclient.SignedClient, policy Policy) *Aggregator {
	return &Aggregator{cache: c, client: client, policy: policy, lastReportedTS: time.Now()}
}

func (a *Aggregator) minimumCount() int {
	if a.policy.MinimumCount == nil {
		return 5
	}
	return a.policy.MinimumCount()
}

func (a *Aggregator) flushInterval() time.Duration {
	if a.policy.FlushInterval == nil {
		return 2 * time.Second
	}
	return a.policy.FlushInterval()
}

func (a *Aggregator) granularity() Granularity {
	if a.policy.TimestampGranularity == nil {
		return GranularitySeconds
	}
	return a.policy.TimestampGranularity()
}

func (a *Aggregator) trapExceptions() bool {
	return a.policy.TrapExceptions != nil && a.policy.TrapExceptions()
}

// AddOrIncrement records one occurrence of id, then consults ShouldProcess
// and triggers a synchronous flush if it returns true.
func (a *Aggregator) AddOrIncrement(id Identity, creds credentials.Credentials) error {
	now := time.Now()
	key := id.key()

	a.cache.MergeOrInsert(cache.Events, key, 0,
		func() interface{} {
			return &Counter{Identity: id, Count: 1, FirstTS: now, LastTS: now}
		},
		func(existing interface{}) interface{} {
			c := existing.(*Counter)
			c.Count++
			c.LastTS = now
			return c
		},
	)
	telemetry.EventsQueued.Set(float64(a.cache.GetCount(cache.Events)))

	if a.ShouldProcess() {
		return a.Process(creds, false)
	}
	return nil
}

// ShouldProcess reports whether a flush trigger has fired. It is checked on
// every AddOrIncrement; it reads the processing flag atomically and holds
// a.mu only while reading the last report time.
func (a *Aggregator) ShouldProcess() bool {
	if atomic.LoadInt32(&a.processing) != 0 {
		return false
	}
	a.mu.Lock()
	last := a.lastReportedTS
	a.mu.Unlock()

	if time.Since(last) > a.flushInterval() {
		return true
	}
	return a.cache.GetCount(cache.Events) > a.minimumCount()
}

// AddUserMetadata validates and stores raw for attachment to every
// subsequently flushed event.
func (a *Aggregator) AddUserMetadata(raw string) error {
	if err := ValidateUserMetadata(raw); err != nil {
		return err
	}
	a.mu.Lock()
	a.userMetadata = raw
	a.mu.Unlock()
	return nil
}

type wireEvent struct {
	APIKey             string          `json:"api_key"`
	Datasets           string          `json:"datasets"`
	DatasetGroups      string          `json:"dataset_groups"`
	Action             string          `json:"action"`
	DatasetType        string          `json:"dataset_type"`
	KeyNumber          int             `json:"key_number"`
	Count              int             `json:"count"`
	FirstCallTimestamp string          `json:"first_call_timestamp"`
	LastCallTimestamp  string          `json:"last_call_timestamp"`
	Product            string          `json:"product"`
	ProductVersion     string          `json:"product_version"`
	UserAgent          string          `json:"user-agent"`
	APIVersion         string          `json:"api_version"`
	UserDefined        json.RawMessage `json:"user_defined,omitempty"`
}

type wirePayload struct {
	Usage []wireEvent `json:"usage"`
}

// Process drains the cache's Events bucket and posts the aggregated usage to
// the KMS. If processing is already underway it returns immediately
// (re-entrancy guard). On an HTTP error, TrapExceptions governs whether the
// error is swallowed or returned.
func (a *Aggregator) Process(creds credentials.Credentials, async bool) error {
	if !atomic.CompareAndSwapInt32(&a.processing, 0, 1) {
		return nil
	}
	defer atomic.StoreInt32(&a.processing, 0)

	all := a.cache.GetAll(cache.Events)
	if len(all) == 0 {
		a.mu.Lock()
		a.lastReportedTS = time.Now()
		a.mu.Unlock()
		return nil
	}

	batchID := uuid.NewString()
	logger.Debug("events: flushing batch", logger.String("batch_id", batchID), logger.Int("count", len(all)))

	g := a.granularity()
	a.mu.Lock()
	userMetadata := a.userMetadata
	a.mu.Unlock()

	payload := wirePayload{Usage: make([]wireEvent, 0, len(all))}
	for _, v := range all {
		c := v.(*Counter)
		we := wireEvent{
			APIKey:             c.Identity.APIKey,
			Datasets:           c.Identity.Dataset,
			DatasetGroups:      c.Identity.DatasetGroup,
			Action:             c.Identity.Action,
			DatasetType:        c.Identity.DatasetType,
			KeyNumber:          c.Identity.KeyNumber,
			Count:              c.Count,
			FirstCallTimestamp: FormatTimestamp(c.FirstTS, g),
			LastCallTimestamp:  FormatTimestamp(c.LastTS, g),
			Product:            a.strOr(a.policy.ProductName, "ubiq-go"),
			ProductVersion:     a.strOr(a.policy.ProductVersion, ""),
			UserAgent:          a.strOr(a.policy.UserAgent, "ubiq-go"),
			APIVersion:         a.strOr(a.policy.APIVersion, "v3"),
		}
		if userMetadata != "" {
			we.UserDefined = json.RawMessage(userMetadata)
		}
		payload.Usage = append(payload.Usage, we)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: encoding payload: %w", err)
	}

	u := *creds.Host
	u.Path = trackingPath

	if async {
		telemetry.EventsFlushed.WithLabelValues("ok").Inc()
		a.client.PostAsync(u.String(), body, "application/json")
	} else {
		res, err := a.client.Post(u.String(), body, "application/json")
		if err != nil {
			logger.Debug("events: flush failed", logger.Error(err))
			if !a.trapExceptions() {
				telemetry.EventsFlushed.WithLabelValues("error").Inc()
				return err
			}
			telemetry.EventsFlushed.WithLabelValues("trapped").Inc()
		} else if !res.Success() {
			err := fmt.Errorf("events: tracking endpoint returned status %d", res.Status)
			if !a.trapExceptions() {
				telemetry.EventsFlushed.WithLabelValues("error").Inc()
				return err
			}
			telemetry.EventsFlushed.WithLabelValues("trapped").Inc()
			logger.Debug("events: flush rejected", logger.Error(err))
		} else {
			telemetry.EventsFlushed.WithLabelValues("ok").Inc()
		}
	}

	a.cache.ClearAll(cache.Events)
	telemetry.EventsQueued.Set(0)
	a.mu.Lock()
	a.lastReportedTS = time.Now()
	a.mu.Unlock()
	return nil
}

func (a *Aggregator) strOr(f func() string, def string) string {
	if f == nil {
		return def
	}
	if v := f(); v != "" {
		return v
	}
	return def
}
