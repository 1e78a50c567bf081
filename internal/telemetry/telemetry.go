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

// Package telemetry instruments the cache, key-manager, and event-aggregator
// code paths with Prometheus counters and histograms.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ubiq"

// Registry is the Prometheus registry every metric below is registered
// against; callers expose it via promhttp.HandlerFor in their own server.
var Registry = prometheus.NewRegistry()

var (
	// CryptoOperations counts encrypt/decrypt calls by kind and outcome.
	CryptoOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "operations_total",
			Help:      "Total number of encrypt/decrypt operations",
		},
		[]string{"operation", "dataset_type", "outcome"}, // encrypt/decrypt, structured/unstructured, ok/error
	)

	// CryptoOperationDuration tracks operation latency.
	CryptoOperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "operation_duration_seconds",
			Help:      "Encrypt/decrypt operation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
		},
		[]string{"operation", "dataset_type"},
	)

	// KeyCacheHits counts key-manager cache hits and misses.
	KeyCacheHits = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keymanager",
			Name:      "cache_lookups_total",
			Help:      "Total number of key-manager cache lookups",
		},
		[]string{"result"}, // hit, miss
	)

	// KMSRequests counts outbound KMS HTTP calls by endpoint and status.
	KMSRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kms",
			Name:      "requests_total",
			Help:      "Total number of requests issued to the KMS",
		},
		[]string{"endpoint", "status"},
	)

	// EventsQueued tracks the queued-event gauge of the aggregator's cache bucket.
	EventsQueued = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "queued",
			Help:      "Number of distinct usage-event counters currently queued",
		},
	)

	// EventsFlushed counts completed flushes by outcome.
	EventsFlushed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "flushes_total",
			Help:      "Total number of usage-event flush attempts",
		},
		[]string{"outcome"}, // ok, error, trapped
	)
)
