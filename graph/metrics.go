/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scans counts issued range scans per operation.
	Scans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvgraph_scans_total",
			Help: "Total number of range scans issued by query operations",
		},
		[]string{"operation"},
	)
	// ScanErrors counts failed query operations.
	ScanErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvgraph_scan_errors_total",
			Help: "Total number of failed query operations",
		},
		[]string{"operation"},
	)
	// ReturnedElements counts elements returned by query operations.
	ReturnedElements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvgraph_returned_elements_total",
			Help: "Total number of elements returned by query operations",
		},
		[]string{"operation"},
	)
	// AddedElements counts elements written by transactions.
	AddedElements = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kvgraph_added_elements_total",
			Help: "Total number of elements written to the store",
		},
	)
	// ScanDuration observes the run time of query operations.
	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kvgraph_scan_duration_seconds",
			Help:    "Run time of query operations until all ranges were scanned",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
