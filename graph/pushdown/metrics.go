/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package pushdown

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RejectedRecords counts records which were dropped by a scan stage.
	RejectedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvgraph_pushdown_rejected_records_total",
			Help: "Total number of records rejected by a pushdown stage",
		},
		[]string{"stage"},
	)
	// MergedRecords counts records which were folded into another record.
	MergedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvgraph_pushdown_merged_records_total",
			Help: "Total number of records merged by an aggregator",
		},
		[]string{"mode"},
	)
)

/*
Stage labels
*/
const (
	stageValidator = "validator"
	stageFilter    = "filter"
	stageInclude   = "include"
	stageInSet     = "inset"
	stageFirstKey  = "firstkey"
)
