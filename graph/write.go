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
	"context"
	"fmt"

	"devt.de/krotik/kvgraph/graph/operation"
	"devt.de/krotik/kvgraph/graph/pushdown"
	"devt.de/krotik/kvgraph/graph/util"
	"devt.de/krotik/kvgraph/storage"
	"github.com/google/uuid"
)

/*
Add writes the elements of an AddElements operation in a single transaction.
Invalid elements are skipped if the operation allows it. The number of
written elements is returned.
*/
func (gm *Manager) Add(op *operation.AddElements) (int, error) {
	id := uuid.New().String()
	trans := NewGraphTrans(gm)

	wrapErr := func(err error) error {
		return &util.OperationError{Operation: op.Name(), ID: id, Cause: err}
	}

	for _, e := range op.Elements {
		var err error

		if e == nil {
			err = &util.GraphError{Type: util.ErrInvalidData, Detail: "Element is nil"}
		} else if op.Validate {
			err = gm.schema.Validate(e)
		}

		if err == nil {
			err = trans.StoreElement(e)
		}

		if err != nil {
			if !op.SkipInvalid {
				return 0, wrapErr(err)
			}

			logger.Debug(fmt.Sprintf("Skipping invalid element %v: %v", e, err))
		}
	}

	entities, edges := trans.Counts()

	if err := trans.Commit(); err != nil {
		return 0, wrapErr(err)
	}

	return entities + edges, nil
}

/*
Compact merges all records in the store which share row, family, qualifier
and visibility. Only value properties are folded. Returns the number of
removed records.
*/
func (gm *Manager) Compact(ctx context.Context) (int, error) {
	var merged, runs []*storage.Record

	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	if err := gm.checkClosed(); err != nil {
		return 0, err
	}

	popts, err := gm.options(nil, false)
	if err != nil {
		return 0, err
	}

	setup, err := gm.setups.Setup(popts)
	if err != nil {
		return 0, err
	}

	removed := 0
	removedGroups := make(map[string]int)

	agg := setup.Aggregator(pushdown.AggregateByKey)
	agg.OnMerge = func(m *storage.Record, run []*storage.Record) {

		if info, err := gm.conv.Info(m.Key); err == nil {
			removedGroups[info.Group] += len(run) - 1
		}

		removed += len(run) - 1
		merged = append(merged, m)
		runs = append(runs, run...)
	}

	it := gm.gs.Store().Scan(ctx, storage.Range{}, agg.Stage())

	for it.HasNext() {
		it.Next()
	}

	err = it.Error()
	it.Close()

	if err != nil {
		return 0, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	}

	if len(merged) == 0 {
		return 0, nil
	}

	// Write the merged records before the runs are removed

	if err = gm.gs.Store().Write(merged); err == nil {
		err = gm.gs.Store().Delete(runs)
	}

	if err != nil {
		return 0, &util.GraphError{Type: util.ErrWriting, Detail: err.Error()}
	}

	if err = gm.gr.graphEvent(nil, EventStoreCompacted, removedGroups); err == nil {
		err = gm.gs.FlushMain()
	}

	logger.Info(fmt.Sprintf("Compacted %v: merged %v records into %v", gm.Name(),
		len(runs), len(merged)))

	return removed, err
}
