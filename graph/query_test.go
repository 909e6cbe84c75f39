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
	"errors"
	"fmt"
	"testing"
	"time"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/kvgraph/config"
	"devt.de/krotik/kvgraph/graph/data"
	"devt.de/krotik/kvgraph/graph/operation"
	"devt.de/krotik/kvgraph/graph/schema"
	"devt.de/krotik/kvgraph/graph/util"
)

const (
	entityA = "Entity[group=BasicEntity vertex=A properties={count:5}]"
	entityB = "Entity[group=BasicEntity vertex=B properties={count:6}]"
	edgeAB  = "Edge[group=BasicEdge A->B properties={count:1}]"
	edgeAC  = "Edge[group=BasicEdge A--C properties={count:2}]"
	edgeCB  = "Edge[group=BasicEdge C->B properties={count:3}]"
)

/*
newQueryTestManager creates a graph manager with a small test graph.
*/
func newQueryTestManager(layout string) *Manager {
	gm := newTestManager(layout)

	addElements(gm, newEntity("A", 5), newEntity("B", 6),
		newEdge("A", "B", true, 0, 1),
		newEdge("A", "C", false, 0, 2),
		newEdge("C", "B", true, 0, 3))

	return gm
}

func checkQuery(t *testing.T, gm *Manager, op operation.GetOperation, expected ...string) bool {
	res, err := query(gm, op)
	if err != nil {
		t.Error(gm.Converter().Layout(), op.Name(), err)
		return false
	}

	if fmt.Sprint(res) != fmt.Sprint(expected) {
		t.Error("Unexpected result:", gm.Converter().Layout(), op.Name(), res)
		return false
	}

	return true
}

func TestGetElementsWithinSet(t *testing.T) {

	for _, layout := range testLayouts {
		gm := newQueryTestManager(layout)
		defer gm.Close()

		op := operation.NewGetElementsWithinSet([]interface{}{"A", "B"}, nil)

		if !checkQuery(t, gm, op, edgeAB, entityA, entityB) {
			return
		}

		op = operation.NewGetElementsWithinSet([]interface{}{"A", "B", "C"}, nil)

		if !checkQuery(t, gm, op, edgeAB, edgeAC, edgeCB, entityA, entityB) {
			return
		}

		op.IncludeEntities = false
		op.IncludeEdges = operation.EdgesDirected

		if !checkQuery(t, gm, op, edgeAB, edgeCB) {
			return
		}

		op.IncludeEdges = operation.EdgesUndirected

		if !checkQuery(t, gm, op, edgeAC) {
			return
		}

		// Views can filter elements

		view, err := schema.ViewFromJSON([]byte(`{
  "entities": {"BasicEntity": {"filter": "properties.count > 5"}},
  "edges": {"BasicEdge": {}}
}`))
		errorutil.AssertOk(err)

		op = operation.NewGetElementsWithinSet([]interface{}{"A", "B"}, view)

		if !checkQuery(t, gm, op, edgeAB, entityB) {
			return
		}

		// Views can transform properties after filtering

		view, err = schema.ViewFromJSON([]byte(`{
  "entities": {"BasicEntity": {
    "filter": "properties.count > 5",
    "transform": {"count": "properties.count * 10"}
  }},
  "edges": {"BasicEdge": {}}
}`))
		errorutil.AssertOk(err)

		op = operation.NewGetElementsWithinSet([]interface{}{"A", "B"}, view)

		if !checkQuery(t, gm, op, edgeAB, "Entity[group=BasicEntity vertex=B properties={count:60}]") {
			return
		}

		// Unknown seeds produce an empty result

		op = operation.NewGetElementsWithinSet([]interface{}{"X"}, nil)

		if res, err := query(gm, op); err != nil || len(res) != 0 {
			t.Error("Unexpected result:", res, err)
			return
		}
	}
}

func TestGetElementsInRanges(t *testing.T) {

	for _, layout := range testLayouts {
		gm := newQueryTestManager(layout)
		defer gm.Close()

		ranges := []*data.SeedPair{data.NewSeedPair(data.NewEntitySeed("A"), data.NewEntitySeed("B"))}

		op := operation.NewGetElementsInRanges(ranges, nil)

		if !checkQuery(t, gm, op, edgeAB, edgeAB, edgeAC, edgeCB, entityA, entityB) {
			return
		}

		if !checkQuery(t, gm, operation.NewGetEntitiesInRanges(ranges, nil), entityA, entityB) {
			return
		}

		if res, _ := query(gm, operation.NewGetEdgesInRanges(ranges, nil)); len(res) != 4 {
			t.Error("Unexpected result:", res)
			return
		}

		ranges = []*data.SeedPair{data.NewSeedPair(data.NewEntitySeed("B"), data.NewEntitySeed("A"))}

		_, err := gm.Get(context.Background(), operation.NewGetElementsInRanges(ranges, nil))

		if !errors.Is(err, util.ErrInvalidRange) {
			t.Error("Unexpected result:", err)
			return
		}

		var oerr *util.OperationError

		if !errors.As(err, &oerr) || oerr.Operation != "GetElementsInRanges" {
			t.Error("Unexpected result:", err)
			return
		}
	}
}

func TestGetElementsBySeed(t *testing.T) {

	for _, layout := range testLayouts {
		gm := newQueryTestManager(layout)
		defer gm.Close()

		op := operation.NewGetElementsBySeed([]data.ElementSeed{data.NewEntitySeed("A")}, nil)

		if !checkQuery(t, gm, op, entityA) {
			return
		}

		op = operation.NewGetElementsBySeed([]data.ElementSeed{data.NewEdgeSeed("A", "B", true)}, nil)

		if !checkQuery(t, gm, op, edgeAB) {
			return
		}

		op = operation.NewGetElementsBySeed([]data.ElementSeed{data.NewEdgeSeed("C", "A", false)}, nil)

		if !checkQuery(t, gm, op, edgeAC) {
			return
		}

		op.IncludeEdges = operation.EdgesDirected

		if !checkQuery(t, gm, op) {
			return
		}

		op = operation.NewGetRelatedElements([]data.ElementSeed{data.NewEntitySeed("A")}, nil)

		if !checkQuery(t, gm, op, edgeAB, edgeAC, entityA) {
			return
		}

		op = operation.NewGetRelatedElements([]data.ElementSeed{data.NewEdgeSeed("A", "B", true)}, nil)

		if !checkQuery(t, gm, op, edgeAB, entityA, entityB) {
			return
		}

		_, err := gm.Get(context.Background(), operation.NewGetElementsBySeed([]data.ElementSeed{nil}, nil))

		if !errors.Is(err, util.ErrInvalidRange) {
			t.Error("Unexpected result:", err)
			return
		}
	}
}

func TestGetAllElements(t *testing.T) {

	for _, layout := range testLayouts {
		gm := newQueryTestManager(layout)
		defer gm.Close()

		op := operation.NewGetAllElements(nil)

		if !checkQuery(t, gm, op, edgeAB, edgeAC, edgeCB, entityA, entityB) {
			return
		}

		op.IncludeEdges = operation.EdgesNone

		if !checkQuery(t, gm, op, entityA, entityB) {
			return
		}

		op.IncludeEdges = operation.EdgesAll
		op.IncludeEntities = false
		op.IncludeIncomingOutgoing = operation.Incoming

		if !checkQuery(t, gm, op, edgeAB, edgeAC, edgeCB) {
			return
		}
	}
}

func TestElementIteratorClose(t *testing.T) {
	var elements []data.Element

	gm := newTestManager(config.LayoutByteEntity, config.ScanBufferSize, 1, config.ScanThreads, 2)
	defer gm.Close()

	for i := 0; i < 50; i++ {
		elements = append(elements, newEntity(fmt.Sprintf("E%02d", i), i))
	}

	addElements(gm, elements...)

	ranges := []*data.SeedPair{data.NewSeedPair(data.NewEntitySeed("E00"), data.NewEntitySeed("E49"))}

	it, err := gm.Get(context.Background(), operation.NewGetElementsInRanges(ranges, nil))
	errorutil.AssertOk(err)

	if !it.HasNext() {
		t.Error("Iterator should have a next element")
		return
	}

	if res := it.Next().String(); res != "Entity[group=BasicEntity vertex=E00 properties={count:0}]" {
		t.Error("Unexpected result:", res)
		return
	}

	errorutil.AssertOk(it.Close())

	if it.HasNext() {
		t.Error("Closed iterator should not have a next element")
		return
	}

	// A cancelled context stops the scan

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	it, err = gm.Get(ctx, operation.NewGetAllElements(nil))
	errorutil.AssertOk(err)

	for it.HasNext() {
		it.Next()
	}

	if err := it.Error(); !errors.Is(err, context.Canceled) {
		t.Error("Unexpected result:", err)
	}
}

func TestPausedIteratorsDoNotBlockQueries(t *testing.T) {
	var elements []data.Element

	gm := newTestManager(config.LayoutByteEntity, config.ScanBufferSize, 1,
		config.MaxConcurrentScans, 1, config.ScanThreads, 1)
	defer gm.Close()

	for i := 0; i < 20; i++ {
		elements = append(elements, newEntity(fmt.Sprintf("E%02d", i), i))
	}

	addElements(gm, elements...)

	it, err := gm.Get(context.Background(), operation.NewGetAllElements(nil))
	errorutil.AssertOk(err)
	defer it.Close()

	if res := it.Next().String(); res != "Entity[group=BasicEntity vertex=E00 properties={count:0}]" {
		t.Error("Unexpected result:", res)
		return
	}

	// Lookups while the first iterator is paused

	done := make(chan []string)

	go func() {
		var ret []string

		for i := 0; i < 3; i++ {
			op := operation.NewGetElementsBySeed([]data.ElementSeed{
				data.NewEntitySeed(fmt.Sprintf("E1%v", i))}, nil)

			res, err := query(gm, op)
			errorutil.AssertOk(err)

			ret = append(ret, res...)
		}

		done <- ret
	}()

	select {
	case res := <-done:
		if len(res) != 3 || res[2] != "Entity[group=BasicEntity vertex=E12 properties={count:12}]" {
			t.Error("Unexpected result:", res)
			return
		}
	case <-time.After(10 * time.Second):
		t.Error("Lookups were blocked by a paused iterator")
		return
	}

	// The paused iterator can still be read to the end

	count := 1
	for it.HasNext() {
		it.Next()
		count++
	}

	if count != 20 || it.Error() != nil {
		t.Error("Unexpected result:", count, it.Error())
	}
}
