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
	"path/filepath"
	"sort"
	"testing"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/kvgraph/config"
	"devt.de/krotik/kvgraph/graph/data"
	"devt.de/krotik/kvgraph/graph/operation"
	"devt.de/krotik/kvgraph/graph/schema"
	"devt.de/krotik/kvgraph/graph/util"
)

const testSchema = `
{
  "vertexSerialiser": "string",
  "entities": {
    "BasicEntity": {
      "properties": [
        {"name": "count", "type": "int", "aggregate": "sum", "validator": "value >= 0"}
      ]
    }
  },
  "edges": {
    "BasicEdge": {
      "properties": [
        {"name": "columnQualifier", "type": "int", "position": "qualifier", "aggregate": "sum"},
        {"name": "count", "type": "int", "aggregate": "sum", "required": true}
      ]
    }
  }
}`

var testLayouts = []string{config.LayoutByteEntity, config.LayoutClassic}

/*
newTestManager creates a memory-only graph manager.
*/
func newTestManager(layout string, settings ...interface{}) *Manager {
	s, err := schema.FromJSON([]byte(testSchema))
	errorutil.AssertOk(err)

	cfg := map[string]interface{}{
		config.StoreLayout:      layout,
		config.ValueCompression: config.CompressionZstd,
	}

	for i := 0; i < len(settings); i += 2 {
		cfg[settings[i].(string)] = settings[i+1]
	}

	gm, err := Open(config.NewProperties(cfg), s)
	errorutil.AssertOk(err)

	return gm
}

func newEntity(vertex string, count int) *data.Entity {
	e := data.NewEntity("BasicEntity", vertex)
	e.PutProperty("count", count)
	return e
}

func newEdge(source string, destination string, directed bool, cq int, count int) *data.Edge {
	e := data.NewEdge("BasicEdge", source, destination, directed)
	if cq != 0 {
		e.PutProperty("columnQualifier", cq)
	}
	e.PutProperty("count", count)
	return e
}

/*
addElements writes elements with validation.
*/
func addElements(gm *Manager, elements ...data.Element) {
	_, err := gm.Add(operation.NewAddElements(elements...))
	errorutil.AssertOk(err)
}

/*
query runs a query and returns the sorted string representations of all
result elements.
*/
func query(gm *Manager, op operation.GetOperation) ([]string, error) {
	var ret []string

	it, err := gm.Get(context.Background(), op)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	for it.HasNext() {
		ret = append(ret, it.Next().String())
	}

	sort.Strings(ret)

	return ret, it.Error()
}

func TestA0A23Scenario(t *testing.T) {

	for _, layout := range testLayouts {
		gm := newTestManager(layout)
		defer gm.Close()

		addElements(gm, newEntity("A0", 10000),
			newEdge("A0", "A23", true, 1, 23),
			newEdge("A0", "A23", true, 2, 23),
			newEdge("A0", "A23", true, 3, 23))

		op := operation.NewGetElementsBetweenSets([]interface{}{"A0"}, []interface{}{"A23"}, nil)

		res, err := query(gm, op)
		errorutil.AssertOk(err)

		if fmt.Sprint(res) != "[Edge[group=BasicEdge A0->A23 properties={columnQualifier:1 count:23}] "+
			"Edge[group=BasicEdge A0->A23 properties={columnQualifier:2 count:23}] "+
			"Edge[group=BasicEdge A0->A23 properties={columnQualifier:3 count:23}] "+
			"Entity[group=BasicEntity vertex=A0 properties={count:10000}]]" {
			t.Error("Unexpected result:", layout, res)
			return
		}

		summarised := "[Edge[group=BasicEdge A0->A23 properties={columnQualifier:6 count:69}] " +
			"Entity[group=BasicEntity vertex=A0 properties={count:10000}]]"

		op.Summarise = true

		res, err = query(gm, op)
		errorutil.AssertOk(err)

		if fmt.Sprint(res) != summarised {
			t.Error("Unexpected result:", layout, res)
			return
		}

		// Summarisation is idempotent

		res, err = query(gm, op)
		errorutil.AssertOk(err)

		if fmt.Sprint(res) != summarised {
			t.Error("Unexpected result:", layout, res)
			return
		}

		op.IncludeIncomingOutgoing = operation.Outgoing

		if res, _ := query(gm, op); len(res) != 2 {
			t.Error("Unexpected result:", layout, res)
			return
		}

		op.IncludeIncomingOutgoing = operation.Incoming

		if res, _ := query(gm, op); fmt.Sprint(res) != "[Entity[group=BasicEntity vertex=A0 properties={count:10000}]]" {
			t.Error("Unexpected result:", layout, res)
			return
		}

		op.IncludeIncomingOutgoing = operation.Both
		op.Summarise = false
		op.IncludeEdges = operation.EdgesNone

		if res, _ := query(gm, op); fmt.Sprint(res) != "[Entity[group=BasicEntity vertex=A0 properties={count:10000}]]" {
			t.Error("Unexpected result:", layout, res)
			return
		}

		// Query from the other side

		op = operation.NewGetElementsBetweenSets([]interface{}{"A23"}, []interface{}{"A0"}, nil)
		op.Summarise = true

		if res, _ := query(gm, op); fmt.Sprint(res) != "[Edge[group=BasicEdge A0->A23 properties={columnQualifier:6 count:69}]]" {
			t.Error("Unexpected result:", layout, res)
			return
		}

		op.ReturnMatchedSeedAsEdgeSource = true

		if res, _ := query(gm, op); fmt.Sprint(res) != "[Edge[group=BasicEdge A23->A0 properties={columnQualifier:6 count:69}]]" {
			t.Error("Unexpected result:", layout, res)
			return
		}

		op.ReturnMatchedSeedAsEdgeSource = false
		op.IncludeIncomingOutgoing = operation.Outgoing

		if res, _ := query(gm, op); len(res) != 0 {
			t.Error("Unexpected result:", layout, res)
			return
		}
	}
}

func TestGraphManager(t *testing.T) {
	gm := newTestManager(config.LayoutByteEntity)

	if res := gm.Name(); res != "Graph memory" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := gm.Traits(); !res.Aggregation || !res.Filtering || !res.StoreValidation || !res.Transformation {
		t.Error("Unexpected result:", res)
		return
	}

	if res := fmt.Sprint(gm.GraphRules()); res != "[system.updategroupstats]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := gm.Converter().Layout().String(); res != config.LayoutByteEntity {
		t.Error("Unexpected result:", res)
		return
	}

	if res := fmt.Sprint(gm.Schema().EdgeGroups()); res != "[BasicEdge]" {
		t.Error("Unexpected result:", res)
		return
	}

	addElements(gm, newEntity("A", 1), newEdge("A", "B", true, 0, 1))

	if res := fmt.Sprint(gm.Groups()); res != "[BasicEdge BasicEntity]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := gm.RecordCount("BasicEdge"); res != 2 {
		t.Error("Unexpected result:", res)
		return
	}

	errorutil.AssertOk(gm.Close())
	errorutil.AssertOk(gm.Close())

	if _, err := gm.Get(context.Background(), operation.NewGetAllElements(nil)); !errors.Is(err, util.ErrClosing) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := gm.Add(operation.NewAddElements(newEntity("A", 1))); !errors.Is(err, util.ErrClosing) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := gm.Compact(context.Background()); !errors.Is(err, util.ErrClosing) {
		t.Error("Unexpected result:", err)
	}
}

func TestGraphManagerConfig(t *testing.T) {
	s, err := schema.FromJSON([]byte(testSchema))
	errorutil.AssertOk(err)

	_, err = Open(config.NewProperties(map[string]interface{}{config.StoreLayout: "wide"}), s)

	if !errors.Is(err, util.ErrIllegalConfiguration) {
		t.Error("Unexpected result:", err)
		return
	}

	_, err = Open(config.NewProperties(map[string]interface{}{config.ScanThreads: 0}), s)

	if !errors.Is(err, util.ErrIllegalConfiguration) ||
		err.Error() != "GraphError: Illegal configuration (Config key ScanThreads must be at least 1: 0)" {
		t.Error("Unexpected result:", err)
		return
	}

	_, err = Open(config.DefaultProperties(), nil)

	if err == nil || err.Error() != "GraphError: Failed to open graph store (No schema given and no schema stored)" {
		t.Error("Unexpected result:", err)
	}
}

func TestGraphManagerReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")

	s, err := schema.FromJSON([]byte(testSchema))
	errorutil.AssertOk(err)

	cfg := config.NewProperties(map[string]interface{}{
		config.StoreLayout:       config.LayoutClassic,
		config.ValueCompression:  config.CompressionLZ4,
		config.MemoryOnlyStorage: false,
		config.LocationDatastore: dir,
	})

	gm, err := Open(cfg, s)
	errorutil.AssertOk(err)

	addElements(gm, newEntity("A", 4), newEntity("A", 6), newEdge("A", "B", false, 0, 1))

	errorutil.AssertOk(gm.Close())

	// The layout cannot be changed

	cfg[config.StoreLayout] = config.LayoutByteEntity

	if _, err = Open(cfg, nil); err == nil || err.Error() != "GraphError: Failed to open graph store "+
		"(Graph storage was created with layout classic - configured layout is byteEntity)" {
		t.Error("Unexpected result:", err)
		return
	}

	cfg[config.StoreLayout] = config.LayoutClassic
	cfg[config.ValueCompression] = config.CompressionNone

	if _, err = Open(cfg, nil); !errors.Is(err, util.ErrOpening) {
		t.Error("Unexpected result:", err)
		return
	}

	// The stored schema is used

	cfg[config.ValueCompression] = config.CompressionLZ4

	gm, err = Open(cfg, nil)
	errorutil.AssertOk(err)
	defer gm.Close()

	op := operation.NewGetAllElements(nil)
	op.Summarise = true

	res, err := query(gm, op)
	errorutil.AssertOk(err)

	if fmt.Sprint(res) != "[Edge[group=BasicEdge A--B properties={count:1}] "+
		"Entity[group=BasicEntity vertex=A properties={count:10}]]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := gm.RecordCount("BasicEntity"); res != 2 {
		t.Error("Unexpected result:", res)
	}
}
