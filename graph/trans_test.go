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
	"strings"
	"sync"
	"testing"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/kvgraph/config"
	"devt.de/krotik/kvgraph/graph/data"
	"devt.de/krotik/kvgraph/graph/operation"
	"devt.de/krotik/kvgraph/graph/util"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAddElements(t *testing.T) {
	gm := newTestManager(config.LayoutByteEntity)
	defer gm.Close()

	before := testutil.ToFloat64(AddedElements)

	op := operation.NewAddElements(newEntity("A", 1), newEntity("B", -1),
		data.NewEdge("BasicEdge", "A", "B", true))

	_, err := gm.Add(op)

	if !errors.Is(err, util.ErrSchemaViolation) {
		t.Error("Unexpected result:", err)
		return
	}

	if res := gm.RecordCount("BasicEntity"); res != 0 {
		t.Error("Unexpected result:", res)
		return
	}

	// Invalid elements can be skipped

	op.SkipInvalid = true

	n, err := gm.Add(op)
	errorutil.AssertOk(err)

	if n != 1 {
		t.Error("Unexpected result:", n)
		return
	}

	if res := testutil.ToFloat64(AddedElements) - before; res != 1 {
		t.Error("Unexpected result:", res)
		return
	}

	// Without validation the negative count is stored but rejected by scans

	op = operation.NewAddElements(newEntity("B", -1))
	op.Validate = false

	n, err = gm.Add(op)
	errorutil.AssertOk(err)

	if n != 1 || gm.RecordCount("BasicEntity") != 2 {
		t.Error("Unexpected result:", n, gm.RecordCount("BasicEntity"))
		return
	}

	res, err := query(gm, operation.NewGetAllElements(nil))
	errorutil.AssertOk(err)

	if fmt.Sprint(res) != "[Entity[group=BasicEntity vertex=A properties={count:1}]]" {
		t.Error("Unexpected result:", res)
		return
	}

	if _, err := gm.Add(operation.NewAddElements(nil)); !errors.Is(err, util.ErrInvalidData) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := gm.Add(operation.NewAddElements(data.NewEntity("Unknown", "A"))); err == nil {
		t.Error("Unknown groups should not be accepted")
	}
}

func TestGraphTrans(t *testing.T) {
	gm := newTestManager(config.LayoutClassic)
	defer gm.Close()

	trans := NewGraphTrans(gm)

	if !trans.IsEmpty() {
		t.Error("New transaction should be empty")
		return
	}

	errorutil.AssertOk(trans.StoreElement(newEntity("A", 1)))
	errorutil.AssertOk(trans.StoreElement(newEdge("A", "B", false, 0, 1)))

	if n, e := trans.Counts(); n != 1 || e != 1 {
		t.Error("Unexpected result:", n, e)
		return
	}

	if !strings.HasPrefix(trans.String(), "Transaction "+trans.ID()) {
		t.Error("Unexpected result:", trans.String())
		return
	}

	if err := trans.StoreElement(nil); !errors.Is(err, util.ErrInvalidData) {
		t.Error("Unexpected result:", err)
		return
	}

	errorutil.AssertOk(trans.Commit())

	if !trans.IsEmpty() {
		t.Error("Committed transaction should be empty")
		return
	}

	// Empty transactions can be committed

	errorutil.AssertOk(trans.Commit())

	if res := gm.RecordCount("BasicEdge"); res != 2 {
		t.Error("Unexpected result:", res)
		return
	}

	// Concurrent transactions

	ctrans := NewConcurrentGraphTrans(gm)

	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errorutil.AssertOk(ctrans.StoreElement(newEntity(fmt.Sprint("C", i), i)))
		}(i)
	}

	wg.Wait()

	if n, _ := ctrans.Counts(); n != 10 {
		t.Error("Unexpected result:", n)
		return
	}

	errorutil.AssertOk(ctrans.Commit())

	if res := gm.RecordCount("BasicEntity"); res != 11 {
		t.Error("Unexpected result:", res)
	}
}

func TestRollingTrans(t *testing.T) {
	gm := newTestManager(config.LayoutByteEntity)
	defer gm.Close()

	trans := NewRollingTrans(NewConcurrentGraphTrans(gm), 3, gm, NewConcurrentGraphTrans)

	for i := 0; i < 10; i++ {
		errorutil.AssertOk(trans.StoreElement(newEntity(fmt.Sprintf("R%02d", i), i)))
	}

	errorutil.AssertOk(trans.Commit())

	if !trans.IsEmpty() {
		t.Error("Unexpected result:", trans)
		return
	}

	if res := gm.RecordCount("BasicEntity"); res != 10 {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := query(gm, operation.NewGetAllElements(nil)); len(res) != 10 {
		t.Error("Unexpected result:", res)
	}
}

type testRule struct {
	name   string
	events []int
	err    error
	calls  int
}

func (r *testRule) Name() string {
	return r.name
}

func (r *testRule) Handles() []int {
	return r.events
}

func (r *testRule) Handle(gm *Manager, trans Trans, event int, ed ...interface{}) error {
	r.calls++
	return r.err
}

func TestGraphRules(t *testing.T) {
	gm := newTestManager(config.LayoutByteEntity)
	defer gm.Close()

	rule := &testRule{"test.rule", []int{EventElementsAdded}, nil, 0}
	gm.SetGraphRule(rule)

	if res := fmt.Sprint(gm.GraphRules()); res != "[system.updategroupstats test.rule]" {
		t.Error("Unexpected result:", res)
		return
	}

	addElements(gm, newEntity("A", 1))

	if rule.calls != 1 {
		t.Error("Unexpected result:", rule.calls)
		return
	}

	rule.err = errors.New("Rule failed")

	_, err := gm.Add(operation.NewAddElements(newEntity("B", 1)))

	if !errors.Is(err, util.ErrRule) || !strings.Contains(err.Error(), "Rule failed") {
		t.Error("Unexpected result:", err)
		return
	}

	// The main database was rolled back

	if res := gm.RecordCount("BasicEntity"); res != 1 {
		t.Error("Unexpected result:", res)
		return
	}

	if res := fmt.Sprint(gm.Groups()); res != "[BasicEntity]" {
		t.Error("Unexpected result:", res)
		return
	}

	// The records of the failed transaction were removed

	res, err := query(gm, operation.NewGetAllElements(nil))
	errorutil.AssertOk(err)

	if fmt.Sprint(res) != "[Entity[group=BasicEntity vertex=A properties={count:1}]]" {
		t.Error("Unexpected result:", res)
		return
	}

	// A retry after fixing the rule writes the element once

	rule.err = nil

	addElements(gm, newEntity("B", 1))

	op := operation.NewGetElementsWithinSet([]interface{}{"B"}, nil)
	op.Summarise = true

	if res, _ := query(gm, op); fmt.Sprint(res) != "[Entity[group=BasicEntity vertex=B properties={count:1}]]" {
		t.Error("Unexpected result:", res)
	}
}

func TestCompact(t *testing.T) {

	for _, layout := range testLayouts {
		gm := newTestManager(layout)
		defer gm.Close()

		addElements(gm, newEntity("A", 4000), newEntity("A", 6000), newEntity("B", 1),
			newEdge("A", "B", true, 0, 1), newEdge("A", "B", true, 0, 2))

		if res := gm.RecordCount("BasicEntity"); res != 3 {
			t.Error("Unexpected result:", res)
			return
		}

		removed, err := gm.Compact(context.Background())
		errorutil.AssertOk(err)

		if removed != 3 {
			t.Error("Unexpected result:", layout, removed)
			return
		}

		if res := gm.RecordCount("BasicEntity"); res != 2 {
			t.Error("Unexpected result:", res)
			return
		}

		if res := gm.RecordCount("BasicEdge"); res != 2 {
			t.Error("Unexpected result:", res)
			return
		}

		res, err := query(gm, operation.NewGetAllElements(nil))
		errorutil.AssertOk(err)

		if fmt.Sprint(res) != "[Edge[group=BasicEdge A->B properties={count:3}] "+
			"Entity[group=BasicEntity vertex=A properties={count:10000}] "+
			"Entity[group=BasicEntity vertex=B properties={count:1}]]" {
			t.Error("Unexpected result:", layout, res)
			return
		}

		removed, err = gm.Compact(context.Background())
		errorutil.AssertOk(err)

		if removed != 0 {
			t.Error("Unexpected result:", removed)
			return
		}
	}
}
