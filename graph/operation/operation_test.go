/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package operation

import (
	"testing"

	"devt.de/krotik/kvgraph/graph/data"
)

func TestIncludeOptions(t *testing.T) {

	if !EdgesAll.Accept(true) || !EdgesAll.Accept(false) || EdgesNone.Accept(true) ||
		!EdgesDirected.Accept(true) || EdgesDirected.Accept(false) ||
		EdgesUndirected.Accept(true) || !EdgesUndirected.Accept(false) {
		t.Error("Unexpected edge inclusion result")
		return
	}

	if !Both.Accept(true, false) || !Incoming.Accept(true, false) || Incoming.Accept(true, true) ||
		!Outgoing.Accept(true, true) || Outgoing.Accept(true, false) || !Outgoing.Accept(false, false) {
		t.Error("Unexpected direction result")
		return
	}

	if res := EdgesUndirected.String() + " " + Outgoing.String(); res != "UNDIRECTED OUTGOING" {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestOperations(t *testing.T) {

	var op GetOperation = NewGetElementsBetweenSets([]interface{}{"A0"}, []interface{}{"A23"}, nil)

	if !op.Options().IncludeEntities || op.Options().IncludeEdges != EdgesAll ||
		op.Options().Summarise || op.Name() != "GetElementsBetweenSets" {
		t.Error("Unexpected options:", op.Options())
		return
	}

	pairs := []*data.SeedPair{data.NewSeedPair(data.NewEntitySeed("A"), data.NewEntitySeed("B"))}

	op = NewGetEntitiesInRanges(pairs, nil)

	if op.Options().IncludeEdges != EdgesNone || op.Name() != "GetEntitiesInRanges" {
		t.Error("Unexpected options:", op.Options())
		return
	}

	op = NewGetEdgesInRanges(pairs, nil)

	if op.Options().IncludeEntities || op.Name() != "GetEdgesInRanges" {
		t.Error("Unexpected options:", op.Options())
		return
	}

	if res := (&GetElementsInRanges{}).Name(); res != "GetElementsInRanges" {
		t.Error("Unexpected result:", res)
		return
	}

	seeds := []data.ElementSeed{data.NewEntitySeed("A")}

	if res := NewGetElementsBySeed(seeds, nil).Name() + " " + NewGetRelatedElements(seeds, nil).Name(); res !=
		"GetElementsBySeed GetRelatedElements" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := NewGetAllElements(nil).Name() + " " + NewGetElementsWithinSet(nil, nil).Name(); res !=
		"GetAllElements GetElementsWithinSet" {
		t.Error("Unexpected result:", res)
		return
	}

	add := NewAddElements(data.NewEntity("BasicEntity", "A"))

	if !add.Validate || add.SkipInvalid || len(add.Elements) != 1 || add.Name() != "AddElements" {
		t.Error("Unexpected add operation:", add)
	}
}
