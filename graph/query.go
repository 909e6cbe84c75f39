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

	"devt.de/krotik/kvgraph/graph/data"
	"devt.de/krotik/kvgraph/graph/operation"
	"devt.de/krotik/kvgraph/graph/pushdown"
	"devt.de/krotik/kvgraph/graph/util"
	"devt.de/krotik/kvgraph/storage"
	"github.com/google/uuid"
)

/*
Get runs a query operation. All ranges of the query are built and checked
before any scan is started. The returned iterator must be closed if it is
not iterated to the end.
*/
func (gm *Manager) Get(ctx context.Context, op operation.GetOperation) (*ElementIterator, error) {
	var tasks []*scanTask

	id := uuid.New().String()

	wrapErr := func(err error) error {
		ScanErrors.WithLabelValues(op.Name()).Inc()
		return &util.OperationError{Operation: op.Name(), ID: id, Cause: err}
	}

	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	if err := gm.checkClosed(); err != nil {
		return nil, wrapErr(err)
	}

	opts := op.Options()

	popts, err := gm.options(opts.View, opts.ReturnMatchedSeedAsEdgeSource)
	if err != nil {
		return nil, wrapErr(err)
	}

	setup, err := gm.setups.Setup(popts, pushdown.OptionView)
	if err != nil {
		return nil, wrapErr(err)
	}

	h := &queryHandler{gm, setup, opts, gm.baseStages(setup, opts.Summarise), make(map[string]bool)}

	switch o := op.(type) {
	case *operation.GetElementsWithinSet:
		tasks, err = h.withinSet(o)
	case *operation.GetElementsBetweenSets:
		tasks, err = h.betweenSets(o)
	case *operation.GetElementsInRanges:
		tasks, err = h.inRanges(o)
	case *operation.GetElements:
		tasks, err = h.bySeed(o)
	case *operation.GetAllElements:
		tasks = h.all()
	default:
		err = &util.GraphError{Type: util.ErrIllegalConfiguration,
			Detail: fmt.Sprintf("Unknown operation %v", op.Name())}
	}

	if err != nil {
		return nil, wrapErr(err)
	}

	return gm.runScans(ctx, op.Name(), id, setup, tasks), nil
}

/*
baseStages returns the stages which run at the start of every scan.
*/
func (gm *Manager) baseStages(setup *pushdown.Setup, summarise bool) []storage.Stage {
	stages := []storage.Stage{setup.Aggregator(pushdown.AggregateByKey).Stage()}

	if summarise {
		stages = append(stages, setup.Aggregator(pushdown.AggregateByElement).Stage())
	}

	return append(stages, setup.Validator(), setup.ElementFilter())
}

/*
queryHandler translates query operations into scan tasks.
*/
type queryHandler struct {
	gm     *Manager
	setup  *pushdown.Setup
	opts   *operation.GetOptions
	base   []storage.Stage
	ranges map[string]bool // Already added ranges
}

/*
addTask adds a scan task for a given range. Ranges which were already added
are skipped.
*/
func (h *queryHandler) addTask(tasks []*scanTask, r storage.Range, stages ...storage.Stage) []*scanTask {
	key := fmt.Sprintf("%x-%x", r.Start, r.End)

	if h.ranges[key] {
		return tasks
	}

	h.ranges[key] = true

	all := make([]storage.Stage, 0, len(h.base)+len(stages))
	all = append(append(all, h.base...), stages...)

	return append(tasks, &scanTask{r, all})
}

/*
vertexSet returns the serialised form of a list of seed vertices.
*/
func (h *queryHandler) vertexSet(seeds []interface{}) (map[string]bool, error) {
	ret := make(map[string]bool)

	for _, s := range seeds {
		b, err := h.gm.schema.VertexSerialiser.Serialise(s)
		if err != nil {
			return nil, &util.GraphError{Type: util.ErrInvalidRange,
				Detail: fmt.Sprintf("Invalid seed %v: %v", s, err)}
		}
		ret[string(b)] = true
	}

	return ret, nil
}

/*
withinSet handles GetElementsWithinSet. Every seed is scanned with its entity
and edges and only edges whose other vertex is also a seed are kept.
*/
func (h *queryHandler) withinSet(op *operation.GetElementsWithinSet) ([]*scanTask, error) {
	var tasks []*scanTask

	conv := h.setup.Converter

	set, err := h.vertexSet(op.Seeds)
	if err != nil {
		return nil, err
	}

	include := pushdown.IncludeFilter(conv, h.opts.IncludeEntities, h.opts.IncludeEdges,
		h.opts.IncludeIncomingOutgoing)
	inSet := pushdown.InSetFilter(conv, set, h.opts.IncludeIncomingOutgoing)

	for _, seed := range op.Seeds {

		ranges, err := conv.VertexRanges(seed, h.opts.IncludeEntities, h.opts.IncludeEdges,
			h.opts.IncludeIncomingOutgoing)
		if err != nil {
			return nil, err
		}

		for _, r := range ranges {
			tasks = h.addTask(tasks, r, include, inSet)
		}
	}

	return tasks, nil
}

/*
betweenSets handles GetElementsBetweenSets. The entities of set A are scanned
together with the edge rows of every pair of vertices from A and B.
*/
func (h *queryHandler) betweenSets(op *operation.GetElementsBetweenSets) ([]*scanTask, error) {
	var tasks []*scanTask

	conv := h.setup.Converter

	entities := pushdown.IncludeFilter(conv, true, operation.EdgesNone, operation.Both)
	edges := pushdown.IncludeFilter(conv, false, h.opts.IncludeEdges, h.opts.IncludeIncomingOutgoing)

	for _, a := range op.SeedsA {

		if h.opts.IncludeEntities {

			r, err := conv.EntityRange(a)
			if err != nil {
				return nil, err
			}

			tasks = h.addTask(tasks, r, entities)
		}

		for _, b := range op.SeedsB {

			ranges, err := conv.EdgeRanges(a, b, h.opts.IncludeEdges, h.opts.IncludeIncomingOutgoing)
			if err != nil {
				return nil, err
			}

			for _, r := range ranges {
				tasks = h.addTask(tasks, r, edges)
			}
		}
	}

	return tasks, nil
}

/*
inRanges handles GetElementsInRanges. Overlapping ranges are not merged so
an element may be returned once per range which contains it.
*/
func (h *queryHandler) inRanges(op *operation.GetElementsInRanges) ([]*scanTask, error) {
	var tasks []*scanTask

	include := pushdown.IncludeFilter(h.setup.Converter, h.opts.IncludeEntities, h.opts.IncludeEdges,
		h.opts.IncludeIncomingOutgoing)

	for _, pair := range op.Ranges {

		r, err := h.setup.Converter.PairRange(pair)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, &scanTask{r, append(append([]storage.Stage{}, h.base...), include)})
	}

	return tasks, nil
}

/*
bySeed handles GetElements. An entity seed selects the entity of its vertex
and an edge seed selects the edge. Related elements are all elements of the
seed vertex for an entity seed and the entities of both endpoints for an edge
seed.
*/
func (h *queryHandler) bySeed(op *operation.GetElements) ([]*scanTask, error) {
	var tasks []*scanTask

	conv := h.setup.Converter

	entities := pushdown.IncludeFilter(conv, h.opts.IncludeEntities, operation.EdgesNone, operation.Both)
	include := pushdown.IncludeFilter(conv, h.opts.IncludeEntities, h.opts.IncludeEdges,
		h.opts.IncludeIncomingOutgoing)

	addEntity := func(v interface{}) error {
		r, err := conv.EntityRange(v)
		if err == nil {
			tasks = h.addTask(tasks, r, entities)
		}
		return err
	}

	for _, seed := range op.Seeds {
		var err error

		switch s := seed.(type) {

		case *data.EntitySeed:

			if !op.Related {
				if h.opts.IncludeEntities {
					err = addEntity(s.Vertex)
				}
				break
			}

			var ranges []storage.Range

			ranges, err = conv.VertexRanges(s.Vertex, h.opts.IncludeEntities, h.opts.IncludeEdges,
				h.opts.IncludeIncomingOutgoing)

			for _, r := range ranges {
				tasks = h.addTask(tasks, r, include)
			}

		case *data.EdgeSeed:

			if h.opts.IncludeEdges.Accept(s.Directed) {
				var r storage.Range

				if r, err = conv.EdgeSeedRange(s); err == nil {
					tasks = h.addTask(tasks, r, pushdown.IncludeFilter(conv, false, h.opts.IncludeEdges,
						operation.Both))
				}
			}

			if err == nil && op.Related && h.opts.IncludeEntities {
				if err = addEntity(s.Source); err == nil {
					err = addEntity(s.Destination)
				}
			}

		default:
			err = &util.GraphError{Type: util.ErrInvalidRange,
				Detail: fmt.Sprintf("Unsupported seed %v", seed)}
		}

		if err != nil {
			return nil, err
		}
	}

	return tasks, nil
}

/*
all handles GetAllElements. Every element is returned by its first key. The
direction option is ignored since every directed edge is found through its
source.
*/
func (h *queryHandler) all() []*scanTask {
	conv := h.setup.Converter

	return h.addTask(nil, storage.Range{}, pushdown.FirstKeyFilter(conv),
		pushdown.IncludeFilter(conv, h.opts.IncludeEntities, h.opts.IncludeEdges, operation.Both))
}
