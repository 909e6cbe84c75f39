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
	"devt.de/krotik/kvgraph/graph/codec"
	"devt.de/krotik/kvgraph/graph/data"
	"devt.de/krotik/kvgraph/graph/operation"
	"devt.de/krotik/kvgraph/storage"
)

/*
filterIterator is an iterator which only returns accepted records. An error
of the accept function stops the iteration.
*/
type filterIterator struct {
	storage.Iterator                                     // Wrapped iterator
	accept           func(*storage.Record) (bool, error) // Accept function
	next             *storage.Record                     // Next accepted record
	LastError        error                               // Last encountered error
}

/*
newFilterStage returns a stage which filters records with a given accept
function. Rejected records are counted with a given stage label.
*/
func newFilterStage(label string, accept func(*storage.Record) (bool, error)) storage.Stage {
	rejected := RejectedRecords.WithLabelValues(label)

	return func(it storage.Iterator) storage.Iterator {
		return &filterIterator{it, func(r *storage.Record) (bool, error) {
			ok, err := accept(r)
			if err == nil && !ok {
				rejected.Inc()
			}
			return ok, err
		}, nil, nil}
	}
}

/*
HasNext returns if there is a next accepted record.
*/
func (it *filterIterator) HasNext() bool {

	if it.next != nil {
		return true
	} else if it.LastError != nil {
		return false
	}

	for it.Iterator.HasNext() {
		r := it.Iterator.Next()

		if r == nil {
			break
		}

		ok, err := it.accept(r)

		if err != nil {
			it.LastError = err
			return false
		} else if ok {
			it.next = r
			return true
		}
	}

	return false
}

/*
Next returns the next accepted record.
*/
func (it *filterIterator) Next() *storage.Record {
	if !it.HasNext() {
		return nil
	}

	r := it.next
	it.next = nil

	return r
}

/*
Error returns the last encountered error.
*/
func (it *filterIterator) Error() error {
	if it.LastError != nil {
		return it.LastError
	}
	return it.Iterator.Error()
}

/*
Validator returns a stage which rejects every element which does not pass the
schema validation.
*/
func (s *Setup) Validator() storage.Stage {
	return newFilterStage(stageValidator, func(r *storage.Record) (bool, error) {

		e, err := s.Converter.ElementFromRecord(r.Key, r.Value, s.Decode)
		if err != nil {
			return false, err
		}

		return s.Schema.Validate(e) == nil, nil
	})
}

/*
ElementFilter returns a stage which rejects every element which is not
visible in the view of this setup.
*/
func (s *Setup) ElementFilter() storage.Stage {
	return newFilterStage(stageFilter, func(r *storage.Record) (bool, error) {

		e, err := s.Converter.ElementFromRecord(r.Key, r.Value, s.Decode)
		if err != nil {
			return false, err
		}

		return s.View.Accept(e), nil
	})
}

/*
Element decodes a record which passed the scan stages and applies the
transformations of the view of this setup.
*/
func (s *Setup) Element(r *storage.Record) (data.Element, error) {

	e, err := s.Converter.ElementFromRecord(r.Key, r.Value, s.Decode)
	if err != nil || s.View == nil {
		return e, err
	}

	return s.View.Transform(e)
}

/*
NewValidatorFilter creates a validator stage from a set of options. Required
options are schema and elementConverter.
*/
func NewValidatorFilter(opts Options) (storage.Stage, error) {
	s, err := DefaultSetupCache.Setup(opts)
	if err != nil {
		return nil, err
	}
	return s.Validator(), nil
}

/*
NewElementFilter creates a view filter stage from a set of options. Required
options are schema, view and elementConverter.
*/
func NewElementFilter(opts Options) (storage.Stage, error) {

	if err := ValidateOptions(opts, OptionSchema, OptionView, OptionElementConverter); err != nil {
		return nil, err
	}

	s, err := DefaultSetupCache.Setup(opts, OptionView)
	if err != nil {
		return nil, err
	}

	return s.ElementFilter(), nil
}

// Record level filters
// ====================

/*
IncludeFilter returns a stage which applies the include options of a query.
The direction of an edge is judged relative to the first vertex of the
record's row.
*/
func IncludeFilter(c *codec.Converter, includeEntities bool, edges operation.IncludeEdgeType,
	inOut operation.IncludeIncomingOutgoingType) storage.Stage {

	return newFilterStage(stageInclude, func(r *storage.Record) (bool, error) {

		info, err := c.Info(r.Key)
		if err != nil {
			return false, err
		}

		if info.Kind == data.KindEntity {
			return includeEntities, nil
		}

		return edges.Accept(info.Directed) && inOut.Accept(info.Directed, info.Outgoing), nil
	})
}

/*
InSetFilter returns a stage which only accepts edges whose second vertex is
in a given set of serialised vertices. Edges are found from both endpoints so
only one copy is accepted. Directed edges in a single direction are already
unique after the include filter.
*/
func InSetFilter(c *codec.Converter, set map[string]bool,
	inOut operation.IncludeIncomingOutgoingType) storage.Stage {

	return newFilterStage(stageInSet, func(r *storage.Record) (bool, error) {

		info, err := c.Info(r.Key)
		if err != nil || info.Kind == data.KindEntity {
			return err == nil, err
		}

		if !set[string(info.Second)] {
			return false, nil
		}

		if info.Directed && inOut != operation.Both {
			return true, nil
		}

		return info.IsFirstKey(), nil
	})
}

/*
FirstKeyFilter returns a stage which only accepts the first key of every
element.
*/
func FirstKeyFilter(c *codec.Converter) storage.Stage {

	return newFilterStage(stageFirstKey, func(r *storage.Record) (bool, error) {

		info, err := c.Info(r.Key)
		if err != nil {
			return false, err
		}

		return info.IsFirstKey(), nil
	})
}
