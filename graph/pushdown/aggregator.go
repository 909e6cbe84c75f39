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
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"devt.de/krotik/kvgraph/graph/codec"
	"devt.de/krotik/kvgraph/graph/data"
	"devt.de/krotik/kvgraph/graph/schema"
	"devt.de/krotik/kvgraph/graph/util"
	"devt.de/krotik/kvgraph/storage"
)

/*
AggregationMode decides which records are merged by an aggregator.
*/
type AggregationMode int

/*
Aggregation modes
*/
const (
	// Merge records with the same row, family, qualifier and visibility.
	// Only value properties are folded.
	AggregateByKey AggregationMode = iota

	// Merge records with the same row and family. All properties are folded
	// and the key is rebuilt from the merged properties.
	AggregateByElement
)

/*
String returns a string representation of an aggregation mode.
*/
func (m AggregationMode) String() string {
	if m == AggregateByElement {
		return "element"
	}
	return "key"
}

/*
Aggregator merges consecutive records of the same aggregation group. Groups
which disable aggregation in the schema are never merged. An aggregator has
no state outside of a single scan.
*/
type Aggregator struct {
	setup *Setup
	mode  AggregationMode

	/*
		OnMerge is called (if set) for every merged record with the run of
		records it was merged from.
	*/
	OnMerge func(merged *storage.Record, run []*storage.Record)
}

/*
Aggregator returns a new aggregator for this setup.
*/
func (s *Setup) Aggregator(mode AggregationMode) *Aggregator {
	return &Aggregator{s, mode, nil}
}

/*
NewAggregator creates an aggregator from a set of options. Required options
are schema and elementConverter.
*/
func NewAggregator(opts Options, mode AggregationMode) (*Aggregator, error) {
	s, err := DefaultSetupCache.Setup(opts)
	if err != nil {
		return nil, err
	}
	return s.Aggregator(mode), nil
}

/*
Stage returns the aggregator as scan stage.
*/
func (a *Aggregator) Stage() storage.Stage {
	return func(it storage.Iterator) storage.Iterator {
		return &aggregatingIterator{Iterator: it, agg: a}
	}
}

/*
groupKey returns the aggregation group of a record key.
*/
func (a *Aggregator) groupKey(key []byte) ([]byte, error) {
	if a.mode == AggregateByElement {
		return codec.ElementKey(key)
	}

	if _, err := codec.ParseKey(key); err != nil {
		return nil, err
	}

	return codec.AggregationKey(key), nil
}

/*
group returns the schema group of a record key.
*/
func (a *Aggregator) group(key []byte) (*schema.GroupDef, error) {
	info, err := a.setup.Converter.Info(key)
	if err != nil {
		return nil, err
	}

	g, ok := a.setup.Schema.Group(info.Group)
	if !ok {
		return nil, &util.GraphError{Type: util.ErrDecoding,
			Detail: fmt.Sprintf("Unknown group %v in key %x", info.Group, key)}
	}

	return g, nil
}

/*
Merge merges a run of records of the same aggregation group into a single
record. Records are folded oldest first so aggregates like last see the
newest record last. Records without a timestamp count as oldest. The merged
record keeps the key and version of the first record of the run.
*/
func (a *Aggregator) Merge(g *schema.GroupDef, run []*storage.Record) (*storage.Record, error) {
	var state data.Properties

	c := a.setup.Converter
	key := run[0].Key

	ordered, err := oldestFirst(run)
	if err != nil {
		return nil, err
	}

	for _, r := range ordered {
		var props data.Properties

		if a.mode == AggregateByElement {
			e, err := c.ElementFromRecord(r.Key, r.Value, a.setup.Decode)
			if err != nil {
				return nil, err
			}
			props = e.Properties()

		} else {
			var err error

			if props, err = c.PropertiesFromValue(g, r.Value); err != nil {
				return nil, err
			}
		}

		if state == nil {
			state = props
			continue
		}

		var err error

		if a.mode == AggregateByElement {
			err = g.AggregateProperties(state, props, schema.PositionValue,
				schema.PositionQualifier, schema.PositionVisibility, schema.PositionTimestamp)
		} else {
			err = g.AggregateProperties(state, props, schema.PositionValue)
		}

		if err != nil {
			return nil, err
		}
	}

	if a.mode == AggregateByElement {
		var err error

		if key, err = c.RewriteKey(key, state); err != nil {
			return nil, err
		}
	}

	value, err := c.ValueFromProperties(g, state)
	if err != nil {
		return nil, err
	}

	MergedRecords.WithLabelValues(a.mode.String()).Add(float64(len(run) - 1))

	return &storage.Record{Key: key, Value: value, Version: run[0].Version}, nil
}

/*
oldestFirst returns the records of a run in ascending timestamp order. Records
with equal timestamps keep their scan order.
*/
func oldestFirst(run []*storage.Record) ([]*storage.Record, error) {
	type timed struct {
		rec *storage.Record
		key *codec.Key
	}

	recs := make([]timed, len(run))

	for i, r := range run {
		k, err := codec.ParseKey(r.Key)
		if err != nil {
			return nil, err
		}
		recs[i] = timed{r, k}
	}

	slices.SortStableFunc(recs, func(x, y timed) int {
		if x.key.HasTimestamp != y.key.HasTimestamp {
			if x.key.HasTimestamp {
				return 1
			}
			return -1
		}
		return cmp.Compare(x.key.Timestamp, y.key.Timestamp)
	})

	ret := make([]*storage.Record, len(recs))
	for i, r := range recs {
		ret[i] = r.rec
	}

	return ret, nil
}

/*
aggregatingIterator merges runs of records of a wrapped iterator.
*/
type aggregatingIterator struct {
	storage.Iterator                 // Wrapped iterator
	agg              *Aggregator     // Aggregator
	peek             *storage.Record // First record of the next run
	next             *storage.Record // Next merged record
	LastError        error           // Last encountered error
}

/*
HasNext returns if there is a next merged record.
*/
func (it *aggregatingIterator) HasNext() bool {

	if it.next != nil {
		return true
	} else if it.LastError != nil {
		return false
	}

	if it.peek == nil {
		if !it.Iterator.HasNext() {
			return false
		}
		it.peek = it.Iterator.Next()
	}

	first := it.peek
	it.peek = nil

	if first == nil {
		return false
	}

	g, err := it.agg.group(first.Key)
	if err != nil {
		it.LastError = err
		return false
	}

	run := []*storage.Record{first}

	if g.Aggregation {

		gk, err := it.agg.groupKey(first.Key)
		if err != nil {
			it.LastError = err
			return false
		}

		for it.Iterator.HasNext() {
			r := it.Iterator.Next()
			if r == nil {
				break
			}

			k, err := it.agg.groupKey(r.Key)
			if err != nil {
				it.LastError = err
				return false
			}

			if !bytes.Equal(k, gk) {
				it.peek = r
				break
			}

			run = append(run, r)
		}

		if it.Iterator.Error() != nil {
			return false
		}
	}

	if len(run) == 1 {
		it.next = first
		return true
	}

	if it.next, err = it.agg.Merge(g, run); err != nil {
		it.LastError = err
		return false
	}

	if it.agg.OnMerge != nil {
		it.agg.OnMerge(it.next, run)
	}

	return true
}

/*
Next returns the next merged record.
*/
func (it *aggregatingIterator) Next() *storage.Record {
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
func (it *aggregatingIterator) Error() error {
	if it.LastError != nil {
		return it.LastError
	}
	return it.Iterator.Error()
}
