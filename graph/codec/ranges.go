/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package codec

import (
	"bytes"
	"fmt"

	"devt.de/krotik/kvgraph/graph/data"
	"devt.de/krotik/kvgraph/graph/operation"
	"devt.de/krotik/kvgraph/graph/util"
	"devt.de/krotik/kvgraph/storage"
)

/*
RecordInfo is the information about an element which can be read from a key
without decoding the element.
*/
type RecordInfo struct {
	Kind     data.Kind // Kind of the element
	Group    string    // Group of the element
	Directed bool      // Flag if the edge is directed
	Outgoing bool      // Flag if the first vertex of the row is the edge source
	First    []byte    // Serialised first vertex of the row
	Second   []byte    // Serialised second vertex of the row (edges only)
}

/*
IsFirstKey checks if the record is the first key of its element. Every
element has exactly one first key.
*/
func (ri *RecordInfo) IsFirstKey() bool {
	if ri.Kind == data.KindEntity {
		return true
	} else if ri.Directed {
		return ri.Outgoing
	}
	return bytes.Compare(ri.First, ri.Second) <= 0
}

/*
Info reads the record information from physical key bytes.
*/
func (c *Converter) Info(key []byte) (*RecordInfo, error) {

	k, err := ParseKey(key)
	if err != nil {
		return nil, err
	}

	comps, err := k.RowComponents()
	if err != nil {
		return nil, errCorruptKey(key, err.Error())
	}

	info, err := c.rows.parseRow(comps)
	if err != nil {
		return nil, errCorruptKey(key, err.Error())
	}

	_, _, group, err := c.rows.parseFamily(k.Family)
	if err != nil {
		return nil, errCorruptKey(key, err.Error())
	}

	return &RecordInfo{info.kind, group, info.directed, info.firstIsSource,
		info.first, info.second}, nil
}

// Range factory
// =============

/*
rowRange returns the range which covers every record whose row starts with
the given row components.
*/
func rowRange(comps ...[]byte) storage.Range {
	start := append(EscapeComponents(comps...), 0x00)
	return storage.Range{Start: start, End: prefixEnd(start)}
}

/*
prefixEnd returns the first byte sequence after all sequences with a given
prefix. The prefix must end with a byte smaller than 0xff.
*/
func prefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	end[len(end)-1]++
	return end
}

/*
serialiseSeed serialises a seed vertex. Errors are reported as invalid ranges.
*/
func (c *Converter) serialiseSeed(v interface{}) ([]byte, error) {
	b, err := c.schema.VertexSerialiser.Serialise(v)
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrInvalidRange,
			Detail: fmt.Sprintf("Invalid seed %v: %v", v, err)}
	}
	return b, nil
}

/*
edgeMarkers returns the (directed, firstIsSource) combinations of edge rows
which are selected by the given options.
*/
func edgeMarkers(edges operation.IncludeEdgeType, inOut operation.IncludeIncomingOutgoingType) [][2]bool {
	var ret [][2]bool

	if edges.Accept(true) {
		if inOut.Accept(true, true) {
			ret = append(ret, [2]bool{true, true})
		}
		if inOut.Accept(true, false) {
			ret = append(ret, [2]bool{true, false})
		}
	}

	if edges.Accept(false) {
		ret = append(ret, [2]bool{false, false})
	}

	return ret
}

/*
VertexRanges returns the ranges which cover the entity of a seed vertex and
all edges which start at the seed vertex.
*/
func (c *Converter) VertexRanges(seed interface{}, includeEntities bool,
	edges operation.IncludeEdgeType, inOut operation.IncludeIncomingOutgoingType) ([]storage.Range, error) {

	var ret []storage.Range

	v, err := c.serialiseSeed(seed)
	if err != nil {
		return nil, err
	}

	markers := edgeMarkers(edges, inOut)

	if includeEntities && len(markers) == 3 || c.layout == Classic && len(markers) > 0 {

		// Classic rows cannot be pruned by direction; the include filter
		// drops the records which are not wanted

		return []storage.Range{rowRange(v)}, nil
	}

	if includeEntities {
		ret = append(ret, c.entityRange(v))
	}

	for _, m := range markers {
		start := append(EscapeComponents(v, c.rows.edgeRow(nil, nil, m[0], m[1])[1]), 0x00)
		ret = append(ret, storage.Range{Start: start, End: prefixEnd(start)})
	}

	return ret, nil
}

/*
entityRange returns the range which covers the entity row of a vertex.
*/
func (c *Converter) entityRange(v []byte) storage.Range {
	if c.layout == Classic {

		// Classic entity rows are followed by the entity family kind

		start := append(EscapeComponents(v), 0x00, 0x01, 0x02)
		return storage.Range{Start: start, End: prefixEnd(start)}
	}

	return rowRange(c.rows.entityRow(v)...)
}

/*
EntityRange returns the range which covers the entity row of a seed vertex.
*/
func (c *Converter) EntityRange(seed interface{}) (storage.Range, error) {
	v, err := c.serialiseSeed(seed)
	if err != nil {
		return storage.Range{}, err
	}
	return c.entityRange(v), nil
}

/*
EdgeRanges returns the exact row ranges for edges from vertex a to vertex b.
*/
func (c *Converter) EdgeRanges(a interface{}, b interface{}, edges operation.IncludeEdgeType,
	inOut operation.IncludeIncomingOutgoingType) ([]storage.Range, error) {

	var ret []storage.Range

	va, err := c.serialiseSeed(a)
	if err != nil {
		return nil, err
	}

	vb, err := c.serialiseSeed(b)
	if err != nil {
		return nil, err
	}

	for _, m := range edgeMarkers(edges, inOut) {
		ret = append(ret, rowRange(c.rows.edgeRow(va, vb, m[0], m[1])...))
	}

	return ret, nil
}

/*
edgeSeedRow returns the row components of the first key of an edge seed.
*/
func (c *Converter) edgeSeedRow(seed *data.EdgeSeed) ([][]byte, error) {

	src, err := c.serialiseSeed(seed.Source)
	if err != nil {
		return nil, err
	}

	dst, err := c.serialiseSeed(seed.Destination)
	if err != nil {
		return nil, err
	}

	if !seed.Directed && bytes.Compare(src, dst) > 0 {
		src, dst = dst, src
	}

	return c.rows.edgeRow(src, dst, seed.Directed, true), nil
}

/*
EdgeSeedRange returns the range which covers the first key of an edge seed.
*/
func (c *Converter) EdgeSeedRange(seed *data.EdgeSeed) (storage.Range, error) {
	row, err := c.edgeSeedRow(seed)
	if err != nil {
		return storage.Range{}, err
	}
	return rowRange(row...), nil
}

/*
PairRange translates a seed pair into a single range. The range starts with
the first row of the first seed and ends after the last row of the second
seed.
*/
func (c *Converter) PairRange(pair *data.SeedPair) (storage.Range, error) {
	var ret storage.Range

	if pair == nil || pair.First == nil || pair.Second == nil {
		return ret, &util.GraphError{Type: util.ErrInvalidRange, Detail: "Incomplete seed pair"}
	}

	bounds := func(seed data.ElementSeed) (storage.Range, error) {
		switch s := seed.(type) {
		case *data.EntitySeed:
			v, err := c.serialiseSeed(s.Vertex)
			if err != nil {
				return storage.Range{}, err
			}
			return rowRange(v), nil

		case *data.EdgeSeed:
			return c.EdgeSeedRange(s)
		}

		return storage.Range{}, &util.GraphError{Type: util.ErrInvalidRange,
			Detail: fmt.Sprintf("Unsupported seed %v", seed)}
	}

	first, err := bounds(pair.First)
	if err != nil {
		return ret, err
	}

	second, err := bounds(pair.Second)
	if err != nil {
		return ret, err
	}

	ret = storage.Range{Start: first.Start, End: second.End}

	if bytes.Compare(ret.Start, ret.End) >= 0 {
		return ret, &util.GraphError{Type: util.ErrInvalidRange,
			Detail: fmt.Sprintf("Range start is after range end: %v", pair)}
	}

	return ret, nil
}
