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
	"fmt"

	"devt.de/krotik/kvgraph/graph/data"
	"devt.de/krotik/kvgraph/graph/util"
)

/*
Layout is a binary key layout.
*/
type Layout int

/*
Known layouts
*/
const (
	ByteEntity Layout = iota
	Classic
)

/*
layoutNames maps layouts to their identifiers
*/
var layoutNames = map[Layout]string{
	ByteEntity: "byteEntity",
	Classic:    "classic",
}

/*
rowCodecs is the static dispatch table from layout to row codec
*/
var rowCodecs = map[Layout]rowCodec{
	ByteEntity: byteEntityRows{},
	Classic:    classicRows{},
}

/*
String returns the identifier of this layout.
*/
func (l Layout) String() string {
	if name, ok := layoutNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

/*
ParseLayout returns a layout by its identifier.
*/
func ParseLayout(name string) (Layout, error) {
	for l, n := range layoutNames {
		if n == name {
			return l, nil
		}
	}

	return 0, &util.GraphError{Type: util.ErrIllegalConfiguration,
		Detail: fmt.Sprintf("Unknown element converter layout: %v", name)}
}

/*
Row markers and flags
*/
const (
	markerEntity         = 0x01
	markerDirectedSource = 0x02
	markerDirectedDest   = 0x03
	markerUndirected     = 0x04

	flagUndirected     = 0x01
	flagDirectedSource = 0x02
	flagDirectedDest   = 0x03

	familyEntity = 0x01
	familyEdge   = 0x02
)

/*
rowInfo is the information which is encoded in a row.
*/
type rowInfo struct {
	kind          data.Kind // Kind of the element
	first         []byte    // First vertex of the row
	second        []byte    // Second vertex of the row (edges only)
	directed      bool      // Flag if the edge is directed
	firstIsSource bool      // Flag if the first vertex is the source of a directed edge
}

/*
rowCodec builds and parses rows and families for a layout.
*/
type rowCodec interface {

	/*
		entityRow returns the row components of an entity.
	*/
	entityRow(v []byte) [][]byte

	/*
		edgeRow returns the row components of an edge row.
	*/
	edgeRow(first, second []byte, directed bool, firstIsSource bool) [][]byte

	/*
		family returns the column family of a group.
	*/
	family(kind data.Kind, group string) []byte

	/*
		parseRow parses unescaped row components.
	*/
	parseRow(comps [][]byte) (*rowInfo, error)

	/*
		parseFamily parses a column family. The kind is only returned by
		layouts which encode it in the family.
	*/
	parseFamily(fam []byte) (data.Kind, bool, string, error)
}

// Byte entity layout
// ==================

type byteEntityRows struct{}

func (byteEntityRows) entityRow(v []byte) [][]byte {
	return [][]byte{v, {markerEntity}}
}

func (byteEntityRows) edgeRow(first, second []byte, directed bool, firstIsSource bool) [][]byte {
	m := byte(markerUndirected)
	if directed {
		if firstIsSource {
			m = markerDirectedSource
		} else {
			m = markerDirectedDest
		}
	}
	return [][]byte{first, {m}, second, {m}}
}

func (byteEntityRows) family(kind data.Kind, group string) []byte {
	return []byte(group)
}

func (byteEntityRows) parseRow(comps [][]byte) (*rowInfo, error) {

	if len(comps) == 2 && len(comps[1]) == 1 && comps[1][0] == markerEntity {
		return &rowInfo{kind: data.KindEntity, first: comps[0]}, nil

	} else if len(comps) == 4 && len(comps[1]) == 1 && len(comps[3]) == 1 && comps[1][0] == comps[3][0] {

		info := &rowInfo{kind: data.KindEdge, first: comps[0], second: comps[2]}

		switch comps[1][0] {
		case markerDirectedSource:
			info.directed, info.firstIsSource = true, true
			return info, nil
		case markerDirectedDest:
			info.directed = true
			return info, nil
		case markerUndirected:
			return info, nil
		}
	}

	return nil, fmt.Errorf("Invalid byteEntity row with %v components", len(comps))
}

func (byteEntityRows) parseFamily(fam []byte) (data.Kind, bool, string, error) {
	if len(fam) == 0 {
		return 0, false, "", fmt.Errorf("Empty column family")
	}
	return 0, false, string(fam), nil
}

// Classic layout
// ==============

type classicRows struct{}

func (classicRows) entityRow(v []byte) [][]byte {
	return [][]byte{v}
}

func (classicRows) edgeRow(first, second []byte, directed bool, firstIsSource bool) [][]byte {
	f := byte(flagUndirected)
	if directed {
		if firstIsSource {
			f = flagDirectedSource
		} else {
			f = flagDirectedDest
		}
	}
	return [][]byte{first, second, {f}}
}

func (classicRows) family(kind data.Kind, group string) []byte {
	if kind == data.KindEdge {
		return append([]byte{familyEdge}, group...)
	}
	return append([]byte{familyEntity}, group...)
}

func (classicRows) parseRow(comps [][]byte) (*rowInfo, error) {

	if len(comps) == 1 {
		return &rowInfo{kind: data.KindEntity, first: comps[0]}, nil

	} else if len(comps) == 3 && len(comps[2]) == 1 {

		info := &rowInfo{kind: data.KindEdge, first: comps[0], second: comps[1]}

		switch comps[2][0] {
		case flagDirectedSource:
			info.directed, info.firstIsSource = true, true
			return info, nil
		case flagDirectedDest:
			info.directed = true
			return info, nil
		case flagUndirected:
			return info, nil
		}
	}

	return nil, fmt.Errorf("Invalid classic row with %v components", len(comps))
}

func (classicRows) parseFamily(fam []byte) (data.Kind, bool, string, error) {
	if len(fam) < 2 {
		return 0, false, "", fmt.Errorf("Column family too short")
	}

	switch fam[0] {
	case familyEntity:
		return data.KindEntity, true, string(fam[1:]), nil
	case familyEdge:
		return data.KindEdge, true, string(fam[1:]), nil
	}

	return 0, false, "", fmt.Errorf("Unknown column family kind %v", fam[0])
}
