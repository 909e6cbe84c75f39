/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package data

import "fmt"

/*
MatchedVertex reports which reported endpoint of a decoded edge was the first
identifier of the stored row (i.e. the seed which matched the row).
*/
type MatchedVertex int

/*
Possible matched vertex values
*/
const (
	MatchedSource MatchedVertex = iota
	MatchedDestination
)

/*
String returns a string representation of a matched vertex value.
*/
func (m MatchedVertex) String() string {
	if m == MatchedDestination {
		return "DESTINATION"
	}
	return "SOURCE"
}

/*
Edge is a graph element which connects two vertices.
*/
type Edge struct {
	GroupName     string        // Group of the edge
	Source        interface{}   // Source vertex
	Destination   interface{}   // Destination vertex
	Directed      bool          // Flag if the edge is directed
	MatchedVertex MatchedVertex // Endpoint which matched the stored row (not part of equality)
	Props         Properties    // Properties of the edge
}

/*
NewEdge creates a new edge.
*/
func NewEdge(group string, source interface{}, destination interface{}, directed bool) *Edge {
	return &Edge{group, source, destination, directed, MatchedSource, make(Properties)}
}

/*
Group returns the group of this element.
*/
func (e *Edge) Group() string {
	return e.GroupName
}

/*
Kind returns the kind of this element.
*/
func (e *Edge) Kind() Kind {
	return KindEdge
}

/*
Properties returns the properties of this element.
*/
func (e *Edge) Properties() Properties {
	if e.Props == nil {
		e.Props = make(Properties)
	}
	return e.Props
}

/*
Property returns a single property value or nil.
*/
func (e *Edge) Property(name string) interface{} {
	return e.Props[name]
}

/*
PutProperty sets a property value.
*/
func (e *Edge) PutProperty(name string, value interface{}) {
	e.Properties()[name] = value
}

/*
MatchedVertexValue returns the vertex which matched the stored row.
*/
func (e *Edge) MatchedVertexValue() interface{} {
	if e.MatchedVertex == MatchedDestination {
		return e.Destination
	}
	return e.Source
}

/*
Equal checks if this element is equal to another element. Undirected edges
are equal regardless of the order of their endpoints.
*/
func (e *Edge) Equal(other Element) bool {
	o, ok := other.(*Edge)

	if !ok || e.GroupName != o.GroupName || e.Directed != o.Directed {
		return false
	}

	sameWay := ValuesEqual(e.Source, o.Source) && ValuesEqual(e.Destination, o.Destination)

	if !sameWay && !e.Directed {
		sameWay = ValuesEqual(e.Source, o.Destination) && ValuesEqual(e.Destination, o.Source)
	}

	return sameWay && e.Props.Equal(o.Props)
}

/*
String returns a string representation of this element.
*/
func (e *Edge) String() string {
	arrow := "--"
	if e.Directed {
		arrow = "->"
	}
	return fmt.Sprintf("Edge[group=%v %v%v%v properties=%v]", e.GroupName,
		e.Source, arrow, e.Destination, e.Props)
}
