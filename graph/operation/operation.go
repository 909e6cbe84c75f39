/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package operation contains the operations which can be run against a graph
store.

Every query operation embeds GetOptions which control the view, the
summarisation and which elements are included in the result. The constructors
return operations which include entities and all edges.
*/
package operation

import (
	"devt.de/krotik/kvgraph/graph/data"
	"devt.de/krotik/kvgraph/graph/schema"
)

/*
IncludeEdgeType selects which edges are included in a result.
*/
type IncludeEdgeType int

/*
Edge inclusion options
*/
const (
	EdgesAll IncludeEdgeType = iota
	EdgesNone
	EdgesDirected
	EdgesUndirected
)

/*
Accept checks if an edge with a given direction flag is included.
*/
func (t IncludeEdgeType) Accept(directed bool) bool {
	switch t {
	case EdgesAll:
		return true
	case EdgesDirected:
		return directed
	case EdgesUndirected:
		return !directed
	}
	return false
}

/*
String returns a string representation of this option.
*/
func (t IncludeEdgeType) String() string {
	return [...]string{"ALL", "NONE", "DIRECTED", "UNDIRECTED"}[t]
}

/*
IncludeIncomingOutgoingType selects directed edges by their direction relative
to the seed.
*/
type IncludeIncomingOutgoingType int

/*
Direction options
*/
const (
	Both IncludeIncomingOutgoingType = iota
	Incoming
	Outgoing
)

/*
Accept checks if a directed edge is included. The outgoing flag is true if
the seed is the source of the edge. Undirected edges are always included.
*/
func (t IncludeIncomingOutgoingType) Accept(directed bool, outgoing bool) bool {
	if !directed || t == Both {
		return true
	}
	return (t == Outgoing) == outgoing
}

/*
String returns a string representation of this option.
*/
func (t IncludeIncomingOutgoingType) String() string {
	return [...]string{"BOTH", "INCOMING", "OUTGOING"}[t]
}

/*
GetOptions are the options shared by all query operations.
*/
type GetOptions struct {
	View                          *schema.View                // View of the query (nil for the default view)
	Summarise                     bool                        // Merge records of the same element
	IncludeEntities               bool                        // Include entities
	IncludeEdges                  IncludeEdgeType             // Included edges
	IncludeIncomingOutgoing       IncludeIncomingOutgoingType // Included edge directions
	ReturnMatchedSeedAsEdgeSource bool                        // Report the matched seed as edge source
}

/*
Options returns the shared options of an operation.
*/
func (o *GetOptions) Options() *GetOptions {
	return o
}

func defaultOptions(view *schema.View) GetOptions {
	return GetOptions{View: view, IncludeEntities: true, IncludeEdges: EdgesAll,
		IncludeIncomingOutgoing: Both}
}

/*
Operation is a graph store operation.
*/
type Operation interface {

	/*
		Name returns the name of the operation.
	*/
	Name() string
}

/*
GetOperation is a graph store query.
*/
type GetOperation interface {
	Operation

	/*
		Options returns the shared options of the query.
	*/
	Options() *GetOptions
}

/*
GetElementsWithinSet returns all elements of a set of vertices and all edges
between them.
*/
type GetElementsWithinSet struct {
	GetOptions
	Seeds []interface{} // Seed vertices
}

/*
NewGetElementsWithinSet creates a new GetElementsWithinSet operation.
*/
func NewGetElementsWithinSet(seeds []interface{}, view *schema.View) *GetElementsWithinSet {
	return &GetElementsWithinSet{defaultOptions(view), seeds}
}

/*
Name returns the name of the operation.
*/
func (op *GetElementsWithinSet) Name() string {
	return "GetElementsWithinSet"
}

/*
GetElementsBetweenSets returns the entities of a set of vertices A and all
edges between the vertices of A and the vertices of another set B.
*/
type GetElementsBetweenSets struct {
	GetOptions
	SeedsA []interface{} // Seed vertices of set A
	SeedsB []interface{} // Seed vertices of set B
}

/*
NewGetElementsBetweenSets creates a new GetElementsBetweenSets operation.
*/
func NewGetElementsBetweenSets(seedsA []interface{}, seedsB []interface{}, view *schema.View) *GetElementsBetweenSets {
	return &GetElementsBetweenSets{defaultOptions(view), seedsA, seedsB}
}

/*
Name returns the name of the operation.
*/
func (op *GetElementsBetweenSets) Name() string {
	return "GetElementsBetweenSets"
}

/*
GetElementsInRanges returns all elements in a list of contiguous seed ranges.
*/
type GetElementsInRanges struct {
	GetOptions
	Ranges []*data.SeedPair // Seed ranges
	name   string
}

/*
NewGetElementsInRanges creates a new GetElementsInRanges operation.
*/
func NewGetElementsInRanges(ranges []*data.SeedPair, view *schema.View) *GetElementsInRanges {
	return &GetElementsInRanges{defaultOptions(view), ranges, "GetElementsInRanges"}
}

/*
NewGetEntitiesInRanges creates a GetElementsInRanges operation which only
returns entities.
*/
func NewGetEntitiesInRanges(ranges []*data.SeedPair, view *schema.View) *GetElementsInRanges {
	op := NewGetElementsInRanges(ranges, view)
	op.IncludeEdges = EdgesNone
	op.name = "GetEntitiesInRanges"
	return op
}

/*
NewGetEdgesInRanges creates a GetElementsInRanges operation which only
returns edges.
*/
func NewGetEdgesInRanges(ranges []*data.SeedPair, view *schema.View) *GetElementsInRanges {
	op := NewGetElementsInRanges(ranges, view)
	op.IncludeEntities = false
	op.name = "GetEdgesInRanges"
	return op
}

/*
Name returns the name of the operation.
*/
func (op *GetElementsInRanges) Name() string {
	if op.name == "" {
		return "GetElementsInRanges"
	}
	return op.name
}

/*
GetElements returns the elements which match a list of seeds. If Related is
set the elements which are connected to the seeds are returned as well.
*/
type GetElements struct {
	GetOptions
	Seeds   []data.ElementSeed // Seeds
	Related bool               // Flag to return related elements
}

/*
NewGetElementsBySeed creates a GetElements operation which returns only the
elements which match the seeds.
*/
func NewGetElementsBySeed(seeds []data.ElementSeed, view *schema.View) *GetElements {
	return &GetElements{defaultOptions(view), seeds, false}
}

/*
NewGetRelatedElements creates a GetElements operation which returns the
elements which match the seeds and all related elements.
*/
func NewGetRelatedElements(seeds []data.ElementSeed, view *schema.View) *GetElements {
	return &GetElements{defaultOptions(view), seeds, true}
}

/*
Name returns the name of the operation.
*/
func (op *GetElements) Name() string {
	if op.Related {
		return "GetRelatedElements"
	}
	return "GetElementsBySeed"
}

/*
GetAllElements returns all elements of a store. Edges are returned once.
*/
type GetAllElements struct {
	GetOptions
}

/*
NewGetAllElements creates a new GetAllElements operation.
*/
func NewGetAllElements(view *schema.View) *GetAllElements {
	return &GetAllElements{defaultOptions(view)}
}

/*
Name returns the name of the operation.
*/
func (op *GetAllElements) Name() string {
	return "GetAllElements"
}

/*
AddElements adds elements to a store.
*/
type AddElements struct {
	Elements    []data.Element // Elements to add
	Validate    bool           // Flag to validate elements against the schema
	SkipInvalid bool           // Flag to skip invalid elements instead of failing
}

/*
NewAddElements creates a new AddElements operation which validates all
elements.
*/
func NewAddElements(elements ...data.Element) *AddElements {
	return &AddElements{elements, true, false}
}

/*
Name returns the name of the operation.
*/
func (op *AddElements) Name() string {
	return "AddElements"
}
