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
ElementSeed selects stored elements.
*/
type ElementSeed interface {

	/*
		SeedKind returns the kind of elements this seed addresses.
	*/
	SeedKind() Kind

	/*
		String returns a string representation of this seed.
	*/
	String() string
}

/*
EntitySeed selects everything which is keyed by a vertex.
*/
type EntitySeed struct {
	Vertex interface{}
}

/*
NewEntitySeed creates a new entity seed.
*/
func NewEntitySeed(vertex interface{}) *EntitySeed {
	return &EntitySeed{vertex}
}

/*
SeedKind returns the kind of elements this seed addresses.
*/
func (s *EntitySeed) SeedKind() Kind {
	return KindEntity
}

/*
String returns a string representation of this seed.
*/
func (s *EntitySeed) String() string {
	return fmt.Sprintf("EntitySeed[%v]", s.Vertex)
}

/*
EdgeSeed selects a connection between two vertices.
*/
type EdgeSeed struct {
	Source      interface{}
	Destination interface{}
	Directed    bool
}

/*
NewEdgeSeed creates a new edge seed.
*/
func NewEdgeSeed(source interface{}, destination interface{}, directed bool) *EdgeSeed {
	return &EdgeSeed{source, destination, directed}
}

/*
SeedKind returns the kind of elements this seed addresses.
*/
func (s *EdgeSeed) SeedKind() Kind {
	return KindEdge
}

/*
String returns a string representation of this seed.
*/
func (s *EdgeSeed) String() string {
	return fmt.Sprintf("EdgeSeed[%v,%v,%v]", s.Source, s.Destination, s.Directed)
}

/*
SeedPair describes a contiguous range of stored elements between two seeds
(both inclusive).
*/
type SeedPair struct {
	First  ElementSeed
	Second ElementSeed
}

/*
NewSeedPair creates a new seed pair.
*/
func NewSeedPair(first ElementSeed, second ElementSeed) *SeedPair {
	return &SeedPair{first, second}
}

/*
String returns a string representation of this seed pair.
*/
func (p *SeedPair) String() string {
	return fmt.Sprintf("SeedPair[%v - %v]", p.First, p.Second)
}

/*
SeedFromElement returns a seed which matches a given element.
*/
func SeedFromElement(e Element) ElementSeed {
	switch el := e.(type) {
	case *Edge:
		return NewEdgeSeed(el.Source, el.Destination, el.Directed)
	case *Entity:
		return NewEntitySeed(el.Vertex)
	}
	return nil
}
