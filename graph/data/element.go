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
Package data contains the element model of the graph store.

# Element

An element is either an Entity (a single vertex) or an Edge (a connection
between two vertices which can be directed or undirected). Every element
belongs to a group which must be declared in the schema of a store. Elements
carry typed properties in a Properties map.

Elements are value objects. Properties should only be set before an element
is handed to the store.

# Seeds

Seeds select which stored elements should be scanned. An EntitySeed selects
a vertex, an EdgeSeed selects a connection and a SeedPair describes a
contiguous range between two seeds.
*/
package data

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"time"
)

/*
Kind is the kind of an element.
*/
type Kind int

/*
Known element kinds
*/
const (
	KindEntity Kind = iota
	KindEdge
)

/*
String returns a string representation of an element kind.
*/
func (k Kind) String() string {
	if k == KindEdge {
		return "Edge"
	}
	return "Entity"
}

/*
Element models a graph element.
*/
type Element interface {

	/*
		Group returns the group of this element.
	*/
	Group() string

	/*
		Kind returns the kind of this element.
	*/
	Kind() Kind

	/*
		Properties returns the properties of this element.
	*/
	Properties() Properties

	/*
		Property returns a single property value or nil.
	*/
	Property(name string) interface{}

	/*
		PutProperty sets a property value.
	*/
	PutProperty(name string, value interface{})

	/*
		Equal checks if this element is equal to another element.
	*/
	Equal(other Element) bool

	/*
		String returns a string representation of this element.
	*/
	String() string
}

/*
Properties is a mapping from property name to a typed value.
*/
type Properties map[string]interface{}

/*
Clone returns a shallow copy of this property map.
*/
func (p Properties) Clone() Properties {
	ret := make(Properties, len(p))
	for k, v := range p {
		ret[k] = v
	}
	return ret
}

/*
Equal checks if this property map is equal to another property map. Nil values
are treated as absent.
*/
func (p Properties) Equal(other Properties) bool {

	for k, v := range p {
		if !ValuesEqual(v, other[k]) {
			return false
		}
	}

	for k, v := range other {
		if _, ok := p[k]; !ok && v != nil {
			return false
		}
	}

	return true
}

/*
String returns a string representation of this property map with sorted keys.
*/
func (p Properties) String() string {
	var buf bytes.Buffer

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(fmt.Sprintf("%v:%v", k, p[k]))
	}
	buf.WriteString("}")

	return buf.String()
}

/*
ValuesEqual compares two property or vertex values.
*/
func ValuesEqual(v1, v2 interface{}) bool {
	if t1, ok := v1.(time.Time); ok {
		if t2, ok := v2.(time.Time); ok {
			return t1.Equal(t2)
		}
		return false
	}

	return reflect.DeepEqual(v1, v2)
}
