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
Entity is a graph element which is identified by a single vertex.
*/
type Entity struct {
	GroupName string      // Group of the entity
	Vertex    interface{} // Vertex identifier
	Props     Properties  // Properties of the entity
}

/*
NewEntity creates a new entity.
*/
func NewEntity(group string, vertex interface{}) *Entity {
	return &Entity{group, vertex, make(Properties)}
}

/*
Group returns the group of this element.
*/
func (e *Entity) Group() string {
	return e.GroupName
}

/*
Kind returns the kind of this element.
*/
func (e *Entity) Kind() Kind {
	return KindEntity
}

/*
Properties returns the properties of this element.
*/
func (e *Entity) Properties() Properties {
	if e.Props == nil {
		e.Props = make(Properties)
	}
	return e.Props
}

/*
Property returns a single property value or nil.
*/
func (e *Entity) Property(name string) interface{} {
	return e.Props[name]
}

/*
PutProperty sets a property value.
*/
func (e *Entity) PutProperty(name string, value interface{}) {
	e.Properties()[name] = value
}

/*
Equal checks if this element is equal to another element.
*/
func (e *Entity) Equal(other Element) bool {
	o, ok := other.(*Entity)

	return ok && e.GroupName == o.GroupName &&
		ValuesEqual(e.Vertex, o.Vertex) &&
		e.Props.Equal(o.Props)
}

/*
String returns a string representation of this element.
*/
func (e *Entity) String() string {
	return fmt.Sprintf("Entity[group=%v vertex=%v properties=%v]", e.GroupName, e.Vertex, e.Props)
}
