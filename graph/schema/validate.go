/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package schema

import (
	"fmt"

	"devt.de/krotik/kvgraph/graph/data"
	"devt.de/krotik/kvgraph/graph/function"
	"devt.de/krotik/kvgraph/graph/util"
)

/*
ElementVars returns the predicate variables of a given element.
*/
func ElementVars(e data.Element) map[string]interface{} {
	props := make(map[string]interface{})

	for k, v := range e.Properties() {
		if v != nil {
			props[k] = v
		}
	}

	vars := map[string]interface{}{
		function.VarGroup:       e.Group(),
		function.VarVertex:      nil,
		function.VarSource:      nil,
		function.VarDestination: nil,
		function.VarDirected:    false,
		function.VarProperties:  props,
	}

	switch el := e.(type) {
	case *data.Entity:
		vars[function.VarVertex] = el.Vertex
	case *data.Edge:
		vars[function.VarSource] = el.Source
		vars[function.VarDestination] = el.Destination
		vars[function.VarDirected] = el.Directed
	}

	return vars
}

/*
GroupOf returns the group definition of an element. An error is returned if
the group is unknown or declared for a different element kind.
*/
func (s *Schema) GroupOf(e data.Element) (*GroupDef, error) {
	g, ok := s.groups[e.Group()]

	if !ok {
		return nil, &util.GraphError{Type: util.ErrSchemaViolation,
			Detail: fmt.Sprintf("Unknown group %v", e.Group())}
	}

	if g.Kind != e.Kind() {
		return nil, &util.GraphError{Type: util.ErrSchemaViolation,
			Detail: fmt.Sprintf("Group %v is not an %v group", e.Group(), e.Kind())}
	}

	return g, nil
}

/*
CheckIdentifiers checks that the vertex identifiers of an element can be
handled by the vertex serialiser.
*/
func (s *Schema) CheckIdentifiers(e data.Element) error {
	var ids []interface{}

	switch el := e.(type) {
	case *data.Entity:
		ids = []interface{}{el.Vertex}
	case *data.Edge:
		ids = []interface{}{el.Source, el.Destination}
	}

	for _, id := range ids {
		if !s.VertexSerialiser.CanHandle(id) {
			return &util.GraphError{Type: util.ErrSerialisation,
				Detail: fmt.Sprintf("Vertex %v (%T) cannot be handled by serialiser %v",
					id, id, s.VertexSerialiser.Name())}
		}
	}

	return nil
}

/*
Validate checks an element against this schema. The following checks are
done in order: known group, vertex types, known properties, property types,
required properties, property validators and finally the group validator.
*/
func (s *Schema) Validate(e data.Element) error {

	g, err := s.GroupOf(e)
	if err != nil {
		return err
	}

	if err = s.CheckIdentifiers(e); err != nil {
		return err
	}

	props := e.Properties()

	for name, v := range props {
		p, ok := g.Property(name)

		if !ok {
			return &util.GraphError{Type: util.ErrSchemaViolation,
				Detail: fmt.Sprintf("Property %v is not declared in group %v", name, g.Name)}
		}

		if v != nil && !p.Serialiser.CanHandle(v) {
			return &util.GraphError{Type: util.ErrSerialisation,
				Detail: fmt.Sprintf("Property %v value %v (%T) cannot be handled by serialiser %v",
					name, v, v, p.Serialiser.Name())}
		}
	}

	for _, p := range g.Properties {
		v := props[p.Name]

		if v == nil {
			if p.Required {
				return &util.GraphError{Type: util.ErrSchemaViolation,
					Detail: fmt.Sprintf("Required property %v is missing in group %v", p.Name, g.Name)}
			}
			continue
		}

		if p.Validator != nil {
			if ok, err := p.Validator.Test(map[string]interface{}{function.VarValue: v}); !ok {
				return &util.GraphError{Type: util.ErrSchemaViolation,
					Detail: fmt.Sprintf("Property %v value %v failed validator %v%v",
						p.Name, v, p.Validator, errSuffix(err))}
			}
		}
	}

	if g.Validator != nil {
		if ok, err := g.Validator.Test(ElementVars(e)); !ok {
			return &util.GraphError{Type: util.ErrSchemaViolation,
				Detail: fmt.Sprintf("Element failed group %v validator %v%v", g.Name, g.Validator, errSuffix(err))}
		}
	}

	return nil
}

func errSuffix(err error) string {
	if err != nil {
		return fmt.Sprint(": ", err)
	}
	return ""
}
