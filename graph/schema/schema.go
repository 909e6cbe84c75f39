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
Package schema contains the schema and view definitions of a graph store.

# Schema

A schema declares element groups. Each group is either an entity group or an
edge group and declares an ordered list of properties. Every property has a
serialiser, a position in the stored record and an optional aggregate
function and validator:

	value      - property is stored in the record value (default)
	qualifier  - property is part of the sortable key
	visibility - property is stored as the visibility of the key
	timestamp  - property is stored as the timestamp of the key

Records which share the same key (row, family, qualifier and visibility) are
merged with the aggregate functions of their value properties.

Schemas are JSON documents which are checked against a meta schema before
they are decoded. A schema is immutable after it was parsed and can be shared
between concurrent scans.

# View

A view selects the groups which are visible to a query and can declare a
filter expression for each group.
*/
package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/common/stringutil"
	"devt.de/krotik/kvgraph/graph/data"
	"devt.de/krotik/kvgraph/graph/function"
	"devt.de/krotik/kvgraph/graph/serialisation"
	"devt.de/krotik/kvgraph/graph/util"
)

/*
Position is the position of a property in a stored record.
*/
type Position string

/*
Known property positions
*/
const (
	PositionValue      Position = "value"
	PositionQualifier  Position = "qualifier"
	PositionVisibility Position = "visibility"
	PositionTimestamp  Position = "timestamp"
)

/*
PropertyDef is the definition of a single group property.
*/
type PropertyDef struct {
	Name          string                     // Name of the property
	Type          string                     // Name of the serialiser
	Position      Position                   // Position in the stored record
	AggregateName string                     // Name of the aggregate function (optional)
	ValidatorExpr string                     // Validator expression (optional)
	Required      bool                       // Flag if the property must be present
	Serialiser    serialisation.Serialiser   // Serialiser of the property
	Aggregate     function.AggregateFunction // Aggregate function (may be nil)
	Validator     *function.Predicate        // Compiled validator (may be nil)
}

/*
GroupDef is the definition of an element group.
*/
type GroupDef struct {
	Name          string              // Name of the group
	Kind          data.Kind           // Kind of elements in this group
	Properties    []*PropertyDef      // Properties in schema order
	ValidatorExpr string              // Group validator expression (optional)
	Validator     *function.Predicate // Compiled group validator (may be nil)
	Aggregation   bool                // Flag if records of this group are merged

	propIndex map[string]*PropertyDef
}

/*
Property returns a property definition by name.
*/
func (g *GroupDef) Property(name string) (*PropertyDef, bool) {
	p, ok := g.propIndex[name]
	return p, ok
}

/*
PropertiesAt returns all properties at a given position in schema order.
*/
func (g *GroupDef) PropertiesAt(pos Position) []*PropertyDef {
	var ret []*PropertyDef

	for _, p := range g.Properties {
		if p.Position == pos {
			ret = append(ret, p)
		}
	}

	return ret
}

/*
PropertyAt returns the first property at a given position or nil.
*/
func (g *GroupDef) PropertyAt(pos Position) *PropertyDef {
	for _, p := range g.Properties {
		if p.Position == pos {
			return p
		}
	}
	return nil
}

/*
Schema is a parsed graph schema.
*/
type Schema struct {
	VertexSerialiser serialisation.Serialiser // Serialiser for vertex identifiers
	groups           map[string]*GroupDef
}

/*
Group returns a group definition by name.
*/
func (s *Schema) Group(name string) (*GroupDef, bool) {
	g, ok := s.groups[name]
	return g, ok
}

/*
EntityGroups returns the sorted names of all entity groups.
*/
func (s *Schema) EntityGroups() []string {
	return s.groupNames(data.KindEntity)
}

/*
EdgeGroups returns the sorted names of all edge groups.
*/
func (s *Schema) EdgeGroups() []string {
	return s.groupNames(data.KindEdge)
}

func (s *Schema) groupNames(kind data.Kind) []string {
	var ret []string

	for name, g := range s.groups {
		if g.Kind == kind {
			ret = append(ret, name)
		}
	}
	sort.Strings(ret)

	return ret
}

// JSON representation
// ===================

type jsonProperty struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Position  string `json:"position,omitempty"`
	Aggregate string `json:"aggregate,omitempty"`
	Validator string `json:"validator,omitempty"`
	Required  bool   `json:"required,omitempty"`
}

type jsonGroup struct {
	Properties []jsonProperty `json:"properties"`
	Validator  string         `json:"validator,omitempty"`
	Aggregate  *bool          `json:"aggregate,omitempty"`
}

type jsonSchema struct {
	VertexSerialiser string               `json:"vertexSerialiser"`
	Entities         map[string]jsonGroup `json:"entities,omitempty"`
	Edges            map[string]jsonGroup `json:"edges,omitempty"`
}

/*
FromJSON parses a schema from a JSON document. C-style comments are allowed
in the document.
*/
func FromJSON(doc []byte) (*Schema, error) {
	var js jsonSchema

	doc = stringutil.StripCStyleComments(doc)

	if err := checkMetaSchema(schemaMetaSchema, doc); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(doc, &js); err != nil {
		return nil, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprint("Could not decode schema: ", err)}
	}

	vs, _ := serialisation.Get(js.VertexSerialiser)

	s := &Schema{vs, make(map[string]*GroupDef)}
	ce := errorutil.NewCompositeError()
	declared := make(map[string]bool)

	addGroups := func(groups map[string]jsonGroup, kind data.Kind) {
		for name, jg := range groups {

			if declared[name] {
				ce.Add(fmt.Errorf("Group %v is declared more than once", name))
				continue
			}
			declared[name] = true

			if g := newGroupDef(name, kind, jg, ce); g != nil {
				s.groups[name] = g
			}
		}
	}

	addGroups(js.Entities, data.KindEntity)
	addGroups(js.Edges, data.KindEdge)

	if ce.HasErrors() {
		return nil, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprint("Invalid schema: ", ce.Error())}
	}

	return s, nil
}

/*
newGroupDef creates a new group definition from its JSON representation. All
problems are collected in a given composite error.
*/
func newGroupDef(name string, kind data.Kind, jg jsonGroup, ce *errorutil.CompositeError) *GroupDef {
	var err error

	errCount := len(ce.Errors)

	g := &GroupDef{
		Name:          name,
		Kind:          kind,
		ValidatorExpr: jg.Validator,
		Aggregation:   jg.Aggregate == nil || *jg.Aggregate,
		propIndex:     make(map[string]*PropertyDef),
	}

	if g.ValidatorExpr != "" {
		if g.Validator, err = function.CompilePredicate(g.ValidatorExpr); err != nil {
			ce.Add(fmt.Errorf("Group %v: %v", name, err))
		}
	}

	for _, jp := range jg.Properties {

		if _, ok := g.propIndex[jp.Name]; ok {
			ce.Add(fmt.Errorf("Group %v: Property %v is declared more than once", name, jp.Name))
			continue
		}

		p := &PropertyDef{
			Name:          jp.Name,
			Type:          jp.Type,
			Position:      Position(jp.Position),
			AggregateName: jp.Aggregate,
			ValidatorExpr: jp.Validator,
			Required:      jp.Required,
		}

		if p.Position == "" {
			p.Position = PositionValue
		}

		p.Serialiser, _ = serialisation.Get(p.Type)

		if p.AggregateName != "" {
			p.Aggregate, _ = function.GetAggregate(p.AggregateName)
		}

		if p.ValidatorExpr != "" {
			if p.Validator, err = function.CompilePredicate(p.ValidatorExpr); err != nil {
				ce.Add(fmt.Errorf("Group %v: Property %v: %v", name, p.Name, err))
			}
		}

		if p.Position == PositionTimestamp && p.Type != "long" && p.Type != "date" {
			ce.Add(fmt.Errorf("Group %v: Timestamp property %v must be of type long or date",
				name, p.Name))
		}

		g.Properties = append(g.Properties, p)
		g.propIndex[p.Name] = p
	}

	for _, pos := range []Position{PositionVisibility, PositionTimestamp} {
		if len(g.PropertiesAt(pos)) > 1 {
			ce.Add(fmt.Errorf("Group %v: Only one %v property is allowed", name, pos))
		}
	}

	if len(ce.Errors) > errCount {
		return nil
	}

	return g
}

/*
ToJSON returns a JSON document of this schema which can be parsed by FromJSON.
*/
func (s *Schema) ToJSON() ([]byte, error) {
	js := jsonSchema{
		VertexSerialiser: s.VertexSerialiser.Name(),
		Entities:         make(map[string]jsonGroup),
		Edges:            make(map[string]jsonGroup),
	}

	for name, g := range s.groups {
		jg := jsonGroup{Validator: g.ValidatorExpr, Properties: []jsonProperty{}}

		if !g.Aggregation {
			f := false
			jg.Aggregate = &f
		}

		for _, p := range g.Properties {
			jg.Properties = append(jg.Properties, jsonProperty{
				Name:      p.Name,
				Type:      p.Type,
				Position:  string(p.Position),
				Aggregate: p.AggregateName,
				Validator: p.ValidatorExpr,
				Required:  p.Required,
			})
		}

		if g.Kind == data.KindEdge {
			js.Edges[name] = jg
		} else {
			js.Entities[name] = jg
		}
	}

	return json.MarshalIndent(js, "", "  ")
}
