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
	"encoding/json"
	"fmt"
	"sort"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/common/stringutil"
	"devt.de/krotik/kvgraph/graph/data"
	"devt.de/krotik/kvgraph/graph/function"
	"devt.de/krotik/kvgraph/graph/util"
)

/*
ViewGroup is the view definition of a single group.
*/
type ViewGroup struct {
	FilterExpr string              // Filter expression (optional)
	Filter     *function.Predicate // Compiled filter (may be nil)

	TransformExprs map[string]string               // Property transformations (optional)
	Transforms     map[string]*function.Expression // Compiled transformations
}

/*
View selects the visible groups of a query.
*/
type View struct {
	Entities map[string]*ViewGroup // Visible entity groups
	Edges    map[string]*ViewGroup // Visible edge groups
}

/*
DefaultView returns a view which shows all groups of a given schema without
any filters.
*/
func DefaultView(s *Schema) *View {
	v := &View{make(map[string]*ViewGroup), make(map[string]*ViewGroup)}

	for _, name := range s.EntityGroups() {
		v.Entities[name] = &ViewGroup{}
	}
	for _, name := range s.EdgeGroups() {
		v.Edges[name] = &ViewGroup{}
	}

	return v
}

type jsonViewGroup struct {
	Filter    string            `json:"filter,omitempty"`
	Transform map[string]string `json:"transform,omitempty"`
}

type jsonView struct {
	Entities map[string]jsonViewGroup `json:"entities,omitempty"`
	Edges    map[string]jsonViewGroup `json:"edges,omitempty"`
}

/*
ViewFromJSON parses a view from a JSON document.
*/
func ViewFromJSON(doc []byte) (*View, error) {
	var jv jsonView

	doc = stringutil.StripCStyleComments(doc)

	if err := checkMetaSchema(viewMetaSchema, doc); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(doc, &jv); err != nil {
		return nil, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprint("Could not decode view: ", err)}
	}

	v := &View{make(map[string]*ViewGroup), make(map[string]*ViewGroup)}
	ce := errorutil.NewCompositeError()

	addGroups := func(groups map[string]jsonViewGroup, target map[string]*ViewGroup) {
		var err error

		for name, jg := range groups {
			vg := &ViewGroup{FilterExpr: jg.Filter, TransformExprs: jg.Transform}

			if vg.FilterExpr != "" {
				if vg.Filter, err = function.CompilePredicate(vg.FilterExpr); err != nil {
					ce.Add(fmt.Errorf("Group %v: %v", name, err))
					continue
				}
			}

			if len(jg.Transform) > 0 {
				vg.Transforms = make(map[string]*function.Expression)

				for prop, expr := range jg.Transform {
					if vg.Transforms[prop], err = function.CompileExpression(expr); err != nil {
						ce.Add(fmt.Errorf("Group %v property %v: %v", name, prop, err))
					}
				}
			}

			target[name] = vg
		}
	}

	addGroups(jv.Entities, v.Entities)
	addGroups(jv.Edges, v.Edges)

	if ce.HasErrors() {
		return nil, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprint("Invalid view: ", ce.Error())}
	}

	return v, nil
}

/*
ToJSON returns a JSON document of this view which can be parsed by ViewFromJSON.
*/
func (v *View) ToJSON() ([]byte, error) {
	jv := jsonView{make(map[string]jsonViewGroup), make(map[string]jsonViewGroup)}

	for name, vg := range v.Entities {
		jv.Entities[name] = jsonViewGroup{vg.FilterExpr, vg.TransformExprs}
	}
	for name, vg := range v.Edges {
		jv.Edges[name] = jsonViewGroup{vg.FilterExpr, vg.TransformExprs}
	}

	return json.MarshalIndent(jv, "", "  ")
}

/*
Check checks that every group of this view is declared in a given schema with
the same kind.
*/
func (v *View) Check(s *Schema) error {
	ce := errorutil.NewCompositeError()

	check := func(groups map[string]*ViewGroup, kind data.Kind) {
		var names []string

		for name := range groups {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if g, ok := s.Group(name); !ok || g.Kind != kind {
				ce.Add(fmt.Errorf("%v group %v is not declared in the schema", kind, name))
			}
		}
	}

	check(v.Entities, data.KindEntity)
	check(v.Edges, data.KindEdge)

	if ce.HasErrors() {
		return &util.GraphError{Type: util.ErrSchemaViolation, Detail: ce.Error()}
	}

	return nil
}

/*
group returns the view definition for the group of an element.
*/
func (v *View) group(e data.Element) (*ViewGroup, bool) {
	var vg *ViewGroup
	var ok bool

	if e.Kind() == data.KindEdge {
		vg, ok = v.Edges[e.Group()]
	} else {
		vg, ok = v.Entities[e.Group()]
	}

	return vg, ok
}

/*
HasGroup checks if a group of a given kind is visible in this view.
*/
func (v *View) HasGroup(kind data.Kind, name string) bool {
	if kind == data.KindEdge {
		_, ok := v.Edges[name]
		return ok
	}
	_, ok := v.Entities[name]
	return ok
}

/*
Accept checks if an element is visible in this view. Elements of groups which
are not part of the view are rejected. An element for which the group filter
cannot be evaluated is rejected.
*/
func (v *View) Accept(e data.Element) bool {
	vg, ok := v.group(e)

	if !ok {
		return false
	}

	if vg.Filter != nil {
		ok, _ = vg.Filter.Test(ElementVars(e))
	}

	return ok
}

/*
Transform applies the property transformations of the view group of an
element. All expressions see the element as it was before the
transformation. Integer results replace int properties as int. The element
is modified in place.
*/
func (v *View) Transform(e data.Element) (data.Element, error) {
	vg, ok := v.group(e)

	if !ok || len(vg.Transforms) == 0 {
		return e, nil
	}

	var names []string

	for name := range vg.Transforms {
		names = append(names, name)
	}
	sort.Strings(names)

	vars := ElementVars(e)
	results := make([]interface{}, len(names))

	for i, name := range names {
		res, err := vg.Transforms[name].Eval(vars)
		if err != nil {
			return nil, &util.GraphError{Type: util.ErrInvalidData,
				Detail: fmt.Sprintf("Group %v property %v: %v", e.Group(), name, err)}
		}

		if l, ok := res.(int64); ok {
			if _, ok := e.Property(name).(int); ok {
				res = int(l)
			}
		}

		results[i] = res
	}

	for i, name := range names {
		e.PutProperty(name, results[i])
	}

	return e, nil
}
