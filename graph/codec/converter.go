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
	"time"

	"devt.de/krotik/kvgraph/graph/data"
	"devt.de/krotik/kvgraph/graph/schema"
	"devt.de/krotik/kvgraph/graph/util"
	"devt.de/krotik/kvgraph/storage"
)

/*
DecodeOptions control how stored records are decoded.
*/
type DecodeOptions struct {

	/*
		ReturnMatchedSeedAsEdgeSource reports the first vertex of the row (the
		vertex which matched the scanned seed) as source of a directed edge.
		By default directed edges are reported with their stored orientation.
	*/
	ReturnMatchedSeedAsEdgeSource bool
}

/*
KeyPair holds the keys of an element. Second is nil for entities and self
loops.
*/
type KeyPair struct {
	First  *Key
	Second *Key
}

/*
Converter converts elements to and from stored records. A converter is
immutable and can be shared between concurrent scans.
*/
type Converter struct {
	schema      *schema.Schema
	layout      Layout
	compression Compression
	rows        rowCodec
}

/*
NewConverter creates a new element converter.
*/
func NewConverter(s *schema.Schema, layout Layout, compression Compression) (*Converter, error) {
	rows, ok := rowCodecs[layout]

	if !ok {
		return nil, &util.GraphError{Type: util.ErrIllegalConfiguration,
			Detail: fmt.Sprintf("Unknown element converter layout: %v", layout)}
	}

	if _, ok := compressionNames[compression]; !ok {
		return nil, &util.GraphError{Type: util.ErrIllegalConfiguration,
			Detail: fmt.Sprintf("Unknown value compression: %v", compression)}
	}

	return &Converter{s, layout, compression, rows}, nil
}

/*
Schema returns the schema of this converter.
*/
func (c *Converter) Schema() *schema.Schema {
	return c.schema
}

/*
Layout returns the layout of this converter.
*/
func (c *Converter) Layout() Layout {
	return c.layout
}

/*
Compression returns the value compression of this converter.
*/
func (c *Converter) Compression() Compression {
	return c.compression
}

// Encoding
// ========

/*
KeysFromElement returns the keys of a given element.
*/
func (c *Converter) KeysFromElement(e data.Element) (*KeyPair, error) {

	g, err := c.schema.GroupOf(e)
	if err != nil {
		return nil, err
	}

	props := e.Properties()

	cq, err := c.packProperties(g, g.PropertiesAt(schema.PositionQualifier), props)
	if err != nil {
		return nil, err
	}

	vis, err := c.packProperties(g, g.PropertiesAt(schema.PositionVisibility), props)
	if err != nil {
		return nil, err
	}

	hasTs, ts, err := c.timestamp(g, props)
	if err != nil {
		return nil, err
	}

	family := c.rows.family(e.Kind(), g.Name)

	newKey := func(comps [][]byte) *Key {
		return &Key{EscapeComponents(comps...), family, cq, vis, hasTs, ts}
	}

	switch el := e.(type) {

	case *data.Entity:
		v, err := c.serialiseVertex(el.Vertex)
		if err != nil {
			return nil, err
		}

		return &KeyPair{newKey(c.rows.entityRow(v)), nil}, nil

	case *data.Edge:
		src, err := c.serialiseVertex(el.Source)
		if err != nil {
			return nil, err
		}

		dst, err := c.serialiseVertex(el.Destination)
		if err != nil {
			return nil, err
		}

		first, second := src, dst
		if !el.Directed && bytes.Compare(src, dst) > 0 {
			first, second = dst, src
		}

		ret := &KeyPair{newKey(c.rows.edgeRow(first, second, el.Directed, true)), nil}

		if !bytes.Equal(first, second) {
			ret.Second = newKey(c.rows.edgeRow(second, first, el.Directed, false))
		}

		return ret, nil
	}

	return nil, &util.GraphError{Type: util.ErrSchemaViolation,
		Detail: fmt.Sprintf("Unknown element type %T", e)}
}

/*
ValueFromElement returns the value bytes of a given element.
*/
func (c *Converter) ValueFromElement(e data.Element) ([]byte, error) {

	g, err := c.schema.GroupOf(e)
	if err != nil {
		return nil, err
	}

	return c.ValueFromProperties(g, e.Properties())
}

/*
ValueFromProperties returns the value bytes for the value properties of a
given group.
*/
func (c *Converter) ValueFromProperties(g *schema.GroupDef, props data.Properties) ([]byte, error) {

	val, err := c.packProperties(g, g.PropertiesAt(schema.PositionValue), props)
	if err != nil {
		return nil, err
	}

	return compress(val, c.compression)
}

/*
RecordsFromElement returns the physical keys and the value of an element.
*/
func (c *Converter) RecordsFromElement(e data.Element) ([][]byte, []byte, error) {

	pair, err := c.KeysFromElement(e)
	if err != nil {
		return nil, nil, err
	}

	val, err := c.ValueFromElement(e)
	if err != nil {
		return nil, nil, err
	}

	keys := [][]byte{pair.First.Bytes()}
	if pair.Second != nil {
		keys = append(keys, pair.Second.Bytes())
	}

	return keys, val, nil
}

func (c *Converter) serialiseVertex(v interface{}) ([]byte, error) {
	b, err := c.schema.VertexSerialiser.Serialise(v)
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrSerialisation, Detail: err.Error()}
	}
	return b, nil
}

/*
packProperties serialises and frames a list of properties.
*/
func (c *Converter) packProperties(g *schema.GroupDef, defs []*schema.PropertyDef,
	props data.Properties) ([]byte, error) {

	if len(defs) == 0 {
		return nil, nil
	}

	buf := storage.BufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		storage.BufferPool.Put(buf)
	}()

	for _, p := range defs {
		v := props[p.Name]

		if v == nil {
			appendFramed(buf, nil)
			continue
		}

		b, err := p.Serialiser.Serialise(v)
		if err != nil {
			return nil, &util.GraphError{Type: util.ErrSerialisation,
				Detail: fmt.Sprintf("Group %v property %v: %v", g.Name, p.Name, err)}
		}

		appendFramed(buf, b)
	}

	return append([]byte{}, buf.Bytes()...), nil
}

/*
timestamp returns the key timestamp of an element and a flag if the element
has a timestamp property.
*/
func (c *Converter) timestamp(g *schema.GroupDef, props data.Properties) (bool, int64, error) {

	p := g.PropertyAt(schema.PositionTimestamp)
	if p == nil || props[p.Name] == nil {
		return false, 0, nil
	}

	switch v := props[p.Name].(type) {
	case int64:
		return true, v, nil
	case time.Time:
		return true, v.UnixMilli(), nil
	}

	return false, 0, &util.GraphError{Type: util.ErrSerialisation,
		Detail: fmt.Sprintf("Group %v property %v: invalid timestamp %v (%T)",
			g.Name, p.Name, props[p.Name], props[p.Name])}
}

// Decoding
// ========

/*
ElementFromKey decodes an element from physical key bytes. Only the
identifiers and the properties which are carried in the key are decoded.
*/
func (c *Converter) ElementFromKey(key []byte, opts DecodeOptions) (data.Element, error) {
	e, _, err := c.decodeKey(key, opts)
	return e, err
}

/*
ElementFromRecord decodes an element from a stored record.
*/
func (c *Converter) ElementFromRecord(key []byte, value []byte, opts DecodeOptions) (data.Element, error) {

	e, g, err := c.decodeKey(key, opts)
	if err != nil {
		return nil, err
	}

	props, err := c.PropertiesFromValue(g, value)
	if err != nil {
		return nil, err
	}

	for k, v := range props {
		e.PutProperty(k, v)
	}

	return e, nil
}

/*
PropertiesFromValue decodes the value properties of a group.
*/
func (c *Converter) PropertiesFromValue(g *schema.GroupDef, value []byte) (data.Properties, error) {

	raw, err := decompress(value, c.compression)
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrDecoding, Detail: err.Error()}
	}

	props := make(data.Properties)

	if err := c.unpackProperties(g, g.PropertiesAt(schema.PositionValue), raw, props); err != nil {
		return nil, err
	}

	return props, nil
}

func (c *Converter) decodeKey(key []byte, opts DecodeOptions) (data.Element, *schema.GroupDef, error) {
	var ret data.Element

	k, err := ParseKey(key)
	if err != nil {
		return nil, nil, err
	}

	comps, err := k.RowComponents()
	if err != nil {
		return nil, nil, errCorruptKey(key, err.Error())
	}

	info, err := c.rows.parseRow(comps)
	if err != nil {
		return nil, nil, errCorruptKey(key, err.Error())
	}

	kind, hasKind, group, err := c.rows.parseFamily(k.Family)
	if err != nil {
		return nil, nil, errCorruptKey(key, err.Error())
	}

	g, ok := c.schema.Group(group)
	if !ok || g.Kind != info.kind || (hasKind && kind != info.kind) {
		return nil, nil, errCorruptKey(key, fmt.Sprintf("unknown %v group %v", info.kind, group))
	}

	first, err := c.deserialiseVertex(key, info.first)
	if err != nil {
		return nil, nil, err
	}

	if info.kind == data.KindEntity {
		ret = data.NewEntity(group, first)

	} else {
		second, err := c.deserialiseVertex(key, info.second)
		if err != nil {
			return nil, nil, err
		}

		edge := data.NewEdge(group, first, second, info.directed)

		if info.directed && !info.firstIsSource && !opts.ReturnMatchedSeedAsEdgeSource {
			edge.Source, edge.Destination = second, first
			edge.MatchedVertex = data.MatchedDestination
		}

		ret = edge
	}

	props := ret.Properties()

	if err := c.unpackProperties(g, g.PropertiesAt(schema.PositionQualifier), k.Qualifier, props); err != nil {
		return nil, nil, err
	}

	if err := c.unpackProperties(g, g.PropertiesAt(schema.PositionVisibility), k.Visibility, props); err != nil {
		return nil, nil, err
	}

	if p := g.PropertyAt(schema.PositionTimestamp); p != nil && k.HasTimestamp {
		if p.Type == "date" {
			props[p.Name] = time.UnixMilli(k.Timestamp).UTC()
		} else {
			props[p.Name] = k.Timestamp
		}
	}

	return ret, g, nil
}

func (c *Converter) deserialiseVertex(key []byte, b []byte) (interface{}, error) {
	v, err := c.schema.VertexSerialiser.Deserialise(b)
	if err != nil {
		return nil, errCorruptKey(key, err.Error())
	}
	return v, nil
}

/*
unpackProperties reads framed properties into a given property map.
*/
func (c *Converter) unpackProperties(g *schema.GroupDef, defs []*schema.PropertyDef,
	b []byte, props data.Properties) error {

	if len(defs) == 0 {
		if len(b) != 0 {
			return &util.GraphError{Type: util.ErrDecoding,
				Detail: fmt.Sprintf("Group %v: unexpected property data", g.Name)}
		}
		return nil
	}

	frames, err := readFramed(b, len(defs))
	if err != nil {
		return &util.GraphError{Type: util.ErrDecoding,
			Detail: fmt.Sprintf("Group %v: %v", g.Name, err)}
	}

	for i, p := range defs {
		if frames[i] == nil {
			continue
		}

		v, err := p.Serialiser.Deserialise(frames[i])
		if err != nil {
			return &util.GraphError{Type: util.ErrDecoding,
				Detail: fmt.Sprintf("Group %v property %v: %v", g.Name, p.Name, err)}
		}

		props[p.Name] = v
	}

	return nil
}

/*
RewriteKey returns physical key bytes which keep the row and family of a given
key but carry the qualifier, visibility and timestamp properties of a given
property map.
*/
func (c *Converter) RewriteKey(key []byte, props data.Properties) ([]byte, error) {

	k, err := ParseKey(key)
	if err != nil {
		return nil, err
	}

	_, _, group, err := c.rows.parseFamily(k.Family)
	if err != nil {
		return nil, errCorruptKey(key, err.Error())
	}

	g, ok := c.schema.Group(group)
	if !ok {
		return nil, errCorruptKey(key, fmt.Sprintf("unknown group %v", group))
	}

	nk := &Key{Row: k.Row, Family: k.Family}

	if nk.Qualifier, err = c.packProperties(g, g.PropertiesAt(schema.PositionQualifier), props); err != nil {
		return nil, err
	}

	if nk.Visibility, err = c.packProperties(g, g.PropertiesAt(schema.PositionVisibility), props); err != nil {
		return nil, err
	}

	if nk.HasTimestamp, nk.Timestamp, err = c.timestamp(g, props); err != nil {
		return nil, err
	}

	return nk.Bytes(), nil
}
