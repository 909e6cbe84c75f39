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

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/kvgraph/graph/function"
	"devt.de/krotik/kvgraph/graph/serialisation"
	"devt.de/krotik/kvgraph/graph/util"
	"github.com/xeipuuv/gojsonschema"
)

/*
Meta schemas for schema and view documents
*/
var (
	schemaMetaSchema *gojsonschema.Schema
	viewMetaSchema   *gojsonschema.Schema
)

func init() {
	var err error

	names := func(l []string) []interface{} {
		var ret []interface{}
		for _, s := range l {
			ret = append(ret, s)
		}
		return ret
	}

	property := map[string]interface{}{
		"type":                 "object",
		"required":             []interface{}{"name", "type"},
		"additionalProperties": false,
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"type": "string", "minLength": 1},
			"type": map[string]interface{}{"enum": names(serialisation.Names())},
			"position": map[string]interface{}{"enum": []interface{}{
				string(PositionValue), string(PositionQualifier),
				string(PositionVisibility), string(PositionTimestamp)}},
			"aggregate": map[string]interface{}{"enum": names(function.AggregateNames())},
			"validator": map[string]interface{}{"type": "string"},
			"required":  map[string]interface{}{"type": "boolean"},
		},
	}

	group := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]interface{}{
			"properties": map[string]interface{}{"type": "array", "items": property},
			"validator":  map[string]interface{}{"type": "string"},
			"aggregate":  map[string]interface{}{"type": "boolean"},
		},
	}

	schemaMetaSchema, err = gojsonschema.NewSchema(gojsonschema.NewGoLoader(map[string]interface{}{
		"type":                 "object",
		"required":             []interface{}{"vertexSerialiser"},
		"additionalProperties": false,
		"properties": map[string]interface{}{
			"vertexSerialiser": map[string]interface{}{"enum": names(serialisation.Names())},
			"entities":         map[string]interface{}{"type": "object", "additionalProperties": group},
			"edges":            map[string]interface{}{"type": "object", "additionalProperties": group},
		},
	}))
	errorutil.AssertOk(err)

	viewGroup := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]interface{}{
			"filter": map[string]interface{}{"type": "string"},
			"transform": map[string]interface{}{
				"type":                 "object",
				"additionalProperties": map[string]interface{}{"type": "string"},
			},
		},
	}

	viewMetaSchema, err = gojsonschema.NewSchema(gojsonschema.NewGoLoader(map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]interface{}{
			"entities": map[string]interface{}{"type": "object", "additionalProperties": viewGroup},
			"edges":    map[string]interface{}{"type": "object", "additionalProperties": viewGroup},
		},
	}))
	errorutil.AssertOk(err)
}

/*
checkMetaSchema checks a given JSON document against a meta schema. All
violations are reported in a single error.
*/
func checkMetaSchema(meta *gojsonschema.Schema, doc []byte) error {

	res, err := meta.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprint("Could not parse document: ", err)}
	}

	if !res.Valid() {
		ce := errorutil.NewCompositeError()

		for _, desc := range res.Errors() {
			ce.Add(fmt.Errorf("%v", desc.String()))
		}

		return &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprint("Document does not match meta schema: ", ce.Error())}
	}

	return nil
}
