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
Package pushdown contains the record level scan extensions of the graph store.

Validator, Filter and Aggregator are created from string keyed options and
are returned as storage stages which run inside a store scan:

	Aggregator (by key) -> Aggregator (by element) -> Validator -> Filter

The options carry the serialised schema and view as well as the identifiers
of the key layout and the value compression. Parsed options are cached in a
SetupCache so repeated scans with the same options share one immutable Setup.
*/
package pushdown

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"devt.de/krotik/common/datautil"
	"devt.de/krotik/common/stringutil"
	"devt.de/krotik/kvgraph/graph/codec"
	"devt.de/krotik/kvgraph/graph/schema"
	"devt.de/krotik/kvgraph/graph/util"
)

/*
Known setup options
*/
const (
	OptionSchema                        = "schema"
	OptionView                          = "view"
	OptionElementConverter              = "elementConverter"
	OptionValueCompression              = "valueCompression"
	OptionReturnMatchedSeedAsEdgeSource = "returnMatchedSeedAsEdgeSource"
)

/*
Options are the string keyed setup options of a scan extension.
*/
type Options map[string]string

/*
ValidateOptions checks that all required options are present.
*/
func ValidateOptions(opts Options, required ...string) error {
	for _, name := range required {
		if _, ok := opts[name]; !ok {
			return &util.GraphError{Type: util.ErrIllegalConfiguration,
				Detail: fmt.Sprintf("Missing required option: %v", name)}
		}
	}
	return nil
}

/*
hash returns a stable hash of a set of options.
*/
func (opts Options) hash() string {
	var buf bytes.Buffer

	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		buf.WriteString(strconv.Quote(k))
		buf.WriteString("=")
		buf.WriteString(strconv.Quote(opts[k]))
		buf.WriteString(";")
	}

	return stringutil.MD5HexString(buf.String())
}

/*
Setup is the parsed and immutable form of a set of options. A setup can be
shared between concurrent scans.
*/
type Setup struct {
	Schema    *schema.Schema      // Schema of the store
	View      *schema.View        // View of the query (nil if no view was given)
	Converter *codec.Converter    // Element converter
	Decode    codec.DecodeOptions // Options for decoding elements
}

/*
SetupCache caches parsed setups by the hash of their options.
*/
type SetupCache struct {
	cache *datautil.MapCache
}

/*
NewSetupCache creates a new cache which holds up to a given number of setups.
*/
func NewSetupCache(maxsize uint64) *SetupCache {
	return &SetupCache{datautil.NewMapCache(maxsize, 0)}
}

/*
DefaultSetupCache is used by the option based constructors of this package.
*/
var DefaultSetupCache = NewSetupCache(100)

/*
Setup returns the parsed setup of a set of options. The schema and the
element converter option are always required.
*/
func (sc *SetupCache) Setup(opts Options, required ...string) (*Setup, error) {

	if err := ValidateOptions(opts, append([]string{OptionSchema, OptionElementConverter}, required...)...); err != nil {
		return nil, err
	}

	h := opts.hash()

	if s, ok := sc.cache.Get(h); ok {
		return s.(*Setup), nil
	}

	s, err := newSetup(opts)
	if err != nil {
		return nil, err
	}

	sc.cache.Put(h, s)

	return s, nil
}

func newSetup(opts Options) (*Setup, error) {
	var err error

	illegal := func(name string, err error) error {
		return &util.GraphError{Type: util.ErrIllegalConfiguration,
			Detail: fmt.Sprintf("Invalid option %v: %v", name, err)}
	}

	ret := &Setup{}

	if ret.Schema, err = schema.FromJSON([]byte(opts[OptionSchema])); err != nil {
		return nil, illegal(OptionSchema, err)
	}

	if doc, ok := opts[OptionView]; ok {

		if ret.View, err = schema.ViewFromJSON([]byte(doc)); err == nil {
			err = ret.View.Check(ret.Schema)
		}

		if err != nil {
			return nil, illegal(OptionView, err)
		}
	}

	layout, err := codec.ParseLayout(opts[OptionElementConverter])
	if err != nil {
		return nil, err
	}

	compression, err := codec.ParseCompression(opts[OptionValueCompression])
	if err != nil {
		return nil, err
	}

	if ret.Converter, err = codec.NewConverter(ret.Schema, layout, compression); err != nil {
		return nil, err
	}

	if flag, ok := opts[OptionReturnMatchedSeedAsEdgeSource]; ok {
		if ret.Decode.ReturnMatchedSeedAsEdgeSource, err = strconv.ParseBool(flag); err != nil {
			return nil, illegal(OptionReturnMatchedSeedAsEdgeSource, err)
		}
	}

	return ret, nil
}
