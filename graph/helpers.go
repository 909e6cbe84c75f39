/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"sort"
	"strconv"

	"devt.de/krotik/kvgraph/graph/pushdown"
	"devt.de/krotik/kvgraph/graph/schema"
)

// Helper functions for GraphManager
// =================================

/*
options returns the pushdown options for a query with a given view.
*/
func (gm *Manager) options(view *schema.View, returnMatchedSeedAsEdgeSource bool) (pushdown.Options, error) {

	if view == nil {
		view = schema.DefaultView(gm.schema)
	}

	viewDoc, err := view.ToJSON()
	if err != nil {
		return nil, err
	}

	return pushdown.Options{
		pushdown.OptionSchema:                        gm.schemaDoc,
		pushdown.OptionView:                          string(viewDoc),
		pushdown.OptionElementConverter:              gm.conv.Layout().String(),
		pushdown.OptionValueCompression:              gm.conv.Compression().String(),
		pushdown.OptionReturnMatchedSeedAsEdgeSource: strconv.FormatBool(returnMatchedSeedAsEdgeSource),
	}, nil
}

/*
readCount reads a record count for a specific group from the main database.
*/
func (gm *Manager) readCount(group string) uint64 {

	if val, ok := gm.gs.MainDB()[MainDBRecordCount+group]; ok {
		return binary.LittleEndian.Uint64([]byte(val))
	}

	return 0
}

/*
writeCount writes a new record count for a specific group to the main database.
*/
func (gm *Manager) writeCount(group string, count uint64) {
	numstr := make([]byte, 8)

	binary.LittleEndian.PutUint64(numstr, count)
	gm.gs.MainDB()[MainDBRecordCount+group] = string(numstr)
}

/*
mainStringList returns a sorted list of the keys of a map in the main database.
*/
func (gm *Manager) mainStringList(name string) []string {
	items := gm.getMainDBMap(name)

	var ret []string

	if items != nil {
		for item := range items {
			ret = append(ret, item)
		}
	}

	sort.StringSlice(ret).Sort()

	return ret
}

/*
getMainDBMap gets a map from the main database.
*/
func (gm *Manager) getMainDBMap(key string) map[string]string {

	// First try to cache

	mapval, ok := gm.mapCache[key]
	if ok {
		return mapval
	}

	// Lookup map and decode it

	val, ok := gm.gs.MainDB()[key]
	if ok {
		mapval = stringToMap(val)
		gm.mapCache[key] = mapval
	}

	return mapval
}

/*
storeMainDBMap stores a map in the main database. The map is stored as a gob byte slice.
Once it has been decoded it is cached for read operations.
*/
func (gm *Manager) storeMainDBMap(key string, mapval map[string]string) {
	gm.mapCache[key] = mapval
	gm.gs.MainDB()[key] = mapToString(mapval)
}

// Static helper functions
// =======================

/*
mapToString turns a map of strings into a single string.
*/
func mapToString(stringmap map[string]string) string {
	bb := &bytes.Buffer{}

	gob.NewEncoder(bb).Encode(stringmap)

	return string(bb.Bytes())
}

/*
stringToMap turns a string into a map of strings.
*/
func stringToMap(mapString string) map[string]string {
	var stringmap map[string]string

	if err := gob.NewDecoder(bytes.NewBufferString(mapString)).Decode(&stringmap); err != nil {
		panic(fmt.Sprint("Cannot decode:", mapString, err))
	}

	return stringmap
}
