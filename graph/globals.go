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
Package graph contains the main API to the graph store.

# Manager API

The main API is provided by a Manager object which can be created with the
NewGraphManager() or Open() constructor functions. The manager runs query
operations, adds elements and compacts the stored records.

# Queries

Every query operation of the operation package is translated into a set of
key ranges. Each range is scanned with the pushdown stages (aggregation,
validation and view filtering) and the surviving records are decoded into
elements. Ranges are scanned concurrently and the results are merged into a
single ElementIterator. Only the order within a range is defined.

# Transactions

A transaction is used to build up multiple store tasks for the graph store.
Nothing is written to the store before calling Commit(). An element is
written under all of its keys at once.

A trans object can be created with the NewGraphTrans() function.

# Rules

Graph rules provide automatic operations which help to keep the main database
consistent. Rules trigger on global graph events. The rule
SystemRuleUpdateGroupStats is automatically loaded when a new Manager is
created.

# Main database

MainDB stores meta information such as the version, the key layout and value
compression which were used to create the store, the schema document and the
number of stored records per group.
*/
package graph

import "devt.de/krotik/common/logutil"

/*
VERSION of the GraphManager
*/
const VERSION = 1

/*
MainDBEntryPrefix is the prefix for entries stored in the main database
*/
const MainDBEntryPrefix = "\x02"

// MainDB entries
// ==============

/*
MainDBVersion is the MainDB entry key for version information
*/
const MainDBVersion = MainDBEntryPrefix + "ver"

/*
MainDBLayout is the MainDB entry key for the key layout of the store
*/
const MainDBLayout = MainDBEntryPrefix + "layout"

/*
MainDBCompression is the MainDB entry key for the value compression of the store
*/
const MainDBCompression = MainDBEntryPrefix + "compression"

/*
MainDBSchema is the MainDB entry key for the schema document
*/
const MainDBSchema = MainDBEntryPrefix + "schema"

/*
MainDBGroups is the MainDB entry key for the list of groups which have records
*/
const MainDBGroups = MainDBEntryPrefix + "groups"

/*
MainDBRecordCount is the MainDB entry key for a record count of a group
*/
const MainDBRecordCount = MainDBEntryPrefix + "rcnt"

// Graph events
// ============

/*
EventElementsAdded is thrown when a transaction wrote elements.

Parameters: written record count per group (map[string]int)
*/
const EventElementsAdded = 0x01

/*
EventStoreCompacted is thrown when a compaction removed records.

Parameters: removed record count per group (map[string]int)
*/
const EventStoreCompacted = 0x02

/*
logger of the graph package
*/
var logger = logutil.GetLogger("kvgraph.graph")
