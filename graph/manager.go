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
	"fmt"
	"strconv"
	"sync"

	"devt.de/krotik/kvgraph/config"
	"devt.de/krotik/kvgraph/graph/codec"
	"devt.de/krotik/kvgraph/graph/graphstorage"
	"devt.de/krotik/kvgraph/graph/pushdown"
	"devt.de/krotik/kvgraph/graph/schema"
	"devt.de/krotik/kvgraph/graph/util"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/semaphore"
)

/*
Manager data structure
*/
type Manager struct {
	gs         graphstorage.Storage         // Graph storage of this graph manager
	gr         *graphRulesManager           // Manager for graph rules
	cfg        config.Properties            // Configuration of this graph manager
	schema     *schema.Schema               // Schema of the store
	schemaDoc  string                       // Serialised schema which is passed to the scan stages
	conv       *codec.Converter             // Element converter of the store
	setups     *pushdown.SetupCache         // Cache for parsed scan setups
	scanSlots  *semaphore.Weighted          // Slots which bound the number of reading scans
	commitPool *ants.Pool                   // Pool which runs the commits of rolling transactions
	mapCache   map[string]map[string]string // Cache which caches maps stored in the main database
	mutex      *sync.RWMutex                // Mutex to protect atomic graph operations
	closed     bool                         // Flag if this graph manager was closed
}

/*
Traits are the capabilities of a graph store.
*/
type Traits struct {
	Aggregation     bool // Records of the same element are merged
	Filtering       bool // Views are applied inside the scan
	StoreValidation bool // Stored records are validated inside the scan
	Transformation  bool // Views can transform the properties of results
}

/*
Open creates a graph storage from a given configuration and returns a new
GraphManager for it. If no schema is given the schema which is stored in the
graph storage is used.
*/
func Open(cfg config.Properties, s *schema.Schema) (*Manager, error) {

	if err := cfg.Check(); err != nil {
		return nil, &util.GraphError{Type: util.ErrIllegalConfiguration, Detail: err.Error()}
	}

	gs, err := graphstorage.NewGraphStorage(cfg)
	if err != nil {
		return nil, err
	}

	gm, err := NewGraphManager(gs, s, cfg)
	if err != nil {
		gs.Close()
	}

	return gm, err
}

/*
NewGraphManager returns a new GraphManager instance. The key layout and value
compression of a graph storage are fixed when the first GraphManager is
created for it. If no schema is given the schema which is stored in the graph
storage is used.
*/
func NewGraphManager(gs graphstorage.Storage, s *schema.Schema, cfg config.Properties) (*Manager, error) {
	gm, err := createGraphManager(gs, s, cfg)

	if err == nil {
		gm.SetGraphRule(&SystemRuleUpdateGroupStats{})
	}

	return gm, err
}

/*
createGraphManager creates a new GraphManager instance.
*/
func createGraphManager(gs graphstorage.Storage, s *schema.Schema, cfg config.Properties) (*Manager, error) {
	var err error

	if err = cfg.Check(); err != nil {
		return nil, &util.GraphError{Type: util.ErrIllegalConfiguration, Detail: err.Error()}
	}

	mdb := gs.MainDB()

	// Check version

	if version, ok := mdb[MainDBVersion]; !ok {

		mdb[MainDBVersion] = strconv.Itoa(VERSION)

	} else if v, _ := strconv.Atoi(version); v > VERSION {

		return nil, &util.GraphError{Type: util.ErrOpening,
			Detail: fmt.Sprintf("Cannot open graph storage of version: %v - "+
				"max supported version: %v", version, VERSION)}
	}

	// Check that layout and compression were not changed

	checkFixed := func(key string, name string, val string) error {
		if stored, ok := mdb[key]; ok && stored != val {
			return &util.GraphError{Type: util.ErrOpening,
				Detail: fmt.Sprintf("Graph storage was created with %v %v - configured %v is %v",
					name, stored, name, val)}
		}
		mdb[key] = val
		return nil
	}

	if err = checkFixed(MainDBLayout, "layout", cfg.Str(config.StoreLayout)); err != nil {
		return nil, err
	}

	if err = checkFixed(MainDBCompression, "compression", cfg.Str(config.ValueCompression)); err != nil {
		return nil, err
	}

	// Load or store the schema

	if s == nil {

		doc, ok := mdb[MainDBSchema]
		if !ok {
			return nil, &util.GraphError{Type: util.ErrOpening,
				Detail: "No schema given and no schema stored"}
		}

		if s, err = schema.FromJSON([]byte(doc)); err != nil {
			return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
		}
	}

	doc, err := s.ToJSON()
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
	}

	mdb[MainDBSchema] = string(doc)

	gm := &Manager{gs, &graphRulesManager{nil, make(map[string]Rule),
		make(map[int]map[string]Rule)}, cfg, s, string(doc), nil,
		pushdown.NewSetupCache(uint64(cfg.Int(config.SetupCacheMaxSize))),
		semaphore.NewWeighted(cfg.Int(config.MaxConcurrentScans)), nil,
		make(map[string]map[string]string), &sync.RWMutex{}, false}

	gm.gr.gm = gm

	layout, err := codec.ParseLayout(cfg.Str(config.StoreLayout))
	if err != nil {
		return nil, err
	}

	compression, err := codec.ParseCompression(cfg.Str(config.ValueCompression))
	if err != nil {
		return nil, err
	}

	if gm.conv, err = codec.NewConverter(s, layout, compression); err != nil {
		return nil, err
	}

	gm.commitPool, err = ants.NewPool(int(cfg.Int(config.CommitThreads)), ants.WithPanicHandler(func(v interface{}) {
		logger.Error("Commit task panic: ", v)
	}))
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrIllegalConfiguration, Detail: err.Error()}
	}

	if err = gs.FlushMain(); err != nil {
		gm.commitPool.Release()
		return nil, err
	}

	logger.Info(fmt.Sprintf("Opened %v (layout: %v compression: %v)", gm.Name(), layout, compression))

	return gm, nil
}

/*
Name returns the name of this graph manager.
*/
func (gm *Manager) Name() string {
	return fmt.Sprint("Graph ", gm.gs.Name())
}

/*
Schema returns the schema of the store.
*/
func (gm *Manager) Schema() *schema.Schema {
	return gm.schema
}

/*
Converter returns the element converter of the store.
*/
func (gm *Manager) Converter() *codec.Converter {
	return gm.conv
}

/*
Traits returns the capabilities of the store.
*/
func (gm *Manager) Traits() Traits {
	return Traits{Aggregation: true, Filtering: true, StoreValidation: true, Transformation: true}
}

/*
SetGraphRule sets a GraphRule.
*/
func (gm *Manager) SetGraphRule(rule Rule) {
	gm.gr.SetGraphRule(rule)
}

/*
GraphRules returns a list of all available graph rules.
*/
func (gm *Manager) GraphRules() []string {
	return gm.gr.GraphRules()
}

/*
Groups returns all groups which have stored records.
*/
func (gm *Manager) Groups() []string {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	return gm.mainStringList(MainDBGroups)
}

/*
RecordCount returns the number of stored records of a group. Every edge is
stored under two keys (one for self loops). Records which are merged by a
compaction are not counted anymore.
*/
func (gm *Manager) RecordCount(group string) uint64 {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	return gm.readCount(group)
}

/*
Close closes this graph manager and its graph storage. Running scans should
be closed before.
*/
func (gm *Manager) Close() error {
	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	if gm.closed {
		return nil
	}

	gm.closed = true
	gm.commitPool.Release()

	logger.Info("Closing ", gm.Name())

	return gm.gs.Close()
}

/*
checkClosed returns an error if this graph manager was closed.
*/
func (gm *Manager) checkClosed() error {
	if gm.closed {
		return &util.GraphError{Type: util.ErrClosing, Detail: gm.Name() + " is closed"}
	}
	return nil
}
