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
Package graphstorage contains classes which model storage objects for graph data.

A StoreGraphStorage wraps an ordered key/value store. The main database is
kept in memory and written as a single gob encoded metadata value of the
store. The
store is either a memory-only store or a badger store on disk.
*/
package graphstorage

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"devt.de/krotik/common/fileutil"
	"devt.de/krotik/kvgraph/config"
	"devt.de/krotik/kvgraph/graph/util"
	"devt.de/krotik/kvgraph/storage"
)

/*
MetaMainDB is the name of the store metadata value which holds the main
database
*/
const MetaMainDB = "main"

/*
StoreGraphStorage data structure
*/
type StoreGraphStorage struct {
	name   string            // Name of the graph storage
	store  storage.Store     // Store holding all records
	mainDB map[string]string // Main database
}

/*
NewGraphStorage creates a new graph storage from a given configuration.
*/
func NewGraphStorage(cfg config.Properties) (Storage, error) {

	if cfg.Bool(config.MemoryOnlyStorage) {
		return NewMemoryGraphStorage("memory")
	}

	return NewDiskGraphStorage(cfg.Str(config.LocationDatastore))
}

/*
NewMemoryGraphStorage creates a new memory-only graph storage.
*/
func NewMemoryGraphStorage(name string) (Storage, error) {
	return newStoreGraphStorage(name, storage.NewMemoryStore(name))
}

/*
NewDiskGraphStorage creates a new graph storage which keeps its records in a
badger store on disk. The storage directory is created if it does not exist.
*/
func NewDiskGraphStorage(name string) (Storage, error) {

	if res, _ := fileutil.PathExists(name); !res {
		if err := os.MkdirAll(name, 0770); err != nil {
			return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
		}
	}

	bs, err := storage.NewBadgerStore(name)
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
	}

	return newStoreGraphStorage(name, bs)
}

/*
newStoreGraphStorage wraps a given store and loads its main database.
*/
func newStoreGraphStorage(name string, store storage.Store) (Storage, error) {
	sgs := &StoreGraphStorage{name, store, nil}

	if err := sgs.loadMain(); err != nil {
		store.Close()
		return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
	}

	return sgs, nil
}

/*
loadMain reads the main database from the store.
*/
func (sgs *StoreGraphStorage) loadMain() error {
	mainDB := make(map[string]string)

	val, err := sgs.store.Meta(MetaMainDB)

	if err == nil && val != nil {
		err = gob.NewDecoder(bytes.NewReader(val)).Decode(&mainDB)
	}

	if err == nil {
		sgs.mainDB = mainDB
	}

	return err
}

/*
Name returns the name of the StoreGraphStorage instance.
*/
func (sgs *StoreGraphStorage) Name() string {
	return sgs.name
}

/*
MainDB returns the main database.
*/
func (sgs *StoreGraphStorage) MainDB() map[string]string {
	return sgs.mainDB
}

/*
RollbackMain rollback the main database.
*/
func (sgs *StoreGraphStorage) RollbackMain() error {
	if err := sgs.loadMain(); err != nil {
		return &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	}
	return nil
}

/*
FlushMain writes the main database to the storage.
*/
func (sgs *StoreGraphStorage) FlushMain() error {

	var buf bytes.Buffer

	err := gob.NewEncoder(&buf).Encode(sgs.mainDB)

	if err == nil {
		err = sgs.store.SetMeta(MetaMainDB, buf.Bytes())
	}

	if err != nil {
		return &util.GraphError{Type: util.ErrWriting, Detail: err.Error()}
	}

	return nil
}

/*
Store returns the ordered key/value store which holds the element records.
*/
func (sgs *StoreGraphStorage) Store() storage.Store {
	return sgs.store
}

/*
Close closes the storage.
*/
func (sgs *StoreGraphStorage) Close() error {

	err := sgs.FlushMain()

	if cerr := sgs.store.Close(); cerr != nil {
		err = cerr
	}

	if err != nil {
		return &util.GraphError{Type: util.ErrClosing, Detail: fmt.Sprint(sgs.name, " :", err.Error())}
	}

	return nil
}
