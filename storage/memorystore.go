/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package storage

import (
	"bytes"
	"context"
	"sync"

	"github.com/google/btree"
)

/*
MemoryStore is a store which keeps all records in memory in a btree ordered
by key and version.
*/
type MemoryStore struct {
	name    string                 // Name of the store
	mutex   *sync.RWMutex          // Mutex to protect the data
	records *btree.BTreeG[*Record] // Ordered records
	meta    map[string][]byte      // Metadata
	version uint64                 // Last assigned version
	closed  bool                   // Flag if the store is closed
}

/*
NewMemoryStore creates a new memory store.
*/
func NewMemoryStore(name string) *MemoryStore {
	logger.Info("Opening memory store ", name)

	return &MemoryStore{name, &sync.RWMutex{}, btree.NewG(32, lessRecord),
		make(map[string][]byte), 0, false}
}

/*
Name returns the name of the store.
*/
func (ms *MemoryStore) Name() string {
	return ms.name
}

/*
lessRecord orders records by key and version.
*/
func lessRecord(r1, r2 *Record) bool {
	if c := bytes.Compare(r1.Key, r2.Key); c != 0 {
		return c < 0
	}
	return r1.Version < r2.Version
}

/*
Write writes a list of records.
*/
func (ms *MemoryStore) Write(records []*Record) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	if ms.closed {
		return NewStorageManagerError(ErrClosed, "Cannot write", ms.name)
	}

	for _, r := range records {
		ms.version++

		r.Version = ms.version

		ms.records.ReplaceOrInsert(&Record{append([]byte{}, r.Key...),
			append([]byte{}, r.Value...), ms.version})
	}

	return nil
}

/*
Delete deletes a list of records identified by key and version.
*/
func (ms *MemoryStore) Delete(records []*Record) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	if ms.closed {
		return NewStorageManagerError(ErrClosed, "Cannot delete", ms.name)
	}

	for _, r := range records {
		ms.records.Delete(&Record{Key: r.Key, Version: r.Version})
	}

	return nil
}

/*
Scan returns an iterator over all records in a given range.
*/
func (ms *MemoryStore) Scan(ctx context.Context, r Range, stages ...Stage) Iterator {
	var snapshot []*Record

	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	if ms.closed {
		return &ErrorIterator{NewStorageManagerError(ErrClosed, "Cannot scan", ms.name)}
	}

	collect := func(rec *Record) bool {
		if r.End != nil && bytes.Compare(rec.Key, r.End) >= 0 {
			return false
		}
		snapshot = append(snapshot, rec)
		return true
	}

	if r.Start != nil {
		ms.records.AscendGreaterOrEqual(&Record{Key: r.Start}, collect)
	} else {
		ms.records.Ascend(collect)
	}

	return applyStages(NewSliceIterator(ctx, snapshot), stages)
}

/*
Meta returns a metadata value or nil if it does not exist.
*/
func (ms *MemoryStore) Meta(name string) ([]byte, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	if ms.closed {
		return nil, NewStorageManagerError(ErrClosed, "Cannot read metadata", ms.name)
	}

	return ms.meta[name], nil
}

/*
SetMeta sets a metadata value.
*/
func (ms *MemoryStore) SetMeta(name string, value []byte) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	if ms.closed {
		return NewStorageManagerError(ErrClosed, "Cannot write metadata", ms.name)
	}

	ms.meta[name] = append([]byte{}, value...)

	return nil
}

/*
Close closes the store.
*/
func (ms *MemoryStore) Close() error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	if !ms.closed {
		logger.Info("Closing memory store ", ms.name)
		ms.closed = true
		ms.records.Clear(false)
	}

	return nil
}

/*
Size returns the number of records in the store.
*/
func (ms *MemoryStore) Size() int {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	return ms.records.Len()
}
