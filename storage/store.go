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
Package storage contains the ordered key/value stores which hold the records
of a graph store. Keys are byte sortable and values are opaque bytes.

Records with the same key can coexist. Every written record gets a store
assigned version which is unique within the store. Records are returned in
key order and records with the same key in version order.

Scans can be extended with stages. A stage wraps the iterator of a scan and
runs inside the store, i.e. before any record is returned to the caller.
There are 2 implementations:

# MemoryStore

A store which keeps all its data in a btree. Scans operate on a
snapshot of the data.

# BadgerStore

A store which keeps its data in a badger database. Scans hold a read
transaction which is released when the scan iterator is closed.
*/
package storage

import (
	"bytes"
	"context"
	"fmt"
)

/*
Record is a single key/value record.
*/
type Record struct {
	Key     []byte // Key of the record
	Value   []byte // Value of the record
	Version uint64 // Store assigned version (0 for records which were not yet written)
}

/*
String returns a string representation of a record.
*/
func (r *Record) String() string {
	return fmt.Sprintf("Record[%x (v%v) = %x]", r.Key, r.Version, r.Value)
}

/*
Range is a key range [Start, End). A nil Start means the beginning and a nil
End the end of the store.
*/
type Range struct {
	Start []byte
	End   []byte
}

/*
Contains checks if a given key is in this range.
*/
func (r Range) Contains(key []byte) bool {
	return (r.Start == nil || bytes.Compare(key, r.Start) >= 0) &&
		(r.End == nil || bytes.Compare(key, r.End) < 0)
}

/*
String returns a string representation of a range.
*/
func (r Range) String() string {
	return fmt.Sprintf("Range[%x - %x)", r.Start, r.End)
}

/*
Iterator iterates over records.
*/
type Iterator interface {

	/*
		HasNext returns if there is a next record.
	*/
	HasNext() bool

	/*
		Next returns the next record.
	*/
	Next() *Record

	/*
		Error returns the last encountered error. An iterator stops on the
		first error.
	*/
	Error() error

	/*
		Close releases all resources of the iterator. Close can be called
		multiple times.
	*/
	Close() error
}

/*
Stage is a scan extension which wraps the iterator of a scan.
*/
type Stage func(Iterator) Iterator

/*
Store is an ordered key/value store.
*/
type Store interface {

	/*
		Name returns the name of the store.
	*/
	Name() string

	/*
		Write writes a list of records. The version of each record is set by
		the store.
	*/
	Write(records []*Record) error

	/*
		Delete deletes a list of records identified by key and version.
	*/
	Delete(records []*Record) error

	/*
		Scan returns an iterator over all records in a given range. The
		given stages wrap the iterator in order. The scan stops when the
		given context is done.
	*/
	Scan(ctx context.Context, r Range, stages ...Stage) Iterator

	/*
		Meta returns a metadata value or nil if it does not exist.
	*/
	Meta(name string) ([]byte, error)

	/*
		SetMeta sets a metadata value.
	*/
	SetMeta(name string, value []byte) error

	/*
		Close closes the store.
	*/
	Close() error
}

/*
applyStages wraps an iterator with a list of stages.
*/
func applyStages(it Iterator, stages []Stage) Iterator {
	for _, s := range stages {
		it = s(it)
	}
	return it
}

/*
ErrorIterator is an iterator which only returns an error.
*/
type ErrorIterator struct {
	LastError error
}

/*
HasNext returns if there is a next record.
*/
func (it *ErrorIterator) HasNext() bool {
	return false
}

/*
Next returns the next record.
*/
func (it *ErrorIterator) Next() *Record {
	return nil
}

/*
Error returns the last encountered error.
*/
func (it *ErrorIterator) Error() error {
	return it.LastError
}

/*
Close releases all resources of the iterator.
*/
func (it *ErrorIterator) Close() error {
	return nil
}

/*
SliceIterator iterates over a list of records.
*/
type SliceIterator struct {
	ctx       context.Context // Context of the scan
	records   []*Record       // Records to iterate
	pos       int             // Current position
	LastError error           // Last encountered error
}

/*
NewSliceIterator creates a new iterator over a list of records.
*/
func NewSliceIterator(ctx context.Context, records []*Record) *SliceIterator {
	return &SliceIterator{ctx, records, 0, nil}
}

/*
HasNext returns if there is a next record.
*/
func (it *SliceIterator) HasNext() bool {
	if it.LastError == nil && it.ctx != nil && it.ctx.Err() != nil {
		it.LastError = it.ctx.Err()
	}
	return it.LastError == nil && it.pos < len(it.records)
}

/*
Next returns the next record.
*/
func (it *SliceIterator) Next() *Record {
	if !it.HasNext() {
		return nil
	}

	r := it.records[it.pos]
	it.pos++

	return r
}

/*
Error returns the last encountered error.
*/
func (it *SliceIterator) Error() error {
	return it.LastError
}

/*
Close releases all resources of the iterator.
*/
func (it *SliceIterator) Close() error {
	it.records = nil
	it.pos = 0
	return nil
}
