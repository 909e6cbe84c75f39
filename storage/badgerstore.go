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
	"encoding/binary"
	"errors"
	"sync"

	"devt.de/krotik/common/errorutil"
	"github.com/dgraph-io/badger/v4"
)

/*
Key prefixes of the badger database
*/
const (
	prefixData     = 0x01
	prefixMeta     = 0x02
	prefixSequence = 0x03
)

/*
sequenceBandwidth is the number of versions which are leased at once
*/
const sequenceBandwidth = 1000

/*
BadgerStore is a store which keeps its records in a badger database. Record
keys are stored escaped and followed by the record version so records with
the same key can coexist.
*/
type BadgerStore struct {
	name   string           // Name of the store
	db     *badger.DB       // Badger database
	seq    *badger.Sequence // Version sequence
	mutex  *sync.RWMutex    // Mutex to protect the closed flag
	closed bool             // Flag if the store is closed
}

/*
NewBadgerStore opens a badger store. If the given directory is empty the
store is kept in memory.
*/
func NewBadgerStore(dir string) (*BadgerStore, error) {
	name := dir

	opts := badger.DefaultOptions(dir).WithLogger(nil)

	if dir == "" {
		name = "memory"
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	logger.Info("Opening badger store ", name)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, NewStorageManagerError(ErrOpening, err.Error(), name)
	}

	seq, err := db.GetSequence([]byte{prefixSequence}, sequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, NewStorageManagerError(ErrOpening, err.Error(), name)
	}

	return &BadgerStore{name, db, seq, &sync.RWMutex{}, false}, nil
}

/*
Name returns the name of the store.
*/
func (bs *BadgerStore) Name() string {
	return bs.name
}

/*
dataKey returns the database key of a record.
*/
func dataKey(key []byte, version uint64) []byte {
	buf := BufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		BufferPool.Put(buf)
	}()

	buf.WriteByte(prefixData)
	Escape(buf, key)
	buf.WriteByte(0x00)

	var v [8]byte
	binary.BigEndian.PutUint64(v[:], version)
	buf.Write(v[:])

	return append([]byte{}, buf.Bytes()...)
}

/*
rangeBound returns the database key which corresponds to a range bound.
*/
func rangeBound(key []byte) []byte {
	buf := bytes.NewBuffer([]byte{prefixData})
	Escape(buf, key)
	return buf.Bytes()
}

/*
parseDataKey parses a database key.
*/
func parseDataKey(dk []byte) ([]byte, uint64, error) {
	if len(dk) < 10 || dk[0] != prefixData || dk[len(dk)-9] != 0x00 {
		return nil, 0, errors.New("Invalid data key")
	}

	key, err := Unescape(dk[1 : len(dk)-9])

	return key, binary.BigEndian.Uint64(dk[len(dk)-8:]), err
}

func (bs *BadgerStore) checkClosed(op string) error {
	if bs.closed {
		return NewStorageManagerError(ErrClosed, op, bs.name)
	}
	return nil
}

/*
Write writes a list of records.
*/
func (bs *BadgerStore) Write(records []*Record) error {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if err := bs.checkClosed("Cannot write"); err != nil {
		return err
	}

	wb := bs.db.NewWriteBatch()
	defer wb.Cancel()

	for _, r := range records {
		v, err := bs.seq.Next()
		if err != nil {
			return NewStorageManagerError(ErrWriting, err.Error(), bs.name)
		}

		r.Version = v + 1

		if err := wb.Set(dataKey(r.Key, r.Version), append([]byte{}, r.Value...)); err != nil {
			return NewStorageManagerError(ErrWriting, err.Error(), bs.name)
		}
	}

	if err := wb.Flush(); err != nil {
		return NewStorageManagerError(ErrWriting, err.Error(), bs.name)
	}

	return nil
}

/*
Delete deletes a list of records identified by key and version.
*/
func (bs *BadgerStore) Delete(records []*Record) error {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if err := bs.checkClosed("Cannot delete"); err != nil {
		return err
	}

	wb := bs.db.NewWriteBatch()
	defer wb.Cancel()

	for _, r := range records {
		if err := wb.Delete(dataKey(r.Key, r.Version)); err != nil {
			return NewStorageManagerError(ErrWriting, err.Error(), bs.name)
		}
	}

	if err := wb.Flush(); err != nil {
		return NewStorageManagerError(ErrWriting, err.Error(), bs.name)
	}

	return nil
}

/*
Scan returns an iterator over all records in a given range. The iterator
holds a read transaction until it is closed.
*/
func (bs *BadgerStore) Scan(ctx context.Context, r Range, stages ...Stage) Iterator {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if err := bs.checkClosed("Cannot scan"); err != nil {
		return &ErrorIterator{err}
	}

	txn := bs.db.NewTransaction(false)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte{prefixData}

	it := &badgerIterator{ctx: ctx, store: bs, txn: txn, it: txn.NewIterator(opts)}

	if r.End != nil {
		it.end = rangeBound(r.End)
	}

	it.it.Seek(rangeBound(r.Start))

	return applyStages(it, stages)
}

/*
badgerIterator iterates over the records of a badger read transaction.
*/
type badgerIterator struct {
	ctx       context.Context  // Context of the scan
	store     *BadgerStore     // Store which created the iterator
	txn       *badger.Txn      // Read transaction
	it        *badger.Iterator // Badger iterator
	end       []byte           // End bound (exclusive)
	closed    bool             // Flag if the iterator is closed
	LastError error            // Last encountered error
}

/*
HasNext returns if there is a next record.
*/
func (it *badgerIterator) HasNext() bool {
	if it.closed || it.LastError != nil {
		return false
	}

	if it.ctx != nil && it.ctx.Err() != nil {
		it.LastError = it.ctx.Err()
		return false
	}

	if !it.it.Valid() {
		return false
	}

	return it.end == nil || bytes.Compare(it.it.Item().Key(), it.end) < 0
}

/*
Next returns the next record.
*/
func (it *badgerIterator) Next() *Record {
	if !it.HasNext() {
		return nil
	}

	item := it.it.Item()

	key, version, err := parseDataKey(item.Key())
	if err == nil {
		var value []byte

		if value, err = item.ValueCopy(nil); err == nil {
			it.it.Next()
			return &Record{key, value, version}
		}
	}

	it.LastError = NewStorageManagerError(ErrReading, err.Error(), it.store.name)

	return nil
}

/*
Error returns the last encountered error.
*/
func (it *badgerIterator) Error() error {
	return it.LastError
}

/*
Close releases the read transaction of the iterator.
*/
func (it *badgerIterator) Close() error {
	if !it.closed {
		it.closed = true
		it.it.Close()
		it.txn.Discard()
	}
	return nil
}

/*
Meta returns a metadata value or nil if it does not exist.
*/
func (bs *BadgerStore) Meta(name string) ([]byte, error) {
	var ret []byte

	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if err := bs.checkClosed("Cannot read metadata"); err != nil {
		return nil, err
	}

	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(append([]byte{prefixMeta}, name...))
		if err == badger.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return err
		}

		ret, err = item.ValueCopy(nil)

		return err
	})

	if err != nil {
		return nil, NewStorageManagerError(ErrReading, err.Error(), bs.name)
	}

	return ret, nil
}

/*
SetMeta sets a metadata value.
*/
func (bs *BadgerStore) SetMeta(name string, value []byte) error {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if err := bs.checkClosed("Cannot write metadata"); err != nil {
		return err
	}

	err := bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(append([]byte{prefixMeta}, name...), append([]byte{}, value...))
	})

	if err != nil {
		return NewStorageManagerError(ErrWriting, err.Error(), bs.name)
	}

	return nil
}

/*
Close closes the store. All scan iterators must be closed before the store
is closed.
*/
func (bs *BadgerStore) Close() error {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()

	if bs.closed {
		return nil
	}

	logger.Info("Closing badger store ", bs.name)

	bs.closed = true

	ce := errorutil.NewCompositeError()

	if err := bs.seq.Release(); err != nil {
		ce.Add(err)
	}

	if err := bs.db.Close(); err != nil {
		ce.Add(err)
	}

	if ce.HasErrors() {
		return ce
	}

	return nil
}
