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
	"sync"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/kvgraph/graph/data"
	"devt.de/krotik/kvgraph/graph/util"
	"devt.de/krotik/kvgraph/storage"
)

/*
Trans is a transaction object which should be used to group element writes.
*/
type Trans interface {

	/*
	   ID returns a unique transaction ID.
	*/
	ID() string

	/*
	   String returns a string representation of this transatction.
	*/
	String() string

	/*
	   Counts returns the transaction size in terms of objects. Returned values
	   are entities to store and edges to store.
	*/
	Counts() (int, int)

	/*
	   IsEmpty returns if this transaction is empty.
	*/
	IsEmpty() bool

	/*
	   Commit writes the transaction to the graph store. The written records
	   and the main database are rolled back if a graph rule fails. Failed
	   transactions are emptied.
	*/
	Commit() error

	/*
	   StoreElement converts an element into records and adds them to the
	   transaction. The element is not validated against the schema.
	*/
	StoreElement(e data.Element) error
}

/*
NewGraphTrans creates a new graph transaction. This object is not thread safe
and should only be used for non-concurrent use cases; use NewConcurrentGraphTrans
for concurrent use cases.
*/
func NewGraphTrans(gm *Manager) Trans {
	return newInternalGraphTrans(gm)
}

/*
NewConcurrentGraphTrans creates a new thread-safe graph transaction.
*/
func NewConcurrentGraphTrans(gm *Manager) Trans {
	return &concurrentTrans{NewGraphTrans(gm), &sync.RWMutex{}}
}

/*
NewRollingTrans wraps an existing transaction into a rolling transaction.
Rolling transactions can be used for VERY large datasets and will commit
themselves after n operations. Rolling transactions are always thread-safe.
*/
func NewRollingTrans(t Trans, n int, gm *Manager, newTrans func(*Manager) Trans) Trans {
	idCounterLock.Lock()
	defer idCounterLock.Unlock()

	idCounter++

	// Smallest commit threshold is 1

	if n < 1 {
		n = 1
	}

	return &rollingTrans{

		id: fmt.Sprint(idCounter),
		gm: gm,

		currentTrans: t,
		newTransFunc: newTrans,
		transErrors:  errorutil.NewCompositeError(),

		opThreshold:   n,
		opCount:       0,
		inFlightCount: 0,
		wg:            &sync.WaitGroup{},

		countEntities: 0,
		countEdges:    0,

		transLock: &sync.RWMutex{},
	}
}

/*
newInternalGraphTrans is used for internal transactions.
*/
func newInternalGraphTrans(gm *Manager) *baseTrans {
	idCounterLock.Lock()
	defer idCounterLock.Unlock()

	idCounter++

	return &baseTrans{fmt.Sprint(idCounter), gm, 0, 0, nil, make(map[string]int)}
}

/*
idCounter is a simple counter for ids
*/
var idCounter uint64
var idCounterLock = &sync.Mutex{}

/*
baseTrans is the main data structure for a graph transaction
*/
type baseTrans struct {
	id       string   // Unique transaction ID
	gm       *Manager // Graph manager which created this transaction
	entities int      // Number of entities to store
	edges    int      // Number of edges to store

	records []*storage.Record // Records which should be written
	groups  map[string]int    // Number of records per group
}

/*
ID returns a unique transaction ID.
*/
func (gt *baseTrans) ID() string {
	return gt.id
}

/*
IsEmpty returns if this transaction is empty.
*/
func (gt *baseTrans) IsEmpty() bool {
	return len(gt.records) == 0
}

/*
Counts returns the transaction size in terms of objects. Returned values
are entities to store and edges to store.
*/
func (gt *baseTrans) Counts() (int, int) {
	return gt.entities, gt.edges
}

/*
String returns a string representation of this transatction.
*/
func (gt *baseTrans) String() string {
	return fmt.Sprintf("Transaction %v - Entities: %v - Edges: %v - Records: %v",
		gt.id, gt.entities, gt.edges, len(gt.records))
}

/*
StoreElement converts an element into records and adds them to the
transaction.
*/
func (gt *baseTrans) StoreElement(e data.Element) error {

	if e == nil {
		return &util.GraphError{Type: util.ErrInvalidData, Detail: "Element is nil"}
	}

	keys, val, err := gt.gm.conv.RecordsFromElement(e)
	if err != nil {
		return err
	}

	for _, k := range keys {
		gt.records = append(gt.records, &storage.Record{Key: k, Value: val})
	}

	gt.groups[e.Group()] += len(keys)

	if e.Kind() == data.KindEdge {
		gt.edges++
	} else {
		gt.entities++
	}

	return nil
}

/*
reset empties this transaction.
*/
func (gt *baseTrans) reset() {
	gt.entities = 0
	gt.edges = 0
	gt.records = nil
	gt.groups = make(map[string]int)
}

/*
Commit writes the transaction to the graph store. The written records are
removed again and the main database is rolled back if any error occurs.
*/
func (gt *baseTrans) Commit() error {

	gt.gm.mutex.Lock()
	defer gt.gm.mutex.Unlock()

	if err := gt.gm.checkClosed(); err != nil {
		return err
	}

	// Return if there is nothing to do

	if gt.IsEmpty() {
		return nil
	}

	defer gt.reset()

	doRollback := func() {
		if err := gt.gm.gs.Store().Delete(gt.records); err != nil {
			logger.Error(fmt.Sprintf("Could not remove records of failed transaction %v: %v", gt.id, err))
		}
		gt.gm.gs.RollbackMain()
		gt.gm.mapCache = make(map[string]map[string]string)
	}

	if err := gt.gm.gs.Store().Write(gt.records); err != nil {
		return &util.GraphError{Type: util.ErrWriting, Detail: err.Error()}
	}

	// Execute rules

	if err := gt.gm.gr.graphEvent(gt, EventElementsAdded, gt.groups); err != nil {
		doRollback()
		return err
	}

	if err := gt.gm.gs.FlushMain(); err != nil {
		doRollback()
		return err
	}

	AddedElements.Add(float64(gt.entities + gt.edges))

	return nil
}

/*
concurrentTrans is a lock-wrapper around baseTrans which allows concurrent use.
*/
type concurrentTrans struct {
	Trans
	transLock *sync.RWMutex
}

/*
ID returns a unique transaction ID.
*/
func (gt *concurrentTrans) ID() string {
	gt.transLock.RLock()
	defer gt.transLock.RUnlock()

	return gt.Trans.ID()
}

/*
String returns a string representation of this transatction.
*/
func (gt *concurrentTrans) String() string {
	gt.transLock.RLock()
	defer gt.transLock.RUnlock()

	return gt.Trans.String()
}

/*
Counts returns the transaction size in terms of objects. Returned values
are entities to store and edges to store.
*/
func (gt *concurrentTrans) Counts() (int, int) {
	gt.transLock.RLock()
	defer gt.transLock.RUnlock()

	return gt.Trans.Counts()
}

/*
IsEmpty returns if this transaction is empty.
*/
func (gt *concurrentTrans) IsEmpty() bool {
	gt.transLock.RLock()
	defer gt.transLock.RUnlock()

	return gt.Trans.IsEmpty()
}

/*
Commit writes the transaction to the graph store.
*/
func (gt *concurrentTrans) Commit() error {
	gt.transLock.Lock()
	defer gt.transLock.Unlock()

	return gt.Trans.Commit()
}

/*
StoreElement adds an element to the transaction.
*/
func (gt *concurrentTrans) StoreElement(e data.Element) error {
	gt.transLock.Lock()
	defer gt.transLock.Unlock()

	return gt.Trans.StoreElement(e)
}

/*
rollingTrans is a rolling transaction which will commit itself after
n operations.
*/
type rollingTrans struct {
	id string   // ID of this transaction
	gm *Manager // Graph manager which created this transaction

	currentTrans Trans                     // Current transaction which is build up
	newTransFunc func(*Manager) Trans      // Function to create a new transaction
	transErrors  *errorutil.CompositeError // Collected transaction errors

	opThreshold   int             // Operation threshold
	opCount       int             // Operation count
	inFlightCount int             // Previous transactions which are still committing
	wg            *sync.WaitGroup // WaitGroup which releases after all in-flight transactions

	countEntities int // Count for entities in in-flight transactions
	countEdges    int // Count for edges in in-flight transactions

	transLock *sync.RWMutex // Lock for this transaction
}

/*
ID returns a unique transaction ID.
*/
func (gt *rollingTrans) ID() string {
	gt.transLock.RLock()
	defer gt.transLock.RUnlock()

	return gt.id
}

/*
IsEmpty returns if this transaction is empty.
*/
func (gt *rollingTrans) IsEmpty() bool {
	ns, es := gt.Counts()

	return ns == 0 && es == 0
}

/*
Counts returns the transaction size in terms of objects. Returned values
are entities to store and edges to store.
*/
func (gt *rollingTrans) Counts() (int, int) {
	gt.transLock.RLock()
	defer gt.transLock.RUnlock()

	ns, es := gt.currentTrans.Counts()

	return ns + gt.countEntities, es + gt.countEdges
}

/*
String returns a string representation of this transatction.
*/
func (gt *rollingTrans) String() string {
	gt.transLock.RLock()
	defer gt.transLock.RUnlock()

	ns, es := gt.currentTrans.Counts()

	return fmt.Sprintf("Rolling transaction %v - Entities: %v - Edges: %v - "+
		"Threshold: %v - In-flight: %v", gt.id, ns+gt.countEntities, es+gt.countEdges,
		gt.opThreshold, gt.inFlightCount)
}

/*
Commit writes the remaining operations of this rolling transaction to
the graph store.
*/
func (gt *rollingTrans) Commit() error {

	// Commit current transaction

	gt.transLock.Lock()

	if err := gt.currentTrans.Commit(); err != nil {
		gt.transErrors.Add(err)
	}

	gt.transLock.Unlock()

	// Wait for other transactions

	gt.wg.Wait()

	// Return any errors

	if gt.transErrors.HasErrors() {
		return gt.transErrors
	}

	return nil
}

/*
checkNewSubTrans checks if a new sub-transaction should be started. Returns
a task which commits the previous sub-transaction or nil.
*/
func (gt *rollingTrans) checkNewSubTrans() func() {

	if gt.opCount++; gt.opCount < gt.opThreshold {
		return nil
	}

	// Reset the op counter

	gt.opCount = 0

	// Start a new transaction and add the counts to the overall counts

	cTrans := gt.currentTrans
	gt.currentTrans = gt.newTransFunc(gt.gm)

	ns, es := cTrans.Counts()

	gt.countEntities += ns
	gt.countEdges += es

	gt.wg.Add(1)       // Add to WaitGroup so we can wait for all in-flight transactions
	gt.inFlightCount++ // Count the new in-flight transaction

	return func() {
		defer gt.wg.Done()

		err := cTrans.Commit()

		gt.transLock.Lock()
		defer gt.transLock.Unlock()

		if err != nil {

			// Store errors

			gt.transErrors.Add(err)
		}

		// Reduce the counts (do this even if there were errors)

		gt.countEntities -= ns
		gt.countEdges -= es

		gt.inFlightCount--
	}
}

/*
StoreElement adds an element to the current sub-transaction. Full
sub-transactions are committed in the commit pool of the graph manager.
*/
func (gt *rollingTrans) StoreElement(e data.Element) error {
	var commit func()

	gt.transLock.Lock()

	err := gt.currentTrans.StoreElement(e)

	if err == nil {
		commit = gt.checkNewSubTrans()
	}

	gt.transLock.Unlock()

	if commit != nil {
		if serr := gt.gm.commitPool.Submit(commit); serr != nil {

			// Commit directly if the pool was released

			commit()
		}
	}

	return err
}
