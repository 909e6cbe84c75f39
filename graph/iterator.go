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
	"context"
	"errors"
	"fmt"
	"time"

	"devt.de/krotik/kvgraph/config"
	"devt.de/krotik/kvgraph/graph/data"
	"devt.de/krotik/kvgraph/graph/pushdown"
	"devt.de/krotik/kvgraph/graph/util"
	"devt.de/krotik/kvgraph/storage"
	"golang.org/x/sync/errgroup"
)

/*
ElementIterator can be used to iterate the result elements of a query. The
iterator is single pass. Close must be called if the iterator is not
iterated to the end.
*/
type ElementIterator struct {
	op        string             // Name of the operation which created the iterator
	id        string             // Id of the operation
	results   chan data.Element  // Channel which receives the decoded elements
	cancel    context.CancelFunc // Function which cancels all running scans
	next      data.Element       // Next element
	err       error              // Scan error (set before results is closed)
	LastError error              // Last encountered error
}

/*
HasNext returns if there is a next element. Blocks until the next element is
available or all scans have finished.
*/
func (it *ElementIterator) HasNext() bool {

	if it.next != nil {
		return true
	} else if it.LastError != nil {
		return false
	}

	e, ok := <-it.results

	if !ok {
		it.LastError = it.err
		return false
	}

	it.next = e

	return true
}

/*
Next returns the next element. Sets the LastError attribute if an error occurs.
*/
func (it *ElementIterator) Next() data.Element {

	if !it.HasNext() {
		return nil
	}

	e := it.next
	it.next = nil

	ReturnedElements.WithLabelValues(it.op).Inc()

	return e
}

/*
Error returns the last encountered error.
*/
func (it *ElementIterator) Error() error {
	return it.LastError
}

/*
Close stops all running scans and releases their resources.
*/
func (it *ElementIterator) Close() error {
	it.cancel()

	for range it.results {
	}

	it.next = nil

	return nil
}

/*
String returns a string representation of this iterator.
*/
func (it *ElementIterator) String() string {
	return fmt.Sprintf("ElementIterator %v [%v]", it.op, it.id)
}

/*
scanTask is a single range scan of a query.
*/
type scanTask struct {
	r      storage.Range   // Scanned range
	stages []storage.Stage // Stages of the scan
}

/*
runScans runs a list of scan tasks concurrently and returns an iterator over
the merged results.
*/
func (gm *Manager) runScans(ctx context.Context, op string, id string, setup *pushdown.Setup,
	tasks []*scanTask) *ElementIterator {

	var cancel context.CancelFunc

	if timeout := gm.cfg.Int(config.ScanTimeoutSeconds); timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	it := &ElementIterator{op, id, make(chan data.Element, gm.cfg.Int(config.ScanBufferSize)),
		cancel, nil, nil, nil}

	go func() {
		defer close(it.results)
		defer cancel()

		start := time.Now()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(int(gm.cfg.Int(config.ScanThreads)))

		for _, t := range tasks {
			t := t
			g.Go(func() error {
				if err := gm.scanSlots.Acquire(gctx, 1); err != nil {
					return err
				}
				return gm.scan(gctx, op, setup, t, it.results)
			})
		}

		err := g.Wait()

		ScanDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

		if err != nil {
			it.err = &util.OperationError{Operation: op, ID: id, Cause: err}

			if !errors.Is(err, context.Canceled) {
				ScanErrors.WithLabelValues(op).Inc()
				logger.Error(it.err)
			}
		}
	}()

	return it
}

/*
scan runs a single scan task and sends the decoded elements to a given
channel. The caller must hold a scan slot. The slot is given up while the
consumer of the results is not reading.
*/
func (gm *Manager) scan(ctx context.Context, op string, setup *pushdown.Setup, t *scanTask,
	results chan<- data.Element) error {

	held := true

	defer func() {
		if held {
			gm.scanSlots.Release(1)
		}
	}()

	Scans.WithLabelValues(op).Inc()

	it := gm.gs.Store().Scan(ctx, t.r, t.stages...)
	defer it.Close()

	for it.HasNext() {
		r := it.Next()
		if r == nil {
			break
		}

		e, err := setup.Element(r)
		if err != nil {
			return err
		}

		select {
		case results <- e:
			continue
		default:
		}

		gm.scanSlots.Release(1)
		held = false

		select {
		case results <- e:
		case <-ctx.Done():
			return ctx.Err()
		}

		if err := gm.scanSlots.Acquire(ctx, 1); err != nil {
			return err
		}

		held = true
	}

	return it.Error()
}
