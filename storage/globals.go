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
	"errors"
	"fmt"

	"devt.de/krotik/common/logutil"
	"devt.de/krotik/common/pools"
)

/*
BufferPool is a pool of byte buffers.
*/
var BufferPool = pools.NewByteBufferPool()

/*
logger is the logger of the storage package
*/
var logger = logutil.GetLogger("kvgraph.storage")

/*
Common store related errors.
*/
var (
	ErrClosed  = errors.New("Store is closed")
	ErrReading = errors.New("Could not read from store")
	ErrWriting = errors.New("Could not write to store")
	ErrOpening = errors.New("Could not open store")
)

/*
ManagerError is a store related error.
*/
type ManagerError struct {
	Type        error
	Detail      string
	Managername string
}

/*
NewStorageManagerError returns a new store specific error.
*/
func NewStorageManagerError(smeType error, smeDetail string, smeManagername string) *ManagerError {
	return &ManagerError{smeType, smeDetail, smeManagername}
}

/*
Error returns a string representation of the error.
*/
func (e *ManagerError) Error() string {
	return fmt.Sprintf("%s (%s - %s)", e.Type.Error(), e.Managername, e.Detail)
}

/*
Is allows errors.Is checks against the error type.
*/
func (e *ManagerError) Is(target error) bool {
	return e.Type == target
}
