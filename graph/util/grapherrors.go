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
Package util contains utility classes for the graph store.

# GraphError

Models a graph related error. Low-level errors should be wrapped in a GraphError
before they are returned to a client. The Type of a GraphError can be used for
equal checks:

	if gerr, ok := err.(*util.GraphError); ok && gerr.Type == util.ErrSchemaViolation {
		...
	}

All error types are fatal. Nothing in the graph store retries an operation;
retry policies belong to the caller.

# OperationError

Wraps any failure of a query or write operation together with the name of the
operation and a unique operation id.
*/
package util

import (
	"errors"
	"fmt"
)

/*
GraphError is a graph related error
*/
type GraphError struct {
	Type   error  // Error type (to be used for equal checks)
	Detail string // Details of this error
}

/*
Error returns a human-readable string representation of this error.
*/
func (ge *GraphError) Error() string {
	if ge.Detail != "" {
		return fmt.Sprintf("GraphError: %v (%v)", ge.Type, ge.Detail)
	}

	return fmt.Sprintf("GraphError: %v", ge.Type)
}

/*
Is allows errors.Is checks against the error type.
*/
func (ge *GraphError) Is(target error) bool {
	return ge.Type == target
}

/*
Graph storage related error types
*/
var (
	ErrOpening  = errors.New("Failed to open graph store")
	ErrClosing  = errors.New("Failed to close graph store")
	ErrReading  = errors.New("Could not read graph information")
	ErrWriting  = errors.New("Could not write graph information")
	ErrDecoding = errors.New("Could not decode stored record")
	ErrRule     = errors.New("Graph rule error")
)

/*
Element related error types
*/
var (
	ErrSchemaViolation      = errors.New("Schema violation")
	ErrSerialisation        = errors.New("Serialisation error")
	ErrIllegalConfiguration = errors.New("Illegal configuration")
	ErrInvalidRange         = errors.New("Invalid range")
	ErrInvalidData          = errors.New("Invalid data")
)

/*
OperationError is returned by a failed graph operation.
*/
type OperationError struct {
	Operation string // Name of the operation
	ID        string // Unique id of the operation
	Cause     error  // Error which caused the operation to fail
}

/*
Error returns a human-readable string representation of this error.
*/
func (oe *OperationError) Error() string {
	return fmt.Sprintf("OperationError: %v [%v] failed: %v", oe.Operation, oe.ID, oe.Cause)
}

/*
Unwrap returns the cause of this error.
*/
func (oe *OperationError) Unwrap() error {
	return oe.Cause
}
