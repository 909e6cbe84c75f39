/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package util

import (
	"errors"
	"testing"
)

func TestGraphError(t *testing.T) {

	err := &GraphError{ErrSchemaViolation, "Unknown group Foo"}

	if res := err.Error(); res != "GraphError: Schema violation (Unknown group Foo)" {
		t.Error("Unexpected result:", res)
		return
	}

	err = &GraphError{ErrInvalidRange, ""}

	if res := err.Error(); res != "GraphError: Invalid range" {
		t.Error("Unexpected result:", res)
		return
	}

	if !errors.Is(err, ErrInvalidRange) || errors.Is(err, ErrSchemaViolation) {
		t.Error("Unexpected error type check")
		return
	}
}

func TestOperationError(t *testing.T) {

	cause := &GraphError{ErrDecoding, "bad bytes"}
	err := &OperationError{"GetElementsBetweenSets", "123", cause}

	if res := err.Error(); res != "OperationError: GetElementsBetweenSets [123] failed: "+
		"GraphError: Could not decode stored record (bad bytes)" {
		t.Error("Unexpected result:", res)
		return
	}

	var gerr *GraphError

	if !errors.As(err, &gerr) || gerr.Type != ErrDecoding {
		t.Error("Cause should be reachable:", gerr)
		return
	}

	if !errors.Is(err, ErrDecoding) {
		t.Error("Error type should be reachable through the operation error")
	}
}
