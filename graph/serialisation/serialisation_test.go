/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package serialisation

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestSerialiserOrdering(t *testing.T) {

	testOrder := func(name string, values ...interface{}) {
		s, ok := Get(name)
		if !ok {
			t.Error("Unknown serialiser:", name)
			return
		}

		var last []byte

		for _, v := range values {

			if !s.CanHandle(v) {
				t.Error("Serialiser should handle value:", name, v)
				return
			}

			b, err := s.Serialise(v)
			if err != nil {
				t.Error(err)
				return
			}

			if last != nil && bytes.Compare(last, b) >= 0 {
				t.Error("Unexpected ordering for:", name, v)
				return
			}
			last = b

			res, err := s.Deserialise(b)
			if err != nil {
				t.Error(err)
				return
			}

			if fmt.Sprint(res) != fmt.Sprint(v) {
				t.Error("Unexpected result:", res, "expected:", v)
				return
			}
		}
	}

	testOrder("string", "", "A0", "A1", "A23", "B")
	testOrder("int", -1000, -1, 0, 1, 23, 10000)
	testOrder("long", int64(-5), int64(0), int64(5))
	testOrder("double", -2.5, -0.5, 0.0, 0.5, 100.25)
	testOrder("boolean", false, true)
	testOrder("bytes", []byte{0}, []byte{0, 1}, []byte{1})

	d1 := time.Date(2016, 1, 1, 10, 0, 0, 0, time.UTC)
	testOrder("date", d1, d1.Add(time.Second), d1.Add(time.Hour))
}

func TestSerialiserErrors(t *testing.T) {

	s, _ := Get("int")

	if _, err := s.Serialise("abc"); !errors.Is(err, ErrCannotHandle) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := s.Serialise(int64(5)); err == nil ||
		err.Error() != "Cannot handle value: int cannot serialise 5 (int64)" {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := s.Deserialise([]byte{1, 2}); !errors.Is(err, ErrCorrupt) {
		t.Error("Unexpected result:", err)
		return
	}

	s, _ = Get("boolean")

	if _, err := s.Deserialise([]byte{5}); err == nil ||
		err.Error() != "Corrupt value: boolean cannot deserialise 1 bytes" {
		t.Error("Unexpected result:", err)
		return
	}

	if _, ok := Get("foo"); ok {
		t.Error("Unexpected serialiser")
		return
	}

	if res := fmt.Sprint(Names()); res != "[boolean bytes date double int long string]" {
		t.Error("Unexpected result:", res)
	}
}
