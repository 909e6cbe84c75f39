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
Package serialisation contains named serialisers for vertex identifiers and
property values.

All serialisers produce byte sequences which sort in the same order as the
values they represent. This makes every serialiser suitable for vertex
identifiers which become part of sortable keys.

Each serialiser handles exactly one Go type:

	string  - string
	int     - int
	long    - int64
	double  - float64
	boolean - bool
	bytes   - []byte
	date    - time.Time (millisecond precision, UTC)
*/
package serialisation

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

/*
ErrCannotHandle is returned if a serialiser cannot handle a given value
*/
var ErrCannotHandle = errors.New("Cannot handle value")

/*
ErrCorrupt is returned if a byte sequence cannot be deserialised
*/
var ErrCorrupt = errors.New("Corrupt value")

/*
Serialiser converts values of a single type to and from bytes.
*/
type Serialiser interface {

	/*
		Name returns the name of this serialiser.
	*/
	Name() string

	/*
		CanHandle checks if this serialiser can handle a given value.
	*/
	CanHandle(v interface{}) bool

	/*
		Serialise converts a value into bytes.
	*/
	Serialise(v interface{}) ([]byte, error)

	/*
		Deserialise converts bytes into a value.
	*/
	Deserialise(b []byte) (interface{}, error)
}

/*
registry holds all known serialisers
*/
var registry = map[string]Serialiser{}

func init() {
	for _, s := range []Serialiser{&stringSerialiser{}, &intSerialiser{},
		&longSerialiser{}, &doubleSerialiser{}, &booleanSerialiser{},
		&bytesSerialiser{}, &dateSerialiser{}} {

		registry[s.Name()] = s
	}
}

/*
Get returns a serialiser by name.
*/
func Get(name string) (Serialiser, bool) {
	s, ok := registry[name]
	return s, ok
}

/*
Names returns the names of all known serialisers.
*/
func Names() []string {
	var ret []string

	for k := range registry {
		ret = append(ret, k)
	}
	sort.Strings(ret)

	return ret
}

func errCannotHandle(s Serialiser, v interface{}) error {
	return fmt.Errorf("%w: %v cannot serialise %v (%T)", ErrCannotHandle, s.Name(), v, v)
}

func errCorrupt(s Serialiser, b []byte) error {
	return fmt.Errorf("%w: %v cannot deserialise %v bytes", ErrCorrupt, s.Name(), len(b))
}

// String
// ======

type stringSerialiser struct{}

func (s *stringSerialiser) Name() string {
	return "string"
}

func (s *stringSerialiser) CanHandle(v interface{}) bool {
	_, ok := v.(string)
	return ok
}

func (s *stringSerialiser) Serialise(v interface{}) ([]byte, error) {
	if str, ok := v.(string); ok {
		return []byte(str), nil
	}
	return nil, errCannotHandle(s, v)
}

func (s *stringSerialiser) Deserialise(b []byte) (interface{}, error) {
	return string(b), nil
}

// Bytes
// =====

type bytesSerialiser struct{}

func (s *bytesSerialiser) Name() string {
	return "bytes"
}

func (s *bytesSerialiser) CanHandle(v interface{}) bool {
	_, ok := v.([]byte)
	return ok
}

func (s *bytesSerialiser) Serialise(v interface{}) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return append([]byte{}, b...), nil
	}
	return nil, errCannotHandle(s, v)
}

func (s *bytesSerialiser) Deserialise(b []byte) (interface{}, error) {
	return append([]byte{}, b...), nil
}

// Numbers
// =======

/*
encodeInt64 writes a signed number in big endian with a flipped sign bit so
negative numbers sort before positive numbers.
*/
func encodeInt64(i int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(i)^(1<<63))
	return b
}

func decodeInt64(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63))
}

type intSerialiser struct{}

func (s *intSerialiser) Name() string {
	return "int"
}

func (s *intSerialiser) CanHandle(v interface{}) bool {
	_, ok := v.(int)
	return ok
}

func (s *intSerialiser) Serialise(v interface{}) ([]byte, error) {
	if i, ok := v.(int); ok {
		return encodeInt64(int64(i)), nil
	}
	return nil, errCannotHandle(s, v)
}

func (s *intSerialiser) Deserialise(b []byte) (interface{}, error) {
	if len(b) != 8 {
		return nil, errCorrupt(s, b)
	}
	return int(decodeInt64(b)), nil
}

type longSerialiser struct{}

func (s *longSerialiser) Name() string {
	return "long"
}

func (s *longSerialiser) CanHandle(v interface{}) bool {
	_, ok := v.(int64)
	return ok
}

func (s *longSerialiser) Serialise(v interface{}) ([]byte, error) {
	if i, ok := v.(int64); ok {
		return encodeInt64(i), nil
	}
	return nil, errCannotHandle(s, v)
}

func (s *longSerialiser) Deserialise(b []byte) (interface{}, error) {
	if len(b) != 8 {
		return nil, errCorrupt(s, b)
	}
	return decodeInt64(b), nil
}

type doubleSerialiser struct{}

func (s *doubleSerialiser) Name() string {
	return "double"
}

func (s *doubleSerialiser) CanHandle(v interface{}) bool {
	_, ok := v.(float64)
	return ok
}

func (s *doubleSerialiser) Serialise(v interface{}) ([]byte, error) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) {
		return nil, errCannotHandle(s, v)
	}

	bits := math.Float64bits(f)

	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}

	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, bits)

	return b, nil
}

func (s *doubleSerialiser) Deserialise(b []byte) (interface{}, error) {
	if len(b) != 8 {
		return nil, errCorrupt(s, b)
	}

	bits := binary.BigEndian.Uint64(b)

	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}

	return math.Float64frombits(bits), nil
}

// Boolean
// =======

type booleanSerialiser struct{}

func (s *booleanSerialiser) Name() string {
	return "boolean"
}

func (s *booleanSerialiser) CanHandle(v interface{}) bool {
	_, ok := v.(bool)
	return ok
}

func (s *booleanSerialiser) Serialise(v interface{}) ([]byte, error) {
	if b, ok := v.(bool); ok {
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	}
	return nil, errCannotHandle(s, v)
}

func (s *booleanSerialiser) Deserialise(b []byte) (interface{}, error) {
	if len(b) != 1 || b[0] > 1 {
		return nil, errCorrupt(s, b)
	}
	return b[0] == 1, nil
}

// Date
// ====

type dateSerialiser struct{}

func (s *dateSerialiser) Name() string {
	return "date"
}

func (s *dateSerialiser) CanHandle(v interface{}) bool {
	_, ok := v.(time.Time)
	return ok
}

func (s *dateSerialiser) Serialise(v interface{}) ([]byte, error) {
	if t, ok := v.(time.Time); ok {
		return encodeInt64(t.UnixMilli()), nil
	}
	return nil, errCannotHandle(s, v)
}

func (s *dateSerialiser) Deserialise(b []byte) (interface{}, error) {
	if len(b) != 8 {
		return nil, errCorrupt(s, b)
	}
	return time.UnixMilli(decodeInt64(b)).UTC(), nil
}
