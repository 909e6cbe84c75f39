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
Package codec contains the element codec of the graph store.

# Keys

Every stored record has a key which consists of a row, a column family, a
column qualifier, a visibility and a timestamp. The physical key bytes are:

	row 00 esc(family) 00 esc(qualifier) 00 esc(visibility) 00 flag ^timestamp

The row is a sequence of escaped components separated by 00 bytes. Escaping
maps 00 to 01 01 and 01 to 01 02. This keeps the byte order of the escaped
data and makes 00 a safe delimiter. The flag byte is 01 if the record has a
timestamp and 00 otherwise. The timestamp is stored as 8 big endian bytes
which are inverted so newer records sort first. Keys without a timestamp
carry 8 zero bytes.

# Layouts

Two layouts define how rows and families are built. Both are fixed per store:

	byteEntity - entity row:  v 01
	             edge row:    a m b m (m: 02 directed from source,
	                                      03 directed from destination,
	                                      04 undirected)
	             family:      group

	classic    - entity row:  v
	             edge row:    a b f (f: 01 undirected, 02 directed source
	                                 first, 03 directed destination first)
	             family:      kind byte (01 entity, 02 edge) + group

Edges are stored twice, once for each endpoint, so a scan from either vertex
finds them. Undirected edges use the smaller serialised vertex as the first
row component of the first key. Self loops are stored once.

# Values

Qualifier and value properties are packed in schema order. Each property is
written as uvarint(len+1) followed by the serialised bytes; 0 marks an absent
property. Values can be compressed with lz4 or zstd.
*/
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"devt.de/krotik/kvgraph/graph/util"
	"devt.de/krotik/kvgraph/storage"
)

/*
EscapeComponents escapes and joins a list of components with 00 delimiters.
*/
func EscapeComponents(comps ...[]byte) []byte {
	buf := storage.BufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		storage.BufferPool.Put(buf)
	}()

	for i, c := range comps {
		if i > 0 {
			buf.WriteByte(0x00)
		}
		storage.Escape(buf, c)
	}

	return append([]byte{}, buf.Bytes()...)
}

/*
Timestamp flags
*/
const (
	timestampAbsent  = 0x00
	timestampPresent = 0x01
)

/*
keySuffixLen is the length of the flag and timestamp part of a key.
*/
const keySuffixLen = 9

/*
Key is the key of a stored record.
*/
type Key struct {
	Row        []byte // Escaped row components joined by 00
	Family     []byte // Column family
	Qualifier  []byte // Column qualifier
	Visibility []byte // Visibility

	HasTimestamp bool  // Flag if the key carries a timestamp
	Timestamp    int64 // Timestamp
}

/*
Bytes returns the physical key bytes.
*/
func (k *Key) Bytes() []byte {
	buf := storage.BufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		storage.BufferPool.Put(buf)
	}()

	buf.Write(k.Row)
	buf.WriteByte(0x00)
	storage.Escape(buf, k.Family)
	buf.WriteByte(0x00)
	storage.Escape(buf, k.Qualifier)
	buf.WriteByte(0x00)
	storage.Escape(buf, k.Visibility)
	buf.WriteByte(0x00)

	var ts [8]byte

	if k.HasTimestamp {
		buf.WriteByte(timestampPresent)
		binary.BigEndian.PutUint64(ts[:], ^(uint64(k.Timestamp) ^ (1 << 63)))
	} else {
		buf.WriteByte(timestampAbsent)
	}

	buf.Write(ts[:])

	return append([]byte{}, buf.Bytes()...)
}

/*
RowComponents returns the unescaped components of the row.
*/
func (k *Key) RowComponents() ([][]byte, error) {
	var ret [][]byte

	for _, c := range bytes.Split(k.Row, []byte{0x00}) {
		uc, err := storage.Unescape(c)
		if err != nil {
			return nil, err
		}
		ret = append(ret, uc)
	}

	return ret, nil
}

/*
String returns a string representation of this key.
*/
func (k *Key) String() string {
	ts := "none"
	if k.HasTimestamp {
		ts = fmt.Sprint(k.Timestamp)
	}

	return fmt.Sprintf("Key[row=%x family=%q qualifier=%x visibility=%x timestamp=%v]",
		k.Row, k.Family, k.Qualifier, k.Visibility, ts)
}

/*
ParseKey parses physical key bytes.
*/
func ParseKey(b []byte) (*Key, error) {
	var err error

	if len(b) < 5+keySuffixLen || b[len(b)-keySuffixLen-1] != 0x00 {
		return nil, errCorruptKey(b, "key is too short or not terminated")
	}

	body := b[:len(b)-keySuffixLen-1]
	suffix := b[len(b)-keySuffixLen:]

	var ts int64

	switch suffix[0] {
	case timestampPresent:
		ts = int64(^binary.BigEndian.Uint64(suffix[1:]) ^ (1 << 63))
	case timestampAbsent:
		if !bytes.Equal(suffix[1:], make([]byte, 8)) {
			return nil, errCorruptKey(b, "timestamp bytes without timestamp flag")
		}
	default:
		return nil, errCorruptKey(b, fmt.Sprintf("invalid timestamp flag %x", suffix[0]))
	}

	// Split off visibility, qualifier and family from the end

	var comps [3][]byte

	for i := 2; i >= 0; i-- {
		pos := bytes.LastIndexByte(body, 0x00)
		if pos == -1 {
			return nil, errCorruptKey(b, "missing key component")
		}

		if comps[i], err = storage.Unescape(body[pos+1:]); err != nil {
			return nil, errCorruptKey(b, err.Error())
		}

		body = body[:pos]
	}

	if len(body) == 0 {
		return nil, errCorruptKey(b, "empty row")
	}

	return &Key{
		Row:          append([]byte{}, body...),
		Family:       comps[0],
		Qualifier:    comps[1],
		Visibility:   comps[2],
		HasTimestamp: suffix[0] == timestampPresent,
		Timestamp:    ts,
	}, nil
}

/*
AggregationKey returns the part of physical key bytes which identifies an
aggregation group (row, family, qualifier and visibility).
*/
func AggregationKey(b []byte) []byte {
	if len(b) < keySuffixLen {
		return b
	}
	return b[:len(b)-keySuffixLen]
}

/*
ElementKey returns the part of physical key bytes which identifies an element
(row and family).
*/
func ElementKey(b []byte) ([]byte, error) {
	k, err := ParseKey(b)
	if err != nil {
		return nil, err
	}

	buf := storage.BufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		storage.BufferPool.Put(buf)
	}()

	buf.Write(k.Row)
	buf.WriteByte(0x00)
	storage.Escape(buf, k.Family)

	return append([]byte{}, buf.Bytes()...), nil
}

func errCorruptKey(b []byte, detail string) error {
	return &util.GraphError{Type: util.ErrDecoding,
		Detail: fmt.Sprintf("Corrupt key %x: %v", b, detail)}
}

// Property packing
// ================

/*
appendFramed appends a framed property value. A nil value marks an absent
property.
*/
func appendFramed(buf *bytes.Buffer, v []byte) {
	var lenBuf [binary.MaxVarintLen64]byte

	if v == nil {
		buf.WriteByte(0x00)
		return
	}

	n := binary.PutUvarint(lenBuf[:], uint64(len(v))+1)
	buf.Write(lenBuf[:n])
	buf.Write(v)
}

/*
readFramed reads a given number of framed property values.
*/
func readFramed(b []byte, count int) ([][]byte, error) {
	ret := make([][]byte, 0, count)

	for i := 0; i < count; i++ {

		if len(b) == 0 {

			// Trailing absent properties may be omitted

			ret = append(ret, nil)
			continue
		}

		l, n := binary.Uvarint(b)
		if n <= 0 || l > uint64(len(b)-n)+1 {
			return nil, fmt.Errorf("Invalid property frame at property %v", i)
		}

		b = b[n:]

		if l == 0 {
			ret = append(ret, nil)
			continue
		}

		ret = append(ret, b[:l-1])
		b = b[l-1:]
	}

	if len(b) != 0 {
		return nil, fmt.Errorf("%v trailing bytes after %v properties", len(b), count)
	}

	return ret, nil
}
