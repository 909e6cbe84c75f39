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
	"errors"
	"fmt"
	"sort"
	"testing"

	"devt.de/krotik/common/errorutil"
)

func TestEscape(t *testing.T) {
	var buf bytes.Buffer

	Escape(&buf, []byte{0x05, 0x00, 0x01, 0x02})

	if res := fmt.Sprintf("%x", buf.Bytes()); res != "050101010202" {
		t.Error("Unexpected result:", res)
		return
	}

	res, err := Unescape(buf.Bytes())
	errorutil.AssertOk(err)

	if !bytes.Equal(res, []byte{0x05, 0x00, 0x01, 0x02}) {
		t.Error("Unexpected result:", res)
		return
	}

	if _, err := Unescape([]byte{0x05, 0x00}); err == nil || err.Error() != "Unexpected delimiter at position 1" {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := Unescape([]byte{0x05, 0x01}); err == nil || err.Error() != "Invalid escape sequence at position 1" {
		t.Error("Unexpected result:", err)
		return
	}

	// Escaping keeps the byte order

	keys := [][]byte{{}, {0x00}, {0x00, 0x00}, {0x01}, {0x01, 0xff}, {0x02}, {0xff}}

	for i := 1; i < len(keys); i++ {
		var b1, b2 bytes.Buffer

		Escape(&b1, keys[i-1])
		b1.WriteByte(0x00)
		Escape(&b2, keys[i])
		b2.WriteByte(0x00)

		if bytes.Compare(b1.Bytes(), b2.Bytes()) >= 0 {
			t.Error("Unexpected order:", keys[i-1], keys[i])
			return
		}
	}
}

func TestRange(t *testing.T) {
	r := Range{[]byte("b"), []byte("d")}

	if r.Contains([]byte("a")) || !r.Contains([]byte("b")) ||
		!r.Contains([]byte("cz")) || r.Contains([]byte("d")) {
		t.Error("Unexpected range result")
		return
	}

	if !(Range{}).Contains([]byte("x")) {
		t.Error("Open range should contain every key")
		return
	}

	if res := r.String(); res != "Range[62 - 64)" {
		t.Error("Unexpected result:", res)
	}
}

func TestMemoryStore(t *testing.T) {
	ms := NewMemoryStore("test")

	if res := ms.Name(); res != "test" {
		t.Error("Unexpected result:", res)
		return
	}

	testStore(t, ms)

	if res := ms.Size(); res != 0 {
		t.Error("Unexpected result:", res)
	}
}

func TestMemoryStoreOrder(t *testing.T) {
	ms := NewMemoryStore("test")
	defer ms.Close()

	var written []*Record

	for i := 999; i >= 0; i-- {
		recs := []*Record{{Key: []byte(fmt.Sprintf("k%04d", i)), Value: []byte{byte(i)}}}
		errorutil.AssertOk(ms.Write(recs))
		written = append(written, recs[0])
	}

	dup := []*Record{{Key: []byte("k0500"), Value: []byte("dup")}}
	errorutil.AssertOk(ms.Write(dup))

	if res := ms.Size(); res != 1001 {
		t.Error("Unexpected result:", res)
		return
	}

	it := ms.Scan(context.Background(), Range{[]byte("k0499"), []byte("k0502")})

	// Writes after the scan started are not visible to it

	errorutil.AssertOk(ms.Write([]*Record{{Key: []byte("k0501x")}}))

	var res []string

	for it.HasNext() {
		r := it.Next()
		res = append(res, fmt.Sprintf("%s:%v", r.Key, r.Version))
	}
	it.Close()
	errorutil.AssertOk(it.Error())

	if fmt.Sprint(res) != "[k0499:501 k0500:500 k0500:1001 k0501:499]" {
		t.Error("Unexpected result:", res)
		return
	}

	// Delete removes only the given version

	errorutil.AssertOk(ms.Delete(append(written[:500], dup...)))

	if res := ms.Size(); res != 501 {
		t.Error("Unexpected result:", res)
		return
	}

	it = ms.Scan(context.Background(), Range{nil, []byte("k0501")})

	res = nil
	for it.HasNext() {
		res = append(res, string(it.Next().Key))
	}
	it.Close()

	if len(res) != 500 || res[0] != "k0000" || res[499] != "k0499" || !sort.StringsAreSorted(res) {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestBadgerStore(t *testing.T) {
	bs, err := NewBadgerStore("")
	errorutil.AssertOk(err)

	if res := bs.Name(); res != "memory" {
		t.Error("Unexpected result:", res)
		return
	}

	testStore(t, bs)
}

func TestBadgerStoreOnDisk(t *testing.T) {
	dir := t.TempDir()

	bs, err := NewBadgerStore(dir)
	errorutil.AssertOk(err)

	errorutil.AssertOk(bs.Write([]*Record{{Key: []byte("a"), Value: []byte("1")}}))
	errorutil.AssertOk(bs.SetMeta("layout", []byte("classic")))
	errorutil.AssertOk(bs.Close())

	bs, err = NewBadgerStore(dir)
	errorutil.AssertOk(err)
	defer bs.Close()

	if res := scanAll(t, bs, Range{}); res != "a=1" {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := bs.Meta("layout"); string(res) != "classic" {
		t.Error("Unexpected result:", string(res))
		return
	}

	// Versions keep growing after a reopen

	r := &Record{Key: []byte("a"), Value: []byte("2")}
	errorutil.AssertOk(bs.Write([]*Record{r}))

	if r.Version <= 1 {
		t.Error("Unexpected version:", r.Version)
	}
}

/*
scanAll returns a string of all records in a given range.
*/
func scanAll(t *testing.T, s Store, r Range, stages ...Stage) string {
	var buf bytes.Buffer

	it := s.Scan(context.Background(), r, stages...)
	defer it.Close()

	for it.HasNext() {
		rec := it.Next()

		if buf.Len() > 0 {
			buf.WriteString(" ")
		}

		buf.WriteString(fmt.Sprintf("%s=%s", rec.Key, rec.Value))
	}

	errorutil.AssertOk(it.Error())

	return buf.String()
}

/*
upperStage is a test stage which converts record values to upper case.
*/
type upperStage struct {
	Iterator
}

func (s *upperStage) Next() *Record {
	r := s.Iterator.Next()
	if r != nil {
		r = &Record{r.Key, bytes.ToUpper(r.Value), r.Version}
	}
	return r
}

func testStore(t *testing.T, s Store) {

	records := []*Record{
		{Key: []byte("c"), Value: []byte("c1")},
		{Key: []byte("a"), Value: []byte("a1")},
		{Key: []byte("b\x00"), Value: []byte("b1")},
		{Key: []byte("a"), Value: []byte("a2")},
		{Key: []byte("b"), Value: []byte("b2")},
	}

	errorutil.AssertOk(s.Write(records))

	for i := 1; i < len(records); i++ {
		if records[i].Version <= records[i-1].Version {
			t.Error("Versions should be increasing:", records)
			return
		}
	}

	// Records are sorted by key and then by version

	if res := scanAll(t, s, Range{}); res != "a=a1 a=a2 b=b2 b\x00=b1 c=c1" {
		t.Errorf("Unexpected result: %q", res)
		return
	}

	if res := scanAll(t, s, Range{[]byte("b"), []byte("c")}); res != "b=b2 b\x00=b1" {
		t.Errorf("Unexpected result: %q", res)
		return
	}

	if res := scanAll(t, s, Range{[]byte("b\x00"), nil}); res != "b\x00=b1 c=c1" {
		t.Errorf("Unexpected result: %q", res)
		return
	}

	if res := scanAll(t, s, Range{[]byte("x"), nil}); res != "" {
		t.Errorf("Unexpected result: %q", res)
		return
	}

	// Stages wrap the iterator

	stage := func(it Iterator) Iterator {
		return &upperStage{it}
	}

	if res := scanAll(t, s, Range{nil, []byte("b")}, stage); res != "a=A1 a=A2" {
		t.Errorf("Unexpected result: %q", res)
		return
	}

	// Delete a single version

	errorutil.AssertOk(s.Delete([]*Record{records[1]}))

	if res := scanAll(t, s, Range{nil, []byte("b")}); res != "a=a2" {
		t.Errorf("Unexpected result: %q", res)
		return
	}

	// Deleting an unknown record is not an error

	errorutil.AssertOk(s.Delete([]*Record{{Key: []byte("z"), Version: 99}}))

	// A done context stops the scan

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	it := s.Scan(ctx, Range{})

	if !it.HasNext() {
		t.Error("Iterator should have a next record")
		return
	}

	cancel()

	if it.HasNext() || !errors.Is(it.Error(), context.Canceled) {
		t.Error("Unexpected result:", it.Error())
		return
	}

	it.Close()

	// Metadata

	if res, err := s.Meta("layout"); res != nil || err != nil {
		t.Error("Unexpected result:", res, err)
		return
	}

	errorutil.AssertOk(s.SetMeta("layout", []byte("byteEntity")))

	if res, err := s.Meta("layout"); string(res) != "byteEntity" || err != nil {
		t.Error("Unexpected result:", res, err)
		return
	}

	// Remove all records

	var all []*Record

	it = s.Scan(context.Background(), Range{})
	for it.HasNext() {
		all = append(all, it.Next())
	}
	it.Close()

	errorutil.AssertOk(s.Delete(all))

	if res := scanAll(t, s, Range{}); res != "" {
		t.Errorf("Unexpected result: %q", res)
		return
	}

	errorutil.AssertOk(s.Close())
	errorutil.AssertOk(s.Close())

	if err := s.Write(records); !errors.Is(err, ErrClosed) {
		t.Error("Unexpected result:", err)
		return
	}

	it = s.Scan(context.Background(), Range{})
	if it.HasNext() || !errors.Is(it.Error(), ErrClosed) {
		t.Error("Unexpected result:", it.Error())
		return
	}

	if _, err := s.Meta("layout"); !errors.Is(err, ErrClosed) {
		t.Error("Unexpected result:", err)
	}
}
