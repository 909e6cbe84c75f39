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
	"fmt"
)

/*
Escape appends the escaped form of a given byte slice to a buffer. Escaping
maps 00 to 01 01 and 01 to 01 02. Escaped data keeps its byte order and
contains no 00 bytes.
*/
func Escape(buf *bytes.Buffer, b []byte) {
	for _, c := range b {
		switch c {
		case 0x00:
			buf.Write([]byte{0x01, 0x01})
		case 0x01:
			buf.Write([]byte{0x01, 0x02})
		default:
			buf.WriteByte(c)
		}
	}
}

/*
Unescape reverses Escape.
*/
func Unescape(b []byte) ([]byte, error) {
	ret := make([]byte, 0, len(b))

	for i := 0; i < len(b); i++ {
		c := b[i]

		if c == 0x00 {
			return nil, fmt.Errorf("Unexpected delimiter at position %v", i)

		} else if c == 0x01 {
			if i++; i == len(b) || (b[i] != 0x01 && b[i] != 0x02) {
				return nil, fmt.Errorf("Invalid escape sequence at position %v", i-1)
			}
			c = b[i] - 1
		}

		ret = append(ret, c)
	}

	return ret, nil
}
