/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"devt.de/krotik/kvgraph/graph/util"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

/*
Compression is a value compression algorithm.
*/
type Compression int

/*
Known value compression algorithms
*/
const (
	CompressionNone Compression = iota
	CompressionLZ4
	CompressionZstd
)

var compressionNames = map[Compression]string{
	CompressionNone: "none",
	CompressionLZ4:  "lz4",
	CompressionZstd: "zstd",
}

/*
String returns the identifier of this compression.
*/
func (c Compression) String() string {
	if name, ok := compressionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Compression(%d)", int(c))
}

/*
ParseCompression returns a compression by its identifier. An empty identifier
means no compression.
*/
func ParseCompression(name string) (Compression, error) {
	if name == "" {
		return CompressionNone, nil
	}

	for c, n := range compressionNames {
		if n == name {
			return c, nil
		}
	}

	return 0, &util.GraphError{Type: util.ErrIllegalConfiguration,
		Detail: fmt.Sprintf("Unknown value compression: %v", name)}
}

/*
Size of the header of a compressed value: [uncompressed uint32][compressed uint32]
*/
const compressionHeaderSize = 8

/*
Upper bounds for decompression. LZ4 blocks expand at most 255 times. A zstd
frame can expand further so only its initial buffer is bounded by the ratio.
*/
const (
	maxLZ4Ratio         = 255
	maxUncompressedSize = 1 << 28
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxUncompressedSize))
	return dec
}

/*
compress compresses a value. Values which do not get smaller are stored raw
behind the header with a compressed size of 0.
*/
func compress(data []byte, c Compression) ([]byte, error) {
	var compressed []byte

	if c == CompressionNone || len(data) == 0 {
		return data, nil
	}

	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))

		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, &util.GraphError{Type: util.ErrSerialisation, Detail: err.Error()}
		}
		compressed = buf[:n]

	case CompressionZstd:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	}

	if len(compressed) == 0 || len(compressed) >= len(data) {
		compressed = nil
	}

	ret := make([]byte, compressionHeaderSize, compressionHeaderSize+len(data))
	binary.BigEndian.PutUint32(ret[0:], uint32(len(data)))
	binary.BigEndian.PutUint32(ret[4:], uint32(len(compressed)))

	if compressed == nil {
		return append(ret, data...), nil
	}

	return append(ret, compressed...), nil
}

/*
decompress reverses compress.
*/
func decompress(data []byte, c Compression) ([]byte, error) {

	if c == CompressionNone || len(data) == 0 {
		return data, nil
	}

	if len(data) < compressionHeaderSize {
		return nil, errors.New("Compressed value too small for header")
	}

	uncompressedSize := binary.BigEndian.Uint32(data[0:])
	compressedSize := binary.BigEndian.Uint32(data[4:])
	payload := data[compressionHeaderSize:]

	if compressedSize == 0 {
		if uint32(len(payload)) != uncompressedSize {
			return nil, errors.New("Uncompressed value size mismatch")
		}
		return payload, nil
	}

	if uint32(len(payload)) != compressedSize {
		return nil, errors.New("Compressed value size mismatch")
	}

	if uncompressedSize > maxUncompressedSize {
		return nil, errors.New("Uncompressed value size too large")
	}

	var result []byte

	switch c {
	case CompressionLZ4:
		if uint64(uncompressedSize) > uint64(len(payload))*maxLZ4Ratio {
			return nil, errors.New("Uncompressed value size exceeds compression ratio")
		}

		result = make([]byte, uncompressedSize)

		n, err := lz4.UncompressBlock(payload, result)
		if err != nil {
			return nil, err
		}
		result = result[:n]

	case CompressionZstd:
		dec := getZstdDecoder()
		decoded, err := dec.DecodeAll(payload,
			make([]byte, 0, min(uint64(uncompressedSize), uint64(len(payload))*maxLZ4Ratio)))
		zstdDecoderPool.Put(dec)

		if err != nil {
			return nil, err
		}
		result = decoded
	}

	if uint32(len(result)) != uncompressedSize {
		return nil, errors.New("Decompressed value size mismatch")
	}

	return result, nil
}
