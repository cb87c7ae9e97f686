// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how SQLite stores document bodies at rest.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

// ParseCompression accepts the configuration spelling of a compression
// mode. The empty string selects zstd.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case "", CompressionZstd:
		return CompressionZstd, nil
	case CompressionNone, CompressionLZ4:
		return Compression(name), nil
	}
	return "", fmt.Errorf("unknown compression %q (want none, zstd, or lz4)", name)
}

// Body encodings recorded next to each stored document. A document
// that does not shrink under the configured compression is stored as
// plain CBOR.
const (
	encodingCBOR     = "cbor"
	encodingCBORZstd = "cbor+zstd"
	encodingCBORLZ4  = "cbor+lz4"
)

var errIncompressible = errors.New("data is incompressible")

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("store: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("store: zstd decoder initialization failed: " + err.Error())
	}
}

// compressBody returns the at-rest bytes and their encoding label.
func compressBody(body []byte, compression Compression) ([]byte, string, error) {
	var (
		compressed []byte
		encoding   string
		err        error
	)
	switch compression {
	case CompressionNone, "":
		return body, encodingCBOR, nil
	case CompressionZstd:
		compressed, encoding = zstdEncoder.EncodeAll(body, nil), encodingCBORZstd
		if len(compressed) >= len(body) {
			err = errIncompressible
		}
	case CompressionLZ4:
		compressed, err = compressLZ4(body)
		encoding = encodingCBORLZ4
	default:
		return nil, "", fmt.Errorf("unsupported compression %q", compression)
	}
	if errors.Is(err, errIncompressible) {
		return body, encodingCBOR, nil
	}
	if err != nil {
		return nil, "", err
	}
	return compressed, encoding, nil
}

// decompressBody reverses compressBody. size is the uncompressed
// length recorded at write time.
func decompressBody(stored []byte, encoding string, size int) ([]byte, error) {
	switch encoding {
	case encodingCBOR:
		return stored, nil
	case encodingCBORZstd:
		body, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(body) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(body), size)
		}
		return body, nil
	case encodingCBORLZ4:
		body := make([]byte, size)
		read, err := lz4.UncompressBlock(stored, body)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
		}
		return body, nil
	}
	return nil, fmt.Errorf("unknown body encoding %q", encoding)
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}
