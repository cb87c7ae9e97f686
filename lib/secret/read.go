// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ReadFromPath reads a secret from path, or the first line of stdin
// when path is "-". Surrounding whitespace is dropped; an empty secret
// is an error.
func ReadFromPath(path string) (*Buffer, error) {
	var data []byte
	if path == "-" {
		line, err := bufio.NewReader(os.Stdin).ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		data = line
	} else {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	defer Zero(data)

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("secret %s is empty", path)
	}
	return NewFromBytes(trimmed)
}

// ReadHexKey reads a hex-encoded key of exactly size bytes from path
// (see [ReadFromPath]).
func ReadHexKey(path string, size int) (*Buffer, error) {
	encoded, err := ReadFromPath(path)
	if err != nil {
		return nil, err
	}
	defer encoded.Close()
	return DecodeHexKey(encoded.Bytes(), size)
}

// DecodeHexKey decodes a hex key of exactly size bytes into a new
// buffer. encoded is not modified.
func DecodeHexKey(encoded []byte, size int) (*Buffer, error) {
	if hex.DecodedLen(len(encoded)) != size {
		return nil, fmt.Errorf("key is %d hex characters, want %d", len(encoded), hex.EncodedLen(size))
	}
	key, err := New(size)
	if err != nil {
		return nil, err
	}
	if _, err := hex.Decode(key.Bytes(), encoded); err != nil {
		key.Close()
		return nil, fmt.Errorf("decoding key: %w", err)
	}
	return key, nil
}
