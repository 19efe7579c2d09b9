// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file encodes the WAL payload for Put/Del entries (spec §3.3:
// "payload encodes key plus (for Put) the serialized typed value"), reusing
// the value package's binary codec for the value half.
package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/syloe1/kv-db-sub001/kvdberr"
	"github.com/syloe1/kv-db-sub001/value"
)

func encodeKey(buf *bytes.Buffer, key string) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(key)))
	buf.Write(lenBuf[:])
	buf.WriteString(key)
}

func decodeKey(r *bytes.Reader) (string, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", fmt.Errorf("%w: reading key length: %v", kvdberr.ErrCodec, err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("%w: reading key bytes: %v", kvdberr.ErrCodec, err)
	}
	return string(b), nil
}

// encodePutPayload builds a Put entry's WAL payload: key followed by the
// value's binary-codec encoding.
func encodePutPayload(key string, v value.TypedValue) []byte {
	var buf bytes.Buffer
	encodeKey(&buf, key)
	buf.Write(value.SerializeBinary(v))
	return buf.Bytes()
}

// decodePutPayload is the inverse of encodePutPayload.
func decodePutPayload(payload []byte) (string, value.TypedValue, error) {
	r := bytes.NewReader(payload)
	key, err := decodeKey(r)
	if err != nil {
		return "", value.TypedValue{}, err
	}
	rest := make([]byte, r.Len())
	if _, err := io.ReadFull(r, rest); err != nil {
		return "", value.TypedValue{}, fmt.Errorf("%w: reading value bytes: %v", kvdberr.ErrCodec, err)
	}
	v, err := value.DeserializeBinary(rest)
	if err != nil {
		return "", value.TypedValue{}, err
	}
	return key, v, nil
}

// encodeDelPayload builds a Del entry's WAL payload: just the key.
func encodeDelPayload(key string) []byte {
	var buf bytes.Buffer
	encodeKey(&buf, key)
	return buf.Bytes()
}

// decodeDelPayload is the inverse of encodeDelPayload.
func decodeDelPayload(payload []byte) (string, error) {
	r := bytes.NewReader(payload)
	return decodeKey(r)
}
