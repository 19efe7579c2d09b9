// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file implements the binary wire codec (spec §4.1, §6.1).
//
// # Layout
//
//	tag byte (no version byte precedes it; records carry no format version)
//	payload, per tag:
//	  Null:      (none)
//	  Int:       int64 LE
//	  Float:     float32 bits LE
//	  Double:    float64 bits LE
//	  String:    uint32 len LE + bytes
//	  Timestamp: int64 LE (ms since epoch)
//	  Date:      int32 year, int32 month, int32 day, all LE
//	  List/Set:  uint32 count LE + per-element (uint32 len LE + sub-record)
//	  Map:       uint32 count LE + per-entry (len-prefixed key, len-prefixed value)
//	  Blob:      uint32 len LE + bytes
//
// Sub-records recurse through the same tag-prefixed encoding, so nested
// containers are just concatenated encode() calls. maxNestingDepth guards
// against unbounded recursion on untrusted input (spec §9).
package value

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/syloe1/kv-db-sub001/kvdberr"
)

// maxNestingDepth bounds List/Set/Map recursion during decode.
const maxNestingDepth = 64

// SerializeBinary encodes v using the fixed binary layout described above.
func SerializeBinary(v TypedValue) []byte {
	var buf bytes.Buffer
	encodeValue(&buf, v)
	return buf.Bytes()
}

// DeserializeBinary decodes exactly one TypedValue from b. It is strict:
// trailing bytes or truncated input both fail with ErrCodec.
func DeserializeBinary(b []byte) (TypedValue, error) {
	r := bytes.NewReader(b)
	v, err := decodeValue(r, 0)
	if err != nil {
		return TypedValue{}, err
	}
	if r.Len() != 0 {
		return TypedValue{}, fmt.Errorf("%w: %d trailing bytes", kvdberr.ErrCodec, r.Len())
	}
	return v, nil
}

func encodeValue(buf *bytes.Buffer, v TypedValue) {
	buf.WriteByte(byte(v.Tag))
	switch v.Tag {
	case TypeNull:
	case TypeInt:
		writeU64(buf, uint64(v.Int))
	case TypeFloat:
		writeU32(buf, math.Float32bits(v.Float))
	case TypeDouble:
		writeU64(buf, math.Float64bits(v.Double))
	case TypeString:
		writeLenPrefixed(buf, []byte(v.Str))
	case TypeTimestamp:
		writeU64(buf, uint64(v.Ts))
	case TypeDate:
		writeU32(buf, uint32(v.D.Year))
		writeU32(buf, uint32(v.D.Month))
		writeU32(buf, uint32(v.D.Day))
	case TypeList:
		encodeSeq(buf, v.List)
	case TypeSet:
		encodeSeq(buf, v.Set)
	case TypeMap:
		writeU32(buf, uint32(len(v.Map)))
		for _, e := range v.Map {
			writeLenPrefixed(buf, []byte(e.Key))
			sub := encodeSub(e.Value)
			writeLenPrefixed(buf, sub)
		}
	case TypeBlob:
		writeLenPrefixed(buf, v.Blob)
	}
}

func encodeSeq(buf *bytes.Buffer, vs []TypedValue) {
	writeU32(buf, uint32(len(vs)))
	for _, e := range vs {
		sub := encodeSub(e)
		writeLenPrefixed(buf, sub)
	}
}

func encodeSub(v TypedValue) []byte {
	var sub bytes.Buffer
	encodeValue(&sub, v)
	return sub.Bytes()
}

func decodeValue(r *bytes.Reader, depth int) (TypedValue, error) {
	if depth > maxNestingDepth {
		return TypedValue{}, fmt.Errorf("%w: nesting exceeds %d", kvdberr.ErrCodec, maxNestingDepth)
	}
	tagByte, err := r.ReadByte()
	if err != nil {
		return TypedValue{}, fmt.Errorf("%w: missing tag: %v", kvdberr.ErrCodec, err)
	}
	tag := Type(tagByte)
	switch tag {
	case TypeNull:
		return Null(), nil
	case TypeInt:
		u, err := readU64(r)
		if err != nil {
			return TypedValue{}, err
		}
		return Int(int64(u)), nil
	case TypeFloat:
		u, err := readU32(r)
		if err != nil {
			return TypedValue{}, err
		}
		return Float(math.Float32frombits(u)), nil
	case TypeDouble:
		u, err := readU64(r)
		if err != nil {
			return TypedValue{}, err
		}
		return Double(math.Float64frombits(u)), nil
	case TypeString:
		b, err := readLenPrefixed(r)
		if err != nil {
			return TypedValue{}, err
		}
		return String(string(b)), nil
	case TypeTimestamp:
		u, err := readU64(r)
		if err != nil {
			return TypedValue{}, err
		}
		return Timestamp(int64(u)), nil
	case TypeDate:
		y, err := readU32(r)
		if err != nil {
			return TypedValue{}, err
		}
		m, err := readU32(r)
		if err != nil {
			return TypedValue{}, err
		}
		d, err := readU32(r)
		if err != nil {
			return TypedValue{}, err
		}
		return NewDate(int32(y), int32(m), int32(d)), nil
	case TypeList, TypeSet:
		count, err := readU32(r)
		if err != nil {
			return TypedValue{}, err
		}
		items := make([]TypedValue, 0, count)
		for i := uint32(0); i < count; i++ {
			sub, err := readLenPrefixed(r)
			if err != nil {
				return TypedValue{}, err
			}
			elem, err := decodeValue(bytes.NewReader(sub), depth+1)
			if err != nil {
				return TypedValue{}, err
			}
			items = append(items, elem)
		}
		if tag == TypeList {
			return List(items), nil
		}
		return Set(items), nil
	case TypeMap:
		count, err := readU32(r)
		if err != nil {
			return TypedValue{}, err
		}
		entries := make([]MapEntry, 0, count)
		for i := uint32(0); i < count; i++ {
			key, err := readLenPrefixed(r)
			if err != nil {
				return TypedValue{}, err
			}
			sub, err := readLenPrefixed(r)
			if err != nil {
				return TypedValue{}, err
			}
			val, err := decodeValue(bytes.NewReader(sub), depth+1)
			if err != nil {
				return TypedValue{}, err
			}
			entries = append(entries, MapEntry{Key: string(key), Value: val})
		}
		return Map(entries), nil
	case TypeBlob:
		b, err := readLenPrefixed(r)
		if err != nil {
			return TypedValue{}, err
		}
		return Blob(b), nil
	default:
		return TypedValue{}, fmt.Errorf("%w: unknown tag %d", kvdberr.ErrCodec, tagByte)
	}
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func writeLenPrefixed(buf *bytes.Buffer, b []byte) {
	writeU32(buf, uint32(len(b)))
	buf.Write(b)
}

func readU32(r *bytes.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", kvdberr.ErrCodec, err)
	}
	return binary.LittleEndian.Uint32(tmp[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", kvdberr.ErrCodec, err)
	}
	return binary.LittleEndian.Uint64(tmp[:]), nil
}

func readLenPrefixed(r *bytes.Reader) ([]byte, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if int(n) > r.Len() {
		return nil, fmt.Errorf("%w: length %d exceeds remaining input", kvdberr.ErrCodec, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("%w: %v", kvdberr.ErrCodec, err)
	}
	return b, nil
}
