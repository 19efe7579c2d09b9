// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package value implements the engine's typed value algebra: a tagged
// union over scalars, temporals, containers, and blobs (spec §3.1), its
// binary and text wire codecs (spec §4.1, §6.1/§6.2), and convert_to.
//
// # Variant ordering
//
// Values are totally ordered: the variant tag orders first, then
// variant-local comparison breaks ties. Set uses this order to keep its
// elements sorted and unique; Map preserves insertion order (it is an
// ordered mapping, not a sorted one).
package value

import (
	"bytes"
	"fmt"
)

// Type is the variant tag of a TypedValue. Its numeric value is also the
// primary ordering key across variants and the tag byte of the binary codec.
type Type uint8

const (
	TypeNull Type = iota
	TypeInt
	TypeFloat
	TypeDouble
	TypeString
	TypeTimestamp
	TypeDate
	TypeList
	TypeSet
	TypeMap
	TypeBlob
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "Null"
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeDouble:
		return "Double"
	case TypeString:
		return "String"
	case TypeTimestamp:
		return "Timestamp"
	case TypeDate:
		return "Date"
	case TypeList:
		return "List"
	case TypeSet:
		return "Set"
	case TypeMap:
		return "Map"
	case TypeBlob:
		return "Blob"
	default:
		return "Unknown"
	}
}

// Date is a calendar date, stored as three signed 32-bit components so it
// roundtrips through the binary codec without timezone ambiguity.
type Date struct {
	Year, Month, Day int32
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) compare(o Date) int {
	if d.Year != o.Year {
		return cmpInt64(int64(d.Year), int64(o.Year))
	}
	if d.Month != o.Month {
		return cmpInt64(int64(d.Month), int64(o.Month))
	}
	return cmpInt64(int64(d.Day), int64(o.Day))
}

// MapEntry is one (key, value) pair of an ordered Map. Map preserves
// insertion order rather than sorting by key, matching spec §3.1
// ("ordered mapping").
type MapEntry struct {
	Key   string
	Value TypedValue
}

// TypedValue is the engine's tagged-union value type (spec §3.1). The zero
// value is Null. Exactly one of the Variant-local fields is meaningful for
// any given Tag; constructors below are the supported way to build one.
type TypedValue struct {
	Tag    Type
	Int    int64
	Float  float32
	Double float64
	Str    string
	Ts     int64 // Timestamp: ms since epoch
	D      Date
	List   []TypedValue
	Set    []TypedValue // kept sorted + unique by Compare
	Map    []MapEntry
	Blob   []byte
}

func Null() TypedValue                  { return TypedValue{Tag: TypeNull} }
func Int(v int64) TypedValue            { return TypedValue{Tag: TypeInt, Int: v} }
func Float(v float32) TypedValue        { return TypedValue{Tag: TypeFloat, Float: v} }
func Double(v float64) TypedValue       { return TypedValue{Tag: TypeDouble, Double: v} }
func String(v string) TypedValue        { return TypedValue{Tag: TypeString, Str: v} }
func Timestamp(msSinceEpoch int64) TypedValue {
	return TypedValue{Tag: TypeTimestamp, Ts: msSinceEpoch}
}
func NewDate(y, m, d int32) TypedValue { return TypedValue{Tag: TypeDate, D: Date{y, m, d}} }
func Blob(b []byte) TypedValue         { return TypedValue{Tag: TypeBlob, Blob: append([]byte(nil), b...)} }

// List constructs a List variant, cloning the backing slice so the caller's
// slice can be mutated afterwards without affecting the cell (spec §9:
// container mutations produce new immutable cells).
func List(vs []TypedValue) TypedValue {
	return TypedValue{Tag: TypeList, List: append([]TypedValue(nil), vs...)}
}

// Set constructs a Set variant from vs, sorting and de-duplicating by Compare.
func Set(vs []TypedValue) TypedValue {
	cp := append([]TypedValue(nil), vs...)
	sortValues(cp)
	cp = dedupSorted(cp)
	return TypedValue{Tag: TypeSet, Set: cp}
}

// Map constructs a Map variant preserving the given entry order.
func Map(entries []MapEntry) TypedValue {
	return TypedValue{Tag: TypeMap, Map: append([]MapEntry(nil), entries...)}
}

func (v TypedValue) IsNull() bool { return v.Tag == TypeNull }

// Clone returns a deep copy so that container-mutating ops never alias the
// storage of a previous cell (spec §4.2: "MUST NOT mutate prior cells in place").
func (v TypedValue) Clone() TypedValue {
	out := v
	if v.List != nil {
		out.List = make([]TypedValue, len(v.List))
		for i, e := range v.List {
			out.List[i] = e.Clone()
		}
	}
	if v.Set != nil {
		out.Set = make([]TypedValue, len(v.Set))
		for i, e := range v.Set {
			out.Set[i] = e.Clone()
		}
	}
	if v.Map != nil {
		out.Map = make([]MapEntry, len(v.Map))
		for i, e := range v.Map {
			out.Map[i] = MapEntry{Key: e.Key, Value: e.Value.Clone()}
		}
	}
	if v.Blob != nil {
		out.Blob = append([]byte(nil), v.Blob...)
	}
	return out
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Compare implements the total order of spec §3.1: tag first, then
// variant-local order. It panics on no input other than well-formed
// TypedValue, i.e. it never needs to; composite variants recurse
// lexicographically.
func Compare(a, b TypedValue) int {
	if a.Tag != b.Tag {
		return cmpInt64(int64(a.Tag), int64(b.Tag))
	}
	switch a.Tag {
	case TypeNull:
		return 0
	case TypeInt:
		return cmpInt64(a.Int, b.Int)
	case TypeFloat:
		return cmpFloat64(float64(a.Float), float64(b.Float))
	case TypeDouble:
		return cmpFloat64(a.Double, b.Double)
	case TypeString:
		return bytes.Compare([]byte(a.Str), []byte(b.Str))
	case TypeTimestamp:
		return cmpInt64(a.Ts, b.Ts)
	case TypeDate:
		return a.D.compare(b.D)
	case TypeBlob:
		return bytes.Compare(a.Blob, b.Blob)
	case TypeList, TypeSet:
		av, bv := a.List, b.List
		if a.Tag == TypeSet {
			av, bv = a.Set, b.Set
		}
		n := len(av)
		if len(bv) < n {
			n = len(bv)
		}
		for i := 0; i < n; i++ {
			if c := Compare(av[i], bv[i]); c != 0 {
				return c
			}
		}
		return cmpInt64(int64(len(av)), int64(len(bv)))
	case TypeMap:
		n := len(a.Map)
		if len(b.Map) < n {
			n = len(b.Map)
		}
		for i := 0; i < n; i++ {
			if c := bytes.Compare([]byte(a.Map[i].Key), []byte(b.Map[i].Key)); c != 0 {
				return c
			}
			if c := Compare(a.Map[i].Value, b.Map[i].Value); c != 0 {
				return c
			}
		}
		return cmpInt64(int64(len(a.Map)), int64(len(b.Map)))
	default:
		return 0
	}
}

// Equal reports structural equality (spec §3.1).
func Equal(a, b TypedValue) bool { return Compare(a, b) == 0 }

func sortValues(vs []TypedValue) {
	// insertion sort: Set payloads are small in practice (tag/field values),
	// and this keeps Compare as the single source of truth for ordering.
	for i := 1; i < len(vs); i++ {
		for j := i; j > 0 && Compare(vs[j-1], vs[j]) > 0; j-- {
			vs[j-1], vs[j] = vs[j], vs[j-1]
		}
	}
}

func dedupSorted(vs []TypedValue) []TypedValue {
	if len(vs) == 0 {
		return vs
	}
	out := vs[:1]
	for _, v := range vs[1:] {
		if !Equal(out[len(out)-1], v) {
			out = append(out, v)
		}
	}
	return out
}

// SetAdd returns a new Set TypedValue with v inserted (no-op if present).
func SetAdd(s TypedValue, v TypedValue) TypedValue {
	cp := append([]TypedValue(nil), s.Set...)
	cp = append(cp, v)
	sortValues(cp)
	cp = dedupSorted(cp)
	return TypedValue{Tag: TypeSet, Set: cp}
}

// SetRemove returns a new Set TypedValue with v removed, if present.
func SetRemove(s TypedValue, v TypedValue) TypedValue {
	out := make([]TypedValue, 0, len(s.Set))
	for _, e := range s.Set {
		if !Equal(e, v) {
			out = append(out, e)
		}
	}
	return TypedValue{Tag: TypeSet, Set: out}
}

func SetContains(s TypedValue, v TypedValue) bool {
	for _, e := range s.Set {
		if Equal(e, v) {
			return true
		}
	}
	return false
}

// MapPut returns a new Map TypedValue with field set to v, preserving the
// position of an existing field or appending a new entry.
func MapPut(m TypedValue, field string, v TypedValue) TypedValue {
	out := append([]MapEntry(nil), m.Map...)
	for i, e := range out {
		if e.Key == field {
			out[i].Value = v
			return TypedValue{Tag: TypeMap, Map: out}
		}
	}
	out = append(out, MapEntry{Key: field, Value: v})
	return TypedValue{Tag: TypeMap, Map: out}
}

func MapGet(m TypedValue, field string) (TypedValue, bool) {
	for _, e := range m.Map {
		if e.Key == field {
			return e.Value, true
		}
	}
	return TypedValue{}, false
}

func MapRemove(m TypedValue, field string) TypedValue {
	out := make([]MapEntry, 0, len(m.Map))
	for _, e := range m.Map {
		if e.Key != field {
			out = append(out, e)
		}
	}
	return TypedValue{Tag: TypeMap, Map: out}
}
