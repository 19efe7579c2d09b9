// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package query implements the cost-based query optimizer (spec §4.8):
// mapping a QueryCondition to an index_query_kind, estimating the cost of
// every applicable index versus a full scan, and picking the cheapest
// feasible plan.
package query

import "github.com/syloe1/kv-db-sub001/value"

// Op is a condition's comparison operator (spec §4.8).
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLike
	OpNotLike
)

// Condition is one QueryCondition (spec §4.8).
type Condition struct {
	Field string
	Op    Op
	Value value.TypedValue
	Like  string // glob pattern, used when Op is OpLike/OpNotLike
}

// IndexQueryKind mirrors index.QueryKind but stays decoupled from the index
// package so the optimizer can be understood/tested on its own.
type IndexQueryKind int

const (
	KindExact IndexQueryKind = iota
	KindRange
	KindPrefix
)

// MapOpToKind maps op to an index_query_kind (spec §4.8 step 1):
// `=` -> Exact, the four ordering operators -> Range, LIKE -> Prefix.
// Ne and NotLike never map to an index (the index manager cannot answer
// "not equal"/"not like" from postings alone) and always fall back to full
// scan.
func MapOpToKind(op Op) (IndexQueryKind, bool) {
	switch op {
	case OpEq:
		return KindExact, true
	case OpLt, OpLe, OpGt, OpGe:
		return KindRange, true
	case OpLike:
		return KindPrefix, true
	default:
		return 0, false
	}
}
