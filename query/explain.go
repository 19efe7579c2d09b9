// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file renders a chosen Plan as an EXPLAIN-shaped SQL string using
// Masterminds/squirrel's query builder, purely for human-readable tracing
// of optimizer decisions (spec §4.8 Non-goals permit the trivial sample-
// query subset this reuses; no SQL is ever executed).
package query

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/syloe1/kv-db-sub001/value"
)

// Explain renders plan as a single EXPLAIN line describing the chosen
// index access path (or full scan) for condition c against table "kv".
func Explain(c Condition, plan Plan) (string, error) {
	builder := sq.Select("key", "value").From("kv")

	if plan.UseIndex {
		builder = builder.Where(sq.Eq{"__index_used": plan.IndexName})
	} else {
		builder = builder.Where(conditionToSquirrel(c))
	}

	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("EXPLAIN (index=%v cost=%.2f selectivity=%.3f) %s %v",
		planAccessPath(plan), plan.EstCost, plan.EstSelectivity, sqlStr, args), nil
}

func planAccessPath(plan Plan) string {
	if plan.UseIndex {
		return plan.IndexName
	}
	return "full_scan"
}

func conditionToSquirrel(c Condition) sq.Sqlizer {
	lit := value.ToString(c.Value)
	switch c.Op {
	case OpEq:
		return sq.Eq{c.Field: lit}
	case OpNe:
		return sq.NotEq{c.Field: lit}
	case OpLt:
		return sq.Lt{c.Field: lit}
	case OpLe:
		return sq.LtOrEq{c.Field: lit}
	case OpGt:
		return sq.Gt{c.Field: lit}
	case OpGe:
		return sq.GtOrEq{c.Field: lit}
	case OpLike:
		return sq.Like{c.Field: c.Like}
	case OpNotLike:
		return sq.NotLike{c.Field: c.Like}
	default:
		return sq.Expr("1=1")
	}
}
