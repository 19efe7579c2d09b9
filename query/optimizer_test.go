// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syloe1/kv-db-sub001/value"
)

type fakeCatalog struct {
	applicable map[string][]string
	lens       map[string]int
}

func (f *fakeCatalog) ApplicableIndexes(field string) []string { return f.applicable[field] }
func (f *fakeCatalog) Len(name string) (int, bool) {
	n, ok := f.lens[name]
	return n, ok
}

func TestOptimizeOneChoosesIndexOverFullScanWhenCheaper(t *testing.T) {
	cat := &fakeCatalog{
		applicable: map[string][]string{"name": {"by_name"}},
		lens:       map[string]int{"by_name": 1000},
	}
	o := NewOptimizer(cat)
	plan := o.OptimizeOne(Condition{Field: "name", Op: OpEq, Value: value.String("alice")}, 1_000_000)
	require.True(t, plan.UseIndex)
	require.Equal(t, "by_name", plan.IndexName)
}

func TestOptimizeOneFallsBackToFullScanWithNoApplicableIndex(t *testing.T) {
	cat := &fakeCatalog{applicable: map[string][]string{}}
	o := NewOptimizer(cat)
	plan := o.OptimizeOne(Condition{Field: "name", Op: OpEq, Value: value.String("x")}, 100)
	require.False(t, plan.UseIndex)
	require.Equal(t, float64(100), plan.EstCost)
}

func TestOptimizeOneNeAlwaysFullScan(t *testing.T) {
	cat := &fakeCatalog{applicable: map[string][]string{"name": {"by_name"}}, lens: map[string]int{"by_name": 10}}
	o := NewOptimizer(cat)
	plan := o.OptimizeOne(Condition{Field: "name", Op: OpNe, Value: value.String("x")}, 100)
	require.False(t, plan.UseIndex)
}

func TestOptimizeAndPicksCheapestAndMultipliesSelectivity(t *testing.T) {
	cat := &fakeCatalog{
		applicable: map[string][]string{"a": {"idx_a"}, "b": {"idx_b"}},
		lens:       map[string]int{"idx_a": 10, "idx_b": 100000},
	}
	o := NewOptimizer(cat)
	conds := []Condition{
		{Field: "a", Op: OpEq, Value: value.Int(1)},
		{Field: "b", Op: OpEq, Value: value.Int(2)},
	}
	plan := o.OptimizeAnd(conds, 1_000_000)
	require.True(t, plan.UseIndex)
	require.InDelta(t, DefaultEqSelectivity*DefaultEqSelectivity, plan.EstSelectivity, 1e-9)
}

func TestOptimizeOrSumsSelectivitiesCappedAtOne(t *testing.T) {
	cat := &fakeCatalog{}
	o := NewOptimizer(cat)
	conds := []Condition{
		{Field: "a", Op: OpEq},
		{Field: "b", Op: OpLike},
		{Field: "c", Op: OpLt},
	}
	plan := o.OptimizeOr(conds, 1000)
	require.False(t, plan.UseIndex)
	require.LessOrEqual(t, plan.EstSelectivity, 1.0)
}

func TestCompilePredicateEvaluatesEquality(t *testing.T) {
	c := Condition{Field: "status", Op: OpEq, Value: value.String("active")}
	prog, err := CompilePredicate(c)
	require.NoError(t, err)

	ok, err := Eval(prog, Record{"status": "active"})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Eval(prog, Record{"status": "inactive"})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCompilePredicateNumericComparison(t *testing.T) {
	c := Condition{Field: "age", Op: OpGe, Value: value.Int(18)}
	prog, err := CompilePredicate(c)
	require.NoError(t, err)

	ok, err := Eval(prog, Record{"age": 21})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Eval(prog, Record{"age": 10})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestExplainRendersIndexPlan(t *testing.T) {
	c := Condition{Field: "name", Op: OpEq, Value: value.String("alice")}
	plan := Plan{UseIndex: true, IndexName: "by_name", EstCost: 5.5, EstSelectivity: 0.1}
	out, err := Explain(c, plan)
	require.NoError(t, err)
	require.Contains(t, out, "by_name")
}

func TestExplainRendersFullScanPlan(t *testing.T) {
	c := Condition{Field: "name", Op: OpEq, Value: value.String("alice")}
	plan := Plan{UseIndex: false, EstCost: 1000, EstSelectivity: 0.1}
	out, err := Explain(c, plan)
	require.NoError(t, err)
	require.Contains(t, out, "full_scan")
}
