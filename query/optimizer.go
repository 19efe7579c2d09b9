// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package query

// Optimizer picks a Plan for conditions against an index catalog and a
// known keyspace size n (spec §4.8).
type Optimizer struct {
	catalog IndexCatalog
}

func NewOptimizer(catalog IndexCatalog) *Optimizer {
	return &Optimizer{catalog: catalog}
}

// OptimizeOne implements spec §4.8's single-condition algorithm: map op to
// a kind, ask the catalog for applicable indexes, estimate each one's cost,
// and choose the cheapest that beats a full scan.
func (o *Optimizer) OptimizeOne(c Condition, n int) Plan {
	kind, ok := MapOpToKind(c.Op)
	if !ok {
		return fullScanPlan(n, estimateSelectivityForOp(c.Op))
	}

	names := o.catalog.ApplicableIndexes(c.Field)
	fullScan := fullScanPlan(n, estimateSelectivityForOp(c.Op))
	if len(names) == 0 {
		return fullScan
	}

	best := fullScan
	for _, name := range names {
		indexLen, _ := o.catalog.Len(name)
		plan := candidatePlan(name, kind, indexLen, DefaultEqSelectivity)
		if plan.EstCost < best.EstCost {
			best = plan
		}
	}
	return best
}

func estimateSelectivityForOp(op Op) float64 {
	switch op {
	case OpEq:
		return DefaultEqSelectivity
	case OpLt, OpLe, OpGt, OpGe:
		return DefaultRangeSelectivity
	case OpLike:
		return DefaultLikeSelectivity
	default:
		return 1.0
	}
}

// OptimizeAnd implements spec §4.8's AND rule: independently optimize each
// condition, then pick the cheapest individual plan and report it alongside
// the product of every condition's selectivity multiplied through (the
// combined estimate for the whole conjunction, since each index narrows the
// surviving candidate set independently of which one physically executes).
func (o *Optimizer) OptimizeAnd(conds []Condition, n int) Plan {
	if len(conds) == 0 {
		return fullScanPlan(n, 1.0)
	}
	plans := make([]Plan, len(conds))
	product := 1.0
	bestIdx := 0
	for i, c := range conds {
		plans[i] = o.OptimizeOne(c, n)
		product *= plans[i].EstSelectivity
		if plans[i].EstCost < plans[bestIdx].EstCost {
			bestIdx = i
		}
	}

	best := plans[bestIdx]
	best.EstSelectivity = product
	return best
}

// OptimizeOr implements spec §4.8's OR rule: full scan with selectivities
// summed and capped at 1.0.
func (o *Optimizer) OptimizeOr(conds []Condition, n int) Plan {
	var sum float64
	for _, c := range conds {
		sum += estimateSelectivityForOp(c.Op)
	}
	if sum > 1.0 {
		sum = 1.0
	}
	return fullScanPlan(n, sum)
}
