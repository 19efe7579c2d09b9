// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package query

// Default selectivities and cost constants (spec §4.8).
const (
	DefaultEqSelectivity    = 0.1
	DefaultRangeSelectivity = 0.3
	DefaultLikeSelectivity  = 0.2

	FullScanCostPerRecord  = 1.0
	LookupBaseCost         = 5.0
	ScanCostPerRecord      = 0.5
)

// Plan is a QueryPlan (spec §4.8).
type Plan struct {
	UseIndex       bool
	IndexName      string
	IndexQueryKind IndexQueryKind
	CandidateKeys  []string // populated by the caller once it executes the plan
	EstCost        float64
	EstSelectivity float64
}

// IndexCatalog is the subset of the index manager the optimizer needs: the
// cardinality of a named index and which indexes apply to a field.
type IndexCatalog interface {
	ApplicableIndexes(field string) []string
	Len(name string) (int, bool)
}

// candidatePlan computes the estimated cost/selectivity of using a
// specific index for kind (spec §4.8 step 3).
func candidatePlan(name string, kind IndexQueryKind, indexLen int, eqSelectivity float64) Plan {
	var estRows float64
	var selectivity float64
	switch kind {
	case KindExact:
		selectivity = eqSelectivity
		if selectivity <= 0 {
			selectivity = DefaultEqSelectivity
		}
		estRows = 1 / selectivity
	case KindRange:
		selectivity = DefaultRangeSelectivity
		estRows = float64(indexLen) * DefaultRangeSelectivity
	case KindPrefix:
		selectivity = DefaultLikeSelectivity
		estRows = float64(indexLen) * 0.2
	}
	cost := LookupBaseCost + ScanCostPerRecord*estRows
	return Plan{
		UseIndex:       true,
		IndexName:      name,
		IndexQueryKind: kind,
		EstCost:        cost,
		EstSelectivity: selectivity,
	}
}

func fullScanPlan(n int, selectivity float64) Plan {
	return Plan{
		UseIndex:       false,
		EstCost:        float64(n) * FullScanCostPerRecord,
		EstSelectivity: selectivity,
	}
}
