// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package index implements the secondary, composite, full-text, and
// positional-inverted indexes plus the index manager (spec §3.5, §4.7). The
// ordered-map-of-postings structure generalizes the teacher's
// pkg/metricstore/level.go hierarchical map-of-children design: here each
// level is a single sorted key -> postings map instead of a fixed
// cluster/node/metric tree.
package index

import (
	"sort"
	"strings"
	"sync"

	"github.com/syloe1/kv-db-sub001/kvdberr"
	"github.com/syloe1/kv-db-sub001/value"
)

// Secondary is an ordered map from an indexed value's sort key to the
// ordered set of primary keys holding that value (spec §3.5, §4.7).
type Secondary struct {
	mu     sync.RWMutex
	unique bool
	// entries kept sorted by Key ascending; sorted via value.Compare on the
	// decoded TypedValue so Range/Prefix lookups can binary-search.
	values  []value.TypedValue
	postKey [][]string // postKey[i] holds the primary keys for values[i], sorted
}

// NewSecondary creates an empty secondary index. unique enforces
// |postings(v)| <= 1 on insert (spec §3.5).
func NewSecondary(unique bool) *Secondary {
	return &Secondary{unique: unique}
}

func (s *Secondary) find(v value.TypedValue) (int, bool) {
	i := sort.Search(len(s.values), func(i int) bool { return value.Compare(s.values[i], v) >= 0 })
	if i < len(s.values) && value.Equal(s.values[i], v) {
		return i, true
	}
	return i, false
}

// Insert records that primaryKey holds indexed value v (spec §4.7 add_to_indexes).
func (s *Secondary) Insert(v value.TypedValue, primaryKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, found := s.find(v)
	if found {
		if s.unique && len(s.postKey[i]) > 0 && !containsStr(s.postKey[i], primaryKey) {
			return kvdberr.ErrUniqueViolation
		}
		if !containsStr(s.postKey[i], primaryKey) {
			s.postKey[i] = insertSortedStr(s.postKey[i], primaryKey)
		}
		return nil
	}
	s.values = append(s.values, value.TypedValue{})
	copy(s.values[i+1:], s.values[i:])
	s.values[i] = v
	s.postKey = append(s.postKey, nil)
	copy(s.postKey[i+1:], s.postKey[i:])
	s.postKey[i] = []string{primaryKey}
	return nil
}

// Remove deletes primaryKey from the postings of v, dropping the value
// entirely once its postings are empty (spec §4.7 remove_from_indexes).
func (s *Secondary) Remove(v value.TypedValue, primaryKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, found := s.find(v)
	if !found {
		return
	}
	s.postKey[i] = removeStr(s.postKey[i], primaryKey)
	if len(s.postKey[i]) == 0 {
		s.values = append(s.values[:i], s.values[i+1:]...)
		s.postKey = append(s.postKey[:i], s.postKey[i+1:]...)
	}
}

// ExactLookup returns the postings for v, if any (spec §4.7).
func (s *Secondary) ExactLookup(v value.TypedValue) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, found := s.find(v)
	if !found {
		return nil
	}
	return append([]string(nil), s.postKey[i]...)
}

// RangeLookup returns the union of postings for indexed values in [lo, hi]
// (spec §4.7: "map sub-range iteration").
func (s *Secondary) RangeLookup(lo, hi value.TypedValue) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := sort.Search(len(s.values), func(i int) bool { return value.Compare(s.values[i], lo) >= 0 })
	var out []string
	for i := start; i < len(s.values); i++ {
		if value.Compare(s.values[i], hi) > 0 {
			break
		}
		out = append(out, s.postKey[i]...)
	}
	return out
}

// PrefixLookup returns the union of postings for String-valued entries
// whose value starts with p, walking from lower_bound(p) (spec §4.7).
func (s *Secondary) PrefixLookup(p string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lb := value.String(p)
	start := sort.Search(len(s.values), func(i int) bool { return value.Compare(s.values[i], lb) >= 0 })
	var out []string
	for i := start; i < len(s.values); i++ {
		if s.values[i].Tag != value.TypeString {
			continue
		}
		if !strings.HasPrefix(s.values[i].Str, p) {
			break // sorted order: once it stops matching the prefix it never resumes
		}
		out = append(out, s.postKey[i]...)
	}
	return out
}

// Len reports the number of distinct indexed values currently stored,
// used by the optimizer's selectivity estimates (spec §4.8).
func (s *Secondary) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

func containsStr(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func insertSortedStr(xs []string, x string) []string {
	i := sort.SearchStrings(xs, x)
	xs = append(xs, "")
	copy(xs[i+1:], xs[i:])
	xs[i] = x
	return xs
}

func removeStr(xs []string, x string) []string {
	out := make([]string, 0, len(xs))
	for _, v := range xs {
		if v != x {
			out = append(out, v)
		}
	}
	return out
}
