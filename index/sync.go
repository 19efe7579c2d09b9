// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file adds a commit-path entry point that dispatches maintenance to
// every index using THAT index's own field list, rather than one shared
// FieldRow across indexes with differing field lists (spec §4.7:
// add_to_indexes/remove_from_indexes/update_indexes). AddToIndexes/
// RemoveFromIndexes/UpdateIndexes (manager.go) stay as the single-row,
// single-shape entry points for callers that already know the right shape;
// Sync is for a control plane juggling many differently-shaped indexes at
// once over the same key.
package index

import "github.com/syloe1/kv-db-sub001/value"

// Extractor resolves, for a given stored value and an index's field list,
// the per-field values and any indexable text.
type Extractor interface {
	Extract(v value.TypedValue, fields []string) (fieldVals []value.TypedValue, text string)
}

// Sync applies the effect of replacing primaryKey's value from oldVal to
// newVal (either may be the zero TypedValue paired with present=false to
// mean "did not exist") across every registered index, each addressed with
// its own field list via ex.
func (m *Manager) Sync(primaryKey string, oldVal value.TypedValue, oldPresent bool, newVal value.TypedValue, newPresent bool, ex Extractor) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ni := range m.indexes {
		if oldPresent {
			vals, text := ex.Extract(oldVal, ni.fields)
			removeFromOne(ni, vals, text, primaryKey)
		}
		if newPresent {
			vals, text := ex.Extract(newVal, ni.fields)
			if err := ni.add(FieldRow{PrimaryKey: primaryKey, Fields: vals, Text: text}, m.tok); err != nil {
				return err
			}
		}
	}
	return nil
}

func removeFromOne(ni *namedIndex, fields []value.TypedValue, text string, primaryKey string) {
	switch ni.kind {
	case KindSecondary:
		if len(fields) > 0 {
			ni.sec.Remove(fields[0], primaryKey)
		}
	case KindComposite:
		strs := make([]string, len(fields))
		for i, f := range fields {
			strs[i] = value.ToString(f)
		}
		ni.comp.Remove(value.String(CompositeKey(strs)), primaryKey)
	case KindFullText:
		ni.ft.Remove(primaryKey)
	case KindPositional:
		ni.pos.Remove(primaryKey)
	}
}
