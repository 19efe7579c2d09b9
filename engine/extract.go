// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file resolves named "fields" out of a stored TypedValue for the
// index subsystem: a Map value exposes its entries as fields by name; any
// other value is treated as a single unnamed field, letting a secondary
// index be declared directly over a scalar/list/set value rather than only
// over map records.
package engine

import (
	"strings"

	"github.com/syloe1/kv-db-sub001/index"
	"github.com/syloe1/kv-db-sub001/value"
)

type valueExtractor struct{}

// Extract implements index.Extractor.
func (valueExtractor) Extract(v value.TypedValue, fields []string) ([]value.TypedValue, string) {
	vals := make([]value.TypedValue, len(fields))
	var textParts []string

	if v.Tag == value.TypeMap {
		for i, name := range fields {
			vals[i] = mapField(v, name)
		}
	} else if len(fields) >= 1 {
		vals[0] = v
		for i := 1; i < len(fields); i++ {
			vals[i] = value.Null()
		}
	}

	if v.Tag == value.TypeString {
		textParts = append(textParts, v.Str)
	} else if v.Tag == value.TypeMap {
		for _, e := range v.Map {
			if e.Value.Tag == value.TypeString {
				textParts = append(textParts, e.Value.Str)
			}
		}
	}
	return vals, strings.Join(textParts, " ")
}

func mapField(v value.TypedValue, name string) value.TypedValue {
	for _, e := range v.Map {
		if e.Key == name {
			return e.Value
		}
	}
	return value.Null()
}

// keyspaceSource implements index.Source by scanning every live key in the
// engine's memtable at the current snapshot (spec §4.7: "scans the live KV
// space and populates" on index creation).
type keyspaceSource struct {
	eng *Engine
}

func (s keyspaceSource) ScanField(fields []string) ([]index.FieldRow, error) {
	snap := s.eng.GetSnapshot()
	keys := s.eng.mem.Keys()
	rows := make([]index.FieldRow, 0, len(keys))
	for _, k := range keys {
		v, ok := s.eng.mem.Get(k, snap)
		if !ok {
			continue
		}
		vals, text := valueExtractor{}.Extract(v, fields)
		rows = append(rows, index.FieldRow{PrimaryKey: k, Fields: vals, Text: text})
	}
	return rows, nil
}
