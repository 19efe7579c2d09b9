// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file implements the index manager (spec §4.7): creates/drops
// indexes by name, owns them by kind, scans the live keyspace to populate a
// newly created index, and dispatches lookup/maintenance calls to the
// underlying index instances.
package index

import (
	"sync"
	"time"

	"github.com/syloe1/kv-db-sub001/kvdberr"
	"github.com/syloe1/kv-db-sub001/value"
)

// Kind identifies which index implementation a named index uses.
type Kind int

const (
	KindSecondary Kind = iota
	KindComposite
	KindFullText
	KindPositional
)

// Source is the read surface the manager needs to populate a new index on
// creation: every live (key, field-value) pair for the fields being indexed.
type Source interface {
	// ScanField returns (primaryKey, fieldValue) for every key that
	// currently has a value for the named field/whole-value index.
	ScanField(fields []string) ([]FieldRow, error)
}

// FieldRow is one (primary key, field values) pair from the keyspace scan.
type FieldRow struct {
	PrimaryKey string
	Fields     []value.TypedValue // one per field in the index's Fields list, in order
	Text       string             // concatenated text, used for FullText/Positional indexes
}

type namedIndex struct {
	kind   Kind
	fields []string
	sec    *Secondary
	comp   *Composite
	ft     *FullText
	pos    *Positional
}

// Manager owns every created index by name (spec §4.7).
//
// mu guards the indexes map itself (insertion/deletion of named indexes).
// It is distinct from each index's own internal locking (e.g. FullText's
// and Positional's postings mutex): a concurrent CreateIndex/DropIndex can
// race with an in-flight Sync/Lookup/Len iterating the map, which is what
// mu serializes.
type Manager struct {
	mu      sync.RWMutex
	indexes map[string]*namedIndex
	tok     *Tokenizer
}

func NewManager() *Manager {
	return &Manager{indexes: make(map[string]*namedIndex), tok: NewTokenizer(DefaultTokenizerOptions())}
}

// CreateIndex creates a named index of kind over fields, scanning src to
// populate it (spec §4.7: "create_index(kind, name, fields)... scans the
// live KV space and populates").
func (m *Manager) CreateIndex(kind Kind, name string, fields []string, unique bool, src Source) error {
	m.mu.Lock()
	if _, exists := m.indexes[name]; exists {
		m.mu.Unlock()
		return kvdberr.ErrIndexAlreadyExists
	}
	m.mu.Unlock()

	ni := &namedIndex{kind: kind, fields: fields}
	switch kind {
	case KindSecondary:
		ni.sec = NewSecondary(unique)
	case KindComposite:
		ni.comp = NewComposite(len(fields), unique)
	case KindFullText:
		ni.ft = NewFullText(m.tok)
	case KindPositional:
		ni.pos = NewPositional(m.tok)
	}

	// The keyspace scan runs unlocked: it only reads src and populates ni,
	// neither of which touches the manager's map.
	rows, err := src.ScanField(fields)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := ni.add(row, m.tok); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.indexes[name]; exists {
		return kvdberr.ErrIndexAlreadyExists
	}
	m.indexes[name] = ni
	return nil
}

// DropIndex removes a named index (spec §4.7).
func (m *Manager) DropIndex(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.indexes[name]; !ok {
		return kvdberr.ErrIndexNotFound
	}
	delete(m.indexes, name)
	return nil
}

func (ni *namedIndex) add(row FieldRow, tok *Tokenizer) error {
	switch ni.kind {
	case KindSecondary:
		if len(row.Fields) == 0 {
			return nil
		}
		return ni.sec.Insert(row.Fields[0], row.PrimaryKey)
	case KindComposite:
		strs := make([]string, len(row.Fields))
		for i, f := range row.Fields {
			strs[i] = value.ToString(f)
		}
		return ni.comp.Insert(value.String(CompositeKey(strs)), row.PrimaryKey)
	case KindFullText:
		ni.ft.Index(row.PrimaryKey, row.Text)
		return nil
	case KindPositional:
		ni.pos.Index(row.PrimaryKey, occurrencesFromText(tok, row.Text))
		return nil
	}
	return nil
}

// occurrencesFromText tokenizes text and assigns each token a position
// index; sentence/paragraph ids are left at 0, matching the engine's
// single-paragraph simplification (no sentence boundary detection).
func occurrencesFromText(tok *Tokenizer, text string) []TokenOccurrence {
	terms := tok.Tokenize(text)
	out := make([]TokenOccurrence, len(terms))
	for i, term := range terms {
		out[i] = TokenOccurrence{Term: term, Position: Position{Pos: i}}
	}
	return out
}

// AddToIndexes applies a committed put to every index, as the control
// plane's commit path does on every mutation (spec §4.7: "add_to_indexes").
func (m *Manager) AddToIndexes(row FieldRow) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ni := range m.indexes {
		if err := ni.add(row, m.tok); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFromIndexes retracts primaryKey's prior indexed state from every
// index (spec §4.7: "remove_from_indexes").
func (m *Manager) RemoveFromIndexes(primaryKey string, priorFields []value.TypedValue, priorText string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ni := range m.indexes {
		switch ni.kind {
		case KindSecondary:
			if len(priorFields) > 0 {
				ni.sec.Remove(priorFields[0], primaryKey)
			}
		case KindComposite:
			strs := make([]string, len(priorFields))
			for i, f := range priorFields {
				strs[i] = value.ToString(f)
			}
			ni.comp.Remove(value.String(CompositeKey(strs)), primaryKey)
		case KindFullText:
			ni.ft.Remove(primaryKey)
		case KindPositional:
			ni.pos.Remove(primaryKey)
		}
	}
}

// UpdateIndexes retracts the old state and applies the new one atomically
// from the index manager's point of view (spec §4.7: "update_indexes").
func (m *Manager) UpdateIndexes(primaryKey string, priorFields []value.TypedValue, priorText string, newRow FieldRow) error {
	m.RemoveFromIndexes(primaryKey, priorFields, priorText)
	return m.AddToIndexes(newRow)
}

// LookupResult is returned by Lookup (spec §4.7).
type LookupResult struct {
	Keys    []string
	Success bool
	Error   error
	TimeMs  float64
}

// Query describes a single-index lookup request.
type Query struct {
	Kind        QueryKind
	Value       value.TypedValue // Exact
	Low, High   value.TypedValue // Range
	Prefix      string           // Prefix (secondary indexes; composite uses LeadingVals)
	LeadingVals []string         // Composite PartialLookup leading field values
	Text        string           // FullText/Positional Search/RankedSearch
	Terms       []string         // Phrase search terms
	MaxDistance int              // Positional phrase search
	Limit       int              // Ranked search
	Ranked      bool
}

// QueryKind mirrors the optimizer's index_query_kind (spec §4.8).
type QueryKind int

const (
	QueryExact QueryKind = iota
	QueryRange
	QueryPrefix
)

// Lookup dispatches a query to the named index (spec §4.7: "lookup(name, query)").
func (m *Manager) Lookup(name string, q Query) LookupResult {
	start := time.Now()
	m.mu.RLock()
	ni, ok := m.indexes[name]
	m.mu.RUnlock()
	if !ok {
		return LookupResult{Success: false, Error: kvdberr.ErrIndexNotFound, TimeMs: elapsedMs(start)}
	}

	var keys []string
	var err error
	switch ni.kind {
	case KindSecondary:
		switch q.Kind {
		case QueryExact:
			keys = ni.sec.ExactLookup(q.Value)
		case QueryRange:
			keys = ni.sec.RangeLookup(q.Low, q.High)
		case QueryPrefix:
			keys = ni.sec.PrefixLookup(q.Prefix)
		}
	case KindComposite:
		switch q.Kind {
		case QueryExact:
			keys = ni.comp.ExactLookup(q.Value)
		case QueryRange:
			keys = ni.comp.RangeLookup(q.Low, q.High)
		case QueryPrefix:
			keys = ni.comp.PartialLookup(q.LeadingVals)
		}
	case KindFullText:
		switch {
		case q.Ranked:
			for _, r := range ni.ft.RankedSearch(q.Text, q.Limit) {
				keys = append(keys, r.DocID)
			}
		case len(q.Terms) > 0:
			keys = ni.ft.PhraseSearch(q.Terms)
		default:
			keys = ni.ft.Search(q.Text)
		}
	case KindPositional:
		switch {
		case q.Ranked:
			for _, r := range ni.pos.BM25RankedSearch(q.Terms, q.Limit) {
				keys = append(keys, r.DocID)
			}
		case len(q.Terms) > 0 && q.MaxDistance >= 0:
			keys = ni.pos.PhraseSearch(q.Terms, q.MaxDistance)
		default:
			keys = ni.pos.And(q.Terms)
		}
	}

	return LookupResult{Keys: keys, Success: err == nil, Error: err, TimeMs: elapsedMs(start)}
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// Len returns the number of distinct indexed values the named index holds,
// used by the optimizer's selectivity estimates (spec §4.8). Full-text and
// positional indexes return the number of distinct terms.
func (m *Manager) Len(name string) (int, bool) {
	m.mu.RLock()
	ni, ok := m.indexes[name]
	m.mu.RUnlock()
	if !ok {
		return 0, false
	}
	switch ni.kind {
	case KindSecondary:
		return ni.sec.Len(), true
	case KindComposite:
		return ni.comp.Len(), true
	case KindFullText:
		ni.ft.mu.RLock()
		defer ni.ft.mu.RUnlock()
		return len(ni.ft.postings), true
	case KindPositional:
		ni.pos.mu.RLock()
		defer ni.pos.mu.RUnlock()
		return len(ni.pos.postings), true
	}
	return 0, false
}

// Fields returns the field list a named index was created over, and
// whether the index exists, used by the optimizer to match conditions to
// applicable indexes (spec §4.8).
func (m *Manager) Fields(name string) ([]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ni, ok := m.indexes[name]
	if !ok {
		return nil, false
	}
	return ni.fields, true
}

// ApplicableIndexes returns the names of every index, of any kind, whose
// field list starts with field (i.e. is applicable to a condition on that
// field).
func (m *Manager) ApplicableIndexes(field string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for name, ni := range m.indexes {
		if len(ni.fields) > 0 && ni.fields[0] == field {
			out = append(out, name)
		}
	}
	return out
}

// KindOf reports the kind of a named index.
func (m *Manager) KindOf(name string) (Kind, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ni, ok := m.indexes[name]
	if !ok {
		return 0, false
	}
	return ni.kind, true
}
