// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file implements the full-text index (spec §3.5, §4.7): term ->
// set<doc_id> postings plus per-document term counts, supporting AND
// search, an approximate phrase search, wildcard glob search, and a
// tf-idf ranked search. True phrase matching with positional proof is left
// to the positional inverted index (fulltext.go only approximates it).
package index

import (
	"math"
	"path/filepath"
	"sort"
	"sync"
)

// FullText is the term -> postings full-text index (spec §4.7).
type FullText struct {
	mu        sync.RWMutex
	tok       *Tokenizer
	postings  map[string]map[string]struct{} // term -> set<doc_id>
	docTerms  map[string]map[string]struct{} // doc_id -> set<term> (distinct terms in doc)
	docCount  map[string]int                 // doc_id -> total term occurrences
}

func NewFullText(tok *Tokenizer) *FullText {
	return &FullText{
		tok:      tok,
		postings: make(map[string]map[string]struct{}),
		docTerms: make(map[string]map[string]struct{}),
		docCount: make(map[string]int),
	}
}

// Index tokenizes text and records its terms under docID, replacing any
// prior indexing of that document (spec §4.7 add_to_indexes/update_indexes).
func (f *FullText) Index(docID, text string) {
	terms := f.tok.Tokenize(text)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeLocked(docID)

	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		seen[term] = struct{}{}
		set, ok := f.postings[term]
		if !ok {
			set = make(map[string]struct{})
			f.postings[term] = set
		}
		set[docID] = struct{}{}
	}
	f.docTerms[docID] = seen
	f.docCount[docID] = len(terms)
}

// Remove drops docID from the index (spec §4.7 remove_from_indexes).
func (f *FullText) Remove(docID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeLocked(docID)
}

func (f *FullText) removeLocked(docID string) {
	for term := range f.docTerms[docID] {
		if set, ok := f.postings[term]; ok {
			delete(set, docID)
			if len(set) == 0 {
				delete(f.postings, term)
			}
		}
	}
	delete(f.docTerms, docID)
	delete(f.docCount, docID)
}

// Search tokenizes q and intersects postings across terms (pure AND, spec §4.7).
func (f *FullText) Search(q string) []string {
	terms := f.tok.Tokenize(q)
	f.mu.RLock()
	defer f.mu.RUnlock()
	return sortedKeys(f.intersectLocked(terms))
}

// PhraseSearch is the approximate phrase search: identical to Search,
// without positional verification (spec §4.7: "documented as such").
func (f *FullText) PhraseSearch(terms []string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return sortedKeys(f.intersectLocked(terms))
}

func (f *FullText) intersectLocked(terms []string) map[string]struct{} {
	if len(terms) == 0 {
		return nil
	}
	result := make(map[string]struct{})
	for doc := range f.postings[terms[0]] {
		result[doc] = struct{}{}
	}
	for _, term := range terms[1:] {
		set := f.postings[term]
		for doc := range result {
			if _, ok := set[doc]; !ok {
				delete(result, doc)
			}
		}
	}
	return result
}

// WildcardSearch linearly scans indexed terms, matching pattern where `*`
// is any-chars and `?` is one char (spec §4.7).
func (f *FullText) WildcardSearch(pattern string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	result := make(map[string]struct{})
	for term, docs := range f.postings {
		if globMatch(pattern, term) {
			for doc := range docs {
				result[doc] = struct{}{}
			}
		}
	}
	return sortedKeys(result)
}

// globMatch implements `*`/`?` glob matching by delegating to
// filepath.Match, which implements the exact same two wildcards (spec §4.7).
func globMatch(pattern, s string) bool {
	ok, err := filepath.Match(pattern, s)
	return err == nil && ok
}

// RankedResult is one scored hit from RankedSearch.
type RankedResult struct {
	DocID string
	Score float64
}

// RankedSearch scores docs by Σ(tf × idf) per spec §4.7:
// tf(term, d) = 1/|d|, idf(term) = ln(N / df(term)). Ties break by doc_id
// ascending.
func (f *FullText) RankedSearch(q string, limit int) []RankedResult {
	terms := f.tok.Tokenize(q)
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := float64(len(f.docCount))
	scores := make(map[string]float64)
	for _, term := range terms {
		docs := f.postings[term]
		df := float64(len(docs))
		if df == 0 || n == 0 {
			continue
		}
		idf := math.Log(n / df)
		for doc := range docs {
			dlen := float64(f.docCount[doc])
			if dlen == 0 {
				continue
			}
			tf := 1.0 / dlen
			scores[doc] += tf * idf
		}
	}
	return topK(scores, limit)
}

func topK(scores map[string]float64, limit int) []RankedResult {
	out := make([]RankedResult, 0, len(scores))
	for doc, score := range scores {
		out = append(out, RankedResult{DocID: doc, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DocID < out[j].DocID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
