// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file implements the positional inverted index (spec §3.5, §4.7):
// term -> PostingList{doc_id, tf, positions[]}, supporting AND/OR lookup,
// true phrase search bounded by a maximum inter-term distance, and
// BM25-ranked search.
package index

import (
	"math"
	"sort"
	"sync"
)

// Position locates one term occurrence within a document (spec §4.7).
type Position struct {
	Pos    int
	SentID int
	ParaID int
}

// Posting is one document's occurrences of a term (spec §4.7).
type Posting struct {
	DocID     string
	TF        int
	Positions []Position
}

// Positional is the positional inverted index.
type Positional struct {
	mu       sync.RWMutex
	tok      *Tokenizer
	postings map[string]map[string]*Posting // term -> doc_id -> posting
	docLen   map[string]int                 // doc_id -> total term occurrences, for BM25
	avgDocLen float64
}

func NewPositional(tok *Tokenizer) *Positional {
	return &Positional{
		tok:      tok,
		postings: make(map[string]map[string]*Posting),
		docLen:   make(map[string]int),
	}
}

// TokenOccurrence is one (term, position) pair supplied by the caller,
// which is responsible for assigning sentence/paragraph ids during its own
// document segmentation.
type TokenOccurrence struct {
	Term     string
	Position Position
}

// Index replaces docID's postings with occs (spec §4.7 maintenance hooks).
func (p *Positional) Index(docID string, occs []TokenOccurrence) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(docID)

	byTerm := make(map[string][]Position)
	for _, o := range occs {
		byTerm[o.Term] = append(byTerm[o.Term], o.Position)
	}
	for term, positions := range byTerm {
		set, ok := p.postings[term]
		if !ok {
			set = make(map[string]*Posting)
			p.postings[term] = set
		}
		set[docID] = &Posting{DocID: docID, TF: len(positions), Positions: positions}
	}
	p.docLen[docID] = len(occs)
	p.recomputeAvgLocked()
}

// Remove drops docID from the index.
func (p *Positional) Remove(docID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(docID)
	p.recomputeAvgLocked()
}

func (p *Positional) removeLocked(docID string) {
	for term, set := range p.postings {
		delete(set, docID)
		if len(set) == 0 {
			delete(p.postings, term)
		}
	}
	delete(p.docLen, docID)
}

func (p *Positional) recomputeAvgLocked() {
	if len(p.docLen) == 0 {
		p.avgDocLen = 0
		return
	}
	var sum int
	for _, n := range p.docLen {
		sum += n
	}
	p.avgDocLen = float64(sum) / float64(len(p.docLen))
}

// And returns doc ids present in every term's postings.
func (p *Positional) And(terms []string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(terms) == 0 {
		return nil
	}
	result := make(map[string]struct{})
	for doc := range p.postings[terms[0]] {
		result[doc] = struct{}{}
	}
	for _, term := range terms[1:] {
		set := p.postings[term]
		for doc := range result {
			if _, ok := set[doc]; !ok {
				delete(result, doc)
			}
		}
	}
	return sortedKeys(result)
}

// Or returns doc ids present in any term's postings.
func (p *Positional) Or(terms []string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	result := make(map[string]struct{})
	for _, term := range terms {
		for doc := range p.postings[term] {
			result[doc] = struct{}{}
		}
	}
	return sortedKeys(result)
}

// PhraseSearch verifies, for every AND-candidate doc, that there is a
// monotone sequence p1 < p2 < ... < pk with p[i+1]-p[i] <= maxDistance+1,
// one position per query term in order (spec §4.7). The greedy scan picks
// the smallest available p[i] > p[i-1] within distance, retrying from the
// next starting position of p1 if a candidate chain fails.
func (p *Positional) PhraseSearch(terms []string, maxDistance int) []string {
	if len(terms) == 0 {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	candidates := p.andLocked(terms)
	var out []string
	for _, doc := range candidates {
		if phraseMatchesInDoc(p.termPositions(doc, terms), maxDistance) {
			out = append(out, doc)
		}
	}
	sort.Strings(out)
	return out
}

func (p *Positional) andLocked(terms []string) []string {
	result := make(map[string]struct{})
	for doc := range p.postings[terms[0]] {
		result[doc] = struct{}{}
	}
	for _, term := range terms[1:] {
		set := p.postings[term]
		for doc := range result {
			if _, ok := set[doc]; !ok {
				delete(result, doc)
			}
		}
	}
	return sortedKeys(result)
}

// termPositions returns, per query term in order, the sorted list of
// positions that term occupies in doc.
func (p *Positional) termPositions(doc string, terms []string) [][]int {
	out := make([][]int, len(terms))
	for i, term := range terms {
		posting, ok := p.postings[term][doc]
		if !ok {
			out[i] = nil
			continue
		}
		positions := make([]int, len(posting.Positions))
		for j, pos := range posting.Positions {
			positions[j] = pos.Pos
		}
		sort.Ints(positions)
		out[i] = positions
	}
	return out
}

// phraseMatchesInDoc implements the greedy-with-restart algorithm of spec
// §4.7: try every occurrence of the first term as p1, then greedily pick
// the smallest later occurrence of each subsequent term within maxDistance+1
// of the previous pick; succeed as soon as one starting point completes the
// whole chain.
func phraseMatchesInDoc(termPos [][]int, maxDistance int) bool {
	if len(termPos) == 0 || len(termPos[0]) == 0 {
		return false
	}
	for _, start := range termPos[0] {
		prev := start
		ok := true
		for i := 1; i < len(termPos); i++ {
			next, found := smallestGreaterWithinDistance(termPos[i], prev, maxDistance+1)
			if !found {
				ok = false
				break
			}
			prev = next
		}
		if ok {
			return true
		}
	}
	return false
}

func smallestGreaterWithinDistance(positions []int, after, maxGap int) (int, bool) {
	for _, pos := range positions {
		if pos > after && pos-after <= maxGap {
			return pos, true
		}
	}
	return 0, false
}

// BM25RankedSearch scores candidate docs with k1=1.2, b=0.75 (spec §4.7).
func (p *Positional) BM25RankedSearch(terms []string, limit int) []RankedResult {
	const k1 = 1.2
	const b = 0.75

	p.mu.RLock()
	defer p.mu.RUnlock()

	n := float64(len(p.docLen))
	scores := make(map[string]float64)
	for _, term := range terms {
		set := p.postings[term]
		df := float64(len(set))
		if df == 0 || n == 0 {
			continue
		}
		idf := math.Log((n - df + 0.5) / (df + 0.5))
		for doc, posting := range set {
			dl := float64(p.docLen[doc])
			tf := float64(posting.TF)
			denom := tf + k1*(1-b+b*dl/p.avgDocLen)
			scores[doc] += idf * (tf * (k1 + 1)) / denom
		}
	}
	return topK(scores, limit)
}
