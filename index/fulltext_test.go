// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestFullText() *FullText {
	return NewFullText(NewTokenizer(DefaultTokenizerOptions()))
}

func TestFullTextSearchIntersectsTerms(t *testing.T) {
	ft := newTestFullText()
	ft.Index("d1", "the quick brown fox")
	ft.Index("d2", "the lazy brown dog")
	ft.Index("d3", "completely unrelated text")

	require.ElementsMatch(t, []string{"d1", "d2"}, ft.Search("brown"))
	require.ElementsMatch(t, []string{"d1"}, ft.Search("quick fox"))
}

func TestFullTextWildcardSearch(t *testing.T) {
	ft := newTestFullText()
	ft.Index("d1", "testing wildcards")
	ft.Index("d2", "another document")

	require.ElementsMatch(t, []string{"d1"}, ft.WildcardSearch("test*"))
	require.ElementsMatch(t, []string{"d1"}, ft.WildcardSearch("te?ting"))
}

func TestFullTextRankedSearchOrdersByScore(t *testing.T) {
	ft := newTestFullText()
	ft.Index("d1", "golang golang golang")
	ft.Index("d2", "golang rust python")

	results := ft.RankedSearch("golang", 10)
	require.Len(t, results, 2)
	// Both docs score identically here (idf=ln(N/df)=0 since every doc
	// contains the term); ties break by doc_id ascending.
	require.Equal(t, "d1", results[0].DocID)
}

func TestFullTextRemove(t *testing.T) {
	ft := newTestFullText()
	ft.Index("d1", "hello world")
	ft.Remove("d1")
	require.Empty(t, ft.Search("hello"))
}

func TestPositionalPhraseSearchRespectsMaxDistance(t *testing.T) {
	pos := NewPositional(NewTokenizer(DefaultTokenizerOptions()))
	pos.Index("d1", []TokenOccurrence{
		{Term: "quick", Position: Position{Pos: 0}},
		{Term: "brown", Position: Position{Pos: 1}},
		{Term: "fox", Position: Position{Pos: 2}},
	})
	pos.Index("d2", []TokenOccurrence{
		{Term: "quick", Position: Position{Pos: 0}},
		{Term: "slow", Position: Position{Pos: 1}},
		{Term: "fox", Position: Position{Pos: 10}},
	})

	require.ElementsMatch(t, []string{"d1"}, pos.PhraseSearch([]string{"quick", "brown", "fox"}, 1))
}

func TestPositionalBM25RankedSearch(t *testing.T) {
	pos := NewPositional(NewTokenizer(DefaultTokenizerOptions()))
	pos.Index("d1", []TokenOccurrence{
		{Term: "golang", Position: Position{Pos: 0}},
		{Term: "golang", Position: Position{Pos: 1}},
	})
	pos.Index("d2", []TokenOccurrence{
		{Term: "golang", Position: Position{Pos: 0}},
		{Term: "rust", Position: Position{Pos: 1}},
	})

	results := pos.BM25RankedSearch([]string{"golang"}, 10)
	require.Len(t, results, 2)
}

func TestPositionalAndOr(t *testing.T) {
	pos := NewPositional(NewTokenizer(DefaultTokenizerOptions()))
	pos.Index("d1", []TokenOccurrence{{Term: "a", Position: Position{Pos: 0}}, {Term: "b", Position: Position{Pos: 1}}})
	pos.Index("d2", []TokenOccurrence{{Term: "a", Position: Position{Pos: 0}}})

	require.ElementsMatch(t, []string{"d1"}, pos.And([]string{"a", "b"}))
	require.ElementsMatch(t, []string{"d1", "d2"}, pos.Or([]string{"a", "b"}))
}
