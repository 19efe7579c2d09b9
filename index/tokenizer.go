// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file implements the tokenizer (spec §4.7): whitespace splitting plus
// configurable min/max length, case-folding, punctuation/numeric stripping,
// and stop-word filtering, producing the canonical normalized token form
// the full-text and positional indexes key on.
package index

import (
	"strings"
	"unicode"
)

// TokenizerOptions configures normalization policy (spec §4.7).
type TokenizerOptions struct {
	MinLength        int
	MaxLength         int
	CaseFold          bool
	StripPunctuation  bool
	StripNumeric      bool
	StopWords         map[string]struct{}
}

// DefaultStopWords is the common English stop-word set.
var DefaultStopWords = buildStopWords([]string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
	"has", "he", "in", "is", "it", "its", "of", "on", "that", "the",
	"to", "was", "were", "will", "with", "this", "but", "they", "you",
	"not", "or", "had", "have", "what", "when", "where", "who", "which",
})

func buildStopWords(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// DefaultTokenizerOptions matches the source repo's default policy: lower
// case, strip punctuation, keep numerics, filter the default stop-word set,
// tokens between 2 and 64 bytes long.
func DefaultTokenizerOptions() TokenizerOptions {
	return TokenizerOptions{
		MinLength:        2,
		MaxLength:        64,
		CaseFold:         true,
		StripPunctuation: true,
		StripNumeric:     false,
		StopWords:        DefaultStopWords,
	}
}

// Tokenizer splits and normalizes text per Options (spec §4.7).
type Tokenizer struct {
	Options TokenizerOptions
}

func NewTokenizer(opts TokenizerOptions) *Tokenizer { return &Tokenizer{Options: opts} }

// Tokenize splits text on whitespace and normalizes each token, dropping
// any that end up empty, too short/long, or on the stop-word list.
func (t *Tokenizer) Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, unicode.IsSpace)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := t.normalize(f)
		if tok == "" {
			continue
		}
		if len(tok) < t.Options.MinLength || len(tok) > t.Options.MaxLength {
			continue
		}
		if _, stop := t.Options.StopWords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func (t *Tokenizer) normalize(tok string) string {
	if t.Options.CaseFold {
		tok = strings.ToLower(tok)
	}
	var b strings.Builder
	b.Grow(len(tok))
	for _, r := range tok {
		if t.Options.StripPunctuation && unicode.IsPunct(r) {
			continue
		}
		if t.Options.StripNumeric && unicode.IsNumber(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
