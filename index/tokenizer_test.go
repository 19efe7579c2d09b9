// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizeLowerCasesAndStripsPunctuation(t *testing.T) {
	tok := NewTokenizer(DefaultTokenizerOptions())
	got := tok.Tokenize("Hello, World! This is Go.")
	require.Equal(t, []string{"hello", "world", "go"}, got)
}

func TestTokenizeFiltersShortAndStopWords(t *testing.T) {
	tok := NewTokenizer(DefaultTokenizerOptions())
	got := tok.Tokenize("a fox is in the hat")
	require.Equal(t, []string{"fox", "hat"}, got)
}

func TestTokenizeCanStripNumerics(t *testing.T) {
	opts := DefaultTokenizerOptions()
	opts.StripNumeric = true
	tok := NewTokenizer(opts)
	got := tok.Tokenize("room42 floor7")
	require.Equal(t, []string{"room", "floor"}, got)
}
