// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syloe1/kv-db-sub001/value"
)

func TestSecondaryExactAndRangeLookup(t *testing.T) {
	s := NewSecondary(false)
	require.NoError(t, s.Insert(value.Int(5), "k1"))
	require.NoError(t, s.Insert(value.Int(10), "k2"))
	require.NoError(t, s.Insert(value.Int(10), "k3"))
	require.NoError(t, s.Insert(value.Int(15), "k4"))

	require.ElementsMatch(t, []string{"k2", "k3"}, s.ExactLookup(value.Int(10)))
	require.ElementsMatch(t, []string{"k1", "k2", "k3"}, s.RangeLookup(value.Int(0), value.Int(10)))
}

func TestSecondaryUniqueViolation(t *testing.T) {
	s := NewSecondary(true)
	require.NoError(t, s.Insert(value.Int(1), "k1"))
	err := s.Insert(value.Int(1), "k2")
	require.Error(t, err)
}

func TestSecondaryPrefixLookup(t *testing.T) {
	s := NewSecondary(false)
	require.NoError(t, s.Insert(value.String("apple"), "k1"))
	require.NoError(t, s.Insert(value.String("application"), "k2"))
	require.NoError(t, s.Insert(value.String("banana"), "k3"))

	require.ElementsMatch(t, []string{"k1", "k2"}, s.PrefixLookup("app"))
}

func TestSecondaryRemove(t *testing.T) {
	s := NewSecondary(false)
	require.NoError(t, s.Insert(value.Int(1), "k1"))
	s.Remove(value.Int(1), "k1")
	require.Empty(t, s.ExactLookup(value.Int(1)))
	require.Equal(t, 0, s.Len())
}

func TestCompositePartialLookup(t *testing.T) {
	c := NewComposite(2, false)
	require.NoError(t, c.Insert(value.String(CompositeKey([]string{"us", "ca"})), "k1"))
	require.NoError(t, c.Insert(value.String(CompositeKey([]string{"us", "ny"})), "k2"))
	require.NoError(t, c.Insert(value.String(CompositeKey([]string{"de", "by"})), "k3"))

	require.ElementsMatch(t, []string{"k1", "k2"}, c.PartialLookup([]string{"us"}))
	require.ElementsMatch(t, []string{"k1"}, c.PartialLookup([]string{"us", "ca"}))
}
