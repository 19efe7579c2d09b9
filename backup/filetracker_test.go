// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package backup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetChangedFilesSinceFiltersByLSN(t *testing.T) {
	tr := NewFileTracker()
	tr.Touch("a.log", []byte("aaa"), 5)
	tr.Touch("b.log", []byte("bbbb"), 10)
	tr.Touch("c.log", []byte("c"), 15)

	changed := tr.GetChangedFilesSince(7)
	require.Len(t, changed, 2)
	require.Contains(t, changed, "b.log")
	require.Contains(t, changed, "c.log")
	require.NotContains(t, changed, "a.log")
}

func TestTouchOverwritesPriorState(t *testing.T) {
	tr := NewFileTracker()
	tr.Touch("a.log", []byte("short"), 1)
	tr.Touch("a.log", []byte("a much longer payload"), 2)

	all := tr.All()
	require.Len(t, all, 1)
	require.Equal(t, uint64(2), all[0].State.LastModifiedLSN)
	require.Equal(t, int64(len("a much longer payload")), all[0].State.Size)
}

func TestAllReturnsSortedPaths(t *testing.T) {
	tr := NewFileTracker()
	tr.Touch("z.log", []byte("z"), 1)
	tr.Touch("a.log", []byte("a"), 1)
	tr.Touch("m.log", []byte("m"), 1)

	all := tr.All()
	require.Equal(t, []string{"a.log", "m.log", "z.log"}, []string{all[0].Path, all[1].Path, all[2].Path})
}
