// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package backup

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenCatalogMigratesSchema(t *testing.T) {
	dir := t.TempDir()
	cat, err := OpenCatalog(filepath.Join(dir, "catalog.sqlite"))
	require.NoError(t, err)
	defer cat.Close()

	err = cat.InsertBackup(Record{ID: "b1", Kind: "full", Path: "backup_b1.tar.gz", EndLSN: 10, CRC32: 123, CreatedMs: 1})
	require.NoError(t, err)

	got, err := cat.GetBackup("b1")
	require.NoError(t, err)
	require.Equal(t, "full", got.Kind)
	require.Equal(t, uint64(10), got.EndLSN)
}

func TestChainResolvesParentLinks(t *testing.T) {
	dir := t.TempDir()
	cat, err := OpenCatalog(filepath.Join(dir, "catalog.sqlite"))
	require.NoError(t, err)
	defer cat.Close()

	require.NoError(t, cat.InsertBackup(Record{ID: "full1", Kind: "full", Path: "p0", StartLSN: 0, EndLSN: 10, CreatedMs: 1}))
	parent := "full1"
	require.NoError(t, cat.InsertBackup(Record{ID: "inc1", ParentID: &parent, Kind: "incremental", Path: "p1", StartLSN: 10, EndLSN: 20, CreatedMs: 2}))

	chain, err := cat.Chain("inc1")
	require.NoError(t, err)
	require.Len(t, chain, 2)
	require.Equal(t, "full1", chain[0].ID)
	require.Equal(t, "inc1", chain[1].ID)
}

func TestInsertFilesAndFetch(t *testing.T) {
	dir := t.TempDir()
	cat, err := OpenCatalog(filepath.Join(dir, "catalog.sqlite"))
	require.NoError(t, err)
	defer cat.Close()

	require.NoError(t, cat.InsertBackup(Record{ID: "b1", Kind: "full", Path: "p", CreatedMs: 1}))
	require.NoError(t, cat.InsertFiles("b1", []FileRecord{
		{Path: "a.log", LastModifiedLSN: 1, Size: 10, CRC32: 1},
		{Path: "b.log", LastModifiedLSN: 2, Size: 20, CRC32: 2},
	}))

	files, err := cat.FilesFor("b1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "a.log", files[0].Path)
}
