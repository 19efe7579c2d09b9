// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file persists the .meta sidecar next to each .checkpoint image
// (spec §4.5), key=value text in the same style as wal/state.go's
// wal_state.meta, plus the CRC32 of the image file so Restore can detect a
// truncated or bit-rotted checkpoint before trusting it.
package checkpoint

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Meta describes one checkpoint (spec §4.5).
type Meta struct {
	ID          uint64
	LSN         uint64
	Trigger     string // "manual" | "auto" | "pre_backup" (spec §4.5)
	Description string
	CreatedMs   int64
	RecordCount uint64
	CRC32       uint32
}

func imagePath(dir string, id uint64) string {
	return filepath.Join(dir, fmt.Sprintf("checkpoint_%d.checkpoint", id))
}

func metaPath(dir string, id uint64) string {
	return filepath.Join(dir, fmt.Sprintf("checkpoint_%d.meta", id))
}

func writeMeta(dir string, m Meta) error {
	var b strings.Builder
	fmt.Fprintf(&b, "id=%d\n", m.ID)
	fmt.Fprintf(&b, "lsn=%d\n", m.LSN)
	fmt.Fprintf(&b, "trigger=%s\n", m.Trigger)
	fmt.Fprintf(&b, "description=%s\n", m.Description)
	fmt.Fprintf(&b, "created_ms=%d\n", m.CreatedMs)
	fmt.Fprintf(&b, "record_count=%d\n", m.RecordCount)
	fmt.Fprintf(&b, "crc32=%d\n", m.CRC32)

	tmp := metaPath(dir, m.ID) + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, metaPath(dir, m.ID))
}

func readMeta(dir string, id uint64) (Meta, error) {
	f, err := os.Open(metaPath(dir, id))
	if err != nil {
		return Meta{}, err
	}
	defer f.Close()

	m := Meta{ID: id}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		switch k {
		case "lsn":
			m.LSN, _ = strconv.ParseUint(v, 10, 64)
		case "trigger":
			m.Trigger = v
		case "description":
			m.Description = v
		case "created_ms":
			m.CreatedMs, _ = strconv.ParseInt(v, 10, 64)
		case "record_count":
			m.RecordCount, _ = strconv.ParseUint(v, 10, 64)
		case "crc32":
			n, _ := strconv.ParseUint(v, 10, 32)
			m.CRC32 = uint32(n)
		}
	}
	return m, sc.Err()
}

// listIDs returns every checkpoint id present in dir, ascending.
func listIDs(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []uint64
	for _, e := range entries {
		var id uint64
		if _, err := fmt.Sscanf(e.Name(), "checkpoint_%d.meta", &id); err == nil {
			ids = append(ids, id)
		}
	}
	sortUint64s(ids)
	return ids, nil
}

func sortUint64s(ids []uint64) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}
