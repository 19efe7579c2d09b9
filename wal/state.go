// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file persists wal_state.meta (spec §3.3, §6.3): a small text
// sidecar recording (current_lsn, next_segment_id) across restarts, in the
// same key=value sidecar style the checkpoint/backup managers use for
// their own .meta files.
package wal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type walState struct {
	CurrentLSN    uint64
	NextSegmentID uint64
}

func statePath(dir string) string { return filepath.Join(dir, "wal_state.meta") }

func loadState(dir string) (walState, error) {
	f, err := os.Open(statePath(dir))
	if os.IsNotExist(err) {
		return walState{}, nil
	}
	if err != nil {
		return walState{}, err
	}
	defer f.Close()

	var st walState
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
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			continue
		}
		switch strings.TrimSpace(k) {
		case "current_lsn":
			st.CurrentLSN = n
		case "next_segment_id":
			st.NextSegmentID = n
		}
	}
	return st, sc.Err()
}

func saveState(dir string, st walState) error {
	tmp := statePath(dir) + ".tmp"
	content := fmt.Sprintf("current_lsn=%d\nnext_segment_id=%d\n", st.CurrentLSN, st.NextSegmentID)
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, statePath(dir))
}
