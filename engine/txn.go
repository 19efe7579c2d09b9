// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file implements the control plane's transactional surface (spec
// §4.9): begin_tx buffers put/del locally, commit_tx assigns LSNs and
// applies everything atomically, rollback_tx discards the buffer.
package engine

import (
	"fmt"

	"github.com/syloe1/kv-db-sub001/value"
)

type opKind int

const (
	opPut opKind = iota
	opDelete
)

type bufferedOp struct {
	kind  opKind
	key   string
	value value.TypedValue
}

// Tx buffers put/delete operations until Commit applies them as one atomic
// unit (spec §4.9: "begin_tx buffers put/del operations locally").
type Tx struct {
	eng  *Engine
	ops  []bufferedOp
	done bool
}

// Put buffers a put of key=v. Earlier buffered ops on the same key are kept;
// each op gets its own LSN at commit, so the last one wins.
func (tx *Tx) Put(key string, v value.TypedValue) {
	tx.ops = append(tx.ops, bufferedOp{kind: opPut, key: key, value: v})
}

// Delete buffers a delete of key.
func (tx *Tx) Delete(key string) {
	tx.ops = append(tx.ops, bufferedOp{kind: opDelete, key: key})
}

// Commit assigns each buffered op a fresh LSN, appends it to the WAL,
// applies it to the memtable and indexes in LSN order, and emits a change
// tuple per op (spec §4.9). The whole commit runs under the engine's single
// commit lock so it is atomic with respect to concurrently-issued snapshots
// (spec §5).
func (tx *Tx) Commit() (uint64, error) {
	if tx.done {
		return 0, fmt.Errorf("engine: transaction already finished")
	}
	tx.done = true
	return tx.eng.commit(tx.ops)
}

// Rollback discards the buffer without touching durable state (spec §4.9).
func (tx *Tx) Rollback() {
	tx.done = true
	tx.ops = nil
}
