// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package checkpoint

import (
	"bufio"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sync"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/linkedin/goavro/v2"

	"github.com/syloe1/kv-db-sub001/kvdberr"
	"github.com/syloe1/kv-db-sub001/value"
)

// Source is the read surface the checkpoint manager needs from the engine's
// memtable: the full key set and a snapshot-addressed point lookup. It is
// small on purpose so this package does not import memtable directly.
type Source interface {
	Keys() []string
	Get(key string, snap uint64) (value.TypedValue, bool)
}

// Manager creates, restores, and prunes checkpoint images under Dir (spec §4.5).
type Manager struct {
	dir string

	mu      sync.Mutex // excludes concurrent Create calls (spec §7 ErrCheckpointBusy)
	busy    bool
	nextID  uint64
	idKnown bool
}

// Open returns a Manager rooted at dir, creating it if needed.
func Open(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Manager{dir: dir}, nil
}

func (m *Manager) allocID() (uint64, error) {
	if !m.idKnown {
		ids, err := listIDs(m.dir)
		if err != nil {
			return 0, err
		}
		m.nextID = 1
		for _, id := range ids {
			if id >= m.nextID {
				m.nextID = id + 1
			}
		}
		m.idKnown = true
	}
	id := m.nextID
	m.nextID++
	return id, nil
}

// Create writes a new checkpoint image of every key visible at snap (spec
// §4.5: "create(trigger, description)"). It returns ErrCheckpointBusy if
// another Create is already in flight.
func (m *Manager) Create(src Source, snap uint64, trigger, description string) (Meta, error) {
	m.mu.Lock()
	if m.busy {
		m.mu.Unlock()
		return Meta{}, kvdberr.ErrCheckpointBusy
	}
	m.busy = true
	id, err := m.allocID()
	if err != nil {
		m.busy = false
		m.mu.Unlock()
		return Meta{}, err
	}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.busy = false
		m.mu.Unlock()
	}()

	codec, err := newEntryCodec()
	if err != nil {
		return Meta{}, err
	}

	path := imagePath(m.dir, id)
	f, err := os.Create(path)
	if err != nil {
		return Meta{}, err
	}

	writer, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               f,
		Codec:           codec,
		CompressionName: goavro.CompressionDeflateLabel,
	})
	if err != nil {
		f.Close()
		return Meta{}, err
	}

	var count uint64
	for _, key := range src.Keys() {
		v, ok := src.Get(key, snap)
		if !ok {
			continue // tombstoned or never written as of snap
		}
		payload := value.SerializeBinary(v)
		record := map[string]interface{}{
			"key":     key,
			"tag":     int32(v.Tag),
			"payload": payload,
		}
		if err := writer.Append([]interface{}{record}); err != nil {
			f.Close()
			return Meta{}, err
		}
		count++
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return Meta{}, err
	}
	if err := f.Close(); err != nil {
		return Meta{}, err
	}

	sum, err := fileCRC32(path)
	if err != nil {
		return Meta{}, err
	}

	meta := Meta{
		ID:          id,
		LSN:         snap,
		Trigger:     trigger,
		Description: description,
		CreatedMs:   time.Now().UnixMilli(),
		RecordCount: count,
		CRC32:       sum,
	}
	if err := writeMeta(m.dir, meta); err != nil {
		return Meta{}, err
	}
	cclog.Infof("[Checkpoint]> created id=%d lsn=%d records=%d trigger=%s", id, snap, count, trigger)
	return meta, nil
}

func fileCRC32(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	h := crc32.NewIEEE()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}

// Entry is one restored (key, value) pair.
type Entry struct {
	Key   string
	Value value.TypedValue
}

// Restore verifies the checkpoint's CRC against its .meta sidecar and
// decodes its image into a flat entry list (spec §4.5). Callers apply the
// entries to a fresh memtable before replaying the WAL tail from meta.LSN.
func (m *Manager) Restore(id uint64) (Meta, []Entry, error) {
	meta, err := readMeta(m.dir, id)
	if err != nil {
		return Meta{}, nil, fmt.Errorf("%w: reading meta for checkpoint %d: %v", kvdberr.ErrCheckpointCorrupted, id, err)
	}

	path := imagePath(m.dir, id)
	sum, err := fileCRC32(path)
	if err != nil {
		return Meta{}, nil, fmt.Errorf("%w: %v", kvdberr.ErrCheckpointCorrupted, err)
	}
	if sum != meta.CRC32 {
		return Meta{}, nil, fmt.Errorf("%w: checkpoint %d crc32 mismatch", kvdberr.ErrCheckpointCorrupted, id)
	}

	f, err := os.Open(path)
	if err != nil {
		return Meta{}, nil, fmt.Errorf("%w: %v", kvdberr.ErrCheckpointCorrupted, err)
	}
	defer f.Close()

	reader, err := goavro.NewOCFReader(bufio.NewReader(f))
	if err != nil {
		return Meta{}, nil, fmt.Errorf("%w: %v", kvdberr.ErrCheckpointCorrupted, err)
	}

	entries := make([]Entry, 0, meta.RecordCount)
	for reader.Scan() {
		rec, err := reader.Read()
		if err != nil {
			return Meta{}, nil, fmt.Errorf("%w: %v", kvdberr.ErrCheckpointCorrupted, err)
		}
		fields, ok := rec.(map[string]interface{})
		if !ok {
			return Meta{}, nil, fmt.Errorf("%w: unexpected record shape", kvdberr.ErrCheckpointCorrupted)
		}
		key, _ := fields["key"].(string)
		payload, _ := fields["payload"].([]byte)
		v, err := value.DeserializeBinary(payload)
		if err != nil {
			return Meta{}, nil, fmt.Errorf("%w: %v", kvdberr.ErrCheckpointCorrupted, err)
		}
		entries = append(entries, Entry{Key: key, Value: v})
	}
	return meta, entries, nil
}

// Latest returns the highest checkpoint id present, or ok=false if none exist.
func (m *Manager) Latest() (Meta, bool, error) {
	ids, err := listIDs(m.dir)
	if err != nil || len(ids) == 0 {
		return Meta{}, false, err
	}
	meta, err := readMeta(m.dir, ids[len(ids)-1])
	if err != nil {
		return Meta{}, false, err
	}
	return meta, true, nil
}

// ImagePath returns the on-disk path of checkpoint id's image file, used by
// the backup manager's file tracker to treat checkpoint images as ordinary
// tracked files.
func (m *Manager) ImagePath(id uint64) string {
	return imagePath(m.dir, id)
}

// CleanupOld keeps the maxKeep most recent checkpoints and removes the rest
// (spec §4.5: "cleanup_old(max_keep)").
func (m *Manager) CleanupOld(maxKeep int) (int, error) {
	ids, err := listIDs(m.dir)
	if err != nil {
		return 0, err
	}
	if maxKeep < 0 {
		maxKeep = 0
	}
	if len(ids) <= maxKeep {
		return 0, nil
	}
	toRemove := ids[:len(ids)-maxKeep]
	removed := 0
	for _, id := range toRemove {
		if err := os.Remove(imagePath(m.dir, id)); err == nil {
			removed++
		}
		os.Remove(metaPath(m.dir, id))
	}
	return removed, nil
}
