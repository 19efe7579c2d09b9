// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package backup's manager.go implements full/incremental backup creation,
// chain restore, and validation (spec §4.6). An archive is a gzip-compressed
// tar of the durable files (WAL segments, checkpoint images) that changed
// since the parent backup's end LSN; archive/tar is stdlib because nothing
// in the reference pack offers a tar implementation, but the gzip layer
// itself uses klauspost/compress (already in the teacher's dependency
// graph) rather than the standard library's compress/gzip.
package backup

import (
	"archive/tar"
	"bytes"
	"crypto/rand"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/crypto/chacha20poly1305"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/syloe1/kv-db-sub001/kvdberr"
)

// FileSource is the read surface the backup manager needs from the engine:
// the current durable LSN and a way to read a tracked file's bytes by path.
type FileSource interface {
	CurrentLSN() uint64
	ReadFile(path string) ([]byte, error)
}

// Manager creates, restores, and validates backup archives under Dir,
// using cat to persist chain metadata and tracker to select changed files
// for incrementals (spec §4.6).
type Manager struct {
	dir     string
	cat     *Catalog
	tracker *FileTracker

	mu         sync.Mutex // excludes concurrent backup creation (ErrBackupBusy)
	busy       bool
	encryptKey []byte // nil disables encryption

	remote *S3Target // optional; nil disables remote offload
}

// Open returns a Manager rooted at dir, opening (and migrating) its sqlite
// catalog.
func Open(dir string) (*Manager, error) {
	if err := os.MkdirAll(archiveDir(dir), 0o755); err != nil {
		return nil, err
	}
	cat, err := OpenCatalog(filepath.Join(dir, "catalog.sqlite"))
	if err != nil {
		return nil, err
	}
	return &Manager{dir: dir, cat: cat, tracker: NewFileTracker()}, nil
}

// SetEncryptionKey enables chacha20poly1305 encryption of archive bodies
// with a 32-byte key. Pass nil to disable.
func (m *Manager) SetEncryptionKey(key []byte) {
	m.encryptKey = key
}

// Tracker exposes the manager's per-file LSN tracker so the engine can
// record writes as they flush.
func (m *Manager) Tracker() *FileTracker { return m.tracker }

func (m *Manager) acquire() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return kvdberr.ErrBackupBusy
	}
	m.busy = true
	return nil
}

func (m *Manager) release() {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
}

// CreateFull archives every file the tracker knows about (spec §4.6:
// "create_full").
func (m *Manager) CreateFull(src FileSource) (Record, error) {
	if err := m.acquire(); err != nil {
		return Record{}, err
	}
	defer m.release()

	all := m.tracker.All()
	paths := make([]string, 0, len(all))
	for _, e := range all {
		paths = append(paths, e.Path)
	}
	return m.writeArchive(src, "full", nil, paths, 0)
}

// CreateIncremental archives only files changed since parentID's end LSN
// (spec §4.6: "create_incremental(parent?)").
func (m *Manager) CreateIncremental(src FileSource, parentID string) (Record, error) {
	if err := m.acquire(); err != nil {
		return Record{}, err
	}
	defer m.release()

	parent, err := m.cat.GetBackup(parentID)
	if err != nil {
		return Record{}, fmt.Errorf("%w: resolving parent %s: %v", kvdberr.ErrBackupChainBroken, parentID, err)
	}

	changed := m.tracker.GetChangedFilesSince(parent.EndLSN)
	paths := make([]string, 0, len(changed))
	for p := range changed {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	return m.writeArchive(src, "incremental", &parentID, paths, parent.EndLSN)
}

func (m *Manager) writeArchive(src FileSource, kind string, parentID *string, paths []string, startLSN uint64) (Record, error) {
	id := uuid.NewString()
	path := archivePath(archiveDir(m.dir), id)

	f, err := os.Create(path)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()

	states := m.tracker.GetChangedFilesSince(0)

	var body bytes.Buffer
	tw := tar.NewWriter(&body)
	files := make([]FileRecord, 0, len(paths))
	for _, p := range paths {
		data, err := src.ReadFile(p)
		if err != nil {
			return Record{}, fmt.Errorf("backup: reading %s: %w", p, err)
		}
		if err := tw.WriteHeader(&tar.Header{Name: p, Mode: 0o644, Size: int64(len(data))}); err != nil {
			return Record{}, err
		}
		if _, err := tw.Write(data); err != nil {
			return Record{}, err
		}
		state := states[p]
		files = append(files, FileRecord{Path: p, LastModifiedLSN: state.LastModifiedLSN, Size: state.Size, CRC32: state.CRC32})
	}
	if err := tw.Close(); err != nil {
		return Record{}, err
	}

	payload := body.Bytes()
	encrypted := false
	if m.encryptKey != nil {
		enc, err := encryptPayload(m.encryptKey, payload)
		if err != nil {
			return Record{}, err
		}
		payload = enc
		encrypted = true
	}

	gw, err := gzip.NewWriterLevel(f, gzip.BestSpeed)
	if err != nil {
		return Record{}, err
	}
	if _, err := gw.Write(payload); err != nil {
		gw.Close()
		return Record{}, err
	}
	if err := gw.Close(); err != nil {
		return Record{}, err
	}

	sum, err := fileCRC32Backup(path)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:        id,
		ParentID:  parentID,
		Kind:      kind,
		Path:      path,
		StartLSN:  startLSN,
		EndLSN:    src.CurrentLSN(),
		CRC32:     sum,
		CreatedMs: time.Now().UnixMilli(),
		Encrypted: encrypted,
	}
	if err := m.cat.InsertBackup(rec); err != nil {
		return Record{}, err
	}
	if err := m.cat.InsertFiles(id, files); err != nil {
		return Record{}, err
	}
	cclog.Infof("[Backup]> created %s backup id=%s files=%d end_lsn=%d", kind, id, len(files), rec.EndLSN)
	m.offloadToRemote(rec)
	return rec, nil
}

func encryptPayload(key []byte, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptPayload(key []byte, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, fmt.Errorf("backup: ciphertext shorter than nonce")
	}
	nonce, body := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	return aead.Open(nil, nonce, body, nil)
}

func fileCRC32Backup(path string) (uint32, error) {
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

// Validate re-reads an archive and checks its CRC against the catalog
// (spec §4.6: "validate(id)").
func (m *Manager) Validate(id string) error {
	rec, err := m.cat.GetBackup(id)
	if err != nil {
		return err
	}
	sum, err := fileCRC32Backup(rec.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", kvdberr.ErrCheckpointCorrupted, err)
	}
	if sum != rec.CRC32 {
		return fmt.Errorf("%w: backup %s crc32 mismatch", kvdberr.ErrCheckpointCorrupted, id)
	}
	return nil
}

// RestoredFile is one file extracted from a resolved backup chain.
type RestoredFile struct {
	Path string
	Data []byte
}

// RestoreFromChain resolves id's full->incremental chain, verifies CRC and
// LSN continuity link by link, then replays archives oldest to newest so
// later incrementals overwrite earlier full-backup copies of the same path
// (spec §4.6: "restore_from_backup_chain(path)").
func (m *Manager) RestoreFromChain(id string) ([]RestoredFile, error) {
	chain, err := m.cat.Chain(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kvdberr.ErrBackupChainBroken, err)
	}

	var prevEnd uint64
	for i, rec := range chain {
		if i == 0 {
			if rec.Kind != "full" {
				return nil, fmt.Errorf("%w: chain for %s does not start with a full backup", kvdberr.ErrBackupChainBroken, id)
			}
		} else if rec.StartLSN != prevEnd {
			return nil, fmt.Errorf("%w: lsn discontinuity at backup %s (expected start_lsn=%d, got %d)",
				kvdberr.ErrBackupChainBroken, rec.ID, prevEnd, rec.StartLSN)
		}
		if err := m.Validate(rec.ID); err != nil {
			return nil, fmt.Errorf("%w: backup %s failed validation: %v", kvdberr.ErrBackupChainBroken, rec.ID, err)
		}
		prevEnd = rec.EndLSN
	}

	files := make(map[string]RestoredFile)
	for _, rec := range chain {
		extracted, err := extractArchive(rec.Path, m.keyFor(rec))
		if err != nil {
			return nil, fmt.Errorf("%w: extracting backup %s: %v", kvdberr.ErrBackupChainBroken, rec.ID, err)
		}
		for _, ef := range extracted {
			files[ef.Path] = ef // later (newer) backups overwrite earlier ones
		}
	}

	out := make([]RestoredFile, 0, len(files))
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		out = append(out, files[p])
	}
	return out, nil
}

func (m *Manager) keyFor(rec Record) []byte {
	if !rec.Encrypted {
		return nil
	}
	return m.encryptKey
}

func extractArchive(path string, key []byte) ([]RestoredFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	payload, err := io.ReadAll(gr)
	if err != nil {
		return nil, err
	}
	if key != nil {
		payload, err = decryptPayload(key, payload)
		if err != nil {
			return nil, err
		}
	}

	tr := tar.NewReader(bytes.NewReader(payload))
	var out []RestoredFile
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		out = append(out, RestoredFile{Path: hdr.Name, Data: data})
	}
	return out, nil
}

func (m *Manager) Close() error { return m.cat.Close() }
