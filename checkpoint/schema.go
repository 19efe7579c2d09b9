// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package checkpoint implements the checkpoint manager (spec §3.4, §4.5):
// point-in-time snapshot images of the whole keyspace, each paired with a
// CRC-verified .meta sidecar, usable as a fast-forward base for recovery and
// as the restore point reachable by id.
//
// The image format is an Avro object-container file, the same checkpoint
// encoding the teacher's internal/memorystore/avroCheckpoint.go uses for its
// metric buffers, generalized from a fixed numeric-sample schema to a
// generic (key, tag, payload) record where payload is the engine's own
// binary value codec. One Avro schema suffices for every TypedValue variant
// because the variant-specific structure already lives inside payload.
package checkpoint

import "github.com/linkedin/goavro/v2"

const entrySchema = `{
  "type": "record",
  "name": "checkpoint_entry",
  "fields": [
    {"name": "key", "type": "string"},
    {"name": "tag", "type": "int"},
    {"name": "payload", "type": "bytes"}
  ]
}`

func newEntryCodec() (*goavro.Codec, error) {
	return goavro.NewCodec(entrySchema)
}
