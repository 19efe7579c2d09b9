// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

const configSchema = `{
  "type": "object",
  "description": "Configuration for a single kvdb engine instance.",
  "properties": {
    "wal-dir": {
      "description": "Directory the segmented write-ahead log is rooted at.",
      "type": "string"
    },
    "wal-max-segment-size": {
      "description": "Maximum entry-payload bytes per WAL segment before rollover.",
      "type": "integer"
    },
    "wal-auto-flush": {
      "description": "Whether every WAL write fsyncs the active segment before returning.",
      "type": "boolean"
    },
    "checkpoint-dir": {
      "description": "Directory checkpoint images are written to.",
      "type": "string"
    },
    "checkpoint-interval": {
      "description": "Duration string (e.g. '1h') between automatic checkpoints. Empty disables the worker.",
      "type": "string"
    },
    "checkpoint-max-keep": {
      "description": "Number of checkpoint generations to retain; older ones are pruned.",
      "type": "integer"
    },
    "change-stream-size": {
      "description": "Bounded capacity of the engine's change-tuple stream.",
      "type": "integer"
    },
    "backup-dir": {
      "description": "Directory backup archives and the backup catalog are stored under.",
      "type": "string"
    },
    "admin-addr": {
      "description": "Address the optional admin HTTP surface (diagnostics and backup triggers) listens on, e.g. ':9090'. Empty disables it.",
      "type": "string"
    },
    "s3-bucket": {
      "description": "S3 bucket backup archives are additionally offloaded to. Empty disables offload.",
      "type": "string"
    },
    "s3-region": {
      "description": "AWS region for the S3 backup target.",
      "type": "string"
    },
    "s3-prefix": {
      "description": "Key prefix archives are uploaded under within the bucket.",
      "type": "string"
    },
    "s3-endpoint": {
      "description": "Overrides the S3 endpoint, for S3-compatible stores such as MinIO.",
      "type": "string"
    },
    "s3-use-path-style": {
      "description": "Use path-style S3 addressing instead of virtual-hosted-style.",
      "type": "boolean"
    }
  },
  "required": ["wal-dir", "checkpoint-dir"]
}`
