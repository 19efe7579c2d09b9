// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads and validates the engine's JSON configuration file,
// generalizing the teacher's pkg/metricstore/config.go + configSchema.go
// pattern (defaulted struct, JSON-Schema-validated overlay) to a single-node
// kvdb instance instead of a metricstore.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultWALMaxSegmentSize = 64 * 1024 * 1024
	DefaultChangeStreamSize  = 1024
	DefaultCheckpointMaxKeep = 5
)

// Config is the on-disk JSON shape for a kvdb instance.
type Config struct {
	WALDir             string `json:"wal-dir"`
	WALMaxSegmentSize  int64  `json:"wal-max-segment-size"`
	WALAutoFlush       bool   `json:"wal-auto-flush"`
	CheckpointDir      string `json:"checkpoint-dir"`
	CheckpointInterval string `json:"checkpoint-interval"`
	CheckpointMaxKeep  int    `json:"checkpoint-max-keep"`
	ChangeStreamSize   int    `json:"change-stream-size"`
	BackupDir          string `json:"backup-dir"`
	AdminAddr          string `json:"admin-addr"`

	// S3 remote backup offload; Bucket empty disables it.
	S3Bucket       string `json:"s3-bucket"`
	S3Region       string `json:"s3-region"`
	S3Prefix       string `json:"s3-prefix"`
	S3Endpoint     string `json:"s3-endpoint"`
	S3UsePathStyle bool   `json:"s3-use-path-style"`
}

// Default returns a Config with the same defaults the teacher's
// metricstore.Keys global starts from.
func Default() Config {
	return Config{
		WALMaxSegmentSize: DefaultWALMaxSegmentSize,
		CheckpointMaxKeep: DefaultCheckpointMaxKeep,
		ChangeStreamSize:  DefaultChangeStreamSize,
	}
}

// Load reads and validates the config file at path, overlaying envFile (if
// present; a missing .env is not an error, matching the teacher's
// loadEnv("./.env") in cmd/cc-backend/server.go) before resolving any
// "env:VARNAME"-prefixed fields.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("config: loading %s: %w", envFile, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := Validate(data); err != nil {
		return cfg, err
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	if strings.HasPrefix(cfg.WALDir, "env:") {
		cfg.WALDir = os.Getenv(strings.TrimPrefix(cfg.WALDir, "env:"))
	}
	if strings.HasPrefix(cfg.BackupDir, "env:") {
		cfg.BackupDir = os.Getenv(strings.TrimPrefix(cfg.BackupDir, "env:"))
	}

	if cfg.WALMaxSegmentSize <= 0 {
		cfg.WALMaxSegmentSize = DefaultWALMaxSegmentSize
	}
	if cfg.CheckpointMaxKeep <= 0 {
		cfg.CheckpointMaxKeep = DefaultCheckpointMaxKeep
	}
	if cfg.ChangeStreamSize <= 0 {
		cfg.ChangeStreamSize = DefaultChangeStreamSize
	}

	return cfg, nil
}

// CheckpointIntervalDuration parses CheckpointInterval, returning ok=false
// if it is empty (auto-checkpointing disabled).
func (c Config) CheckpointIntervalDuration() (d time.Duration, ok bool, err error) {
	if c.CheckpointInterval == "" {
		return 0, false, nil
	}
	d, err = time.ParseDuration(c.CheckpointInterval)
	if err != nil {
		return 0, false, fmt.Errorf("config: invalid checkpoint-interval %q: %w", c.CheckpointInterval, err)
	}
	return d, true, nil
}
