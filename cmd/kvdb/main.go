// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main is the kvdb engine's thin CLI entrypoint: load config, open
// the engine, optionally serve the admin surface, wait for a signal.
// Mirrors the teacher's cmd/cc-backend/main.go shape (flag parsing, gops
// agent, graceful shutdown on SIGINT/SIGTERM) scaled down to a single
// embeddable engine instead of a full web application.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/google/gops/agent"

	"github.com/syloe1/kv-db-sub001/backup"
	"github.com/syloe1/kv-db-sub001/engine"
	"github.com/syloe1/kv-db-sub001/internal/config"
	"github.com/syloe1/kv-db-sub001/internal/obs"
)

func main() {
	var (
		flagConfigFile string
		flagEnvFile    string
		flagGops       bool
		flagAdminAddr  string
	)
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Path to the engine configuration file")
	flag.StringVar(&flagEnvFile, "env", "./.env", "Path to an optional .env overlay")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.StringVar(&flagAdminAddr, "admin-addr", "", "Overrides the config file's admin-addr, e.g. ':9090'")
	flag.Parse()

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			cclog.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	cfg, err := config.Load(flagConfigFile, flagEnvFile)
	if err != nil {
		cclog.Fatal(err)
	}
	if flagAdminAddr != "" {
		cfg.AdminAddr = flagAdminAddr
	}

	metrics := obs.New()

	eng, err := engine.Open(engine.Options{
		WALDir:            cfg.WALDir,
		WALMaxSegmentSize: cfg.WALMaxSegmentSize,
		WALAutoFlush:      cfg.WALAutoFlush,
		CheckpointDir:     cfg.CheckpointDir,
		ChangeStreamSize:  cfg.ChangeStreamSize,
		Metrics:           metrics,
	})
	if err != nil {
		cclog.Fatalf("opening engine: %s", err.Error())
	}
	defer eng.Close()

	var bak *backup.Manager
	if cfg.BackupDir != "" {
		bak, err = backup.Open(cfg.BackupDir)
		if err != nil {
			cclog.Fatalf("opening backup manager: %s", err.Error())
		}
		defer bak.Close()
		eng.SetBackupTracker(bak.Tracker())

		if cfg.S3Bucket != "" {
			s3target, err := backup.NewS3Target(context.Background(), backup.S3Config{
				Region:       cfg.S3Region,
				Bucket:       cfg.S3Bucket,
				Prefix:       cfg.S3Prefix,
				Endpoint:     cfg.S3Endpoint,
				UsePathStyle: cfg.S3UsePathStyle,
			})
			if err != nil {
				cclog.Fatalf("configuring s3 backup target: %s", err.Error())
			}
			bak.SetRemoteTarget(s3target)
		}
	}

	if interval, ok, err := cfg.CheckpointIntervalDuration(); err != nil {
		cclog.Fatal(err)
	} else if ok {
		if err := eng.StartAutoCheckpoint(interval, cfg.CheckpointMaxKeep); err != nil {
			cclog.Fatalf("starting auto checkpoint worker: %s", err.Error())
		}
	}

	var admin *engine.AdminServer
	if cfg.AdminAddr != "" {
		admin = engine.NewAdminServer(eng, bak, cfg.AdminAddr)
		go func() {
			if err := admin.ListenAndServe(); err != nil {
				cclog.Errorf("admin server: %s", err.Error())
			}
		}()
	}

	cclog.Infof("[kvdb]> ready (wal-dir=%s checkpoint-dir=%s admin-addr=%q)", cfg.WALDir, cfg.CheckpointDir, cfg.AdminAddr)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	cclog.Infof("[kvdb]> shutting down")
	if admin != nil {
		admin.Shutdown()
	}
}
