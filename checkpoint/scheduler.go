// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file wires the auto_checkpoint_worker (spec §4.5) onto
// go-co-op/gocron/v2, the same scheduling library the rest of the pack uses
// for periodic background jobs, instead of hand-rolling a time.Ticker loop.
package checkpoint

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

// SnapSource additionally exposes the snapshot LSN to checkpoint against,
// satisfied by the engine's control plane.
type SnapSource interface {
	Source
	CurrentLSN() uint64
}

// Worker periodically creates "auto" checkpoints and prunes old ones.
type Worker struct {
	scheduler gocron.Scheduler
}

// StartAutoCheckpoint schedules a recurring checkpoint every interval,
// keeping at most maxKeep images (spec §4.5 "auto_checkpoint_worker").
func (m *Manager) StartAutoCheckpoint(src SnapSource, interval time.Duration, maxKeep int) (*Worker, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			snap := src.CurrentLSN()
			if _, err := m.Create(src, snap, "auto", "scheduled checkpoint"); err != nil {
				cclog.Errorf("[Checkpoint]> auto checkpoint failed: %v", err)
				return
			}
			if _, err := m.CleanupOld(maxKeep); err != nil {
				cclog.Errorf("[Checkpoint]> cleanup_old failed: %v", err)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return &Worker{scheduler: sched}, nil
}

// Stop halts the scheduler, waiting for any in-flight job to finish.
func (w *Worker) Stop() error {
	return w.scheduler.Shutdown()
}
