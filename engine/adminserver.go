// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file is the engine's optional admin HTTP surface: health, metrics,
// and a small JSON stats endpoint (all read-only), plus two POST routes
// that trigger backups when a backup manager is attached. It is wired with
// gorilla/mux + gorilla/handlers the way the teacher's server.go wires its
// router (mux.NewRouter, handlers.CompressHandler), scaled down from a full
// application router to three diagnostic routes and the two backup routes.
// Nothing in the engine's library API requires this server to run.
package engine

import (
	"encoding/json"
	"net/http"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/syloe1/kv-db-sub001/backup"
)

// AdminServer is the engine's read-only diagnostic HTTP surface, plus two
// operator-triggered backup endpoints when a backup manager is attached.
type AdminServer struct {
	eng    *Engine
	bak    *backup.Manager
	server *http.Server
}

// NewAdminServer builds (but does not start) an admin server bound to addr,
// exposing /healthz, /metrics (if eng.Metrics() is set), and /stats. bak may
// be nil, in which case /backup/full and /backup/incremental are omitted.
func NewAdminServer(eng *Engine, bak *backup.Manager, addr string) *AdminServer {
	a := &AdminServer{eng: eng, bak: bak}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/stats", eng.handleStats).Methods(http.MethodGet)
	if g := eng.Metrics().Gatherer(); g != nil {
		r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}
	if bak != nil {
		r.HandleFunc("/backup/full", a.handleBackupFull).Methods(http.MethodPost)
		r.HandleFunc("/backup/incremental", a.handleBackupIncremental).Methods(http.MethodPost)
	}
	r.Use(loggingMiddleware)

	a.server = &http.Server{
		Addr:         addr,
		Handler:      handlers.CompressHandler(r),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return a
}

func (a *AdminServer) handleBackupFull(w http.ResponseWriter, r *http.Request) {
	rec, err := a.bak.CreateFull(a.eng.BackupSource())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

func (a *AdminServer) handleBackupIncremental(w http.ResponseWriter, r *http.Request) {
	parent := r.URL.Query().Get("parent")
	if parent == "" {
		http.Error(w, "missing required query parameter: parent", http.StatusBadRequest)
		return
	}
	rec, err := a.bak.CreateIncremental(a.eng.BackupSource(), parent)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cclog.Infof("[AdminServer]> %s %s", r.Method, r.URL.RequestURI())
		next.ServeHTTP(w, r)
	})
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type statsResponse struct {
	CurrentLSN   uint64 `json:"current_lsn"`
	ChangeStream int    `json:"change_stream_buffered"`
}

func (e *Engine) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		CurrentLSN:   e.GetSnapshot(),
		ChangeStream: len(e.stream.ch),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListenAndServe starts the admin server; it blocks until Shutdown is
// called or the listener fails.
func (a *AdminServer) ListenAndServe() error {
	cclog.Infof("[AdminServer]> listening at %s", a.server.Addr)
	err := a.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the admin server.
func (a *AdminServer) Shutdown() error {
	return a.server.Close()
}
