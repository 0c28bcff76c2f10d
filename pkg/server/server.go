// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

// Package server provides the optional HTTP surface over OpenViking.
// Routes are thin: each parses a request, calls one Engine/VikingFS
// method (search with assemble also calls Engine.Assemble on the search
// result), and serializes the result; no business logic lives here.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/openviking/openviking/pkg/errs"
	"github.com/openviking/openviking/pkg/retrieval"
	"github.com/openviking/openviking/pkg/service"
	"github.com/openviking/openviking/pkg/viking"
)

// Server is the OpenViking HTTP server.
type Server struct {
	router *mux.Router
	server *http.Server
	engine *viking.Engine
	debug  *service.DebugService
}

// New creates a new server delegating to engine. debug may be nil, in
// which case /health reports a static ok without probing backends.
func New(engine *viking.Engine, debug *service.DebugService) *Server {
	r := mux.NewRouter()
	s := &Server{
		router: r,
		engine: engine,
		debug:  debug,
		server: &http.Server{
			Handler: r,
			Addr:    ":8080",
		},
	}
	s.setupRoutes()
	return s
}

// SetAddr sets the server address.
func (s *Server) SetAddr(addr string) {
	s.server.Addr = addr
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// VikingFS read/write surface.
	s.router.HandleFunc("/api/v1/fs/ls", s.handleLs).Methods("GET")
	s.router.HandleFunc("/api/v1/fs/read", s.handleRead).Methods("GET")
	s.router.HandleFunc("/api/v1/fs/write", s.handleWrite).Methods("POST")
	s.router.HandleFunc("/api/v1/fs/mkdir", s.handleMkdir).Methods("POST")
	s.router.HandleFunc("/api/v1/fs/rm", s.handleRm).Methods("DELETE")
	s.router.HandleFunc("/api/v1/fs/mv", s.handleMv).Methods("POST")
	s.router.HandleFunc("/api/v1/fs/abstract", s.handleAbstract).Methods("GET")
	s.router.HandleFunc("/api/v1/fs/overview", s.handleOverview).Methods("GET")

	// Relations.
	s.router.HandleFunc("/api/v1/relations", s.handleRelations).Methods("GET")
	s.router.HandleFunc("/api/v1/relations", s.handleLink).Methods("POST")

	// Retrieval.
	s.router.HandleFunc("/api/v1/find", s.handleFind).Methods("GET")
	s.router.HandleFunc("/api/v1/search", s.handleSearch).Methods("POST")

	// Ingestion.
	s.router.HandleFunc("/api/v1/resources", s.handleAddResource).Methods("POST")
	s.router.HandleFunc("/api/v1/skills", s.handleAddSkill).Methods("POST")
}

// Start starts the server.
func (s *Server) Start(addr string) error {
	if addr != "" {
		s.server.Addr = addr
	}
	return s.server.ListenAndServe()
}

// StartTLS starts the server with TLS.
func (s *Server) StartTLS(addr, certFile, keyFile string) error {
	if addr != "" {
		s.server.Addr = addr
	}
	return s.server.ListenAndServeTLS(certFile, keyFile)
}

// Shutdown shuts down the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.debug == nil {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}
	components, err := s.debug.OverallStatus(r.Context())
	if writeErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"time":       time.Now().Format(time.RFC3339),
		"components": components,
	})
}

func (s *Server) handleLs(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("uri")
	entries, err := s.engine.FS.Ls(r.Context(), u)
	if writeErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("uri")
	data, err := s.engine.FS.Read(r.Context(), u)
	if writeErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"uri": u, "content": string(data)})
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URI     string `json:"uri"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.engine.FS.Write(r.Context(), req.URI, []byte(req.Content)); writeErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"uri": req.URI})
}

func (s *Server) handleMkdir(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URI string `json:"uri"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.engine.FS.Mkdir(r.Context(), req.URI); writeErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"uri": req.URI})
}

func (s *Server) handleRm(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("uri")
	recursive, _ := strconv.ParseBool(r.URL.Query().Get("recursive"))
	if err := s.engine.FS.Rm(r.Context(), u, recursive); writeErr(w, err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMv(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Src string `json:"src"`
		Dst string `json:"dst"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.engine.FS.Mv(r.Context(), req.Src, req.Dst); writeErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"src": req.Src, "dst": req.Dst})
}

func (s *Server) handleAbstract(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("uri")
	text, err := s.engine.FS.Abstract(r.Context(), u)
	if writeErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"uri": u, "abstract": text})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("uri")
	text, err := s.engine.FS.Overview(r.Context(), u)
	if writeErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"uri": u, "overview": text})
}

func (s *Server) handleRelations(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("uri")
	rels, err := s.engine.FS.Relations(r.Context(), u)
	if writeErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, rels)
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From   string   `json:"from"`
		To     []string `json:"to"`
		Reason string   `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.engine.FS.Link(r.Context(), req.From, req.To, req.Reason, time.Now()); writeErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"from": req.From})
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("query")
	ct := retrieval.ContextType(r.URL.Query().Get("context_type"))
	if ct == "" {
		ct = retrieval.ContextTypeResource
	}
	target := r.URL.Query().Get("target_uri")
	result, err := s.engine.Find(r.Context(), q, ct, target)
	if writeErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query          string   `json:"query"`
		SessionSummary string   `json:"session_summary"`
		LastMessages   []string `json:"last_messages"`
		Assemble       bool     `json:"assemble"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	result, err := s.engine.Search(r.Context(), req.Query, req.SessionSummary, req.LastMessages)
	if writeErr(w, err) {
		return
	}
	if !req.Assemble {
		writeJSON(w, http.StatusOK, result)
		return
	}
	window, err := s.engine.Assemble(r.Context(), result)
	if writeErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, window)
}

func (s *Server) handleAddResource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Content string `json:"content"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	rootURI, err := s.engine.AddResource(r.Context(), req.Name, []byte(req.Content), req.Reason)
	if writeErr(w, err) {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"uri": rootURI})
}

func (s *Server) handleAddSkill(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	skillURI, err := s.engine.AddSkill(r.Context(), req.Name, req.Content)
	if writeErr(w, err) {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"uri": skillURI})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeErr maps the error taxonomy to an HTTP status and writes a
// structured {kind, uri, cause} body. Returns true if it wrote a
// response (caller should return immediately).
func writeErr(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}
	status := http.StatusInternalServerError
	switch errs.ExitCode(err) {
	case 2:
		status = http.StatusBadRequest
	case 3:
		status = http.StatusNotFound
	case 4:
		status = http.StatusConflict
	case 5:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
	return true
}
