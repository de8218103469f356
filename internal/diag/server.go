package diag

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/utnfrba-so/go-nachos-vm/log"
)

var logger = log.For("diag")

// Server is the per-run diagnostics HTTP endpoint: /health, plus a
// pagetable and metrics view per address space, addressed by space id.
// One Server is started per kernel instance, mirroring the teacher's
// one-HTTPServer-per-module convention.
type Server struct {
	addr     string
	registry *Registry
	server   *http.Server
}

// NewServer builds a Server listening on addr, backed by registry.
func NewServer(addr string, registry *Registry) *Server {
	return &Server{addr: addr, registry: registry}
}

// Start blocks serving HTTP until the listener fails or Shutdown is
// called, mirroring HTTPServer.Start's blocking ListenAndServe.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/spaces", s.handleSpaces)
	mux.HandleFunc("/spaces/", s.handleSpaceDetail)

	s.server = &http.Server{Addr: s.addr, Handler: mux}
	logger.WithField("addr", s.addr).Info("diagnostics server listening")
	return s.server.ListenAndServe()
}

// Shutdown stops the server immediately, closing its listener and any open
// connections, if it has been started.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	return s.server.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "module": "nachosvm"})
}

func (s *Server) handleSpaces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"spaces": s.registry.IDs()})
}

// handleSpaceDetail serves /spaces/{id}/pagetable and /spaces/{id}/metrics.
func (s *Server) handleSpaceDetail(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/spaces/")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		http.Error(w, "expected /spaces/{id}/pagetable or /spaces/{id}/metrics", http.StatusBadRequest)
		return
	}

	spaceID, err := strconv.Atoi(parts[0])
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid space id %q", parts[0]), http.StatusBadRequest)
		return
	}

	as, ok := s.registry.Get(spaceID)
	if !ok {
		http.Error(w, fmt.Sprintf("no address space registered with id %d", spaceID), http.StatusNotFound)
		return
	}

	switch parts[1] {
	case "pagetable":
		writeJSON(w, http.StatusOK, as.DumpTable())
	case "metrics":
		faults, writes := as.Metrics()
		writeJSON(w, http.StatusOK, map[string]int{"page_faults": faults, "page_writes": writes})
	default:
		http.Error(w, fmt.Sprintf("unknown resource %q", parts[1]), http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("encoding diagnostics response")
	}
}
