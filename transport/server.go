package transport

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cdelta/dotcrdt/internal/replog"
)

// Server exposes the token-stream push API a replicad node's peers gossip
// deltas through.
type Server struct {
	port          int
	mux           *http.ServeMux
	http          *http.Server
	dissemination *Dissemination
	log           *replog.ReplicaLogger
}

// NewServer wires an HTTP server on port that forwards every POST /delta
// body into d.Receive.
func NewServer(port int, d *Dissemination, log *replog.ReplicaLogger) *Server {
	mux := http.NewServeMux()
	s := &Server{
		port:          port,
		mux:           mux,
		dissemination: d,
		log:           log,
		http: &http.Server{
			Addr:    ":" + strconv.Itoa(port),
			Handler: mux,
		},
	}
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/delta", s.handleDelta)
	return s
}

// Handle registers an additional application-specific route (e.g. a demo
// binary's /increment or /value endpoint) alongside the fixed /delta API.
func (s *Server) Handle(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, handler)
}

// Start blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

// Stop closes the listener.
func (s *Server) Stop() error {
	return s.http.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleDelta(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var env Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, "invalid envelope", http.StatusBadRequest)
		return
	}

	if err := s.dissemination.Receive(env); err != nil {
		s.log.LogError("server.handle_delta", err)
		http.Error(w, "could not process delta", http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "accepted", "id": env.ID.String()})
}
