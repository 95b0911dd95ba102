package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/dreamware/torua/internal/cluster"
	"github.com/dreamware/torua/internal/logging"
	"github.com/dreamware/torua/internal/registry"
	"github.com/dreamware/torua/internal/shard"
	"github.com/dreamware/torua/internal/store"
)

// requestIDHeader carries the correlation id a client can pass in to tie
// its own logs to this server's; one is generated when absent.
const requestIDHeader = "X-Request-Id"

// Server exposes a registry.RPCStub (concretely a *shard.Shard) over HTTP.
// It owns no state of its own beyond the stub it wraps.
type Server struct {
	stub registry.RPCStub
	mux  *http.ServeMux
}

// NewServer builds a Server routing the endpoints documented in doc.go to
// stub.
func NewServer(stub registry.RPCStub) *Server {
	s := &Server{stub: stub, mux: http.NewServeMux()}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/index", s.handleIndex)
	s.mux.HandleFunc("/sync", s.handleSync)
	s.mux.HandleFunc("/search", s.handleSearch)
	s.mux.HandleFunc("/stats", s.handleStats)
	s.mux.HandleFunc("/configure", s.handleConfigure)
	return s
}

// ServeHTTP implements http.Handler. Every request is stamped with a
// correlation id, logged at debug level, and echoed back in the response
// headers so an operator can line up a client-side failure with this
// shard's own logs.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get(requestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, reqID)
	logging.WithComponent("rpc").Debug().
		Str("requestId", reqID).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("handling request")
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type indexRequest struct {
	Docs []cluster.Document `json:"docs"`
}

type fieldErrorsResponse struct {
	FieldErrors []cluster.FieldError `json:"fieldErrors,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	fieldErrs, err := s.stub.Index(r.Context(), req.Docs)
	if err != nil {
		writeStubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fieldErrorsResponse{FieldErrors: fieldErrs})
}

type syncRequest struct {
	Docs []cluster.ScannedDocument `json:"docs"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	fieldErrs, err := s.stub.Sync(r.Context(), req.Docs)
	if err != nil {
		writeStubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fieldErrorsResponse{FieldErrors: fieldErrs})
}

type searchRequest struct {
	Query       string `json:"query"`
	IncludeCold bool   `json:"includeCold"`
	Max         int    `json:"max"`
}

type searchResponse struct {
	Hits []cluster.Hit `json:"hits"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	resp, err := s.stub.Search(r.Context(), registry.SearchRequest{
		Query:       req.Query,
		IncludeCold: req.IncludeCold,
		Max:         req.Max,
	})
	if err != nil {
		writeStubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Hits: resp.Hits})
}

type statsResponse struct {
	Count    int64 `json:"count"`
	Bytes    int64 `json:"bytes"`
	ReadOnly bool  `json:"readOnly"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp, err := s.stub.Stats(r.Context())
	if err != nil {
		writeStubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Count: resp.Count, Bytes: resp.Bytes, ReadOnly: resp.ReadOnly})
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var cfg cluster.ShardConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if err := s.stub.Configure(r.Context(), cfg); err != nil {
		writeStubError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeStubError maps a stub error to an HTTP status. Errors that name a
// specific, recoverable condition (not configured, read-only, query
// rejected) map to 4xx so a client can distinguish them from transport or
// internal failures; everything else is a 500.
func writeStubError(w http.ResponseWriter, err error) {
	var rejected *shard.ErrQueryRejected
	switch {
	case errors.Is(err, shard.ErrNotConfigured):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, store.ErrReadOnly):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &rejected):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
