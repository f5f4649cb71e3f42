// Package toolserver is a minimal reference implementation of the ToolSet
// wire protocol spec §6 names but scopes out of the core engine: POST
// {base_url}/tools/{tool_name} with {"messages": [...]}, GET {base_url}/tools
// for the catalog, and an optional Authorization-header gate returning 401.
//
// Grounded on original_source's graphorchestrator/toolsetserver/runtime.py,
// which registers one HTTP route per decorated tool method via a metaclass
// and wraps every call in the same request/response envelope. Go has no
// metaclass equivalent, so this package registers tools explicitly against a
// gorilla/mux router instead of scanning a class for decorated methods; the
// request/response shape and the auth gate are the same.
package toolserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// ToolFunc is one tool's server-side implementation: it receives the
// messages the client sent and returns the messages to send back, mirroring
// the ToolSet node's client-side InvokeTool contract in graph/toolset.
type ToolFunc func(ctx context.Context, messages []any) ([]any, error)

// Tool describes one registered tool, surfaced verbatim in the /tools
// catalog (graph/toolset.ToolDescriptor on the client side).
type Tool struct {
	Name string
	Doc  string
	Fn   ToolFunc
}

// Server is a reference ToolSet HTTP server. Authenticate, when set, gates
// every request behind the Authorization header it receives; a nil
// Authenticate leaves the server open, matching require_auth=false in the
// Python original.
type Server struct {
	tools        map[string]Tool
	order        []string
	Authenticate func(authHeader string) bool
	logger       *slog.Logger
}

// New returns an empty Server. Register tools with RegisterTool before
// calling Handler.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{tools: make(map[string]Tool), logger: logger}
}

// RegisterTool adds t to the catalog; Handler wires a POST /tools/{name}
// route for every registered tool. Registration order is preserved in the
// /tools catalog response.
func (s *Server) RegisterTool(t Tool) {
	if _, exists := s.tools[t.Name]; !exists {
		s.order = append(s.order, t.Name)
	}
	s.tools[t.Name] = t
}

type wireMessages struct {
	Messages []any `json:"messages"`
}

type toolDescriptor struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Doc  string `json:"doc"`
}

func (s *Server) checkAuth(r *http.Request) bool {
	if s.Authenticate == nil {
		return true
	}
	return s.Authenticate(r.Header.Get("Authorization"))
}

func (s *Server) handleInvoke(tool Tool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.checkAuth(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var in wireMessages
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		s.logger.Info("tool invoked", "tool", tool.Name, "input_size", len(in.Messages))

		out, err := tool.Fn(r.Context(), in.Messages)
		if err != nil {
			s.logger.Error("tool failed", "tool", tool.Name, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		s.logger.Info("tool succeeded", "tool", tool.Name, "output_size", len(out))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(wireMessages{Messages: out})
	}
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if !s.checkAuth(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	descriptors := make([]toolDescriptor, 0, len(s.order))
	for _, name := range s.order {
		t := s.tools[name]
		descriptors = append(descriptors, toolDescriptor{Name: t.Name, Path: "/tools/" + t.Name, Doc: t.Doc})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(descriptors)
}

// Handler builds the mux.Router for this Server's registered tools, wrapped
// in gorilla/handlers request logging and a permissive CORS policy (the
// reference server is meant to be exercised from anywhere during local
// development, not locked to an origin).
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/tools", s.handleCatalog).Methods(http.MethodGet)
	for _, name := range s.order {
		r.HandleFunc("/tools/"+name, s.handleInvoke(s.tools[name])).Methods(http.MethodPost)
	}

	cors := handlers.CORS(
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	return handlers.LoggingHandler(slogWriter{s.logger}, cors(r))
}

// slogWriter adapts slog.Logger to the io.Writer gorilla/handlers.
// LoggingHandler expects for its Apache-combined-log-format output.
type slogWriter struct{ logger *slog.Logger }

func (w slogWriter) Write(p []byte) (int, error) {
	w.logger.Info("access", "line", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
