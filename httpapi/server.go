// Package httpapi implements BeingDB's HTTP surface: GET /, /version,
// /predicates, /query/:predicate and POST /query. Grounded on
// dolthub-dolt's go/datas/database_server.go (httprouter wiring,
// handler-plus-shared-state shape), adapted from noms' chunk-store RPC
// surface to spec.md §6's query-envelope JSON API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/jptmoore/beingdb"
	"github.com/jptmoore/beingdb/engine"
	"github.com/jptmoore/beingdb/obslog"
	"github.com/jptmoore/beingdb/query"
	"github.com/jptmoore/beingdb/version"
)

// Config bounds the HTTP layer's own policies, independent of the
// query engine's internal guards (spec.md §4.5 "Request ceiling").
type Config struct {
	MaxResults int // server ceiling composed with any user-supplied limit
}

// Server wires an Engine, a Config and a logger into an http.Handler.
type Server struct {
	engine *engine.Engine
	gate   *engine.AdmissionGate
	config Config
	log    *zap.Logger
	router *httprouter.Router
}

func New(eng *engine.Engine, gate *engine.AdmissionGate, config Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if config.MaxResults <= 0 {
		config.MaxResults = 1000
	}

	s := &Server{engine: eng, gate: gate, config: config, log: log, router: httprouter.New()}
	s.router.GET("/", s.handleRoot)
	s.router.GET("/version", s.handleVersion)
	s.router.GET("/predicates", s.handlePredicates)
	s.router.GET("/query/:predicate", s.handleQueryPredicate)
	s.router.POST("/query", s.handleQueryPost)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	ctx := context.WithValue(r.Context(), obslog.RequestIDKey, requestID)
	w.Header().Set("X-Request-Id", requestID)
	s.router.ServeHTTP(w, r.WithContext(ctx))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, version.Current())
}

func (s *Server) handlePredicates(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	infos, err := s.engine.ListPredicatesWithArity()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	type predicateJSON struct {
		Name  string `json:"name"`
		Arity int    `json:"arity"`
	}
	out := make([]predicateJSON, len(infos))
	for i, info := range infos {
		out[i] = predicateJSON{Name: info.Name, Arity: info.Arity}
	}
	writeJSON(w, http.StatusOK, map[string]any{"predicates": out})
}

func (s *Server) handleQueryPredicate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	predicate := ps.ByName("predicate")
	facts, err := s.engine.QueryAll(predicate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	type factJSON [][]string
	out := make(factJSON, len(facts))
	for i, args := range facts {
		row := make([]string, len(args))
		for j, a := range args {
			row[j] = a.Text
		}
		out[i] = row
	}
	writeJSON(w, http.StatusOK, map[string]any{"predicate": predicate, "facts": out})
}

type queryRequest struct {
	Query  string `json:"query"`
	Offset *int   `json:"offset,omitempty"`
	Limit  *int   `json:"limit,omitempty"`
}

func (s *Server) handleQueryPost(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	release, err := s.gate.Acquire()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer release()

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, beingdb.ErrParseError)
		return
	}

	q, err := query.Parse(req.Query)
	if err != nil {
		s.writeError(w, r, beingdb.ErrParseError)
		return
	}

	if err := engine.ValidateQuery(q, req.Offset, req.Limit); err != nil {
		s.writeError(w, r, err)
		return
	}

	effectiveLimit := s.config.MaxResults
	if req.Limit != nil && *req.Limit < effectiveLimit {
		effectiveLimit = *req.Limit
	}

	offset := 0
	if req.Offset != nil {
		offset = *req.Offset
	}

	ctx := r.Context()
	var result engine.Result
	if (req.Offset != nil || req.Limit != nil) && len(q.Patterns) > 1 {
		result, err = s.engine.ExecuteStreaming(ctx, q, offset, effectiveLimit)
	} else {
		result, err = s.engine.Execute(ctx, q)
		if err == nil {
			result = paginate(result, offset, effectiveLimit)
		}
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if req.Offset != nil || req.Limit != nil {
		o, l := offset, effectiveLimit
		result.Offset, result.Limit = &o, &l
	}

	writeJSON(w, http.StatusOK, resultJSON(result))
}

// paginate applies offset/limit to an already-materialized Result, used
// for the single-pattern and no-pagination-requested cases where
// Execute (not ExecuteStreaming) already ran. Total stays populated
// from the full materialization.
func paginate(r engine.Result, offset, limit int) engine.Result {
	if offset > len(r.Results) {
		offset = len(r.Results)
	}
	end := offset + limit
	if end > len(r.Results) {
		end = len(r.Results)
	}
	r.Results = r.Results[offset:end]
	r.Count = len(r.Results)
	return r
}

type resultEnvelope struct {
	Variables    []string             `json:"variables"`
	Results      []map[string]string  `json:"results"`
	Count        int                  `json:"count"`
	Total        *int                 `json:"total,omitempty"`
	TotalOmitted bool                 `json:"total_omitted,omitempty"`
	Offset       *int                 `json:"offset,omitempty"`
	Limit        *int                 `json:"limit,omitempty"`
}

func resultJSON(r engine.Result) resultEnvelope {
	results := make([]map[string]string, len(r.Results))
	for i, b := range r.Results {
		results[i] = b
	}
	return resultEnvelope{
		Variables:    r.Variables,
		Results:      results,
		Count:        r.Count,
		Total:        r.Total,
		TotalOmitted: r.Total == nil,
		Offset:       r.Offset,
		Limit:        r.Limit,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, beingdb.ErrOverloaded) {
		status = http.StatusServiceUnavailable
	}

	obslog.WithRequestID(r.Context(), s.log).Warn("request failed", zap.Error(err), zap.Int("status", status))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// ListenAndServe starts the HTTP server and blocks until ctx is
// cancelled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
