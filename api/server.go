// Package api exposes the card generator, notion lookup, deck store and
// print pages over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cartes/config"
	"cartes/generator"
	"cartes/layout"
	"cartes/model"
	"cartes/scheduler"
	"cartes/storage"
	"cartes/theme"
)

// Generator produces card sets.
type Generator interface {
	Generate(ctx context.Context, req model.GenerateRequest, progress generator.Progress) (*model.CardSet, error)
	ModelName() string
}

// NotionLookup lists the notions of a subject for a cycle.
type NotionLookup interface {
	Notions(ctx context.Context, subject, cycle string) ([]string, error)
}

// Deps are the collaborators of a Server. Notions and Generator may be nil
// when the knowledge base or the model is unavailable; their endpoints then
// answer 503.
type Deps struct {
	Store     *storage.Store
	Notions   NotionLookup
	Generator Generator
	Themes    *theme.Manager
	Printer   *layout.Renderer
	Scheduler *scheduler.Scheduler
	Print     config.PrintConfig
}

type Server struct {
	store     *storage.Store
	notions   NotionLookup
	gen       Generator
	themes    *theme.Manager
	printer   *layout.Renderer
	sched     *scheduler.Scheduler
	print     config.PrintConfig
	ws        *WSConnectionManager
	progress  *progressTracker
	logger    *zap.Logger
	newID     func() string
	startedAt time.Time
}

func NewServer(deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:     deps.Store,
		notions:   deps.Notions,
		gen:       deps.Generator,
		themes:    deps.Themes,
		printer:   deps.Printer,
		sched:     deps.Scheduler,
		print:     deps.Print,
		ws:        NewWSConnectionManager(logger.Named("ws")),
		progress:  newProgressTracker(),
		logger:    logger,
		newID:     uuid.NewString,
		startedAt: time.Now(),
	}
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/curriculum", s.handleCurriculum)
	mux.HandleFunc("GET /api/notions", s.handleNotions)
	mux.HandleFunc("POST /api/generate-card-v2", s.handleGenerate)
	mux.HandleFunc("POST /api/generate-card-v2/stream", s.handleGenerateStream)
	mux.HandleFunc("GET /api/generate-card-v2/progress/{session}", s.handleGenerateProgress)
	mux.HandleFunc("GET /api/visual", s.handleVisual)
	mux.HandleFunc("POST /api/visual/parse", s.handleVisualParse)
	mux.HandleFunc("GET /api/decks", s.handleDecks)
	mux.HandleFunc("GET /api/decks/{id}", s.handleDeck)
	mux.HandleFunc("PUT /api/decks/{id}/placements", s.handlePlacements)
	mux.HandleFunc("GET /api/decks/{id}/export.json", s.handleExportJSON)
	mux.HandleFunc("GET /api/decks/{id}/export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /print/{id}", s.handlePrint)
	mux.HandleFunc("GET /api/ws", s.handleWS)
}

type healthResponse struct {
	Status    string           `json:"status"`
	Model     string           `json:"model,omitempty"`
	Notions   bool             `json:"notions"`
	Uptime    string           `json:"uptime"`
	Clients   int              `json:"clients"`
	LastSweep *scheduler.Sweep `json:"lastSweep,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Notions: s.notions != nil,
		Uptime:  time.Since(s.startedAt).Round(time.Second).String(),
		Clients: s.ws.Count(),
	}
	if s.gen != nil {
		resp.Model = s.gen.ModelName()
	}
	if s.sched != nil {
		if last := s.sched.Last(); !last.At.IsZero() {
			resp.LastSweep = &last
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, model.Envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.Envelope{Error: msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, generator.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}
