package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"cartes/model"
)

type progressUpdate struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

// progressTracker keeps every running streamed generation so other clients
// can follow it by session ID.
type progressTracker struct {
	mu       sync.RWMutex
	sessions map[string]*progressSession
}

func newProgressTracker() *progressTracker {
	return &progressTracker{
		sessions: make(map[string]*progressSession),
	}
}

func (pt *progressTracker) createSession(id string) *progressSession {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	ps := &progressSession{subs: make(map[*progressSub]struct{})}
	pt.sessions[id] = ps
	return ps
}

func (pt *progressTracker) getSession(id string) (*progressSession, bool) {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	ps, ok := pt.sessions[id]
	return ps, ok
}

// removeSession forgets a session. The producer owns closing it.
func (pt *progressTracker) removeSession(id string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	delete(pt.sessions, id)
}

// progressSession fans the updates of one generation out to every
// subscriber. publish and close are only called by the producer.
type progressSession struct {
	mu     sync.Mutex
	subs   map[*progressSub]struct{}
	closed bool
}

type progressSub struct {
	ch   chan progressUpdate
	done chan struct{}
	once sync.Once
}

// subscribe registers a receiver. It fails once the session is closed.
func (ps *progressSession) subscribe() (*progressSub, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.closed {
		return nil, false
	}
	sub := &progressSub{
		ch:   make(chan progressUpdate, 16),
		done: make(chan struct{}),
	}
	ps.subs[sub] = struct{}{}
	return sub, true
}

func (ps *progressSession) unsubscribe(sub *progressSub) {
	sub.once.Do(func() { close(sub.done) })
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.subs, sub)
}

func (ps *progressSession) subscribers() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.subs)
}

// publish delivers u to every subscriber, waiting on slow ones until they
// leave or ctx ends.
func (ps *progressSession) publish(ctx context.Context, u progressUpdate) {
	ps.mu.Lock()
	subs := make([]*progressSub, 0, len(ps.subs))
	for sub := range ps.subs {
		subs = append(subs, sub)
	}
	ps.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- u:
		case <-sub.done:
		case <-ctx.Done():
		}
	}
}

func (ps *progressSession) close() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.closed = true
	for sub := range ps.subs {
		close(sub.ch)
	}
}

type generateResponse struct {
	DeckID   string           `json:"deckId,omitempty"`
	Cards    []model.CardData `json:"cards"`
	Metadata model.Metadata   `json:"metadata"`
}

// generateDeck runs the generator and persists the result as a deck. A
// failed save is logged and the cards are still returned, without a deck ID.
func (s *Server) generateDeck(ctx context.Context, req model.GenerateRequest, progress func(stage, message string)) (generateResponse, error) {
	set, err := s.gen.Generate(ctx, req, progress)
	if err != nil {
		return generateResponse{}, err
	}
	resp := generateResponse{Cards: set.Cards, Metadata: set.Metadata}

	deck := &model.Deck{
		ID:        s.newID(),
		CreatedAt: set.Metadata.GeneratedAt,
		Request: model.GenerateRequest{
			Cycle:   set.Metadata.Cycle,
			Grade:   set.Metadata.Grade,
			Subject: set.Metadata.Subject,
			Notion:  set.Metadata.Notion,
			Count:   set.Metadata.Count,
		},
		Cards:    set.Cards,
		Metadata: set.Metadata,
	}
	if deck.CreatedAt.IsZero() {
		deck.CreatedAt = time.Now().UTC()
	}
	if err := s.store.SaveDeck(deck); err != nil {
		s.logger.Warn("deck not saved", zap.String("id", deck.ID), zap.Error(err))
		return resp, nil
	}

	resp.DeckID = deck.ID
	s.ws.Broadcast(deckEvent("deck_created", deck))
	return resp, nil
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.gen == nil {
		writeError(w, http.StatusServiceUnavailable, "card generator not configured")
		return
	}

	var req model.GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	resp, err := s.generateDeck(r.Context(), req, nil)
	if err != nil {
		s.logger.Error("generate cards", zap.String("notion", req.Notion), zap.Error(err))
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeData(w, http.StatusOK, resp)
}

type generateResult struct {
	resp generateResponse
	err  error
}

// handleGenerateStream runs a generation and streams its progress as
// Server-Sent Events.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	if s.gen == nil {
		writeError(w, http.StatusServiceUnavailable, "card generator not configured")
		return
	}

	var req model.GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	sessionID := s.newID()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	session := s.progress.createSession(sessionID)
	defer s.progress.removeSession(sessionID)
	sub, _ := session.subscribe()
	defer session.unsubscribe(sub)

	writeEvent(w, map[string]any{
		"type":      "started",
		"sessionId": sessionID,
		"message":   "Génération des cartes...",
	})

	ctx := r.Context()
	resultCh := make(chan generateResult, 1)

	go func() {
		defer session.close()
		defer func() {
			if rec := recover(); rec != nil {
				resultCh <- generateResult{err: fmt.Errorf("panic: %v", rec)}
			}
		}()

		progressFn := func(stage, message string) {
			session.publish(ctx, progressUpdate{
				Stage:   stage,
				Message: message,
				Time:    time.Now().UTC().Format(time.RFC3339),
			})
		}

		resp, err := s.generateDeck(ctx, req, progressFn)
		resultCh <- generateResult{resp: resp, err: err}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-sub.ch:
			if !ok {
				final := <-resultCh
				if final.err != nil {
					s.logger.Error("generate cards", zap.String("session", sessionID), zap.Error(final.err))
					writeEvent(w, map[string]any{
						"type":    "error",
						"message": final.err.Error(),
					})
				} else {
					writeEvent(w, map[string]any{
						"type":    "completed",
						"data":    final.resp,
						"message": fmt.Sprintf("%d cartes générées", len(final.resp.Cards)),
					})
				}
				return
			}
			writeEvent(w, map[string]any{
				"type":    "progress",
				"stage":   update.Stage,
				"message": update.Message,
				"time":    update.Time,
			})
		}
	}
}

// handleGenerateProgress lets another client follow a streamed generation.
func (s *Server) handleGenerateProgress(w http.ResponseWriter, r *http.Request) {
	session, ok := s.progress.getSession(r.PathValue("session"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	sub, ok := session.subscribe()
	if !ok {
		http.NotFound(w, r)
		return
	}
	defer session.unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-sub.ch:
			if !ok {
				return
			}
			writeEvent(w, map[string]any{
				"type":    "progress",
				"stage":   update.Stage,
				"message": update.Message,
				"time":    update.Time,
			})
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flush(w)
		}
	}
}

func writeEvent(w http.ResponseWriter, v any) {
	fmt.Fprintf(w, "data: %s\n\n", mustJSON(v))
	flush(w)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{"type":"error","message":"marshal error"}`
	}
	return string(b)
}
