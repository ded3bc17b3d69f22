package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"cartes/layout"
	"cartes/model"
	"cartes/theme"
	"cartes/transform"
	"cartes/visual"
)

type deckSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Cycle     string    `json:"cycle"`
	Grade     string    `json:"grade"`
	Subject   string    `json:"subject"`
	Notion    string    `json:"notion"`
	Count     int       `json:"count"`
}

func summarize(d *model.Deck) deckSummary {
	return deckSummary{
		ID:        d.ID,
		CreatedAt: d.CreatedAt,
		Cycle:     d.Request.Cycle,
		Grade:     d.Request.Grade,
		Subject:   d.Request.Subject,
		Notion:    d.Request.Notion,
		Count:     len(d.Cards),
	}
}

func deckEvent(kind string, d *model.Deck) map[string]any {
	return map[string]any{
		"type": kind,
		"deck": summarize(d),
	}
}

func (s *Server) handleDecks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from")
			return
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to")
			return
		}
		to = t
	}

	decks, err := s.store.ListDecks(from, to)
	if err != nil {
		s.logger.Error("list decks", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load decks")
		return
	}

	out := make([]deckSummary, 0, len(decks))
	for i := range decks {
		out = append(out, summarize(&decks[i]))
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleDeck(w http.ResponseWriter, r *http.Request) {
	deck, err := s.store.GetDeck(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeData(w, http.StatusOK, deck)
}

type container struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type placementsRequest struct {
	Container  container         `json:"container"`
	Placements []model.Placement `json:"placements"`
}

// handlePlacements stores the illustration placements of a deck, clamped to
// the editor container they were made in. Without a container the printed
// card box of the default grid is used.
func (s *Server) handlePlacements(w http.ResponseWriter, r *http.Request) {
	var req placementsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	cw, ch := req.Container.Width, req.Container.Height
	if cw <= 0 || ch <= 0 {
		cw, ch = layout.CardBox(s.print.PerPage)
	}

	placements := make([]model.Placement, 0, len(req.Placements))
	for _, p := range req.Placements {
		if p.Illustration == "" || p.Card <= 0 {
			writeError(w, http.StatusBadRequest, "each placement needs a card and an illustration")
			return
		}
		p.Transform = transform.Clamp(p.Transform, cw, ch)
		placements = append(placements, p)
	}

	deck, err := s.store.SetPlacements(r.PathValue("id"), placements)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	s.ws.Broadcast(deckEvent("placements_updated", deck))
	writeData(w, http.StatusOK, deck)
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	deck, err := s.store.GetDeck(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	filename := fmt.Sprintf("cartes-%s-%s.json", deck.Request.Notion, deck.CreatedAt.Format("20060102-150405"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	writeJSON(w, http.StatusOK, deck)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	deck, err := s.store.GetDeck(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	header := []string{"Numéro", "Titre", "Question", "Réponse", "Contexte", "Difficulté", "Schémas"}
	if err := writer.Write(header); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to write csv")
		return
	}
	for _, c := range deck.Cards {
		row := []string{
			strconv.Itoa(c.Number),
			c.Title,
			visual.Parse(c.Question).Text,
			c.Answer,
			c.Context,
			c.Difficulty,
			strconv.Itoa(len(visual.Directives(c.Question))),
		}
		if err := writer.Write(row); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to write csv")
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to write csv")
		return
	}

	filename := fmt.Sprintf("cartes-%s-%s.csv", deck.Request.Notion, deck.CreatedAt.Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(buf.Bytes())
}

// handlePrint renders a deck as printable HTML. Query parameters: kind
// (cards, answers, key), theme (auto, random or an index), per-page, layout
// and scheme. Missing values come from the print config.
func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	kind, err := layout.ParseKind(q.Get("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	themeParam := s.print.Theme
	if v := q.Get("theme"); v != "" {
		themeParam = v
	}
	selector, err := theme.ParseSelector(themeParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	perPage := s.print.PerPage
	if v := q.Get("per-page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid per-page")
			return
		}
		perPage = n
	}

	layoutName, scheme := s.print.Layout, s.print.Scheme
	if v := q.Get("layout"); v != "" {
		layoutName = v
	}
	if v := q.Get("scheme"); v != "" {
		scheme = v
	}
	layoutName, scheme = s.themes.Resolve(layoutName, scheme)

	deck, err := s.store.GetDeck(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	var buf bytes.Buffer
	err = s.printer.Render(&buf, deck, layout.Options{
		Kind:    kind,
		PerPage: perPage,
		Layout:  layoutName,
		Scheme:  scheme,
		CSS:     s.themes.CSS(layoutName, scheme),
		Themes:  selector,
	})
	if err != nil {
		s.logger.Error("render print page", zap.String("deck", deck.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to render print page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
