package api

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"cartes/curriculum"
	"cartes/model"
	"cartes/visual"
)

func (s *Server) handleNotions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	subject := q.Get("subject")
	cycle := q.Get("cycle")
	if subject == "" || cycle == "" {
		writeError(w, http.StatusBadRequest, "subject and cycle are required")
		return
	}
	if s.notions == nil {
		writeError(w, http.StatusServiceUnavailable, "knowledge database unavailable")
		return
	}

	notions, err := s.notions.Notions(r.Context(), subject, cycle)
	if err != nil {
		s.logger.Error("notion lookup failed",
			zap.String("subject", subject),
			zap.String("cycle", cycle),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeData(w, http.StatusOK, model.NotionList{
		Subject: subject,
		Cycle:   cycle,
		Notions: notions,
	})
}

type curriculumResponse struct {
	Cycles   []curriculum.Cycle   `json:"cycles"`
	Subjects []curriculum.Subject `json:"subjects"`
	Defaults map[string][]string  `json:"defaultNotions"`
}

func (s *Server) handleCurriculum(w http.ResponseWriter, r *http.Request) {
	resp := curriculumResponse{
		Cycles:   curriculum.Cycles(),
		Subjects: curriculum.Subjects(),
		Defaults: make(map[string][]string),
	}
	for _, sub := range resp.Subjects {
		resp.Defaults[sub.Key] = curriculum.DefaultNotions(sub.Key)
	}
	writeData(w, http.StatusOK, resp)
}

// directiveBody accepts either a bare body ("clock:3:30") or a whole token.
func directiveBody(code string) string {
	code = strings.TrimSpace(code)
	if body, ok := strings.CutPrefix(code, "[visual:"); ok {
		return strings.TrimSuffix(body, "]")
	}
	return code
}

func (s *Server) handleVisual(w http.ResponseWriter, r *http.Request) {
	body := directiveBody(r.URL.Query().Get("code"))
	if body == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	dg, ok := visual.RenderBody(body)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown visual type")
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(dg.SVG()))
}

type parseRequest struct {
	Text string `json:"text"`
}

type visualItem struct {
	Type   visual.Type `json:"type"`
	Params []string    `json:"params"`
	Token  string      `json:"token"`
	SVG    string      `json:"svg"`
}

type parseResponse struct {
	Text    string       `json:"text"`
	Visuals []visualItem `json:"visuals"`
}

func (s *Server) handleVisualParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	parsed := visual.Parse(req.Text)
	resp := parseResponse{Text: parsed.Text, Visuals: make([]visualItem, 0, len(parsed.Items))}
	for _, item := range parsed.Items {
		params := item.Directive.Params
		if params == nil {
			params = []string{}
		}
		resp.Visuals = append(resp.Visuals, visualItem{
			Type:   item.Directive.Type,
			Params: params,
			Token:  item.Directive.Token(),
			SVG:    item.Diagram.SVG(),
		})
	}
	writeData(w, http.StatusOK, resp)
}
