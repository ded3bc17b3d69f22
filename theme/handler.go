package theme

import (
	"encoding/json"
	"net/http"

	"cartes/model"
)

// Handler serves print stylesheets and theme listings.
type Handler struct {
	manager       *Manager
	defaultLayout string
	defaultScheme string
}

// NewHandler creates a theme handler. layout and scheme are used when a
// request does not name one.
func NewHandler(manager *Manager, layout, scheme string) *Handler {
	return &Handler{
		manager:       manager,
		defaultLayout: layout,
		defaultScheme: scheme,
	}
}

// Register mounts the theme routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/theme", h.HandleTheme)
	mux.HandleFunc("GET /api/layouts", h.HandleLayouts)
	mux.HandleFunc("GET /api/schemes", h.HandleSchemes)
	mux.HandleFunc("GET /api/card-themes", h.HandleCardThemes)
}

// HandleTheme serves the CSS for a layout and scheme.
func (h *Handler) HandleTheme(w http.ResponseWriter, r *http.Request) {
	layout := h.defaultLayout
	scheme := h.defaultScheme
	if v := r.URL.Query().Get("layout"); v != "" {
		layout = v
	}
	if v := r.URL.Query().Get("scheme"); v != "" {
		scheme = v
	}

	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(h.manager.CSS(layout, scheme)))
}

// HandleLayouts lists the layout names.
func (h *Handler) HandleLayouts(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusOK, h.manager.Layouts())
}

// HandleSchemes lists the schemes of a layout.
func (h *Handler) HandleSchemes(w http.ResponseWriter, r *http.Request) {
	layout := r.URL.Query().Get("layout")
	if layout == "" {
		writeError(w, http.StatusBadRequest, "layout parameter required")
		return
	}
	if h.manager.Layout(layout) == nil {
		writeError(w, http.StatusNotFound, "layout not found")
		return
	}
	writeEnvelope(w, http.StatusOK, h.manager.Schemes(layout))
}

// HandleCardThemes lists the card theme catalog.
func (h *Handler) HandleCardThemes(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusOK, Catalog())
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.Envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.Envelope{Error: msg})
}
