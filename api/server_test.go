package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartes/config"
	"cartes/generator"
	"cartes/layout"
	"cartes/model"
	"cartes/storage"
	"cartes/theme"
	"cartes/themes"
)

type stubModel struct {
	err error
}

func (m stubModel) Name() string { return "stub" }

func (m stubModel) Generate(ctx context.Context, prompt string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return `{"cards":[
		{"title":"Pizza","question":"Quelle fraction de la pizza est mangée? [visual:fraction:3:8:3]","answer":"3/8"},
		{"title":"Horloge","question":"Quelle heure est-il? [visual:clock:3:30] [visual:nope:1]","answer":"3 h 30"}
	]}`, nil
}

// gatedModel holds every generation until release is closed.
type gatedModel struct {
	stubModel
	release chan struct{}
}

func (m gatedModel) Generate(ctx context.Context, prompt string) (string, error) {
	select {
	case <-m.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return m.stubModel.Generate(ctx, prompt)
}

type stubNotions struct {
	notions []string
	err     error
}

func (n stubNotions) Notions(ctx context.Context, subject, cycle string) ([]string, error) {
	return n.notions, n.err
}

type fixture struct {
	srv   *Server
	mux   *http.ServeMux
	store *storage.Store
}

func newFixture(t *testing.T, m generator.Model, notions NotionLookup) *fixture {
	t.Helper()

	store := storage.New(t.TempDir())
	require.NoError(t, store.EnsureDirs())

	themeManager, err := theme.NewManager(themes.FS, ".", nil)
	require.NoError(t, err)
	printer, err := layout.NewRenderer()
	require.NoError(t, err)

	deps := Deps{
		Store:   store,
		Notions: notions,
		Themes:  themeManager,
		Printer: printer,
		Print:   config.Default().Print,
	}
	if m != nil {
		deps.Generator = generator.NewService(m, generator.Options{CardCount: 2, BatchSize: 2}, nil)
	}

	srv := NewServer(deps, nil)
	ids := 0
	srv.newID = func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}
	mux := http.NewServeMux()
	srv.Register(mux)
	return &fixture{srv: srv, mux: mux, store: store}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data any) model.Envelope {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return model.Envelope{Success: env.Success, Error: env.Error}
}

const validBody = `{"cycle":"cycle2","grade":"3","subject":"mathematiques","notion":"fractions"}`

func saveDeck(t *testing.T, f *fixture, id string) *model.Deck {
	t.Helper()
	d := &model.Deck{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Request:   model.GenerateRequest{Cycle: "cycle2", Grade: "3", Subject: "mathematiques", Notion: "fractions"},
		Cards: []model.CardData{
			{Number: 1, Title: "Pizza", Question: "Combien? [visual:fraction:3:8:3]", Answer: "3/8", Difficulty: "facile"},
			{Number: 2, Title: "Heure", Question: "Quelle heure? [visual:clock:3:30]", Answer: "3 h 30"},
		},
	}
	require.NoError(t, f.store.SaveDeck(d))
	return d
}

func TestHealth(t *testing.T) {
	f := newFixture(t, stubModel{}, nil)
	rec := f.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "stub", resp.Model)
	assert.False(t, resp.Notions)
}

func TestNotions(t *testing.T) {
	t.Run("missing params", func(t *testing.T) {
		f := newFixture(t, nil, stubNotions{})
		for _, target := range []string{"/api/notions", "/api/notions?subject=francais", "/api/notions?cycle=cycle1"} {
			rec := f.do(http.MethodGet, target, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, target)
			env := decodeEnvelope(t, rec, nil)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		}
	})

	t.Run("success", func(t *testing.T) {
		f := newFixture(t, nil, stubNotions{notions: []string{"angles", "fractions"}})
		rec := f.do(http.MethodGet, "/api/notions?subject=mathematiques&cycle=cycle2", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var list model.NotionList
		env := decodeEnvelope(t, rec, &list)
		assert.True(t, env.Success)
		assert.Equal(t, model.NotionList{Subject: "mathematiques", Cycle: "cycle2", Notions: []string{"angles", "fractions"}}, list)
	})

	t.Run("query error", func(t *testing.T) {
		f := newFixture(t, nil, stubNotions{err: errors.New("no such table: knowledge_chunks")})
		rec := f.do(http.MethodGet, "/api/notions?subject=mathematiques&cycle=cycle2", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		env := decodeEnvelope(t, rec, nil)
		assert.Equal(t, "no such table: knowledge_chunks", env.Error)
	})

	t.Run("no database", func(t *testing.T) {
		f := newFixture(t, nil, nil)
		rec := f.do(http.MethodGet, "/api/notions?subject=mathematiques&cycle=cycle2", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestCurriculum(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(http.MethodGet, "/api/curriculum", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp curriculumResponse
	decodeEnvelope(t, rec, &resp)
	assert.Len(t, resp.Cycles, 3)
	assert.NotEmpty(t, resp.Defaults["mathematiques"])
}

func TestGenerate(t *testing.T) {
	f := newFixture(t, stubModel{}, nil)
	rec := f.do(http.MethodPost, "/api/generate-card-v2", validBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp generateResponse
	env := decodeEnvelope(t, rec, &resp)
	assert.True(t, env.Success)
	assert.Equal(t, "id-1", resp.DeckID)
	require.Len(t, resp.Cards, 2)
	assert.Equal(t, 1, resp.Cards[0].Number)
	assert.Equal(t, 2, resp.Cards[1].Number)
	assert.Equal(t, "Quelle heure est-il? [visual:clock:3:30]", resp.Cards[1].Question)
	assert.Equal(t, 2, resp.Metadata.Visuals)
	assert.Equal(t, "stub", resp.Metadata.Model)

	saved, err := f.store.GetDeck("id-1")
	require.NoError(t, err)
	assert.Equal(t, resp.Cards, saved.Cards)
	assert.Equal(t, "fractions", saved.Request.Notion)
}

func TestGenerateErrors(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		f := newFixture(t, stubModel{}, nil)
		rec := f.do(http.MethodPost, "/api/generate-card-v2", "{")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid request", func(t *testing.T) {
		f := newFixture(t, stubModel{}, nil)
		rec := f.do(http.MethodPost, "/api/generate-card-v2", `{"cycle":"cycle9","grade":"3","subject":"mathematiques","notion":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		env := decodeEnvelope(t, rec, nil)
		assert.False(t, env.Success)
		assert.Contains(t, env.Error, "cycle9")
	})

	t.Run("model failure", func(t *testing.T) {
		f := newFixture(t, stubModel{err: errors.New("quota exceeded")}, nil)
		rec := f.do(http.MethodPost, "/api/generate-card-v2", validBody)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		env := decodeEnvelope(t, rec, nil)
		assert.Contains(t, env.Error, "quota exceeded")
	})

	t.Run("no generator", func(t *testing.T) {
		f := newFixture(t, nil, nil)
		rec := f.do(http.MethodPost, "/api/generate-card-v2", validBody)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		f := newFixture(t, stubModel{}, nil)
		rec := f.do(http.MethodGet, "/api/generate-card-v2", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func readEvents(t *testing.T, body string) []map[string]any {
	t.Helper()
	var events []map[string]any
	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var ev map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		events = append(events, ev)
	}
	return events
}

func TestGenerateStream(t *testing.T) {
	f := newFixture(t, stubModel{}, nil)
	rec := f.do(http.MethodPost, "/api/generate-card-v2/stream", validBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := readEvents(t, rec.Body.String())
	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, "started", events[0]["type"])
	assert.Equal(t, "progress", events[1]["type"])
	last := events[len(events)-1]
	assert.Equal(t, "completed", last["type"])

	data := last["data"].(map[string]any)
	assert.Equal(t, "id-2", data["deckId"])
	assert.Len(t, data["cards"], 2)
}

func TestGenerateStreamError(t *testing.T) {
	f := newFixture(t, stubModel{err: errors.New("boom")}, nil)
	rec := f.do(http.MethodPost, "/api/generate-card-v2/stream", validBody)

	events := readEvents(t, rec.Body.String())
	last := events[len(events)-1]
	assert.Equal(t, "error", last["type"])
	assert.Contains(t, last["message"], "boom")
}

func progressStages(events []map[string]any) []string {
	var stages []string
	for _, ev := range events {
		if ev["type"] == "progress" {
			stages = append(stages, ev["stage"].(string))
		}
	}
	return stages
}

func TestGenerateProgressFollowsLiveSession(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, gatedModel{release: release}, nil)
	ts := httptest.NewServer(f.mux)
	defer ts.Close()

	primary := make(chan string, 1)
	go func() {
		resp, err := http.Post(ts.URL+"/api/generate-card-v2/stream", "application/json", strings.NewReader(validBody))
		if err != nil {
			primary <- ""
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		primary <- string(body)
	}()

	var session *progressSession
	require.Eventually(t, func() bool {
		var ok bool
		session, ok = f.srv.progress.getSession("id-1")
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	follower := make(chan string, 1)
	go func() {
		resp, err := http.Get(ts.URL + "/api/generate-card-v2/progress/id-1")
		if err != nil {
			follower <- ""
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		follower <- string(body)
	}()
	require.Eventually(t, func() bool { return session.subscribers() == 2 }, 5*time.Second, 10*time.Millisecond)

	close(release)

	wait := func(ch chan string) string {
		t.Helper()
		select {
		case body := <-ch:
			return body
		case <-time.After(5 * time.Second):
			t.Fatal("stream did not finish")
			return ""
		}
	}

	primaryEvents := readEvents(t, wait(primary))
	require.NotEmpty(t, primaryEvents)
	assert.Equal(t, "completed", primaryEvents[len(primaryEvents)-1]["type"])
	assert.Equal(t, []string{"prompt", "batch", "done"}, progressStages(primaryEvents))

	// the follower may join before or after the prompt stage.
	followed := progressStages(readEvents(t, wait(follower)))
	require.GreaterOrEqual(t, len(followed), 2)
	assert.Equal(t, []string{"batch", "done"}, followed[len(followed)-2:])

	_, ok := f.srv.progress.getSession("id-1")
	assert.False(t, ok)
}

func TestGenerateProgressUnknownSession(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(http.MethodGet, "/api/generate-card-v2/progress/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVisual(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(http.MethodGet, "/api/visual?code=clock:3:30", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "<svg"))

	rec = f.do(http.MethodGet, "/api/visual?code=%5Bvisual:fraction:1:4:1%5D", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/visual?code=hexapod:1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/visual", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVisualParse(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(http.MethodPost, "/api/visual/parse", `{"text":"  Combien? [visual:grid:10:10:50] [visual:unknown:1] [visual:shape]  "}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp parseResponse
	decodeEnvelope(t, rec, &resp)
	assert.Equal(t, "Combien?", resp.Text)
	require.Len(t, resp.Visuals, 2)
	assert.Equal(t, "grid", string(resp.Visuals[0].Type))
	assert.Equal(t, []string{"10", "10", "50"}, resp.Visuals[0].Params)
	assert.Equal(t, "[visual:grid:10:10:50]", resp.Visuals[0].Token)
	assert.Equal(t, []string{}, resp.Visuals[1].Params)
	assert.Contains(t, resp.Visuals[1].SVG, "<svg")
}

func TestDecks(t *testing.T) {
	f := newFixture(t, nil, nil)
	saveDeck(t, f, "a")

	rec := f.do(http.MethodGet, "/api/decks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []deckSummary
	decodeEnvelope(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, 2, list[0].Count)

	rec = f.do(http.MethodGet, "/api/decks?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/decks/a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var deck model.Deck
	decodeEnvelope(t, rec, &deck)
	assert.Equal(t, "3/8", deck.Cards[0].Answer)

	rec = f.do(http.MethodGet, "/api/decks/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlacementsAreClamped(t *testing.T) {
	f := newFixture(t, nil, nil)
	saveDeck(t, f, "p")

	body := `{"container":{"width":400,"height":300},"placements":[
		{"card":1,"illustration":"🦊","transform":{"x":900,"y":-20,"scale":7,"rotation":-45}}
	]}`
	rec := f.do(http.MethodPut, "/api/decks/p/placements", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	saved, err := f.store.GetDeck("p")
	require.NoError(t, err)
	require.Len(t, saved.Placements, 1)
	assert.Equal(t, model.Transform{X: 300, Y: 0, Scale: 3, Rotation: 315}, saved.Placements[0].Transform)

	rec = f.do(http.MethodPut, "/api/decks/p/placements", `{"placements":[{"card":0,"illustration":"x"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPut, "/api/decks/absent/placements", `{"placements":[]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t, nil, nil)
	saveDeck(t, f, "e")

	rec := f.do(http.MethodGet, "/api/decks/e/export.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "cartes-fractions-")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "1,Pizza,Combien?,3/8,,facile,1", lines[1])
}

func TestExportJSON(t *testing.T) {
	f := newFixture(t, nil, nil)
	saveDeck(t, f, "j")

	rec := f.do(http.MethodGet, "/api/decks/j/export.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".json")

	var deck model.Deck
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deck))
	assert.Equal(t, "j", deck.ID)
}

func TestPrint(t *testing.T) {
	f := newFixture(t, nil, nil)
	saveDeck(t, f, "d")

	rec := f.do(http.MethodGet, "/print/d?per-page=2&layout=ardoise&scheme=tableau-vert", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, `data-scheme="tableau-vert"`)
	assert.Contains(t, body, `class="grid per-2"`)
	assert.Contains(t, body, "A4 landscape")
	assert.Equal(t, 2, strings.Count(body, "<svg"))

	rec = f.do(http.MethodGet, "/print/d?kind=key&layout=inconnu&scheme=inconnu", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-layout="classique"`)
	assert.Contains(t, rec.Body.String(), `data-scheme="default"`)
	assert.Contains(t, rec.Body.String(), "3 h 30")

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/print/d?kind=poster", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/print/d?theme=bleu", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/print/d?per-page=deux", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/print/absent", "").Code)
}

func TestWebsocketReceivesDeckEvents(t *testing.T) {
	f := newFixture(t, stubModel{}, nil)
	ts := httptest.NewServer(f.mux)
	defer ts.Close()
	defer f.srv.Shutdown()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello map[string]any
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "hello", hello["type"])

	resp, err := http.Post(ts.URL+"/api/generate-card-v2", "application/json", strings.NewReader(validBody))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event struct {
		Type string      `json:"type"`
		Deck deckSummary `json:"deck"`
	}
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "deck_created", event.Type)
	assert.Equal(t, "id-1", event.Deck.ID)
	assert.Equal(t, 2, event.Deck.Count)
}
