// Package generator produces task cards for a curriculum notion by prompting
// a language model in concurrent batches.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cartes/curriculum"
	"cartes/model"
	"cartes/visual"
)

// MaxCards bounds the size of one card set.
const MaxCards = 24

var (
	// ErrInvalidRequest marks requests rejected before any model call.
	ErrInvalidRequest = curriculum.ErrInvalidRequest
	// ErrEmptyResponse is returned when the model answers without cards.
	ErrEmptyResponse = errors.New("model returned no cards")
)

// Progress receives stage updates while a set is generated. It may be
// called from several goroutines at once.
type Progress func(stage, message string)

// Options tunes a Service.
type Options struct {
	CardCount int
	BatchSize int
	Timeout   time.Duration
}

// Service generates card sets.
type Service struct {
	model  Model
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a Service around m.
func NewService(m Model, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CardCount <= 0 {
		opts.CardCount = 12
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 6
	}
	return &Service{
		model:  m,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// ModelName reports the underlying model.
func (s *Service) ModelName() string {
	return s.model.Name()
}

type batch struct {
	first int
	count int
}

func plan(total, size int) []batch {
	var out []batch
	for first := 1; first <= total; first += size {
		n := min(size, total-first+1)
		out = append(out, batch{first: first, count: n})
	}
	return out
}

// Generate validates req, prompts the model for every batch concurrently and
// assembles the cards in batch order, numbered from 1. Unknown visual tokens
// are stripped from the questions. The first failing batch cancels the rest.
func (s *Service) Generate(ctx context.Context, req model.GenerateRequest, progress Progress) (*model.CardSet, error) {
	if progress == nil {
		progress = func(string, string) {}
	}

	req = curriculum.Normalize(req)
	if err := curriculum.Validate(req); err != nil {
		return nil, err
	}
	count := req.Count
	if count <= 0 {
		count = s.opts.CardCount
	}
	count = min(count, MaxCards)

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	batches := plan(count, s.opts.BatchSize)
	results := make([][]model.CardData, len(batches))
	progress("prompt", fmt.Sprintf("%d cartes en %d lot(s)", count, len(batches)))

	g, gctx := errgroup.WithContext(ctx)
	for i, b := range batches {
		g.Go(func() error {
			started := time.Now()
			raw, err := s.model.Generate(gctx, BuildPrompt(req, b.first, b.count))
			if err != nil {
				return fmt.Errorf("batch %d: %w", i+1, err)
			}
			cards, err := ParseCards(raw)
			if err != nil {
				return fmt.Errorf("batch %d: %w", i+1, err)
			}
			if len(cards) > b.count {
				cards = cards[:b.count]
			}
			results[i] = cards

			s.logger.Debug("batch generated",
				zap.Int("batch", i+1),
				zap.Int("cards", len(cards)),
				zap.Duration("took", time.Since(started)))
			progress("batch", fmt.Sprintf("lot %d/%d : %d cartes", i+1, len(batches), len(cards)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := &model.CardSet{Cards: make([]model.CardData, 0, count)}
	visuals := 0
	for _, cards := range results {
		for _, c := range cards {
			c.Number = len(set.Cards) + 1
			c.Title = strings.TrimSpace(c.Title)
			var kept int
			c.Question, kept = visual.Sanitize(c.Question)
			visuals += kept
			set.Cards = append(set.Cards, c)
		}
	}
	if len(set.Cards) == 0 {
		return nil, ErrEmptyResponse
	}

	set.Metadata = model.Metadata{
		Cycle:       req.Cycle,
		Grade:       req.Grade,
		Subject:     req.Subject,
		Notion:      req.Notion,
		Count:       len(set.Cards),
		Model:       s.model.Name(),
		Visuals:     visuals,
		GeneratedAt: s.now().UTC(),
	}
	progress("done", fmt.Sprintf("%d cartes générées", len(set.Cards)))
	return set, nil
}

// ParseCards decodes a model answer. Both {"cards":[...]} and a bare array
// are accepted, optionally wrapped in a Markdown code fence.
func ParseCards(raw string) ([]model.CardData, error) {
	raw = stripFence(raw)
	if raw == "" {
		return nil, ErrEmptyResponse
	}

	var cards []model.CardData
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &cards); err != nil {
			return nil, fmt.Errorf("parse cards: %w", err)
		}
	} else {
		var wrapped struct {
			Cards []model.CardData `json:"cards"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
			return nil, fmt.Errorf("parse cards: %w", err)
		}
		cards = wrapped.Cards
	}

	out := cards[:0]
	for _, c := range cards {
		if strings.TrimSpace(c.Question) == "" {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, ErrEmptyResponse
	}
	return out, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl != -1 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
