package model

import (
	"time"
)

// CardData is one generated task card.
type CardData struct {
	Number     int    `json:"number"`
	Title      string `json:"title"`
	Question   string `json:"question"`
	Answer     string `json:"answer,omitempty"`
	Context    string `json:"context,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Theme      string `json:"theme,omitempty"`
	Icon       string `json:"icon,omitempty"`
}

// GenerateRequest selects the curriculum scope of a card set.
type GenerateRequest struct {
	Cycle   string `json:"cycle"`
	Grade   string `json:"grade"`
	Subject string `json:"subject"`
	Notion  string `json:"notion"`
	Count   int    `json:"count,omitempty"`
}

// Metadata describes how a card set was produced.
type Metadata struct {
	Cycle       string    `json:"cycle"`
	Grade       string    `json:"grade"`
	Subject     string    `json:"subject"`
	Notion      string    `json:"notion"`
	Count       int       `json:"count"`
	Model       string    `json:"model"`
	Visuals     int       `json:"visuals"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// CardSet is the payload of a successful generation.
type CardSet struct {
	Cards    []CardData `json:"cards"`
	Metadata Metadata   `json:"metadata"`
}

// Transform is the on-screen placement of a draggable element.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
}

// Placement pins an illustration to a card.
type Placement struct {
	Card         int       `json:"card"`
	Illustration string    `json:"illustration"`
	Transform    Transform `json:"transform"`
}

// Deck is a persisted card set.
type Deck struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Request    GenerateRequest `json:"request"`
	Cards      []CardData      `json:"cards"`
	Metadata   Metadata        `json:"metadata"`
	Placements []Placement     `json:"placements,omitempty"`
}

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NotionList is the data of a successful notion lookup.
type NotionList struct {
	Subject string   `json:"subject"`
	Cycle   string   `json:"cycle"`
	Notions []string `json:"notions"`
}
