// Package curriculum holds the Quebec primary (PFEQ) reference data the card
// generator is scoped by: cycles, grades, subjects and fallback notions.
package curriculum

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"cartes/model"
)

// ErrInvalidRequest wraps every validation failure.
var ErrInvalidRequest = errors.New("invalid request")

type Cycle struct {
	Key    string   `json:"key"`
	Label  string   `json:"label"`
	Grades []string `json:"grades"`
}

type Subject struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

var cycles = []Cycle{
	{Key: "cycle1", Label: "1er cycle", Grades: []string{"1", "2"}},
	{Key: "cycle2", Label: "2e cycle", Grades: []string{"3", "4"}},
	{Key: "cycle3", Label: "3e cycle", Grades: []string{"5", "6"}},
}

var subjects = []Subject{
	{Key: "francais", Label: "Français"},
	{Key: "mathematiques", Label: "Mathématiques"},
	{Key: "sciences", Label: "Science et technologie"},
	{Key: "univers-social", Label: "Univers social"},
	{Key: "anglais", Label: "Anglais, langue seconde"},
}

// defaultNotions is what the UI offers when the knowledge base is unavailable.
var defaultNotions = map[string][]string{
	"francais": {
		"accord-du-verbe", "accords-dans-le-groupe-du-nom", "classes-de-mots",
		"comprehension-de-lecture", "homophones", "orthographe-lexicale", "ponctuation",
	},
	"mathematiques": {
		"angles", "fractions", "geometrie", "mesure-du-temps", "nombres-naturels",
		"operations", "probabilites", "statistique",
	},
	"sciences": {
		"energie", "materiaux", "systemes-du-vivant", "terre-et-espace",
	},
	"univers-social": {
		"iroquoiens-1500", "nouvelle-france-1645", "organisation-territoire", "societe-quebecoise-1905",
	},
	"anglais": {
		"classroom-vocabulary", "daily-routines", "family", "feelings",
	},
}

// Cycles returns the primary cycles in order.
func Cycles() []Cycle { return slices.Clone(cycles) }

// Subjects returns the supported subjects in display order.
func Subjects() []Subject { return slices.Clone(subjects) }

// FindCycle looks a cycle up by key.
func FindCycle(key string) (Cycle, bool) {
	for _, c := range cycles {
		if c.Key == key {
			return c, true
		}
	}
	return Cycle{}, false
}

// HasSubject reports whether key names a supported subject.
func HasSubject(key string) bool {
	return slices.ContainsFunc(subjects, func(s Subject) bool { return s.Key == key })
}

// DefaultNotions returns the fallback notion list for a subject, sorted.
func DefaultNotions(subject string) []string {
	out := slices.Clone(defaultNotions[subject])
	slices.Sort(out)
	return out
}

// Normalize trims the request fields and lower-cases the keys.
func Normalize(req model.GenerateRequest) model.GenerateRequest {
	req.Cycle = strings.ToLower(strings.TrimSpace(req.Cycle))
	req.Grade = strings.TrimSpace(req.Grade)
	req.Subject = strings.ToLower(strings.TrimSpace(req.Subject))
	req.Notion = strings.TrimSpace(req.Notion)
	return req
}

// Validate checks that the cycle, grade, subject and notion fit together.
func Validate(req model.GenerateRequest) error {
	if req.Cycle == "" || req.Grade == "" || req.Subject == "" || req.Notion == "" {
		return fmt.Errorf("%w: cycle, grade, subject and notion are required", ErrInvalidRequest)
	}
	c, ok := FindCycle(req.Cycle)
	if !ok {
		return fmt.Errorf("%w: unknown cycle %q", ErrInvalidRequest, req.Cycle)
	}
	if !slices.Contains(c.Grades, req.Grade) {
		return fmt.Errorf("%w: grade %s is not part of %s", ErrInvalidRequest, req.Grade, c.Key)
	}
	if !HasSubject(req.Subject) {
		return fmt.Errorf("%w: unknown subject %q", ErrInvalidRequest, req.Subject)
	}
	return nil
}
