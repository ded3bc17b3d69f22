package generator

import (
	"fmt"
	"strings"

	"cartes/curriculum"
	"cartes/model"
)

const visualReference = `Tu peux insérer des schémas dans la question avec des jetons [visual:type:paramètres] :
- [visual:angle:degrés:taille] ex. [visual:angle:45:100]
- [visual:triangle:A:B:C] angles en degrés, "?" pour l'angle inconnu, ex. [visual:triangle:60:?:50]
- [visual:triangle-sides:a:b:c:type] côtés affichés tels quels, type "right" pour un triangle rectangle
- [visual:fraction:numérateur:dénominateur:parts-colorées] dénominateur de 1 à 12, ex. [visual:fraction:3:8:3]
- [visual:numberline:min:max:repères] repères séparés par des virgules, ex. [visual:numberline:0:10:3,7]
- [visual:grid:rangées:colonnes:cases-colorées] au plus 5 x 5
- [visual:clock:heure:minute] ex. [visual:clock:3:30]
- [visual:shape:forme] square, rectangle, circle, pentagon ou hexagon
- [visual:graph:v1,v2,...] au plus 5 barres
N'utilise aucun autre type de jeton.`

// BuildPrompt writes the French instructions for one batch of cards numbered
// first to first+count-1.
func BuildPrompt(req model.GenerateRequest, first, count int) string {
	cycle := req.Cycle
	if c, ok := curriculum.FindCycle(req.Cycle); ok {
		cycle = c.Label
	}
	subject := req.Subject
	for _, s := range curriculum.Subjects() {
		if s.Key == req.Subject {
			subject = s.Label
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tu es un enseignant du primaire au Québec. Rédige %d cartes à tâches ", count)
	fmt.Fprintf(&b, "(numéros %d à %d) conformes au Programme de formation de l'école québécoise.\n\n", first, first+count-1)
	fmt.Fprintf(&b, "Cycle : %s\nAnnée : %s\nMatière : %s\nNotion : %s\n\n", cycle, req.Grade, subject, req.Notion)
	b.WriteString("Chaque carte pose une seule question courte, adaptée à l'âge des élèves, avec une réponse précise. ")
	b.WriteString("Varie les contextes (vie quotidienne, nature, sports, Québec).\n\n")
	if req.Subject == "mathematiques" || req.Subject == "sciences" {
		b.WriteString(visualReference)
		b.WriteString("\nAjoute un schéma quand il aide à comprendre la question.\n\n")
	}
	b.WriteString(`Réponds uniquement en JSON avec la forme {"cards":[{"number":1,"title":"...","question":"...",`)
	b.WriteString(`"answer":"...","context":"...","difficulty":"facile|moyen|difficile","theme":"...","icon":"emoji"}]}.`)
	return b.String()
}
