package appreciation

import (
	"fmt"
	"strings"

	"github.com/garyellow/classroom-planner/internal/notation"
	"github.com/garyellow/classroom-planner/internal/sliceutil"
	"github.com/garyellow/classroom-planner/internal/validation"
)

// Validate checks req against its field rules.
func Validate(req Request) error {
	return validation.Struct("", req)
}

// withDefaults fills the optional fields.
func withDefaults(req Request) Request {
	if req.Tone == "" {
		req.Tone = ToneNeutral
	}
	if req.MaxWords == 0 {
		req.MaxWords = DefaultMaxWords
	}
	if req.Language == "" {
		req.Language = "fr"
	}
	return req
}

var toneInstructions = map[string]map[Tone]string{
	"fr": {
		ToneNeutral:     "factuel et mesuré",
		ToneFormal:      "soutenu et institutionnel",
		ToneEncouraging: "bienveillant et encourageant",
	},
	"en": {
		ToneNeutral:     "factual and measured",
		ToneFormal:      "formal and institutional",
		ToneEncouraging: "warm and encouraging",
	},
}

// BuildPrompt renders the instruction sent to every provider. The output
// depends only on req.
func BuildPrompt(req Request) string {
	req = withDefaults(req)
	twenty, _ := notation.Lookup(notation.SystemTwenty)

	var b strings.Builder
	if req.Language == "en" {
		b.WriteString("You are a teacher writing the comment of a school report card.\n")
		fmt.Fprintf(&b, "Student: %s\n", req.StudentName)
		fmt.Fprintf(&b, "Subject: %s\n", req.Subject)
		if req.PeriodName != "" {
			fmt.Fprintf(&b, "Period: %s\n", req.PeriodName)
		}
		if req.Average != nil {
			fmt.Fprintf(&b, "Average: %s\n", notation.Format(twenty, notation.Grade{Value: *req.Average}, "en"))
		}
		writeList(&b, "Strengths", req.Strengths)
		writeList(&b, "Areas to improve", req.Weaknesses)
		fmt.Fprintf(&b, "Tone: %s\n", toneInstructions["en"][req.Tone])
		fmt.Fprintf(&b, "Write a comment of at most %d words, in English, addressed to the student's family. "+
			"No greeting, no quotes. Reply with the comment only.", req.MaxWords)
		return b.String()
	}

	b.WriteString("Tu es un enseignant qui rédige l'appréciation d'un bulletin scolaire.\n")
	fmt.Fprintf(&b, "Élève : %s\n", req.StudentName)
	fmt.Fprintf(&b, "Matière : %s\n", req.Subject)
	if req.PeriodName != "" {
		fmt.Fprintf(&b, "Période : %s\n", req.PeriodName)
	}
	if req.Average != nil {
		fmt.Fprintf(&b, "Moyenne : %s\n", notation.Format(twenty, notation.Grade{Value: *req.Average}, "fr"))
	}
	writeList(&b, "Points forts", req.Strengths)
	writeList(&b, "Points à améliorer", req.Weaknesses)
	fmt.Fprintf(&b, "Ton : %s\n", toneInstructions["fr"][req.Tone])
	fmt.Fprintf(&b, "Rédige une appréciation de %d mots maximum, en français, à la troisième personne. "+
		"Pas de formule d'introduction ni de guillemets. Réponds uniquement par le texte de l'appréciation.", req.MaxWords)
	return b.String()
}

// writeList joins items, skipping blanks and case-insensitive repeats.
func writeList(b *strings.Builder, label string, items []string) {
	items = sliceutil.UniqueBy(items, func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s : %s\n", label, strings.Join(items, ", "))
}

// cleanOutput trims whitespace and wrapping quotes the models sometimes add.
func cleanOutput(s string) string {
	s = strings.TrimSpace(s)
	for _, pair := range [][2]string{{`"`, `"`}, {"«", "»"}, {"“", "”"}} {
		if strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) && len(s) > len(pair[0])+len(pair[1]) {
			s = strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
		}
	}
	return s
}
