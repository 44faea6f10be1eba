package stage

import (
	"fmt"
	"strings"
)

// DiagnosticText summarizes a result for coaches.
func DiagnosticText(globalScore, confidenceIndex float64, strengths, weaknesses []string, fragile []FragileFlag) string {
	var parts []string

	switch {
	case globalScore >= 75:
		parts = append(parts, fmt.Sprintf("Score global %.0f/100 : niveau solide.", globalScore))
	case globalScore >= 50:
		parts = append(parts, fmt.Sprintf("Score global %.0f/100 : niveau intermédiaire, axes de progression identifiés.", globalScore))
	default:
		parts = append(parts, fmt.Sprintf("Score global %.0f/100 : lacunes importantes à combler.", globalScore))
	}

	if confidenceIndex < 50 {
		parts = append(parts, fmt.Sprintf("Indice de confiance faible (%.0f%%) : beaucoup de questions laissées sans réponse.", confidenceIndex))
	}
	if len(strengths) > 0 {
		parts = append(parts, "Points forts : "+strings.Join(strengths, ", ")+".")
	}
	if len(weaknesses) > 0 {
		parts = append(parts, "Points faibles : "+strings.Join(weaknesses, ", ")+".")
	}
	if len(fragile) > 0 {
		msgs := make([]string, len(fragile))
		for i, f := range fragile {
			msgs[i] = f.Message
		}
		parts = append(parts, "Attention : "+strings.Join(msgs, " | "))
	}
	return strings.Join(parts, " ")
}

// LucidityText describes how well the student knows what they don't know.
func LucidityText(confidenceIndex, precisionIndex float64) string {
	switch {
	case confidenceIndex >= 80 && precisionIndex >= 70:
		return "Répond avec assurance et justesse : profil solide."
	case confidenceIndex >= 80 && precisionIndex < 50:
		return "Tente presque tout mais se trompe souvent : représentations erronées à corriger."
	case confidenceIndex < 40 && precisionIndex >= 70:
		return "Très lucide sur ses lacunes : ce qui est tenté est réussi."
	case confidenceIndex < 40 && precisionIndex < 50:
		return "Hésite beaucoup et se trompe : accompagnement prioritaire."
	case confidenceIndex < 60:
		return "Repère ses zones d'incertitude : lucidité partielle à travailler en séance."
	default:
		return "Profil intermédiaire : acquis réels, fragilités ciblées à reprendre."
	}
}
