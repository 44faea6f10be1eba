package stage

import "fmt"

// Tag is the qualitative diagnosis of a category.
type Tag string

// Category tags.
const (
	TagMastered      Tag = "Maîtrisé"
	TagProgressing   Tag = "En progression"
	TagFragileBasics Tag = "Bases Fragiles"
	TagConfusions    Tag = "Confusions"
	TagNotCovered    Tag = "Notion non abordée"
)

// Tag and classification thresholds, in percent.
const (
	highNSPRate           = 40
	masteredPrecision     = 80
	masteredConfidence    = 60
	confusedPrecision     = 50
	confusedMinConfidence = 30
	strengthPrecision     = 70
	strengthConfidence    = 50
	weaknessPrecision     = 50
)

// FragileFlag reports a category where basics fail while expert items pass.
type FragileFlag struct {
	Category     string `json:"category"`
	BasicsFailed int    `json:"basicsFailed"`
	ExpertPassed int    `json:"expertPassed"`
	Message      string `json:"message"`
}

// CategoryTag diagnoses a category. Checks run in a fixed order: fragile
// basics, then NSP rate, then mastery, then confusion.
func CategoryTag(precision, confidence, nspRate float64, hasBasesFragiles bool) Tag {
	switch {
	case hasBasesFragiles:
		return TagFragileBasics
	case nspRate > highNSPRate:
		return TagNotCovered
	case precision >= masteredPrecision && confidence >= masteredConfidence:
		return TagMastered
	case precision < confusedPrecision && confidence > confusedMinConfidence:
		return TagConfusions
	default:
		return TagProgressing
	}
}

// DetectBasesFragiles flags category when at least one basic question was
// answered incorrectly while at least one expert question was answered
// correctly. NSP on a basic question is not a failure.
func DetectBasesFragiles(answers []Answer, questions []Question, category string) *FragileFlag {
	byID := indexAnswers(answers)

	var basics, experts, basicsFailed, expertPassed int
	for _, q := range questions {
		if q.Category != category {
			continue
		}
		switch q.Competence {
		case Restituer:
			basics++
			if byID[q.ID] == StatusIncorrect {
				basicsFailed++
			}
		case Raisonner:
			experts++
			if byID[q.ID] == StatusCorrect {
				expertPassed++
			}
		}
	}

	if basics == 0 || experts == 0 || basicsFailed == 0 || expertPassed == 0 {
		return nil
	}
	return &FragileFlag{
		Category:     category,
		BasicsFailed: basicsFailed,
		ExpertPassed: expertPassed,
		Message:      fmt.Sprintf("%s : questions expertes réussies mais bases en échec, automatismes à consolider", category),
	}
}

func isStrength(tag Tag, precision, confidence float64) bool {
	if tag == TagMastered {
		return true
	}
	return tag != TagFragileBasics && precision >= strengthPrecision && confidence >= strengthConfidence
}

func isWeakness(tag Tag, precision float64) bool {
	return tag == TagFragileBasics || tag == TagConfusions || precision < weaknessPrecision
}
