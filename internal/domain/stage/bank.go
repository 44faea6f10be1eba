package stage

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

//go:embed bank/default.yaml
var defaultBank []byte

type bankFile struct {
	Questions []Question `yaml:"questions"`
}

// DefaultBank returns the question bank shipped with the binary.
func DefaultBank() ([]Question, error) {
	return LoadBank(bytes.NewReader(defaultBank))
}

// LoadBank decodes and validates a YAML question bank.
func LoadBank(r io.Reader) ([]Question, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f bankFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyBank
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidBank, err)
	}
	if len(f.Questions) == 0 {
		return nil, ErrEmptyBank
	}
	if err := Validate(f.Questions); err != nil {
		return nil, err
	}
	return f.Questions, nil
}

// Validate checks ids are unique, every question is well formed and weights
// grow with competence inside each category.
func Validate(questions []Question) error {
	seen := make(map[string]struct{}, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			return fmt.Errorf("%w: question %d has no id", ErrInvalidBank, i)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidBank, q.ID)
		}
		seen[q.ID] = struct{}{}

		if q.Subject != SubjectMaths && q.Subject != SubjectNSI {
			return fmt.Errorf("%w: question %q has unknown subject %q", ErrInvalidBank, q.ID, q.Subject)
		}
		if q.Category == "" {
			return fmt.Errorf("%w: question %q has no category", ErrInvalidBank, q.ID)
		}
		if q.Competence.Rank() == 0 {
			return fmt.Errorf("%w: question %q has unknown competence %q", ErrInvalidBank, q.ID, q.Competence)
		}
		if q.Weight < 1 {
			return fmt.Errorf("%w: question %q has weight %d", ErrInvalidBank, q.ID, q.Weight)
		}
		switch q.NSIErrorType {
		case "", NSISyntax, NSILogic, NSIConceptual:
		default:
			return fmt.Errorf("%w: question %q has unknown nsi error type %q", ErrInvalidBank, q.ID, q.NSIErrorType)
		}
	}
	return validateWeightOrder(questions)
}

// validateWeightOrder requires that, inside one category, every question of a
// lower competence weighs strictly less than every question of a higher one.
func validateWeightOrder(questions []Question) error {
	type bounds struct {
		lo, hi Question
		set    bool
	}
	type group struct {
		subject  Subject
		category string
	}
	byRank := map[group]map[int]*bounds{}
	for _, q := range questions {
		g := group{q.Subject, q.Category}
		if byRank[g] == nil {
			byRank[g] = map[int]*bounds{}
		}
		b := byRank[g][q.Competence.Rank()]
		if b == nil {
			b = &bounds{}
			byRank[g][q.Competence.Rank()] = b
		}
		if !b.set || q.Weight < b.lo.Weight {
			b.lo = q
		}
		if !b.set || q.Weight > b.hi.Weight {
			b.hi = q
		}
		b.set = true
	}

	for g, ranks := range byRank {
		for lower, lb := range ranks {
			for higher, hb := range ranks {
				if lower >= higher || lb.hi.Weight < hb.lo.Weight {
					continue
				}
				return fmt.Errorf("%w: in %s/%s question %q (%s, weight %d) does not weigh less than %q (%s, weight %d)",
					ErrInvalidBank, g.subject, g.category,
					lb.hi.ID, lb.hi.Competence, lb.hi.Weight, hb.lo.ID, hb.lo.Competence, hb.lo.Weight)
			}
		}
	}
	return nil
}
