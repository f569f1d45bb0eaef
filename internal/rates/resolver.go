// Package rates resolves panelist honorarium rates for a defense.
package rates

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"gradschool/internal/models"
)

// ErrUnknownDefenseType is returned for defense types outside Proposal, Pre-final and Final
var ErrUnknownDefenseType = errors.New("unknown defense type")

// RateNotFoundError means no rate is administered for the resolved level and defense type.
// Role is set when rates exist for the pair but not for one committee role.
type RateNotFoundError struct {
	Level       models.ProgramLevel
	DefenseType models.DefenseType
	Role        models.CommitteeRole
}

func (e *RateNotFoundError) Error() string {
	if e.Role != "" {
		return fmt.Sprintf("no payment rate for %s / %s / %s", e.Level, e.DefenseType, e.Role)
	}
	return fmt.Sprintf("no payment rates for %s / %s", e.Level, e.DefenseType)
}

// RateSource reads the payment rate table
type RateSource interface {
	RatesFor(ctx context.Context, level models.ProgramLevel, defenseType models.DefenseType) ([]models.PaymentRate, error)
}

// LevelSource returns an explicitly stored program level, if one exists
type LevelSource interface {
	ProgramLevel(ctx context.Context, program string) (models.ProgramLevel, bool, error)
}

var canonicalDefenseTypes = map[string]models.DefenseType{
	"proposal": models.DefenseProposal,
	"prefinal": models.DefensePreFinal,
	"final":    models.DefenseFinal,
}

// NormalizeDefenseType maps case and hyphen variants ("PRE-FINAL", "pre final",
// "Prefinal") onto the canonical defense type
func NormalizeDefenseType(s string) (models.DefenseType, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}

	if dt, ok := canonicalDefenseTypes[b.String()]; ok {
		return dt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDefenseType, s)
}

var doctorateAbbreviations = map[string]bool{
	"phd": true,
	"dba": true,
	"edd": true,
	"dsc": true,
	"dpm": true,
	"dpa": true,
}

// ClassifyProgram infers the program level from a free-text program name.
// "doctor" (covering doctorate and doctoral) matches as a substring; the degree
// abbreviations only match as whole words so that e.g. "Sandpaper Arts" stays Masteral.
func ClassifyProgram(name string) models.ProgramLevel {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "doctor") {
		return models.LevelDoctorate
	}

	tokens := strings.FieldsFunc(strings.ReplaceAll(lower, ".", ""), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, token := range tokens {
		if doctorateAbbreviations[token] {
			return models.LevelDoctorate
		}
	}

	return models.LevelMasteral
}

// Resolution is the applicable rate set for one defense
type Resolution struct {
	Program     string
	Level       models.ProgramLevel
	DefenseType models.DefenseType
	Rates       []models.PaymentRate
}

// Total sums all resolved role amounts
func (r *Resolution) Total() models.Centavos {
	var total models.Centavos
	for _, rate := range r.Rates {
		total += rate.Amount
	}
	return total
}

// RateFor returns the rate for exactly the given role
func (r *Resolution) RateFor(role models.CommitteeRole) (models.PaymentRate, bool) {
	for _, rate := range r.Rates {
		if rate.Role == role {
			return rate, true
		}
	}
	return models.PaymentRate{}, false
}

// Resolver determines the program level of a defense and fetches its rates
type Resolver struct {
	source RateSource
	levels LevelSource
}

// NewResolver creates a resolver; levels may be nil, in which case the level is always
// inferred from the program name
func NewResolver(source RateSource, levels LevelSource) *Resolver {
	return &Resolver{source: source, levels: levels}
}

// Level returns the stored program level if known, otherwise the catalog or keyword classification
func (r *Resolver) Level(ctx context.Context, program string) (models.ProgramLevel, error) {
	if r.levels != nil {
		level, ok, err := r.levels.ProgramLevel(ctx, program)
		if err != nil {
			return "", fmt.Errorf("failed to look up program level: %w", err)
		}
		if ok {
			return level, nil
		}
	}
	return ProgramLevelFor(program), nil
}

// Resolve returns the rates applicable to a program and defense type, ordered by
// committee seat. It fails with *RateNotFoundError instead of defaulting to zero.
func (r *Resolver) Resolve(ctx context.Context, program, defenseType string) (*Resolution, error) {
	dt, err := NormalizeDefenseType(defenseType)
	if err != nil {
		return nil, err
	}

	level, err := r.Level(ctx, program)
	if err != nil {
		return nil, err
	}

	rows, err := r.source.RatesFor(ctx, level, dt)
	if err != nil {
		return nil, fmt.Errorf("failed to read payment rates: %w", err)
	}
	if len(rows) == 0 {
		return nil, &RateNotFoundError{Level: level, DefenseType: dt}
	}

	sorted := make([]models.PaymentRate, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Role.Order() < sorted[j].Role.Order()
	})

	return &Resolution{
		Program:     program,
		Level:       level,
		DefenseType: dt,
		Rates:       sorted,
	}, nil
}
