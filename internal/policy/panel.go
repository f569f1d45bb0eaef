// Package policy evaluates configurable committee composition rules.
package policy

import (
	"fmt"

	"github.com/Knetic/govaluate"

	"gradschool/internal/models"
)

// Default panel rules: Masteral committees need four members including the chair,
// Doctorate committees five including the chair.
const (
	DefaultMasteralRule  = "has_chair && committee_size >= 4"
	DefaultDoctorateRule = "has_chair && committee_size >= 5"
)

// Violation is returned when a committee does not satisfy the rule of its level
type Violation struct {
	Level         models.ProgramLevel
	Rule          string
	CommitteeSize int
	PanelMembers  int
	HasChair      bool
}

func (v *Violation) Error() string {
	return fmt.Sprintf("committee does not satisfy %s panel rule %q (chair=%t, panel members=%d, committee size=%d)",
		v.Level, v.Rule, v.HasChair, v.PanelMembers, v.CommitteeSize)
}

// PanelPolicy checks the committee composition required before scheduling
type PanelPolicy struct {
	enforce bool
	rules   map[models.ProgramLevel]*govaluate.EvaluableExpression
	sources map[models.ProgramLevel]string
}

// NewPanelPolicy compiles one rule per program level. Rules may reference
// committee_size (chair plus panel members), panel_members and has_chair.
func NewPanelPolicy(enforce bool, rules map[models.ProgramLevel]string) (*PanelPolicy, error) {
	p := &PanelPolicy{
		enforce: enforce,
		rules:   make(map[models.ProgramLevel]*govaluate.EvaluableExpression),
		sources: make(map[models.ProgramLevel]string),
	}

	for level, src := range rules {
		if src == "" {
			continue
		}
		expr, err := govaluate.NewEvaluableExpression(src)
		if err != nil {
			return nil, fmt.Errorf("invalid %s panel rule %q: %w", level, src, err)
		}
		for _, v := range expr.Vars() {
			switch v {
			case "committee_size", "panel_members", "has_chair":
			default:
				return nil, fmt.Errorf("invalid %s panel rule %q: unknown variable %q", level, src, v)
			}
		}
		p.rules[level] = expr
		p.sources[level] = src
	}

	return p, nil
}

// DefaultPanelPolicy returns the enforced default rules
func DefaultPanelPolicy() *PanelPolicy {
	p, err := NewPanelPolicy(true, map[models.ProgramLevel]string{
		models.LevelMasteral:  DefaultMasteralRule,
		models.LevelDoctorate: DefaultDoctorateRule,
	})
	if err != nil {
		panic(err)
	}
	return p
}

// Check evaluates the rule for the level against a committee. Levels without a rule
// and disabled policies always pass.
func (p *PanelPolicy) Check(level models.ProgramLevel, panelMembers int, hasChair bool) error {
	if p == nil || !p.enforce {
		return nil
	}

	expr, ok := p.rules[level]
	if !ok {
		return nil
	}

	size := panelMembers
	if hasChair {
		size++
	}

	result, err := expr.Evaluate(map[string]interface{}{
		"committee_size": float64(size),
		"panel_members":  float64(panelMembers),
		"has_chair":      hasChair,
	})
	if err != nil {
		return fmt.Errorf("failed to evaluate %s panel rule: %w", level, err)
	}

	passed, ok := result.(bool)
	if !ok {
		return fmt.Errorf("%s panel rule %q did not evaluate to a boolean", level, p.sources[level])
	}
	if !passed {
		return &Violation{
			Level:         level,
			Rule:          p.sources[level],
			CommitteeSize: size,
			PanelMembers:  panelMembers,
			HasChair:      hasChair,
		}
	}

	return nil
}
