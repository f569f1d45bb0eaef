package policy

import (
	"errors"
	"testing"

	"gradschool/internal/models"
)

func TestDefaultPanelPolicy(t *testing.T) {
	p := DefaultPanelPolicy()

	tests := []struct {
		name    string
		level   models.ProgramLevel
		members int
		chair   bool
		wantErr bool
	}{
		{"masteral chair plus three", models.LevelMasteral, 3, true, false},
		{"masteral chair plus two", models.LevelMasteral, 2, true, true},
		{"masteral four members without chair", models.LevelMasteral, 4, false, true},
		{"doctorate chair plus four", models.LevelDoctorate, 4, true, false},
		{"doctorate chair plus three", models.LevelDoctorate, 3, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Check(tt.level, tt.members, tt.chair)
			if tt.wantErr {
				var v *Violation
				if !errors.As(err, &v) {
					t.Fatalf("Expected Violation, got %v", err)
				}
				if v.Level != tt.level {
					t.Errorf("Expected level %s, got %s", tt.level, v.Level)
				}
			} else if err != nil {
				t.Fatalf("Expected pass, got %v", err)
			}
		})
	}
}

func TestDisabledPolicyAlwaysPasses(t *testing.T) {
	p, err := NewPanelPolicy(false, map[models.ProgramLevel]string{
		models.LevelMasteral: DefaultMasteralRule,
	})
	if err != nil {
		t.Fatalf("NewPanelPolicy failed: %v", err)
	}
	if err := p.Check(models.LevelMasteral, 0, false); err != nil {
		t.Errorf("Disabled policy returned %v", err)
	}

	var nilPolicy *PanelPolicy
	if err := nilPolicy.Check(models.LevelDoctorate, 0, false); err != nil {
		t.Errorf("Nil policy returned %v", err)
	}
}

func TestCustomRule(t *testing.T) {
	p, err := NewPanelPolicy(true, map[models.ProgramLevel]string{
		models.LevelDoctorate: "panel_members >= 2",
	})
	if err != nil {
		t.Fatalf("NewPanelPolicy failed: %v", err)
	}
	if err := p.Check(models.LevelDoctorate, 2, false); err != nil {
		t.Errorf("Expected pass, got %v", err)
	}
	if err := p.Check(models.LevelMasteral, 0, false); err != nil {
		t.Errorf("Level without rule should pass, got %v", err)
	}
}

func TestInvalidRulesAreRejected(t *testing.T) {
	bad := []string{
		"committee_size >=",
		"quorum > 3",
	}
	for _, rule := range bad {
		if _, err := NewPanelPolicy(true, map[models.ProgramLevel]string{models.LevelMasteral: rule}); err == nil {
			t.Errorf("Expected rule %q to be rejected", rule)
		}
	}
}
