package rates

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gradschool/internal/models"
)

func TestNormalizeDefenseType(t *testing.T) {
	tests := []struct {
		input string
		want  models.DefenseType
	}{
		{"Proposal", models.DefenseProposal},
		{"PROPOSAL", models.DefenseProposal},
		{"Pre-final", models.DefensePreFinal},
		{"Prefinal", models.DefensePreFinal},
		{"PRE-FINAL", models.DefensePreFinal},
		{"pre final", models.DefensePreFinal},
		{" Final ", models.DefenseFinal},
	}

	for _, tt := range tests {
		got, err := NormalizeDefenseType(tt.input)
		if err != nil {
			t.Errorf("NormalizeDefenseType(%q) returned error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeDefenseType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}

	for _, bad := range []string{"", "Oral", "pre-proposal"} {
		if _, err := NormalizeDefenseType(bad); !errors.Is(err, ErrUnknownDefenseType) {
			t.Errorf("NormalizeDefenseType(%q) expected ErrUnknownDefenseType, got %v", bad, err)
		}
	}
}

func TestNormalizeDefenseTypeIsIdempotent(t *testing.T) {
	a, _ := NormalizeDefenseType("Prefinal")
	b, _ := NormalizeDefenseType("Pre-final")
	c, _ := NormalizeDefenseType("PRE-FINAL")
	if a != b || b != c {
		t.Fatalf("Expected identical results, got %q %q %q", a, b, c)
	}

	again, err := NormalizeDefenseType(string(a))
	if err != nil || again != a {
		t.Errorf("Normalizing a canonical value changed it: %q -> %q (%v)", a, again, err)
	}
}

func TestClassifyProgram(t *testing.T) {
	tests := []struct {
		program string
		want    models.ProgramLevel
	}{
		{"Master in IT", models.LevelMasteral},
		{"Master of Arts in Education", models.LevelMasteral},
		{"Doctor of Philosophy in Education", models.LevelDoctorate},
		{"Doctoral Program in Management", models.LevelDoctorate},
		{"PhD in Mathematics", models.LevelDoctorate},
		{"Ph.D. Educational Leadership", models.LevelDoctorate},
		{"DBA", models.LevelDoctorate},
		{"EdD - Curriculum", models.LevelDoctorate},
		{"Sandpaper Arts", models.LevelMasteral},
		{"Master of Public Administration (MPA)", models.LevelMasteral},
	}

	for _, tt := range tests {
		if got := ClassifyProgram(tt.program); got != tt.want {
			t.Errorf("ClassifyProgram(%q) = %q, want %q", tt.program, got, tt.want)
		}
	}
}

func TestResolveReturnsOrderedRates(t *testing.T) {
	source := NewMemorySource(
		models.PaymentRate{ProgramLevel: models.LevelMasteral, DefenseType: models.DefensePreFinal, Role: models.RolePanelMember1, Amount: models.FromPesos(3000)},
		models.PaymentRate{ProgramLevel: models.LevelMasteral, DefenseType: models.DefensePreFinal, Role: models.RoleAdviser, Amount: models.FromPesos(5000)},
		models.PaymentRate{ProgramLevel: models.LevelMasteral, DefenseType: models.DefensePreFinal, Role: models.RolePanelChair, Amount: models.FromPesos(4000)},
	)
	resolver := NewResolver(source, nil)

	res, err := resolver.Resolve(context.Background(), "Master in IT", "pre final")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Level != models.LevelMasteral || res.DefenseType != models.DefensePreFinal {
		t.Errorf("Unexpected classification: %s / %s", res.Level, res.DefenseType)
	}
	if len(res.Rates) != 3 {
		t.Fatalf("Expected 3 rates, got %d", len(res.Rates))
	}
	wantOrder := []models.CommitteeRole{models.RoleAdviser, models.RolePanelChair, models.RolePanelMember1}
	for i, role := range wantOrder {
		if res.Rates[i].Role != role {
			t.Errorf("Rate %d: expected %s, got %s", i, role, res.Rates[i].Role)
		}
	}
	if res.Total() != models.FromPesos(12000) {
		t.Errorf("Expected total ₱12,000.00, got %s", res.Total())
	}
}

func TestResolveMissingRates(t *testing.T) {
	resolver := NewResolver(NewMemorySource(), nil)

	_, err := resolver.Resolve(context.Background(), "Doctor of Education", "Final")
	var notFound *RateNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected RateNotFoundError, got %v", err)
	}
	if notFound.Level != models.LevelDoctorate || notFound.DefenseType != models.DefenseFinal {
		t.Errorf("Unexpected error context: %+v", notFound)
	}
}

type stubLevels map[string]models.ProgramLevel

func (s stubLevels) ProgramLevel(_ context.Context, program string) (models.ProgramLevel, bool, error) {
	level, ok := s[program]
	return level, ok, nil
}

func TestResolvePrefersStoredLevel(t *testing.T) {
	source := NewMemorySource(DefaultRates()...)
	// the name contains "doctor" but the program is stored as masteral
	resolver := NewResolver(source, stubLevels{"Master in Doctoring Arts": models.LevelMasteral})

	res, err := resolver.Resolve(context.Background(), "Master in Doctoring Arts", "Proposal")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Level != models.LevelMasteral {
		t.Errorf("Expected stored Masteral level, got %s", res.Level)
	}
}

func TestDefaultRatesTotality(t *testing.T) {
	source := NewMemorySource(DefaultRates()...)
	resolver := NewResolver(source, nil)

	programs := map[models.ProgramLevel]string{
		models.LevelMasteral:  "Master in IT",
		models.LevelDoctorate: "Doctor of Education",
	}
	for level, program := range programs {
		for _, dt := range []string{"Proposal", "Pre-final", "Final"} {
			res, err := resolver.Resolve(context.Background(), program, dt)
			if err != nil {
				t.Errorf("%s/%s: %v", level, dt, err)
				continue
			}
			if len(res.Rates) != len(models.CommitteeRoles) {
				t.Errorf("%s/%s: expected %d roles, got %d", level, dt, len(models.CommitteeRoles), len(res.Rates))
			}
			var sum models.Centavos
			for _, r := range res.Rates {
				sum += r.Amount
			}
			if sum != res.Total() || sum <= 0 {
				t.Errorf("%s/%s: total mismatch %s vs %s", level, dt, sum, res.Total())
			}
		}
	}

	res, _ := resolver.Resolve(context.Background(), "Master in IT", "Pre-final")
	var adviserChairMember models.Centavos
	for _, role := range []models.CommitteeRole{models.RoleAdviser, models.RolePanelChair, models.RolePanelMember1} {
		rate, ok := res.RateFor(role)
		if !ok {
			t.Fatalf("Missing rate for %s", role)
		}
		adviserChairMember += rate.Amount
	}
	if adviserChairMember != models.FromPesos(12000) {
		t.Errorf("Expected Masteral/Pre-final adviser+chair+member = ₱12,000.00, got %s", adviserChairMember)
	}
}

func TestLoadSeedRejectsUnknownRole(t *testing.T) {
	input := `
- level: Masteral
  defense_type: Final
  amounts:
    Panelist: 3000
`
	if _, err := LoadSeed(strings.NewReader(input)); err == nil {
		t.Fatal("Expected error for non-verbatim role name")
	}
}

func TestLoadSeedNormalizesDefenseType(t *testing.T) {
	input := `
- level: Doctorate
  defense_type: PREFINAL
  amounts:
    Panel Chair: 6000.50
`
	got, err := LoadSeed(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadSeed failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 rate, got %d", len(got))
	}
	if got[0].DefenseType != models.DefensePreFinal || got[0].Amount != 600050 {
		t.Errorf("Unexpected rate: %+v", got[0])
	}
}

func TestProgramLevelForUsesCatalog(t *testing.T) {
	if level, ok := CatalogLevel("  Master   in IT "); !ok || level != models.LevelMasteral {
		t.Errorf("Expected catalog hit for Master in IT, got %s ok=%v", level, ok)
	}
	if ProgramLevelFor("PhD in Physics") != models.LevelDoctorate {
		t.Error("Expected keyword fallback for unlisted program")
	}
}
