package rates

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"gradschool/internal/models"
)

//go:embed default_rates.yaml
var defaultRatesYAML []byte

// seedEntry is one (level, defense type) block of a rate file
type seedEntry struct {
	Level       string             `yaml:"level"`
	DefenseType string             `yaml:"defense_type"`
	Amounts     map[string]float64 `yaml:"amounts"`
}

// LoadSeed parses a YAML rate file. Amounts are in pesos; role names must match
// the committee roles verbatim.
func LoadSeed(r io.Reader) ([]models.PaymentRate, error) {
	var entries []seedEntry
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode rate file: %w", err)
	}

	var out []models.PaymentRate
	for i, entry := range entries {
		level := models.ProgramLevel(entry.Level)
		if level != models.LevelMasteral && level != models.LevelDoctorate {
			return nil, fmt.Errorf("entry %d: unknown program level %q", i+1, entry.Level)
		}

		dt, err := NormalizeDefenseType(entry.DefenseType)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}

		for name, pesos := range entry.Amounts {
			role, ok := models.ParseCommitteeRole(name)
			if !ok {
				return nil, fmt.Errorf("entry %d: unknown committee role %q", i+1, name)
			}
			if pesos < 0 {
				return nil, fmt.Errorf("entry %d: negative amount for %s", i+1, name)
			}
			out = append(out, models.PaymentRate{
				ProgramLevel: level,
				DefenseType:  dt,
				Role:         role,
				Amount:       models.FromPesos(pesos),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProgramLevel != out[j].ProgramLevel {
			return out[i].ProgramLevel > out[j].ProgramLevel
		}
		if out[i].DefenseType != out[j].DefenseType {
			return out[i].DefenseType < out[j].DefenseType
		}
		return out[i].Role.Order() < out[j].Role.Order()
	})

	return out, nil
}

// DefaultRates returns the rate table shipped with the application
func DefaultRates() []models.PaymentRate {
	out, err := LoadSeed(bytes.NewReader(defaultRatesYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded default rates are invalid: %v", err))
	}
	return out
}
