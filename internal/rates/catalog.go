package rates

import (
	"strings"

	"gradschool/internal/models"
)

// programCatalog is the static program-category table of the Graduate School.
// Programs not listed here fall back to ClassifyProgram.
var programCatalog = map[string]models.ProgramLevel{
	"master of arts in education":               models.LevelMasteral,
	"master of arts in english":                 models.LevelMasteral,
	"master of arts in filipino":                models.LevelMasteral,
	"master in information technology":          models.LevelMasteral,
	"master in it":                              models.LevelMasteral,
	"master of science in mathematics":          models.LevelMasteral,
	"master in business administration":         models.LevelMasteral,
	"master in public administration":           models.LevelMasteral,
	"master of arts in guidance and counseling": models.LevelMasteral,
	"doctor of philosophy in education":         models.LevelDoctorate,
	"doctor of education":                       models.LevelDoctorate,
	"doctor in business administration":         models.LevelDoctorate,
	"doctor of public administration":           models.LevelDoctorate,
	"doctor in information technology":          models.LevelDoctorate,
}

// CatalogLevel looks a program up in the static program-category table
func CatalogLevel(program string) (models.ProgramLevel, bool) {
	level, ok := programCatalog[strings.ToLower(strings.Join(strings.Fields(program), " "))]
	return level, ok
}

// ProgramLevelFor returns the catalog level of a program, falling back to keyword
// classification for programs the catalog does not list
func ProgramLevelFor(program string) models.ProgramLevel {
	if level, ok := CatalogLevel(program); ok {
		return level
	}
	return ClassifyProgram(program)
}
