package testutil

import (
	"context"
	"database/sql"
	"testing"

	"gradschool/internal/models"
	"gradschool/internal/rates"
	"gradschool/internal/repository"
)

// Fixtures holds test data
type Fixtures struct {
	DB          *sql.DB
	Student     *models.User
	Adviser     *models.User
	Coordinator *models.User
	AA          *models.User
	Admin       *models.User
	Panelists   map[string]*models.Panelist
}

// SetupFixtures creates one user per role, links the adviser to the coordinator,
// registers panelists A through E and loads the built-in rate table
func SetupFixtures(t *testing.T, db *sql.DB) *Fixtures {
	t.Helper()

	f := &Fixtures{DB: db, Panelists: make(map[string]*models.Panelist)}

	f.Student = createUser(t, db, "Student User", "student@test.edu", models.UserRoleStudent)
	f.Adviser = createUser(t, db, "Adviser User", "adviser@test.edu", models.UserRoleAdviser)
	f.Coordinator = createUser(t, db, "Coordinator User", "coordinator@test.edu", models.UserRoleCoordinator)
	f.AA = createUser(t, db, "AA User", "aa@test.edu", models.UserRoleAA)
	f.Admin = createUser(t, db, "Admin User", "admin@test.edu", models.UserRoleAdmin)

	if err := repository.NewUserRepository(db).LinkCoordinator(context.Background(), f.Adviser.ID, f.Coordinator.ID); err != nil {
		t.Fatalf("Failed to link coordinator: %v", err)
	}

	for _, name := range []string{"A", "B", "C", "D", "E"} {
		f.Panelists[name] = CreatePanelist(t, db, name)
	}

	SeedRates(t, db)

	return f
}

func createUser(t *testing.T, db *sql.DB, name, email string, role models.UserRole) *models.User {
	t.Helper()

	user := &models.User{Name: name, Email: email, Role: role}
	if err := repository.NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("Failed to create user %s: %v", email, err)
	}
	return user
}

// CreatePanelist adds a panelist directory entry
func CreatePanelist(t *testing.T, db *sql.DB, name string) *models.Panelist {
	t.Helper()

	p := &models.Panelist{Name: name, Email: name + "@faculty.test.edu"}
	if err := repository.NewPanelistRepository(db).Create(context.Background(), p); err != nil {
		t.Fatalf("Failed to create panelist %s: %v", name, err)
	}
	return p
}

// SeedRates loads the built-in rate table
func SeedRates(t *testing.T, db *sql.DB) {
	t.Helper()

	repo := repository.NewPaymentRateRepository(db)
	for _, rate := range rates.DefaultRates() {
		rate := rate
		if err := repo.Upsert(context.Background(), &rate); err != nil {
			t.Fatalf("Failed to seed rate %s/%s/%s: %v", rate.ProgramLevel, rate.DefenseType, rate.Role, err)
		}
	}
}

// UserIDPtr returns a pointer to the user's id
func UserIDPtr(u *models.User) *int64 {
	id := u.ID
	return &id
}
