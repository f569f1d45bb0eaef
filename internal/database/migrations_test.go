package database

import (
	"strings"
	"testing"
	"testing/fstest"

	"gradschool/migrations"
)

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_add_history.up.sql":    {Data: []byte("CREATE TABLE history (id INT);")},
		"002_add_history.down.sql":  {Data: []byte("DROP TABLE history;")},
		"001_initial_schema.up.sql": {Data: []byte("CREATE TABLE a (id INT);")},
		"003_orphan_down.down.sql":  {Data: []byte("DROP TABLE nothing;")},
		"README.md":                 {Data: []byte("ignored")},
		"nested/004_skip_me.up.sql": {Data: []byte("SELECT 1;")},
	}

	got, err := ReadMigrations(fsys)
	if err != nil {
		t.Fatalf("ReadMigrations failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 migrations, got %d: %+v", len(got), got)
	}
	if got[0].Version != "001" || got[1].Version != "002" {
		t.Errorf("Unexpected order: %s, %s", got[0].Version, got[1].Version)
	}
	if got[1].Title != "add history" || got[1].Name != "add_history" {
		t.Errorf("Unexpected naming: %+v", got[1])
	}
	if got[1].DownSQL == "" {
		t.Error("Expected down SQL to be attached")
	}
	if got[0].Checksum != calculateChecksum("CREATE TABLE a (id INT);") {
		t.Error("Checksum mismatch")
	}
}

func TestValidateChecksums(t *testing.T) {
	migs := []Migration{{Version: "001", Title: "initial", Checksum: "abc"}}

	if err := validateChecksums(migs, map[string]string{"001": "abc"}); err != nil {
		t.Errorf("Expected matching checksum to pass, got %v", err)
	}
	if err := validateChecksums(migs, map[string]string{"001": ""}); err != nil {
		t.Errorf("Expected unknown checksum to pass, got %v", err)
	}
	err := validateChecksums(migs, map[string]string{"001": "def"})
	if err == nil || !strings.Contains(err.Error(), "001") {
		t.Errorf("Expected mismatch error naming 001, got %v", err)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := ReadMigrations(migrations.FS)
	if err != nil {
		t.Fatalf("ReadMigrations failed: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("Expected embedded migrations")
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Version >= got[i].Version {
			t.Errorf("Migrations out of order: %s >= %s", got[i-1].Version, got[i].Version)
		}
	}
}
