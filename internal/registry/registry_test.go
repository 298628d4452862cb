package registry

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aeromaint/atarec/internal/models"
)

func buildArtifact(t *testing.T, rows [][4]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reference_registry.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE manual_references (
		manual_type TEXT NOT NULL,
		task_number TEXT NOT NULL,
		ata04 TEXT NOT NULL,
		title TEXT
	)`)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		_, err := db.Exec(`INSERT INTO manual_references (manual_type, task_number, ata04, title) VALUES (?, ?, ?, ?)`,
			r[0], r[1], r[2], r[3])
		if err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestOpenAndLookup(t *testing.T) {
	path := buildArtifact(t, [][4]string{
		{"TSM", "21-26-00", "21-26", "PACK TEMPERATURE CONTROL"},
		{"AMM", "24-11-41", "24-11", "GENERATOR - REMOVAL/INSTALLATION"},
		{"FIM", "32-47-00-810-813", "32-47", ""},
	})

	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if idx.Len() != 3 {
		t.Fatalf("Len = %d, want 3", idx.Len())
	}

	key := models.ReferenceKey{Manual: models.ManualTSM, Chapter: "21", Section: "26", Subject: "00"}
	if !idx.Exists(key) {
		t.Fatalf("expected %v to exist", key)
	}
	entry, ok := idx.Get(key)
	if !ok || entry.ATA04 != "21-26" || entry.Title != "PACK TEMPERATURE CONTROL" {
		t.Fatalf("Get = %+v, %v", entry, ok)
	}

	fim := models.ReferenceKey{
		Manual: models.ManualFIM,
		Chapter: "32", Section: "47", Subject: "00", Item: "810", Code: "813",
	}
	if !idx.Exists(fim) {
		t.Fatalf("expected %v to exist", fim)
	}

	if title, ok := idx.Title(key); !ok || title != "PACK TEMPERATURE CONTROL" {
		t.Fatalf("Title = %q, %v", title, ok)
	}
	if _, ok := idx.Title(fim); ok {
		t.Fatal("reference indexed without a title must report no title")
	}

	// Same task number under a different manual is a distinct reference.
	wrongManual := models.ReferenceKey{Manual: models.ManualAMM, Chapter: "21", Section: "26", Subject: "00"}
	if idx.Exists(wrongManual) {
		t.Fatal("AMM 21-26-00 should not exist")
	}
	missing := models.ReferenceKey{Manual: models.ManualTSM, Chapter: "99", Section: "99", Subject: "00"}
	if idx.Exists(missing) {
		t.Fatal("TSM 99-99-00 should not exist")
	}
}

func TestOpenMissingArtifact(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "none.db")); err != ErrNotBuilt {
		t.Fatalf("missing artifact: got %v, want ErrNotBuilt", err)
	}
	if _, err := Open(""); err != ErrNotBuilt {
		t.Fatalf("empty path: got %v, want ErrNotBuilt", err)
	}
}

func TestNilIndexDegradesSafely(t *testing.T) {
	var idx *Index
	if idx.Exists(models.ReferenceKey{Manual: models.ManualTSM, Chapter: "21", Section: "26", Subject: "00"}) {
		t.Fatal("nil index must report nothing as existing")
	}
	if idx.Len() != 0 {
		t.Fatal("nil index must report zero entries")
	}
}
