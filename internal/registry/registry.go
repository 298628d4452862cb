// Package registry loads the offline-built reference index used to validate
// manual citations. The artifact is a SQLite database produced by the index
// builder; it is read once at batch start into an immutable snapshot so
// concurrent row workers can look references up without locking.
package registry

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aeromaint/atarec/internal/models"
	"github.com/aeromaint/atarec/internal/utils"
)

// Entry is one known manual location with its associated system code.
type Entry struct {
	Manual models.Manual
	Task   string
	ATA04  string
	Title  string
}

// Index is an in-memory snapshot of the reference registry.
type Index struct {
	byTask map[string]Entry
	total  int
}

// ErrNotBuilt reports that no registry artifact exists at the given path.
// Callers treat this as degraded service, not a failure.
var ErrNotBuilt = errors.New("reference registry not built")

// Open loads the registry snapshot from a SQLite artifact. A missing file
// returns ErrNotBuilt; any other failure is structural and fatal to the run.
func Open(path string) (*Index, error) {
	if path == "" {
		return nil, ErrNotBuilt
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotBuilt
		}
		return nil, utils.NewAppError("registry.Open", "stat registry artifact", err)
	}

	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, utils.NewAppError("registry.Open", "open registry artifact", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT manual_type, task_number, ata04, COALESCE(title, '') FROM manual_references`)
	if err != nil {
		return nil, utils.NewAppError("registry.Open", "query manual_references", err)
	}
	defer rows.Close()

	idx := &Index{byTask: make(map[string]Entry)}
	for rows.Next() {
		var e Entry
		var manual string
		if err := rows.Scan(&manual, &e.Task, &e.ATA04, &e.Title); err != nil {
			return nil, utils.NewAppError("registry.Open", "scan reference row", err)
		}
		e.Manual = models.Manual(manual)
		idx.byTask[lookupKey(e.Manual, e.Task)] = e
		idx.total++
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewAppError("registry.Open", "read reference rows", err)
	}
	return idx, nil
}

// Exists reports whether the normalised reference is known to the registry.
func (i *Index) Exists(key models.ReferenceKey) bool {
	if i == nil {
		return false
	}
	_, ok := i.byTask[lookupKey(key.Manual, key.Task())]
	return ok
}

// Get returns the registry entry for the reference, if present.
func (i *Index) Get(key models.ReferenceKey) (Entry, bool) {
	if i == nil {
		return Entry{}, false
	}
	e, ok := i.byTask[lookupKey(key.Manual, key.Task())]
	return e, ok
}

// Title returns the registered document title for the reference. References
// indexed without a title report not-found.
func (i *Index) Title(key models.ReferenceKey) (string, bool) {
	e, ok := i.Get(key)
	if !ok || e.Title == "" {
		return "", false
	}
	return e.Title, true
}

// Len returns the number of loaded references.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return i.total
}

func lookupKey(manual models.Manual, task string) string {
	return fmt.Sprintf("%s|%s", manual, task)
}
