package migrate

import (
	"path/filepath"
	"runtime"
	"testing"
)

func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot locate test file")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "db", "migrations")
}

func TestMigrationFilesAreWellFormed(t *testing.T) {
	if err := ValidateDir(migrationsDir(t)); err != nil {
		t.Fatalf("migration validation failed: %v", err)
	}
}
