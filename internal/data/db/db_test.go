package db

import (
	"testing"

	"github.com/yungbote/loregraph/internal/platform/logger"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	gdb, err := Open(Config{Driver: "sqlite", DSN: "file:db_open_test?mode=memory&cache=shared"}, logger.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := AutoMigrateAll(gdb); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	if !gdb.Migrator().HasTable("narrative_journal") {
		t.Fatalf("narrative_journal table missing after migrate")
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	log := logger.NewNop()
	if _, err := Open(Config{Driver: "mysql", DSN: "x"}, log); err == nil {
		t.Fatalf("unsupported driver: expected error")
	}
	if _, err := Open(Config{Driver: "sqlite"}, log); err == nil {
		t.Fatalf("empty dsn: expected error")
	}
	if _, err := Open(Config{Driver: "sqlite", DSN: "x"}, nil); err == nil {
		t.Fatalf("nil logger: expected error")
	}
}
