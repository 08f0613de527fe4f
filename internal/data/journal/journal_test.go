package journal

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/loregraph/internal/domain/narrative"
	nerrors "github.com/yungbote/loregraph/internal/pkg/errors"
	"github.com/yungbote/loregraph/internal/platform/logger"
)

func sqliteJournal(t *testing.T) *GormJournal {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	j, err := New(db, logger.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return j
}

func TestJournalAppendAndListNewestFirst(t *testing.T) {
	ctx := context.Background()
	j := sqliteJournal(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	details, err := DetailsJSON(map[string]any{"ids": []string{"a", "b"}})
	if err != nil {
		t.Fatalf("DetailsJSON: %v", err)
	}
	entries := []Entry{
		{SessionID: "s1", Op: "SaveWorld", Kind: narrative.KindWorld, EntityID: "w1", Ack: "World saved", At: base},
		{SessionID: "s1", Op: "SaveScene", Kind: narrative.KindScene, EntityID: "w1.s1", Ack: "Scene saved", At: base.Add(time.Second)},
		{SessionID: "s1", Op: "SaveChoices", Kind: narrative.KindChoice, EntityID: "w1.w1.s1.a", Ack: "Choices saved", At: base.Add(2 * time.Second), Details: details},
		{SessionID: "s2", Op: "SaveWorld", Kind: narrative.KindWorld, EntityID: "w2", Ack: "World saved", At: base},
	}
	for _, e := range entries {
		if err := j.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := j.List(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len: want=%d got=%d", 3, len(got))
	}
	if got[0].Op != "SaveChoices" || got[2].Op != "SaveWorld" {
		t.Fatalf("order: got=%s,%s,%s", got[0].Op, got[1].Op, got[2].Op)
	}
	if string(got[0].Details) != `{"ids":["a","b"]}` {
		t.Fatalf("details: got=%s", got[0].Details)
	}

	limited, err := j.List(ctx, "s1", 1)
	if err != nil || len(limited) != 1 || limited[0].EntityID != "w1.w1.s1.a" {
		t.Fatalf("List limit 1: got=%+v err=%v", limited, err)
	}
}

func TestJournalAppendRequiresSession(t *testing.T) {
	j := sqliteJournal(t)
	if err := j.Append(context.Background(), Entry{Op: "SaveWorld"}); err == nil {
		t.Fatalf("Append without session: expected error")
	}
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		store bool
		dup   bool
	}{
		{"deadline", context.DeadlineExceeded, true, false},
		{"serialization", &pgconn.PgError{Code: "40001"}, true, false},
		{"connection", &pgconn.PgError{Code: "08006"}, true, false},
		{"unique", &pgconn.PgError{Code: "23505"}, false, true},
		{"sqlite unique", errors.New("UNIQUE constraint failed: narrative_journal.id"), false, true},
		{"other", &pgconn.PgError{Code: "42P01"}, false, false},
	}
	for _, tc := range cases {
		got := mapError("journal.test", tc.err)
		if errors.Is(got, nerrors.ErrStoreUnavailable) != tc.store {
			t.Fatalf("%s: store unavailable: want=%v got=%v", tc.name, tc.store, got)
		}
		if errors.Is(got, ErrDuplicate) != tc.dup {
			t.Fatalf("%s: duplicate: want=%v got=%v", tc.name, tc.dup, got)
		}
	}
}

func TestNopJournal(t *testing.T) {
	var j Journal = Nop{}
	if err := j.Append(context.Background(), Entry{}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, err := j.List(context.Background(), "s1", 10)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("List: got=%v err=%v", got, err)
	}
}
