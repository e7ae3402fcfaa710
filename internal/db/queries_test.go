package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/hpungsan/rnupgrade/internal/errors"
	"github.com/hpungsan/rnupgrade/internal/run"
)

// newTestRun creates a run with default values for testing.
func newTestRun(id, project string, createdAt int64) *run.Run {
	return &run.Run{
		ID:               id,
		Project:          project,
		FromVersion:      "0.72.3",
		ToVersion:        "0.73.0",
		Model:            "gpt-4",
		Interactive:      true,
		PromptTokens:     1200,
		CompletionTokens: 300,
		Cost:             "$0.05",
		CreatedAt:        createdAt,
		FinishedAt:       createdAt + 60,
		Files: []run.File{
			{Path: "android/build.gradle", Change: "modified", CustomPrompts: []string{"keep kotlin version"}},
			{Path: "ios/Podfile", Change: "skipped", Error: "file not found"},
		},
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndGetRunByID(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	r := newTestRun("01RUN1", "/work/app", time.Now().Unix())
	if err := InsertRun(ctx, db, r); err != nil {
		t.Fatalf("InsertRun failed: %v", err)
	}

	got, err := GetRunByID(ctx, db, "01RUN1", false)
	if err != nil {
		t.Fatalf("GetRunByID failed: %v", err)
	}

	if got.Project != "/work/app" || got.FromVersion != "0.72.3" || got.ToVersion != "0.73.0" {
		t.Errorf("run fields mismatch: %+v", got)
	}
	if !got.Interactive || got.Exited {
		t.Errorf("flags mismatch: interactive=%v exited=%v", got.Interactive, got.Exited)
	}
	if got.PromptTokens != 1200 || got.Cost != "$0.05" {
		t.Errorf("usage mismatch: %d %s", got.PromptTokens, got.Cost)
	}
	if len(got.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2", len(got.Files))
	}
	if got.Files[0].Path != "android/build.gradle" || got.Files[0].CustomPrompts[0] != "keep kotlin version" {
		t.Errorf("Files[0] = %+v", got.Files[0])
	}
	if got.Files[1].Error != "file not found" || got.Files[1].CustomPrompts != nil {
		t.Errorf("Files[1] = %+v", got.Files[1])
	}
}

func TestInsertRun_Duplicate(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	r := newTestRun("01DUP", "/work/app", time.Now().Unix())
	if err := InsertRun(ctx, db, r); err != nil {
		t.Fatalf("first InsertRun failed: %v", err)
	}
	if err := InsertRun(ctx, db, r); err != ErrUniqueConstraint {
		t.Errorf("second InsertRun error = %v, want ErrUniqueConstraint", err)
	}
}

func TestGetRunByID_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := GetRunByID(context.Background(), db, "missing", false)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	base := time.Now().Unix()
	for i, id := range []string{"01A", "01B", "01C"} {
		if err := InsertRun(ctx, db, newTestRun(id, "/work/app", base+int64(i))); err != nil {
			t.Fatalf("InsertRun(%s) failed: %v", id, err)
		}
	}
	if err := InsertRun(ctx, db, newTestRun("01OTHER", "/work/other", base+10)); err != nil {
		t.Fatalf("InsertRun failed: %v", err)
	}

	items, total, err := ListRuns(ctx, db, "/work/app", 2, 0, false)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(items) != 2 || items[0].ID != "01C" || items[1].ID != "01B" {
		t.Errorf("items = %+v, want newest first", items)
	}
	if items[0].FileCount != 2 || items[0].Counts["modified"] != 1 {
		t.Errorf("summary = %+v", items[0])
	}

	all, total, err := ListRuns(ctx, db, "", 10, 0, false)
	if err != nil {
		t.Fatalf("ListRuns(all) failed: %v", err)
	}
	if total != 4 || all[0].ID != "01OTHER" {
		t.Errorf("all = %d items, total %d, first %s", len(all), total, all[0].ID)
	}
}

func TestGetLatestRun(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if _, err := GetLatestRun(ctx, db, "/work/app"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("empty db error = %v, want NOT_FOUND", err)
	}

	base := time.Now().Unix()
	_ = InsertRun(ctx, db, newTestRun("01OLD", "/work/app", base))
	_ = InsertRun(ctx, db, newTestRun("01NEW", "/work/app", base+5))

	got, err := GetLatestRun(ctx, db, "/work/app")
	if err != nil {
		t.Fatalf("GetLatestRun failed: %v", err)
	}
	if got.ID != "01NEW" {
		t.Errorf("latest = %s, want 01NEW", got.ID)
	}
}

func TestSoftDeleteAndPurge(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_ = InsertRun(ctx, db, newTestRun("01DEL", "/work/app", time.Now().Unix()))
	_ = InsertRun(ctx, db, newTestRun("01KEEP", "/work/app", time.Now().Unix()))

	if err := SoftDeleteRun(ctx, db, "01DEL"); err != nil {
		t.Fatalf("SoftDeleteRun failed: %v", err)
	}
	if err := SoftDeleteRun(ctx, db, "01DEL"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second SoftDeleteRun error = %v, want NOT_FOUND", err)
	}

	if _, err := GetRunByID(ctx, db, "01DEL", false); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("deleted run visible without includeDeleted")
	}
	deleted, err := GetRunByID(ctx, db, "01DEL", true)
	if err != nil || deleted.DeletedAt == nil {
		t.Fatalf("GetRunByID(includeDeleted) = %+v, %v", deleted, err)
	}

	days := 1
	n, err := PurgeDeleted(ctx, db, nil, &days)
	if err != nil {
		t.Fatalf("PurgeDeleted failed: %v", err)
	}
	if n != 0 {
		t.Errorf("purged %d runs deleted just now, want 0", n)
	}

	project := "/work/app"
	n, err = PurgeDeleted(ctx, db, &project, nil)
	if err != nil {
		t.Fatalf("PurgeDeleted failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}

	var files int
	if err := db.QueryRow("SELECT COUNT(*) FROM run_files WHERE run_id = '01DEL'").Scan(&files); err != nil {
		t.Fatalf("count files: %v", err)
	}
	if files != 0 {
		t.Errorf("run_files left after purge = %d, want 0", files)
	}

	if _, err := GetRunByID(ctx, db, "01KEEP", false); err != nil {
		t.Errorf("kept run missing: %v", err)
	}
}
