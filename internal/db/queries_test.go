package db

import (
	"database/sql"
	"testing"
	"time"

	"github.com/prismui/prism/internal/errors"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func sampleTask(id, title string) *Task {
	now := time.Now().Unix()
	return &Task{
		ID:        id,
		TitleRaw:  title,
		TitleNorm: title,
		Status:    "open",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestInsertAndGetTask(t *testing.T) {
	database := testDB(t)

	task := sampleTask("01TASK", "buy milk")
	priority := "high"
	task.Priority = &priority

	if err := InsertTask(database, task); err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}

	got, err := GetTaskByID(database, "01TASK")
	if err != nil {
		t.Fatalf("GetTaskByID failed: %v", err)
	}
	if got.TitleRaw != "buy milk" {
		t.Errorf("TitleRaw = %q", got.TitleRaw)
	}
	if got.Priority == nil || *got.Priority != "high" {
		t.Errorf("Priority = %v, want high", got.Priority)
	}
	if got.Notes != nil {
		t.Errorf("Notes = %v, want nil", got.Notes)
	}

	byTitle, err := GetTaskByTitle(database, "buy milk")
	if err != nil {
		t.Fatalf("GetTaskByTitle failed: %v", err)
	}
	if byTitle.ID != "01TASK" {
		t.Errorf("ID = %q", byTitle.ID)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	database := testDB(t)

	_, err := GetTaskByID(database, "missing")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestInsertTaskDuplicateTitle(t *testing.T) {
	database := testDB(t)

	if err := InsertTask(database, sampleTask("01A", "same")); err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}
	err := InsertTask(database, sampleTask("01B", "same"))
	if err != ErrUniqueConstraint {
		t.Errorf("error = %v, want ErrUniqueConstraint", err)
	}
}

func TestListAndCountTasks(t *testing.T) {
	database := testDB(t)

	open := sampleTask("01A", "alpha")
	done := sampleTask("01B", "beta")
	done.Status = "done"
	deleted := sampleTask("01C", "gamma")
	deleted.Status = "deleted"

	for _, task := range []*Task{open, done, deleted} {
		if err := InsertTask(database, task); err != nil {
			t.Fatalf("InsertTask failed: %v", err)
		}
	}

	all, err := ListTasks(database, "all", 100, 0)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListTasks(all) = %d tasks, want 2 (deleted excluded)", len(all))
	}

	openOnly, err := ListTasks(database, "open", 100, 0)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(openOnly) != 1 || openOnly[0].ID != "01A" {
		t.Errorf("ListTasks(open) = %v", openOnly)
	}

	count, err := CountTasks(database, "done")
	if err != nil {
		t.Fatalf("CountTasks failed: %v", err)
	}
	if count != 1 {
		t.Errorf("CountTasks(done) = %d, want 1", count)
	}
}

func TestUpdateTask(t *testing.T) {
	database := testDB(t)

	task := sampleTask("01A", "original")
	if err := InsertTask(database, task); err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}

	completed := time.Now().Unix()
	task.Status = "done"
	task.CompletedAt = &completed
	task.UpdatedAt = completed
	if err := UpdateTask(database, task); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	got, err := GetTaskByID(database, "01A")
	if err != nil {
		t.Fatalf("GetTaskByID failed: %v", err)
	}
	if got.Status != "done" {
		t.Errorf("Status = %q, want done", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt should be set")
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	database := testDB(t)

	err := UpdateTask(database, sampleTask("ghost", "ghost"))
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestCheckTitleExists(t *testing.T) {
	database := testDB(t)

	if err := InsertTask(database, sampleTask("01A", "present")); err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}

	exists, err := CheckTitleExists(database, "present")
	if err != nil {
		t.Fatalf("CheckTitleExists failed: %v", err)
	}
	if !exists {
		t.Error("CheckTitleExists = false, want true")
	}

	exists, err = CheckTitleExists(database, "absent")
	if err != nil {
		t.Fatalf("CheckTitleExists failed: %v", err)
	}
	if exists {
		t.Error("CheckTitleExists = true, want false")
	}
}

func TestInsertAndListNotes(t *testing.T) {
	database := testDB(t)

	note := &Note{
		ID:        "01N",
		Body:      "remember the milk",
		Tags:      []string{"errand", "food"},
		CreatedAt: time.Now().Unix(),
	}
	if err := InsertNote(database, note); err != nil {
		t.Fatalf("InsertNote failed: %v", err)
	}

	notes, err := ListNotes(database, 10, 0)
	if err != nil {
		t.Fatalf("ListNotes failed: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("ListNotes = %d notes, want 1", len(notes))
	}
	if notes[0].Body != "remember the milk" {
		t.Errorf("Body = %q", notes[0].Body)
	}
	if len(notes[0].Tags) != 2 || notes[0].Tags[0] != "errand" {
		t.Errorf("Tags = %v", notes[0].Tags)
	}
}
