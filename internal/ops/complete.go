package ops

import (
	"database/sql"
	"time"

	"github.com/prismui/prism/internal/db"
	"github.com/prismui/prism/internal/errors"
)

// CompleteInput contains parameters for the Complete operation.
type CompleteInput struct {
	ID    string
	Title string
}

// CompleteOutput contains the result of the Complete operation.
type CompleteOutput struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	CompletedAt int64  `json:"completed_at"`
}

// Complete marks an open task as done. Completing an already-done task is a
// conflict, not a silent no-op.
func Complete(database *sql.DB, input CompleteInput) (*CompleteOutput, error) {
	byID, key, err := resolveAddress(input.ID, input.Title)
	if err != nil {
		return nil, err
	}

	var task *db.Task
	if byID {
		task, err = db.GetTaskByID(database, key)
	} else {
		task, err = db.GetTaskByTitle(database, key)
	}
	if err != nil {
		return nil, err
	}

	if task.Status == "done" {
		return nil, errors.NewConflict("task is already done")
	}

	now := time.Now().Unix()
	task.Status = "done"
	task.UpdatedAt = now
	task.CompletedAt = &now

	if err := db.UpdateTask(database, task); err != nil {
		return nil, err
	}

	return &CompleteOutput{
		ID:          task.ID,
		Title:       task.TitleRaw,
		CompletedAt: now,
	}, nil
}
