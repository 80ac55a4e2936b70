package ops

import (
	"database/sql"
	"time"

	"github.com/prismui/prism/internal/db"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	ID    string
	Title string
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Deleted bool   `json:"deleted"`
}

// Delete soft-deletes a task. The row is kept but drops out of every query
// and releases its title for reuse.
func Delete(database *sql.DB, input DeleteInput) (*DeleteOutput, error) {
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

	task.Status = "deleted"
	task.UpdatedAt = time.Now().Unix()

	if err := db.UpdateTask(database, task); err != nil {
		return nil, err
	}

	return &DeleteOutput{ID: task.ID, Title: task.TitleRaw, Deleted: true}, nil
}
