package ops

import (
	"database/sql"

	"github.com/prismui/prism/internal/db"
)

// GetInput contains parameters for the Get operation.
type GetInput struct {
	ID    string
	Title string
}

// GetOutput contains the result of the Get operation.
type GetOutput struct {
	TaskItem
}

// Get fetches a single task by ID or title.
func Get(database *sql.DB, input GetInput) (*GetOutput, error) {
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

	return &GetOutput{TaskItem: taskItem(task)}, nil
}
