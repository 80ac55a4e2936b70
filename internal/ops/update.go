package ops

import (
	"database/sql"
	"strings"
	"time"

	"github.com/prismui/prism/internal/db"
	"github.com/prismui/prism/internal/errors"
)

// UpdateInput contains parameters for the Update operation.
// ID or Title addresses the task; nil fields are left unchanged.
type UpdateInput struct {
	ID    string
	Title string

	NewTitle *string
	Notes    *string
	DueDate  *string
	Priority *string
}

// UpdateOutput contains the result of the Update operation.
type UpdateOutput struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Update modifies an existing task's fields.
func Update(database *sql.DB, input UpdateInput) (*UpdateOutput, error) {
	byID, key, err := resolveAddress(input.ID, input.Title)
	if err != nil {
		return nil, err
	}

	if input.NewTitle == nil && input.Notes == nil && input.DueDate == nil && input.Priority == nil {
		return nil, errors.NewInvalidRequest("nothing to update")
	}
	if input.Priority != nil && !ValidPriority(*input.Priority) {
		return nil, errors.NewInvalidRequest("priority must be one of low, medium, high")
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

	if input.NewTitle != nil {
		newTitle := strings.TrimSpace(*input.NewTitle)
		if newTitle == "" {
			return nil, errors.NewInvalidRequest("new title must not be empty")
		}
		newNorm := NormalizeTitle(newTitle)
		if newNorm != task.TitleNorm {
			exists, err := db.CheckTitleExists(database, newNorm)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, errors.NewConflict("a task with the new title already exists")
			}
		}
		task.TitleRaw = newTitle
		task.TitleNorm = newNorm
	}
	if input.Notes != nil {
		task.Notes = input.Notes
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.Priority != nil {
		task.Priority = input.Priority
	}
	task.UpdatedAt = time.Now().Unix()

	if err := db.UpdateTask(database, task); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewConflict("a task with the new title already exists")
		}
		return nil, err
	}

	return &UpdateOutput{ID: task.ID, Title: task.TitleRaw}, nil
}
