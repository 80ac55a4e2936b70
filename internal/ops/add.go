package ops

import (
	"database/sql"
	"strings"
	"time"

	"github.com/prismui/prism/internal/db"
	"github.com/prismui/prism/internal/errors"
)

// AddInput contains parameters for the Add operation.
type AddInput struct {
	Title    string
	Notes    *string
	DueDate  *string
	Priority *string
}

// AddOutput contains the result of the Add operation.
type AddOutput struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Add creates a new open task. Titles are unique among active tasks
// (case-insensitive, whitespace-collapsed).
func Add(database *sql.DB, input AddInput) (*AddOutput, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.NewInvalidRequest("title is required")
	}

	if input.Priority != nil && !ValidPriority(*input.Priority) {
		return nil, errors.NewInvalidRequest("priority must be one of low, medium, high")
	}

	titleNorm := NormalizeTitle(title)
	exists, err := db.CheckTitleExists(database, titleNorm)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.NewConflict("a task with this title already exists")
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	now := time.Now().Unix()
	task := &db.Task{
		ID:        id,
		TitleRaw:  title,
		TitleNorm: titleNorm,
		Notes:     input.Notes,
		DueDate:   input.DueDate,
		Priority:  input.Priority,
		Status:    "open",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := db.InsertTask(database, task); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewConflict("a task with this title already exists")
		}
		return nil, err
	}

	return &AddOutput{ID: id, Title: title}, nil
}
