package ops

import (
	"database/sql"

	"github.com/prismui/prism/internal/db"
	"github.com/prismui/prism/internal/errors"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	// Status filters tasks: "open", "done", or "all". Empty means all.
	Status string
	Limit  int
	Offset int
}

// TaskItem is one task in a list result.
type TaskItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Notes       *string `json:"notes,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Status      string  `json:"status"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
	CompletedAt *int64  `json:"completed_at,omitempty"`
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []TaskItem `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// List returns tasks matching the status filter, most recently updated
// first.
func List(database *sql.DB, input ListInput) (*ListOutput, error) {
	status := input.Status
	switch status {
	case "", "open", "done", "all":
	default:
		return nil, errors.NewInvalidRequest("status must be one of open, done, all")
	}

	limit := clampLimit(input.Limit)
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	tasks, err := db.ListTasks(database, status, limit, offset)
	if err != nil {
		return nil, err
	}

	total, err := db.CountTasks(database, status)
	if err != nil {
		return nil, err
	}

	items := make([]TaskItem, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, taskItem(t))
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
	}, nil
}

// taskItem converts a db task row to its list representation.
func taskItem(t *db.Task) TaskItem {
	return TaskItem{
		ID:          t.ID,
		Title:       t.TitleRaw,
		Notes:       t.Notes,
		DueDate:     t.DueDate,
		Priority:    t.Priority,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
	}
}
