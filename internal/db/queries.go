package db

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/prismui/prism/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.PrismError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// Task is one durable task record.
type Task struct {
	ID          string
	TitleRaw    string
	TitleNorm   string
	Notes       *string
	DueDate     *string
	Priority    *string
	Status      string // open | done | deleted
	CreatedAt   int64
	UpdatedAt   int64
	CompletedAt *int64
}

// Note is one durable free-form note record.
type Note struct {
	ID        string
	Body      string
	Tags      []string
	CreatedAt int64
}

// InsertTask stores a new task in the database.
func InsertTask(db *sql.DB, t *Task) error {
	query := `
		INSERT INTO tasks (
			id, title_raw, title_norm, notes, due_date, priority,
			status, created_at, updated_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err := db.Exec(query,
		t.ID, t.TitleRaw, t.TitleNorm, toNullString(t.Notes),
		toNullString(t.DueDate), toNullString(t.Priority),
		t.Status, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	return nil
}

// GetTaskByID retrieves a task by its ULID. Deleted tasks are excluded.
func GetTaskByID(db *sql.DB, id string) (*Task, error) {
	query := taskSelect + ` WHERE id = ? AND status != 'deleted'`

	row := db.QueryRow(query, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return t, nil
}

// GetTaskByTitle retrieves a task by normalized title. Deleted tasks are
// excluded.
func GetTaskByTitle(db *sql.DB, titleNorm string) (*Task, error) {
	query := taskSelect + ` WHERE title_norm = ? AND status != 'deleted'`

	row := db.QueryRow(query, titleNorm)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(titleNorm)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return t, nil
}

// CheckTitleExists checks if an active task with the normalized title exists.
func CheckTitleExists(db *sql.DB, titleNorm string) (bool, error) {
	query := `
		SELECT 1 FROM tasks
		WHERE title_norm = ? AND status != 'deleted'
		LIMIT 1
	`

	var exists int
	err := db.QueryRow(query, titleNorm).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// ListTasks returns tasks matching the status filter ("open", "done", or
// "all"), most recently updated first.
func ListTasks(db *sql.DB, status string, limit, offset int) ([]*Task, error) {
	query := taskSelect
	args := []any{}

	switch status {
	case "all", "":
		query += ` WHERE status != 'deleted'`
	default:
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return tasks, nil
}

// CountTasks returns the number of tasks matching the status filter.
func CountTasks(db *sql.DB, status string) (int, error) {
	query := `SELECT COUNT(*) FROM tasks`
	args := []any{}

	switch status {
	case "all", "":
		query += ` WHERE status != 'deleted'`
	default:
		query += ` WHERE status = ?`
		args = append(args, status)
	}

	var count int
	if err := db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.NewInternal(err)
	}
	return count, nil
}

// UpdateTask persists changes to an existing task's mutable fields.
func UpdateTask(db *sql.DB, t *Task) error {
	query := `
		UPDATE tasks
		SET title_raw = ?, title_norm = ?, notes = ?, due_date = ?,
			priority = ?, status = ?, updated_at = ?, completed_at = ?
		WHERE id = ?
	`

	result, err := db.Exec(query,
		t.TitleRaw, t.TitleNorm, toNullString(t.Notes),
		toNullString(t.DueDate), toNullString(t.Priority),
		t.Status, t.UpdatedAt, toNullInt(t.CompletedAt), t.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if affected == 0 {
		return errors.NewNotFound(t.ID)
	}

	return nil
}

// InsertNote stores a new note in the database.
func InsertNote(db *sql.DB, n *Note) error {
	var tagsJSON sql.NullString
	if len(n.Tags) > 0 {
		data, err := json.Marshal(n.Tags)
		if err != nil {
			return errors.NewInternal(err)
		}
		tagsJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO notes (id, body, tags_json, created_at)
		VALUES (?, ?, ?, ?)
	`

	if _, err := db.Exec(query, n.ID, n.Body, tagsJSON, n.CreatedAt); err != nil {
		return errors.NewInternal(err)
	}

	return nil
}

// ListNotes returns notes, most recent first.
func ListNotes(db *sql.DB, limit, offset int) ([]*Note, error) {
	query := `
		SELECT id, body, tags_json, created_at
		FROM notes
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.Query(query, limit, offset)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		var n Note
		var tagsJSON sql.NullString
		if err := rows.Scan(&n.ID, &n.Body, &tagsJSON, &n.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		if tagsJSON.Valid {
			if err := json.Unmarshal([]byte(tagsJSON.String), &n.Tags); err != nil {
				return nil, errors.NewInternal(err)
			}
		}
		notes = append(notes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return notes, nil
}

const taskSelect = `
	SELECT id, title_raw, title_norm, notes, due_date, priority,
		status, created_at, updated_at, completed_at
	FROM tasks
`

// scanner abstracts sql.Row and sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

// scanTask reads one task row.
func scanTask(row scanner) (*Task, error) {
	var t Task
	var notes, dueDate, priority sql.NullString
	var completedAt sql.NullInt64

	err := row.Scan(
		&t.ID, &t.TitleRaw, &t.TitleNorm, &notes, &dueDate, &priority,
		&t.Status, &t.CreatedAt, &t.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Notes = fromNullString(notes)
	t.DueDate = fromNullString(dueDate)
	t.Priority = fromNullString(priority)
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Int64
	}

	return &t, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func toNullInt(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}
