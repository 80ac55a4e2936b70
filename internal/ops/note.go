package ops

import (
	"database/sql"
	"strings"
	"time"

	"github.com/prismui/prism/internal/db"
	"github.com/prismui/prism/internal/errors"
)

// AddNoteInput contains parameters for the AddNote operation.
type AddNoteInput struct {
	Body string
	Tags []string
}

// AddNoteOutput contains the result of the AddNote operation.
type AddNoteOutput struct {
	ID string `json:"id"`
}

// AddNote stores a free-form note.
func AddNote(database *sql.DB, input AddNoteInput) (*AddNoteOutput, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, errors.NewInvalidRequest("body is required")
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	note := &db.Note{
		ID:        id,
		Body:      body,
		Tags:      cleanTags(input.Tags),
		CreatedAt: time.Now().Unix(),
	}

	if err := db.InsertNote(database, note); err != nil {
		return nil, err
	}

	return &AddNoteOutput{ID: id}, nil
}

// NoteItem is one note in a list result.
type NoteItem struct {
	ID        string   `json:"id"`
	Body      string   `json:"body"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt int64    `json:"created_at"`
}

// ListNotesInput contains parameters for the ListNotes operation.
type ListNotesInput struct {
	Limit  int
	Offset int
}

// ListNotesOutput contains the result of the ListNotes operation.
type ListNotesOutput struct {
	Items []NoteItem `json:"items"`
}

// ListNotes returns notes, most recent first.
func ListNotes(database *sql.DB, input ListNotesInput) (*ListNotesOutput, error) {
	limit := clampLimit(input.Limit)
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	notes, err := db.ListNotes(database, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]NoteItem, 0, len(notes))
	for _, n := range notes {
		items = append(items, NoteItem{
			ID:        n.ID,
			Body:      n.Body,
			Tags:      n.Tags,
			CreatedAt: n.CreatedAt,
		})
	}

	return &ListNotesOutput{Items: items}, nil
}

// cleanTags trims and deduplicates tags, dropping empties.
func cleanTags(tags []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" && !seen[tag] {
			seen[tag] = true
			result = append(result, tag)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
