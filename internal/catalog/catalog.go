// Package catalog declares Prism's built-in capabilities and registers them
// in a fixed, deterministic order at startup. The order is observable in
// compiled tool output and is part of the contract for reproducible model
// prompting.
package catalog

import (
	"context"
	"database/sql"
	"log"
	"strings"

	"github.com/spf13/cast"

	"github.com/prismui/prism/internal/config"
	"github.com/prismui/prism/internal/intent"
	"github.com/prismui/prism/internal/ops"
)

// Build constructs the capability registry over the given store.
// Capabilities listed in cfg.DisabledCapabilities are skipped; unknown names
// in that list are logged as warnings.
func Build(database *sql.DB, cfg *config.Config) (*intent.Registry, error) {
	registry := intent.NewRegistry()

	capabilities := builtins(database)

	known := make(map[string]bool, len(capabilities))
	for _, c := range capabilities {
		known[c.Identifier] = true
	}
	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledCapabilities {
		if !known[name] {
			log.Printf("warning: unknown capability in disabled_capabilities: %s", name)
			continue
		}
		disabled[name] = true
	}

	for _, c := range capabilities {
		if disabled[c.Identifier] {
			continue
		}
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// builtins returns the built-in capability descriptors in registration order.
func builtins(database *sql.DB) []*intent.Capability {
	priorityField := intent.Field{
		Name:          "priority",
		Kind:          intent.KindEnum,
		Description:   "Task priority level.",
		AllowedValues: ops.Priorities,
	}

	return []*intent.Capability{
		{
			Identifier: "add_task",
			Description: "Create a new task. Use when the user wants to remember, " +
				"schedule, or track something they need to do.",
			Fields: []intent.Field{
				{Name: "title", Kind: intent.KindText, Description: "Short imperative task title."},
				{Name: "due_date", Kind: intent.KindText, Description: "Due date as the user phrased it, e.g. \"tomorrow\" or \"2026-03-01\"."},
				priorityField,
				{Name: "notes", Kind: intent.KindText, Description: "Extra context or details for the task."},
			},
			RequiredFields: []string{"title"},
			RenderHandle:   "facets/add_task",
			Execute: func(ctx context.Context, data map[string]any) (any, error) {
				input := ops.AddInput{Title: cast.ToString(data["title"])}
				if v, ok := data["due_date"]; ok {
					s := cast.ToString(v)
					input.DueDate = &s
				}
				if v, ok := data["priority"]; ok {
					s := cast.ToString(v)
					input.Priority = &s
				}
				if v, ok := data["notes"]; ok {
					s := cast.ToString(v)
					input.Notes = &s
				}
				return ops.Add(database, input)
			},
		},
		{
			Identifier: "list_tasks",
			Description: "Show the user's tasks, optionally filtered by status. " +
				"Use when the user asks what they have to do or what is done.",
			Fields: []intent.Field{
				{Name: "status", Kind: intent.KindEnum, Description: "Which tasks to show.", AllowedValues: []string{"open", "done", "all"}},
				{Name: "limit", Kind: intent.KindNumber, Description: "Maximum number of tasks to show."},
			},
			RenderHandle: "facets/list_tasks",
			Execute: func(ctx context.Context, data map[string]any) (any, error) {
				return ops.List(database, ops.ListInput{
					Status: cast.ToString(data["status"]),
					Limit:  cast.ToInt(data["limit"]),
				})
			},
		},
		{
			Identifier: "complete_task",
			Description: "Mark an existing task as done. Use when the user says they " +
				"finished, completed, or did a task.",
			Fields: []intent.Field{
				{Name: "title", Kind: intent.KindText, Description: "Title of the task to complete."},
			},
			RequiredFields: []string{"title"},
			RenderHandle:   "facets/complete_task",
			Execute: func(ctx context.Context, data map[string]any) (any, error) {
				return ops.Complete(database, ops.CompleteInput{Title: cast.ToString(data["title"])})
			},
		},
		{
			Identifier: "update_task",
			Description: "Change an existing task's title, due date, or priority. " +
				"Use when the user wants to reschedule, rename, or reprioritize a task.",
			Fields: []intent.Field{
				{Name: "title", Kind: intent.KindText, Description: "Title of the task to change."},
				{Name: "new_title", Kind: intent.KindText, Description: "New title, if renaming."},
				{Name: "due_date", Kind: intent.KindText, Description: "New due date."},
				priorityField,
			},
			RequiredFields: []string{"title"},
			RenderHandle:   "facets/update_task",
			Execute: func(ctx context.Context, data map[string]any) (any, error) {
				input := ops.UpdateInput{Title: cast.ToString(data["title"])}
				if v, ok := data["new_title"]; ok {
					s := cast.ToString(v)
					input.NewTitle = &s
				}
				if v, ok := data["due_date"]; ok {
					s := cast.ToString(v)
					input.DueDate = &s
				}
				if v, ok := data["priority"]; ok {
					s := cast.ToString(v)
					input.Priority = &s
				}
				return ops.Update(database, input)
			},
		},
		{
			Identifier: "delete_task",
			Description: "Remove a task entirely. Use only when the user explicitly " +
				"wants a task gone, not merely finished.",
			Fields: []intent.Field{
				{Name: "title", Kind: intent.KindText, Description: "Title of the task to delete."},
			},
			RequiredFields: []string{"title"},
			RenderHandle:   "facets/delete_task",
			Execute: func(ctx context.Context, data map[string]any) (any, error) {
				return ops.Delete(database, ops.DeleteInput{Title: cast.ToString(data["title"])})
			},
		},
		{
			Identifier: "show_task",
			Description: "Show the details of one task. Use when the user asks about " +
				"a specific task by name.",
			Fields: []intent.Field{
				{Name: "title", Kind: intent.KindText, Description: "Title of the task to show."},
			},
			RequiredFields: []string{"title"},
			RenderHandle:   "facets/show_task",
			Execute: func(ctx context.Context, data map[string]any) (any, error) {
				return ops.Get(database, ops.GetInput{Title: cast.ToString(data["title"])})
			},
		},
		{
			Identifier: "add_note",
			Description: "Save a free-form note. Use when the user wants to jot " +
				"something down that is not an actionable task.",
			Fields: []intent.Field{
				{Name: "body", Kind: intent.KindText, Description: "The note text, markdown allowed."},
				{Name: "tags", Kind: intent.KindText, Description: "Comma-separated tags."},
			},
			RequiredFields: []string{"body"},
			RenderHandle:   "facets/add_note",
			Execute: func(ctx context.Context, data map[string]any) (any, error) {
				input := ops.AddNoteInput{Body: cast.ToString(data["body"])}
				if v, ok := data["tags"]; ok {
					input.Tags = splitTags(cast.ToString(v))
				}
				return ops.AddNote(database, input)
			},
		},
	}
}

// splitTags splits a comma-separated tag string. Trimming and
// deduplication happen in ops.AddNote.
func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}
