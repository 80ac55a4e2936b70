package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/prismui/prism/internal/catalog"
	"github.com/prismui/prism/internal/config"
	"github.com/prismui/prism/internal/dispatch"
	"github.com/prismui/prism/internal/errors"
	"github.com/prismui/prism/internal/intent"
	"github.com/prismui/prism/internal/llm"
	"github.com/prismui/prism/internal/ops"
	"github.com/prismui/prism/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "prism",
		Usage:   "Intent-dispatched task and note assistant",
		Version: Version,
		Commands: []*cli.Command{
			addCmd(db),
			listCmd(db),
			completeCmd(db),
			updateCmd(db),
			deleteCmd(db),
			showCmd(db),
			noteCmd(db),
			notesCmd(db),
			capabilitiesCmd(db, cfg),
			chatCmd(db, cfg),
			webCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// addCmd creates the add command.
func addCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a new task",
		ArgsUsage: "<title>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "due", Aliases: []string{"d"}, Usage: "Due date (free-form)"},
			&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Usage: "Priority: low|medium|high"},
			&cli.StringFlag{Name: "notes", Aliases: []string{"n"}, Usage: "Extra notes (markdown)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.AddInput{
				Title: strings.Join(c.Args().Slice(), " "),
			}
			if due := c.String("due"); due != "" {
				input.DueDate = &due
			}
			if priority := c.String("priority"); priority != "" {
				input.Priority = &priority
			}
			if notes := c.String("notes"); notes != "" {
				input.Notes = &notes
			}

			output, err := ops.Add(db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List tasks",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Value: "open", Usage: "Filter: open|done|all"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(db, ops.ListInput{
				Status: c.String("status"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// completeCmd creates the complete command.
func completeCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "complete",
		Usage:     "Mark a task as done",
		ArgsUsage: "<title>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Address by task ID instead of title"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Complete(db, ops.CompleteInput{
				ID:    c.String("id"),
				Title: strings.Join(c.Args().Slice(), " "),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// updateCmd creates the update command.
func updateCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Change a task's title, due date, or priority",
		ArgsUsage: "<title>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Address by task ID instead of title"},
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New title"},
			&cli.StringFlag{Name: "due", Aliases: []string{"d"}, Usage: "New due date"},
			&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Usage: "New priority: low|medium|high"},
		},
		Action: func(c *cli.Context) error {
			input := ops.UpdateInput{
				ID:    c.String("id"),
				Title: strings.Join(c.Args().Slice(), " "),
			}
			if title := c.String("title"); title != "" {
				input.NewTitle = &title
			}
			if due := c.String("due"); due != "" {
				input.DueDate = &due
			}
			if priority := c.String("priority"); priority != "" {
				input.Priority = &priority
			}

			output, err := ops.Update(db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a task",
		ArgsUsage: "<title>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Address by task ID instead of title"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(db, ops.DeleteInput{
				ID:    c.String("id"),
				Title: strings.Join(c.Args().Slice(), " "),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one task's details",
		ArgsUsage: "<title>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Address by task ID instead of title"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Get(db, ops.GetInput{
				ID:    c.String("id"),
				Title: strings.Join(c.Args().Slice(), " "),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// noteCmd creates the note command.
func noteCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "note",
		Usage:     "Save a free-form note (body from args, or piped via stdin)",
		ArgsUsage: "[body]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
		},
		Action: func(c *cli.Context) error {
			body := strings.Join(c.Args().Slice(), " ")
			if body == "" && stdinHasData() {
				text, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				body = text
			}

			output, err := ops.AddNote(db, ops.AddNoteInput{
				Body: body,
				Tags: parseTags(c.String("tags")),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// notesCmd creates the notes command.
func notesCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "notes",
		Usage: "List saved notes",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListNotes(db, ops.ListNotesInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// capabilitiesCmd creates the capabilities command.
func capabilitiesCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "capabilities",
		Usage: "Print the compiled capability tool list",
		Action: func(c *cli.Context) error {
			registry, err := catalog.Build(db, cfg)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(intent.Compile(registry))
		},
	}
}

// chatCmd creates the chat command: one full dispatch cycle for a single
// utterance, executing the selected capability immediately when it is
// actionable.
func chatCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Route a natural-language request through the model",
		ArgsUsage: "<utterance>",
		Action: func(c *cli.Context) error {
			utterance := strings.Join(c.Args().Slice(), " ")
			if utterance == "" {
				return outputError(errors.NewInvalidRequest("utterance is required"))
			}

			registry, err := catalog.Build(db, cfg)
			if err != nil {
				return outputError(err)
			}

			session := dispatch.NewSession(registry, cfg)
			client := llm.New(cfg)
			ctx := context.Background()

			seq := session.BeginTurn()
			result, err := client.Decide(ctx, utterance, intent.Compile(registry))
			if err != nil {
				return outputError(err)
			}

			activation, err := dispatch.Normalize(result.Invocation, registry)
			if err != nil {
				session.Fallback()
				return outputError(err)
			}
			session.Apply(seq, activation)

			if !activation.Selected() {
				return outputJSON(map[string]any{"reply": result.Reply})
			}

			// One-shot invocation: promotable activations execute right away,
			// incomplete ones come back as pending.
			snap := session.Snapshot()
			if snap.Mode == dispatch.ModeFull || snap.CountdownRemaining > 0 {
				if err := session.PromoteNow(); err != nil {
					return outputError(err)
				}
				execResult, err := session.Complete(ctx)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(map[string]any{
					"status":     "completed",
					"capability": activation.CapabilityID,
					"result":     execResult,
				})
			}

			return outputJSON(map[string]any{
				"status":     "pending",
				"capability": activation.CapabilityID,
				"activation": activation,
			})
		},
	}
}

// webCmd creates the web command.
func webCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Start the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 7433, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(db, cfg, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(err)
			}
			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if prismErr, ok := err.(*errors.PrismError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", prismErr.Code, prismErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
