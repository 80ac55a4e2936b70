package web

import (
	"database/sql"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/prismui/prism/internal/config"
	"github.com/prismui/prism/internal/dispatch"
	"github.com/prismui/prism/internal/errors"
	"github.com/prismui/prism/internal/intent"
	"github.com/prismui/prism/internal/llm"
	"github.com/prismui/prism/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	registry *intent.Registry
	session  *dispatch.Session
	llm      *llm.Client
	renderer *Renderer
}

// HandleSession handles GET /session, the chat and activation view.
func (h *Handlers) HandleSession(w http.ResponseWriter, r *http.Request) {
	snap := h.session.Snapshot()

	h.renderer.renderPage(w, r, "session", SessionPageData{
		PageData: PageData{
			Title:   "Session",
			Version: h.renderer.version,
			Nav:     "session",
		},
		Snapshot:     snap,
		Capability:   h.activationCapability(snap),
		Missing:      h.missingRequired(snap.Activation),
		Reply:        r.URL.Query().Get("reply"),
		Notice:       r.URL.Query().Get("notice"),
		ErrorMessage: r.URL.Query().Get("error"),
	})
}

// HandleState handles GET /session/state: the snapshot as JSON, polled by
// the countdown script.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	snap := h.session.Snapshot()
	payload := map[string]any{
		"mode":                string(snap.Mode),
		"countdown_remaining": snap.CountdownRemaining,
	}
	if snap.Activation != nil {
		payload["activation"] = snap.Activation
	}
	renderJSON(w, http.StatusOK, payload)
}

// HandleChat handles POST /session/chat: one full dispatch cycle for a
// typed utterance.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	utterance := strings.TrimSpace(r.FormValue("utterance"))
	if utterance == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("utterance is required"))
		return
	}

	seq := h.session.BeginTurn()

	result, err := h.llm.Decide(r.Context(), utterance, intent.Compile(h.registry))
	if err != nil {
		// Transport failure: the session keeps its pre-call state.
		redirectSession(w, r, url.Values{"error": {errorMessage(err)}})
		return
	}

	activation, err := dispatch.Normalize(result.Invocation, h.registry)
	if err != nil {
		h.session.Fallback()
		redirectSession(w, r, url.Values{"error": {errorMessage(err)}})
		return
	}

	if !h.session.Apply(seq, activation) {
		redirectSession(w, r, url.Values{"notice": {"superseded by a newer request"}})
		return
	}

	params := url.Values{}
	if result.Reply != "" {
		params.Set("reply", result.Reply)
	}
	redirectSession(w, r, params)
}

// HandlePromote handles POST /session/promote: promote and execute the
// pending activation immediately.
func (h *Handlers) HandlePromote(w http.ResponseWriter, r *http.Request) {
	if err := h.session.PromoteNow(); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if _, err := h.session.Complete(r.Context()); err != nil {
		redirectSession(w, r, url.Values{"error": {errorMessage(err)}})
		return
	}
	redirectSession(w, r, url.Values{"notice": {"done"}})
}

// HandleCancel handles POST /session/cancel: stop the countdown, keep the
// activation in summary.
func (h *Handlers) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.session.CancelCountdown()
	redirectSession(w, r, nil)
}

// HandleDismiss handles POST /session/dismiss, discarding the activation.
func (h *Handlers) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	h.session.Dismiss()
	redirectSession(w, r, nil)
}

// HandleTasks handles GET /tasks, the task list.
func (h *Handlers) HandleTasks(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = "open"
	}

	result, err := ops.List(h.db, ops.ListInput{
		Status: status,
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "tasks", TasksPageData{
		PageData: PageData{
			Title:   "Tasks",
			Version: h.renderer.version,
			Nav:     "tasks",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		Status:     status,
	})
}

// HandleTaskDetail handles GET /tasks/{id}, a single task.
func (h *Handlers) HandleTaskDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("task ID is required"))
		return
	}

	task, err := ops.Get(h.db, ops.GetInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	var rendered = renderMarkdown("")
	if task.Notes != nil {
		rendered = renderMarkdown(*task.Notes)
	}

	h.renderer.renderPage(w, r, "task_detail", TaskDetailPageData{
		PageData: PageData{
			Title:   task.Title,
			Version: h.renderer.version,
			Nav:     "tasks",
		},
		Task:          task,
		RenderedNotes: rendered,
	})
}

// HandleTaskComplete handles POST /tasks/{id}/complete.
func (h *Handlers) HandleTaskComplete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("task ID is required"))
		return
	}

	if _, err := ops.Complete(h.db, ops.CompleteInput{ID: id}); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	http.Redirect(w, r, "/tasks", http.StatusFound)
}

// HandleTaskDelete handles DELETE /tasks/{id}.
func (h *Handlers) HandleTaskDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("task ID is required"))
		return
	}

	result, err := ops.Delete(h.db, ops.DeleteInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// JSON request
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, map[string]any{
			"deleted": result.Deleted,
			"id":      result.ID,
		})
		return
	}

	http.Redirect(w, r, "/tasks", http.StatusFound)
}

// HandleNotes handles GET /notes, the note list.
func (h *Handlers) HandleNotes(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListNotes(h.db, ops.ListNotesInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "notes", NotesPageData{
		PageData: PageData{
			Title:   "Notes",
			Version: h.renderer.version,
			Nav:     "notes",
		},
		Items: result.Items,
	})
}

// activationCapability looks up the descriptor behind the snapshot's
// activation, if any.
func (h *Handlers) activationCapability(snap dispatch.Snapshot) *intent.Capability {
	if snap.Activation == nil || !snap.Activation.Selected() {
		return nil
	}
	c, ok := h.registry.Lookup(snap.Activation.CapabilityID)
	if !ok {
		return nil
	}
	return c
}

// missingRequired lists required fields absent from the activation's data.
func (h *Handlers) missingRequired(a *dispatch.Activation) []string {
	if a == nil || !a.Selected() {
		return nil
	}
	capability, ok := h.registry.Lookup(a.CapabilityID)
	if !ok {
		return nil
	}
	var missing []string
	for _, name := range capability.RequiredFields {
		if _, present := a.Data[name]; !present {
			missing = append(missing, name)
		}
	}
	return missing
}

// redirectSession sends the browser back to the session page with optional
// query parameters.
func redirectSession(w http.ResponseWriter, r *http.Request, params url.Values) {
	target := "/session"
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// errorMessage extracts a user-facing message from an error.
func errorMessage(err error) string {
	if prismErr, ok := err.(*errors.PrismError); ok {
		return prismErr.Message
	}
	return "an internal error occurred"
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
