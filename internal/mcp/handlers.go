package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/prismui/prism/internal/dispatch"
	"github.com/prismui/prism/internal/errors"
	"github.com/prismui/prism/internal/intent"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	registry *intent.Registry
	session  *dispatch.Session
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(registry *intent.Registry, session *dispatch.Session) *Handlers {
	return &Handlers{registry: registry, session: session}
}

// HandleCapability returns the handler for one capability tool. Every call
// runs a full dispatch cycle: the raw arguments are normalized into an
// activation, the activation is applied to the session, and if it is
// eligible for auto-promotion the capability executes immediately.
// Otherwise the pending state comes back so the client can fill in the
// missing fields or promote explicitly.
func (h *Handlers) HandleCapability(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		inv := &dispatch.Invocation{
			Capability: name,
			Arguments:  req.GetArguments(),
		}

		seq := h.session.BeginTurn()

		activation, err := dispatch.Normalize(inv, h.registry)
		if err != nil {
			h.session.Fallback()
			return errorResult(err), nil
		}

		if !h.session.Apply(seq, activation) {
			return errorResult(errors.NewConflict("turn superseded by a newer request")), nil
		}

		snap := h.session.Snapshot()
		if snap.Mode == dispatch.ModeFull || snap.CountdownRemaining > 0 {
			if err := h.session.PromoteNow(); err != nil {
				return errorResult(err), nil
			}
			result, err := h.session.Complete(ctx)
			if err != nil {
				return errorResult(err), nil
			}
			return successResult(map[string]any{
				"status":        "completed",
				"activation_id": activation.ID,
				"result":        result,
			})
		}

		return successResult(pendingPayload(h.registry, snap))
	}
}

// HandleStatus handles the dispatch_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := h.session.Snapshot()
	return successResult(statusPayload(h.registry, snap))
}

// HandlePromote handles the dispatch_promote tool call.
func (h *Handlers) HandlePromote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := h.session.Snapshot()
	if err := h.session.PromoteNow(); err != nil {
		return errorResult(err), nil
	}
	result, err := h.session.Complete(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	payload := map[string]any{
		"status": "completed",
		"result": result,
	}
	if snap.Activation != nil {
		payload["activation_id"] = snap.Activation.ID
	}
	return successResult(payload)
}

// HandleCancel handles the dispatch_cancel tool call.
func (h *Handlers) HandleCancel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.session.CancelCountdown()
	return successResult(statusPayload(h.registry, h.session.Snapshot()))
}

// HandleDismiss handles the dispatch_dismiss tool call.
func (h *Handlers) HandleDismiss(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.session.Dismiss()
	return successResult(statusPayload(h.registry, h.session.Snapshot()))
}

// statusPayload is the wire view of a session snapshot.
func statusPayload(registry *intent.Registry, snap dispatch.Snapshot) map[string]any {
	payload := map[string]any{"mode": string(snap.Mode)}
	if snap.Activation != nil {
		payload["activation"] = snap.Activation
		if missing := missingRequired(registry, snap.Activation); len(missing) > 0 {
			payload["missing_fields"] = missing
		}
	}
	if snap.CountdownRemaining > 0 {
		payload["countdown_remaining"] = snap.CountdownRemaining
	}
	return payload
}

// pendingPayload is statusPayload plus an explicit pending marker for a
// cycle that stopped short of execution.
func pendingPayload(registry *intent.Registry, snap dispatch.Snapshot) map[string]any {
	payload := statusPayload(registry, snap)
	payload["status"] = "pending"
	return payload
}

// missingRequired lists the capability's required fields absent from the
// activation's data.
func missingRequired(registry *intent.Registry, a *dispatch.Activation) []string {
	capability, ok := registry.Lookup(a.CapabilityID)
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

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if prismErr, ok := err.(*errors.PrismError); ok {
		errorObj := map[string]any{
			"code":    prismErr.Code,
			"message": prismErr.Message,
			"status":  prismErr.Status,
		}
		if prismErr.Code != errors.ErrInternal && prismErr.Details != nil {
			errorObj["details"] = prismErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
