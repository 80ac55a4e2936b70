package mcp

import (
	"database/sql"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/prismui/prism/internal/catalog"
	"github.com/prismui/prism/internal/config"
	"github.com/prismui/prism/internal/dispatch"
	"github.com/prismui/prism/internal/intent"
)

// controlEntry pairs a dispatch control tool with a handler factory.
type controlEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// controlRegistry maps the session control tools. These operate on the
// dispatch state machine rather than on any one capability, so they are
// always registered.
var controlRegistry = map[string]controlEntry{
	"dispatch_status": {
		def: mcp.NewTool("dispatch_status",
			mcp.WithDescription("Show the current dispatch state: display mode, pending activation, and countdown."),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
	"dispatch_promote": {
		def: mcp.NewTool("dispatch_promote",
			mcp.WithDescription("Promote the pending activation immediately and execute its capability."),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePromote },
	},
	"dispatch_cancel": {
		def: mcp.NewTool("dispatch_cancel",
			mcp.WithDescription("Cancel the pending auto-promotion countdown. The activation stays in summary."),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCancel },
	},
	"dispatch_dismiss": {
		def: mcp.NewTool("dispatch_dismiss",
			mcp.WithDescription("Discard the pending activation without executing it."),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDismiss },
	},
}

// capabilityToolDef converts a capability descriptor to an MCP tool
// definition. Field order follows the descriptor's declaration order.
func capabilityToolDef(c *intent.Capability) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(c.Description)}
	for _, f := range c.Fields {
		var propOpts []mcp.PropertyOption
		if f.Description != "" {
			propOpts = append(propOpts, mcp.Description(f.Description))
		}
		if c.IsRequired(f.Name) {
			propOpts = append(propOpts, mcp.Required())
		}
		switch f.Kind {
		case intent.KindNumber:
			opts = append(opts, mcp.WithNumber(f.Name, propOpts...))
		case intent.KindBool:
			opts = append(opts, mcp.WithBoolean(f.Name, propOpts...))
		case intent.KindEnum:
			propOpts = append(propOpts, mcp.Enum(f.AllowedValues...))
			opts = append(opts, mcp.WithString(f.Name, propOpts...))
		default:
			opts = append(opts, mcp.WithString(f.Name, propOpts...))
		}
	}
	return mcp.NewTool(c.Identifier, opts...)
}

// NewServer creates an MCP server exposing every registered capability as a
// tool, plus the dispatch control tools. Capabilities disabled in config
// never reach the registry and therefore never appear here.
func NewServer(db *sql.DB, cfg *config.Config, version string) (*server.MCPServer, error) {
	registry, err := catalog.Build(db, cfg)
	if err != nil {
		return nil, err
	}

	s := server.NewMCPServer(
		"prism",
		version,
		server.WithToolCapabilities(true),
	)

	session := dispatch.NewSession(registry, cfg)
	h := NewHandlers(registry, session)

	for _, c := range registry.All() {
		s.AddTool(capabilityToolDef(c), h.HandleCapability(c.Identifier))
	}
	for _, entry := range controlRegistry {
		s.AddTool(entry.def, entry.handler(h))
	}

	return s, nil
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, version string) error {
	s, err := NewServer(db, cfg, version)
	if err != nil {
		return err
	}
	return server.ServeStdio(s)
}
