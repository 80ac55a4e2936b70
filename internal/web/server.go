package web

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prismui/prism/internal/catalog"
	"github.com/prismui/prism/internal/config"
	"github.com/prismui/prism/internal/dispatch"
	"github.com/prismui/prism/internal/llm"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates and configures the HTTP server for the Prism web UI.
func NewServer(db *sql.DB, cfg *config.Config, version, bind string, port int) (*http.Server, error) {
	registry, err := catalog.Build(db, cfg)
	if err != nil {
		return nil, err
	}

	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		log.Fatalf("failed to create template sub-FS: %v", err)
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Fatalf("failed to create static sub-FS: %v", err)
	}

	h := &Handlers{
		db:       db,
		cfg:      cfg,
		registry: registry,
		session:  dispatch.NewSession(registry, cfg),
		llm:      llm.New(cfg),
		renderer: NewRenderer(templateSub, version),
	}

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", bind, port),
		Handler: newMux(h, staticSub),
	}, nil
}

// newMux wires the route table. Split out so tests can drive handlers with
// their own dependencies.
func newMux(h *Handlers, staticSub fs.FS) http.Handler {
	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/session", http.StatusFound)
	})
	mux.HandleFunc("GET /session", h.HandleSession)
	mux.HandleFunc("GET /session/state", h.HandleState)
	mux.HandleFunc("POST /session/chat", h.HandleChat)
	mux.HandleFunc("POST /session/promote", h.HandlePromote)
	mux.HandleFunc("POST /session/cancel", h.HandleCancel)
	mux.HandleFunc("POST /session/dismiss", h.HandleDismiss)
	mux.HandleFunc("GET /tasks", h.HandleTasks)
	mux.HandleFunc("GET /tasks/{id}", h.HandleTaskDetail)
	mux.HandleFunc("POST /tasks/{id}/complete", h.HandleTaskComplete)
	mux.HandleFunc("DELETE /tasks/{id}", h.HandleTaskDelete)
	mux.HandleFunc("GET /notes", h.HandleNotes)

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return securityHeaders(mux)
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("Prism UI running at http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Printf("WARNING: Server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
