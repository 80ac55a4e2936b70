// Package ops implements the durable task and note operations capability
// executors call. Each operation takes an Input struct, validates it,
// touches the store, and returns an Output struct or a typed error.
package ops

import (
	"crypto/rand"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/prismui/prism/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Priorities lists the legal task priority values, in escalation order.
var Priorities = []string{"low", "medium", "high"}

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeTitle normalizes a task title for addressing:
// trim, lowercase, collapse internal whitespace to single spaces.
func NormalizeTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return s
}

// ValidPriority reports whether p is a legal priority value.
func ValidPriority(p string) bool {
	for _, known := range Priorities {
		if known == p {
			return true
		}
	}
	return false
}

// clampLimit applies default and maximum list limits.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// resolveAddress validates id/title addressing: exactly one must be given.
func resolveAddress(id, title string) (byID bool, key string, err error) {
	id = strings.TrimSpace(id)
	title = strings.TrimSpace(title)

	if id != "" && title != "" {
		return false, "", errors.NewInvalidRequest("cannot specify both id and title; use one addressing mode")
	}
	if id != "" {
		return true, id, nil
	}
	if title == "" {
		return false, "", errors.NewInvalidRequest("must specify either id or title")
	}
	return false, NormalizeTitle(title), nil
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
