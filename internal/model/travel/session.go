package travel

import (
	"strings"
	"time"
)

// Turn is one user message and its classification. Turns are append-only;
// insertion order is the conversation order.
type Turn struct {
	Query          string         `json:"query"`
	Classification Classification `json:"classification"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Session captures a user's ongoing conversation with accumulated context.
type Session struct {
	ID         string    `json:"id"`
	Turns      []Turn    `json:"turns"`
	Context    Context   `json:"context"`
	CreatedAt  time.Time `json:"createdAt"`
	LastAccess time.Time `json:"lastAccess"`
}

// Context accumulates merged category values across all turns of a session.
// Values behave as a set under case-insensitive trim equality, but keep the
// position of their first appearance for presentation.
type Context map[string][]string

// NormalizeValue is the equality key for context values.
func NormalizeValue(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// Merge unions the classification categories into the context. A value seen
// in an earlier turn keeps its earlier position; nothing is ever dropped.
// Merging the same categories twice is a no-op.
func (c Context) Merge(categories map[string][]string) {
	for category, values := range categories {
		for _, v := range values {
			c.add(category, v)
		}
	}
}

// Replace discards everything known for a category and installs the new
// values. Used when the caller decides earlier values no longer apply, e.g.
// the user switched destinations.
func (c Context) Replace(category string, values []string) {
	merged := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		norm := NormalizeValue(v)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		merged = append(merged, strings.TrimSpace(v))
	}
	if len(merged) == 0 {
		delete(c, category)
		return
	}
	c[category] = merged
}

func (c Context) add(category, value string) {
	norm := NormalizeValue(value)
	if norm == "" {
		return
	}
	for _, existing := range c[category] {
		if NormalizeValue(existing) == norm {
			return
		}
	}
	c[category] = append(c[category], strings.TrimSpace(value))
}

// Has reports whether the context holds at least one value for the category.
func (c Context) Has(category string) bool {
	return len(c[category]) > 0
}

// First returns the most recently useful value for a category: the first
// recorded one, since earlier statements keep precedence under merge.
func (c Context) First(category string) (string, bool) {
	values := c[category]
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// Clone returns a deep copy safe to hand out to callers.
func (c Context) Clone() Context {
	if c == nil {
		return Context{}
	}
	copied := make(Context, len(c))
	for category, values := range c {
		copied[category] = append([]string(nil), values...)
	}
	return copied
}
