// Package models defines the domain types for notable.
package models

import (
	"strings"
	"time"
)

// Note is the single persisted record. Content is opaque markup and is
// stored exactly as received.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Matches reports whether lowerTerm occurs in the title or content,
// ignoring case. The caller lowercases the term once per query.
func (n Note) Matches(lowerTerm string) bool {
	return strings.Contains(strings.ToLower(n.Title), lowerTerm) ||
		strings.Contains(strings.ToLower(n.Content), lowerTerm)
}
