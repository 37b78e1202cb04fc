package domain

import (
	"slices"
	"strings"
)

// GroupID identifies a tool group.
type GroupID string

func (g GroupID) String() string { return string(g) }

// ToolGroup is a named partition of the procedure catalog.
type ToolGroup struct {
	ID          GroupID  `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases,omitempty"`
	Members     []string `json:"members"`
}

// ProfileName identifies a session profile.
type ProfileName string

// SessionProfile is a named bundle of groups enabled at session start.
type SessionProfile struct {
	Name        ProfileName `json:"name"`
	Description string      `json:"description"`
	Aliases     []string    `json:"aliases,omitempty"`
	Groups      []GroupID   `json:"groups"`
}

// VisibilitySet is an ordered, duplicate-free list of enabled groups.
type VisibilitySet []GroupID

// NewVisibilitySet builds a set from ids, dropping duplicates.
func NewVisibilitySet(ids ...GroupID) VisibilitySet {
	out := make(VisibilitySet, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// Contains reports whether id is in the set.
func (s VisibilitySet) Contains(id GroupID) bool {
	return slices.Contains(s, id)
}

// Sorted returns a sorted copy of the set.
func (s VisibilitySet) Sorted() VisibilitySet {
	out := slices.Clone(s)
	slices.Sort(out)
	return out
}

// NormalizeName folds a user-supplied group or profile name for lookups.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, "-", "_")
}
