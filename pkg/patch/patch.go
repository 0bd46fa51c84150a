// Package patch implements the structural diff/merge engine.
//
// A Modification is a named, immutable record of the delta between two
// configuration snapshots. Diff computes one; Apply replays one against an
// arbitrary current snapshot with field-level and set-level reconciliation
// rather than blind overwrite.
package patch

import (
	"errors"
	"fmt"
	"time"

	"github.com/clashdesk/clashdesk/pkg/snapshot"
)

// ErrMalformed marks structurally invalid modification records.
var ErrMalformed = errors.New("malformed modification")

// ReorderKind is the only recognized value for a rule "modified" entry.
const ReorderKind = "reorder"

// FieldDelta records an old/new pair for a changed group field.
type FieldDelta struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// GroupModification describes the in-place changes to one group. Old and
// New carry full before/after snapshots of the group so Apply can insert
// the group fresh when it has vanished from the target.
type GroupModification struct {
	Name           string                `json:"name"`
	AddedProxies   []string              `json:"added_proxies,omitempty"`
	DeletedProxies []string              `json:"deleted_proxies,omitempty"`
	FieldsChanged  map[string]FieldDelta `json:"fields_changed,omitempty"`
	Old            *snapshot.ProxyGroup  `json:"old,omitempty"`
	New            *snapshot.ProxyGroup  `json:"new,omitempty"`
}

// GroupChanges buckets group-level changes. A group name appears in
// exactly one of the three buckets.
type GroupChanges struct {
	Added    []*snapshot.ProxyGroup `json:"added,omitempty"`
	Modified []GroupModification    `json:"modified,omitempty"`
	Deleted  []string               `json:"deleted,omitempty"`
}

// RuleReorder captures a pure sequence-order change: same rule-string
// multiset, different order.
type RuleReorder struct {
	Kind     string   `json:"type"`
	OldRules []string `json:"old_rules"`
	NewRules []string `json:"new_rules"`
}

// RuleChanges buckets rule-level changes. Modified holds at most one
// reorder entry, and only when Added and Deleted are both empty.
type RuleChanges struct {
	Added    []string      `json:"added,omitempty"`
	Modified []RuleReorder `json:"modified,omitempty"`
	Deleted  []string      `json:"deleted,omitempty"`
}

// Modification is a persisted, named structural delta between two
// snapshots. Immutable once saved.
type Modification struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	Groups      GroupChanges `json:"proxy_groups"`
	Rules       RuleChanges  `json:"rules"`
}

// Empty reports whether the modification records no changes at all.
func (m *Modification) Empty() bool {
	return len(m.Groups.Added) == 0 &&
		len(m.Groups.Modified) == 0 &&
		len(m.Groups.Deleted) == 0 &&
		len(m.Rules.Added) == 0 &&
		len(m.Rules.Modified) == 0 &&
		len(m.Rules.Deleted) == 0
}

// Validate checks the structural requirements of a persisted record.
func (m *Modification) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: missing name", ErrMalformed)
	}
	if m.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing created_at", ErrMalformed)
	}
	for _, g := range m.Groups.Added {
		if g == nil || g.Name == "" {
			return fmt.Errorf("%w: added group without a name", ErrMalformed)
		}
	}
	for _, gm := range m.Groups.Modified {
		if gm.Name == "" {
			return fmt.Errorf("%w: modified group without a name", ErrMalformed)
		}
	}
	for _, r := range m.Rules.Modified {
		if r.Kind != ReorderKind {
			return fmt.Errorf("%w: unknown rule modification kind %q", ErrMalformed, r.Kind)
		}
		if r.NewRules == nil {
			return fmt.Errorf("%w: reorder entry without new_rules", ErrMalformed)
		}
	}
	return nil
}

// Summary is the change-count digest shown in modification listings.
type Summary struct {
	GroupsAdded    int `json:"groups_added"`
	GroupsModified int `json:"groups_modified"`
	GroupsDeleted  int `json:"groups_deleted"`
	RulesAdded     int `json:"rules_added"`
	RulesReordered int `json:"rules_reordered"`
	RulesDeleted   int `json:"rules_deleted"`
}

// Summarize returns the change-count digest for the modification.
func (m *Modification) Summarize() Summary {
	return Summary{
		GroupsAdded:    len(m.Groups.Added),
		GroupsModified: len(m.Groups.Modified),
		GroupsDeleted:  len(m.Groups.Deleted),
		RulesAdded:     len(m.Rules.Added),
		RulesReordered: len(m.Rules.Modified),
		RulesDeleted:   len(m.Rules.Deleted),
	}
}

// Total returns the number of recorded changes across all buckets.
func (s Summary) Total() int {
	return s.GroupsAdded + s.GroupsModified + s.GroupsDeleted +
		s.RulesAdded + s.RulesReordered + s.RulesDeleted
}
