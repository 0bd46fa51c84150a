// Package manager coordinates the configuration lifecycle: the working
// snapshot and its edits, named modifications, subscription refresh and
// merged export.
//
// Mutating operations report soft Results instead of errors. The engine
// packages below return sentinel errors; the manager is the boundary that
// translates them into {success, message} values, so a missing group or a
// bad rule index never propagates as a failure to the transport layer.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clashdesk/clashdesk/pkg/patch"
	"github.com/clashdesk/clashdesk/pkg/rules"
	"github.com/clashdesk/clashdesk/pkg/snapshot"
	"github.com/clashdesk/clashdesk/pkg/store"
)

// Result is the outcome of a mutating operation.
type Result struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Filename string `json:"filename,omitempty"`
}

func ok(format string, args ...any) Result {
	return Result{Success: true, Message: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// Fetcher downloads a subscription document. Implemented by
// subscription.Client.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Manager owns the snapshot lifecycle on top of a Store.
type Manager struct {
	store   store.Store
	fetcher Fetcher
	log     *slog.Logger
	now     func() time.Time
}

// New creates a Manager. fetcher may be nil when subscription refresh is
// not needed (CLI-only usage).
func New(st store.Store, fetcher Fetcher, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: st, fetcher: fetcher, log: log, now: time.Now}
}

// Working returns the current working snapshot.
func (m *Manager) Working() (*snapshot.Snapshot, error) {
	return m.store.LoadWorking()
}

// ProxyNames lists proxy node names from the working snapshot's
// passthrough proxies section.
func (m *Manager) ProxyNames() ([]string, error) {
	snap, err := m.store.LoadWorking()
	if err != nil {
		return nil, err
	}
	names := snap.ProxyNames()
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Groups lists the working snapshot's proxy groups in document order.
func (m *Manager) Groups() ([]*snapshot.ProxyGroup, error) {
	snap, err := m.store.LoadWorking()
	if err != nil {
		return nil, err
	}
	return snap.Groups, nil
}

// Rules lists the working snapshot's rule sequence.
func (m *Manager) Rules() ([]string, error) {
	snap, err := m.store.LoadWorking()
	if err != nil {
		return nil, err
	}
	return snap.Rules, nil
}

// mutate loads the working snapshot, applies fn and persists the result.
// fn returning a failed Result leaves the snapshot unsaved, so every edit
// is all-or-nothing.
func (m *Manager) mutate(fn func(*snapshot.Snapshot) Result) Result {
	snap, err := m.store.LoadWorking()
	if err != nil {
		return fail("load working configuration: %v", err)
	}
	res := fn(snap)
	if !res.Success {
		return res
	}
	if err := m.store.SaveWorking(snap); err != nil {
		return fail("save working configuration: %v", err)
	}
	return res
}

// AddGroup appends a new proxy group. Fails softly on a name collision.
func (m *Manager) AddGroup(g *snapshot.ProxyGroup) Result {
	if g == nil || g.Name == "" {
		return fail("proxy group requires a name")
	}
	return m.mutate(func(snap *snapshot.Snapshot) Result {
		if _, exists := snap.FindGroup(g.Name); exists {
			return fail("proxy group %q already exists", g.Name)
		}
		snap.AddGroup(g)
		m.log.Info("proxy group added", "name", g.Name)
		return ok("proxy group %q added", g.Name)
	})
}

// UpdateGroup replaces the group named oldName with g, keeping its list
// position. When oldName is empty the group's own name is used. A rename
// that collides with another existing group fails softly.
func (m *Manager) UpdateGroup(oldName string, g *snapshot.ProxyGroup) Result {
	if g == nil || g.Name == "" {
		return fail("proxy group requires a name")
	}
	if oldName == "" {
		oldName = g.Name
	}
	return m.mutate(func(snap *snapshot.Snapshot) Result {
		if g.Name != oldName {
			if _, exists := snap.FindGroup(g.Name); exists {
				return fail("proxy group %q already exists", g.Name)
			}
		}
		if !snap.ReplaceGroup(oldName, g) {
			return fail("proxy group %q not found", oldName)
		}
		m.log.Info("proxy group updated", "name", g.Name, "old_name", oldName)
		return ok("proxy group %q updated", g.Name)
	})
}

// DeleteGroup removes the named group.
func (m *Manager) DeleteGroup(name string) Result {
	return m.mutate(func(snap *snapshot.Snapshot) Result {
		if !snap.RemoveGroup(name) {
			return fail("proxy group %q not found", name)
		}
		m.log.Info("proxy group deleted", "name", name)
		return ok("proxy group %q deleted", name)
	})
}

// AddRule appends a routing rule. Fails softly when the identical rule
// string is already present.
func (m *Manager) AddRule(r rules.Rule) Result {
	return m.mutate(func(snap *snapshot.Snapshot) Result {
		list, err := rules.Insert(snap.Rules, r)
		if err != nil {
			return fail("%v", err)
		}
		snap.Rules = list
		m.log.Info("rule added", "rule", r.String())
		return ok("rule added")
	})
}

// UpdateRule replaces the rule at index.
func (m *Manager) UpdateRule(index int, r rules.Rule) Result {
	return m.mutate(func(snap *snapshot.Snapshot) Result {
		list, err := rules.UpdateAt(snap.Rules, index, r)
		if err != nil {
			return fail("%v", err)
		}
		snap.Rules = list
		return ok("rule updated")
	})
}

// DeleteRule removes the rule at index.
func (m *Manager) DeleteRule(index int) Result {
	return m.mutate(func(snap *snapshot.Snapshot) Result {
		list, err := rules.DeleteAt(snap.Rules, index)
		if err != nil {
			return fail("%v", err)
		}
		snap.Rules = list
		return ok("rule deleted")
	})
}

// MoveRule swaps the rule at index with its neighbor in the given
// direction.
func (m *Manager) MoveRule(index int, dir rules.Direction) Result {
	return m.mutate(func(snap *snapshot.Snapshot) Result {
		list, err := rules.Swap(snap.Rules, index, dir)
		if err != nil {
			return fail("%v", err)
		}
		snap.Rules = list
		return ok("rule moved %s", dir)
	})
}

// SaveModification diffs the working snapshot against the original and
// persists the delta under the given name. An empty delta is a soft
// failure; nothing is written.
func (m *Manager) SaveModification(name, description string) Result {
	if name == "" {
		return fail("modification requires a name")
	}
	base, err := m.store.LoadOriginal()
	if err != nil {
		return fail("load original configuration: %v", err)
	}
	working, err := m.store.LoadWorking()
	if err != nil {
		return fail("load working configuration: %v", err)
	}

	mod := patch.Diff(base, working, name, description)
	mod.CreatedAt = m.now()
	if mod.Empty() {
		return fail("no changes to save")
	}

	id, err := m.store.SavePatch(mod)
	if err != nil {
		return fail("save modification: %v", err)
	}
	m.log.Info("modification saved", "id", id, "changes", mod.Summarize().Total())
	res := ok("modification %q saved", name)
	res.Filename = id
	return res
}

// ListModifications returns saved modification summaries, newest first.
func (m *Manager) ListModifications() ([]store.Summary, error) {
	return m.store.ListPatches()
}

// ApplyModification replays a saved modification against the current
// working snapshot and persists the result.
func (m *Manager) ApplyModification(filename string) Result {
	mod, err := m.store.LoadPatch(filename)
	if err != nil {
		return fail("load modification: %v", err)
	}
	return m.mutate(func(snap *snapshot.Snapshot) Result {
		patch.Apply(mod, snap)
		m.log.Info("modification applied", "id", filename)
		return ok("modification %q applied", mod.Name)
	})
}

// DeleteModification removes a saved modification.
func (m *Manager) DeleteModification(filename string) Result {
	if err := m.store.DeletePatch(filename); err != nil {
		return fail("delete modification: %v", err)
	}
	m.log.Info("modification deleted", "id", filename)
	return ok("modification deleted")
}

// RefreshSubscription downloads a fresh configuration from url and
// replaces the original snapshot wholesale. The working snapshot is left
// untouched; saved modifications can be replayed against it afterwards.
func (m *Manager) RefreshSubscription(ctx context.Context, url string) Result {
	if url == "" {
		return fail("subscription URL required")
	}
	if m.fetcher == nil {
		return fail("subscription refresh not configured")
	}

	data, err := m.fetcher.Fetch(ctx, url)
	if err != nil {
		return fail("fetch subscription: %v", err)
	}
	snap, err := snapshot.Parse(data)
	if err != nil {
		return fail("parse subscription: %v", err)
	}
	if err := m.store.SaveOriginal(snap); err != nil {
		return fail("save original configuration: %v", err)
	}
	m.log.Info("subscription refreshed", "url", url, "groups", len(snap.Groups), "rules", len(snap.Rules))
	return ok("subscription updated")
}

// Export renders the working snapshot as YAML text for the consuming
// router.
func (m *Manager) Export() (string, error) {
	snap, err := m.store.LoadWorking()
	if err != nil {
		return "", err
	}
	data, err := snap.Encode()
	if err != nil {
		return "", err
	}
	return string(data), nil
}
