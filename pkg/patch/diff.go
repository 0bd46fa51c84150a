package patch

import (
	"sort"
	"time"

	"github.com/clashdesk/clashdesk/pkg/snapshot"
)

// Diff computes the structural delta between the base and working
// snapshots. It is pure and order-stable: identical inputs always yield
// the identical modification (up to CreatedAt).
func Diff(base, working *snapshot.Snapshot, name, description string) *Modification {
	m := &Modification{
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	diffGroups(base, working, m)
	diffRules(base.Rules, working.Rules, m)
	return m
}

func diffGroups(base, working *snapshot.Snapshot, m *Modification) {
	baseByName := make(map[string]*snapshot.ProxyGroup, len(base.Groups))
	for _, g := range base.Groups {
		baseByName[g.Name] = g
	}
	workingNames := make(map[string]struct{}, len(working.Groups))

	// Working order drives added and modified entries.
	for _, wg := range working.Groups {
		workingNames[wg.Name] = struct{}{}
		bg, ok := baseByName[wg.Name]
		if !ok {
			m.Groups.Added = append(m.Groups.Added, wg.Clone())
			continue
		}
		if gm, changed := diffGroup(bg, wg); changed {
			m.Groups.Modified = append(m.Groups.Modified, gm)
		}
	}

	// Base order drives deleted entries.
	for _, bg := range base.Groups {
		if _, ok := workingNames[bg.Name]; !ok {
			m.Groups.Deleted = append(m.Groups.Deleted, bg.Name)
		}
	}
}

// diffGroup compares one group present in both snapshots. A modified entry
// is emitted only when the delta body is non-empty; equal-but-reordered
// proxy lists and untouched fields produce nothing.
func diffGroup(base, working *snapshot.ProxyGroup) (GroupModification, bool) {
	gm := GroupModification{Name: working.Name}

	baseSet, workingSet := base.ProxySet(), working.ProxySet()
	for _, p := range working.Proxies {
		if _, ok := baseSet[p]; !ok {
			gm.AddedProxies = append(gm.AddedProxies, p)
		}
	}
	for _, p := range base.Proxies {
		if _, ok := workingSet[p]; !ok {
			gm.DeletedProxies = append(gm.DeletedProxies, p)
		}
	}

	for _, key := range unionKeys(base.Extra, working.Extra) {
		bv, bok := base.Field(key)
		wv, wok := working.Field(key)
		if bok && wok && snapshot.EqualValues(bv, wv) {
			continue
		}
		if gm.FieldsChanged == nil {
			gm.FieldsChanged = make(map[string]FieldDelta)
		}
		gm.FieldsChanged[key] = FieldDelta{Old: bv, New: wv}
	}

	if len(gm.AddedProxies) == 0 && len(gm.DeletedProxies) == 0 && len(gm.FieldsChanged) == 0 {
		return GroupModification{}, false
	}
	gm.Old = base.Clone()
	gm.New = working.Clone()
	return gm, true
}

func unionKeys(a, b map[string]any) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func diffRules(base, working []string, m *Modification) {
	baseSet := stringSet(base)
	workingSet := stringSet(working)

	for _, r := range working {
		if _, ok := baseSet[r]; !ok {
			m.Rules.Added = append(m.Rules.Added, r)
		}
	}
	for _, r := range base {
		if _, ok := workingSet[r]; !ok {
			m.Rules.Deleted = append(m.Rules.Deleted, r)
		}
	}

	// A reorder entry is recorded only for a pure order change: identical
	// rule multisets, different sequences. Order changes that co-occur
	// with additions or deletions are not separately tracked.
	if len(m.Rules.Added) == 0 && len(m.Rules.Deleted) == 0 &&
		sameMultiset(base, working) && !sameSequence(base, working) {
		m.Rules.Modified = append(m.Rules.Modified, RuleReorder{
			Kind:     ReorderKind,
			OldRules: append([]string(nil), base...),
			NewRules: append([]string(nil), working...),
		})
	}
}

func stringSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, s := range list {
		set[s] = struct{}{}
	}
	return set
}

func sameSequence(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameMultiset(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, s := range a {
		counts[s]++
	}
	for _, s := range b {
		counts[s]--
		if counts[s] < 0 {
			return false
		}
	}
	return true
}
