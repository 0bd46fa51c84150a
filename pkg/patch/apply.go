package patch

import "github.com/clashdesk/clashdesk/pkg/snapshot"

// Apply replays the modification against target, mutating it in place.
//
// Group steps run in fixed order — add, modify, delete — so a name listed
// in both added and deleted ends up deleted. Rule steps run add, reorder,
// delete; a reorder replaces the rule list wholesale, discarding any rules
// added in the same pass that are not part of the recorded new order
// (reorder entries are only emitted when set membership was unchanged at
// diff time, so nothing real is lost).
//
// Missing groups or rules are never an error: deletes of absent entries
// are no-ops and modifications of absent groups insert the recorded new
// snapshot fresh. Structural validity is checked by Validate at load time.
func Apply(m *Modification, target *snapshot.Snapshot) {
	applyGroups(m, target)
	applyRules(m, target)
}

func applyGroups(m *Modification, target *snapshot.Snapshot) {
	// Add: first-writer-wins, existing names are left untouched.
	for _, g := range m.Groups.Added {
		if _, ok := target.FindGroup(g.Name); !ok {
			target.AddGroup(g.Clone())
		}
	}

	for _, gm := range m.Groups.Modified {
		g, ok := target.FindGroup(gm.Name)
		if !ok {
			if gm.New != nil {
				target.AddGroup(gm.New.Clone())
			}
			continue
		}

		// Union added proxies before subtracting deleted ones: a proxy
		// listed in both sets nets to removed.
		have := g.ProxySet()
		merged := append([]string(nil), g.Proxies...)
		for _, p := range gm.AddedProxies {
			if _, exists := have[p]; !exists {
				merged = append(merged, p)
				have[p] = struct{}{}
			}
		}
		if len(gm.DeletedProxies) > 0 {
			drop := stringSet(gm.DeletedProxies)
			kept := merged[:0]
			for _, p := range merged {
				if _, gone := drop[p]; !gone {
					kept = append(kept, p)
				}
			}
			merged = kept
		}
		g.Proxies = merged

		// A nil new value records a field that existed only in the old
		// snapshot; replaying it removes the field.
		for key, delta := range gm.FieldsChanged {
			if delta.New == nil {
				g.DeleteField(key)
			} else {
				g.SetField(key, delta.New)
			}
		}
	}

	for _, name := range m.Groups.Deleted {
		target.RemoveGroup(name)
	}
}

func applyRules(m *Modification, target *snapshot.Snapshot) {
	existing := stringSet(target.Rules)
	for _, r := range m.Rules.Added {
		if _, ok := existing[r]; !ok {
			target.Rules = append(target.Rules, r)
			existing[r] = struct{}{}
		}
	}

	// Last reorder wins, though by construction at most one exists.
	for _, reorder := range m.Rules.Modified {
		if reorder.Kind == ReorderKind {
			target.Rules = append([]string(nil), reorder.NewRules...)
		}
	}

	if len(m.Rules.Deleted) > 0 {
		drop := stringSet(m.Rules.Deleted)
		kept := target.Rules[:0]
		for _, r := range target.Rules {
			if _, gone := drop[r]; !gone {
				kept = append(kept, r)
			}
		}
		target.Rules = kept
	}
}
