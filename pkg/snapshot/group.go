package snapshot

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// ProxyGroup is a named routing target bundle. Name is the identity key
// within a snapshot. Proxies is set-shaped for merge purposes even though
// it is list-shaped on disk. Every other group field (type, url, interval,
// strategy knobs) is carried opaquely in Extra.
type ProxyGroup struct {
	Name    string
	Proxies []string
	Extra   map[string]any

	// extraOrder remembers the on-disk order of Extra keys so a decoded
	// group re-serializes the way it came in.
	extraOrder []string
}

// GroupFromMap builds a ProxyGroup from a flattened field map, the shape
// the HTTP layer receives. Unknown fields land in Extra.
func GroupFromMap(m map[string]any) *ProxyGroup {
	g := &ProxyGroup{}
	for k, v := range m {
		switch k {
		case "name":
			if s, ok := v.(string); ok {
				g.Name = s
			}
		case "proxies":
			g.Proxies = toStringSlice(v)
		default:
			g.setExtra(k, v)
		}
	}
	sort.Strings(g.extraOrder)
	return g
}

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...)
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (g *ProxyGroup) setExtra(key string, v any) {
	if g.Extra == nil {
		g.Extra = make(map[string]any)
	}
	if _, exists := g.Extra[key]; !exists {
		g.extraOrder = append(g.extraOrder, key)
	}
	g.Extra[key] = v
}

// SetField sets a non-identity field on the group, preserving key order.
func (g *ProxyGroup) SetField(key string, v any) {
	switch key {
	case "name":
		if s, ok := v.(string); ok {
			g.Name = s
		}
	case "proxies":
		g.Proxies = toStringSlice(v)
	default:
		g.setExtra(key, v)
	}
}

// DeleteField removes a non-identity field from the group.
func (g *ProxyGroup) DeleteField(key string) {
	if _, ok := g.Extra[key]; !ok {
		return
	}
	delete(g.Extra, key)
	for i, k := range g.extraOrder {
		if k == key {
			g.extraOrder = append(g.extraOrder[:i], g.extraOrder[i+1:]...)
			break
		}
	}
}

// Field returns a non-identity field value and whether it is present.
func (g *ProxyGroup) Field(key string) (any, bool) {
	v, ok := g.Extra[key]
	return v, ok
}

// ProxySet returns the membership set of the group's proxies.
func (g *ProxyGroup) ProxySet() map[string]struct{} {
	set := make(map[string]struct{}, len(g.Proxies))
	for _, p := range g.Proxies {
		set[p] = struct{}{}
	}
	return set
}

// Equal reports whether two groups match on name, proxy membership
// (order-insensitive) and all other fields.
func (g *ProxyGroup) Equal(o *ProxyGroup) bool {
	if g == nil || o == nil {
		return g == o
	}
	if g.Name != o.Name {
		return false
	}
	gs, os := g.ProxySet(), o.ProxySet()
	if len(gs) != len(os) {
		return false
	}
	for p := range gs {
		if _, ok := os[p]; !ok {
			return false
		}
	}
	if len(g.Extra) != len(o.Extra) {
		return false
	}
	for k, v := range g.Extra {
		ov, ok := o.Extra[k]
		if !ok || !EqualValues(v, ov) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the group.
func (g *ProxyGroup) Clone() *ProxyGroup {
	if g == nil {
		return nil
	}
	c := &ProxyGroup{
		Name:       g.Name,
		Proxies:    append([]string(nil), g.Proxies...),
		extraOrder: append([]string(nil), g.extraOrder...),
	}
	if g.Extra != nil {
		c.Extra = make(map[string]any, len(g.Extra))
		for k, v := range g.Extra {
			c.Extra[k] = copyValue(v)
		}
	}
	return c
}

// extraKeys returns the Extra keys in serialization order.
func (g *ProxyGroup) extraKeys() []string {
	if len(g.extraOrder) == len(g.Extra) {
		return g.extraOrder
	}
	keys := make([]string, 0, len(g.Extra))
	for k := range g.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnmarshalYAML decodes a group mapping, splitting name and proxies from
// the opaque remainder.
func (g *ProxyGroup) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("proxy group must be a mapping, got %s", value.Tag)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i].Value, value.Content[i+1]
		switch key {
		case "name":
			if err := val.Decode(&g.Name); err != nil {
				return fmt.Errorf("proxy group name: %w", err)
			}
		case "proxies":
			if err := val.Decode(&g.Proxies); err != nil {
				return fmt.Errorf("proxy group %q proxies: %w", g.Name, err)
			}
		default:
			var v any
			if err := val.Decode(&v); err != nil {
				return fmt.Errorf("proxy group field %q: %w", key, err)
			}
			g.setExtra(key, v)
		}
	}
	return nil
}

// MarshalYAML emits name first, the opaque fields in their recorded order,
// and proxies last.
func (g *ProxyGroup) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	appendPair := func(key string, v any) error {
		var kn, vn yaml.Node
		kn.SetString(key)
		if err := vn.Encode(v); err != nil {
			return err
		}
		node.Content = append(node.Content, &kn, &vn)
		return nil
	}
	if err := appendPair("name", g.Name); err != nil {
		return nil, err
	}
	for _, k := range g.extraKeys() {
		if err := appendPair(k, g.Extra[k]); err != nil {
			return nil, err
		}
	}
	if g.Proxies != nil {
		if err := appendPair("proxies", g.Proxies); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// MarshalJSON flattens the group into a single object, the wire shape of
// the HTTP API and persisted patches.
func (g *ProxyGroup) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(g.Extra)+2)
	for k, v := range g.Extra {
		m[k] = v
	}
	m["name"] = g.Name
	if g.Proxies != nil {
		m["proxies"] = g.Proxies
	}
	return json.Marshal(m)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (g *ProxyGroup) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*g = *GroupFromMap(m)
	return nil
}

// copyValue deep-copies the plain values produced by YAML/JSON decoding.
func copyValue(v any) any {
	switch vv := v.(type) {
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = copyValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, e := range vv {
			out[k] = copyValue(e)
		}
		return out
	case []string:
		return append([]string(nil), vv...)
	default:
		return v
	}
}
