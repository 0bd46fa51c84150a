// Package snapshot models a clash-style proxy configuration document.
//
// A snapshot carries the two sections the engine understands — proxy-groups
// and rules — plus every other top-level field (ports, dns, proxies, ...)
// as opaque passthrough that must survive a load/save round-trip
// unmodified and in document order.
package snapshot

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrInvalidYAML wraps YAML syntax errors from Parse.
var ErrInvalidYAML = errors.New("invalid YAML syntax")

// Snapshot is a full configuration document.
type Snapshot struct {
	Groups []*ProxyGroup
	Rules  []string

	// keys is the top-level key order as decoded, including the
	// "proxy-groups" and "rules" markers, so Encode re-emits the document
	// in its original shape.
	keys  []string
	extra map[string]*yaml.Node
}

const (
	keyGroups = "proxy-groups"
	keyRules  = "rules"
)

// New returns an empty snapshot.
func New() *Snapshot {
	return &Snapshot{}
}

// Parse decodes a YAML document into a Snapshot.
func Parse(data []byte) (*Snapshot, error) {
	s := New()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return s, nil
}

// Encode serializes the snapshot back to YAML.
func (s *Snapshot) Encode() ([]byte, error) {
	return yaml.Marshal(s)
}

// Clone returns a deep, independent copy of the snapshot.
func (s *Snapshot) Clone() (*Snapshot, error) {
	data, err := s.Encode()
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// AsMap renders the full document, passthrough included, as a plain map
// for JSON serialization at the API boundary.
func (s *Snapshot) AsMap() (map[string]any, error) {
	data, err := s.Encode()
	if err != nil {
		return nil, err
	}
	m := make(map[string]any)
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// FindGroup returns the group with the given name.
func (s *Snapshot) FindGroup(name string) (*ProxyGroup, bool) {
	for _, g := range s.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

// AddGroup appends a group to the snapshot.
func (s *Snapshot) AddGroup(g *ProxyGroup) {
	s.Groups = append(s.Groups, g)
}

// ReplaceGroup swaps the group named name for g, keeping list position.
// Returns false when no group has that name.
func (s *Snapshot) ReplaceGroup(name string, g *ProxyGroup) bool {
	for i, existing := range s.Groups {
		if existing.Name == name {
			s.Groups[i] = g
			return true
		}
	}
	return false
}

// RemoveGroup deletes the group named name. Returns false when absent.
func (s *Snapshot) RemoveGroup(name string) bool {
	for i, g := range s.Groups {
		if g.Name == name {
			s.Groups = append(s.Groups[:i], s.Groups[i+1:]...)
			return true
		}
	}
	return false
}

// GroupNames returns group names in document order.
func (s *Snapshot) GroupNames() []string {
	names := make([]string, len(s.Groups))
	for i, g := range s.Groups {
		names[i] = g.Name
	}
	return names
}

// ProxyNames extracts the node names from the passthrough "proxies"
// section. Returns nil when the section is absent.
func (s *Snapshot) ProxyNames() []string {
	node, ok := s.extra["proxies"]
	if !ok {
		return nil
	}
	var entries []struct {
		Name string `yaml:"name"`
	}
	if err := node.Decode(&entries); err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}

// UnmarshalYAML decodes the document, splitting proxy-groups and rules
// from passthrough fields.
func (s *Snapshot) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!null" {
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("configuration must be a mapping, got %s", value.Tag)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i].Value, value.Content[i+1]
		s.keys = append(s.keys, key)
		switch key {
		case keyGroups:
			if err := val.Decode(&s.Groups); err != nil {
				return fmt.Errorf("proxy-groups: %w", err)
			}
		case keyRules:
			if err := val.Decode(&s.Rules); err != nil {
				return fmt.Errorf("rules: %w", err)
			}
		default:
			if s.extra == nil {
				s.extra = make(map[string]*yaml.Node)
			}
			s.extra[key] = val
		}
	}
	return nil
}

// MarshalYAML re-emits the document with its original key order.
// Sections created in memory after decode are appended at the end.
func (s *Snapshot) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	appendKey := func(key string, vn *yaml.Node) {
		var kn yaml.Node
		kn.SetString(key)
		node.Content = append(node.Content, &kn, vn)
	}

	keys := s.keys
	if s.Groups != nil && !contains(keys, keyGroups) {
		keys = append(keys, keyGroups)
	}
	if s.Rules != nil && !contains(keys, keyRules) {
		keys = append(keys, keyRules)
	}

	for _, key := range keys {
		switch key {
		case keyGroups:
			var vn yaml.Node
			if err := vn.Encode(s.Groups); err != nil {
				return nil, err
			}
			appendKey(key, &vn)
		case keyRules:
			var vn yaml.Node
			if err := vn.Encode(s.Rules); err != nil {
				return nil, err
			}
			appendKey(key, &vn)
		default:
			if vn, ok := s.extra[key]; ok {
				appendKey(key, vn)
			}
		}
	}
	return node, nil
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
