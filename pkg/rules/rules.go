// Package rules models routing rules and the ordered-list edits applied to
// the working snapshot's rule sequence. Rules are evaluated first-match-wins
// by the consuming router, so list position is a first-class attribute.
package rules

import (
	"errors"
	"fmt"
	"strings"
)

// Editor failure modes. These surface as soft results at the API boundary.
var (
	ErrDuplicateRule   = errors.New("rule already exists")
	ErrIndexOutOfRange = errors.New("rule index out of range")
	ErrInvalidMove     = errors.New("cannot move rule in that direction")
)

// Rule is a routing directive. Its canonical form is the comma-joined
// token sequence produced by String; that string is the rule's identity
// for diff and dedup purposes.
type Rule struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Target    string `json:"proxy"`
	NoResolve bool   `json:"no_resolve,omitempty"`
}

// String renders the canonical comma-joined form, e.g.
// "DOMAIN-SUFFIX,example.com,Auto" or "IP-CIDR,10.0.0.0/8,DIRECT,no-resolve".
func (r Rule) String() string {
	parts := []string{r.Type, r.Value, r.Target}
	if r.NoResolve {
		parts = append(parts, "no-resolve")
	}
	return strings.Join(parts, ",")
}

// Parse splits a canonical rule string back into its tokens.
func Parse(s string) (Rule, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 3 {
		return Rule{}, fmt.Errorf("rule %q: expected at least 3 comma-separated tokens", s)
	}
	r := Rule{Type: parts[0], Value: parts[1], Target: parts[2]}
	if len(parts) > 3 && parts[3] == "no-resolve" {
		r.NoResolve = true
	}
	return r, nil
}

// Direction selects which neighbor a Swap exchanges with.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection validates a direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), nil
	}
	return "", fmt.Errorf("invalid direction %q", s)
}

// Insert appends the rule's canonical string to the list. Fails with
// ErrDuplicateRule when an identical string is already present.
func Insert(list []string, r Rule) ([]string, error) {
	s := r.String()
	for _, existing := range list {
		if existing == s {
			return list, fmt.Errorf("%w: %s", ErrDuplicateRule, s)
		}
	}
	return append(list, s), nil
}

// UpdateAt replaces the rule at index with r's canonical string.
func UpdateAt(list []string, index int, r Rule) ([]string, error) {
	if index < 0 || index >= len(list) {
		return list, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	list[index] = r.String()
	return list, nil
}

// DeleteAt removes the rule at index.
func DeleteAt(list []string, index int) ([]string, error) {
	if index < 0 || index >= len(list) {
		return list, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return append(list[:index], list[index+1:]...), nil
}

// Swap exchanges the rule at index with its neighbor in the given
// direction. Fails with ErrInvalidMove when the index is already at the
// boundary: index 0 for Up, the last index for Down.
func Swap(list []string, index int, dir Direction) ([]string, error) {
	if index < 0 || index >= len(list) {
		return list, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	switch dir {
	case Up:
		if index == 0 {
			return list, fmt.Errorf("%w: up from index 0", ErrInvalidMove)
		}
		list[index], list[index-1] = list[index-1], list[index]
	case Down:
		if index == len(list)-1 {
			return list, fmt.Errorf("%w: down from last index", ErrInvalidMove)
		}
		list[index], list[index+1] = list[index+1], list[index]
	default:
		return list, fmt.Errorf("invalid direction %q", dir)
	}
	return list, nil
}
