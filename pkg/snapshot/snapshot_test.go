package snapshot

import (
	"strings"
	"testing"
)

const sampleConfig = `port: 7890
socks-port: 7891
allow-lan: false
dns:
  enable: true
  nameserver:
    - 1.1.1.1
proxies:
  - name: p1
    type: ss
    server: a.example.com
    port: 443
  - name: p2
    type: ss
    server: b.example.com
    port: 443
proxy-groups:
  - name: Auto
    type: url-test
    url: http://www.gstatic.com/generate_204
    interval: 300
    proxies:
      - p1
      - p2
rules:
  - DOMAIN,x.com,Auto
  - MATCH,,DIRECT
`

func mustParse(t *testing.T, doc string) *Snapshot {
	t.Helper()
	s, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	return s
}

func TestParse_SplitsSections(t *testing.T) {
	s := mustParse(t, sampleConfig)

	if len(s.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(s.Groups))
	}
	g := s.Groups[0]
	if g.Name != "Auto" {
		t.Errorf("group name: got %q", g.Name)
	}
	if len(g.Proxies) != 2 || g.Proxies[0] != "p1" || g.Proxies[1] != "p2" {
		t.Errorf("group proxies: got %v", g.Proxies)
	}
	if v, ok := g.Field("type"); !ok || v != "url-test" {
		t.Errorf("group type field: got %v", v)
	}
	if v, ok := g.Field("interval"); !ok || !EqualValues(v, 300) {
		t.Errorf("group interval field: got %v", v)
	}

	if len(s.Rules) != 2 || s.Rules[0] != "DOMAIN,x.com,Auto" {
		t.Errorf("rules: got %v", s.Rules)
	}
}

func TestEncode_PreservesPassthroughAndOrder(t *testing.T) {
	s := mustParse(t, sampleConfig)

	out, err := s.Encode()
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	text := string(out)

	// Untouched top-level fields survive.
	for _, want := range []string{"port: 7890", "socks-port: 7891", "allow-lan: false", "nameserver:"} {
		if !strings.Contains(text, want) {
			t.Errorf("encoded document missing %q:\n%s", want, text)
		}
	}

	// Top-level key order is the document order.
	idxPort := strings.Index(text, "port:")
	idxDNS := strings.Index(text, "dns:")
	idxGroups := strings.Index(text, "proxy-groups:")
	idxRules := strings.Index(text, "rules:")
	if !(idxPort < idxDNS && idxDNS < idxGroups && idxGroups < idxRules) {
		t.Errorf("top-level key order not preserved:\n%s", text)
	}

	// The document round-trips to an equal snapshot.
	again := mustParse(t, text)
	if len(again.Groups) != 1 || !again.Groups[0].Equal(s.Groups[0]) {
		t.Errorf("groups changed across round-trip")
	}
	if len(again.Rules) != len(s.Rules) {
		t.Errorf("rules changed across round-trip")
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	s := mustParse(t, "")
	if len(s.Groups) != 0 || len(s.Rules) != 0 {
		t.Errorf("empty document should yield empty snapshot")
	}
	if _, err := s.Encode(); err != nil {
		t.Errorf("Encode() of empty snapshot failed: %v", err)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte(":\n\t-")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestClone_IsIndependent(t *testing.T) {
	s := mustParse(t, sampleConfig)
	c, err := s.Clone()
	if err != nil {
		t.Fatalf("Clone() failed: %v", err)
	}

	c.Groups[0].Proxies[0] = "changed"
	c.Rules[0] = "changed"
	c.Groups[0].SetField("interval", 1)

	if s.Groups[0].Proxies[0] != "p1" {
		t.Error("clone shares proxies slice with source")
	}
	if s.Rules[0] != "DOMAIN,x.com,Auto" {
		t.Error("clone shares rules slice with source")
	}
	if v, _ := s.Groups[0].Field("interval"); !EqualValues(v, 300) {
		t.Error("clone shares extra fields with source")
	}
}

func TestProxyNames(t *testing.T) {
	s := mustParse(t, sampleConfig)
	names := s.ProxyNames()
	if len(names) != 2 || names[0] != "p1" || names[1] != "p2" {
		t.Errorf("ProxyNames: got %v", names)
	}

	if names := New().ProxyNames(); names != nil {
		t.Errorf("empty snapshot ProxyNames: got %v", names)
	}
}

func TestGroupMutators(t *testing.T) {
	s := mustParse(t, sampleConfig)

	s.AddGroup(&ProxyGroup{Name: "Manual", Proxies: []string{"p1"}})
	if _, ok := s.FindGroup("Manual"); !ok {
		t.Fatal("added group not found")
	}

	if !s.ReplaceGroup("Manual", &ProxyGroup{Name: "Manual2", Proxies: []string{"p2"}}) {
		t.Fatal("ReplaceGroup returned false")
	}
	if _, ok := s.FindGroup("Manual"); ok {
		t.Error("old group still present after replace")
	}

	if !s.RemoveGroup("Manual2") {
		t.Fatal("RemoveGroup returned false")
	}
	if s.RemoveGroup("Manual2") {
		t.Error("RemoveGroup of absent group returned true")
	}
	if got := s.GroupNames(); len(got) != 1 || got[0] != "Auto" {
		t.Errorf("GroupNames: got %v", got)
	}
}

func TestGroupEqual(t *testing.T) {
	a := GroupFromMap(map[string]any{
		"name": "A", "type": "select", "proxies": []any{"p1", "p2"},
	})
	b := GroupFromMap(map[string]any{
		"name": "A", "type": "select", "proxies": []any{"p2", "p1"},
	})
	if !a.Equal(b) {
		t.Error("proxy order should not affect equality")
	}

	b.SetField("type", "url-test")
	if a.Equal(b) {
		t.Error("differing field should break equality")
	}

	c := a.Clone()
	c.Proxies = append(c.Proxies, "p3")
	if a.Equal(c) {
		t.Error("differing membership should break equality")
	}
}

func TestEqualValues_NumericCrossTypes(t *testing.T) {
	// YAML decodes 300 as int, JSON as float64; both must compare equal.
	if !EqualValues(300, float64(300)) {
		t.Error("int vs float64 should be equal")
	}
	if EqualValues(300, float64(301)) {
		t.Error("different numbers should not be equal")
	}
	if !EqualValues([]any{1, "a"}, []any{float64(1), "a"}) {
		t.Error("nested numeric values should compare numerically")
	}
	if !EqualValues(map[string]any{"n": 1}, map[string]any{"n": float64(1)}) {
		t.Error("map numeric values should compare numerically")
	}
	if EqualValues(nil, 0) {
		t.Error("nil and zero are distinct")
	}
}

func TestGroupJSONRoundTrip(t *testing.T) {
	g := GroupFromMap(map[string]any{
		"name":     "Auto",
		"type":     "url-test",
		"interval": 300,
		"proxies":  []any{"p1", "p2"},
	})
	data, err := g.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	var back ProxyGroup
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON failed: %v", err)
	}
	if !g.Equal(&back) {
		t.Errorf("group changed across JSON round-trip: %+v vs %+v", g, &back)
	}
}
