package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clashdesk/clashdesk/pkg/logging"
	"github.com/clashdesk/clashdesk/pkg/patch"
	"github.com/clashdesk/clashdesk/pkg/snapshot"
)

const testConfig = `port: 7890
proxies:
  - name: hk-1
    type: ss
proxy-groups:
  - name: Auto
    type: url-test
    proxies:
      - hk-1
rules:
  - DOMAIN-SUFFIX,example.com,Auto
  - MATCH,DIRECT
`

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s := NewFileStore(t.TempDir(), logging.Nop())
	if err := s.Open(); err != nil {
		t.Fatalf("Open() = %v", err)
	}
	return s
}

func mustParse(t *testing.T, doc string) *snapshot.Snapshot {
	t.Helper()
	snap, err := snapshot.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	return snap
}

func testModification(name string, at time.Time) *patch.Modification {
	return &patch.Modification{
		Name:      name,
		CreatedAt: at,
		Rules: patch.RuleChanges{
			Added: []string{"DOMAIN-SUFFIX,test.io,Auto"},
		},
	}
}

func TestFileStore_SnapshotRoundTrip(t *testing.T) {
	s := newFileStore(t)
	snap := mustParse(t, testConfig)

	if err := s.SaveOriginal(snap); err != nil {
		t.Fatalf("SaveOriginal() = %v", err)
	}
	got, err := s.LoadOriginal()
	if err != nil {
		t.Fatalf("LoadOriginal() = %v", err)
	}
	if len(got.Rules) != 2 || got.Rules[0] != "DOMAIN-SUFFIX,example.com,Auto" {
		t.Errorf("rules = %v, want original sequence", got.Rules)
	}
	if _, ok := got.FindGroup("Auto"); !ok {
		t.Error("group Auto missing after round trip")
	}
}

func TestFileStore_LoadOriginalMissing(t *testing.T) {
	s := newFileStore(t)
	got, err := s.LoadOriginal()
	if err != nil {
		t.Fatalf("LoadOriginal() = %v", err)
	}
	if len(got.Groups) != 0 || len(got.Rules) != 0 {
		t.Errorf("missing file should yield an empty snapshot, got %d groups %d rules", len(got.Groups), len(got.Rules))
	}
}

func TestFileStore_WorkingFallsBackToOriginal(t *testing.T) {
	s := newFileStore(t)
	if err := s.SaveOriginal(mustParse(t, testConfig)); err != nil {
		t.Fatalf("SaveOriginal() = %v", err)
	}

	working, err := s.LoadWorking()
	if err != nil {
		t.Fatalf("LoadWorking() = %v", err)
	}
	if _, ok := working.FindGroup("Auto"); !ok {
		t.Fatal("working copy missing group from original")
	}

	// Mutating the fallback copy must not touch the original.
	working.RemoveGroup("Auto")
	orig, err := s.LoadOriginal()
	if err != nil {
		t.Fatalf("LoadOriginal() = %v", err)
	}
	if _, ok := orig.FindGroup("Auto"); !ok {
		t.Error("mutating the working copy leaked into the original")
	}
}

func TestFileStore_WorkingIndependentOnceSaved(t *testing.T) {
	s := newFileStore(t)
	if err := s.SaveOriginal(mustParse(t, testConfig)); err != nil {
		t.Fatalf("SaveOriginal() = %v", err)
	}

	working := mustParse(t, testConfig)
	working.Rules = append(working.Rules, "DOMAIN,extra.io,DIRECT")
	if err := s.SaveWorking(working); err != nil {
		t.Fatalf("SaveWorking() = %v", err)
	}

	got, err := s.LoadWorking()
	if err != nil {
		t.Fatalf("LoadWorking() = %v", err)
	}
	if len(got.Rules) != 3 {
		t.Errorf("working rules = %d, want 3", len(got.Rules))
	}
	orig, _ := s.LoadOriginal()
	if len(orig.Rules) != 2 {
		t.Errorf("original rules = %d, want 2", len(orig.Rules))
	}
}

func TestFileStore_PatchLifecycle(t *testing.T) {
	s := newFileStore(t)
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	id, err := s.SavePatch(testModification("My Patch", at))
	if err != nil {
		t.Fatalf("SavePatch() = %v", err)
	}
	if want := "My-Patch_20250314_092653"; id != want {
		t.Errorf("id = %q, want %q", id, want)
	}

	m, err := s.LoadPatch(id)
	if err != nil {
		t.Fatalf("LoadPatch() = %v", err)
	}
	if m.Name != "My Patch" || len(m.Rules.Added) != 1 {
		t.Errorf("loaded modification = %+v", m)
	}

	if err := s.DeletePatch(id); err != nil {
		t.Fatalf("DeletePatch() = %v", err)
	}
	if _, err := s.LoadPatch(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadPatch after delete = %v, want ErrNotFound", err)
	}
}

func TestFileStore_SavePatchCollision(t *testing.T) {
	s := newFileStore(t)
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	if _, err := s.SavePatch(testModification("dup", at)); err != nil {
		t.Fatalf("first SavePatch() = %v", err)
	}
	if _, err := s.SavePatch(testModification("dup", at)); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("second SavePatch() = %v, want ErrAlreadyExists", err)
	}
}

func TestFileStore_SavePatchInvalid(t *testing.T) {
	s := newFileStore(t)
	if _, err := s.SavePatch(&patch.Modification{CreatedAt: time.Now()}); !errors.Is(err, patch.ErrMalformed) {
		t.Errorf("SavePatch(no name) = %v, want ErrMalformed", err)
	}
}

func TestFileStore_ListPatchesNewestFirst(t *testing.T) {
	s := newFileStore(t)
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	for i, name := range []string{"first", "second", "third"} {
		if _, err := s.SavePatch(testModification(name, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("SavePatch(%s) = %v", name, err)
		}
	}

	list, err := s.ListPatches()
	if err != nil {
		t.Fatalf("ListPatches() = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	if list[0].Name != "third" || list[2].Name != "first" {
		t.Errorf("order = [%s %s %s], want newest first", list[0].Name, list[1].Name, list[2].Name)
	}
	if list[0].Changes.RulesAdded != 1 {
		t.Errorf("changes summary = %+v", list[0].Changes)
	}
}

func TestFileStore_ListPatchesSkipsCorrupt(t *testing.T) {
	s := newFileStore(t)
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	if _, err := s.SavePatch(testModification("good", at)); err != nil {
		t.Fatalf("SavePatch() = %v", err)
	}

	bad := filepath.Join(s.Dir(), modsDir, "broken_20250101_000000.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0600); err != nil {
		t.Fatalf("write corrupt record: %v", err)
	}

	list, err := s.ListPatches()
	if err != nil {
		t.Fatalf("ListPatches() = %v", err)
	}
	if len(list) != 1 || list[0].Name != "good" {
		t.Errorf("list = %+v, want only the readable record", list)
	}
}

func TestFileStore_LoadPatchCorrupt(t *testing.T) {
	s := newFileStore(t)
	bad := filepath.Join(s.Dir(), modsDir, "broken.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0600); err != nil {
		t.Fatalf("write corrupt record: %v", err)
	}
	if _, err := s.LoadPatch("broken"); !errors.Is(err, patch.ErrMalformed) {
		t.Errorf("LoadPatch(corrupt) = %v, want ErrMalformed", err)
	}
}

func TestFileStore_DeletePatchMissing(t *testing.T) {
	s := newFileStore(t)
	if err := s.DeletePatch("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeletePatch(missing) = %v, want ErrNotFound", err)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"My Patch", "My-Patch"},
		{"weird/../name!", "weirdname"},
		{"///", "modification"},
		{"", "modification"},
		{"under_score-dash", "under_score-dash"},
	}
	for _, tt := range tests {
		if got := sanitizeName(tt.in); got != tt.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMemStore_MirrorsFileSemantics(t *testing.T) {
	s := NewMemStore()
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	if err := s.SaveOriginal(mustParse(t, testConfig)); err != nil {
		t.Fatalf("SaveOriginal() = %v", err)
	}
	working, err := s.LoadWorking()
	if err != nil {
		t.Fatalf("LoadWorking() = %v", err)
	}
	working.RemoveGroup("Auto")
	orig, _ := s.LoadOriginal()
	if _, ok := orig.FindGroup("Auto"); !ok {
		t.Error("mutating a loaded copy leaked into the store")
	}

	id, err := s.SavePatch(testModification("mem", at))
	if err != nil {
		t.Fatalf("SavePatch() = %v", err)
	}
	if _, err := s.SavePatch(testModification("mem", at)); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate SavePatch() = %v, want ErrAlreadyExists", err)
	}
	if _, err := s.LoadPatch(id); err != nil {
		t.Errorf("LoadPatch() = %v", err)
	}
	if err := s.DeletePatch(id); err != nil {
		t.Errorf("DeletePatch() = %v", err)
	}
	if err := s.DeletePatch(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeletePatch() = %v, want ErrNotFound", err)
	}
}
