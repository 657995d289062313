package scanner

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/xpradar/internal/model"
	"github.com/verte-zerg/xpradar/internal/vault"
)

func TestScanSumsCompletedTasks(t *testing.T) {
	daily := vault.Parse(vault.RefFor("Daily/2024-01-01.md"), `# Today
- [x] Workout #xp/[[Physical]] +5
- [x] Read #xp/Intellectual
- [ ] Skipped #xp/Physical +50
- [x] Untagged task
- [x] Template #xp/[[substat tem]] +9
Not a task #xp/Physical +100
`)
	weekly := vault.Parse(vault.RefFor("Weekly.md"), "- [X] Long run #xp/Physical +10\n")

	res := Scan([]model.Document{daily, weekly}, "/notes", "substat tem")
	want := map[string]int{"Physical": 15, "Intellectual": 1}
	if diff := cmp.Diff(want, res.Deltas); diff != "" {
		t.Fatalf("deltas mismatch (-want +got):\n%s", diff)
	}
	if len(res.Mentions) != 3 {
		t.Fatalf("expected 3 mentions, got %d", len(res.Mentions))
	}
	if m := res.Mentions[0]; m.DocPath != "Daily/2024-01-01.md" || m.Line != 1 {
		t.Fatalf("unexpected first mention %+v", m)
	}
}

func TestScanEmptyCorpus(t *testing.T) {
	res := Scan(nil, "/notes", "substat tem")
	if len(res.Deltas) != 0 || len(res.Mentions) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
	if res.Deltas["anything"] != 0 {
		t.Fatalf("absent sub-stat must contribute zero")
	}
}

func TestFingerprintStableAcrossLineMoves(t *testing.T) {
	before := vault.Parse(vault.RefFor("Log.md"), "- [x] Gym #xp/Physical +5\n- [x] Gym #xp/Physical +5\n")
	after := vault.Parse(vault.RefFor("Log.md"), "intro\n\n- [x] Gym  #xp/Physical +5\n- [x] Gym #xp/Physical +5\n- [x] Gym #xp/Physical +5\n")

	first := ScanDocument(before, "/notes", "")
	second := ScanDocument(after, "/notes", "")
	if len(first) != 2 || len(second) != 3 {
		t.Fatalf("unexpected mention counts %d %d", len(first), len(second))
	}
	if first[0].Fingerprint == first[1].Fingerprint {
		t.Fatalf("identical lines need distinct fingerprints")
	}
	for i := range first {
		if first[i].Fingerprint != second[i].Fingerprint {
			t.Fatalf("mention %d changed fingerprint after moving", i)
		}
	}
	if other := ScanDocument(vault.Parse(vault.RefFor("Other.md"), "- [x] Gym #xp/Physical +5\n"), "/notes", ""); other[0].Fingerprint == first[0].Fingerprint {
		t.Fatalf("fingerprint must depend on the note")
	}
	if other := ScanDocument(before, "/other-notes", ""); other[0].Fingerprint == first[0].Fingerprint {
		t.Fatalf("fingerprint must depend on the vault")
	}
}
