package builds

import "testing"

func seedRecords() []Build {
	return []Build{
		{Name: "Scout Rush", BuildType: FeudalRush, Difficulty: Intermediate},
		{Name: "Fast Castle Classic", BuildType: FastCastle, Difficulty: Advanced},
		{Name: "Drush into FC", BuildType: DarkAgeRush, Difficulty: Advanced},
	}
}

func TestStoreEmptyBeforeFirstReplace(t *testing.T) {
	s := NewStore()
	if s.Len() != 0 {
		t.Fatalf("new store should be empty, has %d records", s.Len())
	}
	if got := s.ByType(FeudalRush); len(got) != 0 {
		t.Fatalf("empty store ByType returned %d records", len(got))
	}
	if !s.LastUpdated().IsZero() {
		t.Fatal("LastUpdated should be zero before the first ReplaceAll")
	}
}

func TestStoreIndexesMatchAll(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(seedRecords())

	for _, bt := range BuildTypes() {
		var want []Build
		for _, b := range s.All() {
			if b.BuildType == bt {
				want = append(want, b)
			}
		}
		got := s.ByType(bt)
		if len(got) != len(want) {
			t.Fatalf("ByType(%s) = %d records, want %d", bt, len(got), len(want))
		}
		for i := range got {
			if got[i].Name != want[i].Name {
				t.Errorf("ByType(%s)[%d] = %q, want %q (insertion order)", bt, i, got[i].Name, want[i].Name)
			}
		}
	}

	advanced := s.ByDifficulty(Advanced)
	if len(advanced) != 2 {
		t.Fatalf("ByDifficulty(advanced) = %d records, want 2", len(advanced))
	}
	if advanced[0].Name != "Fast Castle Classic" || advanced[1].Name != "Drush into FC" {
		t.Errorf("ByDifficulty order = %q, %q; want insertion order", advanced[0].Name, advanced[1].Name)
	}
}

func TestStoreSnapshotSurvivesReplace(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(seedRecords())

	old := s.All()
	s.ReplaceAll([]Build{{Name: "Galley Rush", BuildType: WaterMaps, Difficulty: Advanced}})

	// The old snapshot must remain intact for readers still iterating it.
	if len(old) != 3 {
		t.Fatalf("old snapshot mutated: %d records", len(old))
	}
	if old[0].Name != "Scout Rush" {
		t.Errorf("old snapshot record changed: %q", old[0].Name)
	}
	if s.Len() != 1 || s.All()[0].Name != "Galley Rush" {
		t.Errorf("new snapshot not published")
	}
}

func TestStoreReplaceCopiesInput(t *testing.T) {
	s := NewStore()
	records := seedRecords()
	s.ReplaceAll(records)

	records[0].Name = "mutated"
	if s.All()[0].Name != "Scout Rush" {
		t.Error("store must copy the input slice, not alias it")
	}
}
