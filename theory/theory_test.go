package theory

import "testing"

func TestMIDISIGSMatchesAlterationSum(t *testing.T) {
	for name, info := range KeySignatures {
		sum := 0
		for _, a := range info.Alterations {
			sum += a
		}
		if info.SF != sum {
			t.Errorf("key %q: SF=%d, sum(alterations)=%d", name, info.SF, sum)
		}
	}
}

func TestModeFromCase(t *testing.T) {
	cases := []struct {
		name string
		mode int
	}{
		{"C", 0}, {"F#", 0}, {"C@", 0},
		{"a", 1}, {"f#", 1}, {"a@", 1},
	}
	for _, c := range cases {
		info, err := Lookup(c.name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", c.name, err)
		}
		if info.Mode != c.mode {
			t.Errorf("Lookup(%q).Mode = %d, want %d", c.name, info.Mode, c.mode)
		}
	}
}

func TestLookupUnknownKey(t *testing.T) {
	if _, err := Lookup("H"); err == nil {
		t.Fatal("Lookup(\"H\") should fail, H is not a key name")
	}
}

func TestGetAlterationAlphabeticUsesBarAccidentalOverKey(t *testing.T) {
	bar := -1
	got, err := GetAlteration("f", "D", &bar)
	if err != nil {
		t.Fatal(err)
	}
	if got != -1 {
		t.Errorf("got %d, want -1 (bar accidental overrides D major's f#)", got)
	}

	got, err = GetAlteration("f", "D", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("got %d, want 1 (D major's diatonic f#)", got)
	}
}

func TestGetAlterationNumericDegree1EqualsKeyOffset(t *testing.T) {
	off, err := KeyOffsetSemitones("D")
	if err != nil {
		t.Fatal(err)
	}
	got, err := GetAlteration("1", "D", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != off {
		t.Errorf("degree 1 alteration = %d, want key offset %d", got, off)
	}
}

func TestGetAlterationNumericMinorFlattensDegrees378(t *testing.T) {
	// "a" is a minor with no alterations and offset -3.
	for _, degree := range []string{"3", "6", "7"} {
		got, err := GetAlteration(degree, "a", nil)
		if err != nil {
			t.Fatal(err)
		}
		if got != -3-1 {
			t.Errorf("degree %s in minor key a: got %d, want %d", degree, got, -3-1)
		}
	}
	got, err := GetAlteration("1", "a", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != -3 {
		t.Errorf("degree 1 in minor key a: got %d, want -3 (no flattening)", got)
	}
}

func TestBaseSemitoneTable(t *testing.T) {
	want := map[string]int{"c": 0, "d": 2, "e": 4, "f": 5, "g": 7, "a": 9, "b": 11}
	for name, sem := range want {
		got, err := BaseSemitone(name)
		if err != nil {
			t.Fatal(err)
		}
		if got != sem {
			t.Errorf("BaseSemitone(%q) = %d, want %d", name, got, sem)
		}
	}
}
