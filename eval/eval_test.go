package eval

import (
	"testing"

	"tbon/parser"
	"tbon/preeval"
)

func compile(t *testing.T, src string) *Result {
	t.Helper()
	root, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	pre, err := preeval.Run(root)
	if err != nil {
		t.Fatalf("preeval %q: %v", src, err)
	}
	res, err := Run(root, pre)
	if err != nil {
		t.Fatalf("eval %q: %v", src, err)
	}
	return res
}

type wantNote struct {
	pitch      int
	rest       bool
	start, end float64
}

func checkNotes(t *testing.T, got []Note, want []wantNote) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d notes, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		g := got[i]
		if g.Rest != w.rest {
			t.Errorf("note %d: Rest=%v, want %v", i, g.Rest, w.rest)
			continue
		}
		if !w.rest && g.Pitch != w.pitch {
			t.Errorf("note %d: Pitch=%d, want %d", i, g.Pitch, w.pitch)
		}
		if !closeEnough(g.Start, w.start) || !closeEnough(g.End, w.end) {
			t.Errorf("note %d: span=(%v,%v), want (%v,%v)", i, g.Start, g.End, w.start, w.end)
		}
	}
}

func closeEnough(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func TestScenario1HeldSharpedPitch(t *testing.T) {
	res := compile(t, "#d - - - |")
	checkNotes(t, res.Parts[1].Notes, []wantNote{{pitch: 63, start: 0, end: 4}})
}

func TestScenario2RestAcrossBars(t *testing.T) {
	res := compile(t, "@e - | z - |")
	checkNotes(t, res.Parts[1].Notes, []wantNote{
		{pitch: 63, start: 0, end: 2},
		{rest: true, start: 2, end: 4},
	})
}

func TestScenario3TempoChangeHeldAcross(t *testing.T) {
	res := compile(t, "T=120 #d - | T=60 - - |")
	checkNotes(t, res.Parts[1].Notes, []wantNote{{pitch: 63, start: 0, end: 4}})
}

func TestScenario4ChordThenHoldThenPitch(t *testing.T) {
	res := compile(t, "(ab)- c |")
	checkNotes(t, res.Parts[1].Notes, []wantNote{
		{pitch: 57, start: 0, end: 1},
		{pitch: 59, start: 0, end: 1},
		{pitch: 60, start: 1, end: 2},
	})
}

func TestScenario5Roll(t *testing.T) {
	res := compile(t, "(:abcde) - |")
	checkNotes(t, res.Parts[1].Notes, []wantNote{
		{pitch: 57, start: 0.0, end: 2.0},
		{pitch: 59, start: 0.2, end: 2.0},
		{pitch: 60, start: 0.4, end: 2.0},
		{pitch: 62, start: 0.6, end: 2.0},
		{pitch: 64, start: 0.8, end: 2.0},
	})
}

func TestScenario6KeySignatureAlphabeticAndNumericAgree(t *testing.T) {
	alpha := compile(t, "K=D c f |")
	want := []wantNote{{pitch: 61, start: 0, end: 1}, {pitch: 66, start: 1, end: 2}}
	checkNotes(t, alpha.Parts[1].Notes, want)

	numeric := compile(t, "K=D 7 3 |")
	checkNotes(t, numeric.Parts[1].Notes, want)
}

func TestScenario7AccidentalSpellings(t *testing.T) {
	res := compile(t, "c♭c 𝄫c♭c ♮c♯c 𝄪c♯c | c - - - |")
	want := []wantNote{
		{pitch: 60, start: 0.0, end: 0.5},
		{pitch: 59, start: 0.5, end: 1.0},
		{pitch: 58, start: 1.0, end: 1.5},
		{pitch: 59, start: 1.5, end: 2.0},
		{pitch: 60, start: 2.0, end: 2.5},
		{pitch: 61, start: 2.5, end: 3.0},
		{pitch: 62, start: 3.0, end: 3.5},
		{pitch: 61, start: 3.5, end: 4.0},
		{pitch: 60, start: 4.0, end: 8.0},
	}
	checkNotes(t, res.Parts[1].Notes, want)
}

func TestScenario8PartsAreIndependent(t *testing.T) {
	res := compile(t, "P=1 c | P=2 //ce |")
	checkNotes(t, res.Parts[1].Notes, []wantNote{{pitch: 60, start: 0, end: 1}})
	checkNotes(t, res.Parts[2].Notes, []wantNote{
		{pitch: 36, start: 0, end: 0.5},
		{pitch: 40, start: 0.5, end: 1.0},
	})
}

func TestEmptySourceProducesNoNotes(t *testing.T) {
	res := compile(t, "/* just a comment */")
	if len(res.Parts) != 1 {
		t.Fatalf("expected only the default part 1, got %v", res.Parts)
	}
	if len(res.Parts[1].Notes) != 0 {
		t.Errorf("expected no notes, got %v", res.Parts[1].Notes)
	}
}

func TestOneToneChordIsAParseError(t *testing.T) {
	_, err := parser.Parse("(a) |")
	if err == nil {
		t.Fatal("expected a parse error for a one-tone chord")
	}
}

func TestNaturalCancelsSharpWithinBarNotAcrossBars(t *testing.T) {
	res := compile(t, "#c c %c | c |")
	notes := res.Parts[1].Notes
	if len(notes) != 4 {
		t.Fatalf("expected 4 notes, got %d", len(notes))
	}
	if notes[0].Pitch != 61 {
		t.Errorf("first c should be sharped to 61, got %d", notes[0].Pitch)
	}
	if notes[1].Pitch != 61 {
		t.Errorf("second c, same bar, should stay sharped at 61, got %d", notes[1].Pitch)
	}
	if notes[2].Pitch != 60 {
		t.Errorf("naturaled c, same bar, should cancel the sharp to 60, got %d", notes[2].Pitch)
	}
	if notes[3].Pitch != 60 {
		t.Errorf("c in the next bar should revert to natural 60, got %d", notes[3].Pitch)
	}
}

func TestVelocityOutOfRangeIsFatal(t *testing.T) {
	if _, err := parser.Parse("V=1.5 c |"); err != nil {
		t.Fatalf("parse should succeed, range checking happens in eval: %v", err)
	}
	root, _ := parser.Parse("V=1.5 c |")
	pre, _ := preeval.Run(root)
	if _, err := Run(root, pre); err == nil {
		t.Fatal("expected a RangeError for velocity > 1")
	}
}
