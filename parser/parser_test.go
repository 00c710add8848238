package parser

import (
	"errors"
	"testing"

	"tbon/ast"
	"tbon/tbonerr"
)

func TestParseEmptySourceIsPureComments(t *testing.T) {
	root, err := Parse("/* nothing but a comment */  ")
	if err != nil {
		t.Fatal(err)
	}
	if len(root.Children) != 0 {
		t.Errorf("expected no bars, got %d children", len(root.Children))
	}
}

func TestParseSimpleBar(t *testing.T) {
	root, err := Parse("#d - - - |")
	if err != nil {
		t.Fatal(err)
	}
	if len(root.Children) != 1 || root.Children[0].Kind != ast.Bar {
		t.Fatalf("expected one bar, got %v", root.Children)
	}
	bar := root.Children[0]
	if len(bar.Children) != 4 {
		t.Fatalf("expected 4 beats, got %d", len(bar.Children))
	}
	first := bar.Children[0]
	if first.Kind != ast.Beat || len(first.Children) != 1 {
		t.Fatalf("expected first beat to hold one pitch, got %v", first)
	}
	pitch := first.Children[0]
	if pitch.Kind != ast.Pitch || len(pitch.Children) != 2 {
		t.Fatalf("expected pitch with sharp + pitchname, got %v", pitch)
	}
	if pitch.Children[0].Kind != ast.Sharp {
		t.Errorf("expected sharp, got %v", pitch.Children[0].Kind)
	}
	if pitch.Children[1].Kind != ast.PitchName || pitch.Children[1].Text != "d" {
		t.Errorf("expected pitchname d, got %v", pitch.Children[1])
	}
}

func TestParsePartSwitch(t *testing.T) {
	root, err := Parse("P=1 c | P=2 //ce |")
	if err != nil {
		t.Fatal(err)
	}
	if len(root.Children) != 4 {
		t.Fatalf("expected partswitch, bar, partswitch, bar; got %d nodes", len(root.Children))
	}
	if root.Children[0].Kind != ast.PartSwitch || root.Children[0].Num != 1 {
		t.Fatalf("expected P=1, got %v", root.Children[0])
	}
	if root.Children[2].Kind != ast.PartSwitch || root.Children[2].Num != 2 {
		t.Fatalf("expected P=2, got %v", root.Children[2])
	}
}

func TestParseChordRollOrnament(t *testing.T) {
	root, err := Parse("(ab) (:abc) (~abc) |")
	if err != nil {
		t.Fatal(err)
	}
	bar := root.Children[0]
	kinds := []ast.Kind{ast.Chord, ast.Roll, ast.Ornament}
	for i, want := range kinds {
		beat := bar.Children[i]
		if len(beat.Children) != 1 || beat.Children[0].Kind != want {
			t.Errorf("beat %d: expected single %v, got %v", i, want, beat.Children)
		}
	}
}

func TestParseChordRequiresTwoTones(t *testing.T) {
	if _, err := Parse("(a) |"); err == nil {
		t.Fatal("expected a parse error for a one-tone chord")
	}
}

func TestParseUnicodeAccidentals(t *testing.T) {
	root, err := Parse("𝄪c ♯c ♮c ♭c 𝄫c |")
	if err != nil {
		t.Fatal(err)
	}
	bar := root.Children[0]
	wantKinds := []ast.Kind{ast.DoubleSharp, ast.Sharp, ast.Natural, ast.Flat, ast.DoubleFlat}
	if len(bar.Children) != len(wantKinds) {
		t.Fatalf("expected %d beats, got %d", len(wantKinds), len(bar.Children))
	}
	for i, want := range wantKinds {
		pitch := bar.Children[i].Children[0]
		if pitch.Children[0].Kind != want {
			t.Errorf("beat %d: expected %v, got %v", i, want, pitch.Children[0].Kind)
		}
	}
}

func TestParseMetaDirectives(t *testing.T) {
	root, err := Parse("B=8. K=D@ T=120 t=0.5 V=0.9 D=0.2 C=3 c |")
	if err != nil {
		t.Fatal(err)
	}
	bar := root.Children[0]
	wantKinds := []ast.Kind{ast.BeatSpec, ast.Key, ast.Tempo, ast.RelativeTempo, ast.Velocity, ast.DeEmphasis, ast.Channel, ast.Beat}
	if len(bar.Children) != len(wantKinds) {
		t.Fatalf("expected %d nodes, got %d", len(wantKinds), len(bar.Children))
	}
	for i, want := range wantKinds {
		if bar.Children[i].Kind != want {
			t.Errorf("node %d: expected %v, got %v", i, want, bar.Children[i].Kind)
		}
	}
	if bar.Children[0].Text != "8." {
		t.Errorf("beatspec text = %q, want %q", bar.Children[0].Text, "8.")
	}
	if bar.Children[1].Text != "D@" {
		t.Errorf("key text = %q, want %q", bar.Children[1].Text, "D@")
	}
}

func TestParseSyntaxErrorReportsOffset(t *testing.T) {
	_, err := Parse("c |||")
	if err == nil {
		t.Fatal("expected a syntax error")
	}
	var se *tbonerr.SyntaxError
	if !errors.As(err, &se) || se.Pos != 3 {
		t.Errorf("expected a SyntaxError at offset 3 (the empty bar), got %v", err)
	}
}

func TestParseNumericPitches(t *testing.T) {
	root, err := Parse("K=D 7 3 |")
	if err != nil {
		t.Fatal(err)
	}
	bar := root.Children[0]
	beat1 := bar.Children[1]
	pitch := beat1.Children[0]
	name := pitch.Children[len(pitch.Children)-1]
	if name.Text != "7" {
		t.Errorf("expected pitchname 7, got %q", name.Text)
	}
}
