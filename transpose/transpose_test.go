package transpose

import (
	"testing"

	"tbon/eval"
)

func TestNotesShiftsPitchLeavesRests(t *testing.T) {
	in := []eval.Note{
		{Pitch: 60, Start: 0, End: 1, Velocity: 0.8, Channel: 1},
		{Rest: true, Start: 1, End: 2},
	}
	out := Notes(in, 5)
	if out[0].Pitch != 65 {
		t.Errorf("Pitch = %d, want 65", out[0].Pitch)
	}
	if !out[1].Rest || out[1].Pitch != 0 {
		t.Errorf("rest should stay a rest with no pitch, got %+v", out[1])
	}
}

func TestTransposeUpThenDownIsIdentity(t *testing.T) {
	in := []eval.Note{
		{Pitch: 60, Start: 0, End: 1, Velocity: 0.8, Channel: 1},
		{Pitch: 64, Start: 1, End: 2, Velocity: 0.8, Channel: 1},
		{Rest: true, Start: 2, End: 3},
	}
	roundTrip := Notes(Notes(in, 7), -7)
	for i := range in {
		if roundTrip[i] != in[i] {
			t.Errorf("note %d: got %+v, want %+v", i, roundTrip[i], in[i])
		}
	}
}

func TestResultTransposesEveryPartButNotMetronome(t *testing.T) {
	res := &eval.Result{
		Parts: map[int]*eval.PartOutput{
			1: {Notes: []eval.Note{{Pitch: 60, Start: 0, End: 1}}},
		},
		Metronome: []eval.Note{{Pitch: 76, Start: 0, End: 1, Channel: 10}},
	}
	out := Result(res, 3)
	if out.Parts[1].Notes[0].Pitch != 63 {
		t.Errorf("part pitch = %d, want 63", out.Parts[1].Notes[0].Pitch)
	}
	if out.Metronome[0].Pitch != 76 {
		t.Errorf("metronome pitch should be untouched, got %d", out.Metronome[0].Pitch)
	}
}
