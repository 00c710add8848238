// Package transpose implements the pure post-processing step that
// shifts an evaluated score by a fixed number of semitones, leaving
// rests untouched.
//
// Grounded on the reference's standalone transpose helper in
// original_source/tbon_midi.py, which applies the same shift uniformly
// to every sounded note and skips rests.
package transpose

import "tbon/eval"

// Notes returns a copy of notes with every sounded pitch shifted by
// semitones; rests, start, end, velocity and channel are unchanged.
func Notes(notes []eval.Note, semitones int) []eval.Note {
	out := make([]eval.Note, len(notes))
	for i, n := range notes {
		out[i] = n
		if !n.Rest {
			out[i].Pitch += semitones
		}
	}
	return out
}

// Result returns a copy of an evaluation result with every part
// transposed. The metronome track, being
// percussion, is left untouched: MIDI channel 10 sounds depend on note
// number, and shifting it would change which percussion sound plays.
func Result(res *eval.Result, semitones int) *eval.Result {
	out := &eval.Result{
		Parts:     make(map[int]*eval.PartOutput, len(res.Parts)),
		Metronome: res.Metronome,
	}
	for part, po := range res.Parts {
		out.Parts[part] = &eval.PartOutput{Notes: Notes(po.Notes, semitones)}
	}
	return out
}
