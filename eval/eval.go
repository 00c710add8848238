// Package eval implements the second AST walk: it consumes the timing
// tables and meta stream package preeval already computed and produces,
// per part, the ordered note stream and the shared metronome track.
//
// Grounded on the state-machine shape of the reference MidiEvaluator
// (original_source/tbon_midi.py): per-part octave/accidental/mode
// bookkeeping walked once over the tree, the nearest-neighbor octave
// rule, and the chord/roll/ornament voice bookkeeping. The AST's
// grouping of chord, roll and ornament members as direct children of
// one node (rather than a flat token stream with explicit start/end
// markers) lets each group be resolved by a single handler instead of
// a mode field threaded across many token callbacks; open notes are
// tracked as indices into the part's already-appended note slice
// rather than a separate staging list, so no distinct "flush to
// output" step is needed at score finalization; both are
// implementation simplifications that preserve the reference's
// observable per-note timing and voice-replacement behavior.
package eval

import (
	"sort"

	"tbon/ast"
	"tbon/preeval"
	"tbon/tbonerr"
	"tbon/theory"
)

type mode int

const (
	modeNote mode = iota
	modeChord
	modeRoll
	modeOrnament
)

type barKey struct {
	Name   string
	Octave int
}

type partState struct {
	timing *preeval.PartTiming
	out    *PartOutput

	beatIdx         int
	barBeatIndex    int
	barSubbeatIndex int

	octave         int
	lastIndex      int
	barAccidentals map[barKey]int

	keyname       string
	velocity      float64
	deEmphasisMul float64
	channel       int

	mode                mode
	chordToneCount      int
	priorChordToneCount int

	openNotes []int
}

// Defaults holds the per-part initial state a compile-profile config
// can seed before any V=/D=/C= directive in the source overrides it.
// DeEmphasis is the raw 0..1 value, not the stored 1-x multiplier.
type Defaults struct {
	Velocity   float64
	DeEmphasis float64
	Channel    int
}

// builtinDefaults matches the per-part state defaults of §3: velocity
// 0.8, no de-emphasis, channel 1.
var builtinDefaults = Defaults{Velocity: 0.8, DeEmphasis: 0, Channel: 1}

func newPartState(timing *preeval.PartTiming, out *PartOutput, d Defaults) *partState {
	if timing == nil {
		timing = &preeval.PartTiming{}
	}
	return &partState{
		timing:         timing,
		out:            out,
		octave:         5,
		keyname:        "C",
		velocity:       d.Velocity,
		deEmphasisMul:  1 - d.DeEmphasis,
		channel:        d.Channel,
		barAccidentals: map[barKey]int{},
	}
}

// Run walks root, consuming pre's timing tables and meta stream, and
// produces each part's note stream plus the shared metronome track.
// Metronome clicks, like tempo and meter, are owned by part 1. An
// optional Defaults seeds every part's initial velocity/de_emphasis/
// channel; omitting it uses the built-in defaults.
func Run(root *ast.Node, pre *preeval.Result, defaults ...Defaults) (*Result, error) {
	d := builtinDefaults
	if len(defaults) > 0 {
		d = defaults[0]
	}
	res := &Result{Parts: map[int]*PartOutput{}}
	states := map[int]*partState{}

	ensure := func(part int) *partState {
		if st, ok := states[part]; ok {
			return st
		}
		out := &PartOutput{}
		res.Parts[part] = out
		st := newPartState(pre.Parts[part], out, d)
		states[part] = st
		return st
	}
	ensure(1)
	currentPart := 1

	for _, child := range root.Children {
		switch child.Kind {
		case ast.PartSwitch:
			currentPart = child.Num
			ensure(currentPart)
		case ast.Bar:
			if err := evalBar(child, ensure(currentPart), currentPart, res); err != nil {
				return nil, err
			}
		}
	}

	for _, st := range states {
		sortNotes(st.out.Notes)
	}
	sortNotes(res.Metronome)
	return res, nil
}

func sortNotes(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Start < notes[j].Start })
}

func evalBar(bar *ast.Node, st *partState, part int, res *Result) error {
	st.barAccidentals = map[barKey]int{}
	st.barBeatIndex = 0
	st.barSubbeatIndex = 0

	for _, node := range bar.Children {
		switch node.Kind {
		case ast.Tempo:
			if node.Num64 <= 0 {
				return &tbonerr.RangeError{Field: "tempo", Value: node.Num64}
			}
		case ast.Key:
			if _, err := theory.Lookup(node.Text); err != nil {
				return err
			}
			st.keyname = node.Text
		case ast.Velocity:
			if node.Num64 < 0 || node.Num64 > 1 {
				return &tbonerr.RangeError{Field: "velocity", Value: node.Num64}
			}
			st.velocity = node.Num64
		case ast.DeEmphasis:
			if node.Num64 < 0 || node.Num64 > 1 {
				return &tbonerr.RangeError{Field: "de_emphasis", Value: node.Num64}
			}
			st.deEmphasisMul = 1 - node.Num64
		case ast.Channel:
			if node.Num < 1 || node.Num > 16 {
				return &tbonerr.RangeError{Field: "channel", Value: float64(node.Num)}
			}
			st.channel = node.Num
		case ast.Beat:
			if err := evalBeat(node, st, part, res); err != nil {
				return err
			}
		}
	}
	return nil
}

func evalBeat(beat *ast.Node, st *partState, part int, res *Result) error {
	bi := st.beatIdx
	if bi >= len(st.timing.BeatLengths) {
		return &tbonerr.StructuralError{Msg: "beat index out of range for part timing"}
	}
	beatLength := st.timing.BeatLengths[bi]
	starts := st.timing.SubbeatStarts[bi]
	subbeatLength := st.timing.SubbeatLengths[bi]

	if part == 1 {
		pitch, vel := 77, st.velocity*st.deEmphasisMul
		if st.barBeatIndex == 0 {
			pitch, vel = 76, st.velocity
		}
		res.Metronome = append(res.Metronome, Note{
			Pitch: pitch, Start: starts[0], End: starts[0] + beatLength,
			Velocity: vel, Channel: 10,
		})
	}

	for si, sub := range beat.Children {
		start := starts[si]
		end := start + subbeatLength
		if err := evalSubbeat(sub, st, start, end, subbeatLength); err != nil {
			return err
		}
		st.barSubbeatIndex++
	}

	st.beatIdx++
	st.barBeatIndex++
	return nil
}

func evalSubbeat(node *ast.Node, st *partState, start, end, subbeatLength float64) error {
	switch node.Kind {
	case ast.Hold:
		for _, idx := range st.openNotes {
			st.out.Notes[idx].End = end
		}
	case ast.Rest:
		closeOpen(st, start)
		st.mode = modeNote
		st.priorChordToneCount = 0
		idx := appendNote(st, Note{Rest: true, Start: start, End: end, Channel: st.channel})
		st.openNotes = []int{idx}
	case ast.Pitch:
		closeOpen(st, start)
		st.mode = modeNote
		st.priorChordToneCount = 0
		n, err := resolvePitch(st, node, start, end)
		if err != nil {
			return err
		}
		idx := appendNote(st, n)
		st.openNotes = []int{idx}
	case ast.Chord:
		if err := evalChord(st, node, start, end); err != nil {
			return err
		}
	case ast.Roll:
		if err := evalRollOrnament(st, node, start, end, subbeatLength, false); err != nil {
			return err
		}
	case ast.Ornament:
		if err := evalRollOrnament(st, node, start, end, subbeatLength, true); err != nil {
			return err
		}
	}
	return nil
}

func closeOpen(st *partState, at float64) {
	for _, idx := range st.openNotes {
		st.out.Notes[idx].End = at
	}
}

func appendNote(st *partState, n Note) int {
	idx := len(st.out.Notes)
	st.out.Notes = append(st.out.Notes, n)
	return idx
}

// isDownbeat implements the per-note accent test: true only on the
// first beat of a bar, and then only for the tone(s) the active mode
// says are accented.
func isDownbeat(st *partState) bool {
	if st.barBeatIndex != 0 {
		return false
	}
	switch st.mode {
	case modeChord:
		return true
	case modeRoll, modeOrnament:
		return st.chordToneCount == 0
	default:
		return st.barSubbeatIndex == 0
	}
}

func resolvePitch(st *partState, node *ast.Node, start, end float64) (Note, error) {
	octaveDelta := 0
	var alterationTok *int
	var name string
	for _, c := range node.Children {
		switch c.Kind {
		case ast.OctaveUp:
			octaveDelta++
		case ast.OctaveDown:
			octaveDelta--
		case ast.DoubleSharp:
			v := 2
			alterationTok = &v
		case ast.Sharp:
			v := 1
			alterationTok = &v
		case ast.Natural:
			v := 0
			alterationTok = &v
		case ast.Flat:
			v := -1
			alterationTok = &v
		case ast.DoubleFlat:
			v := -2
			alterationTok = &v
		case ast.PitchName:
			name = c.Text
		}
	}

	idx, err := pitchIndex(name)
	if err != nil {
		return Note{}, err
	}
	st.octave += octaveDelta + nearestNeighborDelta(st.lastIndex, idx)
	if st.octave < 0 || st.octave > 10 {
		return Note{}, &tbonerr.RangeError{Field: "octave", Value: float64(st.octave)}
	}
	st.lastIndex = idx

	key := barKey{Name: name, Octave: st.octave}
	if alterationTok != nil {
		st.barAccidentals[key] = *alterationTok
	}
	var barAlt *int
	if v, ok := st.barAccidentals[key]; ok {
		barAlt = &v
	}
	alteration, err := theory.GetAlteration(name, st.keyname, barAlt)
	if err != nil {
		return Note{}, err
	}
	base, err := theory.BaseSemitone(name)
	if err != nil {
		return Note{}, err
	}

	vel := st.velocity
	if !isDownbeat(st) {
		vel *= st.deEmphasisMul
	}
	return Note{
		Pitch:    base + alteration + 12*st.octave,
		Start:    start,
		End:      end,
		Velocity: vel,
		Channel:  st.channel,
	}, nil
}

func pitchIndex(name string) (int, error) {
	if len(name) != 1 {
		return 0, &tbonerr.StructuralError{Msg: "empty pitchname"}
	}
	c := name[0]
	if c >= '1' && c <= '7' {
		return int(c - '1'), nil
	}
	for i := 0; i < len(theory.PitchOrder); i++ {
		if theory.PitchOrder[i] == c {
			return i, nil
		}
	}
	return 0, &tbonerr.StructuralError{Msg: "invalid pitchname: " + name}
}

// nearestNeighborDelta implements the octave-change rule: the octave
// shift that realizes p1 as the closest voicing to p0, given only
// their diatonic letter/degree distance.
func nearestNeighborDelta(oldIdx, newIdx int) int {
	d := newIdx - oldIdx
	interval := 1 + floorMod(d, 7)
	if interval == 1 {
		return 0
	}
	higher := interval < 5
	switch {
	case higher && d > 0:
		return 0
	case higher && d < 0:
		return 1
	case !higher && d > 0:
		return -1
	default:
		return 0
	}
}

func floorMod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

func evalChord(st *partState, node *ast.Node, start, end float64) error {
	if st.priorChordToneCount == 0 {
		closeOpen(st, start)
		st.openNotes = nil
	}
	st.mode = modeChord

	newOpen := make([]int, 0, len(node.Children))
	cursor := 0
	for _, item := range node.Children {
		switch item.Kind {
		case ast.Hold:
			if cursor >= len(st.openNotes) {
				return &tbonerr.StructuralError{Msg: "chordhold has no prior chord voice to extend"}
			}
			idx := st.openNotes[cursor]
			st.out.Notes[idx].End = end
			newOpen = append(newOpen, idx)
		case ast.Rest:
			if cursor >= len(st.openNotes) {
				return &tbonerr.StructuralError{Msg: "chordrest has no prior chord voice to displace"}
			}
			st.out.Notes[st.openNotes[cursor]].End = start
			idx := appendNote(st, Note{Rest: true, Start: start, End: end, Channel: st.channel})
			newOpen = append(newOpen, idx)
		default:
			n, err := resolvePitch(st, item, start, end)
			if err != nil {
				return err
			}
			if cursor < len(st.openNotes) {
				st.out.Notes[st.openNotes[cursor]].End = start
			}
			newOpen = append(newOpen, appendNote(st, n))
			st.chordToneCount++
		}
		cursor++
	}
	for i := cursor; i < len(st.openNotes); i++ {
		st.out.Notes[st.openNotes[i]].End = start
	}

	st.openNotes = newOpen
	st.priorChordToneCount = st.chordToneCount
	st.chordToneCount = 0
	st.mode = modeNote
	return nil
}

func evalRollOrnament(st *partState, node *ast.Node, start, end, subbeatLength float64, ornament bool) error {
	closeOpen(st, start)
	st.openNotes = nil
	if ornament {
		st.mode = modeOrnament
	} else {
		st.mode = modeRoll
	}
	st.chordToneCount = 0

	count := len(node.Children)
	tones := make([]Note, count)
	for i, pitchNode := range node.Children {
		n, err := resolvePitch(st, pitchNode, start, end)
		if err != nil {
			return err
		}
		tones[i] = n
		st.chordToneCount++
	}

	slice := subbeatLength / float64(count)
	if ornament {
		for i := range tones {
			tones[i].Start = start + float64(i)*slice
			tones[i].End = tones[i].Start + slice
		}
		for i := 0; i < count-1; i++ {
			appendNote(st, tones[i])
		}
		st.openNotes = []int{appendNote(st, tones[count-1])}
	} else {
		for i := 1; i < count; i++ {
			tones[i].Start = start + float64(i)*slice
		}
		base := len(st.out.Notes)
		st.out.Notes = append(st.out.Notes, tones...)
		st.openNotes = make([]int, count)
		for i := range tones {
			st.openNotes[i] = base + i
		}
	}

	st.priorChordToneCount = 0
	st.mode = modeNote
	return nil
}
