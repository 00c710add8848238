// Package preeval implements the first of the compiler's two AST walks:
// it resolves timing (sub-beat lengths and absolute sub-beat starts),
// the per-part bar-to-beat-count map, and the global meta-event stream
// (tempo, key and meter changes), all of which the second walk,
// package eval, consumes rather than recomputes.
//
// Grounded on the timing arithmetic of the reference MidiPreEvaluator
// (original_source/tbon_midi.py) and on the two-phase timing
// computation this package's bar-walking loop is adapted from,
// generalized here to support compound beat specs and multi-part
// scores.
package preeval

import (
	"fmt"
	"math"

	"tbon/ast"
	"tbon/tbonerr"
	"tbon/theory"
)

func tempoWarning(part int) string {
	return fmt.Sprintf("tempo directive in part %d has no effect: tempo is owned by part 1", part)
}

// MetaEvent is one entry of the global meta-event stream: a tempo
// change ('T'), a key-signature change ('K'), or a meter change ('M').
// Fields not relevant to Kind are zero.
type MetaEvent struct {
	Kind      byte // 'T', 'K', or 'M'
	BeatIndex float64

	Tempo float64 // 'T': quarter notes per minute

	SF   int // 'K': signed sharp/flat count
	Mode int // 'K': 0 major, 1 minor

	Numerator   int // 'M'
	Denominator int // 'M'
}

// PartTiming holds the timing tables for one part, indexed by that
// part's own beat sequence (0-based, in source order).
type PartTiming struct {
	BeatLengths    []float64   // quarter-beat length of beat i
	SubbeatLengths []float64   // quarter-beat length of each sub-beat of beat i
	SubbeatStarts  [][]float64 // absolute quarter-beat start of each sub-beat of beat i
	BeatMap        []int       // number of beats in bar j
}

// Result is the full output of a pre-evaluation pass.
type Result struct {
	Parts map[int]*PartTiming
	Meta  []MetaEvent

	// Warnings holds non-fatal UnsupportedInPart notices: a tempo or
	// relative-tempo directive encountered outside part 1, where it has
	// no effect on the shared meta stream.
	Warnings []string
}

// timesig maps a beat spec to its (numerator, denominator) pair; the
// beat's length in quarter notes is 4*numerator/denominator.
var timesig = map[string][2]int{
	"2.": {3, 4},
	"2":  {1, 2},
	"4.": {3, 8},
	"4":  {1, 4},
	"8.": {1, 16},
	"8":  {1, 8},
}

const defaultBeatSpec = "4"

type partState struct {
	timing *PartTiming

	beatSpec      string
	absIdx        float64
	barBeatCount  int
	barStart      float64
	activeNum     int
	activeDen     int
	haveActiveMtr bool

	baseTempo float64
	tempo     float64
}

func newPartState() *partState {
	return &partState{
		timing:    &PartTiming{},
		beatSpec:  defaultBeatSpec,
		baseTempo: 120,
		tempo:     120,
	}
}

// Run walks root and produces the timing tables and meta-event stream
// every part needs. Tempo, key, and meter directives follow the
// ownership rule stated for tempo and meter explicitly and extended
// here to key, for consistency: only part 1's directives feed the
// single, score-wide meta stream; other parts' directives affect only
// that part's own accidental and timing bookkeeping (see package eval).
func Run(root *ast.Node) (*Result, error) {
	res := &Result{Parts: map[int]*PartTiming{}}
	states := map[int]*partState{1: newPartState()}
	res.Parts[1] = states[1].timing

	currentPart := 1
	tempoSeen := false
	part1BeatsSeen := 0

	for _, child := range root.Children {
		switch child.Kind {
		case ast.PartSwitch:
			currentPart = child.Num
			if _, ok := states[currentPart]; !ok {
				states[currentPart] = newPartState()
				res.Parts[currentPart] = states[currentPart].timing
			}
		case ast.Bar:
			st := states[currentPart]
			if err := runBar(child, currentPart, st, res, &tempoSeen, &part1BeatsSeen); err != nil {
				return nil, err
			}
		}
	}

	// Degenerate case: part 1 never completes a first beat (e.g. an
	// empty score), so the usual insertion point in runBar never fires.
	if !tempoSeen {
		insertDefaultTempo(res)
	}
	return res, nil
}

// insertDefaultTempo prepends the ('T', 0, 120) default to the meta
// stream. Called exactly once, the instant part 1's first beat
// completes without a tempo meta having been emitted yet — not at
// end-of-score, since a tempo declared later in part 1 must not
// retroactively suppress the default.
func insertDefaultTempo(res *Result) {
	res.Meta = append([]MetaEvent{{Kind: 'T', BeatIndex: 0, Tempo: 120}}, res.Meta...)
}

func runBar(bar *ast.Node, part int, st *partState, res *Result, tempoSeen *bool, part1BeatsSeen *int) error {
	for _, node := range bar.Children {
		switch node.Kind {
		case ast.BeatSpec:
			st.beatSpec = node.Text
		case ast.Tempo:
			st.baseTempo = math.Round(node.Num64)
			st.tempo = st.baseTempo
			if part == 1 {
				res.Meta = append(res.Meta, MetaEvent{Kind: 'T', BeatIndex: st.absIdx, Tempo: st.tempo})
				*tempoSeen = true
			} else {
				res.Warnings = append(res.Warnings, tempoWarning(part))
			}
		case ast.RelativeTempo:
			st.tempo = math.Round(st.baseTempo * node.Num64)
			if part == 1 {
				res.Meta = append(res.Meta, MetaEvent{Kind: 'T', BeatIndex: st.absIdx, Tempo: st.tempo})
				*tempoSeen = true
			} else {
				res.Warnings = append(res.Warnings, tempoWarning(part))
			}
		case ast.Key:
			if part == 1 {
				info, err := theory.Lookup(node.Text)
				if err != nil {
					return err
				}
				res.Meta = append(res.Meta, MetaEvent{Kind: 'K', BeatIndex: st.absIdx, SF: info.SF, Mode: info.Mode})
			}
		case ast.Beat:
			mult, den, err := lutFor(st.beatSpec)
			if err != nil {
				return err
			}
			beatLength := 4 * float64(mult) / float64(den)
			n := len(node.Children)
			if n == 0 {
				return &tbonerr.StructuralError{Msg: "beat with no sub-beats"}
			}
			subbeatLength := beatLength / float64(n)
			starts := make([]float64, n)
			for k := 0; k < n; k++ {
				starts[k] = st.absIdx + float64(k)*subbeatLength
			}
			st.timing.BeatLengths = append(st.timing.BeatLengths, beatLength)
			st.timing.SubbeatLengths = append(st.timing.SubbeatLengths, subbeatLength)
			st.timing.SubbeatStarts = append(st.timing.SubbeatStarts, starts)
			st.absIdx += beatLength
			st.barBeatCount++
			if part == 1 {
				*part1BeatsSeen++
				if *part1BeatsSeen == 1 && !*tempoSeen {
					insertDefaultTempo(res)
					*tempoSeen = true
				}
			}
		}
	}

	mult, den, err := lutFor(st.beatSpec)
	if err != nil {
		return err
	}
	numerator := st.barBeatCount * mult
	if part == 1 {
		if !st.haveActiveMtr || numerator != st.activeNum || den != st.activeDen {
			res.Meta = append(res.Meta, MetaEvent{Kind: 'M', BeatIndex: st.barStart, Numerator: numerator, Denominator: den})
			st.activeNum, st.activeDen, st.haveActiveMtr = numerator, den, true
		}
	}
	st.timing.BeatMap = append(st.timing.BeatMap, st.barBeatCount)
	st.barBeatCount = 0
	st.barStart = st.absIdx
	return nil
}

func lutFor(beatSpec string) (mult, den int, err error) {
	pair, ok := timesig[beatSpec]
	if !ok {
		return 0, 0, &tbonerr.StructuralError{Msg: "unknown beat spec: " + beatSpec}
	}
	return pair[0], pair[1], nil
}
