// Package ast defines the tree produced by package parser and walked
// twice, by package preeval and package eval.
package ast

// Kind names a grammar production. Both tree walkers dispatch on Kind
// rather than on node shape.
type Kind int

const (
	Score Kind = iota
	PartSwitch
	Bar

	BeatSpec
	Key
	Tempo
	RelativeTempo
	Velocity
	DeEmphasis
	Channel

	Beat

	Hold
	Rest
	Pitch
	Chord
	Roll
	Ornament

	OctaveUp
	OctaveDown
	DoubleSharp
	Sharp
	DoubleFlat
	Flat
	Natural
	PitchName
)

var kindNames = map[Kind]string{
	Score:          "score",
	PartSwitch:     "partswitch",
	Bar:            "bar",
	BeatSpec:       "beatspec",
	Key:            "key",
	Tempo:          "tempo",
	RelativeTempo:  "relativetempo",
	Velocity:       "velocity",
	DeEmphasis:     "de_emphasis",
	Channel:        "channel",
	Beat:           "beat",
	Hold:           "hold",
	Rest:           "rest",
	Pitch:          "pitch",
	Chord:          "chord",
	Roll:           "roll",
	Ornament:       "ornament",
	OctaveUp:       "octave_up",
	OctaveDown:     "octave_down",
	DoubleSharp:    "doublesharp",
	Sharp:          "sharp",
	DoubleFlat:     "doubleflat",
	Flat:           "flat",
	Natural:        "natural",
	PitchName:      "pitchname",
}

// String returns the production name, used in diagnostics.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Node is a single AST node. Fields are populated according to Kind:
//
//   - PartSwitch: Num holds the 1-based part number.
//   - BeatSpec:   Text holds the raw spec ("2", "2.", "4", "4.", "8", "8.").
//   - Key:        Text holds the key name (e.g. "D", "f#").
//   - Tempo, RelativeTempo, Velocity, DeEmphasis: Num64 holds the value.
//   - Channel:    Num holds the channel number (1..16).
//   - PitchName:  Text holds the single pitch-name rune ("c".."b" or "1".."7").
//   - Pitch:      Children holds, in order, zero or more OctaveUp/OctaveDown
//     nodes, an optional alteration node (Sharp/DoubleSharp/Flat/
//     DoubleFlat/Natural), and exactly one trailing PitchName node.
//   - Chord, Roll, Ornament: Children holds the pitch/rest/hold members
//     in source order.
//   - Bar:   Children holds meta and beat nodes in source order.
//   - Beat:  Children holds the sub-beat units (Hold/Rest/Pitch/Chord/
//     Roll/Ornament) in source order.
//   - Score: Children holds PartSwitch and Bar nodes in source order.
type Node struct {
	Kind     Kind
	Text     string
	Num      int
	Num64    float64
	Pos      int // byte offset of the node's first rune in the source
	Children []*Node
}

// New returns a leaf or composite node at the given source offset.
func New(kind Kind, pos int) *Node {
	return &Node{Kind: kind, Pos: pos}
}

// Append adds children in source order and returns the receiver for chaining.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}
