// Package theory implements the KeySignatureTable of the TBON notation
// compiler: the thirty named key signatures, their diatonic alteration
// vectors, and the lookup rules used to resolve an accidental for a
// pitch in a given key.
package theory

import (
	"strings"

	"tbon/tbonerr"
)

// PitchOrder is the diatonic letter order used to index alteration
// vectors and to compute the nearest-neighbor octave-change rule.
const PitchOrder = "cdefgab"

// BaseSemitones holds the semitone offset from c for each position in
// PitchOrder (and, identically, for numeric degrees 1..7).
var BaseSemitones = [7]int{0, 2, 4, 5, 7, 9, 11}

// KeyInfo is one row of the key-signature table: the alteration vector
// over (c,d,e,f,g,a,b) and the (sf, mode) pair used for MIDI key-signature
// meta events.
type KeyInfo struct {
	Alterations [7]int // values in {-1, 0, 1}, indexed by PitchOrder
	SF          int    // signed sharp/flat count: sum(Alterations)
	Mode        int    // 0 = major, 1 = minor
}

// KeySignatures is the thirty-entry key-signature table. Upper case
// names are major, lower case are minor; "@" denotes flat, "#" sharp.
var KeySignatures = buildKeySignatures()

func buildKeySignatures() map[string]KeyInfo {
	raw := map[string][7]int{
		// Major
		"C":  {0, 0, 0, 0, 0, 0, 0},
		"G":  {0, 0, 0, 1, 0, 0, 0},
		"D":  {1, 0, 0, 1, 0, 0, 0},
		"A":  {1, 0, 0, 1, 1, 0, 0},
		"E":  {1, 1, 0, 1, 1, 0, 0},
		"B":  {1, 1, 0, 1, 1, 1, 0},
		"F#": {1, 1, 1, 1, 1, 1, 0},
		"C#": {1, 1, 1, 1, 1, 1, 1},
		"C@": {-1, -1, -1, -1, -1, -1, -1},
		"G@": {-1, -1, -1, 0, -1, -1, -1},
		"D@": {0, -1, -1, 0, -1, -1, -1},
		"A@": {0, -1, -1, 0, 0, -1, -1},
		"E@": {0, 0, -1, 0, 0, -1, -1},
		"B@": {0, 0, -1, 0, 0, 0, -1},
		"F":  {0, 0, 0, 0, 0, 0, -1},
		// Minor
		"a":  {0, 0, 0, 0, 0, 0, 0},
		"e":  {0, 0, 0, 1, 0, 0, 0},
		"b":  {1, 0, 0, 1, 0, 0, 0},
		"f#": {1, 0, 0, 1, 1, 0, 0},
		"c#": {1, 1, 0, 1, 1, 0, 0},
		"g#": {1, 1, 0, 1, 1, 1, 0},
		"d#": {1, 1, 1, 1, 1, 1, 0},
		"a#": {1, 1, 1, 1, 1, 1, 1},
		"a@": {-1, -1, -1, -1, -1, -1, -1},
		"e@": {-1, -1, -1, 0, -1, -1, -1},
		"b@": {0, -1, -1, 0, -1, -1, -1},
		"f":  {0, -1, -1, 0, 0, -1, -1},
		"c":  {0, 0, -1, 0, 0, -1, -1},
		"g":  {0, 0, -1, 0, 0, 0, -1},
		"d":  {0, 0, 0, 0, 0, 0, -1},
	}

	table := make(map[string]KeyInfo, len(raw))
	for name, alts := range raw {
		sf := 0
		for _, a := range alts {
			sf += a
		}
		mode := 0
		if strings.ContainsRune("abcdefg", rune(name[0])) {
			mode = 1
		}
		table[name] = KeyInfo{Alterations: alts, SF: sf, Mode: mode}
	}
	return table
}

// keyOffsets tabulates the signed semitone offset that anchors numeric
// pitch 1 to each key's tonic.
var keyOffsets = map[string]int{
	"C": 0, "G": -5, "D": 2, "A": -3, "E": 4, "B": -1, "F#": 6, "C#": 1,
	"C@": -1, "G@": -6, "D@": 1, "A@": -4, "E@": 3, "B@": -2, "F": 5,
	"a": -3, "e": 4, "b": -1, "f#": 6, "c#": 1, "g#": -4, "d#": 3, "a#": -2,
	"a@": -4, "e@": 3, "b@": -2, "f": 5, "c": 0, "g": -5, "d": 2,
}

// KeyOffsetSemitones returns the signed semitone offset anchoring
// numeric pitch 1 to keyname's tonic.
func KeyOffsetSemitones(keyname string) (int, error) {
	off, ok := keyOffsets[keyname]
	if !ok {
		return 0, &tbonerr.UnknownKeySignature{Name: keyname}
	}
	return off, nil
}

// Lookup returns the key-signature row for keyname.
func Lookup(keyname string) (KeyInfo, error) {
	info, ok := KeySignatures[keyname]
	if !ok {
		return KeyInfo{}, &tbonerr.UnknownKeySignature{Name: keyname}
	}
	return info, nil
}

// IsMinorDegree378 reports whether a 1-based numeric degree is one of
// the natural-minor default-flattened degrees (3, 6, 7).
func IsMinorDegree378(degree int) bool {
	return degree == 3 || degree == 6 || degree == 7
}

// GetAlteration resolves the effective semitone alteration for pitchname
// in keyname, given any bar-accidental already recorded for that
// (pitchname, octave) pair this bar. barAlteration is nil when no
// bar-accidental applies.
//
// Alphabetic pitches: the bar accidental wins if present, else the
// key's diatonic alteration for that letter.
//
// Numeric pitches: the result anchors degree 1 to the key's tonic via
// KeyOffsetSemitones, then adds the bar accidental if present; absent a
// bar accidental, a minor key additionally flattens degrees 3, 6, 7.
func GetAlteration(pitchname, keyname string, barAlteration *int) (int, error) {
	if len(pitchname) != 1 {
		return 0, &tbonerr.StructuralError{Msg: "pitchname must be a single character: " + pitchname}
	}
	c := pitchname[0]
	if c >= '1' && c <= '7' {
		offset, err := KeyOffsetSemitones(keyname)
		if err != nil {
			return 0, err
		}
		if barAlteration != nil {
			return offset + *barAlteration, nil
		}
		info, err := Lookup(keyname)
		if err != nil {
			return 0, err
		}
		degree := int(c - '0')
		if info.Mode == 1 && IsMinorDegree378(degree) {
			offset--
		}
		return offset, nil
	}

	if barAlteration != nil {
		return *barAlteration, nil
	}
	info, err := Lookup(keyname)
	if err != nil {
		return 0, err
	}
	idx := strings.IndexByte(PitchOrder, c)
	if idx < 0 {
		return 0, &tbonerr.StructuralError{Msg: "invalid pitchname: " + pitchname}
	}
	return info.Alterations[idx], nil
}

// BaseSemitone returns the unaltered semitone offset from c for an
// alphabetic pitchname (PitchOrder index) or a numeric degree (1..7).
func BaseSemitone(pitchname string) (int, error) {
	if len(pitchname) != 1 {
		return 0, &tbonerr.StructuralError{Msg: "pitchname must be a single character: " + pitchname}
	}
	c := pitchname[0]
	if c >= '1' && c <= '7' {
		return BaseSemitones[c-'1'], nil
	}
	idx := strings.IndexByte(PitchOrder, c)
	if idx < 0 {
		return 0, &tbonerr.StructuralError{Msg: "invalid pitchname: " + pitchname}
	}
	return BaseSemitones[idx], nil
}
