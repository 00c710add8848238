// Package midi translates a compiled score (the per-part note streams
// and metronome track from package eval, the tempo/key/meter stream
// from package preeval) into a Standard MIDI File.
//
// One smf.Track per output voice, events collected with absolute ticks
// then converted to the deltas Track.Add expects, tempo/meta written to
// track 0. TBON already names literal pitches, so there is no chord
// voicing or drum pattern to generate here; only the tick-bookkeeping
// shape is shared with the note-generating code this is adapted from.
package midi

import (
	"math"
	"sort"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"tbon/config"
	"tbon/eval"
	"tbon/preeval"
)

// ticksPerQuarter is the SMF resolution used throughout.
const ticksPerQuarter = 480

// metronomeChannel is the standard MIDI percussion channel, 0-indexed.
const metronomeChannel = 9

func ticksAt(beat float64) uint32 {
	return uint32(math.Round(beat * float64(ticksPerQuarter)))
}

type timedMsg struct {
	tick uint32
	msg  gomidi.Message
}

func addSorted(track *smf.Track, events []timedMsg) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].tick < events[j].tick })
	var prev uint32
	for _, e := range events {
		track.Add(e.tick-prev, e.msg)
		prev = e.tick
	}
}

// keyTonicPitchClass recovers the tonic's pitch class (0=C..11=B) from
// a key signature's signed sharp/flat count and mode via the
// circle-of-fifths: a major key's tonic sits 7*sf semitones above C
// (mod 12); a minor key's tonic sits a minor third below its relative
// major.
func keyTonicPitchClass(sf, mode int) uint8 {
	major := ((7*sf)%12 + 12) % 12
	if mode == 1 {
		return uint8(((major-3)%12 + 12) % 12)
	}
	return uint8(major)
}

// meterEncoding converts a (numerator, denominator) meter to the MIDI
// time-signature meta event's (denominator-power-of-two, clocks-per-
// metronome-click) pair. The power-of-two form is the general case of
// the contract's named examples (2->1, 4->2, 8->3); clocks-per-click
// follows the same compound/simple split, with 24 (the standard
// quarter-note click) as the fallback for meters the contract leaves
// unnamed (denominator 8 without a numerator divisible by 3, or
// denominator 16).
func meterEncoding(numerator, denominator int) (denomPower, clocksPerClick uint8) {
	power := 0
	for d := denominator; d > 1; d /= 2 {
		power++
	}
	switch {
	case denominator == 8 && numerator%3 == 0:
		clocksPerClick = 36
	case denominator == 4:
		clocksPerClick = 24
	case denominator == 2:
		clocksPerClick = 48
	default:
		clocksPerClick = 24
	}
	return uint8(power), clocksPerClick
}

// Encode builds a Standard MIDI File from one evaluation's output.
// mode selects which tracks an exported file carries: the compiled
// parts, the metronome click track, or both. parts is keyed by part
// number exactly as eval.Result.Parts is.
func Encode(parts map[int]*eval.PartOutput, metronome []eval.Note, meta []preeval.MetaEvent, mode config.MetronomeMode) (*smf.SMF, error) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	s.Add(buildMetaTrack(meta))

	if mode == config.MetronomeMusic || mode == config.MetronomeBoth {
		partNums := make([]int, 0, len(parts))
		for n := range parts {
			partNums = append(partNums, n)
		}
		sort.Ints(partNums)
		for _, n := range partNums {
			s.Add(buildNoteTrack(parts[n].Notes, 0))
		}
	}
	if mode == config.MetronomeClick || mode == config.MetronomeBoth {
		s.Add(buildNoteTrack(metronome, metronomeChannel))
	}

	return s, nil
}

func buildMetaTrack(meta []preeval.MetaEvent) smf.Track {
	var track smf.Track
	ordered := append([]preeval.MetaEvent(nil), meta...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].BeatIndex < ordered[j].BeatIndex })

	var events []timedMsg
	for _, m := range ordered {
		tick := ticksAt(m.BeatIndex)
		switch m.Kind {
		case 'T':
			events = append(events, timedMsg{tick, smf.MetaTempo(m.Tempo)})
		case 'K':
			sf := uint8(m.SF)
			isFlat := m.SF < 0
			if isFlat {
				sf = uint8(-m.SF)
			}
			events = append(events, timedMsg{tick, smf.MetaKey(keyTonicPitchClass(m.SF, m.Mode), m.Mode == 0, sf, isFlat)})
		case 'M':
			denomPower, clocks := meterEncoding(m.Numerator, m.Denominator)
			events = append(events, timedMsg{tick, smf.MetaTimeSig(m.Numerator, denomPower, clocks, 8)})
		}
	}
	addSorted(&track, events)
	track.Close(0)
	return track
}

// buildNoteTrack renders one note stream as note-on/note-off pairs on
// the given 0-indexed channel; a note's own Channel field (1-indexed
// per §3) is preferred when set to something other than the zero
// value, so per-part channel directives still select their own voice.
func buildNoteTrack(notes []eval.Note, defaultChannel uint8) smf.Track {
	var track smf.Track
	var events []timedMsg
	for _, n := range notes {
		if n.Rest {
			continue
		}
		ch := defaultChannel
		if n.Channel > 0 {
			ch = uint8(n.Channel - 1)
		}
		vel := uint8(n.Velocity * 127)
		onTick := ticksAt(n.Start)
		offTick := ticksAt(n.End)
		if offTick <= onTick {
			offTick = onTick + 1
		}
		events = append(events, timedMsg{onTick, gomidi.NoteOn(ch, uint8(n.Pitch), vel)})
		events = append(events, timedMsg{offTick, gomidi.NoteOff(ch, uint8(n.Pitch))})
	}
	addSorted(&track, events)
	track.Close(0)
	return track
}
