// Package config loads an optional compile-profile: a YAML file that
// seeds the CLI's defaults (which bar to start decoding from,
// quiet/verbose output, transposition) and the evaluator's per-part
// defaults (velocity, de-emphasis, channel) before the source's own
// V=/D=/C= directives take over. The metronome mode is decoded into
// Profile.Metronome, but the command-line driver does not read it: it
// always writes all three MIDI files.
//
// Loaded the way a BTML track file's front matter is read in the
// backing-track generator this package is adapted from: gopkg.in/yaml.v3
// into a plain struct, defaults filled in after Unmarshal. A profile is
// always optional: an absent or empty path just means "use the built-in
// defaults".
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"tbon/eval"
)

// MetronomeMode selects which tracks an exported MIDI file carries.
type MetronomeMode string

const (
	MetronomeMusic MetronomeMode = "music"
	MetronomeClick MetronomeMode = "metronome"
	MetronomeBoth  MetronomeMode = "both"
)

// Defaults mirrors eval.Defaults in the YAML's own field names.
type Defaults struct {
	Velocity   *float64 `yaml:"velocity"`
	DeEmphasis *float64 `yaml:"de_emphasis"`
	Channel    *int     `yaml:"channel"`
}

// Profile is the decoded shape of a tbon.yaml compile profile. Every
// field is optional; a zero Profile behaves identically to no profile
// at all.
type Profile struct {
	Metronome MetronomeMode `yaml:"metronome"`
	FirstBar  int           `yaml:"first_bar"`
	Quiet     bool          `yaml:"quiet"`
	Verbose   bool          `yaml:"verbose"`
	Transpose int           `yaml:"transpose"`
	Defaults  Defaults      `yaml:"defaults"`
}

// builtin is what an empty or absent profile resolves to.
func builtin() Profile {
	return Profile{Metronome: MetronomeMusic, FirstBar: 1}
}

// Load reads and parses the YAML profile at path. An empty path
// returns the built-in defaults without touching the filesystem.
func Load(path string) (Profile, error) {
	p := builtin()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, err
	}
	if p.Metronome == "" {
		p.Metronome = MetronomeMusic
	}
	if p.FirstBar == 0 {
		p.FirstBar = 1
	}
	return p, nil
}

// EvalDefaults projects the profile's defaults block onto
// eval.Defaults, falling back field-by-field to eval's own built-in
// defaults for anything the profile left unset.
func (p Profile) EvalDefaults() eval.Defaults {
	d := eval.Defaults{Velocity: 0.8, DeEmphasis: 0, Channel: 1}
	if p.Defaults.Velocity != nil {
		d.Velocity = *p.Defaults.Velocity
	}
	if p.Defaults.DeEmphasis != nil {
		d.DeEmphasis = *p.Defaults.DeEmphasis
	}
	if p.Defaults.Channel != nil {
		d.Channel = *p.Defaults.Channel
	}
	return d
}
