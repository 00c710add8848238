package eval

// Note is one emitted note or rest event: a MIDI pitch (meaningless
// when Rest is true), a half-open-by-convention quarter-beat span, and
// the velocity/channel it was struck with.
type Note struct {
	Pitch    int
	Rest     bool
	Start    float64
	End      float64
	Velocity float64
	Channel  int
}

// PartOutput is one part's emitted note stream.
type PartOutput struct {
	Notes []Note
}

// Result is the full output of an evaluation pass: one note stream per
// part plus the shared metronome track. The meta-event stream is the
// one package preeval already produced; eval does not recompute it.
type Result struct {
	Parts     map[int]*PartOutput
	Metronome []Note
}
