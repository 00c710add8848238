// Package tbonerr defines the fatal error kinds raised by the TBON
// compiler, per the error-handling design: every kind but a warning is
// fatal to the compile, with no retry and no partial output.
package tbonerr

import "fmt"

// SyntaxError reports malformed input at a byte offset, with the set of
// productions the parser was trying when it failed.
type SyntaxError struct {
	Pos      int
	Expected []string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: expected one of %v", e.Pos, e.Expected)
}

// UnknownKeySignature reports a key name absent from the key-signature table.
type UnknownKeySignature struct {
	Name string
}

func (e *UnknownKeySignature) Error() string {
	return fmt.Sprintf("unknown key signature %q", e.Name)
}

// RangeError reports a value outside its documented domain: tempo,
// velocity, de-emphasis, channel, or octave.
type RangeError struct {
	Field string
	Value float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s out of range: %v", e.Field, e.Value)
}

// StructuralError reports a tree shape that the evaluator cannot honor,
// such as a chordrest with no prior chord voice to displace.
type StructuralError struct {
	Msg string
}

func (e *StructuralError) Error() string {
	return e.Msg
}
