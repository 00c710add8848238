// Package parser implements the TBON grammar: a recursive-descent
// parser with ordered-choice alternatives, producing an ast.Node tree
// with each node's production name (ast.Kind) and byte span preserved
// for the two tree walkers.
//
// No PEG or parser-combinator library is used: none of the retrieved
// reference repositories import one (see DESIGN.md). The grammar below
// is still written production-by-production, in the same order as the
// PEG source it mirrors, so the ordered-choice behavior (e.g. "(:" before
// plain "(", "##" before "#") is exactly what a PEG engine would resolve.
package parser

import (
	"tbon/ast"
	"tbon/tbonerr"
)

// Accidental spellings, ASCII and Unicode, checked longest-first so that
// "##" and the Unicode double-sharp glyph win over a lone "#".
const (
	asciiDoubleSharp = "##"
	asciiSharp       = "#"
	asciiDoubleFlat  = "@@"
	asciiFlat        = "@"
	asciiNatural     = "%"
	unicodeDoubleSharp = "\U0001D12A"
	unicodeSharp       = "♯"
	unicodeDoubleFlat  = "\U0001D12B"
	unicodeFlat        = "♭"
	unicodeNatural     = "♮"
)

// Parser holds the cursor over one source string.
type Parser struct {
	scanner
}

// Parse runs the grammar's top symbol, score, over src and returns the
// resulting AST, or a *tbonerr.SyntaxError at the first byte offset the
// grammar could not continue from.
func Parse(src string) (*ast.Node, error) {
	p := &Parser{scanner{src: src}}
	return p.parseScore()
}

func (p *Parser) errAt(pos int, expected ...string) error {
	return &tbonerr.SyntaxError{Pos: pos, Expected: expected}
}

// score = ws_or_comment* music*
// music = (partswitch* bar+)+ ws_or_comment*
// Flattened: a top-level sequence of partswitch and bar nodes.
func (p *Parser) parseScore() (*ast.Node, error) {
	root := ast.New(ast.Score, 0)
	p.skipWS()
	for !p.eof() {
		if p.hasPrefix("P=") {
			node, err := p.parsePartSwitch()
			if err != nil {
				return nil, err
			}
			root.Append(node)
		} else {
			node, err := p.parseBar()
			if err != nil {
				return nil, err
			}
			root.Append(node)
		}
		p.skipWS()
	}
	return root, nil
}

// partswitch = "P=" positive_integer
func (p *Parser) parsePartSwitch() (*ast.Node, error) {
	pos := p.pos
	p.consume("P=")
	n, ok := p.parseUnsignedInt()
	if !ok || n <= 0 {
		return nil, p.errAt(p.pos, "positive_integer")
	}
	node := ast.New(ast.PartSwitch, pos)
	node.Num = n
	return node, nil
}

// bar = (ws_or_comment* (meta / beat) ws_or_comment+)+ barline
// barline = "|" / ":"
func (p *Parser) parseBar() (*ast.Node, error) {
	bar := ast.New(ast.Bar, p.pos)
	for {
		p.skipWS()
		if p.eof() {
			return nil, p.errAt(p.pos, "|", ":")
		}
		if b := p.peekByte(); b == '|' || b == ':' {
			if len(bar.Children) == 0 {
				return nil, p.errAt(p.pos, "meta", "beat")
			}
			p.pos++
			return bar, nil
		}

		metaNode, err := p.parseMeta()
		if err != nil {
			return nil, err
		}
		if metaNode != nil {
			bar.Append(metaNode)
			continue
		}

		beatNode, err := p.parseBeat()
		if err != nil {
			return nil, err
		}
		if beatNode != nil {
			bar.Append(beatNode)
			continue
		}

		return nil, p.errAt(p.pos, "meta", "beat", "|", ":")
	}
}

// meta = beatspec / key / tempo / relativetempo / velocity / de_emphasis / channel
func (p *Parser) parseMeta() (*ast.Node, error) {
	switch {
	case p.hasPrefix("B="):
		return p.parseBeatSpec()
	case p.hasPrefix("K="):
		return p.parseKey()
	case p.hasPrefix("T="):
		return p.parseFloatMeta("T=", ast.Tempo)
	case p.hasPrefix("t="):
		return p.parseFloatMeta("t=", ast.RelativeTempo)
	case p.hasPrefix("V="):
		return p.parseFloatMeta("V=", ast.Velocity)
	case p.hasPrefix("D="):
		return p.parseFloatMeta("D=", ast.DeEmphasis)
	case p.hasPrefix("C="):
		return p.parseChannel()
	default:
		return nil, nil
	}
}

// beatspec = "B=" ("2." / "2" / "4." / "4" / "8." / "8")
func (p *Parser) parseBeatSpec() (*ast.Node, error) {
	pos := p.pos
	p.consume("B=")
	for _, spec := range []string{"2.", "2", "4.", "4", "8.", "8"} {
		if p.consume(spec) {
			node := ast.New(ast.BeatSpec, pos)
			node.Text = spec
			return node, nil
		}
	}
	return nil, p.errAt(p.pos, "2.", "2", "4.", "4", "8.", "8")
}

// key = "K=" [A-Ga-g] ("@" / "#")?
func (p *Parser) parseKey() (*ast.Node, error) {
	pos := p.pos
	p.consume("K=")
	r, size := p.peekRune()
	if !isAlphaPitch(r) {
		return nil, p.errAt(p.pos, "[A-Ga-g]")
	}
	p.pos += size
	name := string(r)
	if p.consume("@") {
		name += "@"
	} else if p.consume("#") {
		name += "#"
	}
	node := ast.New(ast.Key, pos)
	node.Text = name
	return node, nil
}

func (p *Parser) parseFloatMeta(prefix string, kind ast.Kind) (*ast.Node, error) {
	pos := p.pos
	p.consume(prefix)
	v, ok := p.parseFloat()
	if !ok {
		return nil, p.errAt(p.pos, "floatnum")
	}
	node := ast.New(kind, pos)
	node.Num64 = v
	return node, nil
}

// channel = "C=" (1..16)
func (p *Parser) parseChannel() (*ast.Node, error) {
	pos := p.pos
	p.consume("C=")
	n, ok := p.parseUnsignedInt()
	if !ok {
		return nil, p.errAt(p.pos, "1..16")
	}
	node := ast.New(ast.Channel, pos)
	node.Num = n
	return node, nil
}

// beat = subbeat+
// subbeat = extendable / hold   (hold folded directly as its own kind)
func (p *Parser) parseBeat() (*ast.Node, error) {
	beat := ast.New(ast.Beat, p.pos)
	for {
		node, err := p.parseSubbeat()
		if err != nil {
			return nil, err
		}
		if node == nil {
			break
		}
		beat.Append(node)
	}
	if len(beat.Children) == 0 {
		return nil, nil
	}
	return beat, nil
}

// subbeat tokens are written contiguously: no whitespace separates them
// within one beat. A nil, nil return means the cursor sits on something
// that cannot start a subbeat (whitespace, barline, meta prefix, EOF).
func (p *Parser) parseSubbeat() (*ast.Node, error) {
	if p.eof() {
		return nil, nil
	}
	switch b := p.peekByte(); b {
	case '-':
		pos := p.pos
		p.pos++
		return ast.New(ast.Hold, pos), nil
	case '_', 'z':
		pos := p.pos
		p.pos++
		return ast.New(ast.Rest, pos), nil
	case '(':
		return p.parseParenGroup()
	}
	return p.parsePitch()
}

// chord = "(" chorditem chorditem+ ")"
// roll = "(:" pitch pitch+ ")"
// ornament = "(~" pitch pitch+ ")"
// Ordered choice tries chord first; "(:" and "(~" fail chord's first
// chorditem (':' and '~' are not valid chorditem starts), so the parser
// resolves the same way a PEG engine would by dispatching directly on
// the two-character prefix.
func (p *Parser) parseParenGroup() (*ast.Node, error) {
	pos := p.pos
	switch {
	case p.hasPrefix("(:"):
		p.pos += 2
		return p.parsePitchGroup(ast.Roll, pos, "roll")
	case p.hasPrefix("(~"):
		p.pos += 2
		return p.parsePitchGroup(ast.Ornament, pos, "ornament")
	default:
		p.pos++
		return p.parseChord(pos)
	}
}

func (p *Parser) parsePitchGroup(kind ast.Kind, pos int, what string) (*ast.Node, error) {
	node := ast.New(kind, pos)
	for {
		pitch, err := p.parsePitch()
		if err != nil {
			return nil, err
		}
		if pitch == nil {
			break
		}
		node.Append(pitch)
	}
	if len(node.Children) < 2 {
		return nil, p.errAt(p.pos, what+" requires at least two pitches")
	}
	if !p.consume(")") {
		return nil, p.errAt(p.pos, ")")
	}
	return node, nil
}

// chord = "(" chorditem chorditem+ ")"
// chorditem = chordpitch / "-" / ("_" / "z")
func (p *Parser) parseChord(pos int) (*ast.Node, error) {
	node := ast.New(ast.Chord, pos)
	for {
		if p.hasPrefix(")") {
			break
		}
		switch b := p.peekByte(); b {
		case '-':
			node.Append(ast.New(ast.Hold, p.pos))
			p.pos++
			continue
		case '_', 'z':
			node.Append(ast.New(ast.Rest, p.pos))
			p.pos++
			continue
		}
		pitch, err := p.parsePitch()
		if err != nil {
			return nil, err
		}
		if pitch == nil {
			return nil, p.errAt(p.pos, "chorditem", ")")
		}
		node.Append(pitch)
	}
	if len(node.Children) < 2 {
		return nil, p.errAt(p.pos, "chord requires at least two tones")
	}
	if !p.consume(")") {
		return nil, p.errAt(p.pos, ")")
	}
	return node, nil
}

// pitch = ("^" / "/")* alteration? pitchname
// alteration = doublesharp / sharp / doubleflat / flat / natural
//
// A nil, nil return means nothing was consumed: the cursor is not on a
// valid pitch start. Once an octave marker or alteration has been
// consumed, a missing pitchname is a fatal syntax error, not "no match".
func (p *Parser) parsePitch() (*ast.Node, error) {
	start := p.pos
	node := ast.New(ast.Pitch, start)
	consumedAny := false
	for {
		switch p.peekByte() {
		case '^':
			node.Append(ast.New(ast.OctaveUp, p.pos))
			p.pos++
			consumedAny = true
			continue
		case '/':
			node.Append(ast.New(ast.OctaveDown, p.pos))
			p.pos++
			consumedAny = true
			continue
		}
		break
	}

	if alt, altPos, ok := p.parseAlteration(); ok {
		node.Append(&ast.Node{Kind: alt, Pos: altPos})
		consumedAny = true
	}

	r, size := p.peekRune()
	if !isPitchNameRune(r) {
		if consumedAny {
			return nil, p.errAt(p.pos, "pitchname")
		}
		p.pos = start
		return nil, nil
	}
	nameNode := ast.New(ast.PitchName, p.pos)
	nameNode.Text = string(r)
	p.pos += size
	node.Append(nameNode)
	return node, nil
}

func (p *Parser) parseAlteration() (ast.Kind, int, bool) {
	pos := p.pos
	switch {
	case p.consume(asciiDoubleSharp), p.consume(unicodeDoubleSharp):
		return ast.DoubleSharp, pos, true
	case p.consume(asciiDoubleFlat), p.consume(unicodeDoubleFlat):
		return ast.DoubleFlat, pos, true
	case p.consume(asciiSharp), p.consume(unicodeSharp):
		return ast.Sharp, pos, true
	case p.consume(asciiFlat), p.consume(unicodeFlat):
		return ast.Flat, pos, true
	case p.consume(asciiNatural), p.consume(unicodeNatural):
		return ast.Natural, pos, true
	}
	return 0, 0, false
}
