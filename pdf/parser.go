// seehuhn.de/go/handouts - add headers and footers to PDF handouts
// Copyright (C) 2025  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// maxNesting limits the depth of nested arrays and dictionaries.
const maxNesting = 256

// parser reads PDF objects from an in-memory buffer.
type parser struct {
	buf  []byte
	pos  int
	base int64

	// getLength resolves the /Length entry of a stream dictionary.
	// It may be nil, in which case indirect lengths are not supported.
	getLength func(Object) (int, bool)

	depth int
}

func newParser(buf []byte, base int64) *parser {
	return &parser{buf: buf, base: base}
}

func (p *parser) filePos() int64 {
	return p.base + int64(p.pos)
}

func (p *parser) errorf(format string, args ...any) error {
	return &MalformedFileError{
		Pos: p.filePos(),
		Err: fmt.Errorf(format, args...),
	}
}

func (p *parser) atEOF() bool {
	return p.pos >= len(p.buf)
}

func (p *parser) hasPrefix(pat string) bool {
	return bytes.HasPrefix(p.buf[p.pos:], []byte(pat))
}

// hasKeyword reports whether the input continues with the keyword pat,
// followed by a space, a delimiter or the end of input.
func (p *parser) hasKeyword(pat string) bool {
	if !p.hasPrefix(pat) {
		return false
	}
	end := p.pos + len(pat)
	return end >= len(p.buf) || isSpace[p.buf[end]] || isDelimiter[p.buf[end]]
}

// SkipWhiteSpace skips white space and comments.
func (p *parser) SkipWhiteSpace() {
	for p.pos < len(p.buf) {
		c := p.buf[p.pos]
		if c == '%' {
			for p.pos < len(p.buf) && p.buf[p.pos] != '\r' && p.buf[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		if !isSpace[c] {
			return
		}
		p.pos++
	}
}

// SkipString skips over the literal text pat.
func (p *parser) SkipString(pat string) error {
	if !p.hasPrefix(pat) {
		end := min(p.pos+len(pat), len(p.buf))
		return p.errorf("expected %q but found %q", pat, p.buf[p.pos:end])
	}
	p.pos += len(pat)
	return nil
}

// ReadIndirectObject reads an object of the form "n g obj ... endobj".
func (p *parser) ReadIndirectObject() (Reference, Object, error) {
	p.SkipWhiteSpace()
	number, err := p.ReadInteger()
	if err != nil {
		return 0, nil, err
	}
	p.SkipWhiteSpace()
	generation, err := p.ReadInteger()
	if err != nil {
		return 0, nil, err
	}
	p.SkipWhiteSpace()
	err = p.SkipString("obj")
	if err != nil {
		return 0, nil, err
	}
	if number < 0 || number > 1<<31 || generation < 0 || generation > 65535 {
		return 0, nil, p.errorf("invalid object number %d %d", number, generation)
	}
	ref := NewReference(uint32(number), uint16(generation))

	p.SkipWhiteSpace()
	obj, err := p.ReadObject()
	if err != nil {
		return 0, nil, err
	}

	if dict, isDict := obj.(Dict); isDict {
		p.SkipWhiteSpace()
		if p.hasKeyword("stream") {
			obj, err = p.readStreamData(dict)
			if err != nil {
				return 0, nil, err
			}
		}
	}

	// A missing "endobj" is tolerated.
	p.SkipWhiteSpace()
	if p.hasPrefix("endobj") {
		p.pos += len("endobj")
	}

	return ref, obj, nil
}

// ReadObject reads a direct object.  Sequences of the form "n g R" are
// returned as a [Reference].
func (p *parser) ReadObject() (Object, error) {
	p.SkipWhiteSpace()
	if p.atEOF() {
		return nil, &MalformedFileError{Pos: p.filePos(), Err: io.ErrUnexpectedEOF}
	}

	c := p.buf[p.pos]
	switch {
	case p.hasKeyword("null"):
		p.pos += 4
		return nil, nil
	case p.hasKeyword("true"):
		p.pos += 4
		return Bool(true), nil
	case p.hasKeyword("false"):
		p.pos += 5
		return Bool(false), nil
	case c == '/':
		return p.ReadName()
	case c >= '0' && c <= '9', c == '+', c == '-', c == '.':
		obj, err := p.ReadNumber()
		if err != nil {
			return nil, err
		}
		if a, isInt := obj.(Integer); isInt {
			if ref, ok := p.tryReference(a); ok {
				return ref, nil
			}
		}
		return obj, nil
	case p.hasPrefix("<<"):
		return p.ReadDict()
	case c == '<':
		p.pos++
		return p.ReadHexString()
	case c == '(':
		p.pos++
		return p.ReadQuotedString()
	case c == '[':
		p.pos++
		return p.ReadArray()
	}
	return nil, p.errorf("unexpected character %q", c)
}

// tryReference checks whether the integer a, which has just been read, is
// the start of an indirect reference.  If not, the input position is left
// unchanged.
func (p *parser) tryReference(a Integer) (Reference, bool) {
	save := p.pos
	p.SkipWhiteSpace()
	start := p.pos
	for p.pos < len(p.buf) && p.buf[p.pos] >= '0' && p.buf[p.pos] <= '9' {
		p.pos++
	}
	if p.pos > start && p.pos < len(p.buf) && isSpace[p.buf[p.pos]] {
		b, err := strconv.ParseUint(string(p.buf[start:p.pos]), 10, 16)
		p.SkipWhiteSpace()
		if err == nil && a >= 0 && a <= 1<<31 && p.hasKeyword("R") {
			p.pos++
			return NewReference(uint32(a), uint16(b)), true
		}
	}
	p.pos = save
	return 0, false
}

// ReadInteger reads an integer.
func (p *parser) ReadInteger() (Integer, error) {
	start := p.pos
	if p.pos < len(p.buf) && (p.buf[p.pos] == '+' || p.buf[p.pos] == '-') {
		p.pos++
	}
	for p.pos < len(p.buf) && p.buf[p.pos] >= '0' && p.buf[p.pos] <= '9' {
		p.pos++
	}
	x, err := strconv.ParseInt(string(p.buf[start:p.pos]), 10, 64)
	if err != nil {
		p.pos = start
		return 0, &MalformedFileError{Pos: p.filePos(), Err: err}
	}
	return Integer(x), nil
}

// ReadNumber reads an integer or real number.
func (p *parser) ReadNumber() (Object, error) {
	start := p.pos
	hasDot := false
	for p.pos < len(p.buf) {
		c := p.buf[p.pos]
		if c == '.' && !hasDot {
			hasDot = true
		} else if (c == '+' || c == '-') && p.pos == start {
			// sign
		} else if c < '0' || c > '9' {
			break
		}
		p.pos++
	}
	s := string(p.buf[start:p.pos])

	if hasDot {
		if s == "." || s == "-." || s == "+." {
			return Real(0), nil
		}
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, &MalformedFileError{Pos: p.base + int64(start), Err: err}
		}
		return Real(x), nil
	}

	x, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Very large integers are occasionally found in the wild.
		f, err2 := strconv.ParseFloat(s, 64)
		if err2 != nil {
			return nil, &MalformedFileError{Pos: p.base + int64(start), Err: err}
		}
		return Real(f), nil
	}
	return Integer(x), nil
}

// ReadQuotedString reads a ()-delimited string, starting after the opening
// bracket.
func (p *parser) ReadQuotedString() (String, error) {
	var res []byte
	parenCount := 0
	for p.pos < len(p.buf) {
		c := p.buf[p.pos]
		p.pos++
		switch c {
		case '\\':
			if p.pos >= len(p.buf) {
				break
			}
			c = p.buf[p.pos]
			p.pos++
			switch c {
			case 'n':
				res = append(res, '\n')
			case 'r':
				res = append(res, '\r')
			case 't':
				res = append(res, '\t')
			case 'b':
				res = append(res, '\b')
			case 'f':
				res = append(res, '\f')
			case '\r':
				if p.pos < len(p.buf) && p.buf[p.pos] == '\n' {
					p.pos++
				}
			case '\n':
				// line continuation
			case '0', '1', '2', '3', '4', '5', '6', '7':
				val := c - '0'
				for k := 0; k < 2 && p.pos < len(p.buf); k++ {
					d := p.buf[p.pos]
					if d < '0' || d > '7' {
						break
					}
					val = val*8 + (d - '0')
					p.pos++
				}
				res = append(res, val)
			default:
				res = append(res, c)
			}
		case '(':
			parenCount++
			res = append(res, c)
		case ')':
			if parenCount == 0 {
				return String(res), nil
			}
			parenCount--
			res = append(res, c)
		case '\r':
			if p.pos < len(p.buf) && p.buf[p.pos] == '\n' {
				p.pos++
			}
			res = append(res, '\n')
		default:
			res = append(res, c)
		}
	}
	return nil, &MalformedFileError{Pos: p.filePos(), Err: io.ErrUnexpectedEOF}
}

// ReadHexString reads a <>-delimited string, starting after the opening
// angle bracket.
func (p *parser) ReadHexString() (String, error) {
	var res []byte
	var hexVal byte
	first := true
	for p.pos < len(p.buf) {
		c := p.buf[p.pos]
		p.pos++
		var d byte
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case c == '>':
			if !first {
				res = append(res, 16*hexVal)
			}
			return String(res), nil
		case isSpace[c]:
			continue
		default:
			return nil, p.errorf("invalid character %q in hex string", c)
		}
		if first {
			hexVal = d
		} else {
			res = append(res, 16*hexVal+d)
		}
		first = !first
	}
	return nil, &MalformedFileError{Pos: p.filePos(), Err: io.ErrUnexpectedEOF}
}

// ReadName reads a PDF name object.
func (p *parser) ReadName() (Name, error) {
	err := p.SkipString("/")
	if err != nil {
		return "", err
	}

	var res []byte
	for p.pos < len(p.buf) {
		c := p.buf[p.pos]
		if isSpace[c] || isDelimiter[c] {
			break
		}
		p.pos++
		if c == '#' && p.pos+1 < len(p.buf) {
			v, err := strconv.ParseUint(string(p.buf[p.pos:p.pos+2]), 16, 8)
			if err == nil {
				res = append(res, byte(v))
				p.pos += 2
				continue
			}
		}
		res = append(res, c)
	}
	return Name(res), nil
}

// ReadArray reads an array, starting after the opening "[".
func (p *parser) ReadArray() (Array, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxNesting {
		return nil, p.errorf("objects nested too deeply")
	}

	array := Array{}
	for {
		p.SkipWhiteSpace()
		if p.atEOF() {
			return nil, &MalformedFileError{Pos: p.filePos(), Err: io.ErrUnexpectedEOF}
		}
		if p.buf[p.pos] == ']' {
			p.pos++
			return array, nil
		}
		obj, err := p.ReadObject()
		if err != nil {
			return nil, err
		}
		array = append(array, obj)
	}
}

// ReadDict reads a PDF dictionary.
func (p *parser) ReadDict() (Dict, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxNesting {
		return nil, p.errorf("objects nested too deeply")
	}

	err := p.SkipString("<<")
	if err != nil {
		return nil, err
	}

	dict := Dict{}
	for {
		p.SkipWhiteSpace()
		if p.atEOF() {
			return nil, &MalformedFileError{Pos: p.filePos(), Err: io.ErrUnexpectedEOF}
		}
		if p.hasPrefix(">>") {
			p.pos += 2
			return dict, nil
		}
		key, err := p.ReadName()
		if err != nil {
			return nil, err
		}
		p.SkipWhiteSpace()
		if p.hasPrefix(">>") {
			// key without a value
			continue
		}
		val, err := p.ReadObject()
		if err != nil {
			return nil, err
		}
		if val != nil {
			dict[key] = val
		}
	}
}

// readStreamData reads the data of a stream, starting at the "stream"
// keyword.  If the /Length entry is missing or wrong, the data is
// delimited by the next "endstream" keyword instead.
func (p *parser) readStreamData(dict Dict) (*Stream, error) {
	err := p.SkipString("stream")
	if err != nil {
		return nil, err
	}
	if p.hasPrefix("\r\n") {
		p.pos += 2
	} else if p.hasPrefix("\n") || p.hasPrefix("\r") {
		p.pos++
	}
	start := p.pos

	length := -1
	switch l := dict["Length"].(type) {
	case Integer:
		length = int(l)
	case Reference:
		if p.getLength != nil {
			if n, ok := p.getLength(l); ok {
				length = n
			}
		}
	}

	if length >= 0 && start+length <= len(p.buf) {
		p.pos = start + length
		p.SkipWhiteSpace()
		if p.hasPrefix("endstream") {
			p.pos += len("endstream")
			return &Stream{Dict: dict, Data: p.buf[start : start+length : start+length]}, nil
		}
	}

	idx := bytes.Index(p.buf[start:], []byte("endstream"))
	if idx < 0 {
		p.pos = start
		return nil, &MalformedFileError{Pos: p.filePos(), Err: errBadStream}
	}
	end := start + idx
	p.pos = end + len("endstream")
	if end > start && p.buf[end-1] == '\n' {
		end--
	}
	if end > start && p.buf[end-1] == '\r' {
		end--
	}
	return &Stream{Dict: dict, Data: p.buf[start:end:end]}, nil
}

var errNoHeader = errors.New("PDF header not found")

// readHeaderVersion reads the version from a "%PDF-x.y" header line.
// The header may be preceded by up to 1024 bytes of garbage.
func readHeaderVersion(buf []byte) (Version, int, error) {
	limit := min(len(buf), 1024+8)
	idx := bytes.Index(buf[:limit], []byte("%PDF-"))
	if idx < 0 || idx+8 > len(buf) {
		return 0, 0, &MalformedFileError{Err: errNoHeader}
	}
	ver, err := ParseVersion(string(buf[idx+5 : idx+8]))
	if err != nil {
		return 0, 0, &MalformedFileError{Pos: int64(idx + 5), Err: err}
	}
	return ver, idx, nil
}

var (
	isSpace = [256]bool{
		0:  true,
		9:  true,
		10: true,
		12: true,
		13: true,
		32: true,
	}
	isDelimiter = [256]bool{
		'(': true,
		')': true,
		'<': true,
		'>': true,
		'[': true,
		']': true,
		'{': true,
		'}': true,
		'/': true,
		'%': true,
	}
)
