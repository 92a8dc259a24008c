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

package graphics

import (
	"bytes"
	"errors"
	"io"
	"strconv"

	"seehuhn.de/go/handouts/pdf"
)

// A Scanner breaks a content stream into operators and their operands.
//
// Parse errors are ignored as much as possible, so that damaged content
// streams can still be inspected.  Inline images are returned as a single
// "BI" operator with two operands: the image dictionary and the image
// data.
type Scanner struct {
	data []byte
	pos  int

	op     string
	opPos  int
	args   []pdf.Object
	frames []*scanFrame
	err    error
}

type scanFrame struct {
	data   []pdf.Object
	isDict bool
}

// operator is a bare keyword in the content stream.
type operator string

// PDF implements the [pdf.Object] interface.
func (op operator) PDF(w io.Writer) error {
	_, err := io.WriteString(w, string(op))
	return err
}

// NewScanner returns a scanner which reads the given content stream.
func NewScanner(data []byte) *Scanner {
	return &Scanner{data: data}
}

// Scan advances the scanner to the next operator.  It returns false when
// the end of the content stream is reached.
func (s *Scanner) Scan() bool {
	s.args = s.args[:0]
	for {
		start, tok, ok := s.nextToken()
		if !ok {
			return false
		}

		var obj pdf.Object
		switch tok {
		case operator("<<"):
			s.frames = append(s.frames, &scanFrame{isDict: true})
			continue
		case operator("["):
			s.frames = append(s.frames, &scanFrame{})
			continue
		case operator(">>"):
			n := len(s.frames) - 1
			if n < 0 || !s.frames[n].isDict {
				continue
			}
			obj = makeDict(s.frames[n].data)
			s.frames = s.frames[:n]
		case operator("]"):
			n := len(s.frames) - 1
			if n < 0 || s.frames[n].isDict {
				continue
			}
			obj = pdf.Array(s.frames[n].data)
			s.frames = s.frames[:n]
		default:
			obj = tok
		}

		if n := len(s.frames); n > 0 {
			s.frames[n-1].data = append(s.frames[n-1].data, obj)
			continue
		}
		if op, isOp := obj.(operator); isOp {
			s.op = string(op)
			s.opPos = start
			if op == "BI" {
				s.readInlineImage()
			}
			return true
		}
		s.args = append(s.args, obj)
	}
}

// Op returns the most recent operator found by Scan.
func (s *Scanner) Op() string {
	return s.op
}

// Args returns the operands of the most recent operator.
// The slice is only valid until the next call to Scan.
func (s *Scanner) Args() []pdf.Object {
	return s.args
}

// Offset returns the byte offset of the most recent operator.
func (s *Scanner) Offset() int64 {
	return int64(s.opPos)
}

// Err returns the first structural problem found in the content stream, if
// any.  Scanning continues after such problems.
func (s *Scanner) Err() error {
	return s.err
}

var (
	errUnterminatedString = errors.New("graphics: unterminated string")
	errUnterminatedImage  = errors.New("graphics: unterminated inline image")
)

func makeDict(data []pdf.Object) pdf.Dict {
	dict := pdf.Dict{}
	for i := 0; i+1 < len(data); i += 2 {
		key, ok := data[i].(pdf.Name)
		if !ok || data[i+1] == nil {
			continue
		}
		dict[key] = data[i+1]
	}
	return dict
}

func (s *Scanner) readInlineImage() {
	var entries []pdf.Object
	for {
		_, tok, ok := s.nextToken()
		if !ok {
			s.setErr(errUnterminatedImage)
			s.args = append(s.args[:0], makeDict(entries))
			return
		}
		if tok == operator("ID") {
			break
		}
		entries = append(entries, tok)
	}

	// a single white-space character separates ID from the data
	if s.pos < len(s.data) && isSpace[s.data[s.pos]] {
		s.pos++
	}
	dataStart := s.pos
	end := -1
	for i := dataStart; i+1 < len(s.data); i++ {
		if s.data[i] != 'E' || s.data[i+1] != 'I' {
			continue
		}
		if i > dataStart && !isSpace[s.data[i-1]] {
			continue
		}
		if i+2 < len(s.data) && !isSpace[s.data[i+2]] && !isDelimiter[s.data[i+2]] {
			continue
		}
		end = i
		break
	}

	var data []byte
	if end < 0 {
		s.setErr(errUnterminatedImage)
		data = s.data[dataStart:]
		s.pos = len(s.data)
	} else {
		data = bytes.TrimRight(s.data[dataStart:end], " \t\r\n\f\000")
		s.pos = end + 2
	}
	s.args = append(s.args[:0], makeDict(entries), pdf.String(data))
}

func (s *Scanner) setErr(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *Scanner) skipWhiteSpace() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case isSpace[c]:
			s.pos++
		case c == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		default:
			return
		}
	}
}

func (s *Scanner) nextToken() (int, pdf.Object, bool) {
	s.skipWhiteSpace()
	if s.pos >= len(s.data) {
		return s.pos, nil, false
	}
	start := s.pos
	c := s.data[s.pos]
	switch {
	case c == '/':
		s.pos++
		return start, s.readName(), true
	case c == '(':
		s.pos++
		return start, s.readString(), true
	case c == '<':
		if s.pos+1 < len(s.data) && s.data[s.pos+1] == '<' {
			s.pos += 2
			return start, operator("<<"), true
		}
		s.pos++
		return start, s.readHexString(), true
	case c == '>':
		s.pos++
		if s.pos < len(s.data) && s.data[s.pos] == '>' {
			s.pos++
			return start, operator(">>"), true
		}
		return start, operator(">"), true
	case c == '[' || c == ']' || c == '{' || c == '}' || c == ')':
		s.pos++
		return start, operator(c), true
	}

	for s.pos < len(s.data) && !isSpace[s.data[s.pos]] && !isDelimiter[s.data[s.pos]] {
		s.pos++
	}
	word := string(s.data[start:s.pos])
	switch word {
	case "true":
		return start, pdf.Bool(true), true
	case "false":
		return start, pdf.Bool(false), true
	case "null":
		return start, nil, true
	}
	if c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
		if x, err := strconv.ParseInt(word, 10, 64); err == nil {
			return start, pdf.Integer(x), true
		}
		if x, err := strconv.ParseFloat(word, 64); err == nil {
			return start, pdf.Real(x), true
		}
	}
	return start, operator(word), true
}

func (s *Scanner) readName() pdf.Name {
	var name []byte
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if isSpace[c] || isDelimiter[c] {
			break
		}
		if c == '#' && s.pos+2 < len(s.data) {
			if x, err := strconv.ParseUint(string(s.data[s.pos+1:s.pos+3]), 16, 8); err == nil {
				name = append(name, byte(x))
				s.pos += 3
				continue
			}
		}
		name = append(name, c)
		s.pos++
	}
	return pdf.Name(name)
}

func (s *Scanner) readString() pdf.String {
	var res []byte
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return pdf.String(res)
			}
		case '\\':
			if s.pos >= len(s.data) {
				continue
			}
			c = s.data[s.pos]
			s.pos++
			switch c {
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			case '\r':
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
				continue
			case '\n':
				continue
			case '0', '1', '2', '3', '4', '5', '6', '7':
				x := int(c - '0')
				for k := 0; k < 2 && s.pos < len(s.data); k++ {
					d := s.data[s.pos]
					if d < '0' || d > '7' {
						break
					}
					x = 8*x + int(d-'0')
					s.pos++
				}
				c = byte(x)
			}
		}
		res = append(res, c)
	}
	s.setErr(errUnterminatedString)
	return pdf.String(res)
}

func (s *Scanner) readHexString() pdf.String {
	var res []byte
	var hi byte
	odd := false
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		var d byte
		switch {
		case c == '>':
			if odd {
				res = append(res, hi<<4)
			}
			return pdf.String(res)
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		default:
			continue
		}
		if odd {
			res = append(res, hi<<4|d)
		} else {
			hi = d
		}
		odd = !odd
	}
	s.setErr(errUnterminatedString)
	return pdf.String(res)
}

var isSpace = [256]bool{
	0: true, '\t': true, '\n': true, '\f': true, '\r': true, ' ': true,
}

var isDelimiter = [256]bool{
	'(': true, ')': true, '<': true, '>': true, '[': true, ']': true,
	'{': true, '}': true, '/': true, '%': true,
}
