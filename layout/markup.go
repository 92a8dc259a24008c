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

package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// PlaceholderContext holds the values substituted for the placeholders
// [page], [pages] and [date].
type PlaceholderContext struct {
	PageNumber int // 1-based
	TotalPages int
	Date       string
}

// Substitute replaces the placeholders in text.
// Both lower and upper case placeholders are recognised.
func Substitute(text string, ctx *PlaceholderContext) string {
	if ctx == nil || !strings.Contains(text, "[") {
		return text
	}
	page := strconv.Itoa(ctx.PageNumber)
	pages := strconv.Itoa(ctx.TotalPages)
	r := strings.NewReplacer(
		"[page]", page, "[PAGE]", page,
		"[pages]", pages, "[PAGES]", pages,
		"[date]", ctx.Date, "[DATE]", ctx.Date,
	)
	return r.Replace(text)
}

// Section identifies one of the text areas of the overlay.
type Section int

// The text areas of the overlay.
const (
	Title Section = iota
	FooterLeft
	FooterCenter
	FooterRight
)

func (s Section) String() string {
	switch s {
	case Title:
		return "title"
	case FooterLeft:
		return "footer-left"
	case FooterCenter:
		return "footer-center"
	case FooterRight:
		return "footer-right"
	default:
		return fmt.Sprintf("layout.Section(%d)", int(s))
	}
}

// MarkupError reports malformed inline markup.
type MarkupError struct {
	Section Section
	Offset  int // byte offset into the section text, after substitution
	Msg     string
}

func (err *MarkupError) Error() string {
	return fmt.Sprintf("layout: %s: %s (at byte %d)", err.Section, err.Msg, err.Offset)
}

// A piece is a run of text before style resolution.
// If span is nil, the section style applies.
type piece struct {
	text string
	span *StyleSpec
}

// lineBreaks lists the line break markers, longer markers first.
var lineBreaks = []string{
	"<br />", "<BR />", "<br/>", "<BR/>", "<br>", "<BR>",
	"[br]", "[BR]", "\r\n", "\n", "\r", "|",
}

const (
	spanStart = "[font"
	spanEnd   = "[/font]"
)

// splitMarkup splits text into lines of pieces.
//
// The scanner has two states: outside of any span, and inside a
// [font ...]...[/font] span.  Spans may continue across line breaks but
// cannot be nested.
func splitMarkup(section Section, text string) ([][]piece, error) {
	lines := [][]piece{nil}
	var span *StyleSpec
	var cur strings.Builder
	spanPos := 0

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		n := len(lines) - 1
		lines[n] = append(lines[n], piece{text: cur.String(), span: span})
		cur.Reset()
	}
	fail := func(pos int, format string, args ...any) error {
		return &MarkupError{Section: section, Offset: pos, Msg: fmt.Sprintf(format, args...)}
	}

	i := 0
tokenLoop:
	for i < len(text) {
		for _, br := range lineBreaks {
			if strings.HasPrefix(text[i:], br) {
				flush()
				lines = append(lines, nil)
				i += len(br)
				continue tokenLoop
			}
		}

		switch {
		case hasPrefixFold(text[i:], spanEnd):
			if span == nil {
				return nil, fail(i, "%s without matching %s", spanEnd, spanStart+"]")
			}
			flush()
			span = nil
			i += len(spanEnd)
			continue

		case isSpanStart(text[i:]):
			if span != nil {
				return nil, fail(i, "nested %s span (the span at byte %d is still open)", spanStart+"]", spanPos)
			}
			end, brk := tagEnd(text[i:])
			if brk >= 0 {
				return nil, fail(i+brk, "line break inside %s tag", spanStart+" ...]")
			}
			if end < 0 {
				return nil, fail(i, "unterminated %s tag", spanStart+" ...]")
			}
			spec, err := ParseStyle(text[i+len(spanStart) : i+end])
			if err != nil {
				return nil, fail(i, "%v", err)
			}
			flush()
			span = &spec
			spanPos = i
			i += end + 1
			continue
		}

		cur.WriteByte(text[i])
		i++
	}
	flush()
	if span != nil {
		return nil, fail(spanPos, "unterminated %s span", spanStart+"]")
	}
	return lines, nil
}

// tagEnd returns the offset of the "]" which closes the tag at the start
// of s, or -1.  If a line break marker comes first, its offset is
// returned as brk.
func tagEnd(s string) (end, brk int) {
	for j := len(spanStart); j < len(s); j++ {
		for _, br := range lineBreaks {
			if strings.HasPrefix(s[j:], br) {
				return -1, j
			}
		}
		if s[j] == ']' {
			return j, -1
		}
	}
	return -1, -1
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func isSpanStart(s string) bool {
	if !hasPrefixFold(s, spanStart) {
		return false
	}
	if len(s) == len(spanStart) {
		return true
	}
	c := s[len(spanStart)]
	return c == ']' || c == ' ' || c == '\t'
}

// PlainText returns text with placeholders substituted and markup
// removed.  Line breaks are replaced by single spaces.
func PlainText(section Section, text string, ctx *PlaceholderContext) (string, error) {
	lines, err := splitMarkup(section, Substitute(text, ctx))
	if err != nil {
		return "", err
	}
	words := make([]string, 0, len(lines))
	for _, pieces := range lines {
		var b strings.Builder
		for _, p := range pieces {
			b.WriteString(p.text)
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			words = append(words, s)
		}
	}
	return strings.Join(words, " "), nil
}
