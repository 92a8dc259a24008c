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
	"slices"
	"strings"
)

// Default font sizes, in points.
const (
	DefaultTitleSize  = 24
	DefaultFooterSize = 14
)

// LineSpacing is the distance between baselines, as a multiple of the
// font size.
const LineSpacing = 1.2

// Margins give the position of the overlay text relative to the page box.
// Zero fields are replaced by the corresponding field of [DefaultMargins].
type Margins struct {
	Top    float64 // top edge to the baseline of the first title line
	Bottom float64 // bottom edge to the baseline of the last footer line
	Side   float64 // left/right edge to the text of the outer footer columns
}

// DefaultMargins are the margins used when none are configured.
var DefaultMargins = Margins{Top: 50, Bottom: 30, Side: 50}

func (m Margins) withDefaults() Margins {
	if m.Top == 0 {
		m.Top = DefaultMargins.Top
	}
	if m.Bottom == 0 {
		m.Bottom = DefaultMargins.Bottom
	}
	if m.Side == 0 {
		m.Side = DefaultMargins.Side
	}
	return m
}

// Content is the overlay configuration seen by the layout engine.
type Content struct {
	// Title is shown on the first page only.  Nil fields and empty strings
	// produce no output.
	Title        *string
	FooterLeft   *string
	FooterCenter *string
	FooterRight  *string

	Header StyleSpec
	Footer StyleSpec

	Margins Margins
}

func (c *Content) text(s Section) string {
	var p *string
	switch s {
	case Title:
		p = c.Title
	case FooterLeft:
		p = c.FooterLeft
	case FooterCenter:
		p = c.FooterCenter
	case FooterRight:
		p = c.FooterRight
	}
	if p == nil {
		return ""
	}
	return *p
}

func (c *Content) sectionStyle(s Section) Style {
	if s == Title {
		return c.Header.Resolve(DefaultTitleSize)
	}
	return c.Footer.Resolve(DefaultFooterSize)
}

// Measurer determines the width of text.
type Measurer interface {
	// TextWidth returns the width of text, in points.
	TextWidth(family string, bold, italic bool, text string, size float64) float64
}

// Align describes the horizontal alignment of text within a column.
type Align int

// Possible alignments.
const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Column is a horizontal range of the page, measured from the left edge of
// the page box.
type Column struct {
	X0, X1 float64
	Align  Align
}

// Columns returns the columns for the left, center and right footer
// sections.  The columns cover 25%, 50% and 25% of the page width.
func Columns(width float64) [3]Column {
	a := width / 4
	b := width - a
	return [3]Column{
		{X0: 0, X1: a, Align: AlignLeft},
		{X0: a, X1: b, Align: AlignCenter},
		{X0: b, X1: width, Align: AlignRight},
	}
}

// Run is a piece of text in a single style, at a given position.
type Run struct {
	Text  string
	Style Style
	X     float64 // start of the text, relative to the page box
	Width float64
}

// Line is one line of text.
type Line struct {
	Runs     []Run
	Baseline float64 // relative to the bottom of the page box
	Width    float64
	Size     float64 // largest font size on the line
}

// Block is the text of one section.
type Block struct {
	Section Section
	Lines   []Line
}

// Layout positions the text for one page of the given size.
//
// Only sections with text produce a block.  The title is included for the
// first page only.  Lines which are wider than their column are not
// wrapped or scaled.
func Layout(c *Content, ctx *PlaceholderContext, width, height float64, m Measurer) ([]Block, error) {
	margins := c.Margins.withDefaults()
	cols := Columns(width)

	var res []Block
	for _, sec := range []Section{Title, FooterLeft, FooterCenter, FooterRight} {
		if sec == Title && ctx != nil && ctx.PageNumber != 1 {
			continue
		}
		lines, err := c.lines(sec, ctx, m)
		if err != nil {
			return nil, err
		}
		if len(lines) == 0 {
			continue
		}

		// horizontal placement
		for i := range lines {
			line := &lines[i]
			var x float64
			switch sec {
			case Title:
				x = (width - line.Width) / 2
			case FooterLeft:
				x = cols[0].X0 + margins.Side
			case FooterCenter:
				x = (cols[1].X0+cols[1].X1)/2 - line.Width/2
			case FooterRight:
				x = cols[2].X1 - margins.Side - line.Width
			}
			for j := range line.Runs {
				line.Runs[j].X = x
				x += line.Runs[j].Width
			}
		}

		// vertical placement
		if sec == Title {
			y := height - margins.Top
			for i := range lines {
				if i > 0 {
					y -= LineSpacing * max(lines[i-1].Size, lines[i].Size)
				}
				lines[i].Baseline = y
			}
		} else {
			y := margins.Bottom
			for i := len(lines) - 1; i >= 0; i-- {
				if i < len(lines)-1 {
					y += LineSpacing * max(lines[i].Size, lines[i+1].Size)
				}
				lines[i].Baseline = y
			}
		}

		res = append(res, Block{Section: sec, Lines: lines})
	}
	return res, nil
}

// lines splits the text of a section into measured lines.
func (c *Content) lines(sec Section, ctx *PlaceholderContext, m Measurer) ([]Line, error) {
	text := Substitute(c.text(sec), ctx)
	if text == "" {
		return nil, nil
	}
	pieceLines, err := splitMarkup(sec, text)
	if err != nil {
		return nil, err
	}

	base := c.sectionStyle(sec)
	lines := make([]Line, len(pieceLines))
	for i, pieces := range pieceLines {
		line := &lines[i]
		line.Size = base.Size
		if len(pieces) > 0 {
			line.Size = 0
		}
		for _, p := range pieces {
			st := base
			if p.span != nil {
				st = spanStyle(base, *p.span)
			}
			w := m.TextWidth(st.Family, st.Bold, st.Italic, p.text, st.Size)
			line.Runs = append(line.Runs, Run{Text: p.text, Style: st, Width: w})
			line.Width += w
			line.Size = max(line.Size, st.Size)
		}
	}
	return lines, nil
}

func spanStyle(base Style, span StyleSpec) Style {
	st := base
	st.Bold = base.Bold || span.Bold
	st.Italic = base.Italic || span.Italic
	if span.Size != nil {
		st.Size = *span.Size
	}
	if span.Family != "" {
		st.Family = span.Family
	}
	if span.Color != nil {
		st.Color = *span.Color
	}
	return st
}

// Validate checks the markup of all configured sections.
func (c *Content) Validate(ctx *PlaceholderContext) error {
	for _, sec := range []Section{Title, FooterLeft, FooterCenter, FooterRight} {
		text := Substitute(c.text(sec), ctx)
		if text == "" {
			continue
		}
		if _, err := splitMarkup(sec, text); err != nil {
			return err
		}
	}
	return nil
}

// Usage lists the styles and characters the overlay can use.
type Usage struct {
	Styles []Style
	Text   string
}

// Usage returns the styles and the characters used by the configured
// sections when substituted with ctx.  Since page numbers vary between
// pages, callers need to allow for all digits in addition to the returned
// text.
func (c *Content) Usage(ctx *PlaceholderContext) (*Usage, error) {
	res := &Usage{}
	var text strings.Builder
	seen := make(map[Style]bool)
	addStyle := func(st Style) {
		key := st
		key.Size = 0
		key.Color = Black
		if !seen[key] {
			seen[key] = true
			res.Styles = append(res.Styles, st)
		}
	}

	for _, sec := range []Section{Title, FooterLeft, FooterCenter, FooterRight} {
		raw := Substitute(c.text(sec), ctx)
		if raw == "" {
			continue
		}
		lines, err := splitMarkup(sec, raw)
		if err != nil {
			return nil, err
		}
		base := c.sectionStyle(sec)
		for _, pieces := range lines {
			for _, p := range pieces {
				st := base
				if p.span != nil {
					st = spanStyle(base, *p.span)
				}
				addStyle(st)
				text.WriteString(p.text)
			}
		}
	}
	slices.SortStableFunc(res.Styles, func(a, b Style) int {
		return strings.Compare(a.Family, b.Family)
	})
	res.Text = text.String()
	return res, nil
}
