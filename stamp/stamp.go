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

// Package stamp builds the Form XObjects which draw the header and footer
// text of a page.
//
// A stamp uses the page box as its bounding box and the identity as its
// form matrix, so that it draws in the default user space of the page no
// matter which transformation the page content has set up.
package stamp

import (
	"fmt"
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/handouts/document"
	"seehuhn.de/go/handouts/font"
	"seehuhn.de/go/handouts/graphics"
	"seehuhn.de/go/handouts/layout"
	"seehuhn.de/go/handouts/pdf"
)

// Synthetic style parameters.
const (
	// ItalicShear is the horizontal shear of synthetic italics.
	ItalicShear = 0.21

	// BoldStroke is the outline width of synthetic bold text, as a
	// fraction of the font size.
	BoldStroke = 0.03
)

// Geometry describes the page a stamp is made for.
type Geometry struct {
	Box    rect.Rect // the visible page area in default user space
	Rotate int       // page rotation in degrees, a multiple of 90
}

// normalized returns the geometry with a non-empty box and a rotation in
// {0, 90, 180, 270}.
func (g Geometry) normalized() Geometry {
	if g.Box.IsZero() || g.Box.Dx() <= 0 || g.Box.Dy() <= 0 {
		g.Box = document.Letter
	}
	g.Rotate = ((g.Rotate % 360) + 360) % 360
	g.Rotate -= g.Rotate % 90
	return g
}

// VisualSize returns the width and height of the page as displayed,
// taking the page rotation into account.
func (g Geometry) VisualSize() (width, height float64) {
	g = g.normalized()
	if g.Rotate == 90 || g.Rotate == 270 {
		return g.Box.Dy(), g.Box.Dx()
	}
	return g.Box.Dx(), g.Box.Dy()
}

// VisualToUser returns the transformation from visual page coordinates,
// with the origin at the bottom left corner of the displayed page, to the
// default user space of the page.
func (g Geometry) VisualToUser() matrix.Matrix {
	g = g.normalized()
	W, H := g.Box.Dx(), g.Box.Dy()
	var M matrix.Matrix
	switch g.Rotate {
	case 90:
		M = matrix.Matrix{0, 1, -1, 0, W, 0}
	case 180:
		M = matrix.Matrix{-1, 0, 0, -1, W, H}
	case 270:
		M = matrix.Matrix{0, -1, 1, 0, 0, H}
	default:
		M = matrix.Identity
	}
	M[4] += g.Box.LLx
	M[5] += g.Box.LLy
	return M
}

// Stamp is the overlay for one page.
type Stamp struct {
	BBox rect.Rect

	// Content holds the uncompressed drawing instructions.
	// It is empty if the page has no header or footer text.
	Content []byte

	// Fonts maps the font names used in Content to the faces.
	Fonts map[pdf.Name]*font.Face

	// Missing lists characters which could not be shown and were replaced.
	Missing []rune
}

// IsEmpty reports whether the stamp draws nothing.
func (s *Stamp) IsEmpty() bool {
	return len(s.Content) == 0
}

// Build creates the stamp for one page from positioned text.
//
// Font resource names are derived from the position of the face in
// fonts, so that all stamps for a document use the same names.
// The font resource is only read.
func Build(blocks []layout.Block, g Geometry, fonts *font.Resource) (*Stamp, error) {
	g = g.normalized()
	res := &Stamp{
		BBox:  g.Box,
		Fonts: make(map[pdf.Name]*font.Face),
	}

	hasText := false
	for _, b := range blocks {
		for _, line := range b.Lines {
			for _, run := range line.Runs {
				if run.Text != "" {
					hasText = true
				}
			}
		}
	}
	if !hasText {
		return res, nil
	}

	fontName := make(map[*font.Face]pdf.Name)
	for i, face := range fonts.Faces() {
		fontName[face] = pdf.Name(fmt.Sprintf("F%d", i+1))
	}

	w := graphics.NewWriter()
	if M := g.VisualToUser(); M != matrix.Identity {
		w.Transform(M)
	}

	var (
		curFont   pdf.Name
		curSize   = math.NaN()
		curFill   *layout.RGB
		curStroke *layout.RGB
		curMode   = graphics.TextRenderingModeFill
		curWidth  = math.NaN()
	)
	for _, b := range blocks {
		for _, line := range b.Lines {
			if len(line.Runs) == 0 {
				continue
			}
			w.TextStart()
			for _, run := range line.Runs {
				if run.Text == "" {
					continue
				}
				st := run.Style
				sel := fonts.Select(st.Family, font.MakeStyle(st.Bold, st.Italic))
				name := fontName[sel.Face]
				res.Fonts[name] = sel.Face

				text, missing := sel.Face.Encode(run.Text)
				res.Missing = append(res.Missing, missing...)

				if name != curFont || st.Size != curSize {
					w.TextSetFont(name, st.Size)
					curFont, curSize = name, st.Size
				}
				if curFill == nil || *curFill != st.Color {
					w.SetFillColorRGB(st.Color.R, st.Color.G, st.Color.B)
					curFill = &st.Color
				}

				mode := graphics.TextRenderingModeFill
				if sel.Synthetic&font.Bold != 0 {
					mode = graphics.TextRenderingModeFillStroke
					if curStroke == nil || *curStroke != st.Color {
						w.SetStrokeColorRGB(st.Color.R, st.Color.G, st.Color.B)
						curStroke = &st.Color
					}
					if lw := st.Size * BoldStroke; lw != curWidth {
						w.SetLineWidth(lw)
						curWidth = lw
					}
				}
				if mode != curMode {
					w.TextSetRenderingMode(mode)
					curMode = mode
				}

				M := matrix.Translate(run.X, line.Baseline)
				if sel.Synthetic&font.Italic != 0 {
					M[2] = ItalicShear
				}
				w.TextSetMatrix(M)
				w.TextShowRaw(text)
			}
			w.TextEnd()
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	res.Content = w.Content.Bytes()
	return res, nil
}

// Object returns the Form XObject for the stamp.
// The map fontRefs must contain the references of all faces used by the
// stamp.
func (s *Stamp) Object(fontRefs map[*font.Face]pdf.Reference) (*pdf.Stream, error) {
	resources := pdf.Dict{}
	if len(s.Fonts) > 0 {
		fontDict := pdf.Dict{}
		for name, face := range s.Fonts {
			ref, ok := fontRefs[face]
			if !ok {
				return nil, fmt.Errorf("stamp: font %q was not embedded", face.PostScriptName)
			}
			fontDict[name] = ref
		}
		resources["Font"] = fontDict
		resources["ProcSet"] = pdf.Array{pdf.Name("PDF"), pdf.Name("Text")}
	}

	dict := pdf.Dict{
		"Type":      pdf.Name("XObject"),
		"Subtype":   pdf.Name("Form"),
		"FormType":  pdf.Integer(1),
		"BBox":      pdf.RectangleObject(s.BBox),
		"Matrix":    pdf.Array{pdf.Integer(1), pdf.Integer(0), pdf.Integer(0), pdf.Integer(1), pdf.Integer(0), pdf.Integer(0)},
		"Resources": resources,
	}
	if s.IsEmpty() {
		return &pdf.Stream{Dict: dict}, nil
	}
	return pdf.Compress(dict, s.Content), nil
}
