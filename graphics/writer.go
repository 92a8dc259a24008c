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

// Package graphics writes and tokenizes PDF content streams.
//
// The [Writer] emits the small set of operators needed to draw text
// overlays.  The [Scanner] splits existing content streams into operators
// and their operands.
package graphics

import (
	"bytes"
	"errors"
	"fmt"

	"seehuhn.de/go/geom/matrix"

	"seehuhn.de/go/handouts/internal/float"
	"seehuhn.de/go/handouts/pdf"
)

// Writer writes a PDF content stream.
//
// Errors are sticky: after the first error all further operators are
// ignored and the error is available in Err.
type Writer struct {
	Content *bytes.Buffer
	Err     error

	// CTM is the transformation applied by the Transform calls made so far.
	CTM matrix.Matrix

	inText  bool
	nesting []pairType
	stack   []matrix.Matrix
}

type pairType byte

const (
	pairTypeQ  pairType = iota + 1 // q ... Q
	pairTypeBT                     // BT ... ET
)

// NewWriter allocates a new Writer object.
func NewWriter() *Writer {
	return &Writer{
		Content: &bytes.Buffer{},
		CTM:     matrix.Identity,
	}
}

// Close checks that all q/Q and BT/ET pairs have been closed and returns
// the first error encountered while writing.
func (w *Writer) Close() error {
	if w.Err != nil {
		return w.Err
	}
	if len(w.nesting) > 0 {
		return errUnclosed
	}
	return nil
}

var errUnclosed = errors.New("graphics: unclosed q or BT operator")

func (w *Writer) isValid(cmd string, inText bool) bool {
	if w.Err != nil {
		return false
	}
	if w.inText != inText {
		where := "inside"
		if inText {
			where = "outside"
		}
		w.Err = fmt.Errorf("graphics: unexpected %q %s text object", cmd, where)
		return false
	}
	return true
}

func (w *Writer) printf(format string, args ...any) {
	_, w.Err = fmt.Fprintf(w.Content, format, args...)
}

func coord(x float64) string {
	return float.Format(x, 3)
}

// PushGraphicsState saves the current graphics state.
//
// This implements the PDF graphics operator "q".
func (w *Writer) PushGraphicsState() {
	if !w.isValid("PushGraphicsState", false) {
		return
	}
	w.nesting = append(w.nesting, pairTypeQ)
	w.stack = append(w.stack, w.CTM)
	w.printf("q\n")
}

// PopGraphicsState restores the previous graphics state.
//
// This implements the PDF graphics operator "Q".
func (w *Writer) PopGraphicsState() {
	if !w.isValid("PopGraphicsState", false) {
		return
	}
	if len(w.nesting) == 0 || w.nesting[len(w.nesting)-1] != pairTypeQ {
		w.Err = errors.New("graphics: PopGraphicsState without PushGraphicsState")
		return
	}
	w.nesting = w.nesting[:len(w.nesting)-1]
	n := len(w.stack) - 1
	w.CTM = w.stack[n]
	w.stack = w.stack[:n]
	w.printf("Q\n")
}

// Transform applies an additional transformation to the user coordinates.
// The new transformation is applied before the existing one.
//
// This implements the PDF graphics operator "cm".
func (w *Writer) Transform(m matrix.Matrix) {
	if !w.isValid("Transform", false) {
		return
	}
	w.CTM = m.Mul(w.CTM)
	w.printf("%s %s %s %s %s %s cm\n",
		coord(m[0]), coord(m[1]), coord(m[2]), coord(m[3]), coord(m[4]), coord(m[5]))
}

// SetLineWidth sets the line width.
//
// This implements the PDF graphics operator "w".
func (w *Writer) SetLineWidth(width float64) {
	if w.Err != nil {
		return
	}
	if width < 0 {
		w.Err = fmt.Errorf("graphics: negative line width %g", width)
		return
	}
	w.printf("%s w\n", coord(width))
}

// SetFillColorRGB sets the fill color in the DeviceRGB color space.
// The components must be in the range [0, 1].
//
// This implements the PDF graphics operator "rg".
func (w *Writer) SetFillColorRGB(r, g, b float64) {
	if w.Err != nil {
		return
	}
	if !inUnitRange(r, g, b) {
		w.Err = fmt.Errorf("graphics: invalid RGB color (%g, %g, %g)", r, g, b)
		return
	}
	w.printf("%s %s %s rg\n", coord(r), coord(g), coord(b))
}

// SetStrokeColorRGB sets the stroke color in the DeviceRGB color space.
//
// This implements the PDF graphics operator "RG".
func (w *Writer) SetStrokeColorRGB(r, g, b float64) {
	if w.Err != nil {
		return
	}
	if !inUnitRange(r, g, b) {
		w.Err = fmt.Errorf("graphics: invalid RGB color (%g, %g, %g)", r, g, b)
		return
	}
	w.printf("%s %s %s RG\n", coord(r), coord(g), coord(b))
}

func inUnitRange(xx ...float64) bool {
	for _, x := range xx {
		if !(x >= 0 && x <= 1) {
			return false
		}
	}
	return true
}

// TextStart starts a new text object.
//
// This implements the PDF graphics operator "BT".
func (w *Writer) TextStart() {
	if !w.isValid("TextStart", false) {
		return
	}
	w.inText = true
	w.nesting = append(w.nesting, pairTypeBT)
	w.printf("BT\n")
}

// TextEnd ends the current text object.
//
// This implements the PDF graphics operator "ET".
func (w *Writer) TextEnd() {
	if !w.isValid("TextEnd", true) {
		return
	}
	if len(w.nesting) == 0 || w.nesting[len(w.nesting)-1] != pairTypeBT {
		w.Err = errors.New("graphics: TextEnd without TextStart")
		return
	}
	w.nesting = w.nesting[:len(w.nesting)-1]
	w.inText = false
	w.printf("ET\n")
}

// TextSetFont selects the font resource name and the font size.
//
// This implements the PDF graphics operator "Tf".
func (w *Writer) TextSetFont(name pdf.Name, size float64) {
	if w.Err != nil {
		return
	}
	w.Err = name.PDF(w.Content)
	if w.Err != nil {
		return
	}
	w.printf(" %s Tf\n", coord(size))
}

// TextSetMatrix replaces the text matrix and the text line matrix.
//
// This implements the PDF graphics operator "Tm".
func (w *Writer) TextSetMatrix(m matrix.Matrix) {
	if !w.isValid("TextSetMatrix", true) {
		return
	}
	w.printf("%s %s %s %s %s %s Tm\n",
		coord(m[0]), coord(m[1]), coord(m[2]), coord(m[3]), coord(m[4]), coord(m[5]))
}

// TextRenderingMode describes how glyphs are painted.
type TextRenderingMode int

// Text rendering modes used by this package.
const (
	TextRenderingModeFill       TextRenderingMode = 0
	TextRenderingModeFillStroke TextRenderingMode = 2
)

// TextSetRenderingMode sets the text rendering mode.
//
// This implements the PDF graphics operator "Tr".
func (w *Writer) TextSetRenderingMode(mode TextRenderingMode) {
	if w.Err != nil {
		return
	}
	w.printf("%d Tr\n", mode)
}

// TextShowRaw shows an already encoded string.
//
// This implements the PDF graphics operator "Tj".
func (w *Writer) TextShowRaw(s pdf.String) {
	if !w.isValid("TextShowRaw", true) {
		return
	}
	w.Err = s.PDF(w.Content)
	if w.Err != nil {
		return
	}
	w.printf(" Tj\n")
}

// DrawXObject paints the XObject with the given resource name.
//
// This implements the PDF graphics operator "Do".
func (w *Writer) DrawXObject(name pdf.Name) {
	if !w.isValid("DrawXObject", false) {
		return
	}
	w.Err = name.PDF(w.Content)
	if w.Err != nil {
		return
	}
	w.printf(" Do\n")
}
