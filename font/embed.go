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

package font

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"text/template"
	"unicode/utf16"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/handouts/pdf"
)

// Flags represents PDF font descriptor flags.
// See section 9.8.2 of ISO 32000-2:2020.
type Flags uint32

// Font descriptor flags used by this package.
const (
	FlagFixedPitch  Flags = 1 << 0
	FlagSerif       Flags = 1 << 1
	FlagSymbolic    Flags = 1 << 2
	FlagScript      Flags = 1 << 3
	FlagNonsymbolic Flags = 1 << 5
	FlagItalic      Flags = 1 << 6
)

// Embed writes the font dictionary, the font descriptor, the font file and
// the ToUnicode CMap into f and returns the reference of the font
// dictionary.
//
// The font is written as a symbolic TrueType font without an /Encoding
// entry, so that viewers use the (1,0) "cmap" subtable of the embedded font
// file to map codes to glyphs.
func (face *Face) Embed(f *pdf.File) (pdf.Reference, error) {
	ttf := face.ttf

	fontFile := &bytes.Buffer{}
	length1, err := ttf.WriteTrueTypePDF(fontFile)
	if err != nil {
		return 0, fmt.Errorf("font %q: %w", face.PostScriptName, err)
	}
	fontFileStream := pdf.Compress(pdf.Dict{"Length1": pdf.Integer(length1)}, fontFile.Bytes())

	toUni, err := face.toUnicode()
	if err != nil {
		return 0, err
	}

	var flags Flags
	if ttf.IsFixedPitch() {
		flags |= FlagFixedPitch
	}
	if ttf.IsSerif {
		flags |= FlagSerif
	}
	if ttf.IsScript {
		flags |= FlagScript
	}
	if ttf.IsItalic {
		flags |= FlagItalic
	}
	flags |= FlagSymbolic

	q := 1000 * ttf.FontMatrix[3]
	b := ttf.FontBBoxPDF()
	bbox := rect.Rect{
		LLx: math.Round(b.LLx),
		LLy: math.Round(b.LLy),
		URx: math.Round(b.URx),
		URy: math.Round(b.URy),
	}

	first, last := face.codeRange()
	widths := make(pdf.Array, 0, int(last)-int(first)+1)
	for c := int(first); c <= int(last); c++ {
		widths = append(widths, pdf.Integer(math.Round(face.width[c])))
	}

	fontRef := f.Alloc()
	descRef := f.Alloc()
	fileRef := f.Alloc()
	toUniRef := f.Alloc()

	f.Put(fontRef, pdf.Dict{
		"Type":           pdf.Name("Font"),
		"Subtype":        pdf.Name("TrueType"),
		"BaseFont":       face.BaseFont(),
		"FirstChar":      pdf.Integer(first),
		"LastChar":       pdf.Integer(last),
		"Widths":         widths,
		"FontDescriptor": descRef,
		"ToUnicode":      toUniRef,
	})
	f.Put(descRef, pdf.Dict{
		"Type":        pdf.Name("FontDescriptor"),
		"FontName":    face.BaseFont(),
		"FontFamily":  pdf.TextString(ttf.FamilyName),
		"Flags":       pdf.Integer(flags),
		"FontBBox":    pdf.RectangleObject(bbox),
		"ItalicAngle": pdf.Number(math.Round(ttf.ItalicAngle*10) / 10),
		"Ascent":      pdf.Integer(math.Round(float64(ttf.Ascent) * q)),
		"Descent":     pdf.Integer(math.Round(float64(ttf.Descent) * q)),
		"CapHeight":   pdf.Integer(math.Round(float64(ttf.CapHeight) * q)),
		"StemV":       pdf.Integer(0),
		"FontFile2":   fileRef,
	})
	f.Put(fileRef, fontFileStream)
	f.Put(toUniRef, pdf.Compress(nil, toUni))

	return fontRef, nil
}

// codeRange returns the smallest and largest code in use.
func (face *Face) codeRange() (first, last byte) {
	first, last = 255, 0
	for c := range 256 {
		if face.text[c] == 0 {
			continue
		}
		first = min(first, byte(c))
		last = max(last, byte(c))
	}
	if first > last {
		return 32, 32
	}
	return first, last
}

// toUnicode returns a ToUnicode CMap which maps every code in use to its
// character.
func (face *Face) toUnicode() ([]byte, error) {
	var chars []string
	for c := range 256 {
		r := face.text[c]
		if r == 0 {
			continue
		}
		var text strings.Builder
		for _, x := range utf16.Encode([]rune{r}) {
			fmt.Fprintf(&text, "%04X", x)
		}
		chars = append(chars, fmt.Sprintf("<%02X> <%s>", c, text.String()))
	}

	// at most 100 entries per beginbfchar block
	var blocks [][]string
	for len(chars) > 0 {
		n := min(len(chars), 100)
		blocks = append(blocks, chars[:n])
		chars = chars[n:]
	}

	buf := &bytes.Buffer{}
	err := toUnicodeTmpl.Execute(buf, blocks)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var toUnicodeTmpl = template.Must(template.New("tounicode").Parse(
	`/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo <<
/Registry (Adobe)
/Ordering (UCS)
/Supplement 0
>> def
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<00> <FF>
endcodespacerange
{{range .}}{{len .}} beginbfchar
{{range .}}{{.}}
{{end}}endbfchar
{{end}}endcmap
CMapName currentdict /CMap defineresource pop
end
end
`))
