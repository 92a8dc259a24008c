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
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"seehuhn.de/go/sfnt"
	"seehuhn.de/go/sfnt/cmap"
	"seehuhn.de/go/sfnt/glyph"

	"seehuhn.de/go/handouts/pdf"
)

// Options control how a [Resource] is built.
type Options struct {
	// Full embeds complete font files instead of subsets.
	Full bool

	// Logger receives warnings about missing families.  If this is nil,
	// warnings are discarded.
	Logger *slog.Logger
}

// A Request names a face which may be used for drawing text.
type Request struct {
	Family string
	Style  Style
}

// Resource holds the fonts used by the overlay of one document.
//
// A Resource is immutable once built and may be used concurrently.
type Resource struct {
	faces   []*Face
	choices map[requestKey]*Selection
	deflt   map[Style]*Selection
}

type requestKey struct {
	family string
	style  Style
}

// A Selection is the face used for a requested family and style.
type Selection struct {
	Face *Face

	// Synthetic lists the style components the face does not provide.
	Synthetic Style
}

// Face is one embedded font file.
//
// Text is encoded using single-byte codes from the WinAnsi encoding.
// The embedded font contains a (1,0) "cmap" subtable which maps these
// codes directly to glyphs.
type Face struct {
	Family         string
	Style          Style
	PostScriptName string
	SubsetTag      string

	ttf   *sfnt.Font
	code  map[rune]byte
	text  [256]rune
	width [256]float64
}

// Build constructs the fonts for all requested faces.  The resulting fonts
// contain glyphs for all characters in text, together with the digits, the
// space character and the question mark, as far as the WinAnsi encoding
// and the font files allow.
//
// Requests for families which are not registered fall back to
// [DefaultFamily].  An error is returned only if no usable face can be
// found for a request even after this fallback.
func Build(reg *Registry, reqs []Request, text string, opt *Options) (*Resource, error) {
	if reg == nil {
		reg = Bundled()
	}
	if opt == nil {
		opt = &Options{}
	}
	logger := opt.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	runes := repertoire(text)

	res := &Resource{
		choices: make(map[requestKey]*Selection),
		deflt:   make(map[Style]*Selection),
	}
	byFile := make(map[requestKey]*Face)

	get := func(family string, style Style) (*Selection, error) {
		m, err := reg.Lookup(family, style)
		if err != nil {
			return nil, err
		}
		key := requestKey{m.Family, m.Face}
		face, ok := byFile[key]
		if !ok {
			face, err = newFace(m, runes, !opt.Full)
			if err != nil {
				return nil, fmt.Errorf("font %q (%s): %w", m.Family, m.Face, err)
			}
			byFile[key] = face
			res.faces = append(res.faces, face)
		}
		return &Selection{Face: face, Synthetic: m.Synthetic}, nil
	}

	for _, req := range reqs {
		family := req.Family
		if family == "" {
			family = DefaultFamily
		}
		key := requestKey{familyKey(family), req.Style}
		if _, seen := res.choices[key]; seen {
			continue
		}

		sel, err := get(family, req.Style)
		if err != nil && !strings.EqualFold(family, DefaultFamily) &&
			(errors.Is(err, ErrUnknownFamily) || errors.Is(err, ErrNoFace)) {
			logger.Warn("font family not available, using default",
				"family", family, "default", DefaultFamily)
			sel, err = get(DefaultFamily, req.Style)
		}
		if err != nil {
			return nil, err
		}
		res.choices[key] = sel
		if strings.EqualFold(family, DefaultFamily) {
			res.deflt[req.Style] = sel
		}
	}

	// The default face is needed for lookups of families which were not
	// part of the requests.
	if _, ok := res.deflt[Regular]; !ok {
		sel, err := get(DefaultFamily, Regular)
		if err != nil {
			return nil, err
		}
		res.deflt[Regular] = sel
	}
	return res, nil
}

// baseRepertoire is included in every font subset, in addition to the
// characters of the configured text.
const baseRepertoire = " !\"#$%&'()*+,-./0123456789:;<=>?@" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~" +
	"–—‘’“”•…"

// repertoire returns the sorted set of characters which can occur in the
// overlay text.
func repertoire(text string) []rune {
	seen := make(map[rune]bool)
	var res []rune
	add := func(r rune) {
		if !seen[r] && r >= ' ' {
			seen[r] = true
			res = append(res, r)
		}
	}
	for _, r := range text {
		add(r)
	}
	for _, r := range baseRepertoire {
		add(r)
	}
	slices.Sort(res)
	return res
}

// Select returns the face to use for the given family and style.
// Unknown families map to the default family.
func (r *Resource) Select(family string, style Style) *Selection {
	if family == "" {
		family = DefaultFamily
	}
	if sel, ok := r.choices[requestKey{familyKey(family), style}]; ok {
		return sel
	}
	if sel, ok := r.deflt[style]; ok {
		return sel
	}
	sel := r.deflt[Regular]
	return &Selection{Face: sel.Face, Synthetic: style}
}

// Faces returns all faces of the resource, in the order they were created.
func (r *Resource) Faces() []*Face {
	return slices.Clone(r.faces)
}

// TextWidth returns the width of text, in points, when set in the given
// family and style at the given size.
func (r *Resource) TextWidth(family string, bold, italic bool, text string, size float64) float64 {
	face := r.Select(family, MakeStyle(bold, italic)).Face
	s, _ := face.Encode(text)
	return face.Width(s) * size / 1000
}

// Encode converts text to character codes.  Characters which cannot be
// shown with this face are replaced by a question mark and returned in
// missing.
func (f *Face) Encode(text string) (s pdf.String, missing []rune) {
	for _, r := range text {
		c, ok := f.code[r]
		if !ok {
			missing = append(missing, r)
			c, ok = f.code['?']
			if !ok {
				continue
			}
		}
		s = append(s, c)
	}
	return s, missing
}

// Width returns the width of the encoded string in PDF glyph space units
// (1/1000 of the font size).
func (f *Face) Width(s pdf.String) float64 {
	var w float64
	for _, c := range s {
		w += f.width[c]
	}
	return w
}

// Has reports whether the face can show r.
func (f *Face) Has(r rune) bool {
	_, ok := f.code[r]
	return ok
}

// BaseFont returns the name of the font, including the subset tag.
func (f *Face) BaseFont() pdf.Name {
	if f.SubsetTag == "" {
		return pdf.Name(f.PostScriptName)
	}
	return pdf.Name(f.SubsetTag + "+" + f.PostScriptName)
}

var errNotTrueType = errors.New("not a TrueType font")

func newFace(m *Match, runes []rune, subset bool) (*Face, error) {
	orig, err := sfnt.Read(bytes.NewReader(m.Data))
	if err != nil {
		return nil, err
	}
	if !orig.IsGlyf() {
		return nil, errNotTrueType
	}
	best, err := orig.CMapTable.GetBest()
	if err != nil {
		return nil, err
	}

	type entry struct {
		code byte
		r    rune
		gid  glyph.ID
	}
	var entries []entry
	var codeUsed [256]bool
	for _, r := range runes {
		c, ok := winAnsi(r)
		if !ok || codeUsed[c] {
			continue
		}
		gid := best.Lookup(r)
		if gid == 0 {
			continue
		}
		codeUsed[c] = true
		entries = append(entries, entry{code: c, r: r, gid: gid})
	}
	slices.SortFunc(entries, func(a, b entry) int { return int(a.code) - int(b.code) })

	face := &Face{
		Family:         m.Family,
		Style:          m.Face,
		PostScriptName: orig.PostScriptName(),
		code:           make(map[rune]byte, len(entries)),
	}

	ttf := orig.Clone()
	ttf.CMapTable = nil
	ttf.Gdef = nil
	ttf.Gsub = nil
	ttf.Gpos = nil

	// The subset starts with .notdef, followed by the glyphs in order of
	// increasing character code.
	glyphs := []glyph.ID{0}
	newGID := map[glyph.ID]glyph.ID{0: 0}
	for _, e := range entries {
		if _, seen := newGID[e.gid]; !seen {
			newGID[e.gid] = glyph.ID(len(glyphs))
			glyphs = append(glyphs, e.gid)
		}
	}
	if subset {
		face.SubsetTag = subsetTag(glyphs, int(orig.NumGlyphs()))
		ttf = ttf.Subset(glyphs)
	} else {
		for gid := range newGID {
			newGID[gid] = gid
		}
	}

	subtable := cmap.Format4{}
	for _, e := range entries {
		gid := newGID[e.gid]
		subtable[uint16(e.code)] = gid
		face.code[e.r] = e.code
		face.text[e.code] = e.r
		face.width[e.code] = ttf.GlyphWidthPDF(gid)
	}
	ttf.CMapTable = cmap.Table{
		{PlatformID: 1, EncodingID: 0}: subtable.Encode(0),
	}
	face.ttf = ttf

	return face, nil
}

// winAnsi returns the WinAnsi character code for r.
func winAnsi(r rune) (byte, bool) {
	if r < ' ' {
		return 0, false
	}
	return charmap.Windows1252.EncodeRune(r)
}
