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
	"slices"

	"seehuhn.de/go/sfnt/glyph"
)

const tagModulus = 26 * 26 * 26 * 26 * 26 * 26

// subsetTag returns a six letter tag (AAAAAA to ZZZZZZ) which identifies a
// subset of the glyphs of a font with numGlyphs glyphs.
func subsetTag(glyphs []glyph.ID, numGlyphs int) string {
	gg := slices.Clone(glyphs)
	slices.Sort(gg)

	// 11 is relatively prime to 26 and keeps X*11 within 32 bits.
	X := uint32(numGlyphs) % tagModulus
	for _, g := range gg {
		X = (X*11 + uint32(g)) % tagModulus
	}

	var buf [6]byte
	for i := range buf {
		buf[i] = 'A' + byte(X%26)
		X /= 26
	}
	return string(buf[:])
}
