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

// Package layout turns header and footer configuration into positioned,
// styled runs of text.
//
// Section text is processed in three steps: placeholders are substituted,
// the text is split into lines and inline [font ...] spans, and finally
// every line is positioned inside the column of its section.
package layout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RGB is a color in the DeviceRGB color space.
// All components are in the range [0, 1].
type RGB struct {
	R, G, B float64
}

// Black is the default text color.
var Black = RGB{}

// StyleSpec describes text style where every field is optional.
//
// Bold and italic can only be switched on: a span inside a bold section
// is bold as well.
type StyleSpec struct {
	Bold   bool
	Italic bool
	Size   *float64 // font size in points
	Family string   // "" means inherited
	Color  *RGB
}

// Style is a fully resolved text style.
type Style struct {
	Family string
	Bold   bool
	Italic bool
	Size   float64
	Color  RGB
}

// Inherit returns s with all unset fields taken from parent.
func (s StyleSpec) Inherit(parent StyleSpec) StyleSpec {
	res := s
	res.Bold = s.Bold || parent.Bold
	res.Italic = s.Italic || parent.Italic
	if res.Size == nil {
		res.Size = parent.Size
	}
	if res.Family == "" {
		res.Family = parent.Family
	}
	if res.Color == nil {
		res.Color = parent.Color
	}
	return res
}

// Resolve fills all unset fields with defaults.
// The family is left empty if unset, meaning the default font family.
func (s StyleSpec) Resolve(defaultSize float64) Style {
	res := Style{
		Family: s.Family,
		Bold:   s.Bold,
		Italic: s.Italic,
		Size:   defaultSize,
		Color:  Black,
	}
	if s.Size != nil {
		res.Size = *s.Size
	}
	if s.Color != nil {
		res.Color = *s.Color
	}
	return res
}

// ErrInvalidStyle is returned by [ParseStyle] for malformed font
// specifications.
var ErrInvalidStyle = errors.New("invalid font specification")

// ParseStyle parses a font specification of the form
//
//	[bold] [italic] [size[pt]] [family_name] [#rgb|#rrggbb]
//
// The words may appear in any order and are matched case-insensitively.
// All words which are not recognised otherwise form the family name;
// underscores in family names are replaced by spaces.
func ParseStyle(spec string) (StyleSpec, error) {
	var res StyleSpec
	var family []string
	for _, word := range strings.Fields(spec) {
		lower := strings.ToLower(word)
		switch {
		case lower == "bold":
			res.Bold = true
		case lower == "italic" || lower == "oblique":
			res.Italic = true
		case lower == "regular" || lower == "normal" || lower == "roman":
			// the default
		case strings.HasPrefix(word, "#"):
			col, err := parseColor(word)
			if err != nil {
				return StyleSpec{}, err
			}
			res.Color = &col
		case startsWithDigit(lower):
			size, err := strconv.ParseFloat(strings.TrimSuffix(lower, "pt"), 64)
			if err != nil || size <= 0 {
				return StyleSpec{}, fmt.Errorf("%w: bad size %q", ErrInvalidStyle, word)
			}
			res.Size = &size
		default:
			family = append(family, strings.ReplaceAll(word, "_", " "))
		}
	}
	res.Family = strings.Join(family, " ")
	return res, nil
}

func startsWithDigit(s string) bool {
	return s != "" && (s[0] >= '0' && s[0] <= '9' || s[0] == '.')
}

func parseColor(s string) (RGB, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return RGB{}, fmt.Errorf("%w: bad color %q", ErrInvalidStyle, s)
	}
	x, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: bad color %q", ErrInvalidStyle, s)
	}
	return RGB{
		R: float64(x>>16&0xFF) / 255,
		G: float64(x>>8&0xFF) / 255,
		B: float64(x&0xFF) / 255,
	}, nil
}

// ParseLength converts a length with an optional unit (pt, mm, cm or in)
// to points.  Numbers without a unit are in points.
func ParseLength(in string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(in))
	scale := 1.0
	for _, u := range units {
		if strings.HasSuffix(s, u.name) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.name))
			scale = u.scale
			break
		}
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid length %q", in)
	}
	return x * scale, nil
}

var units = []struct {
	name  string
	scale float64
}{
	{"pt", 1},
	{"mm", 72 / 25.4},
	{"cm", 72 / 2.54},
	{"in", 72},
}
