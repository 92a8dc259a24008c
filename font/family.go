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

// Package font builds the embedded TrueType fonts used by the overlay.
//
// Fonts are organised in families, each family holding up to four faces
// (regular, bold, italic and bold italic).  The Go font families are
// bundled.  A [Resource] is built once per document for the exact set of
// characters the overlay can show, and is shared read-only by all pages.
package font

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomediumitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/gofont/gosmallcapsitalic"
	"seehuhn.de/go/sfnt"
)

// Style selects a face within a font family.
type Style uint8

// The four faces of a font family.
const (
	Regular    Style = 0
	Bold       Style = 1
	Italic     Style = 2
	BoldItalic Style = Bold | Italic
)

// MakeStyle returns the Style for the given flags.
func MakeStyle(bold, italic bool) Style {
	var s Style
	if bold {
		s |= Bold
	}
	if italic {
		s |= Italic
	}
	return s
}

func (s Style) String() string {
	switch s {
	case Regular:
		return "regular"
	case Bold:
		return "bold"
	case Italic:
		return "italic"
	case BoldItalic:
		return "bold italic"
	default:
		return fmt.Sprintf("font.Style(%d)", uint8(s))
	}
}

// DefaultFamily is the family used when no other family is requested,
// or when a requested family is not available.
const DefaultFamily = "Go"

// Errors returned by [Registry.Lookup].
var (
	ErrUnknownFamily = errors.New("font: unknown font family")
	ErrNoFace        = errors.New("font: family has no faces")
)

// Registry maps family names to TrueType font data.
//
// Family names are matched case-insensitively.
// A Registry must not be modified once it is in use by [Build].
type Registry struct {
	families map[string]*family
}

type family struct {
	name  string
	faces map[Style][]byte
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{families: make(map[string]*family)}
}

// Bundled returns a registry containing the Go font families:
// "Go", "Go Medium", "Go Mono" and "Go Smallcaps".
func Bundled() *Registry {
	r := NewRegistry()
	r.Register("Go", Regular, goregular.TTF)
	r.Register("Go", Bold, gobold.TTF)
	r.Register("Go", Italic, goitalic.TTF)
	r.Register("Go", BoldItalic, gobolditalic.TTF)
	r.Register("Go Medium", Regular, gomedium.TTF)
	r.Register("Go Medium", Italic, gomediumitalic.TTF)
	r.Register("Go Mono", Regular, gomono.TTF)
	r.Register("Go Mono", Bold, gomonobold.TTF)
	r.Register("Go Mono", Italic, gomonoitalic.TTF)
	r.Register("Go Mono", BoldItalic, gomonobolditalic.TTF)
	r.Register("Go Smallcaps", Regular, gosmallcaps.TTF)
	r.Register("Go Smallcaps", Italic, gosmallcapsitalic.TTF)
	r.Alias("Go Regular", "Go")
	r.Alias("Gofont", "Go")
	r.Alias("Mono", "Go Mono")
	return r
}

func familyKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Register adds a TrueType font as the given face of a family.
// An existing face is replaced.
func (r *Registry) Register(name string, style Style, ttf []byte) {
	key := familyKey(name)
	fam, ok := r.families[key]
	if !ok {
		fam = &family{name: strings.TrimSpace(name), faces: make(map[Style][]byte)}
		r.families[key] = fam
	}
	fam.faces[style] = ttf
}

// RegisterTrueType adds a TrueType font file to the registry.  The family
// name and the style are read from the font.  The family name is returned.
func (r *Registry) RegisterTrueType(ttf []byte) (string, error) {
	info, err := sfnt.Read(bytes.NewReader(ttf))
	if err != nil {
		return "", err
	}
	if !info.IsGlyf() {
		return "", errNotTrueType
	}
	name := info.FamilyName
	if name == "" {
		return "", errors.New("font: missing family name")
	}
	r.Register(name, MakeStyle(info.IsBold, info.IsItalic), ttf)
	return name, nil
}

// Alias makes an existing family available under an additional name.
func (r *Registry) Alias(alias, name string) {
	if fam, ok := r.families[familyKey(name)]; ok {
		r.families[familyKey(alias)] = fam
	}
}

// Has reports whether a family of the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.families[familyKey(name)]
	return ok
}

// Families returns the canonical names of all registered families, in
// alphabetical order.
func (r *Registry) Families() []string {
	seen := make(map[string]bool)
	var res []string
	for _, fam := range r.families {
		if !seen[fam.name] {
			seen[fam.name] = true
			res = append(res, fam.name)
		}
	}
	slices.Sort(res)
	return res
}

// A Match describes the face chosen by [Registry.Lookup].
type Match struct {
	Family string // canonical family name
	Face   Style  // style of the font file
	Data   []byte // TrueType font data

	// Synthetic lists the style components which are not provided by the
	// font file and must be simulated when drawing.
	Synthetic Style
}

// Lookup finds the best face of a family for the requested style.
//
// If the family lacks the requested face, a related face is used and the
// missing style components are recorded in Match.Synthetic.
func (r *Registry) Lookup(name string, want Style) (*Match, error) {
	fam, ok := r.families[familyKey(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownFamily, name)
	}

	candidates := []Style{want, want &^ Italic, want &^ Bold, Regular, Bold, Italic, BoldItalic}
	for _, s := range candidates {
		if data, ok := fam.faces[s]; ok {
			return &Match{Family: fam.name, Face: s, Data: data, Synthetic: want &^ s}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoFace, name)
}
