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
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/font/gofont/gobold"
	"seehuhn.de/go/sfnt"
	"seehuhn.de/go/sfnt/glyph"

	"seehuhn.de/go/handouts/pdf"
)

func TestLookup(t *testing.T) {
	reg := Bundled()
	cases := []struct {
		family    string
		style     Style
		canonical string
		face      Style
		synthetic Style
	}{
		{"Go", Regular, "Go", Regular, Regular},
		{"go", BoldItalic, "Go", BoldItalic, Regular},
		{"Go  Mono", Italic, "Go Mono", Italic, Regular},
		{"Mono", Bold, "Go Mono", Bold, Regular},
		{"Go Medium", Bold, "Go Medium", Regular, Bold},
		{"Go Medium", BoldItalic, "Go Medium", Italic, Bold},
		{"Go Smallcaps", BoldItalic, "Go Smallcaps", Italic, Bold},
	}
	for _, test := range cases {
		m, err := reg.Lookup(test.family, test.style)
		if err != nil {
			t.Errorf("%q %s: %v", test.family, test.style, err)
			continue
		}
		got := []any{m.Family, m.Face, m.Synthetic}
		want := []any{test.canonical, test.face, test.synthetic}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%q %s: unexpected match (-want +got):\n%s", test.family, test.style, diff)
		}
	}

	_, err := reg.Lookup("Comic Sans", Regular)
	if !errors.Is(err, ErrUnknownFamily) {
		t.Errorf("expected ErrUnknownFamily, got %v", err)
	}
}

func TestRegisterTrueType(t *testing.T) {
	reg := NewRegistry()
	name, err := reg.RegisterTrueType(gobold.TTF)
	if err != nil {
		t.Fatal(err)
	}
	if name != "Go" {
		t.Errorf("wrong family name %q", name)
	}
	m, err := reg.Lookup("go", Bold)
	if err != nil {
		t.Fatal(err)
	}
	if m.Face != Bold || m.Synthetic != Regular {
		t.Errorf("wrong match %s/%s", m.Face, m.Synthetic)
	}

	_, err = reg.RegisterTrueType([]byte("not a font"))
	if err == nil {
		t.Error("invalid font data was accepted")
	}
}

func TestFamilies(t *testing.T) {
	want := []string{"Go", "Go Medium", "Go Mono", "Go Smallcaps"}
	if diff := cmp.Diff(want, Bundled().Families()); diff != "" {
		t.Errorf("unexpected families (-want +got):\n%s", diff)
	}
}

func TestBuild(t *testing.T) {
	reqs := []Request{
		{Family: "Go", Style: Regular},
		{Family: "Go", Style: Italic},
		{Family: "go", Style: Italic},
	}
	res, err := Build(nil, reqs, "Stoneridge Creek Café – €5", nil)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(res.Faces()); n != 2 {
		t.Fatalf("expected 2 faces, got %d", n)
	}

	face := res.Select("Go", Regular).Face
	for _, r := range "Stoneridge Café–€0123456789 ?" {
		if !face.Has(r) {
			t.Errorf("missing character %q", r)
		}
	}
	for _, r := range "Zz~–—‘’“”•…" {
		if !face.Has(r) {
			t.Errorf("missing base character %q", r)
		}
	}
	if face.Has('ü') {
		t.Error("unused character was included")
	}

	s, missing := face.Encode("Café €")
	if len(missing) != 0 {
		t.Errorf("unexpected missing characters %q", missing)
	}
	if diff := cmp.Diff(pdf.String("Caf\xe9 \x80"), s); diff != "" {
		t.Errorf("wrong encoding (-want +got):\n%s", diff)
	}

	s, missing = face.Encode("a→b")
	if string(missing) != "→" || string(s) != "a?b" {
		t.Errorf("got %q, missing %q", s, string(missing))
	}

	if face.SubsetTag == "" || !strings.HasPrefix(string(face.BaseFont()), face.SubsetTag+"+") {
		t.Errorf("unexpected base font %q", face.BaseFont())
	}
}

func TestTextWidth(t *testing.T) {
	res, err := Build(nil, []Request{{Family: "Go Mono"}}, "abc", nil)
	if err != nil {
		t.Fatal(err)
	}
	w1 := res.TextWidth("Go Mono", false, false, "a", 10)
	w3 := res.TextWidth("Go Mono", false, false, "abc", 10)
	if w1 <= 0 {
		t.Fatalf("invalid width %g", w1)
	}
	if d := w3 - 3*w1; d > 1e-9 || d < -1e-9 {
		t.Errorf("monospaced widths do not add up: %g vs %g", w3, 3*w1)
	}
	if w := res.TextWidth("Go Mono", false, false, "abc", 20); w != 2*w3 {
		t.Errorf("width does not scale with size: %g vs %g", w, 2*w3)
	}
}

func TestFallback(t *testing.T) {
	logBuf := &bytes.Buffer{}
	opt := &Options{Logger: slog.New(slog.NewTextHandler(logBuf, nil))}
	res, err := Build(nil, []Request{{Family: "Nonexistent", Style: Bold}}, "x", opt)
	if err != nil {
		t.Fatal(err)
	}
	sel := res.Select("Nonexistent", Bold)
	if sel.Face.Family != "Go" || sel.Face.Style != Bold {
		t.Errorf("unexpected fallback %s %s", sel.Face.Family, sel.Face.Style)
	}
	if !strings.Contains(logBuf.String(), "Nonexistent") {
		t.Errorf("missing warning, log is %q", logBuf.String())
	}

	// families never requested use the default face
	sel = res.Select("Other", Italic)
	if sel.Face.Family != "Go" {
		t.Errorf("unexpected family %q", sel.Face.Family)
	}
}

func TestUnavailable(t *testing.T) {
	reg := NewRegistry()
	_, err := Build(reg, []Request{{Family: "Go"}}, "x", nil)
	if !errors.Is(err, ErrUnknownFamily) {
		t.Errorf("expected ErrUnknownFamily, got %v", err)
	}

	reg.Register("Go", Regular, []byte("not a font"))
	_, err = Build(reg, []Request{{Family: "Go"}}, "x", nil)
	if err == nil {
		t.Error("invalid font data was accepted")
	}
}

func TestEmbed(t *testing.T) {
	res, err := Build(nil, []Request{{Family: "Go"}}, "Hello", nil)
	if err != nil {
		t.Fatal(err)
	}
	face := res.Select("Go", Regular).Face

	f := pdf.NewFile(pdf.V1_7)
	ref, err := face.Embed(f)
	if err != nil {
		t.Fatal(err)
	}

	fontDict, err := pdf.GetDict(f, ref)
	if err != nil {
		t.Fatal(err)
	}
	if fontDict["Subtype"] != pdf.Name("TrueType") {
		t.Errorf("wrong subtype %s", pdf.Format(fontDict["Subtype"]))
	}
	if _, hasEncoding := fontDict["Encoding"]; hasEncoding {
		t.Error("symbolic font has an /Encoding entry")
	}
	first, _ := pdf.GetInteger(f, fontDict["FirstChar"])
	last, _ := pdf.GetInteger(f, fontDict["LastChar"])
	if first != ' ' || last != 0x97 { // U+2014 is 0x97 in WinAnsi
		t.Errorf("wrong code range %d-%d", first, last)
	}
	widths, _ := pdf.GetArray(f, fontDict["Widths"])
	if len(widths) != int(last-first+1) {
		t.Errorf("expected %d widths, got %d", last-first+1, len(widths))
	}

	desc, err := pdf.GetDict(f, fontDict["FontDescriptor"])
	if err != nil {
		t.Fatal(err)
	}
	flags, _ := pdf.GetInteger(f, desc["Flags"])
	if Flags(flags)&FlagSymbolic == 0 {
		t.Error("font is not marked as symbolic")
	}

	stm, err := pdf.GetStream(f, desc["FontFile2"])
	if err != nil {
		t.Fatal(err)
	}
	data, err := pdf.Decode(f, stm)
	if err != nil {
		t.Fatal(err)
	}
	if stm.Dict["Length1"] != pdf.Integer(len(data)) {
		t.Errorf("Length1 is %s, data has %d bytes", pdf.Format(stm.Dict["Length1"]), len(data))
	}
	embedded, err := sfnt.Read(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if embedded.NumGlyphs() >= 200 {
		t.Errorf("font was not subsetted: %d glyphs", embedded.NumGlyphs())
	}

	stm, err = pdf.GetStream(f, fontDict["ToUnicode"])
	if err != nil {
		t.Fatal(err)
	}
	cmapData, err := pdf.Decode(f, stm)
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range []string{"<48> <0048>", "<6F> <006F>", "<3F> <003F>", "beginbfchar"} {
		if !bytes.Contains(cmapData, []byte(line)) {
			t.Errorf("ToUnicode CMap lacks %q", line)
		}
	}
}

func TestSubsetTag(t *testing.T) {
	tag := subsetTag([]glyph.ID{0, 5, 3}, 100)
	if len(tag) != 6 || strings.Trim(tag, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") != "" {
		t.Errorf("invalid tag %q", tag)
	}
	if other := subsetTag([]glyph.ID{3, 0, 5}, 100); other != tag {
		t.Errorf("tag depends on glyph order: %q vs %q", tag, other)
	}
	if other := subsetTag([]glyph.ID{0, 5, 4}, 100); other == tag {
		t.Errorf("different subsets share the tag %q", tag)
	}
}
