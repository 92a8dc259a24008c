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

package stamp

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/handouts/document"
	"seehuhn.de/go/handouts/font"
	"seehuhn.de/go/handouts/graphics"
	"seehuhn.de/go/handouts/layout"
	"seehuhn.de/go/handouts/pdf"
)

func ptr[T any](x T) *T { return &x }

// makeStamp lays out c for the given page and builds the stamp.
func makeStamp(t *testing.T, c *layout.Content, page, total int, g Geometry) (*Stamp, *font.Resource) {
	t.Helper()
	ctx := &layout.PlaceholderContext{PageNumber: page, TotalPages: total}
	usage, err := c.Usage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var reqs []font.Request
	for _, st := range usage.Styles {
		reqs = append(reqs, font.Request{Family: st.Family, Style: font.MakeStyle(st.Bold, st.Italic)})
	}
	fonts, err := font.Build(nil, reqs, usage.Text, nil)
	if err != nil {
		t.Fatal(err)
	}
	width, height := g.VisualSize()
	blocks, err := layout.Layout(c, ctx, width, height, fonts)
	if err != nil {
		t.Fatal(err)
	}
	stamp, err := Build(blocks, g, fonts)
	if err != nil {
		t.Fatal(err)
	}
	return stamp, fonts
}

func operators(data []byte) []string {
	var ops []string
	s := graphics.NewScanner(data)
	for s.Scan() {
		ops = append(ops, s.Op())
	}
	return ops
}

func TestEmpty(t *testing.T) {
	empty := ""
	c := &layout.Content{Title: &empty, FooterLeft: &empty}
	stamp, _ := makeStamp(t, c, 1, 1, Geometry{Box: rect.Rect{URx: 595, URy: 842}})
	if !stamp.IsEmpty() {
		t.Errorf("unexpected drawing instructions %q", stamp.Content)
	}
	obj, err := stamp.Object(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(obj.Data) != 0 {
		t.Errorf("empty stamp has data %q", obj.Data)
	}
	if res := obj.Dict["Resources"].(pdf.Dict); len(res) != 0 {
		t.Errorf("empty stamp has resources %s", pdf.Format(res))
	}
}

func TestContent(t *testing.T) {
	c := &layout.Content{
		Title:       ptr("Workshop Handout"),
		FooterRight: ptr("Page [page] of [pages]"),
	}
	stamp, _ := makeStamp(t, c, 1, 3, Geometry{Box: document.Letter})

	want := []string{
		"BT", "Tf", "rg", "Tm", "Tj", "ET", // title
		"BT", "Tf", "Tm", "Tj", "ET", // footer, font and color unchanged except size
	}
	if diff := cmp.Diff(want, operators(stamp.Content)); diff != "" {
		t.Errorf("unexpected operators (-want +got):\n%s", diff)
	}
	for _, part := range []string{"/F1 24 Tf", "/F1 14 Tf", "(Workshop Handout) Tj", "(Page 1 of 3) Tj"} {
		if !bytes.Contains(stamp.Content, []byte(part)) {
			t.Errorf("content lacks %q:\n%s", part, stamp.Content)
		}
	}
	if len(stamp.Fonts) != 1 {
		t.Errorf("expected one font, got %d", len(stamp.Fonts))
	}

	stamp2, _ := makeStamp(t, c, 2, 3, Geometry{Box: document.Letter})
	if bytes.Contains(stamp2.Content, []byte("Workshop")) {
		t.Error("title shown on second page")
	}
	if !bytes.Contains(stamp2.Content, []byte("(Page 2 of 3) Tj")) {
		t.Errorf("wrong footer on page 2:\n%s", stamp2.Content)
	}
}

func TestDeterministic(t *testing.T) {
	c := &layout.Content{
		FooterLeft:   ptr("Stoneridge Creek|[font italic]Community Center[/font]"),
		FooterCenter: ptr("Handout"),
	}
	g := Geometry{Box: rect.Rect{URx: 595.28, URy: 841.89}}
	s2, _ := makeStamp(t, c, 2, 5, g)
	s3, _ := makeStamp(t, c, 3, 5, g)
	if diff := cmp.Diff(string(s2.Content), string(s3.Content)); diff != "" {
		t.Errorf("stamps differ between pages (-2 +3):\n%s", diff)
	}
}

func TestSynthetic(t *testing.T) {
	c := &layout.Content{
		FooterCenter: ptr("[font bold italic Go_Smallcaps]X[/font]"),
	}
	stamp, _ := makeStamp(t, c, 1, 1, Geometry{Box: document.Letter})

	// Go Smallcaps has an italic face but no bold face.
	if !bytes.Contains(stamp.Content, []byte("2 Tr")) {
		t.Errorf("missing synthetic bold:\n%s", stamp.Content)
	}
	if !bytes.Contains(stamp.Content, []byte(".42 w")) {
		t.Errorf("wrong stroke width:\n%s", stamp.Content)
	}
	if bytes.Contains(stamp.Content, []byte(" .21 1 ")) {
		t.Errorf("unexpected synthetic italic:\n%s", stamp.Content)
	}

	c.FooterCenter = ptr("[font italic Go_Medium]X[/font] Y")
	stamp, _ = makeStamp(t, c, 1, 1, Geometry{Box: document.Letter})
	if bytes.Contains(stamp.Content, []byte(" .21 1 ")) {
		t.Errorf("Go Medium has an italic face:\n%s", stamp.Content)
	}
}

func TestVisualToUser(t *testing.T) {
	box := rect.Rect{LLx: 10, LLy: 20, URx: 110, URy: 220} // 100 x 200
	apply := func(M matrix.Matrix, x, y float64) [2]float64 {
		return [2]float64{M[0]*x + M[2]*y + M[4], M[1]*x + M[3]*y + M[5]}
	}
	cases := []struct {
		rotate     int
		w, h       float64
		bottomLeft [2]float64 // user space position of the visual origin
		topRight   [2]float64
	}{
		{0, 100, 200, [2]float64{10, 20}, [2]float64{110, 220}},
		{90, 200, 100, [2]float64{110, 20}, [2]float64{10, 220}},
		{180, 100, 200, [2]float64{110, 220}, [2]float64{10, 20}},
		{270, 200, 100, [2]float64{10, 220}, [2]float64{110, 20}},
		{-90, 200, 100, [2]float64{10, 220}, [2]float64{110, 20}},
	}
	for _, test := range cases {
		g := Geometry{Box: box, Rotate: test.rotate}
		w, h := g.VisualSize()
		if w != test.w || h != test.h {
			t.Errorf("%d: visual size %gx%g", test.rotate, w, h)
		}
		M := g.VisualToUser()
		if got := apply(M, 0, 0); got != test.bottomLeft {
			t.Errorf("%d: origin maps to %v", test.rotate, got)
		}
		if got := apply(M, w, h); got != test.topRight {
			t.Errorf("%d: top right maps to %v", test.rotate, got)
		}
	}
}

func TestRotatedContent(t *testing.T) {
	c := &layout.Content{FooterLeft: ptr("x")}
	stamp, _ := makeStamp(t, c, 1, 1, Geometry{Box: document.Letter, Rotate: 90})
	if !bytes.HasPrefix(stamp.Content, []byte("0 1 -1 0 612 0 cm\n")) {
		t.Errorf("missing rotation:\n%s", stamp.Content)
	}
	if stamp.BBox != document.Letter {
		t.Errorf("wrong bounding box %v", stamp.BBox)
	}

	stamp, _ = makeStamp(t, c, 1, 1, Geometry{Box: document.Letter})
	if bytes.Contains(stamp.Content, []byte(" cm")) {
		t.Errorf("unexpected transformation:\n%s", stamp.Content)
	}
}

func TestObject(t *testing.T) {
	c := &layout.Content{FooterLeft: ptr("x")}
	box := rect.Rect{LLx: 0, LLy: 0, URx: 300, URy: 400}
	stamp, fonts := makeStamp(t, c, 1, 1, Geometry{Box: box})

	refs := map[*font.Face]pdf.Reference{}
	for i, face := range fonts.Faces() {
		refs[face] = pdf.NewReference(uint32(10+i), 0)
	}
	obj, err := stamp.Object(refs)
	if err != nil {
		t.Fatal(err)
	}
	want := pdf.Array{pdf.Integer(1), pdf.Integer(0), pdf.Integer(0), pdf.Integer(1), pdf.Integer(0), pdf.Integer(0)}
	if diff := cmp.Diff(want, obj.Dict["Matrix"]); diff != "" {
		t.Errorf("form matrix is not the identity (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(pdf.RectangleObject(box), obj.Dict["BBox"]); diff != "" {
		t.Errorf("wrong bounding box (-want +got):\n%s", diff)
	}
	res := obj.Dict["Resources"].(pdf.Dict)
	fontDict := res["Font"].(pdf.Dict)
	if fontDict["F1"] != pdf.NewReference(10, 0) {
		t.Errorf("wrong font resources %s", pdf.Format(fontDict))
	}

	data, err := pdf.Decode(nil, obj)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, stamp.Content) {
		t.Error("stream data does not match the stamp content")
	}

	_, err = stamp.Object(nil)
	if err == nil {
		t.Error("missing font reference not detected")
	}
}

func TestDefaultBox(t *testing.T) {
	g := Geometry{}.normalized()
	if g.Box != document.Letter {
		t.Errorf("wrong default box %v", g.Box)
	}
}
