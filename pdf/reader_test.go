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

package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// makeTestFile returns a small one-page document.
func makeTestFile() *File {
	f := NewFile(V1_7)
	catalog := f.Alloc()
	pages := f.Alloc()
	page := f.Alloc()
	content := f.Alloc()
	f.Put(catalog, Dict{"Type": Name("Catalog"), "Pages": pages})
	f.Put(pages, Dict{
		"Type":     Name("Pages"),
		"Kids":     Array{page},
		"Count":    Integer(1),
		"MediaBox": Array{Integer(0), Integer(0), Integer(612), Integer(792)},
	})
	f.Put(page, Dict{"Type": Name("Page"), "Parent": pages, "Contents": content})
	f.Put(content, Compress(nil, []byte("0 0 m 100 100 l S")))
	f.Trailer["Root"] = catalog
	return f
}

func TestRoundTrip(t *testing.T) {
	f1 := makeTestFile()
	buf := &bytes.Buffer{}
	err := Write(buf, f1)
	if err != nil {
		t.Fatal(err)
	}

	f2, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}

	if f2.Version != V1_7 {
		t.Errorf("wrong version %s", f2.Version)
	}
	if diff := cmp.Diff(f1.Trailer, f2.Trailer); diff != "" {
		t.Errorf("trailer differs (-want +got):\n%s", diff)
	}
	for _, ref := range f1.Refs() {
		want, _ := f1.Get(ref)
		got, _ := f2.Get(ref)
		if stm, ok := want.(*Stream); ok {
			want = &Stream{Dict: stm.Dict.Clone(), Data: stm.Data}
			want.(*Stream).Dict["Length"] = Integer(len(stm.Data))
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("object %s differs (-want +got):\n%s", ref, diff)
		}
	}

	stm, err := GetStream(f2, NewReference(4, 0))
	if err != nil {
		t.Fatal(err)
	}
	data, err := Decode(f2, stm)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "0 0 m 100 100 l S" {
		t.Errorf("wrong stream contents %q", data)
	}
}

// buildXRefStreamFile writes a file where the catalog and the page tree
// root live in an object stream, indexed by a cross-reference stream.
func buildXRefStreamFile() []byte {
	buf := &bytes.Buffer{}
	buf.WriteString("%PDF-1.5\n")

	obj1 := "<</Type/Catalog/Pages 2 0 R>>"
	obj2 := "<</Type/Pages/Kids[]/Count 0>>"
	header := fmt.Sprintf("1 0 2 %d ", len(obj1)+1)
	body := header + obj1 + " " + obj2

	pos3 := buf.Len()
	fmt.Fprintf(buf, "3 0 obj\n<</Type/ObjStm/N 2/First %d/Length %d>>\nstream\n%s\nendstream\nendobj\n",
		len(header), len(body), body)

	pos4 := buf.Len()
	var xref []byte
	row := func(tp byte, a int, b byte) {
		xref = append(xref, tp, byte(a>>8), byte(a), b)
	}
	row(0, 0, 255)
	row(2, 3, 0)
	row(2, 3, 1)
	row(1, pos3, 0)
	row(1, pos4, 0)
	fmt.Fprintf(buf, "4 0 obj\n<</Type/XRef/Size 5/W[1 2 1]/Root 1 0 R/Length %d>>\nstream\n", len(xref))
	buf.Write(xref)
	buf.WriteString("\nendstream\nendobj\n")
	fmt.Fprintf(buf, "startxref\n%d\n%%%%EOF\n", pos4)
	return buf.Bytes()
}

func TestXRefStream(t *testing.T) {
	f, err := Parse(buildXRefStreamFile())
	if err != nil {
		t.Fatal(err)
	}

	catalog, err := f.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if catalog["Pages"] != NewReference(2, 0) {
		t.Errorf("wrong /Pages entry %s", Format(catalog["Pages"]))
	}
	pages, err := GetDict(f, catalog["Pages"])
	if err != nil {
		t.Fatal(err)
	}
	if pages["Count"] != Integer(0) {
		t.Errorf("wrong page count %s", Format(pages["Count"]))
	}

	// object and xref streams are not part of the result
	if f.Has(NewReference(3, 0)) || f.Has(NewReference(4, 0)) {
		t.Error("internal streams were kept")
	}
	if f.NumObjects() != 2 {
		t.Errorf("expected 2 objects, got %d", f.NumObjects())
	}
}

func TestRepair(t *testing.T) {
	f1 := makeTestFile()
	buf := &bytes.Buffer{}
	err := Write(buf, f1)
	if err != nil {
		t.Fatal(err)
	}

	// Break the startxref offset.
	data := buf.Bytes()
	idx := bytes.LastIndex(data, []byte("startxref"))
	broken := append([]byte{}, data[:idx]...)
	broken = append(broken, "startxref\n17\n%%EOF\n"...)

	f2, err := Parse(broken)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(f1.Trailer["Root"], f2.Trailer["Root"]); diff != "" {
		t.Errorf("wrong root (-want +got):\n%s", diff)
	}
	if f2.NumObjects() != f1.NumObjects() {
		t.Errorf("expected %d objects, got %d", f1.NumObjects(), f2.NumObjects())
	}
}

func TestEncrypted(t *testing.T) {
	f := makeTestFile()
	f.Trailer["Encrypt"] = Dict{"Filter": Name("Standard")}
	buf := &bytes.Buffer{}
	err := Write(buf, f)
	if err != nil {
		t.Fatal(err)
	}
	// Write drops /Encrypt, so add it back by hand.
	data := bytes.Replace(buf.Bytes(), []byte("/Root"), []byte("/Encrypt <<>>\n/Root"), 1)

	_, err = Parse(data)
	if !errors.Is(err, ErrEncrypted) {
		t.Errorf("expected ErrEncrypted, got %v", err)
	}
}

func TestNotPDF(t *testing.T) {
	_, err := Parse([]byte("hello world"))
	var malformed *MalformedFileError
	if !errors.As(err, &malformed) {
		t.Errorf("expected MalformedFileError, got %v", err)
	}
}

func TestIndirectLength(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteString("%PDF-1.4\n")
	var pos [4]int
	pos[1] = buf.Len()
	buf.WriteString("1 0 obj\n<</Type/Catalog/Pages 2 0 R>>\nendobj\n")
	pos[2] = buf.Len()
	buf.WriteString("2 0 obj\n<</Type/Pages/Kids[]/Count 0/X 3 0 R>>\nendobj\n")
	pos[3] = buf.Len()
	buf.WriteString("3 0 obj\n<</Length 4 0 R>>\nstream\nabc endstream in data\nendstream\nendobj\n")
	pos4 := buf.Len()
	buf.WriteString("4 0 obj\n21\nendobj\n")
	xrefPos := buf.Len()
	buf.WriteString("xref\n0 5\n0000000000 65535 f\r\n")
	for _, p := range pos[1:] {
		fmt.Fprintf(buf, "%010d 00000 n\r\n", p)
	}
	fmt.Fprintf(buf, "%010d 00000 n\r\n", pos4)
	fmt.Fprintf(buf, "trailer\n<</Size 5/Root 1 0 R>>\nstartxref\n%d\n%%%%EOF\n", xrefPos)

	f, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	stm, err := GetStream(f, NewReference(3, 0))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(stm.Data); got != "abc endstream in data" {
		t.Errorf("wrong stream data %q", got)
	}
}

func TestPredictor(t *testing.T) {
	// two rows of three bytes, PNG "Up" and "Sub" filters
	raw := []byte{
		2, 1, 2, 3,
		1, 1, 1, 1,
	}
	got, err := unpredict(raw, Dict{"Predictor": Integer(12), "Columns": Integer(3)})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 2, 3, 1, 2, 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected result (-want +got):\n%s", diff)
	}
}
