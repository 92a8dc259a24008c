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

package splice

import (
	"bytes"
	"compress/lzw"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/handouts/pdf"
)

func TestCheckBalance(t *testing.T) {
	cases := []struct {
		in   string
		want *BalanceError
	}{
		{"", nil},
		{"q 2 0 0 2 0 0 cm 0 0 m 10 10 l S Q", nil},
		{"BT /F1 12 Tf (Q) Tj ET", nil},
		{"q q Q Q BT ET", nil},
		{"Q", &BalanceError{Op: "Q", Depth: 0, Offset: 0}},
		{"q Q Q", &BalanceError{Op: "Q", Depth: 0, Offset: 4}},
		{"q q Q", &BalanceError{Op: "q", Depth: 1, Offset: 2, AtEnd: true}},
		{"q % Q\n", &BalanceError{Op: "q", Depth: 1, Offset: 0, AtEnd: true}},
		{"BT ET ET", &BalanceError{Op: "ET", Depth: 0, Offset: 6}},
		{"q BT BT", &BalanceError{Op: "BT", Depth: 1, Offset: 5}},
		{"BT (x) Tj", &BalanceError{Op: "BT", Depth: 0, Offset: 0, AtEnd: true}},
	}
	for _, test := range cases {
		err := CheckBalance([]byte(test.in))
		if test.want == nil {
			if err != nil {
				t.Errorf("%q: unexpected error %v", test.in, err)
			}
			continue
		}
		var balance *BalanceError
		if !errors.As(err, &balance) {
			t.Errorf("%q: expected BalanceError, got %v", test.in, err)
			continue
		}
		if diff := cmp.Diff(test.want, balance); diff != "" {
			t.Errorf("%q: wrong error (-want +got):\n%s", test.in, diff)
		}
	}
}

func TestCheckBalanceUnterminated(t *testing.T) {
	err := CheckBalance([]byte("BT (abc Tj ET"))
	if err == nil {
		t.Error("unterminated string not detected")
	}
}

func TestUniqueName(t *testing.T) {
	cases := []struct {
		existing pdf.Dict
		want     pdf.Name
	}{
		{nil, "HeaderFooter"},
		{pdf.Dict{"Im0": nil}, "HeaderFooter"},
		{pdf.Dict{"HeaderFooter": nil}, "HeaderFooter1"},
		{pdf.Dict{"HeaderFooter": nil, "HeaderFooter1": nil}, "HeaderFooter2"},
		{pdf.Dict{"HeaderFooter": nil, "HeaderFooter2": nil}, "HeaderFooter1"},
	}
	for _, test := range cases {
		got := UniqueName(DefaultName, test.existing)
		if got != test.want {
			t.Errorf("%v: got %q, want %q", test.existing, got, test.want)
		}
	}
}

const original = "2 0 0 2 0 0 cm 0 0 m 10 10 l S"

// makePage returns a file with a page whose resources are shared through
// an indirect object.
func makePage(content string) (*pdf.File, pdf.Dict, pdf.Reference) {
	f := pdf.NewFile(pdf.V1_7)
	resRef := f.Alloc()
	f.Put(resRef, pdf.Dict{
		"XObject": pdf.Dict{"Im0": pdf.NewReference(99, 0)},
	})
	contentRef := f.Alloc()
	f.Put(contentRef, pdf.Compress(nil, []byte(content)))
	page := pdf.Dict{
		"Type":      pdf.Name("Page"),
		"Contents":  contentRef,
		"Resources": resRef,
	}
	stampRef := f.Alloc()
	f.Put(stampRef, &pdf.Stream{Dict: pdf.Dict{"Subtype": pdf.Name("Form")}})
	return f, page, stampRef
}

func TestSplice(t *testing.T) {
	f, page, stampRef := makePage(original)
	resRef := page["Resources"].(pdf.Reference)
	contentRef := page["Contents"].(pdf.Reference)
	resources, err := pdf.GetDict(f, resRef)
	if err != nil {
		t.Fatal(err)
	}

	name, err := Splice(f, page, resources, stampRef, "")
	if err != nil {
		t.Fatal(err)
	}
	if name != DefaultName {
		t.Errorf("wrong name %q", name)
	}

	contents, ok := page["Contents"].(pdf.Array)
	if !ok || len(contents) != 3 {
		t.Fatalf("wrong /Contents %s", pdf.Format(page["Contents"]))
	}
	if contents[1] != contentRef {
		t.Errorf("original content stream not kept")
	}

	got, err := Content(f, page)
	if err != nil {
		t.Fatal(err)
	}
	want := "q\n\n" + original + "\n\nQ\nq\n1 0 0 1 0 0 cm\n/HeaderFooter Do\nQ\n\n"
	if string(got) != want {
		t.Errorf("wrong content:\n%q\nwant\n%q", got, want)
	}
	if err := CheckBalance(got); err != nil {
		t.Error(err)
	}

	newRes, ok := page["Resources"].(pdf.Dict)
	if !ok {
		t.Fatalf("wrong /Resources %s", pdf.Format(page["Resources"]))
	}
	wantXObjects := pdf.Dict{
		"Im0":          pdf.NewReference(99, 0),
		"HeaderFooter": stampRef,
	}
	if diff := cmp.Diff(wantXObjects, newRes["XObject"]); diff != "" {
		t.Errorf("wrong XObjects (-want +got):\n%s", diff)
	}

	// The shared resource dictionary is unchanged.
	shared, _ := pdf.GetDict(f, resRef)
	if diff := cmp.Diff(pdf.Dict{"XObject": pdf.Dict{"Im0": pdf.NewReference(99, 0)}}, shared); diff != "" {
		t.Errorf("shared resources modified (-want +got):\n%s", diff)
	}
}

func TestSpliceTwice(t *testing.T) {
	f, page, stampRef := makePage(original)
	resources, _ := pdf.GetDict(f, page["Resources"])

	_, err := Splice(f, page, resources, stampRef, "")
	if err != nil {
		t.Fatal(err)
	}
	resources = page["Resources"].(pdf.Dict)
	name, err := Splice(f, page, resources, stampRef, "")
	if err != nil {
		t.Fatal(err)
	}
	if name != "HeaderFooter1" {
		t.Errorf("wrong name %q", name)
	}
	if n := len(page["Contents"].(pdf.Array)); n != 5 {
		t.Errorf("expected 5 content streams, got %d", n)
	}
	content, _ := Content(f, page)
	if err := CheckBalance(content); err != nil {
		t.Error(err)
	}
}

func TestSpliceUnbalanced(t *testing.T) {
	f, page, stampRef := makePage("q 2 0 0 2 0 0 cm 0 0 m 10 10 l S")
	before := page.Clone()
	numObjects := f.NumObjects()

	_, err := Splice(f, page, nil, stampRef, "")
	var balance *BalanceError
	if !errors.As(err, &balance) {
		t.Fatalf("expected BalanceError, got %v", err)
	}
	if diff := cmp.Diff(before, page); diff != "" {
		t.Errorf("page was modified (-want +got):\n%s", diff)
	}
	if f.NumObjects() != numObjects {
		t.Error("objects were allocated for a failed splice")
	}
}

func TestSpliceNoContent(t *testing.T) {
	f := pdf.NewFile(pdf.V1_7)
	stampRef := f.Alloc()
	f.Put(stampRef, &pdf.Stream{Dict: pdf.Dict{}})
	page := pdf.Dict{"Type": pdf.Name("Page")}

	_, err := Splice(f, page, nil, stampRef, "Stamp")
	if err != nil {
		t.Fatal(err)
	}
	content, err := Content(f, page)
	if err != nil {
		t.Fatal(err)
	}
	want := "q\n\n\nQ\nq\n1 0 0 1 0 0 cm\n/Stamp Do\nQ\n\n"
	if string(content) != want {
		t.Errorf("got %q, want %q", content, want)
	}
}

func TestSpliceContentArray(t *testing.T) {
	f := pdf.NewFile(pdf.V1_7)
	a := f.Alloc()
	f.Put(a, &pdf.Stream{Dict: pdf.Dict{}, Data: []byte("q 1 0 0 1 5 5 cm")})
	b := f.Alloc()
	f.Put(b, &pdf.Stream{Dict: pdf.Dict{}, Data: []byte("Q")})
	arrayRef := f.Alloc()
	f.Put(arrayRef, pdf.Array{a, b})
	stampRef := f.Alloc()
	f.Put(stampRef, &pdf.Stream{Dict: pdf.Dict{}})
	page := pdf.Dict{"Contents": arrayRef}

	// q and Q in different streams are balanced overall.
	_, err := Splice(f, page, nil, stampRef, "")
	if err != nil {
		t.Fatal(err)
	}
	contents := page["Contents"].(pdf.Array)
	if len(contents) != 4 || contents[1] != a || contents[2] != b {
		t.Errorf("wrong /Contents %s", pdf.Format(contents))
	}
}

// runLengthEncode writes data as literal runs.
func runLengthEncode(data []byte) []byte {
	var out []byte
	for len(data) > 0 {
		n := min(len(data), 128)
		out = append(out, byte(n-1))
		out = append(out, data[:n]...)
		data = data[n:]
	}
	return append(out, 128)
}

func lzwEncode(data []byte) []byte {
	buf := &bytes.Buffer{}
	w := lzw.NewWriter(buf, lzw.MSB, 8)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

func TestSpliceFilters(t *testing.T) {
	content := "q 2 0 0 2 0 0 cm 0 0 m 10 10 l S Q " + strings.Repeat("BT ET ", 40)
	cases := []struct {
		filter pdf.Name
		data   []byte
	}{
		{"RunLengthDecode", runLengthEncode([]byte(content))},
		{"LZWDecode", lzwEncode([]byte(content))},
	}
	for _, test := range cases {
		t.Run(string(test.filter), func(t *testing.T) {
			f, page, stampRef := makePage("")
			contentRef := page["Contents"].(pdf.Reference)
			f.Put(contentRef, &pdf.Stream{
				Dict: pdf.Dict{"Filter": test.filter},
				Data: test.data,
			})
			resources, _ := pdf.GetDict(f, page["Resources"])

			_, err := Splice(f, page, resources, stampRef, "")
			if err != nil {
				t.Fatal(err)
			}
			got, err := Content(f, page)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Contains(got, []byte("\n"+content+"\n")) {
				t.Errorf("original content not decoded:\n%q", got)
			}
		})
	}
}
