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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		in   Object
		want string
	}{
		{nil, "null"},
		{Bool(true), "true"},
		{Integer(-12), "-12"},
		{Real(1), "1."},
		{Real(0.25), "0.25"},
		{Name("Font"), "/Font"},
		{Name("A B#"), "/A#20B#23"},
		{String("hello"), "(hello)"},
		{String("a(b)c"), "(a(b)c)"},
		{String("a)b"), `(a\)b)`},
		{String("x\ny"), `(x\ny)`},
		{String{0, 1, 2}, "<000102>"},
		{Array{Integer(1), nil, Name("X")}, "[1 null /X]"},
		{Dict{"B": Integer(2), "A": Integer(1), "C": nil}, "<<\n/A 1\n/B 2\n>>"},
		{NewReference(12, 0), "12 0 R"},
		{NewReference(7, 3), "7 3 R"},
	}
	for _, test := range cases {
		got := Format(test.in)
		if got != test.want {
			t.Errorf("Format(%#v) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestStreamLength(t *testing.T) {
	stm := &Stream{
		Dict: Dict{"Length": Integer(999)},
		Data: []byte("q Q"),
	}
	got := Format(stm)
	want := "<<\n/Length 3\n>>\nstream\nq Q\nendstream"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if stm.Dict["Length"] != Integer(999) {
		t.Error("writing a stream modified its dictionary")
	}
}

func TestParseObjects(t *testing.T) {
	cases := []struct {
		in   string
		want Object
	}{
		{"null", nil},
		{"true", Bool(true)},
		{"42", Integer(42)},
		{"-.5", Real(-0.5)},
		{"/Name#20X", Name("Name X")},
		{"(a\\(b\\)c)", String("a(b)c")},
		{"(line\\\ncont)", String("linecont")},
		{"(\\101\\102)", String("AB")},
		{"<48 65 6C6C 6F>", String("Hello")},
		{"<414>", String("A@")},
		{"[1 2 R 3]", Array{NewReference(1, 2), Integer(3)}},
		{"[1 2 3]", Array{Integer(1), Integer(2), Integer(3)}},
		{"<</A 1 0 R /B [/X]>>", Dict{"A": NewReference(1, 0), "B": Array{Name("X")}}},
		{"<</A null>>", Dict{}},
		{"% comment\n 7", Integer(7)},
	}
	for _, test := range cases {
		p := newParser([]byte(test.in), 0)
		got, err := p.ReadObject()
		if err != nil {
			t.Errorf("%q: %v", test.in, err)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("%q: unexpected result (-want +got):\n%s", test.in, diff)
		}
	}
}

func TestTextString(t *testing.T) {
	for _, s := range []string{"", "plain", "Grüße", "日本"} {
		enc := TextString(s)
		got := enc.AsTextString()
		if got != s {
			t.Errorf("%q: round trip gave %q", s, got)
		}
	}
	if got := TextString("plain"); string(got) != "plain" {
		t.Errorf("ASCII text was re-encoded: %q", got)
	}
}

func TestNumber(t *testing.T) {
	if got := Number(612); got != Integer(612) {
		t.Errorf("Number(612) = %#v", got)
	}
	if got := Number(595.2756); got != Real(595.2756) {
		t.Errorf("Number(595.2756) = %#v", got)
	}
}
