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
	"compress/lzw"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRunLength(t *testing.T) {
	cases := []struct {
		in   []byte
		want []byte
	}{
		{[]byte{128}, nil},
		{[]byte{2, 'a', 'b', 'c', 128}, []byte("abc")},
		{[]byte{253, 'x', 0, 'y', 128}, []byte("xxxxy")},
		{[]byte{129, 'z', 128, 'i', 'g', 'n', 'o', 'r', 'e', 'd'}, bytes.Repeat([]byte{'z'}, 128)},
		{[]byte{1, 'o', 'k'}, []byte("ok")},
	}
	for _, test := range cases {
		got, err := applyFilter(test.in, "RunLengthDecode", nil)
		if err != nil {
			t.Errorf("%v: %v", test.in, err)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("%v: unexpected result (-want +got):\n%s", test.in, diff)
		}
	}

	for _, in := range [][]byte{{5, 'a', 'b'}, {200}} {
		_, err := applyFilter(in, "RunLengthDecode", nil)
		if err == nil {
			t.Errorf("%v: truncated data not detected", in)
		}
	}
}

func TestLZW(t *testing.T) {
	// example 1 from section 7.4.4.2 of PDF 32000-1:2008
	in := []byte{0x80, 0x0B, 0x60, 0x50, 0x22, 0x0C, 0x0C, 0x85, 0x01}
	want := []byte{45, 45, 45, 45, 45, 65, 45, 45, 45, 66}

	got, err := applyFilter(in, "LZWDecode", nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected result (-want +got):\n%s", diff)
	}

	_, err = applyFilter(in, "LZWDecode", Dict{"EarlyChange": Integer(0)})
	if !errors.Is(err, errEarlyChange) {
		t.Errorf("expected errEarlyChange, got %v", err)
	}
}

func TestLZWStream(t *testing.T) {
	content := bytes.Repeat([]byte("q 1 0 0 1 10 10 cm BT /F1 12 Tf (Hello) Tj ET Q\n"), 100)
	buf := &bytes.Buffer{}
	w := lzw.NewWriter(buf, lzw.MSB, 8)
	w.Write(content)
	w.Close()

	f := NewFile(V1_7)
	stm := &Stream{
		Dict: Dict{"Filter": Array{Name("LZWDecode")}},
		Data: buf.Bytes(),
	}
	got, err := Decode(f, stm)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("round trip failed: got %d bytes, want %d", len(got), len(content))
	}
}

func TestUnsupportedFilter(t *testing.T) {
	f := NewFile(V1_7)
	stm := &Stream{Dict: Dict{"Filter": Name("JBIG2Decode")}, Data: []byte{1, 2, 3}}
	_, err := Decode(f, stm)
	var unsupported *UnsupportedFilterError
	if !errors.As(err, &unsupported) || unsupported.Filter != "JBIG2Decode" {
		t.Errorf("expected UnsupportedFilterError, got %v", err)
	}
}
