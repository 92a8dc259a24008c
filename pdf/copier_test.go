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

func TestCopierOrder(t *testing.T) {
	src := NewFile(V1_7)
	dict := Dict{}
	for _, key := range []Name{"Kilo", "Alpha", "Echo", "Bravo", "Zulu", "Mike", "Charlie"} {
		ref := src.Alloc()
		src.Put(ref, String(key))
		dict[key] = ref
	}

	want := Dict{
		"Alpha":   NewReference(1, 0),
		"Bravo":   NewReference(2, 0),
		"Charlie": NewReference(3, 0),
		"Echo":    NewReference(4, 0),
		"Kilo":    NewReference(5, 0),
		"Mike":    NewReference(6, 0),
		"Zulu":    NewReference(7, 0),
	}
	for range 10 {
		dst := NewFile(V1_7)
		c := NewCopier(dst, src)
		got, err := c.CopyDict(dict)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("objects allocated in the wrong order (-want +got):\n%s", diff)
		}
		obj, _ := dst.Get(NewReference(3, 0))
		if s, ok := obj.(String); !ok || string(s) != "Charlie" {
			t.Errorf("wrong object 3: %s", Format(obj))
		}
	}
}
