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
	"bufio"
	"fmt"
	"io"
)

// Write serializes the file f to w.
//
// Objects are written in order of increasing object number, followed by a
// classic cross-reference table and the trailer.
func Write(w io.Writer, f *File) error {
	if _, ok := f.Trailer["Root"]; !ok {
		return ErrNoRoot
	}

	bw := bufio.NewWriter(w)
	pw := &posWriter{w: bw}

	version := f.Version
	if version < V1_0 {
		version = V1_7
	}
	_, err := fmt.Fprintf(pw, "%%PDF-%s\n%%\x80\x80\x80\x80\n", version)
	if err != nil {
		return err
	}

	refs := f.Refs()
	var size uint32 = 1
	if len(refs) > 0 {
		size = refs[len(refs)-1].Number() + 1
	}
	type entry struct {
		pos int64
		gen uint16
	}
	xref := make([]*entry, size)
	for _, ref := range refs {
		num := ref.Number()
		if xref[num] != nil {
			// several generations of the same object number, keep the first
			continue
		}
		xref[num] = &entry{pos: pw.pos, gen: ref.Generation()}

		_, err = fmt.Fprintf(pw, "%d %d obj\n", num, ref.Generation())
		if err != nil {
			return err
		}
		err = writeObject(pw, f.objects[ref])
		if err != nil {
			return fmt.Errorf("object %s: %w", ref, err)
		}
		_, err = io.WriteString(pw, "\nendobj\n")
		if err != nil {
			return err
		}
	}

	xrefPos := pw.pos
	_, err = fmt.Fprintf(pw, "xref\n0 %d\n", size)
	if err != nil {
		return err
	}
	for i := range xref {
		e := xref[i]
		if e != nil {
			_, err = fmt.Fprintf(pw, "%010d %05d n\r\n", e.pos, e.gen)
		} else {
			_, err = io.WriteString(pw, "0000000000 65535 f\r\n")
		}
		if err != nil {
			return err
		}
	}

	trailer := Dict{
		"Size": Integer(size),
		"Root": f.Trailer["Root"],
		"Info": f.Trailer["Info"],
		"ID":   f.Trailer["ID"],
	}
	_, err = io.WriteString(pw, "trailer\n")
	if err != nil {
		return err
	}
	err = trailer.PDF(pw)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(pw, "\nstartxref\n%d\n%%%%EOF\n", xrefPos)
	if err != nil {
		return err
	}

	return bw.Flush()
}

type posWriter struct {
	w   io.Writer
	pos int64
}

func (w *posWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.pos += int64(n)
	return n, err
}
