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
	"io"
	"regexp"
	"strconv"
)

// Read reads a complete PDF file into memory.
func Read(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a PDF file held in memory.
//
// All objects reachable through the cross-reference information are
// loaded.  If the cross-reference information is damaged, the file is
// scanned for "n g obj" markers instead.  Object streams and
// cross-reference streams are unpacked; they do not appear in the result.
func Parse(data []byte) (*File, error) {
	version, _, err := readHeaderVersion(data)
	if err != nil {
		return nil, err
	}

	r := &reader{data: data}
	xref, trailer, err := r.readXRef()
	if err != nil || !r.looksValid(xref, trailer) {
		xref, trailer, err = r.reconstruct()
		if err != nil {
			return nil, err
		}
	}
	r.xref = xref

	if _, isEncrypted := trailer["Encrypt"]; isEncrypted {
		return nil, ErrEncrypted
	}

	f := NewFile(version)
	for num, entry := range xref {
		if entry.isFree() {
			continue
		}
		ref, obj, err := r.loadObject(num, entry)
		if err != nil {
			// Skip broken objects; references to them resolve to null.
			continue
		}
		if stm, isStream := obj.(*Stream); isStream {
			if tp, _ := stm.Dict["Type"].(Name); tp == "XRef" || tp == "ObjStm" {
				continue
			}
		}
		f.Put(ref, obj)
	}

	for _, key := range []Name{"Root", "Info", "ID"} {
		if val, ok := trailer[key]; ok {
			f.Trailer[key] = val
		}
	}
	if _, ok := f.Trailer["Root"]; !ok {
		return nil, &MalformedFileError{Err: ErrNoRoot}
	}

	if catalog, err := f.Catalog(); err == nil {
		if v, ok := catalog["Version"].(Name); ok {
			if catVer, err := ParseVersion(string(v)); err == nil && catVer > f.Version {
				f.Version = catVer
			}
		}
	}

	return f, nil
}

type xRefEntry struct {
	Pos        int64
	Generation uint16

	// InStream is the object number of the containing object stream,
	// or 0 for uncompressed objects.  For compressed objects, Pos is the
	// index within the object stream.
	InStream uint32
}

func (entry *xRefEntry) isFree() bool {
	return entry == nil || entry.Pos < 0
}

type reader struct {
	data []byte
	xref map[uint32]*xRefEntry

	objStm  map[uint32]*objStream
	loading map[uint32]bool
}

type objStream struct {
	parser  *parser
	offsets []int
	numbers []uint32
}

func (r *reader) parserAt(pos int64) *parser {
	p := newParser(r.data[pos:], pos)
	p.getLength = r.getLength
	return p
}

// getLength resolves indirect /Length entries of stream dictionaries.
func (r *reader) getLength(obj Object) (int, bool) {
	ref, ok := obj.(Reference)
	if !ok || r.xref == nil {
		return 0, false
	}
	entry := r.xref[ref.Number()]
	if entry.isFree() || entry.InStream != 0 || entry.Pos >= int64(len(r.data)) {
		return 0, false
	}
	p := r.parserAt(entry.Pos)
	_, val, err := p.ReadIndirectObject()
	if err != nil {
		return 0, false
	}
	n, ok := val.(Integer)
	return int(n), ok && n >= 0
}

func (r *reader) findXRef() (int64, error) {
	pos := bytes.LastIndex(r.data, []byte("startxref"))
	if pos < 0 {
		return 0, &MalformedFileError{Err: errNoXRef}
	}
	p := r.parserAt(int64(pos) + 9)
	p.SkipWhiteSpace()
	xRefPos, err := p.ReadInteger()
	if err != nil {
		return 0, err
	}
	if xRefPos <= 0 || int64(xRefPos) >= int64(len(r.data)) {
		return 0, &MalformedFileError{
			Pos: p.filePos(),
			Err: errors.New("invalid xref position"),
		}
	}
	return int64(xRefPos), nil
}

func (r *reader) readXRef() (map[uint32]*xRefEntry, Dict, error) {
	start, err := r.findXRef()
	if err != nil {
		return nil, nil, err
	}

	xref := make(map[uint32]*xRefEntry)
	r.xref = xref
	trailer := Dict{}
	first := true
	seen := make(map[int64]bool)
	for {
		// avoid xref loops
		if seen[start] {
			break
		}
		seen[start] = true

		p := r.parserAt(start)
		p.SkipWhiteSpace()
		var dict Dict
		if p.hasPrefix("xref") {
			dict, err = readXRefTable(xref, p)
			if err != nil {
				return nil, nil, err
			}
			if zStart, ok := dict["XRefStm"].(Integer); ok && zStart > 0 && int64(zStart) < int64(len(r.data)) {
				_, err = r.readXRefStream(xref, r.parserAt(int64(zStart)))
				if err != nil {
					return nil, nil, err
				}
			}
		} else {
			dict, err = r.readXRefStream(xref, p)
			if err != nil {
				return nil, nil, err
			}
		}

		if first {
			for _, key := range []Name{"Root", "Encrypt", "Info", "ID"} {
				if val, ok := dict[key]; ok {
					trailer[key] = val
				}
			}
			first = false
		}

		prev, hasPrev := dict["Prev"]
		if !hasPrev {
			break
		}
		prevStart, ok := prev.(Integer)
		if !ok || prevStart <= 0 || int64(prevStart) >= int64(len(r.data)) {
			return nil, nil, &MalformedFileError{
				Pos: start,
				Err: fmt.Errorf("invalid /Prev value %s", Format(prev)),
			}
		}
		start = int64(prevStart)
	}

	return xref, trailer, nil
}

// looksValid performs a cheap sanity check on the cross-reference data:
// the catalog must be present at the recorded position.
func (r *reader) looksValid(xref map[uint32]*xRefEntry, trailer Dict) bool {
	root, ok := trailer["Root"].(Reference)
	if !ok {
		return false
	}
	entry := xref[root.Number()]
	if entry.isFree() {
		return false
	}
	if entry.InStream != 0 {
		return true
	}
	if entry.Pos >= int64(len(r.data)) {
		return false
	}
	ref, _, err := r.parserAt(entry.Pos).ReadIndirectObject()
	return err == nil && ref.Number() == root.Number()
}

func readXRefTable(xref map[uint32]*xRefEntry, p *parser) (Dict, error) {
	err := p.SkipString("xref")
	if err != nil {
		return nil, err
	}
	p.SkipWhiteSpace()

	for !p.atEOF() && p.buf[p.pos] >= '0' && p.buf[p.pos] <= '9' {
		start, err := p.ReadInteger()
		if err != nil {
			return nil, err
		}
		p.SkipWhiteSpace()
		length, err := p.ReadInteger()
		if err != nil {
			return nil, err
		}
		p.SkipWhiteSpace()
		if start < 0 || length < 0 || start+length > 1<<31 {
			return nil, p.errorf("invalid xref subsection %d %d", start, length)
		}

		err = decodeXRefSection(xref, p, uint32(start), uint32(start+length))
		if err != nil {
			return nil, err
		}
		p.SkipWhiteSpace()
	}

	err = p.SkipString("trailer")
	if err != nil {
		return nil, err
	}
	p.SkipWhiteSpace()
	return p.ReadDict()
}

func decodeXRefSection(xref map[uint32]*xRefEntry, p *parser, start, end uint32) error {
	for i := start; i < end; i++ {
		// Entries are 20 bytes, but some writers use 19 or 21 bytes.
		p.SkipWhiteSpace()
		if p.pos+18 > len(p.buf) {
			return &MalformedFileError{Pos: p.filePos(), Err: io.ErrUnexpectedEOF}
		}
		line := p.buf[p.pos : p.pos+18]
		p.pos += 18

		if xref[i] != nil {
			continue
		}

		a, err := strconv.ParseInt(string(line[:10]), 10, 64)
		if err != nil {
			return &MalformedFileError{Pos: p.filePos(), Err: err}
		}
		b, err := strconv.ParseUint(string(line[11:16]), 10, 32)
		if err != nil {
			return &MalformedFileError{Pos: p.filePos(), Err: err}
		}
		switch line[17] {
		case 'f':
			xref[i] = &xRefEntry{Pos: -1, Generation: uint16(min(b, 65535))}
		case 'n':
			xref[i] = &xRefEntry{Pos: a, Generation: uint16(min(b, 65535))}
		default:
			return &MalformedFileError{
				Pos: p.filePos(),
				Err: errors.New("malformed xref table"),
			}
		}
	}
	return nil
}

func (r *reader) readXRefStream(xref map[uint32]*xRefEntry, p *parser) (Dict, error) {
	_, obj, err := p.ReadIndirectObject()
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*Stream)
	if !ok {
		return nil, &MalformedFileError{
			Pos: p.filePos(),
			Err: errors.New("invalid xref stream"),
		}
	}

	w, ss, err := checkXRefStreamDict(stream.Dict)
	if err != nil {
		return nil, err
	}
	data, err := Decode(nil, stream)
	if err != nil {
		return nil, err
	}
	err = decodeXRefStream(xref, data, w, ss)
	if err != nil {
		return nil, err
	}
	return stream.Dict, nil
}

type xRefSubSection struct {
	Start, Size uint32
}

func checkXRefStreamDict(dict Dict) ([]int, []xRefSubSection, error) {
	size, ok := dict["Size"].(Integer)
	if !ok || size < 0 {
		return nil, nil, &MalformedFileError{Err: errors.New("invalid /Size in xref stream")}
	}
	W, ok := dict["W"].(Array)
	if !ok || len(W) < 3 {
		return nil, nil, &MalformedFileError{Err: errors.New("invalid /W in xref stream")}
	}
	var w []int
	for _, Wi := range W[:3] {
		wi, ok := Wi.(Integer)
		if !ok || wi < 0 || wi > 8 {
			return nil, nil, &MalformedFileError{Err: errors.New("invalid /W in xref stream")}
		}
		w = append(w, int(wi))
	}

	var ss []xRefSubSection
	switch ind := dict["Index"].(type) {
	case nil:
		ss = append(ss, xRefSubSection{0, uint32(size)})
	case Array:
		if len(ind)%2 != 0 {
			return nil, nil, &MalformedFileError{Err: errors.New("invalid /Index in xref stream")}
		}
		for i := 0; i < len(ind); i += 2 {
			start, ok1 := ind[i].(Integer)
			n, ok2 := ind[i+1].(Integer)
			if !ok1 || !ok2 || start < 0 || n < 0 {
				return nil, nil, &MalformedFileError{Err: errors.New("invalid /Index in xref stream")}
			}
			ss = append(ss, xRefSubSection{uint32(start), uint32(n)})
		}
	default:
		return nil, nil, &MalformedFileError{Err: errors.New("invalid /Index in xref stream")}
	}
	return w, ss, nil
}

func decodeXRefStream(xref map[uint32]*xRefEntry, data []byte, w []int, ss []xRefSubSection) error {
	w0, w1, w2 := w[0], w[1], w[2]
	wTotal := w0 + w1 + w2
	if wTotal == 0 {
		return &MalformedFileError{Err: errors.New("invalid /W in xref stream")}
	}

	for _, sec := range ss {
		for i := sec.Start; i < sec.Start+sec.Size; i++ {
			if len(data) < wTotal {
				return &MalformedFileError{Err: io.ErrUnexpectedEOF}
			}
			buf := data[:wTotal]
			data = data[wTotal:]

			if xref[i] != nil {
				continue
			}

			tp := decodeInt(buf[:w0])
			if w0 == 0 {
				tp = 1
			}
			a := decodeInt(buf[w0 : w0+w1])
			b := decodeInt(buf[w0+w1 : w0+w1+w2])
			switch tp {
			case 0:
				xref[i] = &xRefEntry{Pos: -1, Generation: uint16(b)}
			case 1:
				xref[i] = &xRefEntry{Pos: a, Generation: uint16(b)}
			case 2:
				xref[i] = &xRefEntry{Pos: b, InStream: uint32(a)}
			}
		}
	}
	return nil
}

func decodeInt(buf []byte) (res int64) {
	for _, x := range buf {
		res = res<<8 | int64(x)
	}
	return res
}

var objMarker = regexp.MustCompile(`(?m)(?:^|[^0-9])(\d{1,10})[ \t\r\n\f\x00]+(\d{1,5})[ \t\r\n\f\x00]+obj\b`)

// reconstruct rebuilds the cross-reference information by scanning the
// whole file for object markers.  Later definitions of an object take
// precedence, as they would in an incrementally updated file.
func (r *reader) reconstruct() (map[uint32]*xRefEntry, Dict, error) {
	xref := make(map[uint32]*xRefEntry)
	r.xref = xref
	r.objStm = nil

	for _, m := range objMarker.FindAllSubmatchIndex(r.data, -1) {
		num, err1 := strconv.ParseUint(string(r.data[m[2]:m[3]]), 10, 32)
		gen, err2 := strconv.ParseUint(string(r.data[m[4]:m[5]]), 10, 16)
		if err1 != nil || err2 != nil {
			continue
		}
		xref[uint32(num)] = &xRefEntry{Pos: int64(m[2]), Generation: uint16(gen)}
	}

	trailer := Dict{}
	rest := r.data
	for {
		idx := bytes.Index(rest, []byte("trailer"))
		if idx < 0 {
			break
		}
		pos := int64(len(r.data)-len(rest)) + int64(idx) + 7
		p := r.parserAt(pos)
		p.SkipWhiteSpace()
		if dict, err := p.ReadDict(); err == nil {
			for key, val := range dict {
				trailer[key] = val
			}
		}
		rest = rest[idx+7:]
	}

	// Object streams and the catalog are found by looking at the objects.
	var objStreams []uint32
	for num, entry := range xref {
		_, obj, err := r.parserAt(entry.Pos).ReadIndirectObject()
		if err != nil {
			continue
		}
		var dict Dict
		switch x := obj.(type) {
		case Dict:
			dict = x
		case *Stream:
			dict = x.Dict
		}
		switch dict["Type"] {
		case Name("ObjStm"):
			objStreams = append(objStreams, num)
		case Name("Catalog"):
			if _, ok := trailer["Root"]; !ok {
				trailer["Root"] = NewReference(num, entry.Generation)
			}
		case Name("XRef"):
			if root, ok := dict["Root"]; ok {
				trailer["Root"] = root
			}
			if info, ok := dict["Info"]; ok {
				trailer["Info"] = info
			}
		}
	}
	for _, num := range objStreams {
		stm, err := r.getObjStream(num)
		if err != nil {
			continue
		}
		for idx, n := range stm.numbers {
			if xref[n] == nil {
				xref[n] = &xRefEntry{Pos: int64(idx), InStream: num}
			}
		}
	}

	if _, ok := trailer["Root"]; !ok {
		return nil, nil, &MalformedFileError{Err: ErrNoRoot}
	}
	return xref, trailer, nil
}

func (r *reader) loadObject(num uint32, entry *xRefEntry) (Reference, Object, error) {
	if entry.InStream != 0 {
		stm, err := r.getObjStream(entry.InStream)
		if err != nil {
			return 0, nil, err
		}
		idx := int(entry.Pos)
		if idx < 0 || idx >= len(stm.offsets) || stm.numbers[idx] != num {
			return 0, nil, &MalformedFileError{
				Err: fmt.Errorf("object %d not found in object stream %d", num, entry.InStream),
			}
		}
		stm.parser.pos = stm.offsets[idx]
		obj, err := stm.parser.ReadObject()
		if err != nil {
			return 0, nil, err
		}
		return NewReference(num, 0), obj, nil
	}

	if entry.Pos < 0 || entry.Pos >= int64(len(r.data)) {
		return 0, nil, &MalformedFileError{Pos: entry.Pos, Err: errNotFound}
	}
	ref, obj, err := r.parserAt(entry.Pos).ReadIndirectObject()
	if err != nil {
		return 0, nil, err
	}
	if ref.Number() != num {
		return 0, nil, &MalformedFileError{
			Pos: entry.Pos,
			Err: fmt.Errorf("expected object %d but found %d", num, ref.Number()),
		}
	}
	return ref, obj, nil
}

func (r *reader) getObjStream(num uint32) (*objStream, error) {
	if stm, ok := r.objStm[num]; ok {
		return stm, nil
	}
	if r.loading[num] {
		return nil, &MalformedFileError{Err: errLoop}
	}
	if r.loading == nil {
		r.loading = make(map[uint32]bool)
	}
	r.loading[num] = true
	defer delete(r.loading, num)

	entry := r.xref[num]
	if entry.isFree() || entry.InStream != 0 || entry.Pos >= int64(len(r.data)) {
		return nil, &MalformedFileError{Err: fmt.Errorf("object stream %d: %w", num, errNotFound)}
	}
	_, obj, err := r.parserAt(entry.Pos).ReadIndirectObject()
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*Stream)
	if !ok {
		return nil, &MalformedFileError{Err: fmt.Errorf("object %d is not an object stream", num)}
	}
	n, ok1 := stream.Dict["N"].(Integer)
	first, ok2 := stream.Dict["First"].(Integer)
	if !ok1 || !ok2 || n < 0 || first < 0 {
		return nil, &MalformedFileError{Err: fmt.Errorf("object stream %d: invalid /N or /First", num)}
	}
	data, err := Decode(nil, stream)
	if err != nil {
		return nil, err
	}
	if int(first) > len(data) {
		return nil, &MalformedFileError{Err: fmt.Errorf("object stream %d: invalid /First", num)}
	}

	header := newParser(data[:first], 0)
	res := &objStream{parser: newParser(data, 0)}
	for i := 0; i < int(n); i++ {
		header.SkipWhiteSpace()
		objNum, err := header.ReadInteger()
		if err != nil {
			return nil, err
		}
		header.SkipWhiteSpace()
		offs, err := header.ReadInteger()
		if err != nil {
			return nil, err
		}
		if objNum < 0 || offs < 0 || int(first)+int(offs) > len(data) {
			return nil, &MalformedFileError{Err: fmt.Errorf("object stream %d: invalid header", num)}
		}
		res.numbers = append(res.numbers, uint32(objNum))
		res.offsets = append(res.offsets, int(first)+int(offs))
	}

	if r.objStm == nil {
		r.objStm = make(map[uint32]*objStream)
	}
	r.objStm[num] = res
	return res, nil
}
