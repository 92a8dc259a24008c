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

// Package splice attaches a stamp to an existing page.
//
// The existing content streams of the page are enclosed in a q/Q pair, so
// that any transformation or other graphics state they set up does not
// leak out.  After the closing Q the stamp is drawn, itself enclosed in
// q/Q and preceded by an explicit identity transformation.
package splice

import (
	"bytes"
	"fmt"
	"strconv"

	"seehuhn.de/go/geom/matrix"

	"seehuhn.de/go/handouts/graphics"
	"seehuhn.de/go/handouts/pdf"
)

// DefaultName is the preferred resource name for the stamp.
const DefaultName pdf.Name = "HeaderFooter"

// BalanceError indicates that the content of a page does not consist of
// properly nested q/Q and BT/ET pairs.  Such pages cannot be wrapped
// safely.
type BalanceError struct {
	Op     string // the offending operator
	Depth  int    // q nesting depth before Op
	Offset int64  // position of Op in the concatenated content

	// AtEnd is set if the content ended while Op was still open.
	AtEnd bool
}

func (err *BalanceError) Error() string {
	var msg string
	switch {
	case err.AtEnd && err.Op == "q":
		msg = fmt.Sprintf("%d unclosed q at end of content", err.Depth)
	case err.AtEnd:
		msg = fmt.Sprintf("unclosed %s at end of content", err.Op)
	case err.Op == "Q":
		msg = "Q without matching q"
	case err.Op == "ET":
		msg = "ET without matching BT"
	case err.Op == "BT":
		msg = "BT inside a text object"
	default:
		msg = "unexpected " + strconv.Quote(err.Op)
	}
	return fmt.Sprintf("splice: unbalanced content stream: %s (at byte %d)", msg, err.Offset)
}

// CheckBalance verifies that the q/Q and BT/ET operators in content are
// properly paired.
func CheckBalance(content []byte) error {
	s := graphics.NewScanner(content)
	depth := 0
	inText := false
	var textStart, lastQ int64
	for s.Scan() {
		switch s.Op() {
		case "q":
			depth++
			lastQ = s.Offset()
		case "Q":
			if depth == 0 {
				return &BalanceError{Op: "Q", Depth: depth, Offset: s.Offset()}
			}
			depth--
		case "BT":
			if inText {
				return &BalanceError{Op: "BT", Depth: depth, Offset: s.Offset()}
			}
			inText = true
			textStart = s.Offset()
		case "ET":
			if !inText {
				return &BalanceError{Op: "ET", Depth: depth, Offset: s.Offset()}
			}
			inText = false
		}
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("splice: %w", err)
	}
	if inText {
		return &BalanceError{Op: "BT", Depth: depth, Offset: textStart, AtEnd: true}
	}
	if depth > 0 {
		return &BalanceError{Op: "q", Depth: depth, Offset: lastQ, AtEnd: true}
	}
	return nil
}

// contentStreams returns the content streams of a page, as a list of
// references.  Direct streams, which are not allowed by the PDF
// specification but occur in practice, are returned as nil entries.
func contentStreams(r pdf.Getter, page pdf.Dict) ([]pdf.Object, error) {
	contents := page["Contents"]
	if ref, ok := contents.(pdf.Reference); ok {
		obj, err := r.Get(ref)
		if err != nil {
			return nil, err
		}
		if a, isArray := obj.(pdf.Array); isArray {
			return a, nil
		}
		return []pdf.Object{ref}, nil
	}
	switch x := contents.(type) {
	case nil:
		return nil, nil
	case pdf.Array:
		return x, nil
	case *pdf.Stream:
		return []pdf.Object{x}, nil
	default:
		return nil, &pdf.MalformedFileError{
			Err: fmt.Errorf("invalid /Contents entry of type %T", contents),
		}
	}
}

// Content returns the decoded and concatenated content streams of a page.
func Content(r pdf.Getter, page pdf.Dict) ([]byte, error) {
	streams, err := contentStreams(r, page)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	for _, obj := range streams {
		stm, err := pdf.GetStream(r, obj)
		if err != nil {
			return nil, err
		}
		if stm == nil {
			continue
		}
		data, err := pdf.Decode(r, stm)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Check decodes the content of the page and verifies that it can be
// wrapped.
func Check(r pdf.Getter, page pdf.Dict) error {
	content, err := Content(r, page)
	if err != nil {
		return err
	}
	return CheckBalance(content)
}

// UniqueName returns base if it is not a key of existing.  Otherwise, the
// smallest positive integer is appended which makes the name unique.
func UniqueName[V any](base pdf.Name, existing map[pdf.Name]V) pdf.Name {
	if _, taken := existing[base]; !taken {
		return base
	}
	for i := 1; ; i++ {
		name := base + pdf.Name(strconv.Itoa(i))
		if _, taken := existing[name]; !taken {
			return name
		}
	}
}

// Attach wraps the content of the page and appends an invocation of the
// XObject stamp.  The page dictionary is modified in place.
//
// The effective resource dictionary of the page, which may be inherited
// from the page tree, must be given in resources.  A modified copy is
// stored in the page, so that resource dictionaries shared with other
// pages are not changed.
//
// The resource name used for the stamp is returned.  Attach does not check
// the content of the page; use [Check] or [Splice] for this.
func Attach(f *pdf.File, page pdf.Dict, resources pdf.Dict, stamp pdf.Reference, base pdf.Name) (pdf.Name, error) {
	if base == "" {
		base = DefaultName
	}

	streams, err := contentStreams(f, page)
	if err != nil {
		return "", err
	}

	xobjects, err := pdf.GetDict(f, resources["XObject"])
	if err != nil {
		return "", err
	}
	name := UniqueName(base, xobjects)

	newXObjects := xobjects.Clone()
	if newXObjects == nil {
		newXObjects = pdf.Dict{}
	}
	newXObjects[name] = stamp
	newResources := resources.Clone()
	if newResources == nil {
		newResources = pdf.Dict{}
	}
	newResources["XObject"] = newXObjects

	// The same writer produces both streams, so that it can check that
	// the q in the prefix is matched by the Q in the suffix.
	w := graphics.NewWriter()
	w.PushGraphicsState()
	prefixData := w.Content
	w.Content = &bytes.Buffer{}
	w.Content.WriteString("\n")
	w.PopGraphicsState()
	w.PushGraphicsState()
	w.Transform(matrix.Identity)
	w.DrawXObject(name)
	w.PopGraphicsState()
	if err := w.Close(); err != nil {
		return "", err
	}

	prefix := f.Alloc()
	f.Put(prefix, &pdf.Stream{Dict: pdf.Dict{}, Data: prefixData.Bytes()})
	suffix := f.Alloc()
	f.Put(suffix, &pdf.Stream{Dict: pdf.Dict{}, Data: w.Content.Bytes()})

	contents := pdf.Array{prefix}
	for _, obj := range streams {
		if stm, isDirect := obj.(*pdf.Stream); isDirect {
			ref := f.Alloc()
			f.Put(ref, stm)
			obj = ref
		}
		contents = append(contents, obj)
	}
	contents = append(contents, suffix)

	page["Contents"] = contents
	page["Resources"] = newResources
	return name, nil
}

// Splice checks that the page content can be wrapped and then attaches the
// stamp, see [Attach].  If the check fails, the page is not modified.
func Splice(f *pdf.File, page pdf.Dict, resources pdf.Dict, stamp pdf.Reference, base pdf.Name) (pdf.Name, error) {
	if err := Check(f, page); err != nil {
		return "", err
	}
	return Attach(f, page, resources, stamp, base)
}
