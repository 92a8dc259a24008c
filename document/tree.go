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

package document

import (
	"errors"
	"fmt"
	"math"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/handouts/pdf"
)

// maxDegree is the maximal number of children of a node in the page trees
// we write.
const maxDegree = 16

// inheritable lists the page attributes which can be inherited from the
// page tree.
var inheritable = []pdf.Name{"Resources", "MediaBox", "CropBox", "Rotate"}

var errPageTreeLoop = errors.New("page tree contains a loop")

// flatten walks the page tree and returns the pages in document order.
// Inherited attributes are stored into the page dictionaries.
func flatten(f *pdf.File, root pdf.Object) ([]*Page, error) {
	type item struct {
		obj       pdf.Object
		inherited pdf.Dict
	}

	var pages []*Page
	todo := []item{{obj: root}}
	seen := make(map[pdf.Reference]bool)
	for len(todo) > 0 {
		k := len(todo) - 1
		it := todo[k]
		todo = todo[:k]

		ref, isRef := it.obj.(pdf.Reference)
		if isRef {
			if seen[ref] {
				return nil, &pdf.MalformedFileError{Err: errPageTreeLoop}
			}
			seen[ref] = true
		}
		node, err := pdf.GetDict(f, it.obj)
		if err != nil {
			return nil, fmt.Errorf("page tree: %w", err)
		}
		if node == nil {
			continue
		}

		tp, _ := pdf.GetName(f, node["Type"])
		_, hasKids := node["Kids"]
		if tp == "Pages" || tp != "Page" && hasKids {
			attr := it.inherited.Clone()
			if attr == nil {
				attr = pdf.Dict{}
			}
			for _, key := range inheritable {
				if val, ok := node[key]; ok {
					attr[key] = val
				}
			}
			kids, err := pdf.GetArray(f, node["Kids"])
			if err != nil {
				return nil, fmt.Errorf("page tree: %w", err)
			}
			for i := len(kids) - 1; i >= 0; i-- {
				todo = append(todo, item{obj: kids[i], inherited: attr})
			}
			continue
		}

		if !isRef {
			ref = f.Alloc()
			f.Put(ref, node)
		}
		p, err := newPage(f, ref, node, it.inherited)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", len(pages)+1, err)
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// newPage copies inherited attributes into the page dictionary and
// extracts the page geometry.
func newPage(f *pdf.File, ref pdf.Reference, dict pdf.Dict, inherited pdf.Dict) (*Page, error) {
	for _, key := range inheritable {
		if _, ok := dict[key]; ok {
			continue
		}
		if val := inherited[key]; val != nil {
			dict[key] = val
		}
	}

	mediaBox, err := pdf.GetRectangle(f, dict["MediaBox"])
	if err != nil {
		return nil, err
	}
	if mediaBox == nil || mediaBox.IsZero() {
		mediaBox = &Letter
		dict["MediaBox"] = pdf.RectangleObject(Letter)
	}
	box := *mediaBox
	cropBox, err := pdf.GetRectangle(f, dict["CropBox"])
	if err != nil {
		return nil, err
	}
	if cropBox != nil {
		clipped := rect.Rect{
			LLx: math.Max(cropBox.LLx, box.LLx),
			LLy: math.Max(cropBox.LLy, box.LLy),
			URx: math.Min(cropBox.URx, box.URx),
			URy: math.Min(cropBox.URy, box.URy),
		}
		if clipped.LLx < clipped.URx && clipped.LLy < clipped.URy {
			box = clipped
		}
	}

	rotate, err := pdf.GetInteger(f, dict["Rotate"])
	if err != nil {
		return nil, err
	}
	r := int(rotate) % 360
	if r < 0 {
		r += 360
	}
	if r%90 != 0 {
		r = 0
	}

	resources, err := pdf.GetDict(f, dict["Resources"])
	if err != nil {
		return nil, err
	}

	return &Page{
		Ref:       ref,
		Dict:      dict,
		Box:       box,
		Rotate:    r,
		Resources: resources,
	}, nil
}

// buildTree writes a balanced page tree for the given pages into out and
// returns the reference of the root node.  The /Parent entries of the page
// dictionaries are set.
func buildTree(out *pdf.File, refs []pdf.Reference, dicts []pdf.Dict) pdf.Reference {
	type node struct {
		ref   pdf.Reference
		dict  pdf.Dict
		count int
	}

	if len(refs) == 0 {
		ref := out.Alloc()
		out.Put(ref, pdf.Dict{
			"Type":  pdf.Name("Pages"),
			"Kids":  pdf.Array{},
			"Count": pdf.Integer(0),
		})
		return ref
	}

	level := make([]node, len(refs))
	for i := range refs {
		level[i] = node{ref: refs[i], dict: dicts[i], count: 1}
	}
	for {
		var next []node
		for start := 0; start < len(level); start += maxDegree {
			end := min(start+maxDegree, len(level))
			ref := out.Alloc()
			kids := make(pdf.Array, 0, end-start)
			count := 0
			for _, child := range level[start:end] {
				child.dict["Parent"] = ref
				kids = append(kids, child.ref)
				count += child.count
			}
			dict := pdf.Dict{
				"Type":  pdf.Name("Pages"),
				"Kids":  kids,
				"Count": pdf.Integer(count),
			}
			out.Put(ref, dict)
			next = append(next, node{ref: ref, dict: dict, count: count})
		}
		if len(next) == 1 {
			return next[0].ref
		}
		level = next
	}
}
