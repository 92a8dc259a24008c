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
	"fmt"

	"seehuhn.de/go/handouts/pdf"
)

// Merge concatenates the pages of several documents into a new document.
//
// The document catalogs of the inputs, and with them outlines, forms and
// similar document-level structures, are not carried over.
func Merge(docs ...*Document) (*Document, error) {
	res := New()
	out := res.File
	out.Version = pdf.V1_0
	for i, d := range docs {
		out.Version = max(out.Version, d.File.Version)

		c := pdf.NewCopier(out, d.File)
		refs, dicts, err := copyPages(out, c, d.Pages)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i+1, err)
		}
		for j, p := range d.Pages {
			resources, err := pdf.GetDict(out, dicts[j]["Resources"])
			if err != nil {
				return nil, fmt.Errorf("document %d, page %d: %w", i+1, j+1, err)
			}
			res.Pages = append(res.Pages, &Page{
				Ref:       refs[j],
				Dict:      dicts[j],
				Box:       p.Box,
				Rotate:    p.Rotate,
				Resources: resources,
			})
		}
	}
	if len(res.Pages) == 0 {
		return nil, ErrNoPages
	}
	return res, nil
}

// MergeFiles reads the named files and concatenates their pages.
func MergeFiles(fileNames ...string) (*Document, error) {
	docs := make([]*Document, 0, len(fileNames))
	for _, name := range fileNames {
		d, err := Open(name)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return Merge(docs...)
}
