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

// Package document represents a PDF file as a flat list of pages.
//
// When a file is read, inheritable page attributes are copied from the
// page tree into the individual page dictionaries.  The pages can then be
// modified, reordered or combined with the pages of other documents.  A
// new, balanced page tree is built when the document is written.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/handouts/pdf"
)

// ErrNoPages is returned for documents which have no pages.
var ErrNoPages = errors.New("document: no pages")

// Document is a PDF file together with its list of pages.
type Document struct {
	File  *pdf.File
	Pages []*Page
}

// Page is a single page of a document.
type Page struct {
	// Ref is the reference of the page dictionary in the file.
	Ref pdf.Reference

	// Dict is the page dictionary.  All inheritable attributes are
	// present in the dictionary itself.
	Dict pdf.Dict

	// Box is the visible area of the page.  This is the crop box, if
	// present, and the media box otherwise.
	Box rect.Rect

	// Rotate is the number of degrees by which the page is rotated
	// clockwise when displayed.  This is one of 0, 90, 180 or 270.
	Rotate int

	// Resources is the resource dictionary of the page.  The dictionary
	// may be shared with other pages and must not be modified.
	Resources pdf.Dict
}

// New creates an empty document.
func New() *Document {
	f := pdf.NewFile(pdf.V1_7)
	catalog := f.Alloc()
	f.Put(catalog, pdf.Dict{"Type": pdf.Name("Catalog")})
	f.Trailer["Root"] = catalog
	return &Document{File: f}
}

// AddPage appends a new page with the given media box and content stream.
// The page starts with an empty resource dictionary, which the caller
// may fill through the Resources field of the returned page.
func (d *Document) AddPage(box rect.Rect, content []byte) *Page {
	f := d.File
	contentRef := f.Alloc()
	f.Put(contentRef, pdf.Compress(nil, content))

	resources := pdf.Dict{}
	dict := pdf.Dict{
		"Type":      pdf.Name("Page"),
		"MediaBox":  pdf.RectangleObject(box),
		"Resources": resources,
		"Contents":  contentRef,
	}
	ref := f.Alloc()
	f.Put(ref, dict)

	p := &Page{
		Ref:       ref,
		Dict:      dict,
		Box:       box,
		Resources: resources,
	}
	d.Pages = append(d.Pages, p)
	return p
}

// NumPages returns the number of pages in the document.
func (d *Document) NumPages() int {
	return len(d.Pages)
}

// Open reads a document from a file.
func Open(fileName string) (*Document, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	f, err := pdf.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	return FromFile(f)
}

// Read reads a document from r.
func Read(r io.Reader) (*Document, error) {
	f, err := pdf.Read(r)
	if err != nil {
		return nil, err
	}
	return FromFile(f)
}

// FromFile extracts the list of pages from a PDF file.
// The page dictionaries in f are updated to include all inherited
// attributes.
func FromFile(f *pdf.File) (*Document, error) {
	catalog, err := f.Catalog()
	if err != nil {
		return nil, err
	}
	pages, err := flatten(f, catalog["Pages"])
	if err != nil {
		return nil, err
	}
	return &Document{File: f, Pages: pages}, nil
}

// Write writes the document to w.
//
// Only objects reachable from the document catalog and the document
// information dictionary are included in the output.
func (d *Document) Write(w io.Writer) error {
	out, err := d.rebuild()
	if err != nil {
		return err
	}
	return pdf.Write(w, out)
}

// Save writes the document to the named file.
func (d *Document) Save(fileName string) error {
	buf := &bytes.Buffer{}
	err := d.Write(buf)
	if err != nil {
		return err
	}
	return os.WriteFile(fileName, buf.Bytes(), 0o644)
}

// rebuild copies the document into a new file, with a freshly built page
// tree.
func (d *Document) rebuild() (*pdf.File, error) {
	if len(d.Pages) == 0 {
		return nil, ErrNoPages
	}
	catalog, err := d.File.Catalog()
	if err != nil {
		return nil, err
	}

	out := pdf.NewFile(d.File.Version)
	c := pdf.NewCopier(out, d.File)

	refs, dicts, err := copyPages(out, c, d.Pages)
	if err != nil {
		return nil, err
	}
	root := buildTree(out, refs, dicts)

	cat := catalog.Clone()
	delete(cat, "Pages")
	cat, err = c.CopyDict(cat)
	if err != nil {
		return nil, err
	}
	cat["Type"] = pdf.Name("Catalog")
	cat["Pages"] = root
	catRef := out.Alloc()
	out.Put(catRef, cat)
	out.Trailer["Root"] = catRef

	for _, key := range []pdf.Name{"Info", "ID"} {
		obj := d.File.Trailer[key]
		if obj == nil {
			continue
		}
		obj, err = c.Copy(obj)
		if err != nil {
			return nil, err
		}
		out.Trailer[key] = obj
	}

	return out, nil
}

// copyPages copies the page dictionaries into out.  References to the
// pages from other objects are translated to the new page objects.
func copyPages(out *pdf.File, c *pdf.Copier, pages []*Page) ([]pdf.Reference, []pdf.Dict, error) {
	refs := make([]pdf.Reference, len(pages))
	for i, p := range pages {
		refs[i] = out.Alloc()
		c.Redirect(p.Ref, refs[i])
	}

	dicts := make([]pdf.Dict, len(pages))
	for i, p := range pages {
		dict := p.Dict.Clone()
		delete(dict, "Parent")
		dict, err := c.CopyDict(dict)
		if err != nil {
			return nil, nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		out.Put(refs[i], dict)
		dicts[i] = dict
	}
	return refs, dicts, nil
}
