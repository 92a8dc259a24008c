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
	"bytes"
	"time"

	"golang.org/x/text/language"
	"seehuhn.de/go/xmp"

	"seehuhn.de/go/handouts/pdf"
)

// Info summarizes the metadata of a document.
type Info struct {
	Version pdf.Version

	// NumPages is the number of pages found in the page tree.
	NumPages int

	// Count is the /Count entry of the root of the page tree, or -1 if
	// the entry is missing.  For valid files this equals NumPages.
	Count int

	Title    string
	Author   string
	Subject  string
	Creator  string
	Producer string

	// HasXMP indicates whether the document has an XMP metadata stream.
	HasXMP bool
}

// Info returns metadata about the document.
func (d *Document) Info() (*Info, error) {
	f := d.File
	res := &Info{
		Version:  f.Version,
		NumPages: len(d.Pages),
		Count:    -1,
	}

	catalog, err := f.Catalog()
	if err != nil {
		return nil, err
	}
	root, err := pdf.GetDict(f, catalog["Pages"])
	if err != nil {
		return nil, err
	}
	if _, ok := root["Count"]; ok {
		count, err := pdf.GetInteger(f, root["Count"])
		if err != nil {
			return nil, err
		}
		res.Count = int(count)
	}
	res.HasXMP = catalog["Metadata"] != nil

	info, err := pdf.GetDict(f, f.Trailer["Info"])
	if err != nil {
		return nil, err
	}
	fields := []struct {
		key pdf.Name
		val *string
	}{
		{"Title", &res.Title},
		{"Author", &res.Author},
		{"Subject", &res.Subject},
		{"Creator", &res.Creator},
		{"Producer", &res.Producer},
	}
	for _, field := range fields {
		s, err := pdf.GetString(f, info[field.key])
		if err != nil {
			continue
		}
		*field.val = s.AsTextString()
	}

	return res, nil
}

// SetTitle sets the document title, both in the document information
// dictionary and in the XMP metadata.
func (d *Document) SetTitle(title string) error {
	f := d.File

	info, err := pdf.GetDict(f, f.Trailer["Info"])
	if err != nil {
		return err
	}
	info = info.Clone()
	if info == nil {
		info = pdf.Dict{}
	}
	info["Title"] = pdf.TextString(title)
	info["ModDate"] = pdf.Date(time.Now())
	infoRef, ok := f.Trailer["Info"].(pdf.Reference)
	if !ok {
		infoRef = f.Alloc()
		f.Trailer["Info"] = infoRef
	}
	f.Put(infoRef, info)

	return d.setXMPTitle(title)
}

func (d *Document) setXMPTitle(title string) error {
	f := d.File
	catalog, err := f.Catalog()
	if err != nil {
		return err
	}

	packet := d.readMetadata(catalog)
	if packet == nil {
		packet = xmp.NewPacket()
	}

	dc := &xmp.DublinCore{}
	packet.Get(dc)
	var t xmp.Localized
	t.Set(language.Und, title)
	dc.Title = t
	err = packet.Set(dc)
	if err != nil {
		return err
	}

	buf := &bytes.Buffer{}
	err = packet.Write(buf, nil)
	if err != nil {
		return err
	}
	stm := pdf.Compress(pdf.Dict{
		"Type":    pdf.Name("Metadata"),
		"Subtype": pdf.Name("XML"),
	}, buf.Bytes())

	ref, ok := catalog["Metadata"].(pdf.Reference)
	if !ok {
		ref = f.Alloc()
		catalog["Metadata"] = ref
	}
	f.Put(ref, stm)
	if f.Version < pdf.V1_4 {
		f.Version = pdf.V1_4
	}
	return nil
}

// readMetadata returns the XMP packet of the document.  If the document
// has no metadata stream, or if the stream cannot be parsed, nil is
// returned.
func (d *Document) readMetadata(catalog pdf.Dict) *xmp.Packet {
	stm, err := pdf.GetStream(d.File, catalog["Metadata"])
	if err != nil || stm == nil {
		return nil
	}
	data, err := pdf.Decode(d.File, stm)
	if err != nil {
		return nil
	}
	packet, err := xmp.Read(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	return packet
}
