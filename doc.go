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

// Package handouts adds headers and footers to the pages of a PDF
// document.
//
// For every page a Form XObject is built which shows the title (first page
// only) and three footer columns.  The existing content of the page is
// enclosed in a q/Q pair, so that transformations it leaves behind do not
// affect the overlay, and the Form XObject is drawn on top.
//
// Text may contain the placeholders [page], [pages] and [date], line breaks
// ("|", "[br]", "<br>" and newlines) and styled spans of the form
// "[font bold 12pt #c00]...[/font]".  All fonts are embedded.
//
// A typical use is
//
//	doc, err := document.Open("in.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	right := "Page [page] of [pages]"
//	res, err := handouts.Apply(doc, &handouts.Config{FooterRight: &right}, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, p := range res.Skipped() {
//	    log.Printf("page %d was not changed", p)
//	}
//	err = doc.Save("out.pdf")
package handouts
