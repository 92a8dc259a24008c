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

package handouts

import (
	"log/slog"

	"seehuhn.de/go/handouts/font"
	"seehuhn.de/go/handouts/layout"
	"seehuhn.de/go/handouts/pdf"
)

// Config describes the text shown on the pages.
//
// Nil fields and empty strings produce no output.
type Config struct {
	// Title is shown centered at the top of the first page.
	Title *string

	FooterLeft   *string
	FooterCenter *string
	FooterRight  *string

	// Date is the value substituted for the [date] placeholder.
	Date string

	// Header is the style of the title.  The default is the "Go" font
	// family in black, at 24pt.
	Header layout.StyleSpec

	// Footer is the style of the footer sections.  The default is the "Go"
	// font family in black, at 14pt.
	Footer layout.StyleSpec

	// Margins gives the distances of the text from the page edges.
	// Zero fields are replaced by the values from [layout.DefaultMargins].
	Margins layout.Margins
}

func (cfg *Config) content() *layout.Content {
	return &layout.Content{
		Title:        cfg.Title,
		FooterLeft:   cfg.FooterLeft,
		FooterCenter: cfg.FooterCenter,
		FooterRight:  cfg.FooterRight,
		Header:       cfg.Header,
		Footer:       cfg.Footer,
		Margins:      cfg.Margins,
	}
}

// PlainTitle returns the title without markup, for use in the document
// metadata.  Placeholders are substituted as for the first page of a
// document with numPages pages.
func (cfg *Config) PlainTitle(numPages int) (string, error) {
	if cfg.Title == nil {
		return "", nil
	}
	ctx := &layout.PlaceholderContext{PageNumber: 1, TotalPages: numPages, Date: cfg.Date}
	title, err := layout.PlainText(layout.Title, *cfg.Title, ctx)
	if err != nil {
		return "", wrapMarkupError(err)
	}
	return title, nil
}

// Options controls how the overlay is constructed.
// The zero value and nil are valid and select the defaults.
type Options struct {
	// Fonts lists the available font families.  If this is nil, the
	// fonts bundled with the Go distribution are used.
	Fonts *font.Registry

	// FullFonts embeds complete font files instead of subsets.
	FullFonts bool

	// Workers limits the number of pages prepared concurrently.
	// Zero means GOMAXPROCS, one processes the pages sequentially.
	Workers int

	// XObjectName is the preferred resource name for the overlay.
	// The default is "HeaderFooter".  A numeric suffix is added if the
	// name is already in use on a page.
	XObjectName pdf.Name

	// Logger receives progress and warning messages.  If this is nil,
	// messages are discarded.
	Logger *slog.Logger
}
