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
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"seehuhn.de/go/handouts/document"
	"seehuhn.de/go/handouts/font"
	"seehuhn.de/go/handouts/layout"
	"seehuhn.de/go/handouts/pdf"
	"seehuhn.de/go/handouts/splice"
	"seehuhn.de/go/handouts/stamp"
)

// PageResult describes the outcome for a single page.
type PageResult struct {
	Page    int  // 1-based
	Applied bool // whether the overlay was added

	// Name is the resource name of the overlay on the page.
	Name pdf.Name

	// Err is set for pages which were skipped.
	Err error
}

// Result describes the outcome of [Apply].
type Result struct {
	Pages []PageResult
}

// Skipped returns the numbers of the pages which were left unchanged.
func (r *Result) Skipped() []int {
	var res []int
	for _, p := range r.Pages {
		if !p.Applied {
			res = append(res, p.Page)
		}
	}
	return res
}

// Err returns the errors for all skipped pages, or nil if the overlay was
// added to every page.
func (r *Result) Err() error {
	var errs []error
	for _, p := range r.Pages {
		if p.Err != nil {
			errs = append(errs, p.Err)
		}
	}
	return errors.Join(errs...)
}

// prepared holds the per-page data computed before the document is
// modified.
type prepared struct {
	stamp *stamp.Stamp
	err   error // reason why the page cannot be wrapped
}

// Apply adds the header and footer overlay to every page of doc.
//
// The configuration is validated and the fonts are prepared before any
// page is modified.  Markup errors are reported as [*LayoutMarkupError]
// and font problems as [*FontUnavailable]; in both cases doc is
// unchanged.
//
// Pages whose content cannot be wrapped safely are skipped.  This is not
// an error for Apply; the skipped pages are listed in the result, together
// with a [*PageStructureError] for each.
func Apply(doc *document.Document, cfg *Config, opt *Options) (*Result, error) {
	if opt == nil {
		opt = &Options{}
	}
	logger := opt.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg == nil {
		cfg = &Config{}
	}

	numPages := len(doc.Pages)
	if numPages == 0 {
		return nil, document.ErrNoPages
	}
	content := cfg.content()

	// Step 1: check the markup of all sections.
	first := &layout.PlaceholderContext{PageNumber: 1, TotalPages: numPages, Date: cfg.Date}
	err := content.Validate(first)
	if err != nil {
		return nil, wrapMarkupError(err)
	}

	// Step 2: build the fonts, once for the whole document.
	fonts, err := buildFonts(content, first, opt, logger)
	if err != nil {
		return nil, err
	}

	// Step 3: lay out the pages and build the stamps.  This only reads
	// the document.
	pages := make([]prepared, numPages)
	workers := opt.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g := &errgroup.Group{}
	g.SetLimit(workers)
	for i, p := range doc.Pages {
		g.Go(func() error {
			ctx := &layout.PlaceholderContext{PageNumber: i + 1, TotalPages: numPages, Date: cfg.Date}
			geom := stamp.Geometry{Box: p.Box, Rotate: p.Rotate}
			width, height := geom.VisualSize()
			blocks, err := layout.Layout(content, ctx, width, height, fonts)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, wrapMarkupError(err))
			}
			st, err := stamp.Build(blocks, geom, fonts)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			pages[i] = prepared{
				stamp: st,
				err:   splice.Check(doc.File, p.Dict),
			}
			return nil
		})
	}
	err = g.Wait()
	if err != nil {
		return nil, err
	}

	// Step 4: add the objects to the file and modify the pages, in page
	// order.
	res := &Result{Pages: make([]PageResult, numPages)}
	fontRefs := make(map[*font.Face]pdf.Reference)
	missing := make(map[rune]bool)
	for i, p := range doc.Pages {
		pr := &res.Pages[i]
		pr.Page = i + 1
		prep := pages[i]
		if prep.err != nil {
			pr.Err = &PageStructureError{Page: i + 1, Err: prep.err}
			logger.Warn("page skipped", "page", i+1, "error", prep.err)
			continue
		}

		st := prep.stamp
		for _, name := range slices.Sorted(maps.Keys(st.Fonts)) {
			face := st.Fonts[name]
			if _, done := fontRefs[face]; done {
				continue
			}
			ref, err := face.Embed(doc.File)
			if err != nil {
				return nil, err
			}
			fontRefs[face] = ref
			logger.Debug("font embedded", "font", face.BaseFont(), "ref", ref)
		}
		for _, r := range st.Missing {
			missing[r] = true
		}

		form, err := st.Object(fontRefs)
		if err != nil {
			return nil, err
		}
		formRef := doc.File.Alloc()
		doc.File.Put(formRef, form)

		name, err := splice.Attach(doc.File, p.Dict, p.Resources, formRef, opt.XObjectName)
		if err != nil {
			doc.File.Delete(formRef)
			pr.Err = &PageStructureError{Page: i + 1, Err: err}
			logger.Warn("page skipped", "page", i+1, "error", err)
			continue
		}
		resources, err := pdf.GetDict(doc.File, p.Dict["Resources"])
		if err != nil {
			return nil, err
		}
		p.Resources = resources

		pr.Applied = true
		pr.Name = name
		logger.Debug("overlay added", "page", i+1, "name", name, "empty", st.IsEmpty())
	}

	if len(missing) > 0 {
		runes := slices.Sorted(maps.Keys(missing))
		logger.Warn("characters not available in the font were replaced by '?'",
			"characters", string(runes))
	}

	return res, nil
}

// buildFonts prepares the fonts for all styles which the configuration
// can request.
func buildFonts(content *layout.Content, ctx *layout.PlaceholderContext, opt *Options, logger *slog.Logger) (*font.Resource, error) {
	usage, err := content.Usage(ctx)
	if err != nil {
		return nil, wrapMarkupError(err)
	}
	reqs := make([]font.Request, 0, len(usage.Styles))
	for _, st := range usage.Styles {
		reqs = append(reqs, font.Request{
			Family: st.Family,
			Style:  font.MakeStyle(st.Bold, st.Italic),
		})
	}

	fontOpt := &font.Options{
		Full:   opt.FullFonts,
		Logger: logger,
	}
	fonts, err := font.Build(opt.Fonts, reqs, usage.Text, fontOpt)
	if err != nil {
		res := &FontUnavailable{Err: err}
		if errors.Is(err, font.ErrUnknownFamily) || errors.Is(err, font.ErrNoFace) {
			res.Family = font.DefaultFamily
		}
		return nil, res
	}
	return fonts, nil
}
