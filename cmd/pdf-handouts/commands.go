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

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"time"

	"seehuhn.de/go/handouts"
	"seehuhn.de/go/handouts/document"
)

func runMerge(args []string) error {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	common := &commonFlags{}
	common.register(fs)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: pdf-handouts merge -o out.pdf [options] input.pdf...")
		fs.PrintDefaults()
	}
	inputs, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := common.check(); err != nil {
		return err
	}
	logger := newLogger(common.verbose)

	doc, err := mergeInputs(inputs, logger)
	if err != nil {
		return err
	}
	return finish(doc, common, logger)
}

func runHeaders(args []string) error {
	fs := flag.NewFlagSet("headers", flag.ContinueOnError)
	common := &commonFlags{}
	common.register(fs)
	overlay := &overlayFlags{}
	overlay.register(fs)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: pdf-handouts headers -o out.pdf [options] input.pdf")
		fs.PrintDefaults()
	}
	inputs, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(inputs) != 1 {
		fs.Usage()
		return errors.New("exactly one input file is required")
	}
	if err := common.check(); err != nil {
		return err
	}
	logger := newLogger(common.verbose)

	doc, err := document.Open(inputs[0])
	if err != nil {
		return err
	}
	err = addOverlay(doc, overlay, logger)
	if err != nil {
		return err
	}
	return finish(doc, common, logger)
}

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	common := &commonFlags{}
	common.register(fs)
	overlay := &overlayFlags{}
	overlay.register(fs)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: pdf-handouts build -o out.pdf [options] input.pdf...")
		fs.PrintDefaults()
	}
	inputs, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := common.check(); err != nil {
		return err
	}
	logger := newLogger(common.verbose)

	doc, err := mergeInputs(inputs, logger)
	if err != nil {
		return err
	}
	err = addOverlay(doc, overlay, logger)
	if err != nil {
		return err
	}
	return finish(doc, common, logger)
}

func runInfo(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: pdf-handouts info input.pdf...")
		fs.PrintDefaults()
	}
	patterns, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	inputs, err := expandGlobs(patterns)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		fs.Usage()
		return errors.New("no input files")
	}

	for i, name := range inputs {
		doc, err := document.Open(name)
		if err != nil {
			return err
		}
		info, err := doc.Info()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "File:     %s\n", name)
		fmt.Fprintf(out, "Pages:    %d\n", info.NumPages)
		if info.Count != info.NumPages {
			fmt.Fprintf(out, "          (page tree claims %d pages)\n", info.Count)
		}
		fmt.Fprintf(out, "Version:  %s\n", info.Version)
		for _, field := range []struct{ label, val string }{
			{"Title", info.Title},
			{"Author", info.Author},
			{"Subject", info.Subject},
			{"Creator", info.Creator},
			{"Producer", info.Producer},
		} {
			if field.val != "" {
				fmt.Fprintf(out, "%-9s %s\n", field.label+":", field.val)
			}
		}
		xmp := "no"
		if info.HasXMP {
			xmp = "yes"
		}
		fmt.Fprintf(out, "XMP:      %s\n", xmp)
	}
	return nil
}

// mergeInputs expands the glob patterns and concatenates the files.
func mergeInputs(patterns []string, logger *slog.Logger) (*document.Document, error) {
	inputs, err := expandGlobs(patterns)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, errors.New("no input files")
	}
	logger.Info("merging", "files", len(inputs))
	for _, name := range inputs {
		logger.Debug("input", "file", name)
	}
	return document.MergeFiles(inputs...)
}

// addOverlay adds the headers and footers described by the flags.
func addOverlay(doc *document.Document, overlay *overlayFlags, logger *slog.Logger) error {
	cfg, err := overlay.config(time.Now())
	if err != nil {
		return err
	}
	opt, err := overlay.options(logger)
	if err != nil {
		return err
	}

	logger.Info("adding headers and footers", "pages", doc.NumPages())
	res, err := handouts.Apply(doc, cfg, opt)
	if err != nil {
		return err
	}
	for _, p := range res.Pages {
		if p.Err != nil {
			logger.Warn("page left unchanged", "page", p.Page, "reason", p.Err)
		}
	}

	if cfg.Title != nil {
		title, err := cfg.PlainTitle(doc.NumPages())
		if err != nil {
			return err
		}
		if title != "" {
			err = doc.SetTitle(title)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// finish writes the output file and opens it if requested.
func finish(doc *document.Document, common *commonFlags, logger *slog.Logger) error {
	err := doc.Save(common.output)
	if err != nil {
		return err
	}
	logger.Info("written", "file", common.output, "pages", doc.NumPages())

	if common.open {
		return openFile(common.output)
	}
	return nil
}
