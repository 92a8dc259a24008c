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
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"seehuhn.de/go/handouts"
	"seehuhn.de/go/handouts/date"
	"seehuhn.de/go/handouts/font"
	"seehuhn.de/go/handouts/layout"
)

// optionalString is a string flag which remembers whether it was given.
type optionalString struct {
	val *string
}

func (s *optionalString) String() string {
	if s.val == nil {
		return ""
	}
	return *s.val
}

func (s *optionalString) Set(v string) error {
	s.val = &v
	return nil
}

// length is a flag holding a distance with an optional unit.
type length float64

func (l *length) String() string {
	return strconv.FormatFloat(float64(*l), 'g', -1, 64) + "pt"
}

func (l *length) Set(v string) error {
	x, err := layout.ParseLength(v)
	if err != nil {
		return err
	}
	*l = length(x)
	return nil
}

// stringList is a flag which can be given several times.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// commonFlags are the options shared by the commands which write a file.
type commonFlags struct {
	output  string
	open    bool
	verbose bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.output, "o", "", "output PDF file")
	fs.StringVar(&c.output, "output", "", "output PDF file")
	fs.BoolVar(&c.open, "open", false, "open the output file when done")
	fs.BoolVar(&c.verbose, "v", false, "show debugging output")
}

func (c *commonFlags) check() error {
	if c.output == "" {
		return errors.New("missing output file (-o)")
	}
	return nil
}

// overlayFlags are the options describing the headers and footers.
type overlayFlags struct {
	title        optionalString
	footerLeft   optionalString
	footerCenter optionalString
	footerRight  optionalString

	date       string
	font       string
	headerFont string
	footerFont string

	top, bottom, side length

	fontFiles stringList
	fullFonts bool
	workers   int
}

func (o *overlayFlags) register(fs *flag.FlagSet) {
	fs.Var(&o.title, "title", "title text, shown at the top of the first page")
	fs.Var(&o.footerLeft, "footer-left", "left footer text (use | or [br] for line breaks)")
	fs.Var(&o.footerCenter, "footer-center", "center footer text")
	fs.Var(&o.footerRight, "footer-right", "right footer text")
	fs.StringVar(&o.date, "date", "", "value of [date]: today, `YYYY-MM-DD`, MM/DD/YYYY or a weekday like tuesday+1")
	fs.StringVar(&o.font, "font", "", "font for header and footer: \"[bold] [italic] [size[pt]] [family] [#rrggbb]\"")
	fs.StringVar(&o.headerFont, "header-font", "", "font for the title (overrides -font)")
	fs.StringVar(&o.footerFont, "footer-font", "", "font for the footer (overrides -font)")
	fs.Var(&o.top, "top", "distance of the title baseline from the top edge (default 50pt)")
	fs.Var(&o.bottom, "bottom", "distance of the last footer baseline from the bottom edge (default 30pt)")
	fs.Var(&o.side, "side", "distance of the outer footer columns from the page sides (default 50pt)")
	fs.Var(&o.fontFiles, "font-file", "make the TrueType font in `file` available (can be repeated)")
	fs.BoolVar(&o.fullFonts, "full-fonts", false, "embed complete fonts instead of subsets")
	fs.IntVar(&o.workers, "workers", 0, "number of pages prepared in parallel (0 = number of CPUs)")
}

// config converts the flags into the overlay configuration.
func (o *overlayFlags) config(now time.Time) (*handouts.Config, error) {
	day, err := date.Expand(o.date, now)
	if err != nil {
		return nil, err
	}

	parse := func(name, spec string) (layout.StyleSpec, error) {
		if spec == "" {
			return layout.StyleSpec{}, nil
		}
		style, err := layout.ParseStyle(spec)
		if err != nil {
			return style, fmt.Errorf("-%s: %w", name, err)
		}
		return style, nil
	}
	base, err := parse("font", o.font)
	if err != nil {
		return nil, err
	}
	header, err := parse("header-font", o.headerFont)
	if err != nil {
		return nil, err
	}
	footer, err := parse("footer-font", o.footerFont)
	if err != nil {
		return nil, err
	}

	return &handouts.Config{
		Title:        o.title.val,
		FooterLeft:   o.footerLeft.val,
		FooterCenter: o.footerCenter.val,
		FooterRight:  o.footerRight.val,
		Date:         day,
		Header:       header.Inherit(base),
		Footer:       footer.Inherit(base),
		Margins: layout.Margins{
			Top:    float64(o.top),
			Bottom: float64(o.bottom),
			Side:   float64(o.side),
		},
	}, nil
}

// options returns the options for [handouts.Apply].
func (o *overlayFlags) options(logger *slog.Logger) (*handouts.Options, error) {
	reg := font.Bundled()
	for _, name := range o.fontFiles {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, err
		}
		family, err := reg.RegisterTrueType(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		logger.Debug("font registered", "file", name, "family", family)
	}
	return &handouts.Options{
		Fonts:     reg,
		FullFonts: o.fullFonts,
		Workers:   o.workers,
		Logger:    logger,
	}, nil
}

// parseArgs parses the command line arguments, allowing flags to appear
// after positional arguments.  The positional arguments are returned.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		err := fs.Parse(args)
		if err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		if len(args) > len(rest) && args[len(args)-len(rest)-1] == "--" {
			return append(positional, rest...), nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// expandGlobs replaces glob patterns by the names of the matching files.
// Names without glob characters must refer to existing files.
func expandGlobs(patterns []string) ([]string, error) {
	var res []string
	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[") {
			if _, err := os.Stat(pattern); err != nil {
				return nil, fmt.Errorf("input file not found: %s", pattern)
			}
			res = append(res, pattern)
			continue
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
		slices.Sort(matches)
		res = append(res, matches...)
	}
	return res, nil
}

// newLogger returns a logger which writes to stderr.  On a terminal, time
// stamps are omitted.
func newLogger(verbose bool) *slog.Logger {
	opt := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opt.Level = slog.LevelDebug
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		opt.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opt))
}
