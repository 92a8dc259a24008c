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

// Pdf-handouts merges PDF files and adds headers and footers to the pages.
//
// Usage:
//
//	pdf-handouts merge -o out.pdf [--open] input.pdf...
//	pdf-handouts headers -o out.pdf [overlay options] input.pdf
//	pdf-handouts build -o out.pdf [overlay options] input.pdf...
//	pdf-handouts info input.pdf...
//
// Input names may be glob patterns like "[0-9]*.pdf"; the matches of each
// pattern are used in alphabetical order.  Run a command with -h to see
// its options.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
)

const usage = `usage: pdf-handouts <command> [options] [arguments]

commands:
  merge     merge several PDF files into one
  headers   add a title and footers to the pages of a PDF file
  build     merge PDF files and add a title and footers in one step
  info      show information about PDF files

examples:
  pdf-handouts build -o handout.pdf --footer-center "Page [page] of [pages]" "[0-9]*.pdf"
  pdf-handouts headers -o out.pdf --title "My Document" --footer-right "[date]" --date today in.pdf
`

func main() {
	log.SetFlags(0)
	log.SetPrefix("pdf-handouts: ")

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "merge":
		err = runMerge(args)
	case "headers":
		err = runHeaders(args)
	case "build":
		err = runBuild(args)
	case "info":
		err = runInfo(args, os.Stdout)
	case "help", "-h", "-help", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	} else if err != nil {
		log.Fatal(err)
	}
}
