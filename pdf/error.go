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

package pdf

import (
	"errors"
	"strconv"
)

// MalformedFileError indicates that a PDF file could not be parsed.
type MalformedFileError struct {
	Pos int64
	Err error
}

func (err *MalformedFileError) Error() string {
	middle := ""
	if err.Err != nil {
		middle = ": " + err.Err.Error()
	}
	tail := ""
	if err.Pos > 0 {
		tail = " (at byte " + strconv.FormatInt(err.Pos, 10) + ")"
	}
	return "not a valid PDF file" + middle + tail
}

func (err *MalformedFileError) Unwrap() error {
	return err.Err
}

var (
	// ErrEncrypted is returned when reading an encrypted PDF file.
	ErrEncrypted = errors.New("encrypted PDF files are not supported")

	// ErrNoRoot is returned when a file has no document catalog.
	ErrNoRoot = errors.New("missing /Root in trailer")

	errNotFound  = errors.New("object not found")
	errLoop      = errors.New("too many levels of indirection")
	errNoXRef    = errors.New("startxref not found")
	errBadStream = errors.New("malformed stream")
)

// UnsupportedFilterError is returned when stream data uses a filter
// which cannot be decoded.
type UnsupportedFilterError struct {
	Filter Name
}

func (err *UnsupportedFilterError) Error() string {
	return "unsupported filter " + string(err.Filter)
}
