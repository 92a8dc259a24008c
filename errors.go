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

	"seehuhn.de/go/handouts/layout"
)

// LayoutMarkupError indicates malformed markup in the configured text.
// No page is modified when this error is returned.
type LayoutMarkupError struct {
	Err *layout.MarkupError
}

func (err *LayoutMarkupError) Error() string {
	return "handouts: invalid markup: " + err.Err.Error()
}

func (err *LayoutMarkupError) Unwrap() error {
	return err.Err
}

func wrapMarkupError(err error) error {
	var markupErr *layout.MarkupError
	if errors.As(err, &markupErr) {
		return &LayoutMarkupError{Err: markupErr}
	}
	return err
}

// FontUnavailable indicates that no usable font could be found.
// No page is modified when this error is returned.
type FontUnavailable struct {
	Family string // empty if the failing family is not known
	Err    error
}

func (err *FontUnavailable) Error() string {
	if err.Family == "" {
		return "handouts: no usable font: " + err.Err.Error()
	}
	return fmt.Sprintf("handouts: font family %q unavailable: %v", err.Family, err.Err)
}

func (err *FontUnavailable) Unwrap() error {
	return err.Err
}

// PageStructureError indicates that the content of a page could not be
// wrapped safely.  Such pages are left unchanged.
type PageStructureError struct {
	Page int // 1-based
	Err  error
}

func (err *PageStructureError) Error() string {
	return fmt.Sprintf("handouts: page %d skipped: %v", err.Page, err.Err)
}

func (err *PageStructureError) Unwrap() error {
	return err.Err
}
