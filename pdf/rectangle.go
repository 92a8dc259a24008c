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
	"math"

	"seehuhn.de/go/geom/rect"
)

// GetRectangle resolves any indirect reference and converts the resulting
// array of four numbers into a normalized rectangle.  Null objects are
// returned as nil.
func GetRectangle(r Getter, obj Object) (*rect.Rect, error) {
	a, err := GetArray(r, obj)
	if err != nil || a == nil {
		return nil, err
	}
	if len(a) != 4 {
		return nil, &MalformedFileError{Err: errors.New("rectangle needs four numbers")}
	}
	var v [4]float64
	for i, x := range a {
		v[i], err = GetNumber(r, x)
		if err != nil {
			return nil, err
		}
	}
	return &rect.Rect{
		LLx: math.Min(v[0], v[2]),
		LLy: math.Min(v[1], v[3]),
		URx: math.Max(v[0], v[2]),
		URy: math.Max(v[1], v[3]),
	}, nil
}

// RectangleObject converts a rectangle into its PDF array representation.
// Integer coordinates are written as integers.
func RectangleObject(r rect.Rect) Array {
	return Array{Number(r.LLx), Number(r.LLy), Number(r.URx), Number(r.URy)}
}

// Number returns an Integer if x is integral, and a Real otherwise.
func Number(x float64) Object {
	if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
		return Integer(x)
	}
	return Real(math.Round(x*1e4) / 1e4)
}
