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

package date

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want *Expression
	}{
		{"", &Expression{Kind: None}},
		{"   ", &Expression{Kind: None}},
		{"today", &Expression{Kind: Today}},
		{"TODAY", &Expression{Kind: Today}},
		{"2024-11-20", &Expression{Kind: Explicit, Date: time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)}},
		{"11/20/2024", &Expression{Kind: Explicit, Date: time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)}},
		{"3/5/2025", &Expression{Kind: Explicit, Date: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)}},
		{"Tuesday", &Expression{Kind: NextWeekday, Weekday: time.Tuesday}},
		{"fri", &Expression{Kind: NextWeekday, Weekday: time.Friday}},
		{"Tuesday+3", &Expression{Kind: NextWeekday, Weekday: time.Tuesday, Weeks: 3}},
		{"Monday + 1", &Expression{Kind: NextWeekday, Weekday: time.Monday, Weeks: 1}},
	}
	for _, test := range cases {
		got, err := Parse(test.in)
		if err != nil {
			t.Errorf("%q: %v", test.in, err)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("%q: wrong result (-want +got):\n%s", test.in, diff)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"tomorrow", "2024-13-01", "Tuesday+x", "Tuesday+-1", "+3"} {
		_, err := Parse(in)
		if !errors.Is(err, ErrInvalidExpression) {
			t.Errorf("%q: expected ErrInvalidExpression, got %v", in, err)
		}
	}
}

func TestExpand(t *testing.T) {
	// a Wednesday
	now := time.Date(2024, 11, 20, 15, 30, 0, 0, time.UTC)
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"today", "November 20, 2024"},
		{"2025-01-02", "January 2, 2025"},
		{"wednesday", "November 20, 2024"},
		{"Thursday", "November 21, 2024"},
		{"Tuesday", "November 26, 2024"},
		{"Tuesday+3", "December 17, 2024"},
		{"Wed+1", "November 27, 2024"},
	}
	for _, test := range cases {
		got, err := Expand(test.in, now)
		if err != nil {
			t.Errorf("%q: %v", test.in, err)
			continue
		}
		if got != test.want {
			t.Errorf("%q: got %q, want %q", test.in, got, test.want)
		}
	}
}
