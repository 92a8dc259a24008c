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
	"bytes"
	"compress/lzw"
	"compress/zlib"
	"encoding/ascii85"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// Decode returns the decoded contents of a stream, applying all filters
// listed in the stream dictionary.
func Decode(r Getter, stm *Stream) ([]byte, error) {
	filters, params, err := streamFilters(r, stm.Dict)
	if err != nil {
		return nil, err
	}

	data := stm.Data
	for i, name := range filters {
		data, err = applyFilter(data, name, params[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return data, nil
}

func streamFilters(r Getter, dict Dict) ([]Name, []Dict, error) {
	filterObj, err := Resolve(r, dict["Filter"])
	if err != nil {
		return nil, nil, err
	}
	parmObj, err := Resolve(r, dict["DecodeParms"])
	if err != nil {
		return nil, nil, err
	}

	var filters []Name
	var params []Dict
	switch f := filterObj.(type) {
	case nil:
		return nil, nil, nil
	case Name:
		filters = append(filters, f)
		p, _ := GetDict(r, parmObj)
		params = append(params, p)
	case Array:
		pa, _ := parmObj.(Array)
		for i, fi := range f {
			name, err := GetName(r, fi)
			if err != nil {
				return nil, nil, err
			}
			filters = append(filters, name)
			var p Dict
			if i < len(pa) {
				p, _ = GetDict(r, pa[i])
			}
			params = append(params, p)
		}
	default:
		return nil, nil, &MalformedFileError{
			Err: fmt.Errorf("invalid filter description %s", Format(filterObj)),
		}
	}
	return filters, params, nil
}

func applyFilter(data []byte, name Name, param Dict) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		out, err := io.ReadAll(zr)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			// Truncated streams are common; keep what we got.
			if len(out) == 0 {
				return nil, err
			}
		}
		return unpredict(out, param)
	case "LZWDecode", "LZW":
		if ec, ok := param["EarlyChange"].(Integer); ok && ec != 1 {
			return nil, errEarlyChange
		}
		lr := lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
		out, err := io.ReadAll(lr)
		lr.Close()
		if err != nil && len(out) == 0 {
			return nil, err
		}
		return unpredict(out, param)
	case "RunLengthDecode", "RL":
		return decodeRunLength(data)
	case "ASCIIHexDecode", "AHx":
		var clean []byte
		for _, c := range data {
			if c == '>' {
				break
			}
			if !isSpace[c] {
				clean = append(clean, c)
			}
		}
		if len(clean)%2 == 1 {
			clean = append(clean, '0')
		}
		out := make([]byte, len(clean)/2)
		_, err := hex.Decode(out, clean)
		return out, err
	case "ASCII85Decode", "A85":
		data = bytes.TrimSpace(data)
		data = bytes.TrimPrefix(data, []byte("<~"))
		if idx := bytes.Index(data, []byte("~>")); idx >= 0 {
			data = data[:idx]
		}
		out := make([]byte, 4*len(data)/5+4)
		n, _, err := ascii85.Decode(out, data, true)
		if err != nil {
			return nil, err
		}
		return out[:n], nil
	default:
		return nil, &UnsupportedFilterError{Filter: name}
	}
}

var errEarlyChange = errors.New("only EarlyChange 1 is supported")

// decodeRunLength reverses the RunLengthDecode filter.  A length byte n
// below 128 is followed by n+1 literal bytes, a length byte above 128 by
// one byte which is repeated 257-n times.  128 marks the end of data.
func decodeRunLength(data []byte) ([]byte, error) {
	var out []byte
	for len(data) > 0 {
		length := data[0]
		data = data[1:]
		switch {
		case length == 128:
			return out, nil
		case length < 128:
			count := int(length) + 1
			if count > len(data) {
				return nil, io.ErrUnexpectedEOF
			}
			out = append(out, data[:count]...)
			data = data[count:]
		default:
			if len(data) == 0 {
				return nil, io.ErrUnexpectedEOF
			}
			out = append(out, bytes.Repeat(data[:1], 257-int(length))...)
			data = data[1:]
		}
	}
	// The end-of-data marker is missing; keep what we got.
	return out, nil
}

// unpredict reverses the PNG predictors used with FlateDecode.
func unpredict(data []byte, param Dict) ([]byte, error) {
	getInt := func(key Name, def int) int {
		if x, ok := param[key].(Integer); ok {
			return int(x)
		}
		return def
	}
	predictor := getInt("Predictor", 1)
	if predictor == 1 {
		return data, nil
	}
	if predictor < 10 {
		return nil, fmt.Errorf("unsupported predictor %d", predictor)
	}

	colors := getInt("Colors", 1)
	bpc := getInt("BitsPerComponent", 8)
	columns := getInt("Columns", 1)
	bpp := max((colors*bpc+7)/8, 1)
	rowLen := (columns*colors*bpc + 7) / 8
	if rowLen <= 0 {
		return nil, errors.New("invalid predictor parameters")
	}

	var out []byte
	prev := make([]byte, rowLen)
	cur := make([]byte, rowLen)
	for len(data) > rowLen {
		tp := data[0]
		copy(cur, data[1:1+rowLen])
		data = data[1+rowLen:]
		for i := range cur {
			var left, up, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			up = prev[i]
			switch tp {
			case 0:
			case 1:
				cur[i] += left
			case 2:
				cur[i] += up
			case 3:
				cur[i] += byte((int(left) + int(up)) / 2)
			case 4:
				cur[i] += paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("invalid PNG filter type %d", tp)
			}
		}
		out = append(out, cur...)
		prev, cur = cur, prev
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Compress returns a FlateDecode compressed stream with the given
// dictionary entries and contents.
func Compress(dict Dict, data []byte) *Stream {
	buf := &bytes.Buffer{}
	zw, _ := zlib.NewWriterLevel(buf, zlib.BestCompression)
	zw.Write(data)
	zw.Close()

	res := dict.Clone()
	if res == nil {
		res = Dict{}
	}
	res["Filter"] = Name("FlateDecode")
	delete(res, "DecodeParms")
	return &Stream{Dict: res, Data: buf.Bytes()}
}
