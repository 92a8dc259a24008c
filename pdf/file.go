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
	"fmt"
	"maps"
	"slices"
)

// Version represents a version of the PDF standard.
type Version int

// PDF versions supported by this library.
const (
	V1_0 Version = iota + 1
	V1_1
	V1_2
	V1_3
	V1_4
	V1_5
	V1_6
	V1_7
	V2_0
	tooHighVersion
)

// ParseVersion parses a PDF version string like "1.7".
func ParseVersion(s string) (Version, error) {
	switch s {
	case "1.0":
		return V1_0, nil
	case "1.1":
		return V1_1, nil
	case "1.2":
		return V1_2, nil
	case "1.3":
		return V1_3, nil
	case "1.4":
		return V1_4, nil
	case "1.5":
		return V1_5, nil
	case "1.6":
		return V1_6, nil
	case "1.7":
		return V1_7, nil
	case "2.0":
		return V2_0, nil
	}
	return 0, errVersion
}

var errVersion = errors.New("unsupported PDF version")

// String returns the string representation of the version, e.g. "1.7".
func (ver Version) String() string {
	if ver >= V1_0 && ver <= V1_7 {
		return "1." + string(rune('0'+ver-V1_0))
	}
	if ver == V2_0 {
		return "2.0"
	}
	return fmt.Sprintf("pdf.Version(%d)", int(ver))
}

// A Getter provides access to the indirect objects of a PDF file.
type Getter interface {
	Get(ref Reference) (Object, error)
}

// File is an in-memory representation of a PDF file.
//
// All indirect objects are held in memory.  Objects can be read, replaced
// and allocated; [Write] serializes the complete file.
type File struct {
	Version Version

	// Trailer holds the trailer entries which survive a rewrite of the
	// file: /Root, /Info and /ID.
	Trailer Dict

	objects map[Reference]Object
	next    uint32
}

// NewFile creates an empty file.
func NewFile(v Version) *File {
	return &File{
		Version: v,
		Trailer: Dict{},
		objects: make(map[Reference]Object),
		next:    1,
	}
}

// Get returns the object stored under ref.
// Missing objects are reported as nil without an error, as
// required for the PDF null object.
func (f *File) Get(ref Reference) (Object, error) {
	obj, ok := f.objects[ref]
	if !ok {
		// Some writers give the wrong generation number in references.
		alt := NewReference(ref.Number(), 0)
		if obj, ok = f.objects[alt]; !ok {
			return nil, nil
		}
	}
	return obj, nil
}

// Has reports whether the file contains an object for ref.
func (f *File) Has(ref Reference) bool {
	_, ok := f.objects[ref]
	return ok
}

// Put stores obj as the indirect object ref.
func (f *File) Put(ref Reference, obj Object) {
	f.objects[ref] = obj
	if n := ref.Number(); n >= f.next {
		f.next = n + 1
	}
}

// Delete removes the object ref from the file.
func (f *File) Delete(ref Reference) {
	delete(f.objects, ref)
}

// Alloc allocates a new object number.
func (f *File) Alloc() Reference {
	ref := NewReference(f.next, 0)
	f.next++
	return ref
}

// Refs returns the references of all objects, ordered by object number.
func (f *File) Refs() []Reference {
	refs := slices.Collect(maps.Keys(f.objects))
	slices.SortFunc(refs, func(a, b Reference) int {
		if a.Number() != b.Number() {
			return int(a.Number()) - int(b.Number())
		}
		return int(a.Generation()) - int(b.Generation())
	})
	return refs
}

// NumObjects returns the number of indirect objects in the file.
func (f *File) NumObjects() int {
	return len(f.objects)
}

// Catalog returns the document catalog.
func (f *File) Catalog() (Dict, error) {
	root, ok := f.Trailer["Root"]
	if !ok {
		return nil, ErrNoRoot
	}
	catalog, err := GetDict(f, root)
	if err != nil {
		return nil, err
	}
	if catalog == nil {
		return nil, ErrNoRoot
	}
	return catalog, nil
}

// Resolve resolves references to indirect objects.
//
// If obj is a [Reference], the function reads the corresponding object from
// the file and returns the result.  If obj is not a [Reference], it is
// returned unchanged.  The function recursively follows chains of references
// until it resolves to a non-reference object.
func Resolve(r Getter, obj Object) (Object, error) {
	origObj := obj

	count := 0
	for {
		ref, isReference := obj.(Reference)
		if !isReference {
			break
		}
		if r == nil {
			return nil, &MalformedFileError{Err: fmt.Errorf("%s: %w", ref, errNotFound)}
		}
		count++
		if count > 16 {
			return nil, &MalformedFileError{
				Err: fmt.Errorf("%s: %w", Format(origObj), errLoop),
			}
		}

		var err error
		obj, err = r.Get(ref)
		if err != nil {
			return nil, err
		}
	}

	return obj, nil
}

func resolveAndCast[T Object](r Getter, obj Object) (x T, err error) {
	obj, err = Resolve(r, obj)
	if err != nil {
		return x, err
	}

	if obj == nil {
		return x, nil
	}

	var isCorrectType bool
	x, isCorrectType = obj.(T)
	if isCorrectType {
		return x, nil
	}

	return x, &MalformedFileError{
		Err: fmt.Errorf("expected %T but got %T", x, obj),
	}
}

// GetArray resolves any indirect reference and checks that the resulting
// object is an Array.  Null objects are returned as nil.
func GetArray(r Getter, obj Object) (Array, error) {
	return resolveAndCast[Array](r, obj)
}

// GetDict resolves any indirect reference and checks that the resulting
// object is a Dict.  Null objects are returned as nil.
func GetDict(r Getter, obj Object) (Dict, error) {
	return resolveAndCast[Dict](r, obj)
}

// GetName resolves any indirect reference and checks that the resulting
// object is a Name.
func GetName(r Getter, obj Object) (Name, error) {
	return resolveAndCast[Name](r, obj)
}

// GetInteger resolves any indirect reference and checks that the resulting
// object is an Integer.
func GetInteger(r Getter, obj Object) (Integer, error) {
	return resolveAndCast[Integer](r, obj)
}

// GetString resolves any indirect reference and checks that the resulting
// object is a String.
func GetString(r Getter, obj Object) (String, error) {
	return resolveAndCast[String](r, obj)
}

// GetStream resolves any indirect reference and checks that the resulting
// object is a Stream.  Null objects are returned as nil.
func GetStream(r Getter, obj Object) (*Stream, error) {
	return resolveAndCast[*Stream](r, obj)
}

// GetNumber resolves any indirect reference and returns the value of an
// Integer or Real object as a float64.
func GetNumber(r Getter, obj Object) (float64, error) {
	obj, err := Resolve(r, obj)
	if err != nil {
		return 0, err
	}
	switch x := obj.(type) {
	case Integer:
		return float64(x), nil
	case Real:
		return float64(x), nil
	case nil:
		return 0, nil
	default:
		return 0, &MalformedFileError{
			Err: fmt.Errorf("expected number but got %T", obj),
		}
	}
}
