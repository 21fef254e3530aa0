// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dex reads and writes Dalvik Executable containers: a 0x70-byte
// header, sorted fixed-width ID sections referenced by position, and
// variable-length data sections referenced by absolute byte offset. See
// https://source.android.com/devices/tech/dalvik/dex-format.html
package dex

import (
	"io"
	"os"

	"github.com/dotandev/dexmerge/internal/errors"
)

// Dex is a single DEX file held in memory. An output Dex is laid out by
// appending fixed-size sections, each with an independent cursor; an input
// Dex is opened read-only at arbitrary offsets.
type Dex struct {
	data []byte
	toc  TableOfContents
}

// New returns an empty Dex: no bytes, every table-of-contents section
// absent. Merging against it reproduces the other input, which is how
// compaction is implemented.
func New() *Dex {
	d := &Dex{}
	d.toc.init()
	return d
}

// FromBytes parses the header and map list of an in-memory DEX file.
func FromBytes(data []byte) (d *Dex, err error) {
	defer CatchError(&err)
	d = &Dex{data: data}
	d.toc.init()
	d.toc.readFrom(d)
	return d, nil
}

// ReadFile loads and parses a DEX file from disk.
func ReadFile(path string) (*Dex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromBytes(data)
}

// TOC returns the table of contents. Mutable: the merger fills it in while
// laying out an output file.
func (d *Dex) TOC() *TableOfContents {
	return &d.toc
}

func (d *Dex) Length() int {
	return len(d.data)
}

func (d *Dex) Bytes() []byte {
	return d.data
}

// Open returns a cursor positioned at off, bounded by the end of the file.
func (d *Dex) Open(off uint32) *Section {
	if int(off) > len(d.data) {
		failf("offset %d beyond file length %d", off, len(d.data))
	}
	return &Section{name: "dex", owner: d, start: int(off), limit: len(d.data), pos: int(off)}
}

// Append grows the file by size bytes and returns the cursor for the new
// region. Used only while laying out an output buffer.
func (d *Dex) Append(size int, name string) *Section {
	start := len(d.data)
	d.data = append(d.data, make([]byte, size)...)
	return &Section{name: name, owner: d, start: start, limit: start + size, pos: start}
}

func (d *Dex) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.data)
	return int64(n), err
}

func (d *Dex) WriteFile(path string) error {
	return os.WriteFile(path, d.data, 0644)
}

// StringAt returns the string with the given string ID.
func (d *Dex) StringAt(index uint32) string {
	if index >= d.toc.StringIDs.Size {
		fail(errors.WrapMalformedInput("string index %d out of range (%d strings)",
			index, d.toc.StringIDs.Size))
	}
	dataOff := d.Open(d.toc.StringIDs.Off + index*SizeStringIDItem).ReadUint32()
	return d.Open(dataOff).ReadString()
}

// TypeNameAt returns the descriptor string of the given type ID.
func (d *Dex) TypeNameAt(typeIndex uint32) string {
	if typeIndex >= d.toc.TypeIDs.Size {
		fail(errors.WrapMalformedInput("type index %d out of range (%d types)",
			typeIndex, d.toc.TypeIDs.Size))
	}
	stringIndex := d.Open(d.toc.TypeIDs.Off + typeIndex*SizeTypeIDItem).ReadUint32()
	return d.StringAt(stringIndex)
}

// ClassDefs reads every class_def_item, interfaces included.
func (d *Dex) ClassDefs() []ClassDef {
	sec := d.toc.ClassDefs
	if !sec.Exists() {
		return nil
	}
	in := d.Open(sec.Off)
	defs := make([]ClassDef, sec.Size)
	for i := range defs {
		defs[i] = in.ReadClassDef()
		if off := defs[i].InterfacesOffset; off != 0 {
			defs[i].Interfaces = d.Open(off).ReadTypeList().Types
		}
	}
	return defs
}
