// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package dex

import (
	"bytes"
	"sort"
)

// Map item type codes.
const (
	TypeHeaderItem               uint16 = 0x0000
	TypeStringIDItem             uint16 = 0x0001
	TypeTypeIDItem               uint16 = 0x0002
	TypeProtoIDItem              uint16 = 0x0003
	TypeFieldIDItem              uint16 = 0x0004
	TypeMethodIDItem             uint16 = 0x0005
	TypeClassDefItem             uint16 = 0x0006
	TypeMapList                  uint16 = 0x1000
	TypeTypeList                 uint16 = 0x1001
	TypeAnnotationSetRefList     uint16 = 0x1002
	TypeAnnotationSetItem        uint16 = 0x1003
	TypeClassDataItem            uint16 = 0x2000
	TypeCodeItem                 uint16 = 0x2001
	TypeStringDataItem           uint16 = 0x2002
	TypeDebugInfoItem            uint16 = 0x2003
	TypeAnnotationItem           uint16 = 0x2004
	TypeEncodedArrayItem         uint16 = 0x2005
	TypeAnnotationsDirectoryItem uint16 = 0x2006
)

const (
	headerSize = SizeHeaderItem
	endianTag  = 0x12345678
)

var (
	magic035 = []byte{'d', 'e', 'x', '\n', '0', '3', '5', 0}
	magic037 = []byte{'d', 'e', 'x', '\n', '0', '3', '7', 0}
)

// TOCSection describes one kind of section: its map item type, item count,
// starting offset and (derived) byte length.
type TOCSection struct {
	Type      uint16
	Size      uint32
	Off       uint32
	ByteCount uint32
}

func (s *TOCSection) Exists() bool {
	return s.Size > 0
}

// TableOfContents indexes every section of a DEX file, plus the header
// fields that do not describe a section.
type TableOfContents struct {
	Header                 TOCSection
	StringIDs              TOCSection
	TypeIDs                TOCSection
	ProtoIDs               TOCSection
	FieldIDs               TOCSection
	MethodIDs              TOCSection
	ClassDefs              TOCSection
	MapList                TOCSection
	TypeLists              TOCSection
	AnnotationSetRefLists  TOCSection
	AnnotationSets         TOCSection
	ClassDatas             TOCSection
	Codes                  TOCSection
	StringDatas            TOCSection
	DebugInfos             TOCSection
	Annotations            TOCSection
	EncodedArrays          TOCSection
	AnnotationsDirectories TOCSection

	Version   string
	Checksum  uint32
	Signature [20]byte
	FileSize  uint32
	LinkSize  uint32
	LinkOff   uint32
	DataSize  uint32
	DataOff   uint32
}

func (t *TableOfContents) init() {
	t.Version = "035"
	for _, s := range []struct {
		sec *TOCSection
		typ uint16
	}{
		{&t.Header, TypeHeaderItem},
		{&t.StringIDs, TypeStringIDItem},
		{&t.TypeIDs, TypeTypeIDItem},
		{&t.ProtoIDs, TypeProtoIDItem},
		{&t.FieldIDs, TypeFieldIDItem},
		{&t.MethodIDs, TypeMethodIDItem},
		{&t.ClassDefs, TypeClassDefItem},
		{&t.MapList, TypeMapList},
		{&t.TypeLists, TypeTypeList},
		{&t.AnnotationSetRefLists, TypeAnnotationSetRefList},
		{&t.AnnotationSets, TypeAnnotationSetItem},
		{&t.ClassDatas, TypeClassDataItem},
		{&t.Codes, TypeCodeItem},
		{&t.StringDatas, TypeStringDataItem},
		{&t.DebugInfos, TypeDebugInfoItem},
		{&t.Annotations, TypeAnnotationItem},
		{&t.EncodedArrays, TypeEncodedArrayItem},
		{&t.AnnotationsDirectories, TypeAnnotationsDirectoryItem},
	} {
		s.sec.Type = s.typ
	}
}

// Sections returns the section descriptors in file layout order.
func (t *TableOfContents) Sections() []*TOCSection {
	return []*TOCSection{
		&t.Header, &t.StringIDs, &t.TypeIDs, &t.ProtoIDs, &t.FieldIDs,
		&t.MethodIDs, &t.ClassDefs, &t.MapList, &t.TypeLists,
		&t.AnnotationSetRefLists, &t.AnnotationSets, &t.ClassDatas, &t.Codes,
		&t.StringDatas, &t.DebugInfos, &t.Annotations, &t.EncodedArrays,
		&t.AnnotationsDirectories,
	}
}

func (t *TableOfContents) sectionForType(typ uint16) *TOCSection {
	for _, s := range t.Sections() {
		if s.Type == typ {
			return s
		}
	}
	failf("unknown map item type 0x%04x", typ)
	return nil
}

func (t *TableOfContents) readFrom(d *Dex) {
	t.readHeader(d.Open(0))
	t.readMap(d.Open(t.MapList.Off))
	t.ComputeSizesFromOffsets()
}

func (t *TableOfContents) readHeader(in *Section) {
	magic := in.ReadBytes(8)
	switch {
	case bytes.Equal(magic, magic035):
		t.Version = "035"
	case bytes.Equal(magic, magic037):
		t.Version = "037"
	default:
		failf("unexpected magic %q", magic)
	}
	t.Checksum = in.ReadUint32()
	copy(t.Signature[:], in.ReadBytes(20))
	t.FileSize = in.ReadUint32()
	if hs := in.ReadUint32(); hs != headerSize {
		failf("unexpected header size %d", hs)
	}
	if tag := in.ReadUint32(); tag != endianTag {
		failf("unexpected endian tag 0x%08x", tag)
	}
	t.LinkSize = in.ReadUint32()
	t.LinkOff = in.ReadUint32()
	t.MapList.Off = in.ReadUint32()
	if t.MapList.Off == 0 {
		failf("missing map list offset")
	}
	t.StringIDs.Size = in.ReadUint32()
	t.StringIDs.Off = in.ReadUint32()
	t.TypeIDs.Size = in.ReadUint32()
	t.TypeIDs.Off = in.ReadUint32()
	t.ProtoIDs.Size = in.ReadUint32()
	t.ProtoIDs.Off = in.ReadUint32()
	t.FieldIDs.Size = in.ReadUint32()
	t.FieldIDs.Off = in.ReadUint32()
	t.MethodIDs.Size = in.ReadUint32()
	t.MethodIDs.Off = in.ReadUint32()
	t.ClassDefs.Size = in.ReadUint32()
	t.ClassDefs.Off = in.ReadUint32()
	t.DataSize = in.ReadUint32()
	t.DataOff = in.ReadUint32()
	t.Header.Size = 1
	t.MapList.Size = 1
}

func (t *TableOfContents) readMap(in *Section) {
	count := in.ReadUint32()
	var prevOff uint32
	for i := uint32(0); i < count; i++ {
		typ := in.ReadUint16()
		in.Skip(SizeUShort) // unused
		size := in.ReadUint32()
		off := in.ReadUint32()
		if i > 0 && off < prevOff {
			failf("map list not sorted by offset at entry %d", i)
		}
		prevOff = off
		sec := t.sectionForType(typ)
		sec.Size = size
		sec.Off = off
	}
}

// ComputeSizesFromOffsets derives each existing section's byte length from
// the offset of the section that follows it.
func (t *TableOfContents) ComputeSizesFromOffsets() {
	existing := make([]*TOCSection, 0, 18)
	for _, s := range t.Sections() {
		if s.Exists() {
			existing = append(existing, s)
		}
	}
	sort.Slice(existing, func(i, j int) bool { return existing[i].Off < existing[j].Off })
	end := t.FileSize
	for i := len(existing) - 1; i >= 0; i-- {
		s := existing[i]
		if s.Off > end {
			failf("section 0x%04x at offset %d overruns end %d", s.Type, s.Off, end)
		}
		s.ByteCount = end - s.Off
		end = s.Off
	}
}

// WriteHeader emits the 0x70-byte header. Checksum and signature are left
// zero; WriteHashes fills them once the body is final.
func (t *TableOfContents) WriteHeader(out *Section) {
	if t.Version == "037" {
		out.Write(magic037)
	} else {
		out.Write(magic035)
	}
	out.WriteUint32(t.Checksum)
	out.Write(t.Signature[:])
	out.WriteUint32(t.FileSize)
	out.WriteUint32(headerSize)
	out.WriteUint32(endianTag)
	out.WriteUint32(t.LinkSize)
	out.WriteUint32(t.LinkOff)
	out.WriteUint32(t.MapList.Off)
	for _, s := range []*TOCSection{
		&t.StringIDs, &t.TypeIDs, &t.ProtoIDs, &t.FieldIDs, &t.MethodIDs, &t.ClassDefs,
	} {
		out.WriteUint32(s.Size)
		if s.Exists() {
			out.WriteUint32(s.Off)
		} else {
			out.WriteUint32(0)
		}
	}
	out.WriteUint32(t.DataSize)
	out.WriteUint32(t.DataOff)
}

// WriteMap emits the map list: every existing section exactly once, in
// ascending offset order.
func (t *TableOfContents) WriteMap(out *Section) {
	existing := make([]*TOCSection, 0, 18)
	for _, s := range t.Sections() {
		if s.Exists() {
			existing = append(existing, s)
		}
	}
	sort.Slice(existing, func(i, j int) bool { return existing[i].Off < existing[j].Off })
	out.WriteUint32(uint32(len(existing)))
	for _, s := range existing {
		out.WriteUint16(s.Type)
		out.WriteUint16(0) // unused
		out.WriteUint32(s.Size)
		out.WriteUint32(s.Off)
	}
}
