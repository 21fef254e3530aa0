// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package dex

import (
	"bytes"
)

// NoIndex marks an absent string or type reference.
const NoIndex uint32 = 0xFFFFFFFF

func compareUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareUint16(a, b uint16) int {
	return compareUint32(uint32(a), uint32(b))
}

// ProtoID is a proto_id_item. Its file sort key is (return type, parameter
// list); comparing parameter lists by their offsets is sound because type
// lists are emitted in value order.
type ProtoID struct {
	ShortyIndex      uint32
	ReturnTypeIndex  uint32
	ParametersOffset uint32
}

func (s *Section) ReadProtoID() ProtoID {
	return ProtoID{
		ShortyIndex:      s.ReadUint32(),
		ReturnTypeIndex:  s.ReadUint32(),
		ParametersOffset: s.ReadUint32(),
	}
}

func (p ProtoID) WriteTo(out *Section) {
	out.WriteUint32(p.ShortyIndex)
	out.WriteUint32(p.ReturnTypeIndex)
	out.WriteUint32(p.ParametersOffset)
}

func (p ProtoID) CompareTo(o ProtoID) int {
	if c := compareUint32(p.ReturnTypeIndex, o.ReturnTypeIndex); c != 0 {
		return c
	}
	return compareUint32(p.ParametersOffset, o.ParametersOffset)
}

// FieldID is a field_id_item, sorted by (declaring class, name, type).
type FieldID struct {
	DeclaringClassIndex uint16
	TypeIndex           uint16
	NameIndex           uint32
}

func (s *Section) ReadFieldID() FieldID {
	return FieldID{
		DeclaringClassIndex: s.ReadUint16(),
		TypeIndex:           s.ReadUint16(),
		NameIndex:           s.ReadUint32(),
	}
}

func (f FieldID) WriteTo(out *Section) {
	out.WriteUint16(f.DeclaringClassIndex)
	out.WriteUint16(f.TypeIndex)
	out.WriteUint32(f.NameIndex)
}

func (f FieldID) CompareTo(o FieldID) int {
	if c := compareUint16(f.DeclaringClassIndex, o.DeclaringClassIndex); c != 0 {
		return c
	}
	if c := compareUint32(f.NameIndex, o.NameIndex); c != 0 {
		return c
	}
	return compareUint16(f.TypeIndex, o.TypeIndex)
}

// MethodID is a method_id_item, sorted by (declaring class, name, proto).
type MethodID struct {
	DeclaringClassIndex uint16
	ProtoIndex          uint16
	NameIndex           uint32
}

func (s *Section) ReadMethodID() MethodID {
	return MethodID{
		DeclaringClassIndex: s.ReadUint16(),
		ProtoIndex:          s.ReadUint16(),
		NameIndex:           s.ReadUint32(),
	}
}

func (m MethodID) WriteTo(out *Section) {
	out.WriteUint16(m.DeclaringClassIndex)
	out.WriteUint16(m.ProtoIndex)
	out.WriteUint32(m.NameIndex)
}

func (m MethodID) CompareTo(o MethodID) int {
	if c := compareUint16(m.DeclaringClassIndex, o.DeclaringClassIndex); c != 0 {
		return c
	}
	if c := compareUint32(m.NameIndex, o.NameIndex); c != 0 {
		return c
	}
	return compareUint16(m.ProtoIndex, o.ProtoIndex)
}

// ClassDef is a class_def_item. Interfaces caches the type list at
// InterfacesOffset so the topological sorter can chase it without another
// read of the source buffer.
type ClassDef struct {
	TypeIndex          uint32
	AccessFlags        uint32
	SupertypeIndex     uint32
	InterfacesOffset   uint32
	SourceFileIndex    uint32
	AnnotationsOffset  uint32
	ClassDataOffset    uint32
	StaticValuesOffset uint32
	Interfaces         []uint16
}

func (s *Section) ReadClassDef() ClassDef {
	return ClassDef{
		TypeIndex:          s.ReadUint32(),
		AccessFlags:        s.ReadUint32(),
		SupertypeIndex:     s.ReadUint32(),
		InterfacesOffset:   s.ReadUint32(),
		SourceFileIndex:    s.ReadUint32(),
		AnnotationsOffset:  s.ReadUint32(),
		ClassDataOffset:    s.ReadUint32(),
		StaticValuesOffset: s.ReadUint32(),
	}
}

// TypeList is a type_list: a count followed by packed 16-bit type indices,
// padded to a 4-byte boundary.
type TypeList struct {
	Types []uint16
}

func (s *Section) ReadTypeList() TypeList {
	size := s.ReadUint32()
	types := make([]uint16, size)
	for i := range types {
		types[i] = s.ReadUint16()
	}
	s.AlignToFourBytesRead()
	return TypeList{Types: types}
}

func (t TypeList) WriteTo(out *Section) {
	out.WriteUint32(uint32(len(t.Types)))
	out.WriteShorts(t.Types)
	out.AlignToFourBytes()
}

// CompareTo orders type lists the way the file format sorts proto
// parameter lists: element by element, ties broken by length.
func (t TypeList) CompareTo(o TypeList) int {
	for i := 0; i < len(t.Types) && i < len(o.Types); i++ {
		if c := compareUint16(t.Types[i], o.Types[i]); c != 0 {
			return c
		}
	}
	return len(t.Types) - len(o.Types)
}

// EncodedValue is an encoded_value or encoded_array payload, held as raw
// bytes whose embedded indices have already been remapped.
type EncodedValue []byte

func (v EncodedValue) WriteTo(out *Section) {
	out.Write(v)
}

func (v EncodedValue) CompareTo(o EncodedValue) int {
	if c := bytes.Compare(v, o); c != 0 {
		return c
	}
	return 0
}

// Annotation is an annotation_item: a visibility byte and an
// encoded_annotation payload.
type Annotation struct {
	Visibility byte
	Encoded    EncodedValue
}

func (a Annotation) WriteTo(out *Section) {
	out.WriteByte(a.Visibility)
	out.Write(a.Encoded)
}

func (a Annotation) CompareTo(o Annotation) int {
	if c := bytes.Compare(a.Encoded, o.Encoded); c != 0 {
		return c
	}
	return int(a.Visibility) - int(o.Visibility)
}
