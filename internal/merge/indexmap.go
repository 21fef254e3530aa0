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

package merge

import (
	"github.com/dotandev/dexmerge/internal/dex"
	"github.com/dotandev/dexmerge/internal/errors"
)

// IndexMap translates one input file's indices and data offsets into the
// output file's. The arrays are filled while the ID sections are merged and
// read-only afterwards; once an entry is set it is never rewritten.
type IndexMap struct {
	StringIDs []uint32
	TypeIDs   []uint16
	ProtoIDs  []uint16
	FieldIDs  []uint16
	MethodIDs []uint16

	typeListOffsets            map[uint32]uint32
	annotationOffsets          map[uint32]uint32
	annotationSetOffsets       map[uint32]uint32
	annotationSetRefOffsets    map[uint32]uint32
	annotationDirectoryOffsets map[uint32]uint32
	staticValuesOffsets        map[uint32]uint32
}

// NewIndexMap sizes the translation tables for one input. Offset zero maps
// to offset zero in every table, so absent references stay absent.
func NewIndexMap(toc *dex.TableOfContents) *IndexMap {
	return &IndexMap{
		StringIDs:                  make([]uint32, toc.StringIDs.Size),
		TypeIDs:                    make([]uint16, toc.TypeIDs.Size),
		ProtoIDs:                   make([]uint16, toc.ProtoIDs.Size),
		FieldIDs:                   make([]uint16, toc.FieldIDs.Size),
		MethodIDs:                  make([]uint16, toc.MethodIDs.Size),
		typeListOffsets:            map[uint32]uint32{0: 0},
		annotationOffsets:          map[uint32]uint32{0: 0},
		annotationSetOffsets:       map[uint32]uint32{0: 0},
		annotationSetRefOffsets:    map[uint32]uint32{0: 0},
		annotationDirectoryOffsets: map[uint32]uint32{0: 0},
		staticValuesOffsets:        map[uint32]uint32{0: 0},
	}
}

func (m *IndexMap) AdjustString(index uint32) uint32 {
	if index == dex.NoIndex {
		return dex.NoIndex
	}
	if int(index) >= len(m.StringIDs) {
		dex.Fail(errors.WrapMalformedInput("string index %d out of range (%d strings)",
			index, len(m.StringIDs)))
	}
	return m.StringIDs[index]
}

func (m *IndexMap) AdjustType(index uint32) uint32 {
	if index == dex.NoIndex {
		return dex.NoIndex
	}
	if int(index) >= len(m.TypeIDs) {
		dex.Fail(errors.WrapMalformedInput("type index %d out of range (%d types)",
			index, len(m.TypeIDs)))
	}
	return uint32(m.TypeIDs[index])
}

func (m *IndexMap) AdjustProto(index uint32) uint32 {
	if int(index) >= len(m.ProtoIDs) {
		dex.Fail(errors.WrapMalformedInput("proto index %d out of range (%d protos)",
			index, len(m.ProtoIDs)))
	}
	return uint32(m.ProtoIDs[index])
}

func (m *IndexMap) AdjustField(index uint32) uint32 {
	if int(index) >= len(m.FieldIDs) {
		dex.Fail(errors.WrapMalformedInput("field index %d out of range (%d fields)",
			index, len(m.FieldIDs)))
	}
	return uint32(m.FieldIDs[index])
}

func (m *IndexMap) AdjustMethod(index uint32) uint32 {
	if int(index) >= len(m.MethodIDs) {
		dex.Fail(errors.WrapMalformedInput("method index %d out of range (%d methods)",
			index, len(m.MethodIDs)))
	}
	return uint32(m.MethodIDs[index])
}

func adjustOffset(table map[uint32]uint32, kind string, old uint32) uint32 {
	adjusted, ok := table[old]
	if !ok {
		dex.Fail(errors.WrapMalformedInput("no mapping for %s offset %d", kind, old))
	}
	return adjusted
}

func (m *IndexMap) AdjustTypeListOffset(old uint32) uint32 {
	return adjustOffset(m.typeListOffsets, "type list", old)
}

func (m *IndexMap) AdjustAnnotationOffset(old uint32) uint32 {
	return adjustOffset(m.annotationOffsets, "annotation", old)
}

func (m *IndexMap) AdjustAnnotationSetOffset(old uint32) uint32 {
	return adjustOffset(m.annotationSetOffsets, "annotation set", old)
}

func (m *IndexMap) AdjustAnnotationSetRefOffset(old uint32) uint32 {
	return adjustOffset(m.annotationSetRefOffsets, "annotation set ref list", old)
}

func (m *IndexMap) AdjustAnnotationDirectoryOffset(old uint32) uint32 {
	return adjustOffset(m.annotationDirectoryOffsets, "annotations directory", old)
}

func (m *IndexMap) AdjustStaticValuesOffset(old uint32) uint32 {
	return adjustOffset(m.staticValuesOffsets, "static values", old)
}

func (m *IndexMap) PutTypeListOffset(old, new uint32) {
	m.typeListOffsets[old] = new
}

func (m *IndexMap) PutAnnotationOffset(old, new uint32) {
	m.annotationOffsets[old] = new
}

func (m *IndexMap) PutAnnotationSetOffset(old, new uint32) {
	m.annotationSetOffsets[old] = new
}

func (m *IndexMap) PutAnnotationSetRefOffset(old, new uint32) {
	m.annotationSetRefOffsets[old] = new
}

func (m *IndexMap) PutAnnotationDirectoryOffset(old, new uint32) {
	m.annotationDirectoryOffsets[old] = new
}

func (m *IndexMap) PutStaticValuesOffset(old, new uint32) {
	m.staticValuesOffsets[old] = new
}

// AdjustTypeList remaps every embedded type index.
func (m *IndexMap) AdjustTypeList(list dex.TypeList) dex.TypeList {
	types := make([]uint16, len(list.Types))
	for i, t := range list.Types {
		types[i] = uint16(m.AdjustType(uint32(t)))
	}
	return dex.TypeList{Types: types}
}

func (m *IndexMap) AdjustProtoID(p dex.ProtoID) dex.ProtoID {
	return dex.ProtoID{
		ShortyIndex:      m.AdjustString(p.ShortyIndex),
		ReturnTypeIndex:  m.AdjustType(p.ReturnTypeIndex),
		ParametersOffset: m.AdjustTypeListOffset(p.ParametersOffset),
	}
}

func (m *IndexMap) AdjustFieldID(f dex.FieldID) dex.FieldID {
	return dex.FieldID{
		DeclaringClassIndex: uint16(m.AdjustType(uint32(f.DeclaringClassIndex))),
		TypeIndex:           uint16(m.AdjustType(uint32(f.TypeIndex))),
		NameIndex:           m.AdjustString(f.NameIndex),
	}
}

func (m *IndexMap) AdjustMethodID(method dex.MethodID) dex.MethodID {
	return dex.MethodID{
		DeclaringClassIndex: uint16(m.AdjustType(uint32(method.DeclaringClassIndex))),
		ProtoIndex:          uint16(m.AdjustProto(uint32(method.ProtoIndex))),
		NameIndex:           m.AdjustString(method.NameIndex),
	}
}

// AdjustClassDef remaps the fields the topological sorter needs: the type,
// the supertype, the interfaces list and its offset. Source file,
// annotations, class data and static values are remapped later, when the
// class_def_item is written.
func (m *IndexMap) AdjustClassDef(def dex.ClassDef) dex.ClassDef {
	def.TypeIndex = m.AdjustType(def.TypeIndex)
	def.SupertypeIndex = m.AdjustType(def.SupertypeIndex)
	def.InterfacesOffset = m.AdjustTypeListOffset(def.InterfacesOffset)
	interfaces := make([]uint16, len(def.Interfaces))
	for i, t := range def.Interfaces {
		interfaces[i] = uint16(m.AdjustType(uint32(t)))
	}
	def.Interfaces = interfaces
	return def
}
