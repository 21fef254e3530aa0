// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package merge

import (
	"github.com/dotandev/dexmerge/internal/dex"
	"github.com/dotandev/dexmerge/internal/errors"
)

// encoded_value type tags.
const (
	valueByte       = 0x00
	valueShort      = 0x02
	valueChar       = 0x03
	valueInt        = 0x04
	valueLong       = 0x06
	valueFloat      = 0x10
	valueDouble     = 0x11
	valueString     = 0x17
	valueType       = 0x18
	valueField      = 0x19
	valueMethod     = 0x1a
	valueEnum       = 0x1b
	valueArray      = 0x1c
	valueAnnotation = 0x1d
	valueNull       = 0x1e
	valueBoolean    = 0x1f
)

// encodedBuf accumulates a re-encoded encoded_value stream in memory. Items
// are compared and deduplicated before they are written to a section, so
// the transform cannot stream straight to the output.
type encodedBuf struct {
	b []byte
}

func (e *encodedBuf) writeByte(b byte) {
	e.b = append(e.b, b)
}

func (e *encodedBuf) writeUleb128(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		e.writeByte(b)
		if v == 0 {
			return
		}
	}
}

// writeIndex emits an index-carrying value with the smallest size encoding.
func (e *encodedBuf) writeIndex(valueType byte, index uint32) {
	size := 1
	for index>>(8*uint(size)) != 0 {
		size++
	}
	e.writeByte(byte(size-1)<<5 | valueType)
	for i := 0; i < size; i++ {
		e.writeByte(byte(index >> (8 * uint(i))))
	}
}

// TransformEncodedArray reads an encoded_array_item at in and returns it
// with every embedded string/type/field/method/enum index remapped.
func (m *IndexMap) TransformEncodedArray(in *dex.Section) dex.EncodedValue {
	var out encodedBuf
	m.transformArray(in, &out)
	return dex.EncodedValue(out.b)
}

// TransformAnnotation reads an annotation_item at in and remaps it.
func (m *IndexMap) TransformAnnotation(in *dex.Section) dex.Annotation {
	visibility := in.ReadByte()
	var out encodedBuf
	m.transformAnnotationBody(in, &out)
	return dex.Annotation{Visibility: visibility, Encoded: dex.EncodedValue(out.b)}
}

func (m *IndexMap) transformArray(in *dex.Section, out *encodedBuf) {
	size := in.ReadUleb128()
	out.writeUleb128(size)
	for i := uint32(0); i < size; i++ {
		m.transformValue(in, out)
	}
}

func (m *IndexMap) transformAnnotationBody(in *dex.Section, out *encodedBuf) {
	out.writeUleb128(m.AdjustType(in.ReadUleb128()))
	size := in.ReadUleb128()
	out.writeUleb128(size)
	for i := uint32(0); i < size; i++ {
		out.writeUleb128(m.AdjustString(in.ReadUleb128()))
		m.transformValue(in, out)
	}
}

func (m *IndexMap) transformValue(in *dex.Section, out *encodedBuf) {
	argAndType := in.ReadByte()
	valType := argAndType & 0x1f
	arg := argAndType >> 5

	switch valType {
	case valueByte, valueShort, valueChar, valueInt, valueLong, valueFloat, valueDouble:
		out.writeByte(argAndType)
		for i := byte(0); i <= arg; i++ {
			out.writeByte(in.ReadByte())
		}
	case valueString:
		out.writeIndex(valueString, m.AdjustString(readIndexValue(in, arg)))
	case valueType:
		out.writeIndex(valueType, m.AdjustType(readIndexValue(in, arg)))
	case valueField:
		out.writeIndex(valueField, m.AdjustField(readIndexValue(in, arg)))
	case valueMethod:
		out.writeIndex(valueMethod, m.AdjustMethod(readIndexValue(in, arg)))
	case valueEnum:
		out.writeIndex(valueEnum, m.AdjustField(readIndexValue(in, arg)))
	case valueArray:
		out.writeByte(argAndType)
		m.transformArray(in, out)
	case valueAnnotation:
		out.writeByte(argAndType)
		m.transformAnnotationBody(in, out)
	case valueNull, valueBoolean:
		out.writeByte(argAndType)
	default:
		dex.Fail(errors.WrapUnsupported("encoded value type 0x%02x", valType))
	}
}

func readIndexValue(in *dex.Section, arg byte) uint32 {
	var v uint32
	for i := byte(0); i <= arg; i++ {
		v |= uint32(in.ReadByte()) << (8 * uint(i))
	}
	return v
}
