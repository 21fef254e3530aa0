// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package dex

import (
	"encoding/binary"

	"github.com/dotandev/dexmerge/internal/errors"
)

// Section is a cursor over a fixed, non-overlapping region of a Dex buffer.
// All multi-byte values are little-endian. Reads and writes advance the
// cursor and fail (see error.go) when they would cross the region limit.
type Section struct {
	name  string
	owner *Dex
	start int
	limit int
	pos   int
}

// Pos returns the cursor as an absolute offset into the file.
func (s *Section) Pos() uint32 {
	return uint32(s.pos)
}

// Used returns the number of bytes written or read since the section start.
func (s *Section) Used() uint32 {
	return uint32(s.pos - s.start)
}

func (s *Section) need(n int) {
	if s.pos+n > s.limit {
		failf("section %s exhausted at position %d (need %d bytes, limit %d)",
			s.name, s.pos, n, s.limit)
	}
}

func (s *Section) Skip(n int) {
	s.need(n)
	s.pos += n
}

func (s *Section) ReadByte() byte {
	s.need(1)
	b := s.owner.data[s.pos]
	s.pos++
	return b
}

func (s *Section) ReadUint16() uint16 {
	s.need(2)
	v := binary.LittleEndian.Uint16(s.owner.data[s.pos:])
	s.pos += 2
	return v
}

func (s *Section) ReadUint32() uint32 {
	s.need(4)
	v := binary.LittleEndian.Uint32(s.owner.data[s.pos:])
	s.pos += 4
	return v
}

func (s *Section) ReadBytes(n int) []byte {
	s.need(n)
	b := s.owner.data[s.pos : s.pos+n]
	s.pos += n
	return b
}

// ReadUleb128 reads an unsigned little-endian base-128 value of at most
// five bytes.
func (s *Section) ReadUleb128() uint32 {
	var result uint32
	var shift uint
	for {
		b := s.ReadByte()
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result
		}
		shift += 7
		if shift >= 35 {
			failf("section %s: uleb128 longer than five bytes", s.name)
		}
	}
}

// ReadUleb128p1 reads a uleb128 and subtracts one, so that an encoded zero
// yields NoIndex.
func (s *Section) ReadUleb128p1() uint32 {
	return s.ReadUleb128() - 1
}

func (s *Section) ReadSleb128() int32 {
	var result int32
	var shift uint
	for {
		b := s.ReadByte()
		result |= int32(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 32 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result
		}
		if shift >= 35 {
			failf("section %s: sleb128 longer than five bytes", s.name)
		}
	}
}

// ReadStringRef reads a string_id_item (an offset into string data) at the
// cursor and returns the referenced string.
func (s *Section) ReadStringRef() string {
	off := s.ReadUint32()
	return s.owner.Open(off).ReadString()
}

// ReadString reads a string_data_item at the cursor: a uleb128 UTF-16 code
// unit count followed by MUTF-8 bytes and a NUL terminator.
func (s *Section) ReadString() string {
	expected := s.ReadUleb128()
	str, n := decodeMutf8(s.owner.data[s.pos:s.limit], expected)
	s.pos += n
	return str
}

func (s *Section) WriteByte(b byte) {
	s.need(1)
	s.owner.data[s.pos] = b
	s.pos++
}

func (s *Section) WriteUint16(v uint16) {
	s.need(2)
	binary.LittleEndian.PutUint16(s.owner.data[s.pos:], v)
	s.pos += 2
}

func (s *Section) WriteUint32(v uint32) {
	s.need(4)
	binary.LittleEndian.PutUint32(s.owner.data[s.pos:], v)
	s.pos += 4
}

func (s *Section) Write(p []byte) {
	s.need(len(p))
	copy(s.owner.data[s.pos:], p)
	s.pos += len(p)
}

func (s *Section) WriteShorts(v []uint16) {
	for _, u := range v {
		s.WriteUint16(u)
	}
}

func (s *Section) WriteUleb128(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		s.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

// WriteUleb128p1 writes v+1, the encoding under which NoIndex becomes zero.
func (s *Section) WriteUleb128p1(v uint32) {
	s.WriteUleb128(v + 1)
}

func (s *Section) WriteSleb128(v int32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			s.WriteByte(b)
			return
		}
		s.WriteByte(b | 0x80)
	}
}

// WriteStringData writes a string_data_item: uleb128 UTF-16 length, MUTF-8
// bytes, NUL terminator.
func (s *Section) WriteStringData(str string) {
	units, encoded := encodeMutf8(str)
	s.WriteUleb128(units)
	s.Write(encoded)
	s.WriteByte(0)
}

// AlignToFourBytes advances the cursor to the next 4-byte boundary, writing
// zero padding over the skipped bytes.
func (s *Section) AlignToFourBytes() {
	for s.pos&3 != 0 {
		s.WriteByte(0)
	}
}

// AlignToFourBytesRead advances past alignment padding without writing.
func (s *Section) AlignToFourBytesRead() {
	for s.pos&3 != 0 {
		s.Skip(1)
	}
}

// AssertFourByteAligned fails when the cursor is off a 4-byte boundary.
// Tripping it indicates a writer bug, not bad input.
func (s *Section) AssertFourByteAligned() {
	if s.pos&3 != 0 {
		fail(errors.WrapAlignment(s.name, uint32(s.pos)))
	}
}
