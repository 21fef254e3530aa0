// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package dex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSection(t *testing.T, size int) *Section {
	t.Helper()
	d := New()
	return d.Append(size, "test")
}

func reopen(s *Section) *Section {
	return s.owner.Open(uint32(s.start))
}

func TestUleb128RoundTrip(t *testing.T) {
	values := []uint32{0, 1, 0x7f, 0x80, 0x3fff, 0x4000, 0xffff, 0x10000, 0xffffffff}

	out := newTestSection(t, 64)
	for _, v := range values {
		out.WriteUleb128(v)
	}

	in := reopen(out)
	for _, v := range values {
		assert.Equal(t, v, in.ReadUleb128())
	}
}

func TestUleb128p1RoundTrip(t *testing.T) {
	values := []uint32{NoIndex, 0, 1, 0x7f, 0xffff}

	out := newTestSection(t, 64)
	for _, v := range values {
		out.WriteUleb128p1(v)
	}

	in := reopen(out)
	for _, v := range values {
		assert.Equal(t, v, in.ReadUleb128p1())
	}
}

func TestUleb128p1NoIndexEncodesAsZero(t *testing.T) {
	out := newTestSection(t, 8)
	out.WriteUleb128p1(NoIndex)
	assert.Equal(t, uint32(1), out.Used())

	in := reopen(out)
	assert.Equal(t, byte(0), in.ReadByte())
}

func TestSleb128RoundTrip(t *testing.T) {
	values := []int32{0, 1, -1, 63, 64, -64, -65, 0x7fff, -0x8000, 1<<31 - 1, -1 << 31}

	out := newTestSection(t, 64)
	for _, v := range values {
		out.WriteSleb128(v)
	}

	in := reopen(out)
	for _, v := range values {
		assert.Equal(t, v, in.ReadSleb128())
	}
}

func TestStringDataRoundTrip(t *testing.T) {
	strings := []string{
		"",
		"hello",
		"Ljava/lang/Object;",
		"snowman ☃",
		"nul \x00 embedded",
		"astral \U0001F600",
	}

	for _, s := range strings {
		out := newTestSection(t, 64)
		out.WriteStringData(s)

		in := reopen(out)
		assert.Equal(t, s, in.ReadString())
	}
}

func TestMutf8EncodesNulWithoutZeroByte(t *testing.T) {
	_, encoded := encodeMutf8("a\x00b")
	assert.NotContains(t, encoded, byte(0))
	assert.Equal(t, []byte{'a', 0xc0, 0x80, 'b'}, encoded)
}

func TestFixedWidthRoundTrip(t *testing.T) {
	out := newTestSection(t, 16)
	out.WriteByte(0xab)
	out.WriteUint16(0xcdef)
	out.WriteUint32(0x12345678)

	in := reopen(out)
	assert.Equal(t, byte(0xab), in.ReadByte())
	assert.Equal(t, uint16(0xcdef), in.ReadUint16())
	assert.Equal(t, uint32(0x12345678), in.ReadUint32())
}

func TestAlignToFourBytes(t *testing.T) {
	out := newTestSection(t, 16)
	out.WriteByte(1)
	out.AlignToFourBytes()
	assert.Equal(t, uint32(4), out.Used())

	// already aligned: no padding
	out.AlignToFourBytes()
	assert.Equal(t, uint32(4), out.Used())
}

func TestAssertFourByteAligned(t *testing.T) {
	run := func(misalign bool) (err error) {
		defer CatchError(&err)
		out := newTestSection(t, 16)
		if misalign {
			out.WriteByte(1)
		}
		out.AssertFourByteAligned()
		return nil
	}

	require.NoError(t, run(false))
	err := run(true)
	require.Error(t, err)
}

func TestSectionExhaustion(t *testing.T) {
	read := func() (err error) {
		defer CatchError(&err)
		out := newTestSection(t, 2)
		out.ReadUint32()
		return nil
	}
	require.Error(t, read())
}
