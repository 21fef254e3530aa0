// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotandev/dexmerge/internal/dex"
	"github.com/dotandev/dexmerge/internal/errors"
)

// shiftedIndexMap builds an index map that adds a fixed shift to every
// index, so remapped operands are easy to recognize.
func shiftedIndexMap(size int, shift int) *IndexMap {
	m := &IndexMap{
		StringIDs:                  make([]uint32, size),
		TypeIDs:                    make([]uint16, size),
		ProtoIDs:                   make([]uint16, size),
		FieldIDs:                   make([]uint16, size),
		MethodIDs:                  make([]uint16, size),
		typeListOffsets:            map[uint32]uint32{0: 0},
		annotationOffsets:          map[uint32]uint32{0: 0},
		annotationSetOffsets:       map[uint32]uint32{0: 0},
		annotationSetRefOffsets:    map[uint32]uint32{0: 0},
		annotationDirectoryOffsets: map[uint32]uint32{0: 0},
		staticValuesOffsets:        map[uint32]uint32{0: 0},
	}
	for i := 0; i < size; i++ {
		m.StringIDs[i] = uint32(i + shift)
		m.TypeIDs[i] = uint16(i + shift)
		m.ProtoIDs[i] = uint16(i + shift)
		m.FieldIDs[i] = uint16(i + shift)
		m.MethodIDs[i] = uint16(i + shift)
	}
	return m
}

func transform(insns []uint16, m *IndexMap) (out []uint16, err error) {
	defer dex.CatchError(&err)
	return NewInstructionTransformer(m).Transform(insns), nil
}

func TestTransformRemapsIndexOperands(t *testing.T) {
	m := shiftedIndexMap(16, 100)

	tests := []struct {
		name string
		in   []uint16
		want []uint16
	}{
		{
			name: "const-string 21c",
			in:   []uint16{0x001a, 5},
			want: []uint16{0x001a, 105},
		},
		{
			name: "const-class 21c",
			in:   []uint16{0x001c, 7},
			want: []uint16{0x001c, 107},
		},
		{
			name: "instance-of 22c",
			in:   []uint16{0x1020, 3},
			want: []uint16{0x1020, 103},
		},
		{
			name: "iget 22c field",
			in:   []uint16{0x1052, 2},
			want: []uint16{0x1052, 102},
		},
		{
			name: "sput 21c field",
			in:   []uint16{0x0067, 4},
			want: []uint16{0x0067, 104},
		},
		{
			name: "invoke-virtual 35c",
			in:   []uint16{0x106e, 6, 0x0000},
			want: []uint16{0x106e, 106, 0x0000},
		},
		{
			name: "invoke-static/range 3rc",
			in:   []uint16{0x0177, 1, 0x0000},
			want: []uint16{0x0177, 101, 0x0000},
		},
		{
			name: "operands of plain instructions pass through",
			in:   []uint16{0x000e, 0x2b01, 0x1234, 0x0000},
			want: nil, // same as input
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := transform(tc.in, m)
			require.NoError(t, err)
			want := tc.want
			if want == nil {
				want = tc.in
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestTransformJumboString(t *testing.T) {
	m := &IndexMap{StringIDs: []uint32{0x12345}}

	got, err := transform([]uint16{0x001b, 0, 0}, m)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x001b, 0x2345, 0x0001}, got)
}

func TestTransformStringOverflow(t *testing.T) {
	m := &IndexMap{StringIDs: []uint32{0x10000}}

	_, err := transform([]uint16{0x001a, 0}, m)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrIndexOverflow)
}

func TestTransformWalksPayloads(t *testing.T) {
	m := shiftedIndexMap(16, 100)

	// packed-switch payload (2 entries), then a const-string that must
	// still be reached and remapped
	in := []uint16{
		0x0100, 2, 0x1111, 0x0000, 0x2222, 0x0000, 0x3333, 0x0000, // 2+2*2+... ident,size,first_key(2),targets(2*2)
		0x001a, 1,
	}
	got, err := transform(in, m)
	require.NoError(t, err)
	assert.Equal(t, uint16(101), got[9])
	assert.Equal(t, in[:8], got[:8], "payload contents must be copied verbatim")
}

func TestTransformFillArrayPayload(t *testing.T) {
	m := shiftedIndexMap(16, 100)

	// fill-array-data payload: width 2, 3 elements -> (3*2+1)/2+4 = 7 units
	in := []uint16{
		0x0300, 2, 3, 0, 0xaaaa, 0xbbbb, 0xcccc,
		0x001a, 2,
	}
	got, err := transform(in, m)
	require.NoError(t, err)
	assert.Equal(t, uint16(102), got[8])
}

func TestTransformWideAndBranchWidths(t *testing.T) {
	m := shiftedIndexMap(16, 100)

	// const-wide (51l, 5 units) followed by goto/32 (30t, 3 units) and a
	// type-carrying instruction; a wrong width table would misparse it
	in := []uint16{
		0x0018, 1, 2, 3, 4,
		0x002a, 0, 0,
		0x0022, 9,
	}
	got, err := transform(in, m)
	require.NoError(t, err)
	assert.Equal(t, uint16(109), got[9])
}

func TestTransformRejectsUnknownOpcode(t *testing.T) {
	m := shiftedIndexMap(16, 100)

	_, err := transform([]uint16{0x003e}, m)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnsupported)
}

func TestTransformRejectsTruncatedInstruction(t *testing.T) {
	m := shiftedIndexMap(16, 100)

	_, err := transform([]uint16{0x001a}, m)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMalformedInput)
}
