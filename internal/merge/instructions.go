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

// Pseudo-instruction idents: a nop opcode with a payload tag in the high
// byte of the first code unit.
const (
	packedSwitchPayload = 0x0100
	sparseSwitchPayload = 0x0200
	fillArrayPayload    = 0x0300
)

type indexKind uint8

const (
	indexNone indexKind = iota
	indexString
	indexType
	indexField
	indexMethod
)

// instructionFormat gives the size of an instruction in 16-bit code units
// and the kind of cross-referenced index it embeds. Width zero marks an
// opcode with no defined format.
type instructionFormat struct {
	width uint8
	kind  indexKind
}

var formats [256]instructionFormat

func setFormats(lo, hi byte, width uint8, kind indexKind) {
	for op := int(lo); op <= int(hi); op++ {
		formats[op] = instructionFormat{width: width, kind: kind}
	}
}

func init() {
	setFormats(0x00, 0x01, 1, indexNone)   // nop, move
	setFormats(0x02, 0x02, 2, indexNone)   // move/from16
	setFormats(0x03, 0x03, 3, indexNone)   // move/16
	setFormats(0x04, 0x04, 1, indexNone)   // move-wide
	setFormats(0x05, 0x05, 2, indexNone)   // move-wide/from16
	setFormats(0x06, 0x06, 3, indexNone)   // move-wide/16
	setFormats(0x07, 0x07, 1, indexNone)   // move-object
	setFormats(0x08, 0x08, 2, indexNone)   // move-object/from16
	setFormats(0x09, 0x09, 3, indexNone)   // move-object/16
	setFormats(0x0a, 0x12, 1, indexNone)   // move-result..return-object, const/4
	setFormats(0x13, 0x13, 2, indexNone)   // const/16
	setFormats(0x14, 0x14, 3, indexNone)   // const
	setFormats(0x15, 0x16, 2, indexNone)   // const/high16, const-wide/16
	setFormats(0x17, 0x17, 3, indexNone)   // const-wide/32
	setFormats(0x18, 0x18, 5, indexNone)   // const-wide
	setFormats(0x19, 0x19, 2, indexNone)   // const-wide/high16
	setFormats(0x1a, 0x1a, 2, indexString) // const-string
	setFormats(0x1b, 0x1b, 3, indexString) // const-string/jumbo
	setFormats(0x1c, 0x1c, 2, indexType)   // const-class
	setFormats(0x1d, 0x1e, 1, indexNone)   // monitor-enter, monitor-exit
	setFormats(0x1f, 0x20, 2, indexType)   // check-cast, instance-of
	setFormats(0x21, 0x21, 1, indexNone)   // array-length
	setFormats(0x22, 0x23, 2, indexType)   // new-instance, new-array
	setFormats(0x24, 0x25, 3, indexType)   // filled-new-array[/range]
	setFormats(0x26, 0x26, 3, indexNone)   // fill-array-data
	setFormats(0x27, 0x28, 1, indexNone)   // throw, goto
	setFormats(0x29, 0x29, 2, indexNone)   // goto/16
	setFormats(0x2a, 0x2c, 3, indexNone)   // goto/32, packed-switch, sparse-switch
	setFormats(0x2d, 0x3d, 2, indexNone)   // cmp*, if-test, if-testz
	setFormats(0x44, 0x51, 2, indexNone)   // aget*, aput*
	setFormats(0x52, 0x6d, 2, indexField)  // iget*, iput*, sget*, sput*
	setFormats(0x6e, 0x72, 3, indexMethod) // invoke-*
	setFormats(0x74, 0x78, 3, indexMethod) // invoke-*/range
	setFormats(0x7b, 0x8f, 1, indexNone)   // unary ops
	setFormats(0x90, 0xaf, 2, indexNone)   // binary ops
	setFormats(0xb0, 0xcf, 1, indexNone)   // binary ops /2addr
	setFormats(0xd0, 0xd7, 2, indexNone)   // binary ops /lit16
	setFormats(0xd8, 0xe2, 2, indexNone)   // binary ops /lit8
}

// InstructionTransformer rewrites the cross-referenced indices embedded in
// a register-VM instruction stream. Every instruction is copied unchanged
// except for its index field, so the stream is walked purely by per-opcode
// width.
type InstructionTransformer struct {
	indexMap *IndexMap
}

func NewInstructionTransformer(indexMap *IndexMap) *InstructionTransformer {
	return &InstructionTransformer{indexMap: indexMap}
}

// Transform returns a copy of insns with every embedded index remapped.
func (t *InstructionTransformer) Transform(insns []uint16) []uint16 {
	out := make([]uint16, len(insns))
	copy(out, insns)

	for i := 0; i < len(insns); {
		first := insns[i]
		op := byte(first)

		if op == 0x00 && first>>8 != 0 {
			i += t.payloadWidth(insns, i)
			continue
		}

		f := formats[op]
		if f.width == 0 {
			dex.Fail(errors.WrapUnsupported("opcode 0x%02x at code unit %d", op, i))
		}
		if i+int(f.width) > len(insns) {
			dex.Fail(errors.WrapMalformedInput(
				"instruction 0x%02x at code unit %d overruns the stream", op, i))
		}

		switch f.kind {
		case indexString:
			if op == 0x1b {
				// const-string/jumbo carries a 32-bit index.
				old := uint32(insns[i+1]) | uint32(insns[i+2])<<16
				adjusted := t.indexMap.AdjustString(old)
				out[i+1] = uint16(adjusted)
				out[i+2] = uint16(adjusted >> 16)
			} else {
				adjusted := t.indexMap.AdjustString(uint32(insns[i+1]))
				if adjusted > 0xffff {
					dex.Fail(errors.WrapIndexOverflow("string", int(adjusted)))
				}
				out[i+1] = uint16(adjusted)
			}
		case indexType:
			out[i+1] = uint16(t.indexMap.AdjustType(uint32(insns[i+1])))
		case indexField:
			out[i+1] = uint16(t.indexMap.AdjustField(uint32(insns[i+1])))
		case indexMethod:
			out[i+1] = uint16(t.indexMap.AdjustMethod(uint32(insns[i+1])))
		}

		i += int(f.width)
	}
	return out
}

// payloadWidth returns the size in code units of the switch or array-data
// payload starting at i.
func (t *InstructionTransformer) payloadWidth(insns []uint16, i int) int {
	var width int
	switch insns[i] {
	case packedSwitchPayload:
		if i+1 >= len(insns) {
			dex.Fail(errors.WrapMalformedInput("truncated packed-switch payload at %d", i))
		}
		width = int(insns[i+1])*2 + 4
	case sparseSwitchPayload:
		if i+1 >= len(insns) {
			dex.Fail(errors.WrapMalformedInput("truncated sparse-switch payload at %d", i))
		}
		width = int(insns[i+1])*4 + 2
	case fillArrayPayload:
		if i+3 >= len(insns) {
			dex.Fail(errors.WrapMalformedInput("truncated fill-array-data payload at %d", i))
		}
		elementWidth := int(insns[i+1])
		size := int(insns[i+2]) | int(insns[i+3])<<16
		width = (size*elementWidth+1)/2 + 4
	default:
		dex.Fail(errors.WrapMalformedInput("unknown payload ident 0x%04x at %d", insns[i], i))
	}
	if i+width > len(insns) {
		dex.Fail(errors.WrapMalformedInput("payload at code unit %d overruns the stream", i))
	}
	return width
}
