// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package merge

import (
	"sort"

	"github.com/dotandev/dexmerge/internal/dex"
	"github.com/dotandev/dexmerge/internal/errors"
)

// mergeClassDefs emits class_def_items in an order where every supertype
// and implemented interface defined in either input precedes its subclass,
// rewriting class data and code through the index maps as it goes.
func (m *Merger) mergeClassDefs() {
	types := m.sortedTypes()
	m.contentsOut.ClassDefs.Off = m.idsDefsOut.Pos()
	m.contentsOut.ClassDefs.Size = uint32(len(types))

	for _, t := range types {
		m.transformClassDef(t.source, t.def, t.indexMap)
	}
}

// sortedTypes builds the union of classes from both inputs in a sparse
// array indexed by new type index, assigns hierarchy depths, and returns
// the types sorted by (depth, type index).
func (m *Merger) sortedTypes() []*sortableType {
	types := make([]*sortableType, m.contentsOut.TypeIDs.Size)
	m.readSortableTypes(types, m.dexA, m.aIndexMap)
	m.readSortableTypes(types, m.dexB, m.bIndexMap)

	if !m.removal.Empty() {
		for i, t := range types {
			if t != nil && m.removal.RemovesType(uint32(i)) {
				types[i] = nil
			}
		}
	}

	// Each pass assigns a depth to every type whose referenced types are
	// done, so the pass count is at most the depth of the deepest hierarchy. A
	// pass with no progress while types remain unassigned means the
	// inputs declare a cycle.
	for {
		allDone := true
		progress := false
		for _, t := range types {
			if t != nil && !t.isDepthAssigned() {
				if t.tryAssignDepth(types) {
					progress = true
				} else {
					allDone = false
				}
			}
		}
		if allDone {
			break
		}
		if !progress {
			dex.Fail(errors.WrapMalformedInput("cyclic class hierarchy"))
		}
	}

	sorted := make([]*sortableType, 0, len(types))
	for _, t := range types {
		if t != nil {
			sorted = append(sorted, t)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].depth != sorted[j].depth {
			return sorted[i].depth < sorted[j].depth
		}
		return sorted[i].def.TypeIndex < sorted[j].def.TypeIndex
	})
	return sorted
}

func (m *Merger) readSortableTypes(types []*sortableType, source *dex.Dex, indexMap *IndexMap) {
	for _, def := range source.ClassDefs() {
		adjusted := indexMap.AdjustClassDef(def)
		t := adjusted.TypeIndex
		if types[t] == nil {
			types[t] = &sortableType{source: source, indexMap: indexMap, def: adjusted}
		} else if m.policy != KeepFirst {
			dex.Fail(errors.WrapCollision(source.TypeNameAt(def.TypeIndex)))
		}
	}
}

// transformClassDef writes one class_def_item. Its type, supertype and
// interfaces were remapped when the sortable type was built; the remaining
// references are remapped here, and class data is re-encoded contiguously.
func (m *Merger) transformClassDef(in *dex.Dex, def dex.ClassDef, indexMap *IndexMap) {
	out := m.idsDefsOut
	out.AssertFourByteAligned()
	out.WriteUint32(def.TypeIndex)
	out.WriteUint32(def.AccessFlags)
	out.WriteUint32(def.SupertypeIndex)
	out.WriteUint32(def.InterfacesOffset)
	out.WriteUint32(indexMap.AdjustString(def.SourceFileIndex))
	out.WriteUint32(indexMap.AdjustAnnotationDirectoryOffset(def.AnnotationsOffset))

	if def.ClassDataOffset == 0 {
		out.WriteUint32(0)
	} else {
		out.WriteUint32(m.classDataOut.Pos())
		m.transformClassData(in, in.ReadClassData(def), indexMap)
	}

	out.WriteUint32(indexMap.AdjustStaticValuesOffset(def.StaticValuesOffset))
}

func (m *Merger) transformClassData(in *dex.Dex, classData dex.ClassData, indexMap *IndexMap) {
	m.contentsOut.ClassDatas.Size++

	out := m.classDataOut
	out.WriteUleb128(uint32(len(classData.StaticFields)))
	out.WriteUleb128(uint32(len(classData.InstanceFields)))
	out.WriteUleb128(uint32(len(classData.DirectMethods)))
	out.WriteUleb128(uint32(len(classData.VirtualMethods)))

	m.transformFields(indexMap, classData.StaticFields)
	m.transformFields(indexMap, classData.InstanceFields)
	m.transformMethods(in, indexMap, classData.DirectMethods)
	m.transformMethods(in, indexMap, classData.VirtualMethods)
}

// transformFields re-emits a field list with the deltas recomputed in the
// new index space.
func (m *Merger) transformFields(indexMap *IndexMap, fields []dex.Field) {
	lastOutFieldIndex := uint32(0)
	for _, field := range fields {
		outFieldIndex := indexMap.AdjustField(field.FieldIndex)
		m.classDataOut.WriteUleb128(outFieldIndex - lastOutFieldIndex)
		lastOutFieldIndex = outFieldIndex
		m.classDataOut.WriteUleb128(field.AccessFlags)
	}
}

func (m *Merger) transformMethods(in *dex.Dex, indexMap *IndexMap, methods []dex.Method) {
	lastOutMethodIndex := uint32(0)
	for _, method := range methods {
		outMethodIndex := indexMap.AdjustMethod(method.MethodIndex)
		m.classDataOut.WriteUleb128(outMethodIndex - lastOutMethodIndex)
		lastOutMethodIndex = outMethodIndex

		m.classDataOut.WriteUleb128(method.AccessFlags)

		if method.CodeOffset == 0 {
			m.classDataOut.WriteUleb128(0)
		} else {
			m.codeOut.AlignToFourBytes()
			m.classDataOut.WriteUleb128(m.codeOut.Pos())
			m.transformCode(in, in.ReadCode(method), indexMap)
		}
	}
}

func (m *Merger) transformCode(in *dex.Dex, code dex.Code, indexMap *IndexMap) {
	m.contentsOut.Codes.Size++
	out := m.codeOut
	out.AssertFourByteAligned()

	out.WriteUint16(code.RegistersSize)
	out.WriteUint16(code.InsSize)
	out.WriteUint16(code.OutsSize)
	out.WriteUint16(uint16(len(code.Tries)))

	if code.DebugInfoOffset != 0 {
		out.WriteUint32(m.debugInfoOut.Pos())
		m.transformDebugInfoItem(in.Open(code.DebugInfoOffset), indexMap)
	} else {
		out.WriteUint32(0)
	}

	transformer := m.bInstructionTransformer
	if in == m.dexA {
		transformer = m.aInstructionTransformer
	}
	newInstructions := transformer.Transform(code.Instructions)
	out.WriteUint32(uint32(len(newInstructions)))
	out.WriteShorts(newInstructions)

	if len(code.Tries) > 0 {
		if len(newInstructions)%2 == 1 {
			out.WriteUint16(0) // padding
		}

		// The tries reference their catch handlers by offset, but the
		// handler list is encoded after the tries. Reserve the try
		// items, emit the handlers recording each one's offset, then
		// go back and fill in the tries.
		triesSection := m.out.Open(out.Pos())
		out.Skip(len(code.Tries) * dex.SizeTryItem)
		offsets := m.transformCatchHandlers(indexMap, code.CatchHandlers)
		m.transformTries(triesSection, code.Tries, offsets)
	}
}

// transformCatchHandlers writes the catch handler list and returns each
// handler's offset relative to the start of the list.
func (m *Merger) transformCatchHandlers(indexMap *IndexMap, catchHandlers []dex.CatchHandler) []uint32 {
	baseOffset := m.codeOut.Pos()
	m.codeOut.WriteUleb128(uint32(len(catchHandlers)))
	offsets := make([]uint32, len(catchHandlers))
	for i, handler := range catchHandlers {
		offsets[i] = m.codeOut.Pos() - baseOffset
		m.transformEncodedCatchHandler(handler, indexMap)
	}
	return offsets
}

func (m *Merger) transformEncodedCatchHandler(handler dex.CatchHandler, indexMap *IndexMap) {
	out := m.codeOut
	if handler.HasCatchAll {
		out.WriteSleb128(-int32(len(handler.TypeIndexes)))
	} else {
		out.WriteSleb128(int32(len(handler.TypeIndexes)))
	}
	for i, typeIndex := range handler.TypeIndexes {
		out.WriteUleb128(indexMap.AdjustType(typeIndex))
		out.WriteUleb128(handler.Addresses[i])
	}
	if handler.HasCatchAll {
		out.WriteUleb128(handler.CatchAllAddress)
	}
}

func (m *Merger) transformTries(out *dex.Section, tries []dex.Try, catchHandlerOffsets []uint32) {
	for _, tryItem := range tries {
		out.WriteUint32(tryItem.StartAddress)
		out.WriteUint16(tryItem.InstructionCount)
		out.WriteUint16(uint16(catchHandlerOffsets[tryItem.CatchHandlerIndex]))
	}
}

// Debug info opcodes. Everything from 0x0a up encodes implicit
// address and line deltas and carries no payload.
const (
	dbgEndSequence      = 0x00
	dbgAdvancePC        = 0x01
	dbgAdvanceLine      = 0x02
	dbgStartLocal       = 0x03
	dbgStartLocalExt    = 0x04
	dbgEndLocal         = 0x05
	dbgRestartLocal     = 0x06
	dbgSetPrologueEnd   = 0x07
	dbgSetEpilogueBegin = 0x08
	dbgSetFile          = 0x09
)

// transformDebugInfoItem re-emits a debug info opcode stream, remapping the
// string and type indices embedded in it. Indices use uleb128p1, which
// stores value+1 so that zero encodes the NoIndex sentinel; the sentinel
// passes through the adjustment unchanged.
func (m *Merger) transformDebugInfoItem(in *dex.Section, indexMap *IndexMap) {
	m.contentsOut.DebugInfos.Size++
	out := m.debugInfoOut

	lineStart := in.ReadUleb128()
	out.WriteUleb128(lineStart)

	parametersSize := in.ReadUleb128()
	out.WriteUleb128(parametersSize)

	for p := uint32(0); p < parametersSize; p++ {
		parameterName := in.ReadUleb128p1()
		out.WriteUleb128p1(indexMap.AdjustString(parameterName))
	}

	for {
		opcode := in.ReadByte()
		out.WriteByte(opcode)

		switch opcode {
		case dbgEndSequence:
			return

		case dbgAdvancePC:
			out.WriteUleb128(in.ReadUleb128()) // addr-diff

		case dbgAdvanceLine:
			out.WriteSleb128(in.ReadSleb128()) // line-diff

		case dbgStartLocal, dbgStartLocalExt:
			out.WriteUleb128(in.ReadUleb128()) // register
			out.WriteUleb128p1(indexMap.AdjustString(in.ReadUleb128p1()))
			out.WriteUleb128p1(indexMap.AdjustType(in.ReadUleb128p1()))
			if opcode == dbgStartLocalExt {
				out.WriteUleb128p1(indexMap.AdjustString(in.ReadUleb128p1()))
			}

		case dbgEndLocal, dbgRestartLocal:
			out.WriteUleb128(in.ReadUleb128()) // register

		case dbgSetFile:
			out.WriteUleb128p1(indexMap.AdjustString(in.ReadUleb128p1()))

		case dbgSetPrologueEnd, dbgSetEpilogueBegin:
			// no payload

		default:
			// adjusted line/addr opcodes pass through
		}
	}
}
