// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package dex

// ClassData is a class_data_item with the field and method indices already
// delta-decoded into absolute values.
type ClassData struct {
	StaticFields   []Field
	InstanceFields []Field
	DirectMethods  []Method
	VirtualMethods []Method
}

type Field struct {
	FieldIndex  uint32
	AccessFlags uint32
}

type Method struct {
	MethodIndex uint32
	AccessFlags uint32
	CodeOffset  uint32
}

// ReadClassData decodes the class_data_item referenced by def.
func (d *Dex) ReadClassData(def ClassDef) ClassData {
	in := d.Open(def.ClassDataOffset)
	staticFields := in.ReadUleb128()
	instanceFields := in.ReadUleb128()
	directMethods := in.ReadUleb128()
	virtualMethods := in.ReadUleb128()
	return ClassData{
		StaticFields:   in.readFields(staticFields),
		InstanceFields: in.readFields(instanceFields),
		DirectMethods:  in.readMethods(directMethods),
		VirtualMethods: in.readMethods(virtualMethods),
	}
}

func (s *Section) readFields(count uint32) []Field {
	fields := make([]Field, count)
	fieldIndex := uint32(0)
	for i := range fields {
		fieldIndex += s.ReadUleb128() // delta from the previous entry
		fields[i] = Field{FieldIndex: fieldIndex, AccessFlags: s.ReadUleb128()}
	}
	return fields
}

func (s *Section) readMethods(count uint32) []Method {
	methods := make([]Method, count)
	methodIndex := uint32(0)
	for i := range methods {
		methodIndex += s.ReadUleb128()
		methods[i] = Method{
			MethodIndex: methodIndex,
			AccessFlags: s.ReadUleb128(),
			CodeOffset:  s.ReadUleb128(),
		}
	}
	return methods
}

// Code is a code_item: register frame sizes, the instruction stream, and
// try/catch metadata. Tries reference CatchHandlers by slice index rather
// than by encoded offset.
type Code struct {
	RegistersSize   uint16
	InsSize         uint16
	OutsSize        uint16
	DebugInfoOffset uint32
	Instructions    []uint16
	Tries           []Try
	CatchHandlers   []CatchHandler
}

type Try struct {
	StartAddress      uint32
	InstructionCount  uint16
	CatchHandlerIndex int
}

type CatchHandler struct {
	TypeIndexes     []uint32
	Addresses       []uint32
	HasCatchAll     bool
	CatchAllAddress uint32
}

// ReadCode decodes the code_item referenced by method.
func (d *Dex) ReadCode(method Method) Code {
	in := d.Open(method.CodeOffset)
	var code Code
	code.RegistersSize = in.ReadUint16()
	code.InsSize = in.ReadUint16()
	code.OutsSize = in.ReadUint16()
	triesSize := in.ReadUint16()
	code.DebugInfoOffset = in.ReadUint32()
	insnsSize := in.ReadUint32()
	code.Instructions = make([]uint16, insnsSize)
	for i := range code.Instructions {
		code.Instructions[i] = in.ReadUint16()
	}
	if triesSize > 0 {
		if insnsSize&1 == 1 {
			in.Skip(SizeUShort) // padding
		}

		// The tries reference their handlers by byte offset into the
		// handler list that follows; read the raw offsets first, the
		// handlers second, then resolve offsets to indices.
		type rawTry struct {
			startAddress     uint32
			instructionCount uint16
			handlerOff       uint16
		}
		raw := make([]rawTry, triesSize)
		for i := range raw {
			raw[i] = rawTry{in.ReadUint32(), in.ReadUint16(), in.ReadUint16()}
		}

		baseOffset := in.Pos()
		handlersSize := in.ReadUleb128()
		offsetToIndex := make(map[uint16]int, handlersSize)
		code.CatchHandlers = make([]CatchHandler, handlersSize)
		for i := range code.CatchHandlers {
			offsetToIndex[uint16(in.Pos()-baseOffset)] = i
			code.CatchHandlers[i] = in.readCatchHandler()
		}

		code.Tries = make([]Try, triesSize)
		for i, r := range raw {
			index, ok := offsetToIndex[r.handlerOff]
			if !ok {
				failf("try item %d references unknown handler offset %d", i, r.handlerOff)
			}
			code.Tries[i] = Try{r.startAddress, r.instructionCount, index}
		}
	}
	return code
}

func (s *Section) readCatchHandler() CatchHandler {
	var h CatchHandler
	size := s.ReadSleb128()
	count := size
	if size <= 0 {
		h.HasCatchAll = true
		count = -size
	}
	h.TypeIndexes = make([]uint32, count)
	h.Addresses = make([]uint32, count)
	for i := int32(0); i < count; i++ {
		h.TypeIndexes[i] = s.ReadUleb128()
		h.Addresses[i] = s.ReadUleb128()
	}
	if h.HasCatchAll {
		h.CatchAllAddress = s.ReadUleb128()
	}
	return h
}
