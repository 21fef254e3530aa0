// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package merge

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotandev/dexmerge/internal/dex"
)

// The merger's inputs in these tests are assembled by a small builder that
// takes a symbolic description (descriptors and names instead of indices)
// and produces a conformant container: sorted ID sections, delta-encoded
// class data, aligned code items, header, map list and hashes.

type testProto struct {
	shorty string
	ret    string
	params []string
}

type testField struct {
	class, typ, name string
}

type testMethod struct {
	class, name string
	proto       testProto
}

type testTry struct {
	startAddr uint32
	insnCount uint16
	catchType string
	catchAddr uint32
}

// indexLookup resolves symbolic references against the builder's assigned
// indices, for encoding instruction streams.
type indexLookup struct {
	str    func(string) uint16
	typ    func(string) uint16
	field  func(testField) uint16
	method func(testMethod) uint16
}

type testCode struct {
	registers uint16
	makeInsns func(lk indexLookup) []uint16
	try       *testTry
	debug     *testDebug
}

type testDebug struct {
	lineStart  uint32
	paramNames []string
}

type testClassMethod struct {
	method testMethod
	code   *testCode
}

type testClass struct {
	descriptor string
	superclass string
	interfaces []string
	sourceFile string
	fields     []testField
	methods    []testClassMethod
}

type testDexInput struct {
	extraStrings []string
	extraTypes   []string
	fields       []testField
	methods      []testMethod
	classes      []testClass
}

type builtDex struct {
	*dex.Dex
	stringIndex map[string]uint32
	typeIndex   map[string]uint32
	fieldIndex  map[testField]uint32
	methodIndex map[string]uint32
}

func protoKey(p testProto) string {
	k := p.shorty + "|" + p.ret
	for _, param := range p.params {
		k += "|" + param
	}
	return k
}

func methodKey(m testMethod) string {
	return m.class + "|" + m.name + "|" + protoKey(m.proto)
}

func buildTestDex(t *testing.T, input testDexInput) *builtDex {
	t.Helper()

	// Collect the string and type pools.
	stringSet := map[string]bool{}
	typeSet := map[string]bool{}
	addType := func(desc string) {
		if desc != "" {
			typeSet[desc] = true
			stringSet[desc] = true
		}
	}
	for _, s := range input.extraStrings {
		stringSet[s] = true
	}
	for _, d := range input.extraTypes {
		addType(d)
	}
	protoSet := map[string]testProto{}
	addProto := func(p testProto) {
		stringSet[p.shorty] = true
		addType(p.ret)
		for _, param := range p.params {
			addType(param)
		}
		protoSet[protoKey(p)] = p
	}
	fieldSet := map[testField]bool{}
	addField := func(f testField) {
		addType(f.class)
		addType(f.typ)
		stringSet[f.name] = true
		fieldSet[f] = true
	}
	methodSet := map[string]testMethod{}
	addMethod := func(mth testMethod) {
		addType(mth.class)
		stringSet[mth.name] = true
		addProto(mth.proto)
		methodSet[methodKey(mth)] = mth
	}
	for _, f := range input.fields {
		addField(f)
	}
	for _, mth := range input.methods {
		addMethod(mth)
	}
	for _, c := range input.classes {
		addType(c.descriptor)
		addType(c.superclass)
		for _, ifc := range c.interfaces {
			addType(ifc)
		}
		if c.sourceFile != "" {
			stringSet[c.sourceFile] = true
		}
		for _, f := range c.fields {
			addField(f)
		}
		for _, cm := range c.methods {
			addMethod(cm.method)
			if cm.code != nil {
				if cm.code.try != nil {
					addType(cm.code.try.catchType)
				}
				if cm.code.debug != nil {
					for _, name := range cm.code.debug.paramNames {
						stringSet[name] = true
					}
				}
			}
		}
	}

	// Assign indices in the file sort orders.
	strings := make([]string, 0, len(stringSet))
	for s := range stringSet {
		strings = append(strings, s)
	}
	sort.Strings(strings)
	stringIndex := map[string]uint32{}
	for i, s := range strings {
		stringIndex[s] = uint32(i)
	}

	types := make([]string, 0, len(typeSet))
	for d := range typeSet {
		types = append(types, d)
	}
	sort.Strings(types) // string indices sort with content, so this is index order
	typeIndex := map[string]uint32{}
	for i, d := range types {
		typeIndex[d] = uint32(i)
	}

	protos := make([]testProto, 0, len(protoSet))
	for _, p := range protoSet {
		protos = append(protos, p)
	}
	sort.Slice(protos, func(i, j int) bool {
		a, b := protos[i], protos[j]
		if typeIndex[a.ret] != typeIndex[b.ret] {
			return typeIndex[a.ret] < typeIndex[b.ret]
		}
		for k := 0; k < len(a.params) && k < len(b.params); k++ {
			if typeIndex[a.params[k]] != typeIndex[b.params[k]] {
				return typeIndex[a.params[k]] < typeIndex[b.params[k]]
			}
		}
		return len(a.params) < len(b.params)
	})
	protoIndex := map[string]uint32{}
	for i, p := range protos {
		protoIndex[protoKey(p)] = uint32(i)
	}

	fields := make([]testField, 0, len(fieldSet))
	for f := range fieldSet {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool {
		a, b := fields[i], fields[j]
		if typeIndex[a.class] != typeIndex[b.class] {
			return typeIndex[a.class] < typeIndex[b.class]
		}
		if stringIndex[a.name] != stringIndex[b.name] {
			return stringIndex[a.name] < stringIndex[b.name]
		}
		return typeIndex[a.typ] < typeIndex[b.typ]
	})
	fieldIndex := map[testField]uint32{}
	for i, f := range fields {
		fieldIndex[f] = uint32(i)
	}

	methods := make([]testMethod, 0, len(methodSet))
	for _, mth := range methodSet {
		methods = append(methods, mth)
	}
	sort.Slice(methods, func(i, j int) bool {
		a, b := methods[i], methods[j]
		if typeIndex[a.class] != typeIndex[b.class] {
			return typeIndex[a.class] < typeIndex[b.class]
		}
		if stringIndex[a.name] != stringIndex[b.name] {
			return stringIndex[a.name] < stringIndex[b.name]
		}
		return protoIndex[protoKey(a.proto)] < protoIndex[protoKey(b.proto)]
	})
	methodIdx := map[string]uint32{}
	for i, mth := range methods {
		methodIdx[methodKey(mth)] = uint32(i)
	}

	// Unique non-empty type lists: proto parameters and interface lists.
	typeListKeys := map[string][]string{}
	addTypeList := func(descs []string) {
		if len(descs) == 0 {
			return
		}
		k := ""
		for _, d := range descs {
			k += d + "|"
		}
		typeListKeys[k] = descs
	}
	for _, p := range protos {
		addTypeList(p.params)
	}
	for _, c := range input.classes {
		addTypeList(c.interfaces)
	}

	// Lay the file out. Data sections get generous budgets; the table of
	// contents records what is actually used.
	d := dex.New()
	toc := d.TOC()
	header := d.Append(dex.SizeHeaderItem, "header")

	toc.StringIDs.Off = uint32(d.Length())
	toc.StringIDs.Size = uint32(len(strings))
	stringIDs := d.Append(len(strings)*dex.SizeStringIDItem, "string ids")

	toc.TypeIDs.Off = uint32(d.Length())
	toc.TypeIDs.Size = uint32(len(types))
	typeIDs := d.Append(len(types)*dex.SizeTypeIDItem, "type ids")

	toc.ProtoIDs.Off = uint32(d.Length())
	toc.ProtoIDs.Size = uint32(len(protos))
	protoIDs := d.Append(len(protos)*dex.SizeProtoIDItem, "proto ids")

	toc.FieldIDs.Off = uint32(d.Length())
	toc.FieldIDs.Size = uint32(len(fields))
	fieldIDs := d.Append(len(fields)*dex.SizeMemberIDItem, "field ids")

	toc.MethodIDs.Off = uint32(d.Length())
	toc.MethodIDs.Size = uint32(len(methods))
	methodIDs := d.Append(len(methods)*dex.SizeMemberIDItem, "method ids")

	toc.ClassDefs.Off = uint32(d.Length())
	toc.ClassDefs.Size = uint32(len(input.classes))
	classDefs := d.Append(len(input.classes)*dex.SizeClassDefItem, "class defs")

	toc.DataOff = uint32(d.Length())
	toc.MapList.Off = uint32(d.Length())
	toc.MapList.Size = 1
	mapList := d.Append(dex.SizeUInt+18*dex.SizeMapItem, "map list")

	toc.TypeLists.Off = uint32(d.Length())
	typeListBudget := 0
	for _, descs := range typeListKeys {
		typeListBudget += dex.FourByteAlign(dex.SizeUInt + 2*len(descs))
	}
	typeLists := d.Append(typeListBudget, "type lists")

	toc.ClassDatas.Off = uint32(d.Length())
	classDatas := d.Append(64*len(input.classes)+64, "class datas")

	toc.Codes.Off = uint32(d.Length())
	codeBudget := 64
	for _, c := range input.classes {
		for _, cm := range c.methods {
			if cm.code != nil {
				codeBudget += 96 + 2*64
			}
		}
	}
	codes := d.Append(codeBudget, "codes")

	toc.StringDatas.Off = uint32(d.Length())
	stringDataBudget := 0
	for _, s := range strings {
		stringDataBudget += 3*len(s) + 8
	}
	stringDatas := d.Append(stringDataBudget, "string datas")

	toc.DebugInfos.Off = uint32(d.Length())
	debugInfos := d.Append(64*len(input.classes)+64, "debug infos")

	// string data + string ids
	for _, s := range strings {
		stringIDs.WriteUint32(stringDatas.Pos())
		stringDatas.WriteStringData(s)
	}
	toc.StringDatas.Size = uint32(len(strings))

	// type ids
	for _, desc := range types {
		typeIDs.WriteUint32(stringIndex[desc])
	}

	// type lists
	typeListOffsets := map[string]uint32{}
	listKeys := make([]string, 0, len(typeListKeys))
	for k := range typeListKeys {
		listKeys = append(listKeys, k)
	}
	sort.Strings(listKeys)
	for _, k := range listKeys {
		descs := typeListKeys[k]
		typeLists.AlignToFourBytes()
		typeListOffsets[k] = typeLists.Pos()
		typeLists.WriteUint32(uint32(len(descs)))
		for _, desc := range descs {
			typeLists.WriteUint16(uint16(typeIndex[desc]))
		}
	}
	toc.TypeLists.Size = uint32(len(listKeys))
	listOffset := func(descs []string) uint32 {
		if len(descs) == 0 {
			return 0
		}
		k := ""
		for _, d := range descs {
			k += d + "|"
		}
		return typeListOffsets[k]
	}

	// proto ids
	for _, p := range protos {
		protoIDs.WriteUint32(stringIndex[p.shorty])
		protoIDs.WriteUint32(typeIndex[p.ret])
		protoIDs.WriteUint32(listOffset(p.params))
	}

	// field and method ids
	for _, f := range fields {
		fieldIDs.WriteUint16(uint16(typeIndex[f.class]))
		fieldIDs.WriteUint16(uint16(typeIndex[f.typ]))
		fieldIDs.WriteUint32(stringIndex[f.name])
	}
	for _, mth := range methods {
		methodIDs.WriteUint16(uint16(typeIndex[mth.class]))
		methodIDs.WriteUint16(uint16(protoIndex[protoKey(mth.proto)]))
		methodIDs.WriteUint32(stringIndex[mth.name])
	}

	lk := indexLookup{
		str:    func(s string) uint16 { return uint16(stringIndex[s]) },
		typ:    func(s string) uint16 { return uint16(typeIndex[s]) },
		field:  func(f testField) uint16 { return uint16(fieldIndex[f]) },
		method: func(mth testMethod) uint16 { return uint16(methodIdx[methodKey(mth)]) },
	}

	// codes, class datas, class defs
	for _, c := range input.classes {
		classDataOff := uint32(0)
		if len(c.fields) > 0 || len(c.methods) > 0 {
			codeOffsets := make([]uint32, len(c.methods))
			for i, cm := range c.methods {
				if cm.code == nil {
					continue
				}
				codes.AlignToFourBytes()
				codeOffsets[i] = codes.Pos()
				writeTestCode(t, codes, debugInfos, toc, cm.code, lk)
			}

			classDataOff = classDatas.Pos()
			toc.ClassDatas.Size++
			classDatas.WriteUleb128(uint32(len(c.fields)))
			classDatas.WriteUleb128(0)
			classDatas.WriteUleb128(uint32(len(c.methods)))
			classDatas.WriteUleb128(0)
			sortedFields := append([]testField{}, c.fields...)
			sort.Slice(sortedFields, func(i, j int) bool {
				return fieldIndex[sortedFields[i]] < fieldIndex[sortedFields[j]]
			})
			last := uint32(0)
			for _, f := range sortedFields {
				idx := fieldIndex[f]
				classDatas.WriteUleb128(idx - last)
				last = idx
				classDatas.WriteUleb128(0x9) // public static
			}
			type methodWithCode struct {
				idx     uint32
				codeOff uint32
			}
			sortedMethods := make([]methodWithCode, len(c.methods))
			for i, cm := range c.methods {
				sortedMethods[i] = methodWithCode{methodIdx[methodKey(cm.method)], codeOffsets[i]}
			}
			sort.Slice(sortedMethods, func(i, j int) bool {
				return sortedMethods[i].idx < sortedMethods[j].idx
			})
			last = 0
			for _, mwc := range sortedMethods {
				classDatas.WriteUleb128(mwc.idx - last)
				last = mwc.idx
				classDatas.WriteUleb128(0x1) // public
				classDatas.WriteUleb128(mwc.codeOff)
			}
		}

		super := dex.NoIndex
		if c.superclass != "" {
			super = typeIndex[c.superclass]
		}
		sourceFile := dex.NoIndex
		if c.sourceFile != "" {
			sourceFile = stringIndex[c.sourceFile]
		}
		classDefs.WriteUint32(typeIndex[c.descriptor])
		classDefs.WriteUint32(0x1) // public
		classDefs.WriteUint32(super)
		classDefs.WriteUint32(listOffset(c.interfaces))
		classDefs.WriteUint32(sourceFile)
		classDefs.WriteUint32(0) // annotations
		classDefs.WriteUint32(classDataOff)
		classDefs.WriteUint32(0) // static values
	}

	toc.Header.Off = 0
	toc.Header.Size = 1
	toc.FileSize = uint32(d.Length())
	toc.ComputeSizesFromOffsets()
	toc.WriteHeader(header)
	toc.WriteMap(mapList)
	d.WriteHashes()

	parsed, err := dex.FromBytes(d.Bytes())
	require.NoError(t, err, "builder produced an unreadable dex")

	return &builtDex{
		Dex:         parsed,
		stringIndex: stringIndex,
		typeIndex:   typeIndex,
		fieldIndex:  fieldIndex,
		methodIndex: methodIdx,
	}
}

func writeTestCode(t *testing.T, codes, debugInfos *dex.Section,
	toc *dex.TableOfContents, code *testCode, lk indexLookup) {
	t.Helper()
	toc.Codes.Size++

	insns := code.makeInsns(lk)

	registers := code.registers
	if registers == 0 {
		registers = 4
	}
	codes.WriteUint16(registers)
	codes.WriteUint16(1) // ins
	codes.WriteUint16(1) // outs
	tries := uint16(0)
	if code.try != nil {
		tries = 1
	}
	codes.WriteUint16(tries)

	if code.debug != nil {
		toc.DebugInfos.Size++
		codes.WriteUint32(debugInfos.Pos())
		debugInfos.WriteUleb128(code.debug.lineStart)
		debugInfos.WriteUleb128(uint32(len(code.debug.paramNames)))
		for _, name := range code.debug.paramNames {
			debugInfos.WriteUleb128p1(uint32(lk.str(name)))
		}
		debugInfos.WriteByte(0x00) // end sequence
	} else {
		codes.WriteUint32(0)
	}

	codes.WriteUint32(uint32(len(insns)))
	codes.WriteShorts(insns)

	if code.try != nil {
		if len(insns)%2 == 1 {
			codes.WriteUint16(0)
		}
		codes.WriteUint32(code.try.startAddr)
		codes.WriteUint16(code.try.insnCount)
		codes.WriteUint16(1) // handler offset within the list below
		codes.WriteUleb128(1)
		codes.WriteSleb128(1) // one typed handler, no catch-all
		codes.WriteUleb128(uint32(lk.typ(code.try.catchType)))
		codes.WriteUleb128(code.try.catchAddr)
	}
}
