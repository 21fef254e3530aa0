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

// Package merge combines two dex files into one. The ID sections of the
// inputs are independently indexed; merging streams each pair of sections
// into a single deduplicated output section while recording old-to-new
// index mappings, then rewrites every dependent record and instruction
// stream through those mappings.
package merge

import (
	"sort"
	"strings"
	"time"

	"github.com/dotandev/dexmerge/internal/dex"
	"github.com/dotandev/dexmerge/internal/errors"
	"github.com/dotandev/dexmerge/internal/logger"
)

// CollisionPolicy decides what happens when both inputs define a class with
// the same type.
type CollisionPolicy int

const (
	// KeepFirst retains the first input's definition and silently drops
	// the second's.
	KeepFirst CollisionPolicy = iota
	// FailOnCollision aborts the merge naming the duplicated type.
	FailOnCollision
)

func (p CollisionPolicy) String() string {
	if p == FailOnCollision {
		return "fail"
	}
	return "keep-first"
}

// DefaultCompactWasteThreshold is the minimum number of wasted bytes before
// it is worthwhile to compact the result.
const DefaultCompactWasteThreshold = 1024 * 1024

// Options configures a merge.
type Options struct {
	Policy CollisionPolicy

	// RemoveClasses lists fully-qualified type descriptors (for example
	// "Ltest/Type1;") whose class definitions are excluded from the output.
	RemoveClasses []string

	// CompactWasteThreshold overrides DefaultCompactWasteThreshold when
	// positive.
	CompactWasteThreshold int

	// NoCompact skips the compaction pass regardless of waste.
	NoCompact bool
}

// Merger owns one merge invocation: the output buffer and its sections, the
// per-input index maps, and the collision and removal configuration. The
// inputs are read-only throughout.
type Merger struct {
	dexA *dex.Dex
	dexB *dex.Dex

	policy  CollisionPolicy
	removal *RemovalContext
	sizes   writerSizes

	compactWasteThreshold int
	noCompact             bool

	out         *dex.Dex
	contentsOut *dex.TableOfContents

	headerOut  *dex.Section
	idsDefsOut *dex.Section
	mapListOut *dex.Section

	typeListOut             *dex.Section
	annotationSetRefListOut *dex.Section
	annotationSetOut        *dex.Section
	classDataOut            *dex.Section
	codeOut                 *dex.Section
	stringDataOut           *dex.Section
	debugInfoOut            *dex.Section
	annotationOut           *dex.Section
	encodedArrayOut         *dex.Section
	annotationsDirectoryOut *dex.Section

	aIndexMap *IndexMap
	bIndexMap *IndexMap

	aInstructionTransformer *InstructionTransformer
	bInstructionTransformer *InstructionTransformer
}

// New prepares a merge of a and b with pessimistic section sizes.
func New(a, b *dex.Dex, opts Options) *Merger {
	threshold := opts.CompactWasteThreshold
	if threshold <= 0 {
		threshold = DefaultCompactWasteThreshold
	}
	m := newWithSizes(a, b, opts.Policy, NewRemovalContext(opts.RemoveClasses), newWriterSizes(a, b))
	m.compactWasteThreshold = threshold
	m.noCompact = opts.NoCompact
	return m
}

func newWithSizes(a, b *dex.Dex, policy CollisionPolicy, removal *RemovalContext, sizes writerSizes) *Merger {
	m := &Merger{
		dexA:                  a,
		dexB:                  b,
		policy:                policy,
		removal:               removal,
		sizes:                 sizes,
		compactWasteThreshold: DefaultCompactWasteThreshold,
		out:                   dex.New(),
	}

	m.aIndexMap = NewIndexMap(a.TOC())
	m.bIndexMap = NewIndexMap(b.TOC())
	m.aInstructionTransformer = NewInstructionTransformer(m.aIndexMap)
	m.bInstructionTransformer = NewInstructionTransformer(m.bIndexMap)

	t := m.out.TOC()
	m.contentsOut = t
	if a.TOC().Version == "037" || b.TOC().Version == "037" {
		t.Version = "037"
	}

	m.headerOut = m.out.Append(sizes.header, "header")
	m.idsDefsOut = m.out.Append(sizes.idsDefs, "ids defs")

	t.DataOff = uint32(m.out.Length())

	t.MapList.Off = uint32(m.out.Length())
	t.MapList.Size = 1
	m.mapListOut = m.out.Append(sizes.mapList, "map list")

	t.TypeLists.Off = uint32(m.out.Length())
	m.typeListOut = m.out.Append(sizes.typeList, "type list")

	t.AnnotationSetRefLists.Off = uint32(m.out.Length())
	m.annotationSetRefListOut = m.out.Append(sizes.annotationsSetRefList, "annotation set ref list")

	t.AnnotationSets.Off = uint32(m.out.Length())
	m.annotationSetOut = m.out.Append(sizes.annotationsSet, "annotation sets")

	t.ClassDatas.Off = uint32(m.out.Length())
	// class data budgets are not multiples of four; rounding this one up
	// starts the code section on a four-byte boundary in every pass, so the
	// padding before each code item does not depend on the layout.
	m.classDataOut = m.out.Append(dex.FourByteAlign(sizes.classData), "class data")

	t.Codes.Off = uint32(m.out.Length())
	m.codeOut = m.out.Append(sizes.code, "code")

	t.StringDatas.Off = uint32(m.out.Length())
	m.stringDataOut = m.out.Append(sizes.stringData, "string data")

	t.DebugInfos.Off = uint32(m.out.Length())
	m.debugInfoOut = m.out.Append(sizes.debugInfo, "debug info")

	t.Annotations.Off = uint32(m.out.Length())
	m.annotationOut = m.out.Append(sizes.annotation, "annotation")

	t.EncodedArrays.Off = uint32(m.out.Length())
	m.encodedArrayOut = m.out.Append(sizes.encodedArray, "encoded array")

	t.AnnotationsDirectories.Off = uint32(m.out.Length())
	m.annotationsDirectoryOut = m.out.Append(sizes.annotationsDirectory, "annotations directory")

	t.DataSize = uint32(m.out.Length()) - t.DataOff
	return m
}

// Merge produces the combined dex. When the pessimistic first pass wastes
// at least the configured threshold, the result is merged once more against
// an empty dex at exact sizes to compact it.
func (m *Merger) Merge() (*dex.Dex, error) {
	start := time.Now()
	result, err := m.mergeDex()
	if err != nil {
		return nil, err
	}

	compactedSizes := exactSizes(m)
	wasted := m.sizes.size() - compactedSizes.size()
	if !m.noCompact && wasted >= m.compactWasteThreshold {
		compacter := newWithSizes(result, dex.New(), FailOnCollision, NewRemovalContext(nil), compactedSizes)
		compacted, err := compacter.mergeDex()
		if err != nil {
			return nil, err
		}
		logger.Logger.Info("result compacted",
			"from_kib", float64(result.Length())/1024,
			"to_kib", float64(compacted.Length())/1024,
			"saved_kib", float64(wasted)/1024)
		result = compacted
	}

	logger.Logger.Info("merged",
		"a_defs", m.dexA.TOC().ClassDefs.Size,
		"a_kib", float64(m.dexA.Length())/1024,
		"b_defs", m.dexB.TOC().ClassDefs.Size,
		"b_kib", float64(m.dexB.Length())/1024,
		"out_defs", result.TOC().ClassDefs.Size,
		"out_kib", float64(result.Length())/1024,
		"elapsed", time.Since(start))
	return result, nil
}

// mergeDex runs a single pass: sections in dependency order, then header,
// map list and hashes.
func (m *Merger) mergeDex() (result *dex.Dex, err error) {
	defer dex.CatchError(&err)

	m.mergeStringIDs()
	m.mergeTypeIDs()
	m.mergeTypeLists()
	m.mergeProtoIDs()
	m.mergeFieldIDs()
	m.mergeMethodIDs()
	m.mergeAnnotations()
	m.mergeAnnotationSets()
	m.mergeAnnotationSetRefs()
	m.mergeAnnotationDirectories()
	m.mergeStaticValues()
	m.mergeClassDefs()

	t := m.contentsOut
	t.Header.Off = 0
	t.Header.Size = 1
	t.FileSize = uint32(m.out.Length())
	t.ComputeSizesFromOffsets()
	t.WriteHeader(m.headerOut)
	t.WriteMap(m.mapListOut)
	m.out.WriteHashes()
	return m.out, nil
}

// mergeCallbacks binds one section kind to the generic section-pair merger:
// where the section lives in a table of contents, how to read one value
// (remapping as it goes), how to record an old-to-new mapping, and how to
// write a value to the output.
type mergeCallbacks[T any] struct {
	section     func(*dex.TableOfContents) *dex.TOCSection
	read        func(in *dex.Section, indexMap *IndexMap, index int) T
	updateIndex func(offset uint32, indexMap *IndexMap, oldIndex, newIndex int)
	write       func(value T, newIndex int)
	compare     func(a, b T) int
}

// mergeSorted streams two pre-sorted sections in lock step, reading one
// look-ahead value per source. Equal values advance both sources and are
// written once; updateIndex always receives the index the value is about to
// be written at.
func mergeSorted[T any](m *Merger, cb mergeCallbacks[T]) {
	aSection := cb.section(m.dexA.TOC())
	bSection := cb.section(m.dexB.TOC())
	outSection := cb.section(m.contentsOut)
	outSection.Off = m.idsDefsOut.Pos()

	var inA, inB *dex.Section
	if aSection.Exists() {
		inA = m.dexA.Open(aSection.Off)
	}
	if bSection.Exists() {
		inB = m.dexB.Open(bSection.Off)
	}

	var a, b T
	var aOffset, bOffset uint32
	haveA, haveB := false, false
	aIndex, bIndex := 0, 0
	outCount := 0

	for {
		if !haveA && aIndex < int(aSection.Size) {
			aOffset = inA.Pos()
			a = cb.read(inA, m.aIndexMap, aIndex)
			haveA = true
		}
		if !haveB && bIndex < int(bSection.Size) {
			bOffset = inB.Pos()
			b = cb.read(inB, m.bIndexMap, bIndex)
			haveB = true
		}

		// Write the smaller of a and b. If they are equal, write once.
		var advanceA, advanceB bool
		if haveA && haveB {
			c := cb.compare(a, b)
			advanceA = c <= 0
			advanceB = c >= 0
		} else {
			advanceA = haveA
			advanceB = haveB
		}

		var toWrite T
		wrote := false
		if advanceA {
			toWrite = a
			wrote = true
			cb.updateIndex(aOffset, m.aIndexMap, aIndex, outCount)
			aIndex++
			haveA = false
		}
		if advanceB {
			if !wrote {
				toWrite = b
			}
			wrote = true
			cb.updateIndex(bOffset, m.bIndexMap, bIndex, outCount)
			bIndex++
			haveB = false
		}
		if !wrote {
			break
		}
		cb.write(toWrite, outCount)
		outCount++
	}

	outSection.Size = uint32(outCount)
}

type unsortedValue[T any] struct {
	indexMap *IndexMap
	value    T
	index    int
	offset   uint32
}

// mergeUnsorted handles sections that cross-reference by offset rather than
// by sorted position: read everything from both inputs, stable-sort by
// value, and emit each run of equal values once, recording the shared new
// offset for every source occurrence.
func mergeUnsorted[T any](m *Merger, out *dex.Section, cb mergeCallbacks[T]) {
	outSection := cb.section(m.contentsOut)
	outSection.Off = out.Pos()

	all := readUnsortedValues(m.dexA, m.aIndexMap, cb)
	all = append(all, readUnsortedValues(m.dexB, m.bIndexMap, cb)...)
	sort.SliceStable(all, func(i, j int) bool {
		return cb.compare(all[i].value, all[j].value) < 0
	})

	outCount := 0
	for i := 0; i < len(all); {
		e1 := all[i]
		i++
		cb.updateIndex(e1.offset, e1.indexMap, e1.index, outCount)
		for i < len(all) && cb.compare(e1.value, all[i].value) == 0 {
			e2 := all[i]
			i++
			cb.updateIndex(e2.offset, e2.indexMap, e2.index, outCount)
		}
		cb.write(e1.value, outCount)
		outCount++
	}

	outSection.Size = uint32(outCount)
}

func readUnsortedValues[T any](source *dex.Dex, indexMap *IndexMap, cb mergeCallbacks[T]) []unsortedValue[T] {
	section := cb.section(source.TOC())
	if !section.Exists() {
		return nil
	}
	in := source.Open(section.Off)
	values := make([]unsortedValue[T], 0, section.Size)
	for i := 0; i < int(section.Size); i++ {
		offset := in.Pos()
		values = append(values, unsortedValue[T]{
			indexMap: indexMap,
			value:    cb.read(in, indexMap, i),
			index:    i,
			offset:   offset,
		})
	}
	return values
}

func compareUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (m *Merger) mergeStringIDs() {
	mergeSorted(m, mergeCallbacks[string]{
		section: func(t *dex.TableOfContents) *dex.TOCSection { return &t.StringIDs },
		read: func(in *dex.Section, indexMap *IndexMap, index int) string {
			return in.ReadStringRef()
		},
		updateIndex: func(offset uint32, indexMap *IndexMap, oldIndex, newIndex int) {
			indexMap.StringIDs[oldIndex] = uint32(newIndex)
		},
		write: func(value string, newIndex int) {
			m.removal.NoteString(value, uint32(newIndex))
			m.contentsOut.StringDatas.Size++
			m.idsDefsOut.WriteUint32(m.stringDataOut.Pos())
			m.stringDataOut.WriteStringData(value)
		},
		compare: strings.Compare,
	})
}

func (m *Merger) mergeTypeIDs() {
	mergeSorted(m, mergeCallbacks[uint32]{
		section: func(t *dex.TableOfContents) *dex.TOCSection { return &t.TypeIDs },
		read: func(in *dex.Section, indexMap *IndexMap, index int) uint32 {
			return indexMap.AdjustString(in.ReadUint32())
		},
		updateIndex: func(offset uint32, indexMap *IndexMap, oldIndex, newIndex int) {
			if newIndex < 0 || newIndex > 0xffff {
				dex.Fail(errors.WrapIndexOverflow("type", newIndex))
			}
			indexMap.TypeIDs[oldIndex] = uint16(newIndex)
		},
		write: func(value uint32, newIndex int) {
			m.removal.NoteType(value, uint32(newIndex))
			m.idsDefsOut.WriteUint32(value)
		},
		compare: compareUint32,
	})
}

func (m *Merger) mergeTypeLists() {
	mergeUnsorted(m, m.typeListOut, mergeCallbacks[dex.TypeList]{
		section: func(t *dex.TableOfContents) *dex.TOCSection { return &t.TypeLists },
		read: func(in *dex.Section, indexMap *IndexMap, index int) dex.TypeList {
			return indexMap.AdjustTypeList(in.ReadTypeList())
		},
		updateIndex: func(offset uint32, indexMap *IndexMap, oldIndex, newIndex int) {
			indexMap.PutTypeListOffset(offset, m.typeListOut.Pos())
		},
		write: func(value dex.TypeList, newIndex int) {
			value.WriteTo(m.typeListOut)
		},
		compare: dex.TypeList.CompareTo,
	})
}

func (m *Merger) mergeProtoIDs() {
	mergeSorted(m, mergeCallbacks[dex.ProtoID]{
		section: func(t *dex.TableOfContents) *dex.TOCSection { return &t.ProtoIDs },
		read: func(in *dex.Section, indexMap *IndexMap, index int) dex.ProtoID {
			return indexMap.AdjustProtoID(in.ReadProtoID())
		},
		updateIndex: func(offset uint32, indexMap *IndexMap, oldIndex, newIndex int) {
			if newIndex < 0 || newIndex > 0xffff {
				dex.Fail(errors.WrapIndexOverflow("proto", newIndex))
			}
			indexMap.ProtoIDs[oldIndex] = uint16(newIndex)
		},
		write: func(value dex.ProtoID, newIndex int) {
			value.WriteTo(m.idsDefsOut)
		},
		compare: dex.ProtoID.CompareTo,
	})
}

func (m *Merger) mergeFieldIDs() {
	mergeSorted(m, mergeCallbacks[dex.FieldID]{
		section: func(t *dex.TableOfContents) *dex.TOCSection { return &t.FieldIDs },
		read: func(in *dex.Section, indexMap *IndexMap, index int) dex.FieldID {
			return indexMap.AdjustFieldID(in.ReadFieldID())
		},
		updateIndex: func(offset uint32, indexMap *IndexMap, oldIndex, newIndex int) {
			if newIndex < 0 || newIndex > 0xffff {
				dex.Fail(errors.WrapIndexOverflow("field", newIndex))
			}
			indexMap.FieldIDs[oldIndex] = uint16(newIndex)
		},
		write: func(value dex.FieldID, newIndex int) {
			value.WriteTo(m.idsDefsOut)
		},
		compare: dex.FieldID.CompareTo,
	})
}

func (m *Merger) mergeMethodIDs() {
	mergeSorted(m, mergeCallbacks[dex.MethodID]{
		section: func(t *dex.TableOfContents) *dex.TOCSection { return &t.MethodIDs },
		read: func(in *dex.Section, indexMap *IndexMap, index int) dex.MethodID {
			return indexMap.AdjustMethodID(in.ReadMethodID())
		},
		updateIndex: func(offset uint32, indexMap *IndexMap, oldIndex, newIndex int) {
			if newIndex < 0 || newIndex > 0xffff {
				dex.Fail(errors.WrapIndexOverflow("method", newIndex))
			}
			indexMap.MethodIDs[oldIndex] = uint16(newIndex)
		},
		write: func(value dex.MethodID, newIndex int) {
			value.WriteTo(m.idsDefsOut)
		},
		compare: dex.MethodID.CompareTo,
	})
}

func (m *Merger) mergeAnnotations() {
	mergeUnsorted(m, m.annotationOut, mergeCallbacks[dex.Annotation]{
		section: func(t *dex.TableOfContents) *dex.TOCSection { return &t.Annotations },
		read: func(in *dex.Section, indexMap *IndexMap, index int) dex.Annotation {
			return indexMap.TransformAnnotation(in)
		},
		updateIndex: func(offset uint32, indexMap *IndexMap, oldIndex, newIndex int) {
			indexMap.PutAnnotationOffset(offset, m.annotationOut.Pos())
		},
		write: func(value dex.Annotation, newIndex int) {
			value.WriteTo(m.annotationOut)
		},
		compare: dex.Annotation.CompareTo,
	})
}

// intArray orders annotation-set style sections: length first, then the
// elements.
type intArray []uint32

func (a intArray) CompareTo(o intArray) int {
	if len(a) != len(o) {
		return len(a) - len(o)
	}
	for i := range a {
		if c := compareUint32(a[i], o[i]); c != 0 {
			return c
		}
	}
	return 0
}

func (m *Merger) mergeAnnotationSets() {
	m.annotationSetOut.AssertFourByteAligned()
	mergeUnsorted(m, m.annotationSetOut, mergeCallbacks[intArray]{
		section: func(t *dex.TableOfContents) *dex.TOCSection { return &t.AnnotationSets },
		read: func(in *dex.Section, indexMap *IndexMap, index int) intArray {
			size := in.ReadUint32()
			annotations := make(intArray, size)
			for i := range annotations {
				annotations[i] = indexMap.AdjustAnnotationOffset(in.ReadUint32())
			}
			return annotations
		},
		updateIndex: func(offset uint32, indexMap *IndexMap, oldIndex, newIndex int) {
			indexMap.PutAnnotationSetOffset(offset, m.annotationSetOut.Pos())
		},
		write: func(value intArray, newIndex int) {
			m.annotationSetOut.WriteUint32(uint32(len(value)))
			for _, off := range value {
				m.annotationSetOut.WriteUint32(off)
			}
		},
		compare: intArray.CompareTo,
	})
}

func (m *Merger) mergeAnnotationSetRefs() {
	m.annotationSetRefListOut.AssertFourByteAligned()
	mergeUnsorted(m, m.annotationSetRefListOut, mergeCallbacks[intArray]{
		section: func(t *dex.TableOfContents) *dex.TOCSection { return &t.AnnotationSetRefLists },
		read: func(in *dex.Section, indexMap *IndexMap, index int) intArray {
			size := in.ReadUint32()
			refs := make(intArray, size)
			for i := range refs {
				refs[i] = indexMap.AdjustAnnotationSetOffset(in.ReadUint32())
			}
			return refs
		},
		updateIndex: func(offset uint32, indexMap *IndexMap, oldIndex, newIndex int) {
			indexMap.PutAnnotationSetRefOffset(offset, m.annotationSetRefListOut.Pos())
		},
		write: func(value intArray, newIndex int) {
			m.annotationSetRefListOut.WriteUint32(uint32(len(value)))
			for _, off := range value {
				m.annotationSetRefListOut.WriteUint32(off)
			}
		},
		compare: intArray.CompareTo,
	})
}

// annotationDirectory is an annotations_directory_item with every embedded
// index and offset already remapped.
type annotationDirectory struct {
	classAnnotationsOffset uint32
	fields                 [][2]uint32
	methods                [][2]uint32
	parameters             [][2]uint32
}

func comparePairList(a, b [][2]uint32) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	for i := range a {
		if c := compareUint32(a[i][0], b[i][0]); c != 0 {
			return c
		}
		if c := compareUint32(a[i][1], b[i][1]); c != 0 {
			return c
		}
	}
	return 0
}

func (d annotationDirectory) CompareTo(o annotationDirectory) int {
	if c := compareUint32(d.classAnnotationsOffset, o.classAnnotationsOffset); c != 0 {
		return c
	}
	if c := comparePairList(d.fields, o.fields); c != 0 {
		return c
	}
	if c := comparePairList(d.methods, o.methods); c != 0 {
		return c
	}
	return comparePairList(d.parameters, o.parameters)
}

func (m *Merger) mergeAnnotationDirectories() {
	mergeUnsorted(m, m.annotationsDirectoryOut, mergeCallbacks[annotationDirectory]{
		section: func(t *dex.TableOfContents) *dex.TOCSection { return &t.AnnotationsDirectories },
		read: func(in *dex.Section, indexMap *IndexMap, index int) annotationDirectory {
			d := annotationDirectory{
				classAnnotationsOffset: indexMap.AdjustAnnotationSetOffset(in.ReadUint32()),
			}
			fieldsSize := in.ReadUint32()
			methodsSize := in.ReadUint32()
			parametersSize := in.ReadUint32()
			for i := uint32(0); i < fieldsSize; i++ {
				d.fields = append(d.fields, [2]uint32{
					indexMap.AdjustField(in.ReadUint32()),
					indexMap.AdjustAnnotationSetOffset(in.ReadUint32()),
				})
			}
			for i := uint32(0); i < methodsSize; i++ {
				d.methods = append(d.methods, [2]uint32{
					indexMap.AdjustMethod(in.ReadUint32()),
					indexMap.AdjustAnnotationSetOffset(in.ReadUint32()),
				})
			}
			for i := uint32(0); i < parametersSize; i++ {
				d.parameters = append(d.parameters, [2]uint32{
					indexMap.AdjustMethod(in.ReadUint32()),
					indexMap.AdjustAnnotationSetRefOffset(in.ReadUint32()),
				})
			}
			return d
		},
		updateIndex: func(offset uint32, indexMap *IndexMap, oldIndex, newIndex int) {
			indexMap.PutAnnotationDirectoryOffset(offset, m.annotationsDirectoryOut.Pos())
		},
		write: func(value annotationDirectory, newIndex int) {
			out := m.annotationsDirectoryOut
			out.WriteUint32(value.classAnnotationsOffset)
			out.WriteUint32(uint32(len(value.fields)))
			out.WriteUint32(uint32(len(value.methods)))
			out.WriteUint32(uint32(len(value.parameters)))
			for _, pair := range value.fields {
				out.WriteUint32(pair[0])
				out.WriteUint32(pair[1])
			}
			for _, pair := range value.methods {
				out.WriteUint32(pair[0])
				out.WriteUint32(pair[1])
			}
			for _, pair := range value.parameters {
				out.WriteUint32(pair[0])
				out.WriteUint32(pair[1])
			}
		},
		compare: annotationDirectory.CompareTo,
	})
}

func (m *Merger) mergeStaticValues() {
	mergeUnsorted(m, m.encodedArrayOut, mergeCallbacks[dex.EncodedValue]{
		section: func(t *dex.TableOfContents) *dex.TOCSection { return &t.EncodedArrays },
		read: func(in *dex.Section, indexMap *IndexMap, index int) dex.EncodedValue {
			return indexMap.TransformEncodedArray(in)
		},
		updateIndex: func(offset uint32, indexMap *IndexMap, oldIndex, newIndex int) {
			indexMap.PutStaticValuesOffset(offset, m.encodedArrayOut.Pos())
		},
		write: func(value dex.EncodedValue, newIndex int) {
			value.WriteTo(m.encodedArrayOut)
		},
		compare: dex.EncodedValue.CompareTo,
	})
}
