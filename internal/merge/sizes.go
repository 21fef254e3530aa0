// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package merge

import (
	"math"

	"github.com/dotandev/dexmerge/internal/dex"
)

// writerSizes holds the byte budget of every output section. A budget is
// either pessimistic — the sum of both inputs with multipliers covering
// ULEB values that may grow after remapping — or exact, measured from an
// already-produced output.
type writerSizes struct {
	header                int
	idsDefs               int
	mapList               int
	typeList              int
	classData             int
	code                  int
	stringData            int
	debugInfo             int
	encodedArray          int
	annotationsDirectory  int
	annotationsSet        int
	annotationsSetRefList int
	annotation            int
}

func newWriterSizes(a, b *dex.Dex) writerSizes {
	s := writerSizes{header: dex.SizeHeaderItem}
	s.plus(a.TOC())
	s.plus(b.TOC())
	return s
}

func (s *writerSizes) plus(t *dex.TableOfContents) {
	s.idsDefs += int(t.StringIDs.Size)*dex.SizeStringIDItem +
		int(t.TypeIDs.Size)*dex.SizeTypeIDItem +
		int(t.ProtoIDs.Size)*dex.SizeProtoIDItem +
		int(t.FieldIDs.Size)*dex.SizeMemberIDItem +
		int(t.MethodIDs.Size)*dex.SizeMemberIDItem +
		int(t.ClassDefs.Size)*dex.SizeClassDefItem
	s.mapList = dex.SizeUInt + len(t.Sections())*dex.SizeMapItem
	s.typeList += int(t.TypeLists.ByteCount)
	s.stringData += int(t.StringDatas.ByteCount)
	s.annotationsDirectory += int(t.AnnotationsDirectories.ByteCount)
	s.annotationsSet += int(t.AnnotationSets.ByteCount)
	s.annotationsSetRefList += int(t.AnnotationSetRefLists.ByteCount)

	// at most 1/4 of the bytes in a code section are uleb/sleb
	s.code += int(math.Ceil(float64(t.Codes.ByteCount) * 1.25))
	// at most 1/3 of the bytes in a class data section are uleb/sleb
	s.classData += int(math.Ceil(float64(t.ClassDatas.ByteCount) * 1.34))
	// all of the bytes in an encoded array section may be uleb/sleb
	s.encodedArray += int(t.EncodedArrays.ByteCount) * 2
	// all of the bytes in an annotations section may be uleb/sleb
	s.annotation += int(math.Ceil(float64(t.Annotations.ByteCount) * 2))
	// all of the bytes in a debug info section may be uleb/sleb
	s.debugInfo += int(t.DebugInfos.ByteCount) * 2

	s.typeList = dex.FourByteAlign(s.typeList)
	s.code = dex.FourByteAlign(s.code)
}

// exactSizes measures a finished merge's actual section usage.
func exactSizes(m *Merger) writerSizes {
	return writerSizes{
		header:                int(m.headerOut.Used()),
		idsDefs:               int(m.idsDefsOut.Used()),
		mapList:               int(m.mapListOut.Used()),
		typeList:              int(m.typeListOut.Used()),
		classData:             int(m.classDataOut.Used()),
		code:                  int(m.codeOut.Used()),
		stringData:            int(m.stringDataOut.Used()),
		debugInfo:             int(m.debugInfoOut.Used()),
		encodedArray:          int(m.encodedArrayOut.Used()),
		annotationsDirectory:  int(m.annotationsDirectoryOut.Used()),
		annotationsSet:        int(m.annotationSetOut.Used()),
		annotationsSetRefList: int(m.annotationSetRefListOut.Used()),
		annotation:            int(m.annotationOut.Used()),
	}
}

func (s writerSizes) size() int {
	return s.header + s.idsDefs + s.mapList + s.typeList + s.classData + s.code +
		s.stringData + s.debugInfo + s.encodedArray + s.annotationsDirectory +
		s.annotationsSet + s.annotationsSetRefList + s.annotation
}
