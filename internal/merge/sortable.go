// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package merge

import (
	"github.com/dotandev/dexmerge/internal/dex"
)

// sortableType pairs a class definition with the source it came from and
// its depth in the supertype/interface hierarchy. The class definition has
// its type, supertype and interfaces already remapped into the output index
// space; depth chasing happens entirely in that space.
type sortableType struct {
	source   *dex.Dex
	indexMap *IndexMap
	def      dex.ClassDef

	// depth is the length of the longest chain of supertypes and
	// interfaces defined in either input; zero means unassigned, types
	// defined elsewhere count as depth zero.
	depth int
}

func (s *sortableType) isDepthAssigned() bool {
	return s.depth != 0
}

// tryAssignDepth succeeds when every referenced supertype and interface
// either is not in types (defined elsewhere, depth zero) or already has a
// depth.
func (s *sortableType) tryAssignDepth(types []*sortableType) bool {
	max := 0
	if s.def.SupertypeIndex != dex.NoIndex {
		if t := types[s.def.SupertypeIndex]; t != nil {
			if !t.isDepthAssigned() {
				return false
			}
			if t.depth > max {
				max = t.depth
			}
		}
	}
	for _, interfaceIndex := range s.def.Interfaces {
		if t := types[interfaceIndex]; t != nil {
			if !t.isDepthAssigned() {
				return false
			}
			if t.depth > max {
				max = t.depth
			}
		}
	}
	s.depth = max + 1
	return true
}
