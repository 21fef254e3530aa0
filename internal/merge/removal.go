// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package merge

// RemovalContext carries class-removal state across the merge phases: the
// descriptor set is fixed up front, matching string IDs are captured while
// string IDs merge, type IDs referring to those strings are captured while
// type IDs merge, and the sortable-type builder drops the captured types.
// All captured indices are in the output index space.
type RemovalContext struct {
	descriptors map[string]bool
	stringIDs   map[uint32]bool
	typeIDs     map[uint32]bool
}

func NewRemovalContext(descriptors []string) *RemovalContext {
	r := &RemovalContext{
		descriptors: make(map[string]bool, len(descriptors)),
		stringIDs:   make(map[uint32]bool),
		typeIDs:     make(map[uint32]bool),
	}
	for _, d := range descriptors {
		r.descriptors[d] = true
	}
	return r
}

func (r *RemovalContext) Empty() bool {
	return len(r.descriptors) == 0
}

// NoteString records the new index of a merged string whose value is one of
// the removal descriptors.
func (r *RemovalContext) NoteString(value string, newIndex uint32) {
	if r.descriptors[value] {
		r.stringIDs[newIndex] = true
	}
}

// NoteType records the new index of a merged type whose descriptor string
// was captured by NoteString.
func (r *RemovalContext) NoteType(newStringIndex, newTypeIndex uint32) {
	if r.stringIDs[newStringIndex] {
		r.typeIDs[newTypeIndex] = true
	}
}

// RemovesType reports whether the class with the given new type index is to
// be dropped from the output.
func (r *RemovalContext) RemovesType(newTypeIndex uint32) bool {
	return r.typeIDs[newTypeIndex]
}
