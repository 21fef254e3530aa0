// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dotandev/dexmerge/internal/dex"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.dex>",
	Short: "Print a dex file's header fields and section layout",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var sectionNames = map[uint16]string{
	dex.TypeHeaderItem:               "header",
	dex.TypeStringIDItem:             "string_ids",
	dex.TypeTypeIDItem:               "type_ids",
	dex.TypeProtoIDItem:              "proto_ids",
	dex.TypeFieldIDItem:              "field_ids",
	dex.TypeMethodIDItem:             "method_ids",
	dex.TypeClassDefItem:             "class_defs",
	dex.TypeMapList:                  "map_list",
	dex.TypeTypeList:                 "type_lists",
	dex.TypeAnnotationSetRefList:     "annotation_set_ref_lists",
	dex.TypeAnnotationSetItem:        "annotation_sets",
	dex.TypeClassDataItem:            "class_datas",
	dex.TypeCodeItem:                 "code_items",
	dex.TypeStringDataItem:           "string_datas",
	dex.TypeDebugInfoItem:            "debug_infos",
	dex.TypeAnnotationItem:           "annotations",
	dex.TypeEncodedArrayItem:         "encoded_arrays",
	dex.TypeAnnotationsDirectoryItem: "annotations_directories",
}

func runInspect(cmd *cobra.Command, args []string) error {
	d, err := dex.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	t := d.TOC()

	bold := color.New(color.Bold)
	bold.Printf("%s\n", args[0])
	fmt.Printf("  version    %s\n", t.Version)
	fmt.Printf("  file size  %d bytes\n", t.FileSize)
	fmt.Printf("  checksum   0x%08x\n", t.Checksum)
	fmt.Printf("  signature  %x\n", t.Signature)
	fmt.Printf("  data       %d bytes at 0x%x\n\n", t.DataSize, t.DataOff)

	bold.Printf("%-26s %10s %10s %10s\n", "section", "items", "offset", "bytes")
	for _, s := range t.Sections() {
		if !s.Exists() {
			continue
		}
		fmt.Printf("%-26s %10d %10d %10d\n", sectionNames[s.Type], s.Size, s.Off, s.ByteCount)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
