// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package dex

import (
	"crypto/sha1"
	"encoding/binary"
	"hash/adler32"
)

const (
	checksumOffset  = 8
	signatureOffset = 12
	signatureSize   = 20
)

// WriteHashes fills in the header's SHA-1 signature (over everything after
// the signature field) and Adler-32 checksum (over everything after the
// checksum field). Must run last: any later write invalidates both.
func (d *Dex) WriteHashes() {
	sum := sha1.Sum(d.data[signatureOffset+signatureSize:])
	copy(d.data[signatureOffset:], sum[:])
	copy(d.toc.Signature[:], sum[:])

	checksum := adler32.Checksum(d.data[signatureOffset:])
	binary.LittleEndian.PutUint32(d.data[checksumOffset:], checksum)
	d.toc.Checksum = checksum
}
