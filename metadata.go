// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package halloc

import "unsafe"

const (
	pageSize     = 4096
	payloadAlign = 16 // must be >= 16

	metaSize = 4 // bytes in a packed header or footer word

	// ptrSize is the host pointer width in bytes (4 on 32-bit targets,
	// 8 on 64-bit). Every address computation in this package uses
	// uintptr; region sizes, bounded by the 28-bit size field, are held
	// in uint32 and widened before being added to an address. See
	// SPEC_FULL.md for the truncation bug this avoids.
	ptrSize = unsafe.Sizeof(uintptr(0))

	// reservedSize is the 4-byte slot that follows the header on
	// 64-bit targets, so that headerSize equals the pointer width and
	// the free-list links that follow it are pointer-aligned. It is 0
	// on 32-bit targets, where metaSize already equals the pointer
	// width. 16-byte payload alignment comes from blockHeaderSize and
	// alignedSplitSize, not from this slot.
	reservedSize = ptrSize - metaSize

	headerSize = metaSize + reservedSize
	footerSize = metaSize
	linksSize  = 2 * ptrSize // free-region next/previous link fields

	// minFreeRegionSize is the smallest region that can hold its own
	// header, footer and free-list links.
	minFreeRegionSize = headerSize + linksSize + footerSize

	usedBits  = 4
	sizeBits  = 32 - usedBits
	sizeMask  = 1<<sizeBits - 1
	maxRegionSize = sizeMask

	numClasses = 6
)

// classBounds holds the inclusive upper size bound of classes 0..4;
// class 5 is the catch-all for everything above classBounds[4].
var classBounds = [numClasses - 1]uint32{32, 64, 128, 256, 512}

// class returns the size class (0..numClasses-1) a region of the given
// total size belongs to.
func class(size uint32) int {
	for i, bound := range classBounds {
		if size <= bound {
			return i
		}
	}
	return numClasses - 1
}

// regionMeta is the 4-byte packed header/footer word: a 4-bit used tag
// (only 0 or 1 is ever written; the remaining bits are reserved for
// future tagging and must stay zero) and a 28-bit total region size.
type regionMeta uint32

func packMeta(used bool, size uint32) regionMeta {
	if size > maxRegionSize {
		panic("halloc: region size exceeds the metadata word's size field")
	}
	var tag uint32
	if used {
		tag = 1
	}
	return regionMeta(tag<<sizeBits | (size & sizeMask))
}

func (m regionMeta) used() bool  { return uint32(m)>>sizeBits != 0 }
func (m regionMeta) size() uint32 { return uint32(m) & sizeMask }

// roundup returns n rounded up to the next multiple of m. m must be a
// power of 2.
func roundup(n, m uintptr) uintptr { return (n + m - 1) &^ (m - 1) }
