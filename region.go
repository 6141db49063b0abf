// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package halloc

import "unsafe"

// addr is a raw memory address: a byte offset into page-provider-backed
// storage, never a tracked Go pointer. Regions, blocks and free-list
// links are all addressed this way, matching the teacher's own
// unsafe.Pointer-cast style (page/node) generalized to variable-sized
// regions.
type addr = uintptr

func metaPtr(a addr) *regionMeta { return (*regionMeta)(unsafe.Pointer(a)) }

func loadMeta(a addr) regionMeta  { return *metaPtr(a) }
func storeMeta(a addr, m regionMeta) { *metaPtr(a) = m }

// footerAddr returns the address of the footer word of a region of the
// given total size starting at header.
func footerAddr(header addr, size uint32) addr {
	return header + addr(size) - footerSize
}

func regionSize(header addr) uint32 { return loadMeta(header).size() }
func regionUsed(header addr) bool   { return loadMeta(header).used() }

// payloadAddr is the address returned to the caller for an allocated
// region, or the address of the free-list link fields for a free one:
// header + sizeof(metadata), plus the reserved word on 64-bit targets.
func payloadAddr(header addr) addr { return header + headerSize }

// freeNode is the view over a free region's link fields. It is never
// instantiated directly; nodeAt casts an existing free region's link
// area to it.
type freeNode struct {
	next, prev addr
}

func nodeAt(header addr) *freeNode {
	return (*freeNode)(unsafe.Pointer(payloadAddr(header)))
}

// createFreeRegion writes a free header and matching footer at addr
// covering [addr, addr+size) and clears the link fields. It returns
// addr for call-chaining convenience.
func createFreeRegion(a addr, size uint32) addr {
	m := packMeta(false, size)
	storeMeta(a, m)
	n := nodeAt(a)
	n.next, n.prev = 0, 0
	storeMeta(footerAddr(a, size), m)
	return a
}

// setUsed flips a region's used tag in both header and footer while
// preserving its size.
func setUsed(a addr, used bool) {
	size := regionSize(a)
	m := packMeta(used, size)
	storeMeta(a, m)
	storeMeta(footerAddr(a, size), m)
}

// alignedSplitSize returns the size of the leading fragment a split of
// this free region into a candidate of (at least) requested bytes and
// a remainder should use, such that the remainder's payload would land
// on a 16-byte boundary. requested is first padded up to
// minFreeRegionSize so that, if a remainder is produced, it is large
// enough to carry its own free-list links.
func alignedSplitSize(regionStart addr, requested uint32) uint32 {
	if requested < uint32(minFreeRegionSize) {
		requested = uint32(minFreeRegionSize)
	}
	end := regionStart + addr(requested) + headerSize
	if rem := uint32(end % payloadAlign); rem != 0 {
		requested += payloadAlign - rem
	}
	return requested
}

// split carves requested bytes off the front of the free region at
// regionStart. It returns the size the leading fragment ends up with
// (which may be the entire original region, if no remainder would fit
// or would be safe to create), and, when a remainder was produced, its
// address and size.
//
// The leading fragment's header/footer are rewritten here to the
// chosen leading size but are left marked free; the caller is
// responsible for both region's free-list bookkeeping and for marking
// the leading fragment used.
func split(regionStart addr, requested uint32) (leadingSize uint32, remainder addr, remainderSize uint32, ok bool) {
	original := regionSize(regionStart)
	s := alignedSplitSize(regionStart, requested)
	if s > original {
		s = original
	}
	rem := original - s
	if rem < uint32(minFreeRegionSize) {
		// Not enough room left for a free remainder: the whole region
		// absorbs the slack instead of being split.
		return original, 0, 0, false
	}

	remAddr := regionStart + addr(s)
	// Safety check: if arithmetic above were ever wrong, remAddr could
	// land inside an already-allocated region's metadata. Refuse the
	// split rather than corrupt it.
	if loadMeta(remAddr).used() {
		return original, 0, 0, false
	}

	createFreeRegion(remAddr, rem)
	m := packMeta(false, s)
	storeMeta(regionStart, m)
	storeMeta(footerAddr(regionStart, s), m)
	return s, remAddr, rem, true
}
