// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package halloc

import "unsafe"

// blockHeader sits at the start of every heap block: a page-aligned
// contiguous range obtained from a PageProvider. It owns a private
// segregated free-list array indexing only its own free regions, and
// links into the process-wide, address-ordered block list.
type blockHeader struct {
	pages    int
	size     int // pages * pageSize
	usedSize int // sizeof(blockHeader) + sum of allocated region sizes

	next, prev *blockHeader

	// free[c] is the address of the head of size-class c's doubly
	// linked, address-ordered free list, or 0 if the class is empty.
	free [numClasses]addr
}

// blockHeaderSize is padded so that the block's first region (which
// starts immediately after it, at a page-aligned, hence 16-aligned,
// offset from the block base) lands its payload on a 16-byte boundary:
// blockHeaderSize + headerSize must be a multiple of payloadAlign, the
// same invariant alignedSplitSize maintains across every later split.
var blockHeaderSize = int(roundup(unsafe.Sizeof(blockHeader{})+headerSize, payloadAlign) - headerSize)

func blockAt(a addr) *blockHeader { return (*blockHeader)(unsafe.Pointer(a)) }
func blockAddr(b *blockHeader) addr { return addr(unsafe.Pointer(b)) }

// initBlock installs a fresh blockHeader at base (pages*pageSize bytes,
// just returned by a PageProvider) and tiles the remainder of the
// range as a single free region in class 5.
func initBlock(base addr, pages int) *blockHeader {
	b := blockAt(base)
	*b = blockHeader{
		pages:    pages,
		size:     pages * pageSize,
		usedSize: blockHeaderSize,
	}

	remAddr := base + addr(blockHeaderSize)
	remSize := uint32(b.size - blockHeaderSize)
	createFreeRegion(remAddr, remSize)
	blockClassInsert(b, class(remSize), remAddr)
	return b
}

// regionBounds returns the half-open address range [start, end) that
// this block's regions tile exactly: start is just past the block
// header, end is the block's end address.
func (b *blockHeader) regionBounds() (start, end addr) {
	ba := blockAddr(b)
	return ba + addr(blockHeaderSize), ba + addr(b.size)
}

// blockClassInsert inserts the free region at a into class idx's
// address-ordered doubly linked list.
func blockClassInsert(b *blockHeader, idx int, a addr) {
	n := nodeAt(a)
	head := b.free[idx]
	if head == 0 || a < head {
		n.next, n.prev = head, 0
		if head != 0 {
			nodeAt(head).prev = a
		}
		b.free[idx] = a
		return
	}

	cur := head
	for nodeAt(cur).next != 0 && nodeAt(cur).next < a {
		cur = nodeAt(cur).next
	}
	next := nodeAt(cur).next
	n.next, n.prev = next, cur
	nodeAt(cur).next = a
	if next != 0 {
		nodeAt(next).prev = a
	}
}

// blockClassRemove detaches the free region at a from class idx's list.
func blockClassRemove(b *blockHeader, idx int, a addr) {
	n := nodeAt(a)
	if n.prev == 0 {
		b.free[idx] = n.next
	} else {
		nodeAt(n.prev).next = n.next
	}
	if n.next != 0 {
		nodeAt(n.next).prev = n.prev
	}
	n.next, n.prev = 0, 0
}

// findFit scans every class in ascending order and, within each class,
// every member in list order, returning the first free region able to
// host a region of regionSz bytes total.
func findFit(b *blockHeader, regionSz uint32) addr {
	for c := 0; c < numClasses; c++ {
		for r := b.free[c]; r != 0; r = nodeAt(r).next {
			if alignedSplitSize(r, regionSz) <= regionSize(r) {
				return r
			}
		}
	}
	return 0
}

func canAllocate(b *blockHeader, regionSz uint32) bool {
	return findFit(b, regionSz) != 0
}

// allocateRegion removes the free region at r from its class, splits
// it down to regionSz (reinserting any remainder), marks the leading
// fragment used and accounts its size against the block's usedSize. It
// returns r, now an allocated region header address.
func allocateRegion(b *blockHeader, r addr, regionSz uint32) addr {
	blockClassRemove(b, class(regionSize(r)), r)

	leadingSize, remAddr, remSize, hasRemainder := split(r, regionSz)
	if hasRemainder {
		blockClassInsert(b, class(remSize), remAddr)
	}

	setUsed(r, true)
	b.usedSize += int(leadingSize)
	return r
}

// freeRegionIn marks r free within b, coalesces it with any
// physically adjacent free neighbor, and reinserts the (possibly
// merged) result into its class list.
func freeRegionIn(b *blockHeader, r addr) {
	size := regionSize(r)
	b.usedSize -= int(size)
	setUsed(r, false)

	start, end := b.regionBounds()
	merged := r
	mergedSize := size

	if right := merged + addr(mergedSize); right < end && !regionUsed(right) {
		rightSize := regionSize(right)
		blockClassRemove(b, class(rightSize), right)
		mergedSize += rightSize
	}

	if merged > start {
		leftFooter := loadMeta(merged - footerSize)
		if !leftFooter.used() {
			leftSize := leftFooter.size()
			left := merged - addr(leftSize)
			if left >= start {
				blockClassRemove(b, class(leftSize), left)
				merged = left
				mergedSize += leftSize
			}
		}
	}

	createFreeRegion(merged, mergedSize)
	blockClassInsert(b, class(mergedSize), merged)
}

// empty reports whether b has no user allocations: its usedSize has
// fallen back to the process baseline (block header plus, for the
// very first block, the permanent alignment reservation).
func (b *blockHeader) empty(baseline int) bool { return b.usedSize <= baseline }
