// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package halloc

// blockList is the address-ordered doubly linked list of every live
// heap block belonging to one Allocator instance. It is the root layer
// of the design: lookup walks it to find the block owning a pointer,
// growth appends a freshly provider-acquired block, shrink unlinks an
// empty one.
type blockList struct {
	head, tail *blockHeader

	// baseline is the usedSize a block must fall to (or below) to be
	// considered empty. It is written exactly once, when the very
	// first block is created, and shared by every block thereafter.
	baseline    int
	baselineSet bool
}

// insert splices b into the list in ascending start-address order,
// the corrected form of the ordering described in SPEC_FULL.md §5.
func (bl *blockList) insert(b *blockHeader) {
	ba := blockAddr(b)
	if bl.head == nil {
		bl.head, bl.tail = b, b
		return
	}

	cur := bl.head
	for cur != nil && blockAddr(cur) < ba {
		cur = cur.next
	}
	if cur == nil {
		b.prev = bl.tail
		bl.tail.next = b
		bl.tail = b
		return
	}

	b.next = cur
	b.prev = cur.prev
	if cur.prev != nil {
		cur.prev.next = b
	} else {
		bl.head = b
	}
	cur.prev = b
}

// unlink removes b from the list. b's own next/prev are left untouched
// so the caller can still use them (e.g. to continue an iteration)
// after unlinking.
func (bl *blockList) unlink(b *blockHeader) {
	if b.prev != nil {
		b.prev.next = b.next
	} else {
		bl.head = b.next
	}
	if b.next != nil {
		b.next.prev = b.prev
	} else {
		bl.tail = b.prev
	}
}

// findFit walks every block looking for one that can host a region of
// regionSz bytes, skipping blocks already fully used.
func (bl *blockList) findFit(regionSz uint32) *blockHeader {
	for b := bl.head; b != nil; b = b.next {
		if b.usedSize < b.size && canAllocate(b, regionSz) {
			return b
		}
	}
	return nil
}

// findOwner returns the block whose address range contains p, or nil
// if no block does (a foreign pointer).
func (bl *blockList) findOwner(p addr) *blockHeader {
	for b := bl.head; b != nil; b = b.next {
		start := blockAddr(b)
		if p >= start && p < start+addr(b.size) {
			return b
		}
	}
	return nil
}

// baselineReserveRegionSize is the total region size of the
// zero-observable synthetic allocation §4.4 performs on the very first
// block, sized to hold 2*sizeof(pointer) bytes of payload.
func baselineReserveRegionSize() uint32 {
	return uint32(2*ptrSize) + uint32(headerSize) + uint32(footerSize)
}

// grow acquires a fresh block sized to host a region of regionSz
// bytes, appends it to the list, and — the first time ever — performs
// the initial alignment reservation that establishes bl.baseline.
func (bl *blockList) grow(p PageProvider, regionSz uint32) (*blockHeader, error) {
	// alignedSplitSize pads a request up to minFreeRegionSize and then
	// to a multiple of payloadAlign; size the block for the padded sizes.
	need := int(roundup(addr(max(regionSz, uint32(minFreeRegionSize))), payloadAlign)) + blockHeaderSize
	if !bl.baselineSet {
		need += int(roundup(addr(baselineReserveRegionSize()), payloadAlign))
	}
	pages := (need + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}

	base, err := p.Acquire(pages)
	if err != nil {
		return nil, err
	}

	b := initBlock(base, pages)
	bl.insert(b)

	if !bl.baselineSet {
		bl.reserveBaseline(b)
	}
	return b, nil
}

// reserveBaseline performs the §4.4 zero-observable synthetic
// allocation against the first block ever created and records the
// resulting usedSize as the shared empty-block threshold.
func (bl *blockList) reserveBaseline(b *blockHeader) {
	regionSz := baselineReserveRegionSize()
	if r := findFit(b, regionSz); r != 0 {
		allocateRegion(b, r, regionSz) // result intentionally discarded: never freed
	}
	bl.baseline = b.usedSize
	bl.baselineSet = true
}

// shrink reclaims b's pages if it no longer holds any user allocation.
// It reports whether the block was reclaimed.
func (bl *blockList) shrink(b *blockHeader, p PageProvider) (bool, error) {
	if !b.empty(bl.baseline) {
		return false, nil
	}
	bl.unlink(b)
	if err := p.Release(blockAddr(b), b.pages); err != nil {
		return true, err
	}
	return true, nil
}
