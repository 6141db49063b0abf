// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package halloc

import (
	"fmt"
	"strings"

	"github.com/cznic/mathutil"
)

// ClassStats summarizes one size class's free list within a block.
type ClassStats struct {
	Class     int
	Bound     uint32 // upper size bound for this class, 0 for the catch-all class
	Count     int
	MinSize   uint32
	MaxSize   uint32
	SumSize   uint32
	MaxBitLen int // bit length of MaxSize, via mathutil.BitLen
}

// BlockStats summarizes one heap block.
type BlockStats struct {
	Pages      int
	Size       int
	UsedSize   int
	FreeRegions int
	MinFree    uint32
	MaxFree    uint32
	SumFree    uint32
	Classes    [numClasses]ClassStats
}

// Stats is the diagnostic snapshot returned by Allocator.Stats: one
// BlockStats per live block, in address order.
type Stats struct {
	Blocks []BlockStats
}

// String renders Stats as the kind of human-readable report spec §6's
// stats() operation calls for.
func (s Stats) String() string {
	var sb strings.Builder
	for i, b := range s.Blocks {
		fmt.Fprintf(&sb, "block %d: pages=%d size=%d used=%d free_regions=%d min=%d max=%d sum=%d\n",
			i, b.Pages, b.Size, b.UsedSize, b.FreeRegions, b.MinFree, b.MaxFree, b.SumFree)
		for _, c := range b.Classes {
			if c.Count == 0 {
				continue
			}
			fmt.Fprintf(&sb, "  class %d (<=%d): count=%d min=%d max=%d sum=%d\n",
				c.Class, c.Bound, c.Count, c.MinSize, c.MaxSize, c.SumSize)
		}
	}
	return sb.String()
}

func blockStats(b *blockHeader) BlockStats {
	bs := BlockStats{
		Pages:    b.pages,
		Size:     b.size,
		UsedSize: b.usedSize,
	}

	for c := 0; c < numClasses; c++ {
		cs := ClassStats{Class: c}
		if c < len(classBounds) {
			cs.Bound = classBounds[c]
		}
		for r := b.free[c]; r != 0; r = nodeAt(r).next {
			sz := regionSize(r)
			cs.Count++
			cs.SumSize += sz
			if cs.MinSize == 0 || sz < cs.MinSize {
				cs.MinSize = sz
			}
			if sz > cs.MaxSize {
				cs.MaxSize = sz
			}
		}
		if cs.MaxSize > 0 {
			cs.MaxBitLen = mathutil.BitLen(int(cs.MaxSize))
		}
		bs.Classes[c] = cs
		bs.FreeRegions += cs.Count
		bs.SumFree += cs.SumSize
		if cs.MinSize != 0 && (bs.MinFree == 0 || cs.MinSize < bs.MinFree) {
			bs.MinFree = cs.MinSize
		}
		if cs.MaxSize > bs.MaxFree {
			bs.MaxFree = cs.MaxSize
		}
	}
	return bs
}
