// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package halloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mallocN(t *testing.T, a *Allocator, size int) unsafe.Pointer {
	t.Helper()
	p, err := a.Malloc(size)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Zero(t, uintptr(p)%payloadAlign, "payload not 16-aligned")
	return p
}

func freeN(t *testing.T, a *Allocator, p unsafe.Pointer) {
	t.Helper()
	require.NoError(t, a.Free(p))
}

// 1. Single small allocation.
func TestScenarioSingleSmall(t *testing.T) {
	var a Allocator
	p := mallocN(t, &a, 4)

	b := bytesOf(p, 4)
	b[0] = 42
	assert.Equal(t, byte(42), bytesOf(p, 4)[0])

	freeN(t, &a, p)

	s, err := a.Stats()
	require.NoError(t, err)
	for _, bs := range s.Blocks {
		assert.LessOrEqual(t, bs.UsedSize, a.blocks.baseline, "block should have been reclaimed to baseline")
	}
}

// 2. Five-element burst.
func TestScenarioFiveElementBurst(t *testing.T) {
	var a Allocator
	const n = 5
	ptrs := make([]unsafe.Pointer, n)
	for i := 0; i < n; i++ {
		ptrs[i] = mallocN(t, &a, int(unsafe.Sizeof(int(0))))
		*(*int)(ptrs[i]) = i
	}

	seen := map[unsafe.Pointer]bool{}
	for i, p := range ptrs {
		assert.False(t, seen[p], "duplicate pointer at index %d", i)
		seen[p] = true
		assert.Equal(t, i, *(*int)(p))
	}

	for _, p := range ptrs {
		freeN(t, &a, p)
	}
}

// 3. Coalesce-left.
func testCoalesceLeft(t *testing.T, size int) {
	var a Allocator
	pa := mallocN(t, &a, size)
	pb := mallocN(t, &a, size)
	pc := mallocN(t, &a, size)

	freeN(t, &a, pb)
	freeN(t, &a, pa)

	px := mallocN(t, &a, 2*size)
	assert.Equal(t, pa, px, "reallocation should reuse the coalesced left region")

	freeN(t, &a, px)
	freeN(t, &a, pc)
}

func TestScenarioCoalesceLeft64(t *testing.T)   { testCoalesceLeft(t, 64) }
func TestScenarioCoalesceLeft4096(t *testing.T) { testCoalesceLeft(t, 4096) }

// 4. Coalesce-right.
func testCoalesceRight(t *testing.T, size int) {
	var a Allocator
	pa := mallocN(t, &a, size)
	pb := mallocN(t, &a, size)
	pc := mallocN(t, &a, size)
	pd := mallocN(t, &a, size)

	freeN(t, &a, pc)
	freeN(t, &a, pd)

	py := mallocN(t, &a, 2*size)
	assert.Equal(t, pc, py, "reallocation should reuse the coalesced right region")

	freeN(t, &a, pa)
	freeN(t, &a, pb)
	freeN(t, &a, py)
}

func TestScenarioCoalesceRight64(t *testing.T)   { testCoalesceRight(t, 64) }
func TestScenarioCoalesceRight4096(t *testing.T) { testCoalesceRight(t, 4096) }

// 5. Coalesce-both.
func testCoalesceBoth(t *testing.T, size int) {
	var a Allocator
	pa := mallocN(t, &a, size)
	pb := mallocN(t, &a, size)
	pc := mallocN(t, &a, size)
	pd := mallocN(t, &a, size)

	freeN(t, &a, pc)
	freeN(t, &a, pb)
	freeN(t, &a, pd)

	pz := mallocN(t, &a, 3*size)
	assert.Equal(t, pb, pz, "reallocation should reuse the coalesced region spanning B, C and D")

	freeN(t, &a, pa)
	freeN(t, &a, pz)
}

func TestScenarioCoalesceBoth64(t *testing.T)   { testCoalesceBoth(t, 64) }
func TestScenarioCoalesceBoth4096(t *testing.T) { testCoalesceBoth(t, 4096) }

// 6. Large-then-small.
func TestScenarioLargeThenSmall(t *testing.T) {
	var a Allocator
	large := mallocN(t, &a, 4096)
	lb := bytesOf(large, 4096)
	for i := range lb {
		lb[i] = byte(i)
	}

	var small []unsafe.Pointer
	for i := 0; i < 8; i++ {
		small = append(small, mallocN(t, &a, 64))
	}

	for i, g := range bytesOf(large, 4096) {
		require.Equal(t, byte(i), g, "large allocation's payload was disturbed at offset %d", i)
	}

	for _, p := range small {
		freeN(t, &a, p)
	}
	freeN(t, &a, large)
}

// A zero-value Allocator lazily installs a mutexLocker as its default
// Locker, and WithLocker overrides that default.
func TestDefaultLockerIsMutexLocker(t *testing.T) {
	var a Allocator
	require.NoError(t, a.lock())
	require.NoError(t, a.unlock())
	_, ok := a.locker.(*mutexLocker)
	assert.True(t, ok, "zero-value Allocator should default to *mutexLocker")

	custom := NoopLocker{}
	b := NewAllocator(WithLocker(custom))
	require.NoError(t, b.lock())
	assert.Equal(t, custom, b.locker)
}

// Idempotence of free on null.
func TestFreeNilIsNoop(t *testing.T) {
	var a Allocator
	assert.NoError(t, a.Free(nil))
}

// Resize identity: realloc(p, size_of(p)) == p.
func TestResizeIdentity(t *testing.T) {
	var a Allocator
	p := mallocN(t, &a, 100)
	usable := a.UsableSize(p)

	q, err := a.Realloc(p, usable)
	require.NoError(t, err)
	assert.Equal(t, p, q)

	freeN(t, &a, q)
}

// Exclusivity and write isolation across a handful of concurrent live
// allocations of varying size.
func TestExclusivityAndWriteIsolation(t *testing.T) {
	var a Allocator
	sizes := []int{7, 64, 1, 4096, 33, 256}
	ptrs := make([]unsafe.Pointer, len(sizes))
	for i, sz := range sizes {
		ptrs[i] = mallocN(t, &a, sz)
		b := bytesOf(ptrs[i], sz)
		for j := range b {
			b[j] = byte(i + 1)
		}
	}

	for i, p := range ptrs {
		b := bytesOf(p, sizes[i])
		for j, g := range b {
			require.Equalf(t, byte(i+1), g, "allocation %d corrupted at offset %d", i, j)
		}
	}

	for _, p := range ptrs {
		freeN(t, &a, p)
	}
}

// Malloc panics with ErrNegativeSize for a negative size, and that
// value round-trips through recover() so an embedder can convert it to
// an ordinary error at its own API boundary.
func TestMallocNegativeSizePanicsWithErrNegativeSize(t *testing.T) {
	var a Allocator
	defer func() {
		r := recover()
		require.NotNil(t, r)
		assert.ErrorIs(t, r.(error), ErrNegativeSize)
	}()
	a.Malloc(-1)
}

// Calloc zeroes its payload and rejects a zero element size.
func TestCallocZeroesAndValidates(t *testing.T) {
	var a Allocator
	_, err := a.Calloc(4, 0)
	assert.ErrorIs(t, err, ErrInvalidElementSize)

	p, err := a.Calloc(16, 4)
	require.NoError(t, err)
	for _, b := range bytesOf(p, 64) {
		assert.Zero(t, b)
	}
	freeN(t, &a, p)
}
