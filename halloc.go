// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package halloc

import (
	"sync"
	"unsafe"
)

// Allocator allocates and frees memory. Its zero value is ready for
// use: pages come from the host's virtual memory manager and public
// methods are serialized by a lazily created mutexLocker. Use
// NewAllocator with WithPageProvider/WithLocker to swap either
// collaborator, e.g. for a freestanding embedding.
type Allocator struct {
	mu       sync.Mutex // guards lazy initialization of locker below
	locker   Locker
	provider PageProvider

	blocks blockList
}

// Option configures an Allocator constructed via NewAllocator.
type Option func(*Allocator)

// WithPageProvider installs the page provider an Allocator acquires
// and releases block-sized page ranges from. The default is an
// mmap-backed (CreateFileMapping/MapViewOfFile on Windows) provider.
func WithPageProvider(p PageProvider) Option { return func(a *Allocator) { a.provider = p } }

// WithLocker installs the mutual exclusion primitive an Allocator
// serializes its public methods through. The default is a
// sync.Mutex-backed Locker; pass NoopLocker{} for an embedding that is
// already single-threaded.
func WithLocker(l Locker) Option { return func(a *Allocator) { a.locker = l } }

// NewAllocator returns an Allocator configured with opts. Calling it
// is equivalent to taking the zero value and then applying opts.
func NewAllocator(opts ...Option) *Allocator {
	a := &Allocator{}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Allocator) pageProvider() PageProvider {
	if a.provider != nil {
		return a.provider
	}
	return hostedProvider
}

// resolveLocker returns the configured Locker, lazily installing the
// default mutexLocker on first use so the zero-value Allocator stays
// ready for use without a constructor call. a.mu only ever guards this
// one-time installation, never the critical section a Locker itself
// protects.
func (a *Allocator) resolveLocker() Locker {
	a.mu.Lock()
	if a.locker == nil {
		a.locker = &mutexLocker{}
	}
	l := a.locker
	a.mu.Unlock()
	return l
}

func (a *Allocator) lock() error   { return a.resolveLocker().Lock() }
func (a *Allocator) unlock() error { return a.resolveLocker().Unlock() }

// regionSizeFor translates a requested payload size into the total
// region size (header, including the 64-bit reserved alignment word,
// plus payload, plus footer) that must be carved out of a free region.
func regionSizeFor(payload int) uint32 {
	return uint32(payload) + uint32(headerSize) + uint32(footerSize)
}

// Malloc allocates size bytes and returns a pointer to the allocated
// memory, or nil if the request could not be satisfied. The memory is
// not initialized. Malloc panics for size < 0 and returns (nil, nil)
// for a zero size, matching the teacher's own Malloc.
func (a *Allocator) Malloc(size int) (p unsafe.Pointer, err error) {
	if traceEnabled {
		defer func() { trace("Malloc(%#x) %p, %v", size, p, err) }()
	}
	if size < 0 {
		panic(ErrNegativeSize)
	}
	if size == 0 {
		return nil, nil
	}

	if err := a.lock(); err != nil {
		return nil, err
	}
	defer a.unlock()

	regionSz := regionSizeFor(size)
	b := a.blocks.findFit(regionSz)
	if b == nil {
		nb, err := a.blocks.grow(a.pageProvider(), regionSz)
		if err != nil {
			return nil, err
		}
		b = nb
	}

	r := findFit(b, regionSz)
	if r == 0 {
		// Unreachable in practice: grow sizes the new block for
		// exactly this request. Guard against it anyway rather than
		// panic on a provider that rounds page counts unexpectedly.
		return nil, nil
	}

	hdr := allocateRegion(b, r, regionSz)
	return unsafe.Pointer(payloadAddr(hdr)), nil
}

// Calloc is like Malloc except the allocated memory is zeroed and the
// size is given as an element count and element size, failing if
// elemSize is 0.
func (a *Allocator) Calloc(n, elemSize int) (p unsafe.Pointer, err error) {
	if traceEnabled {
		defer func() { trace("Calloc(%d, %d) %p, %v", n, elemSize, p, err) }()
	}
	if elemSize == 0 {
		return nil, ErrInvalidElementSize
	}

	p, err = a.Malloc(n * elemSize)
	if p == nil || err != nil {
		return p, err
	}

	hdr := addr(p) - headerSize
	payload := int(regionSize(hdr)) - int(headerSize) - int(footerSize)
	b := unsafe.Slice((*byte)(p), payload)
	for i := range b {
		b[i] = 0
	}
	return p, nil
}

// Free deallocates memory acquired from Malloc, Calloc or Realloc. A
// nil pointer, or a pointer to an already-free region, is a silent
// no-op; so is a pointer this Allocator does not own.
func (a *Allocator) Free(p unsafe.Pointer) (err error) {
	if traceEnabled {
		defer func() { trace("Free(%p) %v", p, err) }()
	}
	if p == nil {
		return nil
	}

	hdr := addr(p) - headerSize
	if !regionUsed(hdr) {
		return nil // already free: cheap double-free guard
	}

	if err := a.lock(); err != nil {
		return err
	}
	defer a.unlock()

	b := a.blocks.findOwner(hdr)
	if b == nil {
		return nil // foreign pointer
	}

	freeRegionIn(b, hdr)
	if _, err := a.blocks.shrink(b, a.pageProvider()); err != nil {
		return err
	}
	return nil
}

// Realloc changes the size of the allocation at p to size bytes. It is
// equivalent to Malloc(size) if p is nil, and to Free(p) if size is 0
// and p is not nil. On success the first min(old, size) bytes of
// content are preserved and p is no longer valid; on failure p remains
// valid and nil is returned.
func (a *Allocator) Realloc(p unsafe.Pointer, size int) (r unsafe.Pointer, err error) {
	if traceEnabled {
		defer func() { trace("Realloc(%p, %#x) %p, %v", p, size, r, err) }()
	}
	switch {
	case p == nil:
		return a.Malloc(size)
	case size == 0:
		return nil, a.Free(p)
	}

	hdr := addr(p) - headerSize
	oldPayload := int(regionSize(hdr)) - int(headerSize) - int(footerSize)
	if size == oldPayload {
		return p, nil
	}

	r, err = a.Malloc(size)
	if err != nil || r == nil {
		return nil, err
	}

	n := oldPayload
	if size < n {
		n = size
	}
	if n > 0 {
		copy(unsafe.Slice((*byte)(r), n), unsafe.Slice((*byte)(p), n))
	}
	return r, a.Free(p)
}

// UsableSize reports the usable payload size of the allocation at p,
// which may be larger than what was originally requested because of
// split-alignment slack; p must have been returned by Malloc, Calloc
// or Realloc. It returns 0 for a nil pointer.
func (a *Allocator) UsableSize(p unsafe.Pointer) int {
	if p == nil {
		return 0
	}
	hdr := addr(p) - headerSize
	return int(regionSize(hdr)) - int(headerSize) - int(footerSize)
}

// Stats returns a diagnostic snapshot of every live block.
func (a *Allocator) Stats() (s Stats, err error) {
	if err := a.lock(); err != nil {
		return Stats{}, err
	}
	defer a.unlock()

	for b := a.blocks.head; b != nil; b = b.next {
		s.Blocks = append(s.Blocks, blockStats(b))
	}
	return s, nil
}

// Close releases every block's pages back to the page provider and
// empties the Allocator's block list; the configured page provider and
// Locker are kept. It is not necessary to Close an Allocator when
// exiting a process.
func (a *Allocator) Close() (err error) {
	if err := a.lock(); err != nil {
		return err
	}
	defer a.unlock()

	provider := a.pageProvider()
	for b := a.blocks.head; b != nil; {
		next := b.next
		if e := provider.Release(blockAddr(b), b.pages); e != nil && err == nil {
			err = e
		}
		b = next
	}
	a.blocks = blockList{}
	return err
}
