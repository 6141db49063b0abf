// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package halloc

// PageProvider supplies and releases contiguous, page-aligned memory
// ranges. The hosted implementation (mmapProvider, see
// provider_unix.go and provider_windows.go) backs pages with anonymous
// memory mapping; a freestanding port would implement PageProvider
// over a physical/virtual page allocator instead, without touching any
// layer above it.
type PageProvider interface {
	// Acquire returns the base address of count contiguous,
	// page-aligned, readable/writable pages, or an error if none are
	// available. Zero-initialization is not required.
	Acquire(count int) (addr, error)

	// Release returns a page range previously obtained from Acquire.
	Release(base addr, count int) error
}
