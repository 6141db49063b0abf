// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package halloc implements a general-purpose heap allocator suitable
// for hosted or freestanding embeddings.
//
// The allocator obtains page-granular memory from a PageProvider and
// subdivides it into variable-sized regions handed out through a
// classic Malloc/Free/Realloc/Calloc interface. Regions live inside
// heap blocks; each block owns a segregated free-list array of six
// size classes, searched first-fit class by class from the smallest
// class up. Freed
// regions are coalesced with their physically adjacent free neighbors
// before being reinserted, and a block with no remaining user
// allocation is unmapped and returned to the provider.
//
// The zero value of Allocator is ready to use: it lazily acquires
// pages from the host's virtual memory manager (mmap on Unix,
// CreateFileMapping/MapViewOfFile on Windows) and serializes its
// public methods with an internal sync.Mutex. Both collaborators can
// be swapped via NewAllocator for freestanding or single-threaded
// embeddings; see Option.
package halloc
