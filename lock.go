// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package halloc

import "sync"

// Locker is the mutual exclusion primitive every public Allocator
// method serializes through. Implementations may be a spinlock, an
// interrupt-disable, a futex-backed mutex, or a no-op in a
// single-threaded embedding. Lock returning a non-nil error aborts the
// call without touching allocator state; an error from Unlock is
// ignored.
type Locker interface {
	Lock() error
	Unlock() error
}

// mutexLocker is the default Locker, backed by sync.Mutex — the same
// synchronization primitive github.com/nmxmxh/inos_v1's arena
// allocators (SlabAllocator, BuddyAllocator, HybridAllocator) guard
// their public methods with.
type mutexLocker struct {
	mu sync.Mutex
}

func (l *mutexLocker) Lock() error   { l.mu.Lock(); return nil }
func (l *mutexLocker) Unlock() error { l.mu.Unlock(); return nil }

// NoopLocker is a Locker that performs no synchronization, for
// embeddings that are already single-threaded or that serialize
// access some other way (e.g. interrupts disabled around the call
// site in a freestanding kernel).
type NoopLocker struct{}

func (NoopLocker) Lock() error   { return nil }
func (NoopLocker) Unlock() error { return nil }
