// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// Modifications (c) 2017 The Memory Authors.
// Adapted for page-granular acquire/release (c) The halloc Authors.

package halloc

import (
	"errors"
	"os"
	"syscall"
)

type mmapProvider struct{}

var hostedProvider PageProvider = mmapProvider{}

// handleMap recovers the file-mapping handle for a previously mapped
// base address, the way the teacher's mmap_windows.go does; Windows
// requires the handle back at unmap time and gives us no other way to
// recover it from the address alone.
var handleMap = map[addr]syscall.Handle{}

func (mmapProvider) Acquire(count int) (addr, error) {
	size := count * pageSize

	maxSizeHigh := uint32(int64(size) >> 32)
	maxSizeLow := uint32(int64(size) & 0xFFFFFFFF)
	h, errno := syscall.CreateFileMapping(syscall.Handle(^uintptr(0)), nil, syscall.PAGE_READWRITE, maxSizeHigh, maxSizeLow, nil)
	if h == 0 {
		return 0, os.NewSyscallError("CreateFileMapping", errno)
	}

	base, errno := syscall.MapViewOfFile(h, syscall.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if base == 0 {
		return 0, os.NewSyscallError("MapViewOfFile", errno)
	}
	if base&(pageSize-1) != 0 {
		panic("halloc: MapViewOfFile returned a non-page-aligned address")
	}

	handleMap[addr(base)] = h
	trace("provider: acquired %d page(s) at %#x", count, base)
	return addr(base), nil
}

func (mmapProvider) Release(base addr, count int) error {
	if err := syscall.UnmapViewOfFile(uintptr(base)); err != nil {
		return err
	}

	handle, ok := handleMap[base]
	if !ok {
		return errors.New("halloc: unknown base address")
	}
	delete(handleMap, base)

	trace("provider: released %d page(s) at %#x", count, base)
	return os.NewSyscallError("CloseHandle", syscall.CloseHandle(handle))
}
