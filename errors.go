// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package halloc

import "errors"

// ErrInvalidElementSize is returned by Calloc when elemSize is 0.
var ErrInvalidElementSize = errors.New("halloc: Calloc called with a zero element size")

// ErrNegativeSize is returned (as a panic, matching the teacher's own
// Malloc) when a caller asks for a negative byte count. It is exported
// so embedders can recover() and compare with errors.Is if they choose
// to convert the panic into an error at their own API boundary.
var ErrNegativeSize = errors.New("halloc: invalid negative size")
