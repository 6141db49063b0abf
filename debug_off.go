// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !halloc_debug

package halloc

const traceEnabled = false

func trace(string, ...interface{}) {}
