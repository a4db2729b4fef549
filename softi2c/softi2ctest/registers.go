// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package softi2ctest

// Registers is a Device with 256 8 bit registers, like a small EEPROM.
//
// The first byte of a write transaction sets the register pointer, following
// bytes are stored. Reads start at the pointer. The pointer auto increments
// and survives a repeated start.
type Registers struct {
	Mem [256]byte
	// Limit, when not zero, is the number of bytes acknowledged per write
	// transaction, register pointer included. Further bytes are refused.
	Limit int

	ptr     byte
	pointer bool
	n       int
}

// Start implements Device.
func (r *Registers) Start(read bool) {
	r.pointer = !read
	r.n = 0
}

// Write implements Device.
func (r *Registers) Write(b byte) bool {
	if r.Limit != 0 && r.n >= r.Limit {
		return false
	}
	r.n++
	if r.pointer {
		r.ptr = b
		r.pointer = false
		return true
	}
	r.Mem[r.ptr] = b
	r.ptr++
	return true
}

// Read implements Device.
func (r *Registers) Read() byte {
	b := r.Mem[r.ptr]
	r.ptr++
	return b
}

// Stop implements Device.
func (r *Registers) Stop() {
}

var _ Device = &Registers{}
