// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gme12864test models the controller of a GME12864 OLED module as a
// peer on a simulated I²C bus.
package gme12864test

import (
	"sync"

	"github.com/GermanBionicSystems/oled/softi2c/softi2ctest"
)

// Commands taking one argument byte.
var withArg = map[byte]bool{
	0x20: true, // memory mode
	0x81: true, // contrast
	0x8D: true, // charge pump
	0xA8: true, // multiplex
	0xD3: true, // display offset
	0xD5: true, // clock divide
	0xD9: true, // precharge
	0xDA: true, // COM pins
	0xDB: true, // VCOM detect
}

// Controller decodes the command and data streams a SSD1306 compatible
// controller receives and renders the data into its GDDRAM.
type Controller struct {
	mu sync.Mutex
	w  int
	h  int

	gddram   []byte
	on       bool
	inverted bool
	contrast byte
	commands []byte

	page    int
	col     int
	control bool
	data    bool
	arg     byte
}

// NewController returns a controller for a w x h panel, powered off with a
// blank GDDRAM.
func NewController(w, h int) *Controller {
	return &Controller{w: w, h: h, gddram: make([]byte, w*h/8), contrast: 0x7F}
}

// GDDRAM returns a copy of the display memory, in the driver framebuffer
// layout.
func (c *Controller) GDDRAM() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.gddram...)
}

// Commands returns every command byte received, arguments included.
func (c *Controller) Commands() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.commands...)
}

// On returns true when the panel is turned on.
func (c *Controller) On() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.on
}

// Inverted returns true when the panel shows black on white.
func (c *Controller) Inverted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverted
}

// Contrast returns the last contrast level set.
func (c *Controller) Contrast() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contrast
}

// Start implements softi2ctest.Device.
func (c *Controller) Start(read bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.control = !read
}

// Write implements softi2ctest.Device.
func (c *Controller) Write(b byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.control {
		// Co bit 7 is not used; bit 6 selects data.
		c.data = b&0x40 != 0
		c.control = false
		return true
	}
	if c.data {
		if c.col < c.w && c.page < c.h/8 {
			c.gddram[c.page*c.w+c.col] = b
		}
		c.col++
		return true
	}
	c.command(b)
	return true
}

// Read implements softi2ctest.Device. It returns the status byte: bit 6 is set
// when the panel is off.
func (c *Controller) Read() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := byte(0x06)
	if !c.on {
		s |= 0x40
	}
	return s
}

// Stop implements softi2ctest.Device.
func (c *Controller) Stop() {
}

func (c *Controller) command(b byte) {
	c.commands = append(c.commands, b)
	if c.arg != 0 {
		if c.arg == 0x81 {
			c.contrast = b
		}
		c.arg = 0
		return
	}
	switch {
	case withArg[b]:
		c.arg = b
	case b == 0xAE:
		c.on = false
	case b == 0xAF:
		c.on = true
	case b == 0xA6:
		c.inverted = false
	case b == 0xA7:
		c.inverted = true
	case b&0xF0 == 0xB0:
		c.page = int(b & 0x07)
	case b&0xF0 == 0x00:
		c.col = c.col&0xF0 | int(b&0x0F)
	case b&0xF0 == 0x10:
		c.col = int(b&0x0F)<<4 | c.col&0x0F
	}
}

var _ softi2ctest.Device = &Controller{}
