// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gme12864

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
)

const (
	_SETLOWCOLUMN        = 0x00
	_SETHIGHCOLUMN       = 0x10
	_MEMORYMODE          = 0x20
	_SETSTARTLINE        = 0x40
	_SETCONTRAST         = 0x81
	_CHARGEPUMP          = 0x8D
	_SETSEGMENTREMAP     = 0xA1
	_DISPLAYALLON_RESUME = 0xA4
	_NORMALDISPLAY       = 0xA6
	_INVERTDISPLAY       = 0xA7
	_SETMULTIPLEX        = 0xA8
	_DISPLAYOFF          = 0xAE
	_DISPLAYON           = 0xAF
	_PAGESTARTADDRESS    = 0xB0
	_COMSCANDEC          = 0xC8
	_SETDISPLAYOFFSET    = 0xD3
	_SETDISPLAYCLOCKDIV  = 0xD5
	_SETPRECHARGE        = 0xD9
	_SETCOMPINS          = 0xDA
	_SETVCOMDETECT       = 0xDB
)

const (
	i2cCmd  = 0x00 // I²C transaction has stream of command bytes
	i2cData = 0x40 // I²C transaction has stream of data bytes
)

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	W:    128,
	H:    64,
	Addr: 0x3C,
}

// Opts defines the options for the device.
type Opts struct {
	W int
	H int
	// The I2C address of the display. 0x3C on most modules, 0x3D when the
	// address jumper is moved.
	Addr uint16
	// Sequential corresponds to the Sequential/Alternative COM pin
	// configuration. Try toggling this if every other row is missing,
	// typically on 32 pixel high panels.
	Sequential bool
}

// Dev is an open handle to the display controller.
type Dev struct {
	c    conn.Conn
	opts Opts
	rect image.Rectangle

	// See page 25 of the datasheet for the GDDRAM pages structure.
	buffer []byte
	// page is the data transfer of one page: the data control byte followed by
	// W bytes.
	page []byte
}

// NewI2C returns a Dev that talks to the controller at opts.Addr on b.
//
// opts may be nil to use DefaultOpts. No bus traffic happens until Init.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	if o.Addr == 0 {
		o.Addr = DefaultOpts.Addr
	}
	if o.W == 0 && o.H == 0 {
		o.W, o.H = DefaultOpts.W, DefaultOpts.H
	}
	if o.Addr > 0x7F {
		return nil, fmt.Errorf("gme12864: invalid address 0x%X", o.Addr)
	}
	if o.W < 8 || o.W > 128 || o.W&7 != 0 {
		return nil, fmt.Errorf("gme12864: invalid width %d", o.W)
	}
	if o.H < 8 || o.H > 64 || o.H&7 != 0 {
		return nil, fmt.Errorf("gme12864: invalid height %d", o.H)
	}
	d := &Dev{
		c:      &i2c.Dev{Bus: b, Addr: o.Addr},
		opts:   o,
		rect:   image.Rect(0, 0, o.W, o.H),
		buffer: make([]byte, o.W*o.H/8),
		page:   make([]byte, 1+o.W),
	}
	d.page[0] = i2cData
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("gme12864.Dev{%s, %s}", d.c, d.rect.Max)
}

// Init configures the controller, clears the framebuffer and sends it.
//
// It stops at the first command that fails.
func (d *Dev) Init() error {
	if err := d.sendCommands(initCmd(&d.opts)...); err != nil {
		return err
	}
	d.Clear()
	return d.Update()
}

func initCmd(opts *Opts) []byte {
	hwLayout := byte(0x12)
	if opts.Sequential {
		hwLayout = 0x02
	}
	return []byte{
		_DISPLAYOFF,
		_SETDISPLAYCLOCKDIV, 0x80, // Power on reset oscillator frequency and divide ratio.
		_SETMULTIPLEX, byte(opts.H - 1), // Number of lines to display.
		_SETDISPLAYOFFSET, 0x00,
		_SETSTARTLINE,
		_CHARGEPUMP, 0x14, // Enable the charge pump regulator.
		_MEMORYMODE, 0x00, // Horizontal addressing.
		_SETSEGMENTREMAP,
		_COMSCANDEC,
		_SETCOMPINS, hwLayout,
		_SETCONTRAST, 0xCF,
		_SETPRECHARGE, 0xF1,
		_SETVCOMDETECT, 0x40,
		_DISPLAYALLON_RESUME, // Use GDDRAM content.
		_NORMALDISPLAY,
		_DISPLAYON,
	}
}

// Clear turns every pixel of the framebuffer off. The panel is not touched
// until the next Update.
func (d *Dev) Clear() {
	clear(d.buffer)
}

// SetPixel turns the pixel at x, y on or off in the framebuffer.
//
// Coordinates outside the panel are ignored.
func (d *Dev) SetPixel(x, y int, on bool) {
	if x < 0 || y < 0 || x >= d.rect.Max.X || y >= d.rect.Max.Y {
		return
	}
	i := (y/8)*d.rect.Max.X + x
	bit := byte(1) << uint(y&7)
	if on {
		d.buffer[i] |= bit
	} else {
		d.buffer[i] &^= bit
	}
}

// Pixel returns true if the pixel at x, y is on in the framebuffer.
func (d *Dev) Pixel(x, y int) bool {
	if x < 0 || y < 0 || x >= d.rect.Max.X || y >= d.rect.Max.Y {
		return false
	}
	return d.buffer[(y/8)*d.rect.Max.X+x]&(1<<uint(y&7)) != 0
}

// Update sends the framebuffer to the controller, page by page from the top.
//
// It stops at the first failed transfer; the framebuffer is kept as is and
// the panel may show a partially updated frame.
func (d *Dev) Update() error {
	w := d.rect.Dx()
	for page := 0; page < d.rect.Dy()/8; page++ {
		hdr := []byte{i2cCmd, _PAGESTARTADDRESS | byte(page), _SETLOWCOLUMN, _SETHIGHCOLUMN}
		if err := d.c.Tx(hdr, nil); err != nil {
			return fmt.Errorf("gme12864: page %d: %w", page, err)
		}
		copy(d.page[1:], d.buffer[page*w:page*w+w])
		if err := d.c.Tx(d.page, nil); err != nil {
			return fmt.Errorf("gme12864: page %d data: %w", page, err)
		}
	}
	return nil
}

// Write replaces the framebuffer with pixels and sends it.
//
// pixels must use the framebuffer layout and be exactly W*H/8 bytes.
func (d *Dev) Write(pixels []byte) (int, error) {
	if len(pixels) != len(d.buffer) {
		return 0, fmt.Errorf("gme12864: invalid pixel stream length; expected %d bytes, got %d bytes", len(d.buffer), len(pixels))
	}
	copy(d.buffer, pixels)
	if err := d.Update(); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// SetContrast changes the screen contrast.
func (d *Dev) SetContrast(level byte) error {
	return d.sendCommands(_SETCONTRAST, level)
}

// Power turns the panel on or off. The GDDRAM content is retained while off.
func (d *Dev) Power(on bool) error {
	if on {
		return d.sendCommands(_DISPLAYON)
	}
	return d.sendCommands(_DISPLAYOFF)
}

// Invert the display (black on white vs white on black).
func (d *Dev) Invert(blackOnWhite bool) error {
	if blackOnWhite {
		return d.sendCommands(_INVERTDISPLAY)
	}
	return d.sendCommands(_NORMALDISPLAY)
}

// Halt implements conn.Resource. It turns the panel off.
func (d *Dev) Halt() error {
	return d.Power(false)
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return BitModel
}

// Bounds implements display.Drawer. Min is guaranteed to be {0, 0}.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// At implements image.Image on the framebuffer.
func (d *Dev) At(x, y int) color.Color {
	return Bit(d.Pixel(x, y))
}

// Set implements draw.Image on the framebuffer.
func (d *Dev) Set(x, y int, c color.Color) {
	d.SetPixel(x, y, bool(convertBit(c)))
}

// Draw implements display.Drawer.
//
// It copies src into the framebuffer and sends it, once this function
// returns the panel is updated.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	draw.Src.Draw(d, r, src, sp)
	return d.Update()
}

// DrawText draws s with its baseline starting at x, y using face. A nil face
// uses basicfont.Face7x13. Only the framebuffer is changed.
func (d *Dev) DrawText(x, y int, s string, face font.Face) {
	if face == nil {
		face = basicfont.Face7x13
	}
	dr := font.Drawer{
		Dst:  d,
		Src:  image.NewUniform(On),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	dr.DrawString(s)
}

func (d *Dev) sendCommands(cmds ...byte) error {
	// Each command goes in its own transaction.
	for _, cmd := range cmds {
		if err := d.c.Tx([]byte{i2cCmd, cmd}, nil); err != nil {
			return fmt.Errorf("gme12864: command 0x%02X: %w", cmd, err)
		}
	}
	return nil
}

var _ display.Drawer = &Dev{}
var _ draw.Image = &Dev{}
