// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package termdisplay implements a monochrome display.Drawer that outputs to
// the terminal using ANSI color codes.
//
// It accepts the paged framebuffer layout of the gme12864 driver, so a
// simulated panel can be looked at while the real one is still in the mail.
package termdisplay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// Opts represents the options available for this display.
type Opts struct {
	W int
	H int
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// On is the color of lit pixels. Defaults to white.
	On color.Color
	// Out defaults to a colorable stdout.
	Out io.Writer

	_ struct{}
}

// Dev is a monochrome OLED emulator that outputs to the console.
type Dev struct {
	w    io.Writer
	rect image.Rectangle
	on   string
	off  string

	pixels []byte
	drawn  bool
	buf    bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	var on color.Color = color.White
	if opts.On != nil {
		on = opts.On
	}
	w := opts.Out
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Dev{
		w:      w,
		rect:   image.Rect(0, 0, opts.W, opts.H),
		on:     p.Block(color.NRGBAModel.Convert(on).(color.NRGBA)),
		off:    p.Block(color.NRGBA{A: 255}),
		pixels: make([]byte, opts.W*opts.H/8),
	}
}

func (d *Dev) String() string {
	return fmt.Sprintf("TermDisplay{%s}", d.rect.Max)
}

// Halt implements conn.Resource.
//
// It resets the terminal colors so it is not corrupted.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\033[0m\n"))
	return err
}

// Write accepts a paged framebuffer, 8 vertical pixels per byte, and writes
// it to the console.
func (d *Dev) Write(pixels []byte) (int, error) {
	if len(pixels) != len(d.pixels) {
		return 0, fmt.Errorf("termdisplay: invalid pixel stream length; expected %d bytes, got %d bytes", len(d.pixels), len(pixels))
	}
	copy(d.pixels, pixels)
	return d.refresh()
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.GrayModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.rect)
	delta := sp.Sub(r.Min)
	w := d.rect.Dx()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			g := color.GrayModel.Convert(src.At(x+delta.X, y+delta.Y)).(color.Gray)
			i := (y/8)*w + x
			if g.Y >= 0x80 {
				d.pixels[i] |= 1 << uint(y&7)
			} else {
				d.pixels[i] &^= 1 << uint(y&7)
			}
		}
	}
	_, err := d.refresh()
	return err
}

func (d *Dev) refresh() (int, error) {
	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	if d.drawn {
		// Move back up over the previous frame.
		fmt.Fprintf(&d.buf, "\033[%dA", d.rect.Dy())
	}
	w := d.rect.Dx()
	for y := 0; y < d.rect.Dy(); y++ {
		_, _ = d.buf.WriteString("\r\033[0m")
		for x := 0; x < w; x++ {
			if d.pixels[(y/8)*w+x]&(1<<uint(y&7)) != 0 {
				_, _ = d.buf.WriteString(d.on)
			} else {
				_, _ = d.buf.WriteString(d.off)
			}
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	d.drawn = true
	_, err := d.buf.WriteTo(d.w)
	return len(d.pixels), err
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
