// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gme12864

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/GermanBionicSystems/oled/gme12864/gme12864test"
	"github.com/GermanBionicSystems/oled/softi2c"
	"github.com/GermanBionicSystems/oled/softi2c/softi2ctest"
)

const addr uint16 = 0x3C

func newDev(t *testing.T, b *i2ctest.Record) *Dev {
	d, err := NewI2C(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func pageOps(buffer []byte, w int) []i2ctest.IO {
	var ops []i2ctest.IO
	for page := 0; page < len(buffer)/w; page++ {
		ops = append(ops,
			i2ctest.IO{Addr: addr, W: []byte{0x00, 0xB0 | byte(page), 0x00, 0x10}},
			i2ctest.IO{Addr: addr, W: append([]byte{0x40}, buffer[page*w:page*w+w]...)},
		)
	}
	return ops
}

func checkOps(t *testing.T, got, expected []i2ctest.IO) {
	t.Helper()
	if len(got) != len(expected) {
		t.Fatalf("got %d transfers, expected %d", len(got), len(expected))
	}
	for i := range got {
		if got[i].Addr != expected[i].Addr || !bytes.Equal(got[i].W, expected[i].W) || len(got[i].R) != 0 {
			t.Fatalf("transfer %d: got %#v, expected %#v", i, got[i], expected[i])
		}
	}
}

func TestNewI2C(t *testing.T) {
	d, err := NewI2C(&i2ctest.Record{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if d.Bounds() != image.Rect(0, 0, 128, 64) {
		t.Fatalf("unexpected bounds %s", d.Bounds())
	}
	if len(d.buffer) != 1024 {
		t.Fatalf("unexpected framebuffer size %d", len(d.buffer))
	}
	if s := d.String(); s == "" {
		t.Fatal("empty String()")
	}

	d, err = NewI2C(&i2ctest.Record{}, &Opts{W: 64, H: 32, Addr: 0x3D})
	if err != nil {
		t.Fatal(err)
	}
	if len(d.buffer) != 256 || d.opts.Addr != 0x3D {
		t.Fatalf("unexpected device %s", d)
	}

	for _, o := range []Opts{
		{W: 129, H: 64},
		{W: 12, H: 64},
		{W: 128, H: 72},
		{W: 128, H: 0},
		{W: 128, H: 64, Addr: 0x80},
	} {
		if _, err := NewI2C(&i2ctest.Record{}, &o); err == nil {
			t.Fatalf("%#v: expected error", o)
		}
	}
}

func TestSetPixel(t *testing.T) {
	d := newDev(t, &i2ctest.Record{})
	w, h := d.Bounds().Dx(), d.Bounds().Dy()
	for y := range h {
		for x := range w {
			before := append([]byte(nil), d.buffer...)
			d.SetPixel(x, y, true)
			if !d.Pixel(x, y) {
				t.Fatalf("(%d, %d) not set", x, y)
			}
			i := (y/8)*w + x
			for j := range d.buffer {
				if j == i {
					if d.buffer[j] != before[j]|1<<uint(y%8) {
						t.Fatalf("(%d, %d): byte %d is 0x%02X", x, y, j, d.buffer[j])
					}
				} else if d.buffer[j] != before[j] {
					t.Fatalf("(%d, %d): byte %d changed", x, y, j)
				}
			}
			d.SetPixel(x, y, false)
			if d.Pixel(x, y) {
				t.Fatalf("(%d, %d) not cleared", x, y)
			}
			if !bytes.Equal(before, d.buffer) {
				t.Fatalf("(%d, %d): framebuffer not restored", x, y)
			}
		}
	}
}

func TestSetPixel_OutOfRange(t *testing.T) {
	d := newDev(t, &i2ctest.Record{})
	for i := range d.buffer {
		d.buffer[i] = byte(i * 7)
	}
	before := append([]byte(nil), d.buffer...)
	for _, p := range []image.Point{{-1, 0}, {0, -1}, {128, 0}, {0, 64}, {200, 200}, {-5, 70}} {
		d.SetPixel(p.X, p.Y, true)
		d.SetPixel(p.X, p.Y, false)
		if d.Pixel(p.X, p.Y) {
			t.Fatalf("%s reported on", p)
		}
	}
	if !bytes.Equal(before, d.buffer) {
		t.Fatal("framebuffer changed")
	}
}

func TestClear(t *testing.T) {
	r := &i2ctest.Record{}
	d := newDev(t, r)
	for i := range d.buffer {
		d.buffer[i] = 0xFF
	}
	d.Clear()
	for i, b := range d.buffer {
		if b != 0 {
			t.Fatalf("byte %d is 0x%02X", i, b)
		}
	}
	if len(r.Ops) != 0 {
		t.Fatalf("unexpected bus traffic %#v", r.Ops)
	}
}

func TestInit(t *testing.T) {
	var ops []i2ctest.IO
	for _, cmd := range initCmd(&DefaultOpts) {
		ops = append(ops, i2ctest.IO{Addr: addr, W: []byte{0x00, cmd}})
	}
	ops = append(ops, pageOps(make([]byte, 1024), 128)...)
	pb := &i2ctest.Playback{Ops: ops, DontPanic: true}
	d, err := NewI2C(pb, nil)
	if err != nil {
		t.Fatal(err)
	}
	d.SetPixel(3, 3, true)
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if err := pb.Close(); err != nil {
		t.Fatal(err)
	}
	if d.Pixel(3, 3) {
		t.Fatal("framebuffer not cleared")
	}
}

func TestInitCmd(t *testing.T) {
	cmds := initCmd(&Opts{W: 128, H: 32, Sequential: true})
	if cmds[0] != _DISPLAYOFF || cmds[len(cmds)-1] != _DISPLAYON {
		t.Fatalf("unexpected sequence % X", cmds)
	}
	if i := bytes.IndexByte(cmds, _SETMULTIPLEX); cmds[i+1] != 31 {
		t.Fatalf("unexpected multiplex 0x%02X", cmds[i+1])
	}
	if i := bytes.IndexByte(cmds, _SETCOMPINS); cmds[i+1] != 0x02 {
		t.Fatalf("unexpected COM pins 0x%02X", cmds[i+1])
	}
}

func TestUpdate(t *testing.T) {
	r := &i2ctest.Record{}
	d := newDev(t, r)
	d.Clear()
	if err := d.Update(); err != nil {
		t.Fatal(err)
	}
	if len(r.Ops) != 2*8 {
		t.Fatalf("expected 16 transfers, got %d", len(r.Ops))
	}
	for i, op := range r.Ops {
		if i%2 == 0 {
			continue
		}
		if len(op.W) != 1+128 {
			t.Fatalf("page %d: data block is %d bytes", i/2, len(op.W))
		}
	}
	checkOps(t, r.Ops, pageOps(make([]byte, 1024), 128))

	// A lit pixel lands on its page.
	r.Ops = nil
	d.SetPixel(10, 20, true)
	if err := d.Update(); err != nil {
		t.Fatal(err)
	}
	if got := r.Ops[2*2+1].W[1+10]; got != 1<<4 {
		t.Fatalf("page 2 column 10 is 0x%02X", got)
	}
}

type failingBus struct {
	i2ctest.Record
	after int
}

var errBus = errors.New("not acknowledged")

func (f *failingBus) Tx(addr uint16, w, r []byte) error {
	if len(f.Ops) >= f.after {
		return errBus
	}
	return f.Record.Tx(addr, w, r)
}

func TestUpdate_Failure(t *testing.T) {
	for _, after := range []int{0, 1, 5} {
		b := &failingBus{after: after}
		d, err := NewI2C(b, nil)
		if err != nil {
			t.Fatal(err)
		}
		d.SetPixel(1, 1, true)
		before := append([]byte(nil), d.buffer...)
		if err := d.Update(); !errors.Is(err, errBus) {
			t.Fatalf("expected error, got %v", err)
		}
		if len(b.Ops) != after {
			t.Fatalf("Update continued after the failure: %d transfers", len(b.Ops))
		}
		if !bytes.Equal(before, d.buffer) {
			t.Fatal("framebuffer changed")
		}
	}
}

func TestInit_Failure(t *testing.T) {
	b := &failingBus{after: 3}
	d, err := NewI2C(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Init(); !errors.Is(err, errBus) {
		t.Fatalf("expected error, got %v", err)
	}
	if len(b.Ops) != 3 {
		t.Fatalf("Init continued after the failure: %d transfers", len(b.Ops))
	}
}

func TestCommands(t *testing.T) {
	data := []struct {
		name     string
		f        func(d *Dev) error
		expected [][]byte
	}{
		{"contrast", func(d *Dev) error { return d.SetContrast(0x42) }, [][]byte{{0x00, 0x81}, {0x00, 0x42}}},
		{"on", func(d *Dev) error { return d.Power(true) }, [][]byte{{0x00, 0xAF}}},
		{"off", func(d *Dev) error { return d.Power(false) }, [][]byte{{0x00, 0xAE}}},
		{"halt", func(d *Dev) error { return d.Halt() }, [][]byte{{0x00, 0xAE}}},
		{"invert", func(d *Dev) error { return d.Invert(true) }, [][]byte{{0x00, 0xA7}}},
		{"normal", func(d *Dev) error { return d.Invert(false) }, [][]byte{{0x00, 0xA6}}},
	}
	for _, line := range data {
		r := &i2ctest.Record{}
		d := newDev(t, r)
		if err := line.f(d); err != nil {
			t.Fatalf("%s: %v", line.name, err)
		}
		var expected []i2ctest.IO
		for _, w := range line.expected {
			expected = append(expected, i2ctest.IO{Addr: addr, W: w})
		}
		checkOps(t, r.Ops, expected)
	}
}

func TestWrite(t *testing.T) {
	r := &i2ctest.Record{}
	d := newDev(t, r)
	if _, err := d.Write(make([]byte, 10)); err == nil {
		t.Fatal("expected error")
	}
	pix := make([]byte, 1024)
	pix[128*3+5] = 0x81
	n, err := d.Write(pix)
	if err != nil || n != len(pix) {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if !d.Pixel(5, 24) || !d.Pixel(5, 31) || d.Pixel(5, 25) {
		t.Fatal("unexpected framebuffer")
	}
	checkOps(t, r.Ops, pageOps(pix, 128))
}

func TestDrawString(t *testing.T) {
	d := newDev(t, &i2ctest.Record{})
	d.DrawString(0, 0, "AB")
	a, b := font5x7['A'-32], font5x7['B'-32]
	for col := range 5 {
		if d.buffer[col] != a[col] {
			t.Fatalf("x=%d: 0x%02X, expected 0x%02X", col, d.buffer[col], a[col])
		}
		if d.buffer[6+col] != b[col] {
			t.Fatalf("x=%d: 0x%02X, expected 0x%02X", 6+col, d.buffer[6+col], b[col])
		}
	}
	if d.buffer[5] != 0 || d.buffer[11] != 0 {
		t.Fatal("spacing column is not blank")
	}
}

func TestDrawString_NonASCII(t *testing.T) {
	d := newDev(t, &i2ctest.Record{})
	d.DrawString(0, 0, "AéB€C")
	for i, c := range []byte("ABC") {
		g := font5x7[c-32]
		for col := range 5 {
			if x := i*6 + col; d.buffer[x] != g[col] {
				t.Fatalf("x=%d: 0x%02X, expected 0x%02X", x, d.buffer[x], g[col])
			}
		}
	}
	for x := 18; x < 128; x++ {
		if d.buffer[x] != 0 {
			t.Fatalf("x=%d was drawn", x)
		}
	}
}

func TestDrawString_RightEdge(t *testing.T) {
	d := newDev(t, &i2ctest.Record{})
	s := ""
	for range 30 {
		s += "H"
	}
	d.DrawString(0, 8, s)
	h := font5x7['H'-32]
	// 21 characters fit: the last one covers x=120~124.
	if d.buffer[128+120] != h[0] || d.buffer[128+124] != h[4] {
		t.Fatal("last character missing")
	}
	for x := 125; x < 128; x++ {
		if d.buffer[128+x] != 0 {
			t.Fatalf("x=%d was drawn", x)
		}
	}
}

func TestDrawChar(t *testing.T) {
	d := newDev(t, &i2ctest.Record{})
	d.DrawChar(0, 0, 31, true)
	d.DrawChar(0, 0, 200, true)
	for i, b := range d.buffer {
		if b != 0 {
			t.Fatalf("byte %d drawn for a skipped character", i)
		}
	}
	// Off pixels of the glyph are lit when drawing inverted.
	d.DrawChar(0, 0, ' ', false)
	for x := range 5 {
		if d.buffer[x] != 0x7F {
			t.Fatalf("x=%d: 0x%02X", x, d.buffer[x])
		}
	}
	// Clipped at the bottom right corner.
	d.DrawChar(126, 60, '#', true)
	if !d.Pixel(126, 60) && !d.Pixel(127, 60) {
		t.Fatal("nothing drawn in the corner")
	}
}

func TestDrawText(t *testing.T) {
	d := newDev(t, &i2ctest.Record{})
	d.DrawText(0, 12, "Hi", nil)
	lit := 0
	for _, b := range d.buffer {
		for ; b != 0; b &= b - 1 {
			lit++
		}
	}
	if lit == 0 {
		t.Fatal("nothing drawn")
	}
	for x := range 128 {
		for y := 16; y < 64; y++ {
			if d.Pixel(x, y) {
				t.Fatalf("(%d, %d) drawn below the text", x, y)
			}
		}
	}
}

func TestDraw(t *testing.T) {
	r := &i2ctest.Record{}
	d := newDev(t, r)
	img := image.NewGray(image.Rect(0, 0, 128, 64))
	img.Set(7, 9, color.White)
	img.Set(8, 9, color.Gray{Y: 0x40})
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	if !d.Pixel(7, 9) || d.Pixel(8, 9) {
		t.Fatal("unexpected conversion")
	}
	if len(r.Ops) != 16 {
		t.Fatalf("Draw did not update the panel: %d transfers", len(r.Ops))
	}
	if d.At(7, 9) != On || d.At(0, 0) != Off {
		t.Fatal("unexpected At()")
	}
	if d.ColorModel().Convert(color.White) != On {
		t.Fatal("unexpected color model")
	}
}

func newSimulated(t *testing.T) (*Dev, *gme12864test.Controller, *softi2ctest.Wire) {
	w := softi2ctest.NewWire()
	c := gme12864test.NewController(128, 64)
	w.Attach(addr, c)
	b, err := softi2c.New(w.SDA(), w.SCL(), &softi2c.Opts{Delay: softi2c.NoDelay})
	if err != nil {
		t.Fatal(err)
	}
	d, err := NewI2C(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	return d, c, w
}

func TestSoftI2C(t *testing.T) {
	d, c, w := newSimulated(t)
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if !c.On() || c.Contrast() != 0xCF {
		t.Fatal("controller not configured")
	}
	d.DrawString(0, 0, "periph")
	d.SetPixel(127, 63, true)
	if err := d.Update(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(c.GDDRAM(), d.buffer) {
		t.Fatal("GDDRAM differs from the framebuffer")
	}
	if !w.Idle() {
		t.Fatal("bus left busy")
	}
	if err := d.SetContrast(0x10); err != nil {
		t.Fatal(err)
	}
	if err := d.Invert(true); err != nil {
		t.Fatal(err)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if c.On() || c.Contrast() != 0x10 || !c.Inverted() {
		t.Fatal("commands not applied")
	}
}

func TestSoftI2C_Update(t *testing.T) {
	d, _, w := newSimulated(t)
	if err := d.Update(); err != nil {
		t.Fatal(err)
	}
	// One header and one data block per page.
	if n := w.Count(softi2ctest.Start); n != 16 {
		t.Fatalf("expected 16 transactions, got %d", n)
	}
	page := 0
	n := 0
	for _, e := range w.Log() {
		switch e.Kind {
		case softi2ctest.Start:
			n = 0
		case softi2ctest.Write:
			if n == 1 && e.Value&0xF0 == 0xB0 {
				if int(e.Value&0x0F) != page {
					t.Fatalf("page %d sent out of order", e.Value&0x0F)
				}
				page++
			}
			n++
		}
	}
	if page != 8 {
		t.Fatalf("got %d page headers", page)
	}
}

func TestSoftI2C_NoDevice(t *testing.T) {
	w := softi2ctest.NewWire()
	b, err := softi2c.New(w.SDA(), w.SCL(), &softi2c.Opts{Delay: softi2c.NoDelay})
	if err != nil {
		t.Fatal(err)
	}
	d, err := NewI2C(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Init(); !errors.Is(err, softi2c.ErrNACK) {
		t.Fatalf("expected ErrNACK, got %v", err)
	}
	if n := w.Count(softi2ctest.Stop); n != 1 {
		t.Fatalf("expected a single transaction, got %d", n)
	}
	if !w.Idle() {
		t.Fatal("bus left busy")
	}
}
