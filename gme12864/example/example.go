// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// example drives a GME12864 panel over a bit-banged I²C bus.
//
// With -sim, the bus and the panel are simulated and the result is shown in
// the terminal.
package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/oled/gme12864"
	"github.com/GermanBionicSystems/oled/gme12864/gme12864test"
	"github.com/GermanBionicSystems/oled/softi2c"
	"github.com/GermanBionicSystems/oled/softi2c/softi2ctest"
	"github.com/GermanBionicSystems/oled/termdisplay"
)

func main() {
	sdaName := flag.String("sda", "GPIO17", "SDA pin")
	sclName := flag.String("scl", "GPIO27", "SCL pin")
	addr := flag.Uint("addr", 0x3C, "I²C address of the panel")
	speed := flag.Int("khz", 100, "bus speed in kHz")
	sim := flag.Bool("sim", false, "simulate the bus and the panel in the terminal")
	text := flag.String("text", "Hello from periph!", "text to show")
	flag.Parse()

	var sda, scl gpio.PinIO
	var ctrl *gme12864test.Controller
	opts := softi2c.Opts{Speed: physic.Frequency(*speed) * physic.KiloHertz}
	if *sim {
		w := softi2ctest.NewWire()
		ctrl = gme12864test.NewController(gme12864.DefaultOpts.W, gme12864.DefaultOpts.H)
		w.Attach(uint16(*addr), ctrl)
		sda, scl = w.SDA(), w.SCL()
		opts.Delay = softi2c.NoDelay
	} else {
		// Make sure periph is initialized.
		if _, err := host.Init(); err != nil {
			log.Fatal(err)
		}
		if sda = gpioreg.ByName(*sdaName); sda == nil {
			log.Fatalf("no pin %q", *sdaName)
		}
		if scl = gpioreg.ByName(*sclName); scl == nil {
			log.Fatalf("no pin %q", *sclName)
		}
	}

	b, err := softi2c.New(sda, scl, &opts)
	if err != nil {
		log.Fatal(err)
	}
	defer b.Close()

	found, err := b.Scan()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s: devices at % X\n", b, found)

	dev, err := gme12864.NewI2C(b, &gme12864.Opts{Addr: uint16(*addr)})
	if err != nil {
		log.Fatal(err)
	}
	start := time.Now()
	if err := dev.Init(); err != nil {
		log.Fatalf("failed to initialize display: %v", err)
	}
	log.Printf("%s initialized in %s", dev, time.Since(start).Round(time.Millisecond))

	dev.DrawString(0, 0, *text)
	if err := dev.Update(); err != nil {
		log.Fatal(err)
	}
	show(ctrl)

	img, err := render(dev.Bounds(), *text)
	if err != nil {
		log.Fatal(err)
	}
	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		log.Fatal(err)
	}
	show(ctrl)
}

// render draws a framed text with a TrueType font.
func render(r image.Rectangle, text string) (image.Image, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	w, h := float64(r.Dx()), float64(r.Dy())
	dc := gg.NewContext(r.Dx(), r.Dy())
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(0.5, 0.5, w-1, h-1, 6)
	dc.Stroke()
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: 14}))
	dc.DrawStringWrapped(text, w/2, h/2, 0.5, 0.5, w-8, 1.2, gg.AlignCenter)
	return dc.Image(), nil
}

// show prints the simulated GDDRAM, if any.
func show(ctrl *gme12864test.Controller) {
	if ctrl == nil {
		return
	}
	t := termdisplay.New(&termdisplay.Opts{W: gme12864.DefaultOpts.W, H: gme12864.DefaultOpts.H})
	if _, err := t.Write(ctrl.GDDRAM()); err != nil {
		log.Fatal(err)
	}
	if err := t.Halt(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
