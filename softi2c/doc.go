// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package softi2c implements an I²C master in software by toggling two GPIO
// pins.
//
// It is meant for boards where the hardware I²C controller is missing, busy
// or wired to the wrong pins. The bus runs at up to 100kHz, with a single
// master and no clock stretching.
//
// # Wiring
//
// Both lines are open-drain: the driver only ever pulls a line low or
// releases it to high impedance. The high level comes from external pull-up
// resistors (typically 4.7kΩ to the peripheral supply) that must be present on
// both SDA and SCL. The driver never drives a line high.
//
// # Usage
//
// Bus implements i2c.BusCloser, so any periph device driver can use it:
//
//	b, err := softi2c.New(gpioreg.ByName("GPIO2"), gpioreg.ByName("GPIO3"), nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//	d := &i2c.Dev{Bus: b, Addr: 0x3C}
//
// # Timing
//
// Every transition of a line is followed by the same fixed delay, one third
// of a bit period. The delay is a busy-wait by default; tests and simulations
// can inject their own Delayer.
package softi2c
