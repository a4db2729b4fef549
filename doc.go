// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package oled is a container for a bit-banged I²C master and the GME12864
// OLED driver that runs on top of it.
//
// See softi2c for the bus, gme12864 for the display and termdisplay to look
// at a simulated panel in the terminal.
package oled
