// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gme12864 controls the GME12864 128x64 monochrome OLED module over
// I²C.
//
// The module carries a SSD1306 compatible controller. The driver keeps the
// whole picture in a local framebuffer; drawing only touches memory and
// Update pushes the framebuffer to the panel, one page at a time.
//
// Any i2c.Bus works, including the bit-banged softi2c.Bus for boards without
// a hardware I²C controller. At 100kHz a full frame takes about 100ms.
//
// # Framebuffer layout
//
// The panel is split in pages, horizontal bands of 8 pixels high. Each byte
// holds 8 vertically adjacent pixels, the least significant bit on top. Page
// p is framebuffer[p*W : p*W+W].
//
// # Datasheet
//
// https://cdn-shop.adafruit.com/datasheets/SSD1306.pdf
package gme12864
