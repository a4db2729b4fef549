// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package softi2c

import "fmt"

// The functions below must be called with b.mu held.

func (b *Bus) setSDA(s LineState) {
	b.set(&b.sda, "SDA", s)
}

func (b *Bus) setSCL(s LineState) {
	b.set(&b.scl, "SCL", s)
}

func (b *Bus) set(l *line, name string, s LineState) {
	if err := l.set(s); err != nil && b.err == nil {
		b.err = fmt.Errorf("softi2c: %s %s: %w", name, s, err)
	}
}

func (b *Bus) wait() {
	b.delay.Delay()
}

// start issues a start condition: SDA falls while SCL is high. It is also
// used for repeated starts.
func (b *Bus) start() {
	b.setSDA(Released)
	b.setSCL(Released)
	b.wait()
	b.setSDA(DrivenLow)
	b.wait()
	b.setSCL(DrivenLow)
	b.wait()
}

// stop issues a stop condition: SDA rises while SCL is high.
func (b *Bus) stop() {
	b.setSDA(DrivenLow)
	b.wait()
	b.setSCL(Released)
	b.wait()
	b.setSDA(Released)
	b.wait()
}

// writeByte shifts out v MSB first and returns true if the peer acknowledged
// it.
func (b *Bus) writeByte(v byte) bool {
	for range 8 {
		if v&0x80 != 0 {
			b.setSDA(Released)
		} else {
			b.setSDA(DrivenLow)
		}
		v <<= 1
		b.wait()
		b.setSCL(Released)
		b.wait()
		b.setSCL(DrivenLow)
		b.wait()
	}
	// Let the peer drive the ACK bit.
	b.setSDA(Released)
	b.wait()
	b.setSCL(Released)
	b.wait()
	ack := !b.sda.high()
	b.setSCL(DrivenLow)
	b.wait()
	return ack
}

// readByte shifts in one byte MSB first, then answers with ACK when ack is
// true or NACK for the last byte of a read.
func (b *Bus) readByte(ack bool) byte {
	var v byte
	for range 8 {
		v <<= 1
		b.setSDA(Released)
		b.wait()
		b.setSCL(Released)
		b.wait()
		if b.sda.high() {
			v |= 1
		}
		b.setSCL(DrivenLow)
		b.wait()
	}
	if ack {
		b.setSDA(DrivenLow)
	} else {
		b.setSDA(Released)
	}
	b.wait()
	b.setSCL(Released)
	b.wait()
	b.setSCL(DrivenLow)
	b.wait()
	b.setSDA(Released)
	return v
}
