// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package softi2c

import (
	"time"

	"periph.io/x/conn/v3/physic"
)

// Delayer blocks for the fixed delay that follows each line transition.
type Delayer interface {
	Delay()
}

// DelayFunc adapts a function to the Delayer interface.
type DelayFunc func()

// Delay implements Delayer.
func (f DelayFunc) Delay() {
	f()
}

// NoDelay returns immediately. Use it with simulated buses.
var NoDelay Delayer = DelayFunc(func() {})

// spinDelay busy-waits. time.Sleep cannot resolve a few microseconds.
type spinDelay time.Duration

func (s spinDelay) Delay() {
	for start := time.Now(); time.Since(start) < time.Duration(s); {
	}
}

// transitionsPerBit is the number of line transitions, each followed by a
// delay, needed to clock one bit.
const transitionsPerBit = 3

func delayFor(f physic.Frequency) spinDelay {
	return spinDelay(f.Period() / transitionsPerBit)
}
