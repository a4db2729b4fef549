// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package softi2c

import (
	"periph.io/x/conn/v3/gpio"
)

// LineState is the state the master imposes on an open-drain line.
//
// There is no driven-high state; a released line is pulled high by the
// external resistor unless a peer holds it low.
type LineState uint8

const (
	// Released sets the pin as a floating input.
	Released LineState = iota
	// DrivenLow sets the pin as an output at Low.
	DrivenLow
)

func (s LineState) String() string {
	if s == DrivenLow {
		return "DrivenLow"
	}
	return "Released"
}

// line is one open-drain bus line.
type line struct {
	p     gpio.PinIO
	state LineState
}

// set changes the line state. The recorded state is left untouched when the
// pin refuses the change.
func (l *line) set(s LineState) error {
	var err error
	if s == DrivenLow {
		err = l.p.Out(gpio.Low)
	} else {
		err = l.p.In(gpio.Float, gpio.NoEdge)
	}
	if err != nil {
		return err
	}
	l.state = s
	return nil
}

func (l *line) high() bool {
	return l.p.Read() == gpio.High
}
