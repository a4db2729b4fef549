// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package softi2ctest simulates the two open-drain lines of an I²C bus so a
// bit-banged master can be tested without hardware.
//
// The Wire decodes the master's pin transitions into start and stop
// conditions, addresses, data bytes and acknowledge bits, and lets attached
// Devices answer like real peers.
package softi2ctest

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// Device is the peer side of a simulated bus.
type Device interface {
	// Start is called once the device acknowledged its address. read is the
	// direction bit.
	Start(read bool)
	// Write receives a byte from the master and returns true to acknowledge
	// it.
	Write(b byte) bool
	// Read returns the next byte to send to the master.
	Read() byte
	// Stop is called on the stop condition that ends the transaction.
	Stop()
}

// Kind is the type of a decoded bus event.
type Kind int

// Decoded bus events.
const (
	Start Kind = iota
	Stop
	// Address is the first byte after a start condition.
	Address
	// Write is a data byte sent by the master.
	Write
	// Read is a data byte sent by the peer.
	Read
)

func (k Kind) String() string {
	switch k {
	case Start:
		return "START"
	case Stop:
		return "STOP"
	case Address:
		return "ADDR"
	case Write:
		return "WRITE"
	case Read:
		return "READ"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is one decoded bus event.
type Event struct {
	Kind Kind
	// Value is the byte transferred, for Address, Write and Read.
	Value byte
	// Ack is true when the byte was acknowledged by its receiver.
	Ack bool
}

func (e Event) String() string {
	switch e.Kind {
	case Start, Stop:
		return e.Kind.String()
	}
	a := "NACK"
	if e.Ack {
		a = "ACK"
	}
	return fmt.Sprintf("%s 0x%02X %s", e.Kind, e.Value, a)
}

type phase int

const (
	idle phase = iota
	address
	receive
	send
	// ignore waits for the next start or stop condition.
	ignore
)

// Wire is a simulated I²C bus with pull-ups on both lines.
//
// The zero value is not usable, use NewWire.
type Wire struct {
	mu   sync.Mutex
	devs map[uint16]Device
	sdaP *pin
	sclP *pin

	// Lines pulled low.
	masterSDA bool
	masterSCL bool
	peerSDA   bool
	// Resolved levels, true is High.
	sda bool
	scl bool

	phase     phase
	count     int
	shift     byte
	out       byte
	read      bool
	masterAck bool
	dev       Device
	log       []Event
}

// NewWire returns an idle bus with both lines pulled up.
func NewWire() *Wire {
	w := &Wire{devs: map[uint16]Device{}, sda: true, scl: true}
	w.sdaP = &pin{Pin: &gpiotest.Pin{N: "SDA", Num: 0}, w: w, isSDA: true}
	w.sclP = &pin{Pin: &gpiotest.Pin{N: "SCL", Num: 1}, w: w}
	return w
}

// Attach connects d to the bus at the 7 bit address addr.
func (w *Wire) Attach(addr uint16, d Device) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.devs[addr] = d
}

// SDA returns the pin the master must use as SDA.
func (w *Wire) SDA() gpio.PinIO {
	return w.sdaP
}

// SCL returns the pin the master must use as SCL.
func (w *Wire) SCL() gpio.PinIO {
	return w.sclP
}

// Log returns a copy of the decoded events.
func (w *Wire) Log() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Event(nil), w.log...)
}

// Count returns the number of decoded events of kind k.
func (w *Wire) Count(k Kind) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, e := range w.log {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// Reset clears the event log.
func (w *Wire) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.log = nil
}

// Idle returns true when nobody pulls either line low.
func (w *Wire) Idle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.masterSDA && !w.masterSCL && !w.peerSDA
}

func (w *Wire) drive(sda, low bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if sda {
		w.masterSDA = low
	} else {
		w.masterSCL = low
	}
	sdaHigh := !(w.masterSDA || w.peerSDA)
	sclHigh := !w.masterSCL
	prevSDA, prevSCL := w.sda, w.scl
	w.sda, w.scl = sdaHigh, sclHigh
	switch {
	case prevSCL && sclHigh && prevSDA && !sdaHigh:
		w.onStart()
	case prevSCL && sclHigh && !prevSDA && sdaHigh:
		w.onStop()
	case !prevSCL && sclHigh:
		w.onRise()
	case prevSCL && !sclHigh:
		w.onFall()
	}
	// The peer only changes SDA while SCL is low.
	w.sda = !(w.masterSDA || w.peerSDA)
}

func (w *Wire) level(sda bool) gpio.Level {
	w.mu.Lock()
	defer w.mu.Unlock()
	if sda {
		return gpio.Level(w.sda)
	}
	return gpio.Level(w.scl)
}

func (w *Wire) onStart() {
	w.log = append(w.log, Event{Kind: Start})
	w.phase = address
	w.count = 0
	w.shift = 0
	w.peerSDA = false
}

func (w *Wire) onStop() {
	w.log = append(w.log, Event{Kind: Stop})
	if w.dev != nil {
		w.dev.Stop()
		w.dev = nil
	}
	w.phase = idle
	w.peerSDA = false
}

func (w *Wire) onRise() {
	if w.phase == idle || w.phase == ignore {
		return
	}
	switch {
	case w.count < 8:
		if w.phase != send {
			w.shift <<= 1
			if w.sda {
				w.shift |= 1
			}
		}
	case w.count == 8:
		ack := !w.sda
		switch w.phase {
		case address:
			w.log = append(w.log, Event{Kind: Address, Value: w.shift, Ack: ack})
		case receive:
			w.log = append(w.log, Event{Kind: Write, Value: w.shift, Ack: ack})
		case send:
			w.masterAck = ack
			w.log = append(w.log, Event{Kind: Read, Value: w.out, Ack: ack})
		}
	}
	w.count++
}

func (w *Wire) onFall() {
	if w.phase == idle || w.phase == ignore {
		return
	}
	switch w.count {
	case 8:
		switch w.phase {
		case address:
			w.read = w.shift&1 != 0
			d, ok := w.devs[uint16(w.shift>>1)]
			if ok {
				w.dev = d
			} else {
				w.dev = nil
			}
			w.peerSDA = ok
		case receive:
			w.peerSDA = w.dev.Write(w.shift)
		case send:
			w.peerSDA = false
		}
	case 9:
		w.count = 0
		w.shift = 0
		w.peerSDA = false
		switch w.phase {
		case address:
			if w.dev == nil {
				w.phase = ignore
				return
			}
			w.dev.Start(w.read)
			if w.read {
				w.phase = send
				w.load()
			} else {
				w.phase = receive
			}
		case send:
			if w.masterAck {
				w.load()
			} else {
				w.phase = ignore
			}
		}
	default:
		if w.phase == send {
			w.peerSDA = w.out&(0x80>>w.count) == 0
		}
	}
}

// load fetches the next byte from the device and presents its MSB.
func (w *Wire) load() {
	w.out = w.dev.Read()
	w.peerSDA = w.out&0x80 == 0
}

// pin is one line of the Wire as seen by the master.
type pin struct {
	*gpiotest.Pin
	w     *Wire
	isSDA bool
}

// In releases the line.
func (p *pin) In(pull gpio.Pull, edge gpio.Edge) error {
	if edge != gpio.NoEdge {
		return errors.New("softi2ctest: edge detection is not supported")
	}
	if pull == gpio.PullDown {
		return errors.New("softi2ctest: the line has an external pull-up")
	}
	p.w.drive(p.isSDA, false)
	return nil
}

// Out drives the line. Only Low is allowed on an open-drain line.
func (p *pin) Out(l gpio.Level) error {
	if l == gpio.High {
		return fmt.Errorf("softi2ctest: %s driven High on an open-drain bus", p.N)
	}
	p.w.drive(p.isSDA, true)
	return nil
}

// Read returns the resolved level of the line.
func (p *pin) Read() gpio.Level {
	return p.w.level(p.isSDA)
}

var _ gpio.PinIO = &pin{}
