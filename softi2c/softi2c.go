// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package softi2c

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// MaxSpeed is the fastest clock the bus can be set to.
const MaxSpeed = 100 * physic.KiloHertz

// ErrNACK is returned when a byte was not acknowledged.
//
// It covers every failure a peer can cause: missing device, busy device,
// refused byte or electrical fault all look the same on the wire.
var ErrNACK = errors.New("softi2c: NACK received")

// Opts defines the options for the bus.
type Opts struct {
	// Speed is the clock rate. Zero means MaxSpeed.
	Speed physic.Frequency
	// Delay, when set, replaces the busy-wait that follows each line
	// transition. Speed is then informational only.
	Delay Delayer
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Speed: MaxSpeed,
}

// Bus is a bit-banged I²C master on two GPIO pins.
//
// Transactions are serialized; only one is ever in flight on a Bus.
type Bus struct {
	mu     sync.Mutex
	sda    line
	scl    line
	speed  physic.Frequency
	delay  Delayer
	custom bool
	// err is the first pin error of the current transaction.
	err error
}

// New returns a Bus using sda and scl as open-drain lines and releases both
// lines.
//
// opts may be nil to use DefaultOpts.
func New(sda, scl gpio.PinIO, opts *Opts) (*Bus, error) {
	if sda == nil || scl == nil {
		return nil, errors.New("softi2c: both SDA and SCL pins are required")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	b := &Bus{
		sda:    line{p: sda},
		scl:    line{p: scl},
		delay:  opts.Delay,
		custom: opts.Delay != nil,
	}
	speed := opts.Speed
	if speed == 0 {
		speed = MaxSpeed
	}
	if err := b.SetSpeed(speed); err != nil {
		return nil, err
	}
	if err := b.Begin(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bus) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fmt.Sprintf("softi2c.Bus{SDA:%s, SCL:%s, %s}", b.sda.p, b.scl.p, b.speed)
}

// Begin releases both lines, leaving the bus idle.
func (b *Bus) Begin() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.sda.set(Released); err != nil {
		return fmt.Errorf("softi2c: releasing SDA: %w", err)
	}
	if err := b.scl.set(Released); err != nil {
		return fmt.Errorf("softi2c: releasing SCL: %w", err)
	}
	return nil
}

// Close implements i2c.BusCloser. It releases both lines.
func (b *Bus) Close() error {
	return b.Begin()
}

// SetSpeed implements i2c.Bus.
//
// Only speeds up to MaxSpeed are supported.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	if f <= 0 || f > MaxSpeed {
		return fmt.Errorf("softi2c: invalid speed %s; must be in (0, %s]", f, MaxSpeed)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.speed = f
	if !b.custom {
		b.delay = delayFor(f)
	}
	return nil
}

// SCL implements i2c.Pins.
func (b *Bus) SCL() gpio.PinIO {
	return b.scl.p
}

// SDA implements i2c.Pins.
func (b *Bus) SDA() gpio.PinIO {
	return b.sda.p
}

// Lines returns the state the master currently imposes on SDA and SCL.
func (b *Bus) Lines() (sda, scl LineState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sda.state, b.scl.state
}

// Tx implements i2c.Bus.
//
// With only w, it writes. With only r, it reads. With both, it writes w then
// issues a repeated start and reads r. With neither, it only checks that a
// device acknowledges addr.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return fmt.Errorf("softi2c: invalid address 0x%X; only 7 bit addresses are supported", addr)
	}
	return b.transaction(func() error {
		if len(w) != 0 || len(r) == 0 {
			if err := b.address(addr, false); err != nil {
				return err
			}
			if err := b.send(addr, w); err != nil {
				return err
			}
		}
		if len(r) != 0 {
			if len(w) != 0 {
				// Repeated start, the bus is kept.
				b.start()
			}
			if err := b.address(addr, true); err != nil {
				return err
			}
			b.receive(r)
		}
		return nil
	})
}

// Write sends data to the device at addr.
//
// It fails with ErrNACK as soon as the address or a data byte is not
// acknowledged. A stop condition is always issued.
func (b *Bus) Write(addr uint16, data []byte) error {
	return b.Tx(addr, data, nil)
}

// Read fills buf from the device at addr.
//
// Every byte is acknowledged except the last one, which tells the device the
// transfer is over. It fails with ErrNACK when the address is not
// acknowledged.
func (b *Bus) Read(addr uint16, buf []byte) error {
	if len(buf) == 0 {
		return errors.New("softi2c: nothing to read")
	}
	return b.Tx(addr, nil, buf)
}

// WriteRegister writes value into register reg of the device at addr.
func (b *Bus) WriteRegister(addr uint16, reg, value byte) error {
	return b.Write(addr, []byte{reg, value})
}

// ReadRegister reads register reg of the device at addr.
//
// The register pointer is written, then a repeated start switches the
// transfer to read a single byte.
func (b *Bus) ReadRegister(addr uint16, reg byte) (byte, error) {
	var r [1]byte
	err := b.Tx(addr, []byte{reg}, r[:])
	return r[0], err
}

// Scan returns the addresses in the range 0x08~0x77 that acknowledged an
// empty write.
func (b *Bus) Scan() ([]uint16, error) {
	var found []uint16
	for addr := uint16(0x08); addr < 0x78; addr++ {
		err := b.Tx(addr, nil, nil)
		if err == nil {
			found = append(found, addr)
		} else if !errors.Is(err, ErrNACK) {
			return found, err
		}
	}
	return found, nil
}

// transaction runs f between a start and a stop condition. The stop condition
// is issued exactly once, whichever way f returns.
func (b *Bus) transaction(f func() error) (err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = nil
	b.start()
	defer func() {
		b.stop()
		if b.err != nil {
			err = b.err
		}
	}()
	return f()
}

func (b *Bus) address(addr uint16, read bool) error {
	v := byte(addr << 1)
	if read {
		v |= 1
	}
	if !b.writeByte(v) {
		return fmt.Errorf("softi2c: address 0x%02X: %w", addr, ErrNACK)
	}
	return nil
}

func (b *Bus) send(addr uint16, data []byte) error {
	for i, v := range data {
		if !b.writeByte(v) {
			return fmt.Errorf("softi2c: 0x%02X: byte %d of %d: %w", addr, i+1, len(data), ErrNACK)
		}
	}
	return nil
}

func (b *Bus) receive(buf []byte) {
	for i := range buf {
		buf[i] = b.readByte(i != len(buf)-1)
	}
}

var _ i2c.BusCloser = &Bus{}
var _ i2c.Pins = &Bus{}
