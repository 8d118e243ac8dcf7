// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package channel implements the device's descriptor/telemetry side
// channel: flash record persistence and the single shared HID tracking
// subscription, over a serial port or an in-memory mock.
package channel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/stereo_session/internal/camera"
	"github.com/relabs-tech/stereo_session/internal/telemetry"
)

// Porter is the minimal port the serial channel needs, so tests can run on
// an in-memory port.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// responseTimeout bounds how long a command waits for the device's reply.
const responseTimeout = 2 * time.Second

// Serial is a Channel over a framed serial protocol. One reader goroutine
// owns the port's read side: telemetry frames go to the registered sinks,
// everything else is routed to the pending command.
type Serial struct {
	port Porter

	cmdMu  sync.Mutex // one in-flight command at a time
	respCh chan frame

	mu       sync.Mutex
	imuCB    func(telemetry.ImuPacket)
	imgCB    func(telemetry.ImgInfo)
	tracking bool
	closed   bool
}

// Open opens the named serial port and starts the channel on it.
func Open(portName string, baudRate int) (*Serial, error) {
	opts := serial.OpenOptions{
		PortName:        portName,
		BaudRate:        uint(baudRate),
		DataBits:        8,
		StopBits:        1,
		ParityMode:      serial.PARITY_NONE,
		MinimumReadSize: 1,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("channel: open serial port %s: %w", portName, err)
	}
	log.Printf("channel: serial port opened on %s at %d baud", portName, baudRate)
	return NewSerial(port), nil
}

// NewSerial starts a channel over an already-open port.
func NewSerial(port Porter) *Serial {
	s := &Serial{
		port:   port,
		respCh: make(chan frame, 4),
	}
	go s.readLoop()
	return s
}

// Close stops tracking best-effort and closes the port, which unblocks the
// reader goroutine.
func (s *Serial) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	tracking := s.tracking
	s.tracking = false
	s.mu.Unlock()

	if tracking {
		if _, err := s.roundTrip(cmdStopTracking, nil); err != nil {
			log.Printf("channel: stop tracking on close: %v", err)
		}
	}
	return s.port.Close()
}

func (s *Serial) IsAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// IsHidAvailable reports whether the tracking side of the channel can be
// used; it shares the port with persistence.
func (s *Serial) IsHidAvailable() bool {
	return s.IsAvailable()
}

func (s *Serial) IsHidTracking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracking
}

// StartHidTracking asks the device to start streaming telemetry. Starting
// while already tracking is a no-op.
func (s *Serial) StartHidTracking() error {
	s.mu.Lock()
	if s.tracking {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if _, err := s.roundTrip(cmdStartTracking, nil); err != nil {
		return fmt.Errorf("channel: start tracking: %w", err)
	}
	s.mu.Lock()
	s.tracking = true
	s.mu.Unlock()
	return nil
}

// StopHidTracking stops the telemetry stream. Errors are logged, not
// returned; the local tracking state is cleared either way so a wedged
// device cannot pin the subscription.
func (s *Serial) StopHidTracking() {
	s.mu.Lock()
	if !s.tracking {
		s.mu.Unlock()
		return
	}
	s.tracking = false
	s.mu.Unlock()

	if _, err := s.roundTrip(cmdStopTracking, nil); err != nil {
		log.Printf("channel: stop tracking: %v", err)
	}
}

// GetFiles reads the descriptor and IMU calibration record from flash.
func (s *Serial) GetFiles() (*camera.DeviceDescriptor, *camera.ImuParams, error) {
	rsp, err := s.roundTrip(cmdGetFiles, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("channel: get files: %w", err)
	}
	if rsp.typ != rspFiles {
		return nil, nil, fmt.Errorf("channel: get files: unexpected response 0x%02X", rsp.typ)
	}
	return decodeFlashRecord(rsp.payload)
}

// SetFiles writes the descriptor/IMU-params/spec-version triple to flash.
func (s *Serial) SetFiles(desc *camera.DeviceDescriptor, params *camera.ImuParams, specVersion *camera.Version) error {
	rec, err := encodeFlashRecord(desc, params, specVersion)
	if err != nil {
		return err
	}
	rsp, err := s.roundTrip(cmdSetFiles, rec)
	if err != nil {
		return fmt.Errorf("channel: set files: %w", err)
	}
	if rsp.typ != rspAck || len(rsp.payload) != 1 || rsp.payload[0] != ackOK {
		return fmt.Errorf("channel: set files rejected by device")
	}
	return nil
}

func (s *Serial) SetImuDataCallback(cb func(telemetry.ImuPacket)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imuCB = cb
}

func (s *Serial) SetImgInfoCallback(cb func(telemetry.ImgInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imgCB = cb
}

// roundTrip writes one command frame and waits for the next non-telemetry
// frame from the reader goroutine.
func (s *Serial) roundTrip(cmd byte, payload []byte) (frame, error) {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	// Drop any stale response from a timed-out predecessor.
	select {
	case <-s.respCh:
	default:
	}

	if _, err := s.port.Write(encodeFrame(cmd, payload)); err != nil {
		return frame{}, fmt.Errorf("write command 0x%02X: %w", cmd, err)
	}
	select {
	case f := <-s.respCh:
		return f, nil
	case <-time.After(responseTimeout):
		return frame{}, fmt.Errorf("no response to command 0x%02X", cmd)
	}
}

// readLoop owns the port's read side until the port closes.
func (s *Serial) readLoop() {
	r := bufio.NewReader(s.port)
	for {
		f, err := readFrame(r)
		if err != nil {
			if errors.Is(err, io.EOF) || s.isClosed() {
				return
			}
			log.Printf("channel: read frame: %v", err)
			continue
		}
		if isTelemetry(f.typ) {
			s.dispatch(f)
			continue
		}
		select {
		case s.respCh <- f:
		default:
			// No command waiting; stale response, drop it.
		}
	}
}

func (s *Serial) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Serial) dispatch(f frame) {
	switch f.typ {
	case pktImu:
		pkt, err := decodeImuPacket(f.payload)
		if err != nil {
			log.Printf("channel: %v", err)
			return
		}
		s.mu.Lock()
		cb := s.imuCB
		s.mu.Unlock()
		if cb != nil {
			cb(pkt)
		}
	case pktImgInfo:
		info, err := decodeImgInfo(f.payload)
		if err != nil {
			log.Printf("channel: %v", err)
			return
		}
		s.mu.Lock()
		cb := s.imgCB
		s.mu.Unlock()
		if cb != nil {
			cb(info)
		}
	default:
		log.Printf("channel: unknown telemetry frame 0x%02X", f.typ)
	}
}
