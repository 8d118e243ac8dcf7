// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package camera owns the lifecycle of one connected stereo-camera device.
// A Session composes the device transport, the descriptor/telemetry channel
// and the two telemetry producers, arbitrates the single shared HID tracking
// subscription between them, and turns raw calibration payloads into
// per-lens camera models.
package camera

import (
	"fmt"
	"log"
	"sync"

	"github.com/relabs-tech/stereo_session/internal/telemetry"
)

// Session is the device session coordinator. All lifecycle methods are
// called from a caller goroutine; telemetry arrives asynchronously through
// the channel's callback goroutine, which only ever touches the producers.
type Session struct {
	transport Transport
	channel   Channel
	streams   StreamProducer
	motions   MotionProducer
	logger    *log.Logger

	lifeMu sync.Mutex // serializes Open/Close/enable toggles

	mu         sync.Mutex // guards everything below
	descriptor *DeviceDescriptor
	motionIntr *MotionIntrinsics
	motionExtr *MotionExtrinsics

	calibGen  uint64
	intrCache map[telemetry.StreamMode]StreamIntrinsics
	extrCache map[telemetry.StreamMode]StreamExtrinsics
}

// NewSession builds a coordinator over the four injected collaborators and
// eagerly reads the device flash when the channel is available. A nil logger
// falls back to the default logger.
func NewSession(transport Transport, channel Channel, streams StreamProducer, motions MotionProducer, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	s := &Session{
		transport: transport,
		channel:   channel,
		streams:   streams,
		motions:   motions,
		logger:    logger,
		intrCache: make(map[telemetry.StreamMode]StreamIntrinsics),
		extrCache: make(map[telemetry.StreamMode]StreamExtrinsics),
	}
	if s.channel.IsAvailable() {
		s.readDeviceFlash()
	} else {
		s.logger.Printf("camera: data channel unavailable, could not read device data")
	}
	return s
}

// Open connects the transport and brings tracking up if any telemetry is
// already demanded. Opening an opened session is a no-op reporting Success.
func (s *Session) Open(params OpenParams) ErrorCode {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.transport.IsOpened() {
		return Success
	}
	if err := s.transport.Open(params); err != nil {
		s.logger.Printf("camera: open device %d: %v", params.DeviceIndex, err)
		return CameraOpenFailed
	}
	s.evaluateTracking()
	s.streams.OnCameraOpen()
	return Success
}

// Close stops tracking unconditionally, notifies the stream producer and
// disconnects the transport. Closing a closed session is a no-op.
func (s *Session) Close() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if !s.transport.IsOpened() {
		return
	}
	s.stopTracking()
	s.streams.OnCameraClose()
	s.transport.Close()
}

func (s *Session) IsOpened() bool {
	return s.transport.IsOpened()
}

// CheckOpened is the guard form of IsOpened for callers that need a hard
// precondition.
func (s *Session) CheckOpened() error {
	if !s.transport.IsOpened() {
		return ErrNotOpened
	}
	return nil
}

func (s *Session) GetDeviceInfos() []DeviceInfo {
	return s.transport.GetDeviceInfos()
}

func (s *Session) GetStreamInfos(deviceIndex int) (color, depth []StreamInfo) {
	return s.transport.GetStreamInfos(deviceIndex)
}

// Descriptors returns the identity record read at construction, or nil when
// no successful flash read has happened.
func (s *Session) Descriptors() *DeviceDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.descriptor
}

// GetDescriptor returns one descriptor field as a string. Both failure
// paths, no descriptor read and an unknown field, log and return "".
func (s *Session) GetDescriptor(field DescriptorField) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.descriptor == nil {
		s.logger.Printf("camera: device information not found")
		return ""
	}
	switch field {
	case FieldDeviceName:
		return s.descriptor.Name
	case FieldSerialNumber:
		return s.descriptor.SerialNumber
	case FieldFirmwareVersion:
		return s.descriptor.FirmwareVersion.String()
	case FieldHardwareVersion:
		return s.descriptor.HardwareVersion.String()
	case FieldSpecVersion:
		return s.descriptor.SpecVersion.String()
	case FieldLensType:
		return s.descriptor.LensType.String()
	case FieldImuType:
		return s.descriptor.ImuType.String()
	case FieldNominalBaseline:
		return s.descriptor.NominalBaseline.String()
	default:
		s.logger.Printf("camera: unknown descriptor field %d", field)
		return ""
	}
}

// GetStreamIntrinsics returns the per-lens models for a stream mode,
// fetching and decoding the calibration block on first use. Results are
// cached per mode until the calibration generation changes.
func (s *Session) GetStreamIntrinsics(mode telemetry.StreamMode) (StreamIntrinsics, error) {
	s.mu.Lock()
	if in, ok := s.intrCache[mode]; ok {
		s.mu.Unlock()
		return in, nil
	}
	s.mu.Unlock()

	in, _, err := s.fetchCalibration(mode)
	return in, err
}

// GetStreamExtrinsics returns the right-to-left lens pose for a stream
// mode, with the same caching behavior as GetStreamIntrinsics.
func (s *Session) GetStreamExtrinsics(mode telemetry.StreamMode) (StreamExtrinsics, error) {
	s.mu.Lock()
	if ex, ok := s.extrCache[mode]; ok {
		s.mu.Unlock()
		return ex, nil
	}
	s.mu.Unlock()

	_, ex, err := s.fetchCalibration(mode)
	return ex, err
}

// fetchCalibration pulls the raw block once and fills both caches; one
// fetch yields intrinsics and extrinsics together. The insert is gated on
// the calibration generation observed before the fetch, so a calibration
// write that lands while the fetch is in flight cannot be shadowed by the
// pre-write models.
func (s *Session) fetchCalibration(mode telemetry.StreamMode) (StreamIntrinsics, StreamExtrinsics, error) {
	s.mu.Lock()
	gen := s.calibGen
	s.mu.Unlock()

	block, err := s.transport.GetCameraCalibration(mode)
	if err != nil {
		return StreamIntrinsics{}, StreamExtrinsics{}, fmt.Errorf("camera calibration for %s: %w", mode, err)
	}
	in := DecodeStreamIntrinsics(block)
	ex := DecodeStreamExtrinsics(block)

	s.mu.Lock()
	if s.calibGen == gen {
		s.intrCache[mode] = in
		s.extrCache[mode] = ex
	}
	s.mu.Unlock()
	return in, ex, nil
}

// GetCameraCalibration fetches the raw block without caching.
func (s *Session) GetCameraCalibration(mode telemetry.StreamMode) (CalibrationBlock, error) {
	return s.transport.GetCameraCalibration(mode)
}

func (s *Session) GetCameraCalibrationFile(mode telemetry.StreamMode, path string) error {
	return s.transport.GetCameraCalibrationFile(mode, path)
}

// WriteCameraCalibrationBinFile pushes a new calibration to the device and,
// on success, bumps the calibration generation so cached models are
// re-derived on next access. Recalibration performed behind the transport's
// back is still invisible; callers must not assume freshness then.
func (s *Session) WriteCameraCalibrationBinFile(path string) error {
	if err := s.transport.SetCameraCalibrationBinFile(path); err != nil {
		return err
	}
	s.mu.Lock()
	s.calibGen++
	s.intrCache = make(map[telemetry.StreamMode]StreamIntrinsics)
	s.extrCache = make(map[telemetry.StreamMode]StreamExtrinsics)
	s.mu.Unlock()
	return nil
}

// CalibrationGeneration increments on every successful calibration write.
func (s *Session) CalibrationGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calibGen
}

// GetMotionIntrinsics returns the IMU calibration, or a zero value with an
// error log when flash carried none. Presence is a caller precondition.
func (s *Session) GetMotionIntrinsics() MotionIntrinsics {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.motionIntr == nil {
		s.logger.Printf("camera: motion intrinsics not found")
		return MotionIntrinsics{}
	}
	return *s.motionIntr
}

// GetMotionExtrinsics returns the left-lens-to-IMU pose, or a zero value
// with an error log when flash carried none.
func (s *Session) GetMotionExtrinsics() MotionExtrinsics {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.motionExtr == nil {
		s.logger.Printf("camera: motion extrinsics not found")
		return MotionExtrinsics{}
	}
	return *s.motionExtr
}

// WriteDeviceFlash persists the descriptor/IMU-params/spec-version triple.
// An unavailable channel degrades to a warning and false.
func (s *Session) WriteDeviceFlash(desc *DeviceDescriptor, params *ImuParams, specVersion *Version) bool {
	if !s.channel.IsAvailable() {
		s.logger.Printf("camera: data channel unavailable, could not write device data")
		return false
	}
	if err := s.channel.SetFiles(desc, params, specVersion); err != nil {
		s.logger.Printf("camera: write device flash: %v", err)
		return false
	}
	return true
}

// readDeviceFlash performs the one eager descriptor read. Failure leaves
// the descriptor unset; there is no retry.
func (s *Session) readDeviceFlash() {
	desc, params, err := s.channel.GetFiles()
	if err != nil {
		s.logger.Printf("camera: read device descriptors failed, please upgrade your firmware to the latest version: %v", err)
		return
	}

	s.mu.Lock()
	s.descriptor = desc
	s.mu.Unlock()

	s.logger.Printf("camera: device %q sn=%s firmware=%s hardware=%s spec=%s lens=%s imu=%s baseline=%s",
		desc.Name, desc.SerialNumber,
		desc.FirmwareVersion, desc.HardwareVersion, desc.SpecVersion,
		desc.LensType, desc.ImuType, desc.NominalBaseline)

	if params == nil || !params.Ok {
		s.logger.Printf("camera: motion intrinsics & extrinsics not present in flash")
		return
	}
	s.setMotionIntrinsics(MotionIntrinsics{Accel: params.InAccel, Gyro: params.InGyro})
	s.setMotionExtrinsics(params.ExLeftToImu)
}

func (s *Session) setMotionIntrinsics(in MotionIntrinsics) {
	s.mu.Lock()
	s.motionIntr = &in
	s.mu.Unlock()
	s.motions.SetMotionIntrinsics(&in)
}

func (s *Session) setMotionExtrinsics(ex MotionExtrinsics) {
	s.mu.Lock()
	s.motionExtr = &ex
	s.mu.Unlock()
}

// EnableProcessMode selects the IMU corrections applied to raw samples.
func (s *Session) EnableProcessMode(mode ProcessMode) {
	s.motions.EnableProcessMode(mode)
}

// EnableImageInfo turns on per-frame metadata collection and re-evaluates
// tracking, since image info rides the shared HID subscription.
func (s *Session) EnableImageInfo(sync bool) {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	s.streams.EnableImageInfo(sync)
	s.evaluateTracking()
}

// EnableMotionDatas turns on inertial sample buffering and re-evaluates
// tracking.
func (s *Session) EnableMotionDatas(maxBuffered int) {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	s.motions.EnableMotionDatas(maxBuffered)
	s.evaluateTracking()
}

func (s *Session) EnableStreamData(t telemetry.ImageType) {
	s.streams.EnableStreamData(t)
}

func (s *Session) IsStreamDataEnabled(t telemetry.ImageType) bool {
	return s.streams.IsStreamDataEnabled(t)
}

func (s *Session) HasStreamDataEnabled() bool {
	return s.streams.HasStreamDataEnabled()
}

func (s *Session) GetStreamData(t telemetry.ImageType) telemetry.StreamData {
	return s.streams.GetStreamData(t)
}

func (s *Session) GetStreamDatas(t telemetry.ImageType) []telemetry.StreamData {
	return s.streams.GetStreamDatas(t)
}

// GetMotionDatas drains the motion producer's buffer.
func (s *Session) GetMotionDatas() []telemetry.MotionData {
	return s.motions.GetMotionDatas()
}

func (s *Session) SetImgInfoCallback(cb func(telemetry.ImgInfo)) {
	s.streams.SetImgInfoCallback(cb)
}

func (s *Session) SetStreamCallback(t telemetry.ImageType, cb func(telemetry.StreamData)) {
	s.streams.SetStreamCallback(t, cb)
}

func (s *Session) SetMotionCallback(cb func(telemetry.MotionData)) {
	s.motions.SetMotionCallback(cb)
}
