// Package device provides a simulated transport and telemetry feeder so
// the session stack can run on a bench without camera hardware.
package device

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/stereo_session/internal/camera"
	"github.com/relabs-tech/stereo_session/internal/telemetry"
)

// Sim implements camera.Transport with synthetic calibration data.
type Sim struct {
	mu     sync.Mutex
	opened bool
	blocks map[telemetry.StreamMode]camera.CalibrationBlock
}

func NewSim() *Sim {
	return &Sim{
		blocks: map[telemetry.StreamMode]camera.CalibrationBlock{
			telemetry.StreamMode640x480:  simBlock(640, 480, 180),
			telemetry.StreamMode1280x480: simBlock(1280, 480, 360),
			telemetry.StreamMode1280x720: simBlock(1280, 720, 355),
			telemetry.StreamMode2560x720: simBlock(2560, 720, 710),
		},
	}
}

// simBlock builds a plausible side-by-side calibration: identical pinhole
// models per lens, identity relative rotation, 120 mm baseline along x.
func simBlock(width, height int, focal float64) camera.CalibrationBlock {
	cx := float64(width) / 4 // principal point of one half-width lens
	cy := float64(height) / 2
	mat := [9]float64{
		focal, 0, cx,
		0, focal, cy,
		0, 0, 1,
	}
	dist := [camera.DistortionCoeffCount]float64{-0.3, 0.1, 0, 0, 0.01}
	return camera.CalibrationBlock{
		Width:           width,
		Height:          height,
		LeftMatrix:      mat,
		LeftDistortion:  dist,
		RightMatrix:     mat,
		RightDistortion: dist,
		Rotation:        [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
		Translation:     [3]float64{-120, 0, 0},
	}
}

func (s *Sim) Open(params camera.OpenParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if params.DeviceIndex != 0 {
		return fmt.Errorf("sim: no device at index %d", params.DeviceIndex)
	}
	if _, ok := s.blocks[params.StreamMode]; !ok {
		return fmt.Errorf("sim: unsupported stream mode %s", params.StreamMode)
	}
	s.opened = true
	return nil
}

func (s *Sim) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = false
}

func (s *Sim) IsOpened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

func (s *Sim) GetDeviceInfos() []camera.DeviceInfo {
	return []camera.DeviceInfo{{
		Index:        0,
		Name:         "SIM-S1030",
		VendorID:     0x04B4,
		ProductID:    0x00F9,
		SerialNumber: "SIM0001",
	}}
}

func (s *Sim) GetStreamInfos(deviceIndex int) (color, depth []camera.StreamInfo) {
	if deviceIndex != 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := 0
	for _, b := range s.blocks {
		color = append(color, camera.StreamInfo{Index: i, Width: b.Width, Height: b.Height, Format: "YUY2"})
		i++
	}
	depth = []camera.StreamInfo{{Index: 0, Width: 640, Height: 480, Format: "Z16"}}
	return color, depth
}

func (s *Sim) GetCameraCalibration(mode telemetry.StreamMode) (camera.CalibrationBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	block, ok := s.blocks[mode]
	if !ok {
		return camera.CalibrationBlock{}, fmt.Errorf("sim: no calibration for stream mode %s", mode)
	}
	return block, nil
}

// GetCameraCalibrationFile exports the raw block for a mode as indented
// JSON.
func (s *Sim) GetCameraCalibrationFile(mode telemetry.StreamMode, path string) error {
	block, err := s.GetCameraCalibration(mode)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(block, "", "  ")
	if err != nil {
		return fmt.Errorf("sim: marshal calibration: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("sim: write calibration file: %w", err)
	}
	return nil
}

// SetCameraCalibrationBinFile loads a JSON-encoded block and installs it
// for the stream mode matching its combined dimensions.
func (s *Sim) SetCameraCalibrationBinFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("sim: read calibration file: %w", err)
	}
	var block camera.CalibrationBlock
	if err := json.Unmarshal(data, &block); err != nil {
		return fmt.Errorf("sim: parse calibration file: %w", err)
	}
	mode, ok := modeForDims(block.Width, block.Height)
	if !ok {
		return fmt.Errorf("sim: no stream mode with dimensions %dx%d", block.Width, block.Height)
	}
	s.mu.Lock()
	s.blocks[mode] = block
	s.mu.Unlock()
	return nil
}

func modeForDims(width, height int) (telemetry.StreamMode, bool) {
	switch {
	case width == 640 && height == 480:
		return telemetry.StreamMode640x480, true
	case width == 1280 && height == 480:
		return telemetry.StreamMode1280x480, true
	case width == 1280 && height == 720:
		return telemetry.StreamMode1280x720, true
	case width == 2560 && height == 720:
		return telemetry.StreamMode2560x720, true
	default:
		return 0, false
	}
}

// SimDescriptor is the flash content of the simulated device, for
// preloading a mock channel.
func SimDescriptor() (*camera.DeviceDescriptor, *camera.ImuParams) {
	desc := &camera.DeviceDescriptor{
		Name:            "SIM-S1030",
		SerialNumber:    "SIM0001",
		FirmwareVersion: camera.Version{Major: 2, Minor: 3},
		HardwareVersion: camera.Version{Major: 1, Minor: 0},
		SpecVersion:     camera.Version{Major: 1, Minor: 0},
		LensType:        camera.TypeCode{Vendor: 0x0001, Product: 0x0000},
		ImuType:         camera.TypeCode{Vendor: 0x0001, Product: 0x0001},
		NominalBaseline: 120 * physic.MilliMetre,
	}
	identity := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	params := &camera.ImuParams{
		Ok:      true,
		InAccel: camera.ImuIntrinsics{Scale: identity},
		InGyro:  camera.ImuIntrinsics{Scale: identity},
		ExLeftToImu: camera.Extrinsics{
			Rotation:    identity,
			Translation: [3]float64{-60, 0, 0},
		},
	}
	return desc, params
}
