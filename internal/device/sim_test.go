package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/stereo_session/internal/camera"
	"github.com/relabs-tech/stereo_session/internal/telemetry"
)

func TestSimOpenValidation(t *testing.T) {
	s := NewSim()

	err := s.Open(camera.OpenParams{DeviceIndex: 1, StreamMode: telemetry.StreamMode2560x720})
	assert.Error(t, err)
	assert.False(t, s.IsOpened())

	err = s.Open(camera.OpenParams{StreamMode: telemetry.StreamMode(99)})
	assert.Error(t, err)

	require.NoError(t, s.Open(camera.OpenParams{StreamMode: telemetry.StreamMode2560x720}))
	assert.True(t, s.IsOpened())

	s.Close()
	assert.False(t, s.IsOpened())
}

func TestSimCalibrationPerMode(t *testing.T) {
	s := NewSim()

	block, err := s.GetCameraCalibration(telemetry.StreamMode2560x720)
	require.NoError(t, err)
	assert.Equal(t, 2560, block.Width)
	assert.Equal(t, 720, block.Height)
	assert.Equal(t, [3]float64{-120, 0, 0}, block.Translation)

	_, err = s.GetCameraCalibration(telemetry.StreamMode(99))
	assert.Error(t, err)
}

func TestSimCalibrationFileRoundTrip(t *testing.T) {
	s := NewSim()
	path := filepath.Join(t.TempDir(), "calib.json")

	require.NoError(t, s.GetCameraCalibrationFile(telemetry.StreamMode1280x720, path))

	// Installing the exported file on a fresh transport reproduces the block
	// for the mode matching its dimensions.
	s2 := NewSim()
	require.NoError(t, s2.SetCameraCalibrationBinFile(path))

	want, err := s.GetCameraCalibration(telemetry.StreamMode1280x720)
	require.NoError(t, err)
	got, err := s2.GetCameraCalibration(telemetry.StreamMode1280x720)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSimCalibrationFileUnknownDims(t *testing.T) {
	s := NewSim()
	path := filepath.Join(t.TempDir(), "calib.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"width":99,"height":99}`), 0644))

	assert.Error(t, s.SetCameraCalibrationBinFile(path))
}

func TestSimDescriptorPreloadsMock(t *testing.T) {
	desc, params := SimDescriptor()

	assert.Equal(t, "SIM-S1030", desc.Name)
	assert.Equal(t, "SIM0001", desc.SerialNumber)
	require.True(t, params.Ok)
	assert.Equal(t, [3]float64{-60, 0, 0}, params.ExLeftToImu.Translation)
}
