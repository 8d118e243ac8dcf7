package app

import (
	"fmt"
	"time"

	"github.com/relabs-tech/stereo_session/internal/camera"
	"github.com/relabs-tech/stereo_session/internal/channel"
	"github.com/relabs-tech/stereo_session/internal/config"
	"github.com/relabs-tech/stereo_session/internal/device"
	"github.com/relabs-tech/stereo_session/internal/motion"
	"github.com/relabs-tech/stereo_session/internal/stream"
	"github.com/relabs-tech/stereo_session/internal/telemetry"
)

// buildSession assembles the descriptor channel, transport and producers
// per config. The returned mock is non-nil only in mock mode, so callers
// can attach the telemetry feeder. cleanup releases the channel.
func buildSession(cfg *config.Config) (session *camera.Session, mock *channel.Mock, cleanup func(), err error) {
	var ch camera.Channel
	cleanup = func() {}

	switch cfg.ChannelMode {
	case "serial":
		ser, err := channel.Open(cfg.ChannelSerialPort, cfg.ChannelBaudRate)
		if err != nil {
			return nil, nil, nil, err
		}
		ch = ser
		cleanup = func() { ser.Close() }
	case "mock":
		mock = channel.NewMock()
		mock.Preload(device.SimDescriptor())
		ch = mock
	default:
		return nil, nil, nil, fmt.Errorf("unknown channel mode %q", cfg.ChannelMode)
	}

	// The UVC image transport is not part of this module; the simulated
	// transport stands in for it in both channel modes.
	session = camera.NewSession(device.NewSim(), ch, stream.NewProducer(), motion.NewProducer(), nil)
	return session, mock, cleanup, nil
}

func parseStreamMode(s string) telemetry.StreamMode {
	switch s {
	case "640x480":
		return telemetry.StreamMode640x480
	case "1280x480":
		return telemetry.StreamMode1280x480
	case "1280x720":
		return telemetry.StreamMode1280x720
	default:
		return telemetry.StreamMode2560x720
	}
}

func parseProcessMode(s string) camera.ProcessMode {
	switch s {
	case "assembly":
		return camera.ProcessAssembly
	case "warm_drift":
		return camera.ProcessWarmDrift
	case "all":
		return camera.ProcessAll
	default:
		return camera.ProcessNone
	}
}

func simInterval(cfg *config.Config) time.Duration {
	if cfg.SimSampleInterval <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(cfg.SimSampleInterval) * time.Millisecond
}
