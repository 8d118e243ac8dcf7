package device

import (
	"math"
	"time"

	"github.com/relabs-tech/stereo_session/internal/channel"
	"github.com/relabs-tech/stereo_session/internal/telemetry"
)

// counts per g at the simulated ±8g accelerometer range.
const countsPerG = 4096

// RunFeeder injects smoothly varying IMU samples and a slower cadence of
// image-info records into a mock channel until stop closes. The mock only
// delivers while the tracking subscription is running, so the feeder can
// start before the session does.
func RunFeeder(m *channel.Mock, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	var frameID uint16
	tick := 0

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		elapsed := time.Since(start).Seconds()
		ts := uint32(elapsed * 10000) // device clock, 0.1 ms units
		temp := int16(-327)           // 24 °C at 326.8 LSB/°C with the 25 °C offset

		m.InjectImu(telemetry.ImuPacket{
			Flag:        telemetry.ImuFlagAccel,
			Timestamp:   ts,
			Temperature: temp,
			X:           int16(0.1 * countsPerG * math.Sin(elapsed)),
			Y:           int16(0.1 * countsPerG * math.Cos(elapsed*0.7)),
			Z:           int16(countsPerG), // gravity
		})
		m.InjectImu(telemetry.ImuPacket{
			Flag:        telemetry.ImuFlagGyro,
			Timestamp:   ts,
			Temperature: temp,
			X:           int16(200 * math.Sin(elapsed*1.3)),
			Y:           int16(200 * math.Cos(elapsed)),
			Z:           int16(100 * math.Sin(elapsed*0.5)),
		})

		// One frame's metadata every third sample pair.
		tick++
		if tick%3 == 0 {
			frameID++
			m.InjectImgInfo(telemetry.ImgInfo{
				FrameID:      frameID,
				Timestamp:    ts,
				ExposureTime: 330,
			})
		}
	}
}
