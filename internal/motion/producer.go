// Package motion buffers and dispatches processed inertial samples pushed
// by the HID channel.
package motion

import (
	"sync"

	"github.com/relabs-tech/stereo_session/internal/camera"
	"github.com/relabs-tech/stereo_session/internal/telemetry"
)

// DefaultMaxBuffered bounds the sample FIFO when EnableMotionDatas is
// called with a non-positive size.
const DefaultMaxBuffered = 1000

// Raw count conversion. Counts are int16 over the full configured sensor
// range; temperature follows the MPU-style 326.8 LSB/°C with a 25 °C offset.
const (
	accelRangeG  = 8.0
	gyroRangeDps = 1000.0
	countSpan    = 32768.0
	tempLsbPerC  = 326.8
	tempOffsetC  = 25.0
)

// Producer implements camera.MotionProducer. OnImuDataCallback runs on the
// channel's reader goroutine; everything else on caller goroutines.
type Producer struct {
	mu      sync.Mutex
	enabled bool
	max     int
	datas   []telemetry.MotionData
	cb      func(telemetry.MotionData)
	mode    camera.ProcessMode
	intr    *camera.MotionIntrinsics
}

func NewProducer() *Producer {
	return &Producer{max: DefaultMaxBuffered}
}

// EnableProcessMode selects which calibration corrections processSample
// applies. Corrections without intrinsics are no-ops.
func (p *Producer) EnableProcessMode(mode camera.ProcessMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
}

// EnableMotionDatas turns on buffering with the given bound; oldest samples
// are dropped once the bound is hit.
func (p *Producer) EnableMotionDatas(maxBuffered int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if maxBuffered <= 0 {
		maxBuffered = DefaultMaxBuffered
	}
	p.enabled = true
	p.max = maxBuffered
}

func (p *Producer) IsMotionDatasEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// GetMotionDatas drains the buffer.
func (p *Producer) GetMotionDatas() []telemetry.MotionData {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.datas
	p.datas = nil
	return out
}

func (p *Producer) SetMotionCallback(cb func(telemetry.MotionData)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cb = cb
}

func (p *Producer) SetMotionIntrinsics(in *camera.MotionIntrinsics) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intr = in
}

// OnImuDataCallback is the raw IMU sink registered with the channel.
func (p *Producer) OnImuDataCallback(pkt telemetry.ImuPacket) {
	p.mu.Lock()
	data := p.processLocked(pkt)
	if p.enabled {
		p.datas = append(p.datas, data)
		if len(p.datas) > p.max {
			p.datas = p.datas[len(p.datas)-p.max:]
		}
	}
	cb := p.cb
	p.mu.Unlock()

	if cb != nil {
		cb(data)
	}
}

func (p *Producer) processLocked(pkt telemetry.ImuPacket) telemetry.MotionData {
	data := telemetry.MotionData{
		Flag:        pkt.Flag,
		Timestamp:   pkt.Timestamp,
		Temperature: float64(pkt.Temperature)/tempLsbPerC + tempOffsetC,
	}

	v := [3]float64{float64(pkt.X), float64(pkt.Y), float64(pkt.Z)}
	switch pkt.Flag {
	case telemetry.ImuFlagAccel:
		scaleAxes(&v, accelRangeG/countSpan)
		if p.intr != nil {
			correct(&v, p.intr.Accel, p.mode, data.Temperature)
		}
		data.Accel = v
	case telemetry.ImuFlagGyro:
		scaleAxes(&v, gyroRangeDps/countSpan)
		if p.intr != nil {
			correct(&v, p.intr.Gyro, p.mode, data.Temperature)
		}
		data.Gyro = v
	}
	return data
}

func scaleAxes(v *[3]float64, k float64) {
	for i := range v {
		v[i] *= k
	}
}

// correct applies the enabled calibration corrections in place: assembly
// (scale & misalignment matrix minus bias), then temperature drift.
func correct(v *[3]float64, in camera.ImuIntrinsics, mode camera.ProcessMode, tempC float64) {
	if mode&camera.ProcessAssembly != 0 {
		var out [3]float64
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				out[i] += in.Scale[i][j] * v[j]
			}
			out[i] -= in.Bias[i]
		}
		*v = out
	}
	if mode&camera.ProcessWarmDrift != 0 {
		dt := tempC - tempOffsetC
		for i := range v {
			v[i] -= in.Drift[i] * dt
		}
	}
}
