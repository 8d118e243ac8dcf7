package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/stereo_session/internal/camera"
	"github.com/relabs-tech/stereo_session/internal/telemetry"
)

func TestDisabledProducerBuffersNothing(t *testing.T) {
	p := NewProducer()
	require.False(t, p.IsMotionDatasEnabled())

	p.OnImuDataCallback(telemetry.ImuPacket{Flag: telemetry.ImuFlagAccel, X: 100})

	assert.Empty(t, p.GetMotionDatas())
}

func TestCallbackFiresEvenWhenBufferingIsOff(t *testing.T) {
	p := NewProducer()
	var got []telemetry.MotionData
	p.SetMotionCallback(func(d telemetry.MotionData) { got = append(got, d) })

	p.OnImuDataCallback(telemetry.ImuPacket{Flag: telemetry.ImuFlagGyro, Timestamp: 7})

	require.Len(t, got, 1)
	assert.Equal(t, uint32(7), got[0].Timestamp)
}

func TestBufferDropsOldestAtBound(t *testing.T) {
	p := NewProducer()
	p.EnableMotionDatas(3)

	for i := 1; i <= 5; i++ {
		p.OnImuDataCallback(telemetry.ImuPacket{Flag: telemetry.ImuFlagAccel, Timestamp: uint32(i)})
	}

	datas := p.GetMotionDatas()
	require.Len(t, datas, 3)
	assert.Equal(t, uint32(3), datas[0].Timestamp)
	assert.Equal(t, uint32(5), datas[2].Timestamp)

	// The read drained the buffer.
	assert.Empty(t, p.GetMotionDatas())
}

func TestNonPositiveBoundFallsBackToDefault(t *testing.T) {
	p := NewProducer()
	p.EnableMotionDatas(0)

	for i := 0; i < DefaultMaxBuffered+10; i++ {
		p.OnImuDataCallback(telemetry.ImuPacket{Flag: telemetry.ImuFlagAccel})
	}

	assert.Len(t, p.GetMotionDatas(), DefaultMaxBuffered)
}

func TestRawCountScaling(t *testing.T) {
	p := NewProducer()
	p.EnableMotionDatas(10)

	// 4096 counts is 1 g at the 8 g range, and the raw temperature of 0
	// counts reads 25 °C.
	p.OnImuDataCallback(telemetry.ImuPacket{Flag: telemetry.ImuFlagAccel, X: 4096, Y: -4096})
	p.OnImuDataCallback(telemetry.ImuPacket{Flag: telemetry.ImuFlagGyro, Z: 16384})

	datas := p.GetMotionDatas()
	require.Len(t, datas, 2)

	accel := datas[0]
	assert.InDelta(t, 1.0, accel.Accel[0], 1e-9)
	assert.InDelta(t, -1.0, accel.Accel[1], 1e-9)
	assert.InDelta(t, 25.0, accel.Temperature, 1e-9)
	assert.Zero(t, accel.Gyro)

	gyro := datas[1]
	assert.InDelta(t, 500.0, gyro.Gyro[2], 1e-9)
	assert.Zero(t, gyro.Accel)
}

func TestAssemblyCorrection(t *testing.T) {
	p := NewProducer()
	p.EnableMotionDatas(10)
	p.EnableProcessMode(camera.ProcessAssembly)
	p.SetMotionIntrinsics(&camera.MotionIntrinsics{
		Accel: camera.ImuIntrinsics{
			Scale: [3][3]float64{{2, 0, 0}, {0, 2, 0}, {0, 0, 2}},
			Bias:  [3]float64{0.5, 0, 0},
		},
	})

	p.OnImuDataCallback(telemetry.ImuPacket{Flag: telemetry.ImuFlagAccel, X: 4096})

	datas := p.GetMotionDatas()
	require.Len(t, datas, 1)
	assert.InDelta(t, 2.0*1.0-0.5, datas[0].Accel[0], 1e-9)
}

func TestWarmDriftCorrection(t *testing.T) {
	p := NewProducer()
	p.EnableMotionDatas(10)
	p.EnableProcessMode(camera.ProcessWarmDrift)
	p.SetMotionIntrinsics(&camera.MotionIntrinsics{
		Gyro: camera.ImuIntrinsics{Drift: [3]float64{0.1, 0, 0}},
	})

	// 3268 raw counts is 10 °C above the offset.
	p.OnImuDataCallback(telemetry.ImuPacket{Flag: telemetry.ImuFlagGyro, Temperature: 3268, X: 16384})

	datas := p.GetMotionDatas()
	require.Len(t, datas, 1)
	assert.InDelta(t, 35.0, datas[0].Temperature, 1e-9)
	assert.InDelta(t, 500.0-0.1*10, datas[0].Gyro[0], 1e-9)
}

func TestCorrectionsSkippedWithoutIntrinsics(t *testing.T) {
	p := NewProducer()
	p.EnableMotionDatas(10)
	p.EnableProcessMode(camera.ProcessAll)

	p.OnImuDataCallback(telemetry.ImuPacket{Flag: telemetry.ImuFlagAccel, X: 4096})

	datas := p.GetMotionDatas()
	require.Len(t, datas, 1)
	assert.InDelta(t, 1.0, datas[0].Accel[0], 1e-9)
}
