package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/stereo_session/internal/telemetry"
)

func openedProducer() *Producer {
	p := NewProducer()
	p.OnCameraOpen()
	return p
}

func TestFramesDroppedOutsideOpenSession(t *testing.T) {
	p := NewProducer()
	p.EnableStreamData(telemetry.ImageLeftColor)

	p.OnStreamCaptured(telemetry.StreamData{Type: telemetry.ImageLeftColor, FrameID: 1})

	assert.Empty(t, p.GetStreamDatas(telemetry.ImageLeftColor))
}

func TestFramesDroppedForDisabledType(t *testing.T) {
	p := openedProducer()
	p.EnableStreamData(telemetry.ImageLeftColor)

	p.OnStreamCaptured(telemetry.StreamData{Type: telemetry.ImageDepth, FrameID: 1})
	p.OnStreamCaptured(telemetry.StreamData{Type: telemetry.ImageLeftColor, FrameID: 2})

	assert.Empty(t, p.GetStreamDatas(telemetry.ImageDepth))
	assert.Len(t, p.GetStreamDatas(telemetry.ImageLeftColor), 1)
}

func TestHasStreamDataEnabled(t *testing.T) {
	p := NewProducer()
	assert.False(t, p.HasStreamDataEnabled())

	p.EnableStreamData(telemetry.ImageRightColor)
	assert.True(t, p.HasStreamDataEnabled())
	assert.True(t, p.IsStreamDataEnabled(telemetry.ImageRightColor))
	assert.False(t, p.IsStreamDataEnabled(telemetry.ImageLeftColor))
}

func TestFrameBufferBound(t *testing.T) {
	p := openedProducer()
	p.EnableStreamData(telemetry.ImageLeftColor)

	for i := 1; i <= MaxBufferedFrames+3; i++ {
		p.OnStreamCaptured(telemetry.StreamData{Type: telemetry.ImageLeftColor, FrameID: uint16(i)})
	}

	datas := p.GetStreamDatas(telemetry.ImageLeftColor)
	require.Len(t, datas, MaxBufferedFrames)
	assert.Equal(t, uint16(4), datas[0].FrameID)
	assert.Equal(t, uint16(MaxBufferedFrames+3), datas[len(datas)-1].FrameID)
}

func TestGetStreamDataReturnsNewest(t *testing.T) {
	p := openedProducer()
	p.EnableStreamData(telemetry.ImageDepth)

	assert.Zero(t, p.GetStreamData(telemetry.ImageDepth))

	p.OnStreamCaptured(telemetry.StreamData{Type: telemetry.ImageDepth, FrameID: 1})
	p.OnStreamCaptured(telemetry.StreamData{Type: telemetry.ImageDepth, FrameID: 2})

	assert.Equal(t, uint16(2), p.GetStreamData(telemetry.ImageDepth).FrameID)
	// Newest-wins read drained everything, including the older frame.
	assert.Empty(t, p.GetStreamDatas(telemetry.ImageDepth))
}

func TestImageInfoDroppedWhenDisabled(t *testing.T) {
	p := openedProducer()
	var got []telemetry.ImgInfo
	p.SetImgInfoCallback(func(info telemetry.ImgInfo) { got = append(got, info) })

	p.OnImageInfoCallback(telemetry.ImgInfo{FrameID: 1})
	assert.Empty(t, got)

	p.EnableImageInfo(false)
	p.OnImageInfoCallback(telemetry.ImgInfo{FrameID: 2})
	require.Len(t, got, 1)
	assert.Equal(t, uint16(2), got[0].FrameID)
}

func TestSyncAttachesInfoToBufferedFrame(t *testing.T) {
	p := openedProducer()
	p.EnableStreamData(telemetry.ImageLeftColor)
	p.EnableImageInfo(true)

	p.OnStreamCaptured(telemetry.StreamData{Type: telemetry.ImageLeftColor, FrameID: 10})
	p.OnImageInfoCallback(telemetry.ImgInfo{FrameID: 10, Timestamp: 555, ExposureTime: 480})

	datas := p.GetStreamDatas(telemetry.ImageLeftColor)
	require.Len(t, datas, 1)
	require.NotNil(t, datas[0].Info)
	assert.Equal(t, uint32(555), datas[0].Info.Timestamp)
}

func TestSyncParksInfoUntilFrameArrives(t *testing.T) {
	p := openedProducer()
	p.EnableStreamData(telemetry.ImageLeftColor)
	p.EnableImageInfo(true)

	p.OnImageInfoCallback(telemetry.ImgInfo{FrameID: 11, Timestamp: 600})
	p.OnStreamCaptured(telemetry.StreamData{Type: telemetry.ImageLeftColor, FrameID: 11})

	datas := p.GetStreamDatas(telemetry.ImageLeftColor)
	require.Len(t, datas, 1)
	require.NotNil(t, datas[0].Info)
	assert.Equal(t, uint32(600), datas[0].Info.Timestamp)
}

func TestSyncPendingInfosAreBounded(t *testing.T) {
	p := openedProducer()
	p.EnableStreamData(telemetry.ImageLeftColor)
	p.EnableImageInfo(true)

	for i := 0; i <= maxPendingInfos; i++ {
		p.OnImageInfoCallback(telemetry.ImgInfo{FrameID: uint16(i)})
	}

	// The pending set overflowed and was reset, so an early frame no longer
	// finds its record.
	p.OnStreamCaptured(telemetry.StreamData{Type: telemetry.ImageLeftColor, FrameID: 0})
	datas := p.GetStreamDatas(telemetry.ImageLeftColor)
	require.Len(t, datas, 1)
	assert.Nil(t, datas[0].Info)
}

func TestCloseResetsBuffers(t *testing.T) {
	p := openedProducer()
	p.EnableStreamData(telemetry.ImageLeftColor)
	p.OnStreamCaptured(telemetry.StreamData{Type: telemetry.ImageLeftColor, FrameID: 1})

	p.OnCameraClose()

	assert.Empty(t, p.GetStreamDatas(telemetry.ImageLeftColor))
	// Enable flags survive the close; only buffered data is discarded.
	assert.True(t, p.IsStreamDataEnabled(telemetry.ImageLeftColor))
}

func TestFrameCallbackPerType(t *testing.T) {
	p := openedProducer()
	p.EnableStreamData(telemetry.ImageLeftColor)
	p.EnableStreamData(telemetry.ImageDepth)

	var left []uint16
	p.SetStreamCallback(telemetry.ImageLeftColor, func(d telemetry.StreamData) { left = append(left, d.FrameID) })

	p.OnStreamCaptured(telemetry.StreamData{Type: telemetry.ImageLeftColor, FrameID: 1})
	p.OnStreamCaptured(telemetry.StreamData{Type: telemetry.ImageDepth, FrameID: 2})

	assert.Equal(t, []uint16{1}, left)
}
