// Package stream buffers and dispatches image-stream frames and the
// per-frame metadata records that arrive separately over the HID channel.
package stream

import (
	"sync"

	"github.com/relabs-tech/stereo_session/internal/telemetry"
)

// MaxBufferedFrames bounds the per-image-type frame FIFO.
const MaxBufferedFrames = 8

// maxPendingInfos bounds metadata waiting for its frame in synced mode.
const maxPendingInfos = 32

// Producer implements camera.StreamProducer. OnImageInfoCallback runs on
// the channel's reader goroutine; OnStreamCaptured on the capture
// goroutine; everything else on caller goroutines.
type Producer struct {
	mu sync.Mutex

	opened         bool
	imgInfoEnabled bool
	imgInfoSync    bool

	enabled map[telemetry.ImageType]bool
	frames  map[telemetry.ImageType][]telemetry.StreamData
	pending map[uint16]telemetry.ImgInfo // frame id -> info awaiting its frame

	infoCB   func(telemetry.ImgInfo)
	frameCBs map[telemetry.ImageType]func(telemetry.StreamData)
}

func NewProducer() *Producer {
	return &Producer{
		enabled:  make(map[telemetry.ImageType]bool),
		frames:   make(map[telemetry.ImageType][]telemetry.StreamData),
		pending:  make(map[uint16]telemetry.ImgInfo),
		frameCBs: make(map[telemetry.ImageType]func(telemetry.StreamData)),
	}
}

// OnCameraOpen starts a capture epoch with empty buffers.
func (p *Producer) OnCameraOpen() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened = true
	p.frames = make(map[telemetry.ImageType][]telemetry.StreamData)
	p.pending = make(map[uint16]telemetry.ImgInfo)
}

func (p *Producer) OnCameraClose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened = false
	p.frames = make(map[telemetry.ImageType][]telemetry.StreamData)
	p.pending = make(map[uint16]telemetry.ImgInfo)
}

// EnableImageInfo turns on metadata collection. With sync, records are held
// back and attached to their frame by frame id instead of flowing straight
// to the callback.
func (p *Producer) EnableImageInfo(sync bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.imgInfoEnabled = true
	p.imgInfoSync = sync
}

func (p *Producer) IsImageInfoEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.imgInfoEnabled
}

func (p *Producer) EnableStreamData(t telemetry.ImageType) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled[t] = true
}

func (p *Producer) IsStreamDataEnabled(t telemetry.ImageType) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled[t]
}

func (p *Producer) HasStreamDataEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, on := range p.enabled {
		if on {
			return true
		}
	}
	return false
}

// GetStreamData returns the newest buffered frame of a type and drops the
// rest. A zero value means nothing was buffered.
func (p *Producer) GetStreamData(t telemetry.ImageType) telemetry.StreamData {
	datas := p.GetStreamDatas(t)
	if len(datas) == 0 {
		return telemetry.StreamData{}
	}
	return datas[len(datas)-1]
}

// GetStreamDatas drains the frame buffer of a type.
func (p *Producer) GetStreamDatas(t telemetry.ImageType) []telemetry.StreamData {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.frames[t]
	delete(p.frames, t)
	return out
}

func (p *Producer) SetImgInfoCallback(cb func(telemetry.ImgInfo)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.infoCB = cb
}

func (p *Producer) SetStreamCallback(t telemetry.ImageType, cb func(telemetry.StreamData)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frameCBs[t] = cb
}

// OnImageInfoCallback is the raw image-info sink registered with the
// channel.
func (p *Producer) OnImageInfoCallback(info telemetry.ImgInfo) {
	p.mu.Lock()
	if !p.imgInfoEnabled {
		p.mu.Unlock()
		return
	}
	if p.imgInfoSync {
		p.attachInfoLocked(info)
	}
	cb := p.infoCB
	p.mu.Unlock()

	if cb != nil {
		cb(info)
	}
}

// attachInfoLocked matches a metadata record to an already-buffered frame,
// or parks it until the frame arrives.
func (p *Producer) attachInfoLocked(info telemetry.ImgInfo) {
	for t, datas := range p.frames {
		for i := range datas {
			if datas[i].FrameID == info.FrameID && datas[i].Info == nil {
				cp := info
				p.frames[t][i].Info = &cp
				return
			}
		}
	}
	p.pending[info.FrameID] = info
	if len(p.pending) > maxPendingInfos {
		// Frames never showed up; start over rather than grow forever.
		p.pending = make(map[uint16]telemetry.ImgInfo)
	}
}

// OnStreamCaptured is the frame sink fed by the capture source. Frames for
// disabled types, or outside an open session, are dropped.
func (p *Producer) OnStreamCaptured(data telemetry.StreamData) {
	p.mu.Lock()
	if !p.opened || !p.enabled[data.Type] {
		p.mu.Unlock()
		return
	}
	if p.imgInfoSync && data.Info == nil {
		if info, ok := p.pending[data.FrameID]; ok {
			cp := info
			data.Info = &cp
			delete(p.pending, data.FrameID)
		}
	}
	buf := append(p.frames[data.Type], data)
	if len(buf) > MaxBufferedFrames {
		buf = buf[len(buf)-MaxBufferedFrames:]
	}
	p.frames[data.Type] = buf
	cb := p.frameCBs[data.Type]
	p.mu.Unlock()

	if cb != nil {
		cb(data)
	}
}
