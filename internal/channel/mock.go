package channel

import (
	"fmt"
	"sync"

	"github.com/relabs-tech/stereo_session/internal/camera"
	"github.com/relabs-tech/stereo_session/internal/telemetry"
)

// Mock is an in-memory Channel for tests and mock-mode bench runs. It
// stores what it is given and delivers injected telemetry to the registered
// sinks while tracking.
type Mock struct {
	mu sync.Mutex

	Available    bool
	HidAvailable bool

	desc   *camera.DeviceDescriptor
	params *camera.ImuParams

	tracking bool
	imuCB    func(telemetry.ImuPacket)
	imgCB    func(telemetry.ImgInfo)

	StartCalls int
	StopCalls  int
}

func NewMock() *Mock {
	return &Mock{Available: true, HidAvailable: true}
}

// Preload stores a flash record without going through SetFiles, for mocks
// that should look factory-programmed.
func (m *Mock) Preload(desc *camera.DeviceDescriptor, params *camera.ImuParams) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.desc = desc
	m.params = params
}

func (m *Mock) IsAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Available
}

func (m *Mock) IsHidAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.HidAvailable
}

func (m *Mock) IsHidTracking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracking
}

func (m *Mock) StartHidTracking() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartCalls++
	if !m.HidAvailable {
		return fmt.Errorf("mock channel: hid unavailable")
	}
	m.tracking = true
	return nil
}

func (m *Mock) StopHidTracking() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StopCalls++
	m.tracking = false
}

func (m *Mock) GetFiles() (*camera.DeviceDescriptor, *camera.ImuParams, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.desc == nil {
		return nil, nil, fmt.Errorf("mock channel: no flash record stored")
	}
	desc := *m.desc
	var params *camera.ImuParams
	if m.params != nil {
		cp := *m.params
		params = &cp
	}
	return &desc, params, nil
}

func (m *Mock) SetFiles(desc *camera.DeviceDescriptor, params *camera.ImuParams, specVersion *camera.Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if desc == nil {
		return fmt.Errorf("mock channel: descriptor is nil")
	}
	cp := *desc
	if specVersion != nil {
		cp.SpecVersion = *specVersion
	}
	m.desc = &cp
	if params != nil {
		pcp := *params
		m.params = &pcp
	} else {
		m.params = nil
	}
	return nil
}

func (m *Mock) SetImuDataCallback(cb func(telemetry.ImuPacket)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imuCB = cb
}

func (m *Mock) SetImgInfoCallback(cb func(telemetry.ImgInfo)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imgCB = cb
}

// InjectImu delivers one IMU packet as the hardware would, only while the
// subscription is running.
func (m *Mock) InjectImu(pkt telemetry.ImuPacket) {
	m.mu.Lock()
	cb := m.imuCB
	tracking := m.tracking
	m.mu.Unlock()
	if tracking && cb != nil {
		cb(pkt)
	}
}

// InjectImgInfo delivers one image-info record while tracking.
func (m *Mock) InjectImgInfo(info telemetry.ImgInfo) {
	m.mu.Lock()
	cb := m.imgCB
	tracking := m.tracking
	m.mu.Unlock()
	if tracking && cb != nil {
		cb(info)
	}
}
