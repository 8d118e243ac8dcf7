package camera

import (
	"github.com/relabs-tech/stereo_session/internal/telemetry"
)

// OpenParams selects the device and stream configuration for Open.
type OpenParams struct {
	DeviceIndex int
	Framerate   int
	StreamMode  telemetry.StreamMode
}

// DeviceInfo describes one enumerated device.
type DeviceInfo struct {
	Index        int    `json:"index"`
	Name         string `json:"name"`
	VendorID     uint16 `json:"vid"`
	ProductID    uint16 `json:"pid"`
	SerialNumber string `json:"sn"`
}

// StreamInfo describes one stream configuration a device offers.
type StreamInfo struct {
	Index  int    `json:"index"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// ProcessMode selects which IMU calibration corrections the motion producer
// applies to raw samples.
type ProcessMode int32

const (
	ProcessNone      ProcessMode = 0
	ProcessAssembly  ProcessMode = 1 << 0 // scale & misalignment
	ProcessWarmDrift ProcessMode = 1 << 1 // temperature drift
	ProcessAll                   = ProcessAssembly | ProcessWarmDrift
)

// Transport is the physical device connection: connect/disconnect, stream
// enumeration and raw calibration retrieval. Implementations own any
// timeouts; Open and Close are bounded blocking calls.
type Transport interface {
	Open(params OpenParams) error
	Close()
	IsOpened() bool
	GetDeviceInfos() []DeviceInfo
	GetStreamInfos(deviceIndex int) (color, depth []StreamInfo)
	GetCameraCalibration(mode telemetry.StreamMode) (CalibrationBlock, error)
	GetCameraCalibrationFile(mode telemetry.StreamMode, path string) error
	SetCameraCalibrationBinFile(path string) error
}

// Channel is the descriptor/telemetry side channel of the device. It owns
// the single shared HID tracking subscription and delivers raw telemetry
// asynchronously through the registered callbacks, from its own reader
// goroutine.
type Channel interface {
	IsAvailable() bool
	IsHidAvailable() bool
	IsHidTracking() bool
	StartHidTracking() error
	StopHidTracking()

	GetFiles() (*DeviceDescriptor, *ImuParams, error)
	SetFiles(desc *DeviceDescriptor, params *ImuParams, specVersion *Version) error

	SetImuDataCallback(func(telemetry.ImuPacket))
	SetImgInfoCallback(func(telemetry.ImgInfo))
}

// StreamProducer buffers and dispatches image-stream data and per-frame
// metadata. It owns the image-info demand flag.
type StreamProducer interface {
	OnCameraOpen()
	OnCameraClose()

	EnableImageInfo(sync bool)
	IsImageInfoEnabled() bool

	EnableStreamData(t telemetry.ImageType)
	IsStreamDataEnabled(t telemetry.ImageType) bool
	HasStreamDataEnabled() bool
	GetStreamData(t telemetry.ImageType) telemetry.StreamData
	GetStreamDatas(t telemetry.ImageType) []telemetry.StreamData

	SetImgInfoCallback(func(telemetry.ImgInfo))
	SetStreamCallback(t telemetry.ImageType, cb func(telemetry.StreamData))
	OnImageInfoCallback(info telemetry.ImgInfo)
}

// MotionProducer buffers and dispatches inertial samples. It owns the
// motion-data demand flag.
type MotionProducer interface {
	EnableProcessMode(mode ProcessMode)
	EnableMotionDatas(maxBuffered int)
	IsMotionDatasEnabled() bool
	GetMotionDatas() []telemetry.MotionData

	SetMotionCallback(func(telemetry.MotionData))
	SetMotionIntrinsics(in *MotionIntrinsics)
	OnImuDataCallback(pkt telemetry.ImuPacket)
}
