package telemetry

// StreamMode identifies the combined side-by-side resolution of a stereo
// stream. The device packs both lenses into one frame, so the widths here
// are twice the per-lens width.
type StreamMode int

const (
	StreamMode640x480 StreamMode = iota
	StreamMode1280x480
	StreamMode1280x720
	StreamMode2560x720
)

func (m StreamMode) String() string {
	switch m {
	case StreamMode640x480:
		return "640x480"
	case StreamMode1280x480:
		return "1280x480"
	case StreamMode1280x720:
		return "1280x720"
	case StreamMode2560x720:
		return "2560x720"
	default:
		return "unknown"
	}
}

// ImageType selects which decoded stream a caller is interested in.
type ImageType int

const (
	ImageLeftColor ImageType = iota
	ImageRightColor
	ImageDepth
)

func (t ImageType) String() string {
	switch t {
	case ImageLeftColor:
		return "left_color"
	case ImageRightColor:
		return "right_color"
	case ImageDepth:
		return "depth"
	default:
		return "unknown"
	}
}

// ImuPacket flag values. A packet carries either an accelerometer or a
// gyroscope reading, never both.
const (
	ImuFlagAccel uint8 = 1
	ImuFlagGyro  uint8 = 2
)

// ImuPacket is a single raw inertial sample as delivered by the HID channel.
// Axis values are raw sensor counts; scaling happens in the motion producer.
type ImuPacket struct {
	Flag        uint8  `json:"flag"`      // ImuFlagAccel or ImuFlagGyro
	Timestamp   uint32 `json:"timestamp"` // device clock, 0.1 ms units
	Temperature int16  `json:"temperature"`

	X int16 `json:"x"`
	Y int16 `json:"y"`
	Z int16 `json:"z"`
}

// ImgInfo is the per-frame metadata record delivered alongside the image
// stream over the HID channel.
type ImgInfo struct {
	FrameID      uint16 `json:"frame_id"`
	Timestamp    uint32 `json:"timestamp"` // device clock, 0.1 ms units
	ExposureTime uint16 `json:"exposure_time"`
}

// MotionData is a processed inertial sample in physical units.
type MotionData struct {
	Flag        uint8   `json:"flag"`
	Timestamp   uint32  `json:"timestamp"`
	Temperature float64 `json:"temperature"` // °C

	Accel [3]float64 `json:"accel"` // g
	Gyro  [3]float64 `json:"gyro"`  // deg/s
}

// StreamData couples a captured frame with its image info. Info is nil until
// the matching ImgInfo arrives when synced capture is enabled.
type StreamData struct {
	Type    ImageType `json:"type"`
	FrameID uint16    `json:"frame_id"`
	Raw     []byte    `json:"-"`
	Info    *ImgInfo  `json:"info,omitempty"`
}
