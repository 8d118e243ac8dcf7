package camera

// Offsets into the row-major 3x3 pinhole matrix of a calibration block:
// the diagonal carries the focal terms, the last column the principal point.
const (
	camMatFx = 0
	camMatFy = 4
	camMatCx = 2
	camMatCy = 5
)

// DistortionCoeffCount is the number of distortion coefficients the device
// stores per lens (k1, k2, p1, p2, k3).
const DistortionCoeffCount = 5

// CalibrationBlock is the raw per-stream-mode calibration payload fetched
// from the device. Matrices are flat row-major. Width and Height describe
// the combined side-by-side stereo frame, not a single lens.
type CalibrationBlock struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	LeftMatrix      [9]float64                   `json:"left_matrix"`
	LeftDistortion  [DistortionCoeffCount]float64 `json:"left_distortion"`
	RightMatrix     [9]float64                   `json:"right_matrix"`
	RightDistortion [DistortionCoeffCount]float64 `json:"right_distortion"`

	Rotation    [9]float64 `json:"rotation"` // right lens relative to left
	Translation [3]float64 `json:"translation"`
}

// CameraIntrinsics is the pinhole model of a single lens.
type CameraIntrinsics struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Cx     float64 `json:"cx"`
	Cy     float64 `json:"cy"`

	Coeffs [DistortionCoeffCount]float64 `json:"coeffs"`
}

// StreamIntrinsics holds both per-lens models of a stereo stream.
type StreamIntrinsics struct {
	Left  CameraIntrinsics `json:"left"`
	Right CameraIntrinsics `json:"right"`
}

// Extrinsics relates two reference frames by a rotation and a translation.
type Extrinsics struct {
	Rotation    [3][3]float64 `json:"rotation"`
	Translation [3]float64    `json:"translation"`
}

// StreamExtrinsics relates the right lens to the left lens.
type StreamExtrinsics = Extrinsics

// MotionExtrinsics relates the left lens to the IMU.
type MotionExtrinsics = Extrinsics

// ImuIntrinsics is the calibration of one inertial sensor. Scale carries
// scale and misalignment on its diagonal and off-diagonal terms.
type ImuIntrinsics struct {
	Scale [3][3]float64 `json:"scale"`
	Drift [3]float64    `json:"drift"` // temperature drift
	Noise [3]float64    `json:"noise"`
	Bias  [3]float64    `json:"bias"`
}

// MotionIntrinsics is the full IMU calibration.
type MotionIntrinsics struct {
	Accel ImuIntrinsics `json:"accel"`
	Gyro  ImuIntrinsics `json:"gyro"`
}

// ImuParams is the IMU calibration record stored in flash next to the
// descriptor. Ok is false when the device was never factory calibrated.
type ImuParams struct {
	Ok          bool             `json:"ok"`
	InAccel     ImuIntrinsics    `json:"in_accel"`
	InGyro      ImuIntrinsics    `json:"in_gyro"`
	ExLeftToImu MotionExtrinsics `json:"ex_left_to_imu"`
}

// DecodeStreamIntrinsics builds the per-lens pinhole models from a raw
// block. Per-lens width is half the combined width.
func DecodeStreamIntrinsics(block CalibrationBlock) StreamIntrinsics {
	return StreamIntrinsics{
		Left:  lensModel(block, block.LeftMatrix, block.LeftDistortion),
		Right: lensModel(block, block.RightMatrix, block.RightDistortion),
	}
}

func lensModel(block CalibrationBlock, mat [9]float64, dist [DistortionCoeffCount]float64) CameraIntrinsics {
	return CameraIntrinsics{
		Width:  block.Width / 2,
		Height: block.Height,
		Fx:     mat[camMatFx],
		Fy:     mat[camMatFy],
		Cx:     mat[camMatCx],
		Cy:     mat[camMatCy],
		Coeffs: dist,
	}
}

// DecodeStreamExtrinsics unflattens the row-major relative pose of the two
// lenses.
func DecodeStreamExtrinsics(block CalibrationBlock) StreamExtrinsics {
	var ex StreamExtrinsics
	for i, v := range block.Rotation {
		ex.Rotation[i/3][i%3] = v
	}
	ex.Translation = block.Translation
	return ex
}
