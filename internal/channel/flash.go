package channel

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/stereo_session/internal/camera"
)

// Flash record layout, little-endian throughout. The record starts with the
// spec version governing the layout, then the fixed-width descriptor, then
// the IMU calibration block.
const (
	offSpecVersion = 0
	offName        = 2
	offSerial      = 18
	offFirmware    = 34
	offHardware    = 36
	offLensType    = 38
	offImuType     = 42
	offBaseline    = 46
	offImuOk       = 48
	offAccel       = 49
	offGyro        = offAccel + imuIntrinsicsLen
	offExtrinsics  = offGyro + imuIntrinsicsLen

	flashRecordLen = offExtrinsics + extrinsicsLen

	nameLen          = 16
	serialLen        = 16
	imuIntrinsicsLen = 18 * 8 // scale 3x3, drift 3, noise 3, bias 3
	extrinsicsLen    = 12 * 8 // rotation 3x3, translation 3
)

// encodeFlashRecord serializes the descriptor/IMU-params/spec-version
// triple. A nil spec version falls back to the descriptor's own.
func encodeFlashRecord(desc *camera.DeviceDescriptor, params *camera.ImuParams, specVersion *camera.Version) ([]byte, error) {
	if desc == nil {
		return nil, fmt.Errorf("flash record: descriptor is nil")
	}
	if len(desc.Name) > nameLen {
		return nil, fmt.Errorf("flash record: name %q longer than %d bytes", desc.Name, nameLen)
	}
	if len(desc.SerialNumber) > serialLen {
		return nil, fmt.Errorf("flash record: serial %q longer than %d bytes", desc.SerialNumber, serialLen)
	}

	spec := desc.SpecVersion
	if specVersion != nil {
		spec = *specVersion
	}

	buf := make([]byte, flashRecordLen)
	buf[offSpecVersion] = spec.Major
	buf[offSpecVersion+1] = spec.Minor
	copy(buf[offName:offName+nameLen], desc.Name)
	copy(buf[offSerial:offSerial+serialLen], desc.SerialNumber)
	buf[offFirmware] = desc.FirmwareVersion.Major
	buf[offFirmware+1] = desc.FirmwareVersion.Minor
	buf[offHardware] = desc.HardwareVersion.Major
	buf[offHardware+1] = desc.HardwareVersion.Minor
	putTypeCode(buf[offLensType:], desc.LensType)
	putTypeCode(buf[offImuType:], desc.ImuType)
	binary.LittleEndian.PutUint16(buf[offBaseline:], uint16(desc.NominalBaseline/physic.MilliMetre))

	if params != nil && params.Ok {
		buf[offImuOk] = 1
		putImuIntrinsics(buf[offAccel:], params.InAccel)
		putImuIntrinsics(buf[offGyro:], params.InGyro)
		putExtrinsics(buf[offExtrinsics:], params.ExLeftToImu)
	}
	return buf, nil
}

// decodeFlashRecord parses a flash record back into the descriptor and IMU
// params. The spec version at the head of the record wins over whatever the
// descriptor bytes claim.
func decodeFlashRecord(buf []byte) (*camera.DeviceDescriptor, *camera.ImuParams, error) {
	if len(buf) < flashRecordLen {
		return nil, nil, fmt.Errorf("flash record: %d bytes, want %d", len(buf), flashRecordLen)
	}

	desc := &camera.DeviceDescriptor{
		Name:         trimFixed(buf[offName : offName+nameLen]),
		SerialNumber: trimFixed(buf[offSerial : offSerial+serialLen]),
		SpecVersion: camera.Version{
			Major: buf[offSpecVersion],
			Minor: buf[offSpecVersion+1],
		},
		FirmwareVersion: camera.Version{Major: buf[offFirmware], Minor: buf[offFirmware+1]},
		HardwareVersion: camera.Version{Major: buf[offHardware], Minor: buf[offHardware+1]},
		LensType:        getTypeCode(buf[offLensType:]),
		ImuType:         getTypeCode(buf[offImuType:]),
		NominalBaseline: physic.Distance(binary.LittleEndian.Uint16(buf[offBaseline:])) * physic.MilliMetre,
	}

	params := &camera.ImuParams{Ok: buf[offImuOk] == 1}
	if params.Ok {
		params.InAccel = getImuIntrinsics(buf[offAccel:])
		params.InGyro = getImuIntrinsics(buf[offGyro:])
		params.ExLeftToImu = getExtrinsics(buf[offExtrinsics:])
	}
	return desc, params, nil
}

func trimFixed(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}

func putTypeCode(b []byte, t camera.TypeCode) {
	binary.LittleEndian.PutUint16(b, t.Vendor)
	binary.LittleEndian.PutUint16(b[2:], t.Product)
}

func getTypeCode(b []byte) camera.TypeCode {
	return camera.TypeCode{
		Vendor:  binary.LittleEndian.Uint16(b),
		Product: binary.LittleEndian.Uint16(b[2:]),
	}
}

func putImuIntrinsics(b []byte, in camera.ImuIntrinsics) {
	off := 0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			putF64(b[off:], in.Scale[i][j])
			off += 8
		}
	}
	off = putVec3(b, off, in.Drift)
	off = putVec3(b, off, in.Noise)
	putVec3(b, off, in.Bias)
}

func getImuIntrinsics(b []byte) camera.ImuIntrinsics {
	var in camera.ImuIntrinsics
	off := 0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			in.Scale[i][j] = getF64(b[off:])
			off += 8
		}
	}
	off = getVec3(b, off, &in.Drift)
	off = getVec3(b, off, &in.Noise)
	getVec3(b, off, &in.Bias)
	return in
}

func putExtrinsics(b []byte, ex camera.Extrinsics) {
	off := 0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			putF64(b[off:], ex.Rotation[i][j])
			off += 8
		}
	}
	putVec3(b, off, ex.Translation)
}

func getExtrinsics(b []byte) camera.Extrinsics {
	var ex camera.Extrinsics
	off := 0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			ex.Rotation[i][j] = getF64(b[off:])
			off += 8
		}
	}
	getVec3(b, off, &ex.Translation)
	return ex
}

func putVec3(b []byte, off int, v [3]float64) int {
	for i := range v {
		putF64(b[off:], v[i])
		off += 8
	}
	return off
}

func getVec3(b []byte, off int, v *[3]float64) int {
	for i := range v {
		v[i] = getF64(b[off:])
		off += 8
	}
	return off
}

func putF64(b []byte, v float64) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}

func getF64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}
