package camera

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// Version is a major.minor version pair as stored in device flash.
type Version struct {
	Major uint8 `json:"major"`
	Minor uint8 `json:"minor"`
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// TypeCode identifies a lens or IMU assembly variant.
type TypeCode struct {
	Vendor  uint16 `json:"vendor"`
	Product uint16 `json:"product"`
}

func (t TypeCode) String() string {
	return fmt.Sprintf("%04X-%04X", t.Vendor, t.Product)
}

// DeviceDescriptor is the identity record read from device flash. It is
// immutable once read; a session without a successful flash read has none.
type DeviceDescriptor struct {
	Name            string          `json:"name"`
	SerialNumber    string          `json:"serial_number"`
	FirmwareVersion Version         `json:"firmware_version"`
	HardwareVersion Version         `json:"hardware_version"`
	SpecVersion     Version         `json:"spec_version"`
	LensType        TypeCode        `json:"lens_type"`
	ImuType         TypeCode        `json:"imu_type"`
	NominalBaseline physic.Distance `json:"nominal_baseline"`
}

// DescriptorField selects one descriptor field for GetDescriptor.
type DescriptorField int

const (
	FieldDeviceName DescriptorField = iota
	FieldSerialNumber
	FieldFirmwareVersion
	FieldHardwareVersion
	FieldSpecVersion
	FieldLensType
	FieldImuType
	FieldNominalBaseline
)

func (f DescriptorField) String() string {
	switch f {
	case FieldDeviceName:
		return "device_name"
	case FieldSerialNumber:
		return "serial_number"
	case FieldFirmwareVersion:
		return "firmware_version"
	case FieldHardwareVersion:
		return "hardware_version"
	case FieldSpecVersion:
		return "spec_version"
	case FieldLensType:
		return "lens_type"
	case FieldImuType:
		return "imu_type"
	case FieldNominalBaseline:
		return "nominal_baseline"
	default:
		return "unknown"
	}
}
