package app

import (
	"fmt"
	"log"

	"github.com/relabs-tech/stereo_session/internal/camera"
	"github.com/relabs-tech/stereo_session/internal/config"
)

// RunInspect opens a session and dumps the device identity and calibration
// to the console.
func RunInspect() error {
	cfg := config.Get()

	session, _, cleanup, err := buildSession(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	for _, info := range session.GetDeviceInfos() {
		fmt.Printf("device %d: %s  vid=%04X pid=%04X sn=%s\n",
			info.Index, info.Name, info.VendorID, info.ProductID, info.SerialNumber)
	}

	params := camera.OpenParams{
		DeviceIndex: cfg.DeviceIndex,
		Framerate:   cfg.Framerate,
		StreamMode:  parseStreamMode(cfg.StreamMode),
	}
	if code := session.Open(params); code != camera.Success {
		return fmt.Errorf("open camera: %s", code)
	}
	defer session.Close()

	color, depth := session.GetStreamInfos(cfg.DeviceIndex)
	for _, si := range color {
		fmt.Printf("color stream %d: %dx%d %s\n", si.Index, si.Width, si.Height, si.Format)
	}
	for _, si := range depth {
		fmt.Printf("depth stream %d: %dx%d %s\n", si.Index, si.Width, si.Height, si.Format)
	}

	fields := []camera.DescriptorField{
		camera.FieldDeviceName,
		camera.FieldSerialNumber,
		camera.FieldFirmwareVersion,
		camera.FieldHardwareVersion,
		camera.FieldSpecVersion,
		camera.FieldLensType,
		camera.FieldImuType,
		camera.FieldNominalBaseline,
	}
	fmt.Println("descriptor:")
	for _, f := range fields {
		fmt.Printf("  %-17s %s\n", f.String()+":", session.GetDescriptor(f))
	}

	in, err := session.GetStreamIntrinsics(params.StreamMode)
	if err != nil {
		log.Printf("inspect: stream intrinsics: %v", err)
	} else {
		printLens("left", in.Left)
		printLens("right", in.Right)
	}

	ex, err := session.GetStreamExtrinsics(params.StreamMode)
	if err != nil {
		log.Printf("inspect: stream extrinsics: %v", err)
	} else {
		fmt.Printf("rotation:    %v\n", ex.Rotation)
		fmt.Printf("translation: %v\n", ex.Translation)
	}

	fmt.Printf("motion intrinsics: %+v\n", session.GetMotionIntrinsics())
	fmt.Printf("motion extrinsics: %+v\n", session.GetMotionExtrinsics())
	return nil
}

func printLens(name string, in camera.CameraIntrinsics) {
	fmt.Printf("%s lens: %dx%d  fx=%.2f fy=%.2f cx=%.2f cy=%.2f  coeffs=%v\n",
		name, in.Width, in.Height, in.Fx, in.Fy, in.Cx, in.Cy, in.Coeffs)
}
