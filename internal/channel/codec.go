package channel

import (
	"bufio"
	"encoding/binary"
	"fmt"

	"github.com/relabs-tech/stereo_session/internal/telemetry"
)

// Wire framing of the descriptor channel: a magic byte, a frame type, a
// little-endian payload length, the payload, and an XOR checksum over
// everything after the magic. Types with the high bit set are asynchronous
// device-to-host telemetry; the rest are command/response pairs.
const (
	frameMagic = 0x5A

	cmdGetFiles      = 0x01
	cmdSetFiles      = 0x02
	cmdStartTracking = 0x03
	cmdStopTracking  = 0x04

	rspFiles = 0x41
	rspAck   = 0x42

	pktImu     = 0x81
	pktImgInfo = 0x82

	ackOK = 0x00

	imuPayloadLen     = 13
	imgInfoPayloadLen = 8
	maxPayloadLen     = 1024
)

type frame struct {
	typ     byte
	payload []byte
}

func isTelemetry(typ byte) bool { return typ&0x80 != 0 }

func encodeFrame(typ byte, payload []byte) []byte {
	buf := make([]byte, 0, 5+len(payload))
	buf = append(buf, frameMagic, typ)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	buf = append(buf, checksum(buf[1:]))
	return buf
}

// readFrame scans to the next magic byte and decodes one frame. Garbage
// between frames is skipped; a bad checksum is an error the caller may log
// and keep reading past.
func readFrame(r *bufio.Reader) (frame, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return frame{}, err
		}
		if b == frameMagic {
			break
		}
	}

	var hdr [3]byte
	if _, err := readFull(r, hdr[:]); err != nil {
		return frame{}, err
	}
	typ := hdr[0]
	n := binary.LittleEndian.Uint16(hdr[1:])
	if n > maxPayloadLen {
		return frame{}, fmt.Errorf("channel: frame 0x%02X payload %d exceeds limit", typ, n)
	}

	payload := make([]byte, n)
	if _, err := readFull(r, payload); err != nil {
		return frame{}, err
	}
	sum, err := r.ReadByte()
	if err != nil {
		return frame{}, err
	}

	body := make([]byte, 0, 3+len(payload))
	body = append(body, hdr[:]...)
	body = append(body, payload...)
	if checksum(body) != sum {
		return frame{}, fmt.Errorf("channel: frame 0x%02X checksum mismatch", typ)
	}
	return frame{typ: typ, payload: payload}, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum ^= v
	}
	return sum
}

func encodeImuPacket(pkt telemetry.ImuPacket) []byte {
	buf := make([]byte, imuPayloadLen)
	buf[0] = pkt.Flag
	binary.LittleEndian.PutUint32(buf[1:], pkt.Timestamp)
	binary.LittleEndian.PutUint16(buf[5:], uint16(pkt.Temperature))
	binary.LittleEndian.PutUint16(buf[7:], uint16(pkt.X))
	binary.LittleEndian.PutUint16(buf[9:], uint16(pkt.Y))
	binary.LittleEndian.PutUint16(buf[11:], uint16(pkt.Z))
	return buf
}

func decodeImuPacket(payload []byte) (telemetry.ImuPacket, error) {
	if len(payload) != imuPayloadLen {
		return telemetry.ImuPacket{}, fmt.Errorf("channel: imu payload %d bytes, want %d", len(payload), imuPayloadLen)
	}
	return telemetry.ImuPacket{
		Flag:        payload[0],
		Timestamp:   binary.LittleEndian.Uint32(payload[1:]),
		Temperature: int16(binary.LittleEndian.Uint16(payload[5:])),
		X:           int16(binary.LittleEndian.Uint16(payload[7:])),
		Y:           int16(binary.LittleEndian.Uint16(payload[9:])),
		Z:           int16(binary.LittleEndian.Uint16(payload[11:])),
	}, nil
}

func encodeImgInfo(info telemetry.ImgInfo) []byte {
	buf := make([]byte, imgInfoPayloadLen)
	binary.LittleEndian.PutUint16(buf[0:], info.FrameID)
	binary.LittleEndian.PutUint32(buf[2:], info.Timestamp)
	binary.LittleEndian.PutUint16(buf[6:], info.ExposureTime)
	return buf
}

func decodeImgInfo(payload []byte) (telemetry.ImgInfo, error) {
	if len(payload) != imgInfoPayloadLen {
		return telemetry.ImgInfo{}, fmt.Errorf("channel: img info payload %d bytes, want %d", len(payload), imgInfoPayloadLen)
	}
	return telemetry.ImgInfo{
		FrameID:      binary.LittleEndian.Uint16(payload[0:]),
		Timestamp:    binary.LittleEndian.Uint32(payload[2:]),
		ExposureTime: binary.LittleEndian.Uint16(payload[6:]),
	}, nil
}
