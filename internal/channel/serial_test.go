package channel

import (
	"bufio"
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/stereo_session/internal/telemetry"
)

// scriptPort is an in-memory Porter playing the device side: every command
// frame the host writes is decoded, recorded and answered by the script.
type scriptPort struct {
	incoming chan []byte
	closed   chan struct{}
	once     sync.Once
	pending  []byte

	mu      sync.Mutex
	cmds    []frame
	respond func(f frame) [][]byte
}

func newScriptPort(respond func(f frame) [][]byte) *scriptPort {
	return &scriptPort{
		incoming: make(chan []byte, 16),
		closed:   make(chan struct{}),
		respond:  respond,
	}
}

func (p *scriptPort) Read(b []byte) (int, error) {
	if len(p.pending) == 0 {
		select {
		case data := <-p.incoming:
			p.pending = data
		case <-p.closed:
			return 0, io.EOF
		}
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *scriptPort) Write(b []byte) (int, error) {
	f, err := readFrame(bufio.NewReader(bytes.NewReader(b)))
	if err != nil {
		return 0, err
	}
	p.mu.Lock()
	p.cmds = append(p.cmds, f)
	respond := p.respond
	p.mu.Unlock()
	if respond != nil {
		for _, rsp := range respond(f) {
			p.incoming <- rsp
		}
	}
	return len(b), nil
}

func (p *scriptPort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

// inject feeds raw device-to-host bytes, as unsolicited telemetry would.
func (p *scriptPort) inject(b []byte) { p.incoming <- b }

func (p *scriptPort) commands() []frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]frame, len(p.cmds))
	copy(out, p.cmds)
	return out
}

func ackScript(f frame) [][]byte {
	return [][]byte{encodeFrame(rspAck, []byte{ackOK})}
}

func TestSerialGetFiles(t *testing.T) {
	desc := flashDescriptor()
	params := flashImuParams()
	port := newScriptPort(func(f frame) [][]byte {
		if f.typ != cmdGetFiles {
			return nil
		}
		rec, err := encodeFlashRecord(desc, params, nil)
		require.NoError(t, err)
		return [][]byte{encodeFrame(rspFiles, rec)}
	})
	ch := NewSerial(port)
	defer ch.Close()

	gotDesc, gotParams, err := ch.GetFiles()
	require.NoError(t, err)
	assert.Equal(t, *desc, *gotDesc)
	assert.Equal(t, *params, *gotParams)
}

func TestSerialSetFiles(t *testing.T) {
	port := newScriptPort(ackScript)
	ch := NewSerial(port)
	defer ch.Close()

	require.NoError(t, ch.SetFiles(flashDescriptor(), flashImuParams(), nil))

	// The device received a well-formed record on the wire.
	cmds := port.commands()
	require.Len(t, cmds, 1)
	require.Equal(t, byte(cmdSetFiles), cmds[0].typ)
	gotDesc, _, err := decodeFlashRecord(cmds[0].payload)
	require.NoError(t, err)
	assert.Equal(t, *flashDescriptor(), *gotDesc)
}

func TestSerialSetFilesRejected(t *testing.T) {
	port := newScriptPort(func(f frame) [][]byte {
		return [][]byte{encodeFrame(rspAck, []byte{0x01})}
	})
	ch := NewSerial(port)
	defer ch.Close()

	assert.Error(t, ch.SetFiles(flashDescriptor(), nil, nil))
}

func TestSerialTrackingLifecycle(t *testing.T) {
	port := newScriptPort(ackScript)
	ch := NewSerial(port)
	defer ch.Close()

	require.False(t, ch.IsHidTracking())
	require.NoError(t, ch.StartHidTracking())
	assert.True(t, ch.IsHidTracking())

	// Starting again must not reach the device.
	require.NoError(t, ch.StartHidTracking())
	assert.Len(t, port.commands(), 1)

	ch.StopHidTracking()
	assert.False(t, ch.IsHidTracking())
	cmds := port.commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, byte(cmdStartTracking), cmds[0].typ)
	assert.Equal(t, byte(cmdStopTracking), cmds[1].typ)
}

func TestSerialTelemetryDispatch(t *testing.T) {
	port := newScriptPort(ackScript)
	ch := NewSerial(port)
	defer ch.Close()

	imuCh := make(chan telemetry.ImuPacket, 1)
	imgCh := make(chan telemetry.ImgInfo, 1)
	ch.SetImuDataCallback(func(pkt telemetry.ImuPacket) { imuCh <- pkt })
	ch.SetImgInfoCallback(func(info telemetry.ImgInfo) { imgCh <- info })

	pkt := telemetry.ImuPacket{Flag: telemetry.ImuFlagAccel, Timestamp: 123456, Temperature: -100, X: -4096, Y: 17, Z: 4096}
	info := telemetry.ImgInfo{FrameID: 42, Timestamp: 123789, ExposureTime: 480}
	port.inject(encodeFrame(pktImu, encodeImuPacket(pkt)))
	port.inject(encodeFrame(pktImgInfo, encodeImgInfo(info)))

	select {
	case got := <-imuCh:
		assert.Equal(t, pkt, got)
	case <-time.After(time.Second):
		t.Fatal("imu packet not dispatched")
	}
	select {
	case got := <-imgCh:
		assert.Equal(t, info, got)
	case <-time.After(time.Second):
		t.Fatal("img info not dispatched")
	}
}

func TestSerialTelemetryDoesNotSatisfyCommands(t *testing.T) {
	port := newScriptPort(func(f frame) [][]byte {
		// Telemetry arrives between the command and its reply.
		return [][]byte{
			encodeFrame(pktImu, encodeImuPacket(telemetry.ImuPacket{Flag: telemetry.ImuFlagGyro})),
			encodeFrame(rspAck, []byte{ackOK}),
		}
	})
	ch := NewSerial(port)
	defer ch.Close()

	assert.NoError(t, ch.StartHidTracking())
}

func TestReadFrameSkipsLeadingGarbage(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0xFF, 0x13})
	buf.Write(encodeFrame(rspAck, []byte{ackOK}))

	f, err := readFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, byte(rspAck), f.typ)
	assert.Equal(t, []byte{ackOK}, f.payload)
}

func TestReadFrameRejectsBadChecksum(t *testing.T) {
	raw := encodeFrame(rspAck, []byte{ackOK})
	raw[len(raw)-1] ^= 0xFF

	_, err := readFrame(bufio.NewReader(bytes.NewReader(raw)))
	assert.Error(t, err)
}

func TestReadFrameRejectsOversizedPayload(t *testing.T) {
	raw := []byte{frameMagic, rspFiles, 0xFF, 0xFF}

	_, err := readFrame(bufio.NewReader(bytes.NewReader(raw)))
	assert.Error(t, err)
}
