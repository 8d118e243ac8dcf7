package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
# stereo session
MQTT_BROKER=tcp://localhost:1883
MQTT_CLIENT_ID_PUBLISHER=stereo-publisher

CHANNEL_MODE=mock
STREAM_MODE=2560x720
PROCESS_MODE=assembly
FRAMERATE=30
MOTION_BUFFER_SIZE=1000
WEB_SERVER_PORT=8080
SIM_SAMPLE_INTERVAL=50
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, "mock", cfg.ChannelMode)
	assert.Equal(t, "2560x720", cfg.StreamMode)
	assert.Equal(t, "assembly", cfg.ProcessMode)
	assert.Equal(t, 30, cfg.Framerate)
	assert.Equal(t, 1000, cfg.MotionBufferSize)
	assert.Equal(t, 8080, cfg.WebServerPort)
	assert.Equal(t, 50, cfg.SimSampleInterval)
}

func TestLoadSerialModeRequiresPort(t *testing.T) {
	path := writeConfig(t, `
MQTT_BROKER=tcp://localhost:1883
CHANNEL_MODE=serial
STREAM_MODE=1280x720
MOTION_BUFFER_SIZE=500
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHANNEL_SERIAL_PORT")
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, "NOT_A_KEY=1\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"bad channel mode", "CHANNEL_MODE=usb"},
		{"bad stream mode", "STREAM_MODE=800x600"},
		{"bad process mode", "PROCESS_MODE=everything"},
		{"framerate out of range", "FRAMERATE=120"},
		{"non-positive buffer", "MOTION_BUFFER_SIZE=0"},
		{"malformed line", "MQTT_BROKER"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.line+"\n"))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingRequiredKeys(t *testing.T) {
	path := writeConfig(t, `
CHANNEL_MODE=mock
STREAM_MODE=1280x720
MOTION_BUFFER_SIZE=500
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MQTT_BROKER")
}
