// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker            string
	MQTTClientIDPublisher string
	MQTTClientIDMonitor   string

	// Topics
	TopicMotion     string
	TopicImgInfo    string
	TopicDescriptor string

	// Descriptor channel: "serial" against real hardware, "mock" for a
	// simulated device with a telemetry feeder.
	ChannelMode       string
	ChannelSerialPort string
	ChannelBaudRate   int

	// Session
	DeviceIndex int
	Framerate   int
	StreamMode  string // "640x480", "1280x480", "1280x720", "2560x720"
	ProcessMode string // "none", "assembly", "warm_drift", "all"

	// Buffering
	MotionBufferSize int

	// Web Server
	WebServerPort int

	// Mock mode
	SimSampleInterval int // milliseconds
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := &Config{}
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PUBLISHER":
		c.MQTTClientIDPublisher = value
	case "MQTT_CLIENT_ID_MONITOR":
		c.MQTTClientIDMonitor = value

	// Topics
	case "TOPIC_MOTION":
		c.TopicMotion = value
	case "TOPIC_IMG_INFO":
		c.TopicImgInfo = value
	case "TOPIC_DESCRIPTOR":
		c.TopicDescriptor = value

	// Channel
	case "CHANNEL_MODE":
		if value != "serial" && value != "mock" {
			return fmt.Errorf("CHANNEL_MODE must be \"serial\" or \"mock\", got %q", value)
		}
		c.ChannelMode = value
	case "CHANNEL_SERIAL_PORT":
		c.ChannelSerialPort = value
	case "CHANNEL_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CHANNEL_BAUD_RATE %q: %w", value, err)
		}
		c.ChannelBaudRate = rate

	// Session
	case "DEVICE_INDEX":
		idx, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DEVICE_INDEX %q: %w", value, err)
		}
		c.DeviceIndex = idx
	case "FRAMERATE":
		fps, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid FRAMERATE %q: %w", value, err)
		}
		if fps <= 0 || fps > 60 {
			return fmt.Errorf("FRAMERATE must be 1-60, got %d", fps)
		}
		c.Framerate = fps
	case "STREAM_MODE":
		switch value {
		case "640x480", "1280x480", "1280x720", "2560x720":
			c.StreamMode = value
		default:
			return fmt.Errorf("unknown STREAM_MODE %q", value)
		}
	case "PROCESS_MODE":
		switch value {
		case "none", "assembly", "warm_drift", "all":
			c.ProcessMode = value
		default:
			return fmt.Errorf("unknown PROCESS_MODE %q", value)
		}

	// Buffering
	case "MOTION_BUFFER_SIZE":
		size, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOTION_BUFFER_SIZE %q: %w", value, err)
		}
		if size <= 0 {
			return fmt.Errorf("MOTION_BUFFER_SIZE must be positive, got %d", size)
		}
		c.MotionBufferSize = size

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Mock mode
	case "SIM_SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SIM_SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.SimSampleInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.ChannelMode == "" {
		return fmt.Errorf("CHANNEL_MODE is required")
	}
	if c.ChannelMode == "serial" {
		if c.ChannelSerialPort == "" {
			return fmt.Errorf("CHANNEL_SERIAL_PORT is required in serial mode")
		}
		if c.ChannelBaudRate == 0 {
			return fmt.Errorf("CHANNEL_BAUD_RATE is required in serial mode")
		}
	}
	if c.StreamMode == "" {
		return fmt.Errorf("STREAM_MODE is required")
	}
	if c.MotionBufferSize == 0 {
		return fmt.Errorf("MOTION_BUFFER_SIZE is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file. Uses sync.Once
// so only the first call loads; later calls are no-ops.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance. InitGlobal must be called
// first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
