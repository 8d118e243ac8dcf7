package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/stereo_session/internal/camera"
	"github.com/relabs-tech/stereo_session/internal/config"
	"github.com/relabs-tech/stereo_session/internal/device"
	"github.com/relabs-tech/stereo_session/internal/telemetry"
)

// RunPublisher opens a device session, enables motion and image-info
// collection, and publishes every sample to MQTT until interrupted.
func RunPublisher() error {
	log.Println("starting stereo-session telemetry publisher")

	cfg := config.Get()

	session, mock, cleanup, err := buildSession(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDPublisher)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("publisher: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Telemetry flows straight from the channel callbacks to MQTT.
	session.SetMotionCallback(func(d telemetry.MotionData) {
		payload, err := json.Marshal(d)
		if err != nil {
			log.Printf("publisher: motion marshal error: %v", err)
			return
		}
		if token := client.Publish(cfg.TopicMotion, 0, false, payload); token.Wait() && token.Error() != nil {
			log.Printf("publisher: MQTT publish error (%s): %v", cfg.TopicMotion, token.Error())
		}
	})
	session.SetImgInfoCallback(func(info telemetry.ImgInfo) {
		payload, err := json.Marshal(info)
		if err != nil {
			log.Printf("publisher: img info marshal error: %v", err)
			return
		}
		if token := client.Publish(cfg.TopicImgInfo, 0, false, payload); token.Wait() && token.Error() != nil {
			log.Printf("publisher: MQTT publish error (%s): %v", cfg.TopicImgInfo, token.Error())
		}
	})

	session.EnableProcessMode(parseProcessMode(cfg.ProcessMode))
	session.EnableMotionDatas(cfg.MotionBufferSize)
	session.EnableImageInfo(false)

	params := camera.OpenParams{
		DeviceIndex: cfg.DeviceIndex,
		Framerate:   cfg.Framerate,
		StreamMode:  parseStreamMode(cfg.StreamMode),
	}
	if code := session.Open(params); code != camera.Success {
		return fmt.Errorf("open camera: %s", code)
	}
	defer session.Close()
	log.Printf("publisher: session opened, stream mode %s", params.StreamMode)

	// Retained descriptor so monitors can pick it up late.
	if desc := session.Descriptors(); desc != nil {
		payload, err := json.Marshal(desc)
		if err != nil {
			log.Printf("publisher: descriptor marshal error: %v", err)
		} else if token := client.Publish(cfg.TopicDescriptor, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("publisher: MQTT publish error (%s): %v", cfg.TopicDescriptor, token.Error())
		}
	} else {
		log.Println("publisher: no descriptor read, nothing to retain")
	}

	if mock != nil {
		stop := make(chan struct{})
		defer close(stop)
		go device.RunFeeder(mock, simInterval(cfg), stop)
		log.Println("publisher: mock telemetry feeder running")
	}

	// Wait for Ctrl+C / SIGTERM
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("publisher: shutting down")
	return nil
}
