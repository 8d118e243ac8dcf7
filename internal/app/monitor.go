package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/stereo_session/internal/config"
	"github.com/relabs-tech/stereo_session/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// RunMonitor subscribes to the publisher's topics and serves the latest
// samples over a JSON API plus a websocket push feed.
func RunMonitor() error {
	cfg := config.Get()

	var (
		mu         sync.RWMutex
		lastMotion telemetry.MotionData
		haveMotion bool
		lastInfo   telemetry.ImgInfo
		haveInfo   bool
		descriptor json.RawMessage
	)

	var (
		connMu sync.Mutex
		conns  = make(map[*websocket.Conn]bool)
	)
	broadcast := func(payload []byte) {
		connMu.Lock()
		defer connMu.Unlock()
		for c := range conns {
			if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.Close()
				delete(conns, c)
			}
		}
	}

	// --- connect to MQTT and subscribe ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDMonitor)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	log.Printf("monitor: connected to MQTT broker at %s", cfg.MQTTBroker)

	if token := client.Subscribe(cfg.TopicMotion, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var d telemetry.MotionData
		if err := json.Unmarshal(msg.Payload(), &d); err != nil {
			log.Printf("monitor: motion unmarshal error: %v", err)
			return
		}
		mu.Lock()
		lastMotion = d
		haveMotion = true
		mu.Unlock()
		broadcast(msg.Payload())
	}); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	if token := client.Subscribe(cfg.TopicImgInfo, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var info telemetry.ImgInfo
		if err := json.Unmarshal(msg.Payload(), &info); err != nil {
			log.Printf("monitor: img info unmarshal error: %v", err)
			return
		}
		mu.Lock()
		lastInfo = info
		haveInfo = true
		mu.Unlock()
	}); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	if token := client.Subscribe(cfg.TopicDescriptor, 0, func(_ mqtt.Client, msg mqtt.Message) {
		mu.Lock()
		descriptor = append(json.RawMessage(nil), msg.Payload()...)
		mu.Unlock()
	}); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("monitor: subscribed to %s, %s, %s", cfg.TopicMotion, cfg.TopicImgInfo, cfg.TopicDescriptor)

	// --- JSON API ---
	http.HandleFunc("/api/motion", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()
		if !haveMotion {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(lastMotion); err != nil {
			log.Printf("monitor: motion encode error: %v", err)
		}
	})

	http.HandleFunc("/api/imginfo", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()
		if !haveInfo {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(lastInfo); err != nil {
			log.Printf("monitor: img info encode error: %v", err)
		}
	})

	http.HandleFunc("/api/descriptor", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()
		if descriptor == nil {
			http.Error(w, "no descriptor yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(descriptor)
	})

	// --- websocket push feed of motion samples ---
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("monitor: websocket upgrade error: %v", err)
			return
		}
		connMu.Lock()
		conns[conn] = true
		connMu.Unlock()

		// Drain client messages so pings/close frames are processed.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					connMu.Lock()
					delete(conns, conn)
					connMu.Unlock()
					conn.Close()
					return
				}
			}
		}()
	})

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("monitor: serving on %s", addr)
	return http.ListenAndServe(addr, nil)
}
