// Package mqtt connects the controller to the site MQTT broker.
//
// The broker is the bus between the controller and protocol bridges:
//
//	bridges ──graylogic/state/{protocol}/{address}──► broker ──► MQTT sensors
//	rules   ──graylogic/command/{protocol}/{address}─► broker ──► bridges
//	cache   ──graylogic/core/sensor/{name}/state────► broker ──► panels, dashboards
//
// Client wraps paho.mqtt.golang with:
//   - auto-reconnect with backoff and subscription restore
//   - a Last Will on graylogic/system/status so peers see crashes
//   - panic recovery around every message handler
//   - publish and receive counters for health reporting
//
// Topic names are built with Topics so every component agrees on the scheme.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.BridgeState("knx", "door-front"), 1,
//	    func(topic string, payload []byte) error {
//	        return nil
//	    })
//
// Tests that need a live broker are behind the "integration" build tag.
package mqtt
