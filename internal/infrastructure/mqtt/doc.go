// Package mqtt connects the lamp to an MQTT broker.
//
// The broker is the lamp's integration surface: automation hubs push
// commands and programs in, the daemon publishes state deltas,
// retained snapshots and program status out. Neither side needs to
// know the other's address.
//
//	automation hub ↔ broker ↔ lamp daemon
//
// The client wraps paho.mqtt.golang and adds what the daemon needs on
// top: subscriptions that survive a reconnect, presence announcements
// on the system status topic (with a broker-delivered last will when
// the process dies uncleanly), and panic recovery around message
// handlers so one malformed payload cannot kill dispatch.
//
// Topic names come from the Topics builders; nothing else in the
// codebase spells out a topic string.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	client.Subscribe(mqtt.Topics{}.Command(), 1, handleCommand)
//	client.Publish(mqtt.Topics{}.StateDelta(), payload, 1, false)
//
// TLS (with broker credentials) is expected for any deployment that
// leaves the local network; anonymous plaintext is for development
// against a local mosquitto.
package mqtt
