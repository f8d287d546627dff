// Package mqtt provides MQTT client connectivity for SensorHub Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS and payload-size checks
//   - Topic subscriptions with wildcard support, restored after reconnect
//   - Last Will and Testament on sensorhub/system/status
//
// # Topics
//
// Devices speak a small fixed vocabulary:
//
//	config                   registration payloads (inbound)
//	data/{sensor}            telemetry readings (inbound)
//	devices/{id}/status      presence updates (inbound)
//	devices/{id}/command     operator commands (outbound)
//
// Acknowledgments are published back on config.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, log)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.TopicTelemetryFilter, client.QoS(), handler)
//	err = client.PublishString(mqtt.Topics{}.DeviceCommand("d1"), "ON")
package mqtt
