// Package ingest turns inbound MQTT messages into registry and telemetry
// writes.
//
// A Router owns three routes:
//
//	config             → Reconciler.HandleRegistration
//	data/+             → Recorder.HandleReading
//	devices/+/status   → Reconciler.HandleStatus
//
// Handlers return typed errors and never log. The router logs each outcome
// at the level its error class calls for and recovers handler panics, so
// one bad message never takes down the subscription.
//
// Messages for different routes and devices are handled concurrently. Each
// store write is a single statement, and the registry keeps one row per
// device_id no matter how registrations interleave.
package ingest
