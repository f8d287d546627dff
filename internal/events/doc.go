// Package events fans committed ingestion events out to downstream sinks.
//
// The ingestion handlers emit an Event only after the store write succeeded.
// A Fanout queues events on a bounded channel and a single goroutine hands
// each one to every sink in turn:
//
//	ingest ──Emit──▶ Fanout ──▶ websocket hub
//	                        ├─▶ InfluxDB mirror
//	                        ├─▶ Kafka topic
//	                        ├─▶ AMQP exchange
//	                        └─▶ alert evaluator
//
// Delivery is best effort. A full buffer drops the event with a warning and
// a failing sink is logged and skipped.
package events
