// Package api implements the HTTP REST API and WebSocket server for SensorHub.
//
// This package provides:
//   - Read endpoints over the device registry and readings
//   - Command submission, published to devices/{device_id}/command
//   - A WebSocket hub streaming ingestion events to dashboards
//   - Middleware stack (request ID, logging, recovery, CORS, tracing)
//
// # Architecture
//
// Handlers are thin: they decode parameters, call the query service, and map
// its sentinel errors to the {status, code, message} envelope. The hub is an
// events sink fed by the ingestion fan-out, so dashboards see registrations,
// presence changes and readings as they are committed.
//
// # Graceful Degradation
//
// The server operates without a connected broker: reads and WebSocket
// connections work, and command submission answers 502 publish_failed.
//
// # Legacy Routes
//
// GET /api/clients is an alias of GET /api/devices for older dashboards.
package api
