// Package telemetry stores sensor readings in the append-only sensor_data
// table and answers windowed queries over them.
//
// Readings are stamped by the server at insert time and ordered by
// (timestamp, id). A query returns the most recent N readings inside the
// window, oldest first, so a chart can plot the result directly.
package telemetry
