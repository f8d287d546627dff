// Package alert raises threshold alerts on recorded readings.
//
// Rules name a data type, an optional device and an upper and/or lower
// bound. The Evaluator runs as an events sink, so alerting never delays
// ingestion; crossings are delivered as CloudEvents of type
// sensorhub.alert.threshold to every configured subscriber.
package alert
