// Package influxdb mirrors SensorHub readings into InfluxDB v2.
//
// Each reading becomes one point in the sensor_readings measurement, tagged
// with device_id and data_type and carrying a single value field.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // mirror not configured
//	}
//	defer client.Close()
//
//	client.WriteReading("d1", "temp", 21.5, time.Now())
//
// # Error Handling
//
// Writes are non-blocking; batch errors are delivered to the SetOnError
// callback. Connection and health check errors are returned directly.
package influxdb
